package middleware

import (
	"net/http"
	"slices"

	"github.com/sirupsen/logrus"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/domain"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/apiErrors"
)

// RoleMiddleware restringe o acesso aos perfis informados.
// O perfil vem da sessão; as claims só são usadas se não houver sessão no contexto.
func RoleMiddleware(allowedRoles []int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			roleID, userID, ok := currentRole(r)
			if !ok {
				logrus.Warning("Tentativa de acesso sem autenticação")
				apiErrors.WriteError(w, apiErrors.ErrAuthenticationRequired, "authentication required", nil)
				return
			}

			if !slices.Contains(allowedRoles, roleID) {
				logrus.Warningf("Acesso negado para usuário ID=%d, Role=%d", userID, roleID)
				apiErrors.WriteError(w, apiErrors.ErrInsufficientPrivilege, "Você não tem permissão para acessar este recurso", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func currentRole(r *http.Request) (roleID, userID int, ok bool) {
	if sess := SessionFromContext(r.Context()); sess.Authenticated() {
		return sess.RoleID, sess.UserID, true
	}
	if claims, ok := ClaimsFromContext(r.Context()); ok {
		return claims.UserRoleID, claims.UserID, true
	}
	return 0, 0, false
}

// AdminOnly permite acesso apenas para administradores
func AdminOnly() func(http.Handler) http.Handler {
	return RoleMiddleware([]int{domain.RoleAdmin})
}

// AllRoles permite acesso a qualquer usuário autenticado
func AllRoles() func(http.Handler) http.Handler {
	return RoleMiddleware([]int{domain.RoleAdmin, domain.RoleViewer})
}

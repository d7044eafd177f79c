package handler

import (
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/usecases/authenticating"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/apiErrors"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/log"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/middleware"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type MeResponse struct {
	SessionID string         `json:"session_id"`
	UserID    int            `json:"user_id"`
	Username  string         `json:"username"`
	Name      string         `json:"name"`
	RoleID    int            `json:"role_id"`
	LoadedAt  time.Time      `json:"loaded_at"`
	Tables    map[string]int `json:"tables"`
}

func Login(service authenticating.Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "Formato de requisição inválido", nil)
			return
		}

		result, err := service.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			handleLoginError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// Logout encerra a sessão do token. O token continua assinado, mas deixa de abrir dashboards.
func Logout(service authenticating.Authenticator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middleware.SessionFromContext(r.Context())
		if sess == nil {
			apiErrors.WriteError(w, apiErrors.ErrAuthenticationRequired, "Usuário não autenticado", nil)
			return
		}

		closed := service.Logout(sess.ID)

		log.ForContext(r.Context()).WithFields(log.Fields{
			"session_id": sess.ID,
			"user_id":    sess.UserID,
		}).Info("Logout realizado")

		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Sessão encerrada",
			"closed":  closed,
		})
	}
}

// GetMe retorna o usuário da sessão e o tamanho das tabelas carregadas para ela
func GetMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := middleware.SessionFromContext(r.Context())
		if !sess.Authenticated() {
			apiErrors.WriteError(w, apiErrors.ErrAuthenticationRequired, "Usuário não autenticado", nil)
			return
		}

		resp := MeResponse{
			SessionID: sess.ID,
			UserID:    sess.UserID,
			Username:  sess.Username,
			Name:      sess.Name,
			RoleID:    sess.RoleID,
		}
		if ds := sess.Dataset(); ds != nil {
			resp.LoadedAt = ds.LoadedAt
			resp.Tables = ds.Summary()
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func handleLoginError(w http.ResponseWriter, err error) {
	var authErr *authenticating.AuthError
	if errors.As(err, &authErr) {
		apiErrors.WriteError(w, authErr.Code, authErr.Error(), nil)
		return
	}

	switch {
	case errors.Is(err, authenticating.ErrInvalidCredentials):
		apiErrors.WriteError(w, apiErrors.ErrInvalidCredentials, "Credenciais inválidas", nil)

	case errors.Is(err, authenticating.ErrUserDisabled):
		apiErrors.WriteError(w, apiErrors.ErrUserDisabled, "Usuário desativado", nil)

	case errors.Is(err, authenticating.ErrDatasetLoad):
		apiErrors.WriteError(w, apiErrors.ErrDataLoad, "Não foi possível carregar os dados do dashboard", nil)

	default:
		logrus.WithError(err).Error("Erro inesperado no login")
		apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro interno ao realizar login", nil)
	}
}

package authenticating

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/styloabhi/CRM-Analytics-Dashboard/infrastructure/repository"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/config"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/domain"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/metrics"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/session"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/apiErrors"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/log"
	"golang.org/x/crypto/bcrypt"
)

type Authenticator interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	ValidateToken(tokenString string) (*domain.Claims, error)
	Authenticate(tokenString string) (*session.Session, *domain.Claims, error)
	Logout(sessionID string) bool
}

type LoginResult struct {
	Token     string       `json:"token"`
	SessionID string       `json:"session_id"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

type Service struct {
	userRepo repository.UserRepository
	sessions session.Manager
	cfg      config.Auth
	now      func() time.Time
}

func NewService(userRepo repository.UserRepository, sessions session.Manager, cfg config.Auth) *Service {
	return &Service{
		userRepo: userRepo,
		sessions: sessions,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Login confere as credenciais, abre uma sessão (que carrega os extratos)
// e devolve o token que referencia essa sessão.
func (s *Service) Login(ctx context.Context, username, password string) (result *LoginResult, err error) {
	defer func() { metrics.ObserveLogin(err) }()

	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, NewAuthError(ErrMissingRequiredData, apiErrors.ErrMissingRequiredData, "Usuário e senha são obrigatórios")
	}

	user, err := s.userRepo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, NewAuthError(err, apiErrors.ErrDatabaseOperation, "Erro ao consultar usuário")
	}

	// Usuário inexistente e senha errada respondem igual
	if user == nil {
		return nil, NewAuthError(ErrUserNotFound, apiErrors.ErrInvalidCredentials, "Usuário ou senha inválidos")
	}

	if !user.Active {
		return nil, NewUserAuthError(ErrUserDisabled, apiErrors.ErrUserDisabled, user.ID, "Conta desativada")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, NewUserAuthError(ErrInvalidCredentials, apiErrors.ErrInvalidCredentials, user.ID, "Usuário ou senha inválidos")
	}

	sess, err := s.sessions.Open(ctx, *user)
	if err != nil {
		log.ForContext(ctx).WithFields(log.Fields{
			"user_id": user.ID,
			"error":   err.Error(),
		}).Error("Falha ao carregar os extratos no login")
		return nil, NewUserAuthError(fmt.Errorf("%w: %v", ErrDatasetLoad, err), apiErrors.ErrDataLoad, user.ID, "Não foi possível carregar os dados")
	}

	expiresAt := s.now().Add(s.cfg.TokenTTL)
	token, err := generateJWT(user, sess.ID, expiresAt, s.cfg.Secret)
	if err != nil {
		s.sessions.Close(sess.ID)
		return nil, NewUserAuthError(err, apiErrors.ErrInternalServer, user.ID, "Erro ao gerar token de autenticação")
	}

	user.PasswordHash = ""
	return &LoginResult{
		Token:     token,
		SessionID: sess.ID,
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

func generateJWT(user *domain.User, sessionID string, expiresAt time.Time, secretKey string) (string, error) {
	claims := domain.Claims{
		UserID:     user.ID,
		Username:   user.Username,
		UserName:   user.Name,
		UserRoleID: user.RoleID,
		SessionID:  sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secretKey))
}

func (s *Service) ValidateToken(tokenString string) (*domain.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &domain.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, NewAuthError(ErrExpiredToken, apiErrors.ErrExpiredToken, "Token expirado")
		}
		return nil, NewAuthError(ErrInvalidToken, apiErrors.ErrInvalidToken, err.Error())
	}

	claims, ok := token.Claims.(*domain.Claims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return nil, NewAuthError(ErrInvalidToken, apiErrors.ErrInvalidToken, "Token sem sessão")
	}

	return claims, nil
}

// Authenticate valida o token e resolve a sessão que ele referencia
func (s *Service) Authenticate(tokenString string) (*session.Session, *domain.Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, nil, err
	}

	sess, err := s.sessions.Get(claims.SessionID)
	switch {
	case errors.Is(err, session.ErrSessionExpired):
		return nil, nil, NewUserAuthError(ErrSessionExpired, apiErrors.ErrSessionExpired, claims.UserID, "Faça login novamente")
	case err != nil:
		return nil, nil, NewUserAuthError(ErrSessionClosed, apiErrors.ErrAuthenticationRequired, claims.UserID, "Faça login novamente")
	}

	if sess.UserID != claims.UserID {
		return nil, nil, NewUserAuthError(ErrInvalidToken, apiErrors.ErrInvalidToken, claims.UserID, "Token não pertence à sessão")
	}

	return sess, claims, nil
}

// Logout encerra a sessão; o token continua assinado mas deixa de abrir dashboards
func (s *Service) Logout(sessionID string) bool {
	return s.sessions.Close(sessionID)
}

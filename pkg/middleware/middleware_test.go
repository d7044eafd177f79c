package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/domain"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/session"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/usecases/authenticating"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/apiErrors"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/log"
)

type fakeAuthenticator struct {
	sessions map[string]*session.Session
}

func (f *fakeAuthenticator) Login(context.Context, string, string) (*authenticating.LoginResult, error) {
	return nil, nil
}

func (f *fakeAuthenticator) ValidateToken(string) (*domain.Claims, error) {
	return nil, nil
}

func (f *fakeAuthenticator) Authenticate(token string) (*session.Session, *domain.Claims, error) {
	sess, ok := f.sessions[token]
	if !ok {
		return nil, nil, authenticating.NewAuthError(authenticating.ErrSessionClosed, apiErrors.ErrAuthenticationRequired, "Faça login novamente")
	}
	return sess, &domain.Claims{UserID: sess.UserID, UserRoleID: sess.RoleID, SessionID: sess.ID}, nil
}

func (f *fakeAuthenticator) Logout(string) bool { return true }

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware(t *testing.T) {
	log.SetupTestLogger()

	viewer := session.NewAuthenticated("s1", domain.User{ID: 1, RoleID: domain.RoleViewer}, &domain.Dataset{}, time.Now())
	auth := &fakeAuthenticator{sessions: map[string]*session.Session{"token-valido": viewer}}

	var seen *session.Session
	handler := AuthMiddleware(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{name: "Rota pública", path: "/healthcheck", wantStatus: http.StatusOK},
		{name: "Sem cabeçalho", path: "/v1/dashboards/executive", wantStatus: http.StatusUnauthorized, wantCode: apiErrors.ErrAuthenticationRequired},
		{name: "Sem Bearer", path: "/v1/dashboards/executive", header: "token-valido", wantStatus: http.StatusUnauthorized, wantCode: apiErrors.ErrAuthenticationRequired},
		{name: "Sessão encerrada", path: "/v1/dashboards/executive", header: "Bearer outro", wantStatus: http.StatusUnauthorized, wantCode: apiErrors.ErrAuthenticationRequired},
		{name: "Sessão válida", path: "/v1/dashboards/executive", header: "Bearer token-valido", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				assert.Contains(t, rec.Body.String(), tt.wantCode)
			}
			if tt.name == "Sessão válida" {
				assert.Same(t, viewer, seen)
			}
		})
	}
}

func TestRoleMiddleware(t *testing.T) {
	now := time.Now()
	admin := session.NewAuthenticated("a", domain.User{ID: 1, RoleID: domain.RoleAdmin}, &domain.Dataset{}, now)
	viewer := session.NewAuthenticated("v", domain.User{ID: 2, RoleID: domain.RoleViewer}, &domain.Dataset{}, now)

	tests := []struct {
		name       string
		ctx        func(context.Context) context.Context
		wantStatus int
	}{
		{
			name:       "Sem sessão",
			ctx:        func(ctx context.Context) context.Context { return ctx },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Administrador",
			ctx:        func(ctx context.Context) context.Context { return WithSession(ctx, admin, nil) },
			wantStatus: http.StatusOK,
		},
		{
			name:       "Visualizador",
			ctx:        func(ctx context.Context) context.Context { return WithSession(ctx, viewer, nil) },
			wantStatus: http.StatusForbidden,
		},
		{
			name: "Somente claims de administrador",
			ctx: func(ctx context.Context) context.Context {
				return WithSession(ctx, nil, &domain.Claims{UserID: 1, UserRoleID: domain.RoleAdmin})
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/cron/session-sweep/run", nil)
			req = req.WithContext(tt.ctx(req.Context()))
			rec := httptest.NewRecorder()

			AdminOnly()(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	AllRoles()(okHandler()).ServeHTTP(rec, req.WithContext(WithSession(req.Context(), viewer, nil)))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCors(t *testing.T) {
	tests := []struct {
		name       string
		allowed    []string
		origin     string
		method     string
		wantOrigin string
	}{
		{name: "Origem liberada", allowed: []string{"http://localhost:3000"}, origin: "http://localhost:3000", method: http.MethodGet, wantOrigin: "http://localhost:3000"},
		{name: "Origem bloqueada", allowed: []string{"http://localhost:3000"}, origin: "http://evil.local", method: http.MethodGet},
		{name: "Curinga", allowed: []string{"*"}, origin: "http://qualquer.local", method: http.MethodOptions, wantOrigin: "http://qualquer.local"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/v1/me", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()

			Cors(tt.allowed)(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestLogPanicMiddleware(t *testing.T) {
	log.SetupTestLogger()

	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("explodiu")
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/dashboards/executive", nil)

	require.NotPanics(t, func() {
		LoggingMiddleware()(LogPanicMiddleware()(panicking)).ServeHTTP(rec, req)
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), apiErrors.ErrInternalServer)
}

func TestStatusRecorder(t *testing.T) {
	rec := newStatusRecorder(httptest.NewRecorder())
	rec.WriteHeader(http.StatusNotFound)
	rec.WriteHeader(http.StatusOK)

	assert.Equal(t, http.StatusNotFound, rec.statusCode)
}

func TestInstrument(t *testing.T) {
	rec := httptest.NewRecorder()
	Instrument("/v1/dashboards/:page")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/dashboards/executive", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "500 µs", formatDuration(500*time.Microsecond))
	assert.Equal(t, "20 ms", formatDuration(20*time.Millisecond))
	assert.Equal(t, "1.50 s", formatDuration(1500*time.Millisecond))
}

package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/api/handler/router"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/domain"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/session"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/usecases/authenticating"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/usecases/dashboard"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/usecases/dashboard/mocks"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/apiErrors"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/log"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/middleware"
	"go.uber.org/mock/gomock"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func testDataset() *domain.Dataset {
	return &domain.Dataset{
		Opportunities: []domain.Opportunity{
			{ID: "1", Account: "Acme", Product: "GTX Pro", SalesAgent: "Ana", Stage: domain.StageWon,
				EngageDate: date(2017, 2, 1), CloseDate: date(2017, 3, 1),
				CloseValue: decimal.NewNullDecimal(decimal.NewFromInt(1000)), OfficeLocation: "Kenya"},
			{ID: "2", Account: "Beta", Product: "MG Special", SalesAgent: "Bia", Stage: domain.StageLost,
				EngageDate: date(2017, 3, 1), CloseDate: date(2017, 4, 10), OfficeLocation: "Japan"},
		},
		Accounts: []domain.Account{{Account: "Acme"}, {Account: "Beta"}},
		LoadedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func viewerSession() *session.Session {
	return session.NewAuthenticated("s1", domain.User{ID: 7, Username: "ana", Name: "Ana", RoleID: domain.RoleViewer}, testDataset(), time.Now())
}

// withSession simula o AuthMiddleware colocando a sessão no contexto
func withSession(sess *session.Session, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess != nil {
			r = r.WithContext(middleware.WithSession(r.Context(), sess, &domain.Claims{UserID: sess.UserID, UserRoleID: sess.RoleID, SessionID: sess.ID}))
		}
		next.ServeHTTP(w, r)
	})
}

func decodeError(t *testing.T, body io.Reader) apiErrors.APIError {
	t.Helper()
	var apiErr apiErrors.APIError
	require.NoError(t, json.NewDecoder(body).Decode(&apiErr))
	return apiErr
}

type fakeAuthenticator struct {
	result   *authenticating.LoginResult
	err      error
	loggedIn []string
	closed   []string
}

func (f *fakeAuthenticator) Login(_ context.Context, username, _ string) (*authenticating.LoginResult, error) {
	f.loggedIn = append(f.loggedIn, username)
	return f.result, f.err
}

func (f *fakeAuthenticator) ValidateToken(string) (*domain.Claims, error) { return nil, nil }

func (f *fakeAuthenticator) Authenticate(string) (*session.Session, *domain.Claims, error) {
	return nil, nil, nil
}

func (f *fakeAuthenticator) Logout(id string) bool {
	f.closed = append(f.closed, id)
	return true
}

func TestLogin(t *testing.T) {
	log.SetupTestLogger()

	tests := []struct {
		name       string
		body       string
		auth       *fakeAuthenticator
		wantStatus int
		wantCode   string
	}{
		{
			name:       "Corpo inválido",
			body:       "{",
			auth:       &fakeAuthenticator{},
			wantStatus: http.StatusBadRequest,
			wantCode:   apiErrors.ErrInvalidRequest,
		},
		{
			name: "Credenciais inválidas",
			body: `{"username":"ana","password":"errada"}`,
			auth: &fakeAuthenticator{err: authenticating.NewAuthError(
				authenticating.ErrInvalidCredentials, apiErrors.ErrInvalidCredentials, "Usuário ou senha incorretos")},
			wantStatus: http.StatusUnauthorized,
			wantCode:   apiErrors.ErrInvalidCredentials,
		},
		{
			name: "Falha ao carregar dados",
			body: `{"username":"ana","password":"certa"}`,
			auth: &fakeAuthenticator{err: authenticating.NewAuthError(
				authenticating.ErrDatasetLoad, apiErrors.ErrDataLoad, "arquivo ausente")},
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   apiErrors.ErrDataLoad,
		},
		{
			name: "Sucesso",
			body: `{"username":"ana","password":"certa"}`,
			auth: &fakeAuthenticator{result: &authenticating.LoginResult{
				Token:     "jwt",
				SessionID: "s1",
				ExpiresAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			}},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/login", strings.NewReader(tt.body))

			Login(tt.auth).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, rec.Body).Code)
				return
			}

			var result authenticating.LoginResult
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
			assert.Equal(t, "jwt", result.Token)
			assert.Equal(t, "s1", result.SessionID)
			assert.Equal(t, []string{"ana"}, tt.auth.loggedIn)
		})
	}
}

func TestLogout(t *testing.T) {
	auth := &fakeAuthenticator{}

	rec := httptest.NewRecorder()
	withSession(viewerSession(), Logout(auth)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/logout", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"s1"}, auth.closed)

	rec = httptest.NewRecorder()
	withSession(nil, Logout(auth)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/logout", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Len(t, auth.closed, 1)
}

func TestGetMe(t *testing.T) {
	rec := httptest.NewRecorder()
	withSession(viewerSession(), GetMe()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/me", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var me MeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&me))
	assert.Equal(t, "s1", me.SessionID)
	assert.Equal(t, 7, me.UserID)
	assert.Equal(t, 2, me.Tables["sales_pipeline"])
	assert.True(t, me.LoadedAt.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
}

func newDashboardRouter(t *testing.T, sess *session.Session) (http.Handler, *mocks.MockExporter, *mocks.MockChartRenderer) {
	ctrl := gomock.NewController(t)
	exporter := mocks.NewMockExporter(ctrl)
	charts := mocks.NewMockChartRenderer(ctrl)

	rt := router.New(router.WithRoutes(Dashboards(dashboard.NewService(exporter, charts))...))
	return withSession(sess, rt), exporter, charts
}

func TestGetDashboard(t *testing.T) {
	log.SetupTestLogger()

	tests := []struct {
		name       string
		sess       *session.Session
		url        string
		wantStatus int
		wantCode   string
	}{
		{name: "Sem sessão", url: "/v1/dashboards/executive", wantStatus: http.StatusUnauthorized, wantCode: apiErrors.ErrAuthenticationRequired},
		{name: "Página desconhecida", sess: viewerSession(), url: "/v1/dashboards/finance", wantStatus: http.StatusNotFound, wantCode: apiErrors.ErrResourceNotFound},
		{name: "Executivo", sess: viewerSession(), url: "/v1/dashboards/executive?product=GTX+Pro", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, _, _ := newDashboardRouter(t, tt.sess)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.url, nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeError(t, rec.Body).Code)
				return
			}

			var dash struct {
				Page      domain.Page         `json:"page"`
				Selection map[string][]string `json:"selection"`
				RowCount  int                 `json:"row_count"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&dash))
			assert.Equal(t, domain.PageExecutive, dash.Page)
			assert.Equal(t, 1, dash.RowCount)
			assert.Equal(t, []string{"GTX Pro"}, dash.Selection["product"])
		})
	}
}

func TestGetDashboardFilters(t *testing.T) {
	handler, _, _ := newDashboardRouter(t, viewerSession())
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/dashboards/executive/filters", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Page    string              `json:"page"`
		Filters map[string][]string `json:"filters"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "executive", body.Page)
	assert.NotContains(t, body.Filters, "account")
	assert.ElementsMatch(t, []string{"GTX Pro", "MG Special"}, body.Filters["product"])
}

func TestExportDashboard(t *testing.T) {
	log.SetupTestLogger()

	t.Run("Sucesso", func(t *testing.T) {
		handler, exporter, _ := newDashboardRouter(t, viewerSession())
		exporter.EXPECT().Export(gomock.Any(), gomock.Any()).DoAndReturn(func(dash domain.Dashboard, w io.Writer) error {
			assert.Equal(t, domain.PageExecutive, dash.Page)
			_, err := w.Write([]byte("xlsx"))
			return err
		})
		exporter.EXPECT().FileName(domain.PageExecutive).Return("executive_dashboard.xlsx")
		exporter.EXPECT().ContentType().Return("application/vnd.ms-excel")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/dashboards/executive/export", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/vnd.ms-excel", rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="executive_dashboard.xlsx"`, rec.Header().Get("Content-Disposition"))
		assert.Equal(t, "xlsx", rec.Body.String())
	})

	t.Run("Falha na geração", func(t *testing.T) {
		handler, exporter, _ := newDashboardRouter(t, viewerSession())
		exporter.EXPECT().Export(gomock.Any(), gomock.Any()).DoAndReturn(func(_ domain.Dashboard, w io.Writer) error {
			_, _ = w.Write([]byte("parcial"))
			return assert.AnError
		})
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/dashboards/executive/export", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "parcial")
		assert.Equal(t, apiErrors.ErrDataExport, decodeError(t, bytes.NewReader(rec.Body.Bytes())).Code)
	})
}

func TestGetDashboardCharts(t *testing.T) {
	handler, _, charts := newDashboardRouter(t, viewerSession())
	charts.EXPECT().Charts(gomock.Any()).Return([]domain.Chart{
		{Table: "revenue_by_product", Title: "Receita por produto", Kind: domain.ChartBar, URL: "https://quickchart.io/chart?c=x"},
	}, nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/dashboards/executive/charts", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "revenue_by_product")
}

type fakeCronJob struct {
	triggered int
}

func (f *fakeCronJob) TriggerManualSync() { f.triggered++ }

func (f *fakeCronJob) GetStatus() map[string]any {
	return map[string]any{"triggered": f.triggered}
}

func TestCronJobs(t *testing.T) {
	log.SetupTestLogger()

	job := &fakeCronJob{}
	admin := session.NewAuthenticated("a1", domain.User{ID: 1, RoleID: domain.RoleAdmin}, testDataset(), time.Now())

	rt := router.New(router.WithRoutes(CronJobs(CronJobServices{SessionSweepService: job})...))

	tests := []struct {
		name       string
		sess       *session.Session
		method     string
		url        string
		wantStatus int
	}{
		{name: "Visualizador não executa", sess: viewerSession(), method: http.MethodPost, url: "/v1/cron/session-sweep/run", wantStatus: http.StatusForbidden},
		{name: "Tipo inválido", sess: admin, method: http.MethodPost, url: "/v1/cron/meta/run", wantStatus: http.StatusBadRequest},
		{name: "Executa limpeza", sess: admin, method: http.MethodPost, url: "/v1/cron/session-sweep/run", wantStatus: http.StatusOK},
		{name: "Executa todas", sess: admin, method: http.MethodPost, url: "/v1/cron/all/run", wantStatus: http.StatusOK},
		{name: "Status", sess: admin, method: http.MethodGet, url: "/v1/cron/all/status", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			withSession(tt.sess, rt).ServeHTTP(rec, httptest.NewRequest(tt.method, tt.url, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	assert.Equal(t, 2, job.triggered)
}

func TestHealthcheck(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthcheckHandler(fakeCounter(3)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthcheck", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 3, body["active_sessions"])
}

type fakeCounter int

func (c fakeCounter) Len() int { return int(c) }

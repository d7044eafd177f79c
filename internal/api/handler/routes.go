package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/api/handler/router"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/usecases/authenticating"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/usecases/dashboard"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/middleware"
)

func Healthcheck(sessions SessionCounter) []router.Route {
	return []router.Route{
		{
			Path:    "/healthcheck",
			Method:  http.MethodGet,
			Handler: HealthcheckHandler(sessions),
		},
	}
}

func Metrics() []router.Route {
	return []router.Route{
		{
			Path:    "/metrics",
			Method:  http.MethodGet,
			Handler: promhttp.Handler(),
		},
	}
}

func Authentication(service authenticating.Authenticator) []router.Route {
	return []router.Route{
		{
			Path:    "/v1/login",
			Method:  http.MethodPost,
			Handler: Login(service),
		},
		{
			Path:        "/v1/logout",
			Method:      http.MethodPost,
			Handler:     Logout(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.AllRoles()},
		},
		{
			Path:        "/v1/me",
			Method:      http.MethodGet,
			Handler:     GetMe(),
			Middlewares: []func(http.Handler) http.Handler{middleware.AllRoles()},
		},
	}
}

func Dashboards(service dashboard.Dashboarder) []router.Route {
	return []router.Route{
		{
			Path:        "/v1/dashboards/:page",
			Method:      http.MethodGet,
			Handler:     GetDashboard(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.AllRoles()},
		},
		{
			Path:        "/v1/dashboards/:page/filters",
			Method:      http.MethodGet,
			Handler:     GetDashboardFilters(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.AllRoles()},
		},
		{
			Path:        "/v1/dashboards/:page/export",
			Method:      http.MethodGet,
			Handler:     ExportDashboard(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.AllRoles()},
		},
		{
			Path:        "/v1/dashboards/:page/charts",
			Method:      http.MethodGet,
			Handler:     GetDashboardCharts(service),
			Middlewares: []func(http.Handler) http.Handler{middleware.AllRoles()},
		},
	}
}

func CronJobs(services CronJobServices) []router.Route {
	return []router.Route{
		{
			Path:        "/v1/cron/:type/run",
			Method:      http.MethodPost,
			Handler:     RunCronJob(services),
			Middlewares: []func(http.Handler) http.Handler{middleware.AdminOnly()},
		},
		{
			Path:        "/v1/cron/:type/status",
			Method:      http.MethodGet,
			Handler:     GetCronStatus(services),
			Middlewares: []func(http.Handler) http.Handler{middleware.AdminOnly()},
		},
	}
}

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "crm_analytics"

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Motivos de encerramento de sessão
const (
	ReasonLogout  = "logout"
	ReasonExpired = "expired"
	ReasonEvicted = "evicted"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total de requisições HTTP por rota, método e status.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_seconds",
			Help:      "Latência das requisições HTTP em segundos.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessões de dashboard abertas no momento.",
		},
	)

	sessionsClosedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_closed_total",
			Help:      "Sessões encerradas por motivo.",
		},
		[]string{"reason"},
	)

	datasetLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_loads_total",
			Help:      "Cargas dos extratos CSV por resultado.",
		},
		[]string{"outcome"},
	)

	datasetLoadSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dataset_load_seconds",
			Help:      "Duração da carga dos extratos em segundos.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	dashboardSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dashboard_compute_seconds",
			Help:      "Tempo de cálculo de cada página de dashboard.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"page"},
	)

	loginsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Tentativas de login por resultado.",
		},
		[]string{"outcome"},
	)
)

// Register registra os coletores da aplicação no registerer informado
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		httpRequestsTotal,
		httpRequestSeconds,
		sessionsActive,
		sessionsClosedTotal,
		datasetLoadsTotal,
		datasetLoadSeconds,
		dashboardSeconds,
		loginsTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestSeconds.WithLabelValues(route).Observe(nonNegative(duration).Seconds())
}

func SessionOpened() {
	sessionsActive.Inc()
}

func SessionClosed(reason string) {
	sessionsActive.Dec()
	sessionsClosedTotal.WithLabelValues(reason).Inc()
}

func ObserveDatasetLoad(duration time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	datasetLoadsTotal.WithLabelValues(outcome).Inc()
	datasetLoadSeconds.Observe(nonNegative(duration).Seconds())
}

func ObserveDashboard(page string, duration time.Duration) {
	dashboardSeconds.WithLabelValues(page).Observe(nonNegative(duration).Seconds())
}

func ObserveLogin(err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	loginsTotal.WithLabelValues(outcome).Inc()
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

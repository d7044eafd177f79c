package middleware

import (
	"net/http"
	"time"

	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/metrics"
)

// Instrument registra contagem e latência com o padrão da rota como rótulo
func Instrument(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newStatusRecorder(w)
			start := time.Now()

			next.ServeHTTP(rec, r)

			metrics.ObserveHTTPRequest(r.Method, route, rec.statusCode, time.Since(start))
		})
	}
}

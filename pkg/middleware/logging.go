package middleware

import (
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/apiErrors"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/log"
)

const slowRequest = 500 * time.Millisecond

// LoggingMiddleware gera o ID de correlação e registra o início e o fim de cada requisição
func LoggingMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, correlationID := log.WithCorrelationID(r.Context())
			r = r.WithContext(ctx)

			rec := newStatusRecorder(w)
			startTime := time.Now()
			isDev := log.IsDevelopment()

			if isDev {
				log.L.WithFields(log.Fields{
					"method": r.Method,
					"path":   r.URL.Path,
				}).Info("→ Iniciando requisição")
			} else {
				log.L.WithFields(log.Fields{
					"correlation_id": correlationID,
					"remote_addr":    r.RemoteAddr,
					"method":         r.Method,
					"path":           r.URL.Path,
					"query":          r.URL.RawQuery,
					"user_agent":     r.UserAgent(),
				}).Info("Requisição iniciada")
			}

			next.ServeHTTP(rec, r)

			elapsed := time.Since(startTime)
			logger := log.L.WithFields(log.Fields{
				"correlation_id": correlationID,
				"method":         r.Method,
				"path":           r.URL.Path,
				"status_code":    rec.statusCode,
				"duration_ms":    elapsed.Milliseconds(),
			})

			msg := "Requisição finalizada"
			if isDev {
				symbol := "✓"
				if rec.statusCode >= 400 {
					symbol = "✗"
				}
				msg = fmt.Sprintf("%s Completada em %s", symbol, formatDuration(elapsed))
			}

			switch {
			case rec.statusCode >= 500:
				logger.Error(msg)
			case rec.statusCode >= 400:
				logger.Warn(msg)
			default:
				logger.Info(msg)
			}

			// exportações grandes costumam cair aqui
			if elapsed > slowRequest {
				logger.Warnf("Requisição lenta: %s %s (%dms)", r.Method, r.URL.Path, elapsed.Milliseconds())
			}
		})
	}
}

// formatDuration formata a duração de forma humana
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%d µs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%d ms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2f s", d.Seconds())
	}
}

// statusRecorder captura o status code para log e métricas
type statusRecorder struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rec *statusRecorder) WriteHeader(code int) {
	if !rec.wroteHeader {
		rec.statusCode = code
		rec.wroteHeader = true
	}
	rec.ResponseWriter.WriteHeader(code)
}

// LogPanicMiddleware converte panics em 500 padronizado e registra o stack trace
func LogPanicMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				err := recover()
				if err == nil {
					return
				}

				stack := make([]byte, 4096)
				stackTrace := string(stack[:runtime.Stack(stack, false)])

				logger := log.L.WithFields(log.Fields{
					"correlation_id": log.GetCorrelationID(r.Context()),
					"error":          fmt.Sprint(err),
					"method":         r.Method,
					"path":           r.URL.Path,
				})

				if log.IsDevelopment() {
					logger.Error("❌ PANIC na aplicação")
					fmt.Fprintf(os.Stderr, "\n\n=== STACK TRACE ===\n%s\n=================\n\n", stackTrace)
				} else {
					logger.WithField("stack_trace", stackTrace).Error("Erro não tratado na aplicação")
				}

				apiErrors.WriteError(w, apiErrors.ErrInternalServer, "Erro interno no servidor", nil)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

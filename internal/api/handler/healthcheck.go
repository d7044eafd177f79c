package handler

import (
	"net/http"
	"time"
)

// SessionCounter expõe apenas a contagem de sessões para o healthcheck
type SessionCounter interface {
	Len() int
}

func HealthcheckHandler(sessions SessionCounter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		active := 0
		if sessions != nil {
			active = sessions.Len()
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"status":          "ok",
			"time":            time.Now().Format(time.RFC3339),
			"active_sessions": active,
		})
	})
}

package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/sirupsen/logrus"
	"github.com/styloabhi/CRM-Analytics-Dashboard/pkg/apiErrors"
)

const (
	CronJobTypeSessionSweep = "session-sweep"
	CronJobTypeAll          = "all"
)

// CronJob é o contrato comum dos agendadores disparados manualmente
type CronJob interface {
	TriggerManualSync()
	GetStatus() map[string]any
}

// CronJobServices contém os agendadores que podem ser executados pela API
type CronJobServices struct {
	SessionSweepService CronJob
}

func (s CronJobServices) jobs() map[string]CronJob {
	jobs := map[string]CronJob{}
	if s.SessionSweepService != nil {
		jobs[CronJobTypeSessionSweep] = s.SessionSweepService
	}
	return jobs
}

// RunCronJob executa manualmente uma cron job. A permissão de administrador é
// conferida pelo middleware da rota.
func RunCronJob(services CronJobServices) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logrus.Info("INIT - RunCronJob")

		cronType := httprouter.ParamsFromContext(r.Context()).ByName("type")
		if cronType == "" {
			apiErrors.WriteError(w, apiErrors.ErrMissingRequiredData, "Tipo de cron job não especificado", nil)
			return
		}

		jobs := services.jobs()

		switch cronType {
		case CronJobTypeAll:
			for _, job := range jobs {
				job.TriggerManualSync()
			}
		default:
			job, ok := jobs[cronType]
			if !ok {
				apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "Tipo de cron job inválido. Valores aceitos: session-sweep, all", nil)
				return
			}
			job.TriggerManualSync()
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"message": "Cron job iniciada com sucesso",
			"type":    cronType,
		})
	}
}

// GetCronStatus retorna o status de uma cron job, ou de todas com o tipo "all"
func GetCronStatus(services CronJobServices) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logrus.Info("INIT - GetCronStatus")

		cronType := httprouter.ParamsFromContext(r.Context()).ByName("type")
		jobs := services.jobs()

		if cronType != CronJobTypeAll {
			job, ok := jobs[cronType]
			if !ok {
				apiErrors.WriteError(w, apiErrors.ErrInvalidRequest, "Tipo de cron job inválido. Valores aceitos: session-sweep, all", nil)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{cronType: job.GetStatus()})
			return
		}

		status := map[string]any{}
		for name, job := range jobs {
			status[name] = job.GetStatus()
		}

		writeJSON(w, http.StatusOK, status)
	}
}

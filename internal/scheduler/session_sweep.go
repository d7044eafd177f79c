// Package scheduler contém os serviços agendados da API
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/config"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/session"
)

type SessionSweepConfig struct {
	CronSchedule string
	SyncEnabled  bool
	IdleTTL      time.Duration
}

// SessionSweepService encerra periodicamente as sessões inativas, liberando
// os Datasets que elas mantêm em memória
type SessionSweepService struct {
	scheduler *gocron.Scheduler
	sessions  session.Manager
	config    SessionSweepConfig

	syncRunning          bool
	syncMutex            sync.Mutex
	lastSyncStartedAt    time.Time
	lastSyncCompletedAt  time.Time
	lastRemoved          int
	totalRemoved         int
	activeAfterLastSweep int
}

func NewSessionSweepService(sessions session.Manager, cfg config.Session) *SessionSweepService {
	sweepConfig := SessionSweepConfig{
		CronSchedule: cfg.SweepCron,    // Default: a cada 5 minutos
		SyncEnabled:  cfg.SweepEnabled, // Default: habilitado
		IdleTTL:      cfg.IdleTTL,
	}

	logrus.WithFields(logrus.Fields{
		"cron_schedule": sweepConfig.CronSchedule,
		"idle_ttl":      sweepConfig.IdleTTL.String(),
	}).Info("Configuração do agendador de limpeza de sessões carregada")

	return &SessionSweepService{
		scheduler: gocron.NewScheduler(time.Local),
		sessions:  sessions,
		config:    sweepConfig,
	}
}

func (s *SessionSweepService) Start(ctx context.Context) error {
	if !s.config.SyncEnabled {
		logrus.Info("Cron de limpeza de sessões desabilitada por configuração")
		return nil
	}

	logrus.WithField("cron", s.config.CronSchedule).Info("Iniciando cron de limpeza de sessões")

	_, err := s.scheduler.Cron(s.config.CronSchedule).Do(func() {
		s.SweepSessions()
	})
	if err != nil {
		return fmt.Errorf("erro ao agendar limpeza de sessões: %w", err)
	}

	// Executar o cron em uma goroutine separada
	s.scheduler.StartAsync()

	// Configurar o cancelamento do cron quando o contexto for cancelado
	go func() {
		<-ctx.Done()
		logrus.Info("Parando cron de limpeza de sessões")
		s.scheduler.Stop()
	}()

	return nil
}

// SweepSessions remove as sessões ociosas e retorna quantas foram encerradas
func (s *SessionSweepService) SweepSessions() int {
	s.syncMutex.Lock()
	if s.syncRunning {
		s.syncMutex.Unlock()
		logrus.Warn("Limpeza de sessões já está em execução")
		return 0
	}
	s.syncRunning = true
	s.lastSyncStartedAt = time.Now()
	s.syncMutex.Unlock()

	removed := s.sessions.Sweep()
	active := s.sessions.Len()

	s.syncMutex.Lock()
	s.syncRunning = false
	s.lastSyncCompletedAt = time.Now()
	s.lastRemoved = removed
	s.totalRemoved += removed
	s.activeAfterLastSweep = active
	s.syncMutex.Unlock()

	entry := logrus.WithFields(logrus.Fields{
		"removed": removed,
		"active":  active,
	})
	if removed > 0 {
		entry.Info("Sessões inativas encerradas")
	} else {
		entry.Debug("Nenhuma sessão inativa")
	}

	return removed
}

// TriggerManualSync inicia manualmente uma limpeza de sessões
func (s *SessionSweepService) TriggerManualSync() {
	s.syncMutex.Lock()
	if s.syncRunning {
		s.syncMutex.Unlock()
		logrus.Info("Limpeza de sessões já em andamento, ignorando solicitação manual")
		return
	}
	s.syncMutex.Unlock()

	logrus.Info("Iniciando limpeza manual de sessões")
	go s.SweepSessions()
}

// GetStatus retorna o status atual do agendador
func (s *SessionSweepService) GetStatus() map[string]any {
	s.syncMutex.Lock()
	defer s.syncMutex.Unlock()

	return map[string]any{
		"sync_enabled":           s.config.SyncEnabled,
		"sync_cron":              s.config.CronSchedule,
		"idle_ttl":               s.config.IdleTTL.String(),
		"running":                s.syncRunning,
		"last_sync_started_at":   s.lastSyncStartedAt,
		"last_sync_completed_at": s.lastSyncCompletedAt,
		"last_removed":           s.lastRemoved,
		"total_removed":          s.totalRemoved,
		"active_sessions":        s.activeAfterLastSweep,
	}
}

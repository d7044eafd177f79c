package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/config"
	"github.com/styloabhi/CRM-Analytics-Dashboard/internal/session/mocks"
	"go.uber.org/mock/gomock"
)

func sweepConfig(enabled bool, cron string) config.Session {
	return config.Session{
		IdleTTL:      30 * time.Minute,
		MaxActive:    10,
		SweepCron:    cron,
		SweepEnabled: enabled,
	}
}

func TestSessionSweepService_SweepSessions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSessions := mocks.NewMockManager(ctrl)
	service := NewSessionSweepService(mockSessions, sweepConfig(true, "*/5 * * * *"))

	tests := []struct {
		name      string
		removed   int
		active    int
		wantTotal int
	}{
		{name: "Duas sessões ociosas", removed: 2, active: 3, wantTotal: 2},
		{name: "Nenhuma sessão ociosa", removed: 0, active: 3, wantTotal: 2},
		{name: "Última sessão ociosa", removed: 3, active: 0, wantTotal: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSessions.EXPECT().Sweep().Return(tt.removed)
			mockSessions.EXPECT().Len().Return(tt.active)

			assert.Equal(t, tt.removed, service.SweepSessions())

			status := service.GetStatus()
			assert.Equal(t, tt.removed, status["last_removed"])
			assert.Equal(t, tt.wantTotal, status["total_removed"])
			assert.Equal(t, tt.active, status["active_sessions"])
			assert.Equal(t, false, status["running"])
			assert.False(t, status["last_sync_completed_at"].(time.Time).IsZero())
		})
	}
}

func TestSessionSweepService_SkipsWhenRunning(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// sem EXPECT: Sweep não pode ser chamado
	service := NewSessionSweepService(mocks.NewMockManager(ctrl), sweepConfig(true, "*/5 * * * *"))
	service.syncRunning = true

	assert.Equal(t, 0, service.SweepSessions())
	service.TriggerManualSync()
}

func TestSessionSweepService_TriggerManualSync(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSessions := mocks.NewMockManager(ctrl)
	service := NewSessionSweepService(mockSessions, sweepConfig(true, "*/5 * * * *"))

	done := make(chan struct{})
	mockSessions.EXPECT().Sweep().Return(1)
	mockSessions.EXPECT().Len().DoAndReturn(func() int {
		close(done)
		return 0
	})

	service.TriggerManualSync()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("limpeza manual não executou")
	}

	assert.Eventually(t, func() bool {
		return service.GetStatus()["total_removed"] == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSessionSweepService_Start(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t.Run("Desabilitado", func(t *testing.T) {
		service := NewSessionSweepService(mocks.NewMockManager(ctrl), sweepConfig(false, "cron inválido"))
		assert.NoError(t, service.Start(context.Background()))
		assert.Equal(t, false, service.GetStatus()["sync_enabled"])
	})

	t.Run("Cron inválido", func(t *testing.T) {
		service := NewSessionSweepService(mocks.NewMockManager(ctrl), sweepConfig(true, "cron inválido"))
		assert.Error(t, service.Start(context.Background()))
	})

	t.Run("Para quando o contexto é cancelado", func(t *testing.T) {
		service := NewSessionSweepService(mocks.NewMockManager(ctrl), sweepConfig(true, "0 3 * * *"))
		ctx, cancel := context.WithCancel(context.Background())

		require.NoError(t, service.Start(ctx))
		assert.True(t, service.scheduler.IsRunning())

		cancel()
		assert.Eventually(t, func() bool {
			return !service.scheduler.IsRunning()
		}, 2*time.Second, 10*time.Millisecond)
	})
}

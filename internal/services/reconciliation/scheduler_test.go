package reconciliation

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain"
	"github.com/dema501/magento-payment-module-EcorePay/test/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScheduler_RejectsBadSchedule(t *testing.T) {
	tests := []struct {
		name     string
		schedule string
	}{
		{name: "empty", schedule: ""},
		{name: "garbage", schedule: "every quarter hour"},
		{name: "six_fields", schedule: "0 */15 * * * *"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newScheduler(func(context.Context) SweepReport { return SweepReport{} }, tt.schedule, nil, mocks.NewMockLogger())
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrConfig))
		})
	}
}

func TestScheduler_NextAndStop(t *testing.T) {
	logger := mocks.NewMockLogger()
	s, err := newScheduler(func(context.Context) SweepReport { return SweepReport{} }, "*/15 * * * *", time.UTC, logger)
	require.NoError(t, err)

	s.Start()
	next := s.Next()
	assert.False(t, next.IsZero())
	assert.Zero(t, next.Minute()%15)

	_, ok := logger.Find("Reconciliation scheduler started")
	assert.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestScheduler_StopCancelsRunningSweep(t *testing.T) {
	started := make(chan struct{})
	var cancelled atomic.Bool

	s, err := newScheduler(func(ctx context.Context) SweepReport {
		close(started)
		<-ctx.Done()
		cancelled.Store(true)
		return SweepReport{}
	}, "*/15 * * * *", time.UTC, mocks.NewMockLogger())
	require.NoError(t, err)

	// Run the job the way cron would, without waiting for the schedule
	s.cron.Start()
	go s.cron.Entry(s.entry).WrappedJob.Run()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.Stop(ctx)

	assert.Eventually(t, cancelled.Load, time.Second, 5*time.Millisecond)
}

func TestCronLogger_Fields(t *testing.T) {
	logger := mocks.NewMockLogger()
	cl := cronLogger{logger: logger}

	cl.Info("wake", "now", "2026-01-01", "entry", 1)
	cl.Error(errors.New("panic"), "recovered", "job", "sweep")

	require.Len(t, logger.DebugCalls, 1)
	assert.Equal(t, "cron: wake", logger.DebugCalls[0].Message)
	assert.Equal(t, 1, logger.DebugCalls[0].Field("entry"))

	require.Len(t, logger.ErrorCalls, 1)
	assert.Equal(t, "sweep", logger.ErrorCalls[0].Field("job"))
	assert.EqualError(t, logger.ErrorCalls[0].Field("error").(error), "panic")
}

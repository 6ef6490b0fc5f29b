package reconciliation

import (
	"context"
	"fmt"
	"time"

	"github.com/dema501/magento-payment-module-EcorePay/internal/domain"
	"github.com/dema501/magento-payment-module-EcorePay/internal/domain/ports"
	"github.com/robfig/cron/v3"
)

// Scheduler runs the sweep on a cron schedule inside the process.
// A tick that fires while the previous sweep is still running is skipped.
type Scheduler struct {
	cron     *cron.Cron
	sweep    func(ctx context.Context) SweepReport
	logger   ports.Logger
	schedule string
	ctx      context.Context
	cancel   context.CancelFunc
	entry    cron.EntryID
}

// NewScheduler validates the standard 5-field schedule and prepares a
// scheduler. It does not start until Start is called.
func NewScheduler(engine *Engine, schedule string, location *time.Location, logger ports.Logger) (*Scheduler, error) {
	return newScheduler(engine.Cron, schedule, location, logger)
}

func newScheduler(sweep func(context.Context) SweepReport, schedule string, location *time.Location, logger ports.Logger) (*Scheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeConfigError, fmt.Sprintf("invalid reconcile schedule %q", schedule), err)
	}
	if location == nil {
		location = time.UTC
	}

	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(location),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		sweep:    sweep,
		logger:   logger,
		schedule: schedule,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	id, err := s.cron.AddFunc(schedule, s.run)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeConfigError, "schedule reconciliation sweep", err)
	}
	s.entry = id
	return s, nil
}

func (s *Scheduler) run() {
	s.sweep(s.ctx)
}

// Start begins firing the schedule
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("Reconciliation scheduler started",
		ports.String("schedule", s.schedule),
		ports.Any("next_run", s.Next()),
	)
}

// Next returns the next planned sweep, zero before Start
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Stop stops firing and waits for a running sweep to return. When ctx ends
// first the running sweep is cancelled between orders.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done.Done()
		return ctx.Err()
	}
}

// cronLogger feeds robfig/cron's key/value logging into ports.Logger
type cronLogger struct {
	logger ports.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(kvFields(keysAndValues), ports.Err(err))...)
}

func kvFields(keysAndValues []interface{}) []ports.Field {
	fields := make([]ports.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			key = fmt.Sprint(keysAndValues[i])
		}
		fields = append(fields, ports.Any(key, keysAndValues[i+1]))
	}
	return fields
}

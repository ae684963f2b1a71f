package history

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultPruneSchedule runs Prune once an hour.
const DefaultPruneSchedule = "@every 1h"

// Janitor prunes a Store on a cron schedule, so long-running processes drop
// entries that expire while they run.
type Janitor struct {
	cron   *cron.Cron
	store  *Store
	logger *zap.Logger
}

// NewJanitor schedules store.Prune. The schedule accepts standard cron
// expressions with an optional seconds field and descriptors such as
// "@every 30m". An empty schedule means DefaultPruneSchedule.
func NewJanitor(store *Store, schedule string, logger *zap.Logger) (*Janitor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if schedule == "" {
		schedule = DefaultPruneSchedule
	}

	parser := cron.NewParser(
		cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
	j := &Janitor{
		cron:   cron.New(cron.WithLogger(NewZapCronLogger(logger)), cron.WithParser(parser)),
		store:  store,
		logger: logger,
	}

	if _, err := j.cron.AddJob(schedule, j); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Run implements cron.Job.
func (j *Janitor) Run() {
	removed := j.store.Prune(context.Background())
	j.logger.Debug("Channel history pruned", zap.Int("removed", removed))
}

func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule and waits for a running prune to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// ZapCronLogger adapts a zap.Logger to implement the cron.Logger interface
type ZapCronLogger struct {
	logger *zap.Logger
}

func NewZapCronLogger(logger *zap.Logger) *ZapCronLogger {
	return &ZapCronLogger{logger: logger}
}

// Info logs cron's routine activity at debug level.
func (z *ZapCronLogger) Info(msg string, keysAndValues ...interface{}) {
	z.logger.Debug(msg, fields(keysAndValues)...)
}

func (z *ZapCronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	z.logger.Error(msg, append(fields(keysAndValues), zap.Error(err))...)
}

func fields(keysAndValues []interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(keysAndValues)/2+1)
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			out = append(out, zap.Any(key, keysAndValues[i+1]))
		}
	}
	return out
}

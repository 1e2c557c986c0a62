// Package schedule runs the periodic jobs of the worker.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	logger "github.com/sirupsen/logrus"
)

// DefaultSweepSpec runs the sweep every 30 seconds.
const DefaultSweepSpec = "*/30 * * * * *"

// Sweeper persists the Ended phase of collections whose timer has elapsed.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// ExpirySweeper runs a Sweeper on a cron schedule. A run still in progress
// causes the next tick to be skipped.
type ExpirySweeper struct {
	cron    *cron.Cron
	sweeper Sweeper
	timeout time.Duration
}

func NewExpirySweeper(sweeper Sweeper, spec string) (*ExpirySweeper, error) {
	if spec == "" {
		spec = DefaultSweepSpec
	}
	log := cronLogger{}
	s := &ExpirySweeper{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(log),
			cron.WithChain(cron.Recover(log), cron.SkipIfStillRunning(log)),
		),
		sweeper: sweeper,
		timeout: time.Minute,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("add sweep job %q: %w", spec, err)
	}
	return s, nil
}

func (s *ExpirySweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		logger.Errorf("> Expiry sweep failed: %v", err)
	}
}

// RunOnce performs a single sweep and returns how many collections ended.
func (s *ExpirySweeper) RunOnce(ctx context.Context) (int, error) {
	started := time.Now()
	ended, err := s.sweeper.SweepExpired(ctx)
	if err != nil {
		return ended, err
	}
	if ended > 0 {
		logger.WithFields(logger.Fields{
			"ended":    ended,
			"duration": time.Since(started).String(),
		}).Info("> Expired collections closed")
	}
	return ended, nil
}

func (s *ExpirySweeper) Start() {
	s.cron.Start()
}

// Stop halts the schedule and returns a context done once a running sweep finishes.
func (s *ExpirySweeper) Stop() context.Context {
	return s.cron.Stop()
}

// cronLogger routes cron's own logging to logrus.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.WithFields(fields(keysAndValues)).Debug(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(keysAndValues []interface{}) logger.Fields {
	f := make(logger.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}

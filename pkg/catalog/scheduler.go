package catalog

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Purger is anything holding cached state that can be dropped on a schedule.
type Purger interface {
	Purge()
}

// Scheduler purges caches on a cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler registers every purger under spec (standard five-field cron
// syntax or descriptors such as "@every 10m").
func NewScheduler(spec string, logger *slog.Logger, purgers ...Purger) (*Scheduler, error) {
	scheduler := &Scheduler{
		cron:   cron.New(),
		logger: logger.With("module", "catalog_scheduler"),
	}

	_, err := scheduler.cron.AddFunc(spec, func() {
		for _, purger := range purgers {
			purger.Purge()
		}

		scheduler.logger.Info("Purged caches", "count", len(purgers))
	})
	if err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", spec, err)
	}

	return scheduler, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running purge to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

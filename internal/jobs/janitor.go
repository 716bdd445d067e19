package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// runTimeout bounds a single purge
const runTimeout = time.Minute

// Purger deletes password reset tokens past their retention window
type Purger interface {
	PurgeStaleResets(ctx context.Context) (int64, error)
}

// Janitor periodically removes stale password reset tokens
type Janitor struct {
	purger Purger
	log    *logrus.Logger
	cron   *cron.Cron
}

func NewJanitor(purger Purger, log *logrus.Logger) *Janitor {
	return &Janitor{
		purger: purger,
		log:    log,
		cron: cron.New(
			cron.WithLogger(cron.PrintfLogger(log)),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log))),
		),
	}
}

// Start schedules the purge; schedule accepts cron specs and descriptors like @hourly
func (j *Janitor) Start(schedule string) error {
	if _, err := j.cron.AddFunc(schedule, j.Run); err != nil {
		return fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}
	j.cron.Start()
	j.log.Infof("Reset token janitor scheduled: %s", schedule)
	return nil
}

// Stop waits for a running purge to finish
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// Run performs a single purge
func (j *Janitor) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	n, err := j.purger.PurgeStaleResets(ctx)
	if err != nil {
		j.log.WithError(err).Error("Failed to purge password reset tokens")
		return
	}
	if n > 0 {
		j.log.Infof("Purged %d password reset tokens", n)
	}
}

package worker

// report_cron.go
// Keeps the monthly remission report cache warm on a cron schedule.

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Refresher recomputes a cached report.
type Refresher func(ctx context.Context) error

// ReportCron runs the refresher on schedule (standard 5-field cron).
type ReportCron struct {
	cron    *cron.Cron
	refresh Refresher
	timeout time.Duration
}

// NewReportCron validates the schedule and registers the job. Nothing runs
// until Start.
func NewReportCron(schedule string, loc *time.Location, refresh Refresher) (*ReportCron, error) {
	if loc == nil {
		loc = time.UTC
	}
	rc := &ReportCron{
		cron:    cron.New(cron.WithLocation(loc)),
		refresh: refresh,
		timeout: 2 * time.Minute,
	}
	if _, err := rc.cron.AddFunc(schedule, rc.run); err != nil {
		return nil, err
	}
	return rc, nil
}

// Start warms the cache once in the background and starts the schedule.
func (rc *ReportCron) Start() {
	log.Info().Msg("report_cron: started")
	go rc.run()
	rc.cron.Start()
}

// Stop stops the schedule and waits for a running refresh to finish.
func (rc *ReportCron) Stop() {
	<-rc.cron.Stop().Done()
	log.Info().Msg("report_cron: stopped")
}

func (rc *ReportCron) run() {
	ctx, cancel := context.WithTimeout(context.Background(), rc.timeout)
	defer cancel()
	start := time.Now()
	if err := rc.refresh(ctx); err != nil {
		log.Error().Err(err).Msg("report_cron: refresh failed")
		return
	}
	log.Info().Dur("took", time.Since(start)).Msg("report_cron: monthly report refreshed")
}

package cluster

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// RefreshFunc recomputes the cluster snapshot and stores it in the cache.
type RefreshFunc func(ctx context.Context) error

// Refresher periodically rebuilds the cached cluster snapshot so map clients
// read a recent precomputed view instead of triggering the O(n^2) pass on
// every request. Refresh failures are logged and retried on the next tick.
type Refresher struct {
	cron    *cron.Cron
	spec    string
	refresh RefreshFunc
	logger  *logrus.Logger
}

func NewRefresher(spec string, refresh RefreshFunc, logger *logrus.Logger) *Refresher {
	return &Refresher{
		cron:    cron.New(),
		spec:    spec,
		refresh: refresh,
		logger:  logger,
	}
}

// Start schedules the refresh job and runs one refresh immediately so the
// cache is warm before the first tick.
func (r *Refresher) Start(ctx context.Context) error {
	_, err := r.cron.AddFunc(r.spec, func() {
		if err := r.refresh(ctx); err != nil {
			r.logger.WithError(err).Error("Cluster snapshot refresh failed")
		}
	})
	if err != nil {
		return err
	}

	if err := r.refresh(ctx); err != nil {
		r.logger.WithError(err).Warn("Initial cluster snapshot refresh failed")
	}

	r.cron.Start()
	r.logger.WithField("schedule", r.spec).Info("Cluster refresher started")
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish.
func (r *Refresher) Stop() {
	stopCtx := r.cron.Stop()
	<-stopCtx.Done()
	r.logger.Info("Cluster refresher stopped")
}

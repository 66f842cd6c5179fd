// Package workers runs the periodic maintenance jobs behind cmd/worker.
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"checkops/internal/engine/accounts"
	"checkops/internal/engine/billing"
)

const (
	eventRetryStaleAfter  = time.Minute
	eventRetryMaxAttempts = 5
	eventRetryBatch       = 50
)

// Job is one periodic task. Run is called once at start and then on every
// tick until the context is cancelled.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// RetryBillingEvents re-applies provider events whose processing failed.
func RetryBillingEvents(svc *billing.Service) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		n, err := svc.RetryFailedEvents(ctx, eventRetryStaleAfter, eventRetryMaxAttempts, eventRetryBatch)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Info().Int("count", n).Msg("Worker: retried billing events")
		}
		return nil
	}
}

// ExpireSubscriptions moves ACTIVE subscriptions past their end to EXPIRED.
func ExpireSubscriptions(svc *billing.Service) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		n, err := svc.ExpireSubscriptions(ctx, time.Now())
		if err != nil {
			return err
		}
		if n > 0 {
			log.Info().Int("count", n).Msg("Worker: expired subscriptions")
		}
		return nil
	}
}

// PurgeResetTokens deletes used and expired password reset tokens.
func PurgeResetTokens(svc *accounts.Service) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		n, err := svc.PurgeResetTokens(ctx, time.Now())
		if err != nil {
			return err
		}
		if n > 0 {
			log.Info().Int64("count", n).Msg("Worker: purged reset tokens")
		}
		return nil
	}
}

// Run starts every job on its own ticker and blocks until ctx is done and
// all in-flight runs have returned.
func Run(ctx context.Context, jobs []Job) {
	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			loop(ctx, job)
		}(job)
	}
	wg.Wait()
}

func loop(ctx context.Context, job Job) {
	interval := job.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := job.Run(ctx); err != nil {
			log.Error().Err(err).Str("job", job.Name).Msg("Worker job failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

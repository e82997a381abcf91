// Package retry wraps single upstream fetches with error classification and
// exponential backoff.
package retry

import (
	"context"
	"errors"
	"time"
	"royale-tracker/internal/api"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

type Controller struct {
	maxRetries  uint64
	baseBackoff time.Duration
	logger      zerolog.Logger
}

func NewController(maxRetries int, baseBackoff time.Duration, logger zerolog.Logger) *Controller {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Controller{
		maxRetries:  uint64(maxRetries),
		baseBackoff: baseBackoff,
		logger:      logger,
	}
}

// Do runs fn, retrying transient upstream failures (429/5xx/network) with
// exponential backoff up to the attempt budget. Permanent per-item errors
// (403/404) and the maintenance sentinel fail immediately; the maintenance
// error is returned as-is so the caller can abort the whole cycle.
func (c *Controller) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.baseBackoff))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}

		if errors.Is(err, api.ErrMaintenance) {
			c.logger.Warn().Str("op", name).Msg("upstream in maintenance, aborting cycle")
			return err
		}

		if api.IsTransient(err) {
			attempt++
			c.logger.Warn().
				Err(err).
				Str("op", name).
				Int("attempt", attempt).
				Msg("transient upstream error, retrying")
			return retry.RetryableError(err)
		}

		if api.IsPermanent(err) {
			c.logger.Warn().Err(err).Str("op", name).Msg("permanent upstream error, skipping")
			return err
		}

		c.logger.Error().Err(err).Str("op", name).Msg("unclassified error, skipping")
		return err
	})

	return err
}

package retry

import (
	"context"
	"errors"
	"testing"
	"time"
	"royale-tracker/internal/api"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testController(maxRetries int) *Controller {
	return NewController(maxRetries, time.Millisecond, zerolog.Nop())
}

func TestDoRetriesTransientUntilSuccess(t *testing.T) {
	calls := 0
	err := testController(5).Do(context.Background(), "fetch", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &api.StatusError{StatusCode: 503}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsTransientBudget(t *testing.T) {
	calls := 0
	upstream := &api.StatusError{StatusCode: 429}
	err := testController(2).Do(context.Background(), "fetch", func(ctx context.Context) error {
		calls++
		return upstream
	})

	require.Error(t, err)
	var se *api.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 429, se.StatusCode)
	// initial attempt plus two retries
	assert.Equal(t, 3, calls)
}

func TestDoPermanentFailsImmediately(t *testing.T) {
	calls := 0
	err := testController(5).Do(context.Background(), "fetch", func(ctx context.Context) error {
		calls++
		return &api.StatusError{StatusCode: 404}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoMaintenancePropagatesWithoutRetry(t *testing.T) {
	calls := 0
	err := testController(5).Do(context.Background(), "fetch", func(ctx context.Context) error {
		calls++
		return api.ErrMaintenance
	})

	require.ErrorIs(t, err, api.ErrMaintenance)
	assert.Equal(t, 1, calls)
}

func TestDoUnclassifiedFailsImmediately(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := testController(5).Do(context.Background(), "fetch", func(ctx context.Context) error {
		calls++
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestDoNetworkErrorsAreTransient(t *testing.T) {
	calls := 0
	err := testController(5).Do(context.Background(), "fetch", func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return &api.NetworkError{Err: errors.New("connection reset")}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

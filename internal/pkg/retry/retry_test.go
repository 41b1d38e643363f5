package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	pkghttp "github.com/futig/context-rag/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() *RetryConfig {
	return &RetryConfig{Attempts: 3, Delay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestDefaultRetryConfig(t *testing.T) {
	rc := DefaultRetryConfig()
	assert.Equal(t, uint(3), rc.Attempts)
	assert.Less(t, rc.Delay, rc.MaxDelay)
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), IsRetryableHTTP, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &pkghttp.HTTPError{StatusCode: 503, Message: "busy"}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), IsRetryableHTTP, func(ctx context.Context) error {
		calls++
		return &pkghttp.HTTPError{StatusCode: 400, Message: "bad"}
	})

	var httpErr *pkghttp.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, 400, httpErr.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestIsRetryableHTTP(t *testing.T) {
	assert.True(t, IsRetryableHTTP(&pkghttp.NetworkError{Err: errors.New("reset")}))
	assert.True(t, IsRetryableHTTP(&pkghttp.HTTPError{StatusCode: 429}))
	assert.True(t, IsRetryableHTTP(&pkghttp.HTTPError{StatusCode: 502}))
	assert.False(t, IsRetryableHTTP(&pkghttp.HTTPError{StatusCode: 404}))
	assert.False(t, IsRetryableHTTP(context.Canceled))
	assert.False(t, IsRetryableHTTP(nil))
}

func TestDoNilPredicateRetriesEverything(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), nil, func(ctx context.Context) error {
		calls++
		return errors.New("connection refused")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

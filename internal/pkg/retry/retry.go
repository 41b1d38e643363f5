package retry

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
	pkghttp "github.com/futig/context-rag/pkg/http"
)

const (
	defaultAttempts = 3
	defaultMaxDelay = 2 * time.Second
	defaultDelay    = 100 * time.Millisecond
)

type RetryConfig struct {
	Attempts uint          `env:"ATTEMPTS" envDefault:"3"`
	Delay    time.Duration `env:"DELAY" envDefault:"100ms"`
	MaxDelay time.Duration `env:"MAX_DELAY" envDefault:"2s"`
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"20s"`
}

func (rc *RetryConfig) ToRetryOptions() []retry.Option {
	return []retry.Option{
		retry.Attempts(rc.Attempts),
		retry.MaxDelay(rc.MaxDelay),
		retry.Delay(rc.Delay),
	}
}

func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		Attempts: defaultAttempts,
		Delay:    defaultDelay,
		MaxDelay: defaultMaxDelay,
	}
}

// Do runs fn until it succeeds, the attempts are exhausted or ctx is done.
// Only errors accepted by isRetryable are retried (all of them when it is nil);
// the last error is returned.
func Do(ctx context.Context, rc *RetryConfig, isRetryable func(error) bool, fn func(ctx context.Context) error) error {
	if rc == nil {
		rc = DefaultRetryConfig()
	}
	if isRetryable == nil {
		isRetryable = func(error) bool { return true }
	}

	if rc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rc.Timeout)
		defer cancel()
	}

	opts := append(rc.ToRetryOptions(),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
	)

	return retry.Do(func() error { return fn(ctx) }, opts...)
}

// IsRetryableHTTP reports whether err is a transient transport or server failure
func IsRetryableHTTP(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr *pkghttp.NetworkError
	if errors.As(err, &netErr) {
		return true
	}

	var httpErr *pkghttp.HTTPError
	if errors.As(err, &httpErr) {
		return IsRetryableStatus(httpErr.StatusCode)
	}

	return false
}

// IsRetryableStatus treats rate limiting and server errors as transient
func IsRetryableStatus(status int) bool {
	return status == 429 || status >= 500
}

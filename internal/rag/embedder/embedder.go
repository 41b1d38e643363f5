// Package embedder turns text into vectors through an external backend and
// degrades to a deterministic hash embedding when the backend cannot answer.
package embedder

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/futig/context-rag/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	DefaultMaxInputChars = 8000
	DefaultTimeout       = 10 * time.Second
)

// Backend is an external embedding service
type Backend interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

type Config struct {
	MaxInputChars int
	// Timeout bounds a single backend call
	Timeout time.Duration
	// Fallback enables the hash embedding when the backend fails
	Fallback  bool
	CacheSize int
	// RateLimit is backend calls per second, zero disables limiting
	RateLimit float64
	RateBurst int
	Breaker   BreakerConfig
}

func DefaultConfig() Config {
	return Config{
		MaxInputChars: DefaultMaxInputChars,
		Timeout:       DefaultTimeout,
		Fallback:      true,
		CacheSize:     1024,
		Breaker: BreakerConfig{
			MaxRequests:      1,
			Interval:         30 * time.Second,
			Timeout:          30 * time.Second,
			FailureThreshold: 5,
		},
	}
}

type Embedder struct {
	backend  Backend
	cfg      Config
	breaker  *gobreaker.CircuitBreaker
	cache    *lru.Cache[string, []float32]
	limiter  *rate.Limiter
	degraded atomic.Int64
}

// New wraps backend. A nil backend makes every call use the hash embedding.
func New(backend Backend, cfg Config, logger *zap.Logger) (*Embedder, error) {
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = DefaultMaxInputChars
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if backend == nil && !cfg.Fallback {
		return nil, errors.New("embedder needs a backend or the fallback")
	}

	e := &Embedder{
		backend: backend,
		cfg:     cfg,
	}

	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, []float32](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("create embedding cache: %w", err)
		}
		e.cache = cache
	}

	if cfg.RateLimit > 0 {
		burst := max(cfg.RateBurst, 1)
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	threshold := cfg.Breaker.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	e.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "embedding-backend",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warn("embedding circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			}
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return e, nil
}

// Embed returns the backend vector for text, truncated to the input budget.
// When the backend fails and the fallback is enabled the hash embedding is
// returned instead and no error is reported. A done ctx is always an error.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = truncate(text, e.cfg.MaxInputChars)

	if e.backend == nil {
		return Fallback(text), nil
	}

	if e.cache != nil {
		if vec, ok := e.cache.Get(text); ok {
			return slices.Clone(vec), nil
		}
	}

	vec, err := e.callBackend(ctx, text)
	if err == nil {
		if e.cache != nil {
			e.cache.Add(text, slices.Clone(vec))
		}
		return vec, nil
	}

	// the caller gave up, a fallback vector would be stored as if it were real
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("embed: %w", ctxErr)
	}

	if !e.cfg.Fallback {
		return nil, fmt.Errorf("%w: %w", entity.ErrEmbeddingUnavailable, err)
	}

	e.degraded.Add(1)
	ctxzap.Warn(ctx, "embedding degraded to hash fallback",
		zap.Int("text_length", len(text)),
		zap.Error(err),
	)

	return Fallback(text), nil
}

// Degraded reports how many calls were answered by the fallback after a backend failure
func (e *Embedder) Degraded() int64 {
	return e.degraded.Load()
}

func (e *Embedder) callBackend(ctx context.Context, text string) ([]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for rate limiter: %w", err)
		}
	}

	res, err := e.breaker.Execute(func() (any, error) {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()

		vec, err := e.backend.Embed(callCtx, text)
		if err != nil {
			return nil, err
		}
		if len(vec) == 0 {
			return nil, errors.New("backend returned an empty embedding")
		}
		return vec, nil
	})
	if err != nil {
		return nil, err
	}

	return res.([]float32), nil
}

func truncate(text string, limit int) string {
	n := 0
	for i := range text {
		if n == limit {
			return text[:i]
		}
		n++
	}
	return text
}

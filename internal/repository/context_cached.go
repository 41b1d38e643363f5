package repository

import (
	"context"
	"errors"
	"time"

	"github.com/futig/context-rag/internal/entity"
	"github.com/patrickmn/go-cache"
)

var _ ContextRepository = &ContextCached{}

// ContextCached serves Get from a TTL cache in front of another repository.
// Misses are cached too, so unknown ids do not hit the database on every query.
type ContextCached struct {
	next  ContextRepository
	cache *cache.Cache
}

type cachedEntry struct {
	context *entity.Context
	missing bool
}

func NewContextCached(next ContextRepository, ttl time.Duration) *ContextCached {
	return &ContextCached{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}
}

func (r *ContextCached) Get(ctx context.Context, id entity.ContextID) (*entity.Context, error) {
	key := memoryKey(id)
	if v, ok := r.cache.Get(key); ok {
		entry := v.(cachedEntry)
		if entry.missing {
			return nil, entity.ErrContextNotFound
		}
		c := *entry.context
		return &c, nil
	}

	c, err := r.next.Get(ctx, id)
	if errors.Is(err, entity.ErrContextNotFound) {
		r.cache.SetDefault(key, cachedEntry{missing: true})
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	r.cache.SetDefault(key, cachedEntry{context: c})

	out := *c
	return &out, nil
}

func (r *ContextCached) Save(ctx context.Context, c entity.Context) (*entity.Context, error) {
	saved, err := r.next.Save(ctx, c)
	if err != nil {
		return nil, err
	}

	r.cache.Delete(memoryKey(saved.ID))
	return saved, nil
}

func (r *ContextCached) List(ctx context.Context) ([]*entity.Context, error) {
	return r.next.List(ctx)
}

func (r *ContextCached) Delete(ctx context.Context, id entity.ContextID) error {
	r.cache.Delete(memoryKey(id))
	return r.next.Delete(ctx, id)
}

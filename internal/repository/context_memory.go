package repository

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"sync"

	"github.com/futig/context-rag/internal/entity"
	"github.com/patrickmn/go-cache"
	"gopkg.in/yaml.v3"
)

var _ ContextRepository = &ContextMemory{}

// ContextMemory keeps the context registry in process memory
type ContextMemory struct {
	mu     sync.Mutex
	items  *cache.Cache
	nextID int64
}

func NewContextMemory(seed ...entity.Context) *ContextMemory {
	r := &ContextMemory{
		items: cache.New(cache.NoExpiration, 0),
	}

	for _, c := range seed {
		r.put(c)
	}

	return r
}

func (r *ContextMemory) Get(_ context.Context, id entity.ContextID) (*entity.Context, error) {
	v, ok := r.items.Get(memoryKey(id))
	if !ok {
		return nil, entity.ErrContextNotFound
	}

	c := v.(entity.Context)
	return &c, nil
}

// Save assigns the next free id when c.ID is zero
func (r *ContextMemory) Save(_ context.Context, c entity.Context) (*entity.Context, error) {
	if c.ID < 0 {
		return nil, entity.ErrInvalidContext
	}

	saved := r.put(c)
	return &saved, nil
}

func (r *ContextMemory) List(_ context.Context) ([]*entity.Context, error) {
	items := r.items.Items()

	contexts := make([]*entity.Context, 0, len(items))
	for _, item := range items {
		c := item.Object.(entity.Context)
		contexts = append(contexts, &c)
	}

	slices.SortFunc(contexts, func(a, b *entity.Context) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return contexts, nil
}

func (r *ContextMemory) Delete(_ context.Context, id entity.ContextID) error {
	key := memoryKey(id)
	if _, ok := r.items.Get(key); !ok {
		return entity.ErrContextNotFound
	}

	r.items.Delete(key)
	return nil
}

func (r *ContextMemory) put(c entity.Context) entity.Context {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID == 0 {
		r.nextID++
		c.ID = entity.ContextID(r.nextID)
	} else if int64(c.ID) > r.nextID {
		r.nextID = int64(c.ID)
	}

	r.items.Set(memoryKey(c.ID), c, cache.NoExpiration)
	return c
}

func memoryKey(id entity.ContextID) string {
	return strconv.FormatInt(int64(id), 10)
}

type contextsFile struct {
	Contexts []struct {
		ID            int64  `yaml:"id"`
		Name          string `yaml:"name"`
		Description   string `yaml:"description"`
		SharePointURL string `yaml:"sharepoint_url"`
	} `yaml:"contexts"`
}

// LoadContextsFile reads registry seed entries from a YAML file
func LoadContextsFile(path string) ([]entity.Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read contexts file: %w", err)
	}

	var file contextsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse contexts file: %w", err)
	}

	contexts := make([]entity.Context, 0, len(file.Contexts))
	for i, c := range file.Contexts {
		if c.ID <= 0 {
			return nil, fmt.Errorf("%w: contexts[%d] id must be positive", entity.ErrInvalidFormat, i)
		}
		if c.Name == "" {
			return nil, fmt.Errorf("%w: contexts[%d] name", entity.ErrMissingField, i)
		}

		contexts = append(contexts, entity.Context{
			ID:            entity.ContextID(c.ID),
			Name:          c.Name,
			Description:   c.Description,
			SharePointURL: c.SharePointURL,
		})
	}

	return contexts, nil
}

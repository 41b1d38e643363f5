package repository

import (
	"context"

	"github.com/futig/context-rag/internal/entity"
)

// ContextRepository defines the interface for context registry persistence
type ContextRepository interface {
	Get(ctx context.Context, id entity.ContextID) (*entity.Context, error)
	Save(ctx context.Context, c entity.Context) (*entity.Context, error)
	List(ctx context.Context) ([]*entity.Context, error)
	Delete(ctx context.Context, id entity.ContextID) error
}

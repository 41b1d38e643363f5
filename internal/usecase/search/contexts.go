package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/futig/context-rag/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// CreateContext registers a new context and returns it with its assigned id
func (uc *SearchUsecase) CreateContext(ctx context.Context, req *entity.CreateContextRequest) (*entity.Context, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name", entity.ErrMissingField)
	}

	saved, err := uc.contextRepo.Save(ctx, entity.Context{
		Name:          name,
		Description:   strings.TrimSpace(req.Description),
		SharePointURL: strings.TrimSpace(req.SharePointURL),
	})
	if err != nil {
		return nil, fmt.Errorf("save context: %w", err)
	}

	ctxzap.Info(ctx, "context created",
		zap.Int64("context_id", int64(saved.ID)),
		zap.String("name", saved.Name),
	)

	return saved, nil
}

func (uc *SearchUsecase) GetContext(ctx context.Context, contextID entity.ContextID) (*entity.Context, error) {
	c, err := uc.contextRepo.Get(ctx, contextID)
	if err != nil {
		return nil, fmt.Errorf("get context: %w", err)
	}

	return c, nil
}

func (uc *SearchUsecase) ListContexts(ctx context.Context) ([]*entity.Context, error) {
	contexts, err := uc.contextRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list contexts: %w", err)
	}

	return contexts, nil
}

// DeleteContext removes the context from the registry and destroys its index
func (uc *SearchUsecase) DeleteContext(ctx context.Context, contextID entity.ContextID) error {
	if err := uc.contextRepo.Delete(ctx, contextID); err != nil {
		return fmt.Errorf("delete context: %w", err)
	}

	before := uc.index.DocumentCount(contextID)
	uc.index.ClearContext(contextID)

	ctxzap.Info(ctx, "context deleted",
		zap.Int64("context_id", int64(contextID)),
		zap.Int("documents_removed", before),
	)

	return nil
}

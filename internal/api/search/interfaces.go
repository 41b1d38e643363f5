package search

import (
	"context"

	"github.com/futig/context-rag/internal/entity"
)

type SearchUsecase interface {
	Search(ctx context.Context, query string, contextID entity.ContextID) (*entity.Answer, error)
	AddDocuments(ctx context.Context, req *entity.AddDocumentsRequest) ([]entity.IngestResult, error)
	ClearContext(ctx context.Context, contextID entity.ContextID) error
	DocumentCount(ctx context.Context, contextID entity.ContextID) int
	Suggestions(ctx context.Context, contextID entity.ContextID, query, answer string) ([]string, error)

	CreateContext(ctx context.Context, req *entity.CreateContextRequest) (*entity.Context, error)
	GetContext(ctx context.Context, contextID entity.ContextID) (*entity.Context, error)
	ListContexts(ctx context.Context) ([]*entity.Context, error)
	DeleteContext(ctx context.Context, contextID entity.ContextID) error
}

type UploadValidator interface {
	ValidateAddDocuments(req *entity.AddDocumentsRequest) error
}

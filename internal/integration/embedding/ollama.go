package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/futig/context-rag/internal/config"
	"github.com/futig/context-rag/internal/entity"
	"github.com/futig/context-rag/internal/integration/common"
	pkgRetry "github.com/futig/context-rag/internal/pkg/retry"
	pkghttp "github.com/futig/context-rag/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// OllamaConnector calls the Ollama embeddings API
type OllamaConnector struct {
	config    config.EmbeddingConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewOllamaConnector(
	cfg config.EmbeddingConfig,
	logger *zap.Logger,
) *OllamaConnector {
	return &OllamaConnector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger),
		config:    cfg,
		logger:    logger,
	}
}

// Embed POSTs {model, prompt} to the embeddings endpoint
func (c *OllamaConnector) Embed(ctx context.Context, text string) ([]float32, error) {
	req := &entity.OllamaEmbeddingRequest{
		Model:  c.config.Model,
		Prompt: text,
	}

	var resp entity.OllamaEmbeddingResponse
	err := pkgRetry.Do(ctx, &c.config.Retry, pkgRetry.IsRetryableHTTP, func(ctx context.Context) error {
		return c.connector.DoRequest(ctx, http.MethodPost, c.config.Endpoint, req, &resp)
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embeddings: %w", err)
	}

	if len(resp.Embedding) == 0 {
		return nil, errors.New("ollama embeddings: empty embedding in response")
	}

	ctxzap.Debug(ctx, "embedding received", zap.Int("dimensions", len(resp.Embedding)))

	return resp.Embedding, nil
}

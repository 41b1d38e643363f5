package embedding

import (
	"context"
	"errors"
	"fmt"

	"github.com/futig/context-rag/internal/config"
	"github.com/futig/context-rag/internal/integration/common"
	pkgRetry "github.com/futig/context-rag/internal/pkg/retry"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIConnector calls an OpenAI compatible embeddings API
type OpenAIConnector struct {
	config config.EmbeddingConfig
	client *openai.Client
	logger *zap.Logger
}

func NewOpenAIConnector(
	cfg config.EmbeddingConfig,
	logger *zap.Logger,
) *OpenAIConnector {
	return &OpenAIConnector{
		client: common.NewOpenAIClient(cfg.HTTPClientConfig),
		config: cfg,
		logger: logger,
	}
}

func (c *OpenAIConnector) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp openai.EmbeddingResponse
	err := pkgRetry.Do(ctx, &c.config.Retry, common.IsRetryableOpenAI, func(ctx context.Context) error {
		var err error
		resp, err = c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(c.config.Model),
			Input: []string{text},
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("openai embeddings: no embedding data returned")
	}

	ctxzap.Debug(ctx, "embedding received",
		zap.Int("dimensions", len(resp.Data[0].Embedding)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
	)

	return resp.Data[0].Embedding, nil
}

package llm

import (
	"context"
	"fmt"

	"github.com/futig/context-rag/internal/config"
	"github.com/futig/context-rag/internal/entity"
	"github.com/futig/context-rag/internal/integration/common"
	pkgRetry "github.com/futig/context-rag/internal/pkg/retry"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Connector talks to an OpenAI compatible chat completions API
type Connector struct {
	config config.LLMConfig
	client *openai.Client
	logger *zap.Logger
}

func NewConnector(
	cfg config.LLMConfig,
	logger *zap.Logger,
) *Connector {
	return &Connector{
		client: common.NewOpenAIClient(cfg.HTTPClientConfig),
		config: cfg,
		logger: logger,
	}
}

// Complete returns the first choice content, or "" when the API returned no choices
func (c *Connector) Complete(ctx context.Context, req entity.GenerationRequest) (string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	ctxzap.Info(ctx, "requesting chat completion",
		zap.String("model", chatReq.Model),
		zap.Int("max_tokens", chatReq.MaxTokens),
	)

	var resp openai.ChatCompletionResponse
	err := pkgRetry.Do(ctx, &c.config.Retry, common.IsRetryableOpenAI, func(ctx context.Context) error {
		var err error
		resp, err = c.client.CreateChatCompletion(ctx, chatReq)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		ctxzap.Warn(ctx, "chat completion returned no choices")
		return "", nil
	}

	ctxzap.Info(ctx, "chat completion received",
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
	)

	return resp.Choices[0].Message.Content, nil
}

package common

import (
	"context"
	"errors"
	"net"

	"github.com/futig/context-rag/internal/config"
	pkgRetry "github.com/futig/context-rag/internal/pkg/retry"
	openai "github.com/sashabaranov/go-openai"
)

// NewOpenAIClient points the SDK at cfg.Url (when set) using the shared HTTP stack
func NewOpenAIClient(cfg config.HTTPClientConfig) *openai.Client {
	oc := openai.DefaultConfig(cfg.Token)
	if cfg.Url != "" {
		oc.BaseURL = cfg.Url
	}
	oc.HTTPClient = NewHTTPClient(cfg)

	return openai.NewClientWithConfig(oc)
}

// IsRetryableOpenAI retries rate limits, server errors and transport failures
func IsRetryableOpenAI(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return pkgRetry.IsRetryableStatus(apiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return pkgRetry.IsRetryableStatus(reqErr.HTTPStatusCode)
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

package llm

import (
	"context"
	"fmt"

	"github.com/futig/context-rag/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockConnector - мок-реализация LLM коннектора для тестирования
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

func (m *MockConnector) Complete(ctx context.Context, req entity.GenerationRequest) (string, error) {
	ctxzap.Info(ctx, "[MOCK] chat completion", zap.Bool("json", req.JSON))

	if req.JSON {
		return `{"suggestions": ["What else does the document cover?", "Can you give more detail?", "Where is this described?"]}`, nil
	}

	return fmt.Sprintf("[MOCK] Answer generated from %d characters of document content.", len(req.UserPrompt)), nil
}

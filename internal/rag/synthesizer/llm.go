package synthesizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/futig/context-rag/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	SystemPrompt = "You are a helpful assistant for document question answering. " +
		"Answer only from the provided document content. Keep responses brief and specific."

	suggestionSystemPrompt = "You generate relevant follow-up questions based on previous conversation context."

	suggestionCount = 3
)

// Generator is an external text generation backend
type Generator interface {
	Complete(ctx context.Context, req entity.GenerationRequest) (string, error)
}

type Config struct {
	MaxContextChars     int
	MaxTokens           int
	Temperature         float32
	SuggestionMaxTokens int
}

func DefaultConfig() Config {
	return Config{
		MaxContextChars:     DefaultMaxContextChars,
		MaxTokens:           150,
		Temperature:         0.1,
		SuggestionMaxTokens: 200,
	}
}

// LLM answers through a generation backend using the ranked chunks as context
type LLM struct {
	generator Generator
	cfg       Config
}

func NewLLM(generator Generator, cfg Config) *LLM {
	return &LLM{
		generator: generator,
		cfg:       cfg,
	}
}

// Generate never calls the backend for an empty result set. Backend
// failures are returned as *entity.GenerationError.
func (s *LLM) Generate(ctx context.Context, query string, results []entity.SearchResult) (string, error) {
	if len(results) == 0 {
		return NoRelevantInfoMessage, nil
	}

	docContext := BuildContext(results, s.cfg.MaxContextChars)

	ctxzap.Debug(ctx, "generating answer",
		zap.Int("chunks", len(results)),
		zap.Int("context_length", len(docContext)),
	)

	text, err := s.generator.Complete(ctx, entity.GenerationRequest{
		SystemPrompt: SystemPrompt,
		UserPrompt:   fmt.Sprintf("Based on this document content, answer briefly:\n\n%s\n\nQuestion: %s", docContext, query),
		MaxTokens:    s.cfg.MaxTokens,
		Temperature:  s.cfg.Temperature,
	})
	if err != nil {
		return "", &entity.GenerationError{Err: err}
	}

	if text = strings.TrimSpace(text); text == "" {
		return NoResponseMessage, nil
	}

	return text, nil
}

// Suggest asks for follow-up questions. Any failure yields no suggestions.
func (s *LLM) Suggest(ctx context.Context, query, answer string) ([]string, error) {
	prompt := fmt.Sprintf("Based on the following question and answer, suggest %d relevant follow-up questions that the user might want to ask next.\n"+
		"Return ONLY a JSON object of the form {\"suggestions\": [\"...\"]}. Do not include any explanations or other text.\n\n"+
		"Original Question: %s\n\nAnswer: %s", suggestionCount, query, answer)

	text, err := s.generator.Complete(ctx, entity.GenerationRequest{
		SystemPrompt: suggestionSystemPrompt,
		UserPrompt:   prompt,
		MaxTokens:    s.cfg.SuggestionMaxTokens,
		Temperature:  0.7,
		JSON:         true,
	})
	if err != nil {
		ctxzap.Warn(ctx, "failed to generate suggestions", zap.Error(err))
		return nil, nil
	}

	suggestions, err := parseSuggestions(text)
	if err != nil {
		ctxzap.Warn(ctx, "failed to parse suggestions", zap.Error(err))
		return nil, nil
	}

	return suggestions, nil
}

// parseSuggestions accepts {"suggestions": [...]} or a bare JSON array
func parseSuggestions(text string) ([]string, error) {
	text = strings.TrimSpace(text)

	var list []string
	if strings.HasPrefix(text, "[") {
		if err := json.Unmarshal([]byte(text), &list); err != nil {
			return nil, err
		}
	} else {
		var obj struct {
			Suggestions []string `json:"suggestions"`
		}
		if err := json.Unmarshal([]byte(text), &obj); err != nil {
			return nil, err
		}
		list = obj.Suggestions
	}

	out := make([]string, 0, len(list))
	for _, q := range list {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	if len(out) > suggestionCount {
		out = out[:suggestionCount]
	}

	return out, nil
}

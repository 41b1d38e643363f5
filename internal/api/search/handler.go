package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/futig/context-rag/internal/config"
	"github.com/futig/context-rag/internal/entity"
	"github.com/futig/context-rag/internal/pkg/logger"
	"github.com/futig/context-rag/internal/pkg/response"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	maxJSONBodySize = 1 << 20

	generationFailedMessage = "Error processing your query. Please try again."
)

type Handler struct {
	usecase   SearchUsecase
	cfg       config.FileUploadConfig
	validator UploadValidator
}

func NewHandler(
	usecase SearchUsecase,
	cfg config.FileUploadConfig,
	validator UploadValidator,
) *Handler {
	return &Handler{
		usecase:   usecase,
		cfg:       cfg,
		validator: validator,
	}
}

// Search handles POST /contexts/{context_id}/search
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx, contextID, ok := h.contextFromPath(w, r, "Search")
	if !ok {
		return
	}

	var req entity.SearchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	answer, err := h.usecase.Search(ctx, req.Query, contextID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "query answered",
		zap.String("query_id", answer.QueryID),
		zap.String("path", string(answer.Path)),
		zap.Int("source_count", len(answer.Sources)),
	)

	response.Success(w, toSearchResponse(answer))
}

// AddDocuments handles POST /contexts/{context_id}/documents
func (h *Handler) AddDocuments(w http.ResponseWriter, r *http.Request) {
	ctx, contextID, ok := h.contextFromPath(w, r, "AddDocuments")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadSize)
	if err := r.ParseMultipartForm(h.cfg.MaxUploadSize); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid form data or size too large", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	req := entity.AddDocumentsRequest{
		ContextID: contextID,
		Files:     r.MultipartForm.File["files"],
	}

	if len(req.Files) == 0 {
		h.respondError(ctx, w, http.StatusBadRequest, "at least one file is required", nil)
		return
	}

	if err := h.validator.ValidateAddDocuments(&req); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	ctxzap.Info(ctx, "adding documents", zap.Int("file_count", len(req.Files)))

	results, err := h.usecase.AddDocuments(ctx, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	total := h.usecase.DocumentCount(ctx, contextID)
	ctxzap.Info(ctx, "documents added successfully",
		zap.Int("file_count", len(results)),
		zap.Int("document_count", total),
	)

	response.Created(w, &entity.AddDocumentsResponse{
		Status:    "indexed",
		Documents: results,
		Total:     total,
	})
}

// ClearContext handles DELETE /contexts/{context_id}/documents
func (h *Handler) ClearContext(w http.ResponseWriter, r *http.Request) {
	ctx, contextID, ok := h.contextFromPath(w, r, "ClearContext")
	if !ok {
		return
	}

	if err := h.usecase.ClearContext(ctx, contextID); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, &entity.ClearContextResponse{
		Status: "cleared",
	})
}

// DocumentCount handles GET /contexts/{context_id}/documents/count
func (h *Handler) DocumentCount(w http.ResponseWriter, r *http.Request) {
	ctx, contextID, ok := h.contextFromPath(w, r, "DocumentCount")
	if !ok {
		return
	}

	count := h.usecase.DocumentCount(ctx, contextID)
	ctxzap.Debug(ctx, "document count", zap.Int("count", count))

	response.Success(w, &entity.DocumentCountResponse{
		ContextID: contextID,
		Count:     count,
	})
}

// Suggestions handles POST /contexts/{context_id}/suggestions
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	ctx, contextID, ok := h.contextFromPath(w, r, "Suggestions")
	if !ok {
		return
	}

	var req entity.SuggestionsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	questions, err := h.usecase.Suggestions(ctx, contextID, req.Query, req.Answer)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, &entity.SuggestionsResponse{
		Questions: questions,
	})
}

// Helper methods
func (h *Handler) contextFromPath(w http.ResponseWriter, r *http.Request, action string) (context.Context, entity.ContextID, bool) {
	raw := chi.URLParam(r, "context_id")
	ctx := logger.AddFields(r.Context(),
		zap.String("context_id", raw),
		zap.String("action", action),
	)

	contextID, err := entity.ParseContextID(raw)
	if err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid context", err)
		return ctx, 0, false
	}

	return ctx, contextID, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodySize))
	return dec.Decode(dst)
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	if status >= http.StatusInternalServerError {
		ctxzap.Error(ctx, message, zap.Error(err))
	} else {
		ctxzap.Warn(ctx, message, zap.Error(err))
	}
	response.Error(w, status, message)
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrContextNotFound):
		h.respondError(ctx, w, http.StatusNotFound, "invalid context", err)
	case errors.Is(err, entity.ErrGenerationFailed):
		ctxzap.Error(ctx, "answer generation failed", zap.Error(err))
		response.JSON(w, http.StatusBadGateway, &entity.SearchErrorResponse{
			Response:  generationFailedMessage,
			Retryable: true,
		})
	case errors.Is(err, entity.ErrInvalidContext):
		h.respondError(ctx, w, http.StatusBadRequest, "invalid context", err)
	case errors.Is(err, entity.ErrInvalidParameter) || errors.Is(err, entity.ErrMissingField):
		h.respondError(ctx, w, http.StatusBadRequest, "invalid parameter", err)
	case errors.Is(err, entity.ErrInvalidFile) || errors.Is(err, entity.ErrFileTooLarge) || errors.Is(err, entity.ErrTooManyFiles) || errors.Is(err, entity.ErrInvalidExtension) || errors.Is(err, entity.ErrTotalSizeTooLarge):
		h.respondError(ctx, w, http.StatusBadRequest, "invalid file", err)
	default:
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
	}
}

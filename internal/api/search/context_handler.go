package search

import (
	"net/http"

	"github.com/futig/context-rag/internal/entity"
	"github.com/futig/context-rag/internal/pkg/logger"
	"github.com/futig/context-rag/internal/pkg/response"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// CreateContext handles POST /contexts
func (h *Handler) CreateContext(w http.ResponseWriter, r *http.Request) {
	ctx := logger.AddFields(r.Context(), zap.String("action", "CreateContext"))

	var req entity.CreateContextRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	created, err := h.usecase.CreateContext(ctx, &req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Created(w, toContextResponse(created, 0))
}

// ListContexts handles GET /contexts
func (h *Handler) ListContexts(w http.ResponseWriter, r *http.Request) {
	ctx := logger.AddFields(r.Context(), zap.String("action", "ListContexts"))

	contexts, err := h.usecase.ListContexts(ctx)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	resp := entity.ContextListResponse{Contexts: make([]entity.ContextResponse, 0, len(contexts))}
	for _, c := range contexts {
		resp.Contexts = append(resp.Contexts, toContextResponse(c, h.usecase.DocumentCount(ctx, c.ID)))
	}

	ctxzap.Debug(ctx, "contexts listed", zap.Int("count", len(resp.Contexts)))
	response.Success(w, &resp)
}

// GetContext handles GET /contexts/{context_id}
func (h *Handler) GetContext(w http.ResponseWriter, r *http.Request) {
	ctx, contextID, ok := h.contextFromPath(w, r, "GetContext")
	if !ok {
		return
	}

	c, err := h.usecase.GetContext(ctx, contextID)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, toContextResponse(c, h.usecase.DocumentCount(ctx, contextID)))
}

// DeleteContext handles DELETE /contexts/{context_id}
func (h *Handler) DeleteContext(w http.ResponseWriter, r *http.Request) {
	ctx, contextID, ok := h.contextFromPath(w, r, "DeleteContext")
	if !ok {
		return
	}

	if err := h.usecase.DeleteContext(ctx, contextID); err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, &entity.DeleteContextResponse{
		Status: "deleted",
	})
}

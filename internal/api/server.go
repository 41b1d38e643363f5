package api

import (
	"net/http"
	"time"

	"github.com/futig/context-rag/internal/api/docs"
	"github.com/futig/context-rag/internal/api/middleware"
	searchapi "github.com/futig/context-rag/internal/api/search"
	"github.com/futig/context-rag/internal/pkg/response"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// SetupRouter creates and configures the HTTP router
func SetupRouter(searchHandler *searchapi.Handler, requestTimeout time.Duration, corsOrigins []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(corsOrigins))
	r.Use(chimiddleware.Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, map[string]string{"status": "healthy"})
	})

	docs.RegisterRoutes(r)
	searchapi.RegisterRoutes(r, searchHandler)

	return r
}

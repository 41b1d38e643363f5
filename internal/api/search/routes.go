package search

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers context, search and document routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/contexts", h.ListContexts)
	r.Post("/contexts", h.CreateContext)

	r.Route("/contexts/{context_id}", func(r chi.Router) {
		r.Get("/", h.GetContext)
		r.Delete("/", h.DeleteContext)

		r.Post("/search", h.Search)
		r.Post("/suggestions", h.Suggestions)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", h.AddDocuments)
			r.Delete("/", h.ClearContext)
			r.Get("/count", h.DocumentCount)
		})
	})
}

package search

import "github.com/futig/context-rag/internal/entity"

func toSearchResponse(answer *entity.Answer) *entity.SearchResponse {
	sources := answer.Sources
	if sources == nil {
		sources = []entity.Source{}
	}

	return &entity.SearchResponse{
		QueryID:  answer.QueryID,
		Response: answer.Text,
		Sources:  sources,
		Path:     answer.Path,
	}
}

func toContextResponse(c *entity.Context, documentCount int) entity.ContextResponse {
	return entity.ContextResponse{
		ID:            c.ID,
		Name:          c.Name,
		Description:   c.Description,
		SharePointURL: c.SharePointURL,
		DocumentCount: documentCount,
	}
}

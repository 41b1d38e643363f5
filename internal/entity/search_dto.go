package entity

import "mime/multipart"

type SearchRequest struct {
	Query string `json:"query"`
}

type SearchResponse struct {
	QueryID  string   `json:"query_id"`
	Response string   `json:"response"`
	Sources  []Source `json:"sources"`
	Path     Path     `json:"path"`
}

// SearchErrorResponse is returned when an answer could not be produced
type SearchErrorResponse struct {
	Response  string `json:"response"`
	Retryable bool   `json:"retryable"`
}

type AddDocumentsRequest struct {
	ContextID ContextID
	Files     []*multipart.FileHeader
}

type AddDocumentsResponse struct {
	Status    string         `json:"status"`
	Documents []IngestResult `json:"documents"`
	Total     int            `json:"document_count"`
}

type ClearContextResponse struct {
	Status string `json:"status"`
}

type DocumentCountResponse struct {
	ContextID ContextID `json:"context_id"`
	Count     int       `json:"document_count"`
}

type SuggestionsRequest struct {
	Query  string `json:"query"`
	Answer string `json:"answer"`
}

type SuggestionsResponse struct {
	Questions []string `json:"questions"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type CreateContextRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	SharePointURL string `json:"sharepoint_url"`
}

type ContextResponse struct {
	ID            ContextID `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	SharePointURL string    `json:"sharepoint_url,omitempty"`
	DocumentCount int       `json:"document_count"`
}

type ContextListResponse struct {
	Contexts []ContextResponse `json:"contexts"`
}

type DeleteContextResponse struct {
	Status string `json:"status"`
}

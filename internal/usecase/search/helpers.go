package search

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/futig/context-rag/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// AddDocuments reads uploaded files and indexes them
func (uc *SearchUsecase) AddDocuments(ctx context.Context, req *entity.AddDocumentsRequest) ([]entity.IngestResult, error) {
	files, err := prepareFileData(ctx, req.Files)
	if err != nil {
		return nil, fmt.Errorf("prepare files: %w", err)
	}

	return uc.IngestFiles(ctx, req.ContextID, files)
}

// prepareFileData reads uploaded file contents
func prepareFileData(ctx context.Context, files []*multipart.FileHeader) ([]entity.FileData, error) {
	fileDataList := make([]entity.FileData, 0, len(files))

	for _, fh := range files {
		src, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open file %s: %w", fh.Filename, err)
		}

		content, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return nil, fmt.Errorf("read file %s: %w", fh.Filename, err)
		}

		fileDataList = append(fileDataList, entity.FileData{
			Filename: fh.Filename,
			Content:  content,
		})

		ctxzap.Debug(ctx, "file prepared for indexing",
			zap.String("filename", fh.Filename),
			zap.Int64("size", fh.Size),
		)
	}

	return fileDataList, nil
}

// buildSources lists each filename once, in order of first appearance
func buildSources(docContext *entity.Context, contextID entity.ContextID, results []entity.SearchResult) []entity.Source {
	url := docContext.SharePointURL
	if url == "" {
		url = fmt.Sprintf("uploaded-files-%d", contextID)
	}

	seen := make(map[string]struct{}, len(results))
	sources := make([]entity.Source, 0, len(results))
	for _, r := range results {
		name := r.Chunk.Metadata.Filename
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		sources = append(sources, entity.Source{Title: name, URL: url})
	}

	return sources
}

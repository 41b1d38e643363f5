package validator

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/futig/context-rag/internal/config"
	"github.com/futig/context-rag/internal/entity"
)

// AllowedExtensions lists the plain text formats the chunker understands
var AllowedExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// Validator validates document uploads
type Validator struct {
	cfg config.FileUploadConfig
}

func NewFileValidator(cfg config.FileUploadConfig) *Validator {
	return &Validator{cfg: cfg}
}

func (v *Validator) ValidateAddDocuments(req *entity.AddDocumentsRequest) error {
	if req.ContextID <= 0 {
		return fmt.Errorf("%w: context_id", entity.ErrInvalidContext)
	}
	if len(req.Files) == 0 {
		return fmt.Errorf("%w: files", entity.ErrMissingField)
	}

	return v.ValidateUpload(req.Files)
}

// ValidateUpload checks count, extension and size limits of uploaded files
func (v *Validator) ValidateUpload(files []*multipart.FileHeader) error {
	if len(files) == 0 {
		return entity.ErrMissingField
	}

	if len(files) > v.cfg.MaxFileCount {
		return fmt.Errorf("%w: maximum %d files allowed, got %d", entity.ErrTooManyFiles, v.cfg.MaxFileCount, len(files))
	}

	var totalSize int64
	for _, fh := range files {
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if !AllowedExtensions[ext] {
			return fmt.Errorf("%w: %q (allowed: txt, md)", entity.ErrInvalidExtension, ext)
		}

		if fh.Size == 0 {
			return fmt.Errorf("%w: file '%s' is empty", entity.ErrInvalidFile, fh.Filename)
		}

		if fh.Size > v.cfg.MaxFileSize {
			return fmt.Errorf("%w: file '%s' is %d bytes (max %d)", entity.ErrFileTooLarge, fh.Filename, fh.Size, v.cfg.MaxFileSize)
		}

		totalSize += fh.Size
	}

	if totalSize > v.cfg.MaxTotalSize {
		return fmt.Errorf("%w: total size is %d bytes (max %d)", entity.ErrTotalSizeTooLarge, totalSize, v.cfg.MaxTotalSize)
	}

	return nil
}

// SanitizeFilename strips directories and characters that break chunk ids and URLs
func SanitizeFilename(filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	replacer := strings.NewReplacer(
		" ", "_",
		"(", "",
		")", "",
		"[", "",
		"]", "",
		"{", "",
		"}", "",
	)
	return replacer.Replace(filename)
}

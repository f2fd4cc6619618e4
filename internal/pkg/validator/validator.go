package validator

import (
	"fmt"
	"mime/multipart"
	"net/mail"
	"path/filepath"
	"strings"

	"github.com/apostol-ai/agent-backend/internal/config"
	"github.com/apostol-ai/agent-backend/internal/entity"
)

var AllowedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".pdf":  true,
	".docx": true,
}

// Validator validates incoming requests and file uploads
type Validator struct {
	cfg config.FileUploadConfig
}

func NewValidator(cfg config.FileUploadConfig) *Validator {
	return &Validator{cfg: cfg}
}

func (v *Validator) ValidateCreateAgent(req *entity.CreateAgentRequest) error {
	if req.Name == "" {
		return fmt.Errorf("%w: name", entity.ErrMissingField)
	}
	if req.Prompt == "" {
		return fmt.Errorf("%w: prompt", entity.ErrMissingField)
	}
	if len(req.Files) > 0 {
		return v.ValidateUpload(req.Files)
	}
	return nil
}

func (v *Validator) ValidateRegister(req *entity.RegisterRequest) error {
	if req.Name == "" {
		return fmt.Errorf("%w: name", entity.ErrMissingField)
	}
	if req.Email == "" {
		return fmt.Errorf("%w: email", entity.ErrMissingField)
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return fmt.Errorf("%w: email", entity.ErrInvalidParameter)
	}
	if len(req.Password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", entity.ErrInvalidParameter)
	}
	return nil
}

// ValidateUpload validates multiple file uploads
func (v *Validator) ValidateUpload(files []*multipart.FileHeader) error {
	if len(files) == 0 {
		return fmt.Errorf("%w: files", entity.ErrMissingField)
	}

	if len(files) > v.cfg.MaxFileCount {
		return fmt.Errorf("%w: maximum %d files allowed, got %d", entity.ErrTooManyFiles, v.cfg.MaxFileCount, len(files))
	}

	var totalSize int64
	for _, fh := range files {
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if _, ok := AllowedExtensions[ext]; !ok {
			return fmt.Errorf("%w: %s (allowed: txt, md, pdf, docx)", entity.ErrInvalidExtension, ext)
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

// SanitizeFilename sanitizes a filename for safe storage
func SanitizeFilename(filename string) string {
	filename = filepath.Base(filename)
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

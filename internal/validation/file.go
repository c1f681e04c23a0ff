package validation

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/templui/contentops/internal/apperr"
	"github.com/templui/contentops/internal/model"
)

// FileConstraints defines validation rules for file uploads
type FileConstraints struct {
	Label string
	// AllowedMimeTypes is matched against the declared Content-Type of the part
	AllowedMimeTypes map[string]bool
	// AllowedExtensions accepts a file whose declared type is not listed
	AllowedExtensions map[string]bool
	// SniffedMimeTypes, when set, must contain the type detected from magic numbers
	SniffedMimeTypes map[string]bool
	MaxSize          int64
}

var (
	// ImageConstraints covers image and instagram-image uploads
	ImageConstraints = FileConstraints{
		Label: "image",
		AllowedMimeTypes: map[string]bool{
			"image/jpeg": true,
			"image/png":  true,
			"image/gif":  true,
			"image/webp": true,
		},
		SniffedMimeTypes: map[string]bool{
			"image/jpeg": true,
			"image/png":  true,
			"image/gif":  true,
			"image/webp": true,
		},
		MaxSize: 10 << 20, // 10MB
	}

	// ArchiveConstraints covers html-zip uploads
	ArchiveConstraints = FileConstraints{
		Label: "zip archive",
		AllowedMimeTypes: map[string]bool{
			"application/zip":              true,
			"application/x-zip-compressed": true,
		},
		AllowedExtensions: map[string]bool{
			".zip": true,
		},
		MaxSize: 50 << 20, // 50MB
	}
)

// ConstraintsFor returns the constraint set for an upload kind.
func ConstraintsFor(kind model.UploadKind) FileConstraints {
	if kind == model.UploadKindHTMLZip {
		return ArchiveConstraints
	}
	return ImageConstraints
}

// MaxUploadSize is the largest body any upload kind accepts.
func MaxUploadSize() int64 {
	return max(ImageConstraints.MaxSize, ArchiveConstraints.MaxSize)
}

// ValidateFile validates a file upload against one or more constraint sets
// If multiple constraints are provided, file must match at least one (OR logic)
func ValidateFile(header *multipart.FileHeader, constraints ...FileConstraints) error {
	if len(constraints) == 0 {
		return fmt.Errorf("no file constraints provided")
	}

	var lastErr error
	for _, constraint := range constraints {
		err := validateAgainstConstraint(header, constraint)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	return lastErr
}

// validateAgainstConstraint validates a file against a single constraint set
func validateAgainstConstraint(header *multipart.FileHeader, constraints FileConstraints) error {
	// Check file size first (before reading content)
	if header.Size > constraints.MaxSize {
		maxMB := constraints.MaxSize / (1 << 20)
		return apperr.Validation(fmt.Sprintf("File too large: maximum size for %s uploads is %d MB", constraints.Label, maxMB))
	}

	declared := declaredType(header)
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !constraints.AllowedMimeTypes[declared] && !constraints.AllowedExtensions[ext] {
		return apperr.Validation(fmt.Sprintf("Invalid file type for %s upload: %s", constraints.Label, allowedList(constraints)))
	}

	if len(constraints.SniffedMimeTypes) == 0 {
		return nil
	}

	detected, err := sniff(header)
	if err != nil {
		return err
	}
	if !constraints.SniffedMimeTypes[detected] {
		return apperr.Validation(fmt.Sprintf("File content does not match an allowed %s type", constraints.Label))
	}

	return nil
}

// sniff detects the content type from the first 512 bytes (magic numbers).
// This cannot be faked by just changing the Content-Type header.
func sniff(header *multipart.FileHeader) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	buffer := make([]byte, 512)
	n, err := io.ReadFull(file, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return http.DetectContentType(buffer[:n]), nil
}

func declaredType(header *multipart.FileHeader) string {
	ct := header.Header.Get("Content-Type")
	if i := strings.Index(ct, ";"); i != -1 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

func allowedList(constraints FileConstraints) string {
	allowed := sortedKeys(constraints.AllowedMimeTypes)
	for _, ext := range sortedKeys(constraints.AllowedExtensions) {
		allowed = append(allowed, "*"+ext)
	}
	return "allowed " + strings.Join(allowed, ", ")
}

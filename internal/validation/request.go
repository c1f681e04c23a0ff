package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/templui/contentops/internal/apperr"
	"github.com/templui/contentops/internal/model"
)

const (
	maxArticleIDLength = 64
	maxTokenNameLength = 100
	maxTokenNotesLen   = 1000
	maxTokenExpiryDays = 365
)

// ValidateArticleID checks the shape of an article id. Existence is checked by the service.
func ValidateArticleID(id string) error {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return apperr.Validation("Article ID is required")
	}
	if len(trimmed) > maxArticleIDLength {
		return apperr.Validation("Article ID is invalid")
	}
	return nil
}

// ValidateUploadKind rejects unknown upload types before any file is read.
func ValidateUploadKind(kind model.UploadKind) error {
	if !kind.Valid() {
		return apperr.Validation(fmt.Sprintf("Invalid upload type %q; supported: %s", kind, model.AllUploadKinds))
	}
	return nil
}

// TokenRequest carries the operator supplied token policy.
type TokenRequest struct {
	ArticleID     string             `json:"articleId"`
	UploadTypes   []model.UploadKind `json:"uploadTypes"`
	ExpiresInDays int                `json:"expiresInDays"`
	MaxUses       int                `json:"maxUses"`
	Name          string             `json:"name"`
	Notes         string             `json:"notes"`
}

// ValidateTokenRequest checks a generate-token request after defaults are applied.
func ValidateTokenRequest(req TokenRequest) error {
	err := ValidateArticleID(req.ArticleID)
	if err != nil {
		return err
	}

	if len(req.UploadTypes) == 0 {
		return apperr.Validation("At least one upload type is required")
	}
	for _, kind := range req.UploadTypes {
		err = ValidateUploadKind(kind)
		if err != nil {
			return err
		}
	}

	if req.ExpiresInDays < 1 || req.ExpiresInDays > maxTokenExpiryDays {
		return apperr.Validation(fmt.Sprintf("Expiry must be between 1 and %d days", maxTokenExpiryDays))
	}
	if req.MaxUses < 0 {
		return apperr.Validation("Max uses cannot be negative")
	}
	if len(strings.TrimSpace(req.Name)) > maxTokenNameLength {
		return apperr.Validation(fmt.Sprintf("Name is too long (max %d characters)", maxTokenNameLength))
	}
	if len(req.Notes) > maxTokenNotesLen {
		return apperr.Validation(fmt.Sprintf("Notes are too long (max %d characters)", maxTokenNotesLen))
	}
	return nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

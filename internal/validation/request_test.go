package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/templui/contentops/internal/apperr"
	"github.com/templui/contentops/internal/model"
)

func validTokenRequest() TokenRequest {
	return TokenRequest{
		ArticleID:     "article-1",
		UploadTypes:   []model.UploadKind{model.UploadKindImage},
		ExpiresInDays: 7,
		Name:          "Photographer",
	}
}

func TestValidateArticleID(t *testing.T) {
	assert.NoError(t, ValidateArticleID("abc"))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(ValidateArticleID("  ")))
	assert.Error(t, ValidateArticleID(strings.Repeat("a", 65)))
}

func TestValidateUploadKind(t *testing.T) {
	assert.NoError(t, ValidateUploadKind(model.UploadKindHTMLZip))

	err := ValidateUploadKind("video")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, apperr.Message(err), "image, instagram-image, html-zip")
}

func TestValidateTokenRequest(t *testing.T) {
	assert.NoError(t, ValidateTokenRequest(validTokenRequest()))

	cases := map[string]func(*TokenRequest){
		"missing article": func(r *TokenRequest) { r.ArticleID = "" },
		"no kinds":        func(r *TokenRequest) { r.UploadTypes = nil },
		"unknown kind":    func(r *TokenRequest) { r.UploadTypes = []model.UploadKind{"pdf"} },
		"zero expiry":     func(r *TokenRequest) { r.ExpiresInDays = 0 },
		"long expiry":     func(r *TokenRequest) { r.ExpiresInDays = 366 },
		"negative uses":   func(r *TokenRequest) { r.MaxUses = -1 },
		"long name":       func(r *TokenRequest) { r.Name = strings.Repeat("n", 101) },
		"long notes":      func(r *TokenRequest) { r.Notes = strings.Repeat("n", 1001) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := validTokenRequest()
			mutate(&req)
			err := ValidateTokenRequest(req)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

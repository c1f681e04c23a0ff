package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadKindsScanValue(t *testing.T) {
	var kinds UploadKinds
	require.NoError(t, kinds.Scan("image, html-zip,"))
	assert.Equal(t, UploadKinds{UploadKindImage, UploadKindHTMLZip}, kinds)

	v, err := kinds.Value()
	require.NoError(t, err)
	assert.Equal(t, "image,html-zip", v)

	require.NoError(t, kinds.Scan([]byte("instagram-image")))
	assert.Equal(t, UploadKinds{UploadKindInstagramImage}, kinds)

	assert.Error(t, kinds.Scan(42))
}

func TestUploadTokenUsable(t *testing.T) {
	now := time.Now()
	base := UploadToken{
		Active:      true,
		ExpiresAt:   now.Add(time.Hour),
		MaxUses:     2,
		Uses:        1,
		UploadTypes: UploadKinds{UploadKindImage},
	}

	tok := base
	assert.True(t, tok.Usable(now, UploadKindImage))
	assert.False(t, tok.Usable(now, UploadKindHTMLZip))

	tok = base
	tok.Active = false
	assert.False(t, tok.Usable(now, UploadKindImage))

	tok = base
	tok.ExpiresAt = now
	assert.False(t, tok.Usable(now, UploadKindImage))

	tok = base
	tok.Uses = 2
	assert.False(t, tok.Usable(now, UploadKindImage))
	assert.Equal(t, 0, tok.RemainingUses())

	tok = base
	tok.MaxUses = 0
	tok.Uses = 1000
	assert.True(t, tok.Usable(now, UploadKindImage))
	assert.Equal(t, -1, tok.RemainingUses())
}

func TestImageField(t *testing.T) {
	assert.Equal(t, ArticleFieldImageURL, ImageField(UploadKindImage))
	assert.Equal(t, ArticleFieldInstagramImageURL, ImageField(UploadKindInstagramImage))
}

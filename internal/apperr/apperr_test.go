package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindStatus(t *testing.T) {
	cases := map[Kind]int{
		KindValidation:   http.StatusBadRequest,
		KindUnauthorized: http.StatusUnauthorized,
		KindForbidden:    http.StatusForbidden,
		KindNotFound:     http.StatusNotFound,
		KindRateLimited:  http.StatusTooManyRequests,
		KindProcessing:   http.StatusInternalServerError,
		KindInternal:     http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.Status(), kind.String())
	}
}

func TestKindOfWrapped(t *testing.T) {
	cause := errors.New("imgbb returned 502")
	err := fmt.Errorf("upload: %w", Processing("Failed to upload image", cause))

	assert.Equal(t, KindProcessing, KindOf(err))
	assert.Equal(t, "Failed to upload image", Message(err))
	assert.ErrorIs(t, err, cause)
}

func TestMessageHidesUnclassified(t *testing.T) {
	err := errors.New("open /tmp/secret/path: permission denied")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "Internal server error", Message(err))
}

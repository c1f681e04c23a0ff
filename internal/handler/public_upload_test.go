package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/contentops/internal/apperr"
	"github.com/templui/contentops/internal/model"
)

func multipartRequest(t *testing.T, field string, size int) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField(articleIDField, "a1"))
	part, err := w.CreateFormFile(field, "cover.jpg")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{0xff}, size))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/public-upload/image", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestReadUploadReturnsFilePart(t *testing.T) {
	req := multipartRequest(t, uploadFileField, 1024)

	header, cleanup, err := readUpload(httptest.NewRecorder(), req, model.UploadKindImage)
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, "cover.jpg", header.Filename)
	assert.Equal(t, int64(1024), header.Size)
	assert.Equal(t, "a1", req.FormValue(articleIDField))
}

func TestReadUploadRejectsOversizedBody(t *testing.T) {
	req := multipartRequest(t, uploadFileField, 12<<20)

	_, cleanup, err := readUpload(httptest.NewRecorder(), req, model.UploadKindImage)
	defer cleanup()

	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Equal(t, "File too large for image upload (max 10MB)", apperr.Message(err))
}

func TestReadUploadMissingFile(t *testing.T) {
	req := multipartRequest(t, "attachment", 16)

	_, cleanup, err := readUpload(httptest.NewRecorder(), req, model.UploadKindImage)
	defer cleanup()

	require.Error(t, err)
	assert.Equal(t, "No file uploaded", apperr.Message(err))
}

func TestReadUploadRejectsUnknownKind(t *testing.T) {
	req := multipartRequest(t, uploadFileField, 16)

	_, _, err := readUpload(httptest.NewRecorder(), req, model.UploadKind("video"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/templui/contentops/internal/apperr"
	"github.com/templui/contentops/internal/ctxkeys"
	"github.com/templui/contentops/internal/middleware"
	"github.com/templui/contentops/internal/model"
	"github.com/templui/contentops/internal/service"
	"github.com/templui/contentops/internal/ui"
	"github.com/templui/contentops/internal/validation"
)

const (
	// formOverhead is the room left for multipart framing and text fields
	formOverhead    = 1 << 20
	multipartMemory = 8 << 20
	uploadFileField = "file"
	articleIDField  = "articleId"
)

type PublicUploadHandler struct {
	uploadService *service.UploadService
	tokenService  *service.UploadTokenService
}

func NewPublicUploadHandler(uploadService *service.UploadService, tokenService *service.UploadTokenService) *PublicUploadHandler {
	return &PublicUploadHandler{
		uploadService: uploadService,
		tokenService:  tokenService,
	}
}

// Open handles the token-less endpoints where the form names the article.
func (h *PublicUploadHandler) Open(kind model.UploadKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header, cleanup, err := readUpload(w, r, kind)
		if err != nil {
			ui.Error(w, r, err)
			return
		}
		defer cleanup()

		h.upload(w, r, service.UploadRequest{
			Kind:      kind,
			ArticleID: r.FormValue(articleIDField),
			File:      header,
			ClientIP:  middleware.ClientIP(r),
		})
	}
}

// WithToken handles /public-upload/{uploadType}/{token} after VerifyUploadToken.
func (h *PublicUploadHandler) WithToken(w http.ResponseWriter, r *http.Request) {
	tok := ctxkeys.UploadToken(r.Context())
	if tok == nil {
		ui.Error(w, r, apperr.Unauthorized("Upload token is required", nil))
		return
	}
	kind := model.UploadKind(r.PathValue("uploadType"))

	header, cleanup, err := readUpload(w, r, kind)
	if err != nil {
		ui.Error(w, r, err)
		return
	}
	defer cleanup()

	h.upload(w, r, service.UploadRequest{
		Kind:     kind,
		Token:    tok,
		Article:  ctxkeys.Article(r.Context()),
		File:     header,
		ClientIP: middleware.ClientIP(r),
	})
}

// Info returns token and article metadata for the upload landing page.
func (h *PublicUploadHandler) Info(w http.ResponseWriter, r *http.Request) {
	info, err := h.tokenService.Info(r.Context(), r.PathValue("token"))
	if err != nil {
		ui.Error(w, r, err)
		return
	}
	ui.JSON(w, http.StatusOK, info)
}

func (h *PublicUploadHandler) upload(w http.ResponseWriter, r *http.Request, req service.UploadRequest) {
	result, err := h.uploadService.Upload(r.Context(), req)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindProcessing {
			slog.Error("public upload failed", "error", err, "upload_type", string(req.Kind))
		}
		ui.Error(w, r, err)
		return
	}
	ui.JSON(w, http.StatusOK, result)
}

// readUpload enforces the size cap of kind while the body is read and
// returns the "file" part. cleanup removes any spill files of the form.
func readUpload(w http.ResponseWriter, r *http.Request, kind model.UploadKind) (*multipart.FileHeader, func(), error) {
	noop := func() {}
	err := validation.ValidateUploadKind(kind)
	if err != nil {
		return nil, noop, err
	}

	constraints := validation.ConstraintsFor(kind)
	r.Body = http.MaxBytesReader(w, r.Body, constraints.MaxSize+formOverhead)

	err = r.ParseMultipartForm(multipartMemory)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, noop, apperr.Validation(fmt.Sprintf("File too large for %s upload (max %dMB)", constraints.Label, constraints.MaxSize>>20))
		}
		return nil, noop, apperr.Validation("Failed to parse upload form")
	}
	cleanup := func() {
		rmErr := r.MultipartForm.RemoveAll()
		if rmErr != nil {
			slog.Warn("failed to remove multipart temp files", "error", rmErr)
		}
	}

	files := r.MultipartForm.File[uploadFileField]
	if len(files) == 0 {
		cleanup()
		return nil, noop, apperr.Validation("No file uploaded")
	}
	return files[0], cleanup, nil
}

package handler

import (
	"net/http"

	"github.com/templui/contentops/internal/ctxkeys"
	"github.com/templui/contentops/internal/service"
	"github.com/templui/contentops/internal/ui"
	"github.com/templui/contentops/internal/validation"
)

type UploadTokenHandler struct {
	tokenService *service.UploadTokenService
}

func NewUploadTokenHandler(tokenService *service.UploadTokenService) *UploadTokenHandler {
	return &UploadTokenHandler{tokenService: tokenService}
}

func (h *UploadTokenHandler) Generate(w http.ResponseWriter, r *http.Request) {
	op := ctxkeys.CurrentOperator(r.Context())

	var req validation.TokenRequest
	err := ui.DecodeJSON(w, r, &req)
	if err != nil {
		ui.Error(w, r, err)
		return
	}

	generated, err := h.tokenService.Generate(r.Context(), op.ID, req)
	if err != nil {
		ui.Error(w, r, err)
		return
	}

	ui.JSON(w, http.StatusCreated, map[string]any{
		"success":    true,
		"token":      generated.Token,
		"uploadUrls": generated.UploadURLs,
		"infoUrl":    generated.InfoURL,
	})
}

func (h *UploadTokenHandler) List(w http.ResponseWriter, r *http.Request) {
	tokens, err := h.tokenService.ListByArticle(r.Context(), r.PathValue("articleId"))
	if err != nil {
		ui.Error(w, r, err)
		return
	}
	ui.JSON(w, http.StatusOK, map[string]any{"tokens": tokens})
}

func (h *UploadTokenHandler) Delete(w http.ResponseWriter, r *http.Request) {
	op := ctxkeys.CurrentOperator(r.Context())

	err := h.tokenService.Delete(r.Context(), op.ID, r.PathValue("id"))
	if err != nil {
		ui.Error(w, r, err)
		return
	}
	ui.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Upload token deleted",
	})
}

package handler

import (
	"net/http"

	"github.com/templui/contentops/internal/service"
	"github.com/templui/contentops/internal/ui"
)

type ArticleHandler struct {
	articleService *service.ArticleService
}

func NewArticleHandler(articleService *service.ArticleService) *ArticleHandler {
	return &ArticleHandler{articleService: articleService}
}

// Uploadable lists {id, title, status} of every article that is not published.
func (h *ArticleHandler) Uploadable(w http.ResponseWriter, r *http.Request) {
	articles, err := h.articleService.Uploadable(r.Context())
	if err != nil {
		ui.Error(w, r, err)
		return
	}
	ui.JSON(w, http.StatusOK, articles)
}

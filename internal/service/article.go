package service

import (
	"context"
	"errors"
	"strings"

	"github.com/templui/contentops/internal/apperr"
	"github.com/templui/contentops/internal/model"
	"github.com/templui/contentops/internal/repository"
	"github.com/templui/contentops/internal/validation"
)

type ArticleService struct {
	articleRepo repository.ArticleRepository
}

func NewArticleService(articleRepo repository.ArticleRepository) *ArticleService {
	return &ArticleService{articleRepo: articleRepo}
}

// Uploadable lists every article that still accepts uploads.
func (s *ArticleService) Uploadable(ctx context.Context) ([]*model.ArticleSummary, error) {
	articles, err := s.articleRepo.Uploadable(ctx)
	if err != nil {
		return nil, apperr.Internal("Failed to load articles", err)
	}
	if articles == nil {
		articles = []*model.ArticleSummary{}
	}
	return articles, nil
}

// ByID loads an article without checking its status.
func (s *ArticleService) ByID(ctx context.Context, id string) (*model.Article, error) {
	err := validation.ValidateArticleID(id)
	if err != nil {
		return nil, err
	}

	article, err := s.articleRepo.ByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, repository.ErrArticleNotFound) {
			return nil, apperr.NotFound("Article not found", err)
		}
		return nil, apperr.Internal("Failed to load article", err)
	}
	return article, nil
}

// UploadTarget loads an article and rejects it when it is already published.
func (s *ArticleService) UploadTarget(ctx context.Context, id string) (*model.Article, error) {
	article, err := s.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return CheckUploadable(article)
}

// CheckUploadable rejects an already loaded article when it is published.
func CheckUploadable(article *model.Article) (*model.Article, error) {
	if article.IsPublished() {
		return nil, apperr.Validation("Cannot upload to a published article")
	}
	return article, nil
}

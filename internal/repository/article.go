package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/templui/contentops/internal/model"
)

var (
	ErrArticleNotFound = errors.New("article not found")
	ErrInvalidField    = errors.New("field cannot be updated by uploads")
)

// uploadableFields whitelists the columns UpdateField may touch
var uploadableFields = map[string]bool{
	model.ArticleFieldImageURL:          true,
	model.ArticleFieldInstagramImageURL: true,
}

type ArticleRepository interface {
	Create(ctx context.Context, article *model.Article) error
	ByID(ctx context.Context, id string) (*model.Article, error)
	Uploadable(ctx context.Context) ([]*model.ArticleSummary, error)
	UpdateField(ctx context.Context, id, field, value string) error
	UpdateContent(ctx context.Context, id, content, format string) error
}

type articleRepository struct {
	db *sqlx.DB
}

func NewArticleRepository(db *sqlx.DB) ArticleRepository {
	return &articleRepository{db: db}
}

func (r *articleRepository) Create(ctx context.Context, article *model.Article) error {
	if article.ID == "" {
		article.ID = uuid.New().String()
	}
	if article.Status == "" {
		article.Status = model.ArticleStatusDraft
	}
	if article.ContentFormat == "" {
		article.ContentFormat = model.ContentFormatMarkdown
	}
	now := time.Now().UTC()
	article.CreatedAt = now
	article.UpdatedAt = now

	query := `
		INSERT INTO articles (id, title, status, airtable_id, image_url, instagram_image_url, content, content_format, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		article.ID,
		article.Title,
		article.Status,
		article.AirtableID,
		article.ImageURL,
		article.InstagramImageURL,
		article.Content,
		article.ContentFormat,
		article.CreatedAt,
		article.UpdatedAt,
	)
	return err
}

func (r *articleRepository) ByID(ctx context.Context, id string) (*model.Article, error) {
	article := &model.Article{}
	query := `SELECT * FROM articles WHERE id = $1`

	err := r.db.GetContext(ctx, article, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrArticleNotFound
	}
	if err != nil {
		return nil, err
	}
	return article, nil
}

func (r *articleRepository) Uploadable(ctx context.Context) ([]*model.ArticleSummary, error) {
	articles := []*model.ArticleSummary{}
	query := `SELECT id, title, status FROM articles WHERE status != $1 ORDER BY updated_at DESC`

	err := r.db.SelectContext(ctx, &articles, query, model.ArticleStatusPublished)
	if err != nil {
		return nil, err
	}
	return articles, nil
}

// UpdateField replaces one image column. The previous value is not kept.
func (r *articleRepository) UpdateField(ctx context.Context, id, field, value string) error {
	if !uploadableFields[field] {
		return fmt.Errorf("%w: %s", ErrInvalidField, field)
	}

	// field is whitelisted above, so interpolating it is safe
	query := fmt.Sprintf(`UPDATE articles SET %s = $1, updated_at = $2 WHERE id = $3`, field)
	result, err := r.db.ExecContext(ctx, query, value, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func (r *articleRepository) UpdateContent(ctx context.Context, id, content, format string) error {
	query := `UPDATE articles SET content = $1, content_format = $2, updated_at = $3 WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, content, format, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrArticleNotFound
	}
	return nil
}

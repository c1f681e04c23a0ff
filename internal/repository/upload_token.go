package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/templui/contentops/internal/model"
)

var (
	ErrTokenNotFound  = errors.New("upload token not found")
	ErrTokenExhausted = errors.New("upload token has no uses left")
)

type UploadTokenRepository interface {
	Create(ctx context.Context, token *model.UploadToken) error
	ByToken(ctx context.Context, token string) (*model.UploadToken, error)
	ByID(ctx context.Context, id string) (*model.UploadToken, error)
	ByArticle(ctx context.Context, articleID string) ([]*model.UploadToken, error)
	Exists(ctx context.Context, token string) (bool, error)
	IncrementUses(ctx context.Context, id string) (*model.UploadToken, error)
	Deactivate(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type uploadTokenRepository struct {
	db *sqlx.DB
}

func NewUploadTokenRepository(db *sqlx.DB) UploadTokenRepository {
	return &uploadTokenRepository{db: db}
}

func (r *uploadTokenRepository) Create(ctx context.Context, token *model.UploadToken) error {
	if token.ID == "" {
		token.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if token.CreatedAt.IsZero() {
		token.CreatedAt = now
	}
	token.CreatedAt = token.CreatedAt.UTC()
	token.UpdatedAt = token.CreatedAt
	token.ExpiresAt = token.ExpiresAt.UTC()

	query := `
		INSERT INTO upload_tokens (id, token, article_id, upload_types, created_by, expires_at, max_uses, uses, active, name, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		token.ID,
		token.Token,
		token.ArticleID,
		token.UploadTypes,
		token.CreatedBy,
		token.ExpiresAt,
		token.MaxUses,
		token.Uses,
		token.Active,
		token.Name,
		token.Notes,
		token.CreatedAt,
		token.UpdatedAt,
	)
	return err
}

func (r *uploadTokenRepository) ByToken(ctx context.Context, token string) (*model.UploadToken, error) {
	t := &model.UploadToken{}
	query := `SELECT * FROM upload_tokens WHERE token = $1`

	err := r.db.GetContext(ctx, t, query, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *uploadTokenRepository) ByID(ctx context.Context, id string) (*model.UploadToken, error) {
	t := &model.UploadToken{}
	query := `SELECT * FROM upload_tokens WHERE id = $1`

	err := r.db.GetContext(ctx, t, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *uploadTokenRepository) ByArticle(ctx context.Context, articleID string) ([]*model.UploadToken, error) {
	var tokens []*model.UploadToken
	query := `SELECT * FROM upload_tokens WHERE article_id = $1 ORDER BY created_at DESC`

	err := r.db.SelectContext(ctx, &tokens, query, articleID)
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (r *uploadTokenRepository) Exists(ctx context.Context, token string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM upload_tokens WHERE token = $1`

	err := r.db.GetContext(ctx, &count, query, token)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// IncrementUses atomically bumps the usage counter and returns the updated token.
// The max_uses guard lives in the WHERE clause so concurrent uploads can never
// push a token past its limit: the losing request gets ErrTokenExhausted.
func (r *uploadTokenRepository) IncrementUses(ctx context.Context, id string) (*model.UploadToken, error) {
	var t model.UploadToken
	query := `
		UPDATE upload_tokens
		SET uses = uses + 1, updated_at = $1
		WHERE id = $2
		AND (max_uses = 0 OR uses < max_uses)
		RETURNING *
	`

	err := r.db.GetContext(ctx, &t, query, time.Now().UTC(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenExhausted
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Deactivate flips active to false. Writing false twice is harmless, so racing
// lazy-expiry writers need no coordination.
func (r *uploadTokenRepository) Deactivate(ctx context.Context, id string) error {
	query := `UPDATE upload_tokens SET active = $1, updated_at = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, false, time.Now().UTC(), id)
	return err
}

func (r *uploadTokenRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM upload_tokens WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrTokenNotFound
	}
	return nil
}

package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/templui/contentops/internal/model"
)

type ActivityRepository interface {
	Create(ctx context.Context, activity *model.Activity) error
	ByArticle(ctx context.Context, articleID string, limit int) ([]*model.Activity, error)
}

type activityRepository struct {
	db *sqlx.DB
}

func NewActivityRepository(db *sqlx.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, activity *model.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = time.Now().UTC()
	}
	if activity.Details == "" {
		activity.Details = "{}"
	}

	query := `
		INSERT INTO activity_logs (id, action, article_id, token_id, upload_type, client_ip, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		activity.ID,
		activity.Action,
		activity.ArticleID,
		activity.TokenID,
		activity.UploadType,
		activity.ClientIP,
		activity.Details,
		activity.CreatedAt,
	)
	return err
}

func (r *activityRepository) ByArticle(ctx context.Context, articleID string, limit int) ([]*model.Activity, error) {
	var activities []*model.Activity
	query := `SELECT * FROM activity_logs WHERE article_id = $1 ORDER BY created_at DESC LIMIT $2`

	err := r.db.SelectContext(ctx, &activities, query, articleID, limit)
	if err != nil {
		return nil, err
	}
	return activities, nil
}

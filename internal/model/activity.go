package model

import (
	"time"
)

const (
	ActivityPublicUpload = "public_upload"
	ActivityTokenCreated = "upload_token_created"
	ActivityTokenDeleted = "upload_token_deleted"
	ActivityTokenExpired = "upload_token_expired"
)

type Activity struct {
	ID         string    `db:"id"`
	Action     string    `db:"action"`
	ArticleID  string    `db:"article_id"`
	TokenID    *string   `db:"token_id"`
	UploadType string    `db:"upload_type"`
	ClientIP   string    `db:"client_ip"`
	Details    string    `db:"details"` // JSON
	CreatedAt  time.Time `db:"created_at"`
}

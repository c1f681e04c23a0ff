package model

import (
	"time"
)

const (
	ArticleStatusDraft     = "draft"
	ArticleStatusPending   = "pending"
	ArticleStatusPublished = "published"
	ArticleStatusRejected  = "rejected"
)

const (
	ContentFormatMarkdown = "markdown"
	ContentFormatMarkup   = "markup"
)

// Article field names that uploads may overwrite.
const (
	ArticleFieldImageURL          = "image_url"
	ArticleFieldInstagramImageURL = "instagram_image_url"
)

type Article struct {
	ID                string    `db:"id" json:"id"`
	Title             string    `db:"title" json:"title"`
	Status            string    `db:"status" json:"status"`
	AirtableID        *string   `db:"airtable_id" json:"airtableId"`
	ImageURL          string    `db:"image_url" json:"imageUrl"`
	InstagramImageURL string    `db:"instagram_image_url" json:"instagramImageUrl"`
	Content           string    `db:"content" json:"content"`
	ContentFormat     string    `db:"content_format" json:"contentFormat"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `db:"updated_at" json:"updatedAt"`
}

func (a *Article) IsPublished() bool {
	return a.Status == ArticleStatusPublished
}

// ArticleSummary is the minimal shape exposed to anonymous uploaders.
type ArticleSummary struct {
	ID     string `db:"id" json:"id"`
	Title  string `db:"title" json:"title"`
	Status string `db:"status" json:"status,omitempty"`
}

// ImageField returns the article column written by an image upload of the given kind.
func ImageField(kind UploadKind) string {
	if kind == UploadKindInstagramImage {
		return ArticleFieldInstagramImageURL
	}
	return ArticleFieldImageURL
}

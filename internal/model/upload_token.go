package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

type UploadKind string

const (
	UploadKindImage          UploadKind = "image"
	UploadKindInstagramImage UploadKind = "instagram-image"
	UploadKindHTMLZip        UploadKind = "html-zip"
)

// AllUploadKinds is the default capability set of a freshly generated token.
var AllUploadKinds = UploadKinds{UploadKindImage, UploadKindInstagramImage, UploadKindHTMLZip}

func (k UploadKind) Valid() bool {
	switch k {
	case UploadKindImage, UploadKindInstagramImage, UploadKindHTMLZip:
		return true
	}
	return false
}

// IsImage reports whether the kind is handled by the image processor.
func (k UploadKind) IsImage() bool {
	return k == UploadKindImage || k == UploadKindInstagramImage
}

// UploadKinds is stored as a comma separated column.
type UploadKinds []UploadKind

func (ks UploadKinds) Contains(kind UploadKind) bool {
	for _, k := range ks {
		if k == kind {
			return true
		}
	}
	return false
}

func (ks UploadKinds) String() string {
	parts := make([]string, len(ks))
	for i, k := range ks {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}

func (ks UploadKinds) Value() (driver.Value, error) {
	parts := make([]string, len(ks))
	for i, k := range ks {
		parts[i] = string(k)
	}
	return strings.Join(parts, ","), nil
}

func (ks *UploadKinds) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*ks = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into UploadKinds", src)
	}

	var kinds UploadKinds
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			kinds = append(kinds, UploadKind(part))
		}
	}
	*ks = kinds
	return nil
}

// UploadToken grants anonymous uploads against one article.
type UploadToken struct {
	ID          string      `db:"id" json:"id"`
	Token       string      `db:"token" json:"token"`
	ArticleID   string      `db:"article_id" json:"articleId"`
	UploadTypes UploadKinds `db:"upload_types" json:"uploadTypes"`
	CreatedBy   *string     `db:"created_by" json:"createdBy"`
	ExpiresAt   time.Time   `db:"expires_at" json:"expiresAt"`
	MaxUses     int         `db:"max_uses" json:"maxUses"` // 0 = unlimited
	Uses        int         `db:"uses" json:"uses"`
	Active      bool        `db:"active" json:"active"`
	Name        string      `db:"name" json:"name"`
	Notes       string      `db:"notes" json:"notes"`
	CreatedAt   time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updatedAt"`
}

func (t *UploadToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t *UploadToken) IsExhausted() bool {
	return t.MaxUses > 0 && t.Uses >= t.MaxUses
}

func (t *UploadToken) Permits(kind UploadKind) bool {
	return t.UploadTypes.Contains(kind)
}

// Usable applies every token-side check at once. Article existence is checked separately.
func (t *UploadToken) Usable(now time.Time, kind UploadKind) bool {
	return t.Active && !t.IsExpired(now) && !t.IsExhausted() && t.Permits(kind)
}

// RemainingUses returns -1 for unlimited tokens.
func (t *UploadToken) RemainingUses() int {
	if t.MaxUses == 0 {
		return -1
	}
	if t.Uses >= t.MaxUses {
		return 0
	}
	return t.MaxUses - t.Uses
}

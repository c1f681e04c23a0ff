package extsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/templui/contentops/internal/model"
)

const airtableEndpoint = "https://api.airtable.com/v0"

var ErrAirtableRejected = errors.New("airtable rejected the update")

type AirtableConfig struct {
	APIKey         string
	BaseID         string
	Table          string
	ImageField     string
	InstagramField string
	ContentField   string
}

// Airtable writes upload results into the article's linked Airtable record.
type Airtable struct {
	cfg      AirtableConfig
	endpoint string
	client   *http.Client
}

func NewAirtable(cfg AirtableConfig) *Airtable {
	return &Airtable{
		cfg:      cfg,
		endpoint: airtableEndpoint,
		client:   &http.Client{},
	}
}

func (a *Airtable) WithEndpoint(endpoint string) *Airtable {
	a.endpoint = endpoint
	return a
}

func (a *Airtable) Name() string {
	return "airtable"
}

// Field returns the Airtable column an upload kind writes to.
func (a *Airtable) Field(kind model.UploadKind) string {
	switch kind {
	case model.UploadKindInstagramImage:
		return a.cfg.InstagramField
	case model.UploadKindHTMLZip:
		return a.cfg.ContentField
	default:
		return a.cfg.ImageField
	}
}

func (a *Airtable) Push(ctx context.Context, upd Update) error {
	if upd.Article.AirtableID == nil || *upd.Article.AirtableID == "" {
		slog.Debug("article has no airtable record, skipping sync", "article_id", upd.Article.ID)
		return nil
	}
	field := a.Field(upd.Kind)
	if field == "" {
		return nil
	}

	payload, err := json.Marshal(map[string]any{
		"fields": map[string]string{field: upd.Value},
	})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/%s/%s/%s",
		a.endpoint,
		url.PathEscape(a.cfg.BaseID),
		url.PathEscape(a.cfg.Table),
		url.PathEscape(*upd.Article.AirtableID),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: field %q: status %d: %s", ErrAirtableRejected, field, resp.StatusCode, bytes.TrimSpace(excerpt))
	}
	return nil
}

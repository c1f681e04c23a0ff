package extsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/templui/contentops/internal/model"
)

// Discord announces uploads in a channel through an incoming webhook.
type Discord struct {
	webhookURL string
	client     *http.Client
}

func NewDiscord(webhookURL string) *Discord {
	return &Discord{webhookURL: webhookURL, client: &http.Client{}}
}

func (d *Discord) Name() string {
	return "discord"
}

func (d *Discord) Push(ctx context.Context, upd Update) error {
	payload, err := json.Marshal(map[string]string{"content": message(upd)})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("discord webhook returned %d", resp.StatusCode)
	}
	return nil
}

func message(upd Update) string {
	switch upd.Kind {
	case model.UploadKindHTMLZip:
		return fmt.Sprintf("New HTML content uploaded for **%s**", upd.Article.Title)
	case model.UploadKindInstagramImage:
		return fmt.Sprintf("New Instagram image uploaded for **%s**: %s", upd.Article.Title, upd.Value)
	default:
		return fmt.Sprintf("New image uploaded for **%s**: %s", upd.Article.Title, upd.Value)
	}
}

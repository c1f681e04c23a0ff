package hosting

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const imgurEndpoint = "https://api.imgur.com/3/image"

type Imgur struct {
	clientID string
	endpoint string
	client   *http.Client
}

func NewImgur(clientID string) *Imgur {
	return &Imgur{
		clientID: clientID,
		endpoint: imgurEndpoint,
		client:   &http.Client{},
	}
}

func (h *Imgur) WithEndpoint(endpoint string) *Imgur {
	h.endpoint = endpoint
	return h
}

func (h *Imgur) Name() string {
	return "imgur"
}

type imgurResponse struct {
	Success bool `json:"success"`
	Status  int  `json:"status"`
	Data    struct {
		ID   string `json:"id"`
		Link string `json:"link"`
	} `json:"data"`
}

func (h *Imgur) Upload(ctx context.Context, path, filename string) (*HostedImage, error) {
	if h.clientID == "" {
		return nil, fmt.Errorf("%w: imgur client id not configured", ErrHostingUploadFailed)
	}

	body, contentType, err := multipartFile("image", path, filename, map[string]string{"type": "file"})
	if err != nil {
		return nil, fmt.Errorf("failed to build imgur request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Client-ID "+h.clientID)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: imgur request failed: %w", ErrHostingUploadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	err = checkStatus(h.Name(), resp)
	if err != nil {
		return nil, err
	}

	var out imgurResponse
	err = json.NewDecoder(resp.Body).Decode(&out)
	if err != nil {
		return nil, fmt.Errorf("%w: imgur returned malformed json: %w", ErrHostingUploadFailed, err)
	}
	if !out.Success || out.Data.Link == "" {
		return nil, fmt.Errorf("%w: imgur response missing link (status %d)", ErrHostingUploadFailed, out.Status)
	}

	return &HostedImage{
		URL:        out.Data.Link,
		ID:         out.Data.ID,
		DisplayURL: out.Data.Link,
	}, nil
}

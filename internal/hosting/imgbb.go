package hosting

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const imgbbEndpoint = "https://api.imgbb.com/1/upload"

type ImgBB struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

func NewImgBB(apiKey string) *ImgBB {
	return &ImgBB{
		apiKey:   apiKey,
		endpoint: imgbbEndpoint,
		client:   &http.Client{},
	}
}

// WithEndpoint points the client at another base URL (tests, proxies).
func (h *ImgBB) WithEndpoint(endpoint string) *ImgBB {
	h.endpoint = endpoint
	return h
}

func (h *ImgBB) Name() string {
	return "imgbb"
}

type imgbbResponse struct {
	Success bool `json:"success"`
	Status  int  `json:"status"`
	Data    struct {
		ID         string `json:"id"`
		URL        string `json:"url"`
		DisplayURL string `json:"display_url"`
	} `json:"data"`
}

func (h *ImgBB) Upload(ctx context.Context, path, filename string) (*HostedImage, error) {
	if h.apiKey == "" {
		return nil, fmt.Errorf("%w: imgbb api key not configured", ErrHostingUploadFailed)
	}

	body, contentType, err := multipartFile("image", path, filename, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build imgbb request: %w", err)
	}

	endpoint := h.endpoint + "?" + url.Values{"key": {h.apiKey}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := h.client.Do(req)
	if err != nil {
		// url.Error embeds the query string; keep the api key out of logs
		return nil, fmt.Errorf("%w: imgbb request failed: %w", ErrHostingUploadFailed, stripURL(err))
	}
	defer func() { _ = resp.Body.Close() }()

	err = checkStatus(h.Name(), resp)
	if err != nil {
		return nil, err
	}

	var out imgbbResponse
	err = json.NewDecoder(resp.Body).Decode(&out)
	if err != nil {
		return nil, fmt.Errorf("%w: imgbb returned malformed json: %w", ErrHostingUploadFailed, err)
	}
	if !out.Success || out.Data.URL == "" {
		return nil, fmt.Errorf("%w: imgbb response missing url (status %d)", ErrHostingUploadFailed, out.Status)
	}

	return &HostedImage{
		URL:        out.Data.URL,
		ID:         out.Data.ID,
		DisplayURL: out.Data.DisplayURL,
	}, nil
}

func stripURL(err error) error {
	if ue, ok := err.(*url.Error); ok {
		return ue.Err
	}
	return err
}

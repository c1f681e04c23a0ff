// Package hosting pushes uploaded images to an external image host and
// returns a durable URL for them.
package hosting

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// ErrHostingUploadFailed wraps every failure to obtain a hosted URL:
// transport errors, timeouts, non-2xx responses and malformed bodies.
var ErrHostingUploadFailed = errors.New("image hosting upload failed")

type HostedImage struct {
	URL        string `json:"url"`
	ID         string `json:"id"`
	DisplayURL string `json:"displayUrl"`
}

type Host interface {
	Name() string
	Upload(ctx context.Context, path, filename string) (*HostedImage, error)
}

// Bounded limits every upload to timeout and classifies all failures as ErrHostingUploadFailed.
func Bounded(host Host, timeout time.Duration) Host {
	return &boundedHost{host: host, timeout: timeout}
}

type boundedHost struct {
	host    Host
	timeout time.Duration
}

func (b *boundedHost) Name() string {
	return b.host.Name()
}

func (b *boundedHost) Upload(ctx context.Context, path, filename string) (*HostedImage, error) {
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	img, err := b.host.Upload(ctx, path, filename)
	if err != nil {
		if errors.Is(err, ErrHostingUploadFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrHostingUploadFailed, b.host.Name(), err)
	}
	if img == nil || img.URL == "" {
		return nil, fmt.Errorf("%w: %s returned no url", ErrHostingUploadFailed, b.host.Name())
	}
	if img.DisplayURL == "" {
		img.DisplayURL = img.URL
	}
	return img, nil
}

// multipartFile builds a single-file multipart body. Images are capped at
// 10MB upstream so buffering in memory is bounded.
func multipartFile(field, path, filename string, extra map[string]string) (*bytes.Buffer, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = f.Close() }()

	if filename == "" {
		filename = filepath.Base(path)
	}

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range extra {
		err = w.WriteField(k, v)
		if err != nil {
			return nil, "", err
		}
	}

	part, err := w.CreateFormFile(field, filepath.Base(filename))
	if err != nil {
		return nil, "", err
	}
	_, err = io.Copy(part, f)
	if err != nil {
		return nil, "", err
	}

	err = w.Close()
	if err != nil {
		return nil, "", err
	}
	return body, w.FormDataContentType(), nil
}

// checkStatus turns a non-2xx response into an error carrying a short body excerpt.
func checkStatus(host string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%w: %s returned %d: %s", ErrHostingUploadFailed, host, resp.StatusCode, bytes.TrimSpace(excerpt))
}

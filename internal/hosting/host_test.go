package hosting

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var jpegBytes = append([]byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"), bytes.Repeat([]byte{1}, 32)...)

func writeImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "upload.tmp")
	require.NoError(t, os.WriteFile(path, jpegBytes, 0o600))
	return path
}

func TestImgBBUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret-key", r.URL.Query().Get("key"))

		file, header, err := r.FormFile("image")
		if !assert.NoError(t, err) {
			http.Error(w, "no image", http.StatusBadRequest)
			return
		}
		defer file.Close()
		got, _ := io.ReadAll(file)
		assert.Equal(t, jpegBytes, got)
		assert.Equal(t, "cover.jpg", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":true,"status":200,"data":{"id":"abc","url":"https://i.ibb.co/abc/cover.jpg","display_url":"https://ibb.co/abc"}}`)
	}))
	defer srv.Close()

	host := NewImgBB("secret-key").WithEndpoint(srv.URL)
	img, err := host.Upload(context.Background(), writeImage(t), "cover.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://i.ibb.co/abc/cover.jpg", img.URL)
	assert.Equal(t, "abc", img.ID)
	assert.Equal(t, "https://ibb.co/abc", img.DisplayURL)
}

func TestImgBBFailures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"non-2xx": func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		},
		"malformed": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `<html>oops</html>`)
		},
		"missing url": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"success":false,"status":400,"data":{}}`)
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()

			_, err := NewImgBB("key").WithEndpoint(srv.URL).Upload(context.Background(), writeImage(t), "a.jpg")
			assert.ErrorIs(t, err, ErrHostingUploadFailed)
		})
	}
}

func TestImgBBMissingKey(t *testing.T) {
	_, err := NewImgBB("").Upload(context.Background(), writeImage(t), "a.jpg")
	assert.ErrorIs(t, err, ErrHostingUploadFailed)
}

func TestImgurUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Client-ID client-123", r.Header.Get("Authorization"))
		assert.Equal(t, "file", r.FormValue("type"))
		_, _ = io.WriteString(w, `{"success":true,"status":200,"data":{"id":"xyz","link":"https://i.imgur.com/xyz.jpg"}}`)
	}))
	defer srv.Close()

	img, err := NewImgur("client-123").WithEndpoint(srv.URL).Upload(context.Background(), writeImage(t), "a.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://i.imgur.com/xyz.jpg", img.URL)
	assert.Equal(t, "https://i.imgur.com/xyz.jpg", img.DisplayURL)
	assert.Equal(t, "xyz", img.ID)
}

type slowHost struct{}

func (slowHost) Name() string { return "slow" }

func (slowHost) Upload(ctx context.Context, _, _ string) (*HostedImage, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type funcHost func() (*HostedImage, error)

func (funcHost) Name() string { return "func" }

func (f funcHost) Upload(context.Context, string, string) (*HostedImage, error) { return f() }

func TestBoundedTimeoutIsHostingFailure(t *testing.T) {
	start := time.Now()
	_, err := Bounded(slowHost{}, 20*time.Millisecond).Upload(context.Background(), "x", "x.jpg")

	assert.ErrorIs(t, err, ErrHostingUploadFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestBoundedClassifiesErrors(t *testing.T) {
	boom := errors.New("connection reset")
	_, err := Bounded(funcHost(func() (*HostedImage, error) { return nil, boom }), time.Second).Upload(context.Background(), "x", "x.jpg")
	assert.ErrorIs(t, err, ErrHostingUploadFailed)
	assert.ErrorIs(t, err, boom)

	_, err = Bounded(funcHost(func() (*HostedImage, error) { return &HostedImage{}, nil }), time.Second).Upload(context.Background(), "x", "x.jpg")
	assert.ErrorIs(t, err, ErrHostingUploadFailed)

	img, err := Bounded(funcHost(func() (*HostedImage, error) { return &HostedImage{URL: "https://h/1.jpg"}, nil }), time.Second).Upload(context.Background(), "x", "x.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://h/1.jpg", img.DisplayURL)
}

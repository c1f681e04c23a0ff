package hosting

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/templui/contentops/internal/storage"
)

// ObjectStore hosts images in an S3-compatible bucket.
type ObjectStore struct {
	store  storage.Storage
	prefix string
}

func NewObjectStore(store storage.Storage, prefix string) *ObjectStore {
	return &ObjectStore{store: store, prefix: strings.Trim(prefix, "/")}
}

func (h *ObjectStore) Name() string {
	return "s3"
}

func (h *ObjectStore) Upload(ctx context.Context, localPath, filename string) (*HostedImage, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	ext := strings.ToLower(filepath.Ext(filename))
	id := uuid.New().String()
	key := path.Join(h.prefix, id+ext)

	err = h.store.Save(ctx, key, f, mime.TypeByExtension(ext))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHostingUploadFailed, err)
	}

	return &HostedImage{
		URL:        h.store.URL(key),
		ID:         id,
		DisplayURL: h.store.DisplayURL(ctx, key),
	}, nil
}

package service

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/textproto"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/templui/contentops/internal/archive"
	"github.com/templui/contentops/internal/db/dbtest"
	"github.com/templui/contentops/internal/extsync"
	"github.com/templui/contentops/internal/hosting"
	"github.com/templui/contentops/internal/model"
	"github.com/templui/contentops/internal/repository"
	"github.com/templui/contentops/internal/validation"
)

var jpegBytes = append([]byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00"), bytes.Repeat([]byte{7}, 128)...)

type fakeHost struct {
	mu    sync.Mutex
	err   error
	calls int
	// sawFile records whether the temp file existed while the host read it
	sawFile bool
}

func (h *fakeHost) Name() string { return "fake" }

func (h *fakeHost) Upload(_ context.Context, path, filename string) (*hosting.HostedImage, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	_, statErr := os.Stat(path)
	h.sawFile = statErr == nil
	if h.err != nil {
		return nil, h.err
	}
	return &hosting.HostedImage{
		URL: fmt.Sprintf("https://i.ibb.co/%d/%s", h.calls, filename),
		ID:  fmt.Sprintf("img-%d", h.calls),
	}, nil
}

type fakeTarget struct {
	mu      sync.Mutex
	err     error
	updates []extsync.Update
}

func (f *fakeTarget) Name() string { return "fake-sync" }

func (f *fakeTarget) Push(_ context.Context, upd extsync.Update) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, upd)
	return f.err
}

type fixture struct {
	articleRepo  repository.ArticleRepository
	tokenRepo    repository.UploadTokenRepository
	activityRepo repository.ActivityRepository
	articles     *ArticleService
	tokens       *UploadTokenService
	uploads      *UploadService
	host         *fakeHost
	target       *fakeTarget
	tempDir      string
	logs         *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	database := dbtest.Open(t)
	f := &fixture{
		articleRepo:  repository.NewArticleRepository(database),
		tokenRepo:    repository.NewUploadTokenRepository(database),
		activityRepo: repository.NewActivityRepository(database),
		host:         &fakeHost{},
		target:       &fakeTarget{},
		tempDir:      t.TempDir(),
		logs:         &bytes.Buffer{},
	}

	syncer := extsync.NewSyncer(time.Second, f.target).WithLogger(slog.New(slog.NewTextHandler(f.logs, nil)))
	f.articles = NewArticleService(f.articleRepo)
	f.tokens = NewUploadTokenService(f.tokenRepo, f.activityRepo, f.articles, "https://ops.example.com/", 32, 7)
	f.uploads = NewUploadService(
		f.articles,
		f.articleRepo,
		f.tokenRepo,
		f.activityRepo,
		f.host,
		archive.NewProcessor(f.tempDir, false),
		syncer,
		f.tempDir,
	)
	return f
}

func (f *fixture) article(t *testing.T, status string) *model.Article {
	t.Helper()
	recordID := "rec" + status
	a := &model.Article{Title: "Spring issue", Status: status, AirtableID: &recordID}
	require.NoError(t, f.articleRepo.Create(context.Background(), a))
	return a
}

func (f *fixture) token(t *testing.T, articleID string, maxUses int, kinds ...model.UploadKind) *model.UploadToken {
	t.Helper()
	if len(kinds) == 0 {
		kinds = model.AllUploadKinds
	}
	tok := &model.UploadToken{
		Token:       "tok-" + uuid.NewString(),
		ArticleID:   articleID,
		UploadTypes: kinds,
		ExpiresAt:   time.Now().Add(time.Hour),
		MaxUses:     maxUses,
		Active:      true,
	}
	require.NoError(t, f.tokenRepo.Create(context.Background(), tok))
	return tok
}

// assertNoTempFiles checks that nothing created during a request is left on disk.
func (f *fixture) assertNoTempFiles(t *testing.T) {
	t.Helper()
	left, err := os.ReadDir(f.tempDir)
	require.NoError(t, err)
	require.Empty(t, left)
}

func fileHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["file"][0]
}

func zipBytes(t *testing.T, files map[string]string, order ...string) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, name := range order {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func generateRequest(articleID string, maxUses int, kinds ...model.UploadKind) validation.TokenRequest {
	return validation.TokenRequest{
		ArticleID:     articleID,
		UploadTypes:   kinds,
		ExpiresInDays: 1,
		MaxUses:       maxUses,
	}
}

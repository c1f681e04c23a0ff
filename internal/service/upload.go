package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/templui/contentops/internal/apperr"
	"github.com/templui/contentops/internal/archive"
	"github.com/templui/contentops/internal/extsync"
	"github.com/templui/contentops/internal/hosting"
	"github.com/templui/contentops/internal/model"
	"github.com/templui/contentops/internal/repository"
	"github.com/templui/contentops/internal/validation"
)

// UploadRequest is one file upload against an article. Token is nil on the
// open endpoints, where ArticleID comes from the form. Article is the record
// already loaded by token verification; only its status is checked again.
type UploadRequest struct {
	Kind      model.UploadKind
	ArticleID string
	Token     *model.UploadToken
	Article   *model.Article
	File      *multipart.FileHeader
	ClientIP  string
}

type ArchiveResult struct {
	Entry         string `json:"entry"`
	Files         int    `json:"files"`
	ContentLength int    `json:"contentLength"`
	ContentFormat string `json:"contentFormat"`
}

type UploadResult struct {
	Success  bool                 `json:"success"`
	Message  string               `json:"message"`
	ImageURL string               `json:"imageUrl,omitempty"`
	Result   *ArchiveResult       `json:"result,omitempty"`
	Article  model.ArticleSummary `json:"article"`
	// RemainingUses is set on token-gated uploads; -1 means unlimited
	RemainingUses *int `json:"remainingUses,omitempty"`
}

type UploadService struct {
	articleService *ArticleService
	articleRepo    repository.ArticleRepository
	tokenRepo      repository.UploadTokenRepository
	activityRepo   repository.ActivityRepository
	host           hosting.Host
	archive        *archive.Processor
	syncer         *extsync.Syncer
	tempDir        string
}

func NewUploadService(
	articleService *ArticleService,
	articleRepo repository.ArticleRepository,
	tokenRepo repository.UploadTokenRepository,
	activityRepo repository.ActivityRepository,
	host hosting.Host,
	archiveProcessor *archive.Processor,
	syncer *extsync.Syncer,
	tempDir string,
) *UploadService {
	return &UploadService{
		articleService: articleService,
		articleRepo:    articleRepo,
		tokenRepo:      tokenRepo,
		activityRepo:   activityRepo,
		host:           host,
		archive:        archiveProcessor,
		syncer:         syncer,
		tempDir:        tempDir,
	}
}

// Upload validates, stores, processes and persists one file, then records
// usage and pushes the result to external systems. Client cancellation is
// ignored once Upload starts so temp files are always released.
func (s *UploadService) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	ctx = context.WithoutCancel(ctx)

	err := validation.ValidateUploadKind(req.Kind)
	if err != nil {
		return nil, err
	}

	article, err := s.target(ctx, req)
	if err != nil {
		return nil, err
	}

	if req.File == nil {
		return nil, apperr.Validation("No file uploaded")
	}
	err = validation.ValidateFile(req.File, validation.ConstraintsFor(req.Kind))
	if err != nil {
		return nil, err
	}

	upload, err := s.intake(req.File)
	if err != nil {
		return nil, err
	}
	defer s.release(upload)

	var (
		value  string
		result = &UploadResult{
			Success: true,
			Article: model.ArticleSummary{ID: article.ID, Title: article.Title},
		}
	)

	switch {
	case req.Kind.IsImage():
		value, err = s.processImage(ctx, article, req.Kind, upload)
		if err != nil {
			return nil, err
		}
		result.ImageURL = value
		result.Message = imageMessage(req.Kind)
	case req.Kind == model.UploadKindHTMLZip:
		var archived *ArchiveResult
		value, archived, err = s.processArchive(ctx, article, upload)
		if err != nil {
			return nil, err
		}
		result.Result = archived
		result.Message = "HTML content uploaded successfully"
	default:
		return nil, apperr.Validation(fmt.Sprintf("Unsupported upload type %q", req.Kind))
	}

	if req.Token != nil {
		result.RemainingUses = s.recordUse(ctx, req.Token)
	}

	s.logUpload(ctx, req, upload, article, value)

	s.syncer.Push(ctx, extsync.Update{Article: article, Kind: req.Kind, Value: value})

	slog.Info("public upload completed",
		"article_id", article.ID,
		"upload_type", string(req.Kind),
		"token_gated", req.Token != nil,
		"size", upload.Size,
		"client_ip", req.ClientIP,
	)
	return result, nil
}

// target returns the article the upload writes to.
func (s *UploadService) target(ctx context.Context, req UploadRequest) (*model.Article, error) {
	if req.Token == nil {
		return s.articleService.UploadTarget(ctx, req.ArticleID)
	}
	if req.Article != nil && req.Article.ID == req.Token.ArticleID {
		return CheckUploadable(req.Article)
	}
	return s.articleService.UploadTarget(ctx, req.Token.ArticleID)
}

// intake copies the multipart file to a request-scoped temp file.
func (s *UploadService) intake(header *multipart.FileHeader) (*model.UploadFile, error) {
	src, err := header.Open()
	if err != nil {
		return nil, apperr.Validation("Failed to read uploaded file")
	}
	defer func() { _ = src.Close() }()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	dst, err := os.CreateTemp(s.tempDir, "upload-*"+ext)
	if err != nil {
		return nil, apperr.Internal("Failed to store upload", err)
	}

	size, err := io.Copy(dst, src)
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst.Name())
		return nil, apperr.Internal("Failed to store upload", err)
	}

	return &model.UploadFile{
		Path:         dst.Name(),
		MimeType:     header.Header.Get("Content-Type"),
		OriginalName: filepath.Base(header.Filename),
		Size:         size,
	}, nil
}

func (s *UploadService) release(upload *model.UploadFile) {
	err := os.Remove(upload.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to remove upload temp file", "error", err)
	}
}

func (s *UploadService) processImage(ctx context.Context, article *model.Article, kind model.UploadKind, upload *model.UploadFile) (string, error) {
	img, err := s.host.Upload(ctx, upload.Path, upload.OriginalName)
	if err != nil {
		return "", apperr.Processing("Failed to upload image to hosting service", err)
	}

	field := model.ImageField(kind)
	err = s.articleRepo.UpdateField(ctx, article.ID, field, img.URL)
	if err != nil {
		return "", persistError(err)
	}

	if field == model.ArticleFieldInstagramImageURL {
		article.InstagramImageURL = img.URL
	} else {
		article.ImageURL = img.URL
	}
	return img.URL, nil
}

func (s *UploadService) processArchive(ctx context.Context, article *model.Article, upload *model.UploadFile) (string, *ArchiveResult, error) {
	res, err := s.archive.Process(ctx, upload.Path)
	if err != nil {
		switch {
		case errors.Is(err, archive.ErrCorruptArchive):
			return "", nil, apperr.Processing("Uploaded file is not a valid zip archive", err)
		case errors.Is(err, archive.ErrNoMarkupFound):
			return "", nil, apperr.Processing("No .html or .htm file found in the archive", err)
		case errors.Is(err, archive.ErrArchiveTooBig):
			return "", nil, apperr.Processing("Archive is too large once extracted", err)
		default:
			return "", nil, apperr.Processing("Failed to process archive", err)
		}
	}

	err = s.articleRepo.UpdateContent(ctx, article.ID, res.Content, model.ContentFormatMarkup)
	if err != nil {
		return "", nil, persistError(err)
	}
	article.Content = res.Content
	article.ContentFormat = model.ContentFormatMarkup

	return res.Content, &ArchiveResult{
		Entry:         res.Entry,
		Files:         res.Files,
		ContentLength: len(res.Content),
		ContentFormat: model.ContentFormatMarkup,
	}, nil
}

// recordUse increments the usage counter after the article was updated.
// Losing a race for the last use leaves the update in place.
func (s *UploadService) recordUse(ctx context.Context, tok *model.UploadToken) *int {
	updated, err := s.tokenRepo.IncrementUses(ctx, tok.ID)
	if err != nil {
		if errors.Is(err, repository.ErrTokenExhausted) {
			slog.Warn("upload token exhausted by a concurrent upload", "token_id", tok.ID, "article_id", tok.ArticleID)
		} else {
			slog.Error("failed to increment upload token usage", "error", err, "token_id", tok.ID)
		}
		return nil
	}
	remaining := updated.RemainingUses()
	return &remaining
}

// logUpload writes the advisory activity entry.
func (s *UploadService) logUpload(ctx context.Context, req UploadRequest, upload *model.UploadFile, article *model.Article, value string) {
	details := map[string]any{
		"filename": upload.OriginalName,
		"size":     upload.Size,
		"mimeType": upload.MimeType,
	}
	if req.Kind.IsImage() {
		details["url"] = value
	}
	raw, err := json.Marshal(details)
	if err != nil {
		raw = []byte("{}")
	}

	entry := &model.Activity{
		Action:     model.ActivityPublicUpload,
		ArticleID:  article.ID,
		UploadType: string(req.Kind),
		ClientIP:   req.ClientIP,
		Details:    string(raw),
	}
	if req.Token != nil {
		entry.TokenID = &req.Token.ID
	}

	err = s.activityRepo.Create(ctx, entry)
	if err != nil {
		slog.Warn("failed to write activity log", "error", err, "article_id", article.ID, "upload_type", string(req.Kind))
	}
}

func persistError(err error) error {
	if errors.Is(err, repository.ErrArticleNotFound) {
		return apperr.NotFound("Article not found", err)
	}
	return apperr.Internal("Failed to update article", err)
}

func imageMessage(kind model.UploadKind) string {
	if kind == model.UploadKindInstagramImage {
		return "Instagram image uploaded successfully"
	}
	return "Image uploaded successfully"
}

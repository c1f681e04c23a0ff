package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/templui/contentops/internal/apperr"
	"github.com/templui/contentops/internal/model"
	"github.com/templui/contentops/internal/repository"
	"github.com/templui/contentops/internal/token"
	"github.com/templui/contentops/internal/validation"
)

type UploadTokenService struct {
	tokenRepo         repository.UploadTokenRepository
	activityRepo      repository.ActivityRepository
	articleService    *ArticleService
	appURL            string
	tokenLength       int
	defaultExpiryDays int
	now               func() time.Time
}

func NewUploadTokenService(
	tokenRepo repository.UploadTokenRepository,
	activityRepo repository.ActivityRepository,
	articleService *ArticleService,
	appURL string,
	tokenLength int,
	defaultExpiryDays int,
) *UploadTokenService {
	if tokenLength <= 0 {
		tokenLength = token.DefaultLength
	}
	if defaultExpiryDays <= 0 {
		defaultExpiryDays = token.DefaultExpiryDays
	}
	return &UploadTokenService{
		tokenRepo:         tokenRepo,
		activityRepo:      activityRepo,
		articleService:    articleService,
		appURL:            strings.TrimRight(appURL, "/"),
		tokenLength:       tokenLength,
		defaultExpiryDays: defaultExpiryDays,
		now:               time.Now,
	}
}

// GeneratedToken is returned to the operator who created the token.
type GeneratedToken struct {
	Token      *model.UploadToken          `json:"token"`
	UploadURLs map[model.UploadKind]string `json:"uploadUrls"`
	InfoURL    string                      `json:"infoUrl"`
}

// TokenInfo is what an anonymous holder of a token may see.
type TokenInfo struct {
	Name          string               `json:"name"`
	UploadTypes   model.UploadKinds    `json:"uploadTypes"`
	ExpiresAt     time.Time            `json:"expiresAt"`
	MaxUses       int                  `json:"maxUses"`
	Uses          int                  `json:"uses"`
	RemainingUses int                  `json:"remainingUses"`
	Article       model.ArticleSummary `json:"article"`
}

func (s *UploadTokenService) Generate(ctx context.Context, operatorID string, req validation.TokenRequest) (*GeneratedToken, error) {
	req.ArticleID = strings.TrimSpace(req.ArticleID)
	req.Name = strings.TrimSpace(req.Name)
	req.UploadTypes = dedupeKinds(req.UploadTypes)
	if len(req.UploadTypes) == 0 {
		req.UploadTypes = append(model.UploadKinds{}, model.AllUploadKinds...)
	}
	if req.ExpiresInDays == 0 {
		req.ExpiresInDays = s.defaultExpiryDays
	}

	err := validation.ValidateTokenRequest(req)
	if err != nil {
		return nil, err
	}

	article, err := s.articleService.ByID(ctx, req.ArticleID)
	if err != nil {
		return nil, err
	}

	value, err := token.GenerateUnique(ctx, s.tokenRepo.Exists, s.tokenLength)
	if err != nil {
		return nil, apperr.Internal("Failed to generate upload token", err)
	}

	tok := &model.UploadToken{
		Token:       value,
		ArticleID:   article.ID,
		UploadTypes: model.UploadKinds(req.UploadTypes),
		ExpiresAt:   token.ExpirationDateFrom(s.now(), req.ExpiresInDays),
		MaxUses:     req.MaxUses,
		Active:      true,
		Name:        req.Name,
		Notes:       req.Notes,
	}
	if operatorID != "" {
		tok.CreatedBy = &operatorID
	}

	err = s.tokenRepo.Create(ctx, tok)
	if err != nil {
		return nil, apperr.Internal("Failed to create upload token", err)
	}

	slog.Info("upload token created", "token_id", tok.ID, "article_id", tok.ArticleID, "upload_types", tok.UploadTypes.String(), "operator_id", operatorID)
	s.logActivity(ctx, model.ActivityTokenCreated, tok, map[string]any{
		"name":      tok.Name,
		"maxUses":   tok.MaxUses,
		"expiresAt": tok.ExpiresAt,
	})

	return &GeneratedToken{
		Token:      tok,
		UploadURLs: s.uploadURLs(tok),
		InfoURL:    fmt.Sprintf("%s/public-upload/info/%s", s.appURL, tok.Token),
	}, nil
}

// Verify runs the ordered token checks for an upload of kind.
// It never changes the usage counter; an expired token is deactivated.
func (s *UploadTokenService) Verify(ctx context.Context, value string, kind model.UploadKind) (*model.UploadToken, *model.Article, error) {
	tok, err := s.lookup(ctx, value)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	if !tok.Usable(now, kind) {
		err = s.reject(ctx, tok, now)
		if err == nil {
			err = apperr.Forbidden(fmt.Sprintf("This token does not support %s uploads; supported: %s", kind, tok.UploadTypes))
		}
		return nil, nil, err
	}

	article, err := s.articleService.ByID(ctx, tok.ArticleID)
	if err != nil {
		return nil, nil, err
	}
	return tok, article, nil
}

// Info runs the same checks as Verify except the kind check.
func (s *UploadTokenService) Info(ctx context.Context, value string) (*TokenInfo, error) {
	tok, err := s.lookup(ctx, value)
	if err != nil {
		return nil, err
	}
	err = s.reject(ctx, tok, s.now())
	if err != nil {
		return nil, err
	}

	article, err := s.articleService.ByID(ctx, tok.ArticleID)
	if err != nil {
		return nil, err
	}

	return &TokenInfo{
		Name:          tok.Name,
		UploadTypes:   tok.UploadTypes,
		ExpiresAt:     tok.ExpiresAt,
		MaxUses:       tok.MaxUses,
		Uses:          tok.Uses,
		RemainingUses: tok.RemainingUses(),
		Article: model.ArticleSummary{
			ID:     article.ID,
			Title:  article.Title,
			Status: article.Status,
		},
	}, nil
}

// ListByArticle deactivates expired tokens of the article before returning them.
func (s *UploadTokenService) ListByArticle(ctx context.Context, articleID string) ([]*model.UploadToken, error) {
	err := validation.ValidateArticleID(articleID)
	if err != nil {
		return nil, err
	}

	tokens, err := s.tokenRepo.ByArticle(ctx, strings.TrimSpace(articleID))
	if err != nil {
		return nil, apperr.Internal("Failed to load upload tokens", err)
	}

	now := s.now()
	for _, tok := range tokens {
		if tok.Active && tok.IsExpired(now) {
			s.expire(ctx, tok)
		}
	}

	if tokens == nil {
		tokens = []*model.UploadToken{}
	}
	return tokens, nil
}

func (s *UploadTokenService) Delete(ctx context.Context, operatorID, id string) error {
	tok, err := s.tokenRepo.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return apperr.NotFound("Upload token not found", err)
		}
		return apperr.Internal("Failed to load upload token", err)
	}

	err = s.tokenRepo.Delete(ctx, tok.ID)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return apperr.NotFound("Upload token not found", err)
		}
		return apperr.Internal("Failed to delete upload token", err)
	}

	slog.Info("upload token deleted", "token_id", tok.ID, "article_id", tok.ArticleID, "operator_id", operatorID)
	s.logActivity(ctx, model.ActivityTokenDeleted, tok, map[string]any{"uses": tok.Uses})
	return nil
}

// lookup loads the token named by value.
func (s *UploadTokenService) lookup(ctx context.Context, value string) (*model.UploadToken, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, apperr.Unauthorized("Upload token is required", nil)
	}

	tok, err := s.tokenRepo.ByToken(ctx, value)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return nil, apperr.Unauthorized("Invalid upload token", err)
		}
		return nil, apperr.Internal("Failed to load upload token", err)
	}
	return tok, nil
}

// reject returns the first failing token-side check in order: active, expiry, usage.
// It returns nil when only the kind check can fail.
func (s *UploadTokenService) reject(ctx context.Context, tok *model.UploadToken, now time.Time) error {
	if !tok.Active {
		return apperr.Unauthorized("Upload token is no longer active", nil)
	}

	if tok.IsExpired(now) {
		s.expire(ctx, tok)
		return apperr.Unauthorized("Upload token has expired", nil)
	}

	if tok.IsExhausted() {
		return apperr.Unauthorized("Upload token has reached its maximum number of uses", nil)
	}

	return nil
}

// expire flips active to false. Concurrent calls write the same value.
func (s *UploadTokenService) expire(ctx context.Context, tok *model.UploadToken) {
	err := s.tokenRepo.Deactivate(ctx, tok.ID)
	if err != nil {
		slog.Warn("failed to deactivate expired upload token", "error", err, "token_id", tok.ID)
		return
	}
	tok.Active = false
	slog.Info("upload token expired", "token_id", tok.ID, "article_id", tok.ArticleID, "expired_at", tok.ExpiresAt)
	s.logActivity(ctx, model.ActivityTokenExpired, tok, nil)
}

func (s *UploadTokenService) logActivity(ctx context.Context, action string, tok *model.UploadToken, details map[string]any) {
	raw := []byte("{}")
	if details != nil {
		encoded, err := json.Marshal(details)
		if err == nil {
			raw = encoded
		}
	}

	err := s.activityRepo.Create(ctx, &model.Activity{
		Action:    action,
		ArticleID: tok.ArticleID,
		TokenID:   &tok.ID,
		Details:   string(raw),
	})
	if err != nil {
		slog.Warn("failed to write activity log", "error", err, "action", action, "token_id", tok.ID)
	}
}

func (s *UploadTokenService) uploadURLs(tok *model.UploadToken) map[model.UploadKind]string {
	urls := make(map[model.UploadKind]string, len(tok.UploadTypes))
	for _, kind := range tok.UploadTypes {
		urls[kind] = fmt.Sprintf("%s/public-upload/%s/%s", s.appURL, kind, tok.Token)
	}
	return urls
}

func dedupeKinds(kinds []model.UploadKind) []model.UploadKind {
	seen := make(map[model.UploadKind]bool, len(kinds))
	out := make([]model.UploadKind, 0, len(kinds))
	for _, k := range kinds {
		k = model.UploadKind(strings.TrimSpace(string(k)))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

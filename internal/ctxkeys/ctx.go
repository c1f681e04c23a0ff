package ctxkeys

import (
	"context"

	"github.com/templui/contentops/internal/model"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	UploadTokenKey contextKey = "upload_token"
	ArticleKey     contextKey = "article"
	OperatorKey    contextKey = "operator"
	ClientIPKey    contextKey = "client_ip"
)

// Operator is the authenticated dashboard user behind a privileged request.
type Operator struct {
	ID    string
	Email string
}

func UploadToken(ctx context.Context) *model.UploadToken {
	token, _ := ctx.Value(UploadTokenKey).(*model.UploadToken)
	return token
}

func WithUploadToken(ctx context.Context, token *model.UploadToken) context.Context {
	return context.WithValue(ctx, UploadTokenKey, token)
}

func Article(ctx context.Context) *model.Article {
	article, _ := ctx.Value(ArticleKey).(*model.Article)
	return article
}

func WithArticle(ctx context.Context, article *model.Article) context.Context {
	return context.WithValue(ctx, ArticleKey, article)
}

func CurrentOperator(ctx context.Context) *Operator {
	op, _ := ctx.Value(OperatorKey).(*Operator)
	return op
}

func WithOperator(ctx context.Context, op *Operator) context.Context {
	return context.WithValue(ctx, OperatorKey, op)
}

func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(ClientIPKey).(string)
	return ip
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ClientIPKey, ip)
}

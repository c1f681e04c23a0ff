package routes

import (
	"net/http"

	"github.com/templui/contentops/internal/app"
	"github.com/templui/contentops/internal/handler"
	"github.com/templui/contentops/internal/middleware"
	"github.com/templui/contentops/internal/model"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	home := handler.NewHomeHandler(app.DB)
	articles := handler.NewArticleHandler(app.ArticleService)
	uploads := handler.NewPublicUploadHandler(app.UploadService, app.UploadTokenService)
	tokens := handler.NewUploadTokenHandler(app.UploadTokenService)

	rateLimit := middleware.RateLimit(app.RateLimiter)
	verifyToken := middleware.VerifyUploadToken(app.UploadTokenService)
	requireOperator := middleware.RequireOperator(app.Cfg.JWTSecret)
	csrf := middleware.CSRFProtection(app.Cfg.IsProduction())
	operator := func(next http.HandlerFunc) http.HandlerFunc {
		return requireOperator(csrf(next))
	}

	mux := http.NewServeMux()

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	mux.HandleFunc("GET /healthz", home.Health)
	mux.HandleFunc("GET /articles/uploadable", articles.Uploadable)

	// Open uploads (rate limited)
	mux.HandleFunc("POST /public-upload/image", rateLimit(uploads.Open(model.UploadKindImage)))
	mux.HandleFunc("POST /public-upload/instagram-image", rateLimit(uploads.Open(model.UploadKindInstagramImage)))
	mux.HandleFunc("POST /public-upload/html-zip", rateLimit(uploads.Open(model.UploadKindHTMLZip)))

	// Token-gated uploads. {uploadType} also serves /public-upload/image/{token} and friends.
	mux.HandleFunc("GET /public-upload/info/{token}", uploads.Info)
	mux.HandleFunc("POST /public-upload/{uploadType}/{token}", rateLimit(verifyToken(uploads.WithToken)))
	// An empty token segment answers 401 instead of falling through to NotFound
	mux.HandleFunc("POST /public-upload/{uploadType}/{$}", rateLimit(verifyToken(uploads.WithToken)))

	// ============================================================================
	// OPERATOR ROUTES
	// ============================================================================

	mux.HandleFunc("POST /public-upload/generate-token", operator(tokens.Generate))
	mux.HandleFunc("GET /public-upload/tokens/{articleId}", operator(tokens.List))
	mux.HandleFunc("DELETE /public-upload/tokens/{id}", operator(tokens.Delete))

	// ============================================================================
	// FALLBACK
	// ============================================================================

	mux.HandleFunc("/{path...}", home.NotFound)

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		middleware.SecurityHeaders,
		middleware.WithClientIP(app.Cfg.TrustedProxies),
		middleware.RequestLogging,
	)

	return handler
}

package middleware

import (
	"log/slog"
	"net/http"

	"github.com/templui/contentops/internal/apperr"
	"github.com/templui/contentops/internal/ctxkeys"
	"github.com/templui/contentops/internal/model"
	"github.com/templui/contentops/internal/service"
	"github.com/templui/contentops/internal/ui"
	"github.com/templui/contentops/internal/validation"
)

// VerifyUploadToken checks the {token} path value against the {uploadType}
// path value and stores the token and its article in the context.
// It never consumes a use.
func VerifyUploadToken(tokens *service.UploadTokenService) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			kind := model.UploadKind(r.PathValue("uploadType"))
			err := validation.ValidateUploadKind(kind)
			if err != nil {
				ui.Error(w, r, err)
				return
			}

			tok, article, err := tokens.Verify(r.Context(), r.PathValue("token"), kind)
			if err != nil {
				if apperr.KindOf(err) != apperr.KindInternal {
					slog.Info("upload token rejected",
						"reason", apperr.Message(err),
						"upload_type", string(kind),
						"ip", ClientIP(r),
					)
				}
				ui.Error(w, r, err)
				return
			}

			ctx := ctxkeys.WithUploadToken(r.Context(), tok)
			ctx = ctxkeys.WithArticle(ctx, article)
			next(w, r.WithContext(ctx))
		}
	}
}

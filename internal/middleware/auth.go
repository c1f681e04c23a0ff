package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/templui/contentops/internal/apperr"
	"github.com/templui/contentops/internal/ctxkeys"
	"github.com/templui/contentops/internal/ui"
)

const authCookieName = "auth_token"

var errNoCredentials = errors.New("no bearer token or auth cookie")

// RequireOperator accepts an HS256 JWT issued by the dashboard, from the
// Authorization header or the auth_token cookie, and puts the operator in the context.
func RequireOperator(jwtSecret string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				cookie, err := r.Cookie(authCookieName)
				if err == nil {
					raw = cookie.Value
				}
			}
			if raw == "" {
				ui.Error(w, r, apperr.Unauthorized("Authentication required", errNoCredentials))
				return
			}

			op, err := verifyOperator(raw, jwtSecret)
			if err != nil {
				ui.Error(w, r, apperr.Unauthorized("Authentication required", err))
				return
			}

			ctx := ctxkeys.WithOperator(r.Context(), op)
			next.ServeHTTP(w, r.WithContext(ctx))
		}
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, value, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(value)
}

func verifyOperator(raw, secret string) (*ctxkeys.Operator, error) {
	token, err := jwt.Parse(raw, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, fmt.Errorf("token has no user_id claim")
	}
	email, _ := claims["email"].(string)

	return &ctxkeys.Operator{ID: userID, Email: email}, nil
}

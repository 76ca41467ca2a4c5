// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hitoshi/taskhub/internal/auth"
	"github.com/hitoshi/taskhub/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// requestContextKey はリクエストコンテキストに認証結果を格納するためのキー。
var requestContextKey = contextKey("request_context")

// ContextBuilder はAuthorizationヘッダーから認証結果を組み立てる。失敗はしない。
type ContextBuilder interface {
	BuildContext(header string) auth.RequestContext
}

// HeaderAuthenticator はAuthorizationヘッダーを検証する。
type HeaderAuthenticator interface {
	Authenticate(header string) (*auth.Payload, error)
}

// AuthFailureRecorder は認証失敗を記録する。
type AuthFailureRecorder interface {
	RecordAuthFailure(reason string)
}

// NewRequestContextMiddleware は全リクエストの認証結果をコンテキストに格納するミドルウェアを返す。
// トークンが無い・不正な場合も拒否せず、未認証として次に渡す。
func NewRequestContextMiddleware(builder ContextBuilder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rc := builder.BuildContext(r.Header.Get("Authorization"))
			next.ServeHTTP(w, r.WithContext(ContextWithRequestContext(r.Context(), rc)))
		})
	}
}

// NewRequireAuthMiddleware は認証必須のルートを保護するミドルウェアを返す。
// トークンが無い場合は "Authentication required"、検証に失敗した場合は "Invalid token" を
// field "auth" で401として返す。recorderはnilでもよい。
func NewRequireAuthMiddleware(authenticator HeaderAuthenticator, recorder AuthFailureRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			payload, err := authenticator.Authenticate(r.Header.Get("Authorization"))
			if err != nil {
				apiErr, reason := authFailure(err)
				if recorder != nil {
					recorder.RecordAuthFailure(reason)
				}
				slog.Debug("request rejected",
					slog.String("reason", reason),
					slog.String("path", r.URL.Path),
				)
				WriteAPIError(w, apiErr)
				return
			}

			rc := auth.RequestContext{
				User:            &auth.ContextUser{ID: payload.UserID},
				IsAuthenticated: true,
			}
			next.ServeHTTP(w, r.WithContext(ContextWithRequestContext(r.Context(), rc)))
		})
	}
}

func authFailure(err error) (*model.APIError, string) {
	if errors.Is(err, auth.ErrAuthenticationRequired) {
		return model.NewAuthenticationRequiredError(), "authentication_required"
	}
	return model.NewInvalidTokenError(), "invalid_token"
}

// RequestContextFrom はコンテキストから認証結果を取得する。
// 格納されていない場合は未認証を返す。
func RequestContextFrom(ctx context.Context) auth.RequestContext {
	rc, _ := ctx.Value(requestContextKey).(auth.RequestContext)
	return rc
}

// ContextWithRequestContext はコンテキストに認証結果を格納する。
func ContextWithRequestContext(ctx context.Context, rc auth.RequestContext) context.Context {
	return context.WithValue(ctx, requestContextKey, rc)
}

// UserIDFromContext はリクエストコンテキストから認証済みユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	userID := RequestContextFrom(ctx).UserID()
	if userID == "" {
		return "", fmt.Errorf("user ID not found in context")
	}
	return userID, nil
}

// ContextWithUserID は認証済みユーザーIDをコンテキストに格納する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return ContextWithRequestContext(ctx, auth.RequestContext{
		User:            &auth.ContextUser{ID: userID},
		IsAuthenticated: true,
	})
}

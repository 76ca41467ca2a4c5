package middleware

import "net/http"

// apiSecurityHeaders はJSON APIの全レスポンスに付与するヘッダー。
// すべてのレスポンスをキャッシュ不可にする。
var apiSecurityHeaders = []struct{ name, value string }{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Referrer-Policy", "no-referrer"},
	{"Cache-Control", "no-store"},
}

// NewSecurityHeadersMiddleware はAPIレスポンス用のセキュリティヘッダーを付与するミドルウェアを返す。
// ハンドラーが設定したCache-Controlは上書きしない。
func NewSecurityHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, sh := range apiSecurityHeaders {
				h.Set(sh.name, sh.value)
			}
			next.ServeHTTP(w, r)
		})
	}
}

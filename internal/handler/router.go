package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/taskhub/internal/middleware"
)

// Authenticator はリクエストの認証に使う。*auth.Authenticatorが満たす。
type Authenticator interface {
	middleware.ContextBuilder
	middleware.HeaderAuthenticator
}

// MetricsRecorder はミドルウェアが記録するメトリクス。*metrics.Collectorが満たす。
type MetricsRecorder interface {
	middleware.HTTPRecorder
	middleware.AuthFailureRecorder
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Authenticator      Authenticator
	Metrics            MetricsRecorder
	CORSAllowedOrigins []string
	RateLimiter        *middleware.RateLimiter

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// サービス
	AuthService    AuthServiceInterface
	UserService    UserServiceInterface
	ProjectService ProjectServiceInterface
	TaskService    TaskServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Recovery → SecurityHeaders → CORS → RequestContext → Logging → Metrics → RateLimit(General)
//
// RequestContextは拒否しない。認証必須のルートはRequireAuthで保護する。
// ログイン・登録・ユーザー作成にはIP単位の試行回数制限を追加する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))
	r.Use(middleware.NewRequestContextMiddleware(deps.Authenticator))
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	r.Use(deps.RateLimiter.GeneralMiddleware())

	authHandler := NewAuthHandler(deps.AuthService)
	userHandler := NewUserHandler(deps.UserService)
	projectHandler := NewProjectHandler(deps.ProjectService)
	taskHandler := NewTaskHandler(deps.TaskService)

	requireAuth := middleware.NewRequireAuthMiddleware(deps.Authenticator, deps.Metrics)
	authAttempts := deps.RateLimiter.AuthMiddleware()

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.With(authAttempts).Post("/register", authHandler.Register)
		r.With(authAttempts).Post("/login", authHandler.Login)
		r.With(requireAuth).Post("/logout", authHandler.Logout)
	})

	// ユーザー（作成のみ認証不要）
	r.Route("/api/users", func(r chi.Router) {
		r.With(authAttempts).Post("/", userHandler.CreateUser)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", userHandler.Me)
			r.Patch("/me", userHandler.UpdateMe)
			r.Delete("/me", userHandler.DeleteMe)
			r.Get("/{id}", userHandler.GetUser)
		})
	})

	// --- 認証が必要なルート ---

	// プロジェクト
	r.Route("/api/projects", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", projectHandler.ListProjects)
		r.Post("/", projectHandler.CreateProject)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", projectHandler.GetProject)
			r.Patch("/", projectHandler.UpdateProject)
			r.Delete("/", projectHandler.DeleteProject)
		})
	})

	// タスク
	r.Route("/api/tasks", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", taskHandler.ListTasks)
		r.Post("/", taskHandler.CreateTask)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", taskHandler.GetTask)
			r.Patch("/", taskHandler.UpdateTask)
			r.Delete("/", taskHandler.DeleteTask)
		})
	})

	return r
}

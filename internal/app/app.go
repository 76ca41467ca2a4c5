// Package app はコマンドの解析、依存関係のワイヤリング、サーバーの起動と停止を行う。
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/net/netutil"

	"github.com/hitoshi/taskhub/internal/auth"
	"github.com/hitoshi/taskhub/internal/config"
	"github.com/hitoshi/taskhub/internal/database"
	"github.com/hitoshi/taskhub/internal/handler"
	"github.com/hitoshi/taskhub/internal/logger"
	"github.com/hitoshi/taskhub/internal/metrics"
	"github.com/hitoshi/taskhub/internal/middleware"
	"github.com/hitoshi/taskhub/internal/project"
	"github.com/hitoshi/taskhub/internal/repository"
	"github.com/hitoshi/taskhub/internal/security"
	"github.com/hitoshi/taskhub/internal/task"
	"github.com/hitoshi/taskhub/internal/user"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間。
const shutdownTimeout = 30 * time.Second

// Init はアプリケーションの初期化を行う。
// .envがあれば読み込み、環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. .envの読み込み（存在しなくてもエラーにしない）
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	// 2. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// 3. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 4. トークンの有効期間は起動時に検証する
	if _, err := auth.ParseTokenDuration(cfg.JWTExpiresIn); err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRES_IN: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	inv, err := ParseArgs(args)
	if err != nil {
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if inv.Command == CommandHealthcheck {
		return runHealthcheck(healthcheckPort())
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(inv.Command)),
		slog.String("port", cfg.ServerPort),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	switch inv.Command {
	case CommandMigrate:
		return runMigrate(cfg, inv.Direction)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.Open(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, "taskhub"),
	)
	collector := metrics.NewCollector(registry)

	// 3. ワイヤリング
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth),
		collector,
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(buildRouterDeps(cfg, db, collector, registry, rateLimiter))

	// 4. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ln, err := listen(server.Addr, cfg.ServerMaxConns)
	if err != nil {
		return fmt.Errorf("server listen error: %w", err)
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-stop:
	}

	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// listen はTCPリスナーを開き、同時接続数をmaxConnsに制限する。
// maxConnsが0以下の場合は制限しない。
func listen(addr string, maxConns int) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if maxConns <= 0 {
		return ln, nil
	}
	return netutil.LimitListener(ln, maxConns), nil
}

// buildRouterDeps はリポジトリ・サービス・ミドルウェアを組み立てる。
func buildRouterDeps(
	cfg *config.Config,
	db *sql.DB,
	collector *metrics.Collector,
	gatherer prometheus.Gatherer,
	rateLimiter *middleware.RateLimiter,
) *handler.RouterDeps {
	// リポジトリ
	userRepo := repository.NewPostgresUserRepo(db)
	projectRepo := repository.NewPostgresProjectRepo(db)
	taskRepo := repository.NewPostgresTaskRepo(db)

	// 認証
	hasher := auth.NewHasher(auth.HasherConfig{
		Cost:        cfg.BcryptCost,
		Concurrency: cfg.HashConcurrency,
	})
	tokens := auth.NewTokenCodec(auth.TokenConfig{
		Secret:    cfg.JWTSecret,
		ExpiresIn: cfg.JWTExpiresIn,
	})
	authenticator := auth.NewAuthenticator(tokens)

	// ドメインサービス
	sanitizer := security.NewDescriptionSanitizer()
	userService := user.NewService(userRepo, hasher, tokens, collector)
	projectService := project.NewService(projectRepo, sanitizer)
	taskService := task.NewService(taskRepo, projectRepo, sanitizer)

	return &handler.RouterDeps{
		Authenticator:      authenticator,
		Metrics:            collector,
		CORSAllowedOrigins: middleware.ParseAllowedOrigins(cfg.CORSAllowedOrigin),
		RateLimiter:        rateLimiter,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(gatherer),

		AuthService:    userService,
		UserService:    userService,
		ProjectService: projectService,
		TaskService:    taskService,
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// upは未適用のマイグレーションをすべて適用し、downは直近の1つを戻す。
func runMigrate(cfg *config.Config, dir MigrateDirection) error {
	slog.Info("running database migrations",
		slog.String("direction", string(dir)),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	migrateFn := database.RunMigrations
	if dir == MigrateDown {
		migrateFn = database.RollbackMigration
	}

	version, err := migrateFn(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", dir, err)
	}

	slog.Info("database migrations completed successfully",
		slog.String("direction", string(dir)),
		slog.Uint64("version", uint64(version)),
	)
	return nil
}

// healthcheckPort はヘルスチェック対象のポートを環境変数から決める。
// 設定の読み込みを伴わないため、config.Loadと同じ優先順位をここで再現する。
func healthcheckPort() string {
	if port := os.Getenv("SERVER_PORT"); port != "" {
		return port
	}
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return "4000"
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	return checkHealth(fmt.Sprintf("http://localhost:%s/health", port))
}

func checkHealth(healthURL string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(healthURL)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
// 解析できないURLは全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	if u.User == nil {
		return u.String()
	}
	// url.Userは"*"をパーセントエンコードするため、認証情報を外してから組み立てる
	u.User = nil
	return u.Scheme + "://***@" + strings.TrimPrefix(u.String(), u.Scheme+"://")
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxIdleTime time.Duration

	// JWT
	JWTSecret    string
	JWTExpiresIn string

	// Password
	BcryptCost      int
	HashConcurrency int

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitAuth    int

	// Logging
	LogLevel string

	// Server
	ServerPort     string
	ServerMaxConns int

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// DATABASE_URL が無ければ DB_* から組み立てる
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = buildDatabaseURL(
			getEnvString("DB_HOST", "localhost"),
			getEnvString("DB_PORT", "5432"),
			getEnvString("DB_NAME", "taskhub_db"),
			getEnvString("DB_USER", "taskhub_user"),
			getEnvString("DB_PASSWORD", "taskhub_password"),
			getEnvString("DB_SSLMODE", "disable"),
		)
	}

	// Optional fields with defaults
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 5)
	cfg.DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 2)
	cfg.DBConnMaxIdleTime = getEnvDuration("DB_CONN_MAX_IDLE_TIME", 10*time.Second)
	cfg.JWTExpiresIn = getEnvString("JWT_EXPIRES_IN", "7d")
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 12)
	cfg.HashConcurrency = getEnvInt("HASH_CONCURRENCY", runtime.NumCPU())
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 10)
	cfg.LogLevel = strings.ToLower(getEnvString("LOG_LEVEL", "info"))
	cfg.ServerPort = getEnvString("SERVER_PORT", getEnvString("PORT", "4000"))
	cfg.ServerMaxConns = getEnvInt("SERVER_MAX_CONNS", 256)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:5173")

	return cfg, nil
}

// buildDatabaseURL は個別のDB接続設定からPostgreSQLの接続URLを組み立てる。
func buildDatabaseURL(host, port, name, user, password, sslmode string) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     host + ":" + port,
		Path:     "/" + name,
		RawQuery: "sslmode=" + url.QueryEscape(sslmode),
	}
	return u.String()
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

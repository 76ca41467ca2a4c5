package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenDurationPattern は有効期間の書式。単位省略時は秒として扱う。
var tokenDurationPattern = regexp.MustCompile(`^(\d+)([smhd]?)$`)

// TokenConfig はTokenCodecの設定。
type TokenConfig struct {
	Secret    string
	ExpiresIn string // 例: "7d", "12h", "30m", "3600"
}

// Payload は検証済みトークンから取り出した内容。
type Payload struct {
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// tokenClaims はトークンに埋め込むクレーム。
type tokenClaims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// TokenCodec はHS256署名のJWTを発行・検証する。
type TokenCodec struct {
	secret    []byte
	expiresIn string
	now       func() time.Time
}

// NewTokenCodec はTokenCodecを生成する。
// 設定の不備はIssue時にErrConfigurationとして報告される。
func NewTokenCodec(cfg TokenConfig) *TokenCodec {
	return &TokenCodec{
		secret:    []byte(cfg.Secret),
		expiresIn: cfg.ExpiresIn,
		now:       time.Now,
	}
}

// ParseTokenDuration は "7d" や "3600" 形式の有効期間を解釈する。
// 0や書式外の値はErrConfigurationをラップして返す。
func ParseTokenDuration(s string) (time.Duration, error) {
	m := tokenDurationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: invalid token duration %q", ErrConfiguration, s)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid token duration %q: %w", ErrConfiguration, s, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: token duration must be positive", ErrConfiguration)
	}

	unit := time.Second
	switch m[2] {
	case "m":
		unit = time.Minute
	case "h":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	}
	if n > math.MaxInt64/int64(unit) {
		return 0, fmt.Errorf("%w: token duration %q is too large", ErrConfiguration, s)
	}
	return time.Duration(n) * unit, nil
}

// Issue はユーザーIDを埋め込んだトークンを発行する。
func (c *TokenCodec) Issue(userID string) (string, error) {
	if len(c.secret) == 0 {
		return "", fmt.Errorf("%w: JWT secret is not configured", ErrConfiguration)
	}
	ttl, err := ParseTokenDuration(c.expiresIn)
	if err != nil {
		return "", err
	}

	now := c.now()
	claims := tokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証してペイロードを返す。
// 失敗理由は警告ログにのみ残し、呼び出し元には常にErrInvalidTokenを返す。
func (c *TokenCodec) Verify(token string) (*Payload, error) {
	if len(c.secret) == 0 {
		slog.Warn("token verification failed", slog.String("reason", "JWT secret is not configured"))
		return nil, ErrInvalidToken
	}

	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return c.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		slog.Warn("token verification failed", slog.String("reason", verifyFailureReason(err)))
		return nil, ErrInvalidToken
	}
	if claims.UserID == "" {
		slog.Warn("token verification failed", slog.String("reason", "missing userId claim"))
		return nil, ErrInvalidToken
	}

	payload := &Payload{UserID: claims.UserID}
	if claims.IssuedAt != nil {
		payload.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		payload.ExpiresAt = claims.ExpiresAt.Time
	}
	return payload, nil
}

func verifyFailureReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature invalid"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	default:
		return err.Error()
	}
}

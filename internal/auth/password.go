package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// DefaultBcryptCost はパスワードハッシュのコスト係数。
const DefaultBcryptCost = 12

// MinPasswordLength はパスワードの最小文字数。
const MinPasswordLength = 8

// passwordSpecialChars は記号として認める文字の集合。
const passwordSpecialChars = `!@#$%^&*(),.?":{}|<>`

// HasherConfig はHasherの設定。
type HasherConfig struct {
	Cost        int // bcryptコスト係数。0の場合はDefaultBcryptCost
	Concurrency int // 同時に実行するハッシュ計算の上限。0以下の場合は1
}

// Hasher はbcryptによるパスワードのハッシュ化と照合を行う。
// bcryptはCPUを占有するため、同時実行数をセマフォで制限する。
type Hasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewHasher はHasherを生成する。
func NewHasher(cfg HasherConfig) *Hasher {
	cost := cfg.Cost
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Hasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(concurrency)),
	}
}

// Hash はパスワードをハッシュ化する。失敗時はErrHashingをラップしたエラーを返す。
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("%w: %w", ErrHashing, err)
	}
	defer h.sem.Release(1)

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		slog.Error("password hashing failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: %w", ErrHashing, err)
	}
	return string(hashed), nil
}

// Verify はパスワードがハッシュと一致するかを返す。
// 不一致はfalse, nilを返し、照合処理自体の失敗のみErrVerificationをラップして返す。
func (h *Hasher) Verify(ctx context.Context, password, hashed string) (bool, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false, fmt.Errorf("%w: %w", ErrVerification, err)
	}
	defer h.sem.Release(1)

	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		slog.Error("password verification failed", slog.String("error", err.Error()))
		return false, fmt.Errorf("%w: %w", ErrVerification, err)
	}
	return true, nil
}

// StrengthResult はパスワード強度チェックの結果。
// IsValidはErrorsが空の場合に限りtrueになる。
type StrengthResult struct {
	IsValid bool
	Errors  []string
}

// ValidateStrength はパスワードの強度を検証し、違反したすべてのルールを返す。
func ValidateStrength(password string) StrengthResult {
	var errs []string

	if utf8.RuneCountInString(password) < MinPasswordLength {
		errs = append(errs, fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength))
	}
	if !containsAny(password, func(r rune) bool { return r >= 'A' && r <= 'Z' }) {
		errs = append(errs, "Password must contain at least one uppercase letter")
	}
	if !containsAny(password, func(r rune) bool { return r >= 'a' && r <= 'z' }) {
		errs = append(errs, "Password must contain at least one lowercase letter")
	}
	if !containsAny(password, func(r rune) bool { return r >= '0' && r <= '9' }) {
		errs = append(errs, "Password must contain at least one number")
	}
	if !strings.ContainsAny(password, passwordSpecialChars) {
		errs = append(errs, "Password must contain at least one special character")
	}

	return StrengthResult{IsValid: len(errs) == 0, Errors: errs}
}

func containsAny(s string, match func(rune) bool) bool {
	return strings.IndexFunc(s, match) >= 0
}

// Package user はユーザー登録、ログイン、プロフィール管理、退会のドメインロジックを提供する。
package user

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/taskhub/internal/auth"
	"github.com/hitoshi/taskhub/internal/model"
	"github.com/hitoshi/taskhub/internal/repository"
)

// 入力値の上限。
const (
	MaxEmailLength = 255
	MaxNameLength  = 100
)

// ログイン試行の結果ラベル。
const (
	LoginOutcomeSuccess       = "success"
	LoginOutcomeUnknownEmail  = "unknown_email"
	LoginOutcomeWrongPassword = "wrong_password"
	LoginOutcomeError         = "error"
)

// PasswordHasher はパスワードのハッシュ化と照合のインターフェース。
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, hashed string) (bool, error)
}

// TokenIssuer はログイン成功時のトークン発行インターフェース。
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// LoginRecorder はログイン試行の結果を記録する。
type LoginRecorder interface {
	RecordLoginAttempt(outcome string)
}

// RegisterInput はユーザー登録の入力。
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// UpdateInput はプロフィール更新の入力。nilの項目は変更しない。
type UpdateInput struct {
	Name  *string
	Email *string
}

// Service はユーザー管理のサービス層。
type Service struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	recorder LoginRecorder
	now      func() time.Time

	// dummyHash は未登録メールアドレスのログインでも照合を1回行うためのハッシュ。初回に生成する。
	dummyOnce sync.Once
	dummyHash string
}

// NewService はServiceの新しいインスタンスを生成する。recorderはnilでもよい。
func NewService(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	recorder LoginRecorder,
) *Service {
	return &Service{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		recorder: recorder,
		now:      time.Now,
	}
}

// Register は新規ユーザーを登録する。
// 入力検証はストアへのアクセスより前にすべて行う。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	email, apiErr := normalizeEmail(input.Email)
	if apiErr != nil {
		return nil, apiErr
	}
	name, apiErr := normalizeName(input.Name)
	if apiErr != nil {
		return nil, apiErr
	}
	if input.Password == "" {
		return nil, model.NewValidationError("password", "Password is required")
	}
	if strength := auth.ValidateStrength(input.Password); !strength.IsValid {
		slog.Debug("weak password rejected", slog.Any("violations", strength.Errors))
		return nil, model.NewValidationError("password", strength.Errors[0])
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, s.internalError("register", "user", err)
	}
	if existing != nil {
		return nil, model.NewConflictError("email", model.MsgEmailAlreadyExists)
	}

	hashed, err := s.hasher.Hash(ctx, input.Password)
	if err != nil {
		return nil, s.internalError("register", "user", err)
	}

	now := s.now()
	user := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: hashed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewConflictError("email", model.MsgEmailAlreadyExists)
		}
		return nil, s.internalError("register", "user", err)
	}

	slog.Info("user registered", slog.String("user_id", user.ID))
	return user, nil
}

// CreateUser はRegisterと同じ手順でユーザーを作成する。
func (s *Service) CreateUser(ctx context.Context, input RegisterInput) (*model.User, error) {
	return s.Register(ctx, input)
}

// Login はメールアドレスとパスワードで認証し、トークンとユーザーを返す。
// 状態遷移: ユーザー検索 → パスワード照合 → トークン発行。
// メールアドレス不一致とパスワード不一致は同じメッセージで失敗する。
func (s *Service) Login(ctx context.Context, email, password string) (*model.AuthPayload, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, model.NewValidationError("email", "Email is required")
	}
	if password == "" {
		return nil, model.NewValidationError("password", "Password is required")
	}

	// ユーザー検索
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		s.recordLogin(LoginOutcomeError)
		return nil, s.internalError("login", "user", err)
	}
	if user == nil {
		s.verifyDummy(ctx, password)
		s.recordLogin(LoginOutcomeUnknownEmail)
		slog.Info("login failed", slog.String("reason", "unknown email"))
		return nil, model.NewInvalidCredentialsError("email")
	}

	// パスワード照合
	ok, err := s.hasher.Verify(ctx, password, user.PasswordHash)
	if err != nil {
		s.recordLogin(LoginOutcomeError)
		return nil, s.internalError("login", "user", err)
	}
	if !ok {
		s.recordLogin(LoginOutcomeWrongPassword)
		slog.Info("login failed", slog.String("reason", "wrong password"), slog.String("user_id", user.ID))
		return nil, model.NewInvalidCredentialsError("password")
	}

	// トークン発行
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.recordLogin(LoginOutcomeError)
		return nil, s.internalError("login", "user", err)
	}

	s.recordLogin(LoginOutcomeSuccess)
	slog.Info("user logged in", slog.String("user_id", user.ID))
	return &model.AuthPayload{Token: token, User: user}, nil
}

// Logout はログアウトを記録する。トークンはサーバー側で失効させない。
func (s *Service) Logout(ctx context.Context, userID string) bool {
	slog.Info("user logged out", slog.String("user_id", userID))
	return true
}

// Me は認証済みユーザー自身の情報を返す。
func (s *Service) Me(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, model.NewAuthenticationRequiredError()
	}
	return s.findUser(ctx, userID, "get")
}

// GetByID は指定IDのユーザー情報を返す。認証済みであることのみを要求する。
func (s *Service) GetByID(ctx context.Context, actingUserID, id string) (*model.User, error) {
	if actingUserID == "" {
		return nil, model.NewAuthenticationRequiredError()
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewValidationError("id", model.MsgInvalidUserID)
	}
	return s.findUser(ctx, id, "get")
}

// UpdateProfile は名前とメールアドレスを更新する。
// 何も指定されていない場合は更新せずに現在の値を返す。
func (s *Service) UpdateProfile(ctx context.Context, userID string, input UpdateInput) (*model.User, error) {
	if userID == "" {
		return nil, model.NewAuthenticationRequiredError()
	}

	var name, email string
	var apiErr *model.APIError
	if input.Name != nil {
		if name, apiErr = normalizeName(*input.Name); apiErr != nil {
			return nil, apiErr
		}
	}
	if input.Email != nil {
		if email, apiErr = normalizeEmail(*input.Email); apiErr != nil {
			return nil, apiErr
		}
	}

	user, err := s.findUser(ctx, userID, "update")
	if err != nil {
		return nil, err
	}
	if input.Name == nil && input.Email == nil {
		return user, nil
	}

	if input.Email != nil && email != user.Email {
		other, err := s.userRepo.FindByEmail(ctx, email)
		if err != nil {
			return nil, s.internalError("update", "user", err)
		}
		if other != nil && other.ID != user.ID {
			return nil, model.NewConflictError("email", model.MsgEmailAlreadyExists)
		}
		user.Email = email
	}
	if input.Name != nil {
		user.Name = name
	}
	user.UpdatedAt = s.now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, model.NewConflictError("email", model.MsgEmailAlreadyExists)
		case errors.Is(err, repository.ErrNotFound):
			return nil, model.NewNotFoundError("user")
		}
		return nil, s.internalError("update", "user", err)
	}

	slog.Info("user updated", slog.String("user_id", user.ID))
	return user, nil
}

// Delete はユーザーと、そのユーザーが所有するタスクとプロジェクトを1トランザクションで削除する。
func (s *Service) Delete(ctx context.Context, userID string) error {
	if userID == "" {
		return model.NewAuthenticationRequiredError()
	}
	if _, err := s.findUser(ctx, userID, "delete"); err != nil {
		return err
	}

	if err := s.userRepo.DeleteWithOwnedData(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewNotFoundError("user")
		}
		return s.internalError("delete", "user", err)
	}

	slog.Info("user deleted", slog.String("user_id", userID))
	return nil
}

// findUser はIDでユーザーを取得する。存在しない場合はNotFoundを返す。
func (s *Service) findUser(ctx context.Context, id, verb string) (*model.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewNotFoundError("user")
	}
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, s.internalError(verb, "user", err)
	}
	if user == nil {
		return nil, model.NewNotFoundError("user")
	}
	return user, nil
}

func (s *Service) internalError(verb, entity string, err error) *model.APIError {
	slog.Error("user operation failed",
		slog.String("operation", verb+" "+entity),
		slog.String("error", err.Error()),
	)
	return model.NewInternalError(verb, entity)
}

// verifyDummy は登録済みユーザーのパスワード照合と同じコストの照合を行い、結果を捨てる。
// 応答時間からアカウントの有無を推測させない。
func (s *Service) verifyDummy(ctx context.Context, password string) {
	s.dummyOnce.Do(func() {
		hashed, err := s.hasher.Hash(ctx, uuid.NewString())
		if err != nil {
			slog.Warn("failed to prepare dummy password hash", slog.String("error", err.Error()))
			return
		}
		s.dummyHash = hashed
	})
	if s.dummyHash == "" {
		return
	}
	if _, err := s.hasher.Verify(ctx, password, s.dummyHash); err != nil {
		slog.Debug("dummy password verification failed", slog.String("error", err.Error()))
	}
}

func (s *Service) recordLogin(outcome string) {
	if s.recorder != nil {
		s.recorder.RecordLoginAttempt(outcome)
	}
}

// normalizeEmail は前後の空白を除いて小文字化し、形式を検証する。
func normalizeEmail(raw string) (string, *model.APIError) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", model.NewValidationError("email", "Email is required")
	}
	if utf8.RuneCountInString(email) > MaxEmailLength {
		return "", model.NewValidationError("email", "Email must be 255 characters or less")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", model.NewValidationError("email", "Email must be a valid email address")
	}
	return email, nil
}

// normalizeName は前後の空白を除いて検証する。
func normalizeName(raw string) (string, *model.APIError) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", model.NewValidationError("name", "Name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", model.NewValidationError("name", "Name must be 100 characters or less")
	}
	return name, nil
}

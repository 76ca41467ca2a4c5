package user

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hitoshi/taskhub/internal/model"
	"github.com/hitoshi/taskhub/internal/repository"
)

const testUserID = "6f1c2b8e-4a7d-4e0b-9b8a-2f4d6c1e3a5b"

// --- モック ---

type mockUserRepo struct {
	findByIDFn            func(ctx context.Context, id string) (*model.User, error)
	findByEmailFn         func(ctx context.Context, email string) (*model.User, error)
	createFn              func(ctx context.Context, user *model.User) error
	updateFn              func(ctx context.Context, user *model.User) error
	deleteWithOwnedDataFn func(ctx context.Context, id string) error

	calls int
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	m.calls++
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	m.calls++
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	m.calls++
	if m.createFn != nil {
		return m.createFn(ctx, user)
	}
	return nil
}
func (m *mockUserRepo) Update(ctx context.Context, user *model.User) error {
	m.calls++
	if m.updateFn != nil {
		return m.updateFn(ctx, user)
	}
	return nil
}
func (m *mockUserRepo) DeleteWithOwnedData(ctx context.Context, id string) error {
	m.calls++
	if m.deleteWithOwnedDataFn != nil {
		return m.deleteWithOwnedDataFn(ctx, id)
	}
	return nil
}

// mockHasher は "hashed:" を前置するだけのハッシュ実装。
type mockHasher struct {
	hashErr   error
	verifyErr error

	hashCalls   int
	verifyCalls int
}

func (m *mockHasher) Hash(ctx context.Context, password string) (string, error) {
	m.hashCalls++
	if m.hashErr != nil {
		return "", m.hashErr
	}
	return "hashed:" + password, nil
}
func (m *mockHasher) Verify(ctx context.Context, password, hashed string) (bool, error) {
	m.verifyCalls++
	if m.verifyErr != nil {
		return false, m.verifyErr
	}
	return hashed == "hashed:"+password, nil
}

type mockTokens struct {
	err error
}

func (m *mockTokens) Issue(userID string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return "token-for-" + userID, nil
}

type mockRecorder struct {
	outcomes []string
}

func (m *mockRecorder) RecordLoginAttempt(outcome string) {
	m.outcomes = append(m.outcomes, outcome)
}

func assertAPIError(t *testing.T, err error, code, field, message string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T (%v)", err, err)
	}
	if apiErr.Code != code {
		t.Errorf("Code = %q, want %q", apiErr.Code, code)
	}
	if apiErr.Field != field {
		t.Errorf("Field = %q, want %q", apiErr.Field, field)
	}
	if message != "" && apiErr.Message != message {
		t.Errorf("Message = %q, want %q", apiErr.Message, message)
	}
}

// --- Register ---

func TestService_Register_Success(t *testing.T) {
	var created *model.User
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			created = user
			return nil
		},
	}
	svc := NewService(repo, &mockHasher{}, &mockTokens{}, nil)

	user, err := svc.Register(context.Background(), RegisterInput{
		Email:    "  Alice@Example.COM ",
		Name:     "  Alice ",
		Password: "Str0ng!Pass",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != created {
		t.Error("returned user should be the created user")
	}
	if user.Email != "alice@example.com" {
		t.Errorf("Email = %q, want %q", user.Email, "alice@example.com")
	}
	if user.Name != "Alice" {
		t.Errorf("Name = %q, want %q", user.Name, "Alice")
	}
	if user.PasswordHash != "hashed:Str0ng!Pass" {
		t.Errorf("PasswordHash = %q, want hashed value", user.PasswordHash)
	}
	if user.ID == "" || user.CreatedAt.IsZero() {
		t.Error("ID and CreatedAt must be set")
	}
}

// 弱いパスワードはストアに触れる前に拒否される
func TestService_Register_WeakPassword_NoStoreAccess(t *testing.T) {
	repo := &mockUserRepo{}
	svc := NewService(repo, &mockHasher{}, &mockTokens{}, nil)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "a@b.com",
		Name:     "A",
		Password: "Weak1!",
	})
	assertAPIError(t, err, model.ErrCodeValidation, "password", "Password must be at least 8 characters long")
	if repo.calls != 0 {
		t.Errorf("repository called %d times, want 0", repo.calls)
	}
}

func TestService_Register_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   RegisterInput
		field   string
		message string
	}{
		{"missing email", RegisterInput{Email: " ", Name: "A", Password: "Str0ng!Pass"}, "email", "Email is required"},
		{"invalid email", RegisterInput{Email: "not-an-email", Name: "A", Password: "Str0ng!Pass"}, "email", "Email must be a valid email address"},
		{"display name form", RegisterInput{Email: "Alice <a@b.com>", Name: "A", Password: "Str0ng!Pass"}, "email", "Email must be a valid email address"},
		{"long email", RegisterInput{Email: strings.Repeat("a", 250) + "@b.com", Name: "A", Password: "Str0ng!Pass"}, "email", "Email must be 255 characters or less"},
		{"missing name", RegisterInput{Email: "a@b.com", Name: "", Password: "Str0ng!Pass"}, "name", "Name is required"},
		{"long name", RegisterInput{Email: "a@b.com", Name: strings.Repeat("n", 101), Password: "Str0ng!Pass"}, "name", "Name must be 100 characters or less"},
		{"missing password", RegisterInput{Email: "a@b.com", Name: "A"}, "password", "Password is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockUserRepo{}
			svc := NewService(repo, &mockHasher{}, &mockTokens{}, nil)
			_, err := svc.Register(context.Background(), tt.input)
			assertAPIError(t, err, model.ErrCodeValidation, tt.field, tt.message)
			if repo.calls != 0 {
				t.Errorf("repository called %d times, want 0", repo.calls)
			}
		})
	}
}

func TestService_Register_DuplicateEmail(t *testing.T) {
	repo := &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "existing", Email: email}, nil
		},
	}
	svc := NewService(repo, &mockHasher{}, &mockTokens{}, nil)

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Name: "A", Password: "Str0ng!Pass"})
	assertAPIError(t, err, model.ErrCodeConflict, "email", "Email already exists")
}

// 同時登録で一意制約に引っかかった場合もConflictになる
func TestService_Register_DuplicateOnInsert(t *testing.T) {
	repo := &mockUserRepo{
		createFn: func(ctx context.Context, user *model.User) error {
			return repository.ErrDuplicate
		},
	}
	svc := NewService(repo, &mockHasher{}, &mockTokens{}, nil)

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Name: "A", Password: "Str0ng!Pass"})
	assertAPIError(t, err, model.ErrCodeConflict, "email", "Email already exists")
}

func TestService_Register_HashFailure_IsInternal(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockHasher{hashErr: errors.New("boom")}, &mockTokens{}, nil)

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Name: "A", Password: "Str0ng!Pass"})
	assertAPIError(t, err, model.ErrCodeInternal, "general", "Failed to register user")
}

// --- Login ---

func loginRepo() *mockUserRepo {
	return &mockUserRepo{
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			if email == "alice@example.com" {
				return &model.User{ID: testUserID, Email: email, PasswordHash: "hashed:Str0ng!Pass"}, nil
			}
			return nil, nil
		},
	}
}

func TestService_Login_Success(t *testing.T) {
	recorder := &mockRecorder{}
	svc := NewService(loginRepo(), &mockHasher{}, &mockTokens{}, recorder)

	payload, err := svc.Login(context.Background(), " Alice@example.com", "Str0ng!Pass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if payload.Token != "token-for-"+testUserID {
		t.Errorf("Token = %q", payload.Token)
	}
	if payload.User == nil || payload.User.ID != testUserID {
		t.Errorf("User = %+v, want ID %q", payload.User, testUserID)
	}
	if len(recorder.outcomes) != 1 || recorder.outcomes[0] != LoginOutcomeSuccess {
		t.Errorf("outcomes = %v, want [success]", recorder.outcomes)
	}
}

func TestService_Login_UnknownEmail(t *testing.T) {
	recorder := &mockRecorder{}
	svc := NewService(loginRepo(), &mockHasher{}, &mockTokens{}, recorder)

	_, err := svc.Login(context.Background(), "bob@example.com", "Str0ng!Pass")
	assertAPIError(t, err, model.ErrCodeInvalidCredentials, "email", "Invalid email or password")
	if len(recorder.outcomes) != 1 || recorder.outcomes[0] != LoginOutcomeUnknownEmail {
		t.Errorf("outcomes = %v, want [unknown_email]", recorder.outcomes)
	}
}

// 未登録メールアドレスでも登録済みユーザーと同じくパスワード照合を1回行う。
func TestService_Login_UnknownEmail_StillVerifiesPassword(t *testing.T) {
	hasher := &mockHasher{}
	svc := NewService(loginRepo(), hasher, &mockTokens{}, nil)

	for i := 0; i < 3; i++ {
		_, err := svc.Login(context.Background(), "bob@example.com", "Str0ng!Pass")
		assertAPIError(t, err, model.ErrCodeInvalidCredentials, "email", "Invalid email or password")
	}
	if hasher.verifyCalls != 3 {
		t.Errorf("Verify calls = %d, want 3", hasher.verifyCalls)
	}
	// ダミーハッシュの生成は初回だけ
	if hasher.hashCalls != 1 {
		t.Errorf("Hash calls = %d, want 1", hasher.hashCalls)
	}

	// 登録済みユーザーの誤パスワードも照合は1回
	known := &mockHasher{}
	svc = NewService(loginRepo(), known, &mockTokens{}, nil)
	svc.Login(context.Background(), "alice@example.com", "Wrong!Pass1")
	if known.verifyCalls != 1 {
		t.Errorf("Verify calls for known user = %d, want 1", known.verifyCalls)
	}
}

// ダミーハッシュを用意できなくても未登録メールアドレスの結果は変わらない。
func TestService_Login_UnknownEmail_DummyHashFailure(t *testing.T) {
	hasher := &mockHasher{hashErr: errors.New("bcrypt unavailable")}
	svc := NewService(loginRepo(), hasher, &mockTokens{}, nil)

	_, err := svc.Login(context.Background(), "bob@example.com", "Str0ng!Pass")
	assertAPIError(t, err, model.ErrCodeInvalidCredentials, "email", "Invalid email or password")
	if hasher.verifyCalls != 0 {
		t.Errorf("Verify calls = %d, want 0 without a dummy hash", hasher.verifyCalls)
	}
}

func TestService_Login_WrongPassword(t *testing.T) {
	svc := NewService(loginRepo(), &mockHasher{}, &mockTokens{}, nil)

	_, err := svc.Login(context.Background(), "alice@example.com", "Wrong!Pass1")
	assertAPIError(t, err, model.ErrCodeInvalidCredentials, "password", "Invalid email or password")
}

func TestService_Login_Failures_AreInternal(t *testing.T) {
	t.Run("lookup error", func(t *testing.T) {
		repo := &mockUserRepo{findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return nil, errors.New("db down")
		}}
		svc := NewService(repo, &mockHasher{}, &mockTokens{}, nil)
		_, err := svc.Login(context.Background(), "alice@example.com", "Str0ng!Pass")
		assertAPIError(t, err, model.ErrCodeInternal, "general", "Failed to login user")
	})

	t.Run("verify error", func(t *testing.T) {
		svc := NewService(loginRepo(), &mockHasher{verifyErr: errors.New("bad hash")}, &mockTokens{}, nil)
		_, err := svc.Login(context.Background(), "alice@example.com", "Str0ng!Pass")
		assertAPIError(t, err, model.ErrCodeInternal, "general", "")
	})

	t.Run("issue error", func(t *testing.T) {
		svc := NewService(loginRepo(), &mockHasher{}, &mockTokens{err: errors.New("no secret")}, nil)
		_, err := svc.Login(context.Background(), "alice@example.com", "Str0ng!Pass")
		assertAPIError(t, err, model.ErrCodeInternal, "general", "")
	})
}

func TestService_Login_MissingFields(t *testing.T) {
	repo := loginRepo()
	svc := NewService(repo, &mockHasher{}, &mockTokens{}, nil)

	_, err := svc.Login(context.Background(), "", "x")
	assertAPIError(t, err, model.ErrCodeValidation, "email", "Email is required")
	_, err = svc.Login(context.Background(), "alice@example.com", "")
	assertAPIError(t, err, model.ErrCodeValidation, "password", "Password is required")
	if repo.calls != 0 {
		t.Errorf("repository called %d times, want 0", repo.calls)
	}
}

// --- Me / GetByID ---

func TestService_Me(t *testing.T) {
	repo := &mockUserRepo{findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
		return &model.User{ID: id, Name: "Alice"}, nil
	}}
	svc := NewService(repo, &mockHasher{}, &mockTokens{}, nil)

	user, err := svc.Me(context.Background(), testUserID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != testUserID {
		t.Errorf("ID = %q, want %q", user.ID, testUserID)
	}

	_, err = svc.Me(context.Background(), "")
	assertAPIError(t, err, model.ErrCodeAuthenticationRequired, "auth", "Authentication required")
}

func TestService_Me_Deleted(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockHasher{}, &mockTokens{}, nil)
	_, err := svc.Me(context.Background(), testUserID)
	assertAPIError(t, err, model.ErrCodeNotFound, "user", "User not found")
}

func TestService_GetByID_InvalidID(t *testing.T) {
	repo := &mockUserRepo{}
	svc := NewService(repo, &mockHasher{}, &mockTokens{}, nil)

	_, err := svc.GetByID(context.Background(), testUserID, "not-a-uuid")
	assertAPIError(t, err, model.ErrCodeValidation, "id", "Invalid user id")
	if repo.calls != 0 {
		t.Errorf("repository called %d times, want 0", repo.calls)
	}
}

// --- UpdateProfile ---

func TestService_UpdateProfile_EmptyInput_NoWrite(t *testing.T) {
	updated := false
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Name: "Alice", Email: "alice@example.com"}, nil
		},
		updateFn: func(ctx context.Context, user *model.User) error {
			updated = true
			return nil
		},
	}
	svc := NewService(repo, &mockHasher{}, &mockTokens{}, nil)

	user, err := svc.UpdateProfile(context.Background(), testUserID, UpdateInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated {
		t.Error("Update must not be called for empty input")
	}
	if user.Name != "Alice" {
		t.Errorf("Name = %q, want %q", user.Name, "Alice")
	}
}

func TestService_UpdateProfile_ChangesNameAndEmail(t *testing.T) {
	var saved *model.User
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Name: "Alice", Email: "alice@example.com"}, nil
		},
		updateFn: func(ctx context.Context, user *model.User) error {
			saved = user
			return nil
		},
	}
	svc := NewService(repo, &mockHasher{}, &mockTokens{}, nil)

	name := " Alicia "
	email := "ALICIA@example.com"
	_, err := svc.UpdateProfile(context.Background(), testUserID, UpdateInput{Name: &name, Email: &email})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved == nil || saved.Name != "Alicia" || saved.Email != "alicia@example.com" {
		t.Errorf("saved = %+v, want trimmed name and lowercased email", saved)
	}
}

func TestService_UpdateProfile_EmailTakenByOtherUser(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Email: "alice@example.com"}, nil
		},
		findByEmailFn: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: "someone-else", Email: email}, nil
		},
	}
	svc := NewService(repo, &mockHasher{}, &mockTokens{}, nil)

	email := "bob@example.com"
	_, err := svc.UpdateProfile(context.Background(), testUserID, UpdateInput{Email: &email})
	assertAPIError(t, err, model.ErrCodeConflict, "email", "Email already exists")
}

func TestService_UpdateProfile_InvalidName_BeforeFetch(t *testing.T) {
	repo := &mockUserRepo{}
	svc := NewService(repo, &mockHasher{}, &mockTokens{}, nil)

	name := "   "
	_, err := svc.UpdateProfile(context.Background(), testUserID, UpdateInput{Name: &name})
	assertAPIError(t, err, model.ErrCodeValidation, "name", "Name is required")
	if repo.calls != 0 {
		t.Errorf("repository called %d times, want 0", repo.calls)
	}
}

// --- Delete ---

func TestService_Delete_Success(t *testing.T) {
	var deletedID string
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
		deleteWithOwnedDataFn: func(ctx context.Context, id string) error {
			deletedID = id
			return nil
		},
	}
	svc := NewService(repo, &mockHasher{}, &mockTokens{}, nil)

	if err := svc.Delete(context.Background(), testUserID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deletedID != testUserID {
		t.Errorf("deleted %q, want %q", deletedID, testUserID)
	}
}

func TestService_Delete_UserNotFound(t *testing.T) {
	deleteCalled := false
	repo := &mockUserRepo{
		deleteWithOwnedDataFn: func(ctx context.Context, id string) error {
			deleteCalled = true
			return nil
		},
	}
	svc := NewService(repo, &mockHasher{}, &mockTokens{}, nil)

	err := svc.Delete(context.Background(), testUserID)
	assertAPIError(t, err, model.ErrCodeNotFound, "user", "User not found")
	if deleteCalled {
		t.Error("DeleteWithOwnedData must not be called for a missing user")
	}
}

// トランザクションが失敗した場合は汎用メッセージに置き換える
func TestService_Delete_TransactionFailure(t *testing.T) {
	repo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
		deleteWithOwnedDataFn: func(ctx context.Context, id string) error {
			return errors.New("failed to delete user: lock timeout")
		},
	}
	svc := NewService(repo, &mockHasher{}, &mockTokens{}, nil)

	err := svc.Delete(context.Background(), testUserID)
	assertAPIError(t, err, model.ErrCodeInternal, "general", "Failed to delete user")
	if strings.Contains(err.Error(), "lock timeout") {
		t.Errorf("error leaks detail: %v", err)
	}
}

func TestService_Logout(t *testing.T) {
	svc := NewService(&mockUserRepo{}, &mockHasher{}, &mockTokens{}, nil)
	if !svc.Logout(context.Background(), testUserID) {
		t.Error("Logout = false, want true")
	}
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/taskhub/internal/middleware"
	"github.com/hitoshi/taskhub/internal/model"
	"github.com/hitoshi/taskhub/internal/project"
	"github.com/hitoshi/taskhub/internal/task"
	"github.com/hitoshi/taskhub/internal/user"
)

// --- モック定義 ---

// mockAuthService はAuthServiceInterfaceのモック実装。
type mockAuthService struct {
	registerFn func(ctx context.Context, input user.RegisterInput) (*model.User, error)
	loginFn    func(ctx context.Context, email, password string) (*model.AuthPayload, error)
	logoutFn   func(ctx context.Context, userID string) bool
}

func (m *mockAuthService) Register(ctx context.Context, input user.RegisterInput) (*model.User, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, input)
	}
	return nil, nil
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*model.AuthPayload, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, userID string) bool {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, userID)
	}
	return true
}

// mockUserService はUserServiceInterfaceのモック実装。
type mockUserService struct {
	createUserFn    func(ctx context.Context, input user.RegisterInput) (*model.User, error)
	meFn            func(ctx context.Context, userID string) (*model.User, error)
	getByIDFn       func(ctx context.Context, actingUserID, id string) (*model.User, error)
	updateProfileFn func(ctx context.Context, userID string, input user.UpdateInput) (*model.User, error)
	deleteFn        func(ctx context.Context, userID string) error
}

func (m *mockUserService) CreateUser(ctx context.Context, input user.RegisterInput) (*model.User, error) {
	if m.createUserFn != nil {
		return m.createUserFn(ctx, input)
	}
	return nil, nil
}

func (m *mockUserService) Me(ctx context.Context, userID string) (*model.User, error) {
	if m.meFn != nil {
		return m.meFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockUserService) GetByID(ctx context.Context, actingUserID, id string) (*model.User, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, actingUserID, id)
	}
	return nil, nil
}

func (m *mockUserService) UpdateProfile(ctx context.Context, userID string, input user.UpdateInput) (*model.User, error) {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, userID, input)
	}
	return nil, nil
}

func (m *mockUserService) Delete(ctx context.Context, userID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID)
	}
	return nil
}

// mockProjectService はProjectServiceInterfaceのモック実装。
type mockProjectService struct {
	createFn func(ctx context.Context, userID string, input project.CreateInput) (*model.Project, error)
	updateFn func(ctx context.Context, userID, id string, input project.UpdateInput) (*model.Project, error)
	deleteFn func(ctx context.Context, userID, id string) error
	getFn    func(ctx context.Context, userID, id string) (*model.Project, error)
	listFn   func(ctx context.Context, userID string, input project.ListInput) (*project.ListResult, error)
}

func (m *mockProjectService) Create(ctx context.Context, userID string, input project.CreateInput) (*model.Project, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, input)
	}
	return nil, nil
}

func (m *mockProjectService) Update(ctx context.Context, userID, id string, input project.UpdateInput) (*model.Project, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, id, input)
	}
	return nil, nil
}

func (m *mockProjectService) Delete(ctx context.Context, userID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, id)
	}
	return nil
}

func (m *mockProjectService) Get(ctx context.Context, userID, id string) (*model.Project, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, id)
	}
	return nil, nil
}

func (m *mockProjectService) List(ctx context.Context, userID string, input project.ListInput) (*project.ListResult, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, input)
	}
	return &project.ListResult{}, nil
}

// mockTaskService はTaskServiceInterfaceのモック実装。
type mockTaskService struct {
	createFn func(ctx context.Context, userID string, input task.CreateInput) (*model.Task, error)
	updateFn func(ctx context.Context, userID, id string, input task.UpdateInput) (*model.Task, error)
	deleteFn func(ctx context.Context, userID, id string) error
	getFn    func(ctx context.Context, userID, id string) (*model.Task, error)
	listFn   func(ctx context.Context, userID string, input task.ListInput) (*task.ListResult, error)
}

func (m *mockTaskService) Create(ctx context.Context, userID string, input task.CreateInput) (*model.Task, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, input)
	}
	return nil, nil
}

func (m *mockTaskService) Update(ctx context.Context, userID, id string, input task.UpdateInput) (*model.Task, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, id, input)
	}
	return nil, nil
}

func (m *mockTaskService) Delete(ctx context.Context, userID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, id)
	}
	return nil
}

func (m *mockTaskService) Get(ctx context.Context, userID, id string) (*model.Task, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, id)
	}
	return nil, nil
}

func (m *mockTaskService) List(ctx context.Context, userID string, input task.ListInput) (*task.ListResult, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, input)
	}
	return &task.ListResult{}, nil
}

// --- テストヘルパー ---

// withUserID はテスト用にリクエストコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseErrorResponse はレスポンスボディから統一エラーフォーマットをパースするヘルパー。
func parseErrorResponse(t *testing.T, w *httptest.ResponseRecorder) middleware.ErrorResponseBody {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	if body.Success {
		t.Error("success should be false")
	}
	if len(body.Errors) != 1 {
		t.Fatalf("len(errors) = %d, want 1", len(body.Errors))
	}
	return body
}

// assertSingleError はステータスコードと唯一のエラーのfield/messageを検証する。
func assertSingleError(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantField, wantMessage string) {
	t.Helper()
	if w.Code != wantStatus {
		t.Errorf("status = %d, want %d", w.Code, wantStatus)
	}
	body := parseErrorResponse(t, w)
	if body.Errors[0].Field != wantField {
		t.Errorf("field = %q, want %q", body.Errors[0].Field, wantField)
	}
	if wantMessage != "" && body.Errors[0].Message != wantMessage {
		t.Errorf("message = %q, want %q", body.Errors[0].Message, wantMessage)
	}
}

// decodeBody はレスポンスボディを汎用マップにデコードするヘルパー。
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return result
}

func strPtr(s string) *string { return &s }

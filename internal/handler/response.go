package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/taskhub/internal/middleware"
	"github.com/hitoshi/taskhub/internal/model"
)

// MsgInvalidRequestBody はJSONボディの解析に失敗した場合のメッセージ。
const MsgInvalidRequestBody = "Invalid request body"

// maxBodyBytes はリクエストボディの上限サイズ。
const maxBodyBytes = 1 << 20

// userResponse はユーザー情報のAPIレスポンス。パスワードハッシュは含めない。
type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// projectResponse はプロジェクト情報のAPIレスポンス。
type projectResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Color       string    `json:"color"`
	UserID      string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// taskResponse はタスク情報のAPIレスポンス。
type taskResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	CompletedAt *time.Time `json:"completedAt"`
	ProjectID   *string    `json:"projectId"`
	UserID      string     `json:"userId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// successResponse は成功時の共通エンベロープ。
type successResponse struct {
	Success bool `json:"success"`
}

type userEnvelope struct {
	Success bool          `json:"success"`
	User    *userResponse `json:"user"`
}

type loginResponse struct {
	Token string        `json:"token"`
	User  *userResponse `json:"user"`
}

type projectEnvelope struct {
	Success bool             `json:"success"`
	Project *projectResponse `json:"project"`
}

type projectListEnvelope struct {
	Success    bool               `json:"success"`
	Projects   []*projectResponse `json:"projects"`
	TotalCount int                `json:"totalCount"`
}

type taskEnvelope struct {
	Success bool          `json:"success"`
	Task    *taskResponse `json:"task"`
}

type taskListEnvelope struct {
	Success    bool            `json:"success"`
	Tasks      []*taskResponse `json:"tasks"`
	TotalCount int             `json:"totalCount"`
}

func toUserResponse(u *model.User) *userResponse {
	return &userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toProjectResponse(p *model.Project) *projectResponse {
	return &projectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Color:       p.Color,
		UserID:      p.UserID,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toTaskResponse(t *model.Task) *taskResponse {
	return &taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		DueDate:     t.DueDate,
		CompletedAt: t.CompletedAt,
		ProjectID:   t.ProjectID,
		UserID:      t.UserID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// --- ヘルパー関数 ---

// writeJSON はステータスコードとJSONボディを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSON はリクエストボディをdstにデコードする。
// 失敗した場合は400レスポンスを書き込み、falseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		slog.Debug("invalid request body", slog.String("error", err.Error()))
		middleware.WriteAPIError(w, model.NewValidationError("general", MsgInvalidRequestBody))
		return false
	}
	return true
}

// handleServiceError はサービス層から返されたエラーを統一フォーマットで書き込む。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteAPIError(w, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// requireUserID はリクエストコンテキストから認証済みユーザーIDを取り出す。
// 未認証の場合は401レスポンスを書き込み、falseを返す。
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewAuthenticationRequiredError())
		return "", false
	}
	return userID, true
}

// listInputFromQuery はソート・ページングのクエリパラメータを読み取る。
// 数値でないlimit/offsetは範囲外と同じエラーにする。
func listInputFromQuery(r *http.Request) (model.ListInput, *model.APIError) {
	q := r.URL.Query()
	input := model.ListInput{
		SortField:     q.Get("sortField"),
		SortDirection: q.Get("sortDirection"),
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return input, model.NewValidationError("limit", model.MsgInvalidLimit)
		}
		input.Limit = &n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return input, model.NewValidationError("offset", model.MsgInvalidOffset)
		}
		input.Offset = &n
	}
	return input, nil
}

// optionalQuery はクエリパラメータが指定されていればそのポインタを返す。
func optionalQuery(r *http.Request, key string) *string {
	if !r.URL.Query().Has(key) {
		return nil
	}
	v := r.URL.Query().Get(key)
	return &v
}

package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/taskhub/internal/model"
	"github.com/hitoshi/taskhub/internal/task"
)

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
type TaskServiceInterface interface {
	Create(ctx context.Context, userID string, input task.CreateInput) (*model.Task, error)
	Update(ctx context.Context, userID, id string, input task.UpdateInput) (*model.Task, error)
	Delete(ctx context.Context, userID, id string) error
	Get(ctx context.Context, userID, id string) (*model.Task, error)
	List(ctx context.Context, userID string, input task.ListInput) (*task.ListResult, error)
}

// TaskHandler はタスク管理のHTTPハンドラー。
type TaskHandler struct {
	service TaskServiceInterface
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(service TaskServiceInterface) *TaskHandler {
	return &TaskHandler{service: service}
}

type createTaskRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
	Priority    string  `json:"priority"`
	DueDate     *string `json:"dueDate"`
	ProjectID   *string `json:"projectId"`
}

type updateTaskRequest struct {
	Title       model.Optional[string] `json:"title"`
	Description model.Optional[string] `json:"description"`
	Status      model.Optional[string] `json:"status"`
	Priority    model.Optional[string] `json:"priority"`
	DueDate     model.Optional[string] `json:"dueDate"`
	ProjectID   model.Optional[string] `json:"projectId"`
}

// ListTasks はタスク一覧を返す。
// GET /api/tasks?status&priority&projectId&sortField&sortDirection&limit&offset
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	listInput, apiErr := listInputFromQuery(r)
	if apiErr != nil {
		handleServiceError(w, apiErr)
		return
	}

	q := r.URL.Query()
	result, err := h.service.List(r.Context(), userID, task.ListInput{
		Status:    q.Get("status"),
		Priority:  q.Get("priority"),
		ProjectID: q.Get("projectId"),
		ListInput: listInput,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	tasks := make([]*taskResponse, 0, len(result.Tasks))
	for _, t := range result.Tasks {
		tasks = append(tasks, toTaskResponse(t))
	}
	writeJSON(w, http.StatusOK, taskListEnvelope{
		Success:    true,
		Tasks:      tasks,
		TotalCount: result.TotalCount,
	})
}

// GetTask はタスクを1件返す。
// GET /api/tasks/{id}
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	t, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, taskEnvelope{Success: true, Task: toTaskResponse(t)})
}

// CreateTask はタスクを作成する。
// POST /api/tasks
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.service.Create(r.Context(), userID, task.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		ProjectID:   req.ProjectID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, taskEnvelope{Success: true, Task: toTaskResponse(t)})
}

// UpdateTask はタスクを部分更新する。
// PATCH /api/tasks/{id}
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	t, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), task.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		ProjectID:   req.ProjectID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, taskEnvelope{Success: true, Task: toTaskResponse(t)})
}

// DeleteTask はタスクを削除する。
// DELETE /api/tasks/{id}
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

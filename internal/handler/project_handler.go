package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/taskhub/internal/model"
	"github.com/hitoshi/taskhub/internal/project"
)

// ProjectServiceInterface はプロジェクトハンドラーが必要とするサービスインターフェース。
type ProjectServiceInterface interface {
	Create(ctx context.Context, userID string, input project.CreateInput) (*model.Project, error)
	Update(ctx context.Context, userID, id string, input project.UpdateInput) (*model.Project, error)
	Delete(ctx context.Context, userID, id string) error
	Get(ctx context.Context, userID, id string) (*model.Project, error)
	List(ctx context.Context, userID string, input project.ListInput) (*project.ListResult, error)
}

// ProjectHandler はプロジェクト管理のHTTPハンドラー。
type ProjectHandler struct {
	service ProjectServiceInterface
}

// NewProjectHandler はProjectHandlerを生成する。
func NewProjectHandler(service ProjectServiceInterface) *ProjectHandler {
	return &ProjectHandler{service: service}
}

type createProjectRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
}

// updateProjectRequest は省略とnullを区別するためOptionalで受ける。
type updateProjectRequest struct {
	Name        model.Optional[string] `json:"name"`
	Description model.Optional[string] `json:"description"`
	Color       model.Optional[string] `json:"color"`
}

// ListProjects はプロジェクト一覧を返す。
// GET /api/projects?name&color&sortField&sortDirection&limit&offset
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	listInput, apiErr := listInputFromQuery(r)
	if apiErr != nil {
		handleServiceError(w, apiErr)
		return
	}

	result, err := h.service.List(r.Context(), userID, project.ListInput{
		Name:      optionalQuery(r, "name"),
		Color:     optionalQuery(r, "color"),
		ListInput: listInput,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	projects := make([]*projectResponse, 0, len(result.Projects))
	for _, p := range result.Projects {
		projects = append(projects, toProjectResponse(p))
	}
	writeJSON(w, http.StatusOK, projectListEnvelope{
		Success:    true,
		Projects:   projects,
		TotalCount: result.TotalCount,
	})
}

// GetProject はプロジェクトを1件返す。
// GET /api/projects/{id}
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	p, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, projectEnvelope{Success: true, Project: toProjectResponse(p)})
}

// CreateProject はプロジェクトを作成する。
// POST /api/projects
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req createProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.Create(r.Context(), userID, project.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, projectEnvelope{Success: true, Project: toProjectResponse(p)})
}

// UpdateProject はプロジェクトを部分更新する。
// PATCH /api/projects/{id}
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req updateProjectRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.service.Update(r.Context(), userID, chi.URLParam(r, "id"), project.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, projectEnvelope{Success: true, Project: toProjectResponse(p)})
}

// DeleteProject はプロジェクトを削除する。
// DELETE /api/projects/{id}
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
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

// Package task はタスクの作成・更新・削除・取得・一覧のドメインロジックを提供する。
package task

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/taskhub/internal/model"
	"github.com/hitoshi/taskhub/internal/repository"
	"github.com/hitoshi/taskhub/internal/security"
)

// MaxTitleLength はタスク名の最大文字数。
const MaxTitleLength = 100

// dueDateLayouts は受け付ける期日の書式。
var dueDateLayouts = []string{time.RFC3339, time.DateOnly}

// CreateInput はタスク作成の入力。空文字の項目は未指定として扱う。
type CreateInput struct {
	Title       string
	Description *string
	Status      string
	Priority    string
	DueDate     *string
	ProjectID   *string
}

// UpdateInput はタスク更新の入力。Setがfalseの項目は変更しない。
type UpdateInput struct {
	Title       model.Optional[string]
	Description model.Optional[string]
	Status      model.Optional[string]
	Priority    model.Optional[string]
	DueDate     model.Optional[string]
	ProjectID   model.Optional[string]
}

// ListInput はタスク一覧の絞り込み・ソート・ページング条件。
type ListInput struct {
	Status    string
	Priority  string
	ProjectID string
	model.ListInput
}

// ListResult はタスク一覧の1ページ分と総件数。
type ListResult struct {
	Tasks      []*model.Task
	TotalCount int
}

// ProjectFinder はタスクが参照するプロジェクトの所有確認に使う。
type ProjectFinder interface {
	FindByIDAndUser(ctx context.Context, id, userID string) (*model.Project, error)
}

// Service はタスク管理のサービス層。
type Service struct {
	repo      repository.TaskRepository
	projects  ProjectFinder
	sanitizer security.DescriptionSanitizer
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.TaskRepository, projects ProjectFinder, sanitizer security.DescriptionSanitizer) *Service {
	return &Service{
		repo:      repo,
		projects:  projects,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// Create はタスクを作成する。
// 状態と優先度の既定値はTODOとMEDIUM。projectIDを指定する場合は自分のプロジェクトである必要がある。
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*model.Task, error) {
	if userID == "" {
		return nil, model.NewAuthenticationRequiredError()
	}

	title, apiErr := validateTitle(input.Title)
	if apiErr != nil {
		return nil, apiErr
	}
	status := model.TaskStatusTodo
	if input.Status != "" {
		if status, apiErr = parseStatus(input.Status); apiErr != nil {
			return nil, apiErr
		}
	}
	priority := model.TaskPriorityMedium
	if input.Priority != "" {
		if priority, apiErr = parsePriority(input.Priority); apiErr != nil {
			return nil, apiErr
		}
	}
	var dueDate *time.Time
	if input.DueDate != nil && *input.DueDate != "" {
		if dueDate, apiErr = parseDueDate(*input.DueDate); apiErr != nil {
			return nil, apiErr
		}
	}

	var projectID *string
	if input.ProjectID != nil && *input.ProjectID != "" {
		if apiErr := s.checkProjectOwnership(ctx, userID, *input.ProjectID, "create"); apiErr != nil {
			return nil, apiErr
		}
		projectID = input.ProjectID
	}

	now := s.now()
	task := &model.Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: s.sanitizeDescription(input.Description),
		Status:      status,
		Priority:    priority,
		DueDate:     dueDate,
		ProjectID:   projectID,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if status == model.TaskStatusDone {
		task.CompletedAt = &now
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, internalError("create", "task", userID, "", err)
	}

	slog.Info("task created", slog.String("task_id", task.ID), slog.String("user_id", userID))
	return task, nil
}

// Update は指定された項目だけを更新する。
// 状態がDONEになった時点でcompletedAtを記録し、DONE以外に戻ったら消す。
func (s *Service) Update(ctx context.Context, userID, id string, input UpdateInput) (*model.Task, error) {
	if userID == "" {
		return nil, model.NewAuthenticationRequiredError()
	}

	var (
		title    string
		status   model.TaskStatus
		priority model.TaskPriority
		dueDate  *time.Time
		apiErr   *model.APIError
	)
	if input.Title.Set {
		if title, apiErr = validateTitle(input.Title.Value); apiErr != nil {
			return nil, apiErr
		}
	}
	if input.Status.Set {
		if status, apiErr = parseStatus(input.Status.Value); apiErr != nil {
			return nil, apiErr
		}
	}
	if input.Priority.Set {
		if priority, apiErr = parsePriority(input.Priority.Value); apiErr != nil {
			return nil, apiErr
		}
	}
	if input.DueDate.Set && !input.DueDate.Null && input.DueDate.Value != "" {
		if dueDate, apiErr = parseDueDate(input.DueDate.Value); apiErr != nil {
			return nil, apiErr
		}
	}

	task, err := s.find(ctx, userID, id, "update")
	if err != nil {
		return nil, err
	}

	if input.ProjectID.Set {
		if input.ProjectID.Null || input.ProjectID.Value == "" {
			task.ProjectID = nil
		} else {
			if apiErr := s.checkProjectOwnership(ctx, userID, input.ProjectID.Value, "update"); apiErr != nil {
				return nil, apiErr
			}
			task.ProjectID = input.ProjectID.Ptr()
		}
	}

	now := s.now()
	if input.Title.Set {
		task.Title = title
	}
	if input.Description.Set {
		task.Description = s.sanitizeDescription(input.Description.Ptr())
	}
	if input.Status.Set {
		switch {
		case status == model.TaskStatusDone && task.Status != model.TaskStatusDone:
			task.CompletedAt = &now
		case status != model.TaskStatusDone:
			task.CompletedAt = nil
		}
		task.Status = status
	}
	if input.Priority.Set {
		task.Priority = priority
	}
	if input.DueDate.Set {
		task.DueDate = dueDate
	}
	task.UpdatedAt = now

	if err := s.repo.Update(ctx, task); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewNotFoundError("task")
		}
		return nil, internalError("update", "task", userID, id, err)
	}

	slog.Info("task updated", slog.String("task_id", id), slog.String("user_id", userID))
	return task, nil
}

// Delete はタスクを削除する。
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return model.NewAuthenticationRequiredError()
	}
	if _, err := s.find(ctx, userID, id, "delete"); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewNotFoundError("task")
		}
		return internalError("delete", "task", userID, id, err)
	}

	slog.Info("task deleted", slog.String("task_id", id), slog.String("user_id", userID))
	return nil
}

// Get は所有者で絞り込んでタスクを1件取得する。
func (s *Service) Get(ctx context.Context, userID, id string) (*model.Task, error) {
	if userID == "" {
		return nil, model.NewAuthenticationRequiredError()
	}
	return s.find(ctx, userID, id, "get")
}

// List は認証済みユーザーのタスク一覧を返す。
func (s *Service) List(ctx context.Context, userID string, input ListInput) (*ListResult, error) {
	if userID == "" {
		return nil, model.NewAuthenticationRequiredError()
	}

	filter := model.TaskFilter{UserID: userID}
	if input.Status != "" {
		status, apiErr := parseStatus(input.Status)
		if apiErr != nil {
			return nil, apiErr
		}
		filter.Status = &status
	}
	if input.Priority != "" {
		priority, apiErr := parsePriority(input.Priority)
		if apiErr != nil {
			return nil, apiErr
		}
		filter.Priority = &priority
	}
	if input.ProjectID != "" {
		if _, err := uuid.Parse(input.ProjectID); err != nil {
			return nil, model.NewValidationError("projectId", "Invalid project id")
		}
		projectID := input.ProjectID
		filter.ProjectID = &projectID
	}

	opts, err := input.Normalize(repository.IsTaskSortField)
	if err != nil {
		return nil, err
	}

	tasks, total, err := s.repo.List(ctx, filter, opts)
	if err != nil {
		return nil, internalError("get", "tasks", userID, "", err)
	}
	return &ListResult{Tasks: tasks, TotalCount: total}, nil
}

// find は {id, userID} で絞り込んだ1クエリでタスクを取得する。
func (s *Service) find(ctx context.Context, userID, id, verb string) (*model.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewNotFoundError("task")
	}
	task, err := s.repo.FindByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, internalError(verb, "task", userID, id, err)
	}
	if task == nil {
		return nil, model.NewNotFoundError("task")
	}
	return task, nil
}

// checkProjectOwnership は {projectID, userID} でプロジェクトの所有を確認する。
func (s *Service) checkProjectOwnership(ctx context.Context, userID, projectID, verb string) *model.APIError {
	if _, err := uuid.Parse(projectID); err != nil {
		return model.NewProjectAccessDeniedError()
	}
	project, err := s.projects.FindByIDAndUser(ctx, projectID, userID)
	if err != nil {
		return internalError(verb, "task", userID, "", err)
	}
	if project == nil {
		return model.NewProjectAccessDeniedError()
	}
	return nil
}

func (s *Service) sanitizeDescription(raw *string) *string {
	if raw == nil {
		return nil
	}
	cleaned := s.sanitizer.Sanitize(*raw)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}

// internalError は想定外のエラーをログに残し、汎用メッセージのエラーに置き換える。
func internalError(verb, entity, userID, taskID string, err error) *model.APIError {
	slog.Error("task operation failed",
		slog.String("operation", verb+" "+entity),
		slog.String("user_id", userID),
		slog.String("task_id", taskID),
		slog.String("error", err.Error()),
	)
	return model.NewInternalError(verb, entity)
}

func validateTitle(raw string) (string, *model.APIError) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", model.NewValidationError("title", "Title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", model.NewValidationError("title", "Title must be 100 characters or less")
	}
	return title, nil
}

func parseStatus(raw string) (model.TaskStatus, *model.APIError) {
	status := model.TaskStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", model.NewValidationError("status", "Invalid status")
	}
	return status, nil
}

func parsePriority(raw string) (model.TaskPriority, *model.APIError) {
	priority := model.TaskPriority(strings.ToUpper(strings.TrimSpace(raw)))
	if !priority.Valid() {
		return "", model.NewValidationError("priority", "Invalid priority")
	}
	return priority, nil
}

// parseDueDate はRFC3339または YYYY-MM-DD 形式の期日を解釈する。
func parseDueDate(raw string) (*time.Time, *model.APIError) {
	for _, layout := range dueDateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(raw)); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, model.NewValidationError("dueDate", "Invalid due date")
}

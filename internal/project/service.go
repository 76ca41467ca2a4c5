// Package project はプロジェクトの作成・更新・削除・取得・一覧のドメインロジックを提供する。
//
// すべての操作は認証済みユーザーの所有するプロジェクトに限定される。
// 他ユーザーのプロジェクトは存在しないプロジェクトと同じ NotFound になる。
package project

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hitoshi/taskhub/internal/model"
	"github.com/hitoshi/taskhub/internal/repository"
	"github.com/hitoshi/taskhub/internal/security"
)

// MaxNameLength はプロジェクト名の最大文字数。
const MaxNameLength = 100

// MsgInvalidColor はカラーコードの検証エラーメッセージ。
const MsgInvalidColor = "Color must be a valid hex color code (e.g., #3B82F6)"

var colorPattern = regexp.MustCompile(`(?i)^#[0-9A-F]{6}$`)

// CreateInput はプロジェクト作成の入力。
type CreateInput struct {
	Name        string
	Description *string
	Color       *string
}

// UpdateInput はプロジェクト更新の入力。Setがfalseの項目は変更しない。
type UpdateInput struct {
	Name        model.Optional[string]
	Description model.Optional[string]
	Color       model.Optional[string]
}

// ListInput はプロジェクト一覧の絞り込み・ソート・ページング条件。
type ListInput struct {
	Name  *string
	Color *string
	model.ListInput
}

// ListResult はプロジェクト一覧の1ページ分と総件数。
type ListResult struct {
	Projects   []*model.Project
	TotalCount int
}

// Service はプロジェクト管理のサービス層。
type Service struct {
	repo      repository.ProjectRepository
	sanitizer security.DescriptionSanitizer
	now       func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.ProjectRepository, sanitizer security.DescriptionSanitizer) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// Create はプロジェクトを作成する。色の指定が無い場合は既定色になる。
func (s *Service) Create(ctx context.Context, userID string, input CreateInput) (*model.Project, error) {
	if userID == "" {
		return nil, model.NewAuthenticationRequiredError()
	}

	name, apiErr := validateName(input.Name)
	if apiErr != nil {
		return nil, apiErr
	}
	color := model.DefaultProjectColor
	if input.Color != nil && *input.Color != "" {
		if color, apiErr = normalizeColor(*input.Color); apiErr != nil {
			return nil, apiErr
		}
	}

	now := s.now()
	project := &model.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: s.sanitizeDescription(input.Description),
		Color:       color,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, internalError("create", "project", userID, "", err)
	}

	slog.Info("project created", slog.String("project_id", project.ID), slog.String("user_id", userID))
	return project, nil
}

// Update は指定された項目だけを更新する。
// nameのnullや空文字は必須エラー、colorのnullや空文字は既定色に戻す。
func (s *Service) Update(ctx context.Context, userID, id string, input UpdateInput) (*model.Project, error) {
	if userID == "" {
		return nil, model.NewAuthenticationRequiredError()
	}

	var name, color string
	var apiErr *model.APIError
	if input.Name.Set {
		if name, apiErr = validateName(input.Name.Value); apiErr != nil {
			return nil, apiErr
		}
	}
	if input.Color.Set {
		color = model.DefaultProjectColor
		if !input.Color.Null && input.Color.Value != "" {
			if color, apiErr = normalizeColor(input.Color.Value); apiErr != nil {
				return nil, apiErr
			}
		}
	}

	project, err := s.find(ctx, userID, id, "update")
	if err != nil {
		return nil, err
	}

	if input.Name.Set {
		project.Name = name
	}
	if input.Description.Set {
		project.Description = s.sanitizeDescription(input.Description.Ptr())
	}
	if input.Color.Set {
		project.Color = color
	}
	project.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, project); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.NewNotFoundError("project")
		}
		return nil, internalError("update", "project", userID, id, err)
	}

	slog.Info("project updated", slog.String("project_id", id), slog.String("user_id", userID))
	return project, nil
}

// Delete はプロジェクトを削除する。所属していたタスクはプロジェクト未指定になる。
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return model.NewAuthenticationRequiredError()
	}
	if _, err := s.find(ctx, userID, id, "delete"); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.NewNotFoundError("project")
		}
		return internalError("delete", "project", userID, id, err)
	}

	slog.Info("project deleted", slog.String("project_id", id), slog.String("user_id", userID))
	return nil
}

// Get は所有者で絞り込んでプロジェクトを1件取得する。
func (s *Service) Get(ctx context.Context, userID, id string) (*model.Project, error) {
	if userID == "" {
		return nil, model.NewAuthenticationRequiredError()
	}
	return s.find(ctx, userID, id, "get")
}

// List は認証済みユーザーのプロジェクト一覧を返す。
func (s *Service) List(ctx context.Context, userID string, input ListInput) (*ListResult, error) {
	if userID == "" {
		return nil, model.NewAuthenticationRequiredError()
	}

	opts, err := input.Normalize(repository.IsProjectSortField)
	if err != nil {
		return nil, err
	}

	filter := model.ProjectFilter{UserID: userID}
	if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
		name := strings.TrimSpace(*input.Name)
		filter.Name = &name
	}
	if input.Color != nil && *input.Color != "" {
		color := strings.ToUpper(strings.TrimSpace(*input.Color))
		filter.Color = &color
	}

	projects, total, err := s.repo.List(ctx, filter, opts)
	if err != nil {
		return nil, internalError("get", "projects", userID, "", err)
	}
	return &ListResult{Projects: projects, TotalCount: total}, nil
}

// find は {id, userID} で絞り込んだ1クエリでプロジェクトを取得する。
func (s *Service) find(ctx context.Context, userID, id, verb string) (*model.Project, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewNotFoundError("project")
	}
	project, err := s.repo.FindByIDAndUser(ctx, id, userID)
	if err != nil {
		return nil, internalError(verb, "project", userID, id, err)
	}
	if project == nil {
		return nil, model.NewNotFoundError("project")
	}
	return project, nil
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
func internalError(verb, entity, userID, projectID string, err error) *model.APIError {
	slog.Error("project operation failed",
		slog.String("operation", verb+" "+entity),
		slog.String("user_id", userID),
		slog.String("project_id", projectID),
		slog.String("error", err.Error()),
	)
	return model.NewInternalError(verb, entity)
}

func validateName(raw string) (string, *model.APIError) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", model.NewValidationError("name", "Name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "", model.NewValidationError("name", "Name must be 100 characters or less")
	}
	return name, nil
}

// normalizeColor はカラーコードを検証し、大文字に揃えて返す。
func normalizeColor(raw string) (string, *model.APIError) {
	if !colorPattern.MatchString(raw) {
		return "", model.NewValidationError("color", MsgInvalidColor)
	}
	return strings.ToUpper(raw), nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/taskhub/internal/model"
)

// PostgresProjectRepo はPostgreSQLを使用したプロジェクトリポジトリ。
type PostgresProjectRepo struct {
	db *sql.DB
}

// NewPostgresProjectRepo はPostgresProjectRepoを生成する。
func NewPostgresProjectRepo(db *sql.DB) *PostgresProjectRepo {
	return &PostgresProjectRepo{db: db}
}

const projectColumns = `id, name, description, color, user_id, created_at, updated_at`

// FindByIDAndUser は所有者で絞り込んでプロジェクトを取得する。
func (r *PostgresProjectRepo) FindByIDAndUser(ctx context.Context, id, userID string) (*model.Project, error) {
	project, err := scanProject(r.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1 AND user_id = $2`,
		id, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return project, nil
}

// Create はプロジェクトを作成する。
func (r *PostgresProjectRepo) Create(ctx context.Context, project *model.Project) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, description, color, user_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		project.ID, project.Name, project.Description, project.Color, project.UserID,
		project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}
	return nil
}

// Update は所有者で絞り込んでプロジェクトを更新する。
func (r *PostgresProjectRepo) Update(ctx context.Context, project *model.Project) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE projects SET name = $1, description = $2, color = $3, updated_at = $4
		 WHERE id = $5 AND user_id = $6`,
		project.Name, project.Description, project.Color, project.UpdatedAt,
		project.ID, project.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	return requireAffected(result)
}

// Delete は所有者で絞り込んでプロジェクトを削除する。
// 所属タスクのproject_idは外部キー制約によりNULLになる。
func (r *PostgresProjectRepo) Delete(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM projects WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return requireAffected(result)
}

// List は条件に一致するプロジェクトの1ページ分と総件数を返す。
func (r *PostgresProjectRepo) List(ctx context.Context, filter model.ProjectFilter, opts model.ListOptions) ([]*model.Project, int, error) {
	w := &whereBuilder{}
	w.eq("user_id", filter.UserID)
	if filter.Name != nil {
		w.eq("name", *filter.Name)
	}
	if filter.Color != nil {
		w.eq("color", *filter.Color)
	}
	where := w.String()

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM projects`+where,
		w.args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count projects: %w", err)
	}

	page, err := w.orderAndPage(projectSortColumns, opts)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects`+where+page,
		w.args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]*model.Project, 0, opts.Limit)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate projects: %w", err)
	}
	return projects, total, nil
}

// rowScanner は*sql.Rowと*sql.Rowsの共通インターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*model.Project, error) {
	p := &model.Project{}
	var description sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &description, &p.Color, &p.UserID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Description = nullStringPtr(description)
	return p, nil
}

// compile-time interface check
var _ ProjectRepository = (*PostgresProjectRepo)(nil)

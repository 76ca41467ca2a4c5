package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/taskhub/internal/model"
)

// PostgresTaskRepo はPostgreSQLを使用したタスクリポジトリ。
type PostgresTaskRepo struct {
	db *sql.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sql.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

const taskColumns = `id, title, description, status, priority, due_date, completed_at, project_id, user_id, created_at, updated_at`

// FindByIDAndUser は所有者で絞り込んでタスクを取得する。
func (r *PostgresTaskRepo) FindByIDAndUser(ctx context.Context, id, userID string) (*model.Task, error) {
	task, err := scanTask(r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`,
		id, userID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// Create はタスクを作成する。
func (r *PostgresTaskRepo) Create(ctx context.Context, task *model.Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, description, status, priority, due_date, completed_at,
		                    project_id, user_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		task.ID, task.Title, task.Description, string(task.Status), string(task.Priority),
		task.DueDate, task.CompletedAt, task.ProjectID, task.UserID,
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// Update は所有者で絞り込んでタスクを更新する。
func (r *PostgresTaskRepo) Update(ctx context.Context, task *model.Task) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET title = $1, description = $2, status = $3, priority = $4,
		                  due_date = $5, completed_at = $6, project_id = $7, updated_at = $8
		 WHERE id = $9 AND user_id = $10`,
		task.Title, task.Description, string(task.Status), string(task.Priority),
		task.DueDate, task.CompletedAt, task.ProjectID, task.UpdatedAt,
		task.ID, task.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return requireAffected(result)
}

// Delete は所有者で絞り込んでタスクを削除する。
func (r *PostgresTaskRepo) Delete(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return requireAffected(result)
}

// List は条件に一致するタスクの1ページ分と総件数を返す。
func (r *PostgresTaskRepo) List(ctx context.Context, filter model.TaskFilter, opts model.ListOptions) ([]*model.Task, int, error) {
	w := &whereBuilder{}
	w.eq("user_id", filter.UserID)
	if filter.Status != nil {
		w.eq("status", string(*filter.Status))
	}
	if filter.Priority != nil {
		w.eq("priority", string(*filter.Priority))
	}
	if filter.ProjectID != nil {
		w.eq("project_id", *filter.ProjectID)
	}
	where := w.String()

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks`+where,
		w.args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	page, err := w.orderAndPage(taskSortColumns, opts)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks`+where+page,
		w.args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*model.Task, 0, opts.Limit)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, total, nil
}

func scanTask(row rowScanner) (*model.Task, error) {
	t := &model.Task{}
	var (
		description sql.NullString
		projectID   sql.NullString
		dueDate     sql.NullTime
		completedAt sql.NullTime
		status      string
		priority    string
	)
	if err := row.Scan(
		&t.ID, &t.Title, &description, &status, &priority,
		&dueDate, &completedAt, &projectID, &t.UserID,
		&t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	t.Description = nullStringPtr(description)
	t.Status = model.TaskStatus(status)
	t.Priority = model.TaskPriority(priority)
	t.DueDate = nullTimePtr(dueDate)
	t.CompletedAt = nullTimePtr(completedAt)
	t.ProjectID = nullStringPtr(projectID)
	return t, nil
}

// compile-time interface check
var _ TaskRepository = (*PostgresTaskRepo)(nil)

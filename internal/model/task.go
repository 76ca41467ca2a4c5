package model

import "time"

// TaskStatus はタスクの進捗状態。
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
)

// Valid は定義済みの状態かどうかを返す。
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// TaskPriority はタスクの優先度。
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
)

// Valid は定義済みの優先度かどうかを返す。
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// Task はユーザーが所有するタスクを表す。
// ProjectIDを持つ場合、そのプロジェクトも同じユーザーの所有である。
type Task struct {
	ID          string
	Title       string
	Description *string
	Status      TaskStatus
	Priority    TaskPriority
	DueDate     *time.Time
	CompletedAt *time.Time
	ProjectID   *string
	UserID      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskFilter はタスク一覧の絞り込み条件。
// UserIDは必須で、常に所有者で絞り込む。
type TaskFilter struct {
	UserID    string
	Status    *TaskStatus
	Priority  *TaskPriority
	ProjectID *string
}

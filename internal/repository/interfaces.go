// Package repository はデータ永続化のインターフェースとPostgreSQL実装を提供する。
//
// プロジェクトとタスクの検索・更新・削除はすべて {id, user_id} の組で1クエリに絞り込む。
// 他ユーザー所有のレコードは存在しないレコードと区別できない。
package repository

import (
	"context"

	"github.com/hitoshi/taskhub/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。メールアドレス重複時はErrDuplicateを返す。
	Create(ctx context.Context, user *model.User) error

	// Update はユーザーの名前とメールアドレスを更新する。
	// メールアドレス重複時はErrDuplicate、対象が無い場合はErrNotFoundを返す。
	Update(ctx context.Context, user *model.User) error

	// DeleteWithOwnedData はユーザーの全タスク、全プロジェクト、ユーザー本体を
	// 1トランザクションで削除する。途中で失敗した場合は何も削除されない。
	DeleteWithOwnedData(ctx context.Context, id string) error
}

// ProjectRepository はプロジェクトデータの永続化インターフェース。
type ProjectRepository interface {
	// FindByIDAndUser は所有者で絞り込んでプロジェクトを取得する。見つからない場合はnilを返す。
	FindByIDAndUser(ctx context.Context, id, userID string) (*model.Project, error)

	// Create はプロジェクトを作成する。
	Create(ctx context.Context, project *model.Project) error

	// Update は所有者で絞り込んでプロジェクトを更新する。対象が無い場合はErrNotFoundを返す。
	Update(ctx context.Context, project *model.Project) error

	// Delete は所有者で絞り込んでプロジェクトを削除する。対象が無い場合はErrNotFoundを返す。
	Delete(ctx context.Context, id, userID string) error

	// List は条件に一致するプロジェクトの1ページ分と総件数を返す。
	List(ctx context.Context, filter model.ProjectFilter, opts model.ListOptions) ([]*model.Project, int, error)
}

// TaskRepository はタスクデータの永続化インターフェース。
type TaskRepository interface {
	// FindByIDAndUser は所有者で絞り込んでタスクを取得する。見つからない場合はnilを返す。
	FindByIDAndUser(ctx context.Context, id, userID string) (*model.Task, error)

	// Create はタスクを作成する。
	Create(ctx context.Context, task *model.Task) error

	// Update は所有者で絞り込んでタスクを更新する。対象が無い場合はErrNotFoundを返す。
	Update(ctx context.Context, task *model.Task) error

	// Delete は所有者で絞り込んでタスクを削除する。対象が無い場合はErrNotFoundを返す。
	Delete(ctx context.Context, id, userID string) error

	// List は条件に一致するタスクの1ページ分と総件数を返す。
	List(ctx context.Context, filter model.TaskFilter, opts model.ListOptions) ([]*model.Task, int, error)
}

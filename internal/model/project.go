package model

import "time"

// DefaultProjectColor は色未指定のプロジェクトに設定する色。
const DefaultProjectColor = "#3B82F6"

// Project はユーザーが所有するプロジェクトを表す。
type Project struct {
	ID          string
	Name        string
	Description *string
	Color       string
	UserID      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProjectFilter はプロジェクト一覧の絞り込み条件。
// UserIDは必須で、常に所有者で絞り込む。
type ProjectFilter struct {
	UserID string
	Name   *string
	Color  *string
}

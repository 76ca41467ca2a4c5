package repository

import (
	"fmt"
	"strings"

	"github.com/hitoshi/taskhub/internal/model"
)

// projectSortColumns はAPI上のソートフィールド名とprojectsテーブルのカラムの対応。
var projectSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"name":      "name",
	"color":     "color",
}

// taskSortColumns はAPI上のソートフィールド名とtasksテーブルのカラムの対応。
var taskSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"title":     "title",
	"status":    "status",
	"priority":  "priority",
	"dueDate":   "due_date",
}

// IsProjectSortField はプロジェクト一覧でソート可能なフィールドかを返す。
func IsProjectSortField(field string) bool {
	_, ok := projectSortColumns[field]
	return ok
}

// IsTaskSortField はタスク一覧でソート可能なフィールドかを返す。
func IsTaskSortField(field string) bool {
	_, ok := taskSortColumns[field]
	return ok
}

// whereBuilder は等価条件をANDで連結し、プレースホルダ番号を採番する。
type whereBuilder struct {
	clauses []string
	args    []any
}

func (w *whereBuilder) eq(column string, value any) {
	w.args = append(w.args, value)
	w.clauses = append(w.clauses, fmt.Sprintf("%s = $%d", column, len(w.args)))
}

func (w *whereBuilder) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// orderAndPage はORDER BY / LIMIT / OFFSET 句を組み立てる。
// 同順位の並びを固定するため、常にidを第2キーに加える。
func (w *whereBuilder) orderAndPage(columns map[string]string, opts model.ListOptions) (string, error) {
	column, ok := columns[opts.SortField]
	if !ok {
		return "", fmt.Errorf("unsupported sort field: %q", opts.SortField)
	}
	dir := opts.SortDirection
	if dir != model.SortAsc && dir != model.SortDesc {
		return "", fmt.Errorf("unsupported sort direction: %q", dir)
	}

	w.args = append(w.args, opts.Limit, opts.Offset)
	return fmt.Sprintf(" ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d",
		column, dir, dir, len(w.args)-1, len(w.args)), nil
}

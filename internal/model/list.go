package model

import "strings"

// SortDirection は一覧のソート方向。
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// 一覧取得のページング既定値と上限。
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ページング条件の検証エラーメッセージ。
const (
	MsgInvalidLimit  = "Limit must be between 1 and 100"
	MsgInvalidOffset = "Offset must be non-negative"
)

// ListOptions は一覧取得のソートとページング条件。
// SortFieldはAPI上のフィールド名（createdAtなど）で、リポジトリ層でカラム名に変換する。
type ListOptions struct {
	SortField     string
	SortDirection SortDirection
	Limit         int
	Offset        int
}

// 一覧取得の既定ソート。
const (
	DefaultSortField     = "createdAt"
	DefaultSortDirection = SortDesc
)

// ListInput はクライアントから受け取った未検証のソートとページング条件。
// 未指定の項目は既定値で補う。
type ListInput struct {
	SortField     string
	SortDirection string
	Limit         *int
	Offset        *int
}

// Normalize は既定値を補って検証し、ListOptionsに変換する。
// sortableはソート可能なフィールド名かを判定する。
func (in ListInput) Normalize(sortable func(field string) bool) (ListOptions, error) {
	opts := ListOptions{
		SortField:     DefaultSortField,
		SortDirection: DefaultSortDirection,
		Limit:         DefaultListLimit,
	}

	if in.SortField != "" {
		if !sortable(in.SortField) {
			return ListOptions{}, NewValidationError("sort", "Invalid sort field")
		}
		opts.SortField = in.SortField
	}

	if in.SortDirection != "" {
		switch dir := SortDirection(strings.ToUpper(in.SortDirection)); dir {
		case SortAsc, SortDesc:
			opts.SortDirection = dir
		default:
			return ListOptions{}, NewValidationError("sort", "Invalid sort direction")
		}
	}

	if in.Limit != nil {
		if *in.Limit < 1 || *in.Limit > MaxListLimit {
			return ListOptions{}, NewValidationError("limit", MsgInvalidLimit)
		}
		opts.Limit = *in.Limit
	}

	if in.Offset != nil {
		if *in.Offset < 0 {
			return ListOptions{}, NewValidationError("offset", MsgInvalidOffset)
		}
		opts.Offset = *in.Offset
	}

	return opts, nil
}

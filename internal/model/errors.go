// Package model はドメインモデルを定義する。
package model

import (
	"fmt"
	"strings"
)

// APIError はフィールド単位で返す統一エラーフォーマットを表す。
// Fieldはクライアントがエラー表示位置を決めるために使う。
type APIError struct {
	Code    string // エラーコード
	Field   string // 対象フィールド: auth, email, password, name, title, color, project, task, user, general など
	Message string // クライアントへ返すメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	ErrCodeInvalidToken           = "INVALID_TOKEN"
	ErrCodeValidation             = "VALIDATION_ERROR"
	ErrCodeNotFound               = "NOT_FOUND"
	ErrCodeConflict               = "CONFLICT"
	ErrCodeInvalidCredentials     = "INVALID_CREDENTIALS"
	ErrCodeInternal               = "INTERNAL_ERROR"
)

// エラーメッセージ（APIの契約の一部なので英語のまま固定）
const (
	MsgAuthenticationRequired = "Authentication required"
	MsgInvalidToken           = "Invalid token"
	MsgInvalidCredentials     = "Invalid email or password"
	MsgProjectAccessDenied    = "Project not found or access denied"
	MsgEmailAlreadyExists     = "Email already exists"
	MsgInvalidUserID          = "Invalid user id"
)

// NewAuthenticationRequiredError はBearerトークンが無い場合のエラーを生成する。
func NewAuthenticationRequiredError() *APIError {
	return &APIError{Code: ErrCodeAuthenticationRequired, Field: "auth", Message: MsgAuthenticationRequired}
}

// NewInvalidTokenError はトークン検証に失敗した場合のエラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{Code: ErrCodeInvalidToken, Field: "auth", Message: MsgInvalidToken}
}

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(field, message string) *APIError {
	return &APIError{Code: ErrCodeValidation, Field: field, Message: message}
}

// NewNotFoundError はレコード未検出エラーを生成する。
// 他ユーザー所有のレコードも同じエラーになる。
// entityは小文字の "project" / "task" / "user" を渡す。
func NewNotFoundError(entity string) *APIError {
	return &APIError{
		Code:    ErrCodeNotFound,
		Field:   entity,
		Message: capitalize(entity) + " not found",
	}
}

// NewProjectAccessDeniedError はタスクが参照するプロジェクトを所有していない場合のエラーを生成する。
func NewProjectAccessDeniedError() *APIError {
	return &APIError{Code: ErrCodeNotFound, Field: "project", Message: MsgProjectAccessDenied}
}

// NewConflictError は一意制約違反エラーを生成する。
func NewConflictError(field, message string) *APIError {
	return &APIError{Code: ErrCodeConflict, Field: field, Message: message}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// メール不一致とパスワード不一致でメッセージは同じにする。
func NewInvalidCredentialsError(field string) *APIError {
	return &APIError{Code: ErrCodeInvalidCredentials, Field: field, Message: MsgInvalidCredentials}
}

// NewInternalError は想定外エラーを汎用メッセージに置き換えたエラーを生成する。
// 例: NewInternalError("create", "task") → "Failed to create task"
func NewInternalError(verb, entity string) *APIError {
	return &APIError{
		Code:    ErrCodeInternal,
		Field:   "general",
		Message: fmt.Sprintf("Failed to %s %s", verb, entity),
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

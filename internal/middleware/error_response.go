package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/taskhub/internal/model"
)

// ErrorDetail はフィールド単位のエラー。
type ErrorDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// {"success": false, "errors": [{"field": ..., "message": ...}]}
type ErrorResponseBody struct {
	Success bool          `json:"success"`
	Errors  []ErrorDetail `json:"errors"`
}

// StatusForAPIError はエラーコードに対応するHTTPステータスコードを返す。
func StatusForAPIError(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeAuthenticationRequired, model.ErrCodeInvalidToken, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeValidation:
		return http.StatusBadRequest
	case model.ErrCodeNotFound:
		return http.StatusNotFound
	case model.ErrCodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Success: false,
		Errors:  []ErrorDetail{{Field: apiErr.Field, Message: apiErr.Message}},
	})
}

// WriteAPIError はエラーコードからステータスコードを決めてレスポンスを書き込む。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	WriteErrorResponse(w, StatusForAPIError(apiErr), apiErr)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:    model.ErrCodeInternal,
		Field:   "general",
		Message: "Internal server error",
	})
}

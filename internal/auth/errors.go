// Package auth はパスワードポリシー、JWTトークンの発行・検証、
// Authorizationヘッダーからの認証を提供する。
package auth

import "errors"

var (
	// ErrAuthenticationRequired はBearerトークンが提示されていないことを表す。
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrInvalidToken はトークンの署名・有効期限・ペイロードのいずれかが不正であることを表す。
	// 呼び出し元には失敗理由を区別させない。
	ErrInvalidToken = errors.New("invalid token")
	// ErrConfiguration は署名鍵や有効期間の設定が不正であることを表す。
	ErrConfiguration = errors.New("token configuration error")
	// ErrHashing はパスワードのハッシュ化に失敗したことを表す。
	ErrHashing = errors.New("password hashing failed")
	// ErrVerification はパスワード照合処理自体が失敗したことを表す（不一致は含まない）。
	ErrVerification = errors.New("password verification failed")
)

package model

import "time"

// User はサービス利用ユーザーを表す。
// PasswordHashはAPIレスポンスに含めない。
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuthPayload はログイン成功時に返すトークンとユーザー。
type AuthPayload struct {
	Token string
	User  *User
}

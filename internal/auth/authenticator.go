package auth

import (
	"strings"
)

// bearerPrefix はAuthorizationヘッダーのスキーム部分。大文字小文字を区別する。
const bearerPrefix = "Bearer "

// TokenVerifier はトークンを検証してペイロードを返す。
type TokenVerifier interface {
	Verify(token string) (*Payload, error)
}

// Authenticator はAuthorizationヘッダーからリクエストの利用者を特定する。
// ネットワークやストレージへのアクセスは行わない。
type Authenticator struct {
	verifier TokenVerifier
}

// NewAuthenticator はAuthenticatorを生成する。
func NewAuthenticator(verifier TokenVerifier) *Authenticator {
	return &Authenticator{verifier: verifier}
}

// Authenticate はAuthorizationヘッダーの値を検証する。
// ヘッダーが無い、Bearerで始まらない、トークンが空の場合はErrAuthenticationRequiredを返す。
// トークン検証の失敗はTokenVerifierのエラー（ErrInvalidToken）をそのまま返す。
func (a *Authenticator) Authenticate(header string) (*Payload, error) {
	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok || strings.TrimSpace(token) == "" {
		return nil, ErrAuthenticationRequired
	}

	payload, err := a.verifier.Verify(token)
	if err != nil {
		return nil, err
	}
	if payload == nil || payload.UserID == "" {
		return nil, ErrInvalidToken
	}
	return payload, nil
}

// ContextUser は認証済みリクエストの利用者。
type ContextUser struct {
	ID string
}

// RequestContext はリクエスト単位の認証結果。
// 未認証ならUserはnil、認証済みならUserにユーザーIDが入る。
type RequestContext struct {
	User            *ContextUser
	IsAuthenticated bool
}

// UserID は認証済みならユーザーIDを、未認証なら空文字を返す。
func (rc RequestContext) UserID() string {
	if !rc.IsAuthenticated || rc.User == nil {
		return ""
	}
	return rc.User.ID
}

// BuildContext はAuthenticateの失敗をすべて未認証として扱い、RequestContextを返す。
func (a *Authenticator) BuildContext(header string) RequestContext {
	payload, err := a.Authenticate(header)
	if err != nil {
		return RequestContext{}
	}
	return RequestContext{
		User:            &ContextUser{ID: payload.UserID},
		IsAuthenticated: true,
	}
}

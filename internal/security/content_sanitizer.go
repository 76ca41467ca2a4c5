// Package security はユーザー入力のサニタイズを提供する。
//
// プロジェクトとタスクの説明文はプレーンテキストとして保存する。
// HTMLタグはbluemondayで取り除き、文字はクライアントが送ったとおりに残す。
// 表示時のエスケープはレンダラー側の責務とする。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// DescriptionSanitizer は説明文のサニタイズ機能のインターフェース。
type DescriptionSanitizer interface {
	// Sanitize はタグを除いたプレーンテキストを前後の空白を除いて返す。
	// 同一入力に対して常に同一出力を返す。
	Sanitize(raw string) string
}

// descriptionSanitizer はDescriptionSanitizerの実装。
// bluemondayのPolicyはスレッドセーフなので共有してよい。
type descriptionSanitizer struct {
	policy *bluemonday.Policy
}

// NewDescriptionSanitizer は説明文用のサニタイザーを生成する。
// すべてのタグと属性を除去し、script, style, iframe などは中身ごと捨てる。
func NewDescriptionSanitizer() *descriptionSanitizer {
	return &descriptionSanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize は説明文からタグを除去する。
// bluemondayは出力をHTMLエスケープするため、テキストとして保存する前に元の文字へ戻す。
func (s *descriptionSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(raw)))
}

// Package security は入力コンテンツの無害化を提供する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer はリスト説明文などのリッチテキストを許可タグのみに削る。
type ContentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerの新しいインスタンスを生成する。
// 許可するのは基本的な書式タグのみで、属性は一切許可しない。
// scriptやaを含む未許可タグはタグだけ剥がし、中のテキストは残す。
func NewContentSanitizer() *ContentSanitizer {
	policy := bluemonday.NewPolicy()
	policy.AllowElements("p", "strong", "em", "u", "s", "code", "ul", "ol", "li", "br")
	return &ContentSanitizer{policy: policy}
}

// Sanitize はHTMLを許可タグのみに無害化し、前後の空白を取り除く。
// 空入力は空のまま返す。
func (s *ContentSanitizer) Sanitize(html string) string {
	if html == "" {
		return ""
	}
	return strings.TrimSpace(s.policy.Sanitize(html))
}

// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, vote, billing, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeAuthenticationRequired = "AUTHENTICATION_REQUIRED"
	ErrCodeValidationFailed       = "VALIDATION_FAILED"
	ErrCodeNotFound               = "NOT_FOUND"
	ErrCodeConflict               = "CONFLICT"
	ErrCodeExternalService        = "EXTERNAL_SERVICE_ERROR"
	ErrCodeSignatureInvalid       = "SIGNATURE_INVALID"
	ErrCodeAlreadyCopied          = "ALREADY_COPIED"
	ErrCodeOwnList                = "OWN_LIST"
	ErrCodeSoldOut                = "SOLD_OUT"
)

// NewAuthenticationRequiredError は未認証エラーを生成する。
func NewAuthenticationRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeAuthenticationRequired,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewValidationFailedError は入力不正エラーを生成する。
func NewValidationFailedError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewListNotFoundError はリスト未検出エラーを生成する。
// 非公開リストは所有者であっても投票対象として見えないため、
// 権限エラーと区別せずNOT_FOUNDに統一する。
func NewListNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  "指定されたリストが見つかりません。",
		Category: "vote",
		Action:   "リストが公開されているか確認してください。",
	}
}

// NewVoteConflictError は同時投票の競合エラーを生成する。
// 一時的な競合であり、呼び出し側の再試行で解消できる。
func NewVoteConflictError() *APIError {
	return &APIError{
		Code:     ErrCodeConflict,
		Message:  "投票が競合しました。",
		Category: "vote",
		Action:   "もう一度お試しください。",
	}
}

// NewSignatureInvalidError はWebhook署名検証失敗エラーを生成する。
// 偽造または破損したイベントを示すため、呼び出し側は再試行しない。
func NewSignatureInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeSignatureInvalid,
		Message:  "Webhookイベントの署名を検証できませんでした。",
		Category: "billing",
		Action:   "Webhookシークレットの設定を確認してください。",
	}
}

// NewExternalServiceError は決済プロバイダ由来のエラーを生成する。
// messageには分類済みのユーザー向けメッセージを渡す。
func NewExternalServiceError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeExternalService,
		Message:  message,
		Category: "billing",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewAlreadyCopiedError は同一リストの二重複製エラーを生成する。
func NewAlreadyCopiedError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyCopied,
		Message:  "このリストはすでに保存済みです。",
		Category: "validation",
		Action:   "ダッシュボードから保存済みリストを確認してください。",
	}
}

// NewOwnListError は自分のリストを複製しようとした場合のエラーを生成する。
func NewOwnListError() *APIError {
	return &APIError{
		Code:     ErrCodeOwnList,
		Message:  "自分のリストは複製できません。",
		Category: "validation",
		Action:   "他のユーザーの公開リストを選択してください。",
	}
}

// NewSoldOutError はライフタイム購入枠の完売エラーを生成する。
func NewSoldOutError() *APIError {
	return &APIError{
		Code:     ErrCodeSoldOut,
		Message:  "ライフタイムプランは完売しました。",
		Category: "billing",
		Action:   "月額または年額プランをご検討ください。",
	}
}

// Package model はドメインモデルを定義する。
package model

import "time"

// Tier はユーザーのサブスクリプション階層を表す。
type Tier string

const (
	// TierFree は無料プラン。非公開リストはFreeTierPrivateListLimit件まで。
	TierFree Tier = "free"
	// TierPremium は有料プラン。非公開リスト数に制限なし。
	TierPremium Tier = "premium"
)

// FreeTierPrivateListLimit は無料プランで保持できる非公開リストの上限数。
// ダウングレード調整処理とテストの両方が参照する公開契約値。
const FreeTierPrivateListLimit = 2

// DowngradeNotice はダウングレードで強制公開されたリスト数の未確認通知を表す。
// ユーザーが明示的に確認するまでusersレコードに保持される。
// 変換が発生しなかった場合は通知自体を付与しない（count 0の通知は作らない）。
type DowngradeNotice struct {
	PrivatizedCount int `json:"privatized_count"`
}

// User はサービス利用ユーザーを表す。
// StripeCustomerIDは初回チェックアウト時に遅延割り当てされるためnullable。
// Usernameが未設定のユーザーのリストは発見フィードから除外される。
type User struct {
	ID                     string
	Email                  string
	Username               *string
	ProfilePictureURL      *string
	AvatarURL              *string
	Tier                   Tier
	LifetimePurchase       bool
	StripeCustomerID       *string
	PendingDowngradeNotice *DowngradeNotice
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// SupportTicket はユーザーからの問い合わせを表す。
type SupportTicket struct {
	ID        string
	UserID    string
	Type      string
	Message   string
	CreatedAt time.Time
}

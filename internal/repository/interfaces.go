// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/studyshare/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByStripeCustomerID はStripe顧客IDでユーザーを検索する。
	// 見つからない場合はnilを返す（削除済みアカウントへの迷子イベント対策）。
	FindByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error)

	// SetStripeCustomerID は初回チェックアウト時に遅延割り当てされた顧客IDを保存する。
	SetStripeCustomerID(ctx context.Context, userID, customerID string) error

	// SetPremium はユーザーをpremiumに昇格し、顧客IDを保存する。
	// lifetimeがtrueの場合はライフタイム購入フラグも立てる。
	SetPremium(ctx context.Context, userID, customerID string, lifetime bool) error

	// SetTierByCustomerID は顧客IDで特定されるユーザーのtierを更新する。
	SetTierByCustomerID(ctx context.Context, customerID string, tier model.Tier) error

	// DowngradeToFree はtierをfreeへ変更し、convertListIDsのリストを公開へ反転する。
	// 両方の更新は単一トランザクションでコミットされる。
	// convertListIDsが空でない場合のみpending_downgrade_noticeを件数付きで記録し、
	// 空の場合は通知フィールドに触れない（件数0の通知は作らない）。
	DowngradeToFree(ctx context.Context, userID string, convertListIDs []string) error

	// ClearDowngradeNotice は未確認のダウングレード通知を消去する。
	ClearDowngradeNotice(ctx context.Context, userID string) error

	// CountLifetimePurchases はライフタイム購入済みユーザー数を返す。
	CountLifetimePurchases(ctx context.Context) (int, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// StudyListRepository は学習リストデータの永続化インターフェース。
type StudyListRepository interface {
	// FindPublicByID は公開中のリストを取得する。
	// 非公開または存在しない場合はnilを返す（所有者であっても区別しない）。
	FindPublicByID(ctx context.Context, id string) (*model.StudyList, error)

	// ListPublicWithOwner は発見フィード対象のリストを所有者情報・項目数・複製数付きで返す。
	// 対象は is_public = TRUE かつ所有者のusernameが設定済みのリストのみ。
	// categoryがnil以外の場合は完全一致でフィルタする。
	ListPublicWithOwner(ctx context.Context, category *model.Category) ([]DiscoveryListRow, error)

	// ListPrivateIDsByUser はユーザーの非公開リストIDをupdated_at降順で返す。
	ListPrivateIDsByUser(ctx context.Context, userID string) ([]string, error)

	// FindByUserAndCopiedFrom はユーザーが指定リストから複製済みのリストを検索する。
	// 見つからない場合はnilを返す。
	FindByUserAndCopiedFrom(ctx context.Context, userID, copiedFromID string) (*model.StudyList, error)

	// SlugExists はユーザー内でslugが使用済みかを返す。
	SlugExists(ctx context.Context, userID, slug string) (bool, error)

	// ListItems はリストの項目をposition昇順で返す。
	ListItems(ctx context.Context, listID string) ([]*model.StudyItem, error)

	// CreateCopy は複製リストと項目を作成する。
	// 複製先ユーザーの既存リストのposition繰り上げと新規行の挿入を
	// 単一トランザクションで行う。
	CreateCopy(ctx context.Context, list *model.StudyList, items []*model.StudyItem) error
}

// VoteRepository は投票データの永続化インターフェース。
type VoteRepository interface {
	// FindByVoterAndList は(投票者, リスト)ペアの投票を取得する。見つからない場合はnilを返す。
	FindByVoterAndList(ctx context.Context, userID, listID string) (*model.Vote, error)

	// Create は投票行を挿入する。
	// unique(user_id, study_list_id)制約に衝突した場合はmodel.ErrVoteConflictを返す。
	Create(ctx context.Context, vote *model.Vote) error

	// UpdateType は投票種別をインプレースで更新する（削除+挿入はしない）。
	UpdateType(ctx context.Context, id string, voteType model.VoteType) error

	// Delete は投票行を削除する。
	Delete(ctx context.Context, id string) error

	// CountByListGrouped は(リスト, 種別)ごとの投票数を単一のGROUP BYクエリで返す。
	// 投票のないリストは結果に含まれない（呼び出し側で0扱い）。
	CountByListGrouped(ctx context.Context, listIDs []string) ([]VoteCountRow, error)

	// ListByVoterAndLists は投票者の投票を指定リスト群に限定して返す。
	ListByVoterAndLists(ctx context.Context, userID string, listIDs []string) ([]*model.Vote, error)
}

// SupportTicketRepository は問い合わせデータの永続化インターフェース。
type SupportTicketRepository interface {
	// Create は問い合わせを作成する。
	Create(ctx context.Context, ticket *model.SupportTicket) error
}

// DiscoveryListRow は発見フィード用にリストと所有者情報・集計値を結合した構造体。
type DiscoveryListRow struct {
	model.StudyList
	OwnerUsername          string
	OwnerProfilePictureURL *string
	OwnerAvatarURL         *string
	ItemCount              int
	CopyCount              int
}

// VoteCountRow は(リスト, 種別)ごとの投票集計行。
type VoteCountRow struct {
	StudyListID string
	Type        model.VoteType
	Count       int
}

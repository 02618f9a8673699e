// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"time"
)

// VoteType は投票の種別を表す。
type VoteType string

const (
	// VoteUp は賛成票。
	VoteUp VoteType = "UP"
	// VoteDown は反対票。
	VoteDown VoteType = "DOWN"
)

// IsValidVoteType は文字列が有効な投票種別かを返す。
func IsValidVoteType(s string) bool {
	return s == string(VoteUp) || s == string(VoteDown)
}

// Vote は(投票者, リスト)ペアに対する投票を表す。
// 同一ペアに対する投票行は高々1件。この不変条件はDBの
// unique(user_id, study_list_id)制約とVote Ledgerのトグル遷移で保証される。
type Vote struct {
	ID          string
	UserID      string
	StudyListID string
	Type        VoteType
	CreatedAt   time.Time
}

// ErrVoteConflict は同一ペアへの同時初回投票がunique制約に衝突したことを示す。
// リポジトリ層がpqのunique_violationをこのセンチネルに変換し、
// サービス層は一度だけ読み直してトグル遷移をやり直す。
var ErrVoteConflict = errors.New("vote already exists for this user and list")

// Package vote は投票台帳のドメインロジックを提供する。
package vote

import "github.com/hitoshi/studyshare/internal/model"

// State は(投票者, リスト)ペアの投票状態を表す。
type State int

const (
	// StateNone は投票が存在しない状態。
	StateNone State = iota
	// StateUp は賛成票が存在する状態。
	StateUp
	// StateDown は反対票が存在する状態。
	StateDown
)

// Action は状態遷移に必要なストレージ操作を表す。
type Action int

const (
	// ActionInsert は新規投票行の挿入。
	ActionInsert Action = iota
	// ActionDelete は既存投票行の削除（同種の再投票によるトグル解除）。
	ActionDelete
	// ActionUpdate は既存投票行の種別インプレース更新（反対種別への切り替え）。
	ActionUpdate
)

// StateOf は既存投票からStateを導出する。nilはStateNone。
func StateOf(existing *model.Vote) State {
	if existing == nil {
		return StateNone
	}
	if existing.Type == model.VoteUp {
		return StateUp
	}
	return StateDown
}

// Transition は現在の状態とキャストされた種別から実行すべき操作を返す。
// 遷移規則:
//
//	None --cast(X)--> X          (挿入)
//	X    --cast(X)--> None       (削除。冪等なsetではなくトグル)
//	X    --cast(Y), Y≠X--> Y     (種別のインプレース更新)
//
// ストレージに依存しない純粋関数。
func Transition(current State, cast model.VoteType) Action {
	if current == StateNone {
		return ActionInsert
	}
	if (current == StateUp && cast == model.VoteUp) ||
		(current == StateDown && cast == model.VoteDown) {
		return ActionDelete
	}
	return ActionUpdate
}

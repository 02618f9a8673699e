// Package discovery は公開リストの発見フィードを提供する。
package discovery

import (
	"sort"
	"time"

	"github.com/hitoshi/studyshare/internal/model"
	"github.com/hitoshi/studyshare/internal/repository"
)

const (
	// PageSize は発見フィードの1ページあたりのリスト数。
	PageSize = 12
	// FreshnessWindowDays は鮮度ボーナスが付く日数の上限。
	FreshnessWindowDays = 14
	// msPerDay は経過日数計算の分母（ミリ秒）。
	msPerDay = 86_400_000

	weightNetVotes  = 3
	weightCopyCount = 5
)

// FeedEntry は発見フィードの1エントリ。算出スコアと閲覧者自身の投票を含む。
type FeedEntry struct {
	repository.DiscoveryListRow
	UpVotes    int
	DownVotes  int
	Score      float64
	ViewerVote *model.VoteType // 閲覧者の投票種別。未投票・未ログインはnil
	Href       string          // 遷移先。所有者には自分のダッシュボード、他人には共有ページ
}

// Score は発見フィードの並び替えスコアを算出する。
//
//	score = netVotes*3 + copyCount*5 + freshnessBonus
//	freshnessBonus = max(0, 14 - 経過ミリ秒/86_400_000)
//
// netVotesは負になり得るためスコア全体も負になり得る。
func Score(upVotes, downVotes, copyCount int, createdAt, now time.Time) float64 {
	net := upVotes - downVotes
	return float64(net*weightNetVotes+copyCount*weightCopyCount) + freshnessBonus(createdAt, now)
}

// freshnessBonus は作成からの経過時間に応じた鮮度ボーナスを返す。
// 経過日数は端数込みで数え、14日にかけて連続的に減衰する。
// 日単位に切り捨てると半日差のリストが同点になり、
// 票もコピーもない新着が実績あるリストを追い越してしまう。
func freshnessBonus(createdAt, now time.Time) float64 {
	daysOld := float64(now.Sub(createdAt).Milliseconds()) / msPerDay
	if daysOld < 0 {
		daysOld = 0
	}
	bonus := FreshnessWindowDays - daysOld
	if bonus < 0 {
		return 0
	}
	return bonus
}

// SortEntries はフィードエントリを表示順に並び替える。
// スコア降順、同点はcreated_at降順、それも同じならID昇順。
// 最後のID比較により順序は完全に決定的になる。
func SortEntries(entries []FeedEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID < entries[j].ID
	})
}

// Paginate はソート済みエントリ列からカーソル以降の1ページを切り出す。
// cursorは前ページ最後のリストID。空なら先頭から。
// 並びに存在しないカーソル（リスト削除後など）は先頭ページへフォールバックする。
// 戻り値は (ページ, 次ページの有無)。
func Paginate(sorted []FeedEntry, cursor string) ([]FeedEntry, bool) {
	start := 0
	if cursor != "" {
		for i, e := range sorted {
			if e.ID == cursor {
				start = i + 1
				break
			}
		}
	}
	if start >= len(sorted) {
		return []FeedEntry{}, false
	}

	end := start + PageSize
	if end >= len(sorted) {
		return sorted[start:], false
	}
	return sorted[start:end], true
}

// NextCursor はページの次カーソルを返す。次ページがなければ空文字。
func NextCursor(page []FeedEntry, hasMore bool) string {
	if !hasMore || len(page) == 0 {
		return ""
	}
	return page[len(page)-1].ID
}

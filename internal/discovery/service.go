package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/studyshare/internal/model"
	"github.com/hitoshi/studyshare/internal/repository"
)

// MetricsRecorder は発見フィード取得のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordDiscoveryRequest(duration time.Duration)
}

// Page は発見フィードの1ページ分のレスポンス。
type Page struct {
	Entries    []FeedEntry
	NextCursor string
	HasMore    bool
}

// Service は発見フィードのサービス層。
// スコアは要求ごとに全公開リストに対して再計算する（キャッシュ層は持たない）。
type Service struct {
	listRepo repository.StudyListRepository
	voteRepo repository.VoteRepository
	metrics  MetricsRecorder
	now      func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。metricsはnil許容。
func NewService(
	listRepo repository.StudyListRepository,
	voteRepo repository.VoteRepository,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		listRepo: listRepo,
		voteRepo: voteRepo,
		metrics:  metrics,
		now:      time.Now,
	}
}

// FetchPage は発見フィードの1ページを返す。
//
// viewerIDは任意（未ログインは空文字）。viewerがいる場合はページ内の
// 各リストに対する本人の投票種別を付与する。
// categoryは定義済みカテゴリと完全一致した場合のみフィルタとして働き、
// 不正・未知の値は黙って無視して全件を返す（fail-open）。
// cursorは前ページ最後のリストID。未知のカーソルは先頭ページに戻る。
func (s *Service) FetchPage(ctx context.Context, viewerID, cursor, category string) (*Page, error) {
	start := s.now()

	var categoryFilter *model.Category
	if model.IsValidCategory(category) {
		c := model.Category(category)
		categoryFilter = &c
	}

	rows, err := s.listRepo.ListPublicWithOwner(ctx, categoryFilter)
	if err != nil {
		return nil, fmt.Errorf("公開リストの取得に失敗しました: %w", err)
	}

	listIDs := make([]string, len(rows))
	for i, row := range rows {
		listIDs[i] = row.ID
	}

	// 投票集計は全対象リストに対する単一のGROUP BYクエリ
	counts, err := s.voteRepo.CountByListGrouped(ctx, listIDs)
	if err != nil {
		return nil, fmt.Errorf("投票集計の取得に失敗しました: %w", err)
	}
	upByList := map[string]int{}
	downByList := map[string]int{}
	for _, c := range counts {
		if c.Type == model.VoteUp {
			upByList[c.StudyListID] = c.Count
		} else {
			downByList[c.StudyListID] = c.Count
		}
	}

	entries := make([]FeedEntry, len(rows))
	for i, row := range rows {
		up := upByList[row.ID]
		down := downByList[row.ID]
		entries[i] = FeedEntry{
			DiscoveryListRow: row,
			UpVotes:          up,
			DownVotes:        down,
			Score:            Score(up, down, row.CopyCount, row.CreatedAt, start),
		}
	}

	SortEntries(entries)
	page, hasMore := Paginate(entries, cursor)

	// 閲覧者の投票は返却するページ分だけ引く
	if viewerID != "" && len(page) > 0 {
		pageIDs := make([]string, len(page))
		for i, e := range page {
			pageIDs[i] = e.ID
		}
		viewerVotes, err := s.voteRepo.ListByVoterAndLists(ctx, viewerID, pageIDs)
		if err != nil {
			return nil, fmt.Errorf("閲覧者の投票取得に失敗しました: %w", err)
		}
		voteByList := map[string]model.VoteType{}
		for _, v := range viewerVotes {
			voteByList[v.StudyListID] = v.Type
		}
		for i := range page {
			if vt, ok := voteByList[page[i].ID]; ok {
				t := vt
				page[i].ViewerVote = &t
			}
		}
	}

	for i := range page {
		page[i].Href = hrefFor(&page[i], viewerID)
	}

	if s.metrics != nil {
		s.metrics.RecordDiscoveryRequest(s.now().Sub(start))
	}

	return &Page{
		Entries:    page,
		NextCursor: NextCursor(page, hasMore),
		HasMore:    hasMore,
	}, nil
}

// hrefFor は所有者本人には編集可能なダッシュボードのURL、
// それ以外の閲覧者には共有ページのURLを返す。
func hrefFor(entry *FeedEntry, viewerID string) string {
	if viewerID != "" && entry.UserID == viewerID {
		return "/dashboard/" + entry.Slug
	}
	return "/share/" + entry.ID
}

package handler

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/hitoshi/studyshare/internal/discovery"
	"github.com/hitoshi/studyshare/internal/middleware"
)

// DiscoveryServiceInterface は発見フィードハンドラーが必要とするサービスインターフェース。
type DiscoveryServiceInterface interface {
	FetchPage(ctx context.Context, viewerID, cursor, category string) (*discovery.Page, error)
}

// FeedVersion は発見フィードの世代番号を保持する。
// 投票・複製などの書き込みでインクリメントされ、ETagとして応答に載る。
// スコア自体はキャッシュしない。世代番号はクライアント・CDN側の
// キャッシュ済み描画を再検証させるためのシグナルになる。
type FeedVersion struct {
	v atomic.Int64
}

// InvalidateDiscovery は世代番号を進め、キャッシュ済みのフィード描画を無効化する。
func (f *FeedVersion) InvalidateDiscovery() {
	f.v.Add(1)
}

// ETag は現在の世代の弱い検証子を返す。
func (f *FeedVersion) ETag() string {
	return fmt.Sprintf(`W/"feed-v%d"`, f.v.Load())
}

// DiscoveryHandler は発見フィードのHTTPハンドラー。
type DiscoveryHandler struct {
	service DiscoveryServiceInterface
	version *FeedVersion
}

// NewDiscoveryHandler はDiscoveryHandlerを生成する。versionはnil許容。
func NewDiscoveryHandler(service DiscoveryServiceInterface, version *FeedVersion) *DiscoveryHandler {
	return &DiscoveryHandler{service: service, version: version}
}

// discoveryListResponse は発見フィードの1リスト分のAPIレスポンス。
type discoveryListResponse struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Slug            string  `json:"slug"`
	Description     *string `json:"description"`
	Category        string  `json:"category"`
	UserID          string  `json:"user_id"`
	OwnerUsername   string  `json:"owner_username"`
	OwnerPictureURL *string `json:"owner_profile_picture_url"`
	OwnerAvatarURL  *string `json:"owner_avatar_url"`
	ItemCount       int     `json:"item_count"`
	CopyCount       int     `json:"copy_count"`
	UpVotes         int     `json:"upvotes"`
	DownVotes       int     `json:"downvotes"`
	UserVote        *string `json:"user_vote"`
	Href            string  `json:"href"`
	Score           float64 `json:"score"` // 並び順の検証・デバッグ用に公開する
	CreatedAt       string  `json:"created_at"`
}

// discoveryResponse は発見フィードのAPIレスポンス。
type discoveryResponse struct {
	Lists           []discoveryListResponse `json:"lists"`
	NextCursor      *string                 `json:"nextCursor"`
	IsAuthenticated bool                    `json:"isAuthenticated"`
	CurrentUserID   *string                 `json:"currentUserId"`
}

// Fetch は発見フィードの取得を処理する。
// GET /api/discovery?cursor=&category=
// セッションは任意。未ログインでも閲覧できる。
func (h *DiscoveryHandler) Fetch(w http.ResponseWriter, r *http.Request) {
	viewerID := middleware.OptionalUserIDFromContext(r.Context())

	// 世代番号が一致すればボディを省略して再検証に応える
	if h.version != nil {
		etag := h.version.ETag()
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "private, no-cache")
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
	}

	query := r.URL.Query()
	page, err := h.service.FetchPage(r.Context(), viewerID, query.Get("cursor"), query.Get("category"))
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	resp := discoveryResponse{
		Lists:           make([]discoveryListResponse, len(page.Entries)),
		IsAuthenticated: viewerID != "",
	}
	if viewerID != "" {
		resp.CurrentUserID = &viewerID
	}
	if page.HasMore {
		cursor := page.NextCursor
		resp.NextCursor = &cursor
	}
	for i, entry := range page.Entries {
		resp.Lists[i] = toDiscoveryListResponse(entry)
	}

	writeJSON(w, http.StatusOK, resp)
}

func toDiscoveryListResponse(entry discovery.FeedEntry) discoveryListResponse {
	var userVote *string
	if entry.ViewerVote != nil {
		v := string(*entry.ViewerVote)
		userVote = &v
	}
	return discoveryListResponse{
		ID:              entry.ID,
		Title:           entry.Title,
		Slug:            entry.Slug,
		Description:     entry.Description,
		Category:        string(entry.Category),
		UserID:          entry.UserID,
		OwnerUsername:   entry.OwnerUsername,
		OwnerPictureURL: entry.OwnerProfilePictureURL,
		OwnerAvatarURL:  entry.OwnerAvatarURL,
		ItemCount:       entry.ItemCount,
		CopyCount:       entry.CopyCount,
		UpVotes:         entry.UpVotes,
		DownVotes:       entry.DownVotes,
		UserVote:        userVote,
		Href:            entry.Href,
		Score:           entry.Score,
		CreatedAt:       entry.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

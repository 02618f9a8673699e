package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hitoshi/studyshare/internal/discovery"
	"github.com/hitoshi/studyshare/internal/model"
	"github.com/hitoshi/studyshare/internal/repository"
)

// mockDiscoveryService はDiscoveryServiceInterfaceのモック実装。
type mockDiscoveryService struct {
	fetchPageFn func(ctx context.Context, viewerID, cursor, category string) (*discovery.Page, error)
}

func (m *mockDiscoveryService) FetchPage(ctx context.Context, viewerID, cursor, category string) (*discovery.Page, error) {
	if m.fetchPageFn != nil {
		return m.fetchPageFn(ctx, viewerID, cursor, category)
	}
	return &discovery.Page{}, nil
}

func feedEntry(id string) discovery.FeedEntry {
	return discovery.FeedEntry{
		DiscoveryListRow: repository.DiscoveryListRow{
			StudyList: model.StudyList{
				ID:        id,
				Title:     "Go基礎",
				Slug:      "go-basics",
				Category:  model.CategoryProgramming,
				UserID:    "owner-1",
				CreatedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
			},
			OwnerUsername: "alice",
			ItemCount:     5,
			CopyCount:     2,
		},
		UpVotes: 4,
		Score:   26,
		Href:    "/share/" + id,
	}
}

func TestDiscoveryHandler_Fetch_Success(t *testing.T) {
	svc := &mockDiscoveryService{
		fetchPageFn: func(ctx context.Context, viewerID, cursor, category string) (*discovery.Page, error) {
			if viewerID != "" {
				t.Errorf("viewerID = %q, want empty", viewerID)
			}
			return &discovery.Page{
				Entries:    []discovery.FeedEntry{feedEntry("list-1")},
				NextCursor: "list-1",
				HasMore:    true,
			}, nil
		},
	}
	h := NewDiscoveryHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/discovery", nil)
	w := httptest.NewRecorder()

	h.Fetch(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp discoveryResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Lists) != 1 {
		t.Fatalf("len(Lists) = %d, want 1", len(resp.Lists))
	}
	if resp.Lists[0].ID != "list-1" {
		t.Errorf("ID = %q, want %q", resp.Lists[0].ID, "list-1")
	}
	if resp.Lists[0].Href != "/share/list-1" {
		t.Errorf("Href = %q, want %q", resp.Lists[0].Href, "/share/list-1")
	}
	if resp.Lists[0].CreatedAt != "2026-08-30T12:00:00Z" {
		t.Errorf("CreatedAt = %q, want UTC RFC3339", resp.Lists[0].CreatedAt)
	}
	if resp.NextCursor == nil || *resp.NextCursor != "list-1" {
		t.Errorf("NextCursor = %v, want %q", resp.NextCursor, "list-1")
	}
	if resp.IsAuthenticated {
		t.Error("IsAuthenticated = true, want false")
	}
	if resp.CurrentUserID != nil {
		t.Errorf("CurrentUserID = %v, want nil", resp.CurrentUserID)
	}
}

func TestDiscoveryHandler_Fetch_AuthenticatedViewer(t *testing.T) {
	up := model.VoteUp
	svc := &mockDiscoveryService{
		fetchPageFn: func(ctx context.Context, viewerID, cursor, category string) (*discovery.Page, error) {
			if viewerID != "user-1" {
				t.Errorf("viewerID = %q, want %q", viewerID, "user-1")
			}
			entry := feedEntry("list-1")
			entry.ViewerVote = &up
			return &discovery.Page{Entries: []discovery.FeedEntry{entry}}, nil
		},
	}
	h := NewDiscoveryHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/discovery", nil)
	req = withUserID(req, "user-1")
	w := httptest.NewRecorder()

	h.Fetch(w, req)

	var resp discoveryResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.IsAuthenticated {
		t.Error("IsAuthenticated = false, want true")
	}
	if resp.CurrentUserID == nil || *resp.CurrentUserID != "user-1" {
		t.Errorf("CurrentUserID = %v, want %q", resp.CurrentUserID, "user-1")
	}
	if resp.Lists[0].UserVote == nil || *resp.Lists[0].UserVote != "UP" {
		t.Errorf("UserVote = %v, want %q", resp.Lists[0].UserVote, "UP")
	}
	if resp.NextCursor != nil {
		t.Errorf("NextCursor = %v, want nil", resp.NextCursor)
	}
}

func TestDiscoveryHandler_Fetch_PassesQueryParams(t *testing.T) {
	called := false
	svc := &mockDiscoveryService{
		fetchPageFn: func(ctx context.Context, viewerID, cursor, category string) (*discovery.Page, error) {
			called = true
			if cursor != "list-12" {
				t.Errorf("cursor = %q, want %q", cursor, "list-12")
			}
			if category != "programming" {
				t.Errorf("category = %q, want %q", category, "programming")
			}
			return &discovery.Page{}, nil
		},
	}
	h := NewDiscoveryHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/discovery?cursor=list-12&category=programming", nil)
	w := httptest.NewRecorder()

	h.Fetch(w, req)

	if !called {
		t.Fatal("FetchPage was not called")
	}
}

func TestDiscoveryHandler_Fetch_ETagRevalidation(t *testing.T) {
	version := &FeedVersion{}
	svc := &mockDiscoveryService{}
	h := NewDiscoveryHandler(svc, version)

	// 初回リクエストでETagを受け取る
	req := httptest.NewRequest(http.MethodGet, "/api/discovery", nil)
	w := httptest.NewRecorder()
	h.Fetch(w, req)

	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatal("ETag header is empty")
	}

	// 同じ世代なら304でボディを省略
	req = httptest.NewRequest(http.MethodGet, "/api/discovery", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	h.Fetch(w, req)

	if w.Code != http.StatusNotModified {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotModified)
	}

	// 書き込みで世代が進めば再び200
	version.InvalidateDiscovery()

	req = httptest.NewRequest(http.MethodGet, "/api/discovery", nil)
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	h.Fetch(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status after invalidation = %d, want %d", w.Code, http.StatusOK)
	}
	if w.Header().Get("ETag") == etag {
		t.Error("ETag did not change after invalidation")
	}
}

func TestDiscoveryHandler_Fetch_ServiceError(t *testing.T) {
	svc := &mockDiscoveryService{
		fetchPageFn: func(ctx context.Context, viewerID, cursor, category string) (*discovery.Page, error) {
			return nil, model.NewExternalServiceError("database unavailable")
		},
	}
	h := NewDiscoveryHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/discovery", nil)
	w := httptest.NewRecorder()

	h.Fetch(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadGateway)
	}
}

// Package handler はHTTP APIハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/studyshare/internal/middleware"
	"github.com/hitoshi/studyshare/internal/model"
)

// VoteServiceInterface は投票ハンドラーが必要とするサービスインターフェース。
type VoteServiceInterface interface {
	// CastVote は(投票者, リスト)ペアに投票をキャストする。
	CastVote(ctx context.Context, voterID, listID, voteType string) error
}

// VoteHandler は投票のHTTPハンドラー。
type VoteHandler struct {
	service VoteServiceInterface
}

// NewVoteHandler はVoteHandlerを生成する。
func NewVoteHandler(service VoteServiceInterface) *VoteHandler {
	return &VoteHandler{service: service}
}

// castVoteRequest は投票リクエストのボディ。
type castVoteRequest struct {
	Type string `json:"type"`
}

// CastVote は投票のキャストを処理する。
// POST /api/lists/{id}/vote
func (h *VoteHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
		return
	}

	var req castVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError("request body"))
		return
	}

	listID := chi.URLParam(r, "id")
	if err := h.service.CastVote(r.Context(), userID, listID, req.Type); err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

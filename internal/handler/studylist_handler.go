package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/studyshare/internal/middleware"
	"github.com/hitoshi/studyshare/internal/model"
)

// StudyListServiceInterface は学習リストハンドラーが必要とするサービスインターフェース。
type StudyListServiceInterface interface {
	CopyList(ctx context.Context, userID, listID string) (*model.StudyList, error)
}

// StudyListHandler は学習リストのHTTPハンドラー。
type StudyListHandler struct {
	service StudyListServiceInterface
}

// NewStudyListHandler はStudyListHandlerを生成する。
func NewStudyListHandler(service StudyListServiceInterface) *StudyListHandler {
	return &StudyListHandler{service: service}
}

// copiedListResponse は複製されたリストのAPIレスポンス。
type copiedListResponse struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Slug         string  `json:"slug"`
	Description  *string `json:"description"`
	Category     string  `json:"category"`
	IsPublic     bool    `json:"is_public"`
	CopiedFromID *string `json:"copied_from_id"`
}

// CopyList は公開リストの複製を処理する。
// POST /api/lists/{id}/copy
func (h *StudyListHandler) CopyList(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
		return
	}

	listID := chi.URLParam(r, "id")
	copied, err := h.service.CopyList(r.Context(), userID, listID)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, copiedListResponse{
		ID:           copied.ID,
		Title:        copied.Title,
		Slug:         copied.Slug,
		Description:  copied.Description,
		Category:     string(copied.Category),
		IsPublic:     copied.IsPublic,
		CopiedFromID: copied.CopiedFromID,
	})
}

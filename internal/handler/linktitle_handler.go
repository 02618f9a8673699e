package handler

import (
	"net/http"

	"github.com/hitoshi/studyshare/internal/middleware"
	"github.com/hitoshi/studyshare/internal/model"
)

// LinkTitleServiceInterface はリンクタイトルハンドラーが必要とするサービスインターフェース。
type LinkTitleServiceInterface interface {
	ResolveTitle(rawURL string) (string, error)
	ResolveYouTubeTitle(videoURL string) (string, error)
}

// LinkTitleHandler は外部URLのタイトル解決のHTTPハンドラー。
type LinkTitleHandler struct {
	service LinkTitleServiceInterface
}

// NewLinkTitleHandler はLinkTitleHandlerを生成する。
func NewLinkTitleHandler(service LinkTitleServiceInterface) *LinkTitleHandler {
	return &LinkTitleHandler{service: service}
}

// titleResponse はタイトル解決のAPIレスポンス。
type titleResponse struct {
	Title string `json:"title"`
}

// ResolveTitle は一般URLのページタイトル取得を処理する。
// GET /api/link-title?url=
func (h *LinkTitleHandler) ResolveTitle(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError("url"))
		return
	}

	title, err := h.service.ResolveTitle(rawURL)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, titleResponse{Title: title})
}

// ResolveYouTubeTitle はYouTube動画のタイトル取得を処理する。
// GET /api/youtube-title?url=
func (h *LinkTitleHandler) ResolveYouTubeTitle(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError("url"))
		return
	}

	title, err := h.service.ResolveYouTubeTitle(rawURL)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, titleResponse{Title: title})
}

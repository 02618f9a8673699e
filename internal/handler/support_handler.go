package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/studyshare/internal/middleware"
	"github.com/hitoshi/studyshare/internal/model"
)

// SupportServiceInterface はサポートハンドラーが必要とするサービスインターフェース。
type SupportServiceInterface interface {
	CreateTicket(ctx context.Context, userID, ticketType, message string) (*model.SupportTicket, error)
}

// SupportHandler はサポート問い合わせのHTTPハンドラー。
type SupportHandler struct {
	service SupportServiceInterface
}

// NewSupportHandler はSupportHandlerを生成する。
func NewSupportHandler(service SupportServiceInterface) *SupportHandler {
	return &SupportHandler{service: service}
}

// createTicketRequest はチケット作成リクエストのボディ。
type createTicketRequest struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ticketResponse はチケット作成のAPIレスポンス。
type ticketResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
}

// CreateTicket はサポートチケットの作成を処理する。
// POST /api/support/tickets
func (h *SupportHandler) CreateTicket(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
		return
	}

	var req createTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError("request body"))
		return
	}

	ticket, err := h.service.CreateTicket(r.Context(), userID, req.Type, req.Message)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ticketResponse{
		ID:        ticket.ID,
		Type:      ticket.Type,
		CreatedAt: ticket.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	})
}

package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/studyshare/internal/billing"
	"github.com/hitoshi/studyshare/internal/middleware"
	"github.com/hitoshi/studyshare/internal/model"
)

// BillingServiceInterface は課金ハンドラーが必要とするサービスインターフェース。
type BillingServiceInterface interface {
	CreateCheckoutSession(ctx context.Context, userID, interval string) (string, error)
	CreateLifetimeCheckoutSession(ctx context.Context, userID string) (string, error)
	GetSubscriptionStatus(ctx context.Context, userID string) (*billing.SubscriptionStatus, error)
	CancelSubscription(ctx context.Context, userID string) error
}

// BillingHandler は課金のHTTPハンドラー。
type BillingHandler struct {
	service BillingServiceInterface
}

// NewBillingHandler はBillingHandlerを生成する。
func NewBillingHandler(service BillingServiceInterface) *BillingHandler {
	return &BillingHandler{service: service}
}

// checkoutRequest はチェックアウト作成リクエストのボディ。
type checkoutRequest struct {
	Interval string `json:"interval"`
}

// checkoutResponse はチェックアウト作成のAPIレスポンス。
type checkoutResponse struct {
	URL string `json:"url"`
}

// CreateCheckout はサブスクリプションのチェックアウト作成を処理する。
// POST /api/billing/checkout
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError("request body"))
		return
	}

	url, err := h.service.CreateCheckoutSession(r.Context(), userID, req.Interval)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{URL: url})
}

// CreateLifetimeCheckout はライフタイムプランのチェックアウト作成を処理する。
// POST /api/billing/checkout/lifetime
func (h *BillingHandler) CreateLifetimeCheckout(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
		return
	}

	url, err := h.service.CreateLifetimeCheckoutSession(r.Context(), userID)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{URL: url})
}

// GetSubscription はサブスクリプション状態の取得を処理する。
// GET /api/billing/subscription
func (h *BillingHandler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
		return
	}

	status, err := h.service.GetSubscriptionStatus(r.Context(), userID)
	if err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// CancelSubscription は期間末解約の設定を処理する。
// POST /api/billing/subscription/cancel
func (h *BillingHandler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewAuthenticationRequiredError())
		return
	}

	if err := h.service.CancelSubscription(r.Context(), userID); err != nil {
		middleware.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

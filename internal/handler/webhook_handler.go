package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/hitoshi/studyshare/internal/middleware"
	"github.com/hitoshi/studyshare/internal/model"
)

// webhookMaxBodyBytes はWebhookペイロードの読み込み上限。
const webhookMaxBodyBytes = 64 * 1024

// WebhookProcessorInterface はWebhookハンドラーが必要とする処理インターフェース。
type WebhookProcessorInterface interface {
	Process(ctx context.Context, payload []byte, sigHeader string) error
}

// WebhookHandler は決済プロバイダWebhookのHTTPハンドラー。
// 署名で認証するため、セッションミドルウェアの外に配置する。
type WebhookHandler struct {
	processor WebhookProcessorInterface
}

// NewWebhookHandler はWebhookHandlerを生成する。
func NewWebhookHandler(processor WebhookProcessorInterface) *WebhookHandler {
	return &WebhookHandler{processor: processor}
}

// HandleStripe はStripeからのWebhookイベントを処理する。
// POST /api/webhooks/stripe
//
// 署名検証失敗は400で応答し、プロバイダに再配送させない。
// 処理中の失敗は500で応答し、再配送に委ねる（調整処理は冪等）。
func (h *WebhookHandler) HandleStripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, webhookMaxBodyBytes))
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationFailedError("request body"))
		return
	}

	err = h.processor.Process(r.Context(), payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		// SIGNATURE_INVALIDは400（再配送させない）、それ以外の失敗は500（再配送に委ねる）
		middleware.WriteServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/hitoshi/studyshare/internal/model"
	"github.com/hitoshi/studyshare/internal/repository"
)

// WebhookMetrics はWebhookイベント処理のメトリクス記録インターフェース。
type WebhookMetrics interface {
	RecordWebhookEvent(eventType string)
}

// eventConstructor は署名検証付きイベント復元の関数型。テストで差し替える。
type eventConstructor func(payload []byte, sigHeader, secret string) (stripe.Event, error)

// WebhookProcessor は決済プロバイダからのWebhookイベントを検証・処理する。
//
// 署名検証に失敗したイベントは偽造または破損とみなし、処理せずに
// SIGNATURE_INVALIDを返す（呼び出し側は400で応答し、再配送させない）。
// 処理中の失敗はエラーとして返し、呼び出し側は500で応答して
// プロバイダの再配送に委ねる。調整処理は冪等なので再配送は安全。
type WebhookProcessor struct {
	secret     string
	userRepo   repository.UserRepository
	reconciler *Reconciler
	metrics    WebhookMetrics
	construct  eventConstructor
}

// NewWebhookProcessor はWebhookProcessorの新しいインスタンスを生成する。metricsはnil許容。
func NewWebhookProcessor(
	secret string,
	userRepo repository.UserRepository,
	reconciler *Reconciler,
	metrics WebhookMetrics,
) *WebhookProcessor {
	return &WebhookProcessor{
		secret:     secret,
		userRepo:   userRepo,
		reconciler: reconciler,
		metrics:    metrics,
		construct:  webhook.ConstructEvent,
	}
}

// Process は署名を検証し、イベント種別に応じた処理を行う。
// 未対応のイベント種別は成功として無視する。
func (p *WebhookProcessor) Process(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := p.construct(payload, sigHeader, p.secret)
	if err != nil {
		slog.Warn("webhook signature verification failed", slog.String("error", err.Error()))
		return model.NewSignatureInvalidError()
	}

	eventType := string(event.Type)
	if p.metrics != nil {
		p.metrics.RecordWebhookEvent(eventType)
	}

	switch eventType {
	case "checkout.session.completed":
		return p.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.deleted":
		return p.handleSubscriptionLost(ctx, event)
	case "customer.subscription.updated":
		return p.handleSubscriptionUpdated(ctx, event)
	default:
		slog.Debug("ignoring webhook event", slog.String("type", eventType))
		return nil
	}
}

// handleCheckoutCompleted はチェックアウト完了イベントでユーザーをpremiumへ昇格する。
// 一回払いモードのセッションはライフタイム購入として記録する。
func (p *WebhookProcessor) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("チェックアウトセッションの復元に失敗しました: %w", err)
	}

	userID := sess.Metadata["user_id"]
	if userID == "" {
		// 他システム起点のセッションなど、ユーザーに紐付かないものは無視する
		slog.Warn("checkout session without user metadata, skipping",
			slog.String("session_id", sess.ID),
		)
		return nil
	}
	if sess.Customer == nil {
		slog.Warn("checkout session without customer, skipping",
			slog.String("session_id", sess.ID),
		)
		return nil
	}

	lifetime := sess.Mode == stripe.CheckoutSessionModePayment
	if err := p.userRepo.SetPremium(ctx, userID, sess.Customer.ID, lifetime); err != nil {
		return fmt.Errorf("premiumへの昇格に失敗しました: %w", err)
	}

	slog.Info("checkout completed",
		slog.String("user_id", userID),
		slog.Bool("lifetime", lifetime),
	)
	return nil
}

// handleSubscriptionLost はサブスクリプション削除イベントでダウングレード調整を起動する。
func (p *WebhookProcessor) handleSubscriptionLost(ctx context.Context, event stripe.Event) error {
	sub, err := unmarshalSubscription(event)
	if err != nil {
		return err
	}
	if sub.Customer == nil {
		return nil
	}
	return p.reconciler.ReconcileDowngrade(ctx, sub.Customer.ID)
}

// handleSubscriptionUpdated は状態遷移に応じてtierを調整する。
// activeへの遷移（支払い再開など）はpremiumを再付与し、
// それ以外（past_due, canceled, unpaid等）はダウングレード調整を起動する。
func (p *WebhookProcessor) handleSubscriptionUpdated(ctx context.Context, event stripe.Event) error {
	sub, err := unmarshalSubscription(event)
	if err != nil {
		return err
	}
	if sub.Customer == nil {
		return nil
	}

	if sub.Status == stripe.SubscriptionStatusActive {
		if err := p.userRepo.SetTierByCustomerID(ctx, sub.Customer.ID, model.TierPremium); err != nil {
			return fmt.Errorf("premiumの再付与に失敗しました: %w", err)
		}
		return nil
	}
	return p.reconciler.ReconcileDowngrade(ctx, sub.Customer.ID)
}

func unmarshalSubscription(event stripe.Event) (*stripe.Subscription, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return nil, fmt.Errorf("サブスクリプションの復元に失敗しました: %w", err)
	}
	return &sub, nil
}

package billing

import (
	"context"
	"time"

	"github.com/stripe/stripe-go/v82"
	checkoutsession "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/subscription"
)

// StripeGateway はPaymentGatewayのStripe実装。
type StripeGateway struct {
	baseURL string
}

var _ PaymentGateway = (*StripeGateway)(nil)

// NewStripeGateway はStripeGatewayの新しいインスタンスを生成する。
// secretKeyはプロセス全体のAPIキーとして設定される。
// baseURLはチェックアウト完了・中断後の戻り先の組み立てに使う。
func NewStripeGateway(secretKey, baseURL string) *StripeGateway {
	stripe.Key = secretKey
	return &StripeGateway{baseURL: baseURL}
}

// CreateCustomer はStripe顧客を作成する。
// user_idメタデータはWebhookイベントからユーザーを逆引きするために付与する。
func (g *StripeGateway) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	params := &stripe.CustomerParams{
		Params: stripe.Params{Context: ctx},
		Email:  stripe.String(email),
	}
	params.AddMetadata("user_id", userID)

	c, err := customer.New(params)
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

// CreateSubscriptionCheckout はサブスクリプションモードのチェックアウトセッションを作成する。
func (g *StripeGateway) CreateSubscriptionCheckout(ctx context.Context, customerID, priceID, userID string) (string, error) {
	return g.createCheckout(ctx, customerID, priceID, userID, stripe.CheckoutSessionModeSubscription)
}

// CreateLifetimeCheckout は一回払いモードのチェックアウトセッションを作成する。
func (g *StripeGateway) CreateLifetimeCheckout(ctx context.Context, customerID, priceID, userID string) (string, error) {
	return g.createCheckout(ctx, customerID, priceID, userID, stripe.CheckoutSessionModePayment)
}

func (g *StripeGateway) createCheckout(ctx context.Context, customerID, priceID, userID string, mode stripe.CheckoutSessionMode) (string, error) {
	params := &stripe.CheckoutSessionParams{
		Params:   stripe.Params{Context: ctx},
		Customer: stripe.String(customerID),
		Mode:     stripe.String(string(mode)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(g.baseURL + "/dashboard?checkout=success"),
		CancelURL:  stripe.String(g.baseURL + "/pricing?checkout=cancelled"),
	}
	// Webhook側でユーザーを特定するための逆引きキー
	params.AddMetadata("user_id", userID)

	sess, err := checkoutsession.New(params)
	if err != nil {
		return "", err
	}
	return sess.URL, nil
}

// FindActiveSubscription は顧客のアクティブなサブスクリプションを返す。
// 複数存在する場合は最初の1件のみを扱う。
func (g *StripeGateway) FindActiveSubscription(ctx context.Context, customerID string) (*SubscriptionInfo, error) {
	params := &stripe.SubscriptionListParams{
		ListParams: stripe.ListParams{Context: ctx},
		Customer:   stripe.String(customerID),
		Status:     stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	params.Limit = stripe.Int64(1)

	iter := subscription.List(params)
	for iter.Next() {
		return toSubscriptionInfo(iter.Subscription()), nil
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}

// CancelAtPeriodEnd はサブスクリプションを期間末解約に設定する。
func (g *StripeGateway) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionParams{
		Params:            stripe.Params{Context: ctx},
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	_, err := subscription.Update(subscriptionID, params)
	return err
}

// toSubscriptionInfo は請求周期と期間末をサブスクリプション項目から取り出す。
func toSubscriptionInfo(sub *stripe.Subscription) *SubscriptionInfo {
	info := &SubscriptionInfo{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		info.CurrentPeriodEnd = time.Unix(item.CurrentPeriodEnd, 0)
		if item.Price != nil && item.Price.Recurring != nil {
			info.Interval = string(item.Price.Recurring.Interval)
		}
	}
	return info
}

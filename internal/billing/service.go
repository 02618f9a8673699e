package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/hitoshi/studyshare/internal/model"
	"github.com/hitoshi/studyshare/internal/repository"
)

// LifetimePurchaseCap はライフタイムプランの販売上限数。
const LifetimePurchaseCap = 100

// SubscriptionInfo は決済プロバイダ上のサブスクリプション情報。
type SubscriptionInfo struct {
	ID                string
	Status            string
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  time.Time
	Interval          string // month / year
}

// PaymentGateway は決済プロバイダ操作のインターフェース。
// 実体はStripeGateway。テストではモックに差し替える。
type PaymentGateway interface {
	// CreateCustomer は決済プロバイダ上に顧客を作成し、顧客IDを返す。
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	// CreateSubscriptionCheckout はサブスクリプションのチェックアウトセッションを作成し、URLを返す。
	CreateSubscriptionCheckout(ctx context.Context, customerID, priceID, userID string) (string, error)
	// CreateLifetimeCheckout は一回払いのチェックアウトセッションを作成し、URLを返す。
	CreateLifetimeCheckout(ctx context.Context, customerID, priceID, userID string) (string, error)
	// FindActiveSubscription は顧客のアクティブなサブスクリプションを返す。なければnil。
	FindActiveSubscription(ctx context.Context, customerID string) (*SubscriptionInfo, error)
	// CancelAtPeriodEnd はサブスクリプションを期間末解約に設定する。
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error
}

// CheckoutMetrics はチェックアウトセッション作成のメトリクス記録インターフェース。
type CheckoutMetrics interface {
	RecordCheckoutSession(kind string)
}

// SubscriptionStatus はUIに返すサブスクリプション状態。
type SubscriptionStatus struct {
	Tier              model.Tier `json:"tier"`
	LifetimePurchase  bool       `json:"lifetime_purchase"`
	Interval          string     `json:"interval,omitempty"`
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
	CurrentPeriodEnd  *time.Time `json:"current_period_end,omitempty"`
}

// Service は決済・サブスクリプション管理のサービス層。
type Service struct {
	userRepo repository.UserRepository
	gateway  PaymentGateway
	metrics  CheckoutMetrics

	priceMonthly  string
	priceYearly   string
	priceLifetime string
}

// NewService はServiceの新しいインスタンスを生成する。metricsはnil許容。
func NewService(
	userRepo repository.UserRepository,
	gateway PaymentGateway,
	metrics CheckoutMetrics,
	priceMonthly, priceYearly, priceLifetime string,
) *Service {
	return &Service{
		userRepo:      userRepo,
		gateway:       gateway,
		metrics:       metrics,
		priceMonthly:  priceMonthly,
		priceYearly:   priceYearly,
		priceLifetime: priceLifetime,
	}
}

// CreateCheckoutSession はサブスクリプションのチェックアウトURLを返す。
// intervalは"monthly"または"yearly"。
// 顧客IDは初回チェックアウト時に遅延割り当てし、ユーザーに保存する。
func (s *Service) CreateCheckoutSession(ctx context.Context, userID, interval string) (string, error) {
	if userID == "" {
		return "", model.NewAuthenticationRequiredError()
	}

	var priceID string
	switch interval {
	case "monthly":
		priceID = s.priceMonthly
	case "yearly":
		priceID = s.priceYearly
	default:
		return "", model.NewValidationFailedError("interval")
	}
	if priceID == "" {
		return "", model.NewExternalServiceError(msgConfiguration)
	}

	customerID, err := s.ensureCustomer(ctx, userID)
	if err != nil {
		return "", err
	}

	url, err := s.gateway.CreateSubscriptionCheckout(ctx, customerID, priceID, userID)
	if err != nil {
		return "", MapStripeError(err)
	}

	if s.metrics != nil {
		s.metrics.RecordCheckoutSession(interval)
	}
	return url, nil
}

// CreateLifetimeCheckoutSession はライフタイムプランのチェックアウトURLを返す。
// 販売枠はLifetimePurchaseCapで上限され、完売後はSOLD_OUTを返す。
func (s *Service) CreateLifetimeCheckoutSession(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", model.NewAuthenticationRequiredError()
	}
	if s.priceLifetime == "" {
		return "", model.NewExternalServiceError(msgConfiguration)
	}

	sold, err := s.userRepo.CountLifetimePurchases(ctx)
	if err != nil {
		return "", fmt.Errorf("ライフタイム購入数の取得に失敗しました: %w", err)
	}
	if sold >= LifetimePurchaseCap {
		return "", model.NewSoldOutError()
	}

	customerID, err := s.ensureCustomer(ctx, userID)
	if err != nil {
		return "", err
	}

	url, err := s.gateway.CreateLifetimeCheckout(ctx, customerID, s.priceLifetime, userID)
	if err != nil {
		return "", MapStripeError(err)
	}

	if s.metrics != nil {
		s.metrics.RecordCheckoutSession("lifetime")
	}
	return url, nil
}

// GetSubscriptionStatus はユーザーのサブスクリプション状態を返す。
// 決済プロバイダ未接続のユーザーにはDB上のtierのみを返す。
func (s *Service) GetSubscriptionStatus(ctx context.Context, userID string) (*SubscriptionStatus, error) {
	if userID == "" {
		return nil, model.NewAuthenticationRequiredError()
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewAuthenticationRequiredError()
	}

	status := &SubscriptionStatus{
		Tier:             user.Tier,
		LifetimePurchase: user.LifetimePurchase,
	}
	if user.StripeCustomerID == nil || user.LifetimePurchase {
		return status, nil
	}

	sub, err := s.gateway.FindActiveSubscription(ctx, *user.StripeCustomerID)
	if err != nil {
		return nil, MapStripeError(err)
	}
	if sub != nil {
		status.Interval = sub.Interval
		status.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
		end := sub.CurrentPeriodEnd
		status.CurrentPeriodEnd = &end
	}
	return status, nil
}

// CancelSubscription はアクティブなサブスクリプションを期間末解約に設定する。
// 即時解約はしない。期間末の失効イベントがダウングレード調整を起動する。
func (s *Service) CancelSubscription(ctx context.Context, userID string) error {
	if userID == "" {
		return model.NewAuthenticationRequiredError()
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewAuthenticationRequiredError()
	}
	if user.StripeCustomerID == nil {
		return model.NewValidationFailedError("no subscription")
	}

	sub, err := s.gateway.FindActiveSubscription(ctx, *user.StripeCustomerID)
	if err != nil {
		return MapStripeError(err)
	}
	if sub == nil {
		return model.NewValidationFailedError("no active subscription")
	}

	if err := s.gateway.CancelAtPeriodEnd(ctx, sub.ID); err != nil {
		return MapStripeError(err)
	}
	return nil
}

// ensureCustomer はユーザーの決済顧客IDを返す。未割り当てなら作成して保存する。
func (s *Service) ensureCustomer(ctx context.Context, userID string) (string, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return "", model.NewAuthenticationRequiredError()
	}
	if user.StripeCustomerID != nil {
		return *user.StripeCustomerID, nil
	}

	customerID, err := s.gateway.CreateCustomer(ctx, user.Email, user.ID)
	if err != nil {
		return "", MapStripeError(err)
	}
	if err := s.userRepo.SetStripeCustomerID(ctx, user.ID, customerID); err != nil {
		return "", fmt.Errorf("顧客IDの保存に失敗しました: %w", err)
	}
	return customerID, nil
}

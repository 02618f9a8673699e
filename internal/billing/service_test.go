package billing

import (
	"context"
	"testing"
	"time"

	"github.com/hitoshi/studyshare/internal/model"
)

func userWithoutCustomer(id string) *model.User {
	return &model.User{ID: id, Email: id + "@example.com", Tier: model.TierFree}
}

func apiErrCode(t *testing.T, err error) string {
	t.Helper()
	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("expected *model.APIError, got %T: %v", err, err)
	}
	return apiErr.Code
}

func newCheckoutService(userRepo *mockUserRepo, gw *mockGateway) *Service {
	return NewService(userRepo, gw, nil, "price_monthly", "price_yearly", "price_lifetime")
}

// 未認証・不正intervalのチェックアウトは弾かれることを検証
func TestCreateCheckoutSession_Validation(t *testing.T) {
	svc := newCheckoutService(&mockUserRepo{}, &mockGateway{})

	_, err := svc.CreateCheckoutSession(t.Context(), "", "monthly")
	if code := apiErrCode(t, err); code != model.ErrCodeAuthenticationRequired {
		t.Errorf("unauthenticated: code = %q, want AUTHENTICATION_REQUIRED", code)
	}

	_, err = svc.CreateCheckoutSession(t.Context(), "u1", "weekly")
	if code := apiErrCode(t, err); code != model.ErrCodeValidationFailed {
		t.Errorf("bad interval: code = %q, want VALIDATION_FAILED", code)
	}
}

// 顧客IDは初回チェックアウトで遅延割り当てされ、ユーザーに保存されることを検証
func TestCreateCheckoutSession_LazyCustomerCreation(t *testing.T) {
	var savedCustomerID string
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return userWithoutCustomer("u1"), nil
		},
		setStripeCustomerIDFn: func(ctx context.Context, userID, customerID string) error {
			savedCustomerID = customerID
			return nil
		},
	}
	var checkoutCustomerID, checkoutPriceID string
	gw := &mockGateway{
		createCustomerFn: func(ctx context.Context, email, userID string) (string, error) {
			return "cus_new", nil
		},
		createSubscriptionCheckoutFn: func(ctx context.Context, customerID, priceID, userID string) (string, error) {
			checkoutCustomerID = customerID
			checkoutPriceID = priceID
			return "https://checkout.example/s1", nil
		},
	}

	url, err := newCheckoutService(userRepo, gw).CreateCheckoutSession(t.Context(), "u1", "monthly")
	if err != nil {
		t.Fatalf("CreateCheckoutSession() error = %v", err)
	}
	if url != "https://checkout.example/s1" {
		t.Errorf("url = %q", url)
	}
	if savedCustomerID != "cus_new" {
		t.Errorf("saved customer id = %q, want cus_new", savedCustomerID)
	}
	if checkoutCustomerID != "cus_new" || checkoutPriceID != "price_monthly" {
		t.Errorf("checkout called with (%q, %q)", checkoutCustomerID, checkoutPriceID)
	}
}

// 既存顧客では顧客作成をスキップすることを検証
func TestCreateCheckoutSession_ExistingCustomer(t *testing.T) {
	existing := "cus_existing"
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			u := userWithoutCustomer("u1")
			u.StripeCustomerID = &existing
			return u, nil
		},
	}
	gw := &mockGateway{
		createCustomerFn: func(ctx context.Context, email, userID string) (string, error) {
			t.Error("CreateCustomer should not be called for existing customer")
			return "", nil
		},
	}

	if _, err := newCheckoutService(userRepo, gw).CreateCheckoutSession(t.Context(), "u1", "yearly"); err != nil {
		t.Fatalf("CreateCheckoutSession() error = %v", err)
	}
}

// ゲートウェイの失敗がEXTERNAL_SERVICE_ERRORに分類されることを検証
func TestCreateCheckoutSession_GatewayFailure(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return userWithoutCustomer("u1"), nil
		},
	}
	gw := &mockGateway{
		createSubscriptionCheckoutFn: func(ctx context.Context, customerID, priceID, userID string) (string, error) {
			return "", context.DeadlineExceeded
		},
	}

	_, err := newCheckoutService(userRepo, gw).CreateCheckoutSession(t.Context(), "u1", "monthly")
	apiErr, ok := err.(*model.APIError)
	if !ok {
		t.Fatalf("expected *model.APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeExternalService {
		t.Errorf("code = %q, want EXTERNAL_SERVICE_ERROR", apiErr.Code)
	}
	if apiErr.Message != msgGeneric {
		t.Errorf("message = %q, want generic checkout message", apiErr.Message)
	}
}

// ライフタイム枠が完売している場合はSOLD_OUTを返すことを検証
func TestCreateLifetimeCheckoutSession_SoldOut(t *testing.T) {
	userRepo := &mockUserRepo{
		countLifetimePurchasesFn: func(ctx context.Context) (int, error) {
			return LifetimePurchaseCap, nil
		},
	}

	_, err := newCheckoutService(userRepo, &mockGateway{}).CreateLifetimeCheckoutSession(t.Context(), "u1")
	if code := apiErrCode(t, err); code != model.ErrCodeSoldOut {
		t.Errorf("code = %q, want SOLD_OUT", code)
	}
}

// 販売枠が残っていればライフタイムのチェックアウトURLが返ることを検証
func TestCreateLifetimeCheckoutSession_BelowCap(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return userWithoutCustomer("u1"), nil
		},
		countLifetimePurchasesFn: func(ctx context.Context) (int, error) {
			return LifetimePurchaseCap - 1, nil
		},
	}
	var gotPriceID string
	gw := &mockGateway{
		createLifetimeCheckoutFn: func(ctx context.Context, customerID, priceID, userID string) (string, error) {
			gotPriceID = priceID
			return "https://checkout.example/lt", nil
		},
	}

	url, err := newCheckoutService(userRepo, gw).CreateLifetimeCheckoutSession(t.Context(), "u1")
	if err != nil {
		t.Fatalf("CreateLifetimeCheckoutSession() error = %v", err)
	}
	if url != "https://checkout.example/lt" {
		t.Errorf("url = %q", url)
	}
	if gotPriceID != "price_lifetime" {
		t.Errorf("price id = %q, want price_lifetime", gotPriceID)
	}
}

// サブスクリプション状態: ライフタイム購入者はプロバイダ照会をスキップする
func TestGetSubscriptionStatus(t *testing.T) {
	customerID := "cus_u1"
	periodEnd := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	t.Run("lifetime purchaser skips provider lookup", func(t *testing.T) {
		userRepo := &mockUserRepo{
			findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
				return &model.User{ID: "u1", Tier: model.TierPremium, LifetimePurchase: true, StripeCustomerID: &customerID}, nil
			},
		}
		gw := &mockGateway{
			findActiveSubscriptionFn: func(ctx context.Context, customerID string) (*SubscriptionInfo, error) {
				t.Error("provider should not be queried for lifetime purchaser")
				return nil, nil
			},
		}

		status, err := newCheckoutService(userRepo, gw).GetSubscriptionStatus(t.Context(), "u1")
		if err != nil {
			t.Fatalf("GetSubscriptionStatus() error = %v", err)
		}
		if !status.LifetimePurchase || status.Tier != model.TierPremium {
			t.Errorf("status = %+v", status)
		}
	})

	t.Run("active subscription fills period fields", func(t *testing.T) {
		userRepo := &mockUserRepo{
			findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
				return &model.User{ID: "u1", Tier: model.TierPremium, StripeCustomerID: &customerID}, nil
			},
		}
		gw := &mockGateway{
			findActiveSubscriptionFn: func(ctx context.Context, customerID string) (*SubscriptionInfo, error) {
				return &SubscriptionInfo{
					ID:                "sub_1",
					Status:            "active",
					CancelAtPeriodEnd: true,
					CurrentPeriodEnd:  periodEnd,
					Interval:          "month",
				}, nil
			},
		}

		status, err := newCheckoutService(userRepo, gw).GetSubscriptionStatus(t.Context(), "u1")
		if err != nil {
			t.Fatalf("GetSubscriptionStatus() error = %v", err)
		}
		if status.Interval != "month" || !status.CancelAtPeriodEnd {
			t.Errorf("status = %+v", status)
		}
		if status.CurrentPeriodEnd == nil || !status.CurrentPeriodEnd.Equal(periodEnd) {
			t.Errorf("period end = %v, want %v", status.CurrentPeriodEnd, periodEnd)
		}
	})
}

// 解約は期間末解約に設定され、アクティブなサブスクリプションがなければ弾かれる
func TestCancelSubscription(t *testing.T) {
	customerID := "cus_u1"
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: "u1", Tier: model.TierPremium, StripeCustomerID: &customerID}, nil
		},
	}

	t.Run("sets cancel at period end", func(t *testing.T) {
		var cancelled string
		gw := &mockGateway{
			findActiveSubscriptionFn: func(ctx context.Context, customerID string) (*SubscriptionInfo, error) {
				return &SubscriptionInfo{ID: "sub_1", Status: "active"}, nil
			},
			cancelAtPeriodEndFn: func(ctx context.Context, subscriptionID string) error {
				cancelled = subscriptionID
				return nil
			},
		}

		if err := newCheckoutService(userRepo, gw).CancelSubscription(t.Context(), "u1"); err != nil {
			t.Fatalf("CancelSubscription() error = %v", err)
		}
		if cancelled != "sub_1" {
			t.Errorf("cancelled = %q, want sub_1", cancelled)
		}
	})

	t.Run("no active subscription", func(t *testing.T) {
		gw := &mockGateway{
			findActiveSubscriptionFn: func(ctx context.Context, customerID string) (*SubscriptionInfo, error) {
				return nil, nil
			},
		}

		err := newCheckoutService(userRepo, gw).CancelSubscription(t.Context(), "u1")
		if code := apiErrCode(t, err); code != model.ErrCodeValidationFailed {
			t.Errorf("code = %q, want VALIDATION_FAILED", code)
		}
	})
}

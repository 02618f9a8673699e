package billing

import (
	"context"

	"github.com/hitoshi/studyshare/internal/model"
	"github.com/hitoshi/studyshare/internal/repository"
)

// --- テスト用モック ---

type mockUserRepo struct {
	findByIDFn               func(ctx context.Context, id string) (*model.User, error)
	findByStripeCustomerIDFn func(ctx context.Context, customerID string) (*model.User, error)
	setStripeCustomerIDFn    func(ctx context.Context, userID, customerID string) error
	setPremiumFn             func(ctx context.Context, userID, customerID string, lifetime bool) error
	setTierByCustomerIDFn    func(ctx context.Context, customerID string, tier model.Tier) error
	downgradeToFreeFn        func(ctx context.Context, userID string, convertListIDs []string) error
	countLifetimePurchasesFn func(ctx context.Context) (int, error)
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) FindByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error) {
	if m.findByStripeCustomerIDFn != nil {
		return m.findByStripeCustomerIDFn(ctx, customerID)
	}
	return nil, nil
}

func (m *mockUserRepo) SetStripeCustomerID(ctx context.Context, userID, customerID string) error {
	if m.setStripeCustomerIDFn != nil {
		return m.setStripeCustomerIDFn(ctx, userID, customerID)
	}
	return nil
}

func (m *mockUserRepo) SetPremium(ctx context.Context, userID, customerID string, lifetime bool) error {
	if m.setPremiumFn != nil {
		return m.setPremiumFn(ctx, userID, customerID, lifetime)
	}
	return nil
}

func (m *mockUserRepo) SetTierByCustomerID(ctx context.Context, customerID string, tier model.Tier) error {
	if m.setTierByCustomerIDFn != nil {
		return m.setTierByCustomerIDFn(ctx, customerID, tier)
	}
	return nil
}

func (m *mockUserRepo) DowngradeToFree(ctx context.Context, userID string, convertListIDs []string) error {
	if m.downgradeToFreeFn != nil {
		return m.downgradeToFreeFn(ctx, userID, convertListIDs)
	}
	return nil
}

func (m *mockUserRepo) ClearDowngradeNotice(ctx context.Context, userID string) error {
	return nil
}

func (m *mockUserRepo) CountLifetimePurchases(ctx context.Context) (int, error) {
	if m.countLifetimePurchasesFn != nil {
		return m.countLifetimePurchasesFn(ctx)
	}
	return 0, nil
}

type mockListRepo struct {
	listPrivateIDsByUserFn func(ctx context.Context, userID string) ([]string, error)
}

func (m *mockListRepo) FindPublicByID(ctx context.Context, id string) (*model.StudyList, error) {
	return nil, nil
}
func (m *mockListRepo) ListPublicWithOwner(ctx context.Context, category *model.Category) ([]repository.DiscoveryListRow, error) {
	return nil, nil
}
func (m *mockListRepo) ListPrivateIDsByUser(ctx context.Context, userID string) ([]string, error) {
	if m.listPrivateIDsByUserFn != nil {
		return m.listPrivateIDsByUserFn(ctx, userID)
	}
	return nil, nil
}
func (m *mockListRepo) FindByUserAndCopiedFrom(ctx context.Context, userID, copiedFromID string) (*model.StudyList, error) {
	return nil, nil
}
func (m *mockListRepo) SlugExists(ctx context.Context, userID, slug string) (bool, error) {
	return false, nil
}
func (m *mockListRepo) ListItems(ctx context.Context, listID string) ([]*model.StudyItem, error) {
	return nil, nil
}
func (m *mockListRepo) CreateCopy(ctx context.Context, list *model.StudyList, items []*model.StudyItem) error {
	return nil
}

type mockGateway struct {
	createCustomerFn             func(ctx context.Context, email, userID string) (string, error)
	createSubscriptionCheckoutFn func(ctx context.Context, customerID, priceID, userID string) (string, error)
	createLifetimeCheckoutFn     func(ctx context.Context, customerID, priceID, userID string) (string, error)
	findActiveSubscriptionFn     func(ctx context.Context, customerID string) (*SubscriptionInfo, error)
	cancelAtPeriodEndFn          func(ctx context.Context, subscriptionID string) error
}

func (m *mockGateway) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	if m.createCustomerFn != nil {
		return m.createCustomerFn(ctx, email, userID)
	}
	return "cus_test", nil
}

func (m *mockGateway) CreateSubscriptionCheckout(ctx context.Context, customerID, priceID, userID string) (string, error) {
	if m.createSubscriptionCheckoutFn != nil {
		return m.createSubscriptionCheckoutFn(ctx, customerID, priceID, userID)
	}
	return "https://checkout.example/session", nil
}

func (m *mockGateway) CreateLifetimeCheckout(ctx context.Context, customerID, priceID, userID string) (string, error) {
	if m.createLifetimeCheckoutFn != nil {
		return m.createLifetimeCheckoutFn(ctx, customerID, priceID, userID)
	}
	return "https://checkout.example/lifetime", nil
}

func (m *mockGateway) FindActiveSubscription(ctx context.Context, customerID string) (*SubscriptionInfo, error) {
	if m.findActiveSubscriptionFn != nil {
		return m.findActiveSubscriptionFn(ctx, customerID)
	}
	return nil, nil
}

func (m *mockGateway) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	if m.cancelAtPeriodEndFn != nil {
		return m.cancelAtPeriodEndFn(ctx, subscriptionID)
	}
	return nil
}

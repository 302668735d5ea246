package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"festival-pass/config"
	"festival-pass/internal/checkout"
	"festival-pass/internal/status"
	"festival-pass/models"
	"festival-pass/utils"
)

// User-facing messages for the purchase flow. The SDK and payment
// strings match what the checkout widget surfaces in the browser.
const (
	MsgEligibilityUnknown  = "cannot determine eligibility"
	MsgPaymentQuery        = "Error fetching payment information."
	MsgCheckoutUnavailable = "Razorpay SDK failed to load. Are you online?"
	MsgPaymentInsert       = "Error processing payment."
	MsgCheckoutCancelled   = "checkout cancelled"
)

const notificationsChannel = "checkout-payment-notifications"

// RecordStore is the slice of the external table store the purchase
// flow reads and writes.
type RecordStore interface {
	FetchProfileByEmail(ctx context.Context, email string) (*models.UserProfile, error)
	ListPaidPayments(ctx context.Context, userID string) ([]models.PaymentRecord, error)
	InsertPayment(ctx context.Context, rec *models.PaymentRecord) error
}

// CheckoutGateway is the lazily-loaded handle to the hosted checkout
// provider.
type CheckoutGateway interface {
	Open(ctx context.Context, opts *checkout.Options) (*checkout.Session, error)
	VerifyPayment(ctx context.Context, resp *checkout.PaymentResponse) (bool, error)
}

// Publisher pushes notifications to realtime channels.
type Publisher interface {
	Publish(channel string, message map[string]any)
}

// TicketService drives the ticket purchase state machine: eligibility
// resolution, checkout invocation and payment recording. All durable
// state lives in the external store; the service only keeps a TTL'd
// pending-checkout session in Redis while the dialog is open.
type TicketService struct {
	store     RecordStore
	checkout  CheckoutGateway
	Redis     *redis.Client
	publisher Publisher

	price              int
	currency           string
	displayName        string
	displayDescription string
	themeColor         string
	postPurchasePath   string
	pendingTTL         time.Duration

	now     func() time.Time
	genCode func(n int) (string, error)
}

func NewTicketService(store RecordStore, gateway CheckoutGateway, redisClient *redis.Client, publisher Publisher, cfg *config.Config) *TicketService {
	return &TicketService{
		store:              store,
		checkout:           gateway,
		Redis:              redisClient,
		publisher:          publisher,
		price:              cfg.TicketPrice,
		currency:           cfg.CheckoutCurrency,
		displayName:        cfg.DisplayName,
		displayDescription: cfg.DisplayDescription,
		themeColor:         cfg.ThemeColor,
		postPurchasePath:   cfg.PostPurchasePath,
		pendingTTL:         cfg.PendingCheckoutTTL,
		now:                time.Now,
		genCode:            utils.GenerateCode,
	}
}

// Price returns the configured pass price in major units.
func (s *TicketService) Price() int {
	return s.price
}

// ResolveView resolves the purchase view for the authenticated user.
// The sequence is strictly profile first, then payments; it settles in
// exactly one of the terminal states. Results arriving after ctx is
// cancelled are discarded and the view stays in the loading state.
func (s *TicketService) ResolveView(ctx context.Context, email string) *models.PurchaseView {
	view := &models.PurchaseView{State: models.StateLoading, TicketPrice: s.price}

	profile, err := s.store.FetchProfileByEmail(ctx, email)
	if ctx.Err() != nil {
		return view
	}
	if err != nil {
		slog.Error("ticket: fetching user profile", "email", email, "error", err)
		view.State = models.StateAwaitingPurchaseWithError
		view.ErrorMessage = MsgEligibilityUnknown
		return view
	}
	view.Profile = profile

	if profile.FreePassEligible {
		view.State = models.StateFreePassGranted
		return view
	}

	payments, err := s.store.ListPaidPayments(ctx, profile.ID)
	if ctx.Err() != nil {
		return view
	}
	if err != nil {
		slog.Error("ticket: fetching payments", "user_id", profile.ID, "error", err)
		view.State = models.StateAwaitingPurchaseWithError
		view.ErrorMessage = MsgPaymentQuery
		return view
	}

	if len(payments) > 0 {
		view.State = models.StateAlreadyPurchased
		return view
	}

	view.State = models.StateAwaitingPurchase
	return view
}

// BeginCheckout runs the purchase action: ensures the checkout handle
// is loaded, opens a provider session for the pass price and stashes a
// pending-checkout session until the success callback or the TTL.
func (s *TicketService) BeginCheckout(ctx context.Context, email string) (*checkout.Session, error) {
	view := s.ResolveView(ctx, email)
	if !view.State.PurchaseOffered() {
		return nil, status.ErrPurchaseNotOffered
	}
	if view.Profile == nil {
		// Eligibility could not be determined; there is no profile to
		// attach a payment to.
		return nil, status.ErrProfileFetch
	}

	receipt, err := s.genCode(6)
	if err != nil {
		return nil, fmt.Errorf("BeginCheckout: generating receipt code: %w", err)
	}

	sess, err := s.checkout.Open(ctx, &checkout.Options{
		Amount:      checkout.MinorUnits(view.TicketPrice),
		Currency:    s.currency,
		Name:        s.displayName,
		Description: s.displayDescription,
		Prefill: checkout.Prefill{
			Name:    view.Profile.DisplayName(),
			Email:   email,
			Contact: view.Profile.Contact(),
		},
		ThemeColor: s.themeColor,
		Receipt:    receipt,
		Notes:      map[string]string{"user_id": view.Profile.ID},
	})
	if err != nil {
		slog.Error("ticket: opening checkout", "user_id", view.Profile.ID, "error", err)
		return nil, err
	}

	pendingKey := pendingCheckoutKey(view.Profile.ID)
	s.Redis.HSet(ctx, pendingKey,
		"order_id", sess.OrderID,
		"amount", view.TicketPrice,
		"receipt", receipt,
		"created_at", s.now().Unix(),
	)
	s.Redis.Expire(ctx, pendingKey, s.pendingTTL)

	return sess, nil
}

// CompletePurchase records the payment after the checkout success
// callback and returns the post-purchase redirect target. The insert
// is never retried automatically; on failure the caller stays in its
// awaiting state and the user may retry.
func (s *TicketService) CompletePurchase(ctx context.Context, userID string, resp *checkout.PaymentResponse) (string, error) {
	ok, err := s.checkout.VerifyPayment(ctx, resp)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", status.ErrSignatureMismatch
	}

	rec := &models.PaymentRecord{
		UserID:    userID,
		Amount:    s.price,
		Status:    models.PaymentStatusPaid,
		PaymentID: resp.PaymentID,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.InsertPayment(ctx, rec); err != nil {
		slog.Error("ticket: inserting payment record", "user_id", userID, "payment_id", resp.PaymentID, "error", err)
		return "", fmt.Errorf("%w: %v", status.ErrPaymentInsert, err)
	}

	s.Redis.Del(ctx, pendingCheckoutKey(userID))

	s.publisher.Publish(fmt.Sprintf("user-%s", userID), map[string]any{
		"type":       "payment_success",
		"payment_id": resp.PaymentID,
	})

	return s.postPurchasePath, nil
}

// DismissCheckout drops the pending-checkout session after the user
// closes the dialog. No state transition happens; the prior awaiting
// state stays in effect.
func (s *TicketService) DismissCheckout(ctx context.Context, userID string) {
	s.Redis.Del(ctx, pendingCheckoutKey(userID))
}

func pendingCheckoutKey(userID string) string {
	return fmt.Sprintf("checkout:pending:%s", userID)
}

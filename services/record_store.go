package services

import (
	"context"
	"errors"
	"fmt"

	"festival-pass/internal/status"
	"festival-pass/internal/store"
	"festival-pass/models"
)

var _ RecordStore = (*StoreRepository)(nil)

// StoreRepository adapts the hosted record-store client to the slice
// of tables the purchase flow touches.
type StoreRepository struct {
	client *store.Client
}

func NewStoreRepository(client *store.Client) *StoreRepository {
	return &StoreRepository{client: client}
}

func (r *StoreRepository) FetchProfileByEmail(ctx context.Context, email string) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := r.client.Select("users", "user_id", "email", "is_eligible_for_free_pass", "phone_number", "full_name").
		Eq("email", email).
		Single(ctx, &profile)
	if errors.Is(err, store.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", status.ErrProfileNotFound, email)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrProfileFetch, err)
	}
	return &profile, nil
}

func (r *StoreRepository) ListPaidPayments(ctx context.Context, userID string) ([]models.PaymentRecord, error) {
	var payments []models.PaymentRecord
	err := r.client.Select("payments").
		Eq("user_id", userID).
		Eq("payment_status", models.PaymentStatusPaid).
		List(ctx, &payments)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", status.ErrPaymentQuery, err)
	}
	return payments, nil
}

func (r *StoreRepository) InsertPayment(ctx context.Context, rec *models.PaymentRecord) error {
	if err := r.client.Insert(ctx, "payments", rec); err != nil {
		return fmt.Errorf("StoreRepository.InsertPayment: %w", err)
	}
	return nil
}

package status

import "errors"

var (
	ErrProfileFetch        = errors.New("purchase: profile lookup failed")
	ErrProfileNotFound     = errors.New("purchase: profile not found")
	ErrPaymentQuery        = errors.New("purchase: payment lookup failed")
	ErrCheckoutUnavailable = errors.New("checkout: sdk failed to load")
	ErrPaymentInsert       = errors.New("purchase: payment record insert failed")
	ErrSignatureMismatch   = errors.New("checkout: payment signature mismatch")
	ErrPurchaseNotOffered  = errors.New("purchase: purchase not offered in current state")
)

package models

import (
	"time"
)

const PaymentStatusPaid = "paid"

// PaymentRecord is a row of the external payments ledger. Inserted once
// after a successful checkout; never mutated or deleted by this service.
type PaymentRecord struct {
	UserID    string    `json:"user_id"`
	Amount    int       `json:"amount"`
	Status    string    `json:"payment_status"`
	PaymentID string    `json:"payment_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PaymentNotification is the message shape on the checkout
// notifications channel.
type PaymentNotification struct {
	UserID    string `json:"user_id"`
	PaymentID string `json:"payment_id"`
	OrderID   string `json:"order_id"`
	Signature string `json:"signature"`
	Status    string `json:"status"`
}

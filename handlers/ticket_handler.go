package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"festival-pass/internal/checkout"
	"festival-pass/internal/status"
	"festival-pass/models"
	"festival-pass/monitoring"
	"festival-pass/services"
)

// TicketFlow is the purchase state machine surface the handler drives.
type TicketFlow interface {
	Price() int
	ResolveView(ctx context.Context, email string) *models.PurchaseView
	BeginCheckout(ctx context.Context, email string) (*checkout.Session, error)
	CompletePurchase(ctx context.Context, userID string, resp *checkout.PaymentResponse) (string, error)
	DismissCheckout(ctx context.Context, userID string)
}

type TicketHandler struct {
	app       *pocketbase.PocketBase
	tickets   TicketFlow
	publisher services.Publisher

	postPurchasePath string
	opsTokenHash     string
}

func NewTicketHandler(app *pocketbase.PocketBase, tickets TicketFlow, publisher services.Publisher, postPurchasePath, opsTokenHash string) *TicketHandler {
	return &TicketHandler{
		app:              app,
		tickets:          tickets,
		publisher:        publisher,
		postPurchasePath: postPurchasePath,
		opsTokenHash:     opsTokenHash,
	}
}

// GetTicket - Resolve and render the purchase view for the authenticated user
func (h *TicketHandler) GetTicket(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	ctx := e.Request.Context()
	view := h.tickets.ResolveView(ctx, e.Auth.Email())
	monitoring.TrackResolution(view.State.String())

	return e.JSON(http.StatusOK, renderView(view))
}

// BeginCheckout - Purchase action: open a checkout session for the pass
func (h *TicketHandler) BeginCheckout(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	ctx := e.Request.Context()
	sess, err := h.tickets.BeginCheckout(ctx, e.Auth.Email())
	switch {
	case errors.Is(err, status.ErrCheckoutUnavailable):
		// The purchase button stays available; the error is inline.
		monitoring.TrackCheckout("unavailable")
		return e.JSON(http.StatusOK, map[string]any{
			"state":         models.StateAwaitingPurchaseWithError.String(),
			"ticket_price":  h.tickets.Price(),
			"error_message": services.MsgCheckoutUnavailable,
		})

	case errors.Is(err, status.ErrPurchaseNotOffered):
		return apis.NewBadRequestError("Ticket purchase is not available", err)

	case errors.Is(err, status.ErrProfileFetch), errors.Is(err, status.ErrProfileNotFound):
		return e.JSON(http.StatusOK, map[string]any{
			"state":         models.StateAwaitingPurchaseWithError.String(),
			"ticket_price":  h.tickets.Price(),
			"error_message": services.MsgEligibilityUnknown,
		})

	case err != nil:
		monitoring.TrackCheckout("failed")
		return apis.NewBadRequestError("Failed to open checkout", err)
	}

	monitoring.TrackCheckout("opened")
	return e.JSON(http.StatusOK, map[string]any{
		"state":   models.StateAwaitingPurchase.String(),
		"session": sess,
	})
}

// ConfirmPayment - Checkout success callback: record the payment
func (h *TicketHandler) ConfirmPayment(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req checkout.PaymentResponse
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.PaymentID == "" {
		return apis.NewBadRequestError("Missing payment id", nil)
	}

	ctx := e.Request.Context()
	redirect, err := h.tickets.CompletePurchase(ctx, e.Auth.Id, &req)
	switch {
	case errors.Is(err, status.ErrSignatureMismatch):
		monitoring.TrackPayment("signature_mismatch")
		return apis.NewBadRequestError("Invalid payment signature", nil)

	case errors.Is(err, status.ErrPaymentInsert):
		// Stay in the awaiting state; the user may retry the action.
		monitoring.TrackPayment("insert_failed")
		return e.JSON(http.StatusOK, map[string]any{
			"state":         models.StateAwaitingPurchaseWithError.String(),
			"ticket_price":  h.tickets.Price(),
			"error_message": services.MsgPaymentInsert,
		})

	case err != nil:
		return apis.NewBadRequestError("Failed to record payment", err)
	}

	monitoring.TrackPayment("recorded")
	return e.JSON(http.StatusOK, map[string]any{
		"state":               models.StateAlreadyPurchased.String(),
		"last_transaction_id": req.PaymentID,
		"redirect_to":         redirect,
	})
}

// CancelCheckout - User closed the checkout dialog; no state transition
func (h *TicketHandler) CancelCheckout(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	h.tickets.DismissCheckout(e.Request.Context(), e.Auth.Id)
	monitoring.TrackCheckout("cancelled")

	return e.JSON(http.StatusOK, map[string]any{
		"state":        models.StateAwaitingPurchase.String(),
		"ticket_price": h.tickets.Price(),
		"notice":       services.MsgCheckoutCancelled,
	})
}

// SimulatePayment - Simulate a provider notification (for testing)
func (h *TicketHandler) SimulatePayment(e *core.RequestEvent) error {
	if h.opsTokenHash != "" {
		token := e.Request.Header.Get("X-Ops-Token")
		if !checkout.CompareOpsToken(h.opsTokenHash, token) {
			return apis.NewForbiddenError("Access denied", nil)
		}
	}

	var req models.PaymentNotification
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	h.publisher.Publish("checkout-payment-notifications", map[string]any{
		"user_id":    req.UserID,
		"payment_id": req.PaymentID,
		"order_id":   req.OrderID,
		"signature":  req.Signature,
		"status":     req.Status,
	})

	return e.JSON(http.StatusOK, map[string]any{"message": "Payment simulation sent"})
}

// renderView maps the settled view state to its display contract.
func renderView(view *models.PurchaseView) map[string]any {
	resp := map[string]any{"state": view.State.String()}

	switch view.State {
	case models.StateFreePassGranted:
		resp["message"] = "Congratulations! You are eligible for a free pass to Mohana Mantra 2K24!"
		resp["instructions"] = "You can collect your pass on campus by showing your respective institution ID card. Please carry your ID card for the event."
		resp["action"] = map[string]any{
			"label": "Select Interested Events",
			"href":  "/account?tab=events-list",
		}

	case models.StateAlreadyPurchased:
		resp["message"] = "Thank You for Registering! You have successfully registered for the event."
		resp["action"] = map[string]any{
			"label": "Select Interested Events",
			"href":  "/account?tab=events-list",
		}
		if view.LastTransactionID != "" {
			resp["last_transaction_id"] = view.LastTransactionID
		}

	case models.StateAwaitingPurchase:
		resp["ticket_price"] = view.TicketPrice

	case models.StateAwaitingPurchaseWithError:
		resp["ticket_price"] = view.TicketPrice
		resp["error_message"] = view.ErrorMessage
	}

	return resp
}

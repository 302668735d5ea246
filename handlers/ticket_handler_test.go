package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"festival-pass/internal/checkout"
	"festival-pass/internal/status"
	"festival-pass/models"
	"festival-pass/services"
)

type fakeTicketFlow struct {
	view        *models.PurchaseView
	session     *checkout.Session
	checkoutErr error
	redirect    string
	completeErr error

	completed []*checkout.PaymentResponse
	dismissed []string
}

func (f *fakeTicketFlow) Price() int {
	return 500
}

func (f *fakeTicketFlow) ResolveView(ctx context.Context, email string) *models.PurchaseView {
	return f.view
}

func (f *fakeTicketFlow) BeginCheckout(ctx context.Context, email string) (*checkout.Session, error) {
	if f.checkoutErr != nil {
		return nil, f.checkoutErr
	}
	return f.session, nil
}

func (f *fakeTicketFlow) CompletePurchase(ctx context.Context, userID string, resp *checkout.PaymentResponse) (string, error) {
	if f.completeErr != nil {
		return "", f.completeErr
	}
	f.completed = append(f.completed, resp)
	return f.redirect, nil
}

func (f *fakeTicketFlow) DismissCheckout(ctx context.Context, userID string) {
	f.dismissed = append(f.dismissed, userID)
}

type stubPublisher struct {
	calls []struct {
		channel string
		message map[string]any
	}
}

func (s *stubPublisher) Publish(channel string, message map[string]any) {
	s.calls = append(s.calls, struct {
		channel string
		message map[string]any
	}{channel, message})
}

func newTestHandler(flow *fakeTicketFlow, opsTokenHash string) (*TicketHandler, *stubPublisher) {
	publisher := &stubPublisher{}
	handler := NewTicketHandler(pocketbase.New(), flow, publisher, "/account", opsTokenHash)
	return handler, publisher
}

func newRequestEvent(method, target string, body io.Reader) (*core.RequestEvent, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()

	e := &core.RequestEvent{}
	e.Request = httptest.NewRequest(method, target, body)
	e.Response = rec
	if body != nil {
		e.Request.Header.Set("Content-Type", "application/json")
	}

	return e, rec
}

func newAuthedEvent(method, target string, body io.Reader) (*core.RequestEvent, *httptest.ResponseRecorder) {
	e, rec := newRequestEvent(method, target, body)

	record := core.NewRecord(core.NewAuthCollection("users"))
	record.Id = "u1"
	record.SetEmail("a@b.c")
	e.Auth = record

	return e, rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	return got
}

func requireApiError(t *testing.T, err error, wantStatus int) {
	t.Helper()

	var apiErr *router.ApiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, wantStatus, apiErr.Status)
}

func TestTicketHandler_GetTicket_Unauthorized(t *testing.T) {
	handler, _ := newTestHandler(&fakeTicketFlow{}, "")

	e, _ := newRequestEvent(http.MethodGet, "/api/v1/ticket", nil)

	err := handler.GetTicket(e)
	requireApiError(t, err, http.StatusUnauthorized)
}

func TestTicketHandler_GetTicket_FreePass(t *testing.T) {
	flow := &fakeTicketFlow{
		view: &models.PurchaseView{State: models.StateFreePassGranted, TicketPrice: 500},
	}
	handler, _ := newTestHandler(flow, "")

	e, rec := newAuthedEvent(http.MethodGet, "/api/v1/ticket", nil)

	require.NoError(t, handler.GetTicket(e))
	assert.Equal(t, http.StatusOK, rec.Code)

	got := decodeBody(t, rec)
	assert.Equal(t, "free_pass_granted", got["state"])
	assert.Contains(t, got["message"], "free pass")
	assert.Contains(t, got["instructions"], "ID card")

	action, ok := got["action"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "/account?tab=events-list", action["href"])

	// No price on the free-pass view.
	assert.NotContains(t, got, "ticket_price")
}

func TestTicketHandler_GetTicket_AwaitingPurchase(t *testing.T) {
	flow := &fakeTicketFlow{
		view: &models.PurchaseView{State: models.StateAwaitingPurchase, TicketPrice: 500},
	}
	handler, _ := newTestHandler(flow, "")

	e, rec := newAuthedEvent(http.MethodGet, "/api/v1/ticket", nil)

	require.NoError(t, handler.GetTicket(e))

	got := decodeBody(t, rec)
	assert.Equal(t, "awaiting_purchase", got["state"])
	assert.Equal(t, float64(500), got["ticket_price"])
	assert.NotContains(t, got, "error_message")
}

func TestTicketHandler_GetTicket_AwaitingPurchaseWithError(t *testing.T) {
	flow := &fakeTicketFlow{
		view: &models.PurchaseView{
			State:        models.StateAwaitingPurchaseWithError,
			TicketPrice:  500,
			ErrorMessage: services.MsgPaymentQuery,
		},
	}
	handler, _ := newTestHandler(flow, "")

	e, rec := newAuthedEvent(http.MethodGet, "/api/v1/ticket", nil)

	require.NoError(t, handler.GetTicket(e))

	got := decodeBody(t, rec)
	assert.Equal(t, "awaiting_purchase_with_error", got["state"])
	assert.Equal(t, float64(500), got["ticket_price"])
	assert.Equal(t, "Error fetching payment information.", got["error_message"])
}

func TestTicketHandler_BeginCheckout_Success(t *testing.T) {
	flow := &fakeTicketFlow{
		session: &checkout.Session{
			OrderID:  "order_abc",
			KeyID:    "rzp_test",
			Currency: "INR",
		},
	}
	handler, _ := newTestHandler(flow, "")

	e, rec := newAuthedEvent(http.MethodPost, "/api/v1/ticket/checkout", nil)

	require.NoError(t, handler.BeginCheckout(e))
	assert.Equal(t, http.StatusOK, rec.Code)

	got := decodeBody(t, rec)
	assert.Equal(t, "awaiting_purchase", got["state"])

	session, ok := got["session"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "order_abc", session["order_id"])
	assert.Equal(t, "rzp_test", session["key"])
}

func TestTicketHandler_BeginCheckout_SDKUnavailable(t *testing.T) {
	flow := &fakeTicketFlow{
		checkoutErr: fmt.Errorf("%w: probe failed", status.ErrCheckoutUnavailable),
	}
	handler, _ := newTestHandler(flow, "")

	e, rec := newAuthedEvent(http.MethodPost, "/api/v1/ticket/checkout", nil)

	require.NoError(t, handler.BeginCheckout(e))
	assert.Equal(t, http.StatusOK, rec.Code)

	got := decodeBody(t, rec)
	assert.Equal(t, "awaiting_purchase_with_error", got["state"])
	assert.Equal(t, "Razorpay SDK failed to load. Are you online?", got["error_message"])
	assert.Equal(t, float64(500), got["ticket_price"])
}

func TestTicketHandler_BeginCheckout_NotOffered(t *testing.T) {
	flow := &fakeTicketFlow{checkoutErr: status.ErrPurchaseNotOffered}
	handler, _ := newTestHandler(flow, "")

	e, _ := newAuthedEvent(http.MethodPost, "/api/v1/ticket/checkout", nil)

	err := handler.BeginCheckout(e)
	requireApiError(t, err, http.StatusBadRequest)
}

func TestTicketHandler_BeginCheckout_EligibilityUnknown(t *testing.T) {
	flow := &fakeTicketFlow{checkoutErr: status.ErrProfileFetch}
	handler, _ := newTestHandler(flow, "")

	e, rec := newAuthedEvent(http.MethodPost, "/api/v1/ticket/checkout", nil)

	require.NoError(t, handler.BeginCheckout(e))

	got := decodeBody(t, rec)
	assert.Equal(t, "awaiting_purchase_with_error", got["state"])
	assert.Equal(t, "cannot determine eligibility", got["error_message"])
}

func TestTicketHandler_ConfirmPayment_Success(t *testing.T) {
	flow := &fakeTicketFlow{redirect: "/account"}
	handler, _ := newTestHandler(flow, "")

	body, _ := json.Marshal(map[string]string{
		"razorpay_payment_id": "pay_123",
		"razorpay_order_id":   "order_abc",
		"razorpay_signature":  "sig",
	})
	e, rec := newAuthedEvent(http.MethodPost, "/api/v1/ticket/confirm", bytes.NewReader(body))

	require.NoError(t, handler.ConfirmPayment(e))
	assert.Equal(t, http.StatusOK, rec.Code)

	got := decodeBody(t, rec)
	assert.Equal(t, "already_purchased", got["state"])
	assert.Equal(t, "pay_123", got["last_transaction_id"])
	assert.Equal(t, "/account", got["redirect_to"])

	require.Len(t, flow.completed, 1)
	assert.Equal(t, "pay_123", flow.completed[0].PaymentID)
	assert.Equal(t, "order_abc", flow.completed[0].OrderID)
}

func TestTicketHandler_ConfirmPayment_MissingPaymentID(t *testing.T) {
	handler, _ := newTestHandler(&fakeTicketFlow{}, "")

	body, _ := json.Marshal(map[string]string{"razorpay_order_id": "order_abc"})
	e, _ := newAuthedEvent(http.MethodPost, "/api/v1/ticket/confirm", bytes.NewReader(body))

	err := handler.ConfirmPayment(e)
	requireApiError(t, err, http.StatusBadRequest)
}

func TestTicketHandler_ConfirmPayment_SignatureMismatch(t *testing.T) {
	flow := &fakeTicketFlow{completeErr: status.ErrSignatureMismatch}
	handler, _ := newTestHandler(flow, "")

	body, _ := json.Marshal(map[string]string{"razorpay_payment_id": "pay_123"})
	e, _ := newAuthedEvent(http.MethodPost, "/api/v1/ticket/confirm", bytes.NewReader(body))

	err := handler.ConfirmPayment(e)
	requireApiError(t, err, http.StatusBadRequest)
}

func TestTicketHandler_ConfirmPayment_InsertError(t *testing.T) {
	flow := &fakeTicketFlow{
		completeErr: fmt.Errorf("%w: duplicate key", status.ErrPaymentInsert),
	}
	handler, _ := newTestHandler(flow, "")

	body, _ := json.Marshal(map[string]string{"razorpay_payment_id": "pay_123"})
	e, rec := newAuthedEvent(http.MethodPost, "/api/v1/ticket/confirm", bytes.NewReader(body))

	require.NoError(t, handler.ConfirmPayment(e))
	assert.Equal(t, http.StatusOK, rec.Code)

	got := decodeBody(t, rec)
	assert.Equal(t, "awaiting_purchase_with_error", got["state"])
	assert.Equal(t, "Error processing payment.", got["error_message"])
}

func TestTicketHandler_CancelCheckout(t *testing.T) {
	flow := &fakeTicketFlow{}
	handler, _ := newTestHandler(flow, "")

	e, rec := newAuthedEvent(http.MethodPost, "/api/v1/ticket/checkout/cancel", nil)

	require.NoError(t, handler.CancelCheckout(e))
	assert.Equal(t, []string{"u1"}, flow.dismissed)

	got := decodeBody(t, rec)
	assert.Equal(t, "awaiting_purchase", got["state"])
	assert.Equal(t, "checkout cancelled", got["notice"])
}

func TestTicketHandler_SimulatePayment_TokenGuard(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("ops-secret"), bcrypt.MinCost)
	require.NoError(t, err)

	handler, publisher := newTestHandler(&fakeTicketFlow{}, string(hash))

	body, _ := json.Marshal(map[string]string{
		"user_id":    "u1",
		"payment_id": "pay_123",
		"status":     "success",
	})

	e, _ := newAuthedEvent(http.MethodPost, "/api/v1/test/simulate-payment", bytes.NewReader(body))
	e.Request.Header.Set("X-Ops-Token", "wrong")

	simErr := handler.SimulatePayment(e)
	requireApiError(t, simErr, http.StatusForbidden)
	assert.Empty(t, publisher.calls)

	e, rec := newAuthedEvent(http.MethodPost, "/api/v1/test/simulate-payment", bytes.NewReader(body))
	e.Request.Header.Set("X-Ops-Token", "ops-secret")

	require.NoError(t, handler.SimulatePayment(e))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, publisher.calls, 1)
	assert.Equal(t, "checkout-payment-notifications", publisher.calls[0].channel)
	assert.Equal(t, "pay_123", publisher.calls[0].message["payment_id"])
}

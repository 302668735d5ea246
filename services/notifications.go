package services

import (
	"context"
	"encoding/json"
	"log/slog"

	pubnub "github.com/pubnub/go"

	"festival-pass/internal/checkout"
	"festival-pass/models"
	"festival-pass/monitoring"
)

// SubscribeToPaymentNotifications listens on the checkout provider's
// notifications channel and records payments it reports as captured.
// This is the server-to-server path; the browser callback uses the
// confirm endpoint.
func (s *TicketService) SubscribeToPaymentNotifications(ctx context.Context, pn *pubnub.PubNub) {
	listener := pubnub.NewListener()

	pn.AddListener(listener)
	pn.Subscribe().
		Channels([]string{notificationsChannel}).
		Execute()

	for {
		select {
		case <-ctx.Done():
			pn.Unsubscribe().Channels([]string{notificationsChannel}).Execute()
			return

		case message := <-listener.Message:
			go s.handlePaymentNotification(ctx, message)
		}
	}
}

func (s *TicketService) handlePaymentNotification(ctx context.Context, message *pubnub.PNMessage) {
	data, ok := message.Message.(map[string]interface{})
	if !ok {
		return
	}

	jsonData, _ := json.Marshal(data)
	var notification models.PaymentNotification
	if err := json.Unmarshal(jsonData, &notification); err != nil {
		slog.Error("ticket: parsing payment notification", "error", err)
		return
	}

	if notification.Status != "success" && notification.Status != models.PaymentStatusPaid {
		return
	}
	if notification.UserID == "" || notification.PaymentID == "" {
		return
	}

	_, err := s.CompletePurchase(ctx, notification.UserID, &checkout.PaymentResponse{
		PaymentID: notification.PaymentID,
		OrderID:   notification.OrderID,
		Signature: notification.Signature,
	})
	if err != nil {
		slog.Error("ticket: recording notified payment", "payment_id", notification.PaymentID, "error", err)
		monitoring.TrackPayment("insert_failed")
		return
	}
	monitoring.TrackPayment("recorded")
}

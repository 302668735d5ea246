package handlers

import (
	"context"
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"festival-pass/models"
)

// CategoryLister serves the event category cards.
type CategoryLister interface {
	ListCategories(ctx context.Context) []models.EventCategory
}

type EventHandler struct {
	events CategoryLister
}

func NewEventHandler(events CategoryLister) *EventHandler {
	return &EventHandler{events: events}
}

// GetCategories - Event category cards for the festival page (public)
func (h *EventHandler) GetCategories(e *core.RequestEvent) error {
	categories := h.events.ListCategories(e.Request.Context())
	return e.JSON(http.StatusOK, map[string]any{"categories": categories})
}

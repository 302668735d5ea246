package models

// PurchaseState is the render target of the purchase flow. Exactly one
// state is active at a time.
type PurchaseState int

const (
	StateLoading PurchaseState = iota
	StateFreePassGranted
	StateAlreadyPurchased
	StateAwaitingPurchase
	StateAwaitingPurchaseWithError
)

func (s PurchaseState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateFreePassGranted:
		return "free_pass_granted"
	case StateAlreadyPurchased:
		return "already_purchased"
	case StateAwaitingPurchase:
		return "awaiting_purchase"
	case StateAwaitingPurchaseWithError:
		return "awaiting_purchase_with_error"
	default:
		return "unknown"
	}
}

// PurchaseOffered reports whether the purchase action is reachable from
// this state.
func (s PurchaseState) PurchaseOffered() bool {
	return s == StateAwaitingPurchase || s == StateAwaitingPurchaseWithError
}

// PurchaseView is the transient view state resolved per request.
type PurchaseView struct {
	State             PurchaseState `json:"state"`
	TicketPrice       int           `json:"ticket_price"`
	ErrorMessage      string        `json:"error_message,omitempty"`
	LastTransactionID string        `json:"last_transaction_id,omitempty"`
	Profile           *UserProfile  `json:"-"`
}

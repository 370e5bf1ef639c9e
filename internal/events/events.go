package events

import (
	"encoding/json"
	"sync"
	"time"
)

// Event types published by the core. All of them fire strictly after
// the owning database transaction commits; subscribers must treat them
// as best-effort notifications, not as the system of record.
const (
	EventBookingCreated   = "booking_created"
	EventBookingConfirmed = "booking_confirmed"
	EventBookingCancelled = "booking_cancelled"
	EventBookingPickedUp  = "booking_picked_up"
	EventBookingReturned  = "booking_returned"
	EventBookingCompleted = "booking_completed"
	EventAssetTransition  = "asset_transition"
	EventDepositRefunded  = "deposit_refunded"
	EventPayoutRequested  = "payout_requested"
)

// BookingEventPayload is the booking snapshot delivered to consumers.
type BookingEventPayload struct {
	BookingID  int64     `json:"booking_id"`
	Code       string    `json:"code"`
	AssetID    int64     `json:"asset_id"`
	RenterID   int64     `json:"renter_id"`
	Status     string    `json:"status"`
	PickupDate time.Time `json:"pickup_date"`
	ReturnDate time.Time `json:"return_date"`
	ActorID    int64     `json:"actor_id,omitempty"`
	Condition  string    `json:"condition,omitempty"`
}

// AssetEventPayload describes one lifecycle transition.
type AssetEventPayload struct {
	AssetID   int64  `json:"asset_id"`
	FromState string `json:"from_state"`
	ToState   string `json:"to_state"`
	ActorID   int64  `json:"actor_id"`
	Reason    string `json:"reason,omitempty"`
}

// LedgerEventPayload describes a money movement without exposing more
// than the caller needs to render a notification.
type LedgerEventPayload struct {
	Type      string `json:"type"`
	Amount    int64  `json:"amount"`
	WalletID  int64  `json:"wallet_id,omitempty"`
	BookingID int64  `json:"booking_id,omitempty"`
	PayoutID  int64  `json:"payout_id,omitempty"`
}

// Event is a lightweight in-process domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Handler reacts to an event.
type Handler func(event *Event) error

// Bus provides in-process pub/sub. Handlers run synchronously in the
// publisher's goroutine; a handler error never propagates back into the
// committed operation.
type Bus struct {
	subscribers map[string][]Handler
	mu          sync.RWMutex
}

func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *Bus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}

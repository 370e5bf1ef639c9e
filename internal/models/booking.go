package models

import "time"

// Booking reserves one asset for one renter over a date range.
// BufferEnd = ReturnDate + buffer days; the interval that blocks other
// bookings is [PickupDate, BufferEnd], both ends inclusive.
type Booking struct {
	ID         int64     `json:"id"`
	Code       string    `json:"code"`
	AssetID    int64     `json:"asset_id"`
	RenterID   int64     `json:"renter_id"`
	EventDate  time.Time `json:"event_date"`
	PickupDate time.Time `json:"pickup_date"`
	ReturnDate time.Time `json:"return_date"`
	BufferEnd  time.Time `json:"buffer_end"`
	RentalFee  int64     `json:"rental_fee"`
	ServiceFee int64     `json:"service_fee"`
	Deposit    int64     `json:"deposit"`
	Status     string    `json:"status"`
	Notes      string    `json:"notes,omitempty"`
	Version    int64     `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ActiveStatuses are the booking statuses that block an asset's calendar.
func ActiveStatuses() []string {
	return []string{BookingPending, BookingConfirmed, BookingPickedUp}
}

// Evidence is an append-only record of a physical handover or inspection.
type Evidence struct {
	ID        int64     `json:"id"`
	BookingID int64     `json:"booking_id"`
	AssetID   int64     `json:"asset_id"`
	ActorID   int64     `json:"actor_id"`
	Kind      string    `json:"kind"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DayAvailability is one calendar cell for an asset.
type DayAvailability struct {
	Date      time.Time `json:"date"`
	AssetID   int64     `json:"asset_id"`
	Available bool      `json:"available"`
	Conflicts int       `json:"conflicts"`
}

package models

import "time"

// Asset is one physical, individually trackable garment copy.
// Its State is owned exclusively by the lifecycle state machine;
// nothing else writes that column.
type Asset struct {
	ID               int64     `json:"id"`
	OwnerID          int64     `json:"owner_id"`
	Code             string    `json:"code"`
	Name             string    `json:"name"`
	State            string    `json:"state"`
	CompletedRentals int64     `json:"completed_rentals"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// StatusTransition is the append-only audit record of one lifecycle
// transition. Written exactly once per transition, never mutated.
type StatusTransition struct {
	ID        int64     `json:"id"`
	AssetID   int64     `json:"asset_id"`
	FromState string    `json:"from_state"`
	ToState   string    `json:"to_state"`
	ActorID   int64     `json:"actor_id"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

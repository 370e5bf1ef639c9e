package models

import "time"

// Wallet is a user's ledger account. There is deliberately no balance
// field anywhere: the balance is always derived from transactions.
type Wallet struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Transaction is one append-only ledger entry. Amount is a non-negative
// magnitude in minor currency units. A nil SourceWalletID means money
// entered the platform from outside; a nil DestWalletID means money left
// the platform (or was recognized as platform revenue).
type Transaction struct {
	ID             int64     `json:"id"`
	Type           string    `json:"type"`
	Amount         int64     `json:"amount"`
	SourceWalletID *int64    `json:"source_wallet_id,omitempty"`
	DestWalletID   *int64    `json:"dest_wallet_id,omitempty"`
	BookingID      *int64    `json:"booking_id,omitempty"`
	Note           string    `json:"note,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Payout is an owner-initiated withdrawal request. The matching PAYOUT
// transaction debits the wallet in the same unit of work.
type Payout struct {
	ID        int64     `json:"id"`
	WalletID  int64     `json:"wallet_id"`
	Amount    int64     `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

package domain

import (
	"context"
	"time"

	"prokat/internal/fsm"
	"prokat/internal/models"
)

// Repository is the persistent store the services orchestrate. Every
// mutating method runs as a single database transaction; the state read,
// the conflict or balance check, and the writes are never split across
// round-trips.
type Repository interface {
	// Users.
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)

	// Assets and lifecycle audit.
	CreateAsset(ctx context.Context, asset *models.Asset) error
	GetAsset(ctx context.Context, id int64) (*models.Asset, error)
	TransitionAsset(ctx context.Context, assetID int64, to fsm.State, actorID int64, reason string) (*models.StatusTransition, error)
	ListTransitions(ctx context.Context, assetID int64) ([]*models.StatusTransition, error)

	// Bookings.
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	CountConflicts(ctx context.Context, assetID int64, pickup, bufferEnd time.Time) (int, error)
	CreateBookingWithLock(ctx context.Context, booking *models.Booking) error
	CancelBooking(ctx context.Context, bookingID, actorID int64, reason string) (*models.Booking, error)
	CheckOutBooking(ctx context.Context, bookingID, assetID, actorID int64, notes string) (*models.Booking, error)
	CheckInBooking(ctx context.Context, bookingID, assetID, actorID int64, condition, notes string) (*models.Booking, error)
	GetRenterBookings(ctx context.Context, renterID int64) ([]*models.Booking, error)
	GetAssetCalendar(ctx context.Context, assetID int64, start time.Time, days int) ([]*models.DayAvailability, error)
	ListExpiredPending(ctx context.Context, before time.Time) ([]*models.Booking, error)
	ListEvidence(ctx context.Context, bookingID int64) ([]*models.Evidence, error)

	// Ledger.
	CreateWallet(ctx context.Context, userID int64) (*models.Wallet, error)
	GetWalletByUserID(ctx context.Context, userID int64) (*models.Wallet, error)
	GetBalance(ctx context.Context, walletID int64) (int64, error)
	RecordBookingPayment(ctx context.Context, bookingID int64, feePercent int) ([]*models.Transaction, error)
	RefundDeposit(ctx context.Context, bookingID int64) (*models.Transaction, error)
	RequestPayout(ctx context.Context, walletID, amount int64) (*models.Payout, error)
	ListWalletTransactions(ctx context.Context, walletID int64) ([]*models.Transaction, error)
}

// CounterStore is the shared request counter behind rate limiting. It
// lives outside the core state on purpose: a process-local map would not
// survive a multi-instance deployment.
type CounterStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// EventPublisher delivers post-commit notifications. Publishing happens
// strictly after the unit of work commits and failures never affect the
// committed operation.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

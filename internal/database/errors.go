package database

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound marks a missing asset, booking, user or wallet.
	ErrNotFound = errors.New("record not found")

	// ErrNotAvailable is returned when the asset is out of circulation
	// at booking time (maintenance, damage, retirement or an in-flight
	// handover). Reserved assets stay bookable for future windows.
	ErrNotAvailable = errors.New("asset is not available")

	// ErrBookingConflict is returned when the requested window overlaps
	// an active booking (buffer days included).
	ErrBookingConflict = errors.New("booking window conflicts with an existing booking")

	// ErrStatusConflict is returned when a booking is not in the status
	// the operation requires.
	ErrStatusConflict = errors.New("booking status does not allow this operation")

	// ErrAssetMismatch is returned when the presented asset is not the
	// one the booking reserves.
	ErrAssetMismatch = errors.New("asset does not belong to this booking")

	// ErrConcurrentModification is returned by versioned updates that
	// lost an optimistic-locking race.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrNoWallet is returned when a required wallet does not exist.
	ErrNoWallet = errors.New("wallet not found")

	// ErrInsufficientFunds is returned when a payout exceeds the balance
	// computed inside the same transaction.
	ErrInsufficientFunds = errors.New("insufficient wallet balance")

	// ErrNoDeposit is returned when a refund is requested for a booking
	// without a positive deposit.
	ErrNoDeposit = errors.New("booking has no deposit to refund")

	// ErrBusy is returned when the store could not complete within the
	// lock wait budget. Safe to retry; nothing was written.
	ErrBusy = errors.New("database is busy")
)

// wrapBusy converts driver-level lock contention into ErrBusy so callers
// can classify it as transient.
func wrapBusy(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked {
			return errors.Join(ErrBusy, err)
		}
	}
	return err
}

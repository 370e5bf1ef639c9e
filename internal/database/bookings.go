package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"prokat/internal/fsm"
	"prokat/internal/models"
)

const bookingColumns = `id, code, asset_id, renter_id, event_date, pickup_date, return_date,
       buffer_end, rental_fee, service_fee, deposit, status, notes, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	b := &models.Booking{}
	var eventDate, pickupDate, returnDate, bufferEnd string
	err := row.Scan(
		&b.ID, &b.Code, &b.AssetID, &b.RenterID, &eventDate, &pickupDate, &returnDate,
		&bufferEnd, &b.RentalFee, &b.ServiceFee, &b.Deposit, &b.Status, &b.Notes,
		&b.Version, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	for _, field := range []struct {
		raw  string
		dest *time.Time
	}{
		{eventDate, &b.EventDate},
		{pickupDate, &b.PickupDate},
		{returnDate, &b.ReturnDate},
		{bufferEnd, &b.BufferEnd},
	} {
		parsed, err := parseDate(field.raw)
		if err != nil {
			return nil, err
		}
		*field.dest = parsed
	}
	return b, nil
}

// CountConflicts counts active bookings of the asset whose blocking
// window [pickup_date, buffer_end] overlaps the candidate window. Both
// intervals are closed: the buffer day itself is blocked.
func (db *DB) CountConflicts(ctx context.Context, assetID int64, pickup, bufferEnd time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM bookings
              WHERE asset_id = ? AND status IN (?, ?, ?)
              AND pickup_date <= ? AND buffer_end >= ?`
	var count int
	err := db.QueryRowContext(ctx, query, assetID,
		models.BookingPending, models.BookingConfirmed, models.BookingPickedUp,
		formatDate(bufferEnd), formatDate(pickup)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count conflicts: %w", err)
	}
	return count, nil
}

func countConflictsTx(tx *sql.Tx, ctx context.Context, assetID int64, pickup, bufferEnd time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM bookings
              WHERE asset_id = ? AND status IN (?, ?, ?)
              AND pickup_date <= ? AND buffer_end >= ?`
	var count int
	err := tx.QueryRowContext(ctx, query, assetID,
		models.BookingPending, models.BookingConfirmed, models.BookingPickedUp,
		formatDate(bufferEnd), formatDate(pickup)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count conflicts in tx: %w", err)
	}
	return count, nil
}

// CreateBookingWithLock creates the booking and reserves the asset in
// one transaction: asset state check, conflict re-check, insert and the
// available -> reserved transition commit together or not at all.
// A reserved asset stays bookable for future windows; the conflict
// re-check on [pickup, buffer_end] is the real guard, the state gate
// only rejects assets out of circulation (maintenance, damage, retired
// and the in-flight handover states).
func (db *DB) CreateBookingWithLock(ctx context.Context, booking *models.Booking) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		state, err := assetStateTx(tx, ctx, booking.AssetID)
		if err != nil {
			return err
		}
		if state != fsm.StateAvailable && state != fsm.StateReserved {
			return fmt.Errorf("asset %d is %s: %w", booking.AssetID, state, ErrNotAvailable)
		}

		conflicts, err := countConflictsTx(tx, ctx, booking.AssetID, booking.PickupDate, booking.BufferEnd)
		if err != nil {
			return err
		}
		if conflicts > 0 {
			return fmt.Errorf("asset %d has %d overlapping booking(s): %w", booking.AssetID, conflicts, ErrBookingConflict)
		}

		now := time.Now()
		result, err := tx.ExecContext(ctx,
			`INSERT INTO bookings (code, asset_id, renter_id, event_date, pickup_date, return_date,
                 buffer_end, rental_fee, service_fee, deposit, status, notes, version, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, 1, ?, ?)`,
			booking.Code, booking.AssetID, booking.RenterID,
			formatDate(booking.EventDate), formatDate(booking.PickupDate), formatDate(booking.ReturnDate),
			formatDate(booking.BufferEnd), booking.RentalFee, booking.Deposit,
			models.BookingPending, booking.Notes, now, now)
		if err != nil {
			return fmt.Errorf("failed to insert booking: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		booking.ID = id
		booking.Status = models.BookingPending
		booking.Version = 1
		booking.CreatedAt = now
		booking.UpdatedAt = now

		// Already-reserved assets keep their state; re-reserving would
		// write a no-op audit row attributed to the wrong booking.
		if state != fsm.StateAvailable {
			return nil
		}
		_, err = applyTransitionTx(tx, ctx, booking.AssetID, state, fsm.StateReserved, booking.RenterID, booking.Code)
		return err
	})
}

func getBookingTx(tx *sql.Tx, ctx context.Context, id int64) (*models.Booking, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	booking, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	row := db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	booking, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func updateBookingStatusTx(tx *sql.Tx, ctx context.Context, id int64, status string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, version = version + 1, updated_at = ? WHERE id = ?`,
		status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	return nil
}

// CancelBooking marks the booking cancelled and releases the asset if it
// is still reserved. A stale cancel racing a check-out elsewhere is
// tolerated: the asset state is simply left alone.
func (db *DB) CancelBooking(ctx context.Context, bookingID, actorID int64, reason string) (*models.Booking, error) {
	var booking *models.Booking
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		booking, err = getBookingTx(tx, ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.Status != models.BookingPending && booking.Status != models.BookingConfirmed {
			return fmt.Errorf("booking %d is %s, cancellable statuses are %s and %s: %w",
				bookingID, booking.Status, models.BookingPending, models.BookingConfirmed, ErrStatusConflict)
		}

		if err := updateBookingStatusTx(tx, ctx, bookingID, models.BookingCancelled); err != nil {
			return err
		}
		booking.Status = models.BookingCancelled
		booking.Version++

		state, err := assetStateTx(tx, ctx, booking.AssetID)
		if err != nil {
			return err
		}
		if state == fsm.StateReserved {
			transitionReason := "cancelled " + booking.Code
			if reason != "" {
				transitionReason += ": " + reason
			}
			if _, err := applyTransitionTx(tx, ctx, booking.AssetID, state, fsm.StateAvailable, actorID, transitionReason); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// CheckOutBooking records the physical handover: booking and asset move
// to picked_up and an evidence row is written, all in one transaction.
func (db *DB) CheckOutBooking(ctx context.Context, bookingID, assetID, actorID int64, notes string) (*models.Booking, error) {
	var booking *models.Booking
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		booking, err = getBookingTx(tx, ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.Status != models.BookingConfirmed {
			return fmt.Errorf("booking %d is %s, want %s: %w",
				bookingID, booking.Status, models.BookingConfirmed, ErrStatusConflict)
		}
		if booking.AssetID != assetID {
			return fmt.Errorf("booking %d reserves asset %d, got %d: %w",
				bookingID, booking.AssetID, assetID, ErrAssetMismatch)
		}

		state, err := assetStateTx(tx, ctx, assetID)
		if err != nil {
			return err
		}
		// An earlier booking on the same asset may have released it on
		// cancel or completion; re-reserve on the way out so the audit
		// trail stays on valid edges.
		if state == fsm.StateAvailable {
			if _, err := applyTransitionTx(tx, ctx, assetID, state, fsm.StateReserved, actorID, booking.Code); err != nil {
				return err
			}
			state = fsm.StateReserved
		}
		if !fsm.IsValidTransition(state, fsm.StatePickedUp) {
			return fsm.NewInvalidTransition(state, fsm.StatePickedUp)
		}

		if err := updateBookingStatusTx(tx, ctx, bookingID, models.BookingPickedUp); err != nil {
			return err
		}
		booking.Status = models.BookingPickedUp
		booking.Version++

		if _, err := applyTransitionTx(tx, ctx, assetID, state, fsm.StatePickedUp, actorID, booking.Code); err != nil {
			return err
		}
		return insertEvidenceTx(tx, ctx, bookingID, assetID, actorID, models.EvidenceCheckOut, notes)
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// CheckInBooking records the return inspection. The asset always moves
// to returned first; a good-condition return then takes the documented
// shortcut straight back to available (deposit refunded, completed
// counter bumped), a damaged one goes to maintenance and the booking
// stays returned for dispute handling.
func (db *DB) CheckInBooking(ctx context.Context, bookingID, assetID, actorID int64, condition, notes string) (*models.Booking, error) {
	var booking *models.Booking
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		booking, err = getBookingTx(tx, ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.Status != models.BookingPickedUp {
			return fmt.Errorf("booking %d is %s, want %s: %w",
				bookingID, booking.Status, models.BookingPickedUp, ErrStatusConflict)
		}
		if booking.AssetID != assetID {
			return fmt.Errorf("booking %d reserves asset %d, got %d: %w",
				bookingID, booking.AssetID, assetID, ErrAssetMismatch)
		}

		state, err := assetStateTx(tx, ctx, assetID)
		if err != nil {
			return err
		}
		if !fsm.IsValidTransition(state, fsm.StateReturned) {
			return fsm.NewInvalidTransition(state, fsm.StateReturned)
		}

		if err := updateBookingStatusTx(tx, ctx, bookingID, models.BookingReturned); err != nil {
			return err
		}
		booking.Status = models.BookingReturned
		booking.Version++

		if _, err := applyTransitionTx(tx, ctx, assetID, state, fsm.StateReturned, actorID, booking.Code); err != nil {
			return err
		}
		if err := insertEvidenceTx(tx, ctx, bookingID, assetID, actorID, models.EvidenceCheckIn, notes); err != nil {
			return err
		}

		switch condition {
		case models.ConditionGood:
			if !fsm.IsCheckInTransition(fsm.StateReturned, fsm.StateAvailable) {
				return fsm.NewInvalidTransition(fsm.StateReturned, fsm.StateAvailable)
			}
			if err := updateBookingStatusTx(tx, ctx, bookingID, models.BookingCompleted); err != nil {
				return err
			}
			booking.Status = models.BookingCompleted
			booking.Version++

			if _, err := applyTransitionTx(tx, ctx, assetID, fsm.StateReturned, fsm.StateAvailable, actorID, booking.Code); err != nil {
				return err
			}
			if booking.Deposit > 0 {
				if err := refundDepositTx(tx, ctx, booking); err != nil {
					return err
				}
			}
			return incrementCompletedRentalsTx(tx, ctx, assetID)

		case models.ConditionDamaged:
			if !fsm.IsCheckInTransition(fsm.StateReturned, fsm.StateMaintenance) {
				return fsm.NewInvalidTransition(fsm.StateReturned, fsm.StateMaintenance)
			}
			if _, err := applyTransitionTx(tx, ctx, assetID, fsm.StateReturned, fsm.StateMaintenance, actorID, booking.Code); err != nil {
				return err
			}
			return insertEvidenceTx(tx, ctx, bookingID, assetID, actorID, models.EvidenceDamage, notes)

		default:
			return fmt.Errorf("unknown check-in condition %q", condition)
		}
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func insertEvidenceTx(tx *sql.Tx, ctx context.Context, bookingID, assetID, actorID int64, kind, notes string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO evidence (booking_id, asset_id, actor_id, kind, notes, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		bookingID, assetID, actorID, kind, notes, time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert evidence: %w", err)
	}
	return nil
}

func (db *DB) ListEvidence(ctx context.Context, bookingID int64) ([]*models.Evidence, error) {
	query := `SELECT id, booking_id, asset_id, actor_id, kind, notes, created_at
              FROM evidence WHERE booking_id = ? ORDER BY id ASC`
	rows, err := db.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list evidence: %w", err)
	}
	defer rows.Close()

	var records []*models.Evidence
	for rows.Next() {
		e := &models.Evidence{}
		if err := rows.Scan(&e.ID, &e.BookingID, &e.AssetID, &e.ActorID, &e.Kind, &e.Notes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan evidence: %w", err)
		}
		records = append(records, e)
	}
	return records, rows.Err()
}

func (db *DB) GetRenterBookings(ctx context.Context, renterID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE renter_id = ? ORDER BY pickup_date DESC, id DESC`
	rows, err := db.QueryContext(ctx, query, renterID)
	if err != nil {
		return nil, fmt.Errorf("failed to get renter bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// GetAssetCalendar derives per-day availability for the asset from the
// blocking windows of its active bookings.
func (db *DB) GetAssetCalendar(ctx context.Context, assetID int64, start time.Time, days int) ([]*models.DayAvailability, error) {
	end := start.AddDate(0, 0, days-1)
	query := `SELECT pickup_date, buffer_end FROM bookings
              WHERE asset_id = ? AND status IN (?, ?, ?)
              AND pickup_date <= ? AND buffer_end >= ?`
	rows, err := db.QueryContext(ctx, query, assetID,
		models.BookingPending, models.BookingConfirmed, models.BookingPickedUp,
		formatDate(end), formatDate(start))
	if err != nil {
		return nil, fmt.Errorf("failed to load booking windows: %w", err)
	}
	defer rows.Close()

	type window struct{ from, to time.Time }
	var windows []window
	for rows.Next() {
		var fromStr, toStr string
		if err := rows.Scan(&fromStr, &toStr); err != nil {
			return nil, fmt.Errorf("failed to scan booking window: %w", err)
		}
		from, err := parseDate(fromStr)
		if err != nil {
			return nil, err
		}
		to, err := parseDate(toStr)
		if err != nil {
			return nil, err
		}
		windows = append(windows, window{from: from, to: to})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	calendar := make([]*models.DayAvailability, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		conflicts := 0
		for _, w := range windows {
			if !day.Before(w.from) && !day.After(w.to) {
				conflicts++
			}
		}
		calendar = append(calendar, &models.DayAvailability{
			Date:      day,
			AssetID:   assetID,
			Available: conflicts == 0,
			Conflicts: conflicts,
		})
	}
	return calendar, nil
}

// ListExpiredPending returns bookings that have sat in pending since
// before the cutoff without a payment; the expiry worker cancels them.
func (db *DB) ListExpiredPending(ctx context.Context, before time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE status = ? AND created_at < ? ORDER BY id ASC`
	rows, err := db.QueryContext(ctx, query, models.BookingPending, before)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired pending bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

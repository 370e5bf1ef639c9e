package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"prokat/internal/models"
)

// The transactions table is append-only: nothing in this file (or
// anywhere else) updates or deletes a row once written.

func (db *DB) CreateWallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	now := time.Now()
	result, err := db.ExecContext(ctx,
		`INSERT INTO wallets (user_id, created_at) VALUES (?, ?)`, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}
	return &models.Wallet{ID: id, UserID: userID, CreatedAt: now}, nil
}

func (db *DB) GetWalletByUserID(ctx context.Context, userID int64) (*models.Wallet, error) {
	var w models.Wallet
	err := db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at FROM wallets WHERE user_id = ?`, userID).
		Scan(&w.ID, &w.UserID, &w.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("wallet for user %d: %w", userID, ErrNoWallet)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &w, nil
}

func walletByUserTx(tx *sql.Tx, ctx context.Context, userID int64) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM wallets WHERE user_id = ?`, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("wallet for user %d: %w", userID, ErrNoWallet)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get wallet: %w", err)
	}
	return id, nil
}

// GetBalance derives the balance: incoming sum minus outgoing sum, as
// two independent queries. A wallet with no transactions is simply 0.
func (db *DB) GetBalance(ctx context.Context, walletID int64) (int64, error) {
	var incoming, outgoing int64
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE dest_wallet_id = ?`, walletID).
		Scan(&incoming)
	if err != nil {
		return 0, fmt.Errorf("failed to sum incoming transactions: %w", err)
	}
	err = db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE source_wallet_id = ?`, walletID).
		Scan(&outgoing)
	if err != nil {
		return 0, fmt.Errorf("failed to sum outgoing transactions: %w", err)
	}
	return incoming - outgoing, nil
}

func balanceTx(tx *sql.Tx, ctx context.Context, walletID int64) (int64, error) {
	var incoming, outgoing int64
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE dest_wallet_id = ?`, walletID).
		Scan(&incoming)
	if err != nil {
		return 0, fmt.Errorf("failed to sum incoming transactions: %w", err)
	}
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE source_wallet_id = ?`, walletID).
		Scan(&outgoing)
	if err != nil {
		return 0, fmt.Errorf("failed to sum outgoing transactions: %w", err)
	}
	return incoming - outgoing, nil
}

func insertTransactionTx(tx *sql.Tx, ctx context.Context, t *models.Transaction) error {
	now := time.Now()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (type, amount, source_wallet_id, dest_wallet_id, booking_id, note, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Type, t.Amount, t.SourceWalletID, t.DestWalletID, t.BookingID, t.Note, now)
	if err != nil {
		return fmt.Errorf("failed to insert %s transaction: %w", t.Type, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	t.ID = id
	t.CreatedAt = now
	return nil
}

// serviceFee rounds half-up on non-negative integer minor units.
func serviceFee(rentalFee int64, percent int) int64 {
	return (rentalFee*int64(percent) + 50) / 100
}

// RecordBookingPayment confirms a pending booking and records up to
// three ledger entries in the same transaction: the rental payment
// crediting the owner's wallet, the platform service fee, and the held
// deposit. If anything fails, no entry is visible and the booking stays
// pending.
func (db *DB) RecordBookingPayment(ctx context.Context, bookingID int64, feePercent int) ([]*models.Transaction, error) {
	var entries []*models.Transaction
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		booking, err := getBookingTx(tx, ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.Status != models.BookingPending {
			return fmt.Errorf("booking %d is %s, want %s: %w",
				bookingID, booking.Status, models.BookingPending, ErrStatusConflict)
		}

		var ownerID int64
		err = tx.QueryRowContext(ctx, `SELECT owner_id FROM assets WHERE id = ?`, booking.AssetID).Scan(&ownerID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("asset %d: %w", booking.AssetID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to resolve asset owner: %w", err)
		}

		ownerWallet, err := walletByUserTx(tx, ctx, ownerID)
		if err != nil {
			return err
		}

		fee := serviceFee(booking.RentalFee, feePercent)
		bookingRef := booking.ID

		// Owner is credited the full rental fee; the platform's cut is a
		// separate entry, not a deduction.
		rental := &models.Transaction{
			Type:         models.TxRentalPayment,
			Amount:       booking.RentalFee,
			DestWalletID: &ownerWallet,
			BookingID:    &bookingRef,
			Note:         "rental payment " + booking.Code,
		}
		if err := insertTransactionTx(tx, ctx, rental); err != nil {
			return err
		}
		entries = append(entries, rental)

		service := &models.Transaction{
			Type:      models.TxServiceFee,
			Amount:    fee,
			BookingID: &bookingRef,
			Note:      "service fee " + booking.Code,
		}
		if err := insertTransactionTx(tx, ctx, service); err != nil {
			return err
		}
		entries = append(entries, service)

		if booking.Deposit > 0 {
			deposit := &models.Transaction{
				Type:      models.TxDeposit,
				Amount:    booking.Deposit,
				BookingID: &bookingRef,
				Note:      "deposit held " + booking.Code,
			}
			if err := insertTransactionTx(tx, ctx, deposit); err != nil {
				return err
			}
			entries = append(entries, deposit)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE bookings SET status = ?, service_fee = ?, version = version + 1, updated_at = ? WHERE id = ?`,
			models.BookingConfirmed, fee, time.Now(), bookingID)
		if err != nil {
			return fmt.Errorf("failed to confirm booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// refundDepositTx appends the refund entry for a booking's deposit. The
// renter's wallet is credited when one exists; otherwise the money
// leaves the platform with no destination.
func refundDepositTx(tx *sql.Tx, ctx context.Context, booking *models.Booking) error {
	if booking.Deposit <= 0 {
		return fmt.Errorf("booking %d: %w", booking.ID, ErrNoDeposit)
	}

	bookingRef := booking.ID
	refund := &models.Transaction{
		Type:      models.TxDepositRefund,
		Amount:    booking.Deposit,
		BookingID: &bookingRef,
		Note:      "deposit refund " + booking.Code,
	}
	if walletID, err := walletByUserTx(tx, ctx, booking.RenterID); err == nil {
		refund.DestWalletID = &walletID
	} else if !errors.Is(err, ErrNoWallet) {
		return err
	}
	return insertTransactionTx(tx, ctx, refund)
}

func (db *DB) RefundDeposit(ctx context.Context, bookingID int64) (*models.Transaction, error) {
	var refund *models.Transaction
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		booking, err := getBookingTx(tx, ctx, bookingID)
		if err != nil {
			return err
		}
		if err := refundDepositTx(tx, ctx, booking); err != nil {
			return err
		}
		// refundDepositTx stores the entry through the shared insert
		// helper; reload the latest refund row for the caller.
		row := tx.QueryRowContext(ctx,
			`SELECT id, type, amount, source_wallet_id, dest_wallet_id, booking_id, note, created_at
             FROM transactions WHERE booking_id = ? AND type = ? ORDER BY id DESC LIMIT 1`,
			bookingID, models.TxDepositRefund)
		refund = &models.Transaction{}
		return row.Scan(&refund.ID, &refund.Type, &refund.Amount, &refund.SourceWalletID,
			&refund.DestWalletID, &refund.BookingID, &refund.Note, &refund.CreatedAt)
	})
	if err != nil {
		return nil, err
	}
	return refund, nil
}

// RequestPayout validates the amount against the balance computed in the
// same transaction that writes the payout and its debit entry, so two
// racing requests cannot jointly overdraw the wallet.
func (db *DB) RequestPayout(ctx context.Context, walletID, amount int64) (*models.Payout, error) {
	var payout *models.Payout
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		var exists int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM wallets WHERE id = ?`, walletID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("wallet %d: %w", walletID, ErrNoWallet)
		}
		if err != nil {
			return fmt.Errorf("failed to check wallet: %w", err)
		}

		balance, err := balanceTx(tx, ctx, walletID)
		if err != nil {
			return err
		}
		if amount > balance {
			return fmt.Errorf("requested %d, balance %d: %w", amount, balance, ErrInsufficientFunds)
		}

		now := time.Now()
		result, err := tx.ExecContext(ctx,
			`INSERT INTO payouts (wallet_id, amount, status, created_at) VALUES (?, ?, ?, ?)`,
			walletID, amount, models.PayoutPending, now)
		if err != nil {
			return fmt.Errorf("failed to create payout: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}

		debit := &models.Transaction{
			Type:           models.TxPayout,
			Amount:         amount,
			SourceWalletID: &walletID,
			Note:           fmt.Sprintf("payout request %d", id),
		}
		if err := insertTransactionTx(tx, ctx, debit); err != nil {
			return err
		}

		payout = &models.Payout{ID: id, WalletID: walletID, Amount: amount, Status: models.PayoutPending, CreatedAt: now}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payout, nil
}

func (db *DB) ListWalletTransactions(ctx context.Context, walletID int64) ([]*models.Transaction, error) {
	query := `SELECT id, type, amount, source_wallet_id, dest_wallet_id, booking_id, note, created_at
              FROM transactions WHERE source_wallet_id = ? OR dest_wallet_id = ? ORDER BY id ASC`
	rows, err := db.QueryContext(ctx, query, walletID, walletID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet transactions: %w", err)
	}
	defer rows.Close()

	var entries []*models.Transaction
	for rows.Next() {
		t := &models.Transaction{}
		if err := rows.Scan(&t.ID, &t.Type, &t.Amount, &t.SourceWalletID, &t.DestWalletID,
			&t.BookingID, &t.Note, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		entries = append(entries, t)
	}
	return entries, rows.Err()
}

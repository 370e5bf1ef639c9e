package database

import (
	"context"
	"testing"

	"prokat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceFee_HalfUpRounding(t *testing.T) {
	assert.Equal(t, int64(15000), serviceFee(100000, 15))
	assert.Equal(t, int64(150), serviceFee(999, 15))
	// 4.5 rounds up to 5.
	assert.Equal(t, int64(5), serviceFee(30, 15))
	// 0.15 rounds down to 0.
	assert.Equal(t, int64(0), serviceFee(1, 15))
	assert.Equal(t, int64(0), serviceFee(100000, 0))
}

func TestCreateWallet_UniquePerUser(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, db, models.RoleOwner)
	wallet, err := db.CreateWallet(ctx, owner.ID)
	require.NoError(t, err)
	assert.NotZero(t, wallet.ID)

	_, err = db.CreateWallet(ctx, owner.ID)
	assert.Error(t, err)

	found, err := db.GetWalletByUserID(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, wallet.ID, found.ID)
}

func TestGetWalletByUserID_NoWallet(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetWalletByUserID(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNoWallet)
}

func TestGetBalance_EmptyWalletIsZero(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, db, models.RoleOwner)
	wallet, err := db.CreateWallet(ctx, owner.ID)
	require.NoError(t, err)

	balance, err := db.GetBalance(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestRecordBookingPayment(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, db, models.RoleOwner)
	renter := seedUser(t, db, models.RoleRenter)
	asset := seedAsset(t, db, owner.ID)
	ownerWallet, err := db.CreateWallet(ctx, owner.ID)
	require.NoError(t, err)

	booking := makeBooking(asset.ID, renter.ID, day(2030, 6, 10), day(2030, 6, 12))
	booking.RentalFee = 100000
	booking.Deposit = 30000
	require.NoError(t, db.CreateBookingWithLock(ctx, booking))

	entries, err := db.RecordBookingPayment(ctx, booking.ID, 15)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	rental := entries[0]
	assert.Equal(t, models.TxRentalPayment, rental.Type)
	assert.Equal(t, int64(100000), rental.Amount)
	require.NotNil(t, rental.DestWalletID)
	assert.Equal(t, ownerWallet.ID, *rental.DestWalletID)
	assert.Nil(t, rental.SourceWalletID)

	fee := entries[1]
	assert.Equal(t, models.TxServiceFee, fee.Type)
	assert.Equal(t, int64(15000), fee.Amount)
	assert.Nil(t, fee.SourceWalletID)
	assert.Nil(t, fee.DestWalletID)

	deposit := entries[2]
	assert.Equal(t, models.TxDeposit, deposit.Type)
	assert.Equal(t, int64(30000), deposit.Amount)

	confirmed, err := db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingConfirmed, confirmed.Status)
	assert.Equal(t, int64(15000), confirmed.ServiceFee)
	assert.Equal(t, int64(2), confirmed.Version)

	// Owner is credited the full fee; the platform cut is a separate
	// entry, not a deduction.
	balance, err := db.GetBalance(ctx, ownerWallet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), balance)
}

func TestRecordBookingPayment_NoDeposit(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, db, models.RoleOwner)
	renter := seedUser(t, db, models.RoleRenter)
	asset := seedAsset(t, db, owner.ID)
	_, err := db.CreateWallet(ctx, owner.ID)
	require.NoError(t, err)

	booking := makeBooking(asset.ID, renter.ID, day(2030, 6, 10), day(2030, 6, 12))
	booking.Deposit = 0
	require.NoError(t, db.CreateBookingWithLock(ctx, booking))

	entries, err := db.RecordBookingPayment(ctx, booking.ID, 15)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestRecordBookingPayment_OnlyPending(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, db, models.RoleOwner)
	renter := seedUser(t, db, models.RoleRenter)
	asset := seedAsset(t, db, owner.ID)
	_, err := db.CreateWallet(ctx, owner.ID)
	require.NoError(t, err)

	booking := makeBooking(asset.ID, renter.ID, day(2030, 6, 10), day(2030, 6, 12))
	require.NoError(t, db.CreateBookingWithLock(ctx, booking))

	_, err = db.RecordBookingPayment(ctx, booking.ID, 15)
	require.NoError(t, err)

	// Double payment is rejected and appends nothing.
	_, err = db.RecordBookingPayment(ctx, booking.ID, 15)
	assert.ErrorIs(t, err, ErrStatusConflict)

	wallet, err := db.GetWalletByUserID(ctx, owner.ID)
	require.NoError(t, err)
	txs, err := db.ListWalletTransactions(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestRecordBookingPayment_OwnerWithoutWallet(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, db, models.RoleOwner)
	renter := seedUser(t, db, models.RoleRenter)
	asset := seedAsset(t, db, owner.ID)

	booking := makeBooking(asset.ID, renter.ID, day(2030, 6, 10), day(2030, 6, 12))
	require.NoError(t, db.CreateBookingWithLock(ctx, booking))

	_, err := db.RecordBookingPayment(ctx, booking.ID, 15)
	assert.ErrorIs(t, err, ErrNoWallet)

	// The booking stays pending: no partial write survives the rollback.
	reloaded, err := db.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingPending, reloaded.Status)
}

func TestRefundDeposit(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, db, models.RoleOwner)
	renter := seedUser(t, db, models.RoleRenter)
	asset := seedAsset(t, db, owner.ID)
	_, err := db.CreateWallet(ctx, owner.ID)
	require.NoError(t, err)
	renterWallet, err := db.CreateWallet(ctx, renter.ID)
	require.NoError(t, err)

	booking := makeBooking(asset.ID, renter.ID, day(2030, 6, 10), day(2030, 6, 12))
	require.NoError(t, db.CreateBookingWithLock(ctx, booking))
	_, err = db.RecordBookingPayment(ctx, booking.ID, 15)
	require.NoError(t, err)

	refund, err := db.RefundDeposit(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TxDepositRefund, refund.Type)
	assert.Equal(t, booking.Deposit, refund.Amount)
	require.NotNil(t, refund.DestWalletID)
	assert.Equal(t, renterWallet.ID, *refund.DestWalletID)
}

func TestRefundDeposit_NoDeposit(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, db, models.RoleOwner)
	renter := seedUser(t, db, models.RoleRenter)
	asset := seedAsset(t, db, owner.ID)

	booking := makeBooking(asset.ID, renter.ID, day(2030, 6, 10), day(2030, 6, 12))
	booking.Deposit = 0
	require.NoError(t, db.CreateBookingWithLock(ctx, booking))

	_, err := db.RefundDeposit(ctx, booking.ID)
	assert.ErrorIs(t, err, ErrNoDeposit)
}

func TestRequestPayout(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, db, models.RoleOwner)
	renter := seedUser(t, db, models.RoleRenter)
	asset := seedAsset(t, db, owner.ID)
	wallet, err := db.CreateWallet(ctx, owner.ID)
	require.NoError(t, err)

	booking := makeBooking(asset.ID, renter.ID, day(2030, 6, 10), day(2030, 6, 12))
	booking.RentalFee = 1000
	require.NoError(t, db.CreateBookingWithLock(ctx, booking))
	_, err = db.RecordBookingPayment(ctx, booking.ID, 15)
	require.NoError(t, err)

	payout, err := db.RequestPayout(ctx, wallet.ID, 300)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutPending, payout.Status)
	assert.Equal(t, int64(300), payout.Amount)

	// The matching debit makes the balance drop immediately.
	balance, err := db.GetBalance(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(700), balance)
}

func TestRequestPayout_InsufficientFunds(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, db, models.RoleOwner)
	wallet, err := db.CreateWallet(ctx, owner.ID)
	require.NoError(t, err)

	_, err = db.RequestPayout(ctx, wallet.ID, 100)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// Nothing was appended.
	txs, err := db.ListWalletTransactions(ctx, wallet.ID)
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestRequestPayout_NoWallet(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.RequestPayout(context.Background(), 77, 100)
	assert.ErrorIs(t, err, ErrNoWallet)
}

func TestListWalletTransactions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	owner := seedUser(t, db, models.RoleOwner)
	renter := seedUser(t, db, models.RoleRenter)
	asset := seedAsset(t, db, owner.ID)
	wallet, err := db.CreateWallet(ctx, owner.ID)
	require.NoError(t, err)

	booking := makeBooking(asset.ID, renter.ID, day(2030, 6, 10), day(2030, 6, 12))
	booking.RentalFee = 1000
	require.NoError(t, db.CreateBookingWithLock(ctx, booking))
	_, err = db.RecordBookingPayment(ctx, booking.ID, 15)
	require.NoError(t, err)
	_, err = db.RequestPayout(ctx, wallet.ID, 200)
	require.NoError(t, err)

	txs, err := db.ListWalletTransactions(ctx, wallet.ID)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, models.TxRentalPayment, txs[0].Type)
	assert.Equal(t, models.TxPayout, txs[1].Type)
}

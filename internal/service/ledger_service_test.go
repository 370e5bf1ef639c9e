package service

import (
	"context"
	"testing"

	"prokat/internal/domain"
	"prokat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestPayout_AmountValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.ledger.RequestPayout(context.Background(), 1, 0)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = env.ledger.RequestPayout(context.Background(), 1, -50)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestRequestPayout_InsufficientIsExhaustion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.seedUser(t, models.RoleOwner)
	wallet, err := env.ledger.GetWalletByUserID(ctx, owner.ID)
	require.NoError(t, err)

	_, err = env.ledger.RequestPayout(ctx, wallet.ID, 100)
	assert.Equal(t, domain.KindResourceExhaustion, domain.KindOf(err))
}

func TestRequestPayout_UnknownWallet(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.ledger.RequestPayout(context.Background(), 999, 100)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestRecordBookingPayment_DoublePayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.seedUser(t, models.RoleOwner)
	renter := env.seedUser(t, models.RoleRenter)
	asset := env.seedAsset(t, owner.ID)

	booking, err := env.bookings.CreateBooking(ctx, CreateBookingInput{
		AssetID:    asset.ID,
		RenterID:   renter.ID,
		PickupDate: futureDate(10),
		ReturnDate: futureDate(12),
		RentalFee:  1000,
	})
	require.NoError(t, err)

	_, err = env.ledger.RecordBookingPayment(ctx, booking.ID)
	require.NoError(t, err)

	_, err = env.ledger.RecordBookingPayment(ctx, booking.ID)
	assert.Equal(t, domain.KindStateConflict, domain.KindOf(err))
}

func TestRecordBookingPayment_UnknownBooking(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.ledger.RecordBookingPayment(context.Background(), 404)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestRefundDeposit_NoDepositIsValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	owner := env.seedUser(t, models.RoleOwner)
	renter := env.seedUser(t, models.RoleRenter)
	asset := env.seedAsset(t, owner.ID)

	booking, err := env.bookings.CreateBooking(ctx, CreateBookingInput{
		AssetID:    asset.ID,
		RenterID:   renter.ID,
		PickupDate: futureDate(10),
		ReturnDate: futureDate(12),
		RentalFee:  1000,
		Deposit:    0,
	})
	require.NoError(t, err)

	_, err = env.ledger.RefundDeposit(ctx, booking.ID)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestGetBalance_UnknownWalletIsZero(t *testing.T) {
	env := newTestEnv(t)

	// Balances are derived from entries; a wallet with no history (or no
	// row at all) simply sums to zero.
	balance, err := env.ledger.GetBalance(context.Background(), 999)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

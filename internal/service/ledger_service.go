package service

import (
	"context"

	"prokat/internal/domain"
	"prokat/internal/events"
	"prokat/internal/metrics"
	"prokat/internal/models"

	"github.com/rs/zerolog"
)

// LedgerService fronts the append-only money log. There is no stored
// balance anywhere; every balance the service reports is derived from
// the transaction history at read time.
type LedgerService struct {
	repo       domain.Repository
	bus        domain.EventPublisher
	feePercent int
	logger     *zerolog.Logger
}

func NewLedgerService(repo domain.Repository, bus domain.EventPublisher, feePercent int, logger *zerolog.Logger) *LedgerService {
	if feePercent < 0 || feePercent > 100 {
		feePercent = models.DefaultServiceFeePercent
	}
	return &LedgerService{repo: repo, bus: bus, feePercent: feePercent, logger: logger}
}

func (s *LedgerService) CreateWallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	wallet, err := s.repo.CreateWallet(ctx, userID)
	if err != nil {
		return nil, classify(err)
	}
	return wallet, nil
}

func (s *LedgerService) GetWalletByUserID(ctx context.Context, userID int64) (*models.Wallet, error) {
	wallet, err := s.repo.GetWalletByUserID(ctx, userID)
	if err != nil {
		return nil, classify(err)
	}
	return wallet, nil
}

// GetBalance derives the wallet balance from the transaction log. A
// wallet with no transactions has balance zero; the query never fails
// on an empty history.
func (s *LedgerService) GetBalance(ctx context.Context, walletID int64) (int64, error) {
	balance, err := s.repo.GetBalance(ctx, walletID)
	if err != nil {
		return 0, classify(err)
	}
	return balance, nil
}

// RecordBookingPayment confirms a pending booking and appends the full
// payment entry set in one unit of work: rental payment to the owner,
// the platform service fee, and the deposit when one was agreed.
func (s *LedgerService) RecordBookingPayment(ctx context.Context, bookingID int64) ([]*models.Transaction, error) {
	txs, err := s.repo.RecordBookingPayment(ctx, bookingID, s.feePercent)
	if err != nil {
		return nil, classify(err)
	}

	for _, tx := range txs {
		metrics.IncLedgerEntry(tx.Type)
	}
	s.publish(events.EventBookingConfirmed, events.LedgerEventPayload{
		Type:      models.TxRentalPayment,
		Amount:    paymentAmount(txs),
		BookingID: bookingID,
	})
	return txs, nil
}

// RefundDeposit releases a held deposit outside the check-in flow, for
// staff-driven corrections.
func (s *LedgerService) RefundDeposit(ctx context.Context, bookingID int64) (*models.Transaction, error) {
	tx, err := s.repo.RefundDeposit(ctx, bookingID)
	if err != nil {
		return nil, classify(err)
	}

	metrics.IncLedgerEntry(tx.Type)
	s.publish(events.EventDepositRefunded, events.LedgerEventPayload{
		Type:      tx.Type,
		Amount:    tx.Amount,
		BookingID: bookingID,
	})
	return tx, nil
}

// RequestPayout records a withdrawal request and the matching debit.
// The balance check and the debit happen in the same transaction, so
// two concurrent requests can never both drain the wallet.
func (s *LedgerService) RequestPayout(ctx context.Context, walletID, amount int64) (*models.Payout, error) {
	if amount <= 0 {
		return nil, domain.Invalid("payout amount must be positive")
	}

	payout, err := s.repo.RequestPayout(ctx, walletID, amount)
	if err != nil {
		return nil, classify(err)
	}

	metrics.IncLedgerEntry(models.TxPayout)
	s.publish(events.EventPayoutRequested, events.LedgerEventPayload{
		Type:     models.TxPayout,
		Amount:   amount,
		WalletID: walletID,
		PayoutID: payout.ID,
	})
	return payout, nil
}

func (s *LedgerService) ListWalletTransactions(ctx context.Context, walletID int64) ([]*models.Transaction, error) {
	txs, err := s.repo.ListWalletTransactions(ctx, walletID)
	if err != nil {
		return nil, classify(err)
	}
	return txs, nil
}

func (s *LedgerService) publish(eventType string, payload events.LedgerEventPayload) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}

func paymentAmount(txs []*models.Transaction) int64 {
	for _, tx := range txs {
		if tx.Type == models.TxRentalPayment {
			return tx.Amount
		}
	}
	return 0
}

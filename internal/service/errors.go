package service

import (
	"errors"

	"prokat/internal/database"
	"prokat/internal/domain"
	"prokat/internal/fsm"
)

// classify recovers storage-level failures into the typed errors the
// operation boundary promises. Already-classified errors pass through.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var typed *domain.Error
	if errors.As(err, &typed) {
		return err
	}

	var invalid *fsm.InvalidTransitionError
	if errors.As(err, &invalid) {
		return &domain.Error{Kind: domain.KindStateConflict, Message: invalid.Error(), Err: err}
	}

	switch {
	case errors.Is(err, database.ErrNotFound), errors.Is(err, database.ErrNoWallet):
		return &domain.Error{Kind: domain.KindNotFound, Message: err.Error(), Err: err}
	case errors.Is(err, database.ErrNotAvailable),
		errors.Is(err, database.ErrBookingConflict),
		errors.Is(err, database.ErrStatusConflict),
		errors.Is(err, database.ErrAssetMismatch),
		errors.Is(err, database.ErrConcurrentModification):
		return &domain.Error{Kind: domain.KindStateConflict, Message: err.Error(), Err: err}
	case errors.Is(err, database.ErrInsufficientFunds):
		return &domain.Error{Kind: domain.KindResourceExhaustion, Message: err.Error(), Err: err}
	case errors.Is(err, database.ErrNoDeposit):
		return &domain.Error{Kind: domain.KindValidation, Message: err.Error(), Err: err}
	case errors.Is(err, database.ErrBusy):
		return &domain.Error{Kind: domain.KindTransient, Message: "store is busy, retry the operation", Err: err}
	}

	return &domain.Error{Kind: domain.KindInternal, Message: "operation failed", Err: err}
}

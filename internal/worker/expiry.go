package worker

import (
	"context"
	"time"

	"prokat/internal/domain"
	"prokat/internal/models"

	"github.com/rs/zerolog"
)

// BookingCanceller is the slice of the booking service the sweeper needs.
type BookingCanceller interface {
	CancelBooking(ctx context.Context, bookingID, actorID int64, actorRole, reason string) (*models.Booking, error)
}

// ExpirySweeper cancels bookings that sat in pending past their hold
// window, releasing the reserved asset and freeing the calendar. Each
// cancellation goes through the normal service path so audit records
// and events are identical to a manual cancellation.
type ExpirySweeper struct {
	repo     domain.Repository
	bookings BookingCanceller
	interval time.Duration
	holdFor  time.Duration
	actorID  int64
	backoff  Backoff
	logger   *zerolog.Logger
}

// maxCancelAttempts bounds retries of a single transient cancellation
// failure within one sweep.
const maxCancelAttempts = 3

func NewExpirySweeper(repo domain.Repository, bookings BookingCanceller, interval, holdFor time.Duration, actorID int64, logger *zerolog.Logger) *ExpirySweeper {
	if interval <= 0 {
		interval = time.Duration(models.DefaultExpirySweepMinutes) * time.Minute
	}
	if holdFor <= 0 {
		holdFor = 24 * time.Hour
	}
	return &ExpirySweeper{
		repo:     repo,
		bookings: bookings,
		interval: interval,
		holdFor:  holdFor,
		actorID:  actorID,
		backoff:  Backoff{Base: 2 * time.Second, Cap: 30 * time.Second},
		logger:   logger,
	}
}

// Run sweeps on a ticker until the context is cancelled. The first
// sweep happens immediately so a restart does not leave stale holds
// for a full interval.
func (w *ExpirySweeper) Run(ctx context.Context) {
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("expiry sweeper stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpirySweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-w.holdFor)
	stale, err := w.repo.ListExpiredPending(ctx, cutoff)
	if err != nil {
		w.logger.Error().Err(err).Msg("list expired pending error")
		return
	}
	if len(stale) == 0 {
		return
	}

	cancelled := 0
	for _, booking := range stale {
		if err := w.cancelWithRetry(ctx, booking.ID); err != nil {
			w.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("expire booking error")
			continue
		}
		cancelled++
	}
	w.logger.Info().Int("stale", len(stale)).Int("cancelled", cancelled).Msg("expiry sweep done")
}

func (w *ExpirySweeper) cancelWithRetry(ctx context.Context, bookingID int64) error {
	var lastErr error
	for attempt := 1; attempt <= maxCancelAttempts; attempt++ {
		_, err := w.bookings.CancelBooking(ctx, bookingID, w.actorID, models.RoleAdmin, "pending hold expired")
		if err == nil {
			return nil
		}
		lastErr = err

		// Racing with a confirmation or a manual cancel is fine; the
		// booking simply no longer needs expiring.
		kind := domain.KindOf(err)
		if kind == domain.KindStateConflict || kind == domain.KindNotFound {
			return nil
		}
		if kind != domain.KindTransient {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.backoff.Wait(attempt)):
		}
	}
	return lastErr
}

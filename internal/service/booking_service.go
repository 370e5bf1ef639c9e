package service

import (
	"context"
	"strings"
	"time"

	"prokat/internal/domain"
	"prokat/internal/events"
	"prokat/internal/fsm"
	"prokat/internal/metrics"
	"prokat/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BookingService owns the reservation lifecycle. Date validation and
// authorization happen here, before the atomic unit of work; everything
// state-dependent happens inside it, in the database layer.
type BookingService struct {
	repo           domain.Repository
	bus            domain.EventPublisher
	bufferDays     int
	maxBookingDays int
	logger         *zerolog.Logger
}

func NewBookingService(repo domain.Repository, bus domain.EventPublisher, bufferDays, maxBookingDays int, logger *zerolog.Logger) *BookingService {
	if bufferDays < 0 {
		bufferDays = models.DefaultBufferDays
	}
	if maxBookingDays <= 0 {
		maxBookingDays = models.DefaultMaxBookingDays
	}
	return &BookingService{
		repo:           repo,
		bus:            bus,
		bufferDays:     bufferDays,
		maxBookingDays: maxBookingDays,
		logger:         logger,
	}
}

// Availability is the answer to "can this asset be booked for this window".
type Availability struct {
	Available     bool `json:"available"`
	ConflictCount int  `json:"conflict_count"`
}

// CreateBookingInput carries everything the renter flow supplies.
type CreateBookingInput struct {
	AssetID    int64
	RenterID   int64
	EventDate  time.Time
	PickupDate time.Time
	ReturnDate time.Time
	RentalFee  int64
	Deposit    int64
	Notes      string
}

// BufferEnd derives the end of the blocking window for a return date.
func (s *BookingService) BufferEnd(returnDate time.Time) time.Time {
	return dateOnly(returnDate).AddDate(0, 0, s.bufferDays)
}

func (s *BookingService) CheckAvailability(ctx context.Context, assetID int64, pickupDate, returnDate time.Time) (*Availability, error) {
	conflicts, err := s.repo.CountConflicts(ctx, assetID, dateOnly(pickupDate), s.BufferEnd(returnDate))
	if err != nil {
		return nil, classify(err)
	}
	return &Availability{Available: conflicts == 0, ConflictCount: conflicts}, nil
}

func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*models.Booking, error) {
	pickup := dateOnly(input.PickupDate)
	returnDate := dateOnly(input.ReturnDate)
	today := dateOnly(time.Now())

	// Validation order matters: shape first, then temporal placement.
	if !pickup.Before(returnDate) {
		return nil, domain.Invalid("pickup date %s must be strictly before return date %s",
			pickup.Format("2006-01-02"), returnDate.Format("2006-01-02"))
	}
	if pickup.Before(today) {
		return nil, domain.Invalid("pickup date %s is in the past", pickup.Format("2006-01-02"))
	}
	if pickup.After(today.AddDate(0, 0, s.maxBookingDays)) {
		return nil, domain.Invalid("pickup date %s is more than %d days ahead", pickup.Format("2006-01-02"), s.maxBookingDays)
	}
	if input.RentalFee < 0 || input.Deposit < 0 {
		return nil, domain.Invalid("rental fee and deposit must not be negative")
	}

	booking := &models.Booking{
		Code:       newBookingCode(),
		AssetID:    input.AssetID,
		RenterID:   input.RenterID,
		EventDate:  dateOnly(input.EventDate),
		PickupDate: pickup,
		ReturnDate: returnDate,
		BufferEnd:  s.BufferEnd(returnDate),
		RentalFee:  input.RentalFee,
		Deposit:    input.Deposit,
		Status:     models.BookingPending,
		Notes:      input.Notes,
	}

	if err := s.repo.CreateBookingWithLock(ctx, booking); err != nil {
		classified := classify(err)
		if domain.KindOf(classified) == domain.KindStateConflict {
			metrics.IncBookingConflict()
		}
		return nil, classified
	}

	metrics.IncBookingCreated()
	s.publishBookingEvent(events.EventBookingCreated, booking, booking.RenterID, "")
	return booking, nil
}

func (s *BookingService) CancelBooking(ctx context.Context, bookingID, actorID int64, actorRole, reason string) (*models.Booking, error) {
	if actorRole != models.RoleRenter && actorRole != models.RoleAdmin {
		return nil, domain.Forbidden("role %s may not cancel bookings", actorRole)
	}

	if actorRole == models.RoleRenter {
		booking, err := s.repo.GetBooking(ctx, bookingID)
		if err != nil {
			return nil, classify(err)
		}
		if booking.RenterID != actorID {
			return nil, domain.Forbidden("booking %d does not belong to actor %d", bookingID, actorID)
		}
	}

	booking, err := s.repo.CancelBooking(ctx, bookingID, actorID, reason)
	if err != nil {
		return nil, classify(err)
	}

	s.publishBookingEvent(events.EventBookingCancelled, booking, actorID, "")
	return booking, nil
}

func (s *BookingService) CheckOut(ctx context.Context, bookingID, assetID, actorID int64, notes string) (*models.Booking, error) {
	if err := s.requireStaff(ctx, actorID); err != nil {
		return nil, err
	}

	booking, err := s.repo.CheckOutBooking(ctx, bookingID, assetID, actorID, notes)
	if err != nil {
		return nil, classify(err)
	}

	metrics.IncAssetTransition(string(fsm.StatePickedUp))
	s.publishBookingEvent(events.EventBookingPickedUp, booking, actorID, "")
	return booking, nil
}

func (s *BookingService) CheckIn(ctx context.Context, bookingID, assetID, actorID int64, condition, notes string) (*models.Booking, error) {
	if condition != models.ConditionGood && condition != models.ConditionDamaged {
		return nil, domain.Invalid("condition must be %s or %s", models.ConditionGood, models.ConditionDamaged)
	}
	if err := s.requireStaff(ctx, actorID); err != nil {
		return nil, err
	}

	booking, err := s.repo.CheckInBooking(ctx, bookingID, assetID, actorID, condition, notes)
	if err != nil {
		return nil, classify(err)
	}

	metrics.IncAssetTransition(string(fsm.StateReturned))
	if booking.Status == models.BookingCompleted {
		metrics.IncAssetTransition(string(fsm.StateAvailable))
		if booking.Deposit > 0 {
			metrics.IncLedgerEntry(models.TxDepositRefund)
			s.publishLedgerEvent(events.EventDepositRefunded, models.TxDepositRefund, booking.Deposit, 0, booking.ID, 0)
		}
		s.publishBookingEvent(events.EventBookingCompleted, booking, actorID, condition)
	} else {
		metrics.IncAssetTransition(string(fsm.StateMaintenance))
		s.publishBookingEvent(events.EventBookingReturned, booking, actorID, condition)
	}
	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	return booking, nil
}

func (s *BookingService) GetRenterBookings(ctx context.Context, renterID int64) ([]*models.Booking, error) {
	bookings, err := s.repo.GetRenterBookings(ctx, renterID)
	if err != nil {
		return nil, classify(err)
	}
	return bookings, nil
}

func (s *BookingService) GetAssetCalendar(ctx context.Context, assetID int64, start time.Time, days int) ([]*models.DayAvailability, error) {
	if days <= 0 {
		return nil, domain.Invalid("days must be positive")
	}
	calendar, err := s.repo.GetAssetCalendar(ctx, assetID, dateOnly(start), days)
	if err != nil {
		return nil, classify(err)
	}
	return calendar, nil
}

func (s *BookingService) ListEvidence(ctx context.Context, bookingID int64) ([]*models.Evidence, error) {
	records, err := s.repo.ListEvidence(ctx, bookingID)
	if err != nil {
		return nil, classify(err)
	}
	return records, nil
}

func (s *BookingService) requireStaff(ctx context.Context, actorID int64) error {
	actor, err := s.repo.GetUser(ctx, actorID)
	if err != nil {
		// Do not reveal more than necessary: an unknown actor is simply
		// not authorized.
		return domain.Forbidden("actor %d is not authorized", actorID)
	}
	if !actor.IsStaff() {
		return domain.Forbidden("actor %d is not staff", actorID)
	}
	return nil
}

func (s *BookingService) publishBookingEvent(eventType string, booking *models.Booking, actorID int64, condition string) {
	if s.bus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:  booking.ID,
		Code:       booking.Code,
		AssetID:    booking.AssetID,
		RenterID:   booking.RenterID,
		Status:     booking.Status,
		PickupDate: booking.PickupDate,
		ReturnDate: booking.ReturnDate,
		ActorID:    actorID,
		Condition:  condition,
	}

	if err := s.bus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) publishLedgerEvent(eventType, txType string, amount, walletID, bookingID, payoutID int64) {
	if s.bus == nil {
		return
	}

	payload := events.LedgerEventPayload{
		Type:      txType,
		Amount:    amount,
		WalletID:  walletID,
		BookingID: bookingID,
		PayoutID:  payoutID,
	}

	if err := s.bus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}

// newBookingCode builds the externally presentable booking token.
func newBookingCode() string {
	token := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "PRK-" + token[:8]
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

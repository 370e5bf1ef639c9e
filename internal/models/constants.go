package models

// Booking statuses.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingPickedUp  = "picked_up"
	BookingReturned  = "returned"
	BookingCompleted = "completed"
	BookingCancelled = "cancelled"
	BookingDisputed  = "disputed"
)

// User roles. Authentication itself happens outside the core; the role
// is what the caller has already established for the actor.
const (
	RoleRenter = "renter"
	RoleOwner  = "owner"
	RoleStaff  = "staff"
	RoleAdmin  = "admin"
)

// Ledger transaction types.
const (
	TxRentalPayment = "rental_payment"
	TxServiceFee    = "service_fee"
	TxDeposit       = "deposit"
	TxDepositRefund = "deposit_refund"
	TxPayout        = "payout"
	TxPenalty       = "penalty"
)

// Payout statuses. Approval happens outside the core.
const (
	PayoutPending  = "pending"
	PayoutApproved = "approved"
	PayoutRejected = "rejected"
)

// Check-in inspection results.
const (
	ConditionGood    = "good"
	ConditionDamaged = "damaged"
)

// Evidence kinds for handover records.
const (
	EvidenceCheckOut = "check_out"
	EvidenceCheckIn  = "check_in"
	EvidenceDamage   = "damage_report"
)

const (
	// DefaultBufferDays cleaning/turnaround days blocked after every return date.
	DefaultBufferDays = 3

	// DefaultServiceFeePercent platform cut of the rental fee.
	DefaultServiceFeePercent = 15

	// DefaultMaxBookingDays how far in the future a pickup date may be.
	DefaultMaxBookingDays = 365

	// RateLimitRequests requests per window per API key.
	RateLimitRequests = 60

	// RateLimitWindow window for the request counter, seconds.
	RateLimitWindow = 60

	// DefaultExpirySweepMinutes interval between stale-booking sweeps.
	DefaultExpirySweepMinutes = 30
)

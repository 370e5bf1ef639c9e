package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"prokat/internal/domain"
	"prokat/internal/fsm"
	"prokat/internal/service"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleRegisterUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name  string `json:"name"`
		Role  string `json:"role"`
		Phone string `json:"phone"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	user, err := s.users.Register(r.Context(), body.Name, body.Role, body.Phone)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var body struct {
		OwnerID int64  `json:"owner_id"`
		Name    string `json:"name"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	asset, err := s.assets.CreateAsset(r.Context(), body.OwnerID, body.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, asset)
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathID(w, r, "assetID")
	if !ok {
		return
	}

	asset, err := s.assets.GetAsset(r.Context(), assetID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, asset)
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathID(w, r, "assetID")
	if !ok {
		return
	}
	pickup, ok := queryDate(w, r, "pickup_date")
	if !ok {
		return
	}
	returnDate, ok := queryDate(w, r, "return_date")
	if !ok {
		return
	}

	availability, err := s.bookings.CheckAvailability(r.Context(), assetID, pickup, returnDate)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, availability)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathID(w, r, "assetID")
	if !ok {
		return
	}
	start, ok := queryDate(w, r, "start")
	if !ok {
		return
	}
	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil || days <= 0 {
		writeError(w, http.StatusBadRequest, "days must be a positive integer")
		return
	}

	calendar, err := s.bookings.GetAssetCalendar(r.Context(), assetID, start, days)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": calendar})
}

func (s *Server) handleNextStates(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathID(w, r, "assetID")
	if !ok {
		return
	}

	next, err := s.assets.AllowedNext(r.Context(), assetID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"next_states": next})
}

func (s *Server) handleListTransitions(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathID(w, r, "assetID")
	if !ok {
		return
	}

	transitions, err := s.assets.ListTransitions(r.Context(), assetID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transitions": transitions})
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	assetID, ok := pathID(w, r, "assetID")
	if !ok {
		return
	}

	var body struct {
		To      string `json:"to"`
		ActorID int64  `json:"actor_id"`
		Reason  string `json:"reason"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	transition, err := s.assets.Transition(r.Context(), assetID, fsm.State(body.To), body.ActorID, body.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transition)
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AssetID    int64  `json:"asset_id"`
		RenterID   int64  `json:"renter_id"`
		EventDate  string `json:"event_date"`
		PickupDate string `json:"pickup_date"`
		ReturnDate string `json:"return_date"`
		RentalFee  int64  `json:"rental_fee"`
		Deposit    int64  `json:"deposit"`
		Notes      string `json:"notes"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	pickup, err := parseDate(body.PickupDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pickup_date; expected YYYY-MM-DD")
		return
	}
	returnDate, err := parseDate(body.ReturnDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid return_date; expected YYYY-MM-DD")
		return
	}
	eventDate := pickup
	if body.EventDate != "" {
		if eventDate, err = parseDate(body.EventDate); err != nil {
			writeError(w, http.StatusBadRequest, "invalid event_date; expected YYYY-MM-DD")
			return
		}
	}

	booking, err := s.bookings.CreateBooking(r.Context(), service.CreateBookingInput{
		AssetID:    body.AssetID,
		RenterID:   body.RenterID,
		EventDate:  eventDate,
		PickupDate: pickup,
		ReturnDate: returnDate,
		RentalFee:  body.RentalFee,
		Deposit:    body.Deposit,
		Notes:      body.Notes,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *Server) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(w, r, "bookingID")
	if !ok {
		return
	}

	booking, err := s.bookings.GetBooking(r.Context(), bookingID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *Server) handleListEvidence(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(w, r, "bookingID")
	if !ok {
		return
	}

	records, err := s.bookings.ListEvidence(r.Context(), bookingID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"evidence": records})
}

func (s *Server) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(w, r, "bookingID")
	if !ok {
		return
	}

	var body struct {
		ActorID   int64  `json:"actor_id"`
		ActorRole string `json:"actor_role"`
		Reason    string `json:"reason"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	booking, err := s.bookings.CancelBooking(r.Context(), bookingID, body.ActorID, body.ActorRole, body.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(w, r, "bookingID")
	if !ok {
		return
	}

	txs, err := s.ledger.RecordBookingPayment(r.Context(), bookingID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"transactions": txs})
}

func (s *Server) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(w, r, "bookingID")
	if !ok {
		return
	}

	var body struct {
		AssetID int64  `json:"asset_id"`
		ActorID int64  `json:"actor_id"`
		Notes   string `json:"notes"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	booking, err := s.bookings.CheckOut(r.Context(), bookingID, body.AssetID, body.ActorID, body.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(w, r, "bookingID")
	if !ok {
		return
	}

	var body struct {
		AssetID   int64  `json:"asset_id"`
		ActorID   int64  `json:"actor_id"`
		Condition string `json:"condition"`
		Notes     string `json:"notes"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	booking, err := s.bookings.CheckIn(r.Context(), bookingID, body.AssetID, body.ActorID, body.Condition, body.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (s *Server) handleRefundDeposit(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathID(w, r, "bookingID")
	if !ok {
		return
	}

	tx, err := s.ledger.RefundDeposit(r.Context(), bookingID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleRenterBookings(w http.ResponseWriter, r *http.Request) {
	renterID, ok := pathID(w, r, "renterID")
	if !ok {
		return
	}

	bookings, err := s.bookings.GetRenterBookings(r.Context(), renterID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	walletID, ok := pathID(w, r, "walletID")
	if !ok {
		return
	}

	balance, err := s.ledger.GetBalance(r.Context(), walletID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"wallet_id": walletID, "balance": balance})
}

func (s *Server) handleWalletTransactions(w http.ResponseWriter, r *http.Request) {
	walletID, ok := pathID(w, r, "walletID")
	if !ok {
		return
	}

	txs, err := s.ledger.ListWalletTransactions(r.Context(), walletID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (s *Server) handleRequestPayout(w http.ResponseWriter, r *http.Request) {
	walletID, ok := pathID(w, r, "walletID")
	if !ok {
		return
	}

	var body struct {
		Amount int64 `json:"amount"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	payout, err := s.ledger.RequestPayout(r.Context(), walletID, body.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, payout)
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

func queryDate(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		writeError(w, http.StatusBadRequest, name+" is required")
		return time.Time{}, false
	}
	date, err := parseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name+"; expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse("2006-01-02", strings.TrimSpace(raw))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeDomainError maps a typed failure to an HTTP status. The error
// message is safe to expose; internal detail stays in the wrapped chain.
func writeDomainError(w http.ResponseWriter, err error) {
	var typed *domain.Error
	if !errors.As(err, &typed) {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	status := http.StatusInternalServerError
	switch typed.Kind {
	case domain.KindValidation:
		status = http.StatusBadRequest
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindStateConflict:
		status = http.StatusConflict
	case domain.KindAuthorization:
		status = http.StatusForbidden
	case domain.KindResourceExhaustion:
		status = http.StatusUnprocessableEntity
	case domain.KindTransient:
		status = http.StatusServiceUnavailable
	}

	payload := map[string]string{"error": typed.Message, "kind": string(typed.Kind)}
	writeJSON(w, status, payload)
}

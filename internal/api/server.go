package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"prokat/internal/config"
	"prokat/internal/domain"
	"prokat/internal/metrics"
	"prokat/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Server is the HTTP boundary of the rental core. It translates wire
// requests into service calls and typed failures into status codes; no
// business rules live here.
type Server struct {
	cfg      config.APIConfig
	bookings *service.BookingService
	assets   *service.AssetService
	ledger   *service.LedgerService
	users    *service.UserService
	server   *http.Server
	logger   *zerolog.Logger
}

func NewServer(
	cfg config.APIConfig,
	bookings *service.BookingService,
	assets *service.AssetService,
	ledger *service.LedgerService,
	users *service.UserService,
	counters domain.CounterStore,
	logger *zerolog.Logger,
) *Server {
	s := &Server{
		cfg:      cfg,
		bookings: bookings,
		assets:   assets,
		ledger:   ledger,
		users:    users,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	if len(cfg.CORS.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", cfg.Auth.HeaderAPIKey},
			MaxAge:         300,
		}))
	}

	auth := NewAuth(cfg, counters)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Wrap)

		r.Post("/users", s.handleRegisterUser)

		r.Route("/assets", func(r chi.Router) {
			r.Post("/", s.handleCreateAsset)
			r.Get("/{assetID}", s.handleGetAsset)
			r.Get("/{assetID}/availability", s.handleAvailability)
			r.Get("/{assetID}/calendar", s.handleCalendar)
			r.Get("/{assetID}/next-states", s.handleNextStates)
			r.Get("/{assetID}/transitions", s.handleListTransitions)
			r.Post("/{assetID}/transition", s.handleTransition)
		})

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", s.handleCreateBooking)
			r.Get("/{bookingID}", s.handleGetBooking)
			r.Get("/{bookingID}/evidence", s.handleListEvidence)
			r.Post("/{bookingID}/cancel", s.handleCancelBooking)
			r.Post("/{bookingID}/payment", s.handleRecordPayment)
			r.Post("/{bookingID}/checkout", s.handleCheckOut)
			r.Post("/{bookingID}/checkin", s.handleCheckIn)
			r.Post("/{bookingID}/refund-deposit", s.handleRefundDeposit)
		})

		r.Get("/renters/{renterID}/bookings", s.handleRenterBookings)

		r.Route("/wallets", func(r chi.Router) {
			r.Get("/{walletID}/balance", s.handleBalance)
			r.Get("/{walletID}/transactions", s.handleWalletTransactions)
			r.Post("/{walletID}/payouts", s.handleRequestPayout)
		})
	})

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)

		endpoint := r.URL.Path
		if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
			if pattern := routeCtx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}
		metrics.IncHTTP(endpoint, fmt.Sprintf("%dxx", recorder.status/100))

		s.logger.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", dur).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

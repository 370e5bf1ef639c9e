package service

import (
	"context"
	"errors"
	"strings"

	"prokat/internal/database"
	"prokat/internal/domain"
	"prokat/internal/events"
	"prokat/internal/fsm"
	"prokat/internal/metrics"
	"prokat/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AssetService manages garment onboarding and manual lifecycle moves.
// The general transition table lives in the fsm package; this service
// only decides who may ask for a transition.
type AssetService struct {
	repo   domain.Repository
	bus    domain.EventPublisher
	logger *zerolog.Logger
}

func NewAssetService(repo domain.Repository, bus domain.EventPublisher, logger *zerolog.Logger) *AssetService {
	return &AssetService{repo: repo, bus: bus, logger: logger}
}

// CreateAsset onboards a garment for an owner. The owner gets a wallet
// on first onboarding so later rental payments have somewhere to land.
func (s *AssetService) CreateAsset(ctx context.Context, ownerID int64, name string) (*models.Asset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Invalid("asset name is required")
	}

	owner, err := s.repo.GetUser(ctx, ownerID)
	if err != nil {
		return nil, classify(err)
	}

	if _, err := s.repo.GetWalletByUserID(ctx, owner.ID); err != nil {
		if !errors.Is(err, database.ErrNoWallet) {
			return nil, classify(err)
		}
		if _, err := s.repo.CreateWallet(ctx, owner.ID); err != nil {
			return nil, classify(err)
		}
	}

	asset := &models.Asset{
		OwnerID: owner.ID,
		Code:    newAssetCode(),
		Name:    name,
		State:   string(fsm.StateAvailable),
	}
	if err := s.repo.CreateAsset(ctx, asset); err != nil {
		return nil, classify(err)
	}
	return asset, nil
}

func (s *AssetService) GetAsset(ctx context.Context, id int64) (*models.Asset, error) {
	asset, err := s.repo.GetAsset(ctx, id)
	if err != nil {
		return nil, classify(err)
	}
	return asset, nil
}

// Transition performs a manual lifecycle move through the general
// transition table. Restricted to staff.
func (s *AssetService) Transition(ctx context.Context, assetID int64, to fsm.State, actorID int64, reason string) (*models.StatusTransition, error) {
	if !fsm.Known(to) {
		return nil, domain.Invalid("unknown state %q", to)
	}

	actor, err := s.repo.GetUser(ctx, actorID)
	if err != nil {
		return nil, domain.Forbidden("actor %d is not authorized", actorID)
	}
	if !actor.IsStaff() {
		return nil, domain.Forbidden("actor %d is not staff", actorID)
	}

	transition, err := s.repo.TransitionAsset(ctx, assetID, to, actorID, reason)
	if err != nil {
		return nil, classify(err)
	}

	metrics.IncAssetTransition(string(to))
	s.publishTransition(transition)
	return transition, nil
}

// AllowedNext reports the states reachable from the asset's current
// state, read-only.
func (s *AssetService) AllowedNext(ctx context.Context, assetID int64) ([]fsm.State, error) {
	asset, err := s.repo.GetAsset(ctx, assetID)
	if err != nil {
		return nil, classify(err)
	}
	return fsm.AllowedNext(fsm.State(asset.State)), nil
}

func (s *AssetService) ListTransitions(ctx context.Context, assetID int64) ([]*models.StatusTransition, error) {
	transitions, err := s.repo.ListTransitions(ctx, assetID)
	if err != nil {
		return nil, classify(err)
	}
	return transitions, nil
}

func (s *AssetService) publishTransition(t *models.StatusTransition) {
	if s.bus == nil || t == nil {
		return
	}

	payload := events.AssetEventPayload{
		AssetID:   t.AssetID,
		FromState: t.FromState,
		ToState:   t.ToState,
		ActorID:   t.ActorID,
		Reason:    t.Reason,
	}
	if err := s.bus.PublishJSON(events.EventAssetTransition, payload); err != nil {
		s.logger.Error().Err(err).Int64("asset_id", t.AssetID).Msg("publish event error")
	}
}

func newAssetCode() string {
	token := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "GRM-" + token[:8]
}

package service

import (
	"context"
	"strings"
	"testing"

	"prokat/internal/domain"
	"prokat/internal/fsm"
	"prokat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAsset_Validation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.assets.CreateAsset(context.Background(), 1, "  ")
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestCreateAsset_UnknownOwner(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.assets.CreateAsset(context.Background(), 404, "silk dress")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestCreateAsset_ProvisionsOwnerWallet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Staff users never get a wallet at registration.
	staff := env.seedUser(t, models.RoleStaff)
	_, err := env.ledger.GetWalletByUserID(ctx, staff.ID)
	require.Error(t, err)

	asset, err := env.assets.CreateAsset(ctx, staff.ID, "silk dress")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(asset.Code, "GRM-"))
	assert.Equal(t, string(fsm.StateAvailable), asset.State)

	wallet, err := env.ledger.GetWalletByUserID(ctx, staff.ID)
	require.NoError(t, err)
	assert.Equal(t, staff.ID, wallet.UserID)
}

func TestTransition_UnknownState(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.assets.Transition(context.Background(), 1, fsm.State("lost"), 1, "")
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestTransition_RequiresStaff(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, models.RoleOwner)
	renter := env.seedUser(t, models.RoleRenter)
	asset := env.seedAsset(t, owner.ID)

	_, err := env.assets.Transition(context.Background(), asset.ID, fsm.StateMaintenance, renter.ID, "")
	assert.Equal(t, domain.KindAuthorization, domain.KindOf(err))
}

func TestTransition_InvalidEdgeIsStateConflict(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, models.RoleOwner)
	staff := env.seedUser(t, models.RoleStaff)
	asset := env.seedAsset(t, owner.ID)

	_, err := env.assets.Transition(context.Background(), asset.ID, fsm.StateReturned, staff.ID, "")
	assert.Equal(t, domain.KindStateConflict, domain.KindOf(err))
	// The message names the allowed alternatives.
	assert.Contains(t, err.Error(), "allowed from available")
}

func TestTransition_Success(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t, models.RoleOwner)
	staff := env.seedUser(t, models.RoleStaff)
	asset := env.seedAsset(t, owner.ID)

	transition, err := env.assets.Transition(ctx, asset.ID, fsm.StateMaintenance, staff.ID, "seasonal cleaning")
	require.NoError(t, err)
	assert.Equal(t, string(fsm.StateMaintenance), transition.ToState)

	history, err := env.assets.ListTransitions(ctx, asset.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestAllowedNext(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.seedUser(t, models.RoleOwner)
	asset := env.seedAsset(t, owner.ID)

	next, err := env.assets.AllowedNext(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, []fsm.State{fsm.StateMaintenance, fsm.StateReserved, fsm.StateRetired}, next)
}

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"prokat/internal/fsm"
	"prokat/internal/models"
)

func (db *DB) CreateAsset(ctx context.Context, asset *models.Asset) error {
	if asset.State == "" {
		asset.State = string(fsm.StateAvailable)
	}
	query := `INSERT INTO assets (owner_id, code, name, state, completed_rentals, created_at, updated_at)
              VALUES (?, ?, ?, ?, 0, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query, asset.OwnerID, asset.Code, asset.Name, asset.State, now, now)
	if err != nil {
		return fmt.Errorf("failed to create asset: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	asset.ID = id
	asset.CreatedAt = now
	asset.UpdatedAt = now
	return nil
}

func (db *DB) GetAsset(ctx context.Context, id int64) (*models.Asset, error) {
	var asset models.Asset
	query := `SELECT id, owner_id, code, name, state, completed_rentals, created_at, updated_at
              FROM assets WHERE id = ?`
	err := db.QueryRowContext(ctx, query, id).Scan(
		&asset.ID, &asset.OwnerID, &asset.Code, &asset.Name, &asset.State,
		&asset.CompletedRentals, &asset.CreatedAt, &asset.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("asset %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return &asset, nil
}

// ListAssets returns every asset except retired ones, ordered by code.
func (db *DB) ListAssets(ctx context.Context) ([]*models.Asset, error) {
	query := `SELECT id, owner_id, code, name, state, completed_rentals, created_at, updated_at
              FROM assets WHERE state != ? ORDER BY code ASC`
	rows, err := db.QueryContext(ctx, query, string(fsm.StateRetired))
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	var assets []*models.Asset
	for rows.Next() {
		asset := &models.Asset{}
		if err := rows.Scan(
			&asset.ID, &asset.OwnerID, &asset.Code, &asset.Name, &asset.State,
			&asset.CompletedRentals, &asset.CreatedAt, &asset.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

// assetStateTx reads the current state inside the caller's transaction.
// With SQLite's single writer this is the serialization point for every
// multi-step operation touching the asset.
func assetStateTx(tx *sql.Tx, ctx context.Context, assetID int64) (fsm.State, error) {
	var state string
	err := tx.QueryRowContext(ctx, `SELECT state FROM assets WHERE id = ?`, assetID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("asset %d: %w", assetID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read asset state: %w", err)
	}
	return fsm.State(state), nil
}

// applyTransitionTx writes the new state and the audit record together.
// Callers validate the transition first; this only persists it.
func applyTransitionTx(tx *sql.Tx, ctx context.Context, assetID int64, from, to fsm.State, actorID int64, reason string) (*models.StatusTransition, error) {
	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE assets SET state = ?, updated_at = ? WHERE id = ?`,
		string(to), now, assetID); err != nil {
		return nil, fmt.Errorf("failed to update asset state: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO status_transitions (asset_id, from_state, to_state, actor_id, reason, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		assetID, string(from), string(to), actorID, reason, now)
	if err != nil {
		return nil, fmt.Errorf("failed to record status transition: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get last insert id: %w", err)
	}

	return &models.StatusTransition{
		ID:        id,
		AssetID:   assetID,
		FromState: string(from),
		ToState:   string(to),
		ActorID:   actorID,
		Reason:    reason,
		CreatedAt: now,
	}, nil
}

// TransitionAsset performs an administrative/manual transition validated
// against the general adjacency table, atomically with its audit record.
func (db *DB) TransitionAsset(ctx context.Context, assetID int64, to fsm.State, actorID int64, reason string) (*models.StatusTransition, error) {
	var transition *models.StatusTransition
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		from, err := assetStateTx(tx, ctx, assetID)
		if err != nil {
			return err
		}
		if !fsm.IsValidTransition(from, to) {
			return fsm.NewInvalidTransition(from, to)
		}
		transition, err = applyTransitionTx(tx, ctx, assetID, from, to, actorID, reason)
		return err
	})
	if err != nil {
		return nil, err
	}
	return transition, nil
}

func (db *DB) ListTransitions(ctx context.Context, assetID int64) ([]*models.StatusTransition, error) {
	query := `SELECT id, asset_id, from_state, to_state, actor_id, reason, created_at
              FROM status_transitions WHERE asset_id = ? ORDER BY id ASC`
	rows, err := db.QueryContext(ctx, query, assetID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transitions: %w", err)
	}
	defer rows.Close()

	var transitions []*models.StatusTransition
	for rows.Next() {
		t := &models.StatusTransition{}
		if err := rows.Scan(&t.ID, &t.AssetID, &t.FromState, &t.ToState, &t.ActorID, &t.Reason, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		transitions = append(transitions, t)
	}
	return transitions, rows.Err()
}

func incrementCompletedRentalsTx(tx *sql.Tx, ctx context.Context, assetID int64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE assets SET completed_rentals = completed_rentals + 1, updated_at = ? WHERE id = ?`,
		time.Now(), assetID)
	if err != nil {
		return fmt.Errorf("failed to increment completed rentals: %w", err)
	}
	return nil
}

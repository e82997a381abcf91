package repository

import (
	"context"
	"database/sql"
	"fmt"
	"royale-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type PlayerRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewPlayerRepository(sqlDB *sql.DB, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{db: sqlDB, logger: logger}
}

// GetActiveTags returns the tags of every tracked player. Only these are
// processed by the scrape cycle.
func (r *PlayerRepository) GetActiveTags(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT tag FROM players WHERE active = TRUE ORDER BY tag")
	if err != nil {
		return nil, fmt.Errorf("failed to query active players: %w", err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, fmt.Errorf("failed to scan player tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// ListActive returns every tracked player with its stored metadata.
func (r *PlayerRepository) ListActive(ctx context.Context) ([]domain.Player, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT tag, name, active, created_at, updated_at
		FROM players WHERE active = TRUE ORDER BY tag
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracked players: %w", err)
	}
	defer rows.Close()

	players := []domain.Player{}
	for rows.Next() {
		var p domain.Player
		if err := rows.Scan(&p.Tag, &p.Name, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// Track inserts a player or reactivates a previously untracked one.
func (r *PlayerRepository) Track(ctx context.Context, tag string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO players (tag, active) VALUES (?, TRUE)
		ON CONFLICT (tag) DO UPDATE SET active = TRUE, updated_at = CURRENT_TIMESTAMP
	`, tag)
	if err != nil {
		return fmt.Errorf("failed to track player %s: %w", tag, err)
	}

	r.logger.Info().Str("player_tag", tag).Msg("player tracked")
	return nil
}

// Untrack soft-deletes a player (active=false). Stored battle records are
// kept; retention is not this service's concern.
func (r *PlayerRepository) Untrack(ctx context.Context, tag string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE players SET active = FALSE, updated_at = CURRENT_TIMESTAMP WHERE tag = ? AND active = TRUE", tag)
	if err != nil {
		return false, fmt.Errorf("failed to untrack player %s: %w", tag, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected > 0 {
		r.logger.Info().Str("player_tag", tag).Msg("player untracked")
	}
	return affected > 0, nil
}

func (r *PlayerRepository) Get(ctx context.Context, tag string) (*domain.Player, error) {
	var player domain.Player
	err := r.db.QueryRowContext(ctx,
		"SELECT tag, name, active, created_at, updated_at FROM players WHERE tag = ?", tag).
		Scan(&player.Tag, &player.Name, &player.Active, &player.CreatedAt, &player.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player %s: %w", tag, err)
	}
	return &player, nil
}

// UpdateName refreshes the display name observed during a scrape.
func (r *PlayerRepository) UpdateName(ctx context.Context, tag, name string) error {
	if name == "" {
		return nil
	}
	_, err := r.db.ExecContext(ctx,
		"UPDATE players SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE tag = ?", name, tag)
	if err != nil {
		return fmt.Errorf("failed to update player name %s: %w", tag, err)
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
	"royale-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type GameModeRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewGameModeRepository(sqlDB *sql.DB, logger zerolog.Logger) *GameModeRepository {
	return &GameModeRepository{db: sqlDB, logger: logger}
}

// UpsertSeen records that the given modes were observed at seenAt. New
// modes are inserted, existing ones get lastSeen bumped.
func (r *GameModeRepository) UpsertSeen(ctx context.Context, names []string, seenAt time.Time) error {
	if len(names) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, name := range names {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO game_modes (name, last_seen) VALUES (?, ?)
			ON CONFLICT (name) DO UPDATE SET last_seen = excluded.last_seen
		`, name, seenAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to upsert game mode %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit game modes: %w", err)
	}

	r.logger.Debug().Int("count", len(names)).Msg("game modes upserted")
	return nil
}

func (r *GameModeRepository) List(ctx context.Context) ([]domain.GameMode, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT name, last_seen FROM game_modes ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to query game modes: %w", err)
	}
	defer rows.Close()

	modes := []domain.GameMode{}
	for rows.Next() {
		var mode domain.GameMode
		if err := rows.Scan(&mode.Name, &mode.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan game mode: %w", err)
		}
		modes = append(modes, mode)
	}
	return modes, rows.Err()
}

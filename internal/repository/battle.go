package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"royale-tracker/internal/constants"
	"royale-tracker/internal/domain"

	"github.com/rs/zerolog"
)

type BattleRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewBattleRepository(sqlDB *sql.DB, logger zerolog.Logger) *BattleRepository {
	return &BattleRepository{db: sqlDB, logger: logger}
}

// InsertBatch bulk-inserts canonical records. Duplicates of the
// (tag, battleTime) key are absorbed by INSERT OR IGNORE and counted as
// skipped; a genuinely failing record loses its data for this cycle but
// never aborts the batch.
func (r *BattleRepository) InsertBatch(ctx context.Context, records []domain.BattleRecord) (domain.InsertResult, error) {
	var result domain.InsertResult
	if len(records) == 0 {
		return result, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO battles
			(reference_player_tag, battle_time, game_mode, arena, game_result, team, opponent)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return result, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := 0; i < len(records); i += constants.DBBatchSize {
		end := i + constants.DBBatchSize
		if end > len(records) {
			end = len(records)
		}

		for _, record := range records[i:end] {
			team, err := json.Marshal(record.Team)
			if err != nil {
				r.logger.Error().Err(err).Str("player_tag", record.ReferencePlayerTag).Msg("failed to encode team")
				result.Failed++
				continue
			}
			opponent, err := json.Marshal(record.Opponent)
			if err != nil {
				r.logger.Error().Err(err).Str("player_tag", record.ReferencePlayerTag).Msg("failed to encode opponent")
				result.Failed++
				continue
			}

			res, err := stmt.ExecContext(ctx,
				record.ReferencePlayerTag,
				record.BattleTime.UTC(),
				record.GameMode,
				record.Arena,
				string(record.GameResult),
				string(team),
				string(opponent),
			)
			if err != nil {
				r.logger.Error().
					Err(err).
					Str("player_tag", record.ReferencePlayerTag).
					Time("battle_time", record.BattleTime).
					Msg("failed to insert battle")
				result.Failed++
				continue
			}

			affected, err := res.RowsAffected()
			if err != nil {
				return result, fmt.Errorf("failed to read rows affected: %w", err)
			}
			if affected == 0 {
				result.SkippedDuplicate++
			} else {
				result.Inserted++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return domain.InsertResult{Failed: len(records)}, fmt.Errorf("failed to commit battle batch: %w", err)
	}
	return result, nil
}

// GetByFilter returns a player's records inside [start, end) in battle-time
// order, optionally restricted to a game-mode allow-list.
func (r *BattleRepository) GetByFilter(ctx context.Context, playerTag string, start, end time.Time, gameModes []string) ([]domain.BattleRecord, error) {
	query := `
		SELECT reference_player_tag, battle_time, game_mode, arena, game_result, team, opponent
		FROM battles
		WHERE reference_player_tag = ? AND battle_time >= ? AND battle_time < ?
	`
	args := []any{playerTag, start.UTC(), end.UTC()}

	if len(gameModes) > 0 {
		query += " AND game_mode IN (?" + strings.Repeat(", ?", len(gameModes)-1) + ")"
		for _, mode := range gameModes {
			args = append(args, mode)
		}
	}
	query += " ORDER BY battle_time ASC"

	return r.queryBattles(ctx, query, args...)
}

// GetLastBattles returns the most recent battles before the cutoff, newest
// first.
func (r *BattleRepository) GetLastBattles(ctx context.Context, playerTag string, before time.Time, limit int) ([]domain.BattleRecord, error) {
	query := `
		SELECT reference_player_tag, battle_time, game_mode, arena, game_result, team, opponent
		FROM battles
		WHERE reference_player_tag = ? AND battle_time < ?
		ORDER BY battle_time DESC
		LIMIT ?
	`
	return r.queryBattles(ctx, query, playerTag, before.UTC(), limit)
}

func (r *BattleRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM battles").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count battles: %w", err)
	}
	return count, nil
}

func (r *BattleRepository) queryBattles(ctx context.Context, query string, args ...any) ([]domain.BattleRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query battles: %w", err)
	}
	defer rows.Close()

	records := []domain.BattleRecord{}
	for rows.Next() {
		var record domain.BattleRecord
		var result, team, opponent string

		if err := rows.Scan(&record.ReferencePlayerTag, &record.BattleTime, &record.GameMode,
			&record.Arena, &result, &team, &opponent); err != nil {
			return nil, fmt.Errorf("failed to scan battle row: %w", err)
		}

		record.GameResult = domain.GameResult(result)
		record.BattleTime = record.BattleTime.UTC()
		if err := json.Unmarshal([]byte(team), &record.Team); err != nil {
			return nil, fmt.Errorf("failed to decode team: %w", err)
		}
		if err := json.Unmarshal([]byte(opponent), &record.Opponent); err != nil {
			return nil, fmt.Errorf("failed to decode opponent: %w", err)
		}

		records = append(records, record)
	}
	return records, rows.Err()
}

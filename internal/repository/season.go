package repository

import (
	"context"
	"database/sql"
	"fmt"

	"aram-scrim/internal/database"
	"aram-scrim/internal/domain"
)

// ArchiveSeason snapshots the current standings under name and then starts
// everyone over at rating with a clean record. Both happen in one
// transaction. A name already archived yields domain.ErrAlreadyExists and an
// empty player table yields domain.ErrNotFound.
func (r *PlayerRepository) ArchiveSeason(ctx context.Context, name string, rating int) (int64, error) {
	var n int64
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		now := r.now()

		res, err := tx.ExecContext(ctx, `
INSERT INTO seasons (name, players, archived_at) VALUES (?, 0, ?)
ON CONFLICT(name) DO NOTHING`, name, now)
		if err != nil {
			return fmt.Errorf("failed to insert season %s: %w", name, err)
		}
		if added, _ := res.RowsAffected(); added == 0 {
			return fmt.Errorf("season %s: %w", name, domain.ErrAlreadyExists)
		}

		res, err = tx.ExecContext(ctx, `
INSERT INTO season_standings (season, position, ref, display_name, rating, wins, losses, standout_count, underperformer_count)
SELECT ?, ROW_NUMBER() OVER (ORDER BY rating DESC, wins DESC, ref ASC),
       ref, display_name, rating, wins, losses, standout_count, underperformer_count
FROM players`, name)
		if err != nil {
			return fmt.Errorf("failed to snapshot standings: %w", err)
		}
		if n, err = res.RowsAffected(); err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("no players to archive: %w", domain.ErrNotFound)
		}

		if _, err := tx.ExecContext(ctx, `UPDATE seasons SET players = ? WHERE name = ?`, n, name); err != nil {
			return fmt.Errorf("failed to update season %s: %w", name, err)
		}

		_, err = tx.ExecContext(ctx, `
UPDATE players SET
    rating = ?,
    wins = 0,
    losses = 0,
    standout_count = 0,
    underperformer_count = 0,
    updated_at = ?`, rating, now)
		if err != nil {
			return fmt.Errorf("failed to reset players: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.logger.Info().Str("season", name).Int64("players", n).Int("rating", rating).Msg("season archived")
	return n, nil
}

func (r *PlayerRepository) Seasons(ctx context.Context) ([]domain.Season, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, players, archived_at FROM seasons ORDER BY archived_at DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query seasons: %w", err)
	}
	defer rows.Close()

	seasons := []domain.Season{}
	for rows.Next() {
		var s domain.Season
		if err := rows.Scan(&s.Name, &s.Players, &s.ArchivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan season: %w", err)
		}
		seasons = append(seasons, s)
	}
	return seasons, rows.Err()
}

// SeasonStandings returns the archived table of a season, best first.
func (r *PlayerRepository) SeasonStandings(ctx context.Context, name string) ([]domain.Standing, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM seasons WHERE name = ?)`, name).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to look up season %s: %w", name, err)
	}
	if !exists {
		return nil, fmt.Errorf("season %s: %w", name, domain.ErrNotFound)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT position, ref, display_name, rating, wins, losses, standout_count, underperformer_count
FROM season_standings WHERE season = ?
ORDER BY position ASC`, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query standings: %w", err)
	}
	defer rows.Close()

	standings := []domain.Standing{}
	for rows.Next() {
		var s domain.Standing
		err := rows.Scan(&s.Position, &s.Ref, &s.DisplayName, &s.Rating, &s.Wins, &s.Losses, &s.StandoutCount, &s.UnderperformerCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan standing: %w", err)
		}
		standings = append(standings, s)
	}
	return standings, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"aram-scrim/internal/database"
	"aram-scrim/internal/domain"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

type PlayerRepository struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

func NewPlayerRepository(sqlDB *sql.DB, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{
		db:     sqlDB,
		logger: logger,
		now:    time.Now,
	}
}

const playerColumns = `ref, display_name, rating, rank_tier, wins, losses, standout_count, underperformer_count, rank_checked_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (*domain.Player, error) {
	var (
		p         domain.Player
		checkedAt sql.NullTime
	)
	err := row.Scan(
		&p.Ref, &p.DisplayName, &p.Rating, &p.RankTier, &p.Wins, &p.Losses,
		&p.StandoutCount, &p.UnderperformerCount, &checkedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if checkedAt.Valid {
		p.RankCheckedAt = checkedAt.Time
	}
	return &p, nil
}

func (r *PlayerRepository) Get(ctx context.Context, ref string) (*domain.Player, error) {
	p, err := scanPlayer(r.db.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE ref = ?`, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("player %s: %w", ref, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player %s: %w", ref, err)
	}
	return p, nil
}

// Create inserts a new player. An existing ref yields domain.ErrAlreadyExists.
func (r *PlayerRepository) Create(ctx context.Context, p *domain.Player) error {
	now := r.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	var checkedAt sql.NullTime
	if !p.RankCheckedAt.IsZero() {
		checkedAt = sql.NullTime{Time: p.RankCheckedAt, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO players (`+playerColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(ref) DO NOTHING`,
		p.Ref, p.DisplayName, p.Rating, p.RankTier, p.Wins, p.Losses,
		p.StandoutCount, p.UnderperformerCount, checkedAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert player %s: %w", p.Ref, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("player %s: %w", p.Ref, domain.ErrAlreadyExists)
	}
	return nil
}

func (r *PlayerRepository) ShouldRefresh(ctx context.Context, ref string, ttl time.Duration) (bool, error) {
	var checkedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `SELECT rank_checked_at FROM players WHERE ref = ?`, ref).Scan(&checkedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("player %s: %w", ref, domain.ErrNotFound)
	}
	if err != nil {
		r.logger.Error().Err(err).Str("ref", ref).Msg("failed to get rank check time")
		return false, err
	}
	if !checkedAt.Valid {
		return true, nil
	}

	since := r.now().Sub(checkedAt.Time)
	refresh := since > ttl
	r.logger.Debug().
		Str("ref", ref).
		Time("rank_checked_at", checkedAt.Time).
		Dur("since", since).
		Dur("ttl", ttl).
		Bool("should_refresh", refresh).
		Msg("checking if rank should refresh")
	return refresh, nil
}

// SetRank stores a freshly fetched external rank label.
func (r *PlayerRepository) SetRank(ctx context.Context, ref, tier string, checkedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE players SET rank_tier = ?, rank_checked_at = ?, updated_at = ? WHERE ref = ?`,
		tier, checkedAt, r.now(), ref,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("ref", ref).Msg("failed to set rank")
		return fmt.Errorf("failed to set rank for %s: %w", ref, err)
	}
	return nil
}

// ApplyStats adds delta to the stored player. Counters never drop below zero
// and the rating never drops below delta.Floor when one is set.
func (r *PlayerRepository) ApplyStats(ctx context.Context, ref string, delta domain.StatsDelta) error {
	return applyStats(ctx, r.db, ref, delta, r.now())
}

func applyStats(ctx context.Context, q dbtx, ref string, d domain.StatsDelta, at time.Time) error {
	floored, floor := false, 0
	if d.Floor != nil {
		floored, floor = true, *d.Floor
	}

	res, err := q.ExecContext(ctx, `
UPDATE players SET
    rating = CASE WHEN ? THEN MAX(rating + ?, ?) ELSE rating + ? END,
    wins = MAX(wins + ?, 0),
    losses = MAX(losses + ?, 0),
    standout_count = MAX(standout_count + ?, 0),
    underperformer_count = MAX(underperformer_count + ?, 0),
    updated_at = ?
WHERE ref = ?`,
		floored, d.Rating, floor, d.Rating,
		d.Wins, d.Losses, d.Standouts, d.Underperformers,
		at, ref,
	)
	if err != nil {
		return fmt.Errorf("failed to update stats for %s: %w", ref, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("player %s: %w", ref, domain.ErrNotFound)
	}
	return nil
}

// Ratings reads the stored rating of each ref. Unknown refs are left out.
func (r *PlayerRepository) Ratings(ctx context.Context, refs []string) (map[string]int, error) {
	out := make(map[string]int, len(refs))
	if len(refs) == 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT ref, rating FROM players WHERE ref IN (?`+strings.Repeat(", ?", len(refs)-1)+`)`,
		lo.ToAnySlice(refs)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ref    string
			rating int
		)
		if err := rows.Scan(&ref, &rating); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		out[ref] = rating
	}
	return out, rows.Err()
}

func setRating(ctx context.Context, q dbtx, ref string, rating int, at time.Time) error {
	res, err := q.ExecContext(ctx, `UPDATE players SET rating = ?, updated_at = ? WHERE ref = ?`, rating, at, ref)
	if err != nil {
		return fmt.Errorf("failed to set rating for %s: %w", ref, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("player %s: %w", ref, domain.ErrNotFound)
	}
	return nil
}

// Adjust applies a manual correction atomically: an optional absolute rating
// followed by delta. Either both land or neither does.
func (r *PlayerRepository) Adjust(ctx context.Context, ref string, set *int, delta domain.StatsDelta) (*domain.Player, error) {
	var p *domain.Player
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		now := r.now()
		if set != nil {
			if err := setRating(ctx, tx, ref, *set, now); err != nil {
				return err
			}
		}
		if delta != (domain.StatsDelta{}) {
			if err := applyStats(ctx, tx, ref, delta, now); err != nil {
				return err
			}
		}

		var err error
		p, err = scanPlayer(tx.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE ref = ?`, ref))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("player %s: %w", ref, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to get player %s: %w", ref, err)
		}
		return nil
	})
	if err != nil {
		r.logger.Error().Err(err).Str("ref", ref).Msg("failed to adjust player")
		return nil, err
	}
	return p, nil
}

// Leaderboard lists players by rating, best first. Ties go to the player
// with more wins.
func (r *PlayerRepository) Leaderboard(ctx context.Context, limit int) ([]domain.Player, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+playerColumns+` FROM players
ORDER BY rating DESC, wins DESC, ref ASC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	players := []domain.Player{}
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, *p)
	}
	return players, rows.Err()
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"aram-scrim/internal/database"
	"aram-scrim/internal/domain"

	"github.com/rs/zerolog"
)

type FairPlayRepository struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

func NewFairPlayRepository(sqlDB *sql.DB, logger zerolog.Logger) *FairPlayRepository {
	return &FairPlayRepository{
		db:     sqlDB,
		logger: logger,
		now:    time.Now,
	}
}

const incidentColumns = `id, ref, reason, description, status, reported_by, resolved_by, penalty_until, created_at, resolved_at`

func scanIncident(row rowScanner) (*domain.Incident, error) {
	var (
		inc        domain.Incident
		until      sql.NullTime
		resolvedAt sql.NullTime
	)
	err := row.Scan(
		&inc.ID, &inc.Ref, &inc.Reason, &inc.Description, &inc.Status,
		&inc.ReportedBy, &inc.ResolvedBy, &until, &inc.CreatedAt, &resolvedAt,
	)
	if err != nil {
		return nil, err
	}
	if until.Valid {
		inc.PenaltyUntil = until.Time
	}
	if resolvedAt.Valid {
		inc.ResolvedAt = resolvedAt.Time
	}
	return &inc, nil
}

// AddIncident records inc and counts the player's open incidents. When the
// count reaches limit, inc carries a penalty lasting penalty from now. It
// returns the open count including inc. An unknown player yields
// domain.ErrNotFound.
func (r *FairPlayRepository) AddIncident(ctx context.Context, inc *domain.Incident, limit int, penalty time.Duration) (int, error) {
	var open int
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var known bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM players WHERE ref = ?)`, inc.Ref).Scan(&known); err != nil {
			return fmt.Errorf("failed to look up player %s: %w", inc.Ref, err)
		}
		if !known {
			return fmt.Errorf("player %s: %w", inc.Ref, domain.ErrNotFound)
		}

		inc.Status = domain.IncidentOpen
		inc.CreatedAt = r.now()
		_, err := tx.ExecContext(ctx, `
INSERT INTO fairplay_incidents (id, ref, reason, description, status, reported_by, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			inc.ID, inc.Ref, inc.Reason, inc.Description, inc.Status, inc.ReportedBy, inc.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert incident: %w", err)
		}

		err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM fairplay_incidents WHERE ref = ? AND status = ?`,
			inc.Ref, domain.IncidentOpen).Scan(&open)
		if err != nil {
			return fmt.Errorf("failed to count incidents: %w", err)
		}
		if open < limit {
			return nil
		}

		inc.PenaltyUntil = inc.CreatedAt.Add(penalty)
		if _, err := tx.ExecContext(ctx, `UPDATE fairplay_incidents SET penalty_until = ? WHERE id = ?`, inc.PenaltyUntil, inc.ID); err != nil {
			return fmt.Errorf("failed to set penalty: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return open, nil
}

// ResolveIncident closes an open incident. A missing or already resolved
// incident yields domain.ErrNotFound.
func (r *FairPlayRepository) ResolveIncident(ctx context.Context, id, resolvedBy string) (*domain.Incident, error) {
	var inc *domain.Incident
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE fairplay_incidents SET status = ?, resolved_by = ?, resolved_at = ?
WHERE id = ? AND status = ?`,
			domain.IncidentResolved, resolvedBy, r.now(), id, domain.IncidentOpen,
		)
		if err != nil {
			return fmt.Errorf("failed to resolve incident %s: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("open incident %s: %w", id, domain.ErrNotFound)
		}

		inc, err = scanIncident(tx.QueryRowContext(ctx, `SELECT `+incidentColumns+` FROM fairplay_incidents WHERE id = ?`, id))
		if err != nil {
			return fmt.Errorf("failed to get incident %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inc, nil
}

// ListIncidents returns ref's most recent incidents, newest first.
func (r *FairPlayRepository) ListIncidents(ctx context.Context, ref string, limit int) ([]domain.Incident, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+incidentColumns+` FROM fairplay_incidents
WHERE ref = ?
ORDER BY created_at DESC, id ASC
LIMIT ?`, ref, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query incidents: %w", err)
	}
	defer rows.Close()

	incidents := []domain.Incident{}
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident: %w", err)
		}
		incidents = append(incidents, *inc)
	}
	return incidents, rows.Err()
}

// ActivePenalty reports the latest penalty end among ref's open incidents if
// it lies in the future.
func (r *FairPlayRepository) ActivePenalty(ctx context.Context, ref string) (time.Time, bool, error) {
	var until sql.NullTime
	err := r.db.QueryRowContext(ctx, `
SELECT penalty_until FROM fairplay_incidents
WHERE ref = ? AND status = ? AND penalty_until IS NOT NULL
ORDER BY penalty_until DESC
LIMIT 1`, ref, domain.IncidentOpen).Scan(&until)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to look up penalty for %s: %w", ref, err)
	}
	if !until.Valid || !until.Time.After(r.now()) {
		return time.Time{}, false, nil
	}
	return until.Time, true, nil
}

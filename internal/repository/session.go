package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aram-scrim/internal/database"
	"aram-scrim/internal/domain"

	"github.com/rs/zerolog"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SessionRepository stores sessions and match records. It is the persistence
// collaborator of the session manager.
type SessionRepository struct {
	db      *sql.DB
	players *PlayerRepository
	logger  zerolog.Logger
}

func NewSessionRepository(sqlDB *sql.DB, players *PlayerRepository, logger zerolog.Logger) *SessionRepository {
	return &SessionRepository{
		db:      sqlDB,
		players: players,
		logger:  logger,
	}
}

const upsertSession = `
INSERT INTO sessions (id, group_id, capacity, status, participants, teams, formed_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    status = excluded.status,
    participants = excluded.participants,
    teams = excluded.teams,
    formed_at = excluded.formed_at,
    updated_at = excluded.updated_at`

func (r *SessionRepository) SaveSession(ctx context.Context, s *domain.Session) error {
	return saveSession(ctx, r.db, s)
}

func saveSession(ctx context.Context, q dbtx, s *domain.Session) error {
	participants, err := json.Marshal(s.Participants)
	if err != nil {
		return fmt.Errorf("failed to encode participants: %w", err)
	}

	var (
		teams    sql.NullString
		formedAt sql.NullTime
	)
	if s.Teams != nil {
		raw, err := json.Marshal(s.Teams)
		if err != nil {
			return fmt.Errorf("failed to encode teams: %w", err)
		}
		teams = sql.NullString{String: string(raw), Valid: true}
		formedAt = sql.NullTime{Time: s.Teams.FormedAt, Valid: true}
	}

	_, err = q.ExecContext(ctx, upsertSession,
		s.ID, s.GroupID, s.Capacity, string(s.Status), string(participants),
		teams, formedAt, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session %s: %w", s.ID, err)
	}
	return nil
}

func (r *SessionRepository) LoadSession(ctx context.Context, id string) (*domain.Session, error) {
	var (
		s            domain.Session
		status       string
		participants string
		teams        sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
SELECT id, group_id, capacity, status, participants, teams, created_at, updated_at
FROM sessions WHERE id = ?`, id).Scan(
		&s.ID, &s.GroupID, &s.Capacity, &status, &participants, &teams, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	s.Status = domain.SessionStatus(status)
	if err := json.Unmarshal([]byte(participants), &s.Participants); err != nil {
		return nil, fmt.Errorf("failed to decode participants of %s: %w", id, err)
	}
	if teams.Valid {
		s.Teams = &domain.FormedTeams{}
		if err := json.Unmarshal([]byte(teams.String), s.Teams); err != nil {
			return nil, fmt.Errorf("failed to decode teams of %s: %w", id, err)
		}
	}
	return &s, nil
}

// LatestFormedSession returns the group's most recently formed session that
// still awaits a result.
func (r *SessionRepository) LatestFormedSession(ctx context.Context, groupID string) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `
SELECT id FROM sessions
WHERE group_id = ? AND status = ? AND teams IS NOT NULL
ORDER BY formed_at DESC
LIMIT 1`, groupID, string(domain.StatusForming)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("formed session for group %s: %w", groupID, domain.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to find formed session for group %s: %w", groupID, err)
	}
	return id, nil
}

func (r *SessionRepository) ListSessions(ctx context.Context, groupID string, status domain.SessionStatus) ([]domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, group_id, capacity, status, participants, created_at, updated_at
FROM sessions
WHERE group_id = ? AND (? = '' OR status = ?)
ORDER BY created_at DESC`, groupID, string(status), string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		var (
			s            domain.Session
			st           string
			participants string
		)
		if err := rows.Scan(&s.ID, &s.GroupID, &s.Capacity, &st, &participants, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		s.Status = domain.SessionStatus(st)
		if err := json.Unmarshal([]byte(participants), &s.Participants); err != nil {
			return nil, fmt.Errorf("failed to decode participants of %s: %w", s.ID, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SessionRepository) SaveMatchRecord(ctx context.Context, rec *domain.MatchRecord) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return saveMatchRecord(ctx, tx, rec)
	})
}

func saveMatchRecord(ctx context.Context, q dbtx, rec *domain.MatchRecord) error {
	blue, err := json.Marshal(rec.Blue)
	if err != nil {
		return fmt.Errorf("failed to encode blue side: %w", err)
	}
	red, err := json.Marshal(rec.Red)
	if err != nil {
		return fmt.Errorf("failed to encode red side: %w", err)
	}

	_, err = q.ExecContext(ctx, `
INSERT INTO match_records (id, session_id, group_id, winner, standout_ref, underperformer_ref, blue, red, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SessionID, rec.GroupID, string(rec.Winner),
		rec.StandoutRef, rec.UnderperformerRef, string(blue), string(red), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert match record %s: %w", rec.ID, err)
	}

	for _, d := range rec.Deltas {
		_, err := q.ExecContext(ctx, `
INSERT INTO match_deltas (match_id, ref, side, delta, rating_before, rating_after, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, d.Ref, string(d.Side), d.Delta, d.RatingBefore, d.RatingAfter, rec.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert delta for %s: %w", d.Ref, err)
		}
	}
	return nil
}

func (r *SessionRepository) PlayerRatings(ctx context.Context, refs []string) (map[string]int, error) {
	return r.players.Ratings(ctx, refs)
}

func (r *SessionRepository) UpdatePlayerStats(ctx context.Context, ref string, delta domain.StatsDelta) error {
	return r.players.ApplyStats(ctx, ref, delta)
}

// CommitResult stores the match record, every stat update and the completed
// session in a single transaction.
func (r *SessionRepository) CommitResult(ctx context.Context, rec *domain.MatchRecord, s *domain.Session, deltas map[string]domain.StatsDelta) error {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := saveMatchRecord(ctx, tx, rec); err != nil {
			return err
		}
		for _, d := range rec.Deltas {
			if err := applyStats(ctx, tx, d.Ref, deltas[d.Ref], rec.CreatedAt); err != nil {
				return err
			}
		}
		return saveSession(ctx, tx, s)
	})
	if err != nil {
		return fmt.Errorf("failed to commit result for %s: %w", s.ID, err)
	}
	r.logger.Debug().Str("session_id", s.ID).Str("match_id", rec.ID).Int("players", len(rec.Deltas)).Msg("result committed")
	return nil
}

func (r *SessionRepository) GetMatchRecord(ctx context.Context, sessionID string) (*domain.MatchRecord, error) {
	var (
		rec       domain.MatchRecord
		winner    string
		blue, red string
	)
	err := r.db.QueryRowContext(ctx, `
SELECT id, session_id, group_id, winner, standout_ref, underperformer_ref, blue, red, created_at
FROM match_records WHERE session_id = ?`, sessionID).Scan(
		&rec.ID, &rec.SessionID, &rec.GroupID, &winner, &rec.StandoutRef, &rec.UnderperformerRef, &blue, &red, &rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("match record for %s: %w", sessionID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load match record for %s: %w", sessionID, err)
	}
	rec.Winner = domain.Side(winner)
	if err := json.Unmarshal([]byte(blue), &rec.Blue); err != nil {
		return nil, fmt.Errorf("failed to decode blue side: %w", err)
	}
	if err := json.Unmarshal([]byte(red), &rec.Red); err != nil {
		return nil, fmt.Errorf("failed to decode red side: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT ref, side, delta, rating_before, rating_after
FROM match_deltas WHERE match_id = ? ORDER BY side, ref`, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load deltas: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			d    domain.PlayerDelta
			side string
		)
		if err := rows.Scan(&d.Ref, &side, &d.Delta, &d.RatingBefore, &d.RatingAfter); err != nil {
			return nil, fmt.Errorf("failed to scan delta: %w", err)
		}
		d.Side = domain.Side(side)
		rec.Deltas = append(rec.Deltas, d)
	}
	return &rec, rows.Err()
}

// RatingChange is one past rating movement of a player.
type RatingChange struct {
	MatchID   string
	SessionID string
	Delta     domain.PlayerDelta
	Won       bool
	At        time.Time
}

func (r *SessionRepository) RatingHistory(ctx context.Context, ref string, limit int) ([]RatingChange, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT m.id, m.session_id, m.winner, d.side, d.delta, d.rating_before, d.rating_after, d.created_at
FROM match_deltas d
JOIN match_records m ON m.id = d.match_id
WHERE d.ref = ?
ORDER BY d.created_at DESC
LIMIT ?`, ref, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load rating history for %s: %w", ref, err)
	}
	defer rows.Close()

	out := []RatingChange{}
	for rows.Next() {
		var (
			c            RatingChange
			winner, side string
		)
		if err := rows.Scan(&c.MatchID, &c.SessionID, &winner, &side, &c.Delta.Delta, &c.Delta.RatingBefore, &c.Delta.RatingAfter, &c.At); err != nil {
			return nil, fmt.Errorf("failed to scan rating change: %w", err)
		}
		c.Delta.Ref = ref
		c.Delta.Side = domain.Side(side)
		c.Won = winner == side
		out = append(out, c)
	}
	return out, rows.Err()
}

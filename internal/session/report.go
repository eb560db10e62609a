package session

import (
	"context"
	"errors"
	"fmt"

	"aram-scrim/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ReportResult records the outcome of a formed session. Winners get the win
// delta and everyone else the loss delta, with the standout bonus and the
// underperformer penalty layered on top. A session reports at most once.
func (m *Manager) ReportResult(ctx context.Context, id string, winner domain.Side, standoutRef, underperformerRef string) (*domain.MatchRecord, error) {
	if !winner.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSide, winner)
	}

	e, err := m.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer m.release(id, e)
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s.Status == domain.StatusCompleted {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyReported, id)
	}
	if s.Status != domain.StatusForming || s.Teams == nil {
		return nil, fmt.Errorf("%w: %s is %s", ErrSessionNotFormed, id, s.Status)
	}
	if err := validateDesignations(s.Teams, standoutRef, underperformerRef); err != nil {
		return nil, err
	}

	// ratings may have moved since formation; deltas apply to the stored values
	ratings, err := m.repo.PlayerRatings(ctx, s.Participants)
	if err != nil {
		m.logger.Error().Err(err).Str("session_id", id).Msg("failed to read ratings")
		return nil, fmt.Errorf("failed to read ratings: %w", err)
	}

	recID, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate match id: %w", err)
	}

	rec := &domain.MatchRecord{
		ID:                recID,
		SessionID:         s.ID,
		GroupID:           s.GroupID,
		Blue:              s.Teams.Refs(domain.SideBlue),
		Red:               s.Teams.Refs(domain.SideRed),
		Winner:            winner,
		StandoutRef:       standoutRef,
		UnderperformerRef: underperformerRef,
		CreatedAt:         m.opts.Now(),
	}
	stats := make(map[string]domain.StatsDelta, len(s.Participants))

	for _, ref := range s.Participants {
		before, ok := ratings[ref]
		if !ok {
			return nil, fmt.Errorf("failed to read ratings: player %s: %w", ref, domain.ErrNotFound)
		}
		side, _ := s.Teams.SideOf(ref)
		won := side == winner
		standout := ref == standoutRef
		under := ref == underperformerRef

		delta, after := m.engine.ApplyResult(before, won, standout, under)
		if m.opts.Floor != nil && after < *m.opts.Floor {
			after = *m.opts.Floor
			delta = after - before
		}

		rec.Deltas = append(rec.Deltas, domain.PlayerDelta{
			Ref:          ref,
			Side:         side,
			Delta:        delta,
			RatingBefore: before,
			RatingAfter:  after,
		})

		sd := domain.StatsDelta{Rating: delta, Floor: m.opts.Floor}
		if won {
			sd.Wins = 1
		} else {
			sd.Losses = 1
		}
		if standout {
			sd.Standouts = 1
		}
		if under {
			sd.Underperformers = 1
		}
		stats[ref] = sd
	}

	next := s.Clone()
	next.Status = domain.StatusCompleted
	next.UpdatedAt = m.opts.Now()

	if err := m.persistResult(ctx, rec, next, stats); err != nil {
		m.logger.Error().Err(err).Str("session_id", id).Msg("failed to persist result")
		return nil, err
	}
	e.session = next
	clear(e.profiles)

	m.logger.Info().Str("session_id", id).Str("match_id", rec.ID).Str("winner", string(winner)).Msg("result reported")
	if m.publisher != nil {
		m.publisher.PublishResult(ctx, rec)
	}
	return rec, nil
}

func validateDesignations(teams *domain.FormedTeams, standoutRef, underperformerRef string) error {
	if standoutRef != "" {
		if _, ok := teams.SideOf(standoutRef); !ok {
			return fmt.Errorf("%w: standout %s is not on either side", ErrInvalidParticipant, standoutRef)
		}
	}
	if underperformerRef != "" {
		if _, ok := teams.SideOf(underperformerRef); !ok {
			return fmt.Errorf("%w: underperformer %s is not on either side", ErrInvalidParticipant, underperformerRef)
		}
	}
	if standoutRef != "" && standoutRef == underperformerRef {
		return fmt.Errorf("%w: %s cannot be both standout and underperformer", ErrInvalidParticipant, standoutRef)
	}
	return nil
}

func (m *Manager) persistResult(ctx context.Context, rec *domain.MatchRecord, next *domain.Session, stats map[string]domain.StatsDelta) error {
	if c, ok := m.repo.(ResultCommitter); ok {
		if err := c.CommitResult(ctx, rec, next, stats); err != nil {
			return fmt.Errorf("failed to commit result: %w", err)
		}
		return nil
	}

	if err := m.repo.SaveMatchRecord(ctx, rec); err != nil {
		return fmt.Errorf("failed to save match record: %w", err)
	}
	for _, d := range rec.Deltas {
		if err := m.repo.UpdatePlayerStats(ctx, d.Ref, stats[d.Ref]); err != nil {
			return fmt.Errorf("failed to update stats for %s: %w", d.Ref, err)
		}
	}
	if err := m.repo.SaveSession(ctx, next); err != nil {
		return fmt.Errorf("failed to save session %s: %w", next.ID, err)
	}
	return nil
}

// QuickResult reports against the group's most recently formed session that
// has no result yet.
func (m *Manager) QuickResult(ctx context.Context, groupID string, winner domain.Side, standoutRef, underperformerRef string) (*domain.MatchRecord, error) {
	id, err := m.latestFormed(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return m.ReportResult(ctx, id, winner, standoutRef, underperformerRef)
}

func (m *Manager) latestFormed(ctx context.Context, groupID string) (string, error) {
	id, err := m.repo.LatestFormedSession(ctx, groupID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", fmt.Errorf("%w: group %s", ErrNoFormedSession, groupID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up formed session: %w", err)
	}
	return id, nil
}

// Package publisher delivers formed teams and match results to whoever
// presents them.
package publisher

import (
	"context"

	"aram-scrim/internal/domain"
	"aram-scrim/internal/session"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// LogPublisher writes announcements to the structured log. It is the default
// presentation when no chat integration is attached.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With().Str("component", "publisher").Logger()}
}

func memberRefs(ms []domain.TeamMember) []string {
	return lo.Map(ms, func(m domain.TeamMember, _ int) string { return m.Ref })
}

func (p *LogPublisher) PublishTeams(_ context.Context, s *domain.Session, t *domain.FormedTeams) {
	p.logger.Info().
		Str("session_id", s.ID).
		Str("group_id", s.GroupID).
		Strs("blue", memberRefs(t.Blue)).
		Strs("red", memberRefs(t.Red)).
		Float64("blue_score", t.BlueScore).
		Float64("red_score", t.RedScore).
		Float64("difference", t.Difference).
		Str("quality", t.Quality).
		Msg("teams announced")
}

func (p *LogPublisher) PublishResult(_ context.Context, rec *domain.MatchRecord) {
	ev := p.logger.Info().
		Str("session_id", rec.SessionID).
		Str("match_id", rec.ID).
		Str("winner", string(rec.Winner))
	if rec.StandoutRef != "" {
		ev = ev.Str("standout", rec.StandoutRef)
	}
	if rec.UnderperformerRef != "" {
		ev = ev.Str("underperformer", rec.UnderperformerRef)
	}

	deltas := zerolog.Dict()
	for _, d := range rec.Deltas {
		deltas = deltas.Int(d.Ref, d.Delta)
	}
	ev.Dict("deltas", deltas).Msg("result announced")
}

// Multi fans every announcement out to each publisher in order.
type Multi []session.Publisher

func (m Multi) PublishTeams(ctx context.Context, s *domain.Session, t *domain.FormedTeams) {
	for _, p := range m {
		p.PublishTeams(ctx, s, t)
	}
}

func (m Multi) PublishResult(ctx context.Context, rec *domain.MatchRecord) {
	for _, p := range m {
		p.PublishResult(ctx, rec)
	}
}

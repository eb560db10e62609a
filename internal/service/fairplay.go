package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"aram-scrim/internal/config"
	"aram-scrim/internal/constants"
	"aram-scrim/internal/domain"
	"aram-scrim/internal/repository"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

var ErrInvalidIncident = errors.New("invalid incident")

// FairPlayService keeps the fair-play ledger. Reaching the open-incident
// limit blocks a player from joining sessions until the penalty runs out or
// the incident is resolved.
type FairPlayService struct {
	repo    *repository.FairPlayRepository
	limit   int
	penalty time.Duration
	logger  zerolog.Logger
}

func NewFairPlayService(cfg *config.Config, repo *repository.FairPlayRepository, logger zerolog.Logger) *FairPlayService {
	return &FairPlayService{
		repo:    repo,
		limit:   cfg.FairPlayLimit,
		penalty: cfg.FairPlayPenalty,
		logger:  logger,
	}
}

// IncidentReport is a freshly recorded incident and the player's open count
// after it.
type IncidentReport struct {
	Incident *domain.Incident
	Open     int
}

func (s *FairPlayService) Report(ctx context.Context, ref, reason, description, reportedBy string) (*IncidentReport, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	ref, reason = strings.TrimSpace(ref), strings.TrimSpace(reason)
	if ref == "" || reason == "" {
		return nil, fmt.Errorf("%w: player and reason are required", ErrInvalidIncident)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate incident id: %w", err)
	}
	inc := &domain.Incident{
		ID:          id,
		Ref:         ref,
		Reason:      reason,
		Description: description,
		ReportedBy:  reportedBy,
	}
	open, err := s.repo.AddIncident(ctx, inc, s.limit, s.penalty)
	if err != nil {
		return nil, err
	}

	ev := s.logger.Info().Str("ref", ref).Str("incident_id", id).Str("reason", reason).Int("open", open)
	if !inc.PenaltyUntil.IsZero() {
		ev = ev.Time("penalty_until", inc.PenaltyUntil)
	}
	ev.Msg("fair play incident recorded")
	return &IncidentReport{Incident: inc, Open: open}, nil
}

func (s *FairPlayService) Resolve(ctx context.Context, id, resolvedBy string) (*domain.Incident, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	inc, err := s.repo.ResolveIncident(ctx, id, resolvedBy)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("ref", inc.Ref).Str("incident_id", id).Str("resolved_by", resolvedBy).Msg("fair play incident resolved")
	return inc, nil
}

func (s *FairPlayService) List(ctx context.Context, ref string) ([]domain.Incident, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.repo.ListIncidents(ctx, ref, constants.IncidentListLimit)
}

// Penalty reports when ref's current block ends, if one is active.
func (s *FairPlayService) Penalty(ctx context.Context, ref string) (time.Time, bool, error) {
	return s.repo.ActivePenalty(ctx, ref)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aram-scrim/internal/api"
	"aram-scrim/internal/config"
	"aram-scrim/internal/domain"
	"aram-scrim/internal/rating"
	"aram-scrim/internal/repository"

	"github.com/rs/zerolog"
)

// RankSource is the external rank lookup. *api.RankClient implements it.
type RankSource interface {
	Enabled() bool
	GetRank(ctx context.Context, puuid string) (string, error)
	GetAccount(ctx context.Context, riotID string) (*api.AccountResponse, error)
}

// MembershipService answers the session manager's eligibility and profile
// lookups from the player store. Registered players are eligible unless a
// fair-play penalty is running.
type MembershipService struct {
	repo       *repository.PlayerRepository
	fairplay   *FairPlayService
	rank       RankSource
	engine     *rating.Engine
	refreshTTL time.Duration
	logger     zerolog.Logger
}

func NewMembershipService(cfg *config.Config, repo *repository.PlayerRepository, fairplay *FairPlayService, rank RankSource, engine *rating.Engine, logger zerolog.Logger) *MembershipService {
	return &MembershipService{
		repo:       repo,
		fairplay:   fairplay,
		rank:       rank,
		engine:     engine,
		refreshTTL: cfg.RankRefreshTTL,
		logger:     logger,
	}
}

func (s *MembershipService) IsEligible(ctx context.Context, ref string) (bool, error) {
	_, err := s.repo.Get(ctx, ref)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	until, penalized, err := s.fairplay.Penalty(ctx, ref)
	if err != nil {
		return false, err
	}
	if penalized {
		s.logger.Debug().Str("ref", ref).Time("penalty_until", until).Msg("player is under a fair play penalty")
		return false, nil
	}
	return true, nil
}

// Profile returns the player's current standing. A stale rank label is
// refreshed first; when the rank service fails the stored label is used.
func (s *MembershipService) Profile(ctx context.Context, ref string) (domain.Profile, error) {
	p, err := s.repo.Get(ctx, ref)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("failed to get player: %w", err)
	}

	if label, ok := s.refreshRank(ctx, p); ok {
		p.RankTier = label
	}

	return domain.Profile{
		Ref:            p.Ref,
		Rating:         p.Rating,
		RankTier:       p.RankTier,
		RankTierWeight: s.engine.RankWeight(p.RankTier),
		Wins:           p.Wins,
		Losses:         p.Losses,
	}, nil
}

func (s *MembershipService) refreshRank(ctx context.Context, p *domain.Player) (string, bool) {
	if s.rank == nil || !s.rank.Enabled() {
		return "", false
	}

	stale, err := s.repo.ShouldRefresh(ctx, p.Ref, s.refreshTTL)
	if err != nil || !stale {
		return "", false
	}

	label, err := s.rank.GetRank(ctx, p.Ref)
	if err != nil {
		s.logger.Warn().Err(err).Str("ref", p.Ref).Str("stored", p.RankTier).Msg("rank refresh failed, using stored label")
		return "", false
	}
	if label == "" {
		label = p.RankTier
	}

	// the lookup context may already be spent; the write must still land
	if err := s.repo.SetRank(context.WithoutCancel(ctx), p.Ref, label, time.Now()); err != nil {
		s.logger.Warn().Err(err).Str("ref", p.Ref).Msg("failed to store refreshed rank")
	}
	s.logger.Debug().Str("ref", p.Ref).Str("rank", label).Msg("rank refreshed")
	return label, true
}

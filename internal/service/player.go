package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"aram-scrim/internal/constants"
	"aram-scrim/internal/domain"
	"aram-scrim/internal/rating"
	"aram-scrim/internal/repository"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidPlayer = errors.New("invalid player")
	// ErrInvalidAdjustment is returned for corrections that change nothing or
	// set and shift the rating at once.
	ErrInvalidAdjustment = errors.New("invalid adjustment")
	ErrInvalidSeason     = errors.New("invalid season")
)

type PlayerService struct {
	repo     *repository.PlayerRepository
	sessions *repository.SessionRepository
	rank     RankSource
	engine   *rating.Engine
	logger   zerolog.Logger
}

func NewPlayerService(repo *repository.PlayerRepository, sessions *repository.SessionRepository, rank RankSource, engine *rating.Engine, logger zerolog.Logger) *PlayerService {
	return &PlayerService{repo: repo, sessions: sessions, rank: rank, engine: engine, logger: logger}
}

// Register adds a player at the default rating. A "Name#TAG" reference is
// resolved through the rank service when one is configured, and the stored
// reference becomes the account id.
func (s *PlayerService) Register(ctx context.Context, ref, displayName, rankTier string) (*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrInvalidPlayer)
	}

	p := &domain.Player{
		Ref:         ref,
		DisplayName: displayName,
		Rating:      s.engine.DefaultRating(),
		RankTier:    strings.ToUpper(strings.TrimSpace(rankTier)),
	}

	if strings.Contains(ref, "#") && s.rank != nil && s.rank.Enabled() {
		acc, err := s.rank.GetAccount(ctx, ref)
		if err != nil {
			s.logger.Error().Err(err).Str("riot_id", ref).Msg("failed to resolve account")
			return nil, fmt.Errorf("failed to resolve account %s: %w", ref, err)
		}
		p.Ref = acc.Puuid
		if p.DisplayName == "" {
			p.DisplayName = acc.GameName + "#" + acc.TagLine
		}

		if label, err := s.rank.GetRank(ctx, acc.Puuid); err != nil {
			s.logger.Warn().Err(err).Str("ref", p.Ref).Msg("failed to fetch rank at registration")
		} else if label != "" {
			p.RankTier = label
			p.RankCheckedAt = time.Now()
		}
	}
	if p.DisplayName == "" {
		p.DisplayName = p.Ref
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info().Str("ref", p.Ref).Str("rank", p.RankTier).Int("rating", p.Rating).Msg("player registered")
	return p, nil
}

// PlayerView is a player with their tier and recent rating movements.
type PlayerView struct {
	Player  *domain.Player
	Tier    string
	History []repository.RatingChange
}

func (s *PlayerService) GetPlayer(ctx context.Context, ref string) (*PlayerView, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	p, err := s.repo.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	history, err := s.sessions.RatingHistory(ctx, ref, constants.RatingHistoryLimit)
	if err != nil {
		return nil, err
	}
	return &PlayerView{Player: p, Tier: s.engine.TierForRating(p.Rating), History: history}, nil
}

func (s *PlayerService) Leaderboard(ctx context.Context, limit int) ([]domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	switch {
	case limit <= 0:
		limit = constants.DefaultLeaderboardLimit
	case limit > constants.MaxLeaderboardLimit:
		limit = constants.MaxLeaderboardLimit
	}
	return s.repo.Leaderboard(ctx, limit)
}

// Adjustment is a manual correction. SetRating replaces the rating outright;
// the other fields are added to the stored values.
type Adjustment struct {
	SetRating       *int
	RatingDelta     int
	Wins            int
	Losses          int
	Standouts       int
	Underperformers int
}

func (a Adjustment) empty() bool {
	return a == Adjustment{}
}

func (s *PlayerService) Adjust(ctx context.Context, ref string, adj Adjustment) (*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if adj.empty() {
		return nil, fmt.Errorf("%w: nothing to change", ErrInvalidAdjustment)
	}
	if adj.SetRating != nil && adj.RatingDelta != 0 {
		return nil, fmt.Errorf("%w: set and delta are exclusive", ErrInvalidAdjustment)
	}

	delta := domain.StatsDelta{
		Rating:          adj.RatingDelta,
		Wins:            adj.Wins,
		Losses:          adj.Losses,
		Standouts:       adj.Standouts,
		Underperformers: adj.Underperformers,
	}
	p, err := s.repo.Adjust(ctx, ref, adj.SetRating, delta)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("ref", ref).
		Int("rating", p.Rating).
		Int("wins", p.Wins).
		Int("losses", p.Losses).
		Msg("player adjusted")
	return p, nil
}

// ResetSeason archives the current standings under name and starts a new
// season: every rating goes back to the default and every record to zero.
func (s *PlayerService) ResetSeason(ctx context.Context, name string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%w: empty name", ErrInvalidSeason)
	}
	return s.repo.ArchiveSeason(ctx, name, s.engine.DefaultRating())
}

func (s *PlayerService) Seasons(ctx context.Context) ([]domain.Season, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.repo.Seasons(ctx)
}

func (s *PlayerService) SeasonStandings(ctx context.Context, name string) ([]domain.Standing, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.repo.SeasonStandings(ctx, strings.TrimSpace(name))
}

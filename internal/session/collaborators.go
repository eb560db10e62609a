package session

import (
	"context"

	"aram-scrim/internal/domain"
)

// Membership resolves player references. Calls are bounded by the manager's
// lookup timeout.
type Membership interface {
	IsEligible(ctx context.Context, ref string) (bool, error)
	Profile(ctx context.Context, ref string) (domain.Profile, error)
}

// Repository persists sessions, match records and player stats. Each call is
// its own transaction. Lookups of unknown ids or groups return an error
// wrapping domain.ErrNotFound.
type Repository interface {
	SaveSession(ctx context.Context, s *domain.Session) error
	LoadSession(ctx context.Context, id string) (*domain.Session, error)
	// LatestFormedSession returns the group's most recently formed session
	// that still awaits a result.
	LatestFormedSession(ctx context.Context, groupID string) (string, error)
	SaveMatchRecord(ctx context.Context, rec *domain.MatchRecord) error
	UpdatePlayerStats(ctx context.Context, ref string, delta domain.StatsDelta) error
	// PlayerRatings reads the stored rating of each ref. Refs without a
	// stored player are absent from the result.
	PlayerRatings(ctx context.Context, refs []string) (map[string]int, error)
}

// ResultCommitter is implemented by repositories able to store a match
// record, every stat update and the completed session in one transaction.
type ResultCommitter interface {
	CommitResult(ctx context.Context, rec *domain.MatchRecord, s *domain.Session, deltas map[string]domain.StatsDelta) error
}

type Publisher interface {
	PublishTeams(ctx context.Context, s *domain.Session, teams *domain.FormedTeams)
	PublishResult(ctx context.Context, rec *domain.MatchRecord)
}

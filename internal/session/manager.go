// Package session runs the lifecycle of a match-formation session: players
// join until the session is full, the roster is split into two balanced
// sides, and a reported result is turned into rating updates.
//
// Every mutating operation on a session holds that session's lock, so the
// capacity check and the append of a join are atomic. Sessions never share a
// lock with each other. Only open sessions stay cached while idle; the rest
// are read back from the repository on demand.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"aram-scrim/internal/balancer"
	"aram-scrim/internal/domain"
	"aram-scrim/internal/rating"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

const (
	MinCapacity = balancer.MinPlayers
	MaxCapacity = balancer.MaxPlayers
)

type Options struct {
	LookupTimeout time.Duration
	// Floor is the lowest rating a result may leave a player at. Nil disables it.
	Floor      *int
	Thresholds balancer.Thresholds
	Now        func() time.Time
}

func DefaultOptions() Options {
	return Options{
		LookupTimeout: 5 * time.Second,
		Thresholds:    balancer.DefaultThresholds(),
		Now:           time.Now,
	}
}

type entry struct {
	mu       sync.Mutex
	session  *domain.Session
	profiles map[string]domain.Profile // join-time snapshots

	users int // guarded by Manager.mu
}

type Manager struct {
	engine     *rating.Engine
	membership Membership
	repo       Repository
	publisher  Publisher
	logger     zerolog.Logger
	opts       Options

	mu       sync.Mutex
	sessions map[string]*entry
}

func NewManager(engine *rating.Engine, membership Membership, repo Repository, publisher Publisher, logger zerolog.Logger, opts Options) *Manager {
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = DefaultOptions().LookupTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Thresholds == (balancer.Thresholds{}) {
		opts.Thresholds = balancer.DefaultThresholds()
	}
	return &Manager{
		engine:     engine,
		membership: membership,
		repo:       repo,
		publisher:  publisher,
		logger:     logger,
		opts:       opts,
		sessions:   make(map[string]*entry),
	}
}

func validCapacity(c int) bool {
	return c >= MinCapacity && c <= MaxCapacity && c%2 == 0
}

func (m *Manager) OpenSession(ctx context.Context, groupID string, capacity int) (string, error) {
	if !validCapacity(capacity) {
		return "", &InvalidCapacityError{Capacity: capacity}
	}

	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}

	now := m.opts.Now()
	s := &domain.Session{
		ID:           id,
		GroupID:      groupID,
		Capacity:     capacity,
		Participants: []string{},
		Status:       domain.StatusOpen,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.repo.SaveSession(ctx, s); err != nil {
		m.logger.Error().Err(err).Str("group_id", groupID).Msg("failed to save new session")
		return "", fmt.Errorf("failed to save session: %w", err)
	}

	m.mu.Lock()
	m.sessions[id] = &entry{session: s, profiles: make(map[string]domain.Profile)}
	m.mu.Unlock()

	m.logger.Info().Str("session_id", id).Str("group_id", groupID).Int("capacity", capacity).Msg("session opened")
	return id, nil
}

// acquire returns the cached session, loading it from the repository on a
// miss. Every acquire must be paired with a release.
func (m *Manager) acquire(ctx context.Context, id string) (*entry, error) {
	m.mu.Lock()
	if e, ok := m.sessions[id]; ok {
		e.users++
		m.mu.Unlock()
		return e, nil
	}
	m.mu.Unlock()

	s, err := m.repo.LoadSession(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		e = &entry{session: s, profiles: make(map[string]domain.Profile)}
		m.sessions[id] = e
	}
	e.users++
	return e, nil
}

// release drops a hold taken by acquire. Once nobody holds it, only an open
// session stays cached, since only open sessions carry join-time profiles.
// Everything else is reloaded from the repository on next use.
func (m *Manager) release(id string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.users--
	if e.users > 0 {
		return
	}
	e.mu.Lock()
	open := e.session.Status == domain.StatusOpen
	e.mu.Unlock()
	if !open {
		delete(m.sessions, id)
	}
}

// commit persists next and only then makes it the current state.
func (m *Manager) commit(ctx context.Context, e *entry, next *domain.Session) error {
	next.UpdatedAt = m.opts.Now()
	if err := m.repo.SaveSession(ctx, next); err != nil {
		return fmt.Errorf("failed to save session %s: %w", next.ID, err)
	}
	e.session = next
	return nil
}

func (m *Manager) Get(ctx context.Context, id string) (*domain.Session, error) {
	e, err := m.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer m.release(id, e)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone(), nil
}

func checkJoinable(s *domain.Session, ref string) error {
	if s.Status != domain.StatusOpen || s.Full() {
		return fmt.Errorf("%w: %s is %s", ErrSessionNotOpen, s.ID, s.Status)
	}
	if s.Has(ref) {
		return fmt.Errorf("%w: %s", ErrAlreadyJoined, ref)
	}
	return nil
}

// Join admits ref to the session. The join that fills the session forms the
// teams before returning; the returned snapshot then carries them.
func (m *Manager) Join(ctx context.Context, id, ref string) (*domain.Session, error) {
	e, err := m.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer m.release(id, e)

	e.mu.Lock()
	err = checkJoinable(e.session, ref)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	// the membership lookup runs outside the lock so slow lookups do not
	// stall other players; the checks are repeated once it returns
	profile, err := m.admit(ctx, ref)
	if err != nil {
		m.logger.Warn().Err(err).Str("session_id", id).Str("ref", ref).Msg("join rejected by membership lookup")
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := checkJoinable(e.session, ref); err != nil {
		return nil, err
	}

	next := e.session.Clone()
	next.Participants = append(next.Participants, ref)

	if !next.Full() {
		if err := m.commit(ctx, e, next); err != nil {
			return nil, err
		}
		e.profiles[ref] = profile
		m.logger.Info().Str("session_id", id).Str("ref", ref).Int("count", len(next.Participants)).Int("capacity", next.Capacity).Msg("player joined")
		return next.Clone(), nil
	}

	e.profiles[ref] = profile
	if err := m.form(ctx, e, next); err != nil {
		delete(e.profiles, ref)
		return nil, err
	}
	return e.session.Clone(), nil
}

// form moves a full roster to forming and balances it. A roster that cannot
// be balanced ends in failed.
func (m *Manager) form(ctx context.Context, e *entry, next *domain.Session) error {
	next.Status = domain.StatusForming

	teams, err := m.balance(ctx, next, e.profiles)
	if err != nil {
		m.logger.Error().Err(err).Str("session_id", next.ID).Msg("failed to form teams")
		if errors.Is(err, ErrLookupTimeout) || errors.Is(err, ErrLookupFailed) {
			// a collaborator failure leaves the session as it was
			return err
		}
		next.Status = domain.StatusFailed
		if cerr := m.commit(ctx, e, next); cerr != nil {
			return cerr
		}
		return err
	}

	next.Teams = teams
	if err := m.commit(ctx, e, next); err != nil {
		return err
	}

	m.logger.Info().
		Str("session_id", next.ID).
		Float64("difference", teams.Difference).
		Str("quality", teams.Quality).
		Bool("exhaustive", teams.Exhaustive).
		Msg("teams formed")
	if m.publisher != nil {
		m.publisher.PublishTeams(ctx, next.Clone(), teams.Clone())
	}
	return nil
}

func (m *Manager) balance(ctx context.Context, s *domain.Session, cached map[string]domain.Profile) (*domain.FormedTeams, error) {
	profiles, err := m.profiles(ctx, s.Participants, cached)
	if err != nil {
		return nil, err
	}

	res, err := balancer.Balance(balancer.Candidates(m.engine, profiles))
	if err != nil {
		return nil, err
	}

	byRef := lo.KeyBy(profiles, func(p domain.Profile) string { return p.Ref })
	members := func(cs []balancer.Candidate) []domain.TeamMember {
		return lo.Map(cs, func(c balancer.Candidate, _ int) domain.TeamMember {
			p := byRef[c.Ref]
			return domain.TeamMember{
				Ref:          c.Ref,
				Rating:       p.Rating,
				Tier:         m.engine.TierForRating(p.Rating),
				BalanceScore: c.Score,
			}
		})
	}

	return &domain.FormedTeams{
		SessionID:  s.ID,
		Blue:       members(res.Blue),
		Red:        members(res.Red),
		BlueScore:  res.BlueScore,
		RedScore:   res.RedScore,
		Difference: res.Difference,
		Quality:    m.opts.Thresholds.Quality(res),
		Exhaustive: res.Exhaustive,
		FormedAt:   m.opts.Now(),
	}, nil
}

func (m *Manager) Leave(ctx context.Context, id, ref string) error {
	e, err := m.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer m.release(id, e)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session.Status != domain.StatusOpen {
		return fmt.Errorf("%w: %s is %s", ErrSessionNotOpen, id, e.session.Status)
	}
	if !e.session.Has(ref) {
		return fmt.Errorf("%w: %s", ErrNotInSession, ref)
	}

	next := e.session.Clone()
	next.Participants = slices.DeleteFunc(next.Participants, func(p string) bool { return p == ref })
	if err := m.commit(ctx, e, next); err != nil {
		return err
	}
	delete(e.profiles, ref)

	m.logger.Info().Str("session_id", id).Str("ref", ref).Int("count", len(next.Participants)).Msg("player left")
	return nil
}

// Rebalance re-runs the balancer over the frozen roster with fresh profiles
// and replaces the teams. A failed session gets another formation attempt.
func (m *Manager) Rebalance(ctx context.Context, id string) (*domain.FormedTeams, error) {
	e, err := m.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer m.release(id, e)
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	formed := s.Status == domain.StatusForming && s.Teams != nil
	if !formed && s.Status != domain.StatusFailed {
		return nil, fmt.Errorf("%w: %s is %s", ErrSessionNotFormed, id, s.Status)
	}

	teams, err := m.balance(ctx, s, nil)
	if err != nil {
		m.logger.Error().Err(err).Str("session_id", id).Msg("failed to rebalance")
		return nil, err
	}

	next := s.Clone()
	next.Status = domain.StatusForming
	next.Teams = teams
	if err := m.commit(ctx, e, next); err != nil {
		return nil, err
	}

	m.logger.Info().Str("session_id", id).Float64("difference", teams.Difference).Str("quality", teams.Quality).Msg("teams rebalanced")
	if m.publisher != nil {
		m.publisher.PublishTeams(ctx, next.Clone(), teams.Clone())
	}
	return teams.Clone(), nil
}

func (m *Manager) Cancel(ctx context.Context, id string) error {
	e, err := m.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer m.release(id, e)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session.Status != domain.StatusOpen {
		return fmt.Errorf("%w: %s is %s", ErrSessionNotOpen, id, e.session.Status)
	}

	next := e.session.Clone()
	next.Status = domain.StatusCancelled
	if err := m.commit(ctx, e, next); err != nil {
		return err
	}
	clear(e.profiles)

	m.logger.Info().Str("session_id", id).Msg("session cancelled")
	return nil
}

package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"aram-scrim/internal/domain"
)

type fakeMembership struct {
	mu         sync.Mutex
	ratings    map[string]int
	ineligible map[string]bool
	slow       map[string]time.Duration
	// stubborn lookups sleep without watching ctx
	stubborn map[string]time.Duration
	failing  map[string]error
	calls    int
}

func newFakeMembership() *fakeMembership {
	return &fakeMembership{
		ratings:    make(map[string]int),
		ineligible: make(map[string]bool),
		slow:       make(map[string]time.Duration),
		stubborn:   make(map[string]time.Duration),
		failing:    make(map[string]error),
	}
}

func (f *fakeMembership) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeMembership) setRating(ref string, rating int) {
	f.mu.Lock()
	f.ratings[ref] = rating
	f.mu.Unlock()
}

func (f *fakeMembership) wait(ctx context.Context, ref string) error {
	f.mu.Lock()
	f.calls++
	d := f.slow[ref]
	stubborn := f.stubborn[ref]
	err := f.failing[ref]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	if stubborn > 0 {
		time.Sleep(stubborn)
		return nil
	}
	if d == 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeMembership) IsEligible(ctx context.Context, ref string) (bool, error) {
	if err := f.wait(ctx, ref); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.ineligible[ref], nil
}

func (f *fakeMembership) Profile(ctx context.Context, ref string) (domain.Profile, error) {
	if err := f.wait(ctx, ref); err != nil {
		return domain.Profile{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.ratings[ref]
	if !ok {
		r = 1000
	}
	return domain.Profile{Ref: ref, Rating: r, RankTierWeight: 10}, nil
}

// memRepo keeps everything in maps. It does not implement ResultCommitter so
// the manager exercises the step-by-step persistence path. Every ref counts
// as a stored player rated 1000 unless ratings says otherwise.
type memRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	records  []*domain.MatchRecord
	stats    map[string]domain.StatsDelta
	ratings  map[string]int
	failSave error
}

func newMemRepo() *memRepo {
	return &memRepo{
		sessions: make(map[string]*domain.Session),
		stats:    make(map[string]domain.StatsDelta),
		ratings:  make(map[string]int),
	}
}

func (r *memRepo) rating(ref string) int {
	if v, ok := r.ratings[ref]; ok {
		return v
	}
	return 1000
}

func (r *memRepo) PlayerRatings(_ context.Context, refs []string) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int, len(refs))
	for _, ref := range refs {
		out[ref] = r.rating(ref)
	}
	return out, nil
}

func (r *memRepo) LatestFormedSession(_ context.Context, groupID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *domain.Session
	for _, s := range r.sessions {
		if s.GroupID != groupID || s.Status != domain.StatusForming || s.Teams == nil {
			continue
		}
		if best == nil || s.Teams.FormedAt.After(best.Teams.FormedAt) {
			best = s
		}
	}
	if best == nil {
		return "", domain.ErrNotFound
	}
	return best.ID, nil
}

func (r *memRepo) SaveSession(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave != nil {
		return r.failSave
	}
	r.sessions[s.ID] = s.Clone()
	return nil
}

func (r *memRepo) LoadSession(_ context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.Clone(), nil
}

func (r *memRepo) SaveMatchRecord(_ context.Context, rec *domain.MatchRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.records {
		if existing.SessionID == rec.SessionID {
			return errors.New("duplicate match record")
		}
	}
	r.records = append(r.records, rec)
	return nil
}

func (r *memRepo) UpdatePlayerStats(_ context.Context, ref string, d domain.StatsDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := r.rating(ref) + d.Rating
	if d.Floor != nil && next < *d.Floor {
		next = *d.Floor
	}
	r.ratings[ref] = next

	cur := r.stats[ref]
	cur.Rating += d.Rating
	cur.Wins += d.Wins
	cur.Losses += d.Losses
	cur.Standouts += d.Standouts
	cur.Underperformers += d.Underperformers
	cur.Floor = d.Floor
	r.stats[ref] = cur
	return nil
}

func (r *memRepo) recordCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

type fakePublisher struct {
	mu      sync.Mutex
	teams   []*domain.FormedTeams
	results []*domain.MatchRecord
}

func (p *fakePublisher) PublishTeams(_ context.Context, _ *domain.Session, t *domain.FormedTeams) {
	p.mu.Lock()
	p.teams = append(p.teams, t)
	p.mu.Unlock()
}

func (p *fakePublisher) PublishResult(_ context.Context, rec *domain.MatchRecord) {
	p.mu.Lock()
	p.results = append(p.results, rec)
	p.mu.Unlock()
}

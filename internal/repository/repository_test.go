package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"aram-scrim/internal/database"
	"aram-scrim/internal/domain"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "scrim.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newRepos(t *testing.T) (*PlayerRepository, *SessionRepository) {
	t.Helper()
	db := openTestDB(t)
	players := NewPlayerRepository(db, zerolog.Nop())
	return players, NewSessionRepository(db, players, zerolog.Nop())
}

func seedPlayers(t *testing.T, players *PlayerRepository, ratings map[string]int) {
	t.Helper()
	for ref, r := range ratings {
		require.NoError(t, players.Create(context.Background(), &domain.Player{Ref: ref, DisplayName: ref, Rating: r}))
	}
}

var ts = time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)

func formedSession(id, group string) *domain.Session {
	return &domain.Session{
		ID:           id,
		GroupID:      group,
		Capacity:     4,
		Participants: []string{"A", "B", "C", "D"},
		Status:       domain.StatusForming,
		Teams: &domain.FormedTeams{
			SessionID:  id,
			Blue:       []domain.TeamMember{{Ref: "A", Rating: 1000, Tier: "Silver", BalanceScore: 42.84}, {Ref: "B", Rating: 1200, Tier: "Gold", BalanceScore: 48.29}},
			Red:        []domain.TeamMember{{Ref: "C", Rating: 1050, Tier: "Silver", BalanceScore: 44.2}, {Ref: "D", Rating: 1150, Tier: "Silver", BalanceScore: 46.93}},
			BlueScore:  91.13,
			RedScore:   91.13,
			Quality:    "excellent",
			Exhaustive: true,
			FormedAt:   ts,
		},
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

func TestSessionRepository_RoundTrip(t *testing.T) {
	_, sessions := newRepos(t)
	ctx := context.Background()

	s := formedSession("s1", "g")
	require.NoError(t, sessions.SaveSession(ctx, s))

	got, err := sessions.LoadSession(ctx, "s1")
	require.NoError(t, err)
	if diff := cmp.Diff(s, got, cmpopts.EquateApproxTime(time.Millisecond)); diff != "" {
		t.Errorf("session mismatch (-want +got):\n%s", diff)
	}

	s.Status = domain.StatusCancelled
	s.Teams = nil
	require.NoError(t, sessions.SaveSession(ctx, s))
	got, err = sessions.LoadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
	assert.Nil(t, got.Teams)

	_, err = sessions.LoadSession(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionRepository_LatestFormedSession(t *testing.T) {
	_, sessions := newRepos(t)
	ctx := context.Background()

	older := formedSession("old", "g")
	newer := formedSession("new", "g")
	newer.Teams.FormedAt = ts.Add(time.Minute)
	other := formedSession("other", "h")
	other.Teams.FormedAt = ts.Add(time.Hour)

	for _, s := range []*domain.Session{older, newer, other} {
		require.NoError(t, sessions.SaveSession(ctx, s))
	}

	id, err := sessions.LatestFormedSession(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, "new", id)

	newer.Status = domain.StatusCompleted
	require.NoError(t, sessions.SaveSession(ctx, newer))
	id, err = sessions.LatestFormedSession(ctx, "g")
	require.NoError(t, err)
	assert.Equal(t, "old", id)

	_, err = sessions.LatestFormedSession(ctx, "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := sessions.ListSessions(ctx, "g", domain.StatusForming)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "old", list[0].ID)
}

func testRecord(sessionID string) (*domain.MatchRecord, map[string]domain.StatsDelta) {
	rec := &domain.MatchRecord{
		ID:          "m-" + sessionID,
		SessionID:   sessionID,
		GroupID:     "g",
		Blue:        []string{"A", "B"},
		Red:         []string{"C", "D"},
		Winner:      domain.SideBlue,
		StandoutRef: "A",
		Deltas: []domain.PlayerDelta{
			{Ref: "A", Side: domain.SideBlue, Delta: 30, RatingBefore: 1000, RatingAfter: 1030},
			{Ref: "B", Side: domain.SideBlue, Delta: 25, RatingBefore: 1200, RatingAfter: 1225},
			{Ref: "C", Side: domain.SideRed, Delta: -20, RatingBefore: 1050, RatingAfter: 1030},
			{Ref: "D", Side: domain.SideRed, Delta: -20, RatingBefore: 1150, RatingAfter: 1130},
		},
		CreatedAt: ts,
	}
	stats := map[string]domain.StatsDelta{
		"A": {Rating: 30, Wins: 1, Standouts: 1},
		"B": {Rating: 25, Wins: 1},
		"C": {Rating: -20, Losses: 1},
		"D": {Rating: -20, Losses: 1},
	}
	return rec, stats
}

func TestSessionRepository_CommitResult(t *testing.T) {
	players, sessions := newRepos(t)
	ctx := context.Background()
	seedPlayers(t, players, map[string]int{"A": 1000, "B": 1200, "C": 1050, "D": 1150})

	s := formedSession("s1", "g")
	require.NoError(t, sessions.SaveSession(ctx, s))

	rec, stats := testRecord("s1")
	done := s.Clone()
	done.Status = domain.StatusCompleted
	require.NoError(t, sessions.CommitResult(ctx, rec, done, stats))

	a, err := players.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 1030, a.Rating)
	assert.Equal(t, 1, a.Wins)
	assert.Equal(t, 1, a.StandoutCount)

	c, err := players.Get(ctx, "C")
	require.NoError(t, err)
	assert.Equal(t, 1030, c.Rating)
	assert.Equal(t, 1, c.Losses)

	stored, err := sessions.LoadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, stored.Status)

	got, err := sessions.GetMatchRecord(ctx, "s1")
	require.NoError(t, err)
	if diff := cmp.Diff(rec, got,
		cmpopts.EquateApproxTime(time.Millisecond),
		cmpopts.SortSlices(func(a, b domain.PlayerDelta) bool { return a.Ref < b.Ref }),
	); diff != "" {
		t.Errorf("match record mismatch (-want +got):\n%s", diff)
	}

	// a second record for the same session violates the unique index
	again, _ := testRecord("s1")
	again.ID = "m-other"
	err = sessions.CommitResult(ctx, again, done, stats)
	require.Error(t, err)

	a, err = players.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 1030, a.Rating, "failed commit must not touch ratings")

	history, err := sessions.RatingHistory(ctx, "A", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].Won)
	assert.Equal(t, 30, history[0].Delta.Delta)
}

func TestSessionRepository_CommitResultUnknownPlayerRollsBack(t *testing.T) {
	players, sessions := newRepos(t)
	ctx := context.Background()
	seedPlayers(t, players, map[string]int{"A": 1000, "B": 1200, "C": 1050})

	s := formedSession("s1", "g")
	require.NoError(t, sessions.SaveSession(ctx, s))

	rec, stats := testRecord("s1")
	done := s.Clone()
	done.Status = domain.StatusCompleted
	err := sessions.CommitResult(ctx, rec, done, stats)
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = sessions.GetMatchRecord(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	stored, err := sessions.LoadSession(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusForming, stored.Status)
}

func TestPlayerRepository_CreateAndGet(t *testing.T) {
	players, _ := newRepos(t)
	ctx := context.Background()

	p := &domain.Player{Ref: "A", DisplayName: "Alpha", Rating: 1000, RankTier: "GOLD II"}
	require.NoError(t, players.Create(ctx, p))
	assert.ErrorIs(t, players.Create(ctx, &domain.Player{Ref: "A", Rating: 1}), domain.ErrAlreadyExists)

	got, err := players.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", got.DisplayName)
	assert.Equal(t, "GOLD II", got.RankTier)
	assert.True(t, got.RankCheckedAt.IsZero())

	_, err = players.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPlayerRepository_ApplyStats(t *testing.T) {
	players, _ := newRepos(t)
	ctx := context.Background()
	seedPlayers(t, players, map[string]int{"A": 10})

	floor := 0
	require.NoError(t, players.ApplyStats(ctx, "A", domain.StatsDelta{Rating: -25, Losses: 1, Floor: &floor}))
	a, err := players.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 0, a.Rating)
	assert.Equal(t, 1, a.Losses)

	require.NoError(t, players.ApplyStats(ctx, "A", domain.StatsDelta{Rating: -25, Losses: -5}))
	a, err = players.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, -25, a.Rating)
	assert.Equal(t, 0, a.Losses)

	assert.ErrorIs(t, players.ApplyStats(ctx, "missing", domain.StatsDelta{Rating: 1}), domain.ErrNotFound)
}

func TestPlayerRepository_Refresh(t *testing.T) {
	players, _ := newRepos(t)
	ctx := context.Background()
	seedPlayers(t, players, map[string]int{"A": 1000})

	now := ts
	players.now = func() time.Time { return now }

	refresh, err := players.ShouldRefresh(ctx, "A", time.Hour)
	require.NoError(t, err)
	assert.True(t, refresh, "never checked")

	require.NoError(t, players.SetRank(ctx, "A", "DIAMOND I", now))
	refresh, err = players.ShouldRefresh(ctx, "A", time.Hour)
	require.NoError(t, err)
	assert.False(t, refresh)

	now = now.Add(2 * time.Hour)
	refresh, err = players.ShouldRefresh(ctx, "A", time.Hour)
	require.NoError(t, err)
	assert.True(t, refresh)

	_, err = players.ShouldRefresh(ctx, "missing", time.Hour)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPlayerRepository_Leaderboard(t *testing.T) {
	players, _ := newRepos(t)
	ctx := context.Background()
	seedPlayers(t, players, map[string]int{"A": 900, "B": 1300, "C": 1100, "D": 1300})
	require.NoError(t, players.ApplyStats(ctx, "D", domain.StatsDelta{Wins: 3}))

	top, err := players.Leaderboard(ctx, 3)
	require.NoError(t, err)
	refs := make([]string, len(top))
	for i, p := range top {
		refs[i] = p.Ref
	}
	assert.Equal(t, []string{"D", "B", "C"}, refs)
}

func TestPlayerRepository_Adjust(t *testing.T) {
	players, _ := newRepos(t)
	ctx := context.Background()
	seedPlayers(t, players, map[string]int{"A": 1000})

	// refuses any update that would push wins past 100
	_, err := players.db.ExecContext(ctx, `
CREATE TRIGGER cap_wins BEFORE UPDATE OF wins ON players
WHEN NEW.wins > 100
BEGIN SELECT RAISE(ABORT, 'too many wins'); END;`)
	require.NoError(t, err)

	set := func(v int) *int { return &v }
	tests := []struct {
		name       string
		set        *int
		delta      domain.StatsDelta
		wantErr    bool
		wantRating int
		wantWins   int
	}{
		{"set only", set(1400), domain.StatsDelta{}, false, 1400, 0},
		{"set and wins", set(1200), domain.StatsDelta{Wins: 2}, false, 1200, 2},
		{"delta only", nil, domain.StatsDelta{Rating: -50, Losses: 1}, false, 1150, 2},
		{"failed stats roll back the set", set(5000), domain.StatsDelta{Wins: 500}, true, 1150, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := players.Adjust(ctx, "A", tt.set, tt.delta)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantRating, p.Rating)
			}

			stored, err := players.Get(ctx, "A")
			require.NoError(t, err)
			assert.Equal(t, tt.wantRating, stored.Rating)
			assert.Equal(t, tt.wantWins, stored.Wins)
		})
	}

	_, err = players.Adjust(ctx, "missing", set(1), domain.StatsDelta{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPlayerRepository_ArchiveSeason(t *testing.T) {
	players, _ := newRepos(t)
	ctx := context.Background()
	seedPlayers(t, players, map[string]int{"A": 900, "B": 1300, "C": 1100, "D": 1300})
	require.NoError(t, players.ApplyStats(ctx, "D", domain.StatsDelta{Wins: 3, Losses: 1, Standouts: 2}))
	require.NoError(t, players.ApplyStats(ctx, "A", domain.StatsDelta{Losses: 4, Underperformers: 1}))

	n, err := players.ArchiveSeason(ctx, "S1", 1000)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)

	standings, err := players.SeasonStandings(ctx, "S1")
	require.NoError(t, err)
	want := []domain.Standing{
		{Position: 1, Ref: "D", DisplayName: "D", Rating: 1300, Wins: 3, Losses: 1, StandoutCount: 2},
		{Position: 2, Ref: "B", DisplayName: "B", Rating: 1300},
		{Position: 3, Ref: "C", DisplayName: "C", Rating: 1100},
		{Position: 4, Ref: "A", DisplayName: "A", Rating: 900, Losses: 4, UnderperformerCount: 1},
	}
	if diff := cmp.Diff(want, standings); diff != "" {
		t.Errorf("standings mismatch (-want +got):\n%s", diff)
	}

	for _, ref := range []string{"A", "D"} {
		p, err := players.Get(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, 1000, p.Rating)
		assert.Zero(t, p.Wins+p.Losses+p.StandoutCount+p.UnderperformerCount, ref)
	}

	seasons, err := players.Seasons(ctx)
	require.NoError(t, err)
	require.Len(t, seasons, 1)
	assert.Equal(t, "S1", seasons[0].Name)
	assert.Equal(t, 4, seasons[0].Players)

	_, err = players.ArchiveSeason(ctx, "S1", 1000)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	_, err = players.SeasonStandings(ctx, "S9")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPlayerRepository_ArchiveSeasonWithoutPlayers(t *testing.T) {
	players, _ := newRepos(t)
	ctx := context.Background()

	_, err := players.ArchiveSeason(ctx, "S1", 1000)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	seasons, err := players.Seasons(ctx)
	require.NoError(t, err)
	assert.Empty(t, seasons, "the season row rolls back with the empty snapshot")
}

func TestFairPlayRepository_PenaltyAfterLimit(t *testing.T) {
	db := openTestDB(t)
	players := NewPlayerRepository(db, zerolog.Nop())
	fairplay := NewFairPlayRepository(db, zerolog.Nop())
	ctx := context.Background()
	seedPlayers(t, players, map[string]int{"A": 1000})

	now := ts
	fairplay.now = func() time.Time { return now }

	add := func(id string) (*domain.Incident, int) {
		t.Helper()
		inc := &domain.Incident{ID: id, Ref: "A", Reason: "afk"}
		open, err := fairplay.AddIncident(ctx, inc, 2, 30*time.Minute)
		require.NoError(t, err)
		return inc, open
	}

	first, open := add("i1")
	assert.Equal(t, 1, open)
	assert.True(t, first.PenaltyUntil.IsZero())
	_, penalized, err := fairplay.ActivePenalty(ctx, "A")
	require.NoError(t, err)
	assert.False(t, penalized)

	now = now.Add(time.Minute)
	second, open := add("i2")
	assert.Equal(t, 2, open)
	assert.Equal(t, now.Add(30*time.Minute), second.PenaltyUntil)

	until, penalized, err := fairplay.ActivePenalty(ctx, "A")
	require.NoError(t, err)
	assert.True(t, penalized)
	assert.WithinDuration(t, second.PenaltyUntil, until, time.Millisecond)

	// resolving the penalized incident lifts the block
	resolved, err := fairplay.ResolveIncident(ctx, "i2", "mod")
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentResolved, resolved.Status)
	assert.Equal(t, "mod", resolved.ResolvedBy)
	_, penalized, err = fairplay.ActivePenalty(ctx, "A")
	require.NoError(t, err)
	assert.False(t, penalized)

	_, err = fairplay.ResolveIncident(ctx, "i2", "mod")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = fairplay.ResolveIncident(ctx, "nope", "mod")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := fairplay.ListIncidents(ctx, "A", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "i2", list[0].ID)
	assert.Equal(t, domain.IncidentOpen, list[1].Status)
}

func TestFairPlayRepository_PenaltyExpires(t *testing.T) {
	db := openTestDB(t)
	players := NewPlayerRepository(db, zerolog.Nop())
	fairplay := NewFairPlayRepository(db, zerolog.Nop())
	ctx := context.Background()
	seedPlayers(t, players, map[string]int{"A": 1000})

	now := ts
	fairplay.now = func() time.Time { return now }

	_, err := fairplay.AddIncident(ctx, &domain.Incident{ID: "i1", Ref: "A", Reason: "toxic"}, 1, 10*time.Minute)
	require.NoError(t, err)
	_, penalized, err := fairplay.ActivePenalty(ctx, "A")
	require.NoError(t, err)
	assert.True(t, penalized)

	now = now.Add(11 * time.Minute)
	_, penalized, err = fairplay.ActivePenalty(ctx, "A")
	require.NoError(t, err)
	assert.False(t, penalized)

	_, err = fairplay.AddIncident(ctx, &domain.Incident{ID: "i2", Ref: "ghost", Reason: "toxic"}, 1, time.Minute)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

package rpc

import (
	"time"

	"aram-scrim/internal/domain"
)

type Empty struct{}

type OpenSessionRequest struct {
	GroupID  string `json:"group_id"`
	Capacity int    `json:"capacity"`
}

type OpenSessionResponse struct {
	SessionID string `json:"session_id"`
}

type SessionRef struct {
	SessionID string `json:"session_id"`
}

type MembershipRequest struct {
	SessionID string `json:"session_id"`
	Ref       string `json:"ref"`
}

type ReportResultRequest struct {
	SessionID         string `json:"session_id"`
	Winner            string `json:"winner"`
	StandoutRef       string `json:"standout_ref,omitempty"`
	UnderperformerRef string `json:"underperformer_ref,omitempty"`
}

type QuickResultRequest struct {
	GroupID           string `json:"group_id"`
	Winner            string `json:"winner"`
	StandoutRef       string `json:"standout_ref,omitempty"`
	UnderperformerRef string `json:"underperformer_ref,omitempty"`
}

type Session struct {
	ID           string              `json:"id"`
	GroupID      string              `json:"group_id"`
	Capacity     int                 `json:"capacity"`
	Participants []string            `json:"participants"`
	Status       string              `json:"status"`
	Teams        *domain.FormedTeams `json:"teams,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func SessionFromDomain(s *domain.Session) *Session {
	return &Session{
		ID:           s.ID,
		GroupID:      s.GroupID,
		Capacity:     s.Capacity,
		Participants: s.Participants,
		Status:       string(s.Status),
		Teams:        s.Teams,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

type TeamsResponse struct {
	Teams *domain.FormedTeams `json:"teams"`
}

type MatchRecord struct {
	ID                string               `json:"id"`
	SessionID         string               `json:"session_id"`
	GroupID           string               `json:"group_id"`
	Winner            string               `json:"winner"`
	StandoutRef       string               `json:"standout_ref,omitempty"`
	UnderperformerRef string               `json:"underperformer_ref,omitempty"`
	Blue              []string             `json:"blue"`
	Red               []string             `json:"red"`
	Deltas            []domain.PlayerDelta `json:"deltas"`
	CreatedAt         time.Time            `json:"created_at"`
}

func MatchRecordFromDomain(rec *domain.MatchRecord) *MatchRecord {
	return &MatchRecord{
		ID:                rec.ID,
		SessionID:         rec.SessionID,
		GroupID:           rec.GroupID,
		Winner:            string(rec.Winner),
		StandoutRef:       rec.StandoutRef,
		UnderperformerRef: rec.UnderperformerRef,
		Blue:              rec.Blue,
		Red:               rec.Red,
		Deltas:            rec.Deltas,
		CreatedAt:         rec.CreatedAt,
	}
}

type RegisterPlayerRequest struct {
	Ref         string `json:"ref"`
	DisplayName string `json:"display_name,omitempty"`
	RankTier    string `json:"rank_tier,omitempty"`
}

type PlayerRef struct {
	Ref string `json:"ref"`
}

type Player struct {
	Ref             string  `json:"ref"`
	DisplayName     string  `json:"display_name"`
	Rating          int     `json:"rating"`
	Tier            string  `json:"tier,omitempty"`
	RankTier        string  `json:"rank_tier,omitempty"`
	Wins            int     `json:"wins"`
	Losses          int     `json:"losses"`
	Standouts       int     `json:"standouts"`
	Underperformers int     `json:"underperformers"`
	WinRate         float64 `json:"win_rate"`
}

func PlayerFromDomain(p *domain.Player, tier string) *Player {
	var winRate float64
	if games := p.Wins + p.Losses; games > 0 {
		winRate = float64(p.Wins) / float64(games) * 100
	}
	return &Player{
		Ref:             p.Ref,
		DisplayName:     p.DisplayName,
		Rating:          p.Rating,
		Tier:            tier,
		RankTier:        p.RankTier,
		Wins:            p.Wins,
		Losses:          p.Losses,
		Standouts:       p.StandoutCount,
		Underperformers: p.UnderperformerCount,
		WinRate:         winRate,
	}
}

type RatingChange struct {
	MatchID     string    `json:"match_id"`
	SessionID   string    `json:"session_id"`
	Side        string    `json:"side"`
	Won         bool      `json:"won"`
	Delta       int       `json:"delta"`
	RatingAfter int       `json:"rating_after"`
	At          time.Time `json:"at"`
}

type PlayerResponse struct {
	Player  *Player        `json:"player"`
	History []RatingChange `json:"history,omitempty"`
}

type LeaderboardRequest struct {
	Limit int `json:"limit,omitempty"`
}

type LeaderboardResponse struct {
	Players []*Player `json:"players"`
}

type AdjustPlayerRequest struct {
	Ref             string `json:"ref"`
	SetRating       *int   `json:"set_rating,omitempty"`
	RatingDelta     int    `json:"rating_delta,omitempty"`
	Wins            int    `json:"wins,omitempty"`
	Losses          int    `json:"losses,omitempty"`
	Standouts       int    `json:"standouts,omitempty"`
	Underperformers int    `json:"underperformers,omitempty"`
}

type ResetSeasonRequest struct {
	Name string `json:"name"`
}

type ResetSeasonResponse struct {
	Players int64 `json:"players"`
	Rating  int   `json:"rating"`
}

type SeasonRef struct {
	Name string `json:"name"`
}

type Season struct {
	Name       string    `json:"name"`
	Players    int       `json:"players"`
	ArchivedAt time.Time `json:"archived_at"`
}

type SeasonsResponse struct {
	Seasons []Season `json:"seasons"`
}

type Standing struct {
	Position        int    `json:"position"`
	Ref             string `json:"ref"`
	DisplayName     string `json:"display_name"`
	Rating          int    `json:"rating"`
	Wins            int    `json:"wins"`
	Losses          int    `json:"losses"`
	Standouts       int    `json:"standouts"`
	Underperformers int    `json:"underperformers"`
}

type SeasonStandingsResponse struct {
	Season    string     `json:"season"`
	Standings []Standing `json:"standings"`
}

type ReportIncidentRequest struct {
	Ref         string `json:"ref"`
	Reason      string `json:"reason"`
	Description string `json:"description,omitempty"`
	ReportedBy  string `json:"reported_by,omitempty"`
}

type ResolveIncidentRequest struct {
	ID         string `json:"id"`
	ResolvedBy string `json:"resolved_by,omitempty"`
}

type Incident struct {
	ID           string     `json:"id"`
	Ref          string     `json:"ref"`
	Reason       string     `json:"reason"`
	Description  string     `json:"description,omitempty"`
	Status       string     `json:"status"`
	ReportedBy   string     `json:"reported_by,omitempty"`
	ResolvedBy   string     `json:"resolved_by,omitempty"`
	PenaltyUntil *time.Time `json:"penalty_until,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	ResolvedAt   *time.Time `json:"resolved_at,omitempty"`
}

type IncidentReportResponse struct {
	Incident *Incident `json:"incident"`
	Open     int       `json:"open"`
}

type IncidentsResponse struct {
	Incidents []*Incident `json:"incidents"`
	// PenaltyUntil is set while the player is blocked from joining.
	PenaltyUntil *time.Time `json:"penalty_until,omitempty"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func IncidentFromDomain(inc *domain.Incident) *Incident {
	return &Incident{
		ID:           inc.ID,
		Ref:          inc.Ref,
		Reason:       inc.Reason,
		Description:  inc.Description,
		Status:       string(inc.Status),
		ReportedBy:   inc.ReportedBy,
		ResolvedBy:   inc.ResolvedBy,
		PenaltyUntil: optionalTime(inc.PenaltyUntil),
		CreatedAt:    inc.CreatedAt,
		ResolvedAt:   optionalTime(inc.ResolvedAt),
	}
}

func StandingFromDomain(s domain.Standing) Standing {
	return Standing{
		Position:        s.Position,
		Ref:             s.Ref,
		DisplayName:     s.DisplayName,
		Rating:          s.Rating,
		Wins:            s.Wins,
		Losses:          s.Losses,
		Standouts:       s.StandoutCount,
		Underperformers: s.UnderperformerCount,
	}
}

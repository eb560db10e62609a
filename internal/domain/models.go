package domain

import (
	"slices"
	"time"
)

type Player struct {
	Ref                 string
	DisplayName         string
	Rating              int
	RankTier            string // external label, balancing input only
	Wins                int
	Losses              int
	StandoutCount       int
	UnderperformerCount int
	RankCheckedAt       time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Profile is what the membership collaborator reports for one player at the
// moment of a join or rebalance.
type Profile struct {
	Ref            string
	Rating         int
	RankTier       string
	RankTierWeight int
	Wins           int
	Losses         int
}

type SessionStatus string

const (
	StatusOpen      SessionStatus = "open"
	StatusForming   SessionStatus = "forming"
	StatusCompleted SessionStatus = "completed"
	StatusCancelled SessionStatus = "cancelled"
	StatusFailed    SessionStatus = "failed"
)

type Side string

const (
	SideBlue Side = "blue"
	SideRed  Side = "red"
)

func (s Side) Valid() bool {
	return s == SideBlue || s == SideRed
}

func (s Side) Opponent() Side {
	if s == SideBlue {
		return SideRed
	}
	return SideBlue
}

type Session struct {
	ID           string
	GroupID      string
	Capacity     int
	Participants []string // join order
	Status       SessionStatus
	Teams        *FormedTeams
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (s *Session) Has(ref string) bool {
	return slices.Contains(s.Participants, ref)
}

func (s *Session) Full() bool {
	return len(s.Participants) >= s.Capacity
}

// Clone returns a deep copy safe to hand to callers outside the session lock.
func (s *Session) Clone() *Session {
	c := *s
	c.Participants = slices.Clone(s.Participants)
	if s.Teams != nil {
		c.Teams = s.Teams.Clone()
	}
	return &c
}

type TeamMember struct {
	Ref          string  `json:"ref"`
	Rating       int     `json:"rating"`
	Tier         string  `json:"tier"`
	BalanceScore float64 `json:"balance_score"`
}

type FormedTeams struct {
	SessionID  string       `json:"session_id"`
	Blue       []TeamMember `json:"blue"`
	Red        []TeamMember `json:"red"`
	BlueScore  float64      `json:"blue_score"`
	RedScore   float64      `json:"red_score"`
	Difference float64      `json:"difference"`
	Quality    string       `json:"quality"`
	Exhaustive bool         `json:"exhaustive"`
	FormedAt   time.Time    `json:"formed_at"`
}

func (t *FormedTeams) Clone() *FormedTeams {
	c := *t
	c.Blue = slices.Clone(t.Blue)
	c.Red = slices.Clone(t.Red)
	return &c
}

// SideOf reports which side ref plays on.
func (t *FormedTeams) SideOf(ref string) (Side, bool) {
	for _, m := range t.Blue {
		if m.Ref == ref {
			return SideBlue, true
		}
	}
	for _, m := range t.Red {
		if m.Ref == ref {
			return SideRed, true
		}
	}
	return "", false
}

func (t *FormedTeams) Refs(side Side) []string {
	members := t.Blue
	if side == SideRed {
		members = t.Red
	}
	refs := make([]string, len(members))
	for i, m := range members {
		refs[i] = m.Ref
	}
	return refs
}

type PlayerDelta struct {
	Ref          string `json:"ref"`
	Side         Side   `json:"side"`
	Delta        int    `json:"delta"`
	RatingBefore int    `json:"rating_before"`
	RatingAfter  int    `json:"rating_after"`
}

type MatchRecord struct {
	ID                string
	SessionID         string
	GroupID           string
	Blue              []string
	Red               []string
	Winner            Side
	StandoutRef       string
	UnderperformerRef string
	Deltas            []PlayerDelta
	CreatedAt         time.Time
}

// StatsDelta is applied to a stored player after a reported result or a
// manual correction.
type StatsDelta struct {
	Rating          int
	Wins            int
	Losses          int
	Standouts       int
	Underperformers int
	Floor           *int // minimum resulting rating, nil for none
}

// Standing is one player's line in an archived season.
type Standing struct {
	Position            int
	Ref                 string
	DisplayName         string
	Rating              int
	Wins                int
	Losses              int
	StandoutCount       int
	UnderperformerCount int
}

type Season struct {
	Name       string
	Players    int
	ArchivedAt time.Time
}

type IncidentStatus string

const (
	IncidentOpen     IncidentStatus = "open"
	IncidentResolved IncidentStatus = "resolved"
)

// Incident is a recorded fair-play report against a player. PenaltyUntil is
// set on the incident that pushed the player over the open-incident limit.
type Incident struct {
	ID           string
	Ref          string
	Reason       string
	Description  string
	Status       IncidentStatus
	ReportedBy   string
	ResolvedBy   string
	PenaltyUntil time.Time
	CreatedAt    time.Time
	ResolvedAt   time.Time
}

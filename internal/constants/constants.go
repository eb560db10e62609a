package constants

import "time"

const (
	RankRefreshTTL  = 24 * time.Hour
	LookupTimeout   = 5 * time.Second
	RankAPITimeout  = 10 * time.Second
	DatabaseTimeout = 5 * time.Second
	RequestTimeout  = 30 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBusyTimeoutMs   = 5000
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultRankAPIRPM       = 90
	DefaultLeaderboardLimit = 20
	MaxLeaderboardLimit     = 100
	RatingHistoryLimit      = 10
)

const (
	DefaultFairPlayLimit   = 3
	DefaultFairPlayPenalty = 30 * time.Minute
	IncidentListLimit      = 10
)

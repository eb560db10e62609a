package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"aram-scrim/internal/balancer"
	"aram-scrim/internal/constants"
	"aram-scrim/internal/rating"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DBPath         string
	ServerPort     string
	LogLevel       string
	LookupTimeout  time.Duration
	RankAPIURL     string
	RankAPIKey     string
	RankAPIRPM     int
	RankRefreshTTL time.Duration
	// RatingFloor is the lowest rating a reported result can leave a player at.
	RatingFloor *int
	Rating      rating.Config
	Thresholds  balancer.Thresholds
	// FairPlayLimit open incidents put a player under a FairPlayPenalty block.
	FairPlayLimit   int
	FairPlayPenalty time.Duration
}

// ratingFile is the layout of RATING_CONFIG_PATH. Missing sections keep their
// defaults.
type ratingFile struct {
	Rating     *rating.Config       `yaml:"rating"`
	Thresholds *balancer.Thresholds `yaml:"thresholds"`
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:     getEnv("DB_PATH", "scrim.db"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		RankAPIURL: getEnv("RANK_API_URL", ""),
		RankAPIKey: getEnv("RANK_API_KEY", ""),
		Rating:     rating.DefaultConfig(),
		Thresholds: balancer.DefaultThresholds(),
	}

	var err error
	if cfg.LookupTimeout, err = getDuration("LOOKUP_TIMEOUT", constants.LookupTimeout); err != nil {
		return nil, err
	}
	if cfg.RankRefreshTTL, err = getDuration("RANK_REFRESH_TTL", constants.RankRefreshTTL); err != nil {
		return nil, err
	}
	if cfg.RankAPIRPM, err = getInt("RANK_API_RPM", constants.DefaultRankAPIRPM); err != nil {
		return nil, err
	}
	if cfg.RankAPIRPM <= 0 {
		return nil, fmt.Errorf("RANK_API_RPM must be positive, got %d", cfg.RankAPIRPM)
	}

	if cfg.FairPlayLimit, err = getInt("FAIRPLAY_LIMIT", constants.DefaultFairPlayLimit); err != nil {
		return nil, err
	}
	if cfg.FairPlayLimit <= 0 {
		return nil, fmt.Errorf("FAIRPLAY_LIMIT must be positive, got %d", cfg.FairPlayLimit)
	}
	if cfg.FairPlayPenalty, err = getDuration("FAIRPLAY_PENALTY", constants.DefaultFairPlayPenalty); err != nil {
		return nil, err
	}
	if cfg.FairPlayPenalty <= 0 {
		return nil, fmt.Errorf("FAIRPLAY_PENALTY must be positive, got %s", cfg.FairPlayPenalty)
	}

	if v := os.Getenv("RATING_FLOOR"); v != "" {
		floor, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid RATING_FLOOR %q: %w", v, err)
		}
		cfg.RatingFloor = &floor
	}

	if path := os.Getenv("RATING_CONFIG_PATH"); path != "" {
		if err := cfg.loadRatingFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.Rating.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rating config: %w", err)
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid quality thresholds: %w", err)
	}

	ev := logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Dur("lookup_timeout", cfg.LookupTimeout).
		Bool("rank_refresh", cfg.RankAPIURL != "").
		Dur("rank_refresh_ttl", cfg.RankRefreshTTL).
		Int("fairplay_limit", cfg.FairPlayLimit).
		Dur("fairplay_penalty", cfg.FairPlayPenalty)
	if cfg.RatingFloor != nil {
		ev = ev.Int("rating_floor", *cfg.RatingFloor)
	}
	ev.Msg("configuration loaded")

	return cfg, nil
}

func (c *Config) loadRatingFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read rating config: %w", err)
	}

	f := ratingFile{Rating: &c.Rating, Thresholds: &c.Thresholds}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse rating config %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

var Module = fx.Provide(Load)

package fx

import (
	"aram-scrim/internal/api"
	"aram-scrim/internal/config"
	"aram-scrim/internal/database"
	"aram-scrim/internal/logger"
	"aram-scrim/internal/metrics"
	"aram-scrim/internal/publisher"
	"aram-scrim/internal/rating"
	"aram-scrim/internal/repository"
	"aram-scrim/internal/server"
	"aram-scrim/internal/service"
	"aram-scrim/internal/session"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideEngine(cfg *config.Config) (*rating.Engine, error) {
	return rating.NewEngine(cfg.Rating)
}

func ProvideRankSource(c *api.RankClient) service.RankSource {
	return c
}

func ProvidePublisher(log zerolog.Logger, collector *metrics.Collector) session.Publisher {
	return publisher.Multi{publisher.NewLogPublisher(log), collector}
}

func ProvideManager(
	cfg *config.Config,
	engine *rating.Engine,
	membership *service.MembershipService,
	repo *repository.SessionRepository,
	pub session.Publisher,
	log zerolog.Logger,
) *session.Manager {
	opts := session.DefaultOptions()
	opts.LookupTimeout = cfg.LookupTimeout
	opts.Floor = cfg.RatingFloor
	opts.Thresholds = cfg.Thresholds
	return session.NewManager(engine, membership, repo, pub, log.With().Str("component", "session").Logger(), opts)
}

func applyLogLevel(log zerolog.Logger, cfg *config.Config) {
	logger.ApplyLevel(log, cfg.LogLevel)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Invoke(applyLogLevel),
	fx.Provide(database.New),
	fx.Provide(ProvideEngine),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewSessionRepository),
	fx.Provide(repository.NewFairPlayRepository),
	// rank api client
	fx.Provide(api.NewRankClient),
	fx.Provide(ProvideRankSource),
	// svc
	fx.Provide(service.NewFairPlayService),
	fx.Provide(service.NewMembershipService),
	fx.Provide(service.NewPlayerService),
	fx.Provide(metrics.New),
	fx.Provide(ProvidePublisher),
	fx.Provide(ProvideManager),
	// server
	fx.Provide(server.NewScrimServer),
)

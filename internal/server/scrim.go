package server

import (
	"context"
	"net/http"

	"aram-scrim/internal/domain"
	"aram-scrim/internal/rating"
	"aram-scrim/internal/rpc"
	"aram-scrim/internal/service"
	"aram-scrim/internal/session"

	"connectrpc.com/connect"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

type ScrimServer struct {
	sessions *session.Manager
	players  *service.PlayerService
	fairplay *service.FairPlayService
	engine   *rating.Engine
}

func NewScrimServer(sessions *session.Manager, players *service.PlayerService, fairplay *service.FairPlayService, engine *rating.Engine) *ScrimServer {
	return &ScrimServer{sessions: sessions, players: players, fairplay: fairplay, engine: engine}
}

// NewHandler mounts every procedure and returns the path prefix to route to
// the handler.
func NewHandler(s *ScrimServer, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(rpc.Codec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(rpc.OpenSessionProcedure, connect.NewUnaryHandler(rpc.OpenSessionProcedure, s.OpenSession, opts...))
	mux.Handle(rpc.JoinProcedure, connect.NewUnaryHandler(rpc.JoinProcedure, s.Join, opts...))
	mux.Handle(rpc.LeaveProcedure, connect.NewUnaryHandler(rpc.LeaveProcedure, s.Leave, opts...))
	mux.Handle(rpc.RebalanceProcedure, connect.NewUnaryHandler(rpc.RebalanceProcedure, s.Rebalance, opts...))
	mux.Handle(rpc.ReportResultProcedure, connect.NewUnaryHandler(rpc.ReportResultProcedure, s.ReportResult, opts...))
	mux.Handle(rpc.QuickResultProcedure, connect.NewUnaryHandler(rpc.QuickResultProcedure, s.QuickResult, opts...))
	mux.Handle(rpc.CancelProcedure, connect.NewUnaryHandler(rpc.CancelProcedure, s.Cancel, opts...))
	mux.Handle(rpc.GetSessionProcedure, connect.NewUnaryHandler(rpc.GetSessionProcedure, s.GetSession, opts...))
	mux.Handle(rpc.RegisterPlayerProcedure, connect.NewUnaryHandler(rpc.RegisterPlayerProcedure, s.RegisterPlayer, opts...))
	mux.Handle(rpc.GetPlayerProcedure, connect.NewUnaryHandler(rpc.GetPlayerProcedure, s.GetPlayer, opts...))
	mux.Handle(rpc.LeaderboardProcedure, connect.NewUnaryHandler(rpc.LeaderboardProcedure, s.Leaderboard, opts...))
	mux.Handle(rpc.AdjustPlayerProcedure, connect.NewUnaryHandler(rpc.AdjustPlayerProcedure, s.AdjustPlayer, opts...))
	mux.Handle(rpc.ResetSeasonProcedure, connect.NewUnaryHandler(rpc.ResetSeasonProcedure, s.ResetSeason, opts...))
	mux.Handle(rpc.ListSeasonsProcedure, connect.NewUnaryHandler(rpc.ListSeasonsProcedure, s.ListSeasons, opts...))
	mux.Handle(rpc.SeasonStandingsProcedure, connect.NewUnaryHandler(rpc.SeasonStandingsProcedure, s.SeasonStandings, opts...))
	mux.Handle(rpc.ReportIncidentProcedure, connect.NewUnaryHandler(rpc.ReportIncidentProcedure, s.ReportIncident, opts...))
	mux.Handle(rpc.ResolveIncidentProcedure, connect.NewUnaryHandler(rpc.ResolveIncidentProcedure, s.ResolveIncident, opts...))
	mux.Handle(rpc.ListIncidentsProcedure, connect.NewUnaryHandler(rpc.ListIncidentsProcedure, s.ListIncidents, opts...))
	return rpc.ServicePath, mux
}

func failed(ctx context.Context, procedure string, err error) error {
	cerr := toConnectError(err)
	ev := zerolog.Ctx(ctx).Warn()
	if connect.CodeOf(cerr) == connect.CodeInternal {
		ev = zerolog.Ctx(ctx).Error()
	}
	ev.Err(err).Str("procedure", procedure).Str("code", connect.CodeOf(cerr).String()).Msg("rpc failed")
	return cerr
}

func (s *ScrimServer) OpenSession(ctx context.Context, req *connect.Request[rpc.OpenSessionRequest]) (*connect.Response[rpc.OpenSessionResponse], error) {
	id, err := s.sessions.OpenSession(ctx, req.Msg.GroupID, req.Msg.Capacity)
	if err != nil {
		return nil, failed(ctx, "OpenSession", err)
	}
	return connect.NewResponse(&rpc.OpenSessionResponse{SessionID: id}), nil
}

func (s *ScrimServer) Join(ctx context.Context, req *connect.Request[rpc.MembershipRequest]) (*connect.Response[rpc.Session], error) {
	sess, err := s.sessions.Join(ctx, req.Msg.SessionID, req.Msg.Ref)
	if err != nil {
		return nil, failed(ctx, "Join", err)
	}
	return connect.NewResponse(rpc.SessionFromDomain(sess)), nil
}

func (s *ScrimServer) Leave(ctx context.Context, req *connect.Request[rpc.MembershipRequest]) (*connect.Response[rpc.Empty], error) {
	if err := s.sessions.Leave(ctx, req.Msg.SessionID, req.Msg.Ref); err != nil {
		return nil, failed(ctx, "Leave", err)
	}
	return connect.NewResponse(&rpc.Empty{}), nil
}

func (s *ScrimServer) Rebalance(ctx context.Context, req *connect.Request[rpc.SessionRef]) (*connect.Response[rpc.TeamsResponse], error) {
	teams, err := s.sessions.Rebalance(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, failed(ctx, "Rebalance", err)
	}
	return connect.NewResponse(&rpc.TeamsResponse{Teams: teams}), nil
}

func (s *ScrimServer) ReportResult(ctx context.Context, req *connect.Request[rpc.ReportResultRequest]) (*connect.Response[rpc.MatchRecord], error) {
	m := req.Msg
	rec, err := s.sessions.ReportResult(ctx, m.SessionID, domain.Side(m.Winner), m.StandoutRef, m.UnderperformerRef)
	if err != nil {
		return nil, failed(ctx, "ReportResult", err)
	}
	return connect.NewResponse(rpc.MatchRecordFromDomain(rec)), nil
}

func (s *ScrimServer) QuickResult(ctx context.Context, req *connect.Request[rpc.QuickResultRequest]) (*connect.Response[rpc.MatchRecord], error) {
	m := req.Msg
	rec, err := s.sessions.QuickResult(ctx, m.GroupID, domain.Side(m.Winner), m.StandoutRef, m.UnderperformerRef)
	if err != nil {
		return nil, failed(ctx, "QuickResult", err)
	}
	return connect.NewResponse(rpc.MatchRecordFromDomain(rec)), nil
}

func (s *ScrimServer) Cancel(ctx context.Context, req *connect.Request[rpc.SessionRef]) (*connect.Response[rpc.Empty], error) {
	if err := s.sessions.Cancel(ctx, req.Msg.SessionID); err != nil {
		return nil, failed(ctx, "Cancel", err)
	}
	return connect.NewResponse(&rpc.Empty{}), nil
}

func (s *ScrimServer) GetSession(ctx context.Context, req *connect.Request[rpc.SessionRef]) (*connect.Response[rpc.Session], error) {
	sess, err := s.sessions.Get(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, failed(ctx, "GetSession", err)
	}
	return connect.NewResponse(rpc.SessionFromDomain(sess)), nil
}

func (s *ScrimServer) RegisterPlayer(ctx context.Context, req *connect.Request[rpc.RegisterPlayerRequest]) (*connect.Response[rpc.PlayerResponse], error) {
	p, err := s.players.Register(ctx, req.Msg.Ref, req.Msg.DisplayName, req.Msg.RankTier)
	if err != nil {
		return nil, failed(ctx, "RegisterPlayer", err)
	}
	return connect.NewResponse(&rpc.PlayerResponse{
		Player: rpc.PlayerFromDomain(p, s.engine.TierForRating(p.Rating)),
	}), nil
}

func (s *ScrimServer) GetPlayer(ctx context.Context, req *connect.Request[rpc.PlayerRef]) (*connect.Response[rpc.PlayerResponse], error) {
	view, err := s.players.GetPlayer(ctx, req.Msg.Ref)
	if err != nil {
		return nil, failed(ctx, "GetPlayer", err)
	}

	history := make([]rpc.RatingChange, len(view.History))
	for i, c := range view.History {
		history[i] = rpc.RatingChange{
			MatchID:     c.MatchID,
			SessionID:   c.SessionID,
			Side:        string(c.Delta.Side),
			Won:         c.Won,
			Delta:       c.Delta.Delta,
			RatingAfter: c.Delta.RatingAfter,
			At:          c.At,
		}
	}
	return connect.NewResponse(&rpc.PlayerResponse{
		Player:  rpc.PlayerFromDomain(view.Player, view.Tier),
		History: history,
	}), nil
}

func (s *ScrimServer) Leaderboard(ctx context.Context, req *connect.Request[rpc.LeaderboardRequest]) (*connect.Response[rpc.LeaderboardResponse], error) {
	players, err := s.players.Leaderboard(ctx, req.Msg.Limit)
	if err != nil {
		return nil, failed(ctx, "Leaderboard", err)
	}
	return connect.NewResponse(&rpc.LeaderboardResponse{
		Players: lo.Map(players, func(p domain.Player, _ int) *rpc.Player {
			return rpc.PlayerFromDomain(&p, s.engine.TierForRating(p.Rating))
		}),
	}), nil
}

func (s *ScrimServer) AdjustPlayer(ctx context.Context, req *connect.Request[rpc.AdjustPlayerRequest]) (*connect.Response[rpc.PlayerResponse], error) {
	m := req.Msg
	p, err := s.players.Adjust(ctx, m.Ref, service.Adjustment{
		SetRating:       m.SetRating,
		RatingDelta:     m.RatingDelta,
		Wins:            m.Wins,
		Losses:          m.Losses,
		Standouts:       m.Standouts,
		Underperformers: m.Underperformers,
	})
	if err != nil {
		return nil, failed(ctx, "AdjustPlayer", err)
	}
	return connect.NewResponse(&rpc.PlayerResponse{
		Player: rpc.PlayerFromDomain(p, s.engine.TierForRating(p.Rating)),
	}), nil
}

func (s *ScrimServer) ResetSeason(ctx context.Context, req *connect.Request[rpc.ResetSeasonRequest]) (*connect.Response[rpc.ResetSeasonResponse], error) {
	n, err := s.players.ResetSeason(ctx, req.Msg.Name)
	if err != nil {
		return nil, failed(ctx, "ResetSeason", err)
	}
	return connect.NewResponse(&rpc.ResetSeasonResponse{Players: n, Rating: s.engine.DefaultRating()}), nil
}

func (s *ScrimServer) ListSeasons(ctx context.Context, _ *connect.Request[rpc.Empty]) (*connect.Response[rpc.SeasonsResponse], error) {
	seasons, err := s.players.Seasons(ctx)
	if err != nil {
		return nil, failed(ctx, "ListSeasons", err)
	}
	return connect.NewResponse(&rpc.SeasonsResponse{
		Seasons: lo.Map(seasons, func(se domain.Season, _ int) rpc.Season {
			return rpc.Season{Name: se.Name, Players: se.Players, ArchivedAt: se.ArchivedAt}
		}),
	}), nil
}

func (s *ScrimServer) SeasonStandings(ctx context.Context, req *connect.Request[rpc.SeasonRef]) (*connect.Response[rpc.SeasonStandingsResponse], error) {
	standings, err := s.players.SeasonStandings(ctx, req.Msg.Name)
	if err != nil {
		return nil, failed(ctx, "SeasonStandings", err)
	}
	return connect.NewResponse(&rpc.SeasonStandingsResponse{
		Season: req.Msg.Name,
		Standings: lo.Map(standings, func(st domain.Standing, _ int) rpc.Standing {
			return rpc.StandingFromDomain(st)
		}),
	}), nil
}

func (s *ScrimServer) ReportIncident(ctx context.Context, req *connect.Request[rpc.ReportIncidentRequest]) (*connect.Response[rpc.IncidentReportResponse], error) {
	m := req.Msg
	report, err := s.fairplay.Report(ctx, m.Ref, m.Reason, m.Description, m.ReportedBy)
	if err != nil {
		return nil, failed(ctx, "ReportIncident", err)
	}
	return connect.NewResponse(&rpc.IncidentReportResponse{
		Incident: rpc.IncidentFromDomain(report.Incident),
		Open:     report.Open,
	}), nil
}

func (s *ScrimServer) ResolveIncident(ctx context.Context, req *connect.Request[rpc.ResolveIncidentRequest]) (*connect.Response[rpc.Incident], error) {
	inc, err := s.fairplay.Resolve(ctx, req.Msg.ID, req.Msg.ResolvedBy)
	if err != nil {
		return nil, failed(ctx, "ResolveIncident", err)
	}
	return connect.NewResponse(rpc.IncidentFromDomain(inc)), nil
}

func (s *ScrimServer) ListIncidents(ctx context.Context, req *connect.Request[rpc.PlayerRef]) (*connect.Response[rpc.IncidentsResponse], error) {
	incidents, err := s.fairplay.List(ctx, req.Msg.Ref)
	if err != nil {
		return nil, failed(ctx, "ListIncidents", err)
	}
	until, penalized, err := s.fairplay.Penalty(ctx, req.Msg.Ref)
	if err != nil {
		return nil, failed(ctx, "ListIncidents", err)
	}

	resp := &rpc.IncidentsResponse{
		Incidents: lo.Map(incidents, func(inc domain.Incident, _ int) *rpc.Incident {
			return rpc.IncidentFromDomain(&inc)
		}),
	}
	if penalized {
		resp.PenaltyUntil = &until
	}
	return connect.NewResponse(resp), nil
}

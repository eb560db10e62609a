package rpc

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// Client is a typed caller for every procedure of the scrim service.
type Client struct {
	openSession     *connect.Client[OpenSessionRequest, OpenSessionResponse]
	join            *connect.Client[MembershipRequest, Session]
	leave           *connect.Client[MembershipRequest, Empty]
	rebalance       *connect.Client[SessionRef, TeamsResponse]
	reportResult    *connect.Client[ReportResultRequest, MatchRecord]
	quickResult     *connect.Client[QuickResultRequest, MatchRecord]
	cancel          *connect.Client[SessionRef, Empty]
	getSession      *connect.Client[SessionRef, Session]
	registerPlayer  *connect.Client[RegisterPlayerRequest, PlayerResponse]
	getPlayer       *connect.Client[PlayerRef, PlayerResponse]
	leaderboard     *connect.Client[LeaderboardRequest, LeaderboardResponse]
	adjustPlayer    *connect.Client[AdjustPlayerRequest, PlayerResponse]
	resetSeason     *connect.Client[ResetSeasonRequest, ResetSeasonResponse]
	listSeasons     *connect.Client[Empty, SeasonsResponse]
	seasonStandings *connect.Client[SeasonRef, SeasonStandingsResponse]
	reportIncident  *connect.Client[ReportIncidentRequest, IncidentReportResponse]
	resolveIncident *connect.Client[ResolveIncidentRequest, Incident]
	listIncidents   *connect.Client[PlayerRef, IncidentsResponse]
}

func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)

	return &Client{
		openSession:     connect.NewClient[OpenSessionRequest, OpenSessionResponse](httpClient, baseURL+OpenSessionProcedure, opts...),
		join:            connect.NewClient[MembershipRequest, Session](httpClient, baseURL+JoinProcedure, opts...),
		leave:           connect.NewClient[MembershipRequest, Empty](httpClient, baseURL+LeaveProcedure, opts...),
		rebalance:       connect.NewClient[SessionRef, TeamsResponse](httpClient, baseURL+RebalanceProcedure, opts...),
		reportResult:    connect.NewClient[ReportResultRequest, MatchRecord](httpClient, baseURL+ReportResultProcedure, opts...),
		quickResult:     connect.NewClient[QuickResultRequest, MatchRecord](httpClient, baseURL+QuickResultProcedure, opts...),
		cancel:          connect.NewClient[SessionRef, Empty](httpClient, baseURL+CancelProcedure, opts...),
		getSession:      connect.NewClient[SessionRef, Session](httpClient, baseURL+GetSessionProcedure, opts...),
		registerPlayer:  connect.NewClient[RegisterPlayerRequest, PlayerResponse](httpClient, baseURL+RegisterPlayerProcedure, opts...),
		getPlayer:       connect.NewClient[PlayerRef, PlayerResponse](httpClient, baseURL+GetPlayerProcedure, opts...),
		leaderboard:     connect.NewClient[LeaderboardRequest, LeaderboardResponse](httpClient, baseURL+LeaderboardProcedure, opts...),
		adjustPlayer:    connect.NewClient[AdjustPlayerRequest, PlayerResponse](httpClient, baseURL+AdjustPlayerProcedure, opts...),
		resetSeason:     connect.NewClient[ResetSeasonRequest, ResetSeasonResponse](httpClient, baseURL+ResetSeasonProcedure, opts...),
		listSeasons:     connect.NewClient[Empty, SeasonsResponse](httpClient, baseURL+ListSeasonsProcedure, opts...),
		seasonStandings: connect.NewClient[SeasonRef, SeasonStandingsResponse](httpClient, baseURL+SeasonStandingsProcedure, opts...),
		reportIncident:  connect.NewClient[ReportIncidentRequest, IncidentReportResponse](httpClient, baseURL+ReportIncidentProcedure, opts...),
		resolveIncident: connect.NewClient[ResolveIncidentRequest, Incident](httpClient, baseURL+ResolveIncidentProcedure, opts...),
		listIncidents:   connect.NewClient[PlayerRef, IncidentsResponse](httpClient, baseURL+ListIncidentsProcedure, opts...),
	}
}

// NewDefaultClient uses http.DefaultClient.
func NewDefaultClient(baseURL string) *Client {
	return NewClient(http.DefaultClient, baseURL)
}

func call[Req, Res any](ctx context.Context, c *connect.Client[Req, Res], req *Req) (*Res, error) {
	resp, err := c.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func (c *Client) OpenSession(ctx context.Context, req *OpenSessionRequest) (*OpenSessionResponse, error) {
	return call(ctx, c.openSession, req)
}

func (c *Client) Join(ctx context.Context, req *MembershipRequest) (*Session, error) {
	return call(ctx, c.join, req)
}

func (c *Client) Leave(ctx context.Context, req *MembershipRequest) error {
	_, err := call(ctx, c.leave, req)
	return err
}

func (c *Client) Rebalance(ctx context.Context, req *SessionRef) (*TeamsResponse, error) {
	return call(ctx, c.rebalance, req)
}

func (c *Client) ReportResult(ctx context.Context, req *ReportResultRequest) (*MatchRecord, error) {
	return call(ctx, c.reportResult, req)
}

func (c *Client) QuickResult(ctx context.Context, req *QuickResultRequest) (*MatchRecord, error) {
	return call(ctx, c.quickResult, req)
}

func (c *Client) Cancel(ctx context.Context, req *SessionRef) error {
	_, err := call(ctx, c.cancel, req)
	return err
}

func (c *Client) GetSession(ctx context.Context, req *SessionRef) (*Session, error) {
	return call(ctx, c.getSession, req)
}

func (c *Client) RegisterPlayer(ctx context.Context, req *RegisterPlayerRequest) (*PlayerResponse, error) {
	return call(ctx, c.registerPlayer, req)
}

func (c *Client) GetPlayer(ctx context.Context, req *PlayerRef) (*PlayerResponse, error) {
	return call(ctx, c.getPlayer, req)
}

func (c *Client) Leaderboard(ctx context.Context, req *LeaderboardRequest) (*LeaderboardResponse, error) {
	return call(ctx, c.leaderboard, req)
}

func (c *Client) AdjustPlayer(ctx context.Context, req *AdjustPlayerRequest) (*PlayerResponse, error) {
	return call(ctx, c.adjustPlayer, req)
}

func (c *Client) ResetSeason(ctx context.Context, req *ResetSeasonRequest) (*ResetSeasonResponse, error) {
	return call(ctx, c.resetSeason, req)
}

func (c *Client) ListSeasons(ctx context.Context) (*SeasonsResponse, error) {
	return call(ctx, c.listSeasons, &Empty{})
}

func (c *Client) SeasonStandings(ctx context.Context, req *SeasonRef) (*SeasonStandingsResponse, error) {
	return call(ctx, c.seasonStandings, req)
}

func (c *Client) ReportIncident(ctx context.Context, req *ReportIncidentRequest) (*IncidentReportResponse, error) {
	return call(ctx, c.reportIncident, req)
}

func (c *Client) ResolveIncident(ctx context.Context, req *ResolveIncidentRequest) (*Incident, error) {
	return call(ctx, c.resolveIncident, req)
}

func (c *Client) ListIncidents(ctx context.Context, req *PlayerRef) (*IncidentsResponse, error) {
	return call(ctx, c.listIncidents, req)
}

package rpc

const ServiceName = "scrim.v1.ScrimService"

// ServicePath is the mux prefix every procedure lives under.
const ServicePath = "/" + ServiceName + "/"

const (
	OpenSessionProcedure     = ServicePath + "OpenSession"
	JoinProcedure            = ServicePath + "Join"
	LeaveProcedure           = ServicePath + "Leave"
	RebalanceProcedure       = ServicePath + "Rebalance"
	ReportResultProcedure    = ServicePath + "ReportResult"
	QuickResultProcedure     = ServicePath + "QuickResult"
	CancelProcedure          = ServicePath + "Cancel"
	GetSessionProcedure      = ServicePath + "GetSession"
	RegisterPlayerProcedure  = ServicePath + "RegisterPlayer"
	GetPlayerProcedure       = ServicePath + "GetPlayer"
	LeaderboardProcedure     = ServicePath + "Leaderboard"
	AdjustPlayerProcedure    = ServicePath + "AdjustPlayer"
	ResetSeasonProcedure     = ServicePath + "ResetSeason"
	ListSeasonsProcedure     = ServicePath + "ListSeasons"
	SeasonStandingsProcedure = ServicePath + "SeasonStandings"
	ReportIncidentProcedure  = ServicePath + "ReportIncident"
	ResolveIncidentProcedure = ServicePath + "ResolveIncident"
	ListIncidentsProcedure   = ServicePath + "ListIncidents"
)

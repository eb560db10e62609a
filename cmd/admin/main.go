// Command scrim-admin drives a running scrim server.
//
// Usage:
//
//	scrim-admin register "Name#TAG" --rank "GOLD II"
//	scrim-admin open --group lobby-1 --capacity 10
//	scrim-admin join <session-id> <player-ref>
//	scrim-admin report <session-id> --winner blue --standout <ref>
//	scrim-admin quick-result --group lobby-1 --winner red
//	scrim-admin adjust <player-ref> --delta -20 --losses 1
//	scrim-admin reset-season "Season 2" --yes
//	scrim-admin standings "Season 2"
//	scrim-admin fairplay report <player-ref> --reason afk
package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"aram-scrim/internal/rpc"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type cli struct {
	server  string
	timeout time.Duration
	out     io.Writer
	client  *rpc.Client
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:          "scrim-admin",
		Short:        "Administer scrim sessions and players",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			c.client = rpc.NewClient(&http.Client{Timeout: c.timeout}, c.server)
		},
	}

	defaultServer := os.Getenv("SCRIM_SERVER_URL")
	if defaultServer == "" {
		defaultServer = "http://localhost:8080"
	}
	root.PersistentFlags().StringVar(&c.server, "server", defaultServer, "Scrim server base URL")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 30*time.Second, "Request timeout")

	root.AddCommand(
		c.registerCmd(),
		c.playerCmd(),
		c.leaderboardCmd(),
		c.adjustCmd(),
		c.resetSeasonCmd(),
		c.seasonsCmd(),
		c.standingsCmd(),
		c.fairPlayCmd(),
		c.openCmd(),
		c.sessionCmd(),
		c.joinCmd(),
		c.leaveCmd(),
		c.cancelCmd(),
		c.rebalanceCmd(),
		c.reportCmd(),
		c.quickResultCmd(),
	)
	return root
}

// run executes fn with a context cancelled on interrupt and prints its result.
func (c *cli) run(fn func(ctx context.Context) (any, error)) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	v, err := fn(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --------------------------------------------------------------------------
// players
// --------------------------------------------------------------------------

func (c *cli) registerCmd() *cobra.Command {
	var name, rank string
	cmd := &cobra.Command{
		Use:   "register <ref>",
		Short: "Register a player at the default rating",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context) (any, error) {
				return c.client.RegisterPlayer(ctx, &rpc.RegisterPlayerRequest{Ref: args[0], DisplayName: name, RankTier: rank})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&rank, "rank", "", "External rank label, e.g. \"GOLD II\"")
	return cmd
}

func (c *cli) playerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "player <ref>",
		Short: "Show a player and their recent rating changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context) (any, error) {
				return c.client.GetPlayer(ctx, &rpc.PlayerRef{Ref: args[0]})
			})
		},
	}
}

func (c *cli) leaderboardCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "List players by rating",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context) (any, error) {
				return c.client.Leaderboard(ctx, &rpc.LeaderboardRequest{Limit: limit})
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of players")
	return cmd
}

func (c *cli) adjustCmd() *cobra.Command {
	var (
		req rpc.AdjustPlayerRequest
		set int
	)
	cmd := &cobra.Command{
		Use:   "adjust <ref>",
		Short: "Correct a player's rating or record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Ref = args[0]
			if cmd.Flags().Changed("set") {
				req.SetRating = &set
			}
			return c.run(func(ctx context.Context) (any, error) {
				return c.client.AdjustPlayer(ctx, &req)
			})
		},
	}
	cmd.Flags().IntVar(&set, "set", 0, "Set the rating to this value")
	cmd.Flags().IntVar(&req.RatingDelta, "delta", 0, "Add to the rating")
	cmd.Flags().IntVar(&req.Wins, "wins", 0, "Add wins")
	cmd.Flags().IntVar(&req.Losses, "losses", 0, "Add losses")
	cmd.Flags().IntVar(&req.Standouts, "standouts", 0, "Add standout awards")
	cmd.Flags().IntVar(&req.Underperformers, "underperformers", 0, "Add underperformer marks")
	cmd.MarkFlagsMutuallyExclusive("set", "delta")
	return cmd
}

func (c *cli) resetSeasonCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset-season <name>",
		Short: "Archive the standings under name and start a new season",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			return c.run(func(ctx context.Context) (any, error) {
				return c.client.ResetSeason(ctx, &rpc.ResetSeasonRequest{Name: args[0]})
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}

func (c *cli) seasonsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seasons",
		Short: "List archived seasons",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context) (any, error) {
				return c.client.ListSeasons(ctx)
			})
		},
	}
}

func (c *cli) standingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "standings <season>",
		Short: "Show the final table of an archived season",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context) (any, error) {
				return c.client.SeasonStandings(ctx, &rpc.SeasonRef{Name: args[0]})
			})
		},
	}
}

// --------------------------------------------------------------------------
// fair play
// --------------------------------------------------------------------------

func (c *cli) fairPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fairplay",
		Short: "Manage fair-play incidents",
	}

	var report rpc.ReportIncidentRequest
	reportCmd := &cobra.Command{
		Use:   "report <ref>",
		Short: "Record an incident against a player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report.Ref = args[0]
			return c.run(func(ctx context.Context) (any, error) {
				return c.client.ReportIncident(ctx, &report)
			})
		},
	}
	reportCmd.Flags().StringVar(&report.Reason, "reason", "", "Short reason, e.g. afk")
	reportCmd.Flags().StringVar(&report.Description, "description", "", "Details")
	reportCmd.Flags().StringVar(&report.ReportedBy, "by", "", "Who is reporting")
	_ = reportCmd.MarkFlagRequired("reason")

	var resolvedBy string
	resolveCmd := &cobra.Command{
		Use:   "resolve <incident-id>",
		Short: "Resolve an open incident",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context) (any, error) {
				return c.client.ResolveIncident(ctx, &rpc.ResolveIncidentRequest{ID: args[0], ResolvedBy: resolvedBy})
			})
		},
	}
	resolveCmd.Flags().StringVar(&resolvedBy, "by", "", "Who is resolving")

	listCmd := &cobra.Command{
		Use:   "list <ref>",
		Short: "List a player's recent incidents and any running penalty",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context) (any, error) {
				return c.client.ListIncidents(ctx, &rpc.PlayerRef{Ref: args[0]})
			})
		},
	}

	cmd.AddCommand(reportCmd, resolveCmd, listCmd)
	return cmd
}

// --------------------------------------------------------------------------
// sessions
// --------------------------------------------------------------------------

func (c *cli) openCmd() *cobra.Command {
	var req rpc.OpenSessionRequest
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context) (any, error) {
				return c.client.OpenSession(ctx, &req)
			})
		},
	}
	cmd.Flags().StringVar(&req.GroupID, "group", "", "Group the session belongs to")
	cmd.Flags().IntVar(&req.Capacity, "capacity", 10, "Number of players, even, 4 to 10")
	_ = cmd.MarkFlagRequired("group")
	return cmd
}

func (c *cli) sessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session <id>",
		Short: "Show a session and its teams",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context) (any, error) {
				return c.client.GetSession(ctx, &rpc.SessionRef{SessionID: args[0]})
			})
		},
	}
}

func (c *cli) joinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <session-id> <ref>",
		Short: "Add a player to a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context) (any, error) {
				return c.client.Join(ctx, &rpc.MembershipRequest{SessionID: args[0], Ref: args[1]})
			})
		},
	}
}

func (c *cli) leaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <session-id> <ref>",
		Short: "Remove a player from an open session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context) (any, error) {
				return rpc.Empty{}, c.client.Leave(ctx, &rpc.MembershipRequest{SessionID: args[0], Ref: args[1]})
			})
		},
	}
}

func (c *cli) cancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <session-id>",
		Short: "Cancel an open session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context) (any, error) {
				return rpc.Empty{}, c.client.Cancel(ctx, &rpc.SessionRef{SessionID: args[0]})
			})
		},
	}
}

func (c *cli) rebalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebalance <session-id>",
		Short: "Recompute the teams of a formed session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context) (any, error) {
				return c.client.Rebalance(ctx, &rpc.SessionRef{SessionID: args[0]})
			})
		},
	}
}

func (c *cli) reportCmd() *cobra.Command {
	var req rpc.ReportResultRequest
	cmd := &cobra.Command{
		Use:   "report <session-id>",
		Short: "Report the result of a formed session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.SessionID = args[0]
			return c.run(func(ctx context.Context) (any, error) {
				return c.client.ReportResult(ctx, &req)
			})
		},
	}
	resultFlags(cmd, &req.Winner, &req.StandoutRef, &req.UnderperformerRef)
	return cmd
}

func (c *cli) quickResultCmd() *cobra.Command {
	var req rpc.QuickResultRequest
	cmd := &cobra.Command{
		Use:   "quick-result",
		Short: "Report against the group's latest formed session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(func(ctx context.Context) (any, error) {
				return c.client.QuickResult(ctx, &req)
			})
		},
	}
	cmd.Flags().StringVar(&req.GroupID, "group", "", "Group to report for")
	_ = cmd.MarkFlagRequired("group")
	resultFlags(cmd, &req.Winner, &req.StandoutRef, &req.UnderperformerRef)
	return cmd
}

func resultFlags(cmd *cobra.Command, winner, standout, underperformer *string) {
	cmd.Flags().StringVar(winner, "winner", "", "Winning side: blue or red")
	cmd.Flags().StringVar(standout, "standout", "", "Player ref of the standout")
	cmd.Flags().StringVar(underperformer, "underperformer", "", "Player ref of the underperformer")
	_ = cmd.MarkFlagRequired("winner")
}

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Annabf7/el-visionat/internal/domain"
	"github.com/Annabf7/el-visionat/internal/service"
	"github.com/spf13/cobra"
)

const (
	ExitSuccess = 0
	ExitError   = 1
)

// Services are the operations the CLI drives.
type Services struct {
	Sync     *service.SyncService
	Schedule *service.ScheduleService
	Votes    *service.VoteService
	Winner   *service.WinnerResolver
	Closer   *service.SuggestionCloser
}

// Loader starts the application and returns its services together with a
// function that stops it.
type Loader func(ctx context.Context) (*Services, func(context.Context) error, error)

type rootOptions struct {
	format string
	load   Loader
}

// NewRootCmd creates the root command
func NewRootCmd(load Loader) *cobra.Command {
	opts := &rootOptions{load: load}

	cmd := &cobra.Command{
		Use:   "visionatctl",
		Short: "Operate the weekly match vote",
		Long: `Manual entry points for the weekly match vote: resolve and publish the
coming jornada, inspect tallies, elect the winner and close suggestions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.format, "format", "text", "Output format: text or json")

	cmd.AddCommand(
		newSyncCmd(opts),
		newActiveCmd(opts),
		newScheduleCmd(opts),
		newTallyCmd(opts),
		newFocusCmd(opts),
		newProcessWinnerCmd(opts),
		newCloseSuggestionsCmd(opts),
		newRunsCmd(opts),
	)
	return cmd
}

// run validates the output format, starts the application around fn and
// writes whatever fn returns.
func (o *rootOptions) run(cmd *cobra.Command, fn func(ctx context.Context, svc *Services) (any, error)) error {
	format := OutputFormat(strings.ToLower(o.format))
	if format != FormatText && format != FormatJSON {
		return fmt.Errorf("invalid format: %s (must be 'text' or 'json')", o.format)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	svc, stop, err := o.load(ctx)
	if err != nil {
		return fmt.Errorf("starting application: %w", err)
	}
	defer stop(context.WithoutCancel(ctx))

	result, err := fn(ctx, svc)
	if err != nil {
		return fmt.Errorf("%s: %w", domain.Classify(err), err)
	}
	return WriteOutput(cmd.OutOrStdout(), result, format)
}

func newSyncCmd(opts *rootOptions) *cobra.Command {
	var targetDate string
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Resolve the coming weekend's jornada and publish it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, svc *Services) (any, error) {
				result, err := svc.Sync.ResolveAndPublish(ctx, domain.TriggerCLI, targetDate)
				if err != nil {
					return nil, err
				}
				// winner processing of the retired jornada runs in the background
				if err := svc.Sync.Wait(); err != nil {
					return nil, err
				}
				return result, nil
			})
		},
	}
	cmd.Flags().StringVar(&targetDate, "target-date", "", "Resolve the weekend after this date (YYYY-MM-DD or RFC 3339)")
	return cmd
}

func newActiveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "Show the jornada currently open for voting",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, svc *Services) (any, error) {
				return svc.Sync.GetActiveRound(ctx)
			})
		},
	}
}

func newScheduleCmd(opts *rootOptions) *cobra.Command {
	var (
		round         int
		refresh       bool
		competitionID string
	)
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Show one jornada of the competition",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, svc *Services) (any, error) {
				return svc.Schedule.GetRound(ctx, competitionID, round, refresh)
			})
		},
	}
	cmd.Flags().IntVar(&round, "jornada", 0, "Jornada number (required)")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Bypass the schedule cache")
	cmd.Flags().StringVar(&competitionID, "competition", "", "Competition id (defaults to the configured one)")
	cmd.MarkFlagRequired("jornada")
	return cmd
}

func newTallyCmd(opts *rootOptions) *cobra.Command {
	var round int
	cmd := &cobra.Command{
		Use:   "tally",
		Short: "Show the vote tallies of a jornada",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, svc *Services) (any, error) {
				tallies, err := svc.Votes.GetTallies(ctx, round)
				if err != nil {
					return nil, err
				}
				return tallyResult{Round: round, Tallies: tallies}, nil
			})
		},
	}
	cmd.Flags().IntVar(&round, "jornada", 0, "Jornada number (required)")
	cmd.MarkFlagRequired("jornada")
	return cmd
}

func newFocusCmd(opts *rootOptions) *cobra.Command {
	var round int
	cmd := &cobra.Command{
		Use:   "focus",
		Short: "Show the weekly focus, current or of a given jornada",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, svc *Services) (any, error) {
				return svc.Winner.Focus(ctx, round)
			})
		},
	}
	cmd.Flags().IntVar(&round, "jornada", 0, "Jornada number (0 for the current focus)")
	return cmd
}

func newProcessWinnerCmd(opts *rootOptions) *cobra.Command {
	var round int
	cmd := &cobra.Command{
		Use:   "process-winner",
		Short: "Elect the most voted match of a jornada as the weekly focus",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, svc *Services) (any, error) {
				if round < 1 {
					return nil, fmt.Errorf("--jornada must be positive: %w", domain.ErrInvalidArgument)
				}
				return svc.Winner.Process(ctx, round)
			})
		},
	}
	cmd.Flags().IntVar(&round, "jornada", 0, "Jornada number (required)")
	cmd.MarkFlagRequired("jornada")
	return cmd
}

func newCloseSuggestionsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "close-suggestions",
		Short: "Close the suggestion window of the current weekly focus",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, svc *Services) (any, error) {
				focus, changed, err := svc.Closer.Close(ctx)
				if err != nil {
					return nil, err
				}
				return closeResult{Focus: focus, Changed: changed}, nil
			})
		},
	}
}

func newRunsCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent sync runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, svc *Services) (any, error) {
				return svc.Sync.ListSyncRuns(ctx, limit)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of runs to list")
	return cmd
}

// Execute runs the CLI
func Execute(load Loader) {
	if err := NewRootCmd(load).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(ExitError)
	}
}

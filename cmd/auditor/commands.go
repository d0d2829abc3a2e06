package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	auditorsession "adshift/contexts/ad-operations/auditor-session"
	"adshift/contexts/ad-operations/auditor-session/application"
	"adshift/contexts/ad-operations/auditor-session/domain/entities"
	"adshift/contexts/ad-operations/auditor-session/ports"

	"github.com/spf13/cobra"
)

type options struct {
	api      string
	actor    string
	interval time.Duration
	verbose  bool
}

func execute(args []string, stdout io.Writer, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "auditor",
		Short:         "Operator console for ad-set automation",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.api, "api", envOr("ADSHIFT_API", "http://localhost:8080"), "automation API base URL")
	root.PersistentFlags().StringVar(&opts.actor, "actor", os.Getenv("ADSHIFT_ACTOR"), "operator identity sent as X-User-Id")
	root.PersistentFlags().DurationVar(&opts.interval, "interval", application.DefaultInterval, "poll interval for watch (5s-10m)")
	root.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "log session activity to stderr")

	root.AddCommand(
		newShowCmd(opts),
		newWatchCmd(opts),
		newSetCmd(opts),
		newBulkCmd(opts),
		newRunStateCmd(opts),
		newScheduleCmd(opts),
		newScheduledCmd(opts),
		newAutomationCmd(opts),
		newTurnCmd(opts),
		newEvaluateCmd(opts),
		newLogsCmd(opts),
	)
	return root
}

// openSession builds a session and pulls once so writes have a base.
func openSession(cmd *cobra.Command, opts *options) (*application.Session, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.verbose {
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	out := cmd.OutOrStdout()
	module := auditorsession.NewHTTPModule(opts.api, opts.actor, opts.interval, func(notice entities.Notice) {
		printNotice(out, notice)
	}, logger)
	if _, err := module.Session.Pull(cmd.Context()); err != nil {
		return nil, err
	}
	return module.Session, nil
}

func newShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print ad sets, shifts and the automation flag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			printView(cmd.OutOrStdout(), session.View())
			return nil
		},
	}
}

func newWatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll continuously and print changes and notices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			session, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printView(out, session.View())

			done := make(chan error, 1)
			go func() { done <- session.Run(ctx) }()

			ticker := time.NewTicker(application.ClampInterval(opts.interval))
			defer ticker.Stop()
			last := session.View().LastPullAt
			for {
				select {
				case err := <-done:
					return err
				case <-ticker.C:
					view := session.View()
					if view.LastPullAt.After(last) {
						last = view.LastPullAt
						printView(out, view)
					} else if view.Stale {
						fmt.Fprintf(out, "stale: %d failed pulls, showing data from %s\n", view.Failures, view.LastPullAt.Format(time.RFC3339))
					}
				}
			}
		},
	}
}

func newSetCmd(opts *options) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "set <adset-id> <turns|stopLossPercent|isFrozen> <value>",
		Short: "Write one settings field",
		Example: `  auditor set 2384 stopLossPercent 40
  auditor set 2384 turns morning,evening
  auditor set 2384 isFrozen true --message "campaign review"`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseValue(args[1], args[2])
			if err != nil {
				return err
			}
			session, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			ack, err := session.Write(cmd.Context(), args[0], value, message)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s at %s\n", ack.AdSetID, value.Field,
				ack.Settings.Value(value.Field).String(), ack.UpdatedAt.Format(time.RFC3339Nano))
			return nil
		},
	}
	cmd.Flags().StringVar(&message, "message", "", "audit log message")
	return cmd
}

func newBulkCmd(opts *options) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "bulk <field> <value> [adset-id...]",
		Short: "Write one field on many ad sets",
		Example: `  auditor bulk isFrozen false --all
  auditor bulk stopLossPercent 30 2384 2385`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseValue(args[0], args[1])
			if err != nil {
				return err
			}
			ids := args[2:]
			if !all && len(ids) == 0 {
				return errors.New("pass ad set ids or --all")
			}
			session, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			result, err := session.BulkSet(cmd.Context(), ids, all, value)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, item := range result.Items {
				if item.Success {
					fmt.Fprintf(out, "ok    %s\n", item.AdSetID)
					continue
				}
				fmt.Fprintf(out, "fail  %s  %s\n", item.AdSetID, item.Error)
			}
			fmt.Fprintf(out, "%d succeeded, %d failed\n", result.Succeeded, result.Failed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "apply to every known ad set")
	return cmd
}

func newRunStateCmd(opts *options) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "run-state <adset-id...> [ACTIVE|PAUSED]",
		Short: "Manually run or pause ad sets; one id without a status flips it",
		Example: `  auditor run-state 2384
  auditor run-state 2384 2385 PAUSED --message "budget review"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, status := splitStatus(args)
			if len(ids) == 0 {
				return errors.New("pass at least one ad set id")
			}
			if len(ids) > 1 && status == "" {
				return errors.New("several ad sets need an explicit ACTIVE or PAUSED")
			}
			session, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(ids) == 1 {
				ack, err := session.ToggleRunState(cmd.Context(), ids[0], status, message)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s -> %s (changed=%t, attempts=%d)\n", ack.AdSetID, ack.Desired, ack.Changed, ack.Attempts)
				return nil
			}
			result, err := session.BulkToggleRunState(cmd.Context(), ids, status, message)
			if err != nil {
				return err
			}
			for _, item := range result.Items {
				if item.Success {
					fmt.Fprintf(out, "ok    %s -> %s\n", item.AdSetID, result.Desired)
					continue
				}
				fmt.Fprintf(out, "fail  %s  %s\n", item.AdSetID, item.Error)
			}
			fmt.Fprintf(out, "%d succeeded, %d failed\n", result.Succeeded, result.Failed)
			return nil
		},
	}
	cmd.Flags().StringVar(&message, "message", "", "audit log message")
	return cmd
}

func newScheduleCmd(opts *options) *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "schedule <ACTIVE|PAUSED> <when> <adset-id...>",
		Short: "Run or pause ad sets once at a future time",
		Long: "Schedules a one-shot manual run or pause. <when> is RFC 3339, or a local time such as " +
			"2024-06-03T18:00 read in the server's automation timezone. Frozen ad sets are skipped when the action runs.",
		Example: `  auditor schedule PAUSED 2024-06-03T18:00 2384 2385`,
		Args:    cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			actions, err := session.ScheduleRunState(cmd.Context(), args[2:], strings.ToUpper(strings.TrimSpace(args[0])), args[1], message)
			if err != nil {
				return err
			}
			printActions(cmd.OutOrStdout(), actions)
			return nil
		},
	}
	cmd.Flags().StringVar(&message, "message", "", "audit log message used when the action runs")
	return cmd
}

func newScheduledCmd(opts *options) *cobra.Command {
	var pending bool
	cmd := &cobra.Command{
		Use:   "scheduled",
		Short: "List scheduled run/pause actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			actions, err := session.ScheduledActions(cmd.Context(), pending)
			if err != nil {
				return err
			}
			printActions(cmd.OutOrStdout(), actions)
			return nil
		},
	}
	cmd.Flags().BoolVar(&pending, "pending", false, "only actions that have not run")
	return cmd
}

// splitStatus treats a trailing ACTIVE or PAUSED as the target status.
func splitStatus(args []string) ([]string, string) {
	if len(args) == 0 {
		return nil, ""
	}
	last := strings.ToUpper(strings.TrimSpace(args[len(args)-1]))
	if last == "ACTIVE" || last == "PAUSED" {
		return args[:len(args)-1], last
	}
	return args, ""
}

func printActions(out io.Writer, actions []ports.ScheduledAction) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tADSET\tSTATUS\tAT\tSTATE\tBY\tERROR")
	for _, action := range actions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			action.ID, action.AdSetID, action.Status, action.ExecuteAt.Format(time.RFC3339),
			action.State, action.Actor, action.Error)
	}
	_ = w.Flush()
}

func newAutomationCmd(opts *options) *cobra.Command {
	automation := &cobra.Command{
		Use:   "automation",
		Short: "Inspect or flip the global automation switch",
	}
	automation.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Flip automation on or off",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			enabled, err := session.ToggleAutomation(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "automation %s\n", onOff(enabled))
			return nil
		},
	})
	return automation
}

func newTurnCmd(opts *options) *cobra.Command {
	var start, end float64
	var days string
	cmd := &cobra.Command{
		Use:     "turn <name>",
		Short:   "Create or replace a shift definition",
		Example: `  auditor turn morning --start 8 --end 17 --days Mon-Fri`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			session, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			saved, err := session.UpsertTurn(cmd.Context(), entities.Turn{Name: args[0], StartHour: start, EndHour: end, Days: days})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "turn %s %s-%s %s\n", saved.Name, formatHour(saved.StartHour), formatHour(saved.EndHour), saved.Days)
			return nil
		},
	}
	cmd.Flags().Float64Var(&start, "start", 0, "start hour, half-hour steps")
	cmd.Flags().Float64Var(&end, "end", 0, "end hour; at or before start wraps midnight")
	cmd.Flags().StringVar(&days, "days", "Mon-Fri", "active days (Mon-Fri, Mon,Wed,Fri, L-V)")
	return cmd
}

func newEvaluateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "evaluate",
		Short: "Run one automation cycle now, or queue it for the worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			summary, err := session.Evaluate(cmd.Context())
			if err != nil {
				return err
			}
			if summary.Queued {
				fmt.Fprintln(cmd.OutOrStdout(), "evaluation queued for the worker")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "evaluated %d, transitions %d, applied %d, failed %d\n",
				summary.Evaluated, summary.Transitions, summary.Applied, summary.Failed)
			return nil
		},
	}
}

func newLogsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logs",
		Short: "Print the recent audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := openSession(cmd, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, entry := range session.View().Snapshot.Logs {
				fmt.Fprintf(out, "%s  %-24s %s\n", entry.Timestamp.Format("2006-01-02 15:04:05"), entry.Actor, entry.Message)
			}
			return nil
		},
	}
}

func parseValue(rawField string, rawValue string) (entities.FieldValue, error) {
	field, err := entities.ParseField(rawField)
	if err != nil {
		return entities.FieldValue{}, err
	}
	return entities.ParseFieldValue(field, rawValue)
}

func printView(out io.Writer, view entities.SessionView) {
	fmt.Fprintf(out, "automation %s  pulled %s\n", onOff(view.Snapshot.AutomationEnabled), view.LastPullAt.Format(time.RFC3339))

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ADSET\tNAME\tSTATUS\tAUTOMATION\tSPEND%\tSTOP-LOSS\tFROZEN\tTURNS")
	rows := append([]entities.AdSetView(nil), view.Snapshot.AdSets...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].AdSetID < rows[j].AdSetID })
	for _, row := range rows {
		marker := ""
		for _, field := range []entities.Field{entities.FieldTurns, entities.FieldStopLossPercent, entities.FieldIsFrozen} {
			if pending, ok := view.Pending[entities.OverlayKey{AdSetID: row.AdSetID, Field: field}]; ok && pending {
				marker = " *"
			}
		}
		fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\t%.1f\t%g\t%t\t%s\n",
			row.AdSetID, marker, row.Name, row.RunState, row.AutomationState,
			row.SpendPercent, row.StopLossPercent, row.IsFrozen, strings.Join(row.Turns, ","))
	}
	_ = w.Flush()

	if len(view.Snapshot.Turns) > 0 {
		fmt.Fprintln(out, "shifts:")
		for _, turn := range view.Snapshot.Turns {
			fmt.Fprintf(out, "  %-12s %s-%s %s\n", turn.Name, formatHour(turn.StartHour), formatHour(turn.EndHour), turn.Days)
		}
	}
}

func printNotice(out io.Writer, notice entities.Notice) {
	switch notice.Kind {
	case entities.NoticeConflictOverwrite:
		fmt.Fprintf(out, "note: %s %s is now %s (your value %s was replaced by a later write)\n",
			notice.AdSetID, notice.Field, notice.Server.String(), notice.Local.String())
	case entities.NoticeWriteRejected:
		fmt.Fprintf(out, "rejected: %s %s kept %s: %s\n", notice.AdSetID, notice.Field, notice.Server.String(), notice.Message)
	default:
		fmt.Fprintf(out, "warning: %s\n", notice.Message)
	}
}

func formatHour(hour float64) string {
	whole := int(hour)
	minutes := int((hour - float64(whole)) * 60)
	return fmt.Sprintf("%02d:%02d", whole, minutes)
}

func onOff(enabled bool) string {
	if enabled {
		return "ON"
	}
	return "OFF"
}

func envOr(name string, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}
	return fallback
}

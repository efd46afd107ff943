package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/BerylCAtieno/docvault-api/internal/models"
	"github.com/BerylCAtieno/docvault-api/internal/tui"
)

const requestTimeout = 10 * time.Second

type options struct {
	addr     string
	start    bool
	exit     bool
	interval time.Duration
	asJSON   bool

	newClient func(addr string) tui.RunClient
}

// NewRootCommand builds vectorctl. Without a subcommand it opens the live
// watcher.
func NewRootCommand() *cobra.Command {
	return newRootCommand(func(addr string) tui.RunClient { return tui.NewAPIClient(addr) })
}

func newRootCommand(newClient func(addr string) tui.RunClient) *cobra.Command {
	opts := &options{newClient: newClient}

	root := &cobra.Command{
		Use:          "vectorctl",
		Short:        "Watch and control docvault background vectorization",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.addr, "addr", "http://localhost:8080", "docvault server address")
	root.Flags().BoolVar(&opts.start, "start", false, "start a vectorization run before watching")
	root.Flags().BoolVar(&opts.exit, "exit", false, "exit when the run finishes")
	root.Flags().DurationVar(&opts.interval, "interval", time.Second, "status poll interval")

	root.AddCommand(
		newStatusCommand(opts),
		newStartCommand(opts),
		newCancelCommand(opts),
	)

	return root
}

func runWatch(cmd *cobra.Command, opts *options) error {
	client := opts.newClient(opts.addr)

	if opts.start {
		if err := startRun(cmd.Context(), client); err != nil {
			return err
		}
	}

	p := tea.NewProgram(
		tui.NewWatcher(client, opts.interval, opts.exit),
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	_, err := p.Run()
	return err
}

func newStatusCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the current run status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			status, err := opts.newClient(opts.addr).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to fetch status: %w", err)
			}

			if opts.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}
			printStatus(cmd.OutOrStdout(), status)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "print the raw status JSON")
	return cmd
}

func newStartCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a vectorization run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := startRun(cmd.Context(), opts.newClient(opts.addr)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "vectorization started")
			return nil
		},
	}
}

func newCancelCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the active run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			canceled, err := opts.newClient(opts.addr).Cancel(ctx)
			if err != nil {
				return fmt.Errorf("failed to cancel: %w", err)
			}

			if canceled {
				fmt.Fprintln(cmd.OutOrStdout(), "cancel requested")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "no active run")
			}
			return nil
		},
	}
}

func startRun(ctx context.Context, client tui.RunClient) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	if err := client.Start(ctx); err != nil {
		return fmt.Errorf("failed to start vectorization: %w", err)
	}
	return nil
}

func printStatus(w io.Writer, s models.RunStatus) {
	state := "idle"
	switch {
	case s.IsRunning && s.Canceled:
		state = "canceling"
	case s.IsRunning:
		state = "running"
	case s.Canceled:
		state = "canceled"
	}

	fmt.Fprintf(w, "state:     %s\n", state)
	fmt.Fprintf(w, "progress:  %d%% (%d processed, %d failed, %d total)\n",
		s.ProgressPercentage, s.ProcessedDocs, s.FailedDocs, s.TotalDocs)
	if s.CurrentDoc != nil {
		fmt.Fprintf(w, "current:   %s (%s)\n", s.CurrentDoc.Name, s.CurrentDoc.Step)
	}
	if s.StartTime != nil {
		fmt.Fprintf(w, "started:   %s\n", s.StartTime.Local().Format(time.DateTime))
	}
}

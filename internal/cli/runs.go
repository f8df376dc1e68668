package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/harun/warden/pkg/session"
)

const promptPreview = 48

func newRunsCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs",
		Long: `List the most recent runs recorded in the transcript store, newest first.
Use "runs show <id>" to print one run turn by turn.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded")
				return nil
			}
			return writeRunTable(cmd.OutOrStdout(), runs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", session.DefaultListLimit, "number of runs to list")

	cmd.AddCommand(newRunsShowCmd(opts), newRunsPruneCmd(opts))
	return cmd
}

func newRunsShowCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print one recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			t, err := store.Get(cmd.Context(), args[0])
			if errors.Is(err, session.ErrNotFound) {
				return fmt.Errorf("run %q not found", args[0])
			}
			if err != nil {
				return err
			}

			if asJSON {
				data, err := json.MarshalIndent(t, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to encode run: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			writeTranscript(cmd.OutOrStdout(), t)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run as JSON")
	return cmd
}

func newRunsPruneCmd(opts *rootOptions) *cobra.Command {
	var pruneOpts session.PruneOptions

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if pruneOpts.OlderThan == 0 && pruneOpts.Keep == 0 {
				return errors.New("set --older-than or --keep")
			}

			store, err := openStore(opts)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Prune(cmd.Context(), pruneOpts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d runs\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&pruneOpts.OlderThan, "older-than", 0, "delete runs started longer ago than this (e.g. 720h)")
	cmd.Flags().IntVar(&pruneOpts.Keep, "keep", 0, "keep only the most recent N runs")
	return cmd
}

func openStore(opts *rootOptions) (*session.Store, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	store, err := session.Open(cfg.Transcripts.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript store: %w", err)
	}
	return store, nil
}

func writeRunTable(w io.Writer, runs []session.Transcript) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tPROVIDER\tOUTCOME\tITERATIONS\tPROMPT")
	for _, t := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			t.ID,
			t.StartedAt.Local().Format(time.DateTime),
			t.Provider,
			t.Outcome,
			t.Iterations,
			preview(t.Prompt, promptPreview),
		)
	}
	return tw.Flush()
}

func writeTranscript(w io.Writer, t session.Transcript) {
	fmt.Fprintf(w, "Run:        %s\n", t.ID)
	fmt.Fprintf(w, "Provider:   %s (%s)\n", t.Provider, t.Model)
	fmt.Fprintf(w, "Started:    %s\n", t.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "Duration:   %s\n", t.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "Outcome:    %s\n", t.Outcome)
	fmt.Fprintf(w, "Iterations: %d\n", t.Iterations)
	fmt.Fprintf(w, "Tokens:     %d in, %d out\n", t.InputTokens, t.OutputTokens)
	if t.Error != "" {
		fmt.Fprintf(w, "Error:      %s\n", t.Error)
	}

	for _, msg := range t.Messages {
		fmt.Fprintf(w, "\n[%s]\n", msg.Role)
		if msg.Content != "" {
			fmt.Fprintln(w, msg.Content)
		}
		for _, call := range msg.ToolCalls {
			fmt.Fprintf(w, "Calling function: %s(%s)\n", call.Name, compactJSON(call.Arguments))
		}
		for _, res := range msg.ToolResults {
			fmt.Fprintf(w, "%s -> %s\n", res.Name, res.Result)
		}
	}
}

// preview returns the first line of s cut to n runes.
func preview(s string, n int) string {
	s, _, _ = strings.Cut(s, "\n")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

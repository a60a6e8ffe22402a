package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"infinite-experiment/reconboard/internal/decoder"
	"infinite-experiment/reconboard/internal/models/entities"
	"infinite-experiment/reconboard/internal/services"
)

var (
	fieldMapFlag string
	waitFlag     bool
	intervalFlag time.Duration
	maxRowsFlag  int
)

var decodeCmd = &cobra.Command{
	Use:   "decode <file>",
	Short: "Decode a sample file into a table",
	Long: `Decodes a sample payload (compact JSON entries or CSV/TSV text).
Use - to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

var fieldsCmd = &cobra.Command{
	Use:   "fields <taskId>",
	Short: "List a task's output fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fields, _, err := provider.GetTaskFields(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, f := range fields {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		return nil
	},
}

var mappingsCmd = &cobra.Command{
	Use:   "mappings <playgroundId>",
	Short: "List the reconciliation mappings of a playground",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mappings, err := services.NewMappingStore(provider).ListByPlayground(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tLEFT TASK\tRIGHT TASK\tFIELD MAP")
		for _, m := range mappings {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.ID, m.LeftTaskID, m.RightTaskID, formatFieldMap(m.FieldMap))
		}
		return w.Flush()
	},
}

var runCmd = &cobra.Command{
	Use:   "run <mappingId>",
	Short: "Trigger a reconciliation run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runs := services.NewRunOrchestrator(provider)
		ack, err := runs.Trigger(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ack)

		if !waitFlag {
			return nil
		}
		snap, err := runs.WaitForTerminal(cmd.Context(), args[0], intervalFlag)
		if err != nil {
			return err
		}
		printRun(cmd.OutOrStdout(), snap)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <mappingId>",
	Short: "Show the latest run of a mapping",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := services.NewRunOrchestrator(provider).PollOnce(cmd.Context(), args[0])
		printRun(cmd.OutOrStdout(), snap)
		return err
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview <mappingId> <category>",
	Short: "Print a sample of common, leftExclusive or rightExclusive rows",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		category, err := entities.ParsePreviewCategory(args[1])
		if err != nil {
			return err
		}

		snap, err := services.NewRunOrchestrator(provider).PollOnce(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if snap.Phase != services.PhaseSucceeded {
			return fmt.Errorf("run for %s is %s, no samples yet", args[0], snap.Phase)
		}

		fm, err := parseFieldMap(fieldMapFlag)
		if err != nil {
			return err
		}

		fetcher := services.NewCachedSampleFetcher(provider, nil, 0, nil)
		cache := services.NewPreviewCache(fetcher, decoder.Options{MaxRows: previewRows()}, nil)
		view := cache.OpenView(cmd.Context(), args[0], *snap.Result, fm)
		defer cache.CloseAll()

		if !view.PreviewsEnabled() {
			return fmt.Errorf("previews are not available for %s runs", snap.Result.ReconciliationMethod)
		}
		state, err := view.Load(cmd.Context(), category)
		if err != nil {
			return err
		}
		if state.Error != "" {
			return fmt.Errorf("%s", state.Error)
		}
		if state.Data == nil {
			return fmt.Errorf("no %s sample for this run", category)
		}
		return printTable(cmd.OutOrStdout(), state.Data.Table)
	},
}

func init() {
	decodeCmd.Flags().StringVar(&fieldMapFlag, "field-map", "", "column names as left=right pairs, e.g. id=userId,amt=total")
	decodeCmd.Flags().IntVar(&maxRowsFlag, "max-rows", 0, "stop after this many rows (0 for the one million row ceiling)")
	previewCmd.Flags().StringVar(&fieldMapFlag, "field-map", "", "column names as left=right pairs")
	previewCmd.Flags().IntVar(&maxRowsFlag, "max-rows", 0, "stop after this many rows (defaults to preview.max_rows)")
	runCmd.Flags().BoolVar(&waitFlag, "wait", false, "poll until the run finishes")
	runCmd.Flags().DurationVar(&intervalFlag, "interval", 5*time.Second, "poll interval with --wait")
}

func runDecode(cmd *cobra.Command, args []string) error {
	var (
		data []byte
		err  error
	)
	if args[0] == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to read sample: %w", err)
	}

	fm, err := parseFieldMap(fieldMapFlag)
	if err != nil {
		return err
	}

	result := decoder.DecodeWithOptions(string(data), fm, decoder.Options{MaxRows: maxRowsFlag})
	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "compact encoding: %v\n", result.Compact)
	}
	return printTable(cmd.OutOrStdout(), result.Table)
}

func previewRows() int {
	if maxRowsFlag > 0 {
		return maxRowsFlag
	}
	return cfg.Preview.MaxRows
}

// parseFieldMap reads "a=b,c=d" keeping the written order.
func parseFieldMap(s string) (*entities.FieldMap, error) {
	fm := entities.NewFieldMap()
	if strings.TrimSpace(s) == "" {
		return fm, nil
	}
	for _, pair := range strings.Split(s, ",") {
		left, right, ok := strings.Cut(pair, "=")
		left, right = strings.TrimSpace(left), strings.TrimSpace(right)
		if !ok || left == "" || right == "" {
			return nil, fmt.Errorf("invalid field pair %q, want left=right", pair)
		}
		fm.Set(left, right)
	}
	return fm, nil
}

func formatFieldMap(fm *entities.FieldMap) string {
	pairs := fm.Pairs()
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.Left+"="+p.Right)
	}
	return strings.Join(parts, ",")
}

func printTable(out io.Writer, table entities.ParsedTable) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(table.Headers, "\t"))
	for _, row := range table.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	return w.Flush()
}

func printRun(out io.Writer, snap services.RunSnapshot) {
	fmt.Fprintf(out, "phase: %s\n", snap.Phase)
	if snap.Result == nil {
		return
	}
	r := snap.Result
	if r.Status.Known() {
		fmt.Fprintf(out, "status: %s\n", r.Status)
	} else {
		fmt.Fprintf(out, "status: %s (unrecognized)\n", r.Status)
	}
	if r.Message != "" {
		fmt.Fprintf(out, "message: %s\n", r.Message)
	}
	if r.ExecutionTimestamp != "" {
		fmt.Fprintf(out, "executed: %s\n", r.ExecutionTimestamp)
	}
	if r.ReconciliationMethod != "" {
		fmt.Fprintf(out, "method: %s\n", r.ReconciliationMethod)
	}
	fmt.Fprintf(out, "left rows: %s\n", entities.CountLabel(r.LeftFileRowCount))
	fmt.Fprintf(out, "right rows: %s\n", entities.CountLabel(r.RightFileRowCount))
	fmt.Fprintf(out, "common rows: %s (%s)\n", entities.CountLabel(r.CommonRowCount), r.ShareOf(r.CommonRowCount))
	fmt.Fprintf(out, "left only: %s\n", entities.CountLabel(r.LeftFileExclusiveRowCount))
	fmt.Fprintf(out, "right only: %s\n", entities.CountLabel(r.RightFileExclusiveRowCount))
	if pct, ok := r.MatchPercentage(); ok {
		fmt.Fprintf(out, "match: %.1f%%\n", pct)
	}
}

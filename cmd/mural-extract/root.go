package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/raine/mural-table-bot/internal/board"
	"github.com/raine/mural-table-bot/internal/mural"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type extractOptions struct {
	csvPath string
	jsonOut bool
	noSort  bool
	noCache bool
	dbPath  string
	verbose bool
}

func newRootCommand(newBackend backendFactory) *cobra.Command {
	var opts extractOptions

	rootCmd := &cobra.Command{
		Use:           "mural-extract [images...]",
		Short:         "Extract mural project records from screenshots",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd.ErrOrStderr(), opts.verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := newBackend(cmd.Context(), backendOptions{noCache: opts.noCache, dbPath: opts.dbPath})
			if err != nil {
				return err
			}
			defer b.close()
			return runExtract(cmd, b, args, opts)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log model calls")
	rootCmd.PersistentFlags().BoolVar(&opts.noCache, "no-cache", false, "Do not use the vision cache")
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "Cache database path (default MURAL_DB_PATH)")
	rootCmd.Flags().StringVar(&opts.csvPath, "csv", "", "Write the table as CSV to this file")
	rootCmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print records as JSON instead of a table")
	rootCmd.Flags().BoolVar(&opts.noSort, "no-sort", false, "Keep extraction order instead of sorting by date")

	rootCmd.AddCommand(newModelsCommand(newBackend, &opts))

	return rootCmd
}

func setupLogging(out io.Writer, verbose bool) {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: out}).Level(level)
}

func runExtract(cmd *cobra.Command, b *backend, paths []string, opts extractOptions) error {
	images := make([]board.Image, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		images = append(images, board.Image{Name: filepath.Base(path), Data: data, Err: err})
	}

	errOut := cmd.ErrOrStderr()
	tbl := board.New()
	report := board.NewProcessor(b.analyzer).Run(cmd.Context(), tbl, images, func(done, total int, o board.Outcome) {
		switch o.Status {
		case board.OutcomeFailed:
			fmt.Fprintf(errOut, "[%d/%d] ❌ %s: %s\n", done, total, o.Image, board.FailureReason(o.Err))
		case board.OutcomeEmpty:
			fmt.Fprintf(errOut, "[%d/%d] ⚠️ %s: %s\n", done, total, o.Image, board.MsgNoData)
		default:
			fmt.Fprintf(errOut, "[%d/%d] ✅ %s: %d kayıt\n", done, total, o.Image, o.Records)
		}
	})
	if err := cmd.Context().Err(); err != nil {
		return err
	}

	records := tbl.Records()
	if !opts.noSort {
		records = mural.SortByDate(records)
	}

	out := cmd.OutOrStdout()
	if opts.jsonOut {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(out, renderRecords(records))
	}
	fmt.Fprintf(errOut, "İşlem Tamamlandı! %d kayıt, %d hatalı görsel, maliyet $%.4f\n",
		report.Added(), len(report.Failed()), report.CostUSD)

	if opts.csvPath != "" {
		if err := writeCSVFile(opts.csvPath, records); err != nil {
			return err
		}
		fmt.Fprintf(errOut, "CSV: %s\n", opts.csvPath)
	}

	if len(report.Failed()) == len(images) {
		return fmt.Errorf("no image could be processed")
	}
	return nil
}

func renderRecords(records []mural.Record) string {
	columns := mural.Columns(records)
	headers := append([]string{"#"}, columns...)
	headers = append(headers, "Takvim")
	rows := make([][]string, 0, len(records))
	for i, r := range records {
		row := []string{fmt.Sprint(i + 1)}
		for _, col := range columns {
			value := r.Get(col)
			if col == mural.ColumnDate {
				value = r.DisplayDate()
			}
			row = append(row, strings.ReplaceAll(value, "\n", " "))
		}
		link := r.CalendarLink()
		if link == mural.CalendarLinkUnavailable {
			link = ""
		}
		rows = append(rows, append(row, link))
	}
	return renderTable(headers, rows)
}

func writeCSVFile(path string, records []mural.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := mural.WriteCSV(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

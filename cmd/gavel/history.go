// cmd/gavel/history.go
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/julianshen/gavel/internal/store"
	"github.com/julianshen/gavel/internal/verdict"
)

func historyCmd() *cobra.Command {
	var (
		limitFlag  int
		formatFlag string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past verification results",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			s, err := openHistory(cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			records, err := s.ListResults(limitFlag)
			if err != nil {
				return err
			}
			switch formatFlag {
			case "json":
				return writeHistoryJSON(os.Stdout, records)
			case "text", "":
				counts, err := s.CountByVerdict()
				if err != nil {
					return err
				}
				writeHistoryTable(os.Stdout, records, counts)
				return nil
			default:
				return fmt.Errorf("unknown history format %q (want text or json)", formatFlag)
			}
		},
	}

	cmd.Flags().IntVar(&limitFlag, "limit", 20, "number of results to show (0 for all)")
	cmd.Flags().StringVar(&formatFlag, "format", "text", "output format: text, json")

	return cmd
}

func writeHistoryJSON(w io.Writer, records []store.Record) error {
	if records == nil {
		records = []store.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

func writeHistoryTable(w io.Writer, records []store.Record, counts map[verdict.Verdict]int) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No verification history.")
		return
	}

	r := lipgloss.NewRenderer(w)
	header := r.NewStyle().Bold(true).Padding(0, 1)
	cell := r.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.NewStyle().Faint(true)).
		Headers("REPORT ID", "TIME", "VERDICT", "CONFIDENCE", "SOURCE", "MODEL").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
	for _, rec := range records {
		t.Row(rec.ReportID, rec.Timestamp, string(rec.Verdict), string(rec.Confidence), rec.Source, rec.Model)
	}

	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "Total: %d valid, %d invalid, %d errors\n",
		counts[verdict.Valid], counts[verdict.Invalid], counts[verdict.Error])
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ent0n29/responder/internal/records"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect filed patient records",
}

var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent records from the configured store",
	RunE:  runRecordsList,
}

var (
	recordsLimit int
	recordsJSON  bool
)

func init() {
	recordsListCmd.Flags().IntVar(&recordsLimit, "limit", 20, "maximum number of records")
	recordsListCmd.Flags().BoolVar(&recordsJSON, "json", false, "print records as JSON")
	recordsCmd.AddCommand(recordsListCmd)
	rootCmd.AddCommand(recordsCmd)
}

func runRecordsList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if recordsLimit < 1 {
		return fmt.Errorf("--limit must be at least 1")
	}

	ctx := context.Background()
	store, err := records.NewStore(ctx, records.Options{
		Backend:       cfg.RecordStore,
		DatabaseURL:   cfg.DatabaseURL,
		Table:         cfg.RecordTable,
		NotifyChannel: cfg.RecordNotifyChannel,
		SupabaseURL:   cfg.SupabaseURL,
		SupabaseKey:   cfg.SupabaseKey,
		SQLitePath:    cfg.SQLitePath,
	})
	if err != nil {
		return fmt.Errorf("record store init failed: %w", err)
	}
	defer store.Close()

	recs, err := store.Recent(ctx, recordsLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if recordsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	}
	if len(recs) == 0 {
		fmt.Fprintln(out, "No records found.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTIME\tPATIENT\tDESCRIPTION")
	for _, r := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Date, r.Time, r.SubjectName, oneLine(r.Description, 80))
	}
	return tw.Flush()
}

func oneLine(s string, limit int) string {
	runes := []rune(s)
	for i, r := range runes {
		if r == '\n' || r == '\r' {
			runes[i] = ' '
		}
	}
	if len(runes) > limit {
		return string(runes[:limit-1]) + "…"
	}
	return string(runes)
}

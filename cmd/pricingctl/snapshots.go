package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/codyseavey/vinyl-exchange/internal/models"
)

var refreshSource string

var refreshSnapshotsCmd = &cobra.Command{
	Use:   "refresh-snapshots [release-id]...",
	Short: "Refresh market snapshots from the external sources",
	Long: `Refresh market snapshots.

With release ids, each release is refreshed from every configured source (or
--source). Without arguments, one batch of missing or stale snapshots is refreshed,
the same work the server's scheduled refresher does.`,
	RunE: runRefreshSnapshots,
}

func init() {
	refreshSnapshotsCmd.Flags().StringVar(&refreshSource, "source", "", "Only refresh this source (discogs, ebay)")
}

func runRefreshSnapshots(cmd *cobra.Command, args []string) error {
	_, db, a, err := setup()
	if err != nil {
		return err
	}
	defer closeDB(db)

	ctx := cmd.Context()

	if len(args) == 0 {
		refresher := a.NewRefresher()
		updated, err := refresher.RefreshBatch(ctx)
		if err != nil {
			return err
		}
		status := refresher.GetStatus()
		if ok, err := printStructured(status); ok {
			return err
		}
		fmt.Printf("Refreshed %d snapshots (%d failed)\n", updated, len(status.Failed))
		for _, f := range status.Failed {
			fmt.Printf("  - %s (%s): %s\n", f.ReleaseID, f.Source, f.Reason)
		}
		return nil
	}

	sources := a.Market.Sources()
	if refreshSource != "" {
		src := models.MarketSource(refreshSource)
		if !src.IsSnapshotSource() {
			return fmt.Errorf("--source must be one of: discogs, ebay")
		}
		sources = []models.MarketSource{src}
	}

	var snapshots []models.MarketSnapshot
	failed := 0
	for _, id := range args {
		for _, src := range sources {
			snap, err := a.Market.RefreshSnapshot(ctx, id, src)
			if err != nil {
				failed++
				fmt.Fprintf(os.Stderr, "Failed to refresh %s for %s: %v\n", src, id, err)
				continue
			}
			snapshots = append(snapshots, *snap)
		}
	}

	if ok, err := printStructured(snapshots); ok {
		if err != nil {
			return err
		}
	} else {
		rows := make([][]string, 0, len(snapshots))
		for _, s := range snapshots {
			rows = append(rows, []string{
				s.ReleaseID, string(s.Source),
				optionalMoney(s.StatLow), optionalMoney(s.StatMedian), optionalMoney(s.StatHigh),
				s.FetchedAt.Format("2006-01-02 15:04"),
			})
		}
		printTable([]string{"release", "source", "low", "median", "high", "fetched"}, rows)
	}

	if failed > 0 {
		return fmt.Errorf("%d snapshot refreshes failed", failed)
	}
	return nil
}

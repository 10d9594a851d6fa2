package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/codyseavey/vinyl-exchange/internal/models"
	"github.com/codyseavey/vinyl-exchange/internal/services"
)

var verifyAuditCmd = &cobra.Command{
	Use:   "verify-audit <audit-id>...",
	Short: "Replay stored audit breakdowns and compare with the stored price",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runVerifyAudit,
}

var (
	exportReleaseID string
	exportPolicyID  string
	exportFile      string
)

var exportAuditsCmd = &cobra.Command{
	Use:   "export-audits",
	Short: "Export audit records to an xlsx workbook",
	RunE:  runExportAudits,
}

func init() {
	exportAuditsCmd.Flags().StringVar(&exportReleaseID, "release", "", "Only audits for this release")
	exportAuditsCmd.Flags().StringVar(&exportPolicyID, "policy", "", "Only audits for this policy")
	exportAuditsCmd.Flags().StringVarP(&exportFile, "file", "f", "pricing-audits.xlsx", "Output file")
}

func runVerifyAudit(cmd *cobra.Command, args []string) error {
	_, db, a, err := setup()
	if err != nil {
		return err
	}
	defer closeDB(db)

	results := make([]models.AuditVerification, 0, len(args))
	mismatches := 0
	for _, id := range args {
		v, err := a.Audits.Verify(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("audit %s: %w", id, err)
		}
		if !v.Matches {
			mismatches++
		}
		results = append(results, *v)
	}

	if ok, err := printStructured(results); ok {
		if err != nil {
			return err
		}
	} else {
		rows := make([][]string, 0, len(results))
		for _, v := range results {
			rows = append(rows, []string{v.AuditID, money(v.StoredPrice), money(v.RecomputedPrice), strconv.FormatBool(v.Matches)})
		}
		printTable([]string{"audit", "stored", "recomputed", "matches"}, rows)
	}

	if mismatches > 0 {
		return fmt.Errorf("%d of %d audit records do not reproduce their stored price", mismatches, len(results))
	}
	return nil
}

func runExportAudits(cmd *cobra.Command, args []string) error {
	if exportReleaseID == "" && exportPolicyID == "" {
		return fmt.Errorf("--release or --policy is required")
	}

	_, db, a, err := setup()
	if err != nil {
		return err
	}
	defer closeDB(db)

	f, err := os.Create(exportFile)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := a.Exporter.Export(cmd.Context(), services.AuditFilter{
		ReleaseID: exportReleaseID,
		PolicyID:  exportPolicyID,
	}, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Exported %d audit records to %s\n", n, exportFile)
	return nil
}

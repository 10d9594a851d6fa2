package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/codyseavey/vinyl-exchange/internal/models"
)

var (
	quotePolicyID string
	quoteMedia    string
	quoteSleeve   string
	quoteStrict   bool
)

var quoteCmd = &cobra.Command{
	Use:   "quote <release-id>",
	Short: "Compute a buy offer and sell price for a release",
	Long: `Compute a full quote for a release in the given condition.

Every quote writes two audit records, exactly as the HTTP API does.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuote,
}

func init() {
	quoteCmd.Flags().StringVar(&quotePolicyID, "policy", "", "Explicit policy id (default: resolved from release and genre)")
	quoteCmd.Flags().StringVar(&quoteMedia, "media", "NM", "Media condition grade")
	quoteCmd.Flags().StringVar(&quoteSleeve, "sleeve", "NM", "Sleeve condition grade")
	quoteCmd.Flags().BoolVar(&quoteStrict, "strict", true, "Reject unknown condition grades")
}

func runQuote(cmd *cobra.Command, args []string) error {
	_, db, a, err := setup()
	if err != nil {
		return err
	}
	defer closeDB(db)

	ctx := cmd.Context()
	if quoteStrict {
		if err := a.Conditions.ValidateConditions(ctx, quoteMedia, quoteSleeve); err != nil {
			return err
		}
	}

	req := models.QuoteRequest{
		ReleaseID:       args[0],
		ConditionMedia:  quoteMedia,
		ConditionSleeve: quoteSleeve,
	}
	if quotePolicyID != "" {
		req.PolicyID = &quotePolicyID
	}

	quote, err := a.Quotes.Quote(ctx, req)
	if err != nil {
		return err
	}

	if ok, err := printStructured(quote); ok {
		return err
	}

	rows := [][]string{
		quoteRow("buy_offer", quote.Breakdown.Buy, quote.AuditLogs.Buy),
		quoteRow("sell_price", quote.Breakdown.Sell, quote.AuditLogs.Sell),
	}
	printTable([]string{"type", "source", "market", "factor", "final", "review", "audit"}, rows)
	return nil
}

func quoteRow(label string, b models.PricingBreakdown, auditID string) []string {
	source := string(b.MarketSource)
	if b.ResolvedSource != nil {
		source = string(*b.ResolvedSource)
	}
	return []string{
		label,
		source,
		optionalMoney(b.BaseMarketPrice),
		strconv.FormatFloat(b.ConditionFactor, 'f', 4, 64),
		money(b.FinalPrice),
		strconv.FormatBool(b.RequiresManualReview),
		auditID,
	}
}

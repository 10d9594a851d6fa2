package services

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/codyseavey/vinyl-exchange/internal/models"
)

const auditSheet = "Audits"

var auditExportHeaders = []string{
	"Audit ID", "Created At", "Release ID", "Policy ID", "Policy Version",
	"Calculation Type", "Media", "Sleeve", "Market Source", "Market Stat",
	"Market Price", "Snapshot ID", "Live Fetch", "Formula %", "Condition Factor",
	"Before Rounding", "Rounding Increment", "Min Cap Applied", "Max Cap Applied",
	"Final Price", "Manual Review", "Warnings",
}

// AuditExporter writes audit records to an xlsx workbook
type AuditExporter struct {
	audits *AuditService
}

func NewAuditExporter(audits *AuditService) *AuditExporter {
	return &AuditExporter{audits: audits}
}

// Export writes every audit matching filter to w as an xlsx workbook and returns the row count
func (e *AuditExporter) Export(ctx context.Context, filter AuditFilter, w io.Writer) (int, error) {
	items, err := e.audits.Find(ctx, filter)
	if err != nil {
		return 0, err
	}

	f, err := buildAuditWorkbook(items)
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteTo(w); err != nil {
		return 0, fmt.Errorf("failed to write audit export: %w", err)
	}
	return len(items), nil
}

func buildAuditWorkbook(items []models.PricingCalculationAudit) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", auditSheet); err != nil {
		return nil, err
	}

	header := make([]interface{}, len(auditExportHeaders))
	for i, h := range auditExportHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(auditSheet, "A1", &header); err != nil {
		return nil, err
	}

	for i, a := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := auditRow(a)
		if err := f.SetSheetRow(auditSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	if err := f.SetPanes(auditSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, err
	}
	return f, nil
}

func auditRow(a models.PricingCalculationAudit) []interface{} {
	b := a.Breakdown
	warnings := ""
	for i, w := range b.Warnings {
		if i > 0 {
			warnings += "; "
		}
		warnings += w
	}
	return []interface{}{
		a.ID,
		a.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		a.ReleaseID,
		a.PolicyID,
		a.PolicyVersion,
		string(a.CalculationType),
		a.ConditionMedia,
		a.ConditionSleeve,
		string(b.MarketSource),
		string(b.MarketStat),
		optionalFloat(a.MarketPrice),
		optionalString(a.MarketSnapshotID),
		b.LiveFetch,
		b.FormulaPercentage,
		b.ConditionFactor,
		b.PriceBeforeRounding,
		b.RoundingIncrement,
		optionalFloat(b.AppliedCaps.MinCap),
		optionalFloat(b.AppliedCaps.MaxCap),
		a.CalculatedPrice,
		a.RequiresManualReview,
		warnings,
	}
}

func optionalFloat(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func optionalString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

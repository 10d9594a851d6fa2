package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/codyseavey/vinyl-exchange/internal/models"
	"github.com/codyseavey/vinyl-exchange/internal/testutil"
)

func TestAuditExport(t *testing.T) {
	env := newTestEnv(t)
	release := testutil.CreateRelease(t, env.db, "Jazz")
	other := testutil.CreateRelease(t, env.db, "Jazz")
	testutil.CreateSnapshot(t, env.db, release.ID, models.MarketSourceDiscogs, nil, testutil.Float(20), nil)
	policy := basePolicy(t, env, nil)

	calculate(t, env, release.ID, policy, "NM", "NM", models.CalculationBuyOffer)
	calculate(t, env, release.ID, policy, "VG", "VG+", models.CalculationSellPrice)
	calculate(t, env, other.ID, policy, "NM", "NM", models.CalculationBuyOffer)

	exporter := NewAuditExporter(env.audits)

	var buf bytes.Buffer
	n, err := exporter.Export(context.Background(), AuditFilter{ReleaseID: release.ID}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{auditSheet}, f.GetSheetList())
	rows, err := f.GetRows(auditSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus one row per audit")
	assert.Equal(t, auditExportHeaders, rows[0])
	for _, row := range rows[1:] {
		assert.Equal(t, release.ID, row[2])
		assert.Equal(t, policy.ID, row[3])
	}

	buf.Reset()
	n, err = exporter.Export(context.Background(), AuditFilter{PolicyID: policy.ID}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestAuditExportEmpty(t *testing.T) {
	env := newTestEnv(t)
	exporter := NewAuditExporter(env.audits)

	var buf bytes.Buffer
	n, err := exporter.Export(context.Background(), AuditFilter{ReleaseID: "missing"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(auditSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestAuditRowOptionalColumns(t *testing.T) {
	row := auditRow(models.PricingCalculationAudit{
		ID:        "a1",
		ReleaseID: "r1",
		Breakdown: models.PricingBreakdown{Warnings: []string{"one", "two"}},
	})
	require.Len(t, row, len(auditExportHeaders))
	assert.Equal(t, "", row[10], "missing market price exports blank")
	assert.Equal(t, "", row[11])
	assert.Equal(t, "one; two", row[len(row)-1])
}

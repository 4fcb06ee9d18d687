package normalize

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amazon-ads-analyzer/internal/loader"
	"amazon-ads-analyzer/internal/metrics"
	"amazon-ads-analyzer/internal/models"
)

// rawTable builds a loader.RawTable the way the loader types cells: plain
// numerics become number cells, everything else stays text.
func rawTable(headers []string, rows ...[]string) *loader.RawTable {
	t := &loader.RawTable{Source: "test.csv", Headers: headers}
	for i, rec := range rows {
		cells := map[string]loader.Cell{}
		for col, h := range headers {
			raw := ""
			if col < len(rec) {
				raw = rec[col]
			}
			switch {
			case raw == "":
				cells[h] = loader.Cell{Kind: loader.CellEmpty}
			default:
				if n, err := strconv.ParseFloat(raw, 64); err == nil {
					cells[h] = loader.Cell{Kind: loader.CellNumber, Number: n, Text: raw}
				} else {
					cells[h] = loader.Cell{Kind: loader.CellText, Text: raw}
				}
			}
		}
		t.Rows = append(t.Rows, loader.RawRow{Index: i + 2, Cells: cells})
	}
	return t
}

func campaignHeaders(spendHeader string) []string {
	return []string{"Campaign Name", "Impressions", "Clicks", spendHeader, "7 Day Total Sales (₹)", "7 Day Total Orders (#)"}
}

func TestAliasVariantsResolveToSameField(t *testing.T) {
	n := New(Options{})

	variants := []string{"Total Spend ($)", "spend", "Spend", " Spend "}
	var results []models.CampaignRecord
	for _, h := range variants {
		q := models.NewQualityReport()
		recs, err := n.Campaigns(rawTable(campaignHeaders(h),
			[]string{"Brand A", "1000", "50", "100", "300", "5"},
		), q)
		require.NoError(t, err, "header %q", h)
		require.Len(t, recs, 1)
		results = append(results, recs[0])
	}

	for _, rec := range results[1:] {
		assert.Equal(t, results[0].Base, rec.Base)
	}
	assert.Equal(t, 100.0, results[0].Base.Spend)
}

func TestCurrencyAndThousandsSeparatorCoercion(t *testing.T) {
	n := New(Options{})
	q := models.NewQualityReport()

	recs, err := n.Campaigns(rawTable(campaignHeaders("Spend"),
		[]string{"Brand A", "1000", "50", "₹1,234.50", "Rs.2,000", "5"},
	), q)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	assert.Equal(t, 1234.5, recs[0].Base.Spend)
	assert.Equal(t, 2000.0, recs[0].Base.Sales)
	assert.Empty(t, q.Issues, "well-formed currency is not an issue")
}

func TestPercentStringsBecomeFractions(t *testing.T) {
	n := New(Options{})
	q := models.NewQualityReport()

	headers := []string{"Customer Search Term", "Campaign Name", "Impressions", "Clicks", "Spend", "Sales", "Orders", "Search Term Impression Share", "Search Term Impression Rank"}
	recs, err := n.SearchTerms(rawTable(headers,
		[]string{"wireless charger", "Brand A", "500", "20", "10", "40", "2", "12.5%", "2"},
	), q)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	assert.InDelta(t, 0.125, recs[0].ImpressionShare, 1e-12)
	assert.Equal(t, 2, recs[0].ImpressionRank)
}

func TestGarbageNumericDefaultsToZeroAndIsReported(t *testing.T) {
	n := New(Options{})
	q := models.NewQualityReport()

	recs, err := n.Campaigns(rawTable(campaignHeaders("Spend"),
		[]string{"Brand A", "not-a-number", "50", "100", "300", "5"},
	), q)
	require.NoError(t, err)
	require.Len(t, recs, 1, "row is kept, cell defaulted")

	assert.Zero(t, recs[0].Base.Impressions)
	require.Len(t, q.Issues, 1)
	assert.Equal(t, FieldImpressions, q.Issues[0].Field)
	assert.False(t, q.Issues[0].Dropped)
	assert.Equal(t, 1, q.DefaultedRows["test.csv"])
}

func TestNegativeCountersAreClampedAndReported(t *testing.T) {
	n := New(Options{})
	q := models.NewQualityReport()

	recs, err := n.Campaigns(rawTable(campaignHeaders("Spend"),
		[]string{"Brand A", "1000", "-5", "100", "300", "5"},
	), q)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	assert.Zero(t, recs[0].Base.Clicks)
	require.Len(t, q.Issues, 1)
	assert.Equal(t, FieldClicks, q.Issues[0].Field)
}

func TestUnparseableDateDropsRowOnly(t *testing.T) {
	n := New(Options{})
	q := models.NewQualityReport()

	headers := append(campaignHeaders("Spend"), "Start Date")
	recs, err := n.Campaigns(rawTable(headers,
		[]string{"Brand A", "1000", "50", "100", "300", "5", "2024-03-01"},
		[]string{"Brand B", "200", "10", "50", "0", "0", "the third of march"},
	), q)
	require.NoError(t, err, "date errors never abort the batch")
	require.Len(t, recs, 1)

	assert.Equal(t, "Brand A", recs[0].CampaignName)
	require.NotNil(t, recs[0].Date)
	assert.Equal(t, "2024-03-01", recs[0].Date.Format("2006-01-02"))

	require.Len(t, q.Issues, 1)
	assert.True(t, q.Issues[0].Dropped)
	assert.Equal(t, 3, q.Issues[0].Row, "row index of the dropped row is recorded")
	assert.Equal(t, 1, q.DroppedRows["test.csv"])
}

func TestMissingRequiredColumnNamesKindAndField(t *testing.T) {
	n := New(Options{})
	q := models.NewQualityReport()

	_, err := n.Campaigns(rawTable(
		[]string{"Campaign Name", "Impressions", "Clicks", "7 Day Total Sales (₹)", "7 Day Total Orders (#)"},
		[]string{"Brand A", "1000", "50", "300", "5"},
	), q)
	require.Error(t, err)

	var missing *MissingColumnError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, KindCampaign, missing.Kind)
	assert.Equal(t, FieldSpend, missing.Field)
}

func TestMappingSkipsReferenceErrorRows(t *testing.T) {
	n := New(Options{})
	q := models.NewQualityReport()

	maps, err := n.Mappings(rawTable(
		[]string{"msku", "sku", "status"},
		[]string{"Brand A", "SKU-1", "active"},
		[]string{"Brand B", "SKU-2", "Reference Error: not found"},
		[]string{"", "SKU-3", "active"},
	), q)
	require.NoError(t, err)
	require.Len(t, maps, 1)

	assert.Equal(t, "Brand A", maps[0].CampaignName)
	assert.Equal(t, 2, q.DroppedRows["test.csv"])
}

func TestNormalizeThenDeriveIsIdempotent(t *testing.T) {
	n := New(Options{})
	table := rawTable(campaignHeaders("Spend"),
		[]string{"Brand A", "1000", "50", "₹100.00", "300", "5"},
		[]string{"Brand B", "200", "10", "50", "0", "0"},
	)

	run := func() []models.CampaignRecord {
		q := models.NewQualityReport()
		recs, err := n.Campaigns(table, q)
		require.NoError(t, err)
		return metrics.EnrichCampaigns(recs)
	}

	assert.Equal(t, run(), run())
}

func TestAliasOverridesExtendDefaults(t *testing.T) {
	aliases := DefaultAliases().Merge(AliasTable{FieldSpend: {"Ad Cost"}})
	n := New(Options{Aliases: aliases})
	q := models.NewQualityReport()

	recs, err := n.Campaigns(rawTable(campaignHeaders("Ad Cost"),
		[]string{"Brand A", "1000", "50", "100", "300", "5"},
	), q)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 100.0, recs[0].Base.Spend)
}

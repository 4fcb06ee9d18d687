package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amazon-ads-analyzer/internal/models"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testSources(t *testing.T) Sources {
	dir := t.TempDir()

	mapping := writeFile(t, dir, "mapping.csv",
		"msku,sku,status\n"+
			"Brand One,SKU-ONE,active\n"+
			"Brand Two,SKU-TWO,Reference Error: missing\n")

	campaigns := writeFile(t, dir, "campaigns.csv",
		"Campaign Name,Impressions,Clicks,Spend,7 Day Total Sales (₹),7 Day Total Orders (#)\n"+
			"Brand One,1000,50,100,300,5\n"+
			"Brand One,200,10,50,0,0\n"+
			"Brand Two,400,20,60,30,1\n")

	hourly := writeFile(t, dir, "hourly.csv",
		"Campaign Name,Start Time,Impressions,Clicks,Spend,7 Day Total Sales (₹),7 Day Total Orders (#)\n"+
			"Brand One,2024-03-01 09:00:00,100,5,10,30,1\n"+
			"Brand One,2024-03-01 21:00:00,200,8,15,20,1\n"+
			"Brand One,2024-03-02 09:00:00,150,6,12,36,2\n")

	terms := writeFile(t, dir, "terms.csv",
		"Customer Search Term,Campaign Name,Impressions,Clicks,Spend,Sales,Orders,Search Term Impression Share,Search Term Impression Rank\n"+
			"wireless charger,Brand One,500,20,10,40,2,0.05,2\n"+
			"usb cable,,100,2,1,0,0,0.4,8\n")

	products := writeFile(t, dir, "products.csv",
		"Advertised ASIN,Advertised SKU,Impressions,Clicks,Spend,Sales,Orders\n"+
			"B00AAA111,SKU-ONE,800,40,90,270,4\n"+
			"B00BBB222,SKU-GONE,100,5,10,5,0\n")

	return Sources{
		CampaignSummary:   campaigns,
		CampaignHourly:    hourly,
		SearchTermSummary: terms,
		ProductSummary:    products,
		SkuMapping:        mapping,
	}
}

func TestRunEndToEnd(t *testing.T) {
	var events []ProgressEvent
	rep, err := Run(Config{
		Sources:  testSources(t),
		Progress: func(ev ProgressEvent) { events = append(events, ev) },
	})
	require.NoError(t, err)
	require.NotNil(t, rep)

	// Campaign table: Brand One is the two-row aggregation scenario.
	campaigns := rep.TableByName(models.TableCampaigns)
	require.NotNil(t, campaigns)
	require.Len(t, campaigns.Rows, 2)

	one := campaigns.Rows[0]
	assert.Equal(t, "Brand One", one.Key)
	assert.Equal(t, models.Base{Impressions: 1200, Clicks: 60, Spend: 150, Sales: 300, Orders: 5}, one.Base)
	assert.InDelta(t, 2.0, one.Derived.ROAS, 1e-12)
	assert.InDelta(t, 0.5, one.Derived.ACOS, 1e-12)
	assert.InDelta(t, 0.05, one.Derived.CTR, 1e-12)
	assert.InDelta(t, 5.0/60.0, one.Derived.ConversionRate, 1e-12)
	assert.Equal(t, models.TierOver, one.Tier)

	// Brand Two's mapping row was a reference error, so its spend counts
	// as unmapped in the overview.
	assert.Equal(t, 60.0, rep.Overview.UnmappedSpend)
	assert.InDelta(t, 60.0/210.0, rep.Overview.UnmappedShare, 1e-12)
	assert.Equal(t, 210.0, rep.Overview.Base.Spend)

	// Daily trends out of the hourly export: two distinct dates, sorted.
	trends := rep.TableByName(models.TableDailyTrends)
	require.NotNil(t, trends)
	require.Len(t, trends.Rows, 2)
	assert.Equal(t, "2024-03-01", trends.Rows[0].Key)
	assert.Equal(t, 25.0, trends.Rows[0].Base.Spend)
	assert.Equal(t, "2024-03-02", trends.Rows[1].Key)

	// Hour-of-day roll-up: 09 gets both mornings.
	hourly := rep.TableByName(models.TableHourly)
	require.NotNil(t, hourly)
	require.Len(t, hourly.Rows, 2)
	assert.Equal(t, "09", hourly.Rows[0].Key)
	assert.Equal(t, 22.0, hourly.Rows[0].Base.Spend)
	assert.Equal(t, "21", hourly.Rows[1].Key)

	// Products: unmapped SKU is kept and reported, never dropped.
	products := rep.TableByName(models.TableProducts)
	require.NotNil(t, products)
	assert.Len(t, products.Rows, 2)

	// The top-ranked low-share term is an opportunity; the orphan is not.
	assert.Equal(t, []string{"wireless charger"}, rep.Insights.Opportunities)

	// Quality report carries the dropped mapping row.
	assert.Equal(t, 1, rep.Quality.DroppedRows[rep.Quality.Issues[0].Source])

	// Progress events cover load through done.
	require.NotEmpty(t, events)
	assert.Equal(t, "done", events[len(events)-1].Stage)
}

func TestRunFailsOnMissingRequiredSource(t *testing.T) {
	src := testSources(t)
	src.CampaignSummary = filepath.Join(t.TempDir(), "missing.csv")

	_, err := Run(Config{Sources: src})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "campaign summary source")
}

func TestRunToleratesMissingOptionalSources(t *testing.T) {
	src := testSources(t)
	src.CampaignHourly = filepath.Join(t.TempDir(), "missing-hourly.csv")
	src.SearchTermDaily = ""

	rep, err := Run(Config{Sources: src})
	require.NoError(t, err)
	assert.Contains(t, rep.Quality.EmptySources, src.CampaignHourly)

	trends := rep.TableByName(models.TableDailyTrends)
	require.NotNil(t, trends)
	assert.Empty(t, trends.Rows)
}

func TestRunIsDeterministic(t *testing.T) {
	src := testSources(t)

	first, err := Run(Config{Sources: src})
	require.NoError(t, err)
	second, err := Run(Config{Sources: src})
	require.NoError(t, err)

	assert.Equal(t, first.Tables, second.Tables)
	assert.Equal(t, first.Overview, second.Overview)
	assert.Equal(t, first.Insights, second.Insights)
}

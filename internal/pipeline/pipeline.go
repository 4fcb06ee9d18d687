// Package pipeline wires the stages together: load the six report sources,
// normalize them onto canonical records, join SKU metadata, derive metrics
// and aggregate the named output tables. One invocation is a single
// synchronous batch; callers wanting a responsive UI run it off their own
// goroutine.
package pipeline

import (
	"errors"
	"fmt"
	"log"
	"time"

	"amazon-ads-analyzer/internal/aggregate"
	"amazon-ads-analyzer/internal/join"
	"amazon-ads-analyzer/internal/loader"
	"amazon-ads-analyzer/internal/metrics"
	"amazon-ads-analyzer/internal/models"
	"amazon-ads-analyzer/internal/normalize"
)

// Sources are the report locators for one run. CampaignHourly and
// SearchTermDaily are optional; the rest are required and their absence is
// fatal for the run.
type Sources struct {
	CampaignSummary   string
	CampaignHourly    string
	SearchTermSummary string
	SearchTermDaily   string
	ProductSummary    string
	SkuMapping        string
}

// ProgressEvent reports pipeline progress for interactive frontends.
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// Config carries the per-run knobs. Zero-value options fall back to the
// package defaults.
type Config struct {
	Sources   Sources
	Loader    loader.Options
	Normalize normalize.Options
	Aggregate aggregate.Options
	Progress  func(ProgressEvent)
}

func (c *Config) emit(stage, format string, args ...interface{}) {
	if c.Progress != nil {
		c.Progress(ProgressEvent{Stage: stage, Message: fmt.Sprintf(format, args...)})
	}
}

// Run executes the full batch and returns the report for rendering.
func Run(cfg Config) (*models.Report, error) {
	quality := models.NewQualityReport()
	norm := normalize.New(cfg.Normalize)

	// Mapping first: the joiner needs it before any campaign rows exist.
	cfg.emit("load", "loading SKU mapping from %s", cfg.Sources.SkuMapping)
	mappingTable, err := loader.Load(cfg.Sources.SkuMapping, cfg.Loader)
	if err != nil {
		return nil, fmt.Errorf("sku mapping source: %w", err)
	}
	mappings, err := norm.Mappings(mappingTable, quality)
	if err != nil {
		return nil, err
	}
	idx := join.NewSkuIndex(mappings)
	log.Printf("Loaded %d SKU mappings", idx.Len())

	cfg.emit("load", "loading campaign summary from %s", cfg.Sources.CampaignSummary)
	campaigns, err := loadCampaigns(cfg, norm, cfg.Sources.CampaignSummary, quality)
	if err != nil {
		return nil, fmt.Errorf("campaign summary source: %w", err)
	}

	hourly, err := loadOptionalCampaigns(cfg, norm, cfg.Sources.CampaignHourly, quality)
	if err != nil {
		return nil, err
	}

	cfg.emit("load", "loading search terms from %s", cfg.Sources.SearchTermSummary)
	terms, err := loadSearchTerms(cfg, norm, cfg.Sources.SearchTermSummary, quality)
	if err != nil {
		return nil, fmt.Errorf("search term summary source: %w", err)
	}

	dailyTerms, err := loadOptionalSearchTerms(cfg, norm, cfg.Sources.SearchTermDaily, quality)
	if err != nil {
		return nil, err
	}

	cfg.emit("load", "loading product report from %s", cfg.Sources.ProductSummary)
	productTable, err := loader.Load(cfg.Sources.ProductSummary, cfg.Loader)
	if err != nil {
		return nil, fmt.Errorf("product summary source: %w", err)
	}
	products, err := norm.Products(productTable, quality)
	if err != nil {
		return nil, err
	}

	cfg.emit("join", "attaching SKU metadata")
	campaigns = metrics.EnrichCampaigns(idx.Campaigns(campaigns))
	hourly = metrics.EnrichCampaigns(idx.Campaigns(hourly))
	products = metrics.EnrichProducts(idx.Products(products))
	terms = metrics.EnrichSearchTerms(idx.SearchTerms(terms))
	dailyTerms = metrics.EnrichSearchTerms(idx.SearchTerms(dailyTerms))

	cfg.emit("aggregate", "building summary tables")
	report := &models.Report{
		GeneratedAt: time.Now(),
		Quality:     quality,
	}

	campaignRows := campaignKeyRows(campaigns, byCampaignName)
	report.Tables = append(report.Tables, models.Table{
		Name: models.TableCampaigns,
		Rows: aggregate.Summarize(campaignRows, cfg.Aggregate),
	})
	report.Tables = append(report.Tables, models.Table{
		Name: models.TableProducts,
		Rows: aggregate.Summarize(productKeyRows(products), cfg.Aggregate),
	})
	report.Tables = append(report.Tables, models.Table{
		Name: models.TableSearchTerms,
		Rows: aggregate.Summarize(searchTermKeyRows(terms), cfg.Aggregate),
	})

	// Daily trends come from the hourly campaign export; the daily search-term
	// export fills in when no hourly data was provided.
	trendRows := campaignKeyRows(hourly, byDate)
	if len(trendRows) == 0 {
		trendRows = searchTermDateRows(dailyTerms)
	}
	report.Tables = append(report.Tables, models.Table{
		Name: models.TableDailyTrends,
		Rows: aggregate.Summarize(trendRows, cfg.Aggregate),
	})
	report.Tables = append(report.Tables, models.Table{
		Name: models.TableHourly,
		Rows: aggregate.Summarize(campaignKeyRows(hourly, byHour), cfg.Aggregate),
	})

	total, derived := aggregate.Totals(campaignRows)
	report.Overview = models.Overview{
		Base:          total,
		Derived:       derived,
		UnmappedSpend: unmappedSpend(campaigns),
	}
	if total.Spend > 0 {
		report.Overview.UnmappedShare = report.Overview.UnmappedSpend / total.Spend
	}

	cfg.emit("insights", "deriving insights")
	report.Insights = buildInsights(report.TableByName(models.TableCampaigns).Rows, terms)

	cfg.emit("done", "pipeline complete: %d tables, %d quality issues",
		len(report.Tables), len(quality.Issues))
	return report, nil
}

func loadCampaigns(cfg Config, norm *normalize.Normalizer, locator string, q *models.QualityReport) ([]models.CampaignRecord, error) {
	table, err := loader.Load(locator, cfg.Loader)
	if err != nil {
		return nil, err
	}
	return norm.Campaigns(table, q)
}

// loadOptionalCampaigns tolerates a missing or empty optional source: the
// run continues without it, and the condition lands in the quality report.
func loadOptionalCampaigns(cfg Config, norm *normalize.Normalizer, locator string, q *models.QualityReport) ([]models.CampaignRecord, error) {
	if locator == "" {
		return nil, nil
	}
	table, err := loader.Load(locator, cfg.Loader)
	if err != nil {
		if errors.Is(err, loader.ErrSourceNotFound) || errors.Is(err, loader.ErrEmptySource) {
			log.Printf("Optional source skipped: %v", err)
			q.EmptySources = append(q.EmptySources, locator)
			return nil, nil
		}
		return nil, fmt.Errorf("campaign hourly source: %w", err)
	}
	return norm.Campaigns(table, q)
}

func loadSearchTerms(cfg Config, norm *normalize.Normalizer, locator string, q *models.QualityReport) ([]models.SearchTermRecord, error) {
	table, err := loader.Load(locator, cfg.Loader)
	if err != nil {
		return nil, err
	}
	return norm.SearchTerms(table, q)
}

func loadOptionalSearchTerms(cfg Config, norm *normalize.Normalizer, locator string, q *models.QualityReport) ([]models.SearchTermRecord, error) {
	if locator == "" {
		return nil, nil
	}
	table, err := loader.Load(locator, cfg.Loader)
	if err != nil {
		if errors.Is(err, loader.ErrSourceNotFound) || errors.Is(err, loader.ErrEmptySource) {
			log.Printf("Optional source skipped: %v", err)
			q.EmptySources = append(q.EmptySources, locator)
			return nil, nil
		}
		return nil, fmt.Errorf("search term daily source: %w", err)
	}
	return norm.SearchTerms(table, q)
}

// Key selectors for campaign records.

func byCampaignName(r models.CampaignRecord) string { return r.CampaignName }

func byDate(r models.CampaignRecord) string {
	if r.Date == nil {
		return ""
	}
	return r.Date.Format("2006-01-02")
}

// byHour keys ISO hour-of-day; zero-padded so lexicographic sort is
// chronological.
func byHour(r models.CampaignRecord) string {
	if r.Date == nil {
		return ""
	}
	return r.Date.Format("15")
}

func campaignKeyRows(records []models.CampaignRecord, key func(models.CampaignRecord) string) []aggregate.Row {
	rows := make([]aggregate.Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, aggregate.Row{Key: key(r), Base: r.Base})
	}
	return rows
}

func productKeyRows(records []models.ProductRecord) []aggregate.Row {
	rows := make([]aggregate.Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, aggregate.Row{Key: r.ASIN, Base: r.Base})
	}
	return rows
}

func searchTermDateRows(records []models.SearchTermRecord) []aggregate.Row {
	rows := make([]aggregate.Row, 0, len(records))
	for _, r := range records {
		key := ""
		if r.Date != nil {
			key = r.Date.Format("2006-01-02")
		}
		rows = append(rows, aggregate.Row{Key: key, Base: r.Base})
	}
	return rows
}

func searchTermKeyRows(records []models.SearchTermRecord) []aggregate.Row {
	rows := make([]aggregate.Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, aggregate.Row{Key: r.SearchTerm, Base: r.Base})
	}
	return rows
}

func unmappedSpend(records []models.CampaignRecord) float64 {
	var total float64
	for _, r := range records {
		if r.SKU == models.UnmappedSKU {
			total += r.Base.Spend
		}
	}
	return total
}

package models

import (
	"time"
)

// UnmappedSKU is the sentinel attached to records whose campaign or SKU has
// no entry in the mapping file. Unmatched records are kept, never dropped,
// so the share of spend on unmapped SKUs stays reportable.
const UnmappedSKU = "UNMAPPED"

// Base holds the raw counters shared by every record granularity.
type Base struct {
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Spend       float64 `json:"spend"`
	Sales       float64 `json:"sales"`
	Orders      int64   `json:"orders"`
}

// Add accumulates another set of counters into b.
func (b *Base) Add(o Base) {
	b.Impressions += o.Impressions
	b.Clicks += o.Clicks
	b.Spend += o.Spend
	b.Sales += o.Sales
	b.Orders += o.Orders
}

// Derived carries the ratios computed from Base counters. Every ratio is 0
// when its denominator is 0, never NaN or Inf.
type Derived struct {
	ROAS           float64 `json:"roas"`
	ACOS           float64 `json:"acos"`
	CTR            float64 `json:"ctr"`
	ConversionRate float64 `json:"conversion_rate"`
}

// CampaignRecord is one normalized campaign report row. Date is nil for
// summary-level exports and set for hourly/daily ones.
type CampaignRecord struct {
	CampaignID    string     `json:"campaign_id"`
	CampaignName  string     `json:"campaign_name"`
	Date          *time.Time `json:"date,omitempty"`
	Base          Base       `json:"base"`
	Derived       Derived    `json:"derived"`
	SKU           string     `json:"sku"`
	TargetingType string     `json:"targeting_type,omitempty"`
}

// ProductRecord is one normalized advertised-product report row.
type ProductRecord struct {
	ASIN    string  `json:"asin"`
	SKU     string  `json:"sku"`
	Base    Base    `json:"base"`
	Derived Derived `json:"derived"`
}

// SearchTermRecord is one normalized search-term report row.
// ImpressionRank and ImpressionShare are 0 when the export omits them.
type SearchTermRecord struct {
	SearchTerm      string     `json:"search_term"`
	CampaignName    string     `json:"campaign_name,omitempty"`
	Date            *time.Time `json:"date,omitempty"`
	Base            Base       `json:"base"`
	Derived         Derived    `json:"derived"`
	ImpressionRank  int        `json:"impression_rank,omitempty"`
	ImpressionShare float64    `json:"impression_share,omitempty"`
	SKU             string     `json:"sku"`
}

// SkuMapping maps a campaign name to its seller SKU and targeting type.
// Key is the case-normalized campaign name.
type SkuMapping struct {
	CampaignName  string `json:"campaign_name"`
	SKU           string `json:"sku"`
	TargetingType string `json:"targeting_type,omitempty"`
	Status        string `json:"status,omitempty"`
}

// Tier buckets a summary row by its ROAS against configured thresholds.
type Tier string

const (
	TierUnder    Tier = "under-performing"
	TierModerate Tier = "moderate"
	TierOver     Tier = "over-performing"
)

// SummaryRow is one aggregated row keyed by campaign, ASIN, search term,
// hour or date. Derived ratios are always recomputed from the summed
// counters, never averaged across source rows.
type SummaryRow struct {
	Key     string  `json:"key"`
	Base    Base    `json:"base"`
	Derived Derived `json:"derived"`
	Tier    Tier    `json:"tier"`
	Rows    int     `json:"rows"`
}

// Table is a named sequence of summary rows ready for a spreadsheet sheet
// or a dashboard panel.
type Table struct {
	Name string       `json:"name"`
	Rows []SummaryRow `json:"rows"`
}

// Overview holds the account-wide totals shown on the dashboard summary tab.
type Overview struct {
	Base          Base    `json:"base"`
	Derived       Derived `json:"derived"`
	UnmappedSpend float64 `json:"unmapped_spend"`
	UnmappedShare float64 `json:"unmapped_share"`
}

// Insights lists campaigns and search terms flagged for attention.
type Insights struct {
	HighImpressionLowSales []string `json:"high_impression_low_sales"`
	Overspending           []string `json:"overspending"`
	LowConversion          []string `json:"low_conversion"`
	Opportunities          []string `json:"opportunities"`
}

// RowIssue records one row-scoped normalization problem. Dropped and
// defaulted rows are reported, not silently discarded.
type RowIssue struct {
	Source string `json:"source"`
	Row    int    `json:"row"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason"`
	// Dropped is true when the row was excluded from the batch; false when
	// the offending cell was defaulted to zero and the row kept.
	Dropped bool `json:"dropped"`
}

// QualityReport accumulates per-run data-quality findings.
type QualityReport struct {
	Issues        []RowIssue     `json:"issues"`
	DroppedRows   map[string]int `json:"dropped_rows"`
	DefaultedRows map[string]int `json:"defaulted_rows"`
	EmptySources  []string       `json:"empty_sources"`
}

// NewQualityReport returns an empty report with initialized counters.
func NewQualityReport() *QualityReport {
	return &QualityReport{
		DroppedRows:   map[string]int{},
		DefaultedRows: map[string]int{},
	}
}

// Record appends an issue and bumps the matching per-source counter.
func (q *QualityReport) Record(issue RowIssue) {
	q.Issues = append(q.Issues, issue)
	if issue.Dropped {
		q.DroppedRows[issue.Source]++
	} else {
		q.DefaultedRows[issue.Source]++
	}
}

// Report is the full pipeline output handed to renderers.
type Report struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Overview    Overview       `json:"overview"`
	Tables      []Table        `json:"tables"`
	Insights    Insights       `json:"insights"`
	Quality     *QualityReport `json:"quality"`
}

// TableByName returns the named table, or nil when absent.
func (r *Report) TableByName(name string) *Table {
	for i := range r.Tables {
		if r.Tables[i].Name == name {
			return &r.Tables[i]
		}
	}
	return nil
}

// Names of the tables the pipeline always produces.
const (
	TableCampaigns   = "Campaign Performance"
	TableProducts    = "Product Performance"
	TableSearchTerms = "Search Term Performance"
	TableDailyTrends = "Daily Trends"
	TableHourly      = "Hourly Performance"
)

// AnalysisRun is the persisted record of one pipeline invocation.
type AnalysisRun struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	StartedAt     time.Time `json:"started_at"`
	DurationMS    int64     `json:"duration_ms"`
	TotalSpend    float64   `json:"total_spend"`
	TotalSales    float64   `json:"total_sales"`
	ROAS          float64   `json:"roas"`
	ACOS          float64   `json:"acos"`
	UnmappedShare float64   `json:"unmapped_share"`
	DroppedRows   int       `json:"dropped_rows"`
	DefaultedRows int       `json:"defaulted_rows"`
	ReportPath    string    `json:"report_path,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// RowIssueRecord persists a row-scoped quality issue for a run.
type RowIssueRecord struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	RunID     uint      `json:"run_id" gorm:"index;not null"`
	Source    string    `json:"source"`
	RowIndex  int       `json:"row_index"`
	Field     string    `json:"field"`
	Reason    string    `json:"reason"`
	Dropped   bool      `json:"dropped"`
	CreatedAt time.Time `json:"created_at"`
}

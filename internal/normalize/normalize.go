// Package normalize maps raw loaded tables onto the canonical record types.
// Column names are resolved through a tolerant alias table; cell values are
// coerced with currency, percent and date handling. Malformed cells never
// abort a batch: they are defaulted or the row is dropped, and every such
// decision lands in the run's quality report.
package normalize

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"amazon-ads-analyzer/internal/loader"
	"amazon-ads-analyzer/internal/models"
)

// Kind names a record type for error reporting.
type Kind string

const (
	KindCampaign   Kind = "campaign"
	KindSearchTerm Kind = "search_term"
	KindProduct    Kind = "product"
	KindMapping    Kind = "sku_mapping"
)

// MissingColumnError reports a required canonical field that no header in
// the source resolved to. This is fatal for that source's batch.
type MissingColumnError struct {
	Kind  Kind
	Field string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("%s source is missing required column %q", e.Kind, e.Field)
}

// DateParseError reports a date cell no accepted format matched. Row-scoped:
// the row is dropped and the batch continues.
type DateParseError struct {
	Source string
	Row    int
	Value  string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("%s row %d: unparseable date %q", e.Source, e.Row, e.Value)
}

// Options configures a Normalizer. Zero value uses the defaults.
type Options struct {
	Aliases     AliasTable
	DateFormats []string
}

// Normalizer converts raw tables into canonical records.
type Normalizer struct {
	res     resolver
	formats []string
}

func New(opts Options) *Normalizer {
	aliases := opts.Aliases
	if aliases == nil {
		aliases = DefaultAliases()
	}
	formats := opts.DateFormats
	if len(formats) == 0 {
		formats = loader.DefaultDateFormats
	}
	return &Normalizer{res: newResolver(aliases), formats: formats}
}

// Campaigns normalizes a campaign report table. Works for both summary and
// hourly exports; rows gain a date only when the source carries one.
func (n *Normalizer) Campaigns(t *loader.RawTable, q *models.QualityReport) ([]models.CampaignRecord, error) {
	cols, err := n.requireColumns(KindCampaign, t,
		FieldCampaignName, FieldImpressions, FieldClicks, FieldSpend, FieldSales, FieldOrders)
	if err != nil {
		return nil, err
	}

	var out []models.CampaignRecord
	for _, row := range t.Rows {
		date, ok := n.rowDate(t.Source, row, cols, q)
		if !ok {
			continue
		}
		rec := models.CampaignRecord{
			CampaignID:    n.text(row, cols[FieldCampaignID]),
			CampaignName:  n.text(row, cols[FieldCampaignName]),
			Date:          date,
			Base:          n.base(t.Source, row, cols, q),
			TargetingType: n.text(row, cols[FieldTargetingType]),
			SKU:           models.UnmappedSKU,
		}
		if rec.CampaignName == "" {
			q.Record(models.RowIssue{Source: t.Source, Row: row.Index, Field: FieldCampaignName,
				Reason: "empty campaign name", Dropped: true})
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// SearchTerms normalizes a search-term report table, summary or daily.
func (n *Normalizer) SearchTerms(t *loader.RawTable, q *models.QualityReport) ([]models.SearchTermRecord, error) {
	cols, err := n.requireColumns(KindSearchTerm, t,
		FieldSearchTerm, FieldImpressions, FieldClicks, FieldSpend, FieldSales, FieldOrders)
	if err != nil {
		return nil, err
	}

	var out []models.SearchTermRecord
	for _, row := range t.Rows {
		date, ok := n.rowDate(t.Source, row, cols, q)
		if !ok {
			continue
		}
		rec := models.SearchTermRecord{
			SearchTerm:   n.text(row, cols[FieldSearchTerm]),
			CampaignName: n.text(row, cols[FieldCampaignName]),
			Date:         date,
			Base:         n.base(t.Source, row, cols, q),
			SKU:          models.UnmappedSKU,
		}
		if rec.SearchTerm == "" {
			q.Record(models.RowIssue{Source: t.Source, Row: row.Index, Field: FieldSearchTerm,
				Reason: "empty search term", Dropped: true})
			continue
		}
		if col, found := cols[FieldImpressionRank]; found {
			rank := n.number(t.Source, row, col, FieldImpressionRank, q)
			if rank > 0 {
				rec.ImpressionRank = int(rank)
			}
		}
		if col, found := cols[FieldImpressionShare]; found {
			share := n.number(t.Source, row, col, FieldImpressionShare, q)
			// Some exports carry the share as 12.5 rather than 0.125.
			if share > 1 {
				share = share / 100
			}
			rec.ImpressionShare = share
		}
		out = append(out, rec)
	}
	return out, nil
}

// Products normalizes an advertised-product report table.
func (n *Normalizer) Products(t *loader.RawTable, q *models.QualityReport) ([]models.ProductRecord, error) {
	cols, err := n.requireColumns(KindProduct, t,
		FieldASIN, FieldImpressions, FieldClicks, FieldSpend, FieldSales, FieldOrders)
	if err != nil {
		return nil, err
	}

	var out []models.ProductRecord
	for _, row := range t.Rows {
		rec := models.ProductRecord{
			ASIN: n.text(row, cols[FieldASIN]),
			SKU:  n.text(row, cols[FieldSKU]),
			Base: n.base(t.Source, row, cols, q),
		}
		if rec.ASIN == "" {
			q.Record(models.RowIssue{Source: t.Source, Row: row.Index, Field: FieldASIN,
				Reason: "empty ASIN", Dropped: true})
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Mappings normalizes the campaign-to-SKU mapping table. Rows flagged with a
// reference-error status are dropped and reported.
func (n *Normalizer) Mappings(t *loader.RawTable, q *models.QualityReport) ([]models.SkuMapping, error) {
	resolved := n.res.resolve(t.Headers)
	nameCol := resolved[FieldMSKU]
	if nameCol == "" {
		nameCol = resolved[FieldCampaignName]
	}
	if nameCol == "" {
		return nil, &MissingColumnError{Kind: KindMapping, Field: FieldMSKU}
	}
	if resolved[FieldSKU] == "" {
		return nil, &MissingColumnError{Kind: KindMapping, Field: FieldSKU}
	}

	var out []models.SkuMapping
	for _, row := range t.Rows {
		m := models.SkuMapping{
			CampaignName:  n.text(row, nameCol),
			SKU:           n.text(row, resolved[FieldSKU]),
			TargetingType: n.text(row, resolved[FieldTargetingType]),
			Status:        n.text(row, resolved[FieldStatus]),
		}
		if m.CampaignName == "" || m.SKU == "" {
			q.Record(models.RowIssue{Source: t.Source, Row: row.Index,
				Reason: "mapping row missing campaign name or SKU", Dropped: true})
			continue
		}
		if strings.Contains(strings.ToLower(m.Status), "reference error") {
			q.Record(models.RowIssue{Source: t.Source, Row: row.Index, Field: FieldStatus,
				Reason: "reference error status", Dropped: true})
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// requireColumns resolves headers and fails on the first missing required
// field. Optional fields stay resolvable through the returned map.
func (n *Normalizer) requireColumns(kind Kind, t *loader.RawTable, required ...string) (map[string]string, error) {
	resolved := n.res.resolve(t.Headers)
	for _, field := range required {
		if resolved[field] == "" {
			return nil, &MissingColumnError{Kind: kind, Field: field}
		}
	}
	return resolved, nil
}

// base reads the five shared counters out of a row.
func (n *Normalizer) base(source string, row loader.RawRow, cols map[string]string, q *models.QualityReport) models.Base {
	return models.Base{
		Impressions: int64(n.counter(source, row, cols[FieldImpressions], FieldImpressions, q)),
		Clicks:      int64(n.counter(source, row, cols[FieldClicks], FieldClicks, q)),
		Spend:       n.counter(source, row, cols[FieldSpend], FieldSpend, q),
		Sales:       n.counter(source, row, cols[FieldSales], FieldSales, q),
		Orders:      int64(n.counter(source, row, cols[FieldOrders], FieldOrders, q)),
	}
}

// counter is number with the non-negative invariant enforced.
func (n *Normalizer) counter(source string, row loader.RawRow, col, field string, q *models.QualityReport) float64 {
	v := n.number(source, row, col, field, q)
	if v < 0 {
		q.Record(models.RowIssue{Source: source, Row: row.Index, Field: field,
			Reason: fmt.Sprintf("negative value %v clamped to 0", v)})
		return 0
	}
	return v
}

// number coerces a cell to a float. Missing cells default to 0 silently;
// garbage defaults to 0 with the row index recorded.
func (n *Normalizer) number(source string, row loader.RawRow, col, field string, q *models.QualityReport) float64 {
	if col == "" {
		return 0
	}
	cell, ok := row.Cells[col]
	if !ok || cell.Kind == loader.CellEmpty {
		return 0
	}
	switch cell.Kind {
	case loader.CellNumber:
		if math.IsNaN(cell.Number) || math.IsInf(cell.Number, 0) {
			return 0
		}
		return cell.Number
	case loader.CellText:
		if v, ok := parseNumeric(cell.Text); ok {
			return v
		}
	}
	q.Record(models.RowIssue{Source: source, Row: row.Index, Field: field,
		Reason: fmt.Sprintf("non-numeric value %q defaulted to 0", cell.String())})
	return 0
}

// text reads a cell as a trimmed string. col may be empty for optional fields.
func (n *Normalizer) text(row loader.RawRow, col string) string {
	if col == "" {
		return ""
	}
	cell, ok := row.Cells[col]
	if !ok {
		return ""
	}
	return strings.TrimSpace(cell.String())
}

// rowDate reads the optional date column. Returns ok=false when the row must
// be dropped because its date cell exists but cannot be parsed.
func (n *Normalizer) rowDate(source string, row loader.RawRow, cols map[string]string, q *models.QualityReport) (*time.Time, bool) {
	col := cols[FieldDate]
	if col == "" {
		col = cols[FieldStartTime]
	}
	if col == "" {
		return nil, true
	}
	cell, ok := row.Cells[col]
	if !ok || cell.Kind == loader.CellEmpty {
		return nil, true
	}
	if cell.Kind == loader.CellDate {
		d := cell.Date
		return &d, true
	}
	for _, layout := range n.formats {
		if t, err := time.Parse(layout, strings.TrimSpace(cell.Text)); err == nil {
			return &t, true
		}
	}
	derr := &DateParseError{Source: source, Row: row.Index, Value: cell.String()}
	q.Record(models.RowIssue{Source: source, Row: row.Index, Field: FieldDate,
		Reason: derr.Error(), Dropped: true})
	return nil, false
}

// currencyMarks are stripped before numeric parsing, longest first so "Rs."
// goes before the bare symbols.
var currencyMarks = []string{"Rs.", "₹", "$", "€", "£", ","}

// parseNumeric handles currency-formatted amounts and percent strings.
// "₹1,234.50" -> 1234.5, "12.5%" -> 0.125.
func parseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	percent := strings.HasSuffix(s, "%")
	s = strings.TrimSuffix(s, "%")
	for _, m := range currencyMarks {
		s = strings.ReplaceAll(s, m, "")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if percent {
		v /= 100
	}
	return v, true
}

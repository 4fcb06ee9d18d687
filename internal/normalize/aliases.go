package normalize

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Canonical field names shared across all record kinds.
const (
	FieldCampaignID      = "campaign_id"
	FieldCampaignName    = "campaign_name"
	FieldDate            = "date"
	FieldStartTime       = "start_time"
	FieldImpressions     = "impressions"
	FieldClicks          = "clicks"
	FieldSpend           = "spend"
	FieldSales           = "sales"
	FieldOrders          = "orders"
	FieldSearchTerm      = "search_term"
	FieldImpressionRank  = "impression_rank"
	FieldImpressionShare = "impression_share"
	FieldASIN            = "asin"
	FieldSKU             = "sku"
	FieldMSKU            = "msku"
	FieldTargetingType   = "targeting_type"
	FieldStatus          = "status"
)

// AliasTable maps canonical field names to the header variants seen across
// Amazon export flavors. Matching is case-, space- and punctuation-
// insensitive, so "Total Spend ($)" and "total spend" are one variant.
type AliasTable map[string][]string

// DefaultAliases covers the header variants of the known export formats.
func DefaultAliases() AliasTable {
	return AliasTable{
		FieldCampaignID:   {"Campaign ID"},
		FieldCampaignName: {"Campaign Name", "Campaign", "Campaigns"},
		FieldDate:         {"Date", "Start Date"},
		FieldStartTime:    {"Start Time"},
		FieldImpressions:  {"Impressions"},
		FieldClicks:       {"Clicks"},
		FieldSpend:        {"Spend", "Total Spend ($)", "Total Spend", "Cost"},
		FieldSales: {
			"Sales", "Total Sales",
			"7 Day Total Sales (₹)", "7 Day Total Sales ($)", "7 Day Total Sales",
			"14 Day Total Sales",
		},
		FieldOrders: {
			"Orders", "Total Orders",
			"7 Day Total Orders (#)", "7 Day Total Orders",
			"14 Day Total Orders",
		},
		FieldSearchTerm:      {"Customer Search Term", "Search Term"},
		FieldImpressionRank:  {"Search Term Impression Rank", "Impression Rank"},
		FieldImpressionShare: {"Search Term Impression Share", "Impression Share"},
		FieldASIN:            {"Advertised ASIN", "ASIN"},
		FieldSKU:             {"Advertised SKU", "SKU"},
		FieldMSKU:            {"MSKU"},
		FieldTargetingType:   {"Targeting Type", "Targeting", "Match Type"},
		FieldStatus:          {"Status"},
	}
}

// Merge returns a copy of the table with the override variants appended.
func (a AliasTable) Merge(overrides AliasTable) AliasTable {
	out := make(AliasTable, len(a))
	for field, variants := range a {
		out[field] = append([]string(nil), variants...)
	}
	for field, variants := range overrides {
		out[field] = append(out[field], variants...)
	}
	return out
}

// LoadAliasOverrides reads a JSON file of {"canonical_field": ["variant"]}
// entries used to extend the default table without a rebuild.
func LoadAliasOverrides(path string) (AliasTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading alias overrides %s: %w", path, err)
	}
	var table AliasTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing alias overrides %s: %w", path, err)
	}
	return table, nil
}

// foldHeader reduces a header to its comparable form: lowercase, letters and
// digits only. "7 Day Total Sales (₹)" -> "7daytotalsales".
func foldHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// resolver maps folded header variants back to canonical fields.
type resolver map[string]string

func newResolver(aliases AliasTable) resolver {
	r := resolver{}
	for field, variants := range aliases {
		r[foldHeader(field)] = field
		for _, v := range variants {
			r[foldHeader(v)] = field
		}
	}
	return r
}

// resolve maps actual table headers onto canonical fields. Unknown headers
// are ignored; duplicate matches keep the first header seen.
func (r resolver) resolve(headers []string) map[string]string {
	out := map[string]string{}
	for _, h := range headers {
		if h == "" {
			continue
		}
		if field, ok := r[foldHeader(h)]; ok {
			if _, seen := out[field]; !seen {
				out[field] = h
			}
		}
	}
	return out
}

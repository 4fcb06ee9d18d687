// Package join attaches SKU mapping metadata onto campaign, product and
// search-term records via precomputed O(1) lookups. Records that match
// nothing keep the UNMAPPED sentinel so downstream aggregation can report
// the share of spend with no SKU attribution.
package join

import (
	"strings"

	"amazon-ads-analyzer/internal/models"
)

// SkuIndex is a two-way lookup over the mapping table: by case-normalized
// campaign name and by exact SKU.
type SkuIndex struct {
	byCampaign map[string]models.SkuMapping
	bySKU      map[string]models.SkuMapping
}

// NewSkuIndex builds the index. Duplicate campaign names keep the first
// mapping seen, matching the unique-key contract of the mapping file.
func NewSkuIndex(mappings []models.SkuMapping) *SkuIndex {
	idx := &SkuIndex{
		byCampaign: make(map[string]models.SkuMapping, len(mappings)),
		bySKU:      make(map[string]models.SkuMapping, len(mappings)),
	}
	for _, m := range mappings {
		key := normalizeName(m.CampaignName)
		if _, ok := idx.byCampaign[key]; !ok {
			idx.byCampaign[key] = m
		}
		if _, ok := idx.bySKU[m.SKU]; !ok {
			idx.bySKU[m.SKU] = m
		}
	}
	return idx
}

// Len reports how many distinct campaign names the index holds.
func (idx *SkuIndex) Len() int { return len(idx.byCampaign) }

// ByCampaign looks up a mapping by campaign name, case-insensitively.
func (idx *SkuIndex) ByCampaign(name string) (models.SkuMapping, bool) {
	m, ok := idx.byCampaign[normalizeName(name)]
	return m, ok
}

// BySKU looks up a mapping by exact SKU.
func (idx *SkuIndex) BySKU(sku string) (models.SkuMapping, bool) {
	m, ok := idx.bySKU[sku]
	return m, ok
}

// Campaigns returns a copy of the records with SKU metadata attached by
// campaign-name match. Unmatched records keep the UNMAPPED sentinel.
func (idx *SkuIndex) Campaigns(records []models.CampaignRecord) []models.CampaignRecord {
	out := make([]models.CampaignRecord, len(records))
	for i, rec := range records {
		if m, ok := idx.ByCampaign(rec.CampaignName); ok {
			rec.SKU = m.SKU
			if rec.TargetingType == "" {
				rec.TargetingType = m.TargetingType
			}
		} else {
			rec.SKU = models.UnmappedSKU
		}
		out[i] = rec
	}
	return out
}

// Products returns a copy of the records resolved by direct SKU equality.
// Records whose export carried no SKU, or whose SKU has no mapping entry,
// are marked UNMAPPED rather than dropped.
func (idx *SkuIndex) Products(records []models.ProductRecord) []models.ProductRecord {
	out := make([]models.ProductRecord, len(records))
	for i, rec := range records {
		if rec.SKU == "" || rec.SKU == models.UnmappedSKU {
			rec.SKU = models.UnmappedSKU
		} else if _, ok := idx.BySKU(rec.SKU); !ok {
			rec.SKU = models.UnmappedSKU
		}
		out[i] = rec
	}
	return out
}

// SearchTerms attaches SKUs by the term's campaign name where present.
func (idx *SkuIndex) SearchTerms(records []models.SearchTermRecord) []models.SearchTermRecord {
	out := make([]models.SearchTermRecord, len(records))
	for i, rec := range records {
		if m, ok := idx.ByCampaign(rec.CampaignName); ok && rec.CampaignName != "" {
			rec.SKU = m.SKU
		} else {
			rec.SKU = models.UnmappedSKU
		}
		out[i] = rec
	}
	return out
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

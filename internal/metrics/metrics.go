// Package metrics derives advertising ratios from base counters. Derivation
// is a pure function: same counters in, bit-identical ratios out, and a zero
// denominator always clamps the corresponding ratio to 0 instead of raising
// or producing NaN/Inf.
package metrics

import (
	"amazon-ads-analyzer/internal/models"
)

// Derive computes ROAS, ACOS, CTR and conversion rate from base counters.
// ROAS and ACOS clamp independently: they are reciprocal only when both
// spend and sales are nonzero. That is the documented convention, not a
// mathematical identity.
func Derive(b models.Base) models.Derived {
	return models.Derived{
		ROAS:           ratio(b.Sales, b.Spend),
		ACOS:           ratio(b.Spend, b.Sales),
		CTR:            ratio(float64(b.Clicks), float64(b.Impressions)),
		ConversionRate: ratio(float64(b.Orders), float64(b.Clicks)),
	}
}

// EnrichCampaigns returns new records carrying derived metrics.
func EnrichCampaigns(records []models.CampaignRecord) []models.CampaignRecord {
	out := make([]models.CampaignRecord, len(records))
	for i, rec := range records {
		rec.Derived = Derive(rec.Base)
		out[i] = rec
	}
	return out
}

// EnrichProducts returns new records carrying derived metrics.
func EnrichProducts(records []models.ProductRecord) []models.ProductRecord {
	out := make([]models.ProductRecord, len(records))
	for i, rec := range records {
		rec.Derived = Derive(rec.Base)
		out[i] = rec
	}
	return out
}

// EnrichSearchTerms returns new records carrying derived metrics.
func EnrichSearchTerms(records []models.SearchTermRecord) []models.SearchTermRecord {
	out := make([]models.SearchTermRecord, len(records))
	for i, rec := range records {
		rec.Derived = Derive(rec.Base)
		out[i] = rec
	}
	return out
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

package pipeline

import (
	"amazon-ads-analyzer/internal/models"
)

// Opportunity cut points for search terms: a term ranking in the top three
// positions while winning under 10% of eligible impressions has headroom.
const (
	opportunityMaxRank  = 3
	opportunityMaxShare = 0.1
)

// buildInsights flags campaigns and search terms worth a second look. The
// campaign cuts compare each summary row against the mean of its cohort;
// overspending is the one absolute rule (ACOS above 1 means ad cost exceeds
// attributed sales).
func buildInsights(campaignRows []models.SummaryRow, terms []models.SearchTermRecord) models.Insights {
	var insights models.Insights
	if len(campaignRows) == 0 {
		insights.Opportunities = opportunityTerms(terms)
		return insights
	}

	var impressionSum, conversionSum float64
	for _, row := range campaignRows {
		impressionSum += float64(row.Base.Impressions)
		conversionSum += row.Derived.ConversionRate
	}
	meanImpressions := impressionSum / float64(len(campaignRows))
	meanConversion := conversionSum / float64(len(campaignRows))

	// Sales mean is taken over the high-impression cohort only: the signal
	// is "visible but not selling", not "small campaign".
	var high []models.SummaryRow
	var highSalesSum float64
	for _, row := range campaignRows {
		if float64(row.Base.Impressions) > meanImpressions {
			high = append(high, row)
			highSalesSum += row.Base.Sales
		}
	}
	if len(high) > 0 {
		meanHighSales := highSalesSum / float64(len(high))
		for _, row := range high {
			if row.Base.Sales < meanHighSales {
				insights.HighImpressionLowSales = append(insights.HighImpressionLowSales, row.Key)
			}
		}
	}

	for _, row := range campaignRows {
		if row.Derived.ACOS > 1.0 {
			insights.Overspending = append(insights.Overspending, row.Key)
		}
		if row.Derived.ConversionRate < meanConversion {
			insights.LowConversion = append(insights.LowConversion, row.Key)
		}
	}

	insights.Opportunities = opportunityTerms(terms)
	return insights
}

func opportunityTerms(terms []models.SearchTermRecord) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, t := range terms {
		if t.ImpressionRank == 0 || t.ImpressionRank > opportunityMaxRank {
			continue
		}
		if t.ImpressionShare >= opportunityMaxShare {
			continue
		}
		if _, ok := seen[t.SearchTerm]; ok {
			continue
		}
		seen[t.SearchTerm] = struct{}{}
		out = append(out, t.SearchTerm)
	}
	return out
}

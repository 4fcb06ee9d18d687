package join

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amazon-ads-analyzer/internal/models"
)

func testIndex() *SkuIndex {
	return NewSkuIndex([]models.SkuMapping{
		{CampaignName: "Brand Alpha", SKU: "SKU-ALPHA-01", TargetingType: "manual"},
		{CampaignName: "Brand Beta", SKU: "SKU-BETA-01"},
	})
}

func TestCampaignMatchIsCaseInsensitive(t *testing.T) {
	idx := testIndex()

	out := idx.Campaigns([]models.CampaignRecord{
		{CampaignName: "brand alpha"},
		{CampaignName: "BRAND BETA  "},
	})
	require.Len(t, out, 2)
	assert.Equal(t, "SKU-ALPHA-01", out[0].SKU)
	assert.Equal(t, "manual", out[0].TargetingType)
	assert.Equal(t, "SKU-BETA-01", out[1].SKU)
}

func TestUnmatchedCampaignKeepsSentinelAndIsCounted(t *testing.T) {
	idx := testIndex()

	in := []models.CampaignRecord{
		{CampaignName: "Brand Alpha", Base: models.Base{Spend: 80}},
		{CampaignName: "no such campaign", Base: models.Base{Spend: 20}},
	}
	out := idx.Campaigns(in)

	// Never dropped: both records survive, the unmatched one marked.
	require.Len(t, out, 2)
	assert.Equal(t, models.UnmappedSKU, out[1].SKU)

	var unmappedSpend float64
	for _, r := range out {
		if r.SKU == models.UnmappedSKU {
			unmappedSpend += r.Base.Spend
		}
	}
	assert.Equal(t, 20.0, unmappedSpend)
}

func TestProductsMatchBySKUEquality(t *testing.T) {
	idx := testIndex()

	out := idx.Products([]models.ProductRecord{
		{ASIN: "B0001", SKU: "SKU-ALPHA-01"},
		{ASIN: "B0002", SKU: "sku-alpha-01"}, // SKU match is exact, not case-folded
		{ASIN: "B0003", SKU: ""},
	})
	require.Len(t, out, 3)
	assert.Equal(t, "SKU-ALPHA-01", out[0].SKU)
	assert.Equal(t, models.UnmappedSKU, out[1].SKU)
	assert.Equal(t, models.UnmappedSKU, out[2].SKU)
}

func TestSearchTermsJoinThroughCampaignName(t *testing.T) {
	idx := testIndex()

	out := idx.SearchTerms([]models.SearchTermRecord{
		{SearchTerm: "alpha widget", CampaignName: "Brand Alpha"},
		{SearchTerm: "orphan term"},
	})
	require.Len(t, out, 2)
	assert.Equal(t, "SKU-ALPHA-01", out[0].SKU)
	assert.Equal(t, models.UnmappedSKU, out[1].SKU)
}

func TestDuplicateCampaignNamesKeepFirstMapping(t *testing.T) {
	idx := NewSkuIndex([]models.SkuMapping{
		{CampaignName: "Dup", SKU: "FIRST"},
		{CampaignName: "dup", SKU: "SECOND"},
	})
	m, ok := idx.ByCampaign("DUP")
	require.True(t, ok)
	assert.Equal(t, "FIRST", m.SKU)
	assert.Equal(t, 1, idx.Len())
}

package aggregate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amazon-ads-analyzer/internal/models"
)

func TestSummarizeSumsCountersPerKey(t *testing.T) {
	rows := []Row{
		{Key: "a", Base: models.Base{Impressions: 1000, Clicks: 50, Spend: 100, Sales: 300, Orders: 5}},
		{Key: "a", Base: models.Base{Impressions: 200, Clicks: 10, Spend: 50, Sales: 0, Orders: 0}},
		{Key: "b", Base: models.Base{Impressions: 10, Clicks: 1, Spend: 1, Sales: 2, Orders: 1}},
	}

	out := Summarize(rows, Options{})
	require.Len(t, out, 2)

	a := out[0]
	assert.Equal(t, "a", a.Key)
	assert.Equal(t, models.Base{Impressions: 1200, Clicks: 60, Spend: 150, Sales: 300, Orders: 5}, a.Base)
	assert.Equal(t, 2, a.Rows)

	// Ratios re-derived from the sums, per the end-to-end scenario:
	// ROAS=2.0, ACOS=0.5, CTR=0.05, conversion=5/60.
	assert.InDelta(t, 2.0, a.Derived.ROAS, 1e-12)
	assert.InDelta(t, 0.5, a.Derived.ACOS, 1e-12)
	assert.InDelta(t, 0.05, a.Derived.CTR, 1e-12)
	assert.InDelta(t, 5.0/60.0, a.Derived.ConversionRate, 1e-12)
}

func TestSummarizeWeightsBySummedCountersNotRowAverages(t *testing.T) {
	// Rows of wildly unequal weight. Averaging per-row ROAS would give
	// (0.5 + 2.0) / 2 = 1.25; the correct weighted result is
	// (5 + 2000) / (10 + 1000) ≈ 1.985.
	rows := []Row{
		{Key: "k", Base: models.Base{Spend: 10, Sales: 5}},
		{Key: "k", Base: models.Base{Spend: 1000, Sales: 2000}},
	}

	out := Summarize(rows, Options{})
	require.Len(t, out, 1)

	weighted := 2005.0 / 1010.0
	assert.InDelta(t, weighted, out[0].Derived.ROAS, 1e-12)
	assert.Greater(t, math.Abs(out[0].Derived.ROAS-1.25), 0.1)
}

func TestSummarizeIsStableAcrossRuns(t *testing.T) {
	rows := []Row{
		{Key: "zebra", Base: models.Base{Spend: 1}},
		{Key: "alpha", Base: models.Base{Spend: 2}},
		{Key: "mid", Base: models.Base{Spend: 3}},
	}

	first := Summarize(rows, Options{})
	second := Summarize(rows, Options{})
	assert.Equal(t, first, second)

	// Sorted by key, so output order is deterministic too.
	assert.Equal(t, "alpha", first[0].Key)
	assert.Equal(t, "mid", first[1].Key)
	assert.Equal(t, "zebra", first[2].Key)
}

func TestSummarizeUnattributedBucket(t *testing.T) {
	rows := []Row{
		{Key: "", Base: models.Base{Spend: 5}},
		{Key: "known", Base: models.Base{Spend: 10}},
	}

	out := Summarize(rows, Options{})
	require.Len(t, out, 2)
	assert.Equal(t, UnattributedKey, out[0].Key)
	assert.Equal(t, 5.0, out[0].Base.Spend)

	dropped := Summarize(rows, Options{DropUnattributed: true})
	require.Len(t, dropped, 1)
	assert.Equal(t, "known", dropped[0].Key)
}

func TestClassifyTiers(t *testing.T) {
	th := DefaultThresholds()

	tests := []struct {
		roas float64
		want models.Tier
	}{
		{0, models.TierUnder},
		{1.0, models.TierUnder},
		{1.5, models.TierModerate},
		{2.0, models.TierOver},
		{10, models.TierOver},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.roas, th), "roas=%v", tt.roas)
	}
}

func TestClassifyHonorsConfiguredThresholds(t *testing.T) {
	th := Thresholds{Low: 0.5, High: 4}
	assert.Equal(t, models.TierModerate, Classify(1.0, th))
	assert.Equal(t, models.TierOver, Classify(4.0, th))
	assert.Equal(t, models.TierUnder, Classify(0.5, th))
}

func TestTotals(t *testing.T) {
	rows := []Row{
		{Key: "a", Base: models.Base{Spend: 100, Sales: 300, Clicks: 50, Impressions: 1000, Orders: 5}},
		{Key: "b", Base: models.Base{Spend: 50, Sales: 0, Clicks: 10, Impressions: 200, Orders: 0}},
	}
	base, derived := Totals(rows)
	assert.Equal(t, 150.0, base.Spend)
	assert.InDelta(t, 2.0, derived.ROAS, 1e-12)
}

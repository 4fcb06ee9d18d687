// Package aggregate groups enriched records by a caller-chosen key and
// produces one summary row per distinct key. Ratios are always re-derived
// from the summed counters; averaging per-row ratios would weight a ten-rupee
// row the same as a ten-thousand-rupee one.
package aggregate

import (
	"sort"

	"amazon-ads-analyzer/internal/metrics"
	"amazon-ads-analyzer/internal/models"
)

// Thresholds are the ROAS cut points for performance tiers.
type Thresholds struct {
	Low  float64
	High float64
}

// DefaultThresholds are the standard ROAS bins: <= 1 under-performing,
// >= 2 over-performing.
func DefaultThresholds() Thresholds {
	return Thresholds{Low: 1.0, High: 2.0}
}

// UnattributedKey is the default bucket for search terms that carry no
// campaign identifier.
const UnattributedKey = "(unattributed)"

// Options controls grouping behavior.
type Options struct {
	Thresholds Thresholds
	// DropUnattributed excludes keyless rows instead of bucketing them.
	DropUnattributed bool
}

// Row is one keyed contribution to a summary. An empty Key marks an
// unattributed row.
type Row struct {
	Key  string
	Base models.Base
}

// Summarize groups rows by key, sums the counters and re-derives the ratios
// from the sums. Output is sorted by key so repeated runs over identical
// input produce identical tables.
func Summarize(rows []Row, opts Options) []models.SummaryRow {
	th := opts.Thresholds
	if th.Low == 0 && th.High == 0 {
		th = DefaultThresholds()
	}

	sums := map[string]*models.SummaryRow{}
	for _, r := range rows {
		key := r.Key
		if key == "" {
			if opts.DropUnattributed {
				continue
			}
			key = UnattributedKey
		}
		s, ok := sums[key]
		if !ok {
			s = &models.SummaryRow{Key: key}
			sums[key] = s
		}
		s.Base.Add(r.Base)
		s.Rows++
	}

	keys := make([]string, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]models.SummaryRow, 0, len(keys))
	for _, k := range keys {
		s := sums[k]
		s.Derived = metrics.Derive(s.Base)
		s.Tier = Classify(s.Derived.ROAS, th)
		out = append(out, *s)
	}
	return out
}

// Classify buckets a ROAS value against the thresholds.
func Classify(roas float64, th Thresholds) models.Tier {
	switch {
	case roas <= th.Low:
		return models.TierUnder
	case roas >= th.High:
		return models.TierOver
	default:
		return models.TierModerate
	}
}

// Totals sums every row's counters and derives account-wide ratios.
func Totals(rows []Row) (models.Base, models.Derived) {
	var total models.Base
	for _, r := range rows {
		total.Add(r.Base)
	}
	return total, metrics.Derive(total)
}

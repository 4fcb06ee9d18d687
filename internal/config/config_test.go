package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 1.0, cfg.TierLow)
	assert.Equal(t, 2.0, cfg.TierHigh)
	assert.False(t, cfg.DropUnattributed)
	assert.Empty(t, cfg.DateFormats)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("TIER_HIGH", "3.5")
	t.Setenv("TIER_LOW", "not-a-number")
	t.Setenv("DATE_FORMATS", "02-01-2006, 2006/01/02 ,")
	t.Setenv("DROP_UNATTRIBUTED_TERMS", "true")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 3.5, cfg.TierHigh)
	assert.Equal(t, 1.0, cfg.TierLow, "unparseable float falls back to the default")
	assert.Equal(t, []string{"02-01-2006", "2006/01/02"}, cfg.DateFormats)
	assert.True(t, cfg.DropUnattributed)
}

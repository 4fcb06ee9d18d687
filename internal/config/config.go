package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	DatabaseURL string
	Port        string
	Environment string

	// Source locators. Each may be a local path or an http(s) URL and may
	// point at either an .xlsx or a .csv export.
	CampaignReport    string
	CampaignHourly    string
	SearchTermReport  string
	SearchTermDaily   string
	ProductReport     string
	SkuMappingFile    string

	// Output
	ReportsDir string
	WebDir     string

	// Aggregation tier thresholds (ROAS)
	TierLow  float64
	TierHigh float64

	// Optional JSON file overriding the built-in header alias table
	AliasOverrides string

	// Extra date layouts tried ahead of the built-in list
	DateFormats []string

	// When true, search terms without a campaign name are excluded from
	// campaign roll-ups instead of being bucketed under "(unattributed)".
	DropUnattributed bool
}

func Load() *Config {
	return &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		CampaignReport:   getEnv("CAMPAIGN_REPORT", "data/campaign_reports/campaign_summary.xlsx"),
		CampaignHourly:   getEnv("CAMPAIGN_HOURLY_REPORT", "data/campaign_reports/campaign_hourly.csv"),
		SearchTermReport: getEnv("SEARCH_TERM_REPORT", "data/search_terms/search_term_summary.csv"),
		SearchTermDaily:  getEnv("SEARCH_TERM_DAILY_REPORT", "data/search_terms/search_term_daily.csv"),
		ProductReport:    getEnv("PRODUCT_REPORT", "data/products/advertised_product_summary.xlsx"),
		SkuMappingFile:   getEnv("SKU_MAPPING_FILE", "data/mappings/msku_to_sku.xlsx"),

		ReportsDir: getEnv("REPORTS_DIR", "reports"),
		WebDir:     getEnv("WEB_DIR", "./web/build"),

		TierLow:  getEnvFloat("TIER_LOW", 1.0),
		TierHigh: getEnvFloat("TIER_HIGH", 2.0),

		AliasOverrides:   getEnv("ALIAS_OVERRIDES", ""),
		DateFormats:      getEnvList("DATE_FORMATS"),
		DropUnattributed: getEnv("DROP_UNATTRIBUTED_TERMS", "false") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"amazon-ads-analyzer/internal/aggregate"
	"amazon-ads-analyzer/internal/config"
	"amazon-ads-analyzer/internal/database"
	"amazon-ads-analyzer/internal/loader"
	"amazon-ads-analyzer/internal/models"
	"amazon-ads-analyzer/internal/normalize"
	"amazon-ads-analyzer/internal/pipeline"
	"amazon-ads-analyzer/internal/report"
)

var (
	campaignFile   = flag.String("campaign", "", "campaign summary report path (overrides CAMPAIGN_REPORT)")
	hourlyFile     = flag.String("hourly", "", "hourly campaign report path (overrides CAMPAIGN_HOURLY_REPORT)")
	searchFile     = flag.String("search-terms", "", "search term summary report path")
	searchDaily    = flag.String("search-terms-daily", "", "daily search term report path")
	productFile    = flag.String("products", "", "advertised product report path")
	mappingFile    = flag.String("mapping", "", "SKU mapping file path")
	outputDir      = flag.String("output", "", "directory for the generated XLSX report")
	tierLow        = flag.Float64("tier-low", 0, "ROAS at or under which a row is under-performing")
	tierHigh       = flag.Float64("tier-high", 0, "ROAS at or over which a row is over-performing")
	verbose        = flag.Bool("verbose", false, "print every summary table")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	cfg := config.Load()
	applyFlags(cfg)

	pcfg, err := buildPipelineConfig(cfg)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	started := time.Now()
	log.Println("Starting campaign analysis...")
	rep, err := pipeline.Run(pcfg)
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}

	printOverview(rep)
	if *verbose {
		for _, table := range rep.Tables {
			printTable(table)
		}
	}
	printQuality(rep.Quality)

	if err := os.MkdirAll(cfg.ReportsDir, 0o755); err != nil {
		log.Fatalf("Cannot create reports directory: %v", err)
	}
	outPath := filepath.Join(cfg.ReportsDir,
		fmt.Sprintf("campaign_analysis_%s.xlsx", time.Now().Format("20060102_150405")))
	if err := report.WriteXLSX(outPath, rep); err != nil {
		log.Fatalf("Failed to export report: %v", err)
	}
	log.Printf("Report exported to %s", outPath)

	// Persist the run when a store is configured; skipped otherwise.
	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Printf("Run history store unavailable: %v", err)
	} else {
		database.SaveRun(db, rep, started, outPath)
	}
}

func applyFlags(cfg *config.Config) {
	if *campaignFile != "" {
		cfg.CampaignReport = *campaignFile
	}
	if *hourlyFile != "" {
		cfg.CampaignHourly = *hourlyFile
	}
	if *searchFile != "" {
		cfg.SearchTermReport = *searchFile
	}
	if *searchDaily != "" {
		cfg.SearchTermDaily = *searchDaily
	}
	if *productFile != "" {
		cfg.ProductReport = *productFile
	}
	if *mappingFile != "" {
		cfg.SkuMappingFile = *mappingFile
	}
	if *outputDir != "" {
		cfg.ReportsDir = *outputDir
	}
	if *tierLow != 0 {
		cfg.TierLow = *tierLow
	}
	if *tierHigh != 0 {
		cfg.TierHigh = *tierHigh
	}
}

func buildPipelineConfig(cfg *config.Config) (pipeline.Config, error) {
	aliases := normalize.DefaultAliases()
	if cfg.AliasOverrides != "" {
		overrides, err := normalize.LoadAliasOverrides(cfg.AliasOverrides)
		if err != nil {
			return pipeline.Config{}, err
		}
		aliases = aliases.Merge(overrides)
	}
	pcfg := pipeline.Config{
		Sources: pipeline.Sources{
			CampaignSummary:   cfg.CampaignReport,
			CampaignHourly:    cfg.CampaignHourly,
			SearchTermSummary: cfg.SearchTermReport,
			SearchTermDaily:   cfg.SearchTermDaily,
			ProductSummary:    cfg.ProductReport,
			SkuMapping:        cfg.SkuMappingFile,
		},
		Normalize: normalize.Options{Aliases: aliases},
		Aggregate: aggregate.Options{
			Thresholds:       aggregate.Thresholds{Low: cfg.TierLow, High: cfg.TierHigh},
			DropUnattributed: cfg.DropUnattributed,
		},
	}
	if len(cfg.DateFormats) > 0 {
		formats := append(append([]string(nil), cfg.DateFormats...), loader.DefaultDateFormats...)
		pcfg.Loader.DateFormats = formats
		pcfg.Normalize.DateFormats = formats
	}
	return pcfg, nil
}

func printOverview(rep *models.Report) {
	o := rep.Overview
	fmt.Println("\nOverall Campaign Metrics:")
	fmt.Printf("  Total Spend:       %.2f\n", o.Base.Spend)
	fmt.Printf("  Total Sales:       %.2f\n", o.Base.Sales)
	fmt.Printf("  Total Impressions: %d\n", o.Base.Impressions)
	fmt.Printf("  Total Clicks:      %d\n", o.Base.Clicks)
	fmt.Printf("  Total Orders:      %d\n", o.Base.Orders)
	fmt.Printf("  ROAS:              %.2f\n", o.Derived.ROAS)
	fmt.Printf("  ACOS:              %.2f%%\n", o.Derived.ACOS*100)
	fmt.Printf("  CTR:               %.2f%%\n", o.Derived.CTR*100)
	fmt.Printf("  Conversion Rate:   %.2f%%\n", o.Derived.ConversionRate*100)
	fmt.Printf("  Unmapped Spend:    %.2f (%.1f%%)\n", o.UnmappedSpend, o.UnmappedShare*100)
}

func printTable(table models.Table) {
	fmt.Printf("\n%s (%d rows):\n", table.Name, len(table.Rows))
	for _, row := range table.Rows {
		fmt.Printf("  %-40s spend=%.2f sales=%.2f roas=%.2f [%s]\n",
			row.Key, row.Base.Spend, row.Base.Sales, row.Derived.ROAS, row.Tier)
	}
}

func printQuality(q *models.QualityReport) {
	if q == nil || len(q.Issues) == 0 {
		return
	}
	dropped, defaulted := 0, 0
	for _, n := range q.DroppedRows {
		dropped += n
	}
	for _, n := range q.DefaultedRows {
		defaulted += n
	}
	log.Printf("Data quality: %d rows dropped, %d cells defaulted across %d issues",
		dropped, defaulted, len(q.Issues))
	for _, src := range q.EmptySources {
		log.Printf("  optional source skipped: %s", src)
	}
}

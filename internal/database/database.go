package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"amazon-ads-analyzer/internal/models"
)

// Initialize opens the MySQL run-history store and migrates its tables.
// The store is optional: callers pass an empty DSN to run store-less.
func Initialize(databaseURL string) (*gorm.DB, error) {
	if databaseURL == "" {
		return nil, nil
	}

	db, err := gorm.Open(mysql.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&models.AnalysisRun{}, &models.RowIssueRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate run history tables: %w", err)
	}

	log.Println("Run history store initialized")
	return db, nil
}

// SaveRun persists one pipeline invocation and its row-scoped issues.
// Failures are logged, not fatal: the store is best-effort by contract.
func SaveRun(db *gorm.DB, report *models.Report, started time.Time, reportPath string) {
	if db == nil {
		return
	}

	run := models.AnalysisRun{
		StartedAt:     started,
		DurationMS:    time.Since(started).Milliseconds(),
		TotalSpend:    report.Overview.Base.Spend,
		TotalSales:    report.Overview.Base.Sales,
		ROAS:          report.Overview.Derived.ROAS,
		ACOS:          report.Overview.Derived.ACOS,
		UnmappedShare: report.Overview.UnmappedShare,
		ReportPath:    reportPath,
	}
	for _, n := range report.Quality.DroppedRows {
		run.DroppedRows += n
	}
	for _, n := range report.Quality.DefaultedRows {
		run.DefaultedRows += n
	}
	if err := db.Create(&run).Error; err != nil {
		log.Printf("Failed to save analysis run: %v", err)
		return
	}

	if len(report.Quality.Issues) > 0 {
		issues := make([]models.RowIssueRecord, 0, len(report.Quality.Issues))
		for _, issue := range report.Quality.Issues {
			issues = append(issues, models.RowIssueRecord{
				RunID:    run.ID,
				Source:   issue.Source,
				RowIndex: issue.Row,
				Field:    issue.Field,
				Reason:   issue.Reason,
				Dropped:  issue.Dropped,
			})
		}
		if err := db.CreateInBatches(issues, 200).Error; err != nil {
			log.Printf("Failed to save run issues: %v", err)
		}
	}
}

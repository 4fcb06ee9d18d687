package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"amazon-ads-analyzer/internal/aggregate"
	"amazon-ads-analyzer/internal/config"
	"amazon-ads-analyzer/internal/database"
	"amazon-ads-analyzer/internal/loader"
	"amazon-ads-analyzer/internal/models"
	"amazon-ads-analyzer/internal/normalize"
	"amazon-ads-analyzer/internal/pipeline"
	"amazon-ads-analyzer/internal/report"
)

type APIHandler struct {
	db  *gorm.DB
	cfg *config.Config
	hub *wsHub

	mu      sync.RWMutex
	latest  *models.Report
	running bool
}

func SetupRoutes(r *gin.RouterGroup, db *gorm.DB, cfg *config.Config) *APIHandler {
	handler := &APIHandler{
		db:  db,
		cfg: cfg,
		hub: newWSHub(),
	}

	analysis := r.Group("/analysis")
	{
		analysis.POST("/run", handler.RunAnalysis)
		analysis.GET("/status", handler.AnalysisStatus)
	}

	// Aggregated tables, one endpoint per dashboard tab
	r.GET("/summary", handler.GetSummary)
	r.GET("/campaigns", handler.tableHandler(models.TableCampaigns))
	r.GET("/products", handler.tableHandler(models.TableProducts))
	r.GET("/search-terms", handler.tableHandler(models.TableSearchTerms))
	r.GET("/trends", handler.tableHandler(models.TableDailyTrends))
	r.GET("/hourly", handler.tableHandler(models.TableHourly))
	r.GET("/insights", handler.GetInsights)
	r.GET("/quality", handler.GetQuality)

	r.GET("/report", handler.DownloadReport)
	r.GET("/runs", handler.ListRuns)

	return handler
}

// pipelineConfig assembles a run config from the service configuration.
func (h *APIHandler) pipelineConfig() (pipeline.Config, error) {
	aliases := normalize.DefaultAliases()
	if h.cfg.AliasOverrides != "" {
		overrides, err := normalize.LoadAliasOverrides(h.cfg.AliasOverrides)
		if err != nil {
			return pipeline.Config{}, err
		}
		aliases = aliases.Merge(overrides)
	}

	cfg := pipeline.Config{
		Sources: pipeline.Sources{
			CampaignSummary:   h.cfg.CampaignReport,
			CampaignHourly:    h.cfg.CampaignHourly,
			SearchTermSummary: h.cfg.SearchTermReport,
			SearchTermDaily:   h.cfg.SearchTermDaily,
			ProductSummary:    h.cfg.ProductReport,
			SkuMapping:        h.cfg.SkuMappingFile,
		},
		Normalize: normalize.Options{Aliases: aliases},
		Aggregate: aggregate.Options{
			Thresholds:       aggregate.Thresholds{Low: h.cfg.TierLow, High: h.cfg.TierHigh},
			DropUnattributed: h.cfg.DropUnattributed,
		},
		Progress: h.hub.broadcast,
	}
	if len(h.cfg.DateFormats) > 0 {
		formats := append(append([]string(nil), h.cfg.DateFormats...), loader.DefaultDateFormats...)
		cfg.Loader.DateFormats = formats
		cfg.Normalize.DateFormats = formats
	}
	return cfg, nil
}

// RunAnalysis kicks off a pipeline run in the background. Progress streams
// over the websocket; the HTTP response only acknowledges the start.
func (h *APIHandler) RunAnalysis(c *gin.Context) {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "analysis already running"})
		return
	}
	h.running = true
	h.mu.Unlock()

	cfg, err := h.pipelineConfig()
	if err != nil {
		h.setRunning(false)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	go func() {
		started := time.Now()
		rep, err := pipeline.Run(cfg)
		if err != nil {
			h.setRunning(false)
			h.hub.broadcast(pipeline.ProgressEvent{Stage: "error", Message: describePipelineError(err)})
			return
		}
		h.mu.Lock()
		h.latest = rep
		h.running = false
		h.mu.Unlock()
		database.SaveRun(h.db, rep, started, "")
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

func (h *APIHandler) AnalysisStatus(c *gin.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	status := gin.H{"running": h.running, "has_report": h.latest != nil}
	if h.latest != nil {
		status["generated_at"] = h.latest.GeneratedAt
	}
	c.JSON(http.StatusOK, status)
}

func (h *APIHandler) GetSummary(c *gin.Context) {
	rep, ok := h.report(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rep.Overview)
}

func (h *APIHandler) tableHandler(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rep, ok := h.report(c)
		if !ok {
			return
		}
		table := rep.TableByName(name)
		if table == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("table %q not available", name)})
			return
		}
		c.JSON(http.StatusOK, table)
	}
}

func (h *APIHandler) GetInsights(c *gin.Context) {
	rep, ok := h.report(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rep.Insights)
}

func (h *APIHandler) GetQuality(c *gin.Context) {
	rep, ok := h.report(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rep.Quality)
}

// DownloadReport renders the latest report to an XLSX workbook and serves
// it as an attachment, the dashboard's "Generate Excel Report" button.
func (h *APIHandler) DownloadReport(c *gin.Context) {
	rep, ok := h.report(c)
	if !ok {
		return
	}

	if err := os.MkdirAll(h.cfg.ReportsDir, 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	name := fmt.Sprintf("campaign_analysis_%s.xlsx", time.Now().Format("20060102_150405"))
	path := filepath.Join(h.cfg.ReportsDir, name)
	if err := report.WriteXLSX(path, rep); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.FileAttachment(path, name)
}

func (h *APIHandler) ListRuns(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run history store not configured"})
		return
	}
	var runs []models.AnalysisRun
	if err := h.db.Order("id DESC").Limit(50).Find(&runs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, runs)
}

// report returns the latest report or writes the 404 telling the client to
// run the analysis first.
func (h *APIHandler) report(c *gin.Context) (*models.Report, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.latest == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no analysis available; POST /api/v1/analysis/run first"})
		return nil, false
	}
	return h.latest, true
}

func (h *APIHandler) setRunning(v bool) {
	h.mu.Lock()
	h.running = v
	h.mu.Unlock()
}

// describePipelineError distinguishes "fix your file" failures from
// transient ones so the dashboard can surface an actionable message.
func describePipelineError(err error) string {
	var missing *normalize.MissingColumnError
	switch {
	case errors.As(err, &missing):
		return fmt.Sprintf("source file problem: %v", missing)
	case errors.Is(err, loader.ErrSourceNotFound):
		return fmt.Sprintf("missing source file: %v", err)
	case errors.Is(err, loader.ErrUnreadableFormat):
		return fmt.Sprintf("unreadable source file: %v", err)
	case errors.Is(err, loader.ErrEmptySource):
		return fmt.Sprintf("source file has no data: %v", err)
	default:
		return err.Error()
	}
}

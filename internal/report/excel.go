// Package report renders a pipeline report as a multi-sheet styled XLSX
// workbook: a summary sheet with key metrics and insights, one sheet per
// aggregated table, a data-quality sheet and a charts sheet.
package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"amazon-ads-analyzer/internal/models"
)

// keyHeader maps each table to the label of its key column.
var keyHeader = map[string]string{
	models.TableCampaigns:   "Campaign Name",
	models.TableProducts:    "Advertised ASIN",
	models.TableSearchTerms: "Customer Search Term",
	models.TableDailyTrends: "Date",
	models.TableHourly:      "Hour",
}

var tableHeaders = []string{
	"", "Impressions", "Clicks", "Spend", "Sales", "Orders",
	"ROAS", "ACOS", "CTR", "Conversion Rate", "Tier",
}

type styles struct {
	header   int
	currency int
	percent  int
	number   int
}

// WriteXLSX writes the full report workbook to path.
func WriteXLSX(path string, r *models.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	st, err := newStyles(f)
	if err != nil {
		return err
	}

	// The default Sheet1 becomes the summary sheet.
	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return err
	}
	if err := writeSummary(f, st, r); err != nil {
		return err
	}

	for _, table := range r.Tables {
		if err := writeTable(f, st, table); err != nil {
			return err
		}
	}

	if err := writeQuality(f, st, r.Quality); err != nil {
		return err
	}
	if err := writeCharts(f, r); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving report to %s: %w", path, err)
	}
	return nil
}

func newStyles(f *excelize.File) (styles, error) {
	var st styles
	var err error

	st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return st, err
	}

	currencyFmt := "#,##0.00"
	st.currency, err = f.NewStyle(&excelize.Style{CustomNumFmt: &currencyFmt})
	if err != nil {
		return st, err
	}

	st.percent, err = f.NewStyle(&excelize.Style{NumFmt: 10}) // 0.00%
	if err != nil {
		return st, err
	}

	numberFmt := "#,##0.00"
	st.number, err = f.NewStyle(&excelize.Style{CustomNumFmt: &numberFmt})
	return st, err
}

func writeSummary(f *excelize.File, st styles, r *models.Report) error {
	sheet := "Summary"
	f.SetColWidth(sheet, "A", "B", 28)

	f.SetCellValue(sheet, "A1", "Campaign Performance Summary")
	f.MergeCell(sheet, "A1", "B1")
	f.SetCellStyle(sheet, "A1", "B1", st.header)

	rows := []struct {
		label string
		value interface{}
		style int
	}{
		{"Total Spend", r.Overview.Base.Spend, st.currency},
		{"Total Sales", r.Overview.Base.Sales, st.currency},
		{"Total Impressions", r.Overview.Base.Impressions, st.number},
		{"Total Clicks", r.Overview.Base.Clicks, st.number},
		{"Total Orders", r.Overview.Base.Orders, st.number},
		{"ROAS", r.Overview.Derived.ROAS, st.number},
		{"ACOS", r.Overview.Derived.ACOS, st.percent},
		{"CTR", r.Overview.Derived.CTR, st.percent},
		{"Conversion Rate", r.Overview.Derived.ConversionRate, st.percent},
		{"Unmapped Spend", r.Overview.UnmappedSpend, st.currency},
		{"Unmapped Spend Share", r.Overview.UnmappedShare, st.percent},
	}
	for i, row := range rows {
		cellA := fmt.Sprintf("A%d", i+3)
		cellB := fmt.Sprintf("B%d", i+3)
		f.SetCellValue(sheet, cellA, row.label)
		f.SetCellValue(sheet, cellB, row.value)
		f.SetCellStyle(sheet, cellB, cellB, row.style)
	}

	insightRows := []struct {
		label string
		items []string
	}{
		{"High Impression, Low Sales Campaigns", r.Insights.HighImpressionLowSales},
		{"Overspending Campaigns", r.Insights.Overspending},
		{"Low Conversion Campaigns", r.Insights.LowConversion},
		{"Optimization Opportunities", r.Insights.Opportunities},
	}
	base := len(rows) + 5
	f.SetCellValue(sheet, fmt.Sprintf("A%d", base-1), "Key Insights")
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", base-1), fmt.Sprintf("A%d", base-1), st.header)
	for i, row := range insightRows {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", base+i), row.label)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", base+i), strings.Join(row.items, ", "))
	}
	return nil
}

func writeTable(f *excelize.File, st styles, table models.Table) error {
	sheet := table.Name
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	f.SetColWidth(sheet, "A", "A", 32)
	f.SetColWidth(sheet, "B", "K", 14)

	headers := append([]string(nil), tableHeaders...)
	headers[0] = keyHeader[table.Name]
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, st.header)
	}

	for i, row := range table.Rows {
		values := []interface{}{
			row.Key, row.Base.Impressions, row.Base.Clicks, row.Base.Spend,
			row.Base.Sales, row.Base.Orders, row.Derived.ROAS, row.Derived.ACOS,
			row.Derived.CTR, row.Derived.ConversionRate, string(row.Tier),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	if len(table.Rows) > 0 {
		last := len(table.Rows) + 1
		f.SetCellStyle(sheet, "D2", fmt.Sprintf("E%d", last), st.currency)
		f.SetCellStyle(sheet, "H2", fmt.Sprintf("J%d", last), st.percent)
	}
	return nil
}

func writeQuality(f *excelize.File, st styles, q *models.QualityReport) error {
	sheet := "Data Quality"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	f.SetColWidth(sheet, "A", "E", 24)

	headers := []string{"Source", "Row", "Field", "Reason", "Disposition"}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, st.header)
	}
	if q == nil {
		return nil
	}
	for i, issue := range q.Issues {
		disposition := "defaulted"
		if issue.Dropped {
			disposition = "dropped"
		}
		values := []interface{}{issue.Source, issue.Row, issue.Field, issue.Reason, disposition}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			f.SetCellValue(sheet, cell, v)
		}
	}
	return nil
}

// writeCharts places a spend-vs-sales column chart over the campaign table
// and a daily trend line chart, mirroring the workbook the dashboard's
// download button used to produce.
func writeCharts(f *excelize.File, r *models.Report) error {
	sheet := "Charts"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	campaigns := r.TableByName(models.TableCampaigns)
	if campaigns != nil && len(campaigns.Rows) > 0 {
		n := len(campaigns.Rows) + 1
		err := f.AddChart(sheet, "B2", &excelize.Chart{
			Type: excelize.Col,
			Series: []excelize.ChartSeries{
				{
					Name:       "Spend",
					Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", models.TableCampaigns, n),
					Values:     fmt.Sprintf("'%s'!$D$2:$D$%d", models.TableCampaigns, n),
				},
				{
					Name:       "Sales",
					Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", models.TableCampaigns, n),
					Values:     fmt.Sprintf("'%s'!$E$2:$E$%d", models.TableCampaigns, n),
				},
			},
			Title:     []excelize.RichTextRun{{Text: "Campaign Spend vs Sales"}},
			Dimension: excelize.ChartDimension{Width: 720, Height: 480},
			Legend:    excelize.ChartLegend{Position: "top"},
		})
		if err != nil {
			return err
		}
	}

	trends := r.TableByName(models.TableDailyTrends)
	if trends != nil && len(trends.Rows) > 0 {
		n := len(trends.Rows) + 1
		err := f.AddChart(sheet, "B30", &excelize.Chart{
			Type: excelize.Line,
			Series: []excelize.ChartSeries{
				{
					Name:       "Spend",
					Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", models.TableDailyTrends, n),
					Values:     fmt.Sprintf("'%s'!$D$2:$D$%d", models.TableDailyTrends, n),
				},
				{
					Name:       "Sales",
					Categories: fmt.Sprintf("'%s'!$A$2:$A$%d", models.TableDailyTrends, n),
					Values:     fmt.Sprintf("'%s'!$E$2:$E$%d", models.TableDailyTrends, n),
				},
			},
			Title:     []excelize.RichTextRun{{Text: "Daily Performance Trends"}},
			Dimension: excelize.ChartDimension{Width: 720, Height: 480},
			Legend:    excelize.ChartLegend{Position: "top"},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

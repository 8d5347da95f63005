package export

import (
	"fmt"
	"io"

	"storefront/internal/services"

	"github.com/tealeg/xlsx"
)

// ContentType is the MIME type of the generated workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var salesHeaders = []string{"Product ID", "Product", "Quantity Sold", "Revenue"}

// SalesWorkbook renders a sales report as a workbook with a product sheet
// and a summary sheet.
func SalesWorkbook(report *services.SalesReport) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Sales")
	if err != nil {
		return nil, fmt.Errorf("failed to create sales sheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, h := range salesHeaders {
		headerRow.AddCell().SetValue(h)
	}
	for _, p := range report.Products {
		row := sheet.AddRow()
		row.AddCell().SetValue(p.ProductID)
		row.AddCell().SetValue(p.Name)
		row.AddCell().SetValue(p.Quantity)
		row.AddCell().SetValue(p.Revenue)
	}

	summary, err := file.AddSheet("Summary")
	if err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	for _, kv := range [][2]interface{}{
		{"Period", report.Period},
		{"Since", report.Since.Format("2006-01-02 15:04:05")},
		{"Total Orders", report.TotalOrders},
		{"Total Revenue", report.TotalRevenue},
	} {
		row := summary.AddRow()
		row.AddCell().SetValue(kv[0])
		row.AddCell().SetValue(kv[1])
	}
	return file, nil
}

// WriteSalesReport writes the workbook for report to w.
func WriteSalesReport(w io.Writer, report *services.SalesReport) error {
	file, err := SalesWorkbook(report)
	if err != nil {
		return err
	}
	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write sales workbook: %w", err)
	}
	return nil
}

// SalesFilename names the download for a period.
func SalesFilename(period string) string {
	return fmt.Sprintf("sales-%s.xlsx", period)
}

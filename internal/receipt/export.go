package receipt

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// ExportFormat selects the export encoding
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

const exportSheet = "領収書"

// exportColWidths widens the xlsx columns holding long values
var exportColWidths = map[string]float64{
	"A": 38,
	"B": 12,
	"C": 32,
	"D": 18,
	"G": 60,
}

var exportHeaders = []string{"ID", "日付", "会社名", "登録番号", "金額", "支払い方法", "画像パス"}

// utf8BOM lets spreadsheet applications detect UTF-8
const utf8BOM = "\ufeff"

// ContentType returns the MIME type of the export
func (f ExportFormat) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// ParseExportFormat maps a query value to an ExportFormat, defaulting to CSV
func ParseExportFormat(s string) (ExportFormat, error) {
	switch s {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

func exportRow(r *Receipt) []string {
	amount := ""
	if r.TotalAmount > 0 {
		amount = strconv.Itoa(r.TotalAmount)
	}
	return []string{
		r.ID,
		r.Date,
		r.CompanyName,
		r.RegistrationNumber,
		amount,
		r.PaymentMethod.Label(),
		r.Filename,
	}
}

func writeCSV(w io.Writer, receipts []*Receipt) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("writing BOM: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeaders); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, r := range receipts {
		if err := cw.Write(exportRow(r)); err != nil {
			return fmt.Errorf("writing CSV row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeXLSX(w io.Writer, receipts []*Receipt) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	header := make([]any, len(exportHeaders))
	for i, h := range exportHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return fmt.Errorf("writing xlsx header: %w", err)
	}

	for i, r := range receipts {
		row := make([]any, 0, len(exportHeaders))
		for col, v := range exportRow(r) {
			// Keep the amount numeric so it can be summed
			if col == 4 && r.TotalAmount > 0 {
				row = append(row, r.TotalAmount)
				continue
			}
			row = append(row, v)
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("writing xlsx row: %w", err)
		}
	}

	for col, width := range exportColWidths {
		if err := f.SetColWidth(exportSheet, col, col, width); err != nil {
			return fmt.Errorf("setting xlsx column width: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

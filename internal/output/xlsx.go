package output

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Found"

// XLSXWriter writes the found URLs to a spreadsheet with a summary sheet.
type XLSXWriter struct {
	path string
}

func (x *XLSXWriter) Write(found []string, stats Stats) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	if err := f.SetCellValue(xlsxSheet, "A1", "URL"); err != nil {
		return err
	}
	for i, u := range found {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(xlsxSheet, cell, u); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(xlsxSheet, "A", "A", 100); err != nil {
		return err
	}

	if _, err := f.NewSheet("Summary"); err != nil {
		return fmt.Errorf("adding summary sheet: %w", err)
	}
	rows := [][]interface{}{
		{"Session", stats.SessionID},
		{"Template", stats.Template},
		{"Start", formatDate(stats.Start)},
		{"End", formatDate(stats.End)},
		{"Checked", stats.Completed},
		{"Found", len(found)},
		{"Errors", stats.Errors},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow("Summary", cell, &row); err != nil {
			return err
		}
	}

	if err := f.SaveAs(x.path); err != nil {
		return fmt.Errorf("saving %s: %w", x.path, err)
	}
	return nil
}

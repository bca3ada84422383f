package reports

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ErrNothingToExport is returned for charts that were never fetched
// successfully.
var ErrNothingToExport = errors.New("chart has no fetched data to export")

const exportSheet = "Chart"

var exportColumns = []string{"Series", "Period", "Date", "Average", "Minimum", "Maximum", "Count"}

func rating(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func exportable(state State) error {
	if !state.HasAttemptedFetch || state.Failed || state.Series == nil {
		return ErrNothingToExport
	}
	return nil
}

// WritePDF renders the chart as a table, one row per point.
func WritePDF(w io.Writer, state State) error {
	if err := exportable(state); err != nil {
		return err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(state.Title, true)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, state.Title)
	pdf.Ln(10)
	if state.Subject != "" {
		pdf.SetFont("Helvetica", "", 11)
		pdf.Cell(0, 7, state.Subject)
		pdf.Ln(9)
	}

	widths := []float64{40, 28, 26, 22, 22, 22, 20}
	pdf.SetFont("Helvetica", "B", 10)
	for i, col := range exportColumns {
		pdf.CellFormat(widths[i], 7, col, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	rows := 0
	for _, s := range state.Series {
		for _, p := range s.Points {
			cells := []string{
				s.Name, p.Label, p.Date,
				rating(p.Values.Avg), rating(p.Values.Min), rating(p.Values.Max),
				fmt.Sprintf("%.0f", p.Values.Count),
			}
			for i, cell := range cells {
				align := "R"
				if i < 3 {
					align = "L"
				}
				pdf.CellFormat(widths[i], 6, cell, "1", 0, align, false, 0, "")
			}
			pdf.Ln(-1)
			rows++
		}
	}
	if rows == 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.Cell(0, 6, state.Message)
	}

	if err := pdf.Output(w); err != nil {
		return errors.Wrap(err, "write chart pdf")
	}
	return nil
}

// WriteXLSX writes the chart points to a single sheet workbook.
func WriteXLSX(w io.Writer, state State) error {
	if err := exportable(state); err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return errors.Wrap(err, "rename sheet")
	}

	header := make([]any, len(exportColumns))
	for i, col := range exportColumns {
		header[i] = col
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return errors.Wrap(err, "write header")
	}

	row := 2
	for _, s := range state.Series {
		for _, p := range s.Points {
			values := []any{
				s.Name, p.Label, p.Date,
				Round2(p.Values.Avg), Round2(p.Values.Min), Round2(p.Values.Max),
				p.Values.Count,
			}
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return errors.Wrap(err, "cell name")
			}
			if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
				return errors.Wrapf(err, "write row %d", row)
			}
			row++
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return errors.Wrap(err, "write chart xlsx")
	}
	return nil
}

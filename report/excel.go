// Package report reads and writes clearance spreadsheets
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"clearance-server-go/clearance"
	"clearance-server-go/models"
)

// SheetName is the sheet ExportClearance writes
const SheetName = "Clearance"

// ExportClearance writes one row per student with each department's mark and
// the overall status
func ExportClearance(w io.Writer, departments []models.Department, students []models.Student) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := []interface{}{"Matric", "Name", "Level", "Programme"}
	for _, d := range departments {
		header = append(header, d.Code)
	}
	header = append(header, "Overall")
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, st := range students {
		row := []interface{}{st.ID, st.Name, st.Level, st.Programme}
		for _, d := range departments {
			row = append(row, string(clearance.StatusFor(st, d.ID)))
		}
		row = append(row, clearance.OverallLabel(clearance.Evaluate(st, departments)))

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", st.ID, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// ParseStudents reads the first sheet of an uploaded workbook. Row 1 is a
// header; columns A-D are matric number, name, level and programme. Fully
// blank rows are dropped, everything else is returned for the service to
// validate.
func ParseStudents(r io.Reader) ([]clearance.NewStudent, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, errors.New("excel file does not contain any sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows from sheet %s: %w", sheetName, err)
	}

	out := make([]clearance.NewStudent, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue
		}
		col := func(n int) string {
			if n < len(row) {
				return strings.TrimSpace(row[n])
			}
			return ""
		}
		s := clearance.NewStudent{ID: col(0), Name: col(1), Level: col(2), Programme: col(3)}
		if s == (clearance.NewStudent{}) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

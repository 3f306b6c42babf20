package loader

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// readTotalProcedures sums the numeric region of the Patients Seen grid. The
// first row is the header, fully blank rows and columns are dropped, the first
// surviving column holds procedure labels and is excluded from the sum.
func (l *Loader) readTotalProcedures(f *excelize.File) (int, error) {
	sheet := l.cfg.PatientsSeenSheet
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return 0, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return sumNumericRegion(rows), nil
}

func sumNumericRegion(rows [][]string) int {
	if len(rows) < 2 {
		return 0
	}

	data := make([][]string, 0, len(rows)-1)
	width := len(rows[0])
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		data = append(data, row)
		if len(row) > width {
			width = len(row)
		}
	}

	var columns []int
	for c := 0; c < width; c++ {
		for _, row := range data {
			if cellValue(row, c) != "" {
				columns = append(columns, c)
				break
			}
		}
	}
	if len(columns) < 2 {
		return 0
	}

	var total float64
	for _, row := range data {
		for _, c := range columns[1:] {
			total += parseNumber(cellValue(row, c))
		}
	}
	return int(total)
}

func isBlankRow(row []string) bool {
	for i := range row {
		if cellValue(row, i) != "" {
			return false
		}
	}
	return true
}

package artifact

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// readXLSX reads the first sheet of a raw export. Spreadsheet rows omit
// trailing empty cells, so rows are padded or trimmed to the header width
// and fully blank rows are skipped.
func readXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(ErrMalformed, "%s: open xlsx: %v", path, err)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Wrapf(ErrMalformed, "%s: workbook has no sheets", path)
	}
	sheet := f.Sheets[0]

	var (
		rows  [][]string
		width int
	)
	for _, row := range sheet.Rows {
		if row == nil {
			continue
		}
		cells := rowToStrings(row)
		if isBlank(cells) {
			continue
		}
		if rows == nil {
			cells = trimTrailingBlank(cells)
			width = len(cells)
			rows = append(rows, cells)
			continue
		}
		if len(cells) > width {
			extra := cells[width:]
			if !isBlank(extra) {
				return nil, eris.Wrapf(ErrMalformed, "%s: row %d has %d fields, header has %d",
					path, len(rows)+1, len(trimTrailingBlank(cells)), width)
			}
			cells = cells[:width]
		}
		for len(cells) < width {
			cells = append(cells, "")
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = strings.TrimSpace(cell.String())
	}
	return cells
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

func trimTrailingBlank(cells []string) []string {
	end := len(cells)
	for end > 0 && cells[end-1] == "" {
		end--
	}
	return cells[:end]
}

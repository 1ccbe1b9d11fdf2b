package sheet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExcelSource reads .xlsx/.xlsm workbooks with excelize. Cached formula
// results are used, never the formulas themselves.
type ExcelSource struct{}

// ActiveSheet reads every populated row of the workbook's active sheet.
func (ExcelSource) ActiveSheet(path string) (*Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening spreadsheet %s: %w", path, err)
	}
	defer f.Close()

	name := f.GetSheetName(f.GetActiveSheetIndex())
	if name == "" {
		return nil, fmt.Errorf("spreadsheet %s has no active sheet", path)
	}

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q of %s: %w", name, path, err)
	}

	out := &Sheet{Name: name, Rows: make([][]Cell, len(rows))}
	for r, row := range rows {
		cells := make([]Cell, len(row))
		for c, raw := range row {
			cell, err := readCell(f, name, c+1, r+1, raw)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", path, err)
			}
			cells[c] = cell
		}
		out.Rows[r] = cells
	}

	return out, nil
}

func readCell(f *excelize.File, sheet string, col, row int, raw string) (Cell, error) {
	if raw == "" {
		return Cell{}, nil
	}

	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return Cell{}, err
	}

	typ, err := f.GetCellType(sheet, axis)
	if err != nil {
		return Cell{}, fmt.Errorf("cell %s type: %w", axis, err)
	}

	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeError:
		return Cell{Text: raw}, nil
	case excelize.CellTypeBool:
		if raw == "1" {
			return Cell{Text: "TRUE"}, nil
		}
		return Cell{Text: "FALSE"}, nil
	}

	num, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return Cell{Text: raw}, nil
	}

	styleID, err := f.GetCellStyle(sheet, axis)
	if err != nil {
		return Cell{}, fmt.Errorf("cell %s style: %w", axis, err)
	}
	style, err := f.GetStyle(styleID)
	if err != nil {
		return Cell{}, fmt.Errorf("cell %s style %d: %w", axis, styleID, err)
	}

	if isDateFormat(style) {
		text, err := f.GetCellValue(sheet, axis)
		if err != nil {
			return Cell{}, fmt.Errorf("cell %s value: %w", axis, err)
		}
		return Cell{Text: text}, nil
	}

	return Cell{Number: num, Numeric: true, Percent: isPercentFormat(style)}, nil
}

// Built-in number format IDs from ECMA-376 18.8.30.
var (
	percentFormats = map[int]bool{9: true, 10: true}
	dateFormats    = map[int]bool{
		14: true, 15: true, 16: true, 17: true, 18: true, 19: true,
		20: true, 21: true, 22: true, 45: true, 46: true, 47: true,
	}
)

func customFormat(style *excelize.Style) string {
	if style == nil || style.CustomNumFmt == nil {
		return ""
	}
	return strings.TrimSpace(*style.CustomNumFmt)
}

func isPercentFormat(style *excelize.Style) bool {
	if style == nil {
		return false
	}
	if custom := customFormat(style); custom != "" {
		return strings.HasSuffix(custom, "%")
	}
	return percentFormats[style.NumFmt]
}

func isDateFormat(style *excelize.Style) bool {
	if style == nil {
		return false
	}
	custom := strings.ToLower(customFormat(style))
	if custom == "" {
		return dateFormats[style.NumFmt]
	}
	// Drop quoted literals and bracketed colors before looking for tokens.
	var b strings.Builder
	quoted, bracket := false, false
	for _, r := range custom {
		switch {
		case r == '"':
			quoted = !quoted
		case r == '[' && !quoted:
			bracket = true
		case r == ']' && !quoted:
			bracket = false
		case !quoted && !bracket:
			b.WriteRune(r)
		}
	}
	plain := b.String()
	for _, token := range []string{"yy", "dd", "mmm", "hh", "ss"} {
		if strings.Contains(plain, token) {
			return true
		}
	}
	return false
}

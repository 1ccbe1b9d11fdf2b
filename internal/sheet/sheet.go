// Package sheet finds a client's row in the most recent client
// spreadsheet and renders it as an HTML table.
package sheet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrNoSpreadsheet is returned when no file in the directory matches the
// spreadsheet pattern.
var ErrNoSpreadsheet = errors.New("no spreadsheet files found")

// Cell is one worksheet cell as read from the file.
type Cell struct {
	// Text is the cell's display text for non-numeric cells.
	Text string

	// Number holds the value when Numeric is set.
	Number  float64
	Numeric bool

	// Percent is set when the cell's number format ends in '%'.
	Percent bool
}

// Empty reports whether the cell holds no value.
func (c Cell) Empty() bool {
	return !c.Numeric && c.Text == ""
}

// Format renders the cell: percentages scaled by 100 with two decimals
// and a '%' suffix, other numbers with two decimals, text unchanged.
func (c Cell) Format() string {
	switch {
	case c.Numeric && c.Percent:
		return strconv.FormatFloat(c.Number*100, 'f', 2, 64) + "%"
	case c.Numeric:
		return strconv.FormatFloat(c.Number, 'f', 2, 64)
	default:
		return c.Text
	}
}

// Sheet is a snapshot of a worksheet, row-major, first row the header.
type Sheet struct {
	Name string
	Rows [][]Cell
}

// Source opens the active worksheet of a spreadsheet file.
type Source interface {
	ActiveSheet(path string) (*Sheet, error)
}

// LatestFile returns the most recently modified file in dir matching
// pattern (e.g. "*.xls*").
func LatestFile(dir, pattern string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", fmt.Errorf("searching %s for %s: %w", dir, pattern, err)
	}

	var (
		latest  string
		modTime int64
	)
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		// Office lock files ("~$name.xlsx") are not workbooks.
		if strings.HasPrefix(filepath.Base(m), "~$") {
			continue
		}
		if t := info.ModTime().UnixNano(); latest == "" || t > modTime {
			latest, modTime = m, t
		}
	}

	if latest == "" {
		return "", fmt.Errorf("%w in %s", ErrNoSpreadsheet, dir)
	}
	return latest, nil
}

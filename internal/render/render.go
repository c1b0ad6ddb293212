// Package render renders the swap/encryption status summaries the
// managers produce into fixed-width text tables, for the (out-of-scope)
// CLI frontend to print. Column widths are measured with go-runewidth
// instead of the teacher's hand-rolled rune-width table, since the pack
// already carries that dependency.
package render

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Table renders headers and rows into aligned lines, one header row
// followed by one line per row, columns separated by gutter spaces.
func Table(headers []string, rows [][]string, gutter int) []string {
	if len(headers) == 0 {
		return nil
	}
	if gutter < 1 {
		gutter = 1
	}
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i := range headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	sep := strings.Repeat(" ", gutter)
	out := make([]string, 0, len(rows)+1)
	out = append(out, row(headers, widths, sep))
	for _, r := range rows {
		out = append(out, row(r, widths, sep))
	}
	return out
}

func row(cells []string, widths []int, sep string) string {
	parts := make([]string, len(widths))
	for i := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		if i == len(widths)-1 {
			parts[i] = cell // last column is never padded
			continue
		}
		parts[i] = padRight(cell, widths[i])
	}
	return strings.Join(parts, sep)
}

func padRight(s string, width int) string {
	visible := runewidth.StringWidth(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

// menuRows matches the header height so hints never scroll out of view.
const menuRows = 5

// Menu lists the key hints of the current page, filling columns top to bottom.
type Menu struct {
	*tview.TextView
	theme *Theme
}

// NewMenu creates a new menu hint bar.
func NewMenu(theme *Theme) *Menu {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 2, 0)

	return &Menu{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders hints in as many columns as needed.
func (m *Menu) Update(hints []MenuHint) {
	m.Clear()

	keyColor := colorName(m.theme.MenuKeyColor)
	numColor := colorName(m.theme.NumericKeyColor)
	for _, row := range menuColumns(hints, menuRows) {
		var line strings.Builder
		for _, cell := range row {
			kc := keyColor
			if cell.hint.Numeric {
				kc = numColor
			}
			fmt.Fprintf(&line, "[%s::b]<%s>[-:-:-] %s%s", kc, cell.hint.Key,
				tview.Escape(cell.hint.Description), strings.Repeat(" ", cell.pad))
		}
		_, _ = fmt.Fprintln(m, strings.TrimRight(line.String(), " "))
	}
}

type menuCell struct {
	hint MenuHint
	pad  int
}

// menuColumns arranges hints column-major into at most rows lines. Every cell
// but the last of a line is padded to its column width plus a gap.
func menuColumns(hints []MenuHint, rows int) [][]menuCell {
	if len(hints) == 0 || rows < 1 {
		return nil
	}
	if len(hints) < rows {
		rows = len(hints)
	}
	cols := (len(hints) + rows - 1) / rows

	widths := make([]int, cols)
	for i, h := range hints {
		if w := hintWidth(h); w > widths[i/rows] {
			widths[i/rows] = w
		}
	}

	lines := make([][]menuCell, rows)
	for i, h := range hints {
		col := i / rows
		pad := 0
		if col < cols-1 {
			pad = widths[col] - hintWidth(h) + 2
		}
		lines[i%rows] = append(lines[i%rows], menuCell{hint: h, pad: pad})
	}
	return lines
}

// hintWidth is the printed width of "<key> description".
func hintWidth(h MenuHint) int {
	return len([]rune(h.Key)) + 3 + len([]rune(h.Description))
}

package ui

import (
	"fmt"
	"strings"

	"github.com/rivo/tview"
)

const (
	// maxCrumbs is how many trail entries are shown before the middle collapses.
	maxCrumbs = 4
	// crumbWidth caps a single entry; room names can be long.
	crumbWidth = 24
)

// Crumbs shows the page stack as a trail, e.g. "Rooms > weekend pop > Details".
type Crumbs struct {
	*tview.TextView
	theme *Theme
}

// NewCrumbs creates a new breadcrumb bar.
func NewCrumbs(theme *Theme) *Crumbs {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)

	return &Crumbs{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the trail for the page names in stack order.
func (c *Crumbs) Update(stack []string) {
	c.Clear()
	trail := CrumbTrail(stack)
	if len(trail) == 0 {
		return
	}

	active := fmt.Sprintf("[%s:%s:b]", colorName(c.theme.CrumbActiveFg), colorName(c.theme.CrumbActiveBg))
	inactive := fmt.Sprintf("[%s:%s:]", colorName(c.theme.CrumbInactiveFg), colorName(c.theme.CrumbInactiveBg))
	parts := make([]string, len(trail))
	for i, name := range trail {
		style := inactive
		if i == len(trail)-1 {
			style = active
		}
		parts[i] = style + " " + tview.Escape(name) + " [-:-:-]"
	}
	_, _ = fmt.Fprint(c, strings.Join(parts, " > "))
}

// CrumbTrail shortens a page stack for display: long names are cut and a
// deep stack keeps its first entry and the last ones around an ellipsis.
func CrumbTrail(stack []string) []string {
	trail := make([]string, 0, maxCrumbs)
	if len(stack) > maxCrumbs {
		trail = append(trail, stack[0], "…")
		stack = stack[len(stack)-(maxCrumbs-2):]
	}
	for _, name := range stack {
		trail = append(trail, truncate(name, crumbWidth))
	}
	return trail
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

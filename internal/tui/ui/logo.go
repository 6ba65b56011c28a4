package ui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

var logoArt = []string{
	" ╔═╗╔═╗╔═╗",
	" ╠═╝║ ║╠═╝",
	" ╩  ╚═╝╩  chat",
}

// Logo is the header mark. Its color and tagline follow the push connection,
// so a dropped connection is visible from every page.
type Logo struct {
	*tview.TextView
	theme *Theme
	state string
}

// NewLogo creates the header mark in the not-yet-known state.
func NewLogo(theme *Theme) *Logo {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(1, 0, 1, 0)

	l := &Logo{TextView: tv, theme: theme}
	l.render()
	return l
}

// SetPushState redraws the mark for a push connection state such as
// CONNECTED or RECONNECTING. Unchanged states are not redrawn.
func (l *Logo) SetPushState(state string) {
	if state == l.state {
		return
	}
	l.state = state
	l.render()
}

// logoTagline maps a push state to the line under the mark.
func logoTagline(state string) string {
	switch state {
	case "CONNECTED":
		return "live"
	case "CONNECTING", "RECONNECTING":
		return "reconnecting…"
	case "CLOSED":
		return "offline"
	default:
		return "popup rooms"
	}
}

func (l *Logo) render() {
	var art tcell.Color
	switch l.state {
	case "CONNECTED":
		art = l.theme.TitleColor
	case "CONNECTING", "RECONNECTING", "CLOSED":
		art = l.theme.DisconnectFg
	default:
		art = l.theme.FgColor
	}

	var b strings.Builder
	for _, line := range logoArt {
		fmt.Fprintf(&b, "[%s::b]%s[-:-:-]\n", colorName(art), line)
	}
	fmt.Fprintf(&b, "[%s]%s[-:-:-]", colorName(l.theme.FgColor), logoTagline(l.state))

	l.Clear()
	_, _ = fmt.Fprint(l, b.String())
}

package ui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"
)

// SessionData holds daemon information for display.
type SessionData struct {
	Profile        string
	Nickname       string
	PushState      string
	Reconnects     int
	RoomCount      int
	PendingUploads int
	Uptime         time.Duration
}

// SessionInfo displays daemon metadata in the header.
type SessionInfo struct {
	*tview.TextView
	theme *Theme
}

// NewSessionInfo creates a new session info panel.
func NewSessionInfo(theme *Theme) *SessionInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetBorderPadding(0, 0, 1, 1)

	return &SessionInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Update renders the session info.
func (si *SessionInfo) Update(data *SessionData) {
	si.Clear()
	if data == nil {
		return
	}

	fgColor := colorName(si.theme.FgColor)
	counterColor := colorName(si.theme.CounterColor)

	nick := data.Nickname
	if nick == "" {
		nick = "-"
	}
	push := data.PushState
	if data.Reconnects > 0 {
		push = fmt.Sprintf("%s (%d)", push, data.Reconnects)
	}

	text := fmt.Sprintf(
		"[%s::b]Profile:[-:-:-] [%s]%s[-]\n"+
			"[%s::b]User:[-:-:-]    [%s]%s[-]\n"+
			"[%s::b]Push:[-:-:-]    [%s]%s[-]\n"+
			"[%s::b]Rooms:[-:-:-]   [%s]%d[-]\n"+
			"[%s::b]Uploads:[-:-:-] [%s]%d[-]\n"+
			"[%s::b]Uptime:[-:-:-]  [%s]%s[-]",
		fgColor, counterColor, data.Profile,
		fgColor, counterColor, tview.Escape(nick),
		fgColor, si.pushColor(data.PushState), push,
		fgColor, counterColor, data.RoomCount,
		fgColor, counterColor, data.PendingUploads,
		fgColor, counterColor, formatDuration(data.Uptime),
	)

	_, _ = fmt.Fprint(si, text)
}

func (si *SessionInfo) pushColor(state string) string {
	switch state {
	case "CONNECTED":
		return colorName(si.theme.ConnectedFg)
	case "RECONNECTING", "CLOSED":
		return colorName(si.theme.DisconnectFg)
	default:
		return colorName(si.theme.CounterColor)
	}
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

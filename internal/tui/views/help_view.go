package views

import (
	"fmt"

	"github.com/popspot/popchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// HelpView displays key binding reference.
type HelpView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewHelpView creates a new help view.
func NewHelpView(theme *ui.Theme) *HelpView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Help ")
	tv.SetTitleColor(theme.TitleColor)

	hv := &HelpView{
		TextView: tv,
		theme:    theme,
	}
	hv.render()
	return hv
}

// Name implements Component.
func (hv *HelpView) Name() string { return "Help" }

// Init implements Component.
func (hv *HelpView) Init() {}

// Start implements Component.
func (hv *HelpView) Start() {}

// Stop implements Component.
func (hv *HelpView) Stop() {}

// Hints implements Component.
func (hv *HelpView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

func (hv *HelpView) render() {
	kc := ui.Color(hv.theme.MenuKeyColor)
	section := func(title string) {
		_, _ = fmt.Fprintf(hv, "\n  [::b]%s[-:-:-]\n\n", title)
	}
	row := func(key, desc string) {
		_, _ = fmt.Fprintf(hv, "  [%s]%-18s[-:-:-] %s\n", kc, key, tview.Escape(desc))
	}

	section("Global Keys")
	row(":", "Command mode")
	row("/", "Filter rooms")
	row("Esc", "Cancel / Go back")
	row("?", "Help")
	row("q", "Quit")

	section("Room List")
	row("Enter", "Open room")
	row("1-9", "Jump to Nth room")
	row("c", "Create a group room")
	row("R", "Refresh from server")
	row("H", "Show or hide hidden rooms")
	row("d", "Room details")

	section("Room")
	row("i", "Focus composer")
	row("Enter", "Send (in composer)")
	row("r / x", "Retry / cancel the last failed upload")
	row("d", "Room details")

	section("Commands (: mode)")
	row(":open <TYPE/ID>", "Open a room")
	row(":dm <userId>", "Private chat with a user")
	row(":ai", "Chat with the assistant")
	row(":join <roomId>", "Join a group room")
	row(":create", "Create a group room")
	row(":leave [TYPE/ID]", "Leave a room")
	row(":hide / :unhide", "Hide or unhide the selected room")
	row(":image <path>", "Send an image")
	row(":share <popupId>", "Share a popup card")
	row(":popup <popupId>", "Show a popup and its QR code")
	row(":profile <userId>", "Show a user profile")
	row(":rename <name>", "Rename a group room you own")
	row(":limit <n>", "Change a group room's participant limit")
	row(":report <reason>", "Report the open room")
	row(":retry / :cancel", "Retry or cancel an upload")
	row(":help, :quit", "Help, quit")
}

package views

import (
	"fmt"

	"github.com/popspot/popchat/internal/api"
	"github.com/popspot/popchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// PopupView shows a popup and a QR code of its link.
type PopupView struct {
	*tview.TextView
	theme *ui.Theme
}

// NewPopupView creates a new popup view.
func NewPopupView(theme *ui.Theme) *PopupView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetScrollable(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Popup ")
	tv.SetTitleColor(theme.TitleColor)

	return &PopupView{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements Component.
func (pv *PopupView) Name() string { return "Popup" }

// Init implements Component.
func (pv *PopupView) Init() {}

// Start implements Component.
func (pv *PopupView) Start() {}

// Stop implements Component.
func (pv *PopupView) Stop() {}

// Hints implements Component.
func (pv *PopupView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

// Show renders p with a QR code for link.
func (pv *PopupView) Show(p api.Popup, link string) {
	pv.Clear()
	pv.SetTitle(fmt.Sprintf(" %s ", tview.Escape(sanitizeForTerminal(p.Name))))

	_, _ = fmt.Fprintf(pv, "\n[%s::b]%s[-:-:-]\n", ui.Color(pv.theme.PopupCardFg), tview.Escape(sanitizeForTerminal(p.Name)))
	if p.Address != "" {
		_, _ = fmt.Fprintf(pv, "%s\n", tview.Escape(p.Address))
	}
	if p.StartDate != "" || p.EndDate != "" {
		_, _ = fmt.Fprintf(pv, "%s ~ %s\n", p.StartDate, p.EndDate)
	}

	qr, err := ui.RenderQR(link, "")
	if err != nil {
		_, _ = fmt.Fprintf(pv, "\n(QR generation failed: %s)\n", tview.Escape(err.Error()))
		return
	}
	_, _ = fmt.Fprintf(pv, "\n%s\n[::d]%s[-:-:-]", qr, tview.Escape(link))
	pv.ScrollToBeginning()
}

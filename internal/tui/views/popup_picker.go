package views

import (
	"strconv"

	"github.com/gdamore/tcell/v2"
	"github.com/popspot/popchat/internal/api"
	"github.com/popspot/popchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// PopupPicker searches popups by keyword and lets the user choose one.
type PopupPicker struct {
	*tview.Flex
	theme    *ui.Theme
	input    *tview.InputField
	results  *tview.Table
	onQuery  func(keyword string)
	onSelect func(p api.Popup)
	data     []api.Popup
}

// NewPopupPicker creates a new popup picker.
func NewPopupPicker(theme *ui.Theme) *PopupPicker {
	input := tview.NewInputField().
		SetLabel(" Popup: ").
		SetFieldWidth(0)
	input.SetBorderColor(theme.BorderColor)
	input.SetBackgroundColor(theme.BgColor)
	input.SetFieldBackgroundColor(theme.BgColor)
	input.SetFieldTextColor(theme.FgColor)
	input.SetLabelColor(theme.MenuKeyColor)

	results := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	results.SetBorder(true)
	results.SetBorderColor(theme.BorderColor)
	results.SetBackgroundColor(theme.BgColor)
	results.SetTitle(" Popups ")
	results.SetTitleColor(theme.TitleColor)
	results.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(input, 1, 0, true).
		AddItem(results, 0, 1, false)

	pp := &PopupPicker{
		Flex:    flex,
		theme:   theme,
		input:   input,
		results: results,
	}
	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && pp.onQuery != nil {
			pp.onQuery(pp.input.GetText())
		}
	})
	results.SetSelectedFunc(func(row, _ int) {
		if p, ok := pp.popupAt(row); ok && pp.onSelect != nil {
			pp.onSelect(p)
		}
	})
	return pp
}

// Name implements Component.
func (pp *PopupPicker) Name() string { return "Popups" }

// Init implements Component.
func (pp *PopupPicker) Init() {}

// Start implements Component.
func (pp *PopupPicker) Start() {}

// Stop implements Component.
func (pp *PopupPicker) Stop() {}

// Hints implements Component.
func (pp *PopupPicker) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Search/Choose"},
		{Key: "Tab", Description: "Results"},
		{Key: "Esc", Description: "Back"},
	}
}

// FocusTarget implements ui.Focuser.
func (pp *PopupPicker) FocusTarget() tview.Primitive {
	return pp.input
}

// SetOnQuery sets the callback when a search is submitted.
func (pp *PopupPicker) SetOnQuery(fn func(keyword string)) {
	pp.onQuery = fn
}

// SetOnSelect sets the callback when a popup is chosen.
func (pp *PopupPicker) SetOnSelect(fn func(p api.Popup)) {
	pp.onSelect = fn
}

// Update refreshes the result table.
func (pp *PopupPicker) Update(popups []api.Popup) {
	pp.data = popups
	pp.results.Clear()

	headers := []string{" NAME", " ADDRESS", " DATES"}
	for col, h := range headers {
		pp.results.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(pp.theme.TableHeaderFg).
			SetBackgroundColor(pp.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold))
	}

	for i, p := range popups {
		row := i + 1
		dates := p.StartDate
		if p.EndDate != "" {
			dates += " ~ " + p.EndDate
		}
		pp.results.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(p.Name))).SetExpansion(1).SetTextColor(pp.theme.FgColor))
		pp.results.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(p.Address)).SetExpansion(1).SetTextColor(pp.theme.FgColor))
		pp.results.SetCell(row, 2, tview.NewTableCell(" "+dates).SetTextColor(pp.theme.FgColor))
	}
	pp.results.SetTitle(" Popups (" + strconv.Itoa(len(popups)) + ") ")
}

func (pp *PopupPicker) popupAt(row int) (api.Popup, bool) {
	idx := row - 1
	if idx < 0 || idx >= len(pp.data) {
		return api.Popup{}, false
	}
	return pp.data[idx], true
}

// Selected returns the highlighted popup.
func (pp *PopupPicker) Selected() (api.Popup, bool) {
	row, _ := pp.results.GetSelection()
	return pp.popupAt(row)
}

// Input returns the keyword input field.
func (pp *PopupPicker) Input() *tview.InputField {
	return pp.input
}

// Results returns the results table.
func (pp *PopupPicker) Results() *tview.Table {
	return pp.results
}

package views

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/popspot/popchat/internal/api"
	"github.com/popspot/popchat/internal/tui/ui"
	"github.com/rivo/tview"
)

const defaultRoomLimit = "4"

// CreateForm collects the details of a new group room once a popup is
// chosen.
type CreateForm struct {
	*tview.Form
	theme    *ui.Theme
	popup    api.Popup
	onSubmit func(name string, limit int)
	onCancel func()
	onError  func(err error)
}

// NewCreateForm creates the room details form.
func NewCreateForm(theme *ui.Theme) *CreateForm {
	form := tview.NewForm()
	form.SetBorder(true)
	form.SetBorderColor(theme.BorderColor)
	form.SetBackgroundColor(theme.BgColor)
	form.SetFieldBackgroundColor(theme.BgColor)
	form.SetFieldTextColor(theme.FgColor)
	form.SetLabelColor(theme.MenuKeyColor)
	form.SetButtonBackgroundColor(theme.TableCursorBg)
	form.SetButtonTextColor(theme.TableCursorFg)
	form.SetTitleColor(theme.TitleColor)

	cf := &CreateForm{Form: form, theme: theme}
	form.AddInputField("Room name", "", 40, nil, nil)
	form.AddInputField("Max participants", defaultRoomLimit, 5, tview.InputFieldInteger, nil)
	form.AddButton("Create", cf.submit)
	form.AddButton("Cancel", func() {
		if cf.onCancel != nil {
			cf.onCancel()
		}
	})
	return cf
}

// Name implements Component.
func (cf *CreateForm) Name() string { return "New Room" }

// Init implements Component.
func (cf *CreateForm) Init() {}

// Start implements Component.
func (cf *CreateForm) Start() {}

// Stop implements Component.
func (cf *CreateForm) Stop() {}

// Hints implements Component.
func (cf *CreateForm) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Tab", Description: "Next field"},
		{Key: "Enter", Description: "Confirm"},
		{Key: "Esc", Description: "Back"},
	}
}

// Reset prepares the form for a room about p.
func (cf *CreateForm) Reset(p api.Popup) {
	cf.popup = p
	name := cf.GetFormItemByLabel("Room name").(*tview.InputField)
	limit := cf.GetFormItemByLabel("Max participants").(*tview.InputField)
	name.SetText("")
	limit.SetText(defaultRoomLimit)
	cf.SetTitle(fmt.Sprintf(" New room for %s ", tview.Escape(sanitizeForTerminal(p.Name))))
	cf.SetFocus(0)
}

// SetOnSubmit sets the callback for a submitted form.
func (cf *CreateForm) SetOnSubmit(fn func(name string, limit int)) {
	cf.onSubmit = fn
}

// SetOnCancel sets the callback for the cancel button.
func (cf *CreateForm) SetOnCancel(fn func()) {
	cf.onCancel = fn
}

// SetOnError sets the callback for input that cannot be parsed.
func (cf *CreateForm) SetOnError(fn func(err error)) {
	cf.onError = fn
}

func (cf *CreateForm) submit() {
	name := cf.GetFormItemByLabel("Room name").(*tview.InputField).GetText()
	raw := strings.TrimSpace(cf.GetFormItemByLabel("Max participants").(*tview.InputField).GetText())
	limit, err := strconv.Atoi(raw)
	if err != nil {
		if cf.onError != nil {
			cf.onError(fmt.Errorf("max participants %q is not a number", raw))
		}
		return
	}
	if cf.onSubmit != nil {
		cf.onSubmit(name, limit)
	}
}

package views

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/popspot/popchat/internal/api"
	"github.com/popspot/popchat/internal/chat"
	"github.com/popspot/popchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// MessageThread displays the open room's feed, who is typing, and a
// composer.
type MessageThread struct {
	*tview.Flex
	theme    *ui.Theme
	messages *tview.TextView
	typing   *tview.TextView
	composer *tview.InputField
	roomName string
	roomKey  string
	onSend   func(text string)
	onChange func(text string)
}

// NewMessageThread creates a new message thread view.
func NewMessageThread(theme *ui.Theme) *MessageThread {
	messages := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	messages.SetBorder(true)
	messages.SetBorderColor(theme.BorderColor)
	messages.SetBackgroundColor(theme.BgColor)
	messages.SetTextColor(theme.FgColor)
	messages.SetTitle(" Messages ")
	messages.SetTitleColor(theme.TitleColor)

	typing := tview.NewTextView().
		SetDynamicColors(true)
	typing.SetBackgroundColor(theme.BgColor)
	typing.SetTextColor(theme.TypingColor)

	composer := tview.NewInputField().
		SetLabel(" > ").
		SetFieldWidth(0)
	composer.SetBorder(true)
	composer.SetBorderColor(theme.BorderColor)
	composer.SetBackgroundColor(theme.BgColor)
	composer.SetFieldBackgroundColor(theme.BgColor)
	composer.SetFieldTextColor(theme.FgColor)
	composer.SetLabelColor(theme.MenuKeyColor)
	composer.SetTitle(" Compose (i to focus) ")
	composer.SetTitleColor(theme.TitleColor)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(messages, 0, 1, true).
		AddItem(typing, 1, 0, false).
		AddItem(composer, 3, 0, false)

	mt := &MessageThread{
		Flex:     flex,
		theme:    theme,
		messages: messages,
		typing:   typing,
		composer: composer,
	}

	composer.SetChangedFunc(func(text string) {
		if mt.onChange != nil {
			mt.onChange(text)
		}
	})
	composer.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && mt.onSend != nil {
			text := composer.GetText()
			if strings.TrimSpace(text) != "" {
				mt.onSend(text)
				composer.SetText("")
			}
		}
	})

	return mt
}

// Name implements Component.
func (mt *MessageThread) Name() string {
	if mt.roomName != "" {
		return mt.roomName
	}
	return "Messages"
}

// Init implements Component.
func (mt *MessageThread) Init() {}

// Start implements Component.
func (mt *MessageThread) Start() {}

// Stop implements Component.
func (mt *MessageThread) Stop() {
	mt.composer.SetText("")
}

// Hints implements Component.
func (mt *MessageThread) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "i", Description: "Compose"},
		{Key: "d", Description: "Details"},
		{Key: "r", Description: "Retry upload"},
		{Key: "x", Description: "Cancel upload"},
		{Key: "Esc", Description: "Back"},
	}
}

// FocusTarget implements ui.Focuser.
func (mt *MessageThread) FocusTarget() tview.Primitive {
	return mt.messages
}

// SetOnSend sets the callback when a message is submitted.
func (mt *MessageThread) SetOnSend(fn func(text string)) {
	mt.onSend = fn
}

// SetOnChange sets the callback for composer edits.
func (mt *MessageThread) SetOnChange(fn func(text string)) {
	mt.onChange = fn
}

// RoomKey returns the key of the displayed room.
func (mt *MessageThread) RoomKey() string {
	return mt.roomKey
}

// Update renders a feed.
func (mt *MessageThread) Update(feed *api.FeedResponse) {
	mt.messages.Clear()
	mt.typing.Clear()
	if feed == nil {
		return
	}
	if feed.Room != mt.roomKey {
		mt.composer.SetText("")
	}
	mt.roomKey = feed.Room
	mt.roomName = feed.Name
	if mt.roomName == "" {
		mt.roomName = feed.Room
	}
	mt.messages.SetTitle(fmt.Sprintf(" %s ", tview.Escape(singleLine(mt.roomName))))

	_, _ = fmt.Fprint(mt.messages, FormatFeed(feed, mt.theme))
	if line := TypingLine(feed.Typing); line != "" {
		_, _ = fmt.Fprintf(mt.typing, " [::i]%s[-:-:-]", tview.Escape(line))
	}
	mt.messages.ScrollToEnd()
}

// Messages returns the messages text view (for focus management).
func (mt *MessageThread) Messages() *tview.TextView {
	return mt.messages
}

// Composer returns the composer input field (for focus management).
func (mt *MessageThread) Composer() *tview.InputField {
	return mt.composer
}

// FormatFeed renders a feed, oldest first, as tview markup. A header with
// sender and time is written when either changes from the previous message.
func FormatFeed(feed *api.FeedResponse, theme *ui.Theme) string {
	var b strings.Builder
	var prevSender int64
	var prevMinute string
	for i, m := range feed.Messages {
		if m.DateDivider != "" {
			fmt.Fprintf(&b, "[%s]──── %s ────[-]\n", ui.Color(theme.DateDividerFg), tview.Escape(m.DateDivider))
			prevMinute = ""
		}
		if i == feed.Divider {
			fmt.Fprintf(&b, "[%s::b]──── unread messages ────[-:-:-]\n", ui.Color(theme.DividerColor))
			prevMinute = ""
		}
		if m.Type == string(chat.TypeSystem) {
			fmt.Fprintf(&b, "[::d]  %s[-:-:-]\n", tview.Escape(sanitizeForTerminal(m.Text)))
			prevMinute = ""
			continue
		}

		if m.SenderID != prevSender || m.MinuteKey != prevMinute || prevMinute == "" {
			sender := sanitizeForTerminal(m.SenderNickname)
			color := ui.Color(theme.FgColor)
			if m.Mine {
				sender = "You"
				color = ui.Color(theme.MineColor)
			}
			if sender == "" {
				sender = fmt.Sprintf("user %d", m.SenderID)
			}
			fmt.Fprintf(&b, "\n[%s::b]%s[-:-:-] [%s]%s[-]\n", color, tview.Escape(sender), ui.Color(theme.TimestampFg), m.TimeLabel)
		}
		prevSender, prevMinute = m.SenderID, m.MinuteKey

		b.WriteString(messageBody(m, theme))
		b.WriteString(messageState(m, theme))
		b.WriteString("\n")
	}
	return b.String()
}

func messageBody(m api.Message, theme *ui.Theme) string {
	switch {
	case m.Popup != nil:
		c := ui.Color(theme.PopupCardFg)
		card := fmt.Sprintf("[%s]┃ [::b]%s[-:-:-]\n", c, tview.Escape(sanitizeForTerminal(m.Popup.Name)))
		if m.Popup.Address != "" {
			card += fmt.Sprintf("[%s]┃ %s[-]\n", c, tview.Escape(m.Popup.Address))
		}
		card += fmt.Sprintf("[%s]┃ popup #%d[-]", c, m.Popup.PopupID)
		return card
	case m.Type == string(chat.TypeImage):
		src := m.ImageURL
		if src == "" {
			src = m.LocalPath
		}
		return "image: " + tview.Escape(src)
	default:
		return tview.Escape(sanitizeForTerminal(m.Text))
	}
}

func messageState(m api.Message, theme *ui.Theme) string {
	switch {
	case m.Upload == chat.UploadFailed.String():
		return fmt.Sprintf(" [%s]✗ upload failed (r retry, x cancel)[-]", ui.Color(theme.FailedColor))
	case m.Upload == chat.UploadPending.String():
		return fmt.Sprintf(" [%s]uploading…[-]", ui.Color(theme.PendingColor))
	case m.PendingEcho:
		return fmt.Sprintf(" [%s]sending…[-]", ui.Color(theme.PendingColor))
	case m.Mine && m.UnreadBy > 0:
		return fmt.Sprintf(" [%s]%d[-]", ui.Color(theme.UnreadColor), m.UnreadBy)
	}
	return ""
}

// TypingLine describes who is typing, or "" when nobody is.
func TypingLine(typists []api.Typist) string {
	names := make([]string, 0, len(typists))
	for _, t := range typists {
		if t.Nickname != "" {
			names = append(names, sanitizeForTerminal(t.Nickname))
		}
	}
	switch len(names) {
	case 0:
		if len(typists) > 0 {
			return "someone is typing…"
		}
		return ""
	case 1:
		return names[0] + " is typing…"
	case 2:
		return names[0] + " and " + names[1] + " are typing…"
	default:
		return fmt.Sprintf("%s and %d others are typing…", names[0], len(names)-1)
	}
}

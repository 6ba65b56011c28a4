package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/popspot/popchat/internal/api"
	"github.com/popspot/popchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// RoomList is the main room list view.
type RoomList struct {
	*tview.Table
	theme  *ui.Theme
	rooms  []api.Room
	filter string
}

// NewRoomList creates a new room list table.
func NewRoomList(theme *ui.Theme) *RoomList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.BorderColor)
	table.SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	table.SetTitle(" Rooms ")
	table.SetTitleColor(theme.TitleColor)

	return &RoomList{
		Table: table,
		theme: theme,
	}
}

// Name implements Component.
func (rl *RoomList) Name() string { return "Rooms" }

// Init implements Component.
func (rl *RoomList) Init() {}

// Start implements Component.
func (rl *RoomList) Start() {}

// Stop implements Component.
func (rl *RoomList) Stop() {}

// Hints implements Component.
func (rl *RoomList) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Enter", Description: "Open"},
		{Key: "/", Description: "Filter"},
		{Key: "1-9", Description: "Jump", Numeric: true},
	}
}

// Update refreshes the room list with new data, keeping the selected room.
func (rl *RoomList) Update(rooms []api.Room) {
	selected := rl.SelectedRoom()
	rl.rooms = rooms
	rl.render()
	if selected == "" {
		return
	}
	for i, r := range rl.visible() {
		if r.Key == selected {
			rl.Select(i+1, 0)
			return
		}
	}
}

// SetFilter sets the active filter text and re-renders.
func (rl *RoomList) SetFilter(filter string) {
	rl.filter = filter
	rl.render()
}

// ClearFilter clears the active filter.
func (rl *RoomList) ClearFilter() {
	rl.filter = ""
	rl.render()
}

func (rl *RoomList) visible() []api.Room {
	if rl.filter == "" {
		return rl.rooms
	}
	var out []api.Room
	for _, r := range rl.rooms {
		if containsFold(r.Name, rl.filter) || containsFold(r.LastMessage, rl.filter) {
			out = append(out, r)
		}
	}
	return out
}

func (rl *RoomList) render() {
	rl.Clear()

	headers := []struct {
		text string
		exp  int
	}{
		{" NAME", 1},
		{" LAST MESSAGE", 2},
		{" TIME", 0},
		{" TYPE", 0},
	}
	for col, h := range headers {
		cell := tview.NewTableCell(h.text).
			SetSelectable(false).
			SetTextColor(rl.theme.TableHeaderFg).
			SetBackgroundColor(rl.theme.TableHeaderBg).
			SetAttributes(tcell.AttrBold).
			SetExpansion(h.exp)
		rl.SetCell(0, col, cell)
	}

	visible := rl.visible()
	for i, room := range visible {
		row := i + 1
		fg := rl.theme.FgColor
		switch {
		case room.Active:
			fg = rl.theme.ActiveRoomFg
		case room.Hidden:
			fg = rl.theme.HiddenRoomFg
		case room.UnreadCount > 0:
			fg = rl.theme.UnreadColor
		}

		rl.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(roomLabel(room))).SetExpansion(1).SetTextColor(fg))
		rl.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(singleLine(room.LastMessage))).SetExpansion(2).SetTextColor(fg))
		rl.SetCell(row, 2, tview.NewTableCell(formatTimestamp(room.LastMessageAt, time.Now())).SetTextColor(fg).SetAlign(tview.AlignRight))
		rl.SetCell(row, 3, tview.NewTableCell(" "+room.Type).SetTextColor(fg).SetAlign(tview.AlignRight))
	}

	if rl.filter != "" {
		rl.SetTitle(fmt.Sprintf(" Rooms (%d/%d) filter: %s ", len(visible), len(rl.rooms), tview.Escape(rl.filter)))
	} else {
		rl.SetTitle(fmt.Sprintf(" Rooms (%d) ", len(rl.rooms)))
	}
}

// roomLabel is the name cell: unread badge, name and hidden marker.
func roomLabel(r api.Room) string {
	name := singleLine(r.Name)
	if name == "" {
		name = r.Key
	}
	if r.UnreadCount > 0 {
		badge := fmt.Sprint(r.UnreadCount)
		if r.UnreadCount > 99 {
			badge = "99+"
		}
		name = fmt.Sprintf("(%s) %s", badge, name)
	}
	if r.Hidden {
		name += " [hidden]"
	}
	return name
}

// SelectedRoom returns the key of the currently selected room.
func (rl *RoomList) SelectedRoom() string {
	row, _ := rl.GetSelection()
	return rl.RoomByIndex(row)
}

// RoomByIndex returns the key of the Nth visible room (1-based).
func (rl *RoomList) RoomByIndex(n int) string {
	visible := rl.visible()
	if n < 1 || n > len(visible) {
		return ""
	}
	return visible[n-1].Key
}

func formatTimestamp(ms int64, now time.Time) string {
	if ms == 0 {
		return ""
	}
	t := time.UnixMilli(ms).In(now.Location())
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

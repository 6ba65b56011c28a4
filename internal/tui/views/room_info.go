package views

import (
	"fmt"
	"time"

	"github.com/popspot/popchat/internal/api"
	"github.com/popspot/popchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// RoomInfo displays details of a room: the other participant's profile for
// private rooms, the owner, limit and members for group rooms.
type RoomInfo struct {
	*tview.TextView
	theme *ui.Theme

	room    api.Room
	profile *api.Profile
	group   *api.GroupRoom
	members []api.Participant
}

// NewRoomInfo creates a new room info view.
func NewRoomInfo(theme *ui.Theme) *RoomInfo {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Room Details ")
	tv.SetTitleColor(theme.TitleColor)

	return &RoomInfo{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements Component.
func (ri *RoomInfo) Name() string { return "Details" }

// Init implements Component.
func (ri *RoomInfo) Init() {}

// Start implements Component.
func (ri *RoomInfo) Start() {}

// Stop implements Component.
func (ri *RoomInfo) Stop() {}

// Hints implements Component.
func (ri *RoomInfo) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "Esc", Description: "Back"},
	}
}

// Update renders room details. profile may be nil. Group details shown for
// another room are dropped.
func (ri *RoomInfo) Update(room api.Room, profile *api.Profile) {
	if room.Key != ri.room.Key {
		ri.group, ri.members = nil, nil
	}
	ri.room, ri.profile = room, profile
	ri.render()
	ri.ScrollToBeginning()
}

// ShowGroup adds group details to the room on screen. It is ignored when
// another room is shown by now.
func (ri *RoomInfo) ShowGroup(g *api.GroupRoom, members []api.Participant) {
	if g == nil || g.Room != ri.room.Key {
		return
	}
	ri.group, ri.members = g, members
	ri.render()
}

// RoomKey returns the key of the room on screen.
func (ri *RoomInfo) RoomKey() string { return ri.room.Key }

func (ri *RoomInfo) render() {
	ri.Clear()
	room := ri.room

	fg := ui.Color(ri.theme.FgColor)
	ct := ui.Color(ri.theme.CounterColor)
	field := func(label, value string) {
		if value == "" {
			value = "-"
		}
		_, _ = fmt.Fprintf(ri, " [%s::b]%-13s[-:-:-] [%s]%s[-]\n", fg, label+":", ct, tview.Escape(sanitizeForTerminal(value)))
	}

	roomType := "Group"
	if room.Type == "PRIVATE" {
		roomType = "Private"
	}
	lastActive := formatTimestamp(room.LastMessageAt, time.Now())

	_, _ = fmt.Fprintln(ri)
	field("Name", room.Name)
	field("Key", room.Key)
	field("Type", roomType)
	if room.PopupID > 0 {
		field("Popup", fmt.Sprintf("#%d", room.PopupID))
	}
	field("Unread", fmt.Sprint(room.UnreadCount))
	field("Last Active", lastActive)
	field("Last Message", room.LastMessage)
	if room.Hidden {
		field("Hidden", "yes")
	}

	if g := ri.group; g != nil {
		_, _ = fmt.Fprintln(ri)
		if g.PopupName != "" {
			field("Popup Name", g.PopupName)
		}
		owner := fmt.Sprintf("#%d", g.OwnerID)
		if g.Owned {
			owner = "you"
		}
		field("Owner", owner)
		field("Members", fmt.Sprintf("%d/%d", g.CurrentParticipants, g.MaxParticipants))
		for _, m := range ri.members {
			name := m.Nickname
			if m.Self {
				name += " (you)"
			}
			_, _ = fmt.Fprintf(ri, "   [%s]%s[-]\n", ct, tview.Escape(sanitizeForTerminal(singleLine(name))))
		}
	}

	if p := ri.profile; p != nil {
		_, _ = fmt.Fprintln(ri)
		field("User", fmt.Sprintf("%s (#%d)", p.Nickname, p.UserID))
		field("About", p.Introduction)
		field("Photo", p.ImageURL)
	}
	ri.SetTitle(fmt.Sprintf(" %s Details ", tview.Escape(sanitizeForTerminal(room.Name))))
}

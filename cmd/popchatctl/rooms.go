package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/popspot/popchat/internal/api"
	"github.com/popspot/popchat/internal/tui/client"
)

func cmdGroups(ctx context.Context, c *client.Client, args []string) {
	var popupID int64
	if len(args) > 0 {
		popupID = idArg(args[0])
	}
	rooms, err := c.ListGroupRooms(ctx, popupID)
	check(err)
	if jsonOutput {
		outputJSON(rooms)
		return
	}
	if len(rooms) == 0 {
		fmt.Println("no group rooms")
		return
	}
	for _, g := range rooms {
		mark := " "
		if g.Joined {
			mark = "*"
		}
		fmt.Printf("%s %-12s %-24s %d/%d  %s\n", mark, g.Room, g.Name, g.CurrentParticipants, g.MaxParticipants, g.PopupName)
	}
}

func cmdGroup(ctx context.Context, c *client.Client, room string) {
	g, err := c.GetGroupRoom(ctx, room)
	check(err)
	ps, err := c.ListParticipants(ctx, room)
	check(err)
	if jsonOutput {
		outputJSON(struct {
			*api.GroupRoom
			Participants []api.Participant `json:"participants"`
		}{g, ps})
		return
	}
	fmt.Printf("%s %s\n", g.Room, g.Name)
	if g.PopupName != "" {
		fmt.Printf("Popup:   #%d %s\n", g.PopupID, g.PopupName)
	}
	owner := strconv.FormatInt(g.OwnerID, 10)
	if g.Owned {
		owner = "you"
	}
	fmt.Printf("Owner:   %s\n", owner)
	fmt.Printf("Members: %d/%d\n", g.CurrentParticipants, g.MaxParticipants)
	for _, p := range ps {
		name := p.Nickname
		if p.Self {
			name += " (you)"
		}
		fmt.Printf("  %-20s read up to %d\n", name, p.LastReadMessageID)
	}
}

func printGroup(g *api.GroupRoom) {
	if jsonOutput {
		outputJSON(g)
		return
	}
	fmt.Printf("%s %s %d/%d\n", g.Room, g.Name, g.CurrentParticipants, g.MaxParticipants)
}

func cmdScheduled(ctx context.Context, c *client.Client, args []string) {
	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}
	switch sub {
	case "list":
		room := ""
		if len(args) > 0 {
			room = roomArg(args[0])
		}
		msgs, err := c.ListScheduled(ctx, room)
		check(err)
		printScheduled(msgs...)
	case "add":
		need(args, 2, "scheduled add WHEN TEXT")
		at, err := parseWhen(args[0], time.Now())
		check(err)
		m, err := c.ScheduleMessage(ctx, "", strings.Join(args[1:], " "), at)
		check(err)
		printScheduled(*m)
	case "edit":
		need(args, 3, "scheduled edit ID WHEN TEXT")
		at, err := parseWhen(args[1], time.Now())
		check(err)
		m, err := c.UpdateScheduled(ctx, idArg(args[0]), "", strings.Join(args[2:], " "), at)
		check(err)
		printScheduled(*m)
	case "rm":
		need(args, 1, "scheduled rm ID")
		check(c.DeleteScheduled(ctx, idArg(args[0])))
		fmt.Println("deleted")
	default:
		fail(fmt.Errorf("usage: popchatctl scheduled [list [ROOM] | add WHEN TEXT | edit ID WHEN TEXT | rm ID]"))
	}
}

func printScheduled(msgs ...api.ScheduledMessage) {
	if jsonOutput {
		outputJSON(msgs)
		return
	}
	if len(msgs) == 0 {
		fmt.Println("no scheduled messages")
		return
	}
	for _, m := range msgs {
		at := time.UnixMilli(m.At).Format("2006-01-02 15:04")
		fmt.Printf("%6d  %s  %s  %s\n", m.ID, at, m.Room, m.Text)
	}
}

// cmdReport handles "report ROOM [MESSAGE_ID] REASON...".
func cmdReport(ctx context.Context, c *client.Client, args []string) {
	need(args, 2, "report ROOM [MESSAGE_ID] REASON")
	req := api.ReportRequest{Room: roomArg(args[0])}
	rest := args[1:]
	if id, err := strconv.ParseInt(rest[0], 10, 64); err == nil && len(rest) > 1 {
		req.MessageID, rest = id, rest[1:]
	}
	req.Reason = strings.Join(rest, " ")
	check(c.Report(ctx, req))
	fmt.Println("reported")
}

// parseWhen reads a delivery time: "+90m" from now, "15:04" today (or
// tomorrow once passed), "2006-01-02 15:04" local time, or RFC 3339.
func parseWhen(s string, now time.Time) (time.Time, error) {
	if strings.HasPrefix(s, "+") {
		d, err := time.ParseDuration(s[1:])
		if err != nil || d <= 0 {
			return time.Time{}, fmt.Errorf("invalid delay %q", s)
		}
		return now.Add(d), nil
	}
	if t, err := time.ParseInLocation("15:04", s, now.Location()); err == nil {
		at := time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location())
		if !at.After(now) {
			at = at.AddDate(0, 0, 1)
		}
		return at, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04", s, now.Location()); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: use +DURATION, HH:MM, \"YYYY-MM-DD HH:MM\" or RFC 3339", s)
}

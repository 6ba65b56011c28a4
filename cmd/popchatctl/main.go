package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/popspot/popchat/internal/api"
	"github.com/popspot/popchat/internal/profile"
	"github.com/popspot/popchat/internal/tui/client"
	"github.com/popspot/popchat/internal/tui/ui"
)

var jsonOutput bool

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	flag.BoolVar(&jsonOutput, "json", false, "output as JSON")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	name := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(name); err != nil {
		fail(err)
	}

	c, err := client.New(profile.SocketPath(name))
	if err != nil {
		fail(fmt.Errorf("connect to daemon: %w", err))
	}
	defer func() { _ = c.Close() }()

	if args[0] == "watch" {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		cmdWatch(ctx, c, args[1:])
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch args[0] {
	case "status":
		cmdStatus(ctx, c)
	case "rooms":
		cmdRooms(ctx, c, args[1:])
	case "open":
		need(args, 2, "open ROOM")
		feed, err := c.OpenRoom(ctx, roomArg(args[1]))
		check(err)
		printFeed(feed)
	case "close":
		check(c.CloseRoom(ctx))
		fmt.Println("closed")
	case "feed":
		feed, err := c.Feed(ctx)
		check(err)
		printFeed(feed)
	case "send":
		need(args, 2, "send TEXT")
		key, err := c.SendText(ctx, strings.Join(args[1:], " "))
		check(err)
		printKey(key)
	case "share":
		need(args, 2, "share POPUP_ID")
		key, err := c.SharePopup(ctx, idArg(args[1]))
		check(err)
		printKey(key)
	case "image":
		need(args, 2, "image PATH")
		key, err := c.SendImage(ctx, args[1])
		check(err)
		printKey(key)
	case "typing":
		need(args, 2, "typing on|off")
		check(c.SetTyping(ctx, args[1] == "on"))
	case "retry":
		need(args, 2, "retry KEY")
		check(c.RetryUpload(ctx, args[1]))
		fmt.Println("retrying")
	case "cancel":
		need(args, 2, "cancel KEY")
		check(c.CancelUpload(ctx, args[1]))
		fmt.Println("cancelled")
	case "private":
		need(args, 2, "private USER_ID")
		room, err := c.StartPrivate(ctx, idArg(args[1]))
		check(err)
		printRoom(room)
	case "ai":
		room, err := c.StartAI(ctx)
		check(err)
		printRoom(room)
	case "create":
		need(args, 4, "create POPUP_ID NAME MAX")
		limit, err := strconv.Atoi(args[len(args)-1])
		check(err)
		room, err := c.CreateRoom(ctx, api.CreateRoomRequest{
			PopupID:         idArg(args[1]),
			Name:            strings.Join(args[2:len(args)-1], " "),
			MaxParticipants: limit,
		})
		check(err)
		printRoom(room)
	case "join":
		need(args, 2, "join ROOM_ID")
		room, err := c.JoinRoom(ctx, roomArg(args[1]))
		check(err)
		printRoom(room)
	case "leave":
		need(args, 2, "leave ROOM")
		check(c.LeaveRoom(ctx, roomArg(args[1])))
		fmt.Println("left")
	case "hide", "unhide":
		need(args, 2, args[0]+" ROOM")
		check(c.HideRoom(ctx, roomArg(args[1]), args[0] == "hide"))
		fmt.Println("ok")
	case "groups":
		cmdGroups(ctx, c, args[1:])
	case "group":
		need(args, 2, "group ROOM")
		cmdGroup(ctx, c, roomArg(args[1]))
	case "rename":
		need(args, 3, "rename ROOM NAME")
		name := strings.Join(args[2:], " ")
		g, err := c.UpdateGroupRoom(ctx, api.UpdateGroupRoomRequest{Room: roomArg(args[1]), Name: &name})
		check(err)
		printGroup(g)
	case "limit":
		need(args, 3, "limit ROOM MAX")
		limit, err := strconv.Atoi(args[2])
		check(err)
		g, err := c.UpdateGroupRoom(ctx, api.UpdateGroupRoomRequest{Room: roomArg(args[1]), MaxParticipants: &limit})
		check(err)
		printGroup(g)
	case "scheduled":
		cmdScheduled(ctx, c, args[1:])
	case "report":
		cmdReport(ctx, c, args[1:])
	case "popups":
		popups, err := c.ListPopups(ctx, strings.Join(args[1:], " "))
		check(err)
		printPopups(popups)
	case "popup":
		cmdPopup(ctx, c, name, args[1:])
	case "profile":
		need(args, 2, "profile USER_ID")
		p, err := c.GetProfile(ctx, idArg(args[1]))
		check(err)
		if jsonOutput {
			outputJSON(p)
			return
		}
		fmt.Printf("%s (user %d)\n", p.Nickname, p.UserID)
		if p.Introduction != "" {
			fmt.Println(p.Introduction)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: popchatctl [--profile NAME] [--json] <command> [args]

Commands:
  status                       Show daemon status
  rooms [refresh] [all]        List rooms (all includes hidden ones)
  open ROOM                    Open a room and print its feed
  close                        Close the open room
  feed                         Print the open room's feed
  send TEXT                    Send text to the open room
  share POPUP_ID               Share a popup card to the open room
  image PATH                   Send an image to the open room
  typing on|off                Set the typing indicator
  retry KEY                    Retry a failed upload
  cancel KEY                   Drop a failed upload
  private USER_ID              Open a private room with a user
  ai                           Open the assistant room
  create POPUP_ID NAME MAX     Create a group room for a popup
  join ROOM_ID                 Join a group room
  leave ROOM                   Leave a room
  hide ROOM | unhide ROOM      Hide or show a room in the list
  groups [POPUP_ID]            List group rooms, of one popup or all
  group ROOM                   Show a group room and its members
  rename ROOM NAME             Rename a group room you own
  limit ROOM MAX               Change a group room's participant limit
  scheduled [list [ROOM]]      List scheduled messages (default: open room)
  scheduled add WHEN TEXT      Schedule text for the open room
  scheduled edit ID WHEN TEXT  Change a scheduled message
  scheduled rm ID              Cancel a scheduled message
  report ROOM [MSG_ID] REASON  Report a room or one of its messages
  popups [KEYWORD]             Search popups
  popup ID | popup qr ID       Show a popup, or its link as a QR code
  profile USER_ID              Show a user's profile
  watch [NAMESPACE...]         Stream daemon events

ROOM is GROUP/ID, PRIVATE/ID or a bare group id. WHEN is +DURATION,
HH:MM, "YYYY-MM-DD HH:MM" or RFC 3339.
`)
}

func cmdStatus(ctx context.Context, c *client.Client) {
	st, err := c.Status(ctx)
	check(err)
	if jsonOutput {
		outputJSON(st)
		return
	}
	fmt.Printf("Profile:         %s\n", st.Profile)
	fmt.Printf("User:            %s (%d)\n", st.Nickname, st.UserID)
	fmt.Printf("Push:            %s\n", st.PushState)
	fmt.Printf("Reconnects:      %d\n", st.Reconnects)
	if st.ActiveRoom != "" {
		fmt.Printf("Open room:       %s\n", st.ActiveRoom)
	}
	fmt.Printf("Rooms:           %d\n", st.RoomCount)
	fmt.Printf("Pending uploads: %d\n", st.PendingUploads)
	fmt.Printf("Dropped events:  %d\n", st.DroppedEvents)
	fmt.Printf("Uptime:          %s\n", (time.Duration(st.UptimeMs) * time.Millisecond).Truncate(time.Second))
}

func cmdRooms(ctx context.Context, c *client.Client, args []string) {
	var refresh, all bool
	for _, a := range args {
		switch a {
		case "refresh":
			refresh = true
		case "all":
			all = true
		default:
			fail(fmt.Errorf("unknown rooms option %q", a))
		}
	}
	rooms, err := c.ListRooms(ctx, refresh, all)
	check(err)
	if jsonOutput {
		outputJSON(rooms)
		return
	}
	if len(rooms) == 0 {
		fmt.Println("no rooms")
		return
	}
	for _, r := range rooms {
		mark := " "
		if r.Active {
			mark = "*"
		}
		line := fmt.Sprintf("%s %-14s %s", mark, r.Key, r.Name)
		if r.UnreadCount > 0 {
			line += fmt.Sprintf(" (%d)", r.UnreadCount)
		}
		if r.Hidden {
			line += " [hidden]"
		}
		fmt.Println(line)
	}
}

func cmdPopup(ctx context.Context, c *client.Client, name string, args []string) {
	if len(args) == 2 && args[0] == "qr" {
		settings, err := profile.Settings(name)
		check(err)
		link := settings.PopupLink(idArg(args[1]))
		qr, err := ui.RenderQR(link, "  ")
		check(err)
		fmt.Print(qr)
		fmt.Println(link)
		return
	}
	if len(args) != 1 {
		fail(fmt.Errorf("usage: popup ID | popup qr ID"))
	}
	p, err := c.GetPopup(ctx, idArg(args[0]))
	check(err)
	if jsonOutput {
		outputJSON(p)
		return
	}
	fmt.Printf("#%d %s\n", p.ID, p.Name)
	if p.Address != "" {
		fmt.Println(p.Address)
	}
	if p.StartDate != "" || p.EndDate != "" {
		fmt.Printf("%s ~ %s\n", p.StartDate, p.EndDate)
	}
}

func cmdWatch(ctx context.Context, c *client.Client, namespaces []string) {
	enc := json.NewEncoder(os.Stdout)
	err := c.WatchEvents(ctx, namespaces, func(e api.Event) {
		if jsonOutput {
			_ = enc.Encode(e)
			return
		}
		ts := time.UnixMilli(e.OccurredAt).Format("15:04:05")
		fmt.Printf("%s %s %v\n", ts, e.Kind, e.Payload)
	})
	check(err)
}

func printFeed(feed *api.FeedResponse) {
	if jsonOutput {
		outputJSON(feed)
		return
	}
	fmt.Printf("== %s (%s) ==\n", feed.Name, feed.Room)
	for i, m := range feed.Messages {
		if m.DateDivider != "" {
			fmt.Printf("-- %s --\n", m.DateDivider)
		}
		if i == feed.Divider {
			fmt.Println("-- unread --")
		}
		sender := m.SenderNickname
		if m.Mine {
			sender = "you"
		}
		body := m.Text
		switch {
		case m.Popup != nil:
			body = fmt.Sprintf("[popup #%d %s]", m.Popup.PopupID, m.Popup.Name)
		case m.ImageURL != "" || m.LocalPath != "":
			body = "[image " + m.ImageURL + m.LocalPath + "]"
		}
		state := m.Upload
		if m.PendingEcho && state == "" {
			state = "sending"
		}
		if state != "" {
			body += " (" + strings.ToLower(state) + ")"
		}
		fmt.Printf("%s %s: %s\n", m.TimeLabel, sender, body)
	}
	if len(feed.Typing) > 0 {
		names := make([]string, 0, len(feed.Typing))
		for _, t := range feed.Typing {
			names = append(names, t.Nickname)
		}
		fmt.Printf("typing: %s\n", strings.Join(names, ", "))
	}
}

func printPopups(popups []api.Popup) {
	if jsonOutput {
		outputJSON(popups)
		return
	}
	if len(popups) == 0 {
		fmt.Println("no popups")
		return
	}
	for _, p := range popups {
		fmt.Printf("%6d  %s  %s\n", p.ID, p.Name, p.Address)
	}
}

func printKey(key string) {
	if jsonOutput {
		outputJSON(map[string]string{"clientMessageKey": key})
		return
	}
	fmt.Println(key)
}

func printRoom(room string) {
	if jsonOutput {
		outputJSON(map[string]string{"room": room})
		return
	}
	fmt.Println(room)
}

// roomArg accepts a full room key or a bare group id.
func roomArg(s string) string {
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return "GROUP/" + s
	}
	return strings.ToUpper(s)
}

func idArg(s string) int64 {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		fail(fmt.Errorf("invalid id %q", s))
	}
	return id
}

func need(args []string, n int, usage string) {
	if len(args) < n {
		fail(fmt.Errorf("usage: popchatctl %s", usage))
	}
}

func check(err error) {
	if err != nil {
		fail(err)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

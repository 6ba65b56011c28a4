package tui

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/popspot/popchat/internal/api"
	"github.com/popspot/popchat/internal/tui/client"
	"github.com/popspot/popchat/internal/tui/keys"
	"github.com/popspot/popchat/internal/tui/model"
	"github.com/popspot/popchat/internal/tui/ui"
	"github.com/popspot/popchat/internal/tui/views"
	"github.com/rivo/tview"
)

const (
	pageRooms  = "rooms"
	pageThread = "thread"
	pageInfo   = "info"
	pageHelp   = "help"
	pagePopups = "popups"
	pageCreate = "create"
	pagePopup  = "popup"

	actionTimeout = 15 * time.Second
)

// App is the main TUI application shell.
type App struct {
	app      *tview.Application
	theme    *ui.Theme
	root     *tview.Flex
	pages    *ui.Pages
	vm       *model.ViewModel
	daemon   *client.Client
	registry *keys.Registry
	notices  *ui.Notices

	session *ui.SessionInfo
	menu    *ui.Menu
	crumbs  *ui.Crumbs
	status  *ui.StatusLine
	logo    *ui.Logo
	prompt  *ui.Prompt

	rooms  *views.RoomList
	thread *views.MessageThread
	info   *views.RoomInfo
	help   *views.HelpView
	picker *views.PopupPicker
	form   *views.CreateForm
	popup  *views.PopupView

	components map[string]ui.Component
	profile    string
	popupLink  func(id int64) string
	promptOn   bool

	mu        sync.Mutex
	pending   model.Refresh
	refreshCh chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// NewApp creates the TUI application. popupLink builds the public link of a
// popup for its QR code.
func NewApp(c *client.Client, profile string, popupLink func(id int64) string) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:       tview.NewApplication(),
		theme:     theme,
		pages:     ui.NewPages(pageRooms),
		vm:        model.NewViewModel(c),
		daemon:    c,
		registry:  keys.NewRegistry(),
		notices:   ui.NewNotices(),
		session:   ui.NewSessionInfo(theme),
		menu:      ui.NewMenu(theme),
		crumbs:    ui.NewCrumbs(theme),
		status:    ui.NewStatusLine(theme),
		logo:      ui.NewLogo(theme),
		prompt:    ui.NewPrompt(theme),
		rooms:     views.NewRoomList(theme),
		thread:    views.NewMessageThread(theme),
		info:      views.NewRoomInfo(theme),
		help:      views.NewHelpView(theme),
		picker:    views.NewPopupPicker(theme),
		form:      views.NewCreateForm(theme),
		popup:     views.NewPopupView(theme),
		profile:   profile,
		popupLink: popupLink,
		refreshCh: make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
	}
	a.components = map[string]ui.Component{
		pageRooms:  a.rooms,
		pageThread: a.thread,
		pageInfo:   a.info,
		pageHelp:   a.help,
		pagePopups: a.picker,
		pageCreate: a.form,
		pagePopup:  a.popup,
	}

	a.setupBindings()
	a.setupCallbacks()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: ':', Description: "Command", Visible: true,
		Handler: a.showPrompt,
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: '?', Description: "Help", Visible: true,
		Handler: func() { a.push(pageHelp) },
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'q', Description: "Quit", Visible: true,
		Handler: a.Stop,
	})

	a.registry.AddView(pageRooms, &keys.Action{
		Key: tcell.KeyRune, Rune: '/', Description: "Filter",
		Handler: a.showFilter,
	})
	a.registry.AddView(pageRooms, &keys.Action{
		Key: tcell.KeyRune, Rune: 'c', Description: "Create",
		Handler: a.beginCreate,
	})
	a.registry.AddView(pageRooms, &keys.Action{
		Key: tcell.KeyRune, Rune: 'R', Description: "Refresh",
		Handler: func() {
			a.do("refresh", func(ctx context.Context) error { return a.vm.LoadRooms(ctx, true) }, model.RefreshStatus)
		},
	})
	a.registry.AddView(pageRooms, &keys.Action{
		Key: tcell.KeyRune, Rune: 'H', Description: "Hidden",
		Handler: func() {
			if a.vm.ToggleHidden() {
				a.notices.Info("showing hidden rooms")
			}
			a.schedule(model.RefreshRooms)
		},
	})
	a.registry.AddView(pageRooms, &keys.Action{
		Key: tcell.KeyRune, Rune: 'd', Description: "Details",
		Handler: func() { a.showInfo(a.rooms.SelectedRoom(), nil) },
	})

	a.registry.AddView(pageThread, &keys.Action{
		Key: tcell.KeyRune, Rune: 'i', Description: "Compose",
		Handler: func() { a.app.SetFocus(a.thread.Composer()) },
	})
	a.registry.AddView(pageThread, &keys.Action{
		Key: tcell.KeyRune, Rune: 'd', Description: "Details",
		Handler: func() { a.showInfo(a.thread.RoomKey(), nil) },
	})
	a.registry.AddView(pageThread, &keys.Action{
		Key: tcell.KeyRune, Rune: 'r', Description: "Retry",
		Handler: func() {
			a.do("retry", func(ctx context.Context) error { return a.vm.RetryUpload(ctx, "") }, 0)
		},
	})
	a.registry.AddView(pageThread, &keys.Action{
		Key: tcell.KeyRune, Rune: 'x', Description: "Cancel upload",
		Handler: func() {
			a.do("cancel", func(ctx context.Context) error { return a.vm.CancelUpload(ctx, "") }, 0)
		},
	})
}

func (a *App) setupCallbacks() {
	a.pages.SetOnChange(func(stack []string) {
		names := make([]string, len(stack))
		for i, p := range stack {
			names[i] = a.components[p].Name()
		}
		a.crumbs.Update(names)
		a.updateMenu()
	})

	a.rooms.SetSelectedFunc(func(row, _ int) {
		if key := a.rooms.RoomByIndex(row); key != "" {
			a.openRoom(key)
		}
	})

	a.thread.SetOnSend(func(text string) {
		a.do("send", func(ctx context.Context) error { return a.vm.Send(ctx, text) }, 0)
	})
	a.thread.SetOnChange(func(text string) {
		go func() {
			ctx, cancel := context.WithTimeout(a.ctx, actionTimeout)
			defer cancel()
			if err := a.vm.ComposerChanged(ctx, text); err != nil {
				a.notices.Failed("typing", err)
			}
		}()
	})

	a.picker.SetOnQuery(func(keyword string) {
		go func() {
			ctx, cancel := context.WithTimeout(a.ctx, actionTimeout)
			defer cancel()
			popups, err := a.vm.SearchPopups(ctx, keyword)
			if err != nil {
				a.notices.Failed("search", err)
				return
			}
			a.app.QueueUpdateDraw(func() {
				a.picker.Update(popups)
				a.app.SetFocus(a.picker.Results())
			})
		}()
	})
	a.picker.SetOnSelect(func(p api.Popup) {
		if err := a.vm.SelectPopup(p); err != nil {
			a.notices.Failed("create", err)
			return
		}
		a.form.Reset(p)
		a.push(pageCreate)
	})

	a.form.SetOnSubmit(func(name string, limit int) {
		go func() {
			ctx, cancel := context.WithTimeout(a.ctx, actionTimeout)
			defer cancel()
			if _, err := a.vm.SubmitCreate(ctx, name, limit); err != nil {
				a.notices.Failed("create", err)
				return
			}
			a.notices.Info("room created")
			a.app.QueueUpdateDraw(a.showThread)
		}()
	})
	a.form.SetOnCancel(func() { a.pages.Unwind(); a.focusCurrent() })
	a.form.SetOnError(func(err error) { a.notices.Failed("create", err) })

	a.prompt.SetOnSubmit(func(mode ui.PromptMode, text string) {
		a.hidePrompt()
		switch mode {
		case ui.PromptFilter:
			a.rooms.SetFilter(text)
		case ui.PromptCommand:
			a.runCommand(ParseCommand(text))
		}
	})
	a.prompt.SetOnCancel(a.hidePrompt)
}

func (a *App) setupLayout() {
	for name, c := range a.components {
		a.pages.AddPage(name, c.(tview.Primitive), true, false)
	}

	header := tview.NewFlex().
		AddItem(a.session, 0, 1, false).
		AddItem(a.menu, 0, 1, false).
		AddItem(a.logo, 18, 0, false)

	a.root = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(header, 7, 0, false).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.status, 1, 0, false)

	a.app.SetRoot(a.root, true)
	a.pages.Unwind()
	a.app.SetFocus(a.rooms)

	a.app.SetInputCapture(a.capture)
}

func (a *App) capture(event *tcell.EventKey) *tcell.EventKey {
	if a.promptOn {
		return event
	}
	page := a.pages.Top()
	focused := a.app.GetFocus()

	if event.Key() == tcell.KeyEscape {
		switch {
		case focused == a.thread.Composer():
			a.app.SetFocus(a.thread.Messages())
		case page == pageRooms:
			a.rooms.ClearFilter()
		default:
			a.back()
		}
		return nil
	}

	if page == pagePopups && event.Key() == tcell.KeyTab {
		if focused == a.picker.Input() {
			a.app.SetFocus(a.picker.Results())
		} else {
			a.app.SetFocus(a.picker.Input())
		}
		return nil
	}

	// Text inputs and the create form receive keys unfiltered.
	if _, ok := focused.(*tview.InputField); ok || page == pageCreate {
		return event
	}

	if page == pageRooms && event.Key() == tcell.KeyRune && event.Rune() >= '1' && event.Rune() <= '9' {
		if key := a.rooms.RoomByIndex(int(event.Rune() - '0')); key != "" {
			a.openRoom(key)
		}
		return nil
	}

	if a.registry.HandleEvent(page, event) {
		return nil
	}
	return event
}

func (a *App) push(page string) {
	if a.pages.Top() == page {
		return
	}
	a.pages.Open(page)
	a.focusCurrent()
}

func (a *App) back() {
	switch a.pages.Top() {
	case pageRooms:
		return
	case pageThread:
		a.closeRoom()
	}
	a.pages.Back()
	a.focusCurrent()
}

func (a *App) focusCurrent() {
	c, ok := a.components[a.pages.Top()]
	if !ok {
		return
	}
	if f, ok := c.(ui.Focuser); ok {
		a.app.SetFocus(f.FocusTarget())
		return
	}
	a.app.SetFocus(c.(tview.Primitive))
}

func (a *App) updateMenu() {
	var hints []ui.MenuHint
	if c, ok := a.components[a.pages.Top()]; ok {
		hints = append(hints, c.Hints()...)
	}
	hints = append(hints, a.registry.Hints("")...)
	a.menu.Update(hints)
}

func (a *App) showPrompt() {
	a.prompt.Activate(ui.PromptCommand)
	a.openPrompt()
}

func (a *App) showFilter() {
	a.prompt.Activate(ui.PromptFilter)
	a.openPrompt()
}

func (a *App) openPrompt() {
	if a.promptOn {
		return
	}
	a.promptOn = true
	a.root.RemoveItem(a.pages)
	a.root.RemoveItem(a.crumbs)
	a.root.RemoveItem(a.status)
	a.root.AddItem(a.prompt, 3, 0, true).
		AddItem(a.pages, 0, 1, false).
		AddItem(a.crumbs, 1, 0, false).
		AddItem(a.status, 1, 0, false)
	a.app.SetFocus(a.prompt)
}

func (a *App) hidePrompt() {
	if !a.promptOn {
		return
	}
	a.promptOn = false
	a.root.RemoveItem(a.prompt)
	a.focusCurrent()
}

// do runs a daemon action off the UI goroutine, shows its error as a notice
// and reloads what the action touched.
func (a *App) do(action string, fn func(ctx context.Context) error, after model.Refresh) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, actionTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			a.notices.Failed(action, err)
		}
		if after != 0 {
			a.schedule(after)
		}
	}()
}

func (a *App) openRoom(key string) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, actionTimeout)
		defer cancel()
		if err := a.vm.Open(ctx, key); err != nil {
			a.notices.Failed("open", err)
			if a.vm.ActiveRoom() == "" {
				return
			}
		}
		a.app.QueueUpdateDraw(a.showThread)
	}()
}

// showThread switches to the open room. It runs on the UI goroutine.
func (a *App) showThread() {
	a.thread.Update(a.vm.Feed())
	a.pages.Unwind()
	a.push(pageThread)
}

func (a *App) closeRoom() {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, actionTimeout)
		defer cancel()
		if err := a.vm.Close(ctx); err != nil {
			a.notices.Failed("close", err)
		}
	}()
}

func (a *App) beginCreate() {
	a.vm.BeginCreate()
	a.picker.Update(nil)
	a.push(pagePopups)
}

// showInfo shows the details of room, with profile when given.
func (a *App) showInfo(room string, profile *api.Profile) {
	r, ok := a.vm.Room(room)
	if !ok && profile == nil {
		a.notices.Warn("no room selected")
		return
	}
	if !ok {
		r = api.Room{Key: room, Name: profile.Nickname}
	}
	a.info.Update(r, profile)
	a.push(pageInfo)

	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, actionTimeout)
		defer cancel()
		g, members, err := a.vm.GroupDetails(ctx, room)
		if err != nil {
			a.notices.Failed("details", err)
			return
		}
		if g != nil {
			a.app.QueueUpdateDraw(func() { a.info.ShowGroup(g, members) })
		}
	}()
}

func (a *App) runCommand(cmd Command) {
	switch cmd.Name {
	case "quit":
		a.Stop()
	case "help":
		a.push(pageHelp)
	case "open":
		if room := cmd.Room(); room != "" {
			a.openRoom(room)
		} else {
			a.notices.Warn(":open needs a room")
		}
	case "private":
		id, err := cmd.ID()
		if err != nil {
			a.notices.Failed("private", err)
			return
		}
		a.startRoom("private", func(ctx context.Context) (string, error) { return a.vm.StartPrivate(ctx, id) })
	case "ai":
		a.startRoom("ai", func(ctx context.Context) (string, error) { return a.vm.StartPrivate(ctx, 0) })
	case "join":
		if _, err := cmd.ID(); err != nil {
			a.notices.Failed("join", err)
			return
		}
		a.startRoom("join", func(ctx context.Context) (string, error) { return a.vm.Join(ctx, cmd.Room()) })
	case "create":
		a.beginCreate()
	case "leave":
		room := cmd.Room()
		if room == "" && a.pages.Top() == pageRooms {
			room = a.rooms.SelectedRoom()
		}
		leavingOpen := room == "" || room == a.vm.ActiveRoom()
		a.do("leave", func(ctx context.Context) error { return a.vm.Leave(ctx, room) }, model.RefreshRooms)
		if leavingOpen && a.pages.Has(pageThread) {
			a.pages.Unwind()
			a.focusCurrent()
		}
	case "hide", "unhide":
		room := cmd.Room()
		if room == "" {
			room = a.rooms.SelectedRoom()
		}
		hidden := cmd.Name == "hide"
		a.do(cmd.Name, func(ctx context.Context) error { return a.vm.Hide(ctx, room, hidden) }, model.RefreshRooms)
	case "image":
		if cmd.Args == "" {
			a.notices.Warn(":image needs a path")
			return
		}
		a.do("image", func(ctx context.Context) error { return a.vm.SendImage(ctx, cmd.Args) }, 0)
	case "share":
		id, err := cmd.ID()
		if err != nil {
			a.notices.Failed("share", err)
			return
		}
		a.do("share", func(ctx context.Context) error { return a.vm.SharePopup(ctx, id) }, 0)
	case "popup":
		id, err := cmd.ID()
		if err != nil {
			a.notices.Failed("popup", err)
			return
		}
		a.showPopup(id)
	case "profile":
		id, err := cmd.ID()
		if err != nil {
			a.notices.Failed("profile", err)
			return
		}
		a.showProfile(id)
	case "rename":
		if cmd.Args == "" {
			a.notices.Warn(":rename needs a name")
			return
		}
		name, room := cmd.Args, a.targetRoom()
		a.do("rename", func(ctx context.Context) error { return a.vm.UpdateGroup(ctx, room, &name, nil) }, model.RefreshRooms)
	case "limit":
		n, err := cmd.ID()
		if err != nil {
			a.notices.Failed("limit", err)
			return
		}
		limit, room := int(n), a.targetRoom()
		a.do("limit", func(ctx context.Context) error { return a.vm.UpdateGroup(ctx, room, nil, &limit) }, 0)
	case "report":
		if cmd.Args == "" {
			a.notices.Warn(":report needs a reason")
			return
		}
		a.do("report", func(ctx context.Context) error {
			if err := a.vm.Report(ctx, cmd.Args); err != nil {
				return err
			}
			a.notices.Info("report sent")
			return nil
		}, 0)
	case "retry":
		a.do("retry", func(ctx context.Context) error { return a.vm.RetryUpload(ctx, cmd.Args) }, 0)
	case "cancel":
		a.do("cancel", func(ctx context.Context) error { return a.vm.CancelUpload(ctx, cmd.Args) }, 0)
	default:
		a.notices.Warn("unknown command :" + cmd.Name)
	}
}

// targetRoom is the room a command without a room argument acts on: the
// selected room on the room list, the open room elsewhere.
func (a *App) targetRoom() string {
	switch a.pages.Top() {
	case pageRooms:
		return a.rooms.SelectedRoom()
	case pageInfo:
		return a.info.RoomKey()
	}
	return ""
}

// startRoom runs an action that opens a room on the daemon and shows it.
func (a *App) startRoom(action string, fn func(ctx context.Context) (string, error)) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, actionTimeout)
		defer cancel()
		if _, err := fn(ctx); err != nil {
			a.notices.Failed(action, err)
			return
		}
		a.app.QueueUpdateDraw(a.showThread)
	}()
}

func (a *App) showPopup(id int64) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, actionTimeout)
		defer cancel()
		p, err := a.vm.Popup(ctx, id)
		if err != nil {
			a.notices.Failed("popup", err)
			return
		}
		a.app.QueueUpdateDraw(func() {
			a.popup.Show(*p, a.popupLink(p.ID))
			a.push(pagePopup)
		})
	}()
}

func (a *App) showProfile(userID int64) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, actionTimeout)
		defer cancel()
		p, err := a.vm.Profile(ctx, userID)
		if err != nil {
			a.notices.Failed("profile", err)
			return
		}
		a.app.QueueUpdateDraw(func() { a.showInfo(a.vm.ActiveRoom(), p) })
	}()
}

// schedule marks parts of the view stale; the refresh loop reloads them,
// coalescing bursts of events.
func (a *App) schedule(r model.Refresh) {
	a.mu.Lock()
	a.pending |= r
	a.mu.Unlock()
	select {
	case a.refreshCh <- struct{}{}:
	default:
	}
}

func (a *App) refreshLoop() {
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.refreshCh:
		}
		a.mu.Lock()
		r := a.pending
		a.pending = 0
		a.mu.Unlock()
		a.reload(r)
	}
}

func (a *App) reload(r model.Refresh) {
	ctx, cancel := context.WithTimeout(a.ctx, actionTimeout)
	defer cancel()
	if r&model.RefreshRooms != 0 {
		if err := a.vm.LoadRooms(ctx, false); err != nil {
			a.notices.Failed("rooms", err)
		}
	}
	if r&model.RefreshFeed != 0 {
		if err := a.vm.LoadFeed(ctx); err != nil {
			a.notices.Failed("feed", err)
		}
	}
	if r&model.RefreshStatus != 0 {
		_ = a.vm.LoadStatus(ctx)
	}
	a.app.QueueUpdateDraw(func() { a.render(r) })
}

// render redraws stale views. It runs on the UI goroutine.
func (a *App) render(r model.Refresh) {
	if r&model.RefreshRooms != 0 {
		a.rooms.Update(a.vm.Rooms())
	}
	if r&model.RefreshFeed != 0 && a.pages.Has(pageThread) {
		a.thread.Update(a.vm.Feed())
	}
	if r&model.RefreshStatus != 0 {
		a.renderStatus()
	}
}

func (a *App) renderStatus() {
	st := a.vm.Status()
	if st == nil {
		a.session.Update(&ui.SessionData{Profile: a.profile, PushState: "UNKNOWN"})
		a.logo.SetPushState("")
		return
	}
	a.logo.SetPushState(st.PushState)
	a.session.Update(&ui.SessionData{
		Profile:        st.Profile,
		Nickname:       st.Nickname,
		PushState:      st.PushState,
		Reconnects:     st.Reconnects,
		RoomCount:      st.RoomCount,
		PendingUploads: st.PendingUploads,
		Uptime:         a.vm.Uptime(),
	})
}

// watchEvents follows the daemon's event stream, reconnecting until the
// app stops. After a reconnect everything is reloaded since events may
// have been missed.
func (a *App) watchEvents() {
	for {
		err := a.daemon.WatchEvents(a.ctx, nil, func(evt api.Event) {
			if r := model.Affects(evt.Kind); r != 0 {
				a.schedule(r)
			}
		})
		if a.ctx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			a.notices.Warn("event stream lost: " + err.Error())
		}
		select {
		case <-a.ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
		a.schedule(model.RefreshRooms | model.RefreshFeed | model.RefreshStatus)
	}
}

func (a *App) watchNotices() {
	for {
		select {
		case <-a.ctx.Done():
			return
		case n := <-a.notices.Updates():
			a.app.QueueUpdateDraw(func() { a.status.Show(n, true) })
		}
	}
}

func (a *App) tick() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
			a.schedule(model.RefreshStatus)
			a.app.QueueUpdateDraw(func() { a.status.Show(a.notices.Current()) })
		}
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	a.renderStatus()
	a.updateMenu()

	go a.refreshLoop()
	go a.watchEvents()
	go a.watchNotices()
	go a.tick()
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, actionTimeout)
		defer cancel()
		if err := a.vm.LoadRooms(ctx, true); err != nil {
			a.notices.Failed("rooms", err)
		}
		a.schedule(model.RefreshStatus)
		a.app.QueueUpdateDraw(func() { a.rooms.Update(a.vm.Rooms()) })
	}()

	return a.app.Run()
}

// Stop closes the open room and shuts down the TUI.
func (a *App) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if a.vm.ActiveRoom() != "" {
		_ = a.vm.Close(ctx)
	}
	a.cancel()
	a.app.Stop()
}

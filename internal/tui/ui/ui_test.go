package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestNoticesFailedClassifiesErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		text string
		sev  Severity
		none bool
	}{
		{"rejected input", status.Error(codes.FailedPrecondition, "no room is open"), "send: no room is open", SeverityWarn, false},
		{"internal", status.Error(codes.Internal, "disk full"), "send: disk full", SeverityError, false},
		{"daemon gone", status.Error(codes.Unavailable, "connection refused"), "send: daemon not responding", SeverityWarn, false},
		{"plain", errors.New("plain"), "send: plain", SeverityError, false},
		{"cancelled", context.Canceled, "", 0, true},
		{"rpc cancelled", status.Error(codes.Canceled, "bye"), "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNotices()
			n.Failed("send", tt.err)
			got, ok := n.Current()
			if tt.none {
				if ok {
					t.Errorf("notice = %+v, want none", got)
				}
				return
			}
			if !ok || got.Text != tt.text || got.Severity != tt.sev {
				t.Errorf("notice = %+v (%v), want %q at %d", got, ok, tt.text, tt.sev)
			}
		})
	}
}

func TestNoticesCoalesceRepeats(t *testing.T) {
	now := time.Unix(1000, 0)
	n := NewNotices()
	n.now = func() time.Time { return now }

	n.Warn("no room selected")
	n.Warn("no room selected")
	got, _ := n.Current()
	if got.Repeat != 2 || got.Label() != "no room selected (x2)" {
		t.Errorf("label = %q", got.Label())
	}

	n.Info("no room selected")
	if got, _ := n.Current(); got.Repeat != 1 {
		t.Errorf("different severity should start over, repeat = %d", got.Repeat)
	}

	now = now.Add(noticeTTL[SeverityInfo])
	if _, ok := n.Current(); ok {
		t.Error("notice should have expired")
	}
	n.Info("no room selected")
	if got, _ := n.Current(); got.Repeat != 1 {
		t.Errorf("expired notice should not count, repeat = %d", got.Repeat)
	}
	if len(n.Updates()) != 4 {
		t.Errorf("got %d updates, want 4", len(n.Updates()))
	}
}

func TestPagesStack(t *testing.T) {
	p := NewPages("rooms")
	for _, name := range []string{"rooms", "thread", "info", "popups", "create"} {
		p.AddPage(name, NewMenu(DefaultTheme()), true, false)
	}
	var trails []string
	p.SetOnChange(func(trail []string) { trails = append(trails, strings.Join(trail, ",")) })

	for _, name := range []string{"thread", "info", "popups"} {
		p.Open(name)
	}
	if got := strings.Join(p.Trail(), ","); got != "rooms,thread,info,popups" {
		t.Fatalf("trail = %s", got)
	}

	p.Open("thread")
	if got := strings.Join(p.Trail(), ","); got != "rooms,thread" {
		t.Errorf("reopening thread gave %s, want rooms,thread", got)
	}
	if front, _ := p.GetFrontPage(); front != "thread" {
		t.Errorf("front page = %q", front)
	}

	if got := p.Back(); got != "thread" || p.Top() != "rooms" {
		t.Errorf("Back = %q, top = %q", got, p.Top())
	}
	if got := p.Back(); got != "" || p.Top() != "rooms" {
		t.Errorf("Back at root = %q, top = %q", got, p.Top())
	}
	if p.Has("thread") || !p.Has("rooms") {
		t.Error("Has reports a closed page")
	}

	p.Open("info")
	p.Open("create")
	p.Unwind()
	if got := strings.Join(p.Trail(), ","); got != "rooms" {
		t.Errorf("after Unwind trail = %s", got)
	}
	if last := trails[len(trails)-1]; last != "rooms" {
		t.Errorf("last change = %q", last)
	}
}

func TestLogoFollowsPushState(t *testing.T) {
	l := NewLogo(DefaultTheme())
	if !strings.Contains(l.GetText(true), "popup rooms") {
		t.Errorf("initial tagline missing: %q", l.GetText(true))
	}
	l.SetPushState("RECONNECTING")
	if !strings.Contains(l.GetText(true), "reconnecting") {
		t.Errorf("tagline = %q", l.GetText(true))
	}
	l.SetPushState("CONNECTED")
	text := l.GetText(true)
	if !strings.Contains(text, "live") || !strings.Contains(text, "chat") {
		t.Errorf("tagline = %q", text)
	}
}

func TestPromptHistory(t *testing.T) {
	p := NewPrompt(DefaultTheme())
	p.Activate(PromptCommand)
	p.remember("open GROUP/1")
	p.remember("open GROUP/1")
	p.remember("leave")

	if got := p.step(-1); got != "leave" {
		t.Errorf("step back = %q, want leave", got)
	}
	if got := p.step(-1); got != "open GROUP/1" {
		t.Errorf("step back = %q, want open GROUP/1", got)
	}
	if got := p.step(-1); got != "open GROUP/1" {
		t.Errorf("step past oldest = %q", got)
	}
	p.step(1)
	if got := p.step(1); got != "" {
		t.Errorf("step past newest = %q, want empty", got)
	}
}

func TestRenderQR(t *testing.T) {
	out, err := RenderQR("https://popspot.test/popups/7", "  ")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) < 10 {
		t.Fatalf("got %d lines", len(lines))
	}
	for _, l := range lines {
		if !strings.HasPrefix(l, "  ") {
			t.Fatalf("line %q missing indent", l)
		}
	}
}

func TestCrumbTrail(t *testing.T) {
	got := CrumbTrail([]string{"Rooms", "a", "b", "c", "Details", "Popup"})
	want := []string{"Rooms", "…", "Details", "Popup"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("CrumbTrail = %q, want %q", got, want)
	}

	long := strings.Repeat("가", 30)
	got = CrumbTrail([]string{"Rooms", long})
	if len(got) != 2 || len([]rune(got[1])) != crumbWidth || !strings.HasSuffix(got[1], "…") {
		t.Errorf("long crumb = %q", got)
	}
	if CrumbTrail(nil) == nil || len(CrumbTrail(nil)) != 0 {
		t.Error("empty stack should give an empty trail")
	}
}

func TestMenuColumns(t *testing.T) {
	hints := []MenuHint{
		{Key: "a", Description: "x"},
		{Key: "b", Description: "longer"},
		{Key: "c", Description: "y"},
		{Key: "d", Description: "z"},
		{Key: "e", Description: "w"},
		{Key: "f", Description: "v"},
		{Key: "g", Description: "u"},
	}
	lines := menuColumns(hints, 5)
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5", len(lines))
	}
	if len(lines[0]) != 2 || lines[0][0].hint.Key != "a" || lines[0][1].hint.Key != "f" {
		t.Errorf("line 0 = %+v", lines[0])
	}
	if len(lines[4]) != 1 {
		t.Errorf("line 4 = %+v, want a single cell", lines[4])
	}
	// Column 0 is as wide as "<b> longer" (10) plus a gap of 2.
	if lines[0][0].pad != 7 || lines[1][0].pad != 2 {
		t.Errorf("pads = %d, %d, want 7, 2", lines[0][0].pad, lines[1][0].pad)
	}
	if lines[0][1].pad != 0 {
		t.Errorf("last column padded by %d", lines[0][1].pad)
	}

	if got := menuColumns(hints[:2], 5); len(got) != 2 {
		t.Errorf("short list spread over %d lines", len(got))
	}
	if menuColumns(nil, 5) != nil {
		t.Error("no hints should give no lines")
	}
}

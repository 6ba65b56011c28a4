package keys

import (
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestViewBindingShadowsGlobal(t *testing.T) {
	r := NewRegistry()
	var hit string
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: 'r', Description: "Refresh", Visible: true, Handler: func() { hit = "global" }})
	r.AddView("thread", &Action{Key: tcell.KeyRune, Rune: 'r', Description: "Retry", Visible: true, Handler: func() { hit = "thread" }})

	ev := tcell.NewEventKey(tcell.KeyRune, 'r', tcell.ModNone)
	if !r.HandleEvent("thread", ev) || hit != "thread" {
		t.Errorf("thread view: hit = %q, want thread", hit)
	}
	if !r.HandleEvent("rooms", ev) || hit != "global" {
		t.Errorf("rooms view: hit = %q, want global", hit)
	}
	if r.HandleEvent("rooms", tcell.NewEventKey(tcell.KeyRune, 'z', tcell.ModNone)) {
		t.Error("unbound key reported as handled")
	}
}

func TestHintsOrder(t *testing.T) {
	r := NewRegistry()
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: 'q', Description: "Quit", Visible: true})
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: 'x', Description: "hidden"})
	r.AddView("rooms", &Action{Key: tcell.KeyEnter, Description: "Open", Visible: true})
	r.AddView("rooms", &Action{Key: tcell.KeyRune, Rune: 'c', Label: "c", Description: "Create", Visible: true})

	hints := r.Hints("rooms")
	want := []string{"Enter:Open", "c:Create", "q:Quit"}
	if len(hints) != len(want) {
		t.Fatalf("hints = %+v", hints)
	}
	for i, h := range hints {
		if got := h.Key + ":" + h.Description; got != want[i] {
			t.Errorf("hint %d = %s, want %s", i, got, want[i])
		}
	}
}

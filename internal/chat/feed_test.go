package chat

import (
	"testing"
	"time"
)

func ids(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID.String()
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func countKey(msgs []Message, key string) int {
	n := 0
	for _, m := range msgs {
		if m.ClientMessageKey == key {
			n++
		}
	}
	return n
}

func TestFeedLoadReversesPage(t *testing.T) {
	f := NewFeed(time.UTC)
	f.Load([]Message{persisted(3, 2), persisted(2, 2), persisted(1, 2)})

	got := ids(f.Messages())
	want := []string{"1", "2", "3"}
	if !equalStrings(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestFeedOrdering(t *testing.T) {
	f := NewFeed(time.UTC)
	f.AppendOptimistic(Message{ClientMessageKey: "opt", SenderID: me, Content: Text{Body: "hi"}})
	for _, id := range []int64{3, 1, 5} {
		f.ApplyMessage(persisted(id, 2))
	}

	got := ids(f.Messages())
	want := []string{"1", "3", "5", "local-opt"}
	if !equalStrings(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

// TestFeedPendingStaysLastDespiteClockSkew: an authoritative message with an
// earlier timestamp than the optimistic one still sorts before it.
func TestFeedPendingStaysLastDespiteClockSkew(t *testing.T) {
	f := NewFeed(time.UTC)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.AppendOptimistic(Message{ClientMessageKey: "a", CreatedAt: now, Content: Text{Body: "x"}})

	late := persisted(40, 2)
	late.CreatedAt = now.Add(time.Hour)
	f.ApplyMessage(late)

	msgs := f.Messages()
	if msgs[len(msgs)-1].ID.IsPersisted() {
		t.Errorf("last message = %s, want the pending one", msgs[len(msgs)-1].ID)
	}
}

func TestFeedPendingKeepSendOrder(t *testing.T) {
	f := NewFeed(time.UTC)
	for _, k := range []string{"first", "second", "third"} {
		f.AppendOptimistic(Message{ClientMessageKey: k, Content: Text{Body: k}})
	}
	f.ApplyMessage(persisted(1, 2))

	got := ids(f.Messages())
	want := []string{"1", "local-first", "local-second", "local-third"}
	if !equalStrings(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestFeedEchoReplacesOptimistic(t *testing.T) {
	f := NewFeed(time.UTC)
	f.AppendOptimistic(Message{ClientMessageKey: "k1", SenderID: me, Content: Text{Body: "hello"}})
	if countKey(f.Messages(), "k1") != 1 {
		t.Fatal("optimistic message missing")
	}

	echo := persisted(11, me)
	echo.ClientMessageKey = "k1"
	f.ApplyMessage(echo)

	msgs := f.Messages()
	if n := countKey(msgs, "k1"); n != 1 {
		t.Fatalf("messages with key k1 = %d, want exactly 1", n)
	}
	if !msgs[0].ID.IsPersisted() || msgs[0].ID.Value() != 11 {
		t.Errorf("id = %s, want 11", msgs[0].ID)
	}
	if msgs[0].PendingEcho {
		t.Error("authoritative copy still flagged as pending echo")
	}
}

func TestFeedOptimisticNeverReplacesServerCopy(t *testing.T) {
	f := NewFeed(time.UTC)
	echo := persisted(5, me)
	echo.ClientMessageKey = "k1"
	f.Load([]Message{echo})

	if f.AppendOptimistic(Message{ClientMessageKey: "k1", Content: Image{LocalPath: "a.png"}, Upload: UploadPending}) {
		t.Error("AppendOptimistic = true over a persisted copy")
	}
	msgs := f.Messages()
	if len(msgs) != 1 || !msgs[0].ID.IsPersisted() || msgs[0].ID.Value() != 5 {
		t.Errorf("feed = %+v, want only persisted 5", msgs)
	}
	if !f.HasPersisted("k1") || f.HasPersisted("other") || f.HasPersisted("") {
		t.Error("HasPersisted mismatch")
	}
}

// TestFeedReplayedPushIsNoop pins the decision that persisted ids are
// deduplicated, including a message delivered by both the page fetch and a
// racing push.
func TestFeedReplayedPushIsNoop(t *testing.T) {
	f := NewFeed(time.UTC)
	m := persisted(5, 2)
	m.ClientMessageKey = "k5"
	f.ApplyMessage(m)
	f.ApplyMessage(m)
	if f.Len() != 1 {
		t.Errorf("len = %d after replay, want 1", f.Len())
	}

	// Same id without a client key, e.g. from a history page.
	f.ApplyMessage(persisted(5, 2))
	if f.Len() != 1 {
		t.Errorf("len = %d after keyless duplicate, want 1", f.Len())
	}
}

func TestFeedLoadKeepsEarlierPushes(t *testing.T) {
	f := NewFeed(time.UTC)
	f.ApplyMessage(persisted(9, 2))
	f.ApplyMessage(persisted(8, 2))

	f.Load([]Message{persisted(8, 2), persisted(7, 2), persisted(6, 2)})

	got := ids(f.Messages())
	want := []string{"6", "7", "8", "9"}
	if !equalStrings(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestFeedUploadFailureAndCancel(t *testing.T) {
	f := NewFeed(time.UTC)
	f.AppendOptimistic(Message{ClientMessageKey: "img", Content: Image{LocalPath: "/tmp/a.png"}, Upload: UploadPending})
	f.ApplyMessage(persisted(1, 2))

	if !f.MarkUploadFailed("img") {
		t.Fatal("MarkUploadFailed did not find the placeholder")
	}
	msgs := f.Messages()
	if msgs[1].Upload != UploadFailed {
		t.Errorf("upload = %s, want failed", msgs[1].Upload)
	}
	if f.Len() != 2 {
		t.Error("failed upload was removed instead of flagged")
	}

	if !f.MarkUploadPending("img") {
		t.Fatal("MarkUploadPending did not find the placeholder")
	}
	if !f.RemovePending("img") {
		t.Fatal("RemovePending did not find the placeholder")
	}
	if f.Len() != 1 {
		t.Errorf("len = %d after cancel, want 1", f.Len())
	}
	if f.RemovePending("img") {
		t.Error("second RemovePending reported success")
	}
}

func TestFeedRemovePendingIgnoresPersisted(t *testing.T) {
	f := NewFeed(time.UTC)
	m := persisted(3, me)
	m.ClientMessageKey = "k"
	f.ApplyMessage(m)
	if f.RemovePending("k") {
		t.Error("RemovePending removed a persisted message")
	}
}

func TestFeedSetImageURL(t *testing.T) {
	f := NewFeed(time.UTC)
	f.AppendOptimistic(Message{ClientMessageKey: "img", Content: Image{LocalPath: "a.png"}})
	if !f.SetImageURL("img", "https://cdn/a.png") {
		t.Fatal("SetImageURL did not find the placeholder")
	}
	img, ok := f.Messages()[0].Content.(Image)
	if !ok || img.URL != "https://cdn/a.png" || img.LocalPath != "a.png" {
		t.Errorf("content = %#v", f.Messages()[0].Content)
	}
}

func TestFeedDecoration(t *testing.T) {
	f := NewFeed(time.UTC)
	day1 := time.Date(2026, 5, 4, 9, 30, 10, 0, time.UTC)
	day2 := time.Date(2026, 5, 5, 8, 0, 0, 0, time.UTC)

	a, b, c := persisted(1, 2), persisted(2, 2), persisted(3, 2)
	a.CreatedAt = day1
	b.CreatedAt = day1.Add(20 * time.Second)
	c.CreatedAt = day2
	f.Load([]Message{c, b, a})

	msgs := f.Messages()
	if msgs[0].TimeLabel != "09:30" {
		t.Errorf("TimeLabel = %q, want 09:30", msgs[0].TimeLabel)
	}
	if msgs[0].MinuteKey != msgs[1].MinuteKey {
		t.Errorf("same-minute messages got keys %q and %q", msgs[0].MinuteKey, msgs[1].MinuteKey)
	}
	if msgs[0].DateDivider != "Monday, May 4, 2026" {
		t.Errorf("DateDivider = %q", msgs[0].DateDivider)
	}
	if msgs[1].DateDivider != "" {
		t.Errorf("second message of the day has divider %q", msgs[1].DateDivider)
	}
	if msgs[2].DateDivider != "Tuesday, May 5, 2026" {
		t.Errorf("DateDivider = %q", msgs[2].DateDivider)
	}
}

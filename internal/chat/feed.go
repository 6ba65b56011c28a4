package chat

import (
	"slices"
	"strconv"
	"sync"
	"time"
)

// Feed assembles the ordered message list of the open room from the fetched
// page, optimistic local sends and live pushes.
//
// Ordering: persisted messages ascending by id, then pending messages in the
// order they were sent. A client key occurs at most once, and so does a
// persisted id.
type Feed struct {
	mu       sync.RWMutex
	loc      *time.Location
	messages []Message
}

// NewFeed creates an empty feed that renders labels in loc (time.Local if nil).
func NewFeed(loc *time.Location) *Feed {
	if loc == nil {
		loc = time.Local
	}
	return &Feed{loc: loc}
}

// Reset drops every message.
func (f *Feed) Reset() {
	f.mu.Lock()
	f.messages = nil
	f.mu.Unlock()
}

// Load merges a page fetched newest-first into the feed. Messages pushed
// before the page resolved are kept.
func (f *Feed) Load(page []Message) {
	f.mu.Lock()
	defer f.mu.Unlock()

	merged := make([]Message, 0, len(page)+len(f.messages))
	for i := len(page) - 1; i >= 0; i-- {
		merged = append(merged, page[i])
	}
	for _, m := range f.messages {
		if m.ID.IsPersisted() && containsID(merged, m.ID) {
			continue
		}
		merged = append(merged, m)
	}
	f.messages = merged
	f.sortLocked()
}

// AppendOptimistic adds a locally sent message. The message id is forced to
// the pending form of its client key. Once the server copy of the key is in
// the feed the message is not added again and false is returned.
func (f *Feed) AppendOptimistic(m Message) bool {
	m.ID = Pending(m.ClientMessageKey)
	m.PendingEcho = true

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.persistedKeyLocked(m.ClientMessageKey) {
		return false
	}
	f.evictLocked(m)
	f.messages = append(f.messages, m)
	f.sortLocked()
	return true
}

// HasPersisted reports whether the server copy of the message with key is in
// the feed.
func (f *Feed) HasPersisted(key string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.persistedKeyLocked(key)
}

// ApplyMessage merges an authoritative message: any entry with the same client
// key or the same persisted id is replaced.
func (f *Feed) ApplyMessage(m Message) {
	m.PendingEcho = false
	m.Upload = UploadNone

	f.mu.Lock()
	defer f.mu.Unlock()
	f.evictLocked(m)
	f.messages = append(f.messages, m)
	f.sortLocked()
}

// MarkUploadFailed flags the pending message with key as failed.
func (f *Feed) MarkUploadFailed(key string) bool {
	return f.setUpload(key, UploadFailed)
}

// MarkUploadPending flags the pending message with key as uploading again.
func (f *Feed) MarkUploadPending(key string) bool {
	return f.setUpload(key, UploadPending)
}

// SetImageURL records the uploaded URL on the pending image message with key.
func (f *Feed) SetImageURL(key, url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.pendingIndexLocked(key)
	if i < 0 {
		return false
	}
	img, _ := f.messages[i].Content.(Image)
	img.URL = url
	f.messages[i].Content = img
	return true
}

// RemovePending deletes the optimistic message with key. Persisted messages
// are never removed.
func (f *Feed) RemovePending(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.pendingIndexLocked(key)
	if i < 0 {
		return false
	}
	f.messages = slices.Delete(f.messages, i, i+1)
	f.decorateLocked()
	return true
}

// Messages returns a copy of the ordered feed.
func (f *Feed) Messages() []Message {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.messages)
}

// Len returns the number of messages in the feed.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.messages)
}

func (f *Feed) setUpload(key string, state UploadState) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.pendingIndexLocked(key)
	if i < 0 {
		return false
	}
	f.messages[i].Upload = state
	return true
}

func (f *Feed) pendingIndexLocked(key string) int {
	for i, m := range f.messages {
		if !m.ID.IsPersisted() && m.ClientMessageKey == key {
			return i
		}
	}
	return -1
}

func (f *Feed) persistedKeyLocked(key string) bool {
	if key == "" {
		return false
	}
	return slices.ContainsFunc(f.messages, func(m Message) bool {
		return m.ID.IsPersisted() && m.ClientMessageKey == key
	})
}

func (f *Feed) evictLocked(in Message) {
	f.messages = slices.DeleteFunc(f.messages, func(m Message) bool {
		if in.ClientMessageKey != "" && m.ClientMessageKey == in.ClientMessageKey {
			return true
		}
		return in.ID.IsPersisted() && m.ID.IsPersisted() && m.ID.Value() == in.ID.Value()
	})
}

func (f *Feed) sortLocked() {
	slices.SortStableFunc(f.messages, func(a, b Message) int {
		return a.ID.Compare(b.ID)
	})
	f.decorateLocked()
}

// decorateLocked recomputes the time label, minute grouping key and date
// divider of every message.
func (f *Feed) decorateLocked() {
	var prevDay string
	for i := range f.messages {
		m := &f.messages[i]
		if m.CreatedAt.IsZero() {
			m.TimeLabel, m.MinuteKey, m.DateDivider = "", "", ""
			continue
		}
		t := m.CreatedAt.In(f.loc)
		m.TimeLabel = t.Format("15:04")
		m.MinuteKey = strconv.FormatInt(m.SenderID, 10) + "@" + t.Format("2006-01-02T15:04")
		day := t.Format("2006-01-02")
		if day != prevDay {
			m.DateDivider = t.Format("Monday, January 2, 2006")
			prevDay = day
		} else {
			m.DateDivider = ""
		}
	}
}

func containsID(msgs []Message, id MessageID) bool {
	return slices.ContainsFunc(msgs, func(m Message) bool {
		return m.ID.IsPersisted() && m.ID.Value() == id.Value()
	})
}

package ui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rivo/tview"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Severity of a notice.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityError
)

var noticeTTL = [...]time.Duration{
	SeverityInfo:  5 * time.Second,
	SeverityWarn:  8 * time.Second,
	SeverityError: 10 * time.Second,
}

// Notice is one line on the status line. Repeat counts identical notices
// posted while the first was still showing.
type Notice struct {
	Text     string
	Severity Severity
	Repeat   int
	Expires  time.Time
}

// Label is the text to show, with a repeat counter once it has repeated.
func (n Notice) Label() string {
	if n.Repeat > 1 {
		return fmt.Sprintf("%s (x%d)", n.Text, n.Repeat)
	}
	return n.Text
}

// Notices keeps the latest notice and publishes every change.
type Notices struct {
	mu      sync.Mutex
	cur     Notice
	updates chan Notice
	now     func() time.Time
}

// NewNotices creates an empty notice model.
func NewNotices() *Notices {
	return &Notices{updates: make(chan Notice, 8), now: time.Now}
}

// Info posts a confirmation such as "room created".
func (n *Notices) Info(text string) { n.post(text, SeverityInfo) }

// Warn posts a notice about something the user can fix.
func (n *Notices) Warn(text string) { n.post(text, SeverityWarn) }

// Failed reports a failed action. Daemon errors show their status message
// only; rejected input and an unreachable daemon are warnings, cancelled
// actions are not reported.
func (n *Notices) Failed(action string, err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	st, ok := status.FromError(err)
	if !ok {
		n.post(action+": "+err.Error(), SeverityError)
		return
	}
	switch st.Code() {
	case codes.Canceled:
		return
	case codes.Unavailable, codes.DeadlineExceeded:
		n.post(action+": daemon not responding", SeverityWarn)
	case codes.InvalidArgument, codes.FailedPrecondition, codes.NotFound, codes.AlreadyExists:
		n.post(action+": "+st.Message(), SeverityWarn)
	default:
		n.post(action+": "+st.Message(), SeverityError)
	}
}

func (n *Notices) post(text string, sev Severity) {
	now := n.now()
	n.mu.Lock()
	if n.cur.Text == text && n.cur.Severity == sev && now.Before(n.cur.Expires) {
		n.cur.Repeat++
	} else {
		n.cur = Notice{Text: text, Severity: sev, Repeat: 1}
	}
	n.cur.Expires = now.Add(noticeTTL[sev])
	out := n.cur
	n.mu.Unlock()

	select {
	case n.updates <- out:
	default:
	}
}

// Current returns the live notice, if any.
func (n *Notices) Current() (Notice, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cur.Text == "" || !n.now().Before(n.cur.Expires) {
		return Notice{}, false
	}
	return n.cur, true
}

// Updates delivers posted notices. Posts are dropped while the channel is full.
func (n *Notices) Updates() <-chan Notice {
	return n.updates
}

// StatusLine is the bottom line showing the current notice.
type StatusLine struct {
	*tview.TextView
	theme *Theme
}

// NewStatusLine creates an empty status line.
func NewStatusLine(theme *Theme) *StatusLine {
	tv := tview.NewTextView().SetDynamicColors(true)
	tv.SetBackgroundColor(theme.BgColor)
	return &StatusLine{TextView: tv, theme: theme}
}

// Show renders n, or clears the line when ok is false.
func (s *StatusLine) Show(n Notice, ok bool) {
	s.Clear()
	if !ok {
		return
	}
	mark, color := "·", s.theme.NoticeInfoColor
	switch n.Severity {
	case SeverityWarn:
		mark, color = "!", s.theme.NoticeWarnColor
	case SeverityError:
		mark, color = "✗", s.theme.NoticeErrColor
	}
	_, _ = fmt.Fprintf(s, " [%s]%s %s[-]", colorName(color), mark, tview.Escape(n.Label()))
}

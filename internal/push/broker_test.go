package push

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/coder/websocket"
	"github.com/go-stomp/stomp/v3/frame"
)

// broker is a minimal STOMP 1.2 broker over WebSocket for tests.
type broker struct {
	mu       sync.Mutex
	conns    []*brokerConn
	connects int
	nextMsg  int
	// stall leaves DISCONNECT unanswered and the connection open.
	stall bool

	subscribed chan string
	sent       chan *frame.Frame
}

type brokerConn struct {
	nc   net.Conn
	wmu  sync.Mutex
	w    *frame.Writer
	subs map[string]string // subscription id -> destination
}

func newBroker(t *testing.T) (*broker, string) {
	t.Helper()
	b := &broker{
		subscribed: make(chan string, 16),
		sent:       make(chan *frame.Frame, 16),
	}
	srv := httptest.NewServer(b)
	t.Cleanup(func() {
		b.drop()
		srv.Close()
	})
	return b, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func (b *broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{Subprotocols: []string{"v12.stomp"}})
	if err != nil {
		return
	}
	nc := websocket.NetConn(context.Background(), ws, websocket.MessageText)
	bc := &brokerConn{nc: nc, w: frame.NewWriter(nc), subs: make(map[string]string)}
	rd := frame.NewReader(nc)

	for {
		f, err := rd.Read()
		if err != nil {
			return
		}
		if f == nil {
			continue // heart-beat
		}
		switch f.Command {
		case frame.CONNECT, frame.STOMP:
			b.mu.Lock()
			b.conns = append(b.conns, bc)
			b.connects++
			b.mu.Unlock()
			bc.write(frame.New(frame.CONNECTED, "version", "1.2"))
		case frame.SUBSCRIBE:
			dest := f.Header.Get("destination")
			b.mu.Lock()
			bc.subs[f.Header.Get("id")] = dest
			b.mu.Unlock()
			b.subscribed <- dest
		case frame.UNSUBSCRIBE:
			b.mu.Lock()
			delete(bc.subs, f.Header.Get("id"))
			b.mu.Unlock()
		case frame.SEND:
			b.sent <- f
		}
		b.mu.Lock()
		stall := b.stall && f.Command == frame.DISCONNECT
		b.mu.Unlock()
		if stall {
			continue
		}
		if receipt := f.Header.Get("receipt"); receipt != "" {
			bc.write(frame.New(frame.RECEIPT, "receipt-id", receipt))
		}
		if f.Command == frame.DISCONNECT {
			_ = nc.Close()
			return
		}
	}
}

func (bc *brokerConn) write(f *frame.Frame) {
	bc.wmu.Lock()
	defer bc.wmu.Unlock()
	_ = bc.w.Write(f)
}

// deliver sends body to every subscription on dest.
func (b *broker) deliver(dest, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, bc := range b.conns {
		for id, d := range bc.subs {
			if d != dest {
				continue
			}
			b.nextMsg++
			f := frame.New(frame.MESSAGE,
				"destination", dest,
				"subscription", id,
				"message-id", strconv.Itoa(b.nextMsg),
				"content-type", "application/json")
			f.Body = []byte(body)
			bc.write(f)
		}
	}
}

// drop closes every connection as a broker restart would.
func (b *broker) drop() {
	b.mu.Lock()
	conns := b.conns
	b.conns = nil
	b.mu.Unlock()
	for _, bc := range conns {
		_ = bc.nc.Close()
	}
}

func (b *broker) connectCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connects
}

// Package push maintains the process-wide STOMP-over-WebSocket connection to
// the chat broker: one lazily dialed connection, at most one room topic
// subscription, and publishes to the send and typing destinations.
package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-stomp/stomp/v3"
	"go.uber.org/zap"

	"github.com/popspot/popchat/internal/chat"
	"github.com/popspot/popchat/internal/metrics"
	"github.com/popspot/popchat/internal/status"
)

const (
	SendDestination   = "/app/chat.send"
	TypingDestination = "/app/chat.typing"

	maxFrameSize      = 1 << 20
	disconnectTimeout = 2 * time.Second
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("push client closed")

// Topic returns the broker topic of a room.
func Topic(key chat.RoomKey) string {
	return "/topic/chat/" + strings.ToLower(string(key.Type)) + "/" + strconv.FormatInt(key.ID, 10)
}

// Options configures the connection.
type Options struct {
	URL            string
	Token          string
	Heartbeat      time.Duration
	ReconnectDelay time.Duration
	DialTimeout    time.Duration
}

// Handler receives the body of every frame on the subscribed topic. Calls are
// sequential for a subscription.
type Handler func(body []byte)

// Client is safe for concurrent use.
type Client struct {
	opts    Options
	machine *status.Machine
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	conn    *stomp.Conn
	nc      net.Conn
	connID  uint64
	sub     *stomp.Subscription
	subStop chan struct{}
	subGen  uint64
	topic   string
	handler Handler
	closed  bool
}

// New creates a client. Nothing is dialed until the first Subscribe or Publish.
func New(opts Options, machine *status.Machine, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 5 * time.Second
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		opts:    opts,
		machine: machine,
		logger:  logger.Named("push"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Subscribe replaces the current topic subscription. The connection is
// dialed on first use and reused afterwards.
func (c *Client) Subscribe(ctx context.Context, topic string, h Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if err := c.ensureConnLocked(ctx, status.Closed); err != nil {
		return err
	}
	c.dropSubLocked()
	c.topic, c.handler = topic, h
	return c.subscribeLocked()
}

// Unsubscribe drops the current topic subscription but keeps the connection.
func (c *Client) Unsubscribe() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropSubLocked()
	c.topic, c.handler = "", nil
}

// Topic returns the currently subscribed topic, if any.
func (c *Client) Topic() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topic
}

// Publish sends v as a JSON frame to dest.
func (c *Client) Publish(ctx context.Context, dest string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode frame for %s: %w", dest, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if err := c.ensureConnLocked(ctx, status.Closed); err != nil {
		return err
	}
	if err := c.conn.Send(dest, "application/json", body); err != nil {
		// With a live subscription the reader notices the drop and reconnects.
		if c.sub == nil {
			c.teardownLocked(false)
			c.transition(status.Closed)
		}
		return fmt.Errorf("send to %s: %w", dest, err)
	}
	return nil
}

// SendMessage publishes a chat message.
func (c *Client) SendMessage(ctx context.Context, req chat.SendRequest) error {
	return c.Publish(ctx, SendDestination, req)
}

// SendTyping publishes a typing start or stop signal.
func (c *Client) SendTyping(ctx context.Context, req chat.TypingRequest) error {
	return c.Publish(ctx, TypingDestination, req)
}

// Close disconnects and stops reconnecting.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.cancel()
	c.releaseSubLocked()
	c.teardownLocked(true)
	c.transition(status.Closed)
	c.mu.Unlock()

	c.wg.Wait()
	return nil
}

func (c *Client) ensureConnLocked(ctx context.Context, failState status.State) error {
	if c.conn != nil {
		return nil
	}
	c.transition(status.Connecting)
	conn, nc, err := c.dial(ctx)
	if err != nil {
		c.transition(failState)
		return err
	}
	c.conn, c.nc = conn, nc
	c.connID++
	c.transition(status.Connected)
	c.logger.Info("push connected", zap.String("url", c.opts.URL))
	return nil
}

func (c *Client) dial(ctx context.Context) (*stomp.Conn, net.Conn, error) {
	dctx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
	defer cancel()

	header := http.Header{}
	if c.opts.Token != "" {
		header.Set("Authorization", "Bearer "+c.opts.Token)
	}
	ws, _, err := websocket.Dial(dctx, c.opts.URL, &websocket.DialOptions{
		HTTPHeader:   header,
		Subprotocols: []string{"v12.stomp", "v11.stomp"},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", c.opts.URL, err)
	}
	ws.SetReadLimit(maxFrameSize)
	nc := websocket.NetConn(c.ctx, ws, websocket.MessageText)

	host := "/"
	if u, err := url.Parse(c.opts.URL); err == nil {
		host = u.Hostname()
	}
	opts := []func(*stomp.Conn) error{
		stomp.ConnOpt.Host(host),
		stomp.ConnOpt.HeartBeat(c.opts.Heartbeat, c.opts.Heartbeat),
	}
	if c.opts.Token != "" {
		opts = append(opts, stomp.ConnOpt.Header("Authorization", "Bearer "+c.opts.Token))
	}

	// stomp.Connect has no context; bound the handshake with a deadline.
	_ = nc.SetDeadline(time.Now().Add(c.opts.DialTimeout))
	conn, err := stomp.Connect(nc, opts...)
	if err != nil {
		_ = nc.Close()
		return nil, nil, fmt.Errorf("stomp connect: %w", err)
	}
	_ = nc.SetDeadline(time.Time{})
	return conn, nc, nil
}

func (c *Client) subscribeLocked() error {
	sub, err := c.conn.Subscribe(c.topic, stomp.AckAuto)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", c.topic, err)
	}
	stop := make(chan struct{})
	c.sub, c.subStop = sub, stop
	c.subGen++
	metrics.PushSubscriptions.Set(1)
	c.logger.Debug("subscribed", zap.String("topic", c.topic))

	c.wg.Add(1)
	go c.read(sub, stop, c.subGen, c.connID, c.handler)
	return nil
}

// releaseSubLocked forgets the current subscription and stops its reader
// without talking to the broker. It returns the released subscription.
func (c *Client) releaseSubLocked() *stomp.Subscription {
	sub := c.sub
	if sub == nil {
		return nil
	}
	close(c.subStop)
	c.sub, c.subStop = nil, nil
	c.subGen++
	metrics.PushSubscriptions.Set(0)
	return sub
}

func (c *Client) dropSubLocked() {
	sub := c.releaseSubLocked()
	if sub == nil {
		return
	}
	if err := sub.Unsubscribe(); err != nil {
		c.logger.Debug("unsubscribe failed", zap.String("topic", c.topic), zap.Error(err))
	}
}

func (c *Client) teardownLocked(graceful bool) {
	if c.conn == nil {
		return
	}
	conn, nc := c.conn, c.nc
	c.conn, c.nc = nil, nil
	if graceful {
		done := make(chan struct{})
		go func() {
			_ = conn.Disconnect()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(disconnectTimeout):
		}
	}
	_ = nc.Close()
}

// read pumps frames to h until the subscription ends. A released
// subscription's channel is not guaranteed to close, so stop and the client
// context end the loop as well.
func (c *Client) read(sub *stomp.Subscription, stop <-chan struct{}, gen, connID uint64, h Handler) {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-stop:
			return
		case msg, ok := <-sub.C:
			if !ok {
				c.dropped(gen, connID, errors.New("subscription closed by broker"))
				return
			}
			if msg.Err != nil {
				c.dropped(gen, connID, msg.Err)
				return
			}
			if h != nil {
				h(msg.Body)
			}
		}
	}
}

// dropped handles the end of a subscription. Ends caused by Unsubscribe or
// Close are ignored; anything else is a lost connection.
func (c *Client) dropped(gen, connID uint64, cause error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.subGen {
		return
	}
	c.sub, c.subStop = nil, nil
	metrics.PushSubscriptions.Set(0)
	if c.connID == connID {
		c.teardownLocked(false)
	}
	c.transition(status.Reconnecting)
	metrics.PushReconnectsTotal.Inc()
	c.logger.Warn("push connection lost", zap.Error(cause), zap.Duration("retry_in", c.opts.ReconnectDelay))

	c.wg.Add(1)
	go c.reconnect()
}

// reconnect redials after the configured delay until it succeeds or the
// client is closed, then re-subscribes the current topic. Feeds and read
// state are not resynchronized.
func (c *Client) reconnect() {
	defer c.wg.Done()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-time.After(c.opts.ReconnectDelay):
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		err := c.ensureConnLocked(c.ctx, status.Reconnecting)
		if err == nil && c.topic != "" && c.sub == nil {
			err = c.subscribeLocked()
			if err != nil {
				c.teardownLocked(false)
				c.transition(status.Reconnecting)
			}
		}
		topic := c.topic
		c.mu.Unlock()

		if err == nil {
			c.logger.Info("push reconnected", zap.String("topic", topic))
			return
		}
		c.logger.Warn("push reconnect failed", zap.Error(err))
	}
}

func (c *Client) transition(to status.State) {
	if c.machine == nil {
		return
	}
	if err := c.machine.Transition(to); err != nil {
		c.logger.Debug("status transition skipped", zap.Error(err))
	}
}

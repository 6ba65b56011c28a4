package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/popspot/popchat/internal/api"
	"github.com/popspot/popchat/internal/bus"
	"github.com/popspot/popchat/internal/config"
	"github.com/popspot/popchat/internal/conversation"
	"github.com/popspot/popchat/internal/lock"
	"github.com/popspot/popchat/internal/profile"
	"github.com/popspot/popchat/internal/status"
	"github.com/popspot/popchat/internal/tui/client"
)

// tempHome points POPCHAT_HOME at a short temp dir; Unix socket paths are
// limited to 104 chars on macOS.
func tempHome(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("/tmp", "popchat-d-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	t.Setenv("POPCHAT_HOME", dir)
	return dir
}

func fakeBackend(t *testing.T) string {
	t.Helper()
	r := chi.NewRouter()
	r.Get("/api/chat/rooms", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"roomId": 3, "roomType": "GROUP", "roomName": "Weekend"},
		})
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv.URL
}

func testSettings(apiURL string) *config.Profile {
	return &config.Profile{
		APIBaseURL: apiURL,
		// Nothing listens here; the push channel is only dialed when a room opens.
		WSURL:    "ws://127.0.0.1:1/ws",
		UserID:   1,
		Nickname: "tester",
	}
}

func TestFxModuleLifecycle(t *testing.T) {
	tempHome(t)
	p := Params{ProfileName: "test", LogLevel: "error", Settings: testSettings(fakeBackend(t))}

	app := fx.New(Module(p), fx.NopLogger)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}

	// A second daemon for the same profile must be refused.
	if _, err := lock.Acquire(profile.Dir("test")); err == nil {
		t.Error("profile lock was not held by the running daemon")
	} else {
		var held *lock.HeldError
		if !errors.As(err, &held) || held.PID != os.Getpid() {
			t.Errorf("lock error = %v, want HeldError with our pid", err)
		}
	}

	c, err := client.New(profile.SocketPath("test"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	st, err := c.Status(ctx)
	if err != nil {
		t.Fatalf("Status error = %v", err)
	}
	if st.Profile != "test" || st.Nickname != "tester" {
		t.Errorf("status = %+v", st)
	}
	if st.PushState != string(status.Idle) {
		t.Errorf("push state = %q, want IDLE before any room is opened", st.PushState)
	}

	// The initial room fetch runs in the background.
	var rooms []api.Room
	for i := 0; i < 50; i++ {
		if rooms, err = c.ListRooms(ctx, false, false); err == nil && len(rooms) > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if len(rooms) != 1 || rooms[0].Key != "GROUP/3" {
		t.Errorf("rooms = %+v, want GROUP/3 from the initial fetch", rooms)
	}

	if err := app.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, err := os.Stat(profile.SocketPath("test")); !os.IsNotExist(err) {
		t.Error("socket file left behind after stop")
	}
	l, err := lock.Acquire(profile.Dir("test"))
	if err != nil {
		t.Fatalf("lock not released on stop: %v", err)
	}
	_ = l.Release()
}

func TestFxModuleRejectsInvalidSettings(t *testing.T) {
	tempHome(t)
	settings := testSettings("ftp://nowhere")
	app := fx.New(Module(Params{ProfileName: "bad", Settings: settings}), fx.NopLogger)
	if app.Err() == nil {
		t.Fatal("expected invalid settings to fail the graph")
	}
}

// TestNewServerUsesSocketOverride: NewServer takes Params, not a bare string
// that fx cannot resolve.
func TestNewServerUsesSocketOverride(t *testing.T) {
	home := tempHome(t)
	socketPath := filepath.Join(home, "d.sock")

	p := Params{ProfileName: "fxtest", SocketPath: socketPath}
	b := bus.New()
	self := conversation.Identity{UserID: 1}
	srv, err := NewServer(
		p,
		zap.NewNop(),
		api.NewSessionService("fxtest", self, status.NewMachine(b), b, nil, nil),
		api.NewRoomService(nil, nil, self),
		api.NewMessageService(nil, nil, self),
		api.NewEventService(b, "fxtest", nil),
	)
	if err != nil {
		t.Fatalf("NewServer() with Params failed: %v", err)
	}

	info, statErr := os.Stat(socketPath)
	if statErr != nil {
		t.Fatalf("socket not created at %s: %v", socketPath, statErr)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("socket mode = %v, want 0600", info.Mode().Perm())
	}

	go func() { _ = srv.Start() }()
	c, err := client.New(socketPath)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := c.Status(ctx); err != nil {
		t.Errorf("Status error = %v", err)
	}

	srv.Stop(ctx)
}

func TestMetricsServerDisabledWithoutAddr(t *testing.T) {
	m := NewMetricsServer(&config.Profile{}, zap.NewNop())
	m.Start()
	m.Stop(context.Background())
	if m.srv != nil {
		t.Error("metrics server configured without an address")
	}
}

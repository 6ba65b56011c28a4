package daemon

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/popspot/popchat/internal/api"
	"github.com/popspot/popchat/internal/backend"
	"github.com/popspot/popchat/internal/bus"
	"github.com/popspot/popchat/internal/chat"
	"github.com/popspot/popchat/internal/config"
	"github.com/popspot/popchat/internal/conversation"
	"github.com/popspot/popchat/internal/lock"
	"github.com/popspot/popchat/internal/logging"
	"github.com/popspot/popchat/internal/outbox"
	"github.com/popspot/popchat/internal/profile"
	"github.com/popspot/popchat/internal/push"
	"github.com/popspot/popchat/internal/status"
	"github.com/popspot/popchat/internal/store"
)

// uploadRetention is how long delivered upload rows are kept.
const uploadRetention = 7 * 24 * time.Hour

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	ProfileName string
	SocketPath  string // optional override for testing; empty = use default
	LogLevel    string
	Settings    *config.Profile // optional override for testing; nil = load profile.toml
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideSettings,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideIdentity,
			provideBackend,
			providePush,
			provideSender,
			provideController,
			provideSessionService,
			provideRoomService,
			provideMessageService,
			provideEventService,
			NewServer,
			NewMetricsServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideSettings(p Params) (*config.Profile, error) {
	if p.Settings != nil {
		p.Settings.ApplyDefaults()
		return p.Settings, p.Settings.Validate()
	}
	return profile.Settings(p.ProfileName)
}

func provideLogger(p Params) (*zap.Logger, error) {
	if err := profile.EnsureDir(p.ProfileName); err != nil {
		return nil, err
	}
	return logging.New(profile.LogPath(p.ProfileName), p.ProfileName, logging.ParseLevel(p.LogLevel))
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring profile lock", zap.String("profile", p.ProfileName))
	l, err := lock.Acquire(profile.Dir(p.ProfileName))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

// provideStore opens the database only once the profile lock is held.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.DBPath(p.ProfileName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideIdentity(s *config.Profile) conversation.Identity {
	return conversation.Identity{UserID: s.UserID, Nickname: s.Nickname, BotUserID: s.BotUserID}
}

func provideBackend(s *config.Profile) *backend.Client {
	return backend.New(s.APIBaseURL, s.AccessToken)
}

func providePush(s *config.Profile, m *status.Machine, logger *zap.Logger) *push.Client {
	return push.New(push.Options{
		URL:            s.WSURL,
		Token:          s.AccessToken,
		Heartbeat:      s.Heartbeat.Duration,
		ReconnectDelay: s.ReconnectDelay.Duration,
	}, m, logger)
}

func provideSender(db *store.DB, be *backend.Client, pc *push.Client, b *bus.Bus, logger *zap.Logger) *outbox.Sender {
	return outbox.NewSender(db, be, pc, b, logger)
}

func provideController(s *config.Profile, self conversation.Identity, be *backend.Client, pc *push.Client, sender *outbox.Sender, b *bus.Bus, logger *zap.Logger) *conversation.Controller {
	return conversation.New(
		conversation.Options{Self: self, PageSize: s.PageSize},
		be, pc, sender,
		chat.NewRegistry(), chat.NewReadStates(), chat.NewTyping(),
		b, logger,
	)
}

func provideSessionService(p Params, self conversation.Identity, m *status.Machine, b *bus.Bus, conv *conversation.Controller, db *store.DB) *api.SessionService {
	return api.NewSessionService(p.ProfileName, self, m, b, conv, db)
}

func provideRoomService(conv *conversation.Controller, be *backend.Client, self conversation.Identity) *api.RoomService {
	return api.NewRoomService(conv, be, self)
}

func provideMessageService(conv *conversation.Controller, be *backend.Client, self conversation.Identity) *api.MessageService {
	return api.NewMessageService(conv, be, self)
}

func provideEventService(p Params, b *bus.Bus, logger *zap.Logger) *api.EventService {
	return api.NewEventService(b, p.ProfileName, logger)
}

type lifecycleDeps struct {
	fx.In

	Server  *Server
	Metrics *MetricsServer
	Lock    *lock.Lock
	DB      *store.DB
	Push    *push.Client
	Sender  *outbox.Sender
	Conv    *conversation.Controller
	Logger  *zap.Logger
}

func registerLifecycle(lc fx.Lifecycle, d lifecycleDeps) {
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if n, err := d.DB.PurgeUploaded(time.Now().Add(-uploadRetention)); err != nil {
				d.Logger.Warn("failed to purge delivered uploads", zap.Error(err))
			} else if n > 0 {
				d.Logger.Info("purged delivered uploads", zap.Int64("count", n))
			}

			// Upload outcomes flow into the open feed.
			go func() {
				defer close(done)
				d.Conv.Run(runCtx)
			}()

			d.Sender.Start(runCtx)

			go func() {
				if err := d.Server.Start(); err != nil {
					d.Logger.Error("gRPC server error", zap.Error(err))
				}
			}()
			d.Metrics.Start()

			go func() {
				ctx, cancel := context.WithTimeout(runCtx, 30*time.Second)
				defer cancel()
				rooms, err := d.Conv.RefreshRooms(ctx)
				if err != nil {
					d.Logger.Warn("initial room fetch failed", zap.Error(err))
					return
				}
				d.Logger.Info("rooms loaded", zap.Int("count", len(rooms)))
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			d.Server.Stop(ctx)
			d.Metrics.Stop(ctx)
			d.Conv.Close()
			cancel()
			<-done
			d.Sender.Stop()
			if err := d.Push.Close(); err != nil {
				d.Logger.Warn("error closing push connection", zap.Error(err))
			}
			if err := d.DB.Close(); err != nil {
				d.Logger.Warn("error closing store", zap.Error(err))
			}
			if err := d.Lock.Release(); err != nil {
				d.Logger.Warn("error releasing lock", zap.Error(err))
			}
			d.Logger.Info("daemon stopped")
			return nil
		},
	})
}

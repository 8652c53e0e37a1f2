package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Tiel0043/projecthub/minipay/log"
	"github.com/gofiber/fiber/v2"
)

// ErrNoServerConfigured indicates the manager was started without an HTTP
// server.
var ErrNoServerConfigured = errors.New("no server configured: use WithHTTPServer()")

const defaultShutdownTimeout = 30 * time.Second

// Manager runs the HTTP server and shuts everything down in order on a
// termination signal, a closed shutdown channel, or a startup failure.
type Manager struct {
	httpServer      *fiber.App
	httpAddress     string
	closers         []io.Closer
	logger          log.Logger
	started         chan struct{}
	startedOnce     sync.Once
	shutdownChan    <-chan struct{}
	shutdownOnce    sync.Once
	shutdownTimeout time.Duration
	startupErrors   chan error
}

// NewManager creates a manager. A nil logger disables logging.
func NewManager(logger log.Logger) *Manager {
	return &Manager{
		logger:          log.OrNop(logger),
		started:         make(chan struct{}),
		shutdownTimeout: defaultShutdownTimeout,
		startupErrors:   make(chan error, 1),
	}
}

// WithHTTPServer configures the HTTP server and its listen address.
func (m *Manager) WithHTTPServer(app *fiber.App, address string) *Manager {
	m.httpServer = app
	m.httpAddress = address

	return m
}

// WithCloser registers a resource closed after the server has drained.
// Closers run in registration order.
func (m *Manager) WithCloser(closer io.Closer) *Manager {
	if closer != nil {
		m.closers = append(m.closers, closer)
	}

	return m
}

// WithShutdownChannel configures a custom shutdown trigger. This lets tests
// drive shutdown deterministically instead of relying on OS signals.
func (m *Manager) WithShutdownChannel(ch <-chan struct{}) *Manager {
	m.shutdownChan = ch

	return m
}

// WithShutdownTimeout bounds how long shutdown waits for the server to drain.
func (m *Manager) WithShutdownTimeout(d time.Duration) *Manager {
	if d > 0 {
		m.shutdownTimeout = d
	}

	return m
}

// Started returns a channel closed once the server goroutine has been
// launched. It signals the goroutine was spawned, not that the socket is
// bound.
func (m *Manager) Started() <-chan struct{} {
	return m.started
}

// Run starts the server and blocks until shutdown completes.
func (m *Manager) Run() error {
	if m.httpServer == nil {
		return ErrNoServerConfigured
	}

	m.startServer()
	m.awaitShutdownSignal()
	m.executeShutdown()

	return nil
}

func (m *Manager) startServer() {
	go func() {
		m.logger.Log(context.Background(), log.LevelInfo, "starting HTTP server",
			log.String("address", m.httpAddress))

		if err := m.httpServer.Listen(m.httpAddress); err != nil {
			m.logger.Log(context.Background(), log.LevelError, "HTTP server error", log.Err(err))

			select {
			case m.startupErrors <- fmt.Errorf("http server: %w", err):
			default:
			}
		}
	}()

	m.startedOnce.Do(func() {
		close(m.started)
	})
}

func (m *Manager) awaitShutdownSignal() {
	if m.shutdownChan != nil {
		select {
		case <-m.shutdownChan:
		case err := <-m.startupErrors:
			m.logger.Log(context.Background(), log.LevelError, "server startup failed", log.Err(err))
		}

		return
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	select {
	case <-c:
		signal.Stop(c)
	case err := <-m.startupErrors:
		m.logger.Log(context.Background(), log.LevelError, "server startup failed", log.Err(err))
	}
}

// executeShutdown drains the server, closes registered resources, and syncs
// the logger. Idempotent.
func (m *Manager) executeShutdown() {
	m.shutdownOnce.Do(func() {
		ctx := context.Background()

		m.logger.Log(ctx, log.LevelInfo, "shutting down HTTP server")

		if err := m.httpServer.ShutdownWithTimeout(m.shutdownTimeout); err != nil {
			m.logger.Log(ctx, log.LevelError, "error during HTTP server shutdown", log.Err(err))
		}

		for _, closer := range m.closers {
			if err := closer.Close(); err != nil {
				m.logger.Log(ctx, log.LevelError, "error closing resource", log.Err(err))
			}
		}

		if err := m.logger.Sync(ctx); err != nil {
			m.logger.Log(ctx, log.LevelError, "failed to sync logger", log.Err(err))
		}

		m.logger.Log(ctx, log.LevelInfo, "graceful shutdown completed")
	})
}

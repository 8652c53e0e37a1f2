package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Tiel0043/projecthub/minipay/log"
	"github.com/bxcodec/dbresolver/v2"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 10
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute
)

var (
	credentialsPattern = regexp.MustCompile(`://[^@\s]+@`)
	passwordPattern    = regexp.MustCompile(`(?i)(password=)([^\s&]+)`)
	dbNamePattern      = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)
)

// Connection is a hub over the primary and replica database handles.
type Connection struct {
	// PrimaryURL is the read-write connection string.
	PrimaryURL string
	// ReplicaURL is the read-only connection string. Falls back to PrimaryURL
	// when empty.
	ReplicaURL string
	// DatabaseName is the primary database name, used by the migrator.
	DatabaseName string
	// MigrationsPath points at the directory of .up.sql/.down.sql files.
	MigrationsPath string
	// Logger receives connection lifecycle logs. Nil disables logging.
	Logger log.Logger
	// MaxOpenConnections caps open connections per handle. Zero uses the
	// default.
	MaxOpenConnections int
	// MaxIdleConnections caps idle connections per handle. Zero uses the
	// default.
	MaxIdleConnections int

	db        dbresolver.DB
	primaryDB *sql.DB
	connected bool
	mu        sync.RWMutex
}

func (c *Connection) initDefaults() {
	c.Logger = log.OrNop(c.Logger)

	if c.ReplicaURL == "" {
		c.ReplicaURL = c.PrimaryURL
	}

	if c.MaxOpenConnections <= 0 {
		c.MaxOpenConnections = defaultMaxOpenConns
	}

	if c.MaxIdleConnections <= 0 {
		c.MaxIdleConnections = defaultMaxIdleConns
	}
}

// Connect opens both handles, runs migrations against the primary, and keeps
// the resolver for reuse. Reconnecting closes the previous resolver first.
func (c *Connection) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connectLocked(ctx)
}

func (c *Connection) connectLocked(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	c.initDefaults()

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled before database connection: %w", err)
	}

	if c.db != nil {
		if err := c.closeLocked(); err != nil {
			c.Logger.Log(ctx, log.LevelWarn, "failed to close previous connection before reconnect", log.Err(err))
		}
	}

	c.Logger.Log(ctx, log.LevelInfo, "connecting to primary and replica databases")

	primary, err := sql.Open("pgx", c.PrimaryURL)
	if err != nil {
		return fmt.Errorf("open primary database: %s", sanitizeSensitiveError(err))
	}

	var success bool

	defer func() {
		if !success {
			primary.Close()
		}
	}()

	tunePool(primary, c.MaxOpenConnections, c.MaxIdleConnections)

	replica, err := sql.Open("pgx", c.ReplicaURL)
	if err != nil {
		return fmt.Errorf("open replica database: %s", sanitizeSensitiveError(err))
	}

	defer func() {
		if !success {
			replica.Close()
		}
	}()

	tunePool(replica, c.MaxOpenConnections, c.MaxIdleConnections)

	db, err := newResolver(primary, replica)
	if err != nil {
		return fmt.Errorf("create resolver: %w", err)
	}

	if c.MigrationsPath != "" {
		migrationsPath, err := sanitizePath(c.MigrationsPath)
		if err != nil {
			return err
		}

		if err := runMigrations(primary, migrationsPath, c.DatabaseName, c.Logger); err != nil {
			return err
		}
	}

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	c.db = db
	c.primaryDB = primary
	c.connected = true

	c.Logger.Log(ctx, log.LevelInfo, "connected to postgres")

	success = true

	return nil
}

// DB returns the resolver handle, connecting lazily on first use.
func (c *Connection) DB(ctx context.Context) (dbresolver.DB, error) {
	c.mu.RLock()

	if c.db != nil {
		db := c.db
		c.mu.RUnlock()

		return db, nil
	}

	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.db != nil {
		return c.db, nil
	}

	if err := c.connectLocked(ctx); err != nil {
		return nil, err
	}

	return c.db, nil
}

// Primary returns the read-write handle for transactional writes, connecting
// lazily on first use.
func (c *Connection) Primary(ctx context.Context) (*sql.DB, error) {
	if _, err := c.DB(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.primaryDB, nil
}

// Close releases both database handles.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closeLocked()
}

func (c *Connection) closeLocked() error {
	if c.db == nil {
		return nil
	}

	err := c.db.Close()
	c.db = nil
	c.primaryDB = nil
	c.connected = false

	return err
}

// IsConnected reports whether the resolver is initialized.
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.connected
}

func newResolver(primary, replica *sql.DB) (db dbresolver.DB, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("resolver panicked: %v", recovered)
		}
	}()

	db = dbresolver.New(
		dbresolver.WithPrimaryDBs(primary),
		dbresolver.WithReplicaDBs(replica),
		dbresolver.WithLoadBalancer(dbresolver.RoundRobinLB),
	)
	if db == nil {
		return nil, errors.New("resolver returned nil connection")
	}

	return db, nil
}

func tunePool(db *sql.DB, maxOpen, maxIdle int) {
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)
}

// sanitizeSensitiveError strips credentials from driver errors before they
// reach logs or callers.
func sanitizeSensitiveError(err error) string {
	if err == nil {
		return ""
	}

	sanitized := credentialsPattern.ReplaceAllString(err.Error(), "://***@")
	sanitized = passwordPattern.ReplaceAllString(sanitized, "${1}***")

	return sanitized
}

func sanitizePath(path string) (string, error) {
	cleaned := filepath.Clean(path)

	for _, part := range strings.Split(cleaned, string(filepath.Separator)) {
		if part == ".." {
			return "", fmt.Errorf("invalid migrations path: %q", path)
		}
	}

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve migrations path: %w", err)
	}

	return absPath, nil
}

func runMigrations(primary *sql.DB, migrationsPath, databaseName string, logger log.Logger) error {
	if !dbNamePattern.MatchString(databaseName) {
		return fmt.Errorf("invalid database name: %q", databaseName)
	}

	sourceURL, err := url.Parse(filepath.ToSlash(migrationsPath))
	if err != nil {
		return fmt.Errorf("parse migrations url: %w", err)
	}

	sourceURL.Scheme = "file"

	driver, err := postgres.WithInstance(primary, &postgres.Config{
		DatabaseName: databaseName,
		SchemaName:   "public",
	})
	if err != nil {
		return fmt.Errorf("create postgres driver instance: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL.String(), databaseName, driver)
	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Log(context.Background(), log.LevelInfo, "no new migrations found")

			return nil
		}

		if errors.Is(err, os.ErrNotExist) {
			logger.Log(context.Background(), log.LevelWarn, "no migration files found, skipping migration step")

			return nil
		}

		var dirtyErr migrate.ErrDirty
		if errors.As(err, &dirtyErr) {
			return fmt.Errorf("migration failed: dirty database version %d", dirtyErr.Version)
		}

		return fmt.Errorf("migration failed: %w", err)
	}

	return nil
}

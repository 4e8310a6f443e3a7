package candidates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"ncboard/internal/config"
)

// Dialect selects the SQL flavour and driver.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

// ErrUnknownDialect is returned for an unsupported driver name.
var ErrUnknownDialect = errors.New("unknown database driver")

// ParseDialect maps a configured driver name to a Dialect.
func ParseDialect(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "mysql":
		return MySQL, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownDialect, name)
	}
}

func (d Dialect) driverName() string {
	if d == Postgres {
		return "pgx"
	}
	return string(d)
}

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store is the candidate repository.
type Store struct {
	db      *sql.DB
	dialect Dialect
	timeout time.Duration
	now     func() time.Time
}

// Open connects to the database configured for the store service and
// applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenDSN(cfg.Server.DBDriver, cfg.Server.DBDSN, cfg.DBTimeout())
}

// OpenDSN connects using an explicit driver name and DSN.
func OpenDSN(driver, dsn string, timeout time.Duration) (*Store, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("database dsn is empty")
	}
	if dialect == SQLite {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	openMu.Lock()
	db, err := sqlOpen(dialect.driverName(), dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", dialect, err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	store := &Store{db: db, dialect: dialect, timeout: timeout, now: time.Now}

	ctx, cancel := context.WithTimeout(context.Background(), 4*timeout)
	defer cancel()
	if err := store.prepare(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) prepare(ctx context.Context) error {
	switch s.dialect {
	case SQLite:
		// One writer avoids SQLITE_BUSY between pooled connections.
		s.db.SetMaxOpenConns(1)
		pragmas := []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA foreign_keys = ON",
			"PRAGMA busy_timeout = 5000",
		}
		for _, pragma := range pragmas {
			if _, err := s.db.ExecContext(ctx, pragma); err != nil {
				return fmt.Errorf("apply pragma %q: %w", pragma, err)
			}
		}
	default:
		s.db.SetConnMaxLifetime(5 * time.Minute)
		s.db.SetMaxOpenConns(25)
		s.db.SetMaxIdleConns(25)
		if err := s.db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping %s: %w", s.dialect, err)
		}
	}
	return s.applyMigrations(ctx)
}

// Dialect reports the active SQL flavour.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.callContext(ctx)
	defer cancel()
	return s.db.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, s.timeout)
}

// rebind rewrites ? placeholders as $n for postgres.
func (s *Store) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

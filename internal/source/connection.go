// Package source opens relational connections and materializes query
// results into typed rows.
package source

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/colport/colport/internal/config"
	colerrors "github.com/colport/colport/internal/errors"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Connection is an exclusively owned handle to one source database. It is
// not safe for concurrent use; callers running parallel exports must open
// one connection per export.
type Connection struct {
	db     *sql.DB
	driver string
	closed bool
}

// Open establishes a connection to the configured source database. The dial
// is verified with a ping so an unreachable host, bad credentials, or an
// unknown database fail here rather than on first query.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Connection, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, colerrors.NewConnectionError(colerrors.CodeDialFailed,
			fmt.Sprintf("failed to open %s connection", cfg.Driver), err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, colerrors.NewConnectionError(colerrors.CodeDialFailed,
			fmt.Sprintf("failed to reach %s at %s", cfg.Driver, cfg.Host), err)
	}

	return &Connection{db: db, driver: cfg.Driver}, nil
}

// Close releases the connection. It is idempotent: closing an already
// closed or never opened connection returns nil.
func (c *Connection) Close() error {
	if c == nil || c.db == nil || c.closed {
		return nil
	}
	c.closed = true
	return c.db.Close()
}

// Driver returns the driver name the connection was opened with.
func (c *Connection) Driver() string {
	if c == nil {
		return ""
	}
	return c.driver
}

// buildDSN constructs a driver-specific DSN from the connection settings.
func buildDSN(cfg config.DatabaseConfig) (string, error) {
	switch cfg.Driver {
	case config.DriverMySQL:
		port := cfg.Port
		if port == 0 {
			port = 3306
		}
		// parseTime makes the driver return DATETIME/TIMESTAMP columns as time.Time
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
			cfg.User, cfg.Password, cfg.Host, port, cfg.Database), nil

	case config.DriverPostgres:
		port := cfg.Port
		if port == 0 {
			port = 5432
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, port, cfg.User, cfg.Password, cfg.Database), nil

	case config.DriverSQLite:
		// For sqlite3 the database field is the file path (or :memory:)
		return cfg.Database, nil

	default:
		return "", colerrors.NewConnectionError(colerrors.CodeUnsupportedDriver,
			fmt.Sprintf("unsupported driver %q", cfg.Driver), nil)
	}
}

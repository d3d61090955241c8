package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect captures what differs between the supported databases.
type Dialect struct {
	Name       string
	driver     string
	schema     []string
	dollarArgs bool
}

var (
	MySQL = Dialect{
		Name:   "mysql",
		driver: "mysql",
		schema: []string{`
	CREATE TABLE IF NOT EXISTS assessments (
		id VARCHAR(36) PRIMARY KEY,
		session_id VARCHAR(36) NOT NULL,
		total_score INT NOT NULL,
		level VARCHAR(32) NOT NULL,
		message TEXT NOT NULL,
		fallback BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_assessments_session (session_id, created_at)
	);`, `
	CREATE TABLE IF NOT EXISTS journals (
		id VARCHAR(36) PRIMARY KEY,
		session_id VARCHAR(36) NOT NULL,
		sealed_text TEXT NOT NULL,
		result_json TEXT NOT NULL,
		fallback BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_journals_session (session_id, created_at)
	);`, `
	CREATE TABLE IF NOT EXISTS testimonials (
		id VARCHAR(36) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		text TEXT NOT NULL,
		rating INT NOT NULL,
		forwarded BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME(6) NOT NULL
	);`},
	}

	Postgres = Dialect{
		Name:       "postgres",
		driver:     "pgx",
		dollarArgs: true,
		schema: []string{`
	CREATE TABLE IF NOT EXISTS assessments (
		id UUID PRIMARY KEY,
		session_id UUID NOT NULL,
		total_score INT NOT NULL,
		level VARCHAR(32) NOT NULL,
		message TEXT NOT NULL,
		fallback BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	);`,
			`CREATE INDEX IF NOT EXISTS idx_assessments_session ON assessments (session_id, created_at);`, `
	CREATE TABLE IF NOT EXISTS journals (
		id UUID PRIMARY KEY,
		session_id UUID NOT NULL,
		sealed_text TEXT NOT NULL,
		result_json TEXT NOT NULL,
		fallback BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	);`,
			`CREATE INDEX IF NOT EXISTS idx_journals_session ON journals (session_id, created_at);`, `
	CREATE TABLE IF NOT EXISTS testimonials (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		text TEXT NOT NULL,
		rating INT NOT NULL,
		forwarded BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL
	);`},
	}

	SQLite = Dialect{
		Name:   "sqlite",
		driver: "sqlite",
		schema: []string{`
	CREATE TABLE IF NOT EXISTS assessments (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		total_score INTEGER NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL,
		fallback BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);`,
			`CREATE INDEX IF NOT EXISTS idx_assessments_session ON assessments (session_id, created_at);`, `
	CREATE TABLE IF NOT EXISTS journals (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		sealed_text TEXT NOT NULL,
		result_json TEXT NOT NULL,
		fallback BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);`,
			`CREATE INDEX IF NOT EXISTS idx_journals_session ON journals (session_id, created_at);`, `
	CREATE TABLE IF NOT EXISTS testimonials (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		text TEXT NOT NULL,
		rating INTEGER NOT NULL,
		forwarded BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);`},
	}
)

func DialectFor(name string) (Dialect, error) {
	switch name {
	case "mysql":
		return MySQL, nil
	case "postgres", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("db: unknown driver %q", name)
}

// rebind rewrites ? placeholders for dialects that number their arguments.
func (d Dialect) rebind(query string) string {
	if !d.dollarArgs {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Connect opens and pings the database. MySQL DSNs need parseTime=true.
func Connect(ctx context.Context, driver, dsn string) (*sql.DB, Dialect, error) {
	d, err := DialectFor(driver)
	if err != nil {
		return nil, Dialect{}, err
	}
	conn, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("db: open %s: %w", d.Name, err)
	}
	if d.Name == SQLite.Name {
		// one connection keeps in-memory databases alive and avoids
		// SQLITE_BUSY between writers
		conn.SetMaxOpenConns(1)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, Dialect{}, fmt.Errorf("db: ping %s: %w", d.Name, err)
	}
	return conn, d, nil
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, conn *sql.DB, d Dialect) error {
	for _, stmt := range d.schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("db: migrate %s: %w", d.Name, err)
		}
	}
	return nil
}

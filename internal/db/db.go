package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const (
	dataDirName   = ".opsmap"
	defaultDBName = "opsmap.db"
)

type Config struct {
	// Dir holds the .opsmap data directory; empty means the working directory.
	Dir string
	// Name overrides the database file name, e.g. "server.db".
	Name string
}

func dbPath(cfg Config) string {
	dir := cfg.Dir
	if dir == "" {
		dir = "."
	}
	name := cfg.Name
	if name == "" {
		name = defaultDBName
	}
	return filepath.Join(dir, dataDirName, name)
}

// EnsureDir creates the data directory if missing.
func EnsureDir(dir string) (string, error) {
	path := filepath.Join(dir, dataDirName)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", err
	}
	return path, nil
}

// Open opens the SQLite database with foreign keys on and a busy timeout, since
// the CLI and a running server may share the file.
func Open(cfg Config) (*sql.DB, error) {
	if _, err := EnsureDir(cfg.Dir); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbPath(cfg))
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(1)
	return conn, nil
}

// Path returns the db path for cfg.
func Path(cfg Config) string {
	return dbPath(cfg)
}

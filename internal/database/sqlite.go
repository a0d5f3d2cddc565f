package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

var (
	db   *sql.DB
	once sync.Once
)

// Config holds database configuration
type Config struct {
	Path string
}

// Open opens a sqlite database, applies the connection pragmas and runs the
// embedded migrations. In-memory databases are pinned to one connection so
// every query sees the same schema.
func Open(path string, log *logrus.Entry) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if strings.Contains(path, ":memory:") {
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(10)
		conn.SetMaxIdleConns(5)

		if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := NewMigrationManager(conn, log).RunMigrations(); err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}

// Init initializes the process-wide database connection
func Init(cfg Config, log *logrus.Entry) error {
	var err error
	once.Do(func() {
		db, err = Open(cfg.Path, log)
		if err != nil {
			return
		}
		if log != nil {
			log.WithField("path", cfg.Path).Info("database initialized")
		}
	})

	return err
}

// GetDB returns the database instance
func GetDB() *sql.DB {
	if db == nil {
		logrus.Fatal("database not initialized, call Init first")
	}
	return db
}

// Close closes the database connection
func Close() error {
	if db != nil {
		return db.Close()
	}
	return nil
}

// Transaction executes fn within a transaction on conn. Nothing is committed
// unless fn returns nil.
func Transaction(ctx context.Context, conn *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

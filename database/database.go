package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

//go:embed schema_sqlite.sql
var sqliteSchema string

// SQLiteMemory is an in-memory database that lives as long as its pool.
const SQLiteMemory = "file::memory:"

// ConnectDB opens the Postgres pool and waits for it to answer, backing off
// between attempts while the database container is still starting.
func ConnectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	sleep := time.Second
	for attempt := 1; ; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err == nil {
			return db, nil
		}
		if attempt == 6 {
			db.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		log.Printf("[DB] ping failed (attempt %d): %v", attempt, err)
		time.Sleep(sleep)
		if sleep < 8*time.Second {
			sleep *= 2
		}
	}
}

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	log.Println("[DB] schema applied")
	return nil
}

// ConnectSQLite opens a SQLite database with foreign keys enforced and
// applies the schema. The pool holds a single connection so an in-memory
// database is seen by every caller.
func ConnectSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&_foreign_keys=on"
	} else {
		dsn += "?_foreign_keys=on"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	log.Printf("[DB] sqlite ready at %s", path)
	return db, nil
}

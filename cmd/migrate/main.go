// Command migrate applies or rolls back the PostgreSQL schema migrations.
package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/leafscan/backend/internal/database"
	"github.com/leafscan/backend/internal/logger"
	_ "github.com/lib/pq"
)

func main() {
	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	migrationsDir := flag.String("dir", "migrations", "Directory holding the *.sql migrations")
	flag.Parse()

	log := logger.Component("migrate")

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable is not set")
	}
	if !strings.HasPrefix(dsn, "postgres") {
		log.Fatal("migrate only targets PostgreSQL; SQLite is migrated on server start")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		log.WithError(err).Fatal("failed to create migrations table")
	}

	if *rollback {
		name, err := rollbackLast(db, *migrationsDir)
		if err != nil {
			log.WithError(err).Fatal("rollback failed")
		}
		log.WithField("migration", name).Info("Successfully rolled back migration")
		return
	}

	files, err := database.MigrationFiles(*migrationsDir)
	if err != nil {
		log.WithError(err).Fatal("failed to list migrations")
	}

	for _, file := range files {
		var applied bool
		if err := db.QueryRow("SELECT EXISTS (SELECT 1 FROM migrations WHERE name = $1)", file).Scan(&applied); err != nil {
			log.WithError(err).Fatal("failed to check migration status")
		}
		if applied {
			log.WithField("migration", file).Info("Migration already applied")
			continue
		}

		if err := apply(db, filepath.Join(*migrationsDir, file), "INSERT INTO migrations (name) VALUES ($1)", file); err != nil {
			log.WithError(err).WithField("migration", file).Fatal("failed to apply migration")
		}
		log.WithField("migration", file).Info("Successfully applied migration")
	}

	log.Info("All migrations applied successfully")
}

func rollbackLast(db *sql.DB, dir string) (string, error) {
	var name string
	err := db.QueryRow("SELECT name FROM migrations ORDER BY applied_at DESC, id DESC LIMIT 1").Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errors.New("no migrations to rollback")
	}
	if err != nil {
		return "", fmt.Errorf("failed to get last migration: %w", err)
	}

	down := filepath.Join(dir, strings.TrimSuffix(name, ".sql")+".down.sql")
	if _, err := os.Stat(down); err != nil {
		return "", fmt.Errorf("rollback file not found: %s", down)
	}
	return name, apply(db, down, "DELETE FROM migrations WHERE name = $1", name)
}

// apply runs the script at path and the bookkeeping statement in one transaction.
func apply(db *sql.DB, path, record, name string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	if _, err := tx.Exec(string(content)); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to execute %s: %w", path, err)
	}
	if _, err := tx.Exec(record, name); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to record %s: %w", name, err)
	}
	return tx.Commit()
}

package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Each restaurant is one row; its table inventory lives in tables_json and
// the version column is the compare-and-swap token for every write.
var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name          VARCHAR(255) NOT NULL,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role          VARCHAR(16)  NOT NULL,
		created_at    DATETIME     NOT NULL,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS restaurants (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		admin_id    BIGINT UNSIGNED NOT NULL,
		name        VARCHAR(255) NOT NULL,
		location    VARCHAR(255) NOT NULL,
		open_time   VARCHAR(32)  NOT NULL,
		close_time  VARCHAR(32)  NOT NULL,
		capacity    INT          NOT NULL,
		tables_json JSON         NOT NULL,
		version     BIGINT UNSIGNED NOT NULL DEFAULT 1,
		created_at  DATETIME     NOT NULL,
		updated_at  DATETIME     NOT NULL,
		UNIQUE KEY uq_restaurants_admin (admin_id),
		KEY idx_restaurants_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL,
		created_at    DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS restaurants (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		admin_id    INTEGER NOT NULL UNIQUE,
		name        TEXT NOT NULL,
		location    TEXT NOT NULL,
		open_time   TEXT NOT NULL,
		close_time  TEXT NOT NULL,
		capacity    INTEGER NOT NULL,
		tables_json TEXT NOT NULL,
		version     INTEGER NOT NULL DEFAULT 1,
		created_at  DATETIME NOT NULL,
		updated_at  DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_restaurants_name ON restaurants (name)`,
}

// Migrate creates the schema for the given dialect.  Statements are
// idempotent so it is safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB, dialect string) error {
	var stmts []string
	switch dialect {
	case DialectMySQL:
		stmts = mysqlSchema
	case DialectSQLite:
		stmts = sqliteSchema
	default:
		return fmt.Errorf("unsupported dialect %q", dialect)
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

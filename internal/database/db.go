package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// Open connects to MySQL and verifies the connection.
func Open(ctx context.Context, user, pass, host, port, name string) (*sql.DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

// schema is applied on every start; each statement is idempotent.
// booking_calendar holds a single row that booking transactions lock to
// serialize the overlap check with the insert.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS services (
		id               CHAR(36)     NOT NULL PRIMARY KEY,
		name             VARCHAR(120) NOT NULL,
		duration_minutes INT          NOT NULL,
		price_cents      INT          NOT NULL,
		description      VARCHAR(500) NULL,
		CONSTRAINT chk_services_duration CHECK (duration_minutes > 0),
		CONSTRAINT chk_services_price CHECK (price_cents >= 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id           CHAR(36)     NOT NULL PRIMARY KEY,
		service_id   CHAR(36)     NOT NULL,
		client_name  VARCHAR(200) NOT NULL,
		client_phone VARCHAR(50)  NOT NULL,
		client_email VARCHAR(254) NULL,
		start_time   DATETIME(3)  NOT NULL,
		end_time     DATETIME(3)  NOT NULL,
		status       ENUM('pending','confirmed','cancelled') NOT NULL,
		created_at   DATETIME(3)  NOT NULL,
		KEY idx_bookings_status_range (status, start_time, end_time),
		KEY idx_bookings_start (start_time),
		CONSTRAINT chk_bookings_interval CHECK (end_time > start_time)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS booking_calendar (
		id      TINYINT NOT NULL PRIMARY KEY,
		version BIGINT  NOT NULL DEFAULT 0
	) ENGINE=InnoDB`,
	`INSERT IGNORE INTO booking_calendar (id, version) VALUES (1, 0)`,
}

// Migrate creates the tables the application needs.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d: %w", i+1, err)
		}
	}
	return nil
}

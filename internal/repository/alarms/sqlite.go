package alarms

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Registers the "sqlite" driver.

	domain "github.com/oshokin/dronpoint-adapter/internal/domain/alarm"
)

// Repository defines persistence operations for alarm notifications.
type Repository interface {
	Add(ctx context.Context, n *domain.Notification) error
	List(ctx context.Context) ([]*domain.Notification, error)
}

// DefaultDatabaseFilename is the default SQLite file of the receiver.
const DefaultDatabaseFilename = "alarm-receiver.db"

// errNotificationRequired is returned when Add gets nil.
var errNotificationRequired = errors.New("notification must be provided")

// SQLiteRepository persists notifications in a SQLite database.
type SQLiteRepository struct {
	// db is the database handle, limited to one connection.
	db *sql.DB
}

// Open opens or creates the database at path and prepares the schema.
func Open(ctx context.Context, path string) (*SQLiteRepository, error) {
	if path == "" {
		path = DefaultDatabaseFilename
	}

	db, err := sql.Open("sqlite", filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &SQLiteRepository{db: db}
	if err = repo.init(ctx); err != nil {
		_ = db.Close()

		return nil, err
	}

	return repo, nil
}

func (r *SQLiteRepository) init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS alarm_notifications (
			id TEXT PRIMARY KEY,
			class INTEGER NOT NULL,
			lat REAL NOT NULL,
			lon REAL NOT NULL,
			received_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("create alarm_notifications table: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_alarm_notifications_received ON alarm_notifications(received_at)
	`); err != nil {
		return fmt.Errorf("create alarm_notifications index: %w", err)
	}

	return nil
}

// Add stores n.
func (r *SQLiteRepository) Add(ctx context.Context, n *domain.Notification) error {
	if n == nil {
		return errNotificationRequired
	}

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO alarm_notifications (id, class, lat, lon, received_at) VALUES (?, ?, ?, ?, ?)
	`, n.ID.String(), n.Class, n.Latitude, n.Longitude, n.ReceivedAt.UnixNano()); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	return nil
}

// List returns all stored notifications, oldest first.
func (r *SQLiteRepository) List(ctx context.Context) ([]*domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, class, lat, lon, received_at FROM alarm_notifications ORDER BY received_at, rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}

	defer rows.Close()

	result := make([]*domain.Notification, 0)

	for rows.Next() {
		var (
			id         string
			receivedAt int64
			n          domain.Notification
		)

		if err = rows.Scan(&id, &n.Class, &n.Latitude, &n.Longitude, &receivedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}

		if n.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse notification id %q: %w", id, err)
		}

		n.ReceivedAt = time.Unix(0, receivedAt).UTC()
		result = append(result, &n)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	return result, nil
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

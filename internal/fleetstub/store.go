package fleetstub

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a device id does not exist
var ErrNotFound = errors.New("device not found")

// Device is a tracked unit as shown in the Add/Edit Device dialog
type Device struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Pulsing       bool      `db:"pulsing" json:"pulsing"`
	SidebarRadius int       `db:"sidebar_radius" json:"sidebar_radius"`
	MapRadius     int       `db:"map_radius" json:"map_radius"`
	Icon          string    `db:"icon" json:"icon"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS devices (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	pulsing        INTEGER NOT NULL DEFAULT 0,
	sidebar_radius INTEGER NOT NULL,
	map_radius     INTEGER NOT NULL,
	icon           TEXT NOT NULL,
	created_at     DATETIME NOT NULL,
	updated_at     DATETIME NOT NULL
)`

// Store persists devices in SQLite
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// OpenStore opens (and migrates) the device database at dsn.
// ":memory:" gives a private in-memory database.
func OpenStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open device store: %w", err)
	}
	if dsn == ":memory:" {
		// every new connection would get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping device store: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate device store: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close releases the database handle
func (s *Store) Close() error {
	return s.db.Close()
}

// List returns devices whose name contains query (case-insensitive),
// oldest first. An empty query lists everything.
func (s *Store) List(ctx context.Context, query string) ([]Device, error) {
	devices := []Device{}
	q := `SELECT * FROM devices`
	var args []interface{}
	if query = strings.TrimSpace(query); query != "" {
		q += ` WHERE lower(name) LIKE ? ESCAPE '\'`
		args = append(args, "%"+escapeLike(strings.ToLower(query))+"%")
	}
	q += ` ORDER BY created_at, name`
	if err := s.db.SelectContext(ctx, &devices, q, args...); err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	return devices, nil
}

// Get returns one device by id
func (s *Store) Get(ctx context.Context, id string) (*Device, error) {
	var d Device
	err := s.db.GetContext(ctx, &d, `SELECT * FROM devices WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device %s: %w", id, err)
	}
	return &d, nil
}

// Create assigns an id and timestamps to d and inserts it
func (s *Store) Create(ctx context.Context, d *Device) error {
	now := s.now()
	d.ID = uuid.New().String()
	d.CreatedAt = now
	d.UpdatedAt = now
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO devices (id, name, pulsing, sidebar_radius, map_radius, icon, created_at, updated_at)
		VALUES (:id, :name, :pulsing, :sidebar_radius, :map_radius, :icon, :created_at, :updated_at)`, d)
	if err != nil {
		return fmt.Errorf("failed to create device: %w", err)
	}
	return nil
}

// Update overwrites the editable fields of the device with d.ID
func (s *Store) Update(ctx context.Context, d *Device) error {
	d.UpdatedAt = s.now()
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE devices
		SET name = :name, pulsing = :pulsing, sidebar_radius = :sidebar_radius,
		    map_radius = :map_radius, icon = :icon, updated_at = :updated_at
		WHERE id = :id`, d)
	if err != nil {
		return fmt.Errorf("failed to update device %s: %w", d.ID, err)
	}
	return requireOneRow(res)
}

// Delete removes the device with id
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete device %s: %w", id, err)
	}
	return requireOneRow(res)
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ohowland/switchgear/internal/pkg/root"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// Config of the SQL writer. Driver is "mysql" or "postgres".
type Config struct {
	Driver string
	DSN    string
}

// Row is one record of the realtime table.
type Row struct {
	ID      string
	PID     string
	Closed  bool
	Volt    float64
	Amp     float64
	KW      float64
	Updated time.Time
}

type dialect struct {
	createTable string
	upsert      string
}

const createTable = `CREATE TABLE IF NOT EXISTS realtime (
	id VARCHAR(16) PRIMARY KEY,
	pid VARCHAR(36) NOT NULL,
	closed BOOLEAN NOT NULL,
	volt DOUBLE PRECISION NOT NULL,
	amp DOUBLE PRECISION NOT NULL,
	kw DOUBLE PRECISION NOT NULL,
	updated TIMESTAMP NOT NULL
)`

var dialects = map[string]dialect{
	"postgres": {
		createTable: createTable,
		upsert: `INSERT INTO realtime (id, pid, closed, volt, amp, kw, updated)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET pid = EXCLUDED.pid, closed = EXCLUDED.closed,
volt = EXCLUDED.volt, amp = EXCLUDED.amp, kw = EXCLUDED.kw, updated = EXCLUDED.updated`,
	},
	"mysql": {
		createTable: createTable,
		upsert: `INSERT INTO realtime (id, pid, closed, volt, amp, kw, updated)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE pid = VALUES(pid), closed = VALUES(closed),
volt = VALUES(volt), amp = VALUES(amp), kw = VALUES(kw), updated = VALUES(updated)`,
	},
}

// Writer mirrors the latest reading of every device into the realtime table.
type Writer struct {
	config  Config
	dialect dialect
	db      *sql.DB
}

// New returns a Writer for cfg, or an error for an unsupported driver.
func New(cfg Config) (*Writer, error) {
	d, ok := dialects[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
	return &Writer{config: cfg, dialect: d}, nil
}

func (w *Writer) Name() string {
	return "sql"
}

// Open connects and creates the realtime table if it does not exist.
func (w *Writer) Open(ctx context.Context) error {
	db, err := sql.Open(w.config.Driver, w.config.DSN)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return err
	}
	if _, err := db.ExecContext(ctx, w.dialect.createTable); err != nil {
		db.Close()
		return fmt.Errorf("create table: %w", err)
	}
	w.db = db
	return nil
}

// Write upserts one row per device in a single transaction.
func (w *Writer) Write(ctx context.Context, snap root.Snapshot) error {
	if w.db == nil {
		return errors.New("not connected")
	}

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, w.dialect.upsert)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, row := range Rows(snap) {
		_, err := stmt.ExecContext(ctx,
			row.ID, row.PID, row.Closed, row.Volt, row.Amp, row.KW, row.Updated)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert %s: %w", row.ID, err)
		}
	}
	return tx.Commit()
}

func (w *Writer) Close() error {
	if w.db == nil {
		return nil
	}
	err := w.db.Close()
	w.db = nil
	return err
}

// Rows flattens a snapshot into realtime table rows.
func Rows(snap root.Snapshot) []Row {
	rows := make([]Row, 0, len(snap.Devices))
	for _, d := range snap.Devices {
		st := d.Status()
		rows = append(rows, Row{
			ID:      string(d.ID()),
			PID:     d.PID().String(),
			Closed:  st.Closed,
			Volt:    st.Volt,
			Amp:     st.Amp,
			KW:      st.KW,
			Updated: snap.Time.UTC(),
		})
	}
	return rows
}

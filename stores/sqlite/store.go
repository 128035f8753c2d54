package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"excalidraw-drawings/core"
	"excalidraw-drawings/stores/hub"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db  *sql.DB
	hub *hub.Hub
	tab string
}

// NewStore opens (or creates) the SQLite database and its tables.
func NewStore(dataSourceName string) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases and writes consistent.
	db.SetMaxOpenConns(1)

	// Durable client storage
	kvTableStmt := `CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value TEXT NOT NULL);`
	if _, err = db.Exec(kvTableStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	// Drawings served by the API
	drawingTableStmt := `
	CREATE TABLE IF NOT EXISTS drawings (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		data TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);`
	if _, err = db.Exec(drawingTableStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create drawings table: %w", err)
	}

	return &sqliteStore{db: db, hub: hub.New(), tab: hub.NewTab()}, nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}

func (s *sqliteStore) Tab() core.Storage {
	return &sqliteStore{db: s.db, hub: s.hub, tab: hub.NewTab()}
}

// Storage implementation
func (s *sqliteStore) GetItem(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		logrus.WithField("key", key).WithError(err).Error("Failed to read item")
		return "", false, err
	}
	return value, true, nil
}

func (s *sqliteStore) SetItem(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		logrus.WithField("key", key).WithError(err).Error("Failed to write item")
		return err
	}

	s.hub.Notify(s.tab, core.StorageEvent{Key: key, NewValue: value})
	return nil
}

func (s *sqliteStore) RemoveItem(key string) error {
	res, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key)
	if err != nil {
		logrus.WithField("key", key).WithError(err).Error("Failed to remove item")
		return err
	}

	if n, _ := res.RowsAffected(); n > 0 {
		s.hub.Notify(s.tab, core.StorageEvent{Key: key, Removed: true})
	}
	return nil
}

func (s *sqliteStore) AddChangeListener(key string, fn core.ChangeListener) func() {
	return s.hub.Listen(s.tab, key, fn)
}

// DrawingRepository implementation
func (s *sqliteStore) ListDrawings(ctx context.Context, limit, offset int) ([]*core.RemoteDrawing, int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM drawings").Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, data, created_at, updated_at FROM drawings ORDER BY updated_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	drawings := []*core.RemoteDrawing{}
	for rows.Next() {
		d, err := scanDrawing(rows)
		if err != nil {
			return nil, 0, err
		}
		drawings = append(drawings, d)
	}
	return drawings, total, rows.Err()
}

func (s *sqliteStore) GetDrawing(ctx context.Context, id string) (*core.RemoteDrawing, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, name, data, created_at, updated_at FROM drawings WHERE id = ?", id)
	d, err := scanDrawing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("drawing %s: %w", id, core.ErrNotFound)
		}
		return nil, err
	}
	return d, nil
}

func (s *sqliteStore) CreateDrawing(ctx context.Context, drawing *core.RemoteDrawing) error {
	data, err := json.Marshal(drawing.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal drawing data: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	id := ulid.Make().String()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO drawings (id, name, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		id, drawing.Name, string(data), now.UnixMilli(), now.UnixMilli())
	if err != nil {
		logrus.WithError(err).Error("Failed to create drawing")
		return err
	}

	drawing.ID = id
	drawing.CreatedAt = now
	drawing.UpdatedAt = now
	logrus.WithField("drawing_id", id).Info("Drawing created successfully")
	return nil
}

func (s *sqliteStore) UpdateDrawing(ctx context.Context, drawing *core.RemoteDrawing) error {
	data, err := json.Marshal(drawing.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal drawing data: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // Rollback on any error

	var createdAt int64
	err = tx.QueryRowContext(ctx, "SELECT created_at FROM drawings WHERE id = ?", drawing.ID).Scan(&createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("drawing %s: %w", drawing.ID, core.ErrNotFound)
		}
		return err
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	_, err = tx.ExecContext(ctx, "UPDATE drawings SET name = ?, data = ?, updated_at = ? WHERE id = ?",
		drawing.Name, string(data), now.UnixMilli(), drawing.ID)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	drawing.CreatedAt = time.UnixMilli(createdAt).UTC()
	drawing.UpdatedAt = now
	return nil
}

func (s *sqliteStore) DeleteDrawing(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM drawings WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("drawing %s: %w", id, core.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDrawing(row scanner) (*core.RemoteDrawing, error) {
	var (
		d                    core.RemoteDrawing
		data                 sql.NullString
		createdAt, updatedAt int64
	)
	if err := row.Scan(&d.ID, &d.Name, &data, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if data.Valid && data.String != "" {
		if err := json.Unmarshal([]byte(data.String), &d.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal drawing %s: %w", d.ID, err)
		}
	}
	d.CreatedAt = time.UnixMilli(createdAt).UTC()
	d.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &d, nil
}

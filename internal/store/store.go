package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Harky911/ReolinkANPR/internal/config"
)

// timestampLayout is the canonical on-disk timestamp format. RFC 3339 with
// fixed fractional width keeps lexicographic and chronological order aligned.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Event is one persisted plate sighting.
type Event struct {
	ID             int64
	Timestamp      time.Time
	PlateNumber    string
	Confidence     float64
	ImagePath      string
	PlateCropPath  string
	BoxCoordinates string
	FrameCount     int
}

// Store manages sighting persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string

	// dedupWindow is the per-plate repeat suppression span.
	dedupWindow time.Duration

	// now is swappable in tests to exercise window boundaries.
	now func() time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Open initializes or connects to the sightings database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.Storage.DatabasePath
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:          db,
		path:        dbPath,
		dedupWindow: time.Duration(cfg.Pipeline.DedupWindowSeconds) * time.Second,
		now:         time.Now,
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the location of the backing database file.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// DedupWindow reports the configured repeat-suppression span.
func (s *Store) DedupWindow() time.Duration {
	return s.dedupWindow
}

// Admit applies the check-then-insert dedup contract for one sighting. When
// the most recent stored event for the same plate is younger than the dedup
// window, the existing event id is returned with isNew=false and no row is
// written. Otherwise a new row is inserted. The whole decision runs inside a
// single transaction so it stays race-free even without the pipeline's
// single-flight lock.
func (s *Store) Admit(ctx context.Context, event Event) (int64, bool, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(event.PlateNumber) == "" {
		return 0, false, errors.New("admit: empty plate number")
	}

	var (
		id    int64
		isNew bool
	)
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin admit tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var (
			existingID int64
			existingTS string
		)
		row := tx.QueryRowContext(ctx,
			`SELECT id, timestamp FROM events WHERE plate_number = ? ORDER BY timestamp DESC, id DESC LIMIT 1`,
			event.PlateNumber)
		switch scanErr := row.Scan(&existingID, &existingTS); {
		case scanErr == nil:
			seen, parseErr := time.Parse(timestampLayout, existingTS)
			if parseErr != nil {
				return fmt.Errorf("parse stored timestamp %q: %w", existingTS, parseErr)
			}
			if s.now().Sub(seen) < s.dedupWindow {
				id = existingID
				isNew = false
				return tx.Commit()
			}
		case errors.Is(scanErr, sql.ErrNoRows):
		default:
			return fmt.Errorf("query latest event: %w", scanErr)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO events (timestamp, plate_number, confidence, image_path, plate_crop_path, box_coordinates, frame_count)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.now().UTC().Format(timestampLayout),
			event.PlateNumber,
			event.Confidence,
			event.ImagePath,
			event.PlateCropPath,
			event.BoxCoordinates,
			event.FrameCount)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("read inserted id: %w", err)
		}
		isNew = true
		return tx.Commit()
	})
	if err != nil {
		return 0, false, err
	}
	return id, isNew, nil
}

const eventColumns = "id, timestamp, plate_number, confidence, image_path, plate_crop_path, box_coordinates, frame_count"

func scanEvent(scanner interface{ Scan(...any) error }) (Event, error) {
	var (
		event Event
		ts    string
	)
	if err := scanner.Scan(&event.ID, &ts, &event.PlateNumber, &event.Confidence,
		&event.ImagePath, &event.PlateCropPath, &event.BoxCoordinates, &event.FrameCount); err != nil {
		return Event{}, err
	}
	parsed, err := time.Parse(timestampLayout, ts)
	if err != nil {
		return Event{}, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	event.Timestamp = parsed
	return event, nil
}

// GetByID returns the event with the given identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Event, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE id = ?", id)
	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	return &event, nil
}

// RecentEvents returns up to limit events, newest first.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	if limit < 1 {
		limit = 20
	}
	return s.queryEvents(ctx,
		"SELECT "+eventColumns+" FROM events ORDER BY timestamp DESC, id DESC LIMIT ?", limit)
}

// ListFilter constrains List output.
type ListFilter struct {
	// Search matches a substring of the plate text, case-insensitive.
	Search string
	// Period is one of "", "today", "week", "month".
	Period string
	Limit  int
	Offset int
}

func periodCutoff(period string, now time.Time) (time.Time, bool) {
	switch period {
	case "today":
		year, month, day := now.Date()
		return time.Date(year, month, day, 0, 0, 0, 0, now.Location()), true
	case "week":
		return now.Add(-7 * 24 * time.Hour), true
	case "month":
		return now.Add(-30 * 24 * time.Hour), true
	default:
		return time.Time{}, false
	}
}

// List returns a page of events matching the filter, newest first, along with
// the total count of matching rows.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Event, int, error) {
	ctx = ensureContext(ctx)

	where := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if search := strings.TrimSpace(filter.Search); search != "" {
		where = append(where, "plate_number LIKE ? COLLATE NOCASE")
		args = append(args, "%"+search+"%")
	}
	if cutoff, ok := periodCutoff(filter.Period, s.now()); ok {
		where = append(where, "timestamp >= ?")
		args = append(args, cutoff.UTC().Format(timestampLayout))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM events"+clause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	limit := filter.Limit
	if limit < 1 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)
	events, err := s.queryEvents(ctx,
		"SELECT "+eventColumns+" FROM events"+clause+" ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]Event, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		event, scanErr := scanEvent(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan event: %w", scanErr)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// Count returns the total number of stored events.
func (s *Store) Count(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM events").Scan(&total); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return total, nil
}

// Remove deletes a single event by identifier.
func (s *Store) Remove(ctx context.Context, id int64) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
		return err
	})
}

// Clear deletes all stored events.
func (s *Store) Clear(ctx context.Context) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, "DELETE FROM events")
		return err
	})
}

// CheckHealth verifies the database responds to a trivial query.
func (s *Store) CheckHealth(ctx context.Context) error {
	ctx = ensureContext(ctx)
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	return nil
}

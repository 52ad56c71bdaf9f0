package sheets

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"arcco/internal/domain"
)

// SQLiteStore implements domain.SheetStore using SQLite. Headers and row
// values are stored as JSON arrays so column order survives round trips.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Set connection pool (single connection for SQLite)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, logger: logger}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sheets (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		headers     TEXT NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sheet_rows (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		sheet_id    TEXT NOT NULL REFERENCES sheets(id) ON DELETE CASCADE,
		row_values  TEXT NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_rows_sheet ON sheet_rows(sheet_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateSheet(ctx context.Context, name string, headers []string) (*domain.Sheet, error) {
	if name == "" {
		return nil, fmt.Errorf("sheet name is required")
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("sheet needs at least one column")
	}

	headerJSON, err := json.Marshal(headers)
	if err != nil {
		return nil, err
	}

	sheet := &domain.Sheet{
		ID:        uuid.NewString(),
		Name:      name,
		Headers:   headers,
		CreatedAt: time.Now(),
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sheets (id, name, headers, created_at) VALUES (?, ?, ?, ?)`,
		sheet.ID, sheet.Name, string(headerJSON), sheet.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("cannot create sheet: %w", err)
	}

	s.logger.Info("sheet created", "sheet_id", sheet.ID, "name", name, "columns", len(headers))
	return sheet, nil
}

// GetSheet returns the sheet with the given id, or nil when it does not
// exist.
func (s *SQLiteStore) GetSheet(ctx context.Context, id string) (*domain.Sheet, error) {
	var sheet domain.Sheet
	var headerJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT s.id, s.name, s.headers, s.created_at,
		        (SELECT COUNT(*) FROM sheet_rows r WHERE r.sheet_id = s.id)
		 FROM sheets s WHERE s.id = ?`, id,
	).Scan(&sheet.ID, &sheet.Name, &headerJSON, &sheet.CreatedAt, &sheet.RowCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(headerJSON), &sheet.Headers); err != nil {
		return nil, fmt.Errorf("corrupt headers for sheet %s: %w", id, err)
	}
	return &sheet, nil
}

func (s *SQLiteStore) ListSheets(ctx context.Context) ([]domain.Sheet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.name, s.headers, s.created_at,
		        (SELECT COUNT(*) FROM sheet_rows r WHERE r.sheet_id = s.id)
		 FROM sheets s ORDER BY s.created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sheets []domain.Sheet
	for rows.Next() {
		var sh domain.Sheet
		var headerJSON string
		if err := rows.Scan(&sh.ID, &sh.Name, &headerJSON, &sh.CreatedAt, &sh.RowCount); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(headerJSON), &sh.Headers); err != nil {
			return nil, fmt.Errorf("corrupt headers for sheet %s: %w", sh.ID, err)
		}
		sheets = append(sheets, sh)
	}
	return sheets, rows.Err()
}

func (s *SQLiteStore) AppendRow(ctx context.Context, sheetID string, values []string) error {
	sheet, err := s.GetSheet(ctx, sheetID)
	if err != nil {
		return err
	}
	if sheet == nil {
		return fmt.Errorf("unknown sheet: %s", sheetID)
	}

	valueJSON, err := json.Marshal(values)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sheet_rows (sheet_id, row_values, created_at) VALUES (?, ?, ?)`,
		sheetID, string(valueJSON), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("cannot append row: %w", err)
	}
	return nil
}

// GetRows returns the last N rows of a sheet, oldest first.
func (s *SQLiteStore) GetRows(ctx context.Context, sheetID string, limit int) ([]domain.Row, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, sheet_id, row_values, created_at
		 FROM sheet_rows WHERE sheet_id = ?
		 ORDER BY id DESC LIMIT ?`, sheetID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Row
	for rows.Next() {
		var r domain.Row
		var valueJSON string
		if err := rows.Scan(&r.ID, &r.SheetID, &valueJSON, &r.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(valueJSON), &r.Values); err != nil {
			return nil, fmt.Errorf("corrupt row %d in sheet %s: %w", r.ID, sheetID, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to chronological order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

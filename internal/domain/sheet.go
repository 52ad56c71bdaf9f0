package domain

import (
	"context"
	"time"
)

// SheetStore is the tabular-data collaborator: named sheets with ordered
// column headers, supporting row append.
type SheetStore interface {
	CreateSheet(ctx context.Context, name string, headers []string) (*Sheet, error)
	GetSheet(ctx context.Context, id string) (*Sheet, error)
	ListSheets(ctx context.Context) ([]Sheet, error)
	AppendRow(ctx context.Context, sheetID string, values []string) error
	GetRows(ctx context.Context, sheetID string, limit int) ([]Row, error)
	Close() error
}

type Sheet struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Headers   []string  `json:"headers"`
	RowCount  int       `json:"row_count"`
	CreatedAt time.Time `json:"created_at"`
}

type Row struct {
	ID        int64     `json:"id"`
	SheetID   string    `json:"sheet_id"`
	Values    []string  `json:"values"`
	CreatedAt time.Time `json:"created_at"`
}

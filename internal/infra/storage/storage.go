package storage

import (
	"context"
	"errors"
)

var (
	// ErrRowNotFound is returned when a row doesn't exist
	ErrRowNotFound = errors.New("row not found")

	// ErrUnknownTable is returned for tables the store doesn't manage
	ErrUnknownTable = errors.New("unknown table")

	// ErrUnknownColumn is returned for columns outside the record header
	ErrUnknownColumn = errors.New("unknown column")
)

// RowRef identifies one stored row for update/delete operations.
type RowRef struct {
	Table string
	ID    string
	// Index is the store-specific position: sheet row number for the
	// spreadsheet backend, primary key for PostgreSQL.
	Index int64
}

// RecordStore handles request row storage operations. Callers are expected
// to wrap every call in the retry executor; implementations do not retry.
type RecordStore interface {
	// AppendRow appends one row in record column order
	AppendRow(ctx context.Context, table string, fields []string) error

	// FindRowByID locates a row by its id column
	FindRowByID(ctx context.Context, table, id string) (*RowRef, error)

	// UpdateCell sets one named column of a row
	UpdateCell(ctx context.Context, ref *RowRef, column, value string) error

	// DeleteRow removes a row
	DeleteRow(ctx context.Context, ref *RowRef) error

	// ReadAllRows returns the header and all data rows
	ReadAllRows(ctx context.Context, table string) (header []string, rows [][]string, err error)
}

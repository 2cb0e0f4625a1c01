package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/luisalpizar/crm-intake/internal/core/domain"
	"github.com/luisalpizar/crm-intake/internal/infra/storage"
)

// requestsTable is the only table this store manages; the record schema is
// fixed by domain.RecordHeader.
const requestsTable = "requests"

// RequestStore implements storage.RecordStore on PostgreSQL. Rows keep the
// same ordered text columns the spreadsheet backend uses, so records move
// between backends unchanged.
type RequestStore struct {
	db        *DB
	insertSQL string
	selectSQL string
}

// NewRequestStore creates a PostgreSQL-backed record store.
func NewRequestStore(db *DB) *RequestStore {
	cols := strings.Join(domain.RecordHeader, ", ")
	placeholders := make([]string, len(domain.RecordHeader))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return &RequestStore{
		db: db,
		insertSQL: fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s)",
			requestsTable, cols, strings.Join(placeholders, ", "),
		),
		selectSQL: fmt.Sprintf("SELECT %s FROM %s ORDER BY row_id", cols, requestsTable),
	}
}

func (s *RequestStore) checkTable(table string) error {
	if table != requestsTable {
		return fmt.Errorf("%w: %s", storage.ErrUnknownTable, table)
	}
	return nil
}

// AppendRow inserts one row in record column order.
func (s *RequestStore) AppendRow(ctx context.Context, table string, fields []string) error {
	if err := s.checkTable(table); err != nil {
		return err
	}
	if len(fields) != len(domain.RecordHeader) {
		return fmt.Errorf("expected %d fields, got %d", len(domain.RecordHeader), len(fields))
	}

	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = f
	}
	if _, err := s.db.ExecContext(ctx, s.insertSQL, args...); err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	return nil
}

// FindRowByID locates a row by its id column.
func (s *RequestStore) FindRowByID(ctx context.Context, table, id string) (*storage.RowRef, error) {
	if err := s.checkTable(table); err != nil {
		return nil, err
	}

	var rowID int64
	query := fmt.Sprintf("SELECT row_id FROM %s WHERE id = $1", requestsTable)
	err := s.db.GetContext(ctx, &rowID, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrRowNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find row: %w", err)
	}
	return &storage.RowRef{Table: table, ID: id, Index: rowID}, nil
}

// UpdateCell sets one named column of a row. The column name is validated
// against the record header before it is interpolated.
func (s *RequestStore) UpdateCell(ctx context.Context, ref *storage.RowRef, column, value string) error {
	if err := s.checkTable(ref.Table); err != nil {
		return err
	}
	if !validColumn(column) {
		return fmt.Errorf("%w: %s", storage.ErrUnknownColumn, column)
	}

	query := fmt.Sprintf("UPDATE %s SET %s = $1 WHERE row_id = $2", requestsTable, column)
	res, err := s.db.ExecContext(ctx, query, value, ref.Index)
	if err != nil {
		return fmt.Errorf("failed to update cell: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrRowNotFound
	}
	return nil
}

// DeleteRow removes a row.
func (s *RequestStore) DeleteRow(ctx context.Context, ref *storage.RowRef) error {
	if err := s.checkTable(ref.Table); err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE row_id = $1", requestsTable)
	res, err := s.db.ExecContext(ctx, query, ref.Index)
	if err != nil {
		return fmt.Errorf("failed to delete row: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrRowNotFound
	}
	return nil
}

// ReadAllRows returns the header and all data rows in insertion order.
func (s *RequestStore) ReadAllRows(ctx context.Context, table string) ([]string, [][]string, error) {
	if err := s.checkTable(table); err != nil {
		return nil, nil, err
	}

	sqlRows, err := s.db.QueryContext(ctx, s.selectSQL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	defer sqlRows.Close()

	var rows [][]string
	for sqlRows.Next() {
		values := make([]sql.NullString, len(domain.RecordHeader))
		dest := make([]any, len(values))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := sqlRows.Scan(dest...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = v.String
		}
		rows = append(rows, row)
	}
	if err := sqlRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return domain.RecordHeader, rows, nil
}

func validColumn(name string) bool {
	for _, col := range domain.RecordHeader {
		if col == name {
			return true
		}
	}
	return false
}

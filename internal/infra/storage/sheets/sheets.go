// Package sheets implements the record store on a Google spreadsheet, the
// system of record the IT team works out of. Each table maps to one sheet
// tab; row 1 is the header.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/luisalpizar/crm-intake/internal/core/domain"
	"github.com/luisalpizar/crm-intake/internal/infra/storage"
	"github.com/luisalpizar/crm-intake/internal/retry"
)

// Config holds spreadsheet backend configuration.
type Config struct {
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

// SheetStore implements storage.RecordStore on the Sheets API. Calls are not
// retried here; the caller wraps them in the retry executor.
type SheetStore struct {
	svc           *sheetsapi.Service
	spreadsheetID string

	mu       sync.Mutex
	sheetIDs map[string]int64 // tab title -> numeric sheet id
}

// NewSheetStore authorizes with a service-account key file and opens the
// configured spreadsheet.
func NewSheetStore(ctx context.Context, cfg Config) (*SheetStore, error) {
	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(data, sheetsapi.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}

	svc, err := sheetsapi.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &SheetStore{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetIDs:      make(map[string]int64),
	}, nil
}

// EnsureHeader writes the record header into row 1 of an empty tab. Called
// once at startup.
func (s *SheetStore) EnsureHeader(ctx context.Context, table string) error {
	resp, err := s.svc.Spreadsheets.Values.
		Get(s.spreadsheetID, table+"!1:1").
		Context(ctx).Do()
	if err != nil {
		return mapErr("read header", err)
	}
	if len(resp.Values) > 0 {
		return nil
	}

	header := make([]any, len(domain.RecordHeader))
	for i, col := range domain.RecordHeader {
		header[i] = col
	}
	_, err = s.svc.Spreadsheets.Values.
		Update(s.spreadsheetID, table+"!A1", &sheetsapi.ValueRange{Values: [][]any{header}}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return mapErr("write header", err)
	}
	return nil
}

// AppendRow appends one row below the existing data.
func (s *SheetStore) AppendRow(ctx context.Context, table string, fields []string) error {
	row := make([]any, len(fields))
	for i, f := range fields {
		row[i] = f
	}

	_, err := s.svc.Spreadsheets.Values.
		Append(s.spreadsheetID, table+"!A1", &sheetsapi.ValueRange{Values: [][]any{row}}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return mapErr("append row", err)
	}
	return nil
}

// FindRowByID scans the id column for a match. RowRef.Index is the 1-based
// sheet row number.
func (s *SheetStore) FindRowByID(ctx context.Context, table, id string) (*storage.RowRef, error) {
	header, rows, err := s.ReadAllRows(ctx, table)
	if err != nil {
		return nil, err
	}

	idCol := columnIndex(header, "id")
	if idCol < 0 {
		return nil, fmt.Errorf("sheet %s has no id column", table)
	}
	for i, row := range rows {
		if idCol < len(row) && row[idCol] == id {
			// +2: header row plus 1-based indexing
			return &storage.RowRef{Table: table, ID: id, Index: int64(i + 2)}, nil
		}
	}
	return nil, storage.ErrRowNotFound
}

// UpdateCell writes one cell addressed by header column name and row number.
func (s *SheetStore) UpdateCell(ctx context.Context, ref *storage.RowRef, column, value string) error {
	col := columnIndex(domain.RecordHeader, column)
	if col < 0 {
		return fmt.Errorf("%w: %s", storage.ErrUnknownColumn, column)
	}

	cell := fmt.Sprintf("%s!%s%d", ref.Table, columnLetter(col), ref.Index)
	_, err := s.svc.Spreadsheets.Values.
		Update(s.spreadsheetID, cell, &sheetsapi.ValueRange{Values: [][]any{{value}}}).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return mapErr("update cell", err)
	}
	return nil
}

// DeleteRow removes the row via a DeleteDimension batch request.
func (s *SheetStore) DeleteRow(ctx context.Context, ref *storage.RowRef) error {
	sheetID, err := s.sheetID(ctx, ref.Table)
	if err != nil {
		return err
	}

	req := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{{
			DeleteDimension: &sheetsapi.DeleteDimensionRequest{
				Range: &sheetsapi.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: ref.Index - 1, // API rows are 0-based
					EndIndex:   ref.Index,
				},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return mapErr("delete row", err)
	}
	return nil
}

// ReadAllRows returns the header row and every data row.
func (s *SheetStore) ReadAllRows(ctx context.Context, table string) ([]string, [][]string, error) {
	resp, err := s.svc.Spreadsheets.Values.
		Get(s.spreadsheetID, table).
		Context(ctx).Do()
	if err != nil {
		return nil, nil, mapErr("read rows", err)
	}
	if len(resp.Values) == 0 {
		return domain.RecordHeader, nil, nil
	}

	header := toStrings(resp.Values[0])
	rows := make([][]string, 0, len(resp.Values)-1)
	for _, raw := range resp.Values[1:] {
		rows = append(rows, toStrings(raw))
	}
	return header, rows, nil
}

func (s *SheetStore) sheetID(ctx context.Context, table string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.sheetIDs[table]; ok {
		return id, nil
	}

	meta, err := s.svc.Spreadsheets.
		Get(s.spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).Do()
	if err != nil {
		return 0, mapErr("read spreadsheet metadata", err)
	}
	for _, sh := range meta.Sheets {
		s.sheetIDs[sh.Properties.Title] = sh.Properties.SheetId
	}

	id, ok := s.sheetIDs[table]
	if !ok {
		return 0, fmt.Errorf("%w: %s", storage.ErrUnknownTable, table)
	}
	return id, nil
}

// mapErr tags API failures with the retry classification markers so the
// executor backs off on quota errors and gives up on the rest.
func mapErr(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429:
			return fmt.Errorf("failed to %s: %v: %w", op, apiErr, retry.ErrRateLimited)
		case apiErr.Code == 403 && isQuotaMessage(apiErr.Message):
			return fmt.Errorf("failed to %s: %v: %w", op, apiErr, retry.ErrRateLimited)
		case apiErr.Code == 403:
			return fmt.Errorf("failed to %s: %v: %w", op, apiErr, retry.ErrPermissionDenied)
		case apiErr.Code == 404:
			return fmt.Errorf("failed to %s: %v: %w", op, apiErr, retry.ErrNotFound)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isQuotaMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit")
}

func columnIndex(header []string, name string) int {
	for i, col := range header {
		if col == name {
			return i
		}
	}
	return -1
}

// columnLetter converts a 0-based column index to A1 notation.
func columnLetter(index int) string {
	letters := ""
	for index >= 0 {
		letters = string(rune('A'+index%26)) + letters
		index = index/26 - 1
	}
	return letters
}

func toStrings(raw []any) []string {
	out := make([]string, len(raw))
	for i, v := range raw {
		out[i] = fmt.Sprint(v)
	}
	return out
}

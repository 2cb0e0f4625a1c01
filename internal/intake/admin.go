package intake

import (
	"context"
	"fmt"
	"time"

	"github.com/luisalpizar/crm-intake/internal/core/domain"
	"github.com/luisalpizar/crm-intake/internal/infra/storage"
	"github.com/luisalpizar/crm-intake/internal/metrics"
	"github.com/luisalpizar/crm-intake/internal/retry"
)

// List returns all stored requests. Rows that fail to parse are skipped with
// a warning; one corrupt legacy row must not hide the rest of the history.
func (s *Service) List(ctx context.Context) ([]*domain.Request, error) {
	type result struct {
		header []string
		rows   [][]string
	}
	res, err := retry.DoValue(ctx, s.exec, "read request rows",
		func(ctx context.Context) (result, error) {
			start := time.Now()
			defer func() {
				metrics.StoreLatency.WithLabelValues("read_all").Observe(time.Since(start).Seconds())
			}()
			header, rows, err := s.store.ReadAllRows(ctx, s.cfg.Table)
			return result{header: header, rows: rows}, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	requests := make([]*domain.Request, 0, len(res.rows))
	for i, row := range res.rows {
		req, err := domain.FromRecord(row)
		if err != nil {
			s.log.Warn("Skipping unparseable row", "row", i+2, "error", err)
			continue
		}
		requests = append(requests, req)
	}
	return requests, nil
}

// Delete removes a stored request by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	ref, err := s.findRow(ctx, id)
	if err != nil {
		return err
	}

	err = s.exec.Do(ctx, "delete request row", func(ctx context.Context) error {
		return s.store.DeleteRow(ctx, ref)
	})
	if err != nil {
		return fmt.Errorf("failed to delete request %s: %w", id, err)
	}
	s.log.Info("Request deleted", "id", id)
	return nil
}

// UpdateStatus moves a request through the admin workflow.
func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) error {
	return s.updateCell(ctx, id, "status", string(status))
}

// RecordSatisfaction stores the follow-up satisfaction survey answers.
func (s *Service) RecordSatisfaction(ctx context.Context, id, satisfaction, comment string) error {
	if err := s.updateCell(ctx, id, "satisfaction", satisfaction); err != nil {
		return err
	}
	return s.updateCell(ctx, id, "satisfaction_comment", comment)
}

func (s *Service) findRow(ctx context.Context, id string) (*storage.RowRef, error) {
	ref, err := retry.DoValue(ctx, s.exec, "find request row",
		func(ctx context.Context) (*storage.RowRef, error) {
			return s.store.FindRowByID(ctx, s.cfg.Table, id)
		})
	if err != nil {
		return nil, fmt.Errorf("failed to find request %s: %w", id, err)
	}
	return ref, nil
}

func (s *Service) updateCell(ctx context.Context, id, column, value string) error {
	ref, err := s.findRow(ctx, id)
	if err != nil {
		return err
	}

	err = s.exec.Do(ctx, "update request cell", func(ctx context.Context) error {
		return s.store.UpdateCell(ctx, ref, column, value)
	})
	if err != nil {
		return fmt.Errorf("failed to update %s of request %s: %w", column, id, err)
	}
	return nil
}

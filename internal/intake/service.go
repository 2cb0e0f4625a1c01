// Package intake composes the submission flow: validate the form, persist
// the record through the retry executor, upload the optional attachment, and
// send the acknowledgement email.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/luisalpizar/crm-intake/internal/catalog"
	"github.com/luisalpizar/crm-intake/internal/core/domain"
	"github.com/luisalpizar/crm-intake/internal/form"
	"github.com/luisalpizar/crm-intake/internal/infra/blob"
	"github.com/luisalpizar/crm-intake/internal/infra/notify"
	"github.com/luisalpizar/crm-intake/internal/infra/storage"
	"github.com/luisalpizar/crm-intake/internal/metrics"
	"github.com/luisalpizar/crm-intake/internal/retry"
)

// Config holds service settings.
type Config struct {
	// Table is the record store table requests are appended to.
	Table string `yaml:"table"`
	// InboxEmail receives every acknowledgement; the requester is cc'd.
	InboxEmail string `yaml:"inbox_email"`
}

// Service owns the submission and admin flows.
type Service struct {
	cfg      Config
	cat      *catalog.Catalog
	store    storage.RecordStore
	blobs    blob.Store      // nil disables attachments
	notifier notify.Notifier // nil disables email
	exec     *retry.Executor
	log      *slog.Logger
	now      func() time.Time
}

// NewService wires the service. blobs and notifier may be nil.
func NewService(
	cfg Config,
	cat *catalog.Catalog,
	store storage.RecordStore,
	blobs blob.Store,
	notifier notify.Notifier,
	exec *retry.Executor,
	log *slog.Logger,
) *Service {
	if cfg.Table == "" {
		cfg.Table = "requests"
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		cfg:      cfg,
		cat:      cat,
		store:    store,
		blobs:    blobs,
		notifier: notifier,
		exec:     exec,
		log:      log,
		now:      time.Now,
	}
}

// Catalog exposes the loaded catalog for the HTTP layer.
func (s *Service) Catalog() *catalog.Catalog {
	return s.cat
}

// Attachment is an optional file submitted with a request.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Submit validates the form and persists the request. Validation failures
// and store errors leave the form state untouched so the user can correct or
// retry without re-entering data; on success the form resets to its initial
// state.
func (s *Service) Submit(ctx context.Context, f *form.Form, att *Attachment) (*domain.Request, error) {
	draft, err := f.Validate()
	if err != nil {
		var verr *form.ValidationError
		if errors.As(err, &verr) {
			metrics.ValidationFailuresTotal.WithLabelValues(string(verr.Code)).Inc()
		}
		return nil, err
	}

	req := &domain.Request{
		ID:          uuid.NewString(),
		SubmittedAt: s.now().UTC(),
		Draft:       draft,
		Status:      domain.StatusPending,
	}

	// Attachment loss is tolerable, a lost record is not: upload first so
	// the stored row carries the URL, but keep going if the upload fails.
	if att != nil && s.blobs != nil {
		url, err := retry.DoValue(ctx, s.exec, "upload attachment",
			func(ctx context.Context) (string, error) {
				return s.blobs.Upload(ctx, att.Data, att.Filename, att.ContentType)
			})
		if err != nil {
			s.log.Warn("Attachment upload failed, continuing without it",
				"filename", att.Filename, "error", err)
		} else {
			req.AttachmentURL = url
		}
	}

	record := req.ToRecord()
	err = s.exec.Do(ctx, "append request row", func(ctx context.Context) error {
		start := time.Now()
		defer func() {
			metrics.StoreLatency.WithLabelValues("append").Observe(time.Since(start).Seconds())
		}()
		return s.store.AppendRow(ctx, s.cfg.Table, record)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist request: %w", err)
	}

	metrics.RequestsSubmittedTotal.WithLabelValues(string(req.Draft.RequestType)).Inc()
	s.log.Info("Request persisted",
		"id", req.ID,
		"request_type", req.Draft.RequestType,
		"target", req.Draft.TargetName)

	s.acknowledge(ctx, req)

	f.Reset()
	return req, nil
}

// acknowledge emails the inbox with the requester cc'd. Best effort: a
// failed email never fails the submission, the record is already stored.
func (s *Service) acknowledge(ctx context.Context, req *domain.Request) {
	if s.notifier == nil || s.cfg.InboxEmail == "" {
		return
	}

	subject := fmt.Sprintf("Request %s - %s", req.Draft.RequestType, req.Draft.TargetName)
	to := []string{s.cfg.InboxEmail}
	var cc []string
	if req.Draft.RequesterEmail != "" {
		cc = append(cc, req.Draft.RequesterEmail)
	}

	if err := s.notifier.Send(ctx, to, cc, subject, acknowledgementBody(req)); err != nil {
		metrics.NotifyFailuresTotal.Inc()
		s.log.Warn("Failed to send acknowledgement email", "id", req.ID, "error", err)
	}
}

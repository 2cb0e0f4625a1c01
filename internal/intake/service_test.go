package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/luisalpizar/crm-intake/internal/catalog"
	"github.com/luisalpizar/crm-intake/internal/core/domain"
	"github.com/luisalpizar/crm-intake/internal/form"
	"github.com/luisalpizar/crm-intake/internal/infra/blob"
	"github.com/luisalpizar/crm-intake/internal/infra/notify"
	"github.com/luisalpizar/crm-intake/internal/infra/storage"
	"github.com/luisalpizar/crm-intake/internal/infra/storage/memory"
	"github.com/luisalpizar/crm-intake/internal/retry"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(
		map[string]map[string][]string{
			"Sales": {"Call Center Agent": {"Agent-1"}},
		},
		map[string]catalog.Numbers{
			"Agent-1": {Inbound: []string{"1001"}, Outbound: []string{"2001"}},
		},
		map[string]string{"Morning-A": "6am-2pm"},
		[]string{"Call Center Agent"},
	)
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}
	return cat
}

// fastExec retries with millisecond backoff so tests don't sleep.
func fastExec() *retry.Executor {
	return retry.New(retry.Config{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		MaxDelay:    16 * time.Millisecond,
		Multiplier:  2.0,
	}, slog.Default())
}

type fixture struct {
	svc      *Service
	store    *memory.MemoryStore
	blobs    *blob.MemoryStore
	notifier *notify.MemoryNotifier
}

func newFixture(t *testing.T, recordStore storage.RecordStore) *fixture {
	t.Helper()
	memStore, _ := recordStore.(*memory.MemoryStore)
	if recordStore == nil {
		memStore = memory.NewMemoryStore()
		recordStore = memStore
	}
	blobs := blob.NewMemoryStore()
	notifier := notify.NewMemoryNotifier()
	svc := NewService(
		Config{Table: "requests", InboxEmail: "it-requests@example.edu"},
		testCatalog(t), recordStore, blobs, notifier, fastExec(), slog.Default(),
	)
	return &fixture{svc: svc, store: memStore, blobs: blobs, notifier: notifier}
}

func validForm(t *testing.T, svc *Service) *form.Form {
	t.Helper()
	f := form.New(svc.Catalog())
	f.SetRequestType(domain.RequestTypeCreate)
	f.SetTargetName("Ana Diaz")
	f.SetTargetEmail("ana.diaz@example.edu")
	f.SetRequesterEmail("boss@example.edu")
	for _, step := range []struct {
		set   func(string) error
		value string
	}{
		{f.SetArea, "Sales"},
		{f.SetProfile, "Call Center Agent"},
		{f.SetRole, "Agent-1"},
		{f.SetInboundNumber, "1001"},
		{f.SetOutboundNumber, "2001"},
		{f.SetSchedule, "Morning-A"},
	} {
		if err := step.set(step.value); err != nil {
			t.Fatalf("set %q failed: %v", step.value, err)
		}
	}
	return f
}

func TestSubmit_Success(t *testing.T) {
	fx := newFixture(t, nil)
	f := validForm(t, fx.svc)

	req, err := fx.svc.Submit(context.Background(), f, nil)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if req.ID == "" {
		t.Error("expected a generated id")
	}
	if req.Status != domain.StatusPending {
		t.Errorf("status = %s, want pending", req.Status)
	}
	if req.Draft.Shift != "6am-2pm" {
		t.Errorf("shift = %q, want 6am-2pm", req.Draft.Shift)
	}

	// Row persisted in record order
	_, rows, err := fx.store.ReadAllRows(context.Background(), "requests")
	if err != nil {
		t.Fatalf("ReadAllRows failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 stored row, got %d", len(rows))
	}
	if rows[0][1] != "create" || rows[0][2] != "Ana Diaz" || rows[0][10] != "6am-2pm" {
		t.Errorf("stored row mismatch: %v", rows[0])
	}

	// Acknowledgement email to the inbox, requester cc'd
	msgs := fx.notifier.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 email, got %d", len(msgs))
	}
	if msgs[0].To[0] != "it-requests@example.edu" || msgs[0].Cc[0] != "boss@example.edu" {
		t.Errorf("recipients mismatch: %+v", msgs[0])
	}

	// Form resets after a successful submission
	if f.Draft() != (domain.Draft{}) {
		t.Errorf("form not reset: %+v", f.Draft())
	}
}

func TestSubmit_ValidationFailurePreservesDraft(t *testing.T) {
	fx := newFixture(t, nil)
	f := form.New(fx.svc.Catalog())
	f.SetRequestType(domain.RequestTypeCreate)
	f.SetTargetName("Ana Diaz")

	_, err := fx.svc.Submit(context.Background(), f, nil)
	var verr *form.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	_, rows, _ := fx.store.ReadAllRows(context.Background(), "requests")
	if len(rows) != 0 {
		t.Errorf("nothing should be stored on validation failure, got %d rows", len(rows))
	}
	if f.Draft().TargetName != "Ana Diaz" {
		t.Error("draft should be preserved on validation failure")
	}
	if len(fx.notifier.Messages()) != 0 {
		t.Error("no email should be sent on validation failure")
	}
}

// flakyStore fails AppendRow a fixed number of times before delegating.
type flakyStore struct {
	storage.RecordStore
	failures int
	calls    int
	err      error
}

func (s *flakyStore) AppendRow(ctx context.Context, table string, fields []string) error {
	s.calls++
	if s.calls <= s.failures {
		return s.err
	}
	return s.RecordStore.AppendRow(ctx, table, fields)
}

func TestSubmit_RetriesRateLimitedStore(t *testing.T) {
	inner := memory.NewMemoryStore()
	flaky := &flakyStore{
		RecordStore: inner,
		failures:    2,
		err:         fmt.Errorf("append: %w", retry.ErrRateLimited),
	}
	fx := newFixture(t, flaky)
	f := validForm(t, fx.svc)

	if _, err := fx.svc.Submit(context.Background(), f, nil); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if flaky.calls != 3 {
		t.Errorf("expected 3 append attempts, got %d", flaky.calls)
	}
	_, rows, _ := inner.ReadAllRows(context.Background(), "requests")
	if len(rows) != 1 {
		t.Errorf("expected the row to land after retries, got %d rows", len(rows))
	}
}

func TestSubmit_ExhaustedStorePreservesDraft(t *testing.T) {
	flaky := &flakyStore{
		RecordStore: memory.NewMemoryStore(),
		failures:    100,
		err:         errors.New("connection reset by peer"),
	}
	fx := newFixture(t, flaky)
	f := validForm(t, fx.svc)

	_, err := fx.svc.Submit(context.Background(), f, nil)
	var exhausted *retry.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if exhausted.Op != "append request row" {
		t.Errorf("op = %q", exhausted.Op)
	}
	if flaky.calls != 5 {
		t.Errorf("expected 5 attempts, got %d", flaky.calls)
	}
	if f.Draft().TargetName != "Ana Diaz" {
		t.Error("draft should survive a failed submission")
	}
	if len(fx.notifier.Messages()) != 0 {
		t.Error("no email should be sent when nothing was stored")
	}
}

func TestSubmit_PermissionDeniedFailsFast(t *testing.T) {
	flaky := &flakyStore{
		RecordStore: memory.NewMemoryStore(),
		failures:    100,
		err:         fmt.Errorf("append: %w", retry.ErrPermissionDenied),
	}
	fx := newFixture(t, flaky)
	f := validForm(t, fx.svc)

	_, err := fx.svc.Submit(context.Background(), f, nil)
	if !errors.Is(err, retry.ErrPermissionDenied) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if flaky.calls != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", flaky.calls)
	}
}

func TestSubmit_NotifierFailureStillSucceeds(t *testing.T) {
	fx := newFixture(t, nil)
	fx.notifier.FailWith(errors.New("smtp: connection refused"))
	f := validForm(t, fx.svc)

	if _, err := fx.svc.Submit(context.Background(), f, nil); err != nil {
		t.Fatalf("Submit should succeed despite notifier failure: %v", err)
	}
	_, rows, _ := fx.store.ReadAllRows(context.Background(), "requests")
	if len(rows) != 1 {
		t.Errorf("record should be persisted, got %d rows", len(rows))
	}
}

func TestSubmit_AttachmentUploaded(t *testing.T) {
	fx := newFixture(t, nil)
	f := validForm(t, fx.svc)

	att := &Attachment{Filename: "badge.png", ContentType: "image/png", Data: []byte{1, 2, 3}}
	req, err := fx.svc.Submit(context.Background(), f, att)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if req.AttachmentURL != "memory://badge.png" {
		t.Errorf("attachment url = %q", req.AttachmentURL)
	}
	if _, ok := fx.blobs.Get("badge.png"); !ok {
		t.Error("attachment not uploaded")
	}

	_, rows, _ := fx.store.ReadAllRows(context.Background(), "requests")
	if rows[0][13] != "memory://badge.png" {
		t.Errorf("stored attachment url = %q", rows[0][13])
	}
}

func TestAdmin_ListUpdateDelete(t *testing.T) {
	fx := newFixture(t, nil)
	ctx := context.Background()

	first, err := fx.svc.Submit(ctx, validForm(t, fx.svc), nil)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	second, err := fx.svc.Submit(ctx, validForm(t, fx.svc), nil)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	requests, err := fx.svc.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(requests))
	}

	if err := fx.svc.UpdateStatus(ctx, first.ID, domain.StatusApproved); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if err := fx.svc.RecordSatisfaction(ctx, first.ID, "5", "quick turnaround"); err != nil {
		t.Fatalf("RecordSatisfaction failed: %v", err)
	}

	requests, _ = fx.svc.List(ctx)
	var updated *domain.Request
	for _, req := range requests {
		if req.ID == first.ID {
			updated = req
		}
	}
	if updated == nil {
		t.Fatal("updated request missing from listing")
	}
	if updated.Status != domain.StatusApproved {
		t.Errorf("status = %s, want approved", updated.Status)
	}
	if updated.Satisfaction != "5" || updated.SatisfactionComment != "quick turnaround" {
		t.Errorf("satisfaction = %q / %q", updated.Satisfaction, updated.SatisfactionComment)
	}

	if err := fx.svc.Delete(ctx, second.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	requests, _ = fx.svc.List(ctx)
	if len(requests) != 1 || requests[0].ID != first.ID {
		t.Errorf("unexpected listing after delete: %d requests", len(requests))
	}

	if err := fx.svc.Delete(ctx, "no-such-id"); !errors.Is(err, storage.ErrRowNotFound) {
		t.Errorf("expected row-not-found, got %v", err)
	}
}

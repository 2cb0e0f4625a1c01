package domain

import (
	"testing"
	"time"
)

func TestRecordRoundTrip(t *testing.T) {
	req := &Request{
		ID:          "3f1c9c2a-5d4e-4b8a-9a3f-2b6c8d7e1f00",
		SubmittedAt: time.Date(2025, 3, 14, 9, 26, 0, 0, time.UTC),
		Draft: Draft{
			RequestType:    RequestTypeCreate,
			TargetName:     "Ana Diaz",
			TargetEmail:    "ana.diaz@example.edu",
			Area:           "Sales",
			Profile:        "Call Center Agent",
			Role:           "Agent-1",
			InboundNumber:  "1001",
			OutboundNumber: "2001",
			Schedule:       "Morning-A",
			Shift:          "6am-2pm",
			RequesterEmail: "boss@example.edu",
		},
		Status:        StatusPending,
		AttachmentURL: "https://drive.example.com/f/abc",
	}

	row := req.ToRecord()
	if len(row) != len(RecordHeader) {
		t.Fatalf("record has %d columns, header has %d", len(row), len(RecordHeader))
	}

	parsed, err := FromRecord(row)
	if err != nil {
		t.Fatalf("FromRecord failed: %v", err)
	}
	if *parsed != *req {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", parsed, req)
	}
}

func TestFromRecord_ShortLegacyRow(t *testing.T) {
	// Rows written before the status/id columns existed stop at
	// requester_email.
	row := []string{
		"14/03/2025 09:26", "remove", "Ana Diaz", "ana.diaz@example.edu",
		"", "", "", "", "", "", "", "boss@example.edu",
	}

	req, err := FromRecord(row)
	if err != nil {
		t.Fatalf("FromRecord failed: %v", err)
	}
	if req.Draft.RequestType != RequestTypeRemove {
		t.Errorf("request type = %q", req.Draft.RequestType)
	}
	if req.ID != "" || req.Status != "" {
		t.Errorf("expected empty trailing fields, got id=%q status=%q", req.ID, req.Status)
	}
}

func TestFromRecord_Invalid(t *testing.T) {
	if _, err := FromRecord([]string{"too", "short"}); err == nil {
		t.Error("expected error for truncated row")
	}
	row := []string{
		"not a date", "create", "n", "e", "", "", "", "", "", "", "", "r",
	}
	if _, err := FromRecord(row); err == nil {
		t.Error("expected error for bad timestamp")
	}
}

func TestParseRequestType(t *testing.T) {
	for _, valid := range []string{"create", "modify", "remove", ""} {
		if _, err := ParseRequestType(valid); err != nil {
			t.Errorf("ParseRequestType(%q) failed: %v", valid, err)
		}
	}
	if _, err := ParseRequestType("drop"); err == nil {
		t.Error("expected error for unknown type")
	}
}

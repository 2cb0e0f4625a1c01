package domain

import (
	"fmt"
	"time"
)

// Unselected is the sentinel value for a dropdown field the user has not
// resolved yet. Normalized records map it to the empty string.
const Unselected = ""

// RequestType is the operation being requested on a target CRM account.
type RequestType string

const (
	RequestTypeUnselected RequestType = ""
	RequestTypeCreate     RequestType = "create"
	RequestTypeModify     RequestType = "modify"
	RequestTypeRemove     RequestType = "remove"
)

// ParseRequestType maps a wire value to a RequestType.
func ParseRequestType(s string) (RequestType, error) {
	switch RequestType(s) {
	case RequestTypeCreate, RequestTypeModify, RequestTypeRemove:
		return RequestType(s), nil
	case RequestTypeUnselected:
		return RequestTypeUnselected, nil
	}
	return RequestTypeUnselected, fmt.Errorf("unknown request type: %q", s)
}

// RequestStatus tracks the lifecycle of a stored request. New submissions are
// always Pending; later states are set by the admin workflow.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
	StatusDone     RequestStatus = "done"
)

// Draft is the in-progress, mutable state of one form instance. Zero value is
// the initial (all unselected) state.
type Draft struct {
	RequestType    RequestType `json:"request_type"`
	TargetName     string      `json:"target_name"`
	TargetEmail    string      `json:"target_email"`
	Area           string      `json:"area"`
	Profile        string      `json:"profile"`
	Role           string      `json:"role"`
	InboundNumber  string      `json:"inbound_number"`
	OutboundNumber string      `json:"outbound_number"`
	Schedule       string      `json:"schedule"`
	Shift          string      `json:"shift"` // derived from Schedule, never set directly
	RequesterEmail string      `json:"requester_email"`
}

// Request is the immutable record appended to the store on a successful
// submission.
type Request struct {
	ID            string
	SubmittedAt   time.Time
	Draft         Draft
	Status        RequestStatus
	AttachmentURL string

	// Filled later by the admin workflow, empty on submission.
	Satisfaction        string
	SatisfactionComment string
}

// TimestampLayout is the layout stored rows use for the timestamp column.
const TimestampLayout = "02/01/2006 15:04"

// RecordHeader is the column order of a stored request row.
var RecordHeader = []string{
	"timestamp", "request_type", "target_name", "target_email",
	"area", "profile", "role", "inbound_number", "outbound_number",
	"schedule", "shift", "requester_email", "status", "attachment_url",
	"id", "satisfaction", "satisfaction_comment",
}

// ToRecord serializes the request into the stored column order.
func (r *Request) ToRecord() []string {
	return []string{
		r.SubmittedAt.Format(TimestampLayout),
		string(r.Draft.RequestType),
		r.Draft.TargetName,
		r.Draft.TargetEmail,
		r.Draft.Area,
		r.Draft.Profile,
		r.Draft.Role,
		r.Draft.InboundNumber,
		r.Draft.OutboundNumber,
		r.Draft.Schedule,
		r.Draft.Shift,
		r.Draft.RequesterEmail,
		string(r.Status),
		r.AttachmentURL,
		r.ID,
		r.Satisfaction,
		r.SatisfactionComment,
	}
}

// FromRecord parses a stored row back into a Request. Rows written by older
// variants may be short; missing trailing columns are treated as empty.
func FromRecord(row []string) (*Request, error) {
	get := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}

	if len(row) < 12 {
		return nil, fmt.Errorf("record too short: %d columns", len(row))
	}

	ts, err := time.Parse(TimestampLayout, get(0))
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp %q: %w", get(0), err)
	}

	reqType, err := ParseRequestType(get(1))
	if err != nil {
		return nil, err
	}

	return &Request{
		ID:          get(14),
		SubmittedAt: ts,
		Draft: Draft{
			RequestType:    reqType,
			TargetName:     get(2),
			TargetEmail:    get(3),
			Area:           get(4),
			Profile:        get(5),
			Role:           get(6),
			InboundNumber:  get(7),
			OutboundNumber: get(8),
			Schedule:       get(9),
			Shift:          get(10),
			RequesterEmail: get(11),
		},
		Status:              RequestStatus(get(12)),
		AttachmentURL:       get(13),
		Satisfaction:        get(15),
		SatisfactionComment: get(16),
	}, nil
}

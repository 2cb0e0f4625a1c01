package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/luisalpizar/crm-intake/internal/core/domain"
	"github.com/luisalpizar/crm-intake/internal/form"
	"github.com/luisalpizar/crm-intake/internal/infra/storage"
	"github.com/luisalpizar/crm-intake/internal/intake"
	"github.com/luisalpizar/crm-intake/internal/retry"
)

// maxAttachmentSize caps uploaded files at 10 MiB.
const maxAttachmentSize = 10 << 20

type formView struct {
	Draft   domain.Draft `json:"draft"`
	Options struct {
		Areas     []string `json:"areas"`
		Profiles  []string `json:"profiles"`
		Roles     []string `json:"roles"`
		Inbound   []string `json:"inbound_numbers"`
		Outbound  []string `json:"outbound_numbers"`
		Schedules []string `json:"schedules"`
	} `json:"options"`
}

func viewOf(f *form.Form) formView {
	var v formView
	v.Draft = f.Draft()
	v.Options.Areas = f.AreaOptions()
	v.Options.Profiles = f.ProfileOptions()
	v.Options.Roles = f.RoleOptions()
	v.Options.Inbound = f.InboundOptions()
	v.Options.Outbound = f.OutboundOptions()
	v.Options.Schedules = f.ScheduleOptions()
	return v
}

func (s *Server) handleGetForm(w http.ResponseWriter, r *http.Request) {
	state, err := s.loadSession(w, r)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	f := form.Restore(s.svc.Catalog(), state.Draft)
	writeJSON(w, http.StatusOK, viewOf(f))
}

func (s *Server) handleSetField(w http.ResponseWriter, r *http.Request) {
	state, err := s.loadSession(w, r)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	var body struct {
		Value string `json:"value"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	f := form.Restore(s.svc.Catalog(), state.Draft)
	if err := applyField(f, r.PathValue("field"), body.Value); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	state.Draft = f.Draft()
	if err := s.sessions.Save(r.Context(), state); err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(f))
}

func applyField(f *form.Form, field, value string) error {
	switch field {
	case "request_type":
		t, err := domain.ParseRequestType(value)
		if err != nil {
			return err
		}
		f.SetRequestType(t)
		return nil
	case "target_name":
		f.SetTargetName(value)
		return nil
	case "target_email":
		f.SetTargetEmail(value)
		return nil
	case "requester_email":
		f.SetRequesterEmail(value)
		return nil
	case "area":
		return f.SetArea(value)
	case "profile":
		return f.SetProfile(value)
	case "role":
		return f.SetRole(value)
	case "inbound_number":
		return f.SetInboundNumber(value)
	case "outbound_number":
		return f.SetOutboundNumber(value)
	case "schedule":
		return f.SetSchedule(value)
	}
	return errors.New("unknown field: " + field)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	state, err := s.loadSession(w, r)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	att, err := readAttachment(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	f := form.Restore(s.svc.Catalog(), state.Draft)
	req, err := s.svc.Submit(r.Context(), f, att)
	if err != nil {
		var verr *form.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"code":  string(verr.Code),
				"error": verr.Message,
			})
			return
		}
		// Draft stays in the session so the user can retry as-is.
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			s.log.Error("Submission gave up", "operation", exhausted.Op, "error", err)
			writeError(w, http.StatusBadGateway, "the record store is unavailable, please retry")
			return
		}
		s.internalError(w, r, err)
		return
	}

	// Successful submit resets the draft.
	state.Draft = f.Draft()
	if err := s.sessions.Save(r.Context(), state); err != nil {
		s.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":     req.ID,
		"status": string(req.Status),
		"shift":  req.Draft.Shift,
	})
}

// readAttachment pulls the optional file out of a multipart submission.
// JSON submissions have no attachment.
func readAttachment(r *http.Request) (*intake.Attachment, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return nil, nil
	}

	if err := r.ParseMultipartForm(maxAttachmentSize); err != nil {
		return nil, errors.New("invalid multipart body")
	}
	file, header, err := r.FormFile("attachment")
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New("invalid attachment")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAttachmentSize))
	if err != nil {
		return nil, errors.New("failed to read attachment")
	}
	return &intake.Attachment{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (s *Server) handleSatisfaction(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Satisfaction string `json:"satisfaction"`
		Comment      string `json:"comment"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Satisfaction == "" {
		writeError(w, http.StatusBadRequest, "satisfaction is required")
		return
	}

	err := s.svc.RecordSatisfaction(r.Context(), r.PathValue("id"), body.Satisfaction, body.Comment)
	if isNotFound(err) {
		writeError(w, http.StatusNotFound, "request not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	state, err := s.loadSession(w, r)
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if s.adminToken == "" ||
		subtle.ConstantTimeCompare([]byte(body.Token), []byte(s.adminToken)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	state.AdminAuthed = true
	if err := s.sessions.Save(r.Context(), state); err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if err := s.sessions.Clear(r.Context(), cookie.Value); err != nil {
			s.internalError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAdminList(w http.ResponseWriter, r *http.Request) {
	requests, err := s.svc.List(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	type item struct {
		ID          string       `json:"id"`
		SubmittedAt string       `json:"submitted_at"`
		Status      string       `json:"status"`
		Draft       domain.Draft `json:"draft"`
	}
	items := make([]item, 0, len(requests))
	for _, req := range requests {
		items = append(items, item{
			ID:          req.ID,
			SubmittedAt: req.SubmittedAt.Format(domain.TimestampLayout),
			Status:      string(req.Status),
			Draft:       req.Draft,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleAdminDelete(w http.ResponseWriter, r *http.Request) {
	err := s.svc.Delete(r.Context(), r.PathValue("id"))
	if isNotFound(err) {
		writeError(w, http.StatusNotFound, "request not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil || body.Status == "" {
		writeError(w, http.StatusBadRequest, "status is required")
		return
	}

	err := s.svc.UpdateStatus(r.Context(), r.PathValue("id"), domain.RequestStatus(body.Status))
	if isNotFound(err) {
		writeError(w, http.StatusNotFound, "request not found")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": body.Status})
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrRowNotFound) || errors.Is(err, retry.ErrNotFound)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

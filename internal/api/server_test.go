package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/luisalpizar/crm-intake/internal/catalog"
	"github.com/luisalpizar/crm-intake/internal/infra/blob"
	"github.com/luisalpizar/crm-intake/internal/infra/notify"
	"github.com/luisalpizar/crm-intake/internal/infra/storage/memory"
	"github.com/luisalpizar/crm-intake/internal/intake"
	"github.com/luisalpizar/crm-intake/internal/retry"
	"github.com/luisalpizar/crm-intake/internal/session"
)

func testServer(t *testing.T) *Server {
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

	exec := retry.New(retry.Config{
		MaxAttempts: 5,
		BaseDelay:   time.Millisecond,
		MaxDelay:    16 * time.Millisecond,
		Multiplier:  2.0,
	}, slog.Default())
	svc := intake.NewService(
		intake.Config{Table: "requests", InboxEmail: "it-requests@example.edu"},
		cat, memory.NewMemoryStore(), blob.NewMemoryStore(), notify.NewMemoryNotifier(),
		exec, slog.Default(),
	)
	return NewServer(svc, session.NewMemoryStore(), "secret-token", 0, slog.Default())
}

// client keeps the session cookie between requests.
type client struct {
	t       *testing.T
	handler http.Handler
	cookie  *http.Cookie
}

func newClient(t *testing.T, s *Server) *client {
	return &client{t: t, handler: s.server.Handler}
}

func (c *client) do(method, path string, body any) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	c.t.Helper()

	var reader *strings.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("failed to marshal body: %v", err)
		}
		reader = strings.NewReader(string(data))
	} else {
		reader = strings.NewReader("")
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}

	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == sessionCookie {
			c.cookie = cookie
		}
	}

	var payload map[string]json.RawMessage
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &payload)
	}
	return rec, payload
}

func (c *client) setField(field, value string) *httptest.ResponseRecorder {
	c.t.Helper()
	rec, _ := c.do("POST", "/api/form/"+field, map[string]string{"value": value})
	return rec
}

func fillValidForm(t *testing.T, c *client) {
	t.Helper()
	steps := []struct{ field, value string }{
		{"request_type", "create"},
		{"target_name", "Ana Diaz"},
		{"target_email", "ana.diaz@example.edu"},
		{"requester_email", "boss@example.edu"},
		{"area", "Sales"},
		{"profile", "Call Center Agent"},
		{"role", "Agent-1"},
		{"inbound_number", "1001"},
		{"outbound_number", "2001"},
		{"schedule", "Morning-A"},
	}
	for _, step := range steps {
		if rec := c.setField(step.field, step.value); rec.Code != http.StatusOK {
			t.Fatalf("set %s=%s: status %d body %s", step.field, step.value, rec.Code, rec.Body)
		}
	}
}

func TestFormFlow_SubmitAndReset(t *testing.T) {
	c := newClient(t, testServer(t))

	rec, _ := c.do("GET", "/api/form", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET form: status %d", rec.Code)
	}
	if c.cookie == nil {
		t.Fatal("expected a session cookie")
	}

	fillValidForm(t, c)

	rec, payload := c.do("POST", "/api/requests", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: status %d body %s", rec.Code, rec.Body)
	}
	var shift string
	_ = json.Unmarshal(payload["shift"], &shift)
	if shift != "6am-2pm" {
		t.Errorf("shift = %q, want 6am-2pm", shift)
	}

	// Draft resets after submit
	rec, payload = c.do("GET", "/api/form", nil)
	var view struct {
		Draft struct {
			TargetName string `json:"target_name"`
			Area       string `json:"area"`
		} `json:"draft"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &view)
	if view.Draft.TargetName != "" || view.Draft.Area != "" {
		t.Errorf("draft not reset after submit: %+v", view.Draft)
	}
	_ = payload
}

func TestFormFlow_CascadeNarrowsOptions(t *testing.T) {
	c := newClient(t, testServer(t))

	c.setField("request_type", "create")
	rec := c.setField("area", "Sales")

	var view struct {
		Options struct {
			Profiles []string `json:"profiles"`
			Roles    []string `json:"roles"`
		} `json:"options"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &view)
	if len(view.Options.Profiles) != 1 || view.Options.Profiles[0] != "Call Center Agent" {
		t.Errorf("profiles = %v", view.Options.Profiles)
	}
	if view.Options.Roles != nil {
		t.Errorf("roles should be empty before profile is chosen, got %v", view.Options.Roles)
	}

	if rec := c.setField("area", "Marketing"); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown area: status %d, want 400", rec.Code)
	}
}

func TestSubmit_ValidationErrorReturns422(t *testing.T) {
	c := newClient(t, testServer(t))
	c.setField("request_type", "create")
	c.setField("target_name", "Ana Diaz")

	rec, payload := c.do("POST", "/api/requests", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var code string
	_ = json.Unmarshal(payload["code"], &code)
	if code != "missing_basic_fields" {
		t.Errorf("code = %q", code)
	}

	// Draft survives for correction
	rec, _ = c.do("GET", "/api/form", nil)
	if !strings.Contains(rec.Body.String(), "Ana Diaz") {
		t.Error("draft lost after validation failure")
	}
}

func TestAdmin_Flow(t *testing.T) {
	s := testServer(t)
	c := newClient(t, s)

	// Unauthenticated access is rejected
	rec, _ := c.do("GET", "/api/admin/requests", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list: status %d, want 401", rec.Code)
	}

	// Wrong token
	rec, _ = c.do("POST", "/api/admin/login", map[string]string{"token": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: status %d, want 401", rec.Code)
	}

	// Login and submit one request
	rec, _ = c.do("POST", "/api/admin/login", map[string]string{"token": "secret-token"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d", rec.Code)
	}
	fillValidForm(t, c)
	rec, payload := c.do("POST", "/api/requests", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit: status %d", rec.Code)
	}
	var id string
	_ = json.Unmarshal(payload["id"], &id)

	// Listing shows it
	rec, _ = c.do("GET", "/api/admin/requests", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), id) {
		t.Fatalf("list: status %d body %s", rec.Code, rec.Body)
	}

	// Status update and delete
	rec, _ = c.do("PATCH", fmt.Sprintf("/api/admin/requests/%s/status", id),
		map[string]string{"status": "approved"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status update: status %d", rec.Code)
	}

	rec, _ = c.do("DELETE", "/api/admin/requests/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d", rec.Code)
	}
	rec, _ = c.do("DELETE", "/api/admin/requests/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: status %d, want 404", rec.Code)
	}

	// Logout drops the admin session
	rec, _ = c.do("POST", "/api/admin/logout", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: status %d", rec.Code)
	}
	rec, _ = c.do("GET", "/api/admin/requests", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("list after logout: status %d, want 401", rec.Code)
	}
}

func TestSatisfaction_UnknownRequest(t *testing.T) {
	c := newClient(t, testServer(t))
	rec, _ := c.do("POST", "/api/requests/no-such-id/satisfaction",
		map[string]string{"satisfaction": "4"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	c := newClient(t, testServer(t))
	rec, _ := c.do("GET", "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: status %d", rec.Code)
	}
}

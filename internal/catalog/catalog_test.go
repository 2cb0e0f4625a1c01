package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		Roles: writeFile(t, dir, "roles.json",
			`{"Sales": {"Call Center Agent": ["Agent-1"], "Supervisor": ["Lead"]}}`),
		Numbers: writeFile(t, dir, "numbers.json",
			`{"Agent-1": {"inbound": ["1001"], "outbound": []}}`),
		Schedules: writeFile(t, dir, "schedules.json",
			`{"Morning-A": "6am-2pm"}`),
	}

	cat, err := Load(paths, []string{"Call Center Agent"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := cat.Areas(); len(got) != 1 || got[0] != "Sales" {
		t.Errorf("Areas() = %v", got)
	}
	if got := cat.Profiles("Sales"); len(got) != 2 {
		t.Errorf("Profiles(Sales) = %v", got)
	}
	if !cat.HasRole("Sales", "Call Center Agent", "Agent-1") {
		t.Error("expected Agent-1 under Sales/Call Center Agent")
	}
	if cat.HasRole("Sales", "Supervisor", "Agent-1") {
		t.Error("Agent-1 should not be under Supervisor")
	}
	if n := cat.NumbersFor("Agent-1"); len(n.Inbound) != 1 || n.Inbound[0] != "1001" {
		t.Errorf("NumbersFor(Agent-1) = %+v", n)
	}
	if shift, ok := cat.Shift("Morning-A"); !ok || shift != "6am-2pm" {
		t.Errorf("Shift(Morning-A) = %q, %v", shift, ok)
	}
	if _, ok := cat.Shift("Night"); ok {
		t.Error("unknown schedule should not resolve")
	}
	if !cat.RequiresSchedule("Call Center Agent") || cat.RequiresSchedule("Supervisor") {
		t.Error("schedule requirement mismatch")
	}
}

func TestLoad_FailsFast(t *testing.T) {
	dir := t.TempDir()
	goodNumbers := writeFile(t, dir, "numbers.json", `{}`)
	goodSchedules := writeFile(t, dir, "schedules.json", `{"Morning-A": "6am-2pm"}`)

	tests := []struct {
		name  string
		roles string
	}{
		{"empty tree", `{}`},
		{"empty area name", `{"": {"P": ["R"]}}`},
		{"area without profiles", `{"Sales": {}}`},
		{"profile without roles", `{"Sales": {"P": []}}`},
		{"empty role name", `{"Sales": {"P": [""]}}`},
		{"malformed json", `{"Sales": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			paths := Paths{
				Roles:     writeFile(t, dir, "roles.json", tt.roles),
				Numbers:   goodNumbers,
				Schedules: goodSchedules,
			}
			if _, err := Load(paths, nil); err == nil {
				t.Error("expected Load to fail")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		Roles:     filepath.Join(dir, "missing.json"),
		Numbers:   writeFile(t, dir, "numbers.json", `{}`),
		Schedules: writeFile(t, dir, "schedules.json", `{}`),
	}
	if _, err := Load(paths, nil); err == nil {
		t.Error("expected Load to fail for missing file")
	}
}

package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// Numbers holds the telephony extensions assignable to one role.
type Numbers struct {
	Inbound  []string `json:"inbound"`
	Outbound []string `json:"outbound"`
}

// Catalog is the read-only classification tree the form narrows against.
// Built once at startup by Load; safe for concurrent readers afterwards.
type Catalog struct {
	tree             map[string]map[string][]string // area -> profile -> roles
	numbers          map[string]Numbers             // role -> extensions
	schedules        map[string]string              // schedule name -> shift label
	scheduleProfiles map[string]bool                // profiles that require a schedule
}

// Paths names the three JSON documents a catalog is loaded from.
type Paths struct {
	Roles     string `yaml:"roles"`
	Numbers   string `yaml:"numbers"`
	Schedules string `yaml:"schedules"`
}

// Load reads and validates the catalog documents. Malformed entries fail the
// whole load; the service refuses to start with a broken catalog.
func Load(p Paths, scheduleProfiles []string) (*Catalog, error) {
	c := &Catalog{
		scheduleProfiles: make(map[string]bool, len(scheduleProfiles)),
	}
	for _, name := range scheduleProfiles {
		c.scheduleProfiles[name] = true
	}

	if err := readJSON(p.Roles, &c.tree); err != nil {
		return nil, fmt.Errorf("failed to load role tree: %w", err)
	}
	if err := readJSON(p.Numbers, &c.numbers); err != nil {
		return nil, fmt.Errorf("failed to load number table: %w", err)
	}
	if err := readJSON(p.Schedules, &c.schedules); err != nil {
		return nil, fmt.Errorf("failed to load schedule table: %w", err)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// New builds a catalog from already-parsed tables. Used by tests and by
// callers that source the documents elsewhere.
func New(
	tree map[string]map[string][]string,
	numbers map[string]Numbers,
	schedules map[string]string,
	scheduleProfiles []string,
) (*Catalog, error) {
	c := &Catalog{
		tree:             tree,
		numbers:          numbers,
		schedules:        schedules,
		scheduleProfiles: make(map[string]bool, len(scheduleProfiles)),
	}
	for _, name := range scheduleProfiles {
		c.scheduleProfiles[name] = true
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Catalog) validate() error {
	if len(c.tree) == 0 {
		return fmt.Errorf("role tree is empty")
	}
	for area, profiles := range c.tree {
		if area == "" {
			return fmt.Errorf("role tree contains an empty area name")
		}
		if len(profiles) == 0 {
			return fmt.Errorf("area %q has no profiles", area)
		}
		for profile, roles := range profiles {
			if profile == "" {
				return fmt.Errorf("area %q contains an empty profile name", area)
			}
			if len(roles) == 0 {
				return fmt.Errorf("profile %q in area %q has no roles", profile, area)
			}
			for _, role := range roles {
				if role == "" {
					return fmt.Errorf("profile %q in area %q contains an empty role", profile, area)
				}
			}
		}
	}
	for name, shift := range c.schedules {
		if name == "" || shift == "" {
			return fmt.Errorf("schedule table contains an empty entry (%q -> %q)", name, shift)
		}
	}
	for role := range c.numbers {
		if role == "" {
			return fmt.Errorf("number table contains an empty role name")
		}
	}
	return nil
}

// Areas returns all area names, sorted.
func (c *Catalog) Areas() []string {
	return sortedKeys(c.tree)
}

// Profiles returns the profile names under an area, sorted. Nil for an
// unknown area.
func (c *Catalog) Profiles(area string) []string {
	profiles, ok := c.tree[area]
	if !ok {
		return nil
	}
	return sortedKeys(profiles)
}

// Roles returns the roles under area/profile. Nil when either is unknown.
func (c *Catalog) Roles(area, profile string) []string {
	profiles, ok := c.tree[area]
	if !ok {
		return nil
	}
	roles := profiles[profile]
	out := make([]string, len(roles))
	copy(out, roles)
	return out
}

// HasRole reports whether role exists under area/profile.
func (c *Catalog) HasRole(area, profile, role string) bool {
	for _, r := range c.tree[area][profile] {
		if r == role {
			return true
		}
	}
	return false
}

// NumbersFor returns the extension lists for a role. The zero value means the
// role has no extensions and neither number field applies.
func (c *Catalog) NumbersFor(role string) Numbers {
	return c.numbers[role]
}

// Schedules returns all schedule names, sorted.
func (c *Catalog) Schedules() []string {
	return sortedKeys(c.schedules)
}

// Shift resolves a schedule name to its shift label.
func (c *Catalog) Shift(schedule string) (string, bool) {
	shift, ok := c.schedules[schedule]
	return shift, ok
}

// RequiresSchedule reports whether the profile must pick a work schedule.
func (c *Catalog) RequiresSchedule(profile string) bool {
	return c.scheduleProfiles[profile]
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

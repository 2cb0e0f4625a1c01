// Package form implements the dependent-selection model behind the request
// page: each choice narrows the options of the fields below it, and changing
// a parent wipes everything that depended on it.
package form

import (
	"fmt"

	"github.com/luisalpizar/crm-intake/internal/catalog"
	"github.com/luisalpizar/crm-intake/internal/core/domain"
)

// Form tracks the draft of one session. Not safe for concurrent use; every
// session owns its own instance.
type Form struct {
	cat   *catalog.Catalog
	draft domain.Draft
}

// New creates an empty form over the given catalog.
func New(cat *catalog.Catalog) *Form {
	return &Form{cat: cat}
}

// Restore resumes a form from a previously saved draft.
func Restore(cat *catalog.Catalog, draft domain.Draft) *Form {
	return &Form{cat: cat, draft: draft}
}

// Draft returns a copy of the current draft state.
func (f *Form) Draft() domain.Draft {
	return f.draft
}

// Reset returns the form to its initial, all-unselected state.
func (f *Form) Reset() {
	f.draft = domain.Draft{}
}

// SetRequestType selects the operation. Remove clears the whole cascade:
// removing an account needs no position data.
func (f *Form) SetRequestType(t domain.RequestType) {
	f.draft.RequestType = t
	if t == domain.RequestTypeRemove {
		f.resetFrom(fieldArea)
	}
}

func (f *Form) SetTargetName(name string)      { f.draft.TargetName = name }
func (f *Form) SetTargetEmail(email string)    { f.draft.TargetEmail = email }
func (f *Form) SetRequesterEmail(email string) { f.draft.RequesterEmail = email }

// SetArea selects an area and invalidates every dependent field.
func (f *Form) SetArea(area string) error {
	if area != domain.Unselected && len(f.cat.Profiles(area)) == 0 {
		return fmt.Errorf("unknown area: %q", area)
	}
	f.draft.Area = area
	f.resetFrom(fieldProfile)
	return nil
}

// SetProfile selects a profile under the current area.
func (f *Form) SetProfile(profile string) error {
	if f.draft.Area == domain.Unselected {
		return fmt.Errorf("area must be selected before profile")
	}
	if profile != domain.Unselected && len(f.cat.Roles(f.draft.Area, profile)) == 0 {
		return fmt.Errorf("unknown profile %q in area %q", profile, f.draft.Area)
	}
	f.draft.Profile = profile
	f.resetFrom(fieldRole)
	return nil
}

// SetRole selects a role under the current area/profile.
func (f *Form) SetRole(role string) error {
	if f.draft.Profile == domain.Unselected {
		return fmt.Errorf("profile must be selected before role")
	}
	if role != domain.Unselected && !f.cat.HasRole(f.draft.Area, f.draft.Profile, role) {
		return fmt.Errorf("unknown role %q under %s/%s", role, f.draft.Area, f.draft.Profile)
	}
	f.draft.Role = role
	f.resetFrom(fieldNumbers)
	return nil
}

// SetInboundNumber picks an inbound extension from the role's catalog list.
func (f *Form) SetInboundNumber(number string) error {
	if number == domain.Unselected {
		f.draft.InboundNumber = domain.Unselected
		return nil
	}
	if !contains(f.InboundOptions(), number) {
		return fmt.Errorf("inbound number %q is not available for role %q", number, f.draft.Role)
	}
	f.draft.InboundNumber = number
	return nil
}

// SetOutboundNumber picks an outbound extension from the role's catalog list.
func (f *Form) SetOutboundNumber(number string) error {
	if number == domain.Unselected {
		f.draft.OutboundNumber = domain.Unselected
		return nil
	}
	if !contains(f.OutboundOptions(), number) {
		return fmt.Errorf("outbound number %q is not available for role %q", number, f.draft.Role)
	}
	f.draft.OutboundNumber = number
	return nil
}

// SetSchedule picks a work schedule. The shift label is derived from the
// schedule table and never set directly.
func (f *Form) SetSchedule(schedule string) error {
	if schedule == domain.Unselected {
		f.draft.Schedule = domain.Unselected
		f.draft.Shift = domain.Unselected
		return nil
	}
	shift, ok := f.cat.Shift(schedule)
	if !ok {
		return fmt.Errorf("unknown schedule: %q", schedule)
	}
	f.draft.Schedule = schedule
	f.draft.Shift = shift
	return nil
}

// Option listing. Empty slices mean the field is not applicable in the
// current state.

func (f *Form) AreaOptions() []string {
	if f.draft.RequestType == domain.RequestTypeRemove {
		return nil
	}
	return f.cat.Areas()
}

func (f *Form) ProfileOptions() []string {
	if f.draft.Area == domain.Unselected {
		return nil
	}
	return f.cat.Profiles(f.draft.Area)
}

func (f *Form) RoleOptions() []string {
	if f.draft.Profile == domain.Unselected {
		return nil
	}
	return f.cat.Roles(f.draft.Area, f.draft.Profile)
}

func (f *Form) InboundOptions() []string {
	if f.draft.Role == domain.Unselected {
		return nil
	}
	return f.cat.NumbersFor(f.draft.Role).Inbound
}

func (f *Form) OutboundOptions() []string {
	if f.draft.Role == domain.Unselected {
		return nil
	}
	return f.cat.NumbersFor(f.draft.Role).Outbound
}

func (f *Form) ScheduleOptions() []string {
	if !f.ScheduleVisible() {
		return nil
	}
	return f.cat.Schedules()
}

// ScheduleVisible reports whether the current profile requires picking a
// work schedule.
func (f *Form) ScheduleVisible() bool {
	return f.draft.Role != domain.Unselected && f.cat.RequiresSchedule(f.draft.Profile)
}

// cascade fields in dependency order
type field int

const (
	fieldArea field = iota
	fieldProfile
	fieldRole
	fieldNumbers
)

// resetFrom clears the given field's descendants (and for fieldArea, the
// area itself).
func (f *Form) resetFrom(from field) {
	if from <= fieldArea {
		f.draft.Area = domain.Unselected
	}
	if from <= fieldProfile {
		f.draft.Profile = domain.Unselected
	}
	if from <= fieldRole {
		f.draft.Role = domain.Unselected
	}
	f.draft.InboundNumber = domain.Unselected
	f.draft.OutboundNumber = domain.Unselected
	f.draft.Schedule = domain.Unselected
	f.draft.Shift = domain.Unselected
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

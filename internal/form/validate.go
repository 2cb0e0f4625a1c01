package form

import (
	"fmt"
	"strings"

	"github.com/luisalpizar/crm-intake/internal/core/domain"
)

// Code identifies which validation rule rejected a submission.
type Code string

const (
	CodeMissingBasicFields    Code = "missing_basic_fields"
	CodeMissingCascadeFields  Code = "missing_cascade_fields"
	CodeMissingInboundNumber  Code = "missing_inbound_number"
	CodeMissingOutboundNumber Code = "missing_outbound_number"
)

// ValidationError rejects a submission. The draft is left untouched so the
// user corrects and resubmits.
type ValidationError struct {
	Code    Code
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Validate checks the draft against the submission rules, first failure
// wins. On success it returns the normalized draft, ready for persistence.
// Validate has no side effects; calling it twice on the same state yields
// the same result.
func (f *Form) Validate() (domain.Draft, error) {
	d := f.draft
	d.TargetName = strings.TrimSpace(d.TargetName)
	d.TargetEmail = strings.TrimSpace(d.TargetEmail)
	d.RequesterEmail = strings.TrimSpace(d.RequesterEmail)

	if d.RequestType == domain.RequestTypeUnselected ||
		d.TargetName == "" || d.TargetEmail == "" || d.RequesterEmail == "" {
		return domain.Draft{}, &ValidationError{
			Code:    CodeMissingBasicFields,
			Message: "request type, target name, target email and requester email are required",
		}
	}

	if d.RequestType != domain.RequestTypeRemove {
		missing := d.Area == domain.Unselected ||
			d.Profile == domain.Unselected ||
			d.Role == domain.Unselected
		if !missing && f.cat.RequiresSchedule(d.Profile) && d.Schedule == domain.Unselected {
			missing = true
		}
		if missing {
			return domain.Draft{}, &ValidationError{
				Code:    CodeMissingCascadeFields,
				Message: "area, profile, role and schedule must all be selected",
			}
		}

		numbers := f.cat.NumbersFor(d.Role)
		if len(numbers.Inbound) > 0 && d.InboundNumber == domain.Unselected {
			return domain.Draft{}, &ValidationError{
				Code:    CodeMissingInboundNumber,
				Message: fmt.Sprintf("role %q requires an inbound number", d.Role),
			}
		}
		if len(numbers.Outbound) > 0 && d.OutboundNumber == domain.Unselected {
			return domain.Draft{}, &ValidationError{
				Code:    CodeMissingOutboundNumber,
				Message: fmt.Sprintf("role %q requires an outbound number", d.Role),
			}
		}
	}

	return d, nil
}

package notify

import "context"

// Notifier sends acknowledgement email. Failures are logged by the caller
// and never fail a submission.
type Notifier interface {
	Send(ctx context.Context, to, cc []string, subject, htmlBody string) error
}

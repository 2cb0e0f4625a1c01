package intake

import (
	"fmt"
	"html"
	"strings"

	"github.com/luisalpizar/crm-intake/internal/core/domain"
)

// acknowledgementBody renders the field summary mailed on every accepted
// submission.
func acknowledgementBody(req *domain.Request) string {
	d := req.Draft

	var b strings.Builder
	fmt.Fprintf(&b, "<p>A request of type <b>%s</b> has been registered.</p>",
		html.EscapeString(string(d.RequestType)))
	b.WriteString("<table>")
	writeRow(&b, "Name", d.TargetName)
	writeRow(&b, "Email", d.TargetEmail)
	writeRow(&b, "Area", d.Area)
	writeRow(&b, "Profile", d.Profile)
	writeRow(&b, "Role", d.Role)
	writeRow(&b, "Inbound number", d.InboundNumber)
	writeRow(&b, "Outbound number", d.OutboundNumber)
	writeRow(&b, "Schedule", d.Schedule)
	writeRow(&b, "Shift", d.Shift)
	writeRow(&b, "Requested by", d.RequesterEmail)
	writeRow(&b, "Submitted at", req.SubmittedAt.Format(domain.TimestampLayout))
	writeRow(&b, "Reference", req.ID)
	if req.AttachmentURL != "" {
		writeRow(&b, "Attachment", req.AttachmentURL)
	}
	b.WriteString("</table>")
	return b.String()
}

func writeRow(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "<tr><td>%s</td><td>%s</td></tr>",
		html.EscapeString(label), html.EscapeString(value))
}

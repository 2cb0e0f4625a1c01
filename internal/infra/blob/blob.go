package blob

import "context"

// Store uploads submission attachments and returns a shareable URL.
type Store interface {
	// Upload stores the file and returns a link the admin workflow can open
	Upload(ctx context.Context, data []byte, filename, contentType string) (string, error)
}

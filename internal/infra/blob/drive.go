package blob

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Config holds Drive backend configuration.
type Config struct {
	CredentialsFile string `yaml:"credentials_file"`
	FolderID        string `yaml:"folder_id"`
}

// DriveStore uploads attachments to a Google Drive folder and shares them by
// link. Calls are wrapped in the retry executor by the caller.
type DriveStore struct {
	svc      *driveapi.Service
	folderID string
}

// NewDriveStore authorizes with a service-account key file.
func NewDriveStore(ctx context.Context, cfg Config) (*DriveStore, error) {
	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(data, driveapi.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}

	svc, err := driveapi.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &DriveStore{svc: svc, folderID: cfg.FolderID}, nil
}

// Upload stores the file in the configured folder, makes it readable by
// link, and returns the view URL.
func (s *DriveStore) Upload(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	meta := &driveapi.File{Name: filename}
	if s.folderID != "" {
		meta.Parents = []string{s.folderID}
	}

	file, err := s.svc.Files.
		Create(meta).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		Fields("id", "webViewLink").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}

	_, err = s.svc.Permissions.
		Create(file.Id, &driveapi.Permission{Type: "anyone", Role: "reader"}).
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to share file: %w", err)
	}

	return file.WebViewLink, nil
}

package config

import (
	"github.com/luisalpizar/crm-intake/internal/catalog"
	"github.com/luisalpizar/crm-intake/internal/infra/blob"
	"github.com/luisalpizar/crm-intake/internal/infra/notify"
	"github.com/luisalpizar/crm-intake/internal/infra/storage/postgres"
	"github.com/luisalpizar/crm-intake/internal/infra/storage/sheets"
	"github.com/luisalpizar/crm-intake/internal/intake"
	"github.com/luisalpizar/crm-intake/internal/session"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server  ServerConfig   `yaml:"server"`
	Logging LoggingConfig  `yaml:"logging"`
	Catalog CatalogConfig  `yaml:"catalog"`
	Storage StorageConfig  `yaml:"storage"`
	Session session.Config `yaml:"session"`
	Blob    BlobConfig     `yaml:"blob"`
	Notify  NotifyConfig   `yaml:"notify"`
	Intake  intake.Config  `yaml:"intake"`
	Admin   AdminConfig    `yaml:"admin"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// CatalogConfig names the catalog documents and the profiles that require a
// work schedule.
type CatalogConfig struct {
	Paths            catalog.Paths `yaml:"paths"`
	ScheduleProfiles []string      `yaml:"schedule_profiles"`
}

// StorageConfig selects and configures the record store backend.
type StorageConfig struct {
	Backend  string          `yaml:"backend"` // sheets, postgres, memory
	Database postgres.Config `yaml:"database"`
	Sheets   sheets.Config   `yaml:"sheets"`
}

// BlobConfig selects and configures the attachment store backend.
type BlobConfig struct {
	Backend string      `yaml:"backend"` // drive, memory, off
	Drive   blob.Config `yaml:"drive"`
}

// NotifyConfig configures acknowledgement email.
type NotifyConfig struct {
	Enabled bool          `yaml:"enabled"`
	SMTP    notify.Config `yaml:"smtp"`
}

// AdminConfig gates the history endpoints.
type AdminConfig struct {
	Token string `yaml:"token"`
}

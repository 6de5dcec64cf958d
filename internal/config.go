package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/techtrack/internal/codec"
	"github.com/starford/techtrack/internal/tracker"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Collection seeds.
const (
	SeedDefaults = "defaults"
	SeedEmpty    = "empty"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Storage    StorageConfig     `yaml:"storage"`
	Collection CollectionConfig  `yaml:"collection"`
	Import     ImportConfig      `yaml:"import"`
	Catalog    CatalogConfig     `yaml:"catalog"`
	Auth       AuthConfig        `yaml:"auth"`
	Login      LoginConfig       `yaml:"login"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for _, v := range []validation.Validatable{
		&c.App, &c.Storage, &c.Collection, &c.Import, &c.Catalog, &c.Auth,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
	// ChangeThrottle is the minimum gap between two change events of one
	// topic on the SSE stream.
	ChangeThrottle time.Duration `yaml:"change_throttle"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.ChangeThrottle, validation.Min(time.Duration(0))),
	)
}

// StorageConfig selects the durable key/value backend.
//
// Backend is one of:
//   - "file" (default): one JSON file per key in Dir, watched with fsnotify.
//   - "sqlite": a kv table in SQLitePath, polled every PollInterval.
//   - "memory": nothing survives a restart.
type StorageConfig struct {
	Backend      string        `yaml:"backend"`
	Dir          string        `yaml:"dir"`
	SQLitePath   string        `yaml:"sqlite_path"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.Backend == "" {
		c.Backend = BackendFile
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendFile, BackendSQLite, BackendMemory)),
		validation.Field(&c.Dir, validation.When(c.Backend == BackendFile, validation.Required)),
		validation.Field(&c.SQLitePath, validation.When(c.Backend == BackendSQLite, validation.Required)),
		validation.Field(&c.PollInterval, validation.When(c.Backend == BackendSQLite,
			validation.Required, validation.Min(10*time.Millisecond))),
	)
}

// CollectionConfig controls how the technology collection starts out.
type CollectionConfig struct {
	// Seed is "defaults" for the bundled starter list or "empty".
	Seed          string `yaml:"seed"`
	SchemaVersion string `yaml:"schema_version"`
	// Timezone names the zone whose calendar day deadlines are checked
	// against. Empty means the host's local zone.
	Timezone string `yaml:"timezone"`
}

// Validate validates the collection configuration.
func (c *CollectionConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Seed, validation.Required, validation.In(SeedDefaults, SeedEmpty)),
		validation.Field(&c.SchemaVersion, validation.Required),
		validation.Field(&c.Timezone, validation.By(func(interface{}) error {
			_, err := c.Location()
			return err
		})),
	)
}

// Location resolves Timezone.
func (c CollectionConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q", c.Timezone)
	}
	return loc, nil
}

// ImportConfig limits import payloads.
type ImportConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

// Validate validates the import configuration.
func (c *ImportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxBytes, validation.Required, validation.Min(int64(1))),
	)
}

// CatalogConfig tunes the simulated catalog service.
type CatalogConfig struct {
	Latency     time.Duration `yaml:"latency"`
	FailureRate float64       `yaml:"failure_rate"`
}

// Validate validates the catalog configuration.
func (c *CatalogConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Latency, validation.Min(time.Duration(0))),
		validation.Field(&c.FailureRate, validation.Min(0.0), validation.Max(1.0)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// LoginConfig holds the demo credentials accepted by the login gate.
// An empty map selects the built-in pair of demo accounts.
type LoginConfig struct {
	Credentials map[string]string `yaml:"credentials"`
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port:           8080,
				ChangeThrottle: 250 * time.Millisecond,
			},
		},
		Storage: StorageConfig{
			Backend:      BackendFile,
			Dir:          "./data",
			SQLitePath:   "./techtrack.db",
			PollInterval: time.Second,
		},
		Collection: CollectionConfig{
			Seed:          SeedDefaults,
			SchemaVersion: tracker.SchemaVersion,
		},
		Import: ImportConfig{
			MaxBytes: codec.DefaultMaxBytes,
		},
		Catalog: CatalogConfig{
			Latency: 300 * time.Millisecond,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

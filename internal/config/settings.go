package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Backend names accepted in settings.
const (
	BackendFirestore   = "firestore"
	BackendGoogleTasks = "googletasks"
	BackendMySQL       = "mysql"
)

// EnvPrefix is the prefix of environment variables that override settings.
const EnvPrefix = "TODO"

// ErrMissingSetting matches errors for a setting the selected backend needs but was not given.
var ErrMissingSetting = errors.New("is not set")

// Settings holds everything read from config.yaml and the environment.
type Settings struct {
	Backend     string              `mapstructure:"backend" validate:"required,oneof=firestore googletasks mysql"`
	LogLevel    string              `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	Timeout     time.Duration       `mapstructure:"timeout" validate:"gt=0"`
	Firestore   FirestoreSettings   `mapstructure:"firestore"`
	GoogleTasks GoogleTasksSettings `mapstructure:"googletasks"`
	MySQL       MySQLSettings       `mapstructure:"mysql"`
}

// FirestoreSettings configures the Firestore backend.
type FirestoreSettings struct {
	ProjectID       string `mapstructure:"project_id"`
	Database        string `mapstructure:"database" validate:"required"`
	Collection      string `mapstructure:"collection" validate:"required,excludesall=/"`
	CredentialsFile string `mapstructure:"credentials_file"`
	// Endpoint points at an emulator; requests are sent unauthenticated.
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url"`
}

// GoogleTasksSettings configures the Google Tasks backend.
type GoogleTasksSettings struct {
	ListID string `mapstructure:"list_id" validate:"required"`
}

// MySQLSettings configures the MySQL backend.
type MySQLSettings struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table" validate:"required,alphanumunicode"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		Backend:  BackendFirestore,
		LogLevel: "error",
		Timeout:  10 * time.Second,
		Firestore: FirestoreSettings{
			Database:   "(default)",
			Collection: "Todo",
		},
		GoogleTasks: GoogleTasksSettings{
			ListID: "@default",
		},
		MySQL: MySQLSettings{
			Table: "Todo",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultSettings()
	v.SetDefault("backend", d.Backend)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("firestore.project_id", d.Firestore.ProjectID)
	v.SetDefault("firestore.database", d.Firestore.Database)
	v.SetDefault("firestore.collection", d.Firestore.Collection)
	v.SetDefault("firestore.credentials_file", d.Firestore.CredentialsFile)
	v.SetDefault("firestore.endpoint", d.Firestore.Endpoint)
	v.SetDefault("googletasks.list_id", d.GoogleTasks.ListID)
	v.SetDefault("mysql.dsn", d.MySQL.DSN)
	v.SetDefault("mysql.table", d.MySQL.Table)
}

// LoadSettings reads config.yaml from the config directory, if present, then
// applies TODO_* environment variables, and validates the result.
func (c *Config) LoadSettings() error {
	v := viper.New()
	setDefaults(v)

	if _, err := os.Stat(c.SettingsPath()); err == nil {
		v.SetConfigFile(c.SettingsPath())
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read %s: %w", SettingsFile, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", SettingsFile, err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	s.LogLevel = strings.ToLower(strings.TrimSpace(s.LogLevel))

	if err := s.Validate(); err != nil {
		return err
	}
	c.Settings = s
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints. Backend-specific requirements such as a
// Firestore project id are checked when the backend is opened.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid settings: %s fails %q", settingKey(fe.Namespace()), fe.Tag())
		}
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// settingKey turns a validator namespace like "Settings.Firestore.Collection"
// into the config key "firestore.collection".
func settingKey(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		parts[i] = toSnake(p)
	}
	return strings.Join(parts, ".")
}

func toSnake(s string) string {
	switch s {
	case "GoogleTasks":
		return "googletasks"
	case "MySQL":
		return "mysql"
	case "DSN":
		return "dsn"
	case "ProjectID":
		return "project_id"
	case "ListID":
		return "list_id"
	}
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

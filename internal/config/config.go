package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the alarm server settings.
type Config struct {
	// ListenAddress is the address the HTTP server binds to (host:port or :port).
	ListenAddress string `yaml:"listen_addr"`
	// AlarmFile is the path to the alarm audio file.
	// Relative paths are resolved against the working directory.
	AlarmFile string `yaml:"alarm_file"`
	// AuthEnabled toggles HTTP basic authentication for all routes.
	AuthEnabled bool `yaml:"auth_enabled"`
	// Username is the basic-auth user name. Required when AuthEnabled is true.
	Username string `yaml:"username"`
	// Password is the basic-auth password. Required when AuthEnabled is true.
	Password string `yaml:"password"`
	// DefaultLoopHours is the loop duration used when a loop request
	// does not specify one.
	DefaultLoopHours float64 `yaml:"default_loop_hours"`
	// DefaultStopDelay is the delay used when a delayed-stop request
	// does not specify one.
	DefaultStopDelay time.Duration `yaml:"default_stop_delay"`
	// LogLevel is the logging level name (debug, info, warn, error, fatal).
	LogLevel string `yaml:"log_level"`
}

const (
	// DefaultConfigFilename is the default filename for server settings.
	DefaultConfigFilename = "remote-alarm-settings.yaml"

	// DefaultListenAddress is the default HTTP listen address.
	DefaultListenAddress = ":5000"

	// DefaultLoopHours is the default loop duration in hours.
	DefaultLoopHours = 6.0

	// DefaultStopDelay is the default delayed-stop delay.
	DefaultStopDelay = 10 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errAlarmFileRequired is returned when the alarm file path is missing.
	errAlarmFileRequired = errors.New("alarm file must be provided")
	// errCredentialsRequired is returned when auth is enabled without credentials.
	errCredentialsRequired = errors.New("username and password must be provided when auth is enabled")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file carries credentials.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills in defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	if cfg.AlarmFile == "" {
		return errAlarmFileRequired
	}

	if cfg.AuthEnabled && (cfg.Username == "" || cfg.Password == "") {
		return errCredentialsRequired
	}

	if cfg.DefaultLoopHours <= 0 {
		cfg.DefaultLoopHours = DefaultLoopHours
	}

	if cfg.DefaultStopDelay <= 0 {
		cfg.DefaultStopDelay = DefaultStopDelay
	}

	return nil
}

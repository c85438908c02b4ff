// Package config loads and validates the target daemon's configuration.
//
// Configuration sources, in order of precedence:
//  1. CLI flags (highest priority)
//  2. Environment variables (ISCSITGT_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the target daemon's static configuration. Dynamic configuration
// (targets, TPGs, portals, node ACLs) is managed through the control plane
// API and persisted in the control-plane store.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// ControlPlane contains the REST control plane API server configuration.
	ControlPlane ControlPlaneConfig `mapstructure:"controlplane" yaml:"controlplane"`

	// Database configures the control plane's Target/TPG/Portal/NodeACL store.
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`

	// Portals lists the bootstrap listener addresses brought up at startup,
	// before any control plane call adds more.
	Portals []string `mapstructure:"portals" yaml:"portals"`

	// Defaults holds the session/TPG parameter defaults new sessions
	// negotiate from absent a TPG-specific override.
	Defaults SessionDefaults `mapstructure:"defaults" yaml:"defaults"`

	// Kerberos contains keytab/krb5.conf configuration for the krb5
	// authentication mechanism.
	Kerberos KerberosConfig `mapstructure:"kerberos" yaml:"kerberos"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	Enabled    bool    `mapstructure:"enabled" yaml:"enabled"`
	Endpoint   string  `mapstructure:"endpoint" yaml:"endpoint"`
	Insecure   bool    `mapstructure:"insecure" yaml:"insecure"`
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// ControlPlaneConfig configures the REST control plane API server.
type ControlPlaneConfig struct {
	// BindAddress is the host:port the control plane REST API listens on.
	BindAddress string `mapstructure:"bind_address" validate:"required" yaml:"bind_address"`

	// JWTSigningKey signs and verifies bearer tokens presented to the
	// control plane API.
	JWTSigningKey string `mapstructure:"jwt_signing_key" yaml:"jwt_signing_key"`

	// TokenTTL is the lifetime of an issued bearer token.
	TokenTTL time.Duration `mapstructure:"token_ttl" yaml:"token_ttl"`

	// AdminUsername is the bootstrap operator account allowed to call the
	// mutating control-plane endpoints (add_target, set_node_acl, ...).
	AdminUsername string `mapstructure:"admin_username" yaml:"admin_username"`

	// AdminPasswordHash is the bcrypt hash of the bootstrap operator's
	// password, generated by `iscsitgtctl passwd`.
	AdminPasswordHash string `mapstructure:"admin_password_hash" yaml:"admin_password_hash"`
}

// DatabaseConfig selects and configures the control-plane store.
type DatabaseConfig struct {
	// Driver selects the backing store: "sqlite" (default, no cgo) or
	// "postgres".
	Driver string `mapstructure:"driver" validate:"required,oneof=sqlite postgres" yaml:"driver"`

	// DSN is the sqlite file path or postgres connection string.
	DSN string `mapstructure:"dsn" validate:"required" yaml:"dsn"`
}

// SessionDefaults holds the negotiated-parameter defaults a TPG falls back
// to absent an explicit set_tpg_param override.
type SessionDefaults struct {
	MaxBurstLength           uint32        `mapstructure:"max_burst_length" yaml:"max_burst_length"`
	FirstBurstLength         uint32        `mapstructure:"first_burst_length" yaml:"first_burst_length"`
	MaxRecvDataSegmentLength uint32        `mapstructure:"max_recv_data_segment_length" yaml:"max_recv_data_segment_length"`
	MaxOutstandingR2T        uint32        `mapstructure:"max_outstanding_r2t" yaml:"max_outstanding_r2t"`
	DataSequenceInOrder      bool          `mapstructure:"data_sequence_in_order" yaml:"data_sequence_in_order"`
	DataPDUInOrder           bool          `mapstructure:"data_pdu_in_order" yaml:"data_pdu_in_order"`
	InitialR2T               bool          `mapstructure:"initial_r2t" yaml:"initial_r2t"`
	ImmediateData            bool          `mapstructure:"immediate_data" yaml:"immediate_data"`
	ErrorRecoveryLevel       int           `mapstructure:"error_recovery_level" validate:"gte=0,lte=2" yaml:"error_recovery_level"`
	DefaultTime2Wait         time.Duration `mapstructure:"default_time2wait" yaml:"default_time2wait"`
	DefaultTime2Retain       time.Duration `mapstructure:"default_time2retain" yaml:"default_time2retain"`
	MaxConnections           int           `mapstructure:"max_connections" validate:"gte=1" yaml:"max_connections"`

	// NopInInterval is how often the target proactively sends an
	// unsolicited NopIn to detect a dead connection. 0 disables it.
	NopInInterval time.Duration `mapstructure:"nop_in_interval" yaml:"nop_in_interval"`

	// CPUAffinity, if non-empty, pins each connection's RX/TX goroutine to
	// one CPU from this set, selected round-robin by CID.
	CPUAffinity []int `mapstructure:"cpu_affinity" yaml:"cpu_affinity"`
}

// KerberosConfig configures the krb5 authentication mechanism.
type KerberosConfig struct {
	Enabled          bool   `mapstructure:"enabled" yaml:"enabled"`
	KeytabPath       string `mapstructure:"keytab_path" yaml:"keytab_path"`
	ServicePrincipal string `mapstructure:"service_principal" yaml:"service_principal"`
	Krb5ConfPath     string `mapstructure:"krb5_conf_path" yaml:"krb5_conf_path"`
}

// Load loads configuration from file, environment, and defaults, then
// applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}
	if !found {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration, returning a user-facing error with setup
// instructions if no config file exists at the default location.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"initialize one first:\n  iscsitgtd init\n\n"+
				"or specify a custom config file:\n  iscsitgtd <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config: load: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes cfg to path in YAML, creating parent directories as
// needed.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("config: write: %w", err)
	}
	return nil
}

// Validate runs struct-tag validation over cfg.
func Validate(cfg *Config) error {
	return validate.Struct(cfg)
}

var validate = validator.New()

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("ISCSITGT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	configDir := getConfigDir()
	v.AddConfigPath(configDir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("config: read config file: %w", err)
	}
	return true, nil
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

func getConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "iscsitgt")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "iscsitgt")
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string { return getConfigDir() }

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a config file exists at the default
// location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

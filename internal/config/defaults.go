package config

import "time"

// ApplyDefaults fills in zero-valued fields of cfg with the daemon's
// defaults, after unmarshal and before validation.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyControlPlaneDefaults(&cfg.ControlPlane)
	applyDatabaseDefaults(&cfg.Database)
	applySessionDefaults(&cfg.Defaults)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if len(cfg.Portals) == 0 {
		cfg.Portals = []string{"0.0.0.0:3260"}
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applyControlPlaneDefaults(cfg *ControlPlaneConfig) {
	if cfg.BindAddress == "" {
		cfg.BindAddress = "127.0.0.1:8443"
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = time.Hour
	}
}

func applyDatabaseDefaults(cfg *DatabaseConfig) {
	if cfg.Driver == "" {
		cfg.Driver = "sqlite"
	}
	if cfg.DSN == "" {
		cfg.DSN = "/var/lib/iscsitgt/control.db"
	}
}

func applySessionDefaults(cfg *SessionDefaults) {
	if cfg.MaxBurstLength == 0 {
		cfg.MaxBurstLength = 262144
	}
	if cfg.FirstBurstLength == 0 {
		cfg.FirstBurstLength = 65536
	}
	if cfg.MaxRecvDataSegmentLength == 0 {
		cfg.MaxRecvDataSegmentLength = 262144
	}
	if cfg.MaxOutstandingR2T == 0 {
		cfg.MaxOutstandingR2T = 1
	}
	if cfg.DefaultTime2Wait == 0 {
		cfg.DefaultTime2Wait = 2 * time.Second
	}
	if cfg.DefaultTime2Retain == 0 {
		cfg.DefaultTime2Retain = 20 * time.Second
	}
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = 1
	}
	if cfg.NopInInterval == 0 {
		cfg.NopInInterval = 15 * time.Second
	}
}

// GetDefaultConfig returns a fully defaulted Config, used when no config
// file is present.
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

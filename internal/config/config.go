// internal/config/config.go
package config

type Config struct {
	CCard CCardConfig `yaml:"ccard"`
}

type CCardConfig struct {
	Register RegisterConfig `yaml:"register"`
	Deploy   DeployConfig   `yaml:"deploy"`
	Idle     IdleConfig     `yaml:"idle"`
	Command  CommandConfig  `yaml:"command"`
	Log      LogConfig      `yaml:"log"`
}

// ---- REGISTER (actuator board) ----

type RegisterConfig struct {
	Transport string `yaml:"transport"` // tcp | rtu
	Endpoint  string `yaml:"endpoint"`
	UnitID    uint8  `yaml:"unit_id"`
	TimeoutMs int    `yaml:"timeout_ms"`

	// RTU line settings
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	StopBits int    `yaml:"stop_bits"`
	Parity   string `yaml:"parity"`

	CommandAddress uint16 `yaml:"command_address"`
	StatusAddress  uint16 `yaml:"status_address"`
	PollIntervalMs int    `yaml:"poll_interval_ms"`
}

// ---- INITIAL DEPLOYMENT ----

type DeployConfig struct {
	// Enabled is the hosting process's run-once-per-boot decision.
	Enabled           *bool  `yaml:"enabled"`
	MarkerFile        string `yaml:"marker_file"`
	DelayOverrideFile string `yaml:"delay_override_file"`
	DelaySeconds      *int   `yaml:"delay_seconds"`
}

// ---- IDLE MODE ----

type IdleConfig struct {
	DisableFile          string `yaml:"disable_file"`
	ThresholdSeconds     int    `yaml:"threshold_seconds"`
	CheckIntervalSeconds int    `yaml:"check_interval_seconds"`
}

// ---- COMMAND / STATUS QUERY CHANNEL ----

type CommandConfig struct {
	Listen string `yaml:"listen"`
}

// ---- LOGGING ----

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

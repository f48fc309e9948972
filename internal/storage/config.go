package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ConfigFileName = "config"
	ConfigFileType = "yaml"
	GuardDirName   = ".guard"

	// HomeEnv overrides the guard directory.
	HomeEnv   = "GUARD_HOME"
	EnvPrefix = "GUARD"
)

var config *Config

// Config holds the application configuration
type Config struct {
	AuditLogPath    string      `mapstructure:"audit_log_path"`
	LogMaxSizeBytes int64       `mapstructure:"log_max_size_bytes"`
	LogMaxBackups   int         `mapstructure:"log_max_backups"`
	ProtectEnabled  bool        `mapstructure:"protect_enabled"`
	AuditEnabled    bool        `mapstructure:"audit_enabled"`
	LockTimeoutMS   int         `mapstructure:"lock_timeout_ms"`
	WrapperDir      string      `mapstructure:"wrapper_dir"`
	ErrorLogPath    string      `mapstructure:"error_log_path"`
	Debug           bool        `mapstructure:"debug"`
	Hooks           HooksConfig `mapstructure:"hooks"`
}

// HooksConfig holds the validators run by "guard hook run".
type HooksConfig struct {
	Validators []ValidatorConfig `mapstructure:"validators"`
	Jobs       int               `mapstructure:"jobs"`
}

// ValidatorConfig describes one external check.
type ValidatorConfig struct {
	Name           string   `mapstructure:"name"`
	Command        string   `mapstructure:"command"`
	Args           []string `mapstructure:"args"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
}

// LockTimeout returns the audit lock timeout.
func (c *Config) LockTimeout() time.Duration {
	return time.Duration(c.LockTimeoutMS) * time.Millisecond
}

// GetConfigDir returns the guard config directory path
func GetConfigDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, GuardDirName), nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("audit_log_path", filepath.Join(configDir, "audit.log"))
	v.SetDefault("log_max_size_bytes", 10*1024*1024)
	v.SetDefault("log_max_backups", 5)
	v.SetDefault("protect_enabled", true)
	v.SetDefault("audit_enabled", true)
	v.SetDefault("lock_timeout_ms", 250)
	v.SetDefault("wrapper_dir", filepath.Join(configDir, "bin"))
	v.SetDefault("error_log_path", filepath.Join(configDir, "errors.log"))
	v.SetDefault("debug", false)

	v.SetDefault("hooks.validators", []ValidatorConfig{})
	v.SetDefault("hooks.jobs", 4)
}

func newViper(configDir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType(ConfigFileType)
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, configDir)
	return v
}

// DefaultConfig returns the configuration used when no file exists or the
// file cannot be read.
func DefaultConfig() *Config {
	configDir, err := GetConfigDir()
	if err != nil {
		configDir = GuardDirName
	}
	var cfg Config
	// defaults only, cannot fail
	_ = newViper(configDir).Unmarshal(&cfg)
	cfg.expandPaths()
	return &cfg
}

// InitConfig initializes the configuration
func InitConfig() (*Config, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}

	v := newViper(configDir)

	// Read config file (ignore if not exists)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.expandPaths()

	config = &cfg
	return config, nil
}

// GetConfig returns the loaded config
func GetConfig() *Config {
	return config
}

// SaveConfig saves the current config to file
func SaveConfig(cfg *Config) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	// Create config directory if not exists
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName(ConfigFileName)
	v.SetConfigType(ConfigFileType)
	v.AddConfigPath(configDir)

	v.Set("audit_log_path", cfg.AuditLogPath)
	v.Set("log_max_size_bytes", cfg.LogMaxSizeBytes)
	v.Set("log_max_backups", cfg.LogMaxBackups)
	v.Set("protect_enabled", cfg.ProtectEnabled)
	v.Set("audit_enabled", cfg.AuditEnabled)
	v.Set("lock_timeout_ms", cfg.LockTimeoutMS)
	v.Set("wrapper_dir", cfg.WrapperDir)
	v.Set("error_log_path", cfg.ErrorLogPath)
	v.Set("debug", cfg.Debug)

	// Save hooks config
	validators := make([]map[string]any, 0, len(cfg.Hooks.Validators))
	for _, val := range cfg.Hooks.Validators {
		validators = append(validators, map[string]any{
			"name":            val.Name,
			"command":         val.Command,
			"args":            val.Args,
			"timeout_seconds": val.TimeoutSeconds,
		})
	}
	v.Set("hooks.validators", validators)
	v.Set("hooks.jobs", cfg.Hooks.Jobs)

	configPath := filepath.Join(configDir, ConfigFileName+"."+ConfigFileType)
	return v.WriteConfigAs(configPath)
}

// settableKeys are the scalar options "guard config set" accepts.
var settableKeys = map[string]func(cfg *Config, raw string) error{
	"audit_log_path": func(cfg *Config, raw string) error {
		cfg.AuditLogPath = raw
		return nil
	},
	"log_max_size_bytes": func(cfg *Config, raw string) error {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("log_max_size_bytes must be a non-negative integer")
		}
		cfg.LogMaxSizeBytes = n
		return nil
	},
	"log_max_backups": func(cfg *Config, raw string) error {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return fmt.Errorf("log_max_backups must be a non-negative integer")
		}
		cfg.LogMaxBackups = n
		return nil
	},
	"protect_enabled": boolSetter(func(cfg *Config, b bool) { cfg.ProtectEnabled = b }),
	"audit_enabled":   boolSetter(func(cfg *Config, b bool) { cfg.AuditEnabled = b }),
	"debug":           boolSetter(func(cfg *Config, b bool) { cfg.Debug = b }),
	"lock_timeout_ms": func(cfg *Config, raw string) error {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return fmt.Errorf("lock_timeout_ms must be a positive integer")
		}
		cfg.LockTimeoutMS = n
		return nil
	},
	"wrapper_dir": func(cfg *Config, raw string) error {
		cfg.WrapperDir = raw
		return nil
	},
	"error_log_path": func(cfg *Config, raw string) error {
		cfg.ErrorLogPath = raw
		return nil
	},
	"hooks.jobs": func(cfg *Config, raw string) error {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return fmt.Errorf("hooks.jobs must be a positive integer")
		}
		cfg.Hooks.Jobs = n
		return nil
	},
}

func boolSetter(set func(*Config, bool)) func(*Config, string) error {
	return func(cfg *Config, raw string) error {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("expected true or false, got %q", raw)
		}
		set(cfg, b)
		return nil
	}
}

// SettableKeys returns the keys accepted by SetValue, sorted.
func SettableKeys() []string {
	keys := make([]string, 0, len(settableKeys))
	for k := range settableKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetValue parses raw and assigns it to key.
func SetValue(cfg *Config, key, raw string) error {
	set, ok := settableKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key %q (valid: %s)", key, strings.Join(SettableKeys(), ", "))
	}
	if err := set(cfg, raw); err != nil {
		return err
	}
	cfg.expandPaths()
	return nil
}

func (c *Config) expandPaths() {
	c.AuditLogPath = expandHome(c.AuditLogPath)
	c.WrapperDir = expandHome(c.WrapperDir)
	c.ErrorLogPath = expandHome(c.ErrorLogPath)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

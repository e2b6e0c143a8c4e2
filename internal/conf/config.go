// Package conf loads resistorlens settings from config.yaml, environment
// variables and command line flags.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/labddb/resistorlens/internal/logger"
	"github.com/labddb/resistorlens/internal/secrets"
)

//go:embed config.yaml
var configFiles embed.FS

// Settings is the root of the configuration tree.
type Settings struct {
	Debug bool `yaml:"debug"`

	Main struct {
		Name string `yaml:"name"` // instance name, used as MQTT client id
	} `yaml:"main"`

	Logging   logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Vision    VisionSettings       `yaml:"vision"`
	History   HistorySettings      `yaml:"history"`
	Output    OutputSettings       `yaml:"output"`
	WebServer WebServerSettings    `yaml:"webserver"`
	MQTT      MQTTSettings         `yaml:"mqtt"`
	Telemetry TelemetrySettings    `yaml:"telemetry"`
	Sentry    SentrySettings       `yaml:"sentry"`
}

// VisionSettings configures the AI band reader.
type VisionSettings struct {
	APIKey            string        `yaml:"apikey"`            // Gemini API key, ${VAR} references are expanded
	APIKeyFile        string        `yaml:"apikeyfile"`        // file holding the key, takes precedence over apikey
	Model             string        `yaml:"model"`             // model name, e.g. gemini-2.5-flash
	ThinkingBudget    int32         `yaml:"thinkingbudget"`    // reasoning token budget, -1 lets the model decide
	Timeout           time.Duration `yaml:"timeout"`           // per request timeout
	CacheTTL          time.Duration `yaml:"cachettl"`          // how long results for identical images are reused, 0 disables
	RequestsPerMinute int           `yaml:"requestsperminute"` // client side throttle, 0 disables
}

// HistorySettings configures the recent readings list.
type HistorySettings struct {
	Limit int `yaml:"limit"` // number of readings kept
}

// OutputSettings selects where history is persisted. With neither database
// enabled the history lives in memory for the lifetime of the process.
type OutputSettings struct {
	SQLite struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"sqlite"`
	MySQL struct {
		Enabled      bool   `yaml:"enabled"`
		Username     string `yaml:"username"`
		Password     string `yaml:"password"`
		PasswordFile string `yaml:"passwordfile"`
		Host         string `yaml:"host"`
		Port         string `yaml:"port"`
		Database     string `yaml:"database"`
	} `yaml:"mysql"`
}

// WebServerSettings configures the HTTP API.
type WebServerSettings struct {
	Listen    string `yaml:"listen"`    // address the API binds to
	BodyLimit string `yaml:"bodylimit"` // maximum upload size, e.g. "10M"
	Debug     bool   `yaml:"debug"`
}

// MQTTSettings configures result publication.
type MQTTSettings struct {
	Enabled      bool   `yaml:"enabled"`
	Broker       string `yaml:"broker"` // e.g. tcp://localhost:1883
	Topic        string `yaml:"topic"`  // results go to <topic>/result
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	PasswordFile string `yaml:"passwordfile"`
	Retain       bool   `yaml:"retain"`
}

// TelemetrySettings configures a dedicated Prometheus listener. When
// disabled the metrics are served by the API under /metrics.
type TelemetrySettings struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"` // e.g. 0.0.0.0:9100
}

// SentrySettings configures error telemetry.
type SentrySettings struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
	Debug   bool   `yaml:"debug"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration into a Settings value using the global viper
// instance, so flags bound with viper.BindPFlag take precedence. An empty
// configFile searches the default config paths and creates a default file
// when none exists.
func Load(configFile string) (*Settings, error) {
	settings, err := load(viper.GetViper(), configFile)
	if err != nil {
		return nil, err
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()
	return settings, nil
}

// GetSettings returns the settings from the last successful Load, or nil.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

func load(v *viper.Viper, configFile string) (*Settings, error) {
	if err := initViper(v, configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := resolveSecrets(settings); err != nil {
		return nil, err
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}
	return settings, nil
}

// resolveSecrets replaces credential fields with their file or environment
// values.
func resolveSecrets(s *Settings) error {
	fields := []struct {
		name  string
		file  string
		value *string
	}{
		{"vision.apikey", s.Vision.APIKeyFile, &s.Vision.APIKey},
		{"mqtt.password", s.MQTT.PasswordFile, &s.MQTT.Password},
		{"output.mysql.password", s.Output.MySQL.PasswordFile, &s.Output.MySQL.Password},
	}
	for _, f := range fields {
		resolved, err := secrets.Resolve(f.file, *f.value)
		if err != nil {
			return fmt.Errorf("error resolving %s: %w", f.name, err)
		}
		*f.value = resolved
	}
	return nil
}

// initViper registers defaults and environment bindings and reads the config file.
func initViper(v *viper.Viper, configFile string) error {
	setDefaultConfig(v)

	if err := bindEnvVars(v); err != nil {
		// Bad environment values are reported but do not block startup;
		// validation catches anything that matters.
		logger.Global().Module("conf").Warn("environment configuration issues", logger.Error(err))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return createDefaultConfig(v, configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// createDefaultConfig writes the embedded config.yaml into dir and reads it.
func createDefaultConfig(v *viper.Viper, dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(getDefaultConfig()), 0o600); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	logger.Global().Module("conf").Info("created default config file", logger.String("path", configPath))
	v.SetConfigFile(configPath)
	return v.ReadInConfig()
}

// getDefaultConfig returns the embedded default config.yaml.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		// The file is embedded at build time.
		panic(fmt.Sprintf("embedded config.yaml missing: %v", err))
	}
	return string(data)
}

// SaveYAMLConfig writes settings to configPath atomically. Comments in an
// existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}

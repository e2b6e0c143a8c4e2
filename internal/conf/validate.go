package conf

import (
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"
)

const maxHistoryLimit = 100

var validLogLevels = []string{"trace", "debug", "info", "warn", "error"}

// ValidationError collects every problem found in the settings.
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings checks all sections and reports every failure at once.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) []string{
		validateLoggingSettings,
		validateVisionSettings,
		validateHistorySettings,
		validateOutputSettings,
		validateWebServerSettings,
		validateTelemetrySettings,
		validateMQTTSettings,
		validateSentrySettings,
	}
	for _, validate := range validators {
		ve.Errors = append(ve.Errors, validate(settings)...)
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateLoggingSettings(s *Settings) []string {
	var errs []string
	check := func(field, level string) {
		if level != "" && !slices.Contains(validLogLevels, level) {
			errs = append(errs, fmt.Sprintf("%s must be one of %v, got %q", field, validLogLevels, level))
		}
	}

	check("logging.default_level", s.Logging.DefaultLevel)
	if s.Logging.Console != nil {
		check("logging.console.level", s.Logging.Console.Level)
	}
	if s.Logging.FileOutput != nil {
		check("logging.file_output.level", s.Logging.FileOutput.Level)
		if s.Logging.FileOutput.Enabled && s.Logging.FileOutput.Path == "" {
			errs = append(errs, "logging.file_output.path must be set when file output is enabled")
		}
	}
	for module, level := range s.Logging.ModuleLevels {
		check("logging.module_levels."+module, level)
	}
	return errs
}

func validateVisionSettings(s *Settings) []string {
	var errs []string
	if strings.TrimSpace(s.Vision.Model) == "" {
		errs = append(errs, "vision.model must not be empty")
	}
	if s.Vision.ThinkingBudget < -1 {
		errs = append(errs, fmt.Sprintf("vision.thinkingbudget must be -1 or greater, got %d", s.Vision.ThinkingBudget))
	}
	if s.Vision.Timeout <= 0 {
		errs = append(errs, "vision.timeout must be positive")
	}
	if s.Vision.CacheTTL < 0 {
		errs = append(errs, "vision.cachettl must not be negative")
	}
	if s.Vision.RequestsPerMinute < 0 {
		errs = append(errs, "vision.requestsperminute must not be negative")
	}
	return errs
}

func validateHistorySettings(s *Settings) []string {
	if s.History.Limit < 1 || s.History.Limit > maxHistoryLimit {
		return []string{fmt.Sprintf("history.limit must be between 1 and %d, got %d", maxHistoryLimit, s.History.Limit)}
	}
	return nil
}

func validateOutputSettings(s *Settings) []string {
	var errs []string
	if s.Output.SQLite.Enabled && s.Output.MySQL.Enabled {
		errs = append(errs, "only one of output.sqlite and output.mysql may be enabled")
	}
	if s.Output.SQLite.Enabled && s.Output.SQLite.Path == "" {
		errs = append(errs, "output.sqlite.path must be set when SQLite is enabled")
	}
	if s.Output.MySQL.Enabled {
		if s.Output.MySQL.Host == "" {
			errs = append(errs, "output.mysql.host must be set when MySQL is enabled")
		}
		if s.Output.MySQL.Database == "" {
			errs = append(errs, "output.mysql.database must be set when MySQL is enabled")
		}
	}
	return errs
}

func validateWebServerSettings(s *Settings) []string {
	if _, _, err := net.SplitHostPort(s.WebServer.Listen); err != nil {
		return []string{fmt.Sprintf("webserver.listen %q is not a host:port address", s.WebServer.Listen)}
	}
	return nil
}

func validateTelemetrySettings(s *Settings) []string {
	if !s.Telemetry.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(s.Telemetry.Listen); err != nil {
		return []string{fmt.Sprintf("telemetry.listen %q is not a host:port address", s.Telemetry.Listen)}
	}
	return nil
}

func validateMQTTSettings(s *Settings) []string {
	if !s.MQTT.Enabled {
		return nil
	}
	var errs []string
	if u, err := url.Parse(s.MQTT.Broker); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("mqtt.broker %q must be a URL such as tcp://host:1883", s.MQTT.Broker))
	}
	if strings.TrimSpace(s.MQTT.Topic) == "" {
		errs = append(errs, "mqtt.topic must be set when MQTT is enabled")
	}
	return errs
}

func validateSentrySettings(s *Settings) []string {
	if s.Sentry.Enabled && s.Sentry.DSN == "" {
		return []string{"sentry.dsn must be set when Sentry is enabled"}
	}
	return nil
}

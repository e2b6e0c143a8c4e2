package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every automatically bound variable, so
// vision.model becomes RESISTORLENS_VISION_MODEL.
const EnvPrefix = "RESISTORLENS"

// envBinding holds metadata for explicit environment variable bindings
type envBinding struct {
	ConfigKey string
	EnvVars   []string           // first non-empty variable wins
	Validate  func(string) error // optional
}

// getEnvBindings returns the bindings that need aliases or validation.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"vision.apikey", []string{"RESISTORLENS_VISION_APIKEY", "GEMINI_API_KEY", "API_KEY"}, nil},
		{"vision.model", []string{"RESISTORLENS_VISION_MODEL"}, nil},
		{"vision.timeout", []string{"RESISTORLENS_VISION_TIMEOUT"}, validateEnvDuration},
		{"vision.thinkingbudget", []string{"RESISTORLENS_VISION_THINKINGBUDGET"}, validateEnvInt},
		{"history.limit", []string{"RESISTORLENS_HISTORY_LIMIT"}, validateEnvHistoryLimit},
		{"webserver.listen", []string{"RESISTORLENS_WEBSERVER_LISTEN"}, nil},
		{"mqtt.enabled", []string{"RESISTORLENS_MQTT_ENABLED"}, validateEnvBool},
		{"sentry.enabled", []string{"RESISTORLENS_SENTRY_ENABLED"}, validateEnvBool},
		{"debug", []string{"RESISTORLENS_DEBUG"}, validateEnvBool},
	}
}

// bindEnvVars enables prefixed automatic binding plus the explicit aliases.
// Invalid values are collected and returned together.
func bindEnvVars(v *viper.Viper) error {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var warnings []string
	for _, binding := range getEnvBindings() {
		args := append([]string{binding.ConfigKey}, binding.EnvVars...)
		if err := v.BindEnv(args...); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.ConfigKey, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		for _, name := range binding.EnvVars {
			if value := os.Getenv(name); value != "" {
				if err := binding.Validate(value); err != nil {
					warnings = append(warnings, fmt.Sprintf("invalid %s value '%s': %v", name, value, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvInt(value string) error {
	if _, err := strconv.Atoi(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid integer value '%s'", value)
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %s", d)
	}
	return nil
}

func validateEnvHistoryLimit(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid integer value '%s'", value)
	}
	if n < 1 || n > maxHistoryLimit {
		return fmt.Errorf("history limit must be between 1 and %d, got %d", maxHistoryLimit, n)
	}
	return nil
}

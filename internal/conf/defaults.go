package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Default values also written to the embedded config.yaml.
const (
	DefaultVisionModel    = "gemini-2.5-flash"
	DefaultThinkingBudget = 4000
	DefaultHistoryLimit   = 5
	DefaultListen         = "127.0.0.1:8080"
)

// setDefaultConfig sets default values for the configuration.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("main.name", "resistorlens")

	v.SetDefault("logging.default_level", "info")
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", true)
	v.SetDefault("logging.console.level", "info")
	v.SetDefault("logging.file_output.enabled", false)
	v.SetDefault("logging.file_output.path", "logs/resistorlens.log")
	v.SetDefault("logging.file_output.level", "info")

	v.SetDefault("vision.apikey", "")
	v.SetDefault("vision.model", DefaultVisionModel)
	v.SetDefault("vision.thinkingbudget", DefaultThinkingBudget)
	v.SetDefault("vision.timeout", 60*time.Second)
	v.SetDefault("vision.cachettl", 10*time.Minute)
	v.SetDefault("vision.requestsperminute", 15)

	v.SetDefault("history.limit", DefaultHistoryLimit)

	v.SetDefault("output.sqlite.enabled", true)
	v.SetDefault("output.sqlite.path", "resistorlens.db")
	v.SetDefault("output.mysql.enabled", false)
	v.SetDefault("output.mysql.username", "")
	v.SetDefault("output.mysql.password", "")
	v.SetDefault("output.mysql.host", "localhost")
	v.SetDefault("output.mysql.port", "3306")
	v.SetDefault("output.mysql.database", "resistorlens")

	v.SetDefault("webserver.listen", DefaultListen)
	v.SetDefault("webserver.bodylimit", "10M")
	v.SetDefault("webserver.debug", false)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic", "resistorlens")
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.retain", false)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.listen", "0.0.0.0:9100")

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.debug", false)
}

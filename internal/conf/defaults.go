// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)
	viper.SetDefault("main.name", "Training Portal")

	viper.SetDefault("logging.defaultlevel", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.fileoutput.enabled", true)
	viper.SetDefault("logging.fileoutput.path", "logs/trainingportal.log")
	viper.SetDefault("logging.fileoutput.level", "info")
	viper.SetDefault("logging.fileoutput.maxsize", 10)
	viper.SetDefault("logging.fileoutput.maxrotatedfiles", 5)

	viper.SetDefault("webserver.host", "")
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.readtimeout", 15*time.Second)
	viper.SetDefault("webserver.writetimeout", 60*time.Second)
	viper.SetDefault("webserver.shutdowntimeout", 10*time.Second)
	viper.SetDefault("webserver.bodylimit", "2M")
	viper.SetDefault("webserver.allowedorigins", []string{})
	viper.SetDefault("webserver.debug", false)

	viper.SetDefault("storage.backend", BackendJSON)
	viper.SetDefault("storage.datadir", "data")
	viper.SetDefault("storage.lockmode", LockModeGlobal)
	viper.SetDefault("storage.sqlite.path", "data/trainingportal.db")
	viper.SetDefault("storage.mysql.host", "localhost")
	viper.SetDefault("storage.mysql.port", "3306")
	viper.SetDefault("storage.mysql.username", "")
	viper.SetDefault("storage.mysql.password", "")
	viper.SetDefault("storage.mysql.database", "trainingportal")

	viper.SetDefault("ratelimit.enabled", true)
	viper.SetDefault("ratelimit.contact.window", time.Minute)
	viper.SetDefault("ratelimit.contact.maxrequests", 3)
	viper.SetDefault("ratelimit.verify.window", time.Minute)
	viper.SetDefault("ratelimit.verify.maxrequests", 10)
	viper.SetDefault("ratelimit.register.window", 5*time.Minute)
	viper.SetDefault("ratelimit.register.maxrequests", 5)
	viper.SetDefault("ratelimit.sweepinterval", 5*time.Minute)
	viper.SetDefault("ratelimit.retention", time.Hour)

	viper.SetDefault("security.adminusername", "admin")
	viper.SetDefault("security.adminpasswordhash", "")
	viper.SetDefault("security.sessionsecret", "")
	viper.SetDefault("security.sessionmaxage", 8*time.Hour)
	viper.SetDefault("security.securecookies", false)
	viper.SetDefault("security.loginratelimit", 0.2)
	viper.SetDefault("security.loginburst", 5)

	viper.SetDefault("chat.enabled", true)
	viper.SetDefault("chat.apikey", "")
	viper.SetDefault("chat.model", "gemini-1.5-flash")
	viper.SetDefault("chat.baseurl", "https://generativelanguage.googleapis.com/v1beta")
	viper.SetDefault("chat.timeout", 20*time.Second)
	viper.SetDefault("chat.temperature", 0.4)
	viper.SetDefault("chat.maxoutputtokens", 512)
	viper.SetDefault("chat.requestspersecond", 2.0)
	viper.SetDefault("chat.burst", 4)
	viper.SetDefault("chat.cachettl", 30*time.Minute)
	viper.SetDefault("chat.historylimit", 10)
	viper.SetDefault("chat.catalogpath", "")
	viper.SetDefault("chat.includelivecourses", true)
	viper.SetDefault("chat.contactemail", "support@example.com")
	viper.SetDefault("chat.contactphone", "")

	viper.SetDefault("notification.enabled", false)
	viper.SetDefault("notification.urls", []string{})
	viper.SetDefault("notification.queuesize", 64)
	viper.SetDefault("notification.timeout", 10*time.Second)

	viper.SetDefault("mqtt.enabled", false)
	viper.SetDefault("mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("mqtt.username", "")
	viper.SetDefault("mqtt.password", "")
	viper.SetDefault("mqtt.clientid", "trainingportal")
	viper.SetDefault("mqtt.topic", "trainingportal/leads")
	viper.SetDefault("mqtt.retain", false)

	viper.SetDefault("sentry.enabled", false)
	viper.SetDefault("sentry.dsn", "")
	viper.SetDefault("sentry.environment", "production")
	viper.SetDefault("sentry.samplerate", 1.0)

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	viper.SetDefault("backup.enabled", false)
	viper.SetDefault("backup.interval", 24*time.Hour)
	viper.SetDefault("backup.tempdir", "")
	viper.SetDefault("backup.retention.maxbackups", 7)
	viper.SetDefault("backup.retention.maxage", 30*24*time.Hour)
	viper.SetDefault("backup.targets", []map[string]any{
		{
			"type":    "local",
			"enabled": true,
			"settings": map[string]any{
				"path": "backups/",
			},
		},
	})
}

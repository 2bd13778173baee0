// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "TRAININGPORTAL_DEBUG", validateEnvBool},

		// Web server
		{"webserver.host", "TRAININGPORTAL_HOST", nil},
		{"webserver.port", "TRAININGPORTAL_PORT", validateEnvPort},

		// Storage
		{"storage.backend", "TRAININGPORTAL_STORAGE_BACKEND", validateEnvBackend},
		{"storage.datadir", "TRAININGPORTAL_DATA_DIR", validateEnvPath},
		{"storage.lockmode", "TRAININGPORTAL_LOCK_MODE", validateEnvLockMode},
		{"storage.sqlite.path", "TRAININGPORTAL_SQLITE_PATH", validateEnvPath},
		{"storage.mysql.host", "TRAININGPORTAL_MYSQL_HOST", nil},
		{"storage.mysql.port", "TRAININGPORTAL_MYSQL_PORT", validateEnvPort},
		{"storage.mysql.username", "TRAININGPORTAL_MYSQL_USERNAME", nil},
		{"storage.mysql.password", "TRAININGPORTAL_MYSQL_PASSWORD", nil},
		{"storage.mysql.database", "TRAININGPORTAL_MYSQL_DATABASE", nil},

		// Admin credential
		{"security.adminusername", "TRAININGPORTAL_ADMIN_USERNAME", nil},
		{"security.adminpasswordhash", "TRAININGPORTAL_ADMIN_PASSWORD_HASH", validateEnvBcryptHash},
		{"security.sessionsecret", "TRAININGPORTAL_SESSION_SECRET", validateEnvSessionSecret},
		{"security.securecookies", "TRAININGPORTAL_SECURE_COOKIES", validateEnvBool},

		// Chat provider
		{"chat.enabled", "TRAININGPORTAL_CHAT_ENABLED", validateEnvBool},
		{"chat.apikey", "TRAININGPORTAL_CHAT_API_KEY", nil},
		{"chat.model", "TRAININGPORTAL_CHAT_MODEL", nil},
		{"chat.baseurl", "TRAININGPORTAL_CHAT_BASE_URL", nil},
		{"chat.timeout", "TRAININGPORTAL_CHAT_TIMEOUT", validateEnvDuration},

		// Integrations
		{"sentry.enabled", "TRAININGPORTAL_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "TRAININGPORTAL_SENTRY_DSN", nil},
		{"mqtt.broker", "TRAININGPORTAL_MQTT_BROKER", nil},
		{"mqtt.username", "TRAININGPORTAL_MQTT_USERNAME", nil},
		{"mqtt.password", "TRAININGPORTAL_MQTT_PASSWORD", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value: %v", binding.EnvVar, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

// Environment variable validation functions

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true or false")
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("must be a port number between 1 and 65535")
	}
	return nil
}

func validateEnvPath(value string) error {
	if strings.ContainsRune(value, 0) {
		return fmt.Errorf("path contains a null byte")
	}
	return nil
}

func validateEnvBackend(value string) error {
	switch value {
	case BackendJSON, BackendSQLite, BackendMySQL:
		return nil
	}
	return fmt.Errorf("must be one of %s, %s, %s", BackendJSON, BackendSQLite, BackendMySQL)
}

func validateEnvLockMode(value string) error {
	switch value {
	case LockModeGlobal, LockModePerFile:
		return nil
	}
	return fmt.Errorf("must be %s or %s", LockModeGlobal, LockModePerFile)
}

func validateEnvDuration(value string) error {
	if _, err := time.ParseDuration(value); err != nil {
		return fmt.Errorf("must be a duration such as 30s: %w", err)
	}
	return nil
}

// validateEnvBcryptHash only checks the hash prefix; the value itself is never logged
func validateEnvBcryptHash(value string) error {
	if !strings.HasPrefix(value, "$2a$") && !strings.HasPrefix(value, "$2b$") && !strings.HasPrefix(value, "$2y$") {
		return fmt.Errorf("must be a bcrypt hash")
	}
	return nil
}

func validateEnvSessionSecret(value string) error {
	if len(value) < minSessionSecretLength {
		return fmt.Errorf("must be at least %d characters", minSessionSecretLength)
	}
	return nil
}

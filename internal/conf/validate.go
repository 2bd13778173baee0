// conf/validate.go

package conf

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/gommon/bytes"

	"github.com/learnforge/trainingportal/internal/logger"
)

// Storage backends
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendMySQL  = "mysql"
)

// Store lock modes
const (
	LockModeGlobal  = "global"
	LockModePerFile = "per-file"
)

const minSessionSecretLength = 32

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		func(s *Settings) error { return validateWebServerSettings(&s.WebServer) },
		func(s *Settings) error { return validateStorageSettings(&s.Storage) },
		func(s *Settings) error { return validateRateLimitSettings(&s.RateLimit) },
		func(s *Settings) error { return validateSecuritySettings(&s.Security) },
		func(s *Settings) error { return validateChatSettings(&s.Chat) },
		func(s *Settings) error { return validateNotificationSettings(&s.Notification) },
		func(s *Settings) error { return validateMQTTSettings(&s.MQTT) },
		func(s *Settings) error { return validateBackupSettings(&s.Backup) },
	}
	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if settings.Sentry.Enabled && settings.Sentry.DSN == "" {
		ve.Errors = append(ve.Errors, "sentry.dsn is required when sentry is enabled")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateWebServerSettings(settings *WebServerSettings) error {
	port, err := strconv.Atoi(settings.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("webserver.port must be between 1 and 65535, got %q", settings.Port)
	}
	if _, err := bytes.Parse(settings.BodyLimit); err != nil {
		return fmt.Errorf("webserver.bodylimit %q is not a valid size: %w", settings.BodyLimit, err)
	}
	if settings.ReadTimeout < 0 || settings.WriteTimeout < 0 {
		return errors.New("webserver timeouts must not be negative")
	}
	return nil
}

func validateStorageSettings(settings *StorageSettings) error {
	switch settings.Backend {
	case BackendJSON:
		if settings.DataDir == "" {
			return errors.New("storage.datadir is required for the json backend")
		}
	case BackendSQLite:
		if settings.SQLite.Path == "" {
			return errors.New("storage.sqlite.path is required for the sqlite backend")
		}
	case BackendMySQL:
		if settings.MySQL.Host == "" || settings.MySQL.Database == "" {
			return errors.New("storage.mysql.host and storage.mysql.database are required for the mysql backend")
		}
	default:
		return fmt.Errorf("storage.backend must be one of %s, %s, %s, got %q", BackendJSON, BackendSQLite, BackendMySQL, settings.Backend)
	}

	switch settings.LockMode {
	case LockModeGlobal, LockModePerFile:
	default:
		return fmt.Errorf("storage.lockmode must be %s or %s, got %q", LockModeGlobal, LockModePerFile, settings.LockMode)
	}
	return nil
}

func validateRateLimitSettings(settings *RateLimitSettings) error {
	policies := map[string]RatePolicy{
		"contact":  settings.Contact,
		"verify":   settings.Verify,
		"register": settings.Register,
	}
	for name, p := range policies {
		if p.Window <= 0 {
			return fmt.Errorf("ratelimit.%s.window must be positive", name)
		}
		if p.MaxRequests < 1 {
			return fmt.Errorf("ratelimit.%s.maxrequests must be at least 1", name)
		}
		if settings.Retention > 0 && settings.Retention < p.Window {
			return fmt.Errorf("ratelimit.retention must not be shorter than the %s window", name)
		}
	}
	if settings.SweepInterval <= 0 {
		return errors.New("ratelimit.sweepinterval must be positive")
	}
	return nil
}

func validateSecuritySettings(settings *SecuritySettings) error {
	if settings.AdminUsername == "" {
		return errors.New("security.adminusername must not be empty")
	}
	if len(settings.SessionSecret) < minSessionSecretLength {
		return fmt.Errorf("security.sessionsecret must be at least %d characters", minSessionSecretLength)
	}
	if settings.AdminPasswordHash == "" {
		GetLogger().Warn("no admin password hash configured, admin login is disabled")
	}
	if settings.LoginRateLimit <= 0 || settings.LoginBurst < 1 {
		return errors.New("security.loginratelimit and security.loginburst must be positive")
	}
	return nil
}

func validateChatSettings(settings *ChatSettings) error {
	if !settings.Enabled {
		return nil
	}
	if settings.APIKey == "" {
		GetLogger().Warn("chat provider api key is not set, chat will answer with contact details only")
	}
	if _, err := url.ParseRequestURI(settings.BaseURL); err != nil {
		return fmt.Errorf("chat.baseurl is not a valid URL: %w", err)
	}
	if settings.Temperature < 0 || settings.Temperature > 2 {
		return fmt.Errorf("chat.temperature must be between 0 and 2, got %v", settings.Temperature)
	}
	if settings.MaxOutputTokens < 1 {
		return errors.New("chat.maxoutputtokens must be at least 1")
	}
	if settings.RequestsPerSecond <= 0 || settings.Burst < 1 {
		return errors.New("chat.requestspersecond and chat.burst must be positive")
	}
	if settings.HistoryLimit < 0 {
		return errors.New("chat.historylimit must not be negative")
	}
	return nil
}

func validateNotificationSettings(settings *NotificationSettings) error {
	if !settings.Enabled {
		return nil
	}
	if len(settings.URLs) == 0 {
		return errors.New("notification.urls must list at least one service URL when notifications are enabled")
	}
	if settings.QueueSize < 1 {
		return errors.New("notification.queuesize must be at least 1")
	}
	return nil
}

func validateMQTTSettings(settings *MQTTSettings) error {
	if !settings.Enabled {
		return nil
	}
	if settings.Broker == "" {
		return errors.New("mqtt.broker is required when mqtt is enabled")
	}
	if strings.TrimSpace(settings.Topic) == "" {
		return errors.New("mqtt.topic is required when mqtt is enabled")
	}
	return nil
}

func validateBackupSettings(settings *BackupConfig) error {
	if !settings.Enabled {
		return nil
	}
	if settings.Interval <= 0 {
		return errors.New("backup.interval must be positive")
	}
	enabled := 0
	for i, target := range settings.Targets {
		switch target.Type {
		case "local", "ftp", "sftp":
		default:
			return fmt.Errorf("backup.targets[%d]: unsupported type %q", i, target.Type)
		}
		if target.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		GetLogger().Warn("backups are enabled but no target is enabled", logger.Int("targets", len(settings.Targets)))
	}
	return nil
}

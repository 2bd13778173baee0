// Package conf loads, validates and persists the portal configuration.
package conf

import (
	"crypto/rand"
	"embed"
	"encoding/base64"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/learnforge/trainingportal/internal/errors"
	"github.com/learnforge/trainingportal/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

const appDirName = "trainingportal"

// WebServerSettings configures the HTTP listener
type WebServerSettings struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readtimeout"`
	WriteTimeout    time.Duration `yaml:"writetimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdowntimeout"`
	BodyLimit       string        `yaml:"bodylimit"`      // e.g. "2M"
	AllowedOrigins  []string      `yaml:"allowedorigins"` // CORS origins, empty allows any
	Debug           bool          `yaml:"debug"`
}

// SQLiteSettings configures the sqlite backend
type SQLiteSettings struct {
	Path string `yaml:"path"`
}

// MySQLSettings configures the mysql backend
type MySQLSettings struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// StorageSettings selects where collections are persisted
type StorageSettings struct {
	Backend  string         `yaml:"backend"`  // json, sqlite, mysql
	DataDir  string         `yaml:"datadir"`  // directory for json collections
	LockMode string         `yaml:"lockmode"` // global or per-file
	SQLite   SQLiteSettings `yaml:"sqlite"`
	MySQL    MySQLSettings  `yaml:"mysql"`
}

// RatePolicy is a sliding window budget
type RatePolicy struct {
	Window      time.Duration `yaml:"window"`
	MaxRequests int           `yaml:"maxrequests"`
}

// RateLimitSettings holds the per-endpoint-class budgets
type RateLimitSettings struct {
	Enabled       bool          `yaml:"enabled"`
	Contact       RatePolicy    `yaml:"contact"`
	Verify        RatePolicy    `yaml:"verify"`
	Register      RatePolicy    `yaml:"register"`
	SweepInterval time.Duration `yaml:"sweepinterval"`
	Retention     time.Duration `yaml:"retention"`
}

// SecuritySettings configures the admin credential and its session cookie
type SecuritySettings struct {
	AdminUsername     string        `yaml:"adminusername"`
	AdminPasswordHash string        `yaml:"adminpasswordhash"` // bcrypt hash, see `trainingportal hashpw`
	SessionSecret     string        `yaml:"sessionsecret"`
	SessionMaxAge     time.Duration `yaml:"sessionmaxage"`
	SecureCookies     bool          `yaml:"securecookies"`
	LoginRateLimit    float64       `yaml:"loginratelimit"` // attempts per second per client
	LoginBurst        int           `yaml:"loginburst"`
}

// ChatSettings configures the chat widget and its generative-AI provider
type ChatSettings struct {
	Enabled            bool          `yaml:"enabled"`
	APIKey             string        `yaml:"apikey"`
	Model              string        `yaml:"model"`
	BaseURL            string        `yaml:"baseurl"`
	Timeout            time.Duration `yaml:"timeout"`
	Temperature        float64       `yaml:"temperature"`
	MaxOutputTokens    int           `yaml:"maxoutputtokens"`
	RequestsPerSecond  float64       `yaml:"requestspersecond"`
	Burst              int           `yaml:"burst"`
	CacheTTL           time.Duration `yaml:"cachettl"`
	HistoryLimit       int           `yaml:"historylimit"`
	CatalogPath        string        `yaml:"catalogpath"` // optional YAML catalog overriding the embedded one
	IncludeLiveCourses bool          `yaml:"includelivecourses"`
	ContactEmail       string        `yaml:"contactemail"`
	ContactPhone       string        `yaml:"contactphone"`
}

// NotificationSettings configures admin push notifications
type NotificationSettings struct {
	Enabled   bool          `yaml:"enabled"`
	URLs      []string      `yaml:"urls"` // shoutrrr service URLs
	QueueSize int           `yaml:"queuesize"`
	Timeout   time.Duration `yaml:"timeout"`
}

// MQTTSettings configures lead event publishing
type MQTTSettings struct {
	Enabled  bool   `yaml:"enabled"`
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"clientid"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
	Retain   bool   `yaml:"retain"`
}

// SentrySettings configures error telemetry
type SentrySettings struct {
	Enabled     bool    `yaml:"enabled"`
	DSN         string  `yaml:"dsn"`
	Environment string  `yaml:"environment"`
	SampleRate  float64 `yaml:"samplerate"`
}

// MetricsSettings configures the prometheus endpoint
type MetricsSettings struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// BackupRetention defines how many archives a target keeps
type BackupRetention struct {
	MaxBackups int           `yaml:"maxbackups"`
	MaxAge     time.Duration `yaml:"maxage"`
}

// BackupTarget defines one backup destination
type BackupTarget struct {
	Type     string         `yaml:"type"` // local, ftp, sftp
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings"`
}

// BackupConfig configures data-directory backups
type BackupConfig struct {
	Enabled   bool            `yaml:"enabled"`
	Interval  time.Duration   `yaml:"interval"`
	TempDir   string          `yaml:"tempdir"`
	Retention BackupRetention `yaml:"retention"`
	Targets   []BackupTarget  `yaml:"targets"`
}

// Settings is the root configuration
type Settings struct {
	Debug bool `yaml:"debug"`

	Main struct {
		Name string `yaml:"name"`
	} `yaml:"main"`

	Logging      logger.LoggingConfig `yaml:"logging"`
	WebServer    WebServerSettings    `yaml:"webserver"`
	Storage      StorageSettings      `yaml:"storage"`
	RateLimit    RateLimitSettings    `yaml:"ratelimit"`
	Security     SecuritySettings     `yaml:"security"`
	Chat         ChatSettings         `yaml:"chat"`
	Notification NotificationSettings `yaml:"notification"`
	MQTT         MQTTSettings         `yaml:"mqtt"`
	Sentry       SentrySettings       `yaml:"sentry"`
	Metrics      MetricsSettings      `yaml:"metrics"`
	Backup       BackupConfig         `yaml:"backup"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file (configFile, or the first config.yaml
// found on the default search paths), applies environment overrides and
// validates the result.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal_config").
			Build()
	}

	if settings.Security.SessionSecret == "" {
		settings.Security.SessionSecret = GenerateRandomSecret()
		GetLogger().Warn("no session secret configured, generated an ephemeral one; admin sessions will not survive a restart")
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settings, nil
}

func initViper(configFile string) error {
	viper.SetConfigType("yaml")
	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		GetLogger().Warn("environment configuration issues", logger.Error(err))
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("fatal error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return err
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return createDefaultConfig(configPaths[len(configPaths)-1])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// createDefaultConfig writes the embedded config.yaml into dir and reads it back
func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded config: %w", err)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	viper.SetConfigFile(configPath)
	return viper.ReadInConfig()
}

// DefaultConfigYAML returns the embedded default configuration
func DefaultConfigYAML() []byte {
	data, _ := fs.ReadFile(configFiles, "config.yaml")
	return data
}

// GetDefaultConfigPaths returns the directories searched for config.yaml,
// in priority order.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategorySystem).
			Context("operation", "get_home_directory").
			Build()
	}

	if runtime.GOOS == "windows" {
		return []string{".", filepath.Join(homeDir, "AppData", "Roaming", appDirName)}, nil
	}
	return []string{
		".",
		"/etc/" + appDirName,
		filepath.Join(homeDir, ".config", appDirName),
	}, nil
}

// ConfigFileUsed returns the path of the loaded config file
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

// GetSettings returns the most recently loaded settings
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveYAMLConfig writes settings to configPath through a temp file and rename.
// Comments in the existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempName := tempFile.Name()
	defer os.Remove(tempName)

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}
	if err := os.Chmod(tempName, 0o600); err != nil {
		return fmt.Errorf("error setting config permissions: %w", err)
	}
	if err := os.Rename(tempName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}

// GenerateRandomSecret returns 32 random bytes, URL-safe base64 encoded
func GenerateRandomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		GetLogger().Error("failed to generate random secret", logger.Error(err))
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

// GetLogger returns the configuration module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("conf")
}

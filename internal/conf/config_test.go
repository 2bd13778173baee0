package conf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig stores the embedded default config, with optional line
// replacements, in a temp dir and returns its path.
func writeConfig(t *testing.T, replacements ...string) string {
	t.Helper()
	content := string(DefaultConfigYAML())
	require.NotEmpty(t, content)
	if len(replacements) > 0 {
		content = strings.NewReplacer(replacements...).Replace(content)
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadDefaultConfig(t *testing.T) {
	resetViper(t)

	settings, err := Load(writeConfig(t))
	require.NoError(t, err)

	assert.Equal(t, "8080", settings.WebServer.Port)
	assert.Equal(t, BackendJSON, settings.Storage.Backend)
	assert.Equal(t, LockModeGlobal, settings.Storage.LockMode)
	assert.Equal(t, time.Minute, settings.RateLimit.Contact.Window)
	assert.Equal(t, 3, settings.RateLimit.Contact.MaxRequests)
	assert.Equal(t, 5*time.Minute, settings.RateLimit.Register.Window)
	assert.Equal(t, time.Hour, settings.RateLimit.Retention)
	assert.Equal(t, 5*time.Minute, settings.RateLimit.SweepInterval)
	assert.Equal(t, "info", settings.Logging.DefaultLevel)
	require.NotNil(t, settings.Logging.FileOutput)
	assert.Equal(t, "logs/trainingportal.log", settings.Logging.FileOutput.Path)
	require.Len(t, settings.Backup.Targets, 3)
	assert.Equal(t, "local", settings.Backup.Targets[0].Type)
	assert.Len(t, settings.Security.SessionSecret, 43, "an ephemeral secret is generated when none is configured")
	assert.Same(t, settings, GetSettings())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	resetViper(t)
	t.Setenv("TRAININGPORTAL_PORT", "9090")
	t.Setenv("TRAININGPORTAL_STORAGE_BACKEND", "sqlite")
	t.Setenv("TRAININGPORTAL_CHAT_API_KEY", "test-key")
	t.Setenv("TRAININGPORTAL_LOCK_MODE", "per-file")

	settings, err := Load(writeConfig(t))
	require.NoError(t, err)

	assert.Equal(t, "9090", settings.WebServer.Port)
	assert.Equal(t, BackendSQLite, settings.Storage.Backend)
	assert.Equal(t, LockModePerFile, settings.Storage.LockMode)
	assert.Equal(t, "test-key", settings.Chat.APIKey)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	resetViper(t)

	path := writeConfig(t,
		"backend: json", "backend: mongodb",
		"maxrequests: 3", "maxrequests: 0",
	)
	_, err := Load(path)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 2)
	assert.Contains(t, err.Error(), "storage.backend")
	assert.Contains(t, err.Error(), "ratelimit.contact.maxrequests")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	resetViper(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestSaveYAMLConfigRoundTrip(t *testing.T) {
	resetViper(t)

	path := writeConfig(t)
	settings, err := Load(path)
	require.NoError(t, err)

	settings.Security.AdminPasswordHash = "$2a$10$abcdefghijklmnopqrstuuvwxyzABCDEFGHIJKLMNOPQRSTUVWXY"
	settings.Security.SessionSecret = strings.Repeat("s", 40)
	settings.Chat.Temperature = 0.9
	require.NoError(t, SaveYAMLConfig(path, settings))

	viper.Reset()
	reloaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, settings.Security.AdminPasswordHash, reloaded.Security.AdminPasswordHash)
	assert.Equal(t, settings.Security.SessionSecret, reloaded.Security.SessionSecret)
	assert.InDelta(t, 0.9, reloaded.Chat.Temperature, 1e-9)
	assert.Equal(t, settings.Chat.Timeout, reloaded.Chat.Timeout)
	assert.Equal(t, settings.Logging.FileOutput.MaxRotatedFiles, reloaded.Logging.FileOutput.MaxRotatedFiles)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestValidateSettings(t *testing.T) {
	valid := func() *Settings {
		return &Settings{
			WebServer: WebServerSettings{Port: "8080", BodyLimit: "2M"},
			Storage:   StorageSettings{Backend: BackendJSON, DataDir: "data", LockMode: LockModeGlobal},
			RateLimit: RateLimitSettings{
				Contact:       RatePolicy{Window: time.Minute, MaxRequests: 1},
				Verify:        RatePolicy{Window: time.Minute, MaxRequests: 1},
				Register:      RatePolicy{Window: time.Minute, MaxRequests: 1},
				SweepInterval: time.Minute,
				Retention:     time.Hour,
			},
			Security: SecuritySettings{
				AdminUsername:  "admin",
				SessionSecret:  strings.Repeat("x", 32),
				LoginRateLimit: 1,
				LoginBurst:     1,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"bad port", func(s *Settings) { s.WebServer.Port = "70000" }, "webserver.port"},
		{"bad body limit", func(s *Settings) { s.WebServer.BodyLimit = "lots" }, "webserver.bodylimit"},
		{"mysql without host", func(s *Settings) { s.Storage.Backend = BackendMySQL }, "storage.mysql.host"},
		{"bad lock mode", func(s *Settings) { s.Storage.LockMode = "none" }, "storage.lockmode"},
		{"retention shorter than window", func(s *Settings) { s.RateLimit.Retention = time.Second }, "ratelimit.retention"},
		{"short secret", func(s *Settings) { s.Security.SessionSecret = "short" }, "security.sessionsecret"},
		{"chat temperature", func(s *Settings) {
			s.Chat = ChatSettings{Enabled: true, BaseURL: "https://ai.example.com", Temperature: 3, MaxOutputTokens: 1, RequestsPerSecond: 1, Burst: 1}
		}, "chat.temperature"},
		{"notification without urls", func(s *Settings) { s.Notification.Enabled = true }, "notification.urls"},
		{"mqtt without broker", func(s *Settings) { s.MQTT.Enabled = true }, "mqtt.broker"},
		{"unknown backup target", func(s *Settings) {
			s.Backup = BackupConfig{Enabled: true, Interval: time.Hour, Targets: []BackupTarget{{Type: "s3"}}}
		}, "unsupported type"},
		{"sentry without dsn", func(s *Settings) { s.Sentry.Enabled = true }, "sentry.dsn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid()
			tt.mutate(s)
			err := ValidateSettings(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvValidators(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validateEnvPort("443"))
	assert.Error(t, validateEnvPort("0"))
	assert.Error(t, validateEnvBool("maybe"))
	assert.NoError(t, validateEnvBackend(BackendMySQL))
	assert.Error(t, validateEnvBackend("postgres"))
	assert.NoError(t, validateEnvLockMode(LockModePerFile))
	assert.Error(t, validateEnvDuration("soon"))
	assert.Error(t, validateEnvBcryptHash("plaintext"))
	assert.Error(t, validateEnvSessionSecret("short"))
}

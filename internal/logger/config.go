package logger

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	DefaultLevel string            `yaml:"defaultlevel" mapstructure:"defaultlevel"` // default log level for all modules
	Timezone     string            `yaml:"timezone" mapstructure:"timezone"`          // "Local", "UTC" or an IANA name
	Console      *ConsoleOutput    `yaml:"console" mapstructure:"console"`            // console output configuration
	FileOutput   *FileOutput       `yaml:"fileoutput" mapstructure:"fileoutput"`     // file output configuration
	ModuleLevels map[string]string `yaml:"modulelevels" mapstructure:"modulelevels"` // per-module log levels
}

// ConsoleOutput represents console logging configuration.
// Console output is text without timestamps; the supervisor adds them.
type ConsoleOutput struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Level   string `yaml:"level" mapstructure:"level"`
}

// FileOutput represents file logging configuration. File output is JSON.
type FileOutput struct {
	Enabled         bool   `yaml:"enabled" mapstructure:"enabled"`
	Path            string `yaml:"path" mapstructure:"path"`
	Level           string `yaml:"level" mapstructure:"level"`
	MaxSize         int    `yaml:"maxsize" mapstructure:"maxsize"`                  // MB before rotation, 0 disables rotation
	MaxRotatedFiles int    `yaml:"maxrotatedfiles" mapstructure:"maxrotatedfiles"` // 0 keeps every rotated file
}

const (
	DefaultLogLevel        = "info"
	DefaultLogPath         = "logs/trainingportal.log"
	DefaultMaxSize         = 50
	DefaultMaxRotatedFiles = 5
)

// DefaultConfig returns a console-only configuration at info level
func DefaultConfig() *LoggingConfig {
	return &LoggingConfig{
		DefaultLevel: DefaultLogLevel,
		Timezone:     "Local",
		Console: &ConsoleOutput{
			Enabled: true,
			Level:   DefaultLogLevel,
		},
		FileOutput: &FileOutput{
			Enabled:         false,
			Path:            DefaultLogPath,
			Level:           DefaultLogLevel,
			MaxSize:         DefaultMaxSize,
			MaxRotatedFiles: DefaultMaxRotatedFiles,
		},
		ModuleLevels: map[string]string{},
	}
}

// applyConfigDefaults fills in nil sections so an old config file without
// console or fileoutput keys keeps logging to the console.
func applyConfigDefaults(cfg *LoggingConfig) {
	defaults := DefaultConfig()
	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = defaults.DefaultLevel
	}
	if cfg.Console == nil {
		cfg.Console = defaults.Console
	}
	if cfg.FileOutput == nil {
		cfg.FileOutput = defaults.FileOutput
	}
	if cfg.FileOutput.Path == "" {
		cfg.FileOutput.Path = DefaultLogPath
	}
	if cfg.ModuleLevels == nil {
		cfg.ModuleLevels = map[string]string{}
	}
}

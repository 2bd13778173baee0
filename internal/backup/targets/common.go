// Package targets provides backup target implementations
package targets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/learnforge/trainingportal/internal/backup"
	"github.com/learnforge/trainingportal/internal/conf"
	"github.com/learnforge/trainingportal/internal/errors"
)

const (
	PermDir  = 0o750
	PermFile = 0o600

	DefaultTimeout = 30 * time.Second
	DefaultFTPPort = 21
	DefaultSSHPort = 22

	maxMetadataSize = 1 << 20
)

// New builds the target described by cfg
func New(cfg conf.BackupTarget) (backup.Target, error) {
	switch strings.ToLower(cfg.Type) {
	case "local":
		return NewLocalTargetFromMap(cfg.Settings)
	case "ftp":
		return NewFTPTargetFromMap(cfg.Settings)
	case "sftp":
		return NewSFTPTargetFromMap(cfg.Settings)
	default:
		return nil, errors.Newf("unsupported backup target type %q", cfg.Type).
			Component("backup").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// FromConfig builds and validates every enabled target
func FromConfig(cfg *conf.BackupConfig) ([]backup.Target, error) {
	var out []backup.Target
	for i, tc := range cfg.Targets {
		if !tc.Enabled {
			continue
		}
		t, err := New(tc)
		if err != nil {
			return nil, fmt.Errorf("backup target %d: %w", i, err)
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("backup target %d (%s): %w", i, t.Name(), err)
		}
		out = append(out, t)
	}
	return out, nil
}

// SettingsParser extracts typed values from a target settings map and
// collects every problem instead of stopping at the first.
type SettingsParser struct {
	component string
	settings  map[string]any
	errors    []string
}

// NewSettingsParser creates a parser for component's settings
func NewSettingsParser(component string, settings map[string]any) *SettingsParser {
	return &SettingsParser{component: component, settings: settings}
}

// RequireString extracts a required string value
func (p *SettingsParser) RequireString(key string) string {
	if val, ok := p.settings[key].(string); ok && strings.TrimSpace(val) != "" {
		return strings.TrimSpace(val)
	}
	p.errors = append(p.errors, key+" is required")
	return ""
}

// OptionalString extracts an optional string value with a default
func (p *SettingsParser) OptionalString(key, defaultVal string) string {
	if val, ok := p.settings[key].(string); ok && val != "" {
		return val
	}
	return defaultVal
}

// OptionalInt accepts the integer and float forms YAML decoding produces
func (p *SettingsParser) OptionalInt(key string, defaultVal int) int {
	switch val := p.settings[key].(type) {
	case int:
		return val
	case int64:
		return int(val)
	case float64:
		return int(val)
	case nil:
		return defaultVal
	default:
		p.errors = append(p.errors, key+" must be a number")
		return defaultVal
	}
}

// OptionalDuration extracts a duration given as a string such as "30s"
func (p *SettingsParser) OptionalDuration(key string, defaultVal time.Duration) time.Duration {
	switch val := p.settings[key].(type) {
	case string:
		d, err := time.ParseDuration(val)
		if err != nil {
			p.errors = append(p.errors, "invalid "+key+" format")
			return defaultVal
		}
		return d
	case time.Duration:
		return val
	default:
		return defaultVal
	}
}

// OptionalPath extracts a path, trimming trailing slashes but keeping "/"
func (p *SettingsParser) OptionalPath(key, defaultVal string) string {
	val, ok := p.settings[key].(string)
	if !ok || val == "" {
		return defaultVal
	}
	if val == "/" {
		return val
	}
	return strings.TrimRight(val, "/")
}

// Error returns every parsing problem, or nil
func (p *SettingsParser) Error() error {
	if len(p.errors) == 0 {
		return nil
	}
	return errors.Newf("%s: %s", p.component, strings.Join(p.errors, "; ")).
		Component("backup").
		Category(errors.CategoryConfiguration).
		Build()
}

// validateID rejects ids that could escape the target directory
func validateID(id string) error {
	if id == "" || id != path.Base(id) || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".") {
		return errors.Newf("invalid backup id %q", id).
			Component("backup").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

func archiveName(id string) string  { return id + backup.ArchiveExt }
func metadataName(id string) string { return archiveName(id) + backup.MetadataExt }

// idFromMetadataName returns the id of a sidecar file name
func idFromMetadataName(name string) (string, bool) {
	suffix := backup.ArchiveExt + backup.MetadataExt
	if !strings.HasSuffix(name, suffix) {
		return "", false
	}
	return strings.TrimSuffix(name, suffix), true
}

func encodeMetadata(m *backup.Metadata) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

func decodeMetadata(r io.Reader) (backup.Metadata, error) {
	var m backup.Metadata
	data, err := io.ReadAll(io.LimitReader(r, maxMetadataSize))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(bytes.TrimSpace(data), &m); err != nil {
		return m, errors.New(err).
			Component("backup").
			Category(errors.CategoryFileParsing).
			Build()
	}
	return m, nil
}

func targetError(target string, err error, operation string) error {
	return errors.New(err).
		Component("backup").
		Category(errors.CategoryBackup).
		Context("target", target).
		Context("operation", operation).
		Build()
}

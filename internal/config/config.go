// Package config provides application configuration management.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/oszuidwest/zwfm-micmeter/internal/util"
)

// Configuration defaults are used when values are not specified.
const (
	DefaultWebPort   = 8080
	DefaultFrameRate = 30
	DefaultLocale    = "en"
	DefaultTitle     = "Microphone Meter"
	DefaultLogLevel  = "info"
)

// noControlPattern matches strings without control characters (blocks CRLF injection).
var noControlPattern = regexp.MustCompile(`^[^\x00-\x1F\x7F]+$`)

// validate is the validator for configuration files.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names in error messages instead of struct field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation("nocontrol", func(fl validator.FieldLevel) bool {
		return noControlPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// SystemConfig holds system-level settings that require restart.
type SystemConfig struct {
	Port       int    `json:"port" yaml:"port" validate:"gte=1,lte=65535"`                  // HTTP server port
	FFmpegPath string `json:"ffmpeg_path" yaml:"ffmpeg_path" validate:"omitempty,max=4096"` // Path to FFmpeg binary (empty = use PATH)
}

// AudioConfig holds audio input device settings.
type AudioConfig struct {
	Input string `json:"input" yaml:"input" validate:"omitempty,max=256"` // Audio input device identifier (empty = platform default)
}

// MeterConfig holds meter rendering settings.
type MeterConfig struct {
	FrameRate int `json:"frame_rate" yaml:"frame_rate" validate:"gte=1,lte=240"` // Meter refreshes per second
}

// UIConfig holds page presentation settings.
type UIConfig struct {
	Locale string `json:"locale" yaml:"locale" validate:"required,bcp47_language_tag"` // Status message language
	Title  string `json:"title" yaml:"title" validate:"required,max=60,nocontrol"`     // Page title
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level        string `json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	EventLogPath string `json:"event_log_path" yaml:"event_log_path" validate:"omitempty,max=4096"` // JSON lines capture event log (empty = disabled)
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"` // Serve /metrics
}

// Config holds all application configuration. It is safe for concurrent use.
type Config struct {
	System  SystemConfig  `json:"system" yaml:"system"`
	Audio   AudioConfig   `json:"audio" yaml:"audio"`
	Meter   MeterConfig   `json:"meter" yaml:"meter"`
	UI      UIConfig      `json:"ui" yaml:"ui"`
	Log     LogConfig     `json:"log" yaml:"log"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	mu       sync.RWMutex
	filePath string
}

// New creates a new Config with default values.
func New(filePath string) *Config {
	return &Config{
		System:   SystemConfig{Port: DefaultWebPort},
		Meter:    MeterConfig{FrameRate: DefaultFrameRate},
		UI:       UIConfig{Locale: DefaultLocale, Title: DefaultTitle},
		Log:      LogConfig{Level: DefaultLogLevel},
		Metrics:  MetricsConfig{Enabled: true},
		filePath: filePath,
	}
}

// isYAML reports whether path names a YAML file.
func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Load reads config from file, creating a default if none exists.
// Files ending in .yaml or .yml are parsed as YAML, everything else as JSON.
func (c *Config) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.filePath)
	if os.IsNotExist(err) {
		return c.saveLocked()
	}
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	if isYAML(c.filePath) {
		err = yaml.Unmarshal(data, c)
	} else {
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return util.WrapError("parse config", err)
	}

	c.applyDefaults()

	return c.validate()
}

// validate checks all configuration fields for correctness.
func (c *Config) validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		e := verrs[0]
		return fmt.Errorf("invalid %s %q: failed %s validation", e.Namespace(), fmt.Sprint(e.Value()), e.Tag())
	}
	return util.WrapError("validate config", err)
}

// applyDefaults sets default values for zero-value fields.
func (c *Config) applyDefaults() {
	if c.System.Port == 0 {
		c.System.Port = DefaultWebPort
	}
	if c.Meter.FrameRate == 0 {
		c.Meter.FrameRate = DefaultFrameRate
	}
	if c.UI.Locale == "" {
		c.UI.Locale = DefaultLocale
	}
	if c.UI.Title == "" {
		c.UI.Title = DefaultTitle
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
}

// saveLocked persists configuration. Caller must hold c.mu.
func (c *Config) saveLocked() error {
	var (
		data []byte
		err  error
	)
	if isYAML(c.filePath) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return util.WrapError("marshal config", err)
	}

	dir := filepath.Dir(c.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return util.WrapError("create config directory", err)
	}

	if err := os.WriteFile(c.filePath, data, 0o600); err != nil {
		return util.WrapError("write config", err)
	}

	return nil
}

// --- Getters for individual settings ---

// AudioInput returns the configured audio input device.
func (c *Config) AudioInput() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Audio.Input
}

// Path returns the configuration file path.
func (c *Config) Path() string {
	return c.filePath
}

// --- Setters for individual settings ---

// SetAudioInput updates the audio input device and saves the configuration.
func (c *Config) SetAudioInput(input string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Audio.Input = input
	return c.saveLocked()
}

// --- Snapshot for atomic reads ---

// Snapshot is a point-in-time copy of configuration values.
type Snapshot struct {
	// System
	WebPort    int
	FFmpegPath string

	// Audio
	AudioInput string

	// Meter
	FrameRate int

	// UI
	Locale string
	Title  string

	// Logging
	LogLevel     string
	EventLogPath string

	// Metrics
	MetricsEnabled bool
}

// Snapshot returns a point-in-time copy of all configuration values.
func (c *Config) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		WebPort:    c.System.Port,
		FFmpegPath: c.System.FFmpegPath,

		AudioInput: c.Audio.Input,

		FrameRate: c.Meter.FrameRate,

		Locale: c.UI.Locale,
		Title:  c.UI.Title,

		LogLevel:     c.Log.Level,
		EventLogPath: c.Log.EventLogPath,

		MetricsEnabled: c.Metrics.Enabled,
	}
}

// HasEventLog reports whether a capture event log is configured.
func (s *Snapshot) HasEventLog() bool {
	return s.EventLogPath != ""
}

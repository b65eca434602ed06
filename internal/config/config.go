package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables overriding config keys,
// e.g. JAMSCOPE_AUDIO_BACKEND=synthetic
const EnvPrefix = "JAMSCOPE"

type GlobalsConfig struct {
	Output GlobalOutputConfig `mapstructure:"output" yaml:"output"`
}

type GlobalOutputConfig struct {
	RecordingsDirectory string `mapstructure:"recordings_directory" yaml:"recordings_directory"`
}

type RootConfig struct {
	ActiveConfig string             `mapstructure:"active_config" yaml:"active_config"`
	Globals      *GlobalsConfig     `mapstructure:"globals,omitempty" yaml:"globals,omitempty"`
	Configs      map[string]*Config `mapstructure:"configs" yaml:"configs"`
}

type Config struct {
	Audio   AudioConfig   `mapstructure:"audio" yaml:"audio"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
	Display DisplayConfig `mapstructure:"display" yaml:"display"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Internal field to track inheritance information for config show
	Inheritance *InheritanceInfo `mapstructure:"-" yaml:"-"`
}

// InheritanceInfo maps a dotted key to where its value came from:
// "default", "inherited" or "profile-specific"
type InheritanceInfo struct {
	Profile string
	Sources map[string]string
}

type AudioConfig struct {
	Backend      string  `mapstructure:"backend" yaml:"backend"` // "malgo", "synthetic", "auto"
	Device       string  `mapstructure:"device" yaml:"device"`   // substring of the capture device name, empty = default
	SampleRate   int     `mapstructure:"sample_rate" yaml:"sample_rate"`
	Channels     int     `mapstructure:"channels" yaml:"channels"`
	PeriodFrames int     `mapstructure:"period_frames" yaml:"period_frames"`
	ToneHz       float64 `mapstructure:"tone_hz" yaml:"tone_hz"` // synthetic backend only
}

type OutputConfig struct {
	Directory string `mapstructure:"directory" yaml:"directory"`
	// Filename may contain {time} and {session} placeholders
	Filename   string  `mapstructure:"filename" yaml:"filename"`
	SilenceGap float64 `mapstructure:"silence_gap" yaml:"silence_gap"` // seconds
}

type DisplayConfig struct {
	Width  int     `mapstructure:"width" yaml:"width"`
	Height int     `mapstructure:"height" yaml:"height"`
	Gain   float64 `mapstructure:"gain" yaml:"gain"`
	FPS    int     `mapstructure:"fps" yaml:"fps"`
}

type LoggingConfig struct {
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
}

var defaultConfig = Config{
	Audio: AudioConfig{
		Backend:      "auto",
		SampleRate:   44100,
		Channels:     2,
		PeriodFrames: 1024,
		ToneHz:       440,
	},
	Output: OutputConfig{
		Directory:  ".",
		Filename:   "audio.wav",
		SilenceGap: 1,
	},
	Display: DisplayConfig{
		Width:  80,
		Height: 20,
		Gain:   7,
		FPS:    30,
	},
	Logging: LoggingConfig{
		File:       filepath.Join(os.TempDir(), "jamscope.log"),
		MaxSizeMB:  10,
		MaxBackups: 3,
	},
}

// Default returns the built-in configuration
func Default() *Config {
	c := defaultConfig
	c.Inheritance = &InheritanceInfo{Profile: "built-in", Sources: map[string]string{}}
	return &c
}

// DefaultConfigPath is used when no --config flag is given
func DefaultConfigPath() string {
	return os.ExpandEnv("$HOME/.config/jamscope.yaml")
}

// PathPattern is the session output path, placeholders unexpanded
func (c *Config) PathPattern() string {
	return filepath.Join(c.Output.Directory, c.Output.Filename)
}

// LoadWithProfile reads configFile and resolves the requested profile, or
// active_config when profile is empty, over configs.default and the
// built-in defaults. An empty configFile yields the built-in defaults.
func LoadWithProfile(configFile, profile string) (*Config, error) {
	if configFile == "" {
		if profile != "" && profile != "default" {
			return nil, fmt.Errorf("configuration profile '%s' not found: no config file", profile)
		}
		cfg := Default()
		applyEnvOverrides(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
		cfg.Output.Directory = expandPath(cfg.Output.Directory)
		cfg.Logging.File = expandPath(cfg.Logging.File)
		return cfg, nil
	}

	rootConfig, err := ReadRootConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	// Determine which config to use
	configName := profile
	if configName == "" {
		configName = rootConfig.ActiveConfig
	}
	if configName == "" {
		configName = "default"
	}

	selected, exists := rootConfig.Configs[configName]
	if !exists && configName != "default" {
		return nil, fmt.Errorf("configuration profile '%s' not found", configName)
	}

	// Built-in defaults, then configs.default, then the selected profile
	result := Default()
	if base, ok := rootConfig.Configs["default"]; ok {
		result = mergeConfigs(result, base)
		if configName != "default" {
			for k := range result.Inheritance.Sources {
				result.Inheritance.Sources[k] = "inherited"
			}
		}
	}
	if configName != "default" {
		result = mergeConfigs(result, selected)
	}
	result.Inheritance.Profile = configName

	// Global recordings directory takes priority over profile-specific directory
	if rootConfig.Globals != nil && rootConfig.Globals.Output.RecordingsDirectory != "" {
		result.Output.Directory = rootConfig.Globals.Output.RecordingsDirectory
		result.Inheritance.Sources["output.directory"] = "globals"
	}

	applyEnvOverrides(result)

	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	// Expand tilde in paths
	result.Output.Directory = expandPath(result.Output.Directory)
	result.Logging.File = expandPath(result.Logging.File)

	return result, nil
}

// ReadRootConfig parses the config file without resolving profiles
func ReadRootConfig(configFile string) (*RootConfig, error) {
	// A dedicated viper instance keeps tests and commands independent
	v := viper.New()
	v.SetConfigFile(configFile)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	var rootConfig RootConfig
	if err := v.Unmarshal(&rootConfig); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if len(rootConfig.Configs) == 0 {
		return nil, fmt.Errorf("configs section is required")
	}
	for name, p := range rootConfig.Configs {
		if p == nil {
			return nil, fmt.Errorf("config '%s' is empty", name)
		}
	}

	return &rootConfig, nil
}

// UpdateActiveConfig updates the active_config field in the config file
func UpdateActiveConfig(configFile, newActiveConfig string) error {
	if configFile == "" {
		return fmt.Errorf("no config file specified")
	}

	rootConfig, err := ReadRootConfig(configFile)
	if err != nil {
		return err
	}
	if _, ok := rootConfig.Configs[newActiveConfig]; !ok {
		return fmt.Errorf("configuration profile '%s' not found", newActiveConfig)
	}

	v := viper.New()
	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	v.Set("active_config", newActiveConfig)

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("error writing config file %s: %w", configFile, err)
	}

	return nil
}

// mergeConfigs overlays the non-zero fields of profile onto base and
// records which keys the profile set
func mergeConfigs(base, profile *Config) *Config {
	result := &Config{}
	result.Inheritance = &InheritanceInfo{Sources: map[string]string{}}

	if base != nil {
		result.Audio = base.Audio
		result.Output = base.Output
		result.Display = base.Display
		result.Logging = base.Logging
		if base.Inheritance != nil {
			result.Inheritance.Profile = base.Inheritance.Profile
			for k, v := range base.Inheritance.Sources {
				result.Inheritance.Sources[k] = v
			}
		}
	}

	if profile == nil {
		return result
	}

	src := result.Inheritance.Sources
	mergeString(&result.Audio.Backend, profile.Audio.Backend, "audio.backend", src)
	mergeString(&result.Audio.Device, profile.Audio.Device, "audio.device", src)
	mergeInt(&result.Audio.SampleRate, profile.Audio.SampleRate, "audio.sample_rate", src)
	mergeInt(&result.Audio.Channels, profile.Audio.Channels, "audio.channels", src)
	mergeInt(&result.Audio.PeriodFrames, profile.Audio.PeriodFrames, "audio.period_frames", src)
	mergeFloat(&result.Audio.ToneHz, profile.Audio.ToneHz, "audio.tone_hz", src)

	mergeString(&result.Output.Directory, profile.Output.Directory, "output.directory", src)
	mergeString(&result.Output.Filename, profile.Output.Filename, "output.filename", src)
	mergeFloat(&result.Output.SilenceGap, profile.Output.SilenceGap, "output.silence_gap", src)

	mergeInt(&result.Display.Width, profile.Display.Width, "display.width", src)
	mergeInt(&result.Display.Height, profile.Display.Height, "display.height", src)
	mergeFloat(&result.Display.Gain, profile.Display.Gain, "display.gain", src)
	mergeInt(&result.Display.FPS, profile.Display.FPS, "display.fps", src)

	mergeString(&result.Logging.File, profile.Logging.File, "logging.file", src)
	mergeInt(&result.Logging.MaxSizeMB, profile.Logging.MaxSizeMB, "logging.max_size_mb", src)
	mergeInt(&result.Logging.MaxBackups, profile.Logging.MaxBackups, "logging.max_backups", src)

	return result
}

func mergeString(dst *string, v, key string, src map[string]string) {
	if v != "" {
		*dst = v
		src[key] = "profile-specific"
	}
}

func mergeInt(dst *int, v int, key string, src map[string]string) {
	if v != 0 {
		*dst = v
		src[key] = "profile-specific"
	}
}

func mergeFloat(dst *float64, v float64, key string, src map[string]string) {
	if v != 0 {
		*dst = v
		src[key] = "profile-specific"
	}
}

// Source reports where the value of a dotted key came from
func (c *Config) Source(key string) string {
	if c.Inheritance == nil {
		return "default"
	}
	if s, ok := c.Inheritance.Sources[key]; ok {
		return s
	}
	return "default"
}

// applyEnvOverrides applies JAMSCOPE_* variables on top of the resolved config
func applyEnvOverrides(c *Config) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	overrides := map[string]func(){
		"audio.backend":       func() { c.Audio.Backend = v.GetString("audio.backend") },
		"audio.device":        func() { c.Audio.Device = v.GetString("audio.device") },
		"audio.sample_rate":   func() { c.Audio.SampleRate = v.GetInt("audio.sample_rate") },
		"audio.channels":      func() { c.Audio.Channels = v.GetInt("audio.channels") },
		"audio.period_frames": func() { c.Audio.PeriodFrames = v.GetInt("audio.period_frames") },
		"output.directory":    func() { c.Output.Directory = v.GetString("output.directory") },
		"output.filename":     func() { c.Output.Filename = v.GetString("output.filename") },
		"output.silence_gap":  func() { c.Output.SilenceGap = v.GetFloat64("output.silence_gap") },
		"logging.file":        func() { c.Logging.File = v.GetString("logging.file") },
	}

	for key, apply := range overrides {
		if !v.IsSet(key) {
			continue
		}
		apply()
		if c.Inheritance != nil {
			c.Inheritance.Sources[key] = "environment"
		}
	}
}

// Validate checks the resolved configuration; errors name the offending key
func (c *Config) Validate() error {
	var errs []error

	switch c.Audio.Backend {
	case "", "auto", "malgo", "synthetic":
	default:
		errs = append(errs, fmt.Errorf("audio.backend must be 'auto', 'malgo' or 'synthetic', got: %s", c.Audio.Backend))
	}
	if c.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be > 0, got: %d", c.Audio.SampleRate))
	}
	if c.Audio.Channels < 1 || c.Audio.Channels > 32 {
		errs = append(errs, fmt.Errorf("audio.channels must be between 1 and 32, got: %d", c.Audio.Channels))
	}
	if c.Audio.PeriodFrames < 0 {
		errs = append(errs, fmt.Errorf("audio.period_frames must be >= 0, got: %d", c.Audio.PeriodFrames))
	}
	if c.Audio.ToneHz < 0 {
		errs = append(errs, fmt.Errorf("audio.tone_hz must be >= 0, got: %.2f", c.Audio.ToneHz))
	}

	if c.Output.Filename == "" {
		errs = append(errs, fmt.Errorf("output.filename is required"))
	}
	if c.Output.SilenceGap < 0 || c.Output.SilenceGap > 60 {
		errs = append(errs, fmt.Errorf("output.silence_gap must be between 0 and 60 seconds, got: %.2f", c.Output.SilenceGap))
	}

	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		errs = append(errs, fmt.Errorf("display.width and display.height must be > 0, got: %dx%d", c.Display.Width, c.Display.Height))
	}
	if c.Display.Gain <= 0 {
		errs = append(errs, fmt.Errorf("display.gain must be > 0, got: %.2f", c.Display.Gain))
	}
	if c.Display.FPS < 1 || c.Display.FPS > 240 {
		errs = append(errs, fmt.Errorf("display.fps must be between 1 and 240, got: %d", c.Display.FPS))
	}

	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 {
		errs = append(errs, fmt.Errorf("logging.max_size_mb and logging.max_backups must be >= 0"))
	}

	return errors.Join(errs...)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

// Package config provides configuration management for the dftour CLI
package config

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/paveg/dftour/internal/display"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. DFTOUR_DISPLAY__MAX_ROWS
const EnvPrefix = "DFTOUR_"

// DefaultFiles are searched in the working directory when no file is given
var DefaultFiles = []string{"dftour.yaml", "dftour.yml"}

// Config represents the resolved configuration of a tour run
type Config struct {
	Output  OutputConfig  `koanf:"output" yaml:"output"`
	Display DisplayConfig `koanf:"display" yaml:"display"`
	Filter  FilterConfig  `koanf:"filter" yaml:"filter"`
	Export  ExportConfig  `koanf:"export" yaml:"export"`
	Log     LogConfig     `koanf:"log" yaml:"log"`
	Run     RunConfig     `koanf:"run" yaml:"run"`
	Steps   []string      `koanf:"steps" yaml:"steps"` // Empty runs every step

	// File is the config file that was loaded, if any
	File string `koanf:"-" yaml:"-"`
}

// OutputConfig selects how results are written
type OutputConfig struct {
	Format string `koanf:"format" yaml:"format"` // table, markdown or json
}

// DisplayConfig tunes table rendering
type DisplayConfig struct {
	FloatPrecision int    `koanf:"float_precision" yaml:"float_precision"` // -1 = shortest round-trip
	MaxRows        int    `koanf:"max_rows" yaml:"max_rows"`               // 0 = unlimited
	ShowDtypes     bool   `koanf:"show_dtypes" yaml:"show_dtypes"`
	ShowShape      bool   `koanf:"show_shape" yaml:"show_shape"`
	Style          string `koanf:"style" yaml:"style"` // rounded, light or ascii
}

// FilterConfig holds defaults for filter steps
type FilterConfig struct {
	BetweenClosed string `koanf:"between_closed" yaml:"between_closed"` // both, left, right or none
}

// ExportConfig controls Parquet export of step results
type ExportConfig struct {
	Dir         string `koanf:"dir" yaml:"dir"` // Empty disables export
	Compression string `koanf:"compression" yaml:"compression"`
}

// LogConfig controls diagnostics written to stderr
type LogConfig struct {
	Level string `koanf:"level" yaml:"level"`
}

// RunConfig controls step execution
type RunConfig struct {
	Workers int  `koanf:"workers" yaml:"workers"` // Steps computed concurrently; 1 = sequential
	Stats   bool `koanf:"stats" yaml:"stats"`     // Render per-step statistics after the tour
}

// Default configuration values
const (
	DefaultFormat         = display.FormatTable
	DefaultFloatPrecision = -1
	DefaultMaxRows        = 20
	DefaultStyle          = display.StyleRounded
	DefaultBetweenClosed  = "both"
	DefaultCompression    = "snappy"
	DefaultLogLevel       = "warn"
	DefaultWorkers        = 1
)

var (
	validFormats      = []string{display.FormatTable, display.FormatMarkdown, display.FormatJSON}
	validStyles       = []string{display.StyleRounded, display.StyleLight, display.StyleASCII}
	validClosed       = []string{"both", "left", "right", "none"}
	validCompressions = []string{"snappy", "zstd", "gzip", "lz4", "uncompressed"}
	validLogLevels    = []string{"debug", "info", "warn", "error"}

	// flagKeys maps CLI flag names to config keys
	flagKeys = map[string]string{
		"format":      "output.format",
		"log-level":   "log.level",
		"steps":       "steps",
		"export-dir":  "export.dir",
		"compression": "export.compression",
		"max-rows":    "display.max_rows",
		"style":       "display.style",
		"workers":     "run.workers",
		"stats":       "run.stats",
	}
)

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		Output: OutputConfig{Format: DefaultFormat},
		Display: DisplayConfig{
			FloatPrecision: DefaultFloatPrecision,
			MaxRows:        DefaultMaxRows,
			ShowDtypes:     true,
			ShowShape:      true,
			Style:          DefaultStyle,
		},
		Filter: FilterConfig{BetweenClosed: DefaultBetweenClosed},
		Export: ExportConfig{Compression: DefaultCompression},
		Log:    LogConfig{Level: DefaultLogLevel},
		Run:    RunConfig{Workers: DefaultWorkers},
	}
}

func defaults() map[string]interface{} {
	c := NewConfig()
	return map[string]interface{}{
		"output.format":           c.Output.Format,
		"display.float_precision": c.Display.FloatPrecision,
		"display.max_rows":        c.Display.MaxRows,
		"display.show_dtypes":     c.Display.ShowDtypes,
		"display.show_shape":      c.Display.ShowShape,
		"display.style":           c.Display.Style,
		"filter.between_closed":   c.Filter.BetweenClosed,
		"export.dir":              c.Export.Dir,
		"export.compression":      c.Export.Compression,
		"log.level":               c.Log.Level,
		"run.workers":             c.Run.Workers,
		"run.stats":               c.Run.Stats,
		"steps":                   []string{},
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if err := oneOf("output.format", c.Output.Format, validFormats); err != nil {
		return err
	}
	if err := oneOf("display.style", c.Display.Style, validStyles); err != nil {
		return err
	}
	if err := oneOf("filter.between_closed", c.Filter.BetweenClosed, validClosed); err != nil {
		return err
	}
	if err := oneOf("export.compression", c.Export.Compression, validCompressions); err != nil {
		return err
	}
	if err := oneOf("log.level", c.Log.Level, validLogLevels); err != nil {
		return err
	}

	if c.Display.MaxRows < 0 {
		return fmt.Errorf("display.max_rows must be non-negative, got %d", c.Display.MaxRows)
	}
	if c.Display.FloatPrecision < -1 {
		return fmt.Errorf("display.float_precision must be -1 or more, got %d", c.Display.FloatPrecision)
	}
	if c.Run.Workers <= 0 {
		return fmt.Errorf("run.workers must be positive, got %d", c.Run.Workers)
	}
	return nil
}

func oneOf(key, value string, valid []string) error {
	if slices.Contains(valid, value) {
		return nil
	}
	return fmt.Errorf("%s must be one of %s, got %q", key, strings.Join(valid, ", "), value)
}

// DisplayOptions converts the output and display sections for the renderer
func (c *Config) DisplayOptions() display.Options {
	return display.Options{
		Format:         c.Output.Format,
		FloatPrecision: c.Display.FloatPrecision,
		MaxRows:        c.Display.MaxRows,
		ShowDtypes:     c.Display.ShowDtypes,
		ShowShape:      c.Display.ShowShape,
		Style:          c.Display.Style,
	}
}

// splitList reads a comma-separated env value, dropping blanks
func splitList(value string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Load resolves the configuration.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
// Only flags that were explicitly set override other sources.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	path, err := findConfigFile(cfgFile)
	if err != nil {
		return nil, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	// DFTOUR_DISPLAY__MAX_ROWS -> display.max_rows; DFTOUR_STEPS=a,b -> [a b]
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "__", ".")
		if key == "steps" {
			return key, splitList(value)
		}
		return key, value
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.File = path

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// findConfigFile returns the explicit path, which must exist, or the first
// default file present in the working directory.
func findConfigFile(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicit, err)
		}
		return explicit, nil
	}
	for _, name := range DefaultFiles {
		if _, err := os.Stat(name); err == nil {
			return name, nil
		}
	}
	return "", nil
}

// Dump renders the configuration as YAML
func Dump(c *Config) (string, error) {
	out, err := yamlv3.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}
	return string(out), nil
}

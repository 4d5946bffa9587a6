package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	gotoml "github.com/pelletier/go-toml"
	"github.com/rs/zerolog"
)

// Config holds all configuration options for winnow.
type Config struct {
	// Comparison engine settings
	Compare CompareConfig `koanf:"compare" toml:"compare"`

	// Passes run when none is given on the command line
	Passes []string `koanf:"passes" toml:"passes"`

	// Fingerprint parameters per winnowing pass
	Winnowing map[string]WinnowingConfig `koanf:"winnowing" toml:"winnowing"`

	Misspellings MisspellingsConfig `koanf:"misspellings" toml:"misspellings"`

	// File exclusion patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`

	Log LogConfig `koanf:"log" toml:"log"`
}

// CompareConfig controls the comparison engine.
type CompareConfig struct {
	Top            int   `koanf:"top" toml:"top"`         // pairs kept for deep comparison, 0 = all
	Workers        int   `koanf:"workers" toml:"workers"` // 0 = 2x NumCPU
	Sequential     bool  `koanf:"sequential" toml:"sequential"`
	SkipUnreadable bool  `koanf:"skip_unreadable" toml:"skip_unreadable"`
	MaxFileSize    int64 `koanf:"max_file_size" toml:"max_file_size"` // bytes, 0 = no limit
}

// WinnowingConfig holds the fingerprint parameters of a winnowing pass.
// K is the k-gram size in tokens, T the guarantee threshold: any run of T
// tokens shared by two files is detected.
type WinnowingConfig struct {
	K int `koanf:"k" toml:"k"`
	T int `koanf:"t" toml:"t"`
}

// MisspellingsConfig configures the misspellings pass.
type MisspellingsConfig struct {
	Dictionary string `koanf:"dictionary" toml:"dictionary"`
}

// ExcludeConfig defines file exclusion patterns.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns" toml:"patterns"` // gitignore syntax
	Gitignore bool     `koanf:"gitignore" toml:"gitignore"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Dir    string `koanf:"dir" toml:"dir"`       // HTML report directory
	Format string `koanf:"format" toml:"format"` // text, json, markdown
	Color  bool   `koanf:"color" toml:"color"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `koanf:"level" toml:"level"`
}

// DefaultWinnowing is the fingerprint configuration of every winnowing pass.
var DefaultWinnowing = WinnowingConfig{K: 25, T: 35}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Compare: CompareConfig{
			Top: 50,
		},
		Passes: []string{"structure"},
		Winnowing: map[string]WinnowingConfig{
			"structure":  DefaultWinnowing,
			"text":       DefaultWinnowing,
			"exact":      DefaultWinnowing,
			"nocomments": DefaultWinnowing,
		},
		Misspellings: MisspellingsConfig{
			Dictionary: "/usr/share/dict/words",
		},
		Exclude: ExcludeConfig{
			Patterns: []string{
				".git/",
				"__pycache__/",
				"node_modules/",
				"*.pyc",
				"*.class",
				"*.o",
			},
			Gitignore: true,
		},
		Output: OutputConfig{
			Dir:    "results",
			Format: "text",
			Color:  true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Error is a configuration or invocation mistake made by the user, as
// opposed to a failure of the run itself.
type Error struct {
	Key string // offending setting, flag or path; may be empty
	Err error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return e.Err.Error()
	}
	return e.Key + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf returns an *Error for key with a formatted message.
func Errorf(key, format string, args ...any) error {
	return &Error{Key: key, Err: fmt.Errorf(format, args...)}
}

// IsError reports whether err is, or wraps, a configuration error.
func IsError(err error) bool {
	var cfgErr *Error
	return errors.As(err, &cfgErr)
}

// Load loads configuration from a file, on top of the defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	// Determine parser based on extension
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, &Error{Key: path, Err: err}
	}
	// Lists from the file replace the defaults instead of merging into them.
	if k.Exists("passes") {
		cfg.Passes = nil
	}
	if k.Exists("exclude.patterns") {
		cfg.Exclude.Patterns = nil
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, &Error{Key: path, Err: err}
	}
	cfg.fillWinnowing()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Find returns the first config file in the standard locations, or "".
func Find() string {
	configNames := []string{
		"winnow.toml",
		"winnow.yaml",
		"winnow.yml",
		"winnow.json",
		".winnow.toml",
		".winnow.yaml",
		".winnow.yml",
		".winnow.json",
	}

	// Search in current directory and .winnow directory
	for _, dir := range []string{".", ".winnow"} {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault loads the config file found in the standard locations, or
// returns the defaults when there is none. A config file that exists but
// cannot be loaded is an error.
func LoadOrDefault() (*Config, error) {
	path := Find()
	if path == "" {
		return DefaultConfig(), nil
	}
	return Load(path)
}

// fillWinnowing completes partially configured passes from the defaults.
func (c *Config) fillWinnowing() {
	for name, wc := range c.Winnowing {
		if wc.K == 0 {
			wc.K = DefaultWinnowing.K
		}
		if wc.T == 0 {
			wc.T = max(DefaultWinnowing.T, wc.K)
		}
		c.Winnowing[name] = wc
	}
}

// WinnowingFor returns the fingerprint parameters of the named pass.
func (c *Config) WinnowingFor(pass string) WinnowingConfig {
	if wc, ok := c.Winnowing[pass]; ok {
		return wc
	}
	return DefaultWinnowing
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Compare.Top < 0 {
		return Errorf("compare.top", "must not be negative, got %d", c.Compare.Top)
	}
	if c.Compare.Workers < 0 {
		return Errorf("compare.workers", "must not be negative, got %d", c.Compare.Workers)
	}
	if c.Compare.MaxFileSize < 0 {
		return Errorf("compare.max_file_size", "must not be negative, got %d", c.Compare.MaxFileSize)
	}
	for name, wc := range c.Winnowing {
		if wc.K < 1 || wc.T < wc.K {
			return Errorf("winnowing."+name, "need 1 <= k <= t, got k=%d t=%d", wc.K, wc.T)
		}
	}
	switch c.Output.Format {
	case "text", "json", "markdown":
	default:
		return Errorf("output.format", "unknown format %q (want text, json or markdown)", c.Output.Format)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return &Error{Key: "log.level", Err: err}
	}
	return nil
}

// CheckDictionary verifies that the misspellings dictionary can be read.
func (c *Config) CheckDictionary() error {
	info, err := os.Stat(c.Misspellings.Dictionary)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Errorf("misspellings.dictionary", "dictionary %s not found", c.Misspellings.Dictionary)
		}
		return &Error{Key: "misspellings.dictionary", Err: err}
	}
	if info.IsDir() {
		return Errorf("misspellings.dictionary", "%s is a directory", c.Misspellings.Dictionary)
	}
	return nil
}

// MarshalDefault renders the default configuration as TOML.
func MarshalDefault() ([]byte, error) {
	content, err := gotoml.Marshal(DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to TOML: %w", err)
	}
	return content, nil
}

package pebble

import (
	"os"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/pebbletemplates/pebble-go/internal/errors"
)

// Config holds the engine options that can be read from a YAML file.
//
// Example file:
//
//	strict_variables: true
//	default_locale: de-CH
//	template_dir: ./templates
//	max_rendered_size: 100000
//	parallelism: 4
type Config struct {
	StrictVariables         bool   `yaml:"strict_variables"`
	DefaultLocale           string `yaml:"default_locale"`
	CacheEnabled            bool   `yaml:"cache_enabled"`
	NewLineTrimming         bool   `yaml:"new_line_trimming"`
	MaxRenderedSize         int    `yaml:"max_rendered_size"`
	GreedyMethodMatching    bool   `yaml:"greedy_method_matching"`
	AllowOperatorOverride   bool   `yaml:"allow_operator_override"`
	AutoEscaping            bool   `yaml:"auto_escaping"`
	DefaultEscapingStrategy string `yaml:"default_escaping_strategy"`
	// TemplateDir is the directory templates are loaded from. Empty
	// leaves the builder's loader untouched.
	TemplateDir string `yaml:"template_dir"`
	// Suffix is appended to template names when loading from TemplateDir.
	Suffix string `yaml:"suffix"`
	// Parallelism bounds the goroutines used by parallel tags. Zero
	// renders them inline.
	Parallelism int `yaml:"parallelism"`
}

// DefaultConfig returns the configuration matching NewBuilder.
func DefaultConfig() Config {
	return Config{
		DefaultLocale:           "en",
		CacheEnabled:            true,
		NewLineTrimming:         true,
		MaxRenderedSize:         -1,
		AutoEscaping:            true,
		DefaultEscapingStrategy: "html",
	}
}

// LoadConfig reads a YAML file. Options missing from the file keep their
// DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(ErrConfig, err, "Could not read configuration ["+path+"]")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(ErrConfig, err, "Could not parse configuration ["+path+"]")
	}
	return cfg, cfg.Validate()
}

// Validate checks the values that can not be checked by the YAML decoder.
func (c Config) Validate() error {
	if _, err := language.Parse(c.DefaultLocale); err != nil {
		return errors.Wrap(ErrConfig, err, "Invalid default_locale ["+c.DefaultLocale+"]")
	}
	if c.Parallelism < 0 {
		return errors.Newf(ErrConfig, "parallelism must not be negative, got %d", c.Parallelism)
	}
	if c.DefaultEscapingStrategy == "" {
		return errors.New(ErrConfig, "default_escaping_strategy must not be empty")
	}
	if c.TemplateDir != "" {
		info, err := os.Stat(c.TemplateDir)
		if err != nil {
			return errors.Wrap(ErrConfig, err, "Invalid template_dir ["+c.TemplateDir+"]")
		}
		if !info.IsDir() {
			return errors.Newf(ErrConfig, "template_dir [%s] is not a directory", c.TemplateDir)
		}
	}
	return nil
}

// Apply copies the configuration onto a builder.
func (c Config) Apply(b *Builder) *Builder {
	b.StrictVariables(c.StrictVariables).
		CacheActive(c.CacheEnabled).
		NewLineTrimming(c.NewLineTrimming).
		MaxRenderedSize(c.MaxRenderedSize).
		GreedyMatchMethod(c.GreedyMethodMatching).
		AllowOverrideCoreOperators(c.AllowOperatorOverride).
		AutoEscaping(c.AutoEscaping).
		DefaultEscapingStrategy(c.DefaultEscapingStrategy)
	if tag, err := language.Parse(c.DefaultLocale); err == nil {
		b.DefaultLocale(tag)
	}
	if c.TemplateDir != "" {
		b.Loader(&FSLoader{FS: os.DirFS(c.TemplateDir), Suffix: c.Suffix})
	}
	if c.Parallelism > 0 {
		b.Executor(NewPoolExecutor(c.Parallelism))
	}
	return b
}

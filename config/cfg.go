package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"stylec/common"
	"stylec/platform"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	CompileConfig struct {
		Platform              common.Platform  `yaml:"platform"`
		Nesting               bool             `yaml:"nesting"`
		FailOnCycle           bool             `yaml:"fail_on_cycle"`
		MarkupFormat          common.MarkupFmt `yaml:"markup_format"`
		OutputFormat          common.OutputFmt `yaml:"output_format"`
		Charset               string           `yaml:"charset,omitempty"`
		OutputNameTemplate    string           `yaml:"output_name_template"`
		FileNameTransliterate bool             `yaml:"file_name_transliterate"`
	}

	PlatformsConfig struct {
		ReactNative platform.Overrides `yaml:"react_native"`
		Harmony     platform.Overrides `yaml:"harmony"`
	}

	Config struct {
		Version   int             `yaml:"version" validate:"eq=1"`
		Compile   CompileConfig   `yaml:"compile"`
		Platforms PlatformsConfig `yaml:"platforms"`
		Logging   LoggingConfig   `yaml:"logging"`
		Reporting ReporterConfig  `yaml:"reporting"`
	}
)

// For returns configured overrides of the target platform.
func (pc *PlatformsConfig) For(p common.Platform) platform.Overrides {
	if p == common.PlatformHarmony {
		return pc.Harmony
	}
	return pc.ReactNative
}

// OutputNameTemplateFieldName must match yaml tag of
// CompileConfig.OutputNameTemplate, gencfg leaves this field for the
// compiler to expand per output file.
const OutputNameTemplateFieldName TemplateFieldName = "output_name_template"

var requiredOptions = []func(*gencfg.ProcessingOptions){
	gencfg.WithDoNotExpandField(string(OutputNameTemplateFieldName)),
}

// decode superimposes yaml document on cfg. Unknown keys are errors, so
// misspelled settings do not go unnoticed.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode configuration data: %w", err)
	}
	return nil
}

func finish(cfg *Config) error {
	if err := gencfg.Sanitize(cfg); err != nil {
		return fmt.Errorf("failed to sanitize configuration: %w", err)
	}
	if err := gencfg.Validate(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// LoadConfiguration expands embedded template into defaults and then
// applies file at path (if any) on top of them. Result is sanitized and
// validated once, after all layers are in.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	defaults, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}

	cfg := &Config{}
	if err := decode(defaults, cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if len(path) > 0 {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to process configuration file: %w", err)
		}
	}
	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Prepare returns embedded configuration with defaults expanded.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

// Dump serializes effective configuration.
func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rupor-github/gencfg"

	"stylec/common"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return configPath
}

func TestLoadConfiguration_NoFile(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() with empty path error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
	if cfg.Version != 1 {
		t.Errorf("Default config version = %d, want 1", cfg.Version)
	}
}

func TestConfig_DefaultValues(t *testing.T) {
	cfg, err := LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	cc := cfg.Compile
	if cc.Platform != common.PlatformReactNative {
		t.Errorf("Platform = %s, want react-native", cc.Platform)
	}
	if cc.MarkupFormat != common.MarkupFmtXml {
		t.Errorf("MarkupFormat = %s, want xml", cc.MarkupFormat)
	}
	if cc.OutputFormat != common.OutputFmtJson {
		t.Errorf("OutputFormat = %s, want json", cc.OutputFormat)
	}
	if cc.Nesting || cc.FailOnCycle {
		t.Error("Nesting and FailOnCycle must be off by default")
	}
	if cc.OutputNameTemplate != "" {
		t.Errorf("OutputNameTemplate = %q, want empty", cc.OutputNameTemplate)
	}
	if cfg.Platforms.Harmony.RootFontSize != 16 {
		t.Errorf("Harmony root font size = %v, want 16", cfg.Platforms.Harmony.RootFontSize)
	}
	if cfg.Platforms.ReactNative.InlineAll != nil {
		t.Error("InlineAll must not be overridden by default")
	}
}

func TestLoadConfiguration_WithFile(t *testing.T) {
	configPath := writeConfig(t, `version: 1
compile:
  platform: harmony
  nesting: true
  fail_on_cycle: true
  markup_format: html
  output_format: js
  charset: windows-1251
  output_name_template: "{{ .Platform }}/{{ .Source }}"
  file_name_transliterate: true
platforms:
  harmony:
    viewport_width: 360
    viewport_height: 780
    inline_all: true
    wrapper_tag: Column
logging:
  console:
    level: normal
  file:
    level: none
reporting:
  destination: `+filepath.Join(t.TempDir(), "report.zip")+`
`)

	cfg, err := LoadConfiguration(configPath)
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}

	cc := cfg.Compile
	if cc.Platform != common.PlatformHarmony {
		t.Errorf("Platform = %s, want harmony", cc.Platform)
	}
	if !cc.Nesting || !cc.FailOnCycle || !cc.FileNameTransliterate {
		t.Error("Expected boolean options to be set from file")
	}
	if cc.MarkupFormat != common.MarkupFmtHtml || cc.OutputFormat != common.OutputFmtJs {
		t.Errorf("Formats = %s/%s, want html/js", cc.MarkupFormat, cc.OutputFormat)
	}
	if cc.Charset != "windows-1251" {
		t.Errorf("Charset = %q", cc.Charset)
	}
	// template fields are never expanded at load time
	if cc.OutputNameTemplate != "{{ .Platform }}/{{ .Source }}" {
		t.Errorf("OutputNameTemplate = %q, want it unexpanded", cc.OutputNameTemplate)
	}

	h := cfg.Platforms.For(common.PlatformHarmony)
	if h.ViewportWidth != 360 || h.ViewportHeight != 780 {
		t.Errorf("Harmony viewport = %vx%v, want 360x780", h.ViewportWidth, h.ViewportHeight)
	}
	if h.InlineAll == nil || !*h.InlineAll {
		t.Error("Expected inline_all override")
	}
	if h.WrapperTag != "Column" {
		t.Errorf("WrapperTag = %q, want Column", h.WrapperTag)
	}
	// untouched section keeps template defaults
	if rn := cfg.Platforms.For(common.PlatformReactNative); rn.RootFontSize != 16 {
		t.Errorf("React Native root font size = %v, want default 16", rn.RootFontSize)
	}
}

func TestLoadConfiguration_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid yaml", "version: 1\ncompile:\n  nesting: true\n  invalid indent\n"},
		{"unknown field", "version: 1\nunknown_field: value\n"},
		{"unknown platform", "version: 1\ncompile:\n  platform: android\n"},
		{"unknown output format", "version: 1\ncompile:\n  output_format: xml\n"},
		{"invalid version", "version: 2\n"},
		{"negative viewport", "version: 1\nplatforms:\n  harmony:\n    viewport_width: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadConfiguration(writeConfig(t, tt.content)); err == nil {
				t.Error("Expected error")
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfiguration("/nonexistent/config.yaml"); err == nil {
			t.Error("Expected error for nonexistent file")
		}
	})
}

func TestLoadConfiguration_WithOptions(t *testing.T) {
	option := func(opts *gencfg.ProcessingOptions) {
		// Options are opaque, just test that we can pass them
	}

	cfg, err := LoadConfiguration("", option)
	if err != nil {
		t.Fatalf("LoadConfiguration() with options error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadConfiguration() returned nil config")
	}
}

func TestPrepare(t *testing.T) {
	data, err := Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Prepare() returned empty data")
	}
	if !strings.Contains(string(data), "output_name_template") {
		t.Error("Prepared config misses output_name_template")
	}

	cfg := &Config{}
	if err := decode(data, cfg); err != nil {
		t.Fatalf("Prepared config cannot be decoded: %v", err)
	}
	if err := finish(cfg); err != nil {
		t.Errorf("Prepared config is not valid: %v", err)
	}
}

func TestDump(t *testing.T) {
	inline := true
	cfg := &Config{
		Version: 1,
		Compile: CompileConfig{
			Platform:     common.PlatformHarmony,
			OutputFormat: common.OutputFmtYaml,
		},
	}
	cfg.Platforms.Harmony.InlineAll = &inline

	data, err := Dump(cfg)
	if err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	if !strings.Contains(string(data), "platform: harmony") {
		t.Errorf("Dump() does not use enum names:\n%s", data)
	}

	cfg2 := &Config{}
	if err := decode(data, cfg2); err != nil {
		t.Fatalf("Dumped config cannot be loaded: %v", err)
	}
	if cfg2.Compile.Platform != common.PlatformHarmony || cfg2.Compile.OutputFormat != common.OutputFmtYaml {
		t.Errorf("Compile section mismatch after dump/load: %+v", cfg2.Compile)
	}
	if cfg2.Platforms.Harmony.InlineAll == nil || !*cfg2.Platforms.Harmony.InlineAll {
		t.Error("InlineAll lost after dump/load")
	}
}

func TestPlatformsConfig_For(t *testing.T) {
	pc := PlatformsConfig{}
	pc.ReactNative.WrapperTag = "View"
	pc.Harmony.WrapperTag = "Column"

	tests := []struct {
		platform common.Platform
		want     string
	}{
		{common.PlatformReactNative, "View"},
		{common.PlatformHarmony, "Column"},
		{common.Platform(42), "View"},
	}
	for _, tt := range tests {
		if got := pc.For(tt.platform).WrapperTag; got != tt.want {
			t.Errorf("For(%d).WrapperTag = %q, want %q", tt.platform, got, tt.want)
		}
	}
}

func TestDecode(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg := &Config{}
		if err := decode([]byte(`version: 1`), cfg); err != nil {
			t.Fatalf("decode() error = %v", err)
		}
		if cfg.Version != 1 {
			t.Errorf("Version = %d, want 1", cfg.Version)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		if err := decode([]byte(`invalid: [yaml`), &Config{}); err == nil {
			t.Error("Expected error for invalid YAML")
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		if err := decode([]byte(`version: 1
compile:
  platfrom: harmony
`), &Config{}); err == nil {
			t.Error("Expected error for misspelled field")
		}
	})

	t.Run("layers", func(t *testing.T) {
		cfg := &Config{}
		if err := decode([]byte(`version: 1
compile:
  nesting: true
`), cfg); err != nil {
			t.Fatal(err)
		}
		if err := decode([]byte(`compile:
  fail_on_cycle: true
`), cfg); err != nil {
			t.Fatal(err)
		}
		if !cfg.Compile.Nesting || !cfg.Compile.FailOnCycle || cfg.Version != 1 {
			t.Errorf("second layer must keep values of the first: %+v", cfg.Compile)
		}
	})
}

func TestFinish_WrapsValidationError(t *testing.T) {
	cfg := &Config{}
	if err := decode([]byte("version: 99\n"), cfg); err != nil {
		t.Fatal(err)
	}
	err := finish(cfg)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "validat") {
		t.Errorf("expected error to mention validation, got: %v", err)
	}
	if errors.Unwrap(err) == nil {
		t.Errorf("expected wrapped error, got bare error: %v", err)
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"clipmeta/internal/flags"

	"github.com/spf13/pflag"
)

func validConfig() *Config {
	cfg := New()
	cfg.Enrich.Input = "seed.json"
	return cfg
}

func TestNew_Defaults(t *testing.T) {
	cfg := New()

	if cfg.Enrich.OutDir != "outputs/enriched" {
		t.Fatalf("OutDir = %q", cfg.Enrich.OutDir)
	}
	if cfg.Enrich.Sleep != 2*time.Second {
		t.Fatalf("Sleep = %v", cfg.Enrich.Sleep)
	}
	if cfg.Enrich.Jitter != 1500*time.Millisecond {
		t.Fatalf("Jitter = %v", cfg.Enrich.Jitter)
	}
	if cfg.Enrich.Timeout != 3*time.Minute {
		t.Fatalf("Timeout = %v", cfg.Enrich.Timeout)
	}
	if !cfg.Enrich.Comments {
		t.Fatalf("Comments should default on")
	}
	if !cfg.Enrich.SkipExisting {
		t.Fatalf("SkipExisting should default on")
	}
	if cfg.Enrich.MaxConsecutiveErrors != 0 || cfg.Enrich.MaxErrors != 0 {
		t.Fatalf("thresholds should default to disabled")
	}
}

func TestValidate_RequiresInput(t *testing.T) {
	cfg := New()
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for missing --input")
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative sleep", func(c *Config) { c.Enrich.Sleep = -time.Second }},
		{"negative jitter", func(c *Config) { c.Enrich.Jitter = -time.Second }},
		{"zero timeout", func(c *Config) { c.Enrich.Timeout = 0 }},
		{"empty ytdlp", func(c *Config) { c.Enrich.YtdlpPath = "" }},
		{"negative max videos", func(c *Config) { c.Enrich.MaxVideos = -1 }},
		{"negative consecutive", func(c *Config) { c.Enrich.MaxConsecutiveErrors = -1 }},
		{"negative total", func(c *Config) { c.Enrich.MaxErrors = -1 }},
		{"empty out", func(c *Config) { c.Enrich.OutDir = " " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func enrichFlagSet() *pflag.FlagSet {
	def := New()
	fs := pflag.NewFlagSet("enrich", pflag.ContinueOnError)
	fs.String(flags.FlagInput, "", "")
	fs.String(flags.FlagOut, def.Enrich.OutDir, "")
	fs.Duration(flags.FlagSleep, def.Enrich.Sleep, "")
	fs.Duration(flags.FlagJitter, def.Enrich.Jitter, "")
	fs.Duration(flags.FlagTimeout, def.Enrich.Timeout, "")
	fs.String(flags.FlagUserAgent, "", "")
	fs.String(flags.FlagProxy, "", "")
	fs.String(flags.FlagYtdlp, def.Enrich.YtdlpPath, "")
	fs.Bool(flags.FlagNoComments, false, "")
	fs.Bool(flags.FlagWritePerVideo, false, "")
	fs.Int(flags.FlagMaxVideos, 0, "")
	fs.Int(flags.FlagMaxConsecutiveErrors, 0, "")
	fs.Int(flags.FlagMaxErrors, 0, "")
	fs.Bool(flags.FlagNoSkipExisting, false, "")
	return fs
}

func TestFromViper_FlagValuesWin(t *testing.T) {
	fs := enrichFlagSet()
	if err := fs.Parse([]string{"--input", "a.json", "--sleep", "5s", "--no-comments", "--max-errors", "9"}); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}

	v, err := BindViper(fs, "")
	if err != nil {
		t.Fatalf("BindViper failed: %v", err)
	}
	cfg := FromViper(v)

	if cfg.Enrich.Input != "a.json" {
		t.Fatalf("Input = %q", cfg.Enrich.Input)
	}
	if cfg.Enrich.Sleep != 5*time.Second {
		t.Fatalf("Sleep = %v", cfg.Enrich.Sleep)
	}
	if cfg.Enrich.Comments {
		t.Fatalf("--no-comments should clear Comments")
	}
	if cfg.Enrich.MaxErrors != 9 {
		t.Fatalf("MaxErrors = %d", cfg.Enrich.MaxErrors)
	}
	// Unset flags keep defaults.
	if cfg.Enrich.Jitter != 1500*time.Millisecond {
		t.Fatalf("Jitter = %v", cfg.Enrich.Jitter)
	}
}

func TestFromViper_EnvironmentOverridesDefault(t *testing.T) {
	t.Setenv("CLIPMETA_USER_AGENT", "UA-from-env/1.0")
	t.Setenv("CLIPMETA_SLEEP", "7s")

	v, err := BindViper(enrichFlagSet(), "")
	if err != nil {
		t.Fatalf("BindViper failed: %v", err)
	}
	cfg := FromViper(v)

	if cfg.Enrich.UserAgent != "UA-from-env/1.0" {
		t.Fatalf("UserAgent = %q", cfg.Enrich.UserAgent)
	}
	if cfg.Enrich.Sleep != 7*time.Second {
		t.Fatalf("Sleep = %v", cfg.Enrich.Sleep)
	}
}

func TestFromViper_ExplicitFlagBeatsEnvironment(t *testing.T) {
	t.Setenv("CLIPMETA_SLEEP", "7s")

	fs := enrichFlagSet()
	if err := fs.Parse([]string{"--sleep", "1s"}); err != nil {
		t.Fatalf("parsing flags: %v", err)
	}

	v, err := BindViper(fs, "")
	if err != nil {
		t.Fatalf("BindViper failed: %v", err)
	}

	if got := FromViper(v).Enrich.Sleep; got != time.Second {
		t.Fatalf("Sleep = %v, want flag value 1s", got)
	}
}

func TestBindViper_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clipmeta.toml")
	content := "input = \"from-file.json\"\nproxy = \"http://proxy:8080\"\n\"max-consecutive-errors\" = 4\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	v, err := BindViper(enrichFlagSet(), path)
	if err != nil {
		t.Fatalf("BindViper failed: %v", err)
	}
	cfg := FromViper(v)

	if cfg.Enrich.Input != "from-file.json" {
		t.Fatalf("Input = %q", cfg.Enrich.Input)
	}
	if cfg.Enrich.Proxy != "http://proxy:8080" {
		t.Fatalf("Proxy = %q", cfg.Enrich.Proxy)
	}
	if cfg.Enrich.MaxConsecutiveErrors != 4 {
		t.Fatalf("MaxConsecutiveErrors = %d", cfg.Enrich.MaxConsecutiveErrors)
	}
}

func TestBindViper_MissingConfigFile_Errors(t *testing.T) {
	if _, err := BindViper(enrichFlagSet(), filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

package config

import (
	"strings"
	"time"

	"clipmeta/internal/flags"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields that affect
	// enrich behavior, keep these in sync:
	// - CLI flags in internal/cli/enrich.go
	// - viper defaults/binding below (SetDefaults, FromViper)
	Enrich  Enrich
	Runtime Runtime
}

type Enrich struct {
	// Input is the path to the seed-run JSON document (see --input).
	Input string

	// OutDir is the run output directory (see --out). Per-video artifacts
	// land in its per_video/ subdirectory.
	OutDir string

	// Sleep is the base delay between videos (see --sleep).
	Sleep time.Duration

	// Jitter bounds the random extra delay added to Sleep (see --jitter).
	// Each pause sleeps Sleep + uniform[0, Jitter).
	Jitter time.Duration

	// Timeout bounds one yt-dlp invocation (see --timeout).
	Timeout time.Duration

	// UserAgent overrides the client signature yt-dlp presents (see --user-agent).
	UserAgent string

	// Proxy is an optional proxy URL passed to yt-dlp (see --proxy).
	Proxy string

	// YtdlpPath is the yt-dlp binary to invoke (see --ytdlp).
	YtdlpPath string

	// Comments requests comment extraction; the remote service often
	// silently ignores it (cleared by --no-comments).
	Comments bool

	// WritePerVideo persists one artifact per successful video as it is
	// produced (see --write-per-video). Required for resume to be useful.
	WritePerVideo bool

	// MaxVideos caps how many videos to process (see --max-videos). 0 = no cap.
	MaxVideos int

	// MaxConsecutiveErrors stops the run early after this many consecutive
	// failures (see --max-consecutive-errors). 0 disables the check.
	MaxConsecutiveErrors int

	// MaxErrors stops the run early once this many total failures accrue
	// (see --max-errors). 0 disables the check.
	MaxErrors int

	// SkipExisting filters out videos that already have a per-video
	// artifact from a prior run (cleared by --no-skip-existing).
	SkipExisting bool
}

type Runtime struct {
	// Verbose enables debug-level diagnostics (prints every yt-dlp
	// invocation and full error details).
	Verbose bool

	// LogJSON switches diagnostics from the console format to JSON lines.
	LogJSON bool

	// NoColor disables colored console output.
	NoColor bool
}

func New() *Config {
	return &Config{
		Enrich: Enrich{
			OutDir:       "outputs/enriched",
			Sleep:        2 * time.Second,
			Jitter:       1500 * time.Millisecond,
			Timeout:      3 * time.Minute,
			YtdlpPath:    "yt-dlp",
			Comments:     true,
			SkipExisting: true,
		},
	}
}

// EnvPrefix is the environment namespace for overrides, e.g.
// CLIPMETA_USER_AGENT maps to the user-agent key.
const EnvPrefix = "CLIPMETA"

// SetDefaults seeds v with the same defaults New produces, keyed by flag
// name.
func SetDefaults(v *viper.Viper) {
	def := New()
	v.SetDefault(flags.FlagOut, def.Enrich.OutDir)
	v.SetDefault(flags.FlagSleep, def.Enrich.Sleep)
	v.SetDefault(flags.FlagJitter, def.Enrich.Jitter)
	v.SetDefault(flags.FlagTimeout, def.Enrich.Timeout)
	v.SetDefault(flags.FlagYtdlp, def.Enrich.YtdlpPath)
}

// BindViper builds the layered settings source for the enrich command.
// Precedence: explicit flag > environment > config file > default.
func BindViper(fs *pflag.FlagSet, configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", configFile)
		}
	}

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, errors.Wrap(err, "binding flags")
		}
	}
	return v, nil
}

// FromViper materializes a Config from the layered source built by
// BindViper.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Enrich: Enrich{
			Input:                v.GetString(flags.FlagInput),
			OutDir:               v.GetString(flags.FlagOut),
			Sleep:                v.GetDuration(flags.FlagSleep),
			Jitter:               v.GetDuration(flags.FlagJitter),
			Timeout:              v.GetDuration(flags.FlagTimeout),
			UserAgent:            v.GetString(flags.FlagUserAgent),
			Proxy:                v.GetString(flags.FlagProxy),
			YtdlpPath:            v.GetString(flags.FlagYtdlp),
			Comments:             !v.GetBool(flags.FlagNoComments),
			WritePerVideo:        v.GetBool(flags.FlagWritePerVideo),
			MaxVideos:            v.GetInt(flags.FlagMaxVideos),
			MaxConsecutiveErrors: v.GetInt(flags.FlagMaxConsecutiveErrors),
			MaxErrors:            v.GetInt(flags.FlagMaxErrors),
			SkipExisting:         !v.GetBool(flags.FlagNoSkipExisting),
		},
		Runtime: Runtime{
			Verbose: v.GetBool(flags.FlagVerbose),
			LogJSON: v.GetBool(flags.FlagLogJSON),
			NoColor: v.GetBool(flags.FlagNoColor),
		},
	}
}

func (c *Config) Validate() error {
	c.Enrich.Input = strings.TrimSpace(c.Enrich.Input)
	c.Enrich.OutDir = strings.TrimSpace(c.Enrich.OutDir)

	if c.Enrich.Input == "" {
		return errors.New("--input is required")
	}
	if c.Enrich.OutDir == "" {
		return errors.New("--out must not be empty")
	}
	if c.Enrich.Sleep < 0 {
		return errors.New("--sleep must be >= 0")
	}
	if c.Enrich.Jitter < 0 {
		return errors.New("--jitter must be >= 0")
	}
	if c.Enrich.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}
	if c.Enrich.YtdlpPath == "" {
		return errors.New("--ytdlp must not be empty")
	}
	if c.Enrich.MaxVideos < 0 {
		return errors.New("--max-videos must be >= 0")
	}
	if c.Enrich.MaxConsecutiveErrors < 0 {
		return errors.New("--max-consecutive-errors must be >= 0")
	}
	if c.Enrich.MaxErrors < 0 {
		return errors.New("--max-errors must be >= 0")
	}
	return nil
}

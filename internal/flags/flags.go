package flags

// Package flags defines canonical CLI flag names shared across the CLI and
// config layers. Viper keys for environment/config-file overrides are these
// same names, so keeping them as constants avoids drift between Cobra flag
// wiring and config binding.
// IMPORTANT: These are flag *names* without leading dashes.
const (
	// Enrich
	FlagInput                = "input"
	FlagOut                  = "out"
	FlagSleep                = "sleep"
	FlagJitter               = "jitter"
	FlagTimeout              = "timeout"
	FlagUserAgent            = "user-agent"
	FlagProxy                = "proxy"
	FlagYtdlp                = "ytdlp"
	FlagNoComments           = "no-comments"
	FlagWritePerVideo        = "write-per-video"
	FlagMaxVideos            = "max-videos"
	FlagMaxConsecutiveErrors = "max-consecutive-errors"
	FlagMaxErrors            = "max-errors"
	FlagNoSkipExisting       = "no-skip-existing"
	FlagConfig               = "config"

	// CSV projections
	FlagIn     = "in"
	FlagPrefix = "prefix"

	// Runtime
	FlagVerbose = "verbose"
	FlagLogJSON = "log-json"
	FlagNoColor = "no-color"
)

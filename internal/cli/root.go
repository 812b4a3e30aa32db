package cli

import (
	"fmt"
	"os"

	"clipmeta/internal/flags"
	"clipmeta/internal/logging"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var (
	rootVerbose bool
	rootLogJSON bool
	rootNoColor bool
)

var rootCmd = &cobra.Command{
	Use:   "clipmeta",
	Short: "Enrich short-video identifiers with per-video metadata and flatten results to CSV",
	Long: `Clipmeta enriches a seed-run's video identifiers with per-video metadata
fetched through yt-dlp, then flattens the results into tabular form.

Enrichment is resumable and rate-limit aware: it skips videos already
fetched by a prior run, paces requests with a jittered delay, and stops
early when consecutive failures suggest the service is blocking requests.

Examples:
	# Show available commands and global flags
	clipmeta --help

	# Enrich a seed run, writing one artifact per video
	clipmeta enrich --input outputs/raw/seed_users.json --write-per-video

	# Flatten enriched output into one CSV
	clipmeta csv videos --in outputs/enriched --out outputs/csv_out/video_data

	# Print build info
	clipmeta version

Output:
	Per-item progress goes to stdout; diagnostics go to stderr (raw JSON
	lines with --log-json). Colors honor --no-color and NO_COLOR.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if rootNoColor {
			color.NoColor = true
		}
		logging.Setup(logging.Config{Verbose: rootVerbose, JSON: rootLogJSON})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&rootVerbose, flags.FlagVerbose, false, "Enable verbose logging (prints every yt-dlp invocation and full error details)")
	rootCmd.PersistentFlags().BoolVar(&rootLogJSON, flags.FlagLogJSON, false, "Emit diagnostics as JSON lines instead of the console format")
	rootCmd.PersistentFlags().BoolVar(&rootNoColor, flags.FlagNoColor, false, "Disable colored output")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

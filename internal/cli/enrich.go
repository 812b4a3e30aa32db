package cli

import (
	"fmt"
	"os"
	"time"

	"clipmeta/internal/config"
	"clipmeta/internal/engine"
	"clipmeta/internal/flags"
	"clipmeta/internal/logging"
	"clipmeta/internal/output"
	"clipmeta/internal/seed"
	"clipmeta/internal/ytdlp"

	"github.com/spf13/cobra"
)

var enrichConfigFile string

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Fetch per-video metadata for every video in a seed-run document",
	Long: `Enrich a seed-run JSON document with per-video metadata via yt-dlp.

The seed document (results[].videos[] with video_id/url) is reduced to a
deduplicated working set; each video is fetched once, strictly in order,
with a polite delay between requests. Videos that already have a per-video
artifact from a prior run are skipped unless --no-skip-existing is set.

Settings:
	Every flag can also come from the environment (CLIPMETA_<FLAG> with
	dashes as underscores, e.g. CLIPMETA_USER_AGENT) or a TOML file passed
	via --config. Precedence: flag > environment > file > default.

Failure handling:
	Per-video failures are recorded in the run summary, never retried.
	--max-consecutive-errors and --max-errors stop a run early when the
	service appears to be blocking requests; 0 disables either check.

Exit codes:
	0 = run completed (or stopped early) and the summary was written
	2 = setup error before fetching (bad flags, unreadable input document)
	3 = run finished but the summary could not be written

Examples:
  clipmeta enrich --input outputs/raw/seed_users.json --write-per-video

  # Resume an interrupted run: already-written videos are skipped
  clipmeta enrich --input outputs/raw/seed_users.json --write-per-video

  # Slow down and bail out if the service starts blocking
  clipmeta enrich --input seed.json --sleep 4s --jitter 3s --max-consecutive-errors 5
`,
	Run: func(cmd *cobra.Command, args []string) {
		v, err := config.BindViper(cmd.Flags(), enrichConfigFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		cfg := config.FromViper(v)
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
		os.Exit(runEnrich(cmd, cfg))
	},
}

// runEnrich is the enrich command body; it returns the process exit code.
func runEnrich(cmd *cobra.Command, cfg *config.Config) int {
	log := logging.For("enrich")
	console := output.NewConsole(cmd.OutOrStdout())

	doc, err := seed.Load(cfg.Enrich.Input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}
	items := doc.WorkItems()

	store, err := output.NewArtifactStore(cfg.Enrich.OutDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2
	}

	skipped := 0
	if cfg.Enrich.SkipExisting {
		ledger, err := engine.LoadLedger(store.PerVideoDir())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 2
		}
		items, skipped = ledger.Filter(items)
	}
	if cfg.Enrich.MaxVideos > 0 && len(items) > cfg.Enrich.MaxVideos {
		items = items[:cfg.Enrich.MaxVideos]
	}

	console.Foundf("Found %d unique videos to enrich (%d already done, skipped)", len(items), skipped)

	opts := []engine.Option{
		engine.WithPacing(cfg.Enrich.Sleep, cfg.Enrich.Jitter),
		engine.WithThresholds(cfg.Enrich.MaxConsecutiveErrors, cfg.Enrich.MaxErrors),
		engine.WithReporter(console),
		engine.WithLogger(log),
	}
	if cfg.Enrich.WritePerVideo {
		if err := store.EnsurePerVideoDir(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 2
		}
		opts = append(opts, engine.WithArtifactWriter(store))
	}

	invoker := ytdlp.New(ytdlp.Options{
		Binary:    cfg.Enrich.YtdlpPath,
		Timeout:   cfg.Enrich.Timeout,
		UserAgent: cfg.Enrich.UserAgent,
		Proxy:     cfg.Enrich.Proxy,
		Comments:  cfg.Enrich.Comments,
	}, logging.For("ytdlp"))

	sum := engine.NewDriver(invoker, opts...).Run(cmd.Context(), items)
	sum.SourceInput = cfg.Enrich.Input
	sum.SkippedExisting = skipped
	sum.AttemptedComments = cfg.Enrich.Comments

	path, err := store.WriteSummary(sum, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 3
	}
	console.Done(path, sum)
	return 0
}

func init() {
	rootCmd.AddCommand(enrichCmd)

	// MAINTAINER NOTE: flag names double as viper keys; if you change any
	// here, keep internal/config (SetDefaults, FromViper) in sync.
	def := config.New()
	enrichCmd.Flags().String(flags.FlagInput, "", "Path to the seed-run JSON document (required)")
	enrichCmd.Flags().String(flags.FlagOut, def.Enrich.OutDir, "Output directory for artifacts")
	enrichCmd.Flags().Duration(flags.FlagSleep, def.Enrich.Sleep, "Base delay between videos")
	enrichCmd.Flags().Duration(flags.FlagJitter, def.Enrich.Jitter, "Random extra delay in [0, jitter) added to --sleep")
	enrichCmd.Flags().Duration(flags.FlagTimeout, def.Enrich.Timeout, "yt-dlp timeout per video")
	enrichCmd.Flags().String(flags.FlagUserAgent, "", "Custom User-Agent passed to yt-dlp")
	enrichCmd.Flags().String(flags.FlagProxy, "", "Proxy URL passed to yt-dlp (e.g. http://host:port)")
	enrichCmd.Flags().String(flags.FlagYtdlp, def.Enrich.YtdlpPath, "yt-dlp binary to invoke")
	enrichCmd.Flags().Bool(flags.FlagNoComments, false, "Do not attempt comment extraction")
	enrichCmd.Flags().Bool(flags.FlagWritePerVideo, false, "Write one JSON artifact per video in <out>/per_video/")
	enrichCmd.Flags().Int(flags.FlagMaxVideos, 0, "Cap on videos to process (0 = no cap)")
	enrichCmd.Flags().Int(flags.FlagMaxConsecutiveErrors, 0, "Stop early after this many consecutive errors (0 = disabled)")
	enrichCmd.Flags().Int(flags.FlagMaxErrors, 0, "Stop early after this many total errors (0 = disabled)")
	enrichCmd.Flags().Bool(flags.FlagNoSkipExisting, false, "Refetch videos that already have a per-video artifact")
	enrichCmd.Flags().StringVar(&enrichConfigFile, flags.FlagConfig, "", "Optional TOML config file")

	// --input is required but deliberately not MarkFlagRequired'd: it may
	// also arrive via CLIPMETA_INPUT or the config file; Validate enforces
	// presence after layering.
}

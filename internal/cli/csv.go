package cli

import (
	"fmt"

	"clipmeta/internal/export"
	"clipmeta/internal/flags"

	"github.com/spf13/cobra"
)

var csvCmd = &cobra.Command{
	Use:   "csv",
	Short: "Flatten JSON output into CSV files",
}

var (
	csvVideosIn     string
	csvVideosOut    string
	csvVideosPrefix string
)

var csvVideosCmd = &cobra.Command{
	Use:   "videos",
	Short: "Flatten enriched video metadata into one CSV",
	Long: `Flatten enriched video metadata into one CSV row per video.

Accepts either a batch summary file (videos_enriched_<ts>.json) or a
directory of per-video artifacts (recursively collects *.json). Large
yt-dlp lists are summarized: the formats list becomes the best format by
(height, bitrate, filesize); the thumbnails list becomes the cover image.

Examples:
  clipmeta csv videos --in outputs/enriched/videos_enriched_20260201_214501.json --out outputs/csv_out/video_data
  clipmeta csv videos --in outputs/enriched/per_video --out outputs/csv_out/video_data
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, rows, err := export.Videos(cmd.Context(), export.VideosOptions{
			Input:  csvVideosIn,
			OutDir: csvVideosOut,
			Prefix: csvVideosPrefix,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (rows=%d)\n", path, rows)
		return nil
	},
}

var (
	csvUsersIn     string
	csvUsersOut    string
	csvUsersPrefix string
)

var csvUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Flatten a seed-run document into one CSV row per video",
	Long: `Flatten a seed-run JSON document into one CSV row per video, with the
owning user's columns attached to every row.

Examples:
  clipmeta csv users --in outputs/raw/seed_users.json --out outputs/csv_out/user_data
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, rows, err := export.Users(export.UsersOptions{
			Input:  csvUsersIn,
			OutDir: csvUsersOut,
			Prefix: csvUsersPrefix,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (rows=%d)\n", path, rows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(csvCmd)
	csvCmd.AddCommand(csvVideosCmd)
	csvCmd.AddCommand(csvUsersCmd)

	csvVideosCmd.Flags().StringVar(&csvVideosIn, flags.FlagIn, "", "Input JSON file or directory of per-video artifacts")
	csvVideosCmd.Flags().StringVar(&csvVideosOut, flags.FlagOut, "", "Output directory for the CSV")
	csvVideosCmd.Flags().StringVar(&csvVideosPrefix, flags.FlagPrefix, "videos_enriched", "Output filename prefix")
	_ = csvVideosCmd.MarkFlagRequired(flags.FlagIn)
	_ = csvVideosCmd.MarkFlagRequired(flags.FlagOut)

	csvUsersCmd.Flags().StringVar(&csvUsersIn, flags.FlagIn, "", "Input seed-run JSON file")
	csvUsersCmd.Flags().StringVar(&csvUsersOut, flags.FlagOut, "", "Output directory for the CSV")
	csvUsersCmd.Flags().StringVar(&csvUsersPrefix, flags.FlagPrefix, "user_videos", "Output filename prefix")
	_ = csvUsersCmd.MarkFlagRequired(flags.FlagIn)
	_ = csvUsersCmd.MarkFlagRequired(flags.FlagOut)
}

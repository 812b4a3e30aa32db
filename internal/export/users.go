package export

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"clipmeta/internal/seed"

	"github.com/cockroachdb/errors"
)

// userColumns is one row per video with the owning user's columns
// attached, plus seed-run metadata repeated on every row.
var userColumns = []string{
	"run_started_at", "run_finished_at", "seed_file",
	"requested_max_videos",
	"user_count_requested", "user_count_succeeded", "user_count_failed",

	"user_scraped_at", "user_source", "username", "profile_url",

	"video_id", "url", "title", "caption",
	"timestamp", "upload_date", "duration_sec",
	"uploader", "uploader_id",
	"view_count", "like_count", "comment_count", "repost_count",
	"hashtags",
}

type UsersOptions struct {
	// Input is a seed-run JSON document.
	Input string

	// OutDir receives the CSV; created if missing.
	OutDir string

	// Prefix names the output file: <prefix>_<stamp>.csv.
	Prefix string
}

// Users flattens a seed-run document to one CSV row per video and returns
// the written path and row count. The filename stamp comes from the run
// start time when parsable, else now.
func Users(opts UsersOptions) (string, int, error) {
	if opts.Prefix == "" {
		opts.Prefix = "user_videos"
	}

	doc, err := seed.Load(opts.Input)
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return "", 0, errors.Wrapf(err, "creating output directory %s", opts.OutDir)
	}

	meta := map[string]string{
		"run_started_at":       string(doc.RunStartedAt),
		"run_finished_at":      string(doc.RunFinishedAt),
		"seed_file":            string(doc.SeedFile),
		"requested_max_videos": string(doc.RequestedMaxVideos),
		"user_count_requested": string(doc.UserCountRequested),
		"user_count_succeeded": string(doc.UserCountSucceeded),
		"user_count_failed":    string(doc.UserCountFailed),
	}

	var rows []map[string]string
	for _, r := range doc.Results {
		profileURL := ""
		if r.Profile != nil {
			profileURL = string(r.Profile.ProfileURL)
		}
		for _, v := range r.Videos {
			row := make(map[string]string, len(userColumns))
			for k, mv := range meta {
				row[k] = mv
			}
			row["user_scraped_at"] = string(r.ScrapedAt)
			row["user_source"] = string(r.Source)
			// A result with no resolvable handle leaves the cell empty.
			row["username"] = r.Owner()
			row["profile_url"] = profileURL

			row["video_id"] = string(v.VideoID)
			row["url"] = string(v.URL)
			row["title"] = string(v.Title)
			row["caption"] = string(v.Caption)
			row["timestamp"] = string(v.Timestamp)
			row["upload_date"] = string(v.UploadDate)
			row["duration_sec"] = string(v.DurationSec)
			row["uploader"] = string(v.Uploader)
			row["uploader_id"] = string(v.UploaderID)
			row["view_count"] = string(v.ViewCount)
			row["like_count"] = string(v.LikeCount)
			row["comment_count"] = string(v.CommentCount)
			row["repost_count"] = string(v.RepostCount)
			row["hashtags"] = strings.Join(v.Hashtags, ",")
			rows = append(rows, row)
		}
	}

	stamp := time.Now()
	if t, ok := parseISO(string(doc.RunStartedAt)); ok {
		stamp = t
	}
	out := filepath.Join(opts.OutDir, opts.Prefix+"_"+stamp.Format(stampLayout)+".csv")
	if err := writeCSV(out, userColumns, rows); err != nil {
		return "", 0, err
	}
	return out, len(rows), nil
}

package export

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// parseWorkers bounds the concurrent artifact reads in directory mode.
// Only local files are touched here; the sequential discipline of the
// enrichment loop does not apply.
const parseWorkers = 8

// videoColumns is the flat schema: run metadata first, then identity,
// then the selected yt-dlp fields and list summaries. Batch inputs leave
// source_file empty; per-video inputs leave the run metadata empty.
var videoColumns = []string{
	"run_started_at", "source_input",
	"video_count_requested", "video_count_succeeded", "video_count_failed",
	"attempted_comments", "skipped_existing", "source_file",

	"video_id", "url", "username", "scraped_at",

	"yt_id", "title", "description", "timestamp", "duration",
	"view_count", "like_count", "comment_count", "repost_count", "save_count",

	"channel", "channel_id", "uploader", "uploader_id",

	"track", "album", "artists",

	"best_format_id", "best_ext", "best_vcodec", "best_acodec",
	"best_width", "best_height", "best_tbr", "best_filesize",

	"thumb_id", "thumb_url",

	"webpage_url", "original_url", "extractor", "extractor_key",
}

type VideosOptions struct {
	// Input is a batch summary file or a directory of per-video artifacts.
	Input string

	// OutDir receives the CSV; created if missing.
	OutDir string

	// Prefix names the output file: <prefix>_<stamp>.csv.
	Prefix string
}

// Videos flattens enriched video metadata to one CSV and returns the
// written path and row count. The filename stamp is the run start time
// when available, else the earliest scraped_at, else now.
func Videos(ctx context.Context, opts VideosOptions) (string, int, error) {
	if opts.Prefix == "" {
		opts.Prefix = "videos_enriched"
	}

	files, err := inputFiles(opts.Input)
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
		return "", 0, errors.Wrapf(err, "creating output directory %s", opts.OutDir)
	}

	type fileRows struct {
		rows  []map[string]string
		times []time.Time
	}
	parsed := make([]fileRows, len(files))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parseWorkers)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rows, times, err := videoRowsFromFile(path)
			if err != nil {
				return err
			}
			parsed[i] = fileRows{rows: rows, times: times}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", 0, err
	}

	// Merge in input path order so output is deterministic regardless of
	// parse completion order.
	var rows []map[string]string
	var earliest time.Time
	for _, fr := range parsed {
		rows = append(rows, fr.rows...)
		for _, t := range fr.times {
			if earliest.IsZero() || t.Before(earliest) {
				earliest = t
			}
		}
	}
	if earliest.IsZero() {
		earliest = time.Now()
	}

	out := filepath.Join(opts.OutDir, opts.Prefix+"_"+earliest.Format(stampLayout)+".csv")
	if err := writeCSV(out, videoColumns, rows); err != nil {
		return "", 0, err
	}
	return out, len(rows), nil
}

// inputFiles resolves the input to an ordered list of JSON files: the
// file itself, or every *.json below a directory, sorted by path.
func inputFiles(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, errors.Wrapf(err, "reading input %s", input)
	}
	if !info.IsDir() {
		return []string{input}, nil
	}

	var files []string
	err = filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".json" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walking %s", input)
	}
	sort.Strings(files)
	return files, nil
}

// videoRowsFromFile converts one input file into rows plus any timestamp
// candidates it contributes to the output filename.
func videoRowsFromFile(path string) ([]map[string]string, []time.Time, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "reading %s", path)
	}
	doc, err := decodeJSONMap(raw)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "parsing %s", path)
	}

	var times []time.Time

	// Batch summary: run metadata attaches to every row.
	if results, ok := doc["results"].([]any); ok {
		if t, ok := parseISO(cell(doc["run_started_at"])); ok {
			times = append(times, t)
		}
		meta := map[string]string{
			"run_started_at":        cell(doc["run_started_at"]),
			"source_input":          cell(doc["source_input"]),
			"video_count_requested": cell(doc["video_count_requested"]),
			"video_count_succeeded": cell(doc["video_count_succeeded"]),
			"video_count_failed":    cell(doc["video_count_failed"]),
			"attempted_comments":    cell(doc["attempted_comments"]),
			"skipped_existing":      cell(doc["skipped_existing"]),
		}
		var rows []map[string]string
		for _, item := range results {
			rec, ok := item.(map[string]any)
			if !ok {
				continue
			}
			rows = append(rows, videoRow(rec, meta))
		}
		return rows, times, nil
	}

	// Single per-video artifact.
	if t, ok := parseISO(cell(doc["scraped_at"])); ok {
		times = append(times, t)
	}
	meta := map[string]string{"source_file": filepath.Base(path)}
	return []map[string]string{videoRow(doc, meta)}, times, nil
}

// videoRow projects one enriched record (artifact or summary entry) onto
// the flat schema.
func videoRow(item map[string]any, meta map[string]string) map[string]string {
	yt, _ := item["yt_dlp"].(map[string]any)

	row := make(map[string]string, len(videoColumns))
	for k, v := range meta {
		row[k] = v
	}

	row["video_id"] = firstNonEmpty(cell(item["video_id"]), cell(yt["id"]))
	row["url"] = firstNonEmpty(cell(item["url"]), cell(yt["webpage_url"]), cell(yt["original_url"]))
	row["username"] = firstNonEmpty(cell(item["username"]), cell(yt["uploader"]))
	row["scraped_at"] = cell(item["scraped_at"])

	row["yt_id"] = cell(yt["id"])
	for _, key := range []string{
		"title", "description", "timestamp", "duration",
		"view_count", "like_count", "comment_count", "repost_count", "save_count",
		"channel", "channel_id", "uploader", "uploader_id",
		"track", "album",
		"webpage_url", "original_url", "extractor", "extractor_key",
	} {
		row[key] = cell(yt[key])
	}
	row["artists"] = joinList(yt["artists"])

	bestFormat(yt["formats"], row)
	coverThumbnail(yt["thumbnails"], row)
	return row
}

// bestFormat summarizes the formats list by its best entry, ranked by
// (height, tbr, filesize) lexicographically.
func bestFormat(v any, row map[string]string) {
	formats, ok := v.([]any)
	if !ok || len(formats) == 0 {
		return
	}

	type score struct {
		height   int64
		tbr      float64
		filesize int64
	}
	better := func(a, b score) bool {
		if a.height != b.height {
			return a.height > b.height
		}
		if a.tbr != b.tbr {
			return a.tbr > b.tbr
		}
		return a.filesize > b.filesize
	}

	var best map[string]any
	bestScore := score{-1, -1, -1}
	for _, f := range formats {
		fmtMap, ok := f.(map[string]any)
		if !ok {
			continue
		}
		s := score{
			height:   numInt(fmtMap["height"]),
			tbr:      numFloat(fmtMap["tbr"]),
			filesize: numInt(fmtMap["filesize"]),
		}
		if s.filesize == 0 {
			s.filesize = numInt(fmtMap["filesize_approx"])
		}
		if better(s, bestScore) {
			bestScore, best = s, fmtMap
		}
	}
	if best == nil {
		return
	}

	row["best_format_id"] = cell(best["format_id"])
	row["best_ext"] = cell(best["ext"])
	row["best_vcodec"] = cell(best["vcodec"])
	row["best_acodec"] = cell(best["acodec"])
	row["best_width"] = cell(best["width"])
	row["best_height"] = cell(best["height"])
	row["best_tbr"] = cell(best["tbr"])
	// filesize 0 or null falls through to the approximate size.
	filesize := cell(best["filesize"])
	if numInt(best["filesize"]) == 0 {
		filesize = cell(best["filesize_approx"])
	}
	row["best_filesize"] = filesize
}

// coverThumbnail picks the cover image when the extractor labels one
// (cover, then originCover, then dynamicCover), else the first entry.
func coverThumbnail(v any, row map[string]string) {
	thumbs, ok := v.([]any)
	if !ok || len(thumbs) == 0 {
		return
	}
	byID := make(map[string]map[string]any)
	for _, t := range thumbs {
		tm, ok := t.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := tm["id"].(string); ok {
			byID[id] = tm
		}
	}

	var pick map[string]any
	for _, id := range []string{"cover", "originCover", "dynamicCover"} {
		if tm, ok := byID[id]; ok {
			pick = tm
			break
		}
	}
	if pick == nil {
		pick, _ = thumbs[0].(map[string]any)
	}
	if pick == nil {
		return
	}
	row["thumb_id"] = cell(pick["id"])
	row["thumb_url"] = cell(pick["url"])
}

func numInt(v any) int64 {
	n, ok := v.(json.Number)
	if !ok {
		return 0
	}
	i, err := n.Int64()
	if err != nil {
		f, ferr := n.Float64()
		if ferr != nil {
			return 0
		}
		return int64(f)
	}
	return i
}

func numFloat(v any) float64 {
	n, ok := v.(json.Number)
	if !ok {
		return 0
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return 0
	}
	return f
}

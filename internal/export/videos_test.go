package export

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// readCSV returns rows keyed by column name.
func readCSV(t *testing.T, path string) []map[string]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, all)

	header := all[0]
	var rows []map[string]string
	for _, line := range all[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			row[col] = line[i]
		}
		rows = append(rows, row)
	}
	return rows
}

const batchDoc = `{
	"run_started_at": "2026-02-01T21:45:01+00:00",
	"source_input": "seed.json",
	"video_count_requested": 2,
	"video_count_succeeded": 2,
	"video_count_failed": 0,
	"attempted_comments": true,
	"skipped_existing": 1,
	"results": [
		{
			"video_id": "v1",
			"url": "https://example.com/v1",
			"username": "alice",
			"scraped_at": "2026-02-01T21:45:03+00:00",
			"yt_dlp": {
				"id": "v1",
				"title": "first",
				"view_count": 1200,
				"like_count": 34,
				"artists": ["A", "B"],
				"formats": [
					{"format_id": "low", "height": 360, "tbr": 500.5, "filesize": 100},
					{"format_id": "high", "height": 1080, "tbr": 2000.1, "ext": "mp4", "filesize_approx": 900}
				],
				"thumbnails": [
					{"id": "dynamicCover", "url": "https://img/dyn"},
					{"id": "cover", "url": "https://img/cover"}
				]
			}
		},
		{
			"video_id": "v2",
			"url": "https://example.com/v2",
			"username": "alice",
			"scraped_at": "2026-02-01T21:45:09+00:00",
			"yt_dlp": {"id": "v2", "title": "second"}
		}
	]
}`

func TestVideos_BatchFile(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "videos_enriched_x.json")
	writeJSON(t, in, batchDoc)
	outDir := filepath.Join(dir, "csv")

	path, n, err := Videos(context.Background(), VideosOptions{Input: in, OutDir: outDir})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Filename stamp comes from run_started_at.
	assert.Equal(t, "videos_enriched_20260201_214501.csv", filepath.Base(path))

	rows := readCSV(t, path)
	require.Len(t, rows, 2)

	first := rows[0]
	// Run metadata attaches to every row.
	assert.Equal(t, "2026-02-01T21:45:01+00:00", first["run_started_at"])
	assert.Equal(t, "seed.json", first["source_input"])
	assert.Equal(t, "1", first["skipped_existing"])
	assert.Equal(t, "true", first["attempted_comments"])
	assert.Empty(t, first["source_file"])

	// Identity and selected yt-dlp fields.
	assert.Equal(t, "v1", first["video_id"])
	assert.Equal(t, "alice", first["username"])
	assert.Equal(t, "first", first["title"])
	assert.Equal(t, "1200", first["view_count"])
	assert.Equal(t, "A,B", first["artists"])

	// Best format picked by (height, tbr, filesize); filesize falls back
	// to filesize_approx.
	assert.Equal(t, "high", first["best_format_id"])
	assert.Equal(t, "mp4", first["best_ext"])
	assert.Equal(t, "1080", first["best_height"])
	assert.Equal(t, "900", first["best_filesize"])

	// Cover thumbnail beats list order.
	assert.Equal(t, "cover", first["thumb_id"])
	assert.Equal(t, "https://img/cover", first["thumb_url"])

	// Absent fields are empty cells, not errors.
	second := rows[1]
	assert.Equal(t, "v2", second["video_id"])
	assert.Empty(t, second["best_format_id"])
	assert.Empty(t, second["thumb_url"])
}

func TestVideos_PerVideoDirectory(t *testing.T) {
	dir := t.TempDir()
	perVideo := filepath.Join(dir, "per_video")
	writeJSON(t, filepath.Join(perVideo, "v1.json"), `{
		"video_id": "v1", "url": "https://example.com/v1", "username": "alice",
		"scraped_at": "2026-02-01T10:00:00+00:00",
		"yt_dlp": {"id": "v1", "title": "one"}
	}`)
	writeJSON(t, filepath.Join(perVideo, "v2.json"), `{
		"video_id": "v2", "url": "https://example.com/v2", "username": "bob",
		"scraped_at": "2026-02-01T09:00:00+00:00",
		"yt_dlp": {"id": "v2", "title": "two"}
	}`)
	outDir := filepath.Join(dir, "csv")

	path, n, err := Videos(context.Background(), VideosOptions{Input: perVideo, OutDir: outDir})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Earliest scraped_at names the file.
	assert.Equal(t, "videos_enriched_20260201_090000.csv", filepath.Base(path))

	rows := readCSV(t, path)
	require.Len(t, rows, 2)
	// Deterministic path order regardless of parse completion order.
	assert.Equal(t, "v1", rows[0]["video_id"])
	assert.Equal(t, "v2", rows[1]["video_id"])
	assert.Equal(t, "v1.json", rows[0]["source_file"])
	assert.Empty(t, rows[0]["run_started_at"])
}

func TestVideos_FieldFallbacks_FromOpaqueMetadata(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "v.json")
	// Wrapper identity fields missing: fall back into the yt_dlp payload.
	writeJSON(t, in, `{
		"scraped_at": "2026-02-01T10:00:00+00:00",
		"yt_dlp": {"id": "deep", "webpage_url": "https://example.com/deep", "uploader": "carol"}
	}`)

	path, _, err := Videos(context.Background(), VideosOptions{Input: in, OutDir: dir})
	require.NoError(t, err)

	rows := readCSV(t, path)
	require.Len(t, rows, 1)
	assert.Equal(t, "deep", rows[0]["video_id"])
	assert.Equal(t, "https://example.com/deep", rows[0]["url"])
	assert.Equal(t, "carol", rows[0]["username"])
}

func TestVideos_CustomPrefix(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "v.json")
	writeJSON(t, in, `{"video_id": "v1", "scraped_at": "2026-02-01T10:00:00+00:00", "yt_dlp": {}}`)

	path, _, err := Videos(context.Background(), VideosOptions{Input: in, OutDir: dir, Prefix: "custom"})
	require.NoError(t, err)
	assert.Equal(t, "custom_20260201_100000.csv", filepath.Base(path))
}

func TestVideos_MissingInput_Errors(t *testing.T) {
	dir := t.TempDir()
	_, _, err := Videos(context.Background(), VideosOptions{
		Input:  filepath.Join(dir, "nope.json"),
		OutDir: dir,
	})
	assert.Error(t, err)
}

func TestVideos_UnparsableFile_Errors(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "bad.json")
	writeJSON(t, in, "{nope")

	_, _, err := Videos(context.Background(), VideosOptions{Input: in, OutDir: dir})
	assert.Error(t, err)
}

func TestBestFormat_NumberEdgeCases(t *testing.T) {
	row := map[string]string{}
	m, err := decodeJSONMap([]byte(`{"formats": [
		{"format_id": "nulls", "height": null, "tbr": null},
		{"format_id": "floaty", "height": 720, "tbr": 1000.5}
	]}`))
	require.NoError(t, err)

	bestFormat(m["formats"], row)
	assert.Equal(t, "floaty", row["best_format_id"])
	assert.Equal(t, "1000.5", row["best_tbr"])
}

func TestBestFormat_ZeroFilesizeFallsBackToApprox(t *testing.T) {
	row := map[string]string{}
	m, err := decodeJSONMap([]byte(`{"formats": [
		{"format_id": "only", "height": 720, "tbr": 500, "filesize": 0, "filesize_approx": 123456}
	]}`))
	require.NoError(t, err)

	bestFormat(m["formats"], row)
	assert.Equal(t, "only", row["best_format_id"])
	assert.Equal(t, "123456", row["best_filesize"])
}

func TestCoverThumbnail_FallsBackToFirst(t *testing.T) {
	row := map[string]string{}
	m, err := decodeJSONMap([]byte(`{"thumbnails": [
		{"id": "plain0", "url": "https://img/0"},
		{"id": "plain1", "url": "https://img/1"}
	]}`))
	require.NoError(t, err)

	coverThumbnail(m["thumbnails"], row)
	assert.Equal(t, "plain0", row["thumb_id"])
}

// Package record defines the data model shared by the enrichment engine,
// the artifact writer, and the CSV projections.
package record

import (
	"encoding/json"
	"time"
)

// WorkItem is one video to enrich: identifier, fetchable URL, and the
// owning account's handle. Identity is VideoID; items are immutable once
// extracted from the seed document.
type WorkItem struct {
	VideoID  string
	URL      string
	Username string
}

// Outcome is the result of a single fetch attempt for one WorkItem.
// Exactly one of the two arms is populated: Metadata on success, or
// Code/Message on failure. The engine never looks inside Metadata.
type Outcome struct {
	Metadata json.RawMessage
	Code     int
	Message  string
}

func Success(metadata json.RawMessage) Outcome {
	return Outcome{Metadata: metadata}
}

func Failure(code int, message string) Outcome {
	return Outcome{Code: code, Message: message}
}

func (o Outcome) Failed() bool {
	return o.Metadata == nil
}

// EnrichedRecord is the per-video artifact shape. Metadata is the raw
// yt-dlp info document, passed through uninterpreted.
type EnrichedRecord struct {
	VideoID   string          `json:"video_id"`
	URL       string          `json:"url"`
	Username  string          `json:"username"`
	ScrapedAt string          `json:"scraped_at"`
	Metadata  json.RawMessage `json:"yt_dlp"`
}

// ErrorRecord captures one failed fetch attempt as data.
type ErrorRecord struct {
	VideoID    string `json:"video_id"`
	URL        string `json:"url"`
	Username   string `json:"username"`
	ScrapedAt  string `json:"scraped_at"`
	ReturnCode int    `json:"returncode"`
	Message    string `json:"error"`
}

// RunSummary is the aggregate result of one enrichment run, written once
// at the end of the run. Results and Errors preserve processing order.
type RunSummary struct {
	RunID             string           `json:"run_id"`
	StartedAt         string           `json:"run_started_at"`
	FinishedAt        string           `json:"run_finished_at"`
	SourceInput       string           `json:"source_input"`
	Requested         int              `json:"video_count_requested"`
	Succeeded         int              `json:"video_count_succeeded"`
	Failed            int              `json:"video_count_failed"`
	SkippedExisting   int              `json:"skipped_existing"`
	AttemptedComments bool             `json:"attempted_comments"`
	StoppedEarly      bool             `json:"stopped_early"`
	StopReason        string           `json:"stop_reason,omitempty"`
	Results           []EnrichedRecord `json:"results"`
	Errors            []ErrorRecord    `json:"errors"`
}

// Timestamp renders t for artifact fields: RFC 3339 with sub-second
// precision, always UTC.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Package output owns run persistence and the user-facing console: the
// per-video artifacts a future run resumes from, the final run summary,
// and the per-item progress lines.
package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"clipmeta/internal/record"

	"github.com/cockroachdb/errors"
)

// PerVideoDirName is the subdirectory of the run output dir that holds
// one artifact per enriched video.
const PerVideoDirName = "per_video"

// summaryStampLayout names the summary file; local time, matching the
// sibling seed-run files.
const summaryStampLayout = "20060102_150405"

// ArtifactStore writes run artifacts under a fixed root directory.
type ArtifactStore struct {
	root string
}

// NewArtifactStore creates the run output directory if needed.
func NewArtifactStore(root string) (*ArtifactStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating output directory %s", root)
	}
	return &ArtifactStore{root: root}, nil
}

func (s *ArtifactStore) Root() string {
	return s.root
}

func (s *ArtifactStore) PerVideoDir() string {
	return filepath.Join(s.root, PerVideoDirName)
}

// EnsurePerVideoDir prepares the per-video directory for incremental
// writes. Call before the batch starts if per-video persistence is on.
func (s *ArtifactStore) EnsurePerVideoDir() error {
	if err := os.MkdirAll(s.PerVideoDir(), 0o755); err != nil {
		return errors.Wrapf(err, "creating per-video directory %s", s.PerVideoDir())
	}
	return nil
}

// WriteRecord persists one enriched video as per_video/<video_id>.json.
// An existing file is overwritten; with resume filtering on, a completed
// id never reaches the batch again, so overwrites only happen when the
// operator opted out of skipping.
func (s *ArtifactStore) WriteRecord(rec record.EnrichedRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encoding record %s", rec.VideoID)
	}
	path := filepath.Join(s.PerVideoDir(), rec.VideoID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", path)
	}
	return nil
}

// WriteSummary persists the aggregate run result as
// videos_enriched_<stamp>.json and returns the written path. A failure
// here is fatal to the run.
func (s *ArtifactStore) WriteSummary(sum *record.RunSummary, at time.Time) (string, error) {
	data, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "encoding run summary")
	}
	path := filepath.Join(s.root, "videos_enriched_"+at.Format(summaryStampLayout)+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "writing run summary %s", path)
	}
	return path, nil
}

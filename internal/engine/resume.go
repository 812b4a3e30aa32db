package engine

import (
	"io/fs"
	"os"
	"strings"

	"clipmeta/internal/record"

	"github.com/cockroachdb/errors"
)

// Ledger is the set of video ids already enriched by a prior run,
// reconstructed from per-video artifact filenames. Presence of the file is
// taken as proof of completion; contents are never read, so a corrupt
// artifact still counts as done.
type Ledger map[string]struct{}

// LoadLedger scans dir (non-recursive) for <video_id>.json entries. A
// missing directory yields an empty ledger, not an error.
func LoadLedger(dir string) (Ledger, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Ledger{}, nil
		}
		return nil, errors.Wrapf(err, "scanning per-video directory %s", dir)
	}

	led := make(Ledger, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		stem, ok := strings.CutSuffix(e.Name(), ".json")
		if !ok || stem == "" {
			continue
		}
		led[stem] = struct{}{}
	}
	return led, nil
}

func (l Ledger) Contains(id string) bool {
	_, ok := l[id]
	return ok
}

// Filter removes every item whose id is already in the ledger, preserving
// order, and reports how many were skipped.
func (l Ledger) Filter(items []record.WorkItem) (kept []record.WorkItem, skipped int) {
	if len(l) == 0 {
		return items, 0
	}
	kept = make([]record.WorkItem, 0, len(items))
	for _, item := range items {
		if l.Contains(item.VideoID) {
			skipped++
			continue
		}
		kept = append(kept, item)
	}
	return kept, skipped
}

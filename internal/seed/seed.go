// Package seed reads seed-run documents (the output of an upstream user
// scrape) and extracts the unique set of videos to enrich.
package seed

import (
	"encoding/json"
	"fmt"
	"os"

	"clipmeta/internal/record"

	"github.com/cockroachdb/errors"
)

const unknownOwner = "unknown"

// videoURLTemplate is the canonical watch URL synthesized when a seed entry
// carries an id but no direct url.
const videoURLTemplate = "https://www.tiktok.com/@%s/video/%s"

// Document is a seed-run file: run-level metadata plus one Result per
// scraped account. Unknown fields are ignored. Decoding is deliberately
// lenient: only a non-parsable file is fatal, an odd-typed or odd-shaped
// field degrades to its zero value and at worst drops the affected item.
type Document struct {
	RunStartedAt       FlexString `json:"run_started_at"`
	RunFinishedAt      FlexString `json:"run_finished_at"`
	SeedFile           FlexString `json:"seed_file"`
	RequestedMaxVideos FlexString `json:"requested_max_videos"`
	UserCountRequested FlexString `json:"user_count_requested"`
	UserCountSucceeded FlexString `json:"user_count_succeeded"`
	UserCountFailed    FlexString `json:"user_count_failed"`
	Results            Results    `json:"results"`
}

// Results tolerates a non-array value by decoding to nil.
type Results []Result

func (rs *Results) UnmarshalJSON(data []byte) error {
	type plain []Result
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		*rs = nil
		return nil
	}
	*rs = Results(p)
	return nil
}

// Videos tolerates a non-array value by decoding to nil.
type Videos []Video

func (vs *Videos) UnmarshalJSON(data []byte) error {
	type plain []Video
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		*vs = nil
		return nil
	}
	*vs = Videos(p)
	return nil
}

type Result struct {
	ScrapedAt FlexString `json:"scraped_at"`
	Source    FlexString `json:"source"`
	Username  FlexString `json:"username"`
	Profile   *Profile   `json:"profile"`
	Videos    Videos     `json:"videos"`
}

// UnmarshalJSON swallows non-object result entries instead of failing the
// whole document.
func (r *Result) UnmarshalJSON(data []byte) error {
	type plain Result
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		*r = Result{}
		return nil
	}
	*r = Result(p)
	return nil
}

type Profile struct {
	Username   FlexString `json:"username"`
	ProfileURL FlexString `json:"profile_url"`
}

func (p *Profile) UnmarshalJSON(data []byte) error {
	type plain Profile
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		*p = Profile{}
		return nil
	}
	*p = Profile(v)
	return nil
}

type Video struct {
	VideoID      FlexString  `json:"video_id"`
	URL          FlexString  `json:"url"`
	Title        FlexString  `json:"title"`
	Caption      FlexString  `json:"caption"`
	Timestamp    FlexString  `json:"timestamp"`
	UploadDate   FlexString  `json:"upload_date"`
	DurationSec  FlexString  `json:"duration_sec"`
	Uploader     FlexString  `json:"uploader"`
	UploaderID   FlexString  `json:"uploader_id"`
	ViewCount    FlexString  `json:"view_count"`
	LikeCount    FlexString  `json:"like_count"`
	CommentCount FlexString  `json:"comment_count"`
	RepostCount  FlexString  `json:"repost_count"`
	Hashtags     FlexStrings `json:"hashtags"`
}

// UnmarshalJSON swallows non-object video entries; with no id and no url
// they are dropped by WorkItems.
func (v *Video) UnmarshalJSON(data []byte) error {
	type plain Video
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		*v = Video{}
		return nil
	}
	*v = Video(p)
	return nil
}

// FlexString decodes any JSON scalar into a string: strings keep their
// value, numbers their literal, booleans render true/false. Upstream
// scrapers are inconsistent about field types, and an odd-typed field
// must never make the whole document unreadable; null and composite
// values become "".
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	*s = FlexString(flexScalar(data))
	return nil
}

func flexScalar(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	switch data[0] {
	case '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return ""
		}
		return v
	case '{', '[', 'n': // composite or null
		return ""
	default: // number or boolean: keep the literal
		return string(data)
	}
}

// FlexStrings decodes a JSON array into the scalar renderings of its
// elements, skipping nulls and composites. Non-array values become nil.
type FlexStrings []string

func (s *FlexStrings) UnmarshalJSON(data []byte) error {
	*s = nil
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	for _, el := range raw {
		if v := flexScalar(el); v != "" {
			*s = append(*s, v)
		}
	}
	return nil
}

// Load reads and parses a seed-run document. A missing, unreadable, or
// unparsable file is a fatal input error; the caller should not have made
// any network requests yet. Any parsable JSON object loads: unexpected
// field types never fail the document as a whole.
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading input document %s", path)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrapf(err, "parsing input document %s", path)
	}
	return &doc, nil
}

// Owner resolves the account handle for a result: profile.username,
// falling back to a top-level username. Empty when neither is present.
func (r Result) Owner() string {
	if r.Profile != nil && r.Profile.Username != "" {
		return string(r.Profile.Username)
	}
	return string(r.Username)
}

// WorkItems extracts the ordered, deduplicated working set from the
// document:
//   - entries with no url but an id and a resolvable owner get the
//     canonical watch URL synthesized;
//   - entries lacking an id or a derivable url are dropped;
//   - duplicates collapse to the first occurrence, preserving encounter
//     order across results.
//
// An empty slice is a valid outcome.
func (d *Document) WorkItems() []record.WorkItem {
	var out []record.WorkItem
	seen := make(map[string]struct{})
	for _, r := range d.Results {
		owner := r.Owner()
		if owner == "" {
			owner = unknownOwner
		}
		for _, v := range r.Videos {
			id := string(v.VideoID)
			url := string(v.URL)
			if url == "" && id != "" && owner != unknownOwner {
				url = fmt.Sprintf(videoURLTemplate, owner, id)
			}
			if id == "" || url == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, record.WorkItem{VideoID: id, URL: url, Username: owner})
		}
	}
	return out
}

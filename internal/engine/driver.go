// Package engine runs the enrichment batch: a strictly sequential loop
// over the working set with pacing between requests and early-stop
// detection when the remote service appears to be blocking us.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"clipmeta/internal/record"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Invoker performs one metadata fetch for one item. Implementations must
// classify every failure into the Outcome rather than returning an error.
type Invoker interface {
	Fetch(ctx context.Context, item record.WorkItem) record.Outcome
}

// ArtifactWriter persists one enriched record as soon as it is produced,
// making it visible to a future run's resume filter.
type ArtifactWriter interface {
	WriteRecord(rec record.EnrichedRecord) error
}

// Reporter receives per-item progress. Implementations write to the
// user-facing console; a nil reporter is replaced with a no-op.
type Reporter interface {
	ItemStart(i, n int, videoID string)
	ItemOK()
	ItemError(message string)
	EarlyStop(reason string)
}

type Driver struct {
	invoker        Invoker
	baseDelay      time.Duration
	jitter         time.Duration
	maxConsecutive int
	maxTotal       int
	artifacts      ArtifactWriter
	reporter       Reporter
	log            zerolog.Logger

	// seams for tests
	now       func() time.Time
	sleep     func(time.Duration)
	randFloat func() float64
}

type Option func(*Driver)

// WithPacing sets the inter-item delay: base plus a uniformly random
// extra in [0, jitter).
func WithPacing(base, jitter time.Duration) Option {
	return func(d *Driver) {
		d.baseDelay = base
		d.jitter = jitter
	}
}

// WithThresholds sets the early-stop limits. Zero disables a check.
func WithThresholds(consecutive, total int) Option {
	return func(d *Driver) {
		d.maxConsecutive = consecutive
		d.maxTotal = total
	}
}

// WithArtifactWriter enables per-item persistence of successful records.
func WithArtifactWriter(w ArtifactWriter) Option {
	return func(d *Driver) { d.artifacts = w }
}

func WithReporter(r Reporter) Option {
	return func(d *Driver) { d.reporter = r }
}

func WithLogger(log zerolog.Logger) Option {
	return func(d *Driver) { d.log = log }
}

func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

func WithSleep(sleep func(time.Duration)) Option {
	return func(d *Driver) { d.sleep = sleep }
}

func WithRand(randFloat func() float64) Option {
	return func(d *Driver) { d.randFloat = randFloat }
}

func NewDriver(invoker Invoker, opts ...Option) *Driver {
	d := &Driver{
		invoker:   invoker,
		reporter:  nopReporter{},
		log:       zerolog.Nop(),
		now:       time.Now,
		sleep:     time.Sleep,
		randFloat: rand.Float64,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.reporter == nil {
		d.reporter = nopReporter{}
	}
	return d
}

// Run processes items strictly in order, one fetch at a time. Every item
// reaches exactly one of the summary's Results or Errors; per-item
// failures are captured as data and never abort the loop. The loop ends
// either naturally or early once a failure threshold trips.
//
// The caller owns SourceInput, SkippedExisting, and AttemptedComments on
// the returned summary; the driver fills in everything it observes.
func (d *Driver) Run(ctx context.Context, items []record.WorkItem) *record.RunSummary {
	sum := &record.RunSummary{
		RunID:     uuid.NewString(),
		StartedAt: record.Timestamp(d.now()),
		Requested: len(items),
		Results:   []record.EnrichedRecord{},
		Errors:    []record.ErrorRecord{},
	}

	consecutive := 0
	for i, item := range items {
		d.reporter.ItemStart(i+1, len(items), item.VideoID)

		out := d.invoker.Fetch(ctx, item)
		scrapedAt := record.Timestamp(d.now())

		if out.Failed() {
			d.reporter.ItemError(out.Message)
			sum.Errors = append(sum.Errors, record.ErrorRecord{
				VideoID:    item.VideoID,
				URL:        item.URL,
				Username:   item.Username,
				ScrapedAt:  scrapedAt,
				ReturnCode: out.Code,
				Message:    out.Message,
			})
			consecutive++
			d.log.Debug().
				Str("video_id", item.VideoID).
				Int("returncode", out.Code).
				Str("error", out.Message).
				Msg("fetch failed")

			if reason, stop := d.shouldStop(consecutive, len(sum.Errors)); stop {
				sum.StoppedEarly = true
				sum.StopReason = reason
				d.reporter.EarlyStop(reason)
				d.log.Warn().Str("reason", reason).Msg("stopping early")
				break
			}
		} else {
			d.reporter.ItemOK()
			rec := record.EnrichedRecord{
				VideoID:   item.VideoID,
				URL:       item.URL,
				Username:  item.Username,
				ScrapedAt: scrapedAt,
				Metadata:  out.Metadata,
			}
			sum.Results = append(sum.Results, rec)
			consecutive = 0

			if d.artifacts != nil {
				if err := d.artifacts.WriteRecord(rec); err != nil {
					// Non-fatal, but a silent miss here would make the next
					// run refetch this video.
					d.log.Warn().
						Str("video_id", item.VideoID).
						Err(err).
						Msg("per-video artifact write failed; resume will not see this video")
				}
			}
		}

		d.pause()
	}

	sum.Succeeded = len(sum.Results)
	sum.Failed = len(sum.Errors)
	sum.FinishedAt = record.Timestamp(d.now())
	return sum
}

// shouldStop evaluates the early-stop thresholds, consecutive first. A
// threshold of zero disables that check.
func (d *Driver) shouldStop(consecutive, total int) (string, bool) {
	if d.maxConsecutive > 0 && consecutive >= d.maxConsecutive {
		return fmt.Sprintf("%d consecutive errors (likely rate-limited or blocked)", consecutive), true
	}
	if d.maxTotal > 0 && total >= d.maxTotal {
		return fmt.Sprintf("error budget exhausted (%d total errors)", total), true
	}
	return "", false
}

// pause applies the polite delay after a processed item.
func (d *Driver) pause() {
	delay := d.baseDelay + time.Duration(d.randFloat()*float64(d.jitter))
	if delay > 0 {
		d.sleep(delay)
	}
}

type nopReporter struct{}

func (nopReporter) ItemStart(int, int, string) {}
func (nopReporter) ItemOK()                    {}
func (nopReporter) ItemError(string)           {}
func (nopReporter) EarlyStop(string)           {}

// Package ytdlp wraps a single yt-dlp invocation per video behind a
// timeout, classifying every failure mode into a return code the engine
// can record without interpreting it.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"

	"clipmeta/internal/record"

	"github.com/cockroachdb/errors"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog"
)

const DefaultBinary = "yt-dlp"

const DefaultTimeout = 3 * time.Minute

// stderrTailLimit caps how much tool diagnostic text an ErrorRecord
// carries. The tail is kept because yt-dlp prints the actionable message
// last.
const stderrTailLimit = 2000

// Failure return codes. Non-zero tool exits keep the tool's own code;
// these cover everything the tool never got to report itself.
const (
	CodeException = 1   // subprocess could not be started/completed
	CodeBadJSON   = 2   // tool exited 0 but its output did not parse
	CodeTimeout   = 124 // wall-clock timeout exceeded
	CodeNotFound  = 127 // binary missing from PATH
)

// Options configures every invocation an Invoker performs. Zero values
// fall back to DefaultBinary/DefaultTimeout; empty UserAgent/Proxy omit
// the corresponding flags.
type Options struct {
	Binary    string
	Timeout   time.Duration
	UserAgent string
	Proxy     string
	Comments  bool
}

type Invoker struct {
	opts Options
	log  zerolog.Logger
}

func New(opts Options, log zerolog.Logger) *Invoker {
	if opts.Binary == "" {
		opts.Binary = DefaultBinary
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Invoker{opts: opts, log: log}
}

// args builds the argument list for one video URL. The URL is always last.
func (inv *Invoker) args(url string) []string {
	cmd := []string{
		"--no-download",
		"-J",
		"--skip-download",
		"--dump-single-json",
	}
	if inv.opts.Comments {
		cmd = append(cmd, "--write-comments")
	}
	if inv.opts.UserAgent != "" {
		cmd = append(cmd, "--user-agent", inv.opts.UserAgent)
	}
	if inv.opts.Proxy != "" {
		cmd = append(cmd, "--proxy", inv.opts.Proxy)
	}
	return append(cmd, url)
}

// Fetch performs exactly one metadata fetch for item. It never retries;
// every failure mode is returned as a classified Outcome, never as an
// error to the caller.
func (inv *Invoker) Fetch(ctx context.Context, item record.WorkItem) record.Outcome {
	ctx, cancel := context.WithTimeout(ctx, inv.opts.Timeout)
	defer cancel()

	args := inv.args(item.URL)
	cmd := exec.CommandContext(ctx, inv.opts.Binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	inv.log.Debug().
		Str("video_id", item.VideoID).
		Str("cmd", shellquote.Join(append([]string{inv.opts.Binary}, args...)...)).
		Msg("invoking yt-dlp")

	err := cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return record.Failure(CodeTimeout, "timeout")
	}
	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			msg := tail(strings.TrimSpace(stderr.String()), stderrTailLimit)
			if msg == "" {
				msg = "yt-dlp failed"
			}
			return record.Failure(exitErr.ExitCode(), msg)
		case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
			return record.Failure(CodeNotFound, fmt.Sprintf("%s not found (is it installed and on PATH?)", inv.opts.Binary))
		default:
			return record.Failure(CodeException, "exception: "+err.Error())
		}
	}

	raw := bytes.TrimSpace(stdout.Bytes())
	if len(raw) == 0 || !json.Valid(raw) {
		return record.Failure(CodeBadJSON, "failed to parse yt-dlp JSON output")
	}
	return record.Success(json.RawMessage(raw))
}

func tail(s string, n int) string {
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}

package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"clipmeta/internal/record"

	"github.com/fatih/color"
)

// errorReasonLimit keeps progress lines to one line; the full diagnostic
// is preserved in the ErrorRecord.
const errorReasonLimit = 80

// Console renders per-item progress and the run epilogue to stdout.
// It implements engine.Reporter. Colors honor the global color.NoColor
// setting (wired to --no-color and NO_COLOR by the CLI).
type Console struct {
	w    io.Writer
	ok   *color.Color
	bad  *color.Color
	warn *color.Color
}

func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{
		w:    w,
		ok:   color.New(color.FgGreen),
		bad:  color.New(color.FgRed),
		warn: color.New(color.FgYellow),
	}
}

// Foundf prints the pre-batch line ("Found N unique videos to enrich").
func (c *Console) Foundf(format string, args ...any) {
	fmt.Fprintf(c.w, format+"\n", args...)
}

func (c *Console) ItemStart(i, n int, videoID string) {
	fmt.Fprintf(c.w, "[%d/%d] %s ... ", i, n, videoID)
}

func (c *Console) ItemOK() {
	fmt.Fprintln(c.w, c.ok.Sprint("OK"))
}

func (c *Console) ItemError(message string) {
	fmt.Fprintf(c.w, "%s (%s)\n", c.bad.Sprint("ERROR"), shortReason(message))
}

func (c *Console) EarlyStop(reason string) {
	fmt.Fprintf(c.w, "\n%s\n", c.warn.Sprintf("Stopping early: %s.", reason))
}

// Done prints the run epilogue: where the summary landed and a failure
// note if anything errored.
func (c *Console) Done(summaryPath string, sum *record.RunSummary) {
	fmt.Fprintf(c.w, "\nDone. Wrote: %s\n", summaryPath)
	fmt.Fprintf(c.w, "Succeeded: %d  Failed: %d  Skipped: %d\n",
		sum.Succeeded, sum.Failed, sum.SkippedExisting)
	if sum.Failed > 0 {
		fmt.Fprintln(c.w, c.warn.Sprintf("Failures: %d (the service often blocks comment/extra metadata access.)", sum.Failed))
	}
}

// shortReason reduces a tool diagnostic to its first line, truncated.
func shortReason(message string) string {
	if i := strings.IndexByte(message, '\n'); i >= 0 {
		message = message[:i]
	}
	message = strings.TrimSpace(message)
	if len(message) > errorReasonLimit {
		message = message[:errorReasonLimit] + "..."
	}
	if message == "" {
		message = "unknown error"
	}
	return message
}

package progress

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
)

// Outcome is what happened to one document during ingest.
type Outcome int

const (
	Indexed Outcome = iota
	Unchanged
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Indexed:
		return "indexed"
	case Unchanged:
		return "unchanged"
	default:
		return "failed"
	}
}

// Tally counts document outcomes.
type Tally struct {
	Indexed   int
	Unchanged int
	Failed    int
}

func (t *Tally) add(o Outcome) {
	switch o {
	case Indexed:
		t.Indexed++
	case Unchanged:
		t.Unchanged++
	default:
		t.Failed++
	}
}

// Done is the number of documents with a recorded outcome.
func (t Tally) Done() int { return t.Indexed + t.Unchanged + t.Failed }

func (t Tally) String() string {
	return fmt.Sprintf("%d indexed, %d unchanged, %d failed", t.Indexed, t.Unchanged, t.Failed)
}

// Reporter receives per-document progress while ingesting.
type Reporter interface {
	Start(total int)
	Begin(name string)
	Done(name string, outcome Outcome)
	// Finish ends the report and returns the final counts.
	Finish() Tally
}

// NewReporter picks a line-based reporter under CI and a progress bar
// otherwise. Both write to stderr.
func NewReporter() Reporter {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		return NewCIReporter(os.Stderr)
	}
	return &TerminalReporter{out: os.Stderr}
}

// TerminalReporter draws a progress bar described by the current document.
type TerminalReporter struct {
	out   io.Writer
	bar   *progressbar.ProgressBar
	tally Tally
}

func (r *TerminalReporter) Start(total int) {
	r.tally = Tally{}
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Ingesting"),
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *TerminalReporter) Begin(name string) {
	if r.bar != nil {
		r.bar.Describe(name)
	}
}

func (r *TerminalReporter) Done(_ string, outcome Outcome) {
	r.tally.add(outcome)
	if r.bar != nil {
		_ = r.bar.Set(r.tally.Done())
	}
}

func (r *TerminalReporter) Finish() Tally {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
	return r.tally
}

// CIReporter prints one line per document.
type CIReporter struct {
	out   io.Writer
	total int
	tally Tally
}

// NewCIReporter creates a CIReporter writing to out.
func NewCIReporter(out io.Writer) *CIReporter {
	return &CIReporter{out: out}
}

func (r *CIReporter) Start(total int) {
	r.total = total
	r.tally = Tally{}
	fmt.Fprintf(r.out, "Ingesting %d document(s)\n", total)
}

func (r *CIReporter) Begin(string) {}

func (r *CIReporter) Done(name string, outcome Outcome) {
	r.tally.add(outcome)
	fmt.Fprintf(r.out, "[%d/%d] %s %s\n", r.tally.Done(), r.total, outcome, name)
}

func (r *CIReporter) Finish() Tally {
	fmt.Fprintf(r.out, "Ingest complete: %s\n", r.tally)
	return r.tally
}

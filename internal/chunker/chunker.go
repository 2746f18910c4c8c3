// Package chunker splits extracted document text into overlapping windows
// suitable for embedding and retrieval.
package chunker

import (
	"errors"
	"strings"
)

const (
	DefaultSize    = 1000
	DefaultOverlap = 200
)

// DefaultSeparators are the preferred split points, strongest first.
var DefaultSeparators = []string{"\n\n", "\n", " "}

var (
	ErrInvalidSize    = errors.New("chunk size must be > 0")
	ErrInvalidOverlap = errors.New("chunk overlap must be >= 0 and < chunk size")
	ErrEmptyText      = errors.New("text is empty")
)

// Chunk is a contiguous span of a document's text. Start and End are rune
// offsets into the source text.
type Chunk struct {
	Index int
	Text  string
	Start int
	End   int
}

// Options configure a Splitter. Sizes are measured in runes.
type Options struct {
	Size    int
	Overlap int
	// Separators are tried in order when choosing where a window ends.
	// With no separators every window is cut at exactly Size runes.
	Separators []string
}

// DefaultOptions returns the 1000/200 window with paragraph, line and word
// boundary preference.
func DefaultOptions() Options {
	return Options{
		Size:       DefaultSize,
		Overlap:    DefaultOverlap,
		Separators: DefaultSeparators,
	}
}

// Splitter performs greedy fixed-window splitting. Each chunk after the
// first begins exactly Overlap runes before its predecessor's end, so
// dropping the first Overlap runes of every non-first chunk and
// concatenating reproduces the input.
type Splitter struct {
	opts       Options
	separators [][]rune
}

// New validates opts and returns a Splitter.
func New(opts Options) (*Splitter, error) {
	if opts.Size <= 0 {
		return nil, ErrInvalidSize
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.Size {
		return nil, ErrInvalidOverlap
	}
	s := &Splitter{opts: opts}
	for _, sep := range opts.Separators {
		if sep != "" {
			s.separators = append(s.separators, []rune(sep))
		}
	}
	return s, nil
}

// Options returns the splitter's configuration.
func (s *Splitter) Options() Options { return s.opts }

// Split produces the ordered chunks of text.
func (s *Splitter) Split(text string) ([]Chunk, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	runes := []rune(text)
	n := len(runes)

	var chunks []Chunk
	start := 0
	for {
		if n-start <= s.opts.Size {
			chunks = append(chunks, s.chunk(runes, len(chunks), start, n))
			return chunks, nil
		}

		end := s.windowEnd(runes, start)
		chunks = append(chunks, s.chunk(runes, len(chunks), start, end))
		start = end - s.opts.Overlap
	}
}

func (s *Splitter) chunk(runes []rune, idx, start, end int) Chunk {
	return Chunk{Index: idx, Text: string(runes[start:end]), Start: start, End: end}
}

// windowEnd picks where the window beginning at start should end. It
// prefers the end of the last occurrence of the strongest separator that
// still leaves the window at least minFill runes long, and falls back to a
// hard cut at Size.
func (s *Splitter) windowEnd(runes []rune, start int) int {
	limit := start + s.opts.Size
	minEnd := start + s.minFill()

	for _, sep := range s.separators {
		if end := lastSeparatorEnd(runes, sep, minEnd, limit); end > 0 {
			return end
		}
	}
	return limit
}

// minFill keeps boundary-adjusted windows from collapsing and guarantees
// each window advances past the overlap.
func (s *Splitter) minFill() int {
	fill := s.opts.Size / 2
	if fill <= s.opts.Overlap {
		fill = s.opts.Overlap + 1
	}
	return fill
}

// lastSeparatorEnd returns the end offset of the last occurrence of sep
// that ends within (minEnd, limit], or 0 if there is none.
func lastSeparatorEnd(runes, sep []rune, minEnd, limit int) int {
	for end := limit; end > minEnd; end-- {
		begin := end - len(sep)
		if begin < 0 {
			break
		}
		if runesEqual(runes[begin:end], sep) {
			return end
		}
	}
	return 0
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Texts returns the text of each chunk in order.
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}

// Reassemble joins chunks produced with the given overlap back into the
// original text.
func Reassemble(chunks []Chunk, overlap int) string {
	var sb strings.Builder
	for i, c := range chunks {
		if i == 0 {
			sb.WriteString(c.Text)
			continue
		}
		sb.WriteString(string([]rune(c.Text)[overlap:]))
	}
	return sb.String()
}

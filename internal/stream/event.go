// Package stream delivers an answer to a client as an ordered sequence of
// framed events: one start event, zero or more chunk events and exactly one
// terminal done event.
package stream

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// StatusStarted marks the start event.
const StatusStarted = "started"

// Event is a single frame of an answer stream.
type Event struct {
	Chunk  string `json:"chunk"`
	Done   bool   `json:"done"`
	Status string `json:"status,omitempty"`
	Error  bool   `json:"error,omitempty"`
	Trace  string `json:"trace,omitempty"`
}

// StartEvent signals that generation is beginning.
func StartEvent() Event { return Event{Status: StatusStarted} }

// ChunkEvent carries a slice of the answer text.
func ChunkEvent(text string) Event { return Event{Chunk: text} }

// DoneEvent terminates a stream.
func DoneEvent() Event { return Event{Done: true} }

// ErrorEvent reports a failure. trace is only set in debug mode.
func ErrorEvent(err error, trace string) Event {
	return Event{Chunk: "Error: " + err.Error(), Error: true, Trace: trace}
}

// SplitWords groups text into slices of n words. Whitespace is kept with the
// word it follows, so joining the groups reproduces text exactly.
func SplitWords(text string, n int) []string {
	if n <= 0 {
		n = 1
	}
	var out []string
	start, words := 0, 0
	inWord := false
	for i, r := range text {
		if unicode.IsSpace(r) {
			if inWord {
				inWord = false
				words++
			}
			continue
		}
		if !inWord {
			if words == n {
				out = append(out, text[start:i])
				start, words = i, 0
			}
			inWord = true
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

// errorChain renders err and every error it wraps, outermost first.
func errorChain(err error) string {
	var sb strings.Builder
	for depth := 0; err != nil; depth++ {
		fmt.Fprintf(&sb, "%s%T: %v\n", strings.Repeat("  ", depth), err, err)
		err = errors.Unwrap(err)
	}
	return sb.String()
}

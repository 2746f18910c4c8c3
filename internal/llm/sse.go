package llm

import (
	"bufio"
	"bytes"
	"io"
)

// readSSE calls fn with the payload of every non-empty "data:" line of a
// server-sent event stream.
func readSSE(r io.Reader, fn func(data []byte) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := sc.Bytes()
		if !bytes.HasPrefix(line, []byte("data:")) {
			continue
		}
		data := bytes.TrimSpace(line[len("data:"):])
		if len(data) == 0 || bytes.Equal(data, []byte("[DONE]")) {
			continue
		}
		if err := fn(data); err != nil {
			return err
		}
	}
	return sc.Err()
}

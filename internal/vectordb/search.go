package vectordb

import (
	"fmt"
	"log"
	"strings"
)

var logf = log.Printf

// FormatResults renders search results as human-readable text.
func FormatResults(results []SearchResult) string {
	if len(results) == 0 {
		return "No results found."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d result(s):\n\n", len(results)))

	for i, r := range results {
		sb.WriteString(fmt.Sprintf("--- Result %d (similarity: %.4f, chunk #%d) ---\n", i+1, r.Similarity, r.Seq))
		sb.WriteString(r.Content)
		sb.WriteString("\n\n")
	}

	return sb.String()
}

// Package parser extracts plain text from uploaded documents.
package parser

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ParseError reports a document that could not be decoded into text.
type ParseError struct {
	Name string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Name, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parser converts raw file bytes into plain text.
type Parser interface {
	Parse(data []byte) (string, error)
}

// Registry selects a Parser by file extension.
type Registry struct {
	byExt    map[string]Parser
	fallback Parser
}

// NewRegistry returns a Registry with the PDF, Markdown and plain-text
// parsers registered. Unknown extensions are treated as plain text.
func NewRegistry() *Registry {
	md := NewMarkdown()
	txt := NewPlainText()
	return &Registry{
		byExt: map[string]Parser{
			".pdf":      NewPDF(),
			".md":       md,
			".markdown": md,
			".txt":      txt,
			".text":     txt,
		},
		fallback: txt,
	}
}

// Register adds or replaces the parser for an extension (with leading dot).
func (r *Registry) Register(ext string, p Parser) {
	r.byExt[strings.ToLower(ext)] = p
}

// Supports reports whether name has an explicitly registered extension.
func (r *Registry) Supports(name string) bool {
	_, ok := r.byExt[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Parse extracts text from data, choosing the parser from name's extension.
// Every failure, including a document with no extractable text, is a *ParseError.
// The returned text is valid UTF-8; invalid bytes become U+FFFD.
func (r *Registry) Parse(name string, data []byte) (string, error) {
	p, ok := r.byExt[strings.ToLower(filepath.Ext(name))]
	if !ok {
		p = r.fallback
	}

	text, err := p.Parse(data)
	if err != nil {
		return "", &ParseError{Name: name, Err: err}
	}
	text = strings.ToValidUTF8(text, "\uFFFD")
	if strings.TrimSpace(text) == "" {
		return "", &ParseError{Name: name, Err: fmt.Errorf("no text extracted")}
	}
	return text, nil
}

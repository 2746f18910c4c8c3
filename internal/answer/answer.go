// Package answer turns retrieved chunks and a question into a grounded
// answer from a language model.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ziadkadry99/pdfqa/internal/llm"
)

// DefaultMaxContext caps the assembled context, in runes.
const DefaultMaxContext = 2000

// ContextSeparator joins retrieved chunks.
const ContextSeparator = "\n\n"

const promptTemplate = `You are an intelligent assistant. Use the following PDF context to answer the user's question clearly.

Context:
%s

Question:
%s

Answer:`

// GenerationError wraps any failure of the language-model backend.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (%s): %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// BuildContext joins chunks in retrieval order and keeps at most max runes,
// cutting from the end so the highest-ranked chunks survive intact.
func BuildContext(chunks []string, max int) string {
	joined := strings.Join(chunks, ContextSeparator)
	if max <= 0 {
		return joined
	}
	n := 0
	for i := range joined {
		if n == max {
			return joined[:i]
		}
		n++
	}
	return joined
}

// BuildPrompt substitutes context and question into the instruction template.
func BuildPrompt(context, question string) string {
	return fmt.Sprintf(promptTemplate, context, question)
}

// Options configures a Generator.
type Options struct {
	Model       string
	Temperature float64
	// MaxTokens caps the output length; 0 leaves it to the backend.
	MaxTokens  int
	MaxContext int
	// Timeout bounds a single backend call; 0 means no deadline.
	Timeout time.Duration
}

// Generator makes one completion call per question.
type Generator struct {
	provider llm.Provider
	opts     Options
}

// NewGenerator creates a Generator. A zero MaxContext uses DefaultMaxContext.
func NewGenerator(provider llm.Provider, opts Options) *Generator {
	if opts.MaxContext <= 0 {
		opts.MaxContext = DefaultMaxContext
	}
	return &Generator{provider: provider, opts: opts}
}

// CanStream reports whether the backend delivers tokens incrementally.
func (g *Generator) CanStream() bool {
	_, ok := g.provider.(llm.StreamingProvider)
	return ok
}

func (g *Generator) request(question string, chunks []string) llm.CompletionRequest {
	prompt := BuildPrompt(BuildContext(chunks, g.opts.MaxContext), question)
	return llm.UserPrompt(g.opts.Model, prompt, g.opts.Temperature, g.opts.MaxTokens)
}

func (g *Generator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.opts.Timeout > 0 {
		return context.WithTimeout(ctx, g.opts.Timeout)
	}
	return context.WithCancel(ctx)
}

// Answer returns the model's answer to question given the retrieved chunks.
func (g *Generator) Answer(ctx context.Context, question string, chunks []string) (string, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	resp, err := g.provider.Complete(ctx, g.request(question, chunks))
	if err != nil {
		return "", &GenerationError{Provider: g.provider.Name(), Err: err}
	}
	return resp.Content, nil
}

// AnswerStream is Answer with incremental delivery through onDelta. Backends
// without token streaming deliver the whole answer in one delta. An error
// returned by onDelta is passed through unwrapped.
func (g *Generator) AnswerStream(ctx context.Context, question string, chunks []string, onDelta llm.DeltaFunc) (string, error) {
	sp, ok := g.provider.(llm.StreamingProvider)
	if !ok {
		text, err := g.Answer(ctx, question, chunks)
		if err != nil {
			return "", err
		}
		if text != "" {
			if err := onDelta(text); err != nil {
				return "", err
			}
		}
		return text, nil
	}

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	var deltaErr error
	resp, err := sp.CompleteStream(ctx, g.request(question, chunks), func(d string) error {
		if err := onDelta(d); err != nil {
			deltaErr = err
			return err
		}
		return nil
	})
	if err != nil {
		if deltaErr != nil && errors.Is(err, deltaErr) {
			return "", err
		}
		return "", &GenerationError{Provider: g.provider.Name(), Err: err}
	}
	return resp.Content, nil
}

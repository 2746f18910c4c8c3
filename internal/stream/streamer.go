package stream

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"
)

// Emitter writes one event to the client.
type Emitter interface {
	Emit(Event) error
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Event) error

func (f EmitterFunc) Emit(ev Event) error { return f(ev) }

// Producer computes the complete answer.
type Producer func(ctx context.Context) (string, error)

// IncrementalProducer delivers the answer piece by piece through onDelta.
type IncrementalProducer func(ctx context.Context, onDelta func(string) error) error

// Options controls grouping and pacing.
type Options struct {
	WordsPerEvent int
	// Interval is the pause between chunk events.
	Interval time.Duration
	// StartDelay is the pause after the start event.
	StartDelay time.Duration
	// Debug attaches a fault trace to error events.
	Debug bool
}

// DefaultOptions returns 2 words per event at 20ms intervals after a 100ms start delay.
func DefaultOptions() Options {
	return Options{WordsPerEvent: 2, Interval: 20 * time.Millisecond, StartDelay: 100 * time.Millisecond}
}

// Streamer runs producers and frames their output as events.
type Streamer struct {
	opts Options
}

// New creates a Streamer.
func New(opts Options) *Streamer {
	if opts.WordsPerEvent <= 0 {
		opts.WordsPerEvent = 2
	}
	return &Streamer{opts: opts}
}

// Stream emits start, runs produce, then emits the answer in word groups
// followed by done. If produce fails, one error event and then done are
// emitted instead of chunks.
//
// Stream returns early without a done event only when the client is gone:
// ctx is cancelled or the emitter fails. The returned error is then that
// cause; otherwise it is the producer's error, after it has been reported
// in-band.
func (s *Streamer) Stream(ctx context.Context, em Emitter, produce Producer) error {
	if err := s.begin(ctx, em); err != nil {
		return err
	}

	answer, err := s.run(ctx, produce)
	if err != nil {
		return s.fail(ctx, em, err)
	}

	for i, group := range SplitWords(answer, s.opts.WordsPerEvent) {
		if i > 0 {
			if err := sleep(ctx, s.opts.Interval); err != nil {
				return err
			}
		}
		if err := em.Emit(ChunkEvent(group)); err != nil {
			return err
		}
	}
	return em.Emit(DoneEvent())
}

// StreamIncremental is Stream for producers that deliver text as it is
// generated. Each delta becomes one chunk event with no added pacing.
func (s *Streamer) StreamIncremental(ctx context.Context, em Emitter, produce IncrementalProducer) error {
	if err := s.begin(ctx, em); err != nil {
		return err
	}

	var emitErr error
	_, err := s.run(ctx, func(ctx context.Context) (string, error) {
		return "", produce(ctx, func(delta string) error {
			if delta == "" {
				return nil
			}
			if err := em.Emit(ChunkEvent(delta)); err != nil {
				emitErr = err
				return err
			}
			return nil
		})
	})
	if emitErr != nil {
		return emitErr
	}
	if err != nil {
		return s.fail(ctx, em, err)
	}
	return em.Emit(DoneEvent())
}

func (s *Streamer) begin(ctx context.Context, em Emitter) error {
	if err := em.Emit(StartEvent()); err != nil {
		return err
	}
	return sleep(ctx, s.opts.StartDelay)
}

// run calls produce, turning a panic into an error.
func (s *Streamer) run(ctx context.Context, produce Producer) (answer string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()
	return produce(ctx)
}

func (s *Streamer) fail(ctx context.Context, em Emitter, cause error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var trace string
	if s.opts.Debug {
		trace = errorChain(cause)
		if pe, ok := cause.(*panicError); ok {
			trace += string(pe.stack)
		}
	}
	if err := em.Emit(ErrorEvent(cause, trace)); err != nil {
		return err
	}
	if err := em.Emit(DoneEvent()); err != nil {
		return err
	}
	return cause
}

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.value) }

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/pdfqa/internal/pipeline"
	"github.com/ziadkadry99/pdfqa/internal/stream"
	"github.com/ziadkadry99/pdfqa/internal/vectordb"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about a document",
	Long: `Indexes the document given by --file (reusing an existing index of the
same content) and streams the answer to the question to stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringP("file", "f", "", "document to ask about (required)")
	askCmd.Flags().Bool("json", false, "print raw stream events as JSON lines")
	askCmd.Flags().Bool("sources", false, "print the retrieved context chunks to stderr")
	_ = askCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]
	path, _ := cmd.Flags().GetString("file")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	showSources, _ := cmd.Flags().GetBool("sources")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	quietLogs(cfg)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	p, closeIndex, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer closeIndex()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return askQuestion(ctx, p, askRequest{
		Key:      filepath.ToSlash(filepath.Clean(path)),
		Data:     data,
		Question: question,
		JSON:     jsonOutput,
		Sources:  showSources,
	}, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

type askRequest struct {
	Key      string
	Data     []byte
	Question string
	JSON     bool
	Sources  bool
}

// askQuestion indexes req.Data under req.Key and streams the answer to out.
// Diagnostics and in-band errors go to errOut.
func askQuestion(ctx context.Context, p *pipeline.Pipeline, req askRequest, out, errOut io.Writer) error {
	res, err := p.Upload(ctx, req.Key, req.Data)
	if err != nil {
		return fmt.Errorf("indexing %s: %w", req.Key, err)
	}
	if verbose {
		fmt.Fprintf(errOut, "Using collection %s (%d chunks)\n", res.CollectionID, res.Chunks)
	}

	if req.Sources {
		results, err := p.Search(ctx, req.Key, req.Question, 0)
		if err != nil {
			return fmt.Errorf("retrieving context: %w", err)
		}
		fmt.Fprintln(errOut, vectordb.FormatResults(results))
	}

	var em stream.Emitter
	if req.JSON {
		enc := json.NewEncoder(out)
		em = stream.EmitterFunc(func(ev stream.Event) error { return enc.Encode(ev) })
	} else {
		em = eventPrinter(out, errOut)
	}

	// Failures reported in-band have already been printed.
	reported := false
	open := func() (stream.Emitter, error) {
		return stream.EmitterFunc(func(ev stream.Event) error {
			reported = reported || ev.Error
			return em.Emit(ev)
		}), nil
	}
	if err := p.Ask(ctx, req.Key, req.Question, open); err != nil {
		if reported {
			return errAnswerFailed
		}
		return err
	}
	return nil
}

var errAnswerFailed = errors.New("answer generation failed")

// eventPrinter writes answer text to out and error events to errOut.
func eventPrinter(out, errOut io.Writer) stream.EmitterFunc {
	return func(ev stream.Event) error {
		switch {
		case ev.Error:
			fmt.Fprintln(errOut, ev.Chunk)
			if ev.Trace != "" {
				fmt.Fprintln(errOut, ev.Trace)
			}
		case ev.Done:
			fmt.Fprintln(out)
		default:
			fmt.Fprint(out, ev.Chunk)
		}
		return nil
	}
}

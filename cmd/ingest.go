package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/pdfqa/internal/parser"
	"github.com/ziadkadry99/pdfqa/internal/pipeline"
	"github.com/ziadkadry99/pdfqa/internal/progress"
	"github.com/ziadkadry99/pdfqa/internal/walker"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path|pattern...]",
	Short: "Index documents into the vector store",
	Long: `Parses, chunks and embeds documents into the persistent vector store.
Each argument is a directory, walked for supported documents, or a glob
pattern such as "docs/**/*.pdf". Documents already indexed with the same
content are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringSlice("include", nil, "glob patterns a file in a walked directory must match")
	ingestCmd.Flags().StringSlice("exclude", nil, "glob patterns of files to skip in walked directories")
	ingestCmd.Flags().Bool("keep-going", false, "continue past documents that fail to index")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	keepGoing, _ := cmd.Flags().GetBool("keep-going")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	quietLogs(cfg)

	include, _ := cmd.Flags().GetStringSlice("include")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	paths, err := walker.Expand(args, walker.Config{
		Include:  include,
		Exclude:  exclude,
		Supports: parser.NewRegistry().Supports,
	})
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no files match %v", args)
	}

	p, closeIndex, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer closeIndex()

	results, tally := ingestFiles(context.Background(), p, paths, progress.NewReporter(), keepGoing, os.Stderr)

	for _, r := range results {
		status := progress.Indexed
		if r.Reused {
			status = progress.Unchanged
		}
		fmt.Printf("  %-9s %s -> %s (%d chunks)\n", status, r.Key, r.CollectionID, r.Chunks)
	}
	if tally.Failed > 0 {
		return fmt.Errorf("%d of %d document(s) failed to index", tally.Failed, len(paths))
	}
	return nil
}

// ingestFiles uploads each path in order and returns the successful results
// with the outcome counts. Failures are written to errOut. Without keepGoing
// it stops at the first failure.
func ingestFiles(ctx context.Context, p *pipeline.Pipeline, paths []string, reporter progress.Reporter, keepGoing bool, errOut io.Writer) ([]*pipeline.UploadResult, progress.Tally) {
	var results []*pipeline.UploadResult

	reporter.Start(len(paths))
	for _, path := range paths {
		name := filepath.Base(path)
		reporter.Begin(name)

		res, err := ingestFile(ctx, p, path)
		if err != nil {
			reporter.Done(name, progress.Failed)
			fmt.Fprintf(errOut, "Error: %s: %v\n", path, err)
			if !keepGoing {
				break
			}
			continue
		}
		results = append(results, res)
		if res.Reused {
			reporter.Done(name, progress.Unchanged)
		} else {
			reporter.Done(name, progress.Indexed)
		}
	}
	return results, reporter.Finish()
}

func ingestFile(ctx context.Context, p *pipeline.Pipeline, path string) (*pipeline.UploadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return p.Upload(ctx, filepath.ToSlash(path), data)
}

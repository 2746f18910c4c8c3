package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/pdfqa/internal/db"
	"github.com/ziadkadry99/pdfqa/internal/vectordb"
)

const noCollections = "No documents indexed yet. Run `pdfqa ingest` first."

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List indexed document collections",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return listCollections(context.Background(), cfg.DataDir, jsonOutput, cmd.OutOrStdout())
	},
}

func init() {
	collectionsCmd.Flags().Bool("json", false, "output collections as JSON")
	rootCmd.AddCommand(collectionsCmd)
}

// listCollections prints the catalog under dataDir. It needs no embedder or
// API key, and never creates the catalog.
func listCollections(ctx context.Context, dataDir string, jsonOutput bool, out io.Writer) error {
	catalogPath := filepath.Join(dataDir, "catalog.db")
	if _, err := os.Stat(catalogPath); os.IsNotExist(err) {
		if jsonOutput {
			fmt.Fprintln(out, "[]")
			return nil
		}
		fmt.Fprintln(out, noCollections)
		return nil
	}

	database, err := db.Open(catalogPath)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}
	defer database.Close()

	infos, err := vectordb.NewCatalog(database).List(ctx)
	if err != nil {
		return fmt.Errorf("listing collections: %w", err)
	}

	if jsonOutput {
		if infos == nil {
			infos = []vectordb.CollectionInfo{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}

	if len(infos) == 0 {
		fmt.Fprintln(out, noCollections)
		return nil
	}
	fmt.Fprintf(out, "%d collection(s):\n\n", len(infos))
	for _, info := range infos {
		fmt.Fprintf(out, "  %s\n", info.ID)
		fmt.Fprintf(out, "     Chunks: %d  Dimensions: %d  Embedder: %s\n", info.ChunkCount, info.Dimensions, info.Embedder)
		fmt.Fprintf(out, "     Updated: %s\n\n", info.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

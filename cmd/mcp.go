package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/pdfqa/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing document upload, search and question tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		p, closeIndex, err := buildPipeline(cfg)
		if err != nil {
			return err
		}
		defer closeIndex()

		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "pdfqa MCP server started on stdio (data=%s)\n", cfg.DataDir)

		return mcpserver.NewServer(p).Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

package cmd

import (
	"github.com/spf13/cobra"
	"github.com/ziadkadry99/pdfqa/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize pdfqa configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to choose the language model and embedding providers and writes the config file (.pdfqa.yml by default).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard(cfgFile)
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

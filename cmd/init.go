package cmd

import (
	"github.com/spf13/cobra"

	"github.com/clearscope-ai/clearscope/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize clearscope configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure clearscope and generates a .clearscope.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

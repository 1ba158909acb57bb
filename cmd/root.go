package cmd

import (
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "clearscope",
	Short: "Evidence-gathering and knowledge-grounded review for business analysis",
	Long: `Clearscope runs adaptive discovery interviews with small-business owners,
tracks how much evidence each answer provides per topic, and grounds drafted
report content against a curated knowledge base before it ships.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".clearscope.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var logLevel string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scaffoldfs",
	Short: "A transactional workspace scaffolding tool",
	Long: `scaffoldfs materializes a declared directory tree on disk from a small
declarative specification. Every run is transactional: it either fully
succeeds, or the filesystem is rolled back to exactly the state it was in
before the run started.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newGenerateCommand())
	rootCmd.AddCommand(newPlanCommand())
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Print the version number of scaffoldfs`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("scaffoldfs version %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

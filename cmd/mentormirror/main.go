package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "mentormirror",
	Short: "Learn an author's writing style and write like them",
	Long: `mentormirror extracts a document from a URL, infers its author, profiles
the author's writing style and saves it as a mentor. Mentors can then rewrite
your text, compose new pieces and speak in their own voice.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", os.Getenv("NO_COLOR") != "", "disable colored output")

	rootCmd.AddCommand(startCmd, stopCmd, statusCmd)
	rootCmd.AddCommand(analyzeCmd, rewriteCmd, speakCmd)
	rootCmd.AddCommand(mentorsCmd, mentorgramCmd, composeCmd, promptsCmd)
	rootCmd.AddCommand(providersCmd, scrapeCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set via ldflags at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:           "tgsnap",
	Short:         "Extract posts from public Telegram message links",
	Long:          "tgsnap turns a t.me message link into structured post data: author, sanitized text, media and metadata.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "tgsnap %s\n", Version)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, fetchCmd, versionCmd)
}

package main

import (
	"fmt"
	"os"

	"github.com/muhasabah-app/profilesync/cmd"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "profilesync",
	Short: "profilesync - privacy-preserving profile synchronization.",
	Long: `profilesync keeps a user profile in sync between this device and the
profile service without the service ever seeing private data in plaintext.

The public half (preferences, privacy settings, usage stats) syncs openly;
the private half is encrypted on-device with a per-user key before it
travels anywhere. Remote calls are guarded by retry-with-backoff and a
per-endpoint circuit breaker.

Usage:
  profilesync profile <command> [flags]

Run 'profilesync help profile' for the available commands.
`,
	Run: func(cmd *cobra.Command, args []string) {
		banner := figure.NewFigure("profilesync", "", true)
		banner.Print()
		fmt.Println("\nRun 'profilesync --help' to see available commands.")
	},
}

func main() {
	rootCmd.AddCommand(cmd.ProfileCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

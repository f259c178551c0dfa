package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var resetForce bool

func init() {
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "skip the confirmation prompt")
}

func resetResetCommandState() {
	resetForce = false
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the remote profile and purge all local state",
	Long: `Deletes the remote profile and encrypted blob (best-effort), then
purges the local cache, sync metadata, and encryption key.

Without an exported key backup, encrypted private data becomes permanently
unrecoverable. Local deletion proceeds even if the remote delete fails.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := openSession()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to open session: %v", err)
		}
		defer sess.close()

		uid, err := requireUser(sess)
		if err != nil {
			return err
		}

		if !resetForce {
			fmt.Printf("%s This permanently deletes the profile and encryption key for %s\n",
				color.YellowString("!"), color.YellowString(uid))
			fmt.Printf("%s Re-run with %s to confirm\n", color.CyanString("→"), color.YellowString("--force"))
			return nil
		}

		spinner, cleanup := startSpinner("Resetting profile...", verbose)
		defer cleanup()

		if err := sess.facade.Reset(cmd.Context(), uid); err != nil {
			spinner.FinalMSG = color.RedString("✗") + " Reset failed: " + err.Error()
			return Logger.ErrorfAndReturn("reset failed: %v", err)
		}

		spinner.FinalMSG = color.GreenString("✓") + " Profile reset for " + uid
		return nil
	},
}

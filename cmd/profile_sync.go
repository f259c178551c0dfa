package cmd

import (
	"fmt"

	"github.com/muhasabah-app/profilesync/internal/syncer"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	syncDirection string
	syncPriority  bool
)

func init() {
	syncCmd.Flags().StringVar(&syncDirection, "direction", "bidirectional", "sync direction: pull, push, or bidirectional")
	syncCmd.Flags().BoolVar(&syncPriority, "priority", false, "bypass an open circuit breaker")
}

func resetSyncCommandState() {
	syncDirection = "bidirectional"
	syncPriority = false
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the local cache with the profile service",
	Long: `Synchronizes both profile halves with the remote profile service.

The public half reconciles first; the private half follows, encrypted
end-to-end, unless the profile is configured for local storage only.

Use --priority to bypass an open circuit breaker during recovery.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		direction := syncer.Direction(syncDirection)
		switch direction {
		case syncer.Pull, syncer.Push, syncer.Bidirectional:
		default:
			return fmt.Errorf("invalid direction %q: want pull, push, or bidirectional", syncDirection)
		}

		sess, err := openSession()
		if err != nil {
			return Logger.ErrorfAndReturn("failed to open session: %v", err)
		}
		defer sess.close()

		uid, err := requireUser(sess)
		if err != nil {
			return err
		}

		spinner, cleanup := startSpinner("Syncing profile...", verbose)
		defer cleanup()

		if _, err := sess.facade.Load(cmd.Context(), uid); err != nil {
			return Logger.ErrorfAndReturn("failed to load profile: %v", err)
		}

		result, err := sess.facade.Sync(cmd.Context(), direction, syncPriority)
		if err != nil {
			spinner.FinalMSG = color.RedString("✗") + " Sync failed: " + err.Error()
			return Logger.ErrorfAndReturn("sync failed: %v", err)
		}

		msg := color.GreenString("✓") + " Sync complete"
		if result.PublicSynced {
			msg += fmt.Sprintf("\n%s Public profile at v%d", color.CyanString("→"), result.PublicVersion)
		}
		switch {
		case result.PrivateSkipped:
			msg += fmt.Sprintf("\n%s Private half skipped (local storage only)", color.CyanString("→"))
		case result.PrivateSynced:
			msg += fmt.Sprintf("\n%s Private profile at v%d", color.CyanString("→"), result.PrivateVersion)
		}
		for _, syncErr := range result.Errors {
			msg += fmt.Sprintf("\n%s %v", color.YellowString("!"), syncErr)
		}
		spinner.FinalMSG = msg
		return nil
	},
}

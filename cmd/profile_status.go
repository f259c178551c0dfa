package cmd

import (
	"errors"
	"fmt"

	perrors "github.com/muhasabah-app/profilesync/internal/errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the cached profile and sync metadata",
	Long: `Displays the locally cached public profile, whether an encrypted
private blob is cached, and the device's sync metadata (device id, version
counters, last sync time). Nothing is fetched from the remote.`,
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

		pub, err := sess.store.GetPublicProfile(uid)
		if errors.Is(err, perrors.ErrProfileNotFound) {
			fmt.Printf("%s No cached profile for %s\n", color.YellowString("!"), uid)
			return nil
		}
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read cached profile: %v", err)
		}

		meta, err := sess.store.GetSyncMetadata(uid)
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read sync metadata: %v", err)
		}

		blob, err := sess.store.GetEncryptedBlob(uid)
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read encrypted blob: %v", err)
		}

		fmt.Printf("%s Profile for %s\n", color.GreenString("✓"), color.YellowString(uid))
		fmt.Printf("  public version:  %d\n", pub.Version)
		fmt.Printf("  language:        %s\n", pub.GeneralPreferences.Language)
		fmt.Printf("  local-only:      %t\n", pub.PrivacySettings.LocalStorageOnly)
		fmt.Printf("  sync enabled:    %t\n", pub.PrivacySettings.EnableSync)
		if blob != nil {
			fmt.Printf("  private blob:    cached (v%d)\n", blob.Version)
		} else {
			fmt.Printf("  private blob:    none\n")
		}
		fmt.Printf("  device id:       %s\n", meta.DeviceID)
		fmt.Printf("  private version: %d\n", meta.PrivateVersion)
		if meta.LastSyncTime.IsZero() {
			fmt.Printf("  last sync:       never\n")
		} else {
			fmt.Printf("  last sync:       %s\n", meta.LastSyncTime.Local().Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

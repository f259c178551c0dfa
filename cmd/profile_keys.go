package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	keyPassphrase string
	exportKeyOut  string
)

func init() {
	exportKeyCmd.Flags().StringVarP(&keyPassphrase, "passphrase", "p", "", "passphrase protecting the backup envelope")
	exportKeyCmd.Flags().StringVarP(&exportKeyOut, "out", "o", "profile-key.backup", "output file for the backup envelope")
	importKeyCmd.Flags().StringVarP(&keyPassphrase, "passphrase", "p", "", "passphrase protecting the backup envelope")
}

func resetKeyCommandState() {
	keyPassphrase = ""
	exportKeyOut = "profile-key.backup"
}

var exportKeyCmd = &cobra.Command{
	Use:   "export-key",
	Short: "Export the encryption key for transfer to another device",
	Long: `Exports the per-user encryption key wrapped in a passphrase-protected
envelope. The key itself never leaves the device unwrapped.

Move the envelope to the new device out-of-band and run 'profile import-key'
there with the same passphrase.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if keyPassphrase == "" {
			return fmt.Errorf("a passphrase is required: pass --passphrase")
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
		if _, err := sess.facade.Load(cmd.Context(), uid); err != nil {
			return Logger.ErrorfAndReturn("failed to load profile: %v", err)
		}

		envelope, err := sess.facade.ExportKeyBackup(keyPassphrase)
		if err != nil {
			return Logger.ErrorfAndReturn("failed to export key: %v", err)
		}

		if err := os.WriteFile(exportKeyOut, envelope, 0600); err != nil {
			return Logger.ErrorfAndReturn("failed to write backup file: %v", err)
		}

		fmt.Printf("%s Key backup written to %s\n", color.GreenString("✓"), color.YellowString(exportKeyOut))
		fmt.Printf("%s Keep the passphrase safe; the envelope is useless without it\n", color.CyanString("→"))
		return nil
	},
}

var importKeyCmd = &cobra.Command{
	Use:   "import-key <file>",
	Short: "Import an encryption key exported on another device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if keyPassphrase == "" {
			return fmt.Errorf("a passphrase is required: pass --passphrase")
		}

		envelope, err := os.ReadFile(args[0])
		if err != nil {
			return Logger.ErrorfAndReturn("failed to read backup file: %v", err)
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
		if _, err := sess.facade.Load(cmd.Context(), uid); err != nil {
			return Logger.ErrorfAndReturn("failed to load profile: %v", err)
		}

		if err := sess.facade.ImportKeyBackup(envelope, keyPassphrase); err != nil {
			return Logger.ErrorfAndReturn("failed to import key: %v", err)
		}

		fmt.Printf("%s Key imported for %s\n", color.GreenString("✓"), color.YellowString(uid))
		return nil
	},
}

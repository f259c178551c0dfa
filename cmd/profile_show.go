package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the privacy-filtered AI context projection",
	Long: `Prints the profile projection handed to personalization features.

With personalization disallowed this contains only language and input
method; raw cultural-background fields are never included.`,
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

		if _, err := sess.facade.Load(cmd.Context(), uid); err != nil {
			return Logger.ErrorfAndReturn("failed to load profile: %v", err)
		}

		ctx := sess.facade.AIContext()
		if ctx == nil {
			fmt.Printf("%s No profile available\n", color.YellowString("!"))
			return nil
		}

		out, err := json.MarshalIndent(ctx, "", "  ")
		if err != nil {
			return Logger.ErrorfAndReturn("failed to render projection: %v", err)
		}
		fmt.Println(string(out))
		return nil
	},
}

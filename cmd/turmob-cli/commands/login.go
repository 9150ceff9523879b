package commands

import (
	"fmt"

	"turmob-efatura/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(validateCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Logs in with the configured credentials and prints a persisted session id.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		client := createClient(cmd.Context(), cfg)

		id, err := client.SaveSession()
		if err != nil {
			serviceutil.Fatal("failed to save session", err)
		}
		fmt.Println(id)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Checks whether the configured session id is still accepted by the portal.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		client, err := newRestoredClient(cmd.Context(), cfg)
		if err != nil {
			serviceutil.Fatal("failed to initialize portal client", err)
		}

		valid, err := client.ValidateSession(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to validate session", err)
		}
		if !valid {
			fmt.Println("session invalid")
			return
		}
		fmt.Println("session valid")
	},
}

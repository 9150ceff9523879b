package commands

import (
	"fmt"

	"turmob-efatura/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(recipientCmd)
}

var recipientCmd = &cobra.Command{
	Use:   "recipient <name> <vkn/tckn> <county> <city>",
	Short: "Resolves a recipient to its portal id, creating it when it does not exist.",
	Args:  cobra.ExactArgs(4),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		client := createClient(cmd.Context(), cfg)

		id, err := client.GetInvoiceUser(cmd.Context(), args[0], args[1], args[2], args[3])
		if err != nil {
			serviceutil.Fatal("failed to resolve recipient", err)
		}
		fmt.Println(id)
	},
}

// Command-line interface for the wallet assistant.
package main

import (
	"fmt"
	"os"

	"aiwallet/aiwallet/utils/color"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "aiwallet",
		Short:         "AI wallet assistant CLI",
		Long:          "aiwallet talks to the wallet assistant from a terminal and runs wallet maintenance tasks.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newConnectCmd())
	rootCmd.AddCommand(newCreateAdminWalletCmd())
	rootCmd.AddCommand(newCheckBalanceCmd())
	rootCmd.AddCommand(newClearWalletDataCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.ColorError("error: "+err.Error()))
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const defaultAddr = "http://127.0.0.1:8080"

func main() {
	rootCmd := &cobra.Command{
		Use:   "escrowctl",
		Short: "Command-line client for the escrowd ledger",
	}

	rootCmd.PersistentFlags().String("addr", defaultAddr, "escrowd base URL")
	rootCmd.PersistentFlags().String("token", "", "bearer token (defaults to ESCROWCTL_TOKEN)")

	rootCmd.AddCommand(
		tokenCmd(),
		credentialsCmd(),
		secretCmd(),
		depositCmd(),
		creditCmd(),
		allocateCmd(),
		withdrawCmd(),
		recoverCmd(),
		balanceCmd(),
		stateCmd(),
		allocationCmd(),
		recordsCmd(),
		whitelistCmd(),
		blacklistCmd(),
		statusCmd(),
		adminCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

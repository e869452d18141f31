package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"escrowd/pkg/platform/secrets"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token <account>",
		Short: "Exchange an account secret for a bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, _ := cmd.Flags().GetString("secret")
			if secret == "" {
				secret = os.Getenv("ESCROWCTL_SECRET")
			}
			if secret == "" {
				return fmt.Errorf("provide --secret or set ESCROWCTL_SECRET")
			}
			raw, err := newClient(cmd).do(http.MethodPost, "/auth/token", map[string]any{
				"account_id": args[0],
				"secret":     secret,
			})
			if err != nil {
				return err
			}
			return printJSON(raw)
		},
	}
	cmd.Flags().String("secret", "", "account secret (defaults to ESCROWCTL_SECRET)")
	return cmd
}

func credentialsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage API credentials",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "register <account>",
		Short: "Issue API credentials for an account (fund controller only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := newClient(cmd).do(http.MethodPost, "/auth/credentials", map[string]any{
				"account_id": args[0],
			})
			if err != nil {
				return err
			}
			// The secret in this response is shown exactly once.
			return printJSON(raw)
		},
	})

	return cmd
}

func secretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Local secret utilities",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "hash <secret>",
		Short: "Hash a secret for the ESCROWD_*_SECRET_HASH bootstrap variables",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			hash, err := secrets.Hash(args[0])
			if err != nil {
				return err
			}
			fmt.Println(hash)
			return nil
		},
	})

	return cmd
}

func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrator role operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "transfer-admin <account>",
		Short: "Hand the administrator role to another account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := newClient(cmd).do(http.MethodPost, "/admin/administrator", map[string]any{
				"account_id": args[0],
			})
			if err != nil {
				return err
			}
			return printJSON(raw)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "transfer-controller <account>",
		Short: "Appoint a new fund controller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := newClient(cmd).do(http.MethodPost, "/admin/controller", map[string]any{
				"account_id": args[0],
			})
			if err != nil {
				return err
			}
			return printJSON(raw)
		},
	})

	return cmd
}

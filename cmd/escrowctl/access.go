package main

import (
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

func whitelistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whitelist",
		Short: "Manage the beneficiary whitelist",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <account> [account...]",
		Short: "Whitelist accounts as beneficiaries",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := newClient(cmd).do(http.MethodPost, "/access/whitelist", map[string]any{
				"accounts": args,
			})
			if err != nil {
				return err
			}
			return printJSON(raw)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <account>",
		Short: "Remove an account from the whitelist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := newClient(cmd).do(http.MethodDelete, "/access/whitelist/"+url.PathEscape(args[0]), nil)
			if err != nil {
				return err
			}
			return printJSON(raw)
		},
	})

	return cmd
}

func blacklistCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "blacklist <account>",
		Short: "Blacklist a whitelisted account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := newClient(cmd).do(http.MethodPost, "/access/blacklist", map[string]any{
				"account": args[0],
			})
			if err != nil {
				return err
			}
			return printJSON(raw)
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <account>",
		Short: "Show an account's whitelist and blacklist flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := newClient(cmd).do(http.MethodGet, "/access/status/"+url.PathEscape(args[0]), nil)
			if err != nil {
				return err
			}
			return printJSON(raw)
		},
	}
}

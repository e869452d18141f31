package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func depositCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit <amount>",
		Short: "Deposit pooled funds split equally across beneficiaries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[0])
			}
			beneficiaries, _ := cmd.Flags().GetStringArray("to")
			raw, err := newClient(cmd).do(http.MethodPost, "/ledger/deposits", map[string]any{
				"amount":        amount,
				"beneficiaries": beneficiaries,
			})
			if err != nil {
				return err
			}
			return printJSON(raw)
		},
	}
	cmd.Flags().StringArray("to", nil, "beneficiary account (repeatable)")
	return cmd
}

func creditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "credit <amount>",
		Short: "Add funds to the pool without touching allocations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[0])
			}
			raw, err := newClient(cmd).do(http.MethodPost, "/ledger/credits", map[string]any{
				"amount": amount,
			})
			if err != nil {
				return err
			}
			return printJSON(raw)
		},
	}
}

// allocationPlan is the yaml shape accepted by allocate --plan. Every
// whitelisted beneficiary must appear exactly once; the CLI resolves the
// server's whitelist order before submitting.
type allocationPlan struct {
	Allocations []struct {
		Account string `yaml:"account"`
		Amount  uint64 `yaml:"amount"`
	} `yaml:"allocations"`
}

// planAmounts orders the plan's amounts by the ledger's whitelist. Accounts
// missing from either side fail here, before the server sees the request.
func planAmounts(c *client, plan allocationPlan) ([]uint64, error) {
	raw, err := c.do(http.MethodGet, "/ledger/state", nil)
	if err != nil {
		return nil, err
	}
	var state struct {
		Whitelist []string `json:"whitelist"`
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}

	byAccount := make(map[string]uint64, len(plan.Allocations))
	for _, entry := range plan.Allocations {
		if _, dup := byAccount[entry.Account]; dup {
			return nil, fmt.Errorf("plan lists %s twice", entry.Account)
		}
		byAccount[entry.Account] = entry.Amount
	}

	amounts := make([]uint64, 0, len(state.Whitelist))
	for _, account := range state.Whitelist {
		amount, ok := byAccount[account]
		if !ok {
			return nil, fmt.Errorf("plan is missing whitelisted account %s", account)
		}
		amounts = append(amounts, amount)
		delete(byAccount, account)
	}
	for account := range byAccount {
		return nil, fmt.Errorf("account %s in plan is not whitelisted", account)
	}
	return amounts, nil
}

func allocateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allocate [amount...]",
		Short: "Replace all allocations with explicit per-beneficiary amounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			apiClient := newClient(cmd)
			planPath, _ := cmd.Flags().GetString("plan")

			var amounts []uint64
			switch {
			case planPath != "":
				data, err := os.ReadFile(planPath)
				if err != nil {
					return err
				}
				var plan allocationPlan
				if err := yaml.Unmarshal(data, &plan); err != nil {
					return fmt.Errorf("parse plan: %w", err)
				}
				amounts, err = planAmounts(apiClient, plan)
				if err != nil {
					return err
				}
			case len(args) > 0:
				for _, arg := range args {
					amount, err := strconv.ParseUint(arg, 10, 64)
					if err != nil {
						return fmt.Errorf("invalid amount %q", arg)
					}
					amounts = append(amounts, amount)
				}
			default:
				return fmt.Errorf("provide amounts as arguments or via --plan")
			}

			raw, err := apiClient.do(http.MethodPost, "/ledger/allocations", map[string]any{
				"amounts": amounts,
			})
			if err != nil {
				return err
			}
			return printJSON(raw)
		},
	}
	cmd.Flags().String("plan", "", "yaml plan mapping accounts to amounts")
	return cmd
}

func withdrawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw",
		Short: "Withdraw your full allocation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := newClient(cmd).do(http.MethodPost, "/ledger/withdrawals", nil)
			if err != nil {
				return err
			}
			return printJSON(raw)
		},
	}
}

func recoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recover <account> [account...]",
		Short: "Recover blacklisted allocations back to the fund controller",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := newClient(cmd).do(http.MethodPost, "/ledger/recoveries", map[string]any{
				"beneficiaries": args,
			})
			if err != nil {
				return err
			}
			return printJSON(raw)
		},
	}
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show ledger totals and custody reconciliation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := newClient(cmd).do(http.MethodGet, "/ledger/balance", nil)
			if err != nil {
				return err
			}
			return printJSON(raw)
		},
	}
}

func stateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Dump the full ledger state (overseers only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := newClient(cmd).do(http.MethodGet, "/ledger/state", nil)
			if err != nil {
				return err
			}
			return printJSON(raw)
		},
	}
}

func allocationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "allocation <account>",
		Short: "Show one account's allocation and access flags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := newClient(cmd).do(http.MethodGet, "/ledger/allocations/"+url.PathEscape(args[0]), nil)
			if err != nil {
				return err
			}
			return printJSON(raw)
		},
	}
}

func recordsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records",
		Short: "List transaction records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			query := url.Values{}
			if account, _ := cmd.Flags().GetString("account"); account != "" {
				query.Set("account", account)
			}
			if limit, _ := cmd.Flags().GetInt("limit"); limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}
			path := "/ledger/records"
			if len(query) > 0 {
				path += "?" + query.Encode()
			}
			raw, err := newClient(cmd).do(http.MethodGet, path, nil)
			if err != nil {
				return err
			}
			return printJSON(raw)
		},
	}
	cmd.Flags().String("account", "", "filter records to one account")
	cmd.Flags().Int("limit", 0, "maximum records to return")
	return cmd
}

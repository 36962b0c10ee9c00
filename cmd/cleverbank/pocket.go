package main

import (
	"github.com/spf13/cobra"

	"github.com/clever-bank/clever_bank/internal/ledger"
)

func pocketCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pocket",
		Short: "move funds and inspect pockets",
	}
	cmd.AddCommand(depositCommand(c))
	cmd.AddCommand(withdrawCommand(c))
	cmd.AddCommand(transferCommand(c))
	cmd.AddCommand(statementCommand(c))
	cmd.AddCommand(toggleCommand(c))
	return cmd
}

// printTx prints the ledger entry; a FAILED movement is still a successful command.
func printTx(cmd *cobra.Command, tx ledger.Transaction, err error) error {
	if err != nil && tx.ID == "" {
		return err
	}
	if perr := printJSON(cmd.OutOrStdout(), tx); perr != nil {
		return perr
	}
	return err
}

func depositCommand(c *cli) *cobra.Command {
	var pocketID, amount string
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "credit a pocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("pocket", pocketID); err != nil {
				return err
			}
			value, err := parseAmount(amount)
			if err != nil {
				return err
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			tx, err := a.Payments.Deposit(cmd.Context(), pocketID, value)
			return printTx(cmd, tx, err)
		},
	}
	cmd.Flags().StringVar(&pocketID, "pocket", "", "pocket id")
	cmd.Flags().StringVar(&amount, "amount", "", "amount to deposit")
	return cmd
}

func withdrawCommand(c *cli) *cobra.Command {
	var pocketID, amount, description string
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "debit a pocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("pocket", pocketID); err != nil {
				return err
			}
			value, err := parseAmount(amount)
			if err != nil {
				return err
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			tx, err := a.Payments.Withdraw(cmd.Context(), pocketID, value, description)
			return printTx(cmd, tx, err)
		},
	}
	cmd.Flags().StringVar(&pocketID, "pocket", "", "pocket id")
	cmd.Flags().StringVar(&amount, "amount", "", "amount to withdraw")
	cmd.Flags().StringVar(&description, "description", "", "ledger description")
	return cmd
}

func transferCommand(c *cli) *cobra.Command {
	var pocketID, to, amount, owner string
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "move funds to another customer's active pocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("pocket", pocketID); err != nil {
				return err
			}
			if err := requireFlag("to", to); err != nil {
				return err
			}
			value, err := parseAmount(amount)
			if err != nil {
				return err
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			tx, err := a.Payments.Transfer(cmd.Context(), pocketID, to, value, owner)
			return printTx(cmd, tx, err)
		},
	}
	cmd.Flags().StringVar(&pocketID, "pocket", "", "sender pocket id")
	cmd.Flags().StringVar(&to, "to", "", "receiver username")
	cmd.Flags().StringVar(&amount, "amount", "", "amount to transfer")
	cmd.Flags().StringVar(&owner, "owner", "", "sender customer id; checked against the pocket owner when set")
	return cmd
}

func statementCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "statement <pocket-id>",
		Short: "show the latest successful movements of a pocket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			txs, err := a.Payments.Statement(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), txs)
		},
	}
}

func toggleCommand(c *cli) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "toggle <pocket-id>",
		Short: "flip a pocket between ACTIVE and INACTIVE",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlag("owner", owner); err != nil {
				return err
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			account, err := a.Pockets.ToggleStatus(cmd.Context(), args[0], owner)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), account)
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "customer id owning the pocket")
	return cmd
}

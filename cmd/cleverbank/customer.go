package main

import (
	"github.com/spf13/cobra"

	"github.com/clever-bank/clever_bank/internal/customer"
)

func customerCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "customer",
		Short: "onboard and inspect customers",
	}
	cmd.AddCommand(customerRegisterCommand(c))
	cmd.AddCommand(customerShowCommand(c))
	cmd.AddCommand(customerHistoryCommand(c))
	return cmd
}

func customerRegisterCommand(c *cli) *cobra.Command {
	var input customer.RegisterInput
	cmd := &cobra.Command{
		Use:   "register",
		Short: "register a customer and open their pocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			created, account, err := a.Customers.Register(cmd.Context(), input)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"customer": created, "pocket": account})
		},
	}
	cmd.Flags().StringVar(&input.Username, "username", "", "unique username")
	cmd.Flags().StringVar(&input.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&input.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&input.Email, "email", "", "email address")
	return cmd
}

func customerShowCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "show <username>",
		Short: "show a customer and their pockets",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			found, err := a.Customers.FindByUsername(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			pockets, err := a.Pockets.ListByOwner(cmd.Context(), found.ID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"customer": found, "pockets": pockets})
		},
	}
}

func customerHistoryCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "history <username>",
		Short: "list every ledger entry recorded for a customer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			found, err := a.Customers.FindByUsername(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			txs, err := a.Payments.History(cmd.Context(), found.ID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), txs)
		},
	}
}

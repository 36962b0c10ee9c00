package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clever-bank/clever_bank/internal/bills"
)

func billCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bill",
		Short: "record and settle utility bills",
	}
	cmd.AddCommand(billCreateCommand(c))
	cmd.AddCommand(billPayCommand(c))
	cmd.AddCommand(billListCommand(c))
	cmd.AddCommand(billDeleteCommand(c))
	return cmd
}

func billCreateCommand(c *cli) *cobra.Command {
	var (
		input    bills.CreateInput
		amount   string
		category string
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "record a pending bill for a customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := parseAmount(amount)
			if err != nil {
				return err
			}
			input.Amount = value
			input.Category = bills.Category(category)
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			bill, err := a.Bills.Create(cmd.Context(), input)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), bill)
		},
	}
	cmd.Flags().StringVar(&input.CustomerID, "customer", "", "customer id")
	cmd.Flags().StringVar(&input.BillNumber, "number", "", "bill number")
	cmd.Flags().StringVar(&input.Description, "description", "", "bill description")
	cmd.Flags().StringVar(&amount, "amount", "", "bill amount")
	cmd.Flags().StringVar(&category, "category", "", "bill category")
	return cmd
}

func billPayCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "pay <bill-id>",
		Short: "settle a pending bill from the customer's active pocket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			bill, err := a.Bills.PayBill(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), bill)
		},
	}
}

func billListCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list <customer-id>",
		Short: "list a customer's bills",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			list, err := a.Bills.ListByCustomer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		},
	}
}

func billDeleteCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <bill-id>",
		Short: "delete a bill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.Bills.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}
}

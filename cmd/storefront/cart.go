package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vitrine/storefront_sdk_go/pkg/storefront"
)

func newCartCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sdk, err := a.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			cart, err := sdk.GetCart(cmd.Context())
			if err != nil {
				return err
			}
			return a.printCart(cmd, cart)
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <product-id>",
			Short: "Add one unit of a product",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				sdk, err := a.open(cmd.Context(), true)
				if err != nil {
					return err
				}
				return sdk.AddToCart(cmd.Context(), id)
			},
		},
		&cobra.Command{
			Use:   "set <product-id> <quantity>",
			Short: "Change the quantity of a cart line",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				qty, err := quantityArg(args[1])
				if err != nil {
					return err
				}
				sdk, err := a.open(cmd.Context(), true)
				if err != nil {
					return err
				}
				return sdk.ChangeQuantity(cmd.Context(), id, qty)
			},
		},
		&cobra.Command{
			Use:   "remove <product-id>",
			Short: "Drop a cart line",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				sdk, err := a.open(cmd.Context(), true)
				if err != nil {
					return err
				}
				return sdk.RemoveFromCart(cmd.Context(), id)
			},
		},
	)
	return cmd
}

func (a *app) printCart(cmd *cobra.Command, cart storefront.Cart) error {
	if a.jsonOut {
		return writeJSON(cmd.OutOrStdout(), cart)
	}
	rows := make([][]string, 0, len(cart))
	for _, item := range cart {
		rows = append(rows, []string{
			strconv.FormatInt(item.ProductID, 10),
			item.Product.Name,
			strconv.Itoa(item.Quantity),
			item.Product.Price.BRL(),
			item.Subtotal().BRL(),
		})
	}
	if err := table(cmd.OutOrStdout(), []string{"PRODUCT", "NAME", "QTY", "PRICE", "SUBTOTAL"}, rows); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "total: %s (%d items)\n", cart.Subtotal().BRL(), cart.Units())
	return nil
}

func newCheckoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "checkout",
		Short: "Turn the cart into an order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sdk, err := a.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			if err := sdk.Checkout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "order placed")
			return nil
		},
	}
}

func newOrdersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "orders",
		Short: "List your orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sdk, err := a.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			orders, err := sdk.ListOrders(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), orders)
			}
			rows := make([][]string, 0, len(orders))
			for _, o := range orders {
				rows = append(rows, []string{
					strconv.FormatInt(o.ID, 10),
					o.CreatedAt.Local().Format("02/01/2006 15:04"),
					string(o.Status),
					strconv.Itoa(len(o.Items)),
					o.TotalAmount.BRL(),
				})
			}
			return table(cmd.OutOrStdout(), []string{"ID", "DATE", "STATUS", "LINES", "TOTAL"}, rows)
		},
	}
}

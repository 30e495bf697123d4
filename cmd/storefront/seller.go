package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vitrine/storefront_sdk_go/pkg/storefront"
)

func newDashboardCmd(a *app) *cobra.Command {
	var start string
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show the seller dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var from *time.Time
			if start != "" {
				t, err := time.ParseInLocation(storefront.DateLayout, start, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --start %q: want %s", start, storefront.DateLayout)
				}
				from = &t
			}
			sdk, err := a.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			d, err := sdk.GetDashboard(cmd.Context(), from)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), d)
			}
			rows := make([][]string, 0, len(d.Chart))
			for _, p := range d.Chart {
				rows = append(rows, []string{p.Date, p.Revenue.BRL(), fmt.Sprint(p.SalesCount), fmt.Sprint(p.Favorites), fmt.Sprint(p.InCarts)})
			}
			out := cmd.OutOrStdout()
			if err := table(out, []string{"DAY", "REVENUE", "SALES", "FAVORITES", "IN CARTS"}, rows); err != nil {
				return err
			}
			t := d.Totals()
			fmt.Fprintf(out, "revenue %s, %d sales, %d favorites, %d in carts\n", t.Revenue.BRL(), t.Sales, t.Favorites, t.InCarts)
			if d.BestSeller != nil {
				fmt.Fprintf(out, "best seller: %s\n", d.BestSeller.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "first day (YYYY-MM-DD); defaults to the last week")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <active|inactive>",
		Short: "Activate or deactivate your account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sdk, err := a.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			user, err := sdk.CurrentUser()
			if err != nil {
				return err
			}
			if err := sdk.SetUserStatus(cmd.Context(), user.ID, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "account %s\n", args[0])
			return nil
		},
	}
}

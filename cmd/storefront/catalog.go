package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vitrine/storefront_sdk_go/pkg/storefront"
)

func newProductsCmd(a *app) *cobra.Command {
	var p storefront.ListParams
	cmd := &cobra.Command{
		Use:   "products",
		Short: "List the catalogue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sdk, err := a.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			p = p.Normalize()
			products, meta, err := sdk.ListProducts(cmd.Context(), p)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"data": products, "meta": meta})
			}
			if err := table(cmd.OutOrStdout(), productHeader, productRows(products)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "page %d/%d, %d products\n", p.Page, storefront.TotalPages(meta.Total, p.Size), meta.Total)
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVar(&p.Page, "page", 1, "page number, from 1")
	f.IntVar(&p.Size, "size", storefront.DefaultPageSize, "page size (10, 20, 50 or 100)")
	f.StringVar(&p.Search, "search", "", "filter by name")
	f.StringVar(&p.OrderBy, "order-by", storefront.OrderByCreatedAt, "createdAt, price or name")
	f.StringVar(&p.OrderType, "order-type", storefront.OrderDesc, "asc or desc")
	return cmd
}

func newProductCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "product <id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			sdk, err := a.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			p, err := sdk.GetProduct(cmd.Context(), id)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), p)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n%s\n\n", p.Name, p.Description)
			fmt.Fprintf(out, "price:  %s\nstock:  %s\nstatus: %s\n", p.Price.BRL(), stockLabel(p), p.Status)
			if cover, ok := p.Cover(); ok {
				fmt.Fprintf(out, "cover:  %s\n", cover.ImageURL)
			}
			return nil
		},
	}
}

func newFavoritesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "favorites",
		Short: "List your favorite products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sdk, err := a.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			favs, err := sdk.ListFavorites(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), favs)
			}
			products := make([]storefront.Product, 0, len(favs))
			for _, f := range favs {
				products = append(products, f.Product)
			}
			return table(cmd.OutOrStdout(), productHeader, productRows(products))
		},
	}
}

func newFavoriteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "favorite <id>",
		Short: "Toggle a product in your favorites",
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
			p, err := sdk.GetProduct(cmd.Context(), id)
			if err != nil {
				return err
			}
			on, err := sdk.ToggleFavorite(cmd.Context(), p)
			if err != nil {
				return err
			}
			if on {
				fmt.Fprintf(cmd.OutOrStdout(), "%s added to favorites\n", p.Name)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s removed from favorites\n", p.Name)
			}
			return nil
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Create products from a CSV file (see csv-template)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			products, err := storefront.ParseProductsCSV(f)
			if err != nil {
				return err
			}
			sdk, err := a.open(cmd.Context(), true)
			if err != nil {
				return err
			}
			if err := sdk.CreateProducts(cmd.Context(), products); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d products created\n", len(products))
			return nil
		},
	}
}

func newCSVTemplateCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "csv-template",
		Short: "Write the product import template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return storefront.WriteCSVTemplate(cmd.OutOrStdout())
			}
			f, err := os.Create(out)
			if err != nil {
				return err
			}
			if err := storefront.WriteCSVTemplate(f); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to this file instead of stdout")
	return cmd
}

func quantityArg(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q", raw)
	}
	return n, nil
}

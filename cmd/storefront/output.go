package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/vitrine/storefront_sdk_go/pkg/storefront"
)

func writeJSON(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

// table prints rows under header with aligned columns.
func table(w io.Writer, header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, h := range header {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, h)
	}
	fmt.Fprintln(tw)
	for _, row := range rows {
		for i, cell := range row {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, cell)
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func stockLabel(p storefront.Product) string {
	switch {
	case p.InfiniteStock():
		return "∞"
	case p.OutOfStock():
		return "esgotado"
	default:
		return strconv.Itoa(p.StockQuantity)
	}
}

func productRows(ps []storefront.Product) [][]string {
	rows := make([][]string, 0, len(ps))
	for _, p := range ps {
		fav := ""
		if p.IsFavorite() {
			fav = "★"
		}
		rows = append(rows, []string{strconv.FormatInt(p.ID, 10), p.Name, p.Price.BRL(), stockLabel(p), string(p.Status), fav})
	}
	return rows
}

var productHeader = []string{"ID", "NAME", "PRICE", "STOCK", "STATUS", "FAV"}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

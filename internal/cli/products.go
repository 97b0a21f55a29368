package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/tuanvumaihuynh/event-pos/internal/model"
	"github.com/tuanvumaihuynh/event-pos/internal/service"
)

func newProductsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "products",
		Aliases: []string{"product"},
		Short:   "Inspect and edit the catalog",
	}

	cmd.AddCommand(
		newProductsListCmd(a),
		newProductsCreateCmd(a),
		newProductsDeleteCmd(a),
	)

	return cmd
}

func newProductsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the catalog by name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, done, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			products, err := deps.Products.ListAllProducts(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.json() {
				return writeJSON(out, products)
			}

			tw := newTable(out)
			fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSTOCK\tSIZES")
			for _, p := range products {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", p.ID, p.Name, model.FormatMoney(p.Price), p.Sizes.Total(), formatSizes(p.Sizes))
			}
			return tw.Flush()
		},
	}
}

func newProductsCreateCmd(a *app) *cobra.Command {
	var (
		name  string
		price string
		sizes []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a product to the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := decimal.NewFromString(price)
			if err != nil {
				return fmt.Errorf("invalid price %q: %w", price, err)
			}

			stock := make(model.Sizes, len(sizes))
			for _, s := range sizes {
				label, qty, err := parseSizeQty(s)
				if err != nil {
					return err
				}
				stock[label] = qty
			}

			deps, done, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			product, err := deps.Products.CreateProduct(cmd.Context(), service.CreateProductParams{
				Name:  name,
				Price: p,
				Sizes: stock,
			})
			if err != nil {
				return err
			}

			if a.json() {
				return writeJSON(cmd.OutOrStdout(), product)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s\n", product.ID, product.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "product name")
	cmd.Flags().StringVar(&price, "price", "0", "unit price")
	cmd.Flags().StringArrayVar(&sizes, "size", nil, "stock per size as LABEL=QTY, repeatable")
	//nolint:errcheck
	cmd.MarkFlagRequired("name")

	return cmd
}

func newProductsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <product-id>",
		Short: "Remove a product and its image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid product id %q: %w", args[0], err)
			}

			deps, done, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			if err := deps.Products.DeleteProduct(cmd.Context(), id); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
			return nil
		},
	}
}

// parseSizeQty reads a LABEL=QTY pair such as M=3.
func parseSizeQty(s string) (string, int, error) {
	label, raw, ok := strings.Cut(s, "=")
	label = strings.TrimSpace(label)
	if !ok || label == "" {
		return "", 0, fmt.Errorf("invalid size %q, want LABEL=QTY", s)
	}

	qty, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return "", 0, fmt.Errorf("invalid quantity in %q: %w", s, err)
	}

	return label, qty, nil
}

func formatSizes(sizes model.Sizes) string {
	labels := sizes.Labels()
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, fmt.Sprintf("%s=%d", l, sizes[l]))
	}
	return strings.Join(parts, " ")
}

package cli

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tuanvumaihuynh/event-pos/internal/aggregate"
	"github.com/tuanvumaihuynh/event-pos/internal/model"
	"github.com/tuanvumaihuynh/event-pos/internal/service"
)

func newSellCmd(a *app) *cobra.Command {
	var allOrNothing bool

	cmd := &cobra.Command{
		Use:   "sell <product-id> <size>=<qty>...",
		Short: "Sell units of a product, one line per size",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid product id %q: %w", args[0], err)
			}

			params := service.RecordSalesParams{
				ProductID: id,
				Mode:      service.BatchModePartial,
			}
			if allOrNothing {
				params.Mode = service.BatchModeAllOrNothing
			}
			for _, arg := range args[1:] {
				size, qty, err := parseSizeQty(arg)
				if err != nil {
					return err
				}
				params.Lines = append(params.Lines, service.SaleLine{Size: size, Quantity: qty})
			}

			deps, done, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			result, err := deps.Sales.RecordSales(cmd.Context(), params)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.json() {
				if err := writeJSON(out, newSellReport(result)); err != nil {
					return err
				}
			} else {
				for _, line := range result.Lines {
					if line.Err != nil {
						fmt.Fprintf(out, "FAILED %s x%d: %s\n", line.Line.Size, line.Line.Quantity, describeError(line.Err))
						continue
					}
					fmt.Fprintf(out, "SOLD %s x%d of %s for %s\n",
						line.Sale.Size, line.Sale.Quantity, line.Sale.ProductName, model.FormatMoney(line.Sale.Total))
				}
			}

			if failed := result.Failed(); failed > 0 {
				return fmt.Errorf("%d of %d lines failed: %w", failed, len(result.Lines), errAborted)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&allOrNothing, "all-or-nothing", false, "commit every line or none")

	return cmd
}

type sellLineReport struct {
	Size     string      `json:"size"`
	Quantity int         `json:"quantity"`
	Sale     *model.Sale `json:"sale,omitempty"`
	Error    string      `json:"error,omitempty"`
}

type sellReport struct {
	Mode   service.BatchMode `json:"mode"`
	Failed int               `json:"failed"`
	Lines  []sellLineReport  `json:"lines"`
}

func newSellReport(r service.RecordSalesResult) sellReport {
	report := sellReport{Mode: r.Mode, Failed: r.Failed(), Lines: make([]sellLineReport, 0, len(r.Lines))}
	for _, l := range r.Lines {
		line := sellLineReport{Size: l.Line.Size, Quantity: l.Line.Quantity, Sale: l.Sale}
		if l.Err != nil {
			line.Error = describeError(l.Err)
		}
		report.Lines = append(report.Lines, line)
	}
	return report
}

func newSalesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sales",
		Aliases: []string{"sale"},
		Short:   "Inspect and manage the sales ledger",
	}

	cmd.AddCommand(
		newSalesListCmd(a),
		newSalesStatsCmd(a),
		newSalesClearCmd(a),
		newSalesSeedCmd(a),
	)

	return cmd
}

func rangeFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "range", "r", string(aggregate.PresetAll), "time range: all|today|yesterday")
}

func newSalesListCmd(a *app) *cobra.Command {
	var rng string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			preset, err := aggregate.ParsePreset(rng)
			if err != nil {
				return err
			}

			deps, done, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			sales, err := deps.Sales.ListSales(cmd.Context(), service.ListSalesParams{Range: preset})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.json() {
				return writeJSON(out, sales)
			}

			tw := newTable(out)
			fmt.Fprintln(tw, "TIME\tPRODUCT\tSIZE\tQTY\tPRICE\tTOTAL")
			for _, s := range sales {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					s.Timestamp.Format("2006-01-02 15:04:05"), s.ProductName, s.Size, s.Quantity,
					model.FormatMoney(s.Price), model.FormatMoney(s.Total))
			}
			return tw.Flush()
		},
	}
	rangeFlag(cmd, &rng)

	return cmd
}

func newSalesStatsCmd(a *app) *cobra.Command {
	var (
		rng string
		top int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show totals, the per product and size rollup and the best and worst sellers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			preset, err := aggregate.ParsePreset(rng)
			if err != nil {
				return err
			}
			if top <= 0 {
				return fmt.Errorf("--top must be greater than 0")
			}

			deps, done, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			summary, err := deps.Sales.SalesStats(cmd.Context(), service.SalesStatsParams{Range: preset, Top: top})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.json() {
				return writeJSON(out, summary)
			}

			fmt.Fprintf(out, "Sales: %d  Units: %d  Revenue: %s\n\n",
				summary.Totals.Count, summary.Totals.TotalQuantity, model.FormatMoney(summary.Totals.TotalRevenue))

			writeRollup(cmd, "By product and size", summary.Rollup)
			writeRollup(cmd, fmt.Sprintf("Top %d", top), summary.Top)
			writeRollup(cmd, fmt.Sprintf("Bottom %d", top), summary.Bottom)
			return nil
		},
	}
	rangeFlag(cmd, &rng)
	cmd.Flags().IntVar(&top, "top", aggregate.DefaultExtremes, "how many best and worst sellers to show")

	return cmd
}

func writeRollup(cmd *cobra.Command, title string, entries []aggregate.RollupEntry) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, title)
	fmt.Fprintln(out, strings.Repeat("-", len(title)))

	tw := newTable(out)
	fmt.Fprintln(tw, "PRODUCT\tSIZE\tQTY\tREVENUE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", e.ProductName, e.Size, e.Quantity, model.FormatMoney(e.Revenue))
	}
	//nolint:errcheck
	tw.Flush()
	fmt.Fprintln(out)
}

func newSalesClearCmd(a *app) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every ledger entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear the ledger without --yes: %w", errAborted)
			}

			deps, done, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			deleted, err := deps.Sales.ClearSales(cmd.Context())
			if err != nil {
				return err
			}

			if a.json() {
				return writeJSON(cmd.OutOrStdout(), map[string]int64{"deleted": deleted})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d sales\n", deleted)
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the deletion")

	return cmd
}

func newSalesSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Append demo sales for today and yesterday",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			deps, done, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			result, err := deps.Sales.SeedDemoSales(cmd.Context())
			if err != nil {
				return err
			}

			if a.json() {
				return writeJSON(cmd.OutOrStdout(), map[string]int{"today": result.Today, "yesterday": result.Yesterday})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d sales today and %d yesterday\n", result.Today, result.Yesterday)
			return nil
		},
	}
}

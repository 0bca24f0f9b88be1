package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/BatmanBruc/sub-pay-bot/internal/config"
	"github.com/BatmanBruc/sub-pay-bot/internal/plans"
	"github.com/spf13/cobra"
)

func plansCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "Print the effective plan catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			catalog, err := plans.LoadFile(cfg.PlansFile)
			if err != nil {
				return err
			}
			return printPlans(cmd.OutOrStdout(), catalog, cfg.Currency)
		},
	}
}

func printPlans(w io.Writer, catalog *plans.Catalog, currency string) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tDAYS")
	for _, p := range catalog.All() {
		cur := p.Currency
		if cur == "" {
			cur = currency
		}
		fmt.Fprintf(tw, "%s\t%s\t%s %s\t%d\n", p.ID, p.Title, p.Price.StringFixed(2), cur, p.Days())
	}
	return tw.Flush()
}

package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/aggregate"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
)

func dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "dashboard",
		Aliases:     []string{"home"},
		Short:       "Balance, budget health and recent activity",
		Annotations: map[string]string{annotationSession: "required"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			d, err := application.Dashboard.Load(cmd.Context())
			if err != nil {
				return err
			}
			if format == jsonOutputFormat {
				return outputJSON(d)
			}

			fmt.Println(titleStyle.Render("Dashboard") + " " + mutedStyle.Render(d.Today))
			fmt.Printf("Balance:      %s\n", formatMoney(d.Balance))
			fmt.Printf("Health score: %d/100 %s\n", d.HealthScore, levelLabel(aggregate.HealthLevel(d.HealthScore)))
			fmt.Println()

			if len(d.ActiveBudgets) > 0 {
				cats, err := application.Categories.ByID(cmd.Context())
				if err != nil {
					return err
				}
				t := createStyledTable("BUDGET", "CATEGORY", "CONSUMED", "LEFT")
				for _, b := range d.ActiveBudgets {
					t.Row(strconv.Itoa(b.ID), categoryName(cats, b.CategoryID), progressBar(b.ConsumedPercent), formatMoney(b.Remaining))
				}
				fmt.Println(titleStyle.Render("Active budgets"))
				fmt.Println(t)
			} else {
				fmt.Println(mutedStyle.Render("No active budget today."))
			}

			printTimeline("Recent", d.Recent)
			printTimeline("Upcoming", d.Upcoming)
			return nil
		},
	}
}

func printTimeline(title string, txs []domain.Transaction) {
	fmt.Println(titleStyle.Render(title))
	if len(txs) == 0 {
		fmt.Println(mutedStyle.Render("  nothing"))
		return
	}
	t := createStyledTable("DATE", "LABEL", "CATEGORY", "AMOUNT")
	for _, tx := range txs {
		t.Row(tx.Day(), tx.Label, tx.Category, signedMoney(tx))
	}
	fmt.Println(t)
}

package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/aggregate"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/service"
)

func budgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "budget",
		Aliases:     []string{"budgets"},
		Short:       "Spending caps per category and period",
		Annotations: map[string]string{annotationSession: "required"},
	}
	cmd.AddCommand(budgetListCmd(), budgetShowCmd(), budgetCreateCmd(), budgetEditCmd())
	return cmd
}

func categoryName(cats map[int]domain.Category, id int) string {
	if c, ok := cats[id]; ok {
		return c.Name
	}
	return "#" + strconv.Itoa(id)
}

func budgetListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List budgets with their consumption",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			budgets, err := application.Budgets.List(cmd.Context())
			if err != nil {
				return err
			}
			if format == jsonOutputFormat {
				return outputJSON(budgets)
			}

			cats, err := application.Categories.ByID(cmd.Context())
			if err != nil {
				return err
			}
			t := createStyledTable("ID", "CATEGORY", "PERIOD", "SPENT", "CAP", "CONSUMED", "STATUS")
			for _, b := range budgets {
				t.Row(
					strconv.Itoa(b.ID),
					categoryName(cats, b.CategoryID),
					domain.DayOf(b.PeriodStart)+" → "+domain.DayOf(b.PeriodEnd),
					formatMoney(b.Spent),
					formatMoney(b.Cap),
					progressBar(b.ConsumedPercent),
					levelLabel(aggregate.BudgetLevel(b)),
				)
			}
			fmt.Println(t)
			return nil
		},
	}
}

func budgetID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid budget id %q", arg)
	}
	return id, nil
}

// gone replaces a not-found error with the notice shown when a budget vanished.
func gone(err error) error {
	if domain.KindOf(err) == domain.KindNotFound {
		return errors.New(service.MsgBudgetGone)
	}
	return err
}

func budgetShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a budget and the transactions it covers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			id, err := budgetID(args[0])
			if err != nil {
				return err
			}
			detail, err := application.Budgets.Detail(cmd.Context(), id)
			if err != nil {
				return gone(err)
			}
			if format == jsonOutputFormat {
				return outputJSON(detail)
			}

			b := detail.Budget
			name := "#" + strconv.Itoa(b.CategoryID)
			if detail.Category != nil {
				name = detail.Category.Name
			}
			fmt.Println(titleStyle.Render(fmt.Sprintf("Budget #%d · %s", b.ID, name)))
			fmt.Println(mutedStyle.Render(domain.DayOf(b.PeriodStart) + " → " + domain.DayOf(b.PeriodEnd)))
			fmt.Printf("%s of %s spent, %s left  %s\n",
				formatMoney(b.Spent), formatMoney(b.Cap), formatMoney(b.Remaining), levelLabel(aggregate.BudgetLevel(b)))
			fmt.Println(progressBar(b.ConsumedPercent))

			if len(detail.Transactions) == 0 {
				fmt.Println(mutedStyle.Render("No transactions in this period."))
				return nil
			}
			t := createStyledTable("ID", "DATE", "LABEL", "AMOUNT")
			for _, tx := range detail.Transactions {
				t.Row(strconv.Itoa(tx.ID), tx.Day(), tx.Label, signedMoney(tx))
			}
			fmt.Println(t)
			return nil
		},
	}
}

func addBudgetFormFlags(cmd *cobra.Command) {
	cmd.Flags().String("category-id", "", "category ID")
	cmd.Flags().String("cap", "", "spending cap, greater than zero")
	cmd.Flags().String("start", "", "first day of the period, YYYY-MM-DD")
	cmd.Flags().String("end", "", "last day of the period, YYYY-MM-DD")
}

func applyBudgetFlags(cmd *cobra.Command, form *domain.BudgetForm) {
	set := func(name string, dst *string) {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	set("category-id", &form.CategoryID)
	set("cap", &form.Cap)
	set("start", &form.PeriodStart)
	set("end", &form.PeriodEnd)
}

func budgetCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "create",
		Short:   "Create a budget",
		Example: `  mybudget budget create --category-id 1 --cap 300 --start 2026-03-01 --end 2026-03-31`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var form domain.BudgetForm
			applyBudgetFlags(cmd, &form)

			b, err := application.Budgets.Create(cmd.Context(), form)
			if err != nil {
				return describe(err)
			}
			fmt.Println(successStyle.Render(fmt.Sprintf("Created budget #%d (%s)", b.ID, formatMoney(b.Cap))))
			return nil
		},
	}
	addBudgetFormFlags(cmd)
	return cmd
}

func budgetEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a budget; fields not given keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := budgetID(args[0])
			if err != nil {
				return err
			}
			ed, err := application.Budgets.OpenEditor(cmd.Context(), id)
			if err != nil {
				return gone(err)
			}
			form := ed.Snapshot
			applyBudgetFlags(cmd, &form)

			b, result, err := application.Budgets.SubmitEdit(cmd.Context(), id, form)
			if err != nil {
				return gone(describe(err))
			}
			if result == service.EditUnchanged {
				fmt.Println(mutedStyle.Render("Nothing to update"))
				return nil
			}
			fmt.Println(successStyle.Render(fmt.Sprintf("Updated budget #%d (%s)", b.ID, formatMoney(b.Cap))))
			return nil
		},
	}
	addBudgetFormFlags(cmd)
	return cmd
}

package main

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
)

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			cats, err := application.Categories.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to fetch categories: %w", err)
			}
			sort.Slice(cats, func(i, j int) bool { return cats[i].ID < cats[j].ID })

			if format == jsonOutputFormat {
				return outputJSON(cats)
			}
			t := createStyledTable("ID", "NAME", "ICON")
			for _, c := range cats {
				icon := c.Icon
				if icon == "" {
					icon = "-"
				}
				t.Row(strconv.Itoa(c.ID), c.Name, icon)
			}
			fmt.Println(t)
			return nil
		},
	}
}

func txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:         "tx",
		Aliases:     []string{"transactions"},
		Short:       "Income and expense commands",
		Annotations: map[string]string{annotationSession: "required"},
	}
	cmd.AddCommand(txListCmd(), txTotalCmd(), txAddCmd(), txEditCmd(), txRmCmd())
	return cmd
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "first day, YYYY-MM-DD")
	cmd.Flags().String("to", "", "last day, YYYY-MM-DD")
	cmd.Flags().String("category", "", "category name")
	cmd.Flags().String("type", "", "REVENU (income) or DEPENSE (expense)")
}

func filterFromFlags(cmd *cobra.Command) (domain.TransactionFilter, error) {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	category, _ := cmd.Flags().GetString("category")
	typ, _ := cmd.Flags().GetString("type")

	f := domain.TransactionFilter{From: from, To: to, Category: category}
	if typ != "" {
		t, ok := domain.ParseTransactionType(typ)
		if !ok {
			return f, fmt.Errorf("invalid --type %q (REVENU or DEPENSE)", typ)
		}
		f.Type = t
	}
	return f, nil
}

func txListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions with their total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			f, err := filterFromFlags(cmd)
			if err != nil {
				return err
			}

			page, err := application.Transactions.Load(cmd.Context(), f)
			if err != nil {
				return err
			}
			if format == jsonOutputFormat {
				return outputJSON(page)
			}

			t := createStyledTable("ID", "DATE", "LABEL", "CATEGORY", "AMOUNT")
			for _, tx := range page.Transactions {
				t.Row(strconv.Itoa(tx.ID), tx.Day(), tx.Label, tx.Category, signedMoney(tx))
			}
			fmt.Println(t)
			fmt.Printf("%s %s\n", titleStyle.Render("Total:"), formatMoney(page.Total))
			return nil
		},
	}
	addFilterFlags(cmd)
	return cmd
}

func txTotalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "total",
		Short: "Print the net total of the matching transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := filterFromFlags(cmd)
			if err != nil {
				return err
			}
			total, err := application.Transactions.Total(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Println(formatMoney(total))
			return nil
		},
	}
	addFilterFlags(cmd)
	return cmd
}

func addTxFormFlags(cmd *cobra.Command) {
	cmd.Flags().String("amount", "", "amount, greater than zero")
	cmd.Flags().String("label", "", "label")
	cmd.Flags().String("type", "", "REVENU (income) or DEPENSE (expense)")
	cmd.Flags().String("category", "", "category name")
	cmd.Flags().String("date", "", "date, YYYY-MM-DD")
}

// applyTxFlags overwrites the fields of form whose flag was given.
func applyTxFlags(cmd *cobra.Command, form *domain.TransactionForm) {
	set := func(name string, dst *string) {
		if cmd.Flags().Changed(name) {
			*dst, _ = cmd.Flags().GetString(name)
		}
	}
	set("amount", &form.Amount)
	set("label", &form.Label)
	set("type", &form.Type)
	set("category", &form.Category)
	set("date", &form.Date)
}

func txAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Example: `  mybudget tx add --amount 42.50 --label Groceries --type DEPENSE --category alimentation
  mybudget tx add --amount 2100 --label Salary --type REVENU --category salaire --date 2026-03-01`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			form := domain.TransactionForm{Date: time.Now().Format("2006-01-02")}
			applyTxFlags(cmd, &form)

			tx, err := application.Transactions.Create(cmd.Context(), form)
			if err != nil {
				return describe(err)
			}
			fmt.Println(successStyle.Render(fmt.Sprintf("Recorded #%d %s %s", tx.ID, tx.Label, formatMoney(tx.Signed()))))
			return nil
		},
	}
	addTxFormFlags(cmd)
	return cmd
}

func txEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a transaction; fields not given keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}

			page, err := application.Transactions.Load(cmd.Context(), domain.TransactionFilter{})
			if err != nil {
				return err
			}
			var form *domain.TransactionForm
			for _, tx := range page.Transactions {
				if tx.ID == id {
					f := domain.TransactionFormFrom(tx)
					form = &f
					break
				}
			}
			if form == nil {
				return fmt.Errorf("transaction #%d not found", id)
			}
			applyTxFlags(cmd, form)

			tx, err := application.Transactions.Update(cmd.Context(), id, *form)
			if err != nil {
				return describe(err)
			}
			fmt.Println(successStyle.Render(fmt.Sprintf("Updated #%d %s %s", tx.ID, tx.Label, formatMoney(tx.Signed()))))
			return nil
		},
	}
	addTxFormFlags(cmd)
	return cmd
}

func txRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a transaction",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			total, err := application.Transactions.Delete(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Println(successStyle.Render(fmt.Sprintf("Deleted #%d.", id)) + " " +
				mutedStyle.Render("New total: "+formatMoney(total)))
			return nil
		},
	}
}

package main

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/aggregate"
	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/domain"
)

const (
	tableOutputFormat = "table"
	jsonOutputFormat  = "json"

	progressBarWidth = 20
)

var (
	purple = lipgloss.Color("99")

	titleStyle   = lipgloss.NewStyle().Foreground(purple).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FB7185")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#84CC16"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFDA55"))
)

// outputFormat returns the validated -o flag.
func outputFormat(cmd *cobra.Command) (string, error) {
	format, _ := cmd.Flags().GetString("output")
	if !slices.Contains([]string{tableOutputFormat, jsonOutputFormat}, format) {
		return "", fmt.Errorf("invalid output format: %s (must be one of table, json)", format)
	}
	return format, nil
}

// outputJSON outputs data in JSON format.
func outputJSON(data any) error {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	fmt.Println(string(jsonData))
	return nil
}

// createStyledTable creates a table with the standard styling used across commands.
func createStyledTable(headers ...string) *table.Table {
	var (
		gray      = lipgloss.Color("245")
		lightGray = lipgloss.Color("241")

		headerStyle  = lipgloss.NewStyle().Foreground(purple).Bold(true).Align(lipgloss.Center)
		cellStyle    = lipgloss.NewStyle().Padding(0, 1)
		oddRowStyle  = cellStyle.Foreground(gray)
		evenRowStyle = cellStyle.Foreground(lightGray)
	)

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(purple)).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row%2 == 0:
				return evenRowStyle
			default:
				return oddRowStyle
			}
		}).
		Headers(headers...)
}

// formatMoney renders d in the configured currency, e.g. "€1,234.50".
func formatMoney(d decimal.Decimal) string {
	code := cfg.Currency
	cur := money.GetCurrency(code)
	if cur == nil {
		return d.StringFixed(2) + " " + code
	}
	minor := d.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, code).Display()
}

// signedMoney shows expenses as negative amounts.
func signedMoney(tx domain.Transaction) string {
	s := formatMoney(tx.Signed())
	if tx.Type == domain.Income {
		return successStyle.Render("+" + s)
	}
	return s
}

// progressBar draws pct as a bar coloured from green to red.
func progressBar(pct float64) string {
	filled := int(aggregate.ProgressWidth(pct) / 100 * progressBarWidth)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", progressBarWidth-filled)
	color := lipgloss.Color(aggregate.ProgressColor(pct).Hex())
	return lipgloss.NewStyle().Foreground(color).Render(bar) + fmt.Sprintf(" %5.1f%%", pct)
}

func levelLabel(l aggregate.Level) string {
	switch l {
	case aggregate.LevelExceeded:
		return errorStyle.Render("exceeded")
	case aggregate.LevelWarning:
		return warnStyle.Render("warning")
	default:
		return successStyle.Render("ok")
	}
}

// describe turns a failed form submission into one line per field.
func describe(err error) error {
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindConflict:
	default:
		return err
	}
	fields := domain.FieldErrorsOf(err)
	lines := make([]string, 0, len(fields))
	for _, k := range fields.Keys() {
		name := k
		if k == domain.GlobalField {
			name = "form"
		}
		lines = append(lines, fmt.Sprintf("  %s: %s", name, fields[k]))
	}
	return fmt.Errorf("invalid form\n%s", strings.Join(lines, "\n"))
}

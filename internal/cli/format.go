package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/goliatone/go-fintrack/report"
	"github.com/goliatone/go-fintrack/transaction"
	"github.com/shopspring/decimal"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var (
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	headerStyle = cellStyle.Bold(true)
	amountStyle = cellStyle.Align(lipgloss.Right)
)

// amount formats d with two decimals and the grouping of the locale.
func amount(p *message.Printer, d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	return p.Sprint(number.Decimal(f, number.Scale(2)))
}

// render writes a bordered table. Columns listed in amounts are right
// aligned.
func render(w io.Writer, headers []string, rows [][]string, amounts ...int) error {
	right := make(map[int]bool, len(amounts))
	for _, col := range amounts {
		right[col] = true
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case right[col]:
				return amountStyle
			default:
				return cellStyle
			}
		})

	_, err := fmt.Fprintln(w, t.String())
	return err
}

func printTransactions(w io.Writer, p *message.Printer, items []transaction.Transaction) error {
	rows := make([][]string, 0, len(items))
	for _, t := range items {
		rows = append(rows, []string{
			strconv.FormatInt(t.ID, 10), t.Date, string(t.Type), t.Category, amount(p, t.Amount), t.Description,
		})
	}
	return render(w, []string{"ID", "DATE", "TYPE", "CATEGORY", "AMOUNT", "DESCRIPTION"}, rows, 4)
}

func reportRow(p *message.Printer, period string, income, expense, balance decimal.Decimal) []string {
	return []string{period, amount(p, income), amount(p, expense), amount(p, balance)}
}

func printReports(w io.Writer, p *message.Printer, items []report.Report) error {
	rows := make([][]string, 0, len(items))
	for _, r := range items {
		rows = append(rows, reportRow(p, r.Period, r.TotalIncome, r.TotalExpense, r.Balance))
	}
	return render(w, []string{"PERIOD", "INCOME", "EXPENSE", "BALANCE"}, rows, 1, 2, 3)
}

func printReport(w io.Writer, p *message.Printer, r *report.Report) error {
	return printReports(w, p, []report.Report{*r})
}

func printSummary(w io.Writer, p *message.Printer, s *report.Summary) error {
	rows := make([][]string, 0, len(s.Reports)+1)
	for _, r := range s.Reports {
		rows = append(rows, reportRow(p, r.Period, r.TotalIncome, r.TotalExpense, r.Balance))
	}
	rows = append(rows, reportRow(p, fmt.Sprintf("TOTAL %s..%s", s.StartPeriod, s.EndPeriod), s.TotalIncome, s.TotalExpense, s.Balance))
	return render(w, []string{"PERIOD", "INCOME", "EXPENSE", "BALANCE"}, rows, 1, 2, 3)
}

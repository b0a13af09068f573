package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/goliatone/go-fintrack/pagination"
	"github.com/goliatone/go-fintrack/transaction"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type transactionFlags struct {
	kind        string
	amount      string
	category    string
	date        string
	description string
}

func (f *transactionFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.kind, "type", "", "INCOME or EXPENSE")
	fl.StringVar(&f.amount, "amount", "", "positive amount with at most two decimals")
	fl.StringVar(&f.category, "category", "", "category name")
	fl.StringVar(&f.date, "date", "", "date as YYYY-MM-DD (default today)")
	fl.StringVar(&f.description, "description", "", "free text note")
}

func (f *transactionFlags) request() (transaction.Request, error) {
	value, err := decimal.NewFromString(f.amount)
	if err != nil {
		return transaction.Request{}, fmt.Errorf("invalid amount %q", f.amount)
	}
	date := f.date
	if date == "" {
		date = time.Now().Format(transaction.DateLayout)
	}
	return transaction.Request{
		Type:        transaction.Type(f.kind),
		Amount:      value,
		Category:    f.category,
		Date:        date,
		Description: f.description,
	}, nil
}

func newTransactionCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transaction"},
		Short:   "Record and browse transactions",
	}
	cmd.AddCommand(
		newTransactionAddCommand(e),
		newTransactionUpdateCommand(e),
		newTransactionGetCommand(e),
		newTransactionListCommand(e),
	)
	return cmd
}

func newTransactionAddCommand(e *env) *cobra.Command {
	flags := &transactionFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := e.requireUser(); err != nil {
				return err
			}
			req, err := flags.request()
			if err != nil {
				return err
			}
			created, err := e.api.CreateTransaction(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(e.io.Out, "Recorded transaction %d\n", created.ID)
			return printTransactions(e.io.Out, e.printer, []transaction.Transaction{*created})
		},
	}
	flags.register(cmd)
	return cmd
}

func newTransactionUpdateCommand(e *env) *cobra.Command {
	flags := &transactionFlags{}
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Replace a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := e.requireUser(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			req, err := flags.request()
			if err != nil {
				return err
			}
			updated, err := e.api.UpdateTransaction(cmd.Context(), id, req)
			if err != nil {
				return err
			}
			return printTransactions(e.io.Out, e.printer, []transaction.Transaction{*updated})
		},
	}
	flags.register(cmd)
	return cmd
}

func newTransactionGetCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := e.requireUser(); err != nil {
				return err
			}
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			t, err := e.api.GetTransaction(cmd.Context(), id)
			if err != nil {
				return err
			}
			return printTransactions(e.io.Out, e.printer, []transaction.Transaction{*t})
		},
	}
}

func newTransactionListCommand(e *env) *cobra.Command {
	var (
		period string
		page   pagination.Request
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, latest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := e.requireUser(); err != nil {
				return err
			}
			result, err := e.api.ListTransactions(cmd.Context(), period, page)
			if err != nil {
				return err
			}
			if err := printTransactions(e.io.Out, e.printer, result.Content); err != nil {
				return err
			}
			fmt.Fprintf(e.io.Out, "page %d of %d, %d transactions\n", result.Page+1, max(result.TotalPages, 1), result.TotalElements)
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "only this month, YYYY-MM")
	addPageFlags(cmd, &page)
	return cmd
}

func addPageFlags(cmd *cobra.Command, page *pagination.Request) {
	cmd.Flags().IntVar(&page.Page, "page", 0, "zero based page")
	cmd.Flags().IntVar(&page.Size, "size", pagination.DefaultPageSize, "page size")
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid transaction id %q", raw)
	}
	return id, nil
}

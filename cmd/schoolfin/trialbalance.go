package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/schoolfin/backend/internal/reporting"
	"github.com/schoolfin/backend/internal/repository"
)

var trialBalanceCmd = &cobra.Command{
	Use:   "trial-balance",
	Short: "Print a school's trial balance",
	Example: `  schoolfin trial-balance --school 7b4e...
  schoolfin trial-balance --school 7b4e... --as-of 2025-06-30`,
	RunE: runTrialBalance,
}

func init() {
	rootCmd.AddCommand(trialBalanceCmd)
	trialBalanceCmd.Flags().String("school", "", "School UUID")
	trialBalanceCmd.Flags().String("as-of", "", "Balance cutoff date (YYYY-MM-DD, default: current)")
	trialBalanceCmd.MarkFlagRequired("school")
}

func runTrialBalance(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	schoolFlag, _ := cmd.Flags().GetString("school")
	schoolID, err := uuid.Parse(schoolFlag)
	if err != nil {
		return fmt.Errorf("parse school id: %w", err)
	}

	var asOf *time.Time
	if s, _ := cmd.Flags().GetString("as-of"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			return fmt.Errorf("parse as-of date: %w", err)
		}
		asOf = &parsed
	}

	cfg, db, cleanup, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	ledgerSvc, _, err := buildServices(db, cfg)
	if err != nil {
		return err
	}
	svc := reporting.NewService(
		repository.NewAccountRepository(db),
		repository.NewInvoiceRepository(db),
		repository.NewPaymentRepository(db),
		ledgerSvc,
	)

	tb, err := svc.BuildTrialBalance(ctx, schoolID, asOf)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tACCOUNT\tTYPE\tDEBIT\tCREDIT")
	for _, row := range tb.Rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			row.AccountCode, row.AccountName, row.AccountType,
			row.Debit.StringFixed(2), row.Credit.StringFixed(2))
	}
	fmt.Fprintf(w, "\tTOTAL\t\t%s\t%s\n", tb.TotalDebit.StringFixed(2), tb.TotalCredit.StringFixed(2))
	if err := w.Flush(); err != nil {
		return err
	}

	if !tb.Balanced {
		return fmt.Errorf("trial balance out of balance: debits %s, credits %s", tb.TotalDebit, tb.TotalCredit)
	}
	return nil
}

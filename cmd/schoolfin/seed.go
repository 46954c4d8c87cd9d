package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/schoolfin/backend/internal/auth"
	"github.com/schoolfin/backend/internal/config"
	"github.com/schoolfin/backend/internal/domain"
	"github.com/schoolfin/backend/internal/metrics"
	"github.com/schoolfin/backend/internal/repository"
	"github.com/schoolfin/backend/internal/service/billing"
	"github.com/schoolfin/backend/internal/service/ledger"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed a school with its chart of accounts and fee categories",
	Long: `Creates the standard chart of accounts for a school, the default fee
categories and, when an email is given, an admin user. The control accounts
(cash, bank, receivable, VAT payable, revenue) are created as system accounts
closed to manual entries.`,
	Example: `  schoolfin seed --school 7b4e...
  schoolfin seed --school 7b4e... --admin-email admin@school.example --admin-password change-me`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().String("school", "", "School UUID (generated when omitted)")
	seedCmd.Flags().String("admin-email", "", "Email for the initial admin user")
	seedCmd.Flags().String("admin-password", "", "Password for the initial admin user")
}

func runSeed(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	schoolFlag, _ := cmd.Flags().GetString("school")
	adminEmail, _ := cmd.Flags().GetString("admin-email")
	adminPassword, _ := cmd.Flags().GetString("admin-password")

	schoolID := uuid.New()
	if schoolFlag != "" {
		var err error
		if schoolID, err = uuid.Parse(schoolFlag); err != nil {
			return fmt.Errorf("parse school id: %w", err)
		}
	}

	cfg, db, cleanup, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	ledgerSvc, billingSvc, err := buildServices(db, cfg)
	if err != nil {
		return err
	}

	if err := seedAccounts(ctx, ledgerSvc, cfg, schoolID); err != nil {
		return err
	}
	if err := seedFeeCategories(ctx, billingSvc); err != nil {
		return err
	}
	if adminEmail != "" {
		if adminPassword == "" {
			return fmt.Errorf("--admin-password is required with --admin-email")
		}
		if err := seedAdmin(ctx, db, adminEmail, adminPassword); err != nil {
			return err
		}
	}

	slog.Info("seed complete", "school_id", schoolID)
	fmt.Printf("school: %s\n", schoolID)
	return nil
}

func buildServices(db *sql.DB, cfg *config.Config) (*ledger.Service, *billing.Service, error) {
	wrapped := repository.NewDB(db)
	accounts := repository.NewAccountRepository(db)
	journal := repository.NewJournalRepository(db)
	seq := repository.NewSequenceRepository()
	m := metrics.New()

	ledgerSvc, err := ledger.NewService(wrapped, accounts, journal, seq, m, cfg)
	if err != nil {
		return nil, nil, err
	}
	billingSvc := billing.NewService(
		wrapped,
		repository.NewInvoiceRepository(db),
		repository.NewPaymentRepository(db),
		repository.NewFeeCategoryRepository(db),
		seq,
		ledgerSvc,
		m,
		cfg,
	)
	return ledgerSvc, billingSvc, nil
}

func seedAccounts(ctx context.Context, svc *ledger.Service, cfg *config.Config, schoolID uuid.UUID) error {
	accounts := []ledger.CreateAccountParams{
		{Code: cfg.CashAccountCode, Name: "Cash on Hand", Type: domain.AccountTypeAsset, IsSystem: true},
		{Code: cfg.BankAccountCode, Name: "Bank Account", Type: domain.AccountTypeAsset, IsSystem: true},
		{Code: cfg.ReceivableAccountCode, Name: "Accounts Receivable", Type: domain.AccountTypeAsset, IsSystem: true},
		{Code: cfg.VATAccountCode, Name: "VAT Payable", Type: domain.AccountTypeLiability, IsSystem: true},
		{Code: cfg.RevenueAccountCode, Name: "Tuition Revenue", Type: domain.AccountTypeRevenue, IsSystem: true},
		{Code: "3000", Name: "Retained Earnings", Type: domain.AccountTypeEquity, AllowManualEntries: true},
		{Code: "5100", Name: "Salaries Expense", Type: domain.AccountTypeExpense, AllowManualEntries: true},
		{Code: "5200", Name: "Utilities Expense", Type: domain.AccountTypeExpense, AllowManualEntries: true},
		{Code: "5300", Name: "Supplies Expense", Type: domain.AccountTypeExpense, AllowManualEntries: true},
	}
	for _, p := range accounts {
		p.SchoolID = schoolID
		a, err := svc.CreateAccount(ctx, p)
		if err != nil {
			return fmt.Errorf("seed account %s: %w", p.Code, err)
		}
		slog.Info("account created", "code", a.Code, "name", a.Name)
	}
	return nil
}

func seedFeeCategories(ctx context.Context, svc *billing.Service) error {
	categories := []billing.FeeCategoryParams{
		{Name: "Tuition", DefaultAmount: decimal.NewFromInt(1000), IsMandatory: true, DisplayOrder: 1},
		{Name: "Registration", DefaultAmount: decimal.NewFromInt(100), IsMandatory: true, DisplayOrder: 2},
		{Name: "Transport", DefaultAmount: decimal.NewFromInt(150), DisplayOrder: 3},
		{Name: "Books", DefaultAmount: decimal.NewFromInt(80), DisplayOrder: 4},
		{Name: "Activities", DefaultAmount: decimal.NewFromInt(50), DisplayOrder: 5},
	}
	for _, p := range categories {
		fc, err := svc.CreateFeeCategory(ctx, p)
		if err != nil {
			return fmt.Errorf("seed fee category %s: %w", p.Name, err)
		}
		slog.Info("fee category created", "name", fc.Name)
	}
	return nil
}

func seedAdmin(ctx context.Context, db *sql.DB, email, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	users := repository.NewUserRepository(db)
	u := &domain.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         "Administrator",
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Status:       domain.UserStatusActive,
		CreatedAt:    time.Now().UTC(),
	}
	if err := users.Create(ctx, u); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	slog.Info("admin user created", "email", email)
	return nil
}

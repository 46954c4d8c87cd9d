// Package billing implements invoice lifecycle and payment settlement on top
// of the ledger core. Every mutation that touches more than one entity runs
// in a single transaction: invoice, payment, journal entry and account
// balances commit together or not at all.
package billing

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/schoolfin/backend/internal/config"
	"github.com/schoolfin/backend/internal/domain"
	"github.com/schoolfin/backend/internal/logging"
	"github.com/schoolfin/backend/internal/metrics"
	"github.com/schoolfin/backend/internal/repository"
	"github.com/schoolfin/backend/internal/service/ledger"
)

type Service struct {
	db       *repository.DB
	invoices *repository.InvoiceRepository
	payments *repository.PaymentRepository
	fees     *repository.FeeCategoryRepository
	seq      *repository.SequenceRepository
	ledger   *ledger.Service
	metrics  *metrics.Metrics
	cfg      *config.Config
}

func NewService(
	db *repository.DB,
	invoices *repository.InvoiceRepository,
	payments *repository.PaymentRepository,
	fees *repository.FeeCategoryRepository,
	seq *repository.SequenceRepository,
	ledgerSvc *ledger.Service,
	m *metrics.Metrics,
	cfg *config.Config,
) *Service {
	return &Service{
		db:       db,
		invoices: invoices,
		payments: payments,
		fees:     fees,
		seq:      seq,
		ledger:   ledgerSvc,
		metrics:  m,
		cfg:      cfg,
	}
}

type ItemInput struct {
	FeeCategoryID uuid.UUID
	Description   string
	Quantity      int
	UnitPrice     decimal.Decimal
}

type CreateInvoiceParams struct {
	SchoolID  uuid.UUID
	StudentID uuid.UUID
	IssueDate time.Time
	DueDate   time.Time
	Items     []ItemInput
	Discount  *domain.Discount
	Notes     string
}

// CreateInvoice creates a draft invoice with computed totals. Items and
// discount stay editable until the invoice is issued.
func (s *Service) CreateInvoice(ctx context.Context, p CreateInvoiceParams) (*domain.Invoice, error) {
	if p.DueDate.Before(p.IssueDate) {
		return nil, fmt.Errorf("CreateInvoice: due date before issue date: %w", domain.ErrInvalidDateRange)
	}

	invoiceID := uuid.New()
	items := make([]domain.InvoiceItem, 0, len(p.Items))
	for _, in := range p.Items {
		if in.Quantity <= 0 {
			return nil, fmt.Errorf("CreateInvoice: %w", domain.ErrInvalidQuantity)
		}
		if in.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("CreateInvoice: %w", domain.ErrInvalidAmount)
		}
		if _, err := s.fees.GetByID(ctx, in.FeeCategoryID); err != nil {
			return nil, fmt.Errorf("CreateInvoice: fee category: %w", err)
		}
		items = append(items, domain.InvoiceItem{
			ID:            uuid.New(),
			InvoiceID:     invoiceID,
			FeeCategoryID: in.FeeCategoryID,
			Description:   in.Description,
			Quantity:      in.Quantity,
			UnitPrice:     in.UnitPrice,
			Total:         itemTotal(in.Quantity, in.UnitPrice),
		})
	}

	t := computeTotals(items, p.Discount, p.IssueDate, s.cfg.VATRate())

	now := time.Now().UTC()
	inv := &domain.Invoice{
		ID:             invoiceID,
		SchoolID:       p.SchoolID,
		StudentID:      p.StudentID,
		IssueDate:      p.IssueDate,
		DueDate:        p.DueDate,
		Subtotal:       t.Subtotal,
		DiscountAmount: t.DiscountAmount,
		VATAmount:      t.VATAmount,
		TotalAmount:    t.Total,
		PaidAmount:     decimal.Zero,
		BalanceAmount:  t.Total,
		Status:         domain.InvoiceStatusDraft,
		Discount:       p.Discount,
		Notes:          p.Notes,
		Items:          items,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("CreateInvoice: %w", err)
	}
	defer tx.Rollback()

	inv.InvoiceNumber, err = s.nextNumber(ctx, tx, "invoice", "INV", p.IssueDate)
	if err != nil {
		return nil, fmt.Errorf("CreateInvoice: %w", err)
	}

	if err := s.invoices.Create(ctx, tx, inv); err != nil {
		return nil, fmt.Errorf("CreateInvoice: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("CreateInvoice: commit: %w", err)
	}

	logging.FromContext(ctx).Info("invoice created",
		"invoice_id", inv.ID, "invoice_number", inv.InvoiceNumber,
		"student_id", inv.StudentID, "total", inv.TotalAmount)
	return inv, nil
}

func (s *Service) GetInvoice(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetInvoice: %w", err)
	}
	return inv, nil
}

func (s *Service) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	p, err := s.payments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("GetPayment: %w", err)
	}
	return p, nil
}

type FeeCategoryParams struct {
	Name          string
	Description   string
	DefaultAmount decimal.Decimal
	IsMandatory   bool
	DisplayOrder  int
}

func (s *Service) CreateFeeCategory(ctx context.Context, p FeeCategoryParams) (*domain.FeeCategory, error) {
	if p.Name == "" {
		return nil, fmt.Errorf("CreateFeeCategory: empty name: %w", domain.ErrInvalidAmount)
	}
	fc := &domain.FeeCategory{
		ID:            uuid.New(),
		Name:          p.Name,
		Description:   p.Description,
		DefaultAmount: p.DefaultAmount,
		IsMandatory:   p.IsMandatory,
		IsActive:      true,
		DisplayOrder:  p.DisplayOrder,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.fees.Create(ctx, fc); err != nil {
		return nil, fmt.Errorf("CreateFeeCategory: %w", err)
	}
	return fc, nil
}

func (s *Service) ListFeeCategories(ctx context.Context) ([]domain.FeeCategory, error) {
	categories, err := s.fees.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListFeeCategories: %w", err)
	}
	return categories, nil
}

// nextNumber formats {prefix}{YYYYMM}{NNNNN} from a per-month sequence.
// Numbers are unique across schools to match the unique column constraints.
func (s *Service) nextNumber(ctx context.Context, tx *sql.Tx, kind, prefix string, on time.Time) (string, error) {
	period := on.Format("200601")
	scope := fmt.Sprintf("%s:%s", kind, period)
	n, err := s.seq.Next(ctx, tx, scope)
	if err != nil {
		return "", fmt.Errorf("nextNumber: %w", err)
	}
	return fmt.Sprintf("%s%s%05d", prefix, period, n), nil
}

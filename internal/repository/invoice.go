package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/schoolfin/backend/internal/domain"
)

const invoiceColumns = `id, school_id, student_id, invoice_number, issue_date, due_date,
	subtotal, discount_amount, vat_amount, total_amount, paid_amount, balance_amount,
	status, discount_type, discount_value, discount_valid_from, discount_valid_to,
	notes, created_at, updated_at`

type InvoiceRepository struct {
	db *sql.DB
}

func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

func (r *InvoiceRepository) Create(ctx context.Context, tx *sql.Tx, inv *domain.Invoice) error {
	var dType *string
	var dValue *decimal.Decimal
	var dFrom, dTo *time.Time
	if inv.Discount != nil {
		t := string(inv.Discount.Type)
		dType = &t
		dValue = &inv.Discount.Value
		dFrom = &inv.Discount.ValidFrom
		dTo = &inv.Discount.ValidTo
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO invoices (
			id, school_id, student_id, invoice_number, issue_date, due_date,
			subtotal, discount_amount, vat_amount, total_amount, paid_amount, balance_amount,
			status, discount_type, discount_value, discount_valid_from, discount_valid_to,
			notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		inv.ID, inv.SchoolID, inv.StudentID, inv.InvoiceNumber, inv.IssueDate, inv.DueDate,
		inv.Subtotal, inv.DiscountAmount, inv.VATAmount, inv.TotalAmount, inv.PaidAmount, inv.BalanceAmount,
		inv.Status, dType, dValue, dFrom, dTo,
		inv.Notes, inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}

	for _, item := range inv.Items {
		if err := r.createItem(ctx, tx, &item); err != nil {
			return fmt.Errorf("Create: %w", err)
		}
	}
	return nil
}

func (r *InvoiceRepository) createItem(ctx context.Context, tx *sql.Tx, item *domain.InvoiceItem) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO invoice_items (id, invoice_id, fee_category_id, description, quantity, unit_price, total_amount)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		item.ID, item.InvoiceID, item.FeeCategoryID, item.Description, item.Quantity, item.UnitPrice, item.Total,
	)
	if err != nil {
		return fmt.Errorf("createItem: %w", err)
	}
	return nil
}

func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id,
	)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}

	inv.Items, err = r.getItems(ctx, r.db.QueryContext, id)
	if err != nil {
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return inv, nil
}

func (r *InvoiceRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Invoice, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`, id,
	)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}

	inv.Items, err = r.getItems(ctx, tx.QueryContext, id)
	if err != nil {
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return inv, nil
}

func (r *InvoiceRepository) getItems(ctx context.Context, query queryFunc, invoiceID uuid.UUID) ([]domain.InvoiceItem, error) {
	rows, err := query(ctx,
		`SELECT id, invoice_id, fee_category_id, description, quantity, unit_price, total_amount
		 FROM invoice_items WHERE invoice_id = $1 ORDER BY id`, invoiceID,
	)
	if err != nil {
		return nil, fmt.Errorf("getItems: %w", err)
	}
	defer rows.Close()

	var items []domain.InvoiceItem
	for rows.Next() {
		var item domain.InvoiceItem
		err := rows.Scan(&item.ID, &item.InvoiceID, &item.FeeCategoryID, &item.Description,
			&item.Quantity, &item.UnitPrice, &item.Total)
		if err != nil {
			return nil, fmt.Errorf("getItems: scan: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("getItems: rows: %w", err)
	}
	return items, nil
}

// UpdateSettlement writes the payment-derived fields after a settlement
// mutation: paid amount, balance and derived status.
func (r *InvoiceRepository) UpdateSettlement(ctx context.Context, tx *sql.Tx, inv *domain.Invoice) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE invoices SET paid_amount = $1, balance_amount = $2, status = $3, updated_at = $4
		 WHERE id = $5`,
		inv.PaidAmount, inv.BalanceAmount, inv.Status, time.Now().UTC(), inv.ID,
	)
	if err != nil {
		return fmt.Errorf("UpdateSettlement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("UpdateSettlement: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("UpdateSettlement: %w", domain.ErrNotFound)
	}
	return nil
}

// UpdateTotals rewrites computed totals and status. Only valid pre-issue,
// while the invoice structure is still mutable.
func (r *InvoiceRepository) UpdateTotals(ctx context.Context, tx *sql.Tx, inv *domain.Invoice) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE invoices SET subtotal = $1, discount_amount = $2, vat_amount = $3,
			total_amount = $4, balance_amount = $5, status = $6, updated_at = $7
		 WHERE id = $8`,
		inv.Subtotal, inv.DiscountAmount, inv.VATAmount,
		inv.TotalAmount, inv.BalanceAmount, inv.Status, time.Now().UTC(), inv.ID,
	)
	if err != nil {
		return fmt.Errorf("UpdateTotals: %w", err)
	}
	return nil
}

type InvoiceFilter struct {
	SchoolID  uuid.UUID
	StudentID *uuid.UUID
	Status    *domain.InvoiceStatus
	From      *time.Time
	To        *time.Time
}

func (r *InvoiceRepository) List(ctx context.Context, f InvoiceFilter) ([]domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE school_id = $1`
	args := []any{f.SchoolID}

	if f.StudentID != nil {
		args = append(args, *f.StudentID)
		query += fmt.Sprintf(" AND student_id = $%d", len(args))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		query += fmt.Sprintf(" AND issue_date >= $%d", len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		query += fmt.Sprintf(" AND issue_date <= $%d", len(args))
	}
	query += ` ORDER BY issue_date DESC, invoice_number DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("List: %w", err)
	}
	defer rows.Close()

	var invoices []domain.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("List: scan: %w", err)
		}
		invoices = append(invoices, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List: rows: %w", err)
	}
	return invoices, nil
}

func scanInvoice(s scanner) (*domain.Invoice, error) {
	var inv domain.Invoice
	var dType *string
	var dValue *decimal.Decimal
	var dFrom, dTo *time.Time

	err := s.Scan(
		&inv.ID, &inv.SchoolID, &inv.StudentID, &inv.InvoiceNumber, &inv.IssueDate, &inv.DueDate,
		&inv.Subtotal, &inv.DiscountAmount, &inv.VATAmount, &inv.TotalAmount, &inv.PaidAmount, &inv.BalanceAmount,
		&inv.Status, &dType, &dValue, &dFrom, &dTo,
		&inv.Notes, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if dType != nil && dValue != nil && dFrom != nil && dTo != nil {
		inv.Discount = &domain.Discount{
			Type:      domain.DiscountType(*dType),
			Value:     *dValue,
			ValidFrom: *dFrom,
			ValidTo:   *dTo,
		}
	}
	return &inv, nil
}

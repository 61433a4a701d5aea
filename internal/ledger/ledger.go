// Package ledger holds the pure balance arithmetic shared by sales,
// purchases, debts, payroll, and inventory: obligation creation and payment,
// status derivation, stock adjustment math, cart merging, and FIFO advance
// allocation. It performs no I/O; repositories and the service layer call
// into it so the same rules apply everywhere.
package ledger

import (
	"fmt"
	"slices"
	"time"

	"tokoadmin/backend/internal/domain"
	"tokoadmin/backend/internal/money"
	"tokoadmin/backend/internal/store"
)

// DueSoonWindow is how far ahead of a due date an unpaid obligation is
// reported as due_soon.
const DueSoonWindow = 7 * 24 * time.Hour

// NewObligation builds an obligation with pending derived from total and the
// initial payment. ID and CreatedAt are left for the caller.
func NewObligation(kind string, counterparty string, total money.Money, initialPaid money.Money, dueDate *time.Time) (domain.Obligation, error) {
	if total.IsNegative() {
		return domain.Obligation{}, fmt.Errorf("%w: total must not be negative", store.ErrValidation)
	}
	if initialPaid.IsNegative() {
		return domain.Obligation{}, fmt.Errorf("%w: initial payment must not be negative", store.ErrValidation)
	}
	if initialPaid.Cmp(total) > 0 {
		return domain.Obligation{}, fmt.Errorf("%w: initial payment %s exceeds total %s", store.ErrValidation, initialPaid, total)
	}

	o := domain.Obligation{
		Kind:             kind,
		CounterpartyName: counterparty,
		TotalAmount:      total,
		PaidAmount:       initialPaid,
		PendingAmount:    total.Sub(initialPaid),
		DueDate:          dueDate,
	}
	if err := CheckBalance(o); err != nil {
		return domain.Obligation{}, err
	}
	return o, nil
}

// ApplyPayment returns a copy of the obligation with the payment applied.
// The input obligation is unchanged on failure.
func ApplyPayment(o domain.Obligation, amount money.Money) (domain.Obligation, error) {
	if amount.Cmp(0) <= 0 {
		return domain.Obligation{}, fmt.Errorf("%w: payment amount must be positive", store.ErrValidation)
	}
	if amount.Cmp(o.PendingAmount) > 0 {
		return domain.Obligation{}, fmt.Errorf("%w: payment %s exceeds pending %s", store.ErrValidation, amount, o.PendingAmount)
	}

	o.PaidAmount = o.PaidAmount.Add(amount)
	o.PendingAmount = o.PendingAmount.Sub(amount)
	if err := CheckBalance(o); err != nil {
		return domain.Obligation{}, err
	}
	return o, nil
}

// CheckBalance verifies paid + pending == total with both sides non-negative.
func CheckBalance(o domain.Obligation) error {
	if o.PaidAmount.IsNegative() || o.PendingAmount.IsNegative() {
		return fmt.Errorf("%w: negative balance on obligation %s", store.ErrValidation, o.ID)
	}
	if o.PaidAmount.Add(o.PendingAmount) != o.TotalAmount {
		return fmt.Errorf("%w: paid %s + pending %s != total %s", store.ErrValidation, o.PaidAmount, o.PendingAmount, o.TotalAmount)
	}
	return nil
}

// Status derives the obligation status from its amounts and due date.
// Overdue and due_soon take precedence over unpaid/partial when a due date
// is present and money is still owed, so a partially paid installment reads
// partial only while now is more than DueSoonWindow before the due date.
func Status(o domain.Obligation, now time.Time) string {
	if o.PendingAmount.IsZero() {
		return domain.ObligationStatusPaid
	}
	if o.DueDate != nil {
		if o.DueDate.Before(now) {
			return domain.ObligationStatusOverdue
		}
		if !o.DueDate.After(now.Add(DueSoonWindow)) {
			return domain.ObligationStatusDueSoon
		}
	}
	if o.PaidAmount.IsZero() {
		return domain.ObligationStatusUnpaid
	}
	return domain.ObligationStatusPartial
}

// NextStockLevel computes the level after an adjustment. Subtract and set
// clamp at zero instead of going negative. The second result reports whether
// the adjustment counts as a restock (only add does).
func NextStockLevel(current int, adjustType string, qty int) (int, bool, error) {
	if qty < 0 {
		return 0, false, fmt.Errorf("%w: quantity must not be negative", store.ErrValidation)
	}

	switch adjustType {
	case domain.StockAdjustAdd:
		return current + qty, true, nil
	case domain.StockAdjustSubtract:
		next := current - qty
		if next < 0 {
			next = 0
		}
		return next, false, nil
	case domain.StockAdjustSet:
		if qty < 0 {
			qty = 0
		}
		return qty, false, nil
	default:
		return 0, false, fmt.Errorf("%w: unknown adjustment type %q", store.ErrValidation, adjustType)
	}
}

// StockStatus derives the stock status of a product level.
func StockStatus(level int, minStock int) string {
	switch {
	case level == 0:
		return domain.StockStatusOut
	case level <= minStock:
		return domain.StockStatusLow
	default:
		return domain.StockStatusIn
	}
}

// MergeLineItems merges duplicate product lines by summing quantities: one
// line per product, first occurrence keeps its position and unit price, and
// each total is recomputed as unit price times quantity. Lines with an empty
// product id or non-positive quantity are dropped.
func MergeLineItems(items []domain.LineItem) []domain.LineItem {
	merged := make([]domain.LineItem, 0, len(items))
	index := make(map[string]int, len(items))

	for _, item := range items {
		if item.ProductID == "" || item.Qty < 1 {
			continue
		}
		if at, seen := index[item.ProductID]; seen {
			merged[at].Qty += item.Qty
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}

	for i := range merged {
		merged[i].Total = merged[i].UnitPrice.MulQty(merged[i].Qty)
	}
	return merged
}

// SumLineItems returns the cart total.
func SumLineItems(items []domain.LineItem) money.Money {
	var total money.Money
	for _, item := range items {
		total = total.Add(item.Total)
	}
	return total
}

// OutstandingAdvance sums the remaining balances of an employee's advances.
func OutstandingAdvance(advances []domain.AdvancePayment) money.Money {
	var total money.Money
	for _, adv := range advances {
		total = total.Add(adv.RemainingBalance)
	}
	return total
}

// AllocateAdvances deducts amount from the advances oldest-first and returns
// updated copies of every advance in allocation order. Deducting more than
// the total outstanding balance fails and leaves the input untouched.
func AllocateAdvances(advances []domain.AdvancePayment, amount money.Money) ([]domain.AdvancePayment, error) {
	if amount.Cmp(0) <= 0 {
		return nil, fmt.Errorf("%w: deduction amount must be positive", store.ErrValidation)
	}
	outstanding := OutstandingAdvance(advances)
	if amount.Cmp(outstanding) > 0 {
		return nil, fmt.Errorf("%w: deduction %s exceeds outstanding advance %s", store.ErrValidation, amount, outstanding)
	}

	ordered := make([]domain.AdvancePayment, len(advances))
	copy(ordered, advances)
	slices.SortStableFunc(ordered, func(a, b domain.AdvancePayment) int {
		if a.Date.Equal(b.Date) {
			return compareString(a.ID, b.ID)
		}
		if a.Date.Before(b.Date) {
			return -1
		}
		return 1
	})

	left := amount
	for i := range ordered {
		if left.IsZero() {
			break
		}
		take := ordered[i].RemainingBalance
		if take.Cmp(left) > 0 {
			take = left
		}
		ordered[i].RemainingBalance = ordered[i].RemainingBalance.Sub(take)
		left = left.Sub(take)
	}
	return ordered, nil
}

// Summarize derives the dashboard totals from the full obligation and
// product collections. Pure so it can be tested without a repository.
func Summarize(obligations []domain.Obligation, products []domain.Product, now time.Time) domain.DashboardSummary {
	summary := domain.DashboardSummary{
		GeneratedAt: now.UTC().Format(time.RFC3339),
	}

	for _, o := range obligations {
		totals := kindTotals(&summary, o.Kind)
		if totals == nil {
			continue
		}
		totals.Count++
		totals.Total = totals.Total.Add(o.TotalAmount)
		totals.Paid = totals.Paid.Add(o.PaidAmount)
		totals.Pending = totals.Pending.Add(o.PendingAmount)

		switch Status(o, now) {
		case domain.ObligationStatusOverdue:
			summary.OverdueCount++
			summary.OverdueAmount = summary.OverdueAmount.Add(o.PendingAmount)
		case domain.ObligationStatusDueSoon:
			summary.DueSoonCount++
		}
	}

	for _, p := range products {
		if !p.Active {
			continue
		}
		switch StockStatus(p.StockLevel, p.MinStock) {
		case domain.StockStatusOut:
			summary.OutOfStockCount++
		case domain.StockStatusLow:
			summary.LowStockCount++
		}
		summary.InventoryValue = summary.InventoryValue.Add(p.PurchasePrice.MulQty(p.StockLevel))
	}

	return summary
}

// DailySales derives the sales report for the UTC day starting at dayStart.
func DailySales(obligations []domain.Obligation, dayStart time.Time) domain.DailySalesReport {
	dayEnd := dayStart.Add(24 * time.Hour)
	report := domain.DailySalesReport{
		Date: dayStart.Format("2006-01-02"),
	}

	for _, o := range obligations {
		if o.Kind != domain.ObligationKindSale {
			continue
		}
		if o.CreatedAt.Before(dayStart) || !o.CreatedAt.Before(dayEnd) {
			continue
		}
		report.Transactions++
		report.GrossSales = report.GrossSales.Add(o.TotalAmount)
		report.Collected = report.Collected.Add(o.PaidAmount)
		report.Outstanding = report.Outstanding.Add(o.PendingAmount)
		for _, item := range o.Items {
			report.ItemsSold += item.Qty
		}
	}
	return report
}

func kindTotals(summary *domain.DashboardSummary, kind string) *domain.KindTotals {
	switch kind {
	case domain.ObligationKindSale:
		return &summary.Sales
	case domain.ObligationKindPurchase:
		return &summary.Purchases
	case domain.ObligationKindCustomerDebt:
		return &summary.CustomerDebts
	case domain.ObligationKindSupplierDebt:
		return &summary.SupplierDebts
	case domain.ObligationKindPayroll:
		return &summary.Payroll
	default:
		return nil
	}
}

func compareString(a string, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

package ledger

import (
	"errors"
	"testing"
	"time"

	"tokoadmin/backend/internal/domain"
	"tokoadmin/backend/internal/money"
	"tokoadmin/backend/internal/store"
)

func TestNewObligationDerivesPending(t *testing.T) {
	o, err := NewObligation(domain.ObligationKindSale, "Alice", money.FromMinorUnits(30000), money.FromMinorUnits(10000), nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if o.PendingAmount != 20000 {
		t.Fatalf("expected pending 20000, got %d", o.PendingAmount)
	}
	if err := CheckBalance(o); err != nil {
		t.Fatalf("balance invariant broken: %v", err)
	}
}

func TestNewObligationRejectsBadInitialPayment(t *testing.T) {
	cases := []struct {
		name    string
		total   money.Money
		initial money.Money
	}{
		{"negative initial", 10000, -1},
		{"initial exceeds total", 10000, 10001},
		{"negative total", -1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewObligation(domain.ObligationKindSale, "Alice", tc.total, tc.initial, nil)
			if !errors.Is(err, store.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestApplyPaymentKeepsBalance(t *testing.T) {
	o, err := NewObligation(domain.ObligationKindSale, "Bob", money.FromMinorUnits(30000), money.FromMinorUnits(10000), nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	paid, err := ApplyPayment(o, money.FromMinorUnits(20000))
	if err != nil {
		t.Fatalf("payment failed: %v", err)
	}
	if paid.PaidAmount != 30000 || paid.PendingAmount != 0 {
		t.Fatalf("unexpected balances: paid=%d pending=%d", paid.PaidAmount, paid.PendingAmount)
	}
	if Status(paid, time.Now().UTC()) != domain.ObligationStatusPaid {
		t.Fatalf("expected status paid")
	}

	// Anything more than pending must fail and leave the input untouched.
	_, err = ApplyPayment(paid, money.FromMinorUnits(1))
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for overpayment, got %v", err)
	}
	if paid.PaidAmount != 30000 || paid.PendingAmount != 0 {
		t.Fatalf("obligation mutated after failed payment")
	}
}

func TestApplyPaymentRejectsNonPositiveAmount(t *testing.T) {
	o, _ := NewObligation(domain.ObligationKindCustomerDebt, "Warung Sari", money.FromMinorUnits(5000), 0, nil)
	for _, amount := range []money.Money{0, -100} {
		if _, err := ApplyPayment(o, amount); !errors.Is(err, store.ErrValidation) {
			t.Fatalf("expected validation error for amount %d, got %v", amount, err)
		}
	}
}

func TestStatusDerivation(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-48 * time.Hour)
	soon := now.Add(3 * 24 * time.Hour)
	far := now.Add(30 * 24 * time.Hour)

	cases := []struct {
		name string
		o    domain.Obligation
		want string
	}{
		{"fully paid", domain.Obligation{TotalAmount: 100, PaidAmount: 100}, domain.ObligationStatusPaid},
		{"untouched", domain.Obligation{TotalAmount: 100, PendingAmount: 100}, domain.ObligationStatusUnpaid},
		{"partial", domain.Obligation{TotalAmount: 100, PaidAmount: 40, PendingAmount: 60}, domain.ObligationStatusPartial},
		{"overdue", domain.Obligation{TotalAmount: 100, PendingAmount: 100, DueDate: &past}, domain.ObligationStatusOverdue},
		{"due soon", domain.Obligation{TotalAmount: 100, PaidAmount: 40, PendingAmount: 60, DueDate: &soon}, domain.ObligationStatusDueSoon},
		{"due far out", domain.Obligation{TotalAmount: 100, PendingAmount: 100, DueDate: &far}, domain.ObligationStatusUnpaid},
		{"partial until due window", domain.Obligation{TotalAmount: 100, PaidAmount: 40, PendingAmount: 60, DueDate: &far}, domain.ObligationStatusPartial},
		{"paid beats overdue", domain.Obligation{TotalAmount: 100, PaidAmount: 100, DueDate: &past}, domain.ObligationStatusPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Status(tc.o, now); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestNextStockLevelClampsAtZero(t *testing.T) {
	// Subtracting 8 from a level of 5 clamps to 0 rather than going negative.
	next, restocked, err := NextStockLevel(5, domain.StockAdjustSubtract, 8)
	if err != nil {
		t.Fatalf("subtract failed: %v", err)
	}
	if next != 0 || restocked {
		t.Fatalf("expected level 0 without restock, got level=%d restocked=%t", next, restocked)
	}
	if StockStatus(next, 10) != domain.StockStatusOut {
		t.Fatalf("expected out_of_stock at level 0")
	}
}

func TestNextStockLevelAddAndSet(t *testing.T) {
	next, restocked, err := NextStockLevel(5, domain.StockAdjustAdd, 7)
	if err != nil || next != 12 || !restocked {
		t.Fatalf("add: next=%d restocked=%t err=%v", next, restocked, err)
	}

	next, restocked, err = NextStockLevel(5, domain.StockAdjustSet, 3)
	if err != nil || next != 3 || restocked {
		t.Fatalf("set: next=%d restocked=%t err=%v", next, restocked, err)
	}
}

func TestNextStockLevelRejectsBadInput(t *testing.T) {
	if _, _, err := NextStockLevel(5, domain.StockAdjustAdd, -1); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for negative qty, got %v", err)
	}
	if _, _, err := NextStockLevel(5, "reset", 1); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for unknown type, got %v", err)
	}
}

func TestStockStatusThresholds(t *testing.T) {
	if StockStatus(0, 10) != domain.StockStatusOut {
		t.Fatalf("level 0 should be out_of_stock")
	}
	if StockStatus(10, 10) != domain.StockStatusLow {
		t.Fatalf("level at min stock should be low_stock")
	}
	if StockStatus(11, 10) != domain.StockStatusIn {
		t.Fatalf("level above min stock should be in_stock")
	}
}

func TestMergeLineItemsSumsDuplicates(t *testing.T) {
	items := MergeLineItems([]domain.LineItem{
		{ProductID: "prd-1", ProductName: "Mie Goreng", Qty: 2, UnitPrice: 3500},
		{ProductID: "prd-2", ProductName: "Telur", Qty: 1, UnitPrice: 26500},
		{ProductID: "prd-1", ProductName: "Mie Goreng", Qty: 3, UnitPrice: 3500},
	})

	if len(items) != 2 {
		t.Fatalf("expected 2 merged lines, got %d", len(items))
	}
	if items[0].ProductID != "prd-1" || items[0].Qty != 5 {
		t.Fatalf("expected first line prd-1 qty 5, got %s qty %d", items[0].ProductID, items[0].Qty)
	}
	if items[0].Total != items[0].UnitPrice.MulQty(5) {
		t.Fatalf("line total not recomputed: %d", items[0].Total)
	}
}

func TestMergeLineItemsDropsInvalidLines(t *testing.T) {
	items := MergeLineItems([]domain.LineItem{
		{ProductID: "", Qty: 2, UnitPrice: 100},
		{ProductID: "prd-1", Qty: 0, UnitPrice: 100},
		{ProductID: "prd-1", Qty: 1, UnitPrice: 100},
	})
	if len(items) != 1 || items[0].Qty != 1 {
		t.Fatalf("expected single valid line, got %+v", items)
	}
}

func TestAllocateAdvancesOldestFirst(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	advances := []domain.AdvancePayment{
		{ID: "adv-2", EmployeeID: "emp-1", Amount: 10000, RemainingBalance: 10000, Date: base.Add(24 * time.Hour)},
		{ID: "adv-1", EmployeeID: "emp-1", Amount: 10000, RemainingBalance: 10000, Date: base},
	}

	updated, err := AllocateAdvances(advances, money.FromMinorUnits(15000))
	if err != nil {
		t.Fatalf("allocate failed: %v", err)
	}
	if updated[0].ID != "adv-1" || updated[0].RemainingBalance != 0 {
		t.Fatalf("expected oldest advance drained first, got %s remaining=%d", updated[0].ID, updated[0].RemainingBalance)
	}
	if updated[1].ID != "adv-2" || updated[1].RemainingBalance != 5000 {
		t.Fatalf("expected second advance remaining 5000, got %s remaining=%d", updated[1].ID, updated[1].RemainingBalance)
	}

	// Input slice must not be mutated.
	if advances[0].RemainingBalance != 10000 || advances[1].RemainingBalance != 10000 {
		t.Fatalf("input advances mutated")
	}
}

func TestAllocateAdvancesRejectsOverdraw(t *testing.T) {
	advances := []domain.AdvancePayment{
		{ID: "adv-1", EmployeeID: "emp-1", Amount: 5000, RemainingBalance: 5000, Date: time.Now().UTC()},
	}
	if _, err := AllocateAdvances(advances, money.FromMinorUnits(5001)); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := AllocateAdvances(advances, 0); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for zero amount, got %v", err)
	}
}

func TestSummarizeCountsAndTotals(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)

	obligations := []domain.Obligation{
		{Kind: domain.ObligationKindSale, TotalAmount: 20000, PaidAmount: 20000},
		{Kind: domain.ObligationKindSale, TotalAmount: 30000, PaidAmount: 10000, PendingAmount: 20000},
		{Kind: domain.ObligationKindCustomerDebt, TotalAmount: 5000, PendingAmount: 5000, DueDate: &past},
	}
	products := []domain.Product{
		{Active: true, StockLevel: 0, MinStock: 5, PurchasePrice: 1000},
		{Active: true, StockLevel: 3, MinStock: 5, PurchasePrice: 2000},
		{Active: true, StockLevel: 50, MinStock: 5, PurchasePrice: 100},
		{Active: false, StockLevel: 9, MinStock: 5, PurchasePrice: 999},
	}

	summary := Summarize(obligations, products, now)

	if summary.Sales.Count != 2 || summary.Sales.Total != 50000 || summary.Sales.Paid != 30000 || summary.Sales.Pending != 20000 {
		t.Fatalf("unexpected sales totals: %+v", summary.Sales)
	}
	if summary.OverdueCount != 1 || summary.OverdueAmount != 5000 {
		t.Fatalf("expected one overdue debt of 5000, got count=%d amount=%d", summary.OverdueCount, summary.OverdueAmount)
	}
	if summary.OutOfStockCount != 1 || summary.LowStockCount != 1 {
		t.Fatalf("unexpected stock counts: out=%d low=%d", summary.OutOfStockCount, summary.LowStockCount)
	}
	// 3*2000 + 50*100 = 11000; inactive product excluded.
	if summary.InventoryValue != 11000 {
		t.Fatalf("expected inventory value 11000, got %d", summary.InventoryValue)
	}
}

func TestDailySalesFiltersByDayAndKind(t *testing.T) {
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	obligations := []domain.Obligation{
		{Kind: domain.ObligationKindSale, TotalAmount: 10000, PaidAmount: 10000, CreatedAt: day.Add(9 * time.Hour), Items: []domain.LineItem{{Qty: 2}}},
		{Kind: domain.ObligationKindSale, TotalAmount: 5000, PendingAmount: 5000, CreatedAt: day.Add(25 * time.Hour)},
		{Kind: domain.ObligationKindPurchase, TotalAmount: 9000, PaidAmount: 9000, CreatedAt: day.Add(10 * time.Hour)},
	}

	report := DailySales(obligations, day)
	if report.Transactions != 1 || report.GrossSales != 10000 || report.ItemsSold != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

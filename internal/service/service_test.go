package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"tokoadmin/backend/internal/cache"
	"tokoadmin/backend/internal/domain"
	"tokoadmin/backend/internal/store"
	"tokoadmin/backend/internal/store/memory"
)

func newTestService() *Service {
	return New(memory.NewSeeded(), cache.NoopSummaryCache{}, time.Second)
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func staffCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "staff", Role: "staff"})
}

func dueDateIn(days int) string {
	return time.Now().UTC().AddDate(0, 0, days).Format("2006-01-02")
}

func TestRecordSaleFullPaymentSettlesImmediately(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	product, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		SKU:          "SKU-SALE-01",
		Name:         "Keripik Singkong",
		Category:     "snack",
		InitialStock: 10,
		MinStock:     2,
		SalePrice:    10000,
	})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	sale, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		CustomerName: "Ibu Sari",
		PaymentType:  domain.PaymentTypeFull,
		Items: []domain.SaleItemInput{
			{ProductID: product.ID, Qty: 2},
		},
	})
	if err != nil {
		t.Fatalf("record sale failed: %v", err)
	}
	if sale.TotalAmount != 20000 || sale.PaidAmount != 20000 || sale.PendingAmount != 0 {
		t.Fatalf("unexpected sale amounts: total=%d paid=%d pending=%d", sale.TotalAmount, sale.PaidAmount, sale.PendingAmount)
	}
	if sale.Status != domain.ObligationStatusPaid {
		t.Fatalf("expected paid status, got %s", sale.Status)
	}

	after, err := svc.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if after.StockLevel != 8 {
		t.Fatalf("expected stock 8 after selling 2, got %d", after.StockLevel)
	}
}

func TestRecordSaleMergesDuplicateCartLines(t *testing.T) {
	svc := newTestService()
	ctx := staffCtx()

	sale, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		CustomerName: "Pak Dedi",
		PaymentType:  domain.PaymentTypeFull,
		Items: []domain.SaleItemInput{
			{ProductID: "prd-mie-01", Qty: 2},
			{ProductID: "prd-mie-01", Qty: 3},
		},
	})
	if err != nil {
		t.Fatalf("record sale failed: %v", err)
	}
	if len(sale.Items) != 1 {
		t.Fatalf("expected merged single line item, got %d", len(sale.Items))
	}
	if sale.Items[0].Qty != 5 {
		t.Fatalf("expected merged qty 5, got %d", sale.Items[0].Qty)
	}
	if sale.Items[0].Total != sale.Items[0].UnitPrice.MulQty(5) {
		t.Fatalf("merged line total not recomputed: %d", sale.Items[0].Total)
	}
}

func TestRecordSaleInstallmentLifecycle(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	product, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		SKU:          "SKU-CICIL-01",
		Name:         "Beras 25kg",
		Category:     "grocery",
		InitialStock: 5,
		MinStock:     1,
		SalePrice:    30000,
	})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	sale, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		CustomerName: "Warung Maju",
		PaymentType:  domain.PaymentTypeInstallment,
		AmountPaid:   10000,
		DueDate:      dueDateIn(14),
		Items: []domain.SaleItemInput{
			{ProductID: product.ID, Qty: 1},
		},
	})
	if err != nil {
		t.Fatalf("record installment sale failed: %v", err)
	}
	if sale.Status != domain.ObligationStatusPartial {
		t.Fatalf("expected partial status, got %s", sale.Status)
	}
	if sale.PendingAmount != 20000 {
		t.Fatalf("expected pending 20000, got %d", sale.PendingAmount)
	}

	settled, err := svc.ApplyPayment(ctx, sale.ID, domain.PaymentRequest{Amount: 20000})
	if err != nil {
		t.Fatalf("apply payment failed: %v", err)
	}
	if settled.Status != domain.ObligationStatusPaid || settled.PendingAmount != 0 {
		t.Fatalf("expected settled obligation, got status=%s pending=%d", settled.Status, settled.PendingAmount)
	}

	if _, err := svc.ApplyPayment(ctx, sale.ID, domain.PaymentRequest{Amount: 1}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error on paying a settled obligation, got %v", err)
	}
}

func TestRecordSaleInstallmentRequiresDueDate(t *testing.T) {
	svc := newTestService()

	_, err := svc.RecordSale(staffCtx(), domain.SaleCreateRequest{
		CustomerName: "Ibu Sari",
		PaymentType:  domain.PaymentTypeInstallment,
		AmountPaid:   1000,
		Items: []domain.SaleItemInput{
			{ProductID: "prd-mie-01", Qty: 1},
		},
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error without due date, got %v", err)
	}
}

func TestAdjustStockSubtractClampsAtZero(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	product, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		SKU:          "SKU-CLAMP-01",
		Name:         "Minyak Goreng 1L",
		Category:     "grocery",
		InitialStock: 5,
		MinStock:     3,
		SalePrice:    16000,
	})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	adjusted, err := svc.AdjustStock(ctx, product.ID, domain.StockAdjustRequest{
		Type:   domain.StockAdjustSubtract,
		Qty:    8,
		Reason: "barang rusak",
	})
	if err != nil {
		t.Fatalf("adjust stock failed: %v", err)
	}
	if adjusted.StockLevel != 0 {
		t.Fatalf("expected clamped level 0, got %d", adjusted.StockLevel)
	}
	if adjusted.StockStatus != domain.StockStatusOut {
		t.Fatalf("expected out_of_stock, got %s", adjusted.StockStatus)
	}

	movements, err := svc.ListStockMovements(ctx, product.ID, 10)
	if err != nil {
		t.Fatalf("list movements failed: %v", err)
	}
	if len(movements) != 1 || movements[0].ResultingLevel != 0 {
		t.Fatalf("expected one movement landing on level 0, got %+v", movements)
	}
}

func TestAdjustStockAddMarksLastRestocked(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	adjusted, err := svc.AdjustStock(ctx, "prd-roti-01", domain.StockAdjustRequest{
		Type:   domain.StockAdjustAdd,
		Qty:    10,
		Reason: "kiriman pagi",
	})
	if err != nil {
		t.Fatalf("adjust stock failed: %v", err)
	}
	if adjusted.StockLevel != 50 {
		t.Fatalf("expected level 50, got %d", adjusted.StockLevel)
	}
	if adjusted.LastRestocked == nil {
		t.Fatalf("expected last_restocked to be set on add")
	}
}

func TestRecordPurchaseRestocksProduct(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	purchase, err := svc.RecordPurchase(ctx, domain.PurchaseCreateRequest{
		ProductID:    "prd-mie-01",
		Qty:          10,
		SupplierName: "PT Sumber Pangan",
		AmountPaid:   0,
		DueDate:      dueDateIn(30),
	})
	if err != nil {
		t.Fatalf("record purchase failed: %v", err)
	}
	if purchase.TotalAmount != 27000 {
		t.Fatalf("expected total 27000 (2700 x 10), got %d", purchase.TotalAmount)
	}
	if purchase.Status != domain.ObligationStatusUnpaid {
		t.Fatalf("expected unpaid purchase, got %s", purchase.Status)
	}

	product, err := svc.GetProduct(ctx, "prd-mie-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.StockLevel != 130 {
		t.Fatalf("expected stock 130 after receiving 10, got %d", product.StockLevel)
	}
	if product.LastRestocked == nil {
		t.Fatalf("expected last_restocked set by purchase receive")
	}
}

func TestRecordPurchaseRequiresAdmin(t *testing.T) {
	svc := newTestService()

	_, err := svc.RecordPurchase(staffCtx(), domain.PurchaseCreateRequest{
		ProductID:    "prd-mie-01",
		Qty:          5,
		SupplierName: "PT Sumber Pangan",
	})
	if err == nil {
		t.Fatalf("expected staff purchase to be rejected")
	}
}

func TestReturnLifecycleRestocksOnApproval(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	sale, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		CustomerName: "Ibu Sari",
		PaymentType:  domain.PaymentTypeFull,
		Items: []domain.SaleItemInput{
			{ProductID: "prd-kopi-01", Qty: 3},
		},
	})
	if err != nil {
		t.Fatalf("record sale failed: %v", err)
	}

	ret, err := svc.CreateReturn(ctx, domain.ReturnCreateRequest{
		OriginalObligationID: sale.ID,
		Reason:               "kemasan rusak",
	})
	if err != nil {
		t.Fatalf("create return failed: %v", err)
	}
	if ret.Status != domain.ReturnStatusPending {
		t.Fatalf("expected pending return, got %s", ret.Status)
	}
	if ret.Amount != sale.TotalAmount {
		t.Fatalf("return amount %d should mirror sale total %d", ret.Amount, sale.TotalAmount)
	}
	if len(ret.Items) != len(sale.Items) {
		t.Fatalf("return items should mirror the sale lines")
	}

	approved, err := svc.ApproveReturn(ctx, ret.ID)
	if err != nil {
		t.Fatalf("approve return failed: %v", err)
	}
	if approved.Status != domain.ReturnStatusApproved || approved.ProcessedBy != "admin" {
		t.Fatalf("unexpected decision record: %+v", approved)
	}

	product, err := svc.GetProduct(ctx, "prd-kopi-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.StockLevel != 200 {
		t.Fatalf("expected stock restored to 200, got %d", product.StockLevel)
	}

	if _, err := svc.RejectReturn(ctx, ret.ID); !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("expected invalid state on second decision, got %v", err)
	}
}

func TestRejectedReturnLeavesStockAlone(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	sale, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		CustomerName: "Pak Dedi",
		PaymentType:  domain.PaymentTypeFull,
		Items: []domain.SaleItemInput{
			{ProductID: "prd-teh-01", Qty: 2},
		},
	})
	if err != nil {
		t.Fatalf("record sale failed: %v", err)
	}

	ret, err := svc.CreateReturn(ctx, domain.ReturnCreateRequest{
		OriginalObligationID: sale.ID,
		Reason:               "berubah pikiran",
	})
	if err != nil {
		t.Fatalf("create return failed: %v", err)
	}

	if _, err := svc.RejectReturn(ctx, ret.ID); err != nil {
		t.Fatalf("reject return failed: %v", err)
	}

	product, err := svc.GetProduct(ctx, "prd-teh-01")
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if product.StockLevel != 68 {
		t.Fatalf("rejected return must not restock, got %d", product.StockLevel)
	}
}

func TestCreateReturnForMissingObligation(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateReturn(adminCtx(), domain.ReturnCreateRequest{
		OriginalObligationID: "sale-does-not-exist",
		Reason:               "salah input",
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAdvanceDeductionDrainsOldestFirst(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	first, err := svc.CreateAdvance(ctx, domain.AdvanceCreateRequest{
		EmployeeID: "emp-ani",
		Amount:     10000,
		Reason:     "kebutuhan sekolah",
	})
	if err != nil {
		t.Fatalf("create first advance failed: %v", err)
	}
	second, err := svc.CreateAdvance(ctx, domain.AdvanceCreateRequest{
		EmployeeID: "emp-ani",
		Amount:     10000,
		Reason:     "biaya berobat",
	})
	if err != nil {
		t.Fatalf("create second advance failed: %v", err)
	}

	resp, err := svc.DeductFromAdvance(ctx, "emp-ani", domain.AdvanceDeductRequest{Amount: 15000})
	if err != nil {
		t.Fatalf("deduct failed: %v", err)
	}
	if resp.Outstanding != 5000 {
		t.Fatalf("expected outstanding 5000, got %d", resp.Outstanding)
	}

	balances := map[string]int64{}
	for _, adv := range resp.Advances {
		balances[adv.ID] = int64(adv.RemainingBalance)
	}
	if balances[first.ID] != 0 {
		t.Fatalf("expected oldest advance drained to 0, got %d", balances[first.ID])
	}
	if balances[second.ID] != 5000 {
		t.Fatalf("expected newer advance at 5000, got %d", balances[second.ID])
	}

	if _, err := svc.DeductFromAdvance(ctx, "emp-ani", domain.AdvanceDeductRequest{Amount: 6000}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error on overdraw, got %v", err)
	}
}

func TestRunPayrollSkipsEmployeesAlreadyPaidForPeriod(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	resp, err := svc.RunPayroll(ctx, domain.PayrollRunRequest{Period: "2026-09"})
	if err != nil {
		t.Fatalf("run payroll failed: %v", err)
	}
	if len(resp.Obligations) != 2 {
		t.Fatalf("expected payroll for 2 seeded employees, got %d", len(resp.Obligations))
	}
	for _, o := range resp.Obligations {
		if o.Status != domain.ObligationStatusUnpaid {
			t.Fatalf("payroll obligation should start unpaid, got %s", o.Status)
		}
		if o.Period != "2026-09" {
			t.Fatalf("unexpected period %s", o.Period)
		}
	}

	again, err := svc.RunPayroll(ctx, domain.PayrollRunRequest{Period: "2026-09"})
	if err != nil {
		t.Fatalf("second payroll run failed: %v", err)
	}
	if len(again.Obligations) != 0 {
		t.Fatalf("rerun for the same period must not duplicate payroll, got %d", len(again.Obligations))
	}
}

func TestRunPayrollAppliesAdvanceDeduction(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	if _, err := svc.CreateAdvance(ctx, domain.AdvanceCreateRequest{
		EmployeeID: "emp-budi",
		Amount:     50000,
		Reason:     "uang muka motor",
	}); err != nil {
		t.Fatalf("create advance failed: %v", err)
	}

	resp, err := svc.RunPayroll(ctx, domain.PayrollRunRequest{
		Period: "2026-10",
		Adjustments: []domain.PayrollAdjustment{
			{EmployeeID: "emp-budi", AdvanceDeduction: 50000},
		},
	})
	if err != nil {
		t.Fatalf("run payroll failed: %v", err)
	}

	var budiNet int64 = -1
	for _, o := range resp.Obligations {
		if o.EmployeeID == "emp-budi" {
			budiNet = int64(o.TotalAmount)
		}
	}
	if budiNet != 3000000-50000 {
		t.Fatalf("expected net salary 2950000 after advance deduction, got %d", budiNet)
	}

	advances, err := svc.ListAdvances(ctx, "emp-budi")
	if err != nil {
		t.Fatalf("list advances failed: %v", err)
	}
	if advances.Outstanding != 0 {
		t.Fatalf("expected advance fully settled by payroll, got %d", advances.Outstanding)
	}
}

func TestDeactivatedEmployeeStaysListedButLeavesPayroll(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	if err := svc.DeactivateEmployee(ctx, "emp-budi"); err != nil {
		t.Fatalf("deactivate employee failed: %v", err)
	}

	employees, err := svc.ListEmployees(ctx)
	if err != nil {
		t.Fatalf("list employees failed: %v", err)
	}
	var budi *domain.Employee
	for i := range employees {
		if employees[i].ID == "emp-budi" {
			budi = &employees[i]
		}
	}
	if budi == nil {
		t.Fatalf("deactivated employee must still appear in the listing")
	}
	if budi.Active {
		t.Fatalf("expected emp-budi to be inactive")
	}

	resp, err := svc.RunPayroll(ctx, domain.PayrollRunRequest{Period: "2026-11"})
	if err != nil {
		t.Fatalf("run payroll failed: %v", err)
	}
	if len(resp.Obligations) != 1 || resp.Obligations[0].EmployeeID != "emp-ani" {
		t.Fatalf("expected payroll only for the active employee, got %+v", resp.Obligations)
	}
}

// payrollInsertFailRepo fails payroll obligation inserts while delegating
// everything else to the embedded repository.
type payrollInsertFailRepo struct {
	store.Repository
}

func (r payrollInsertFailRepo) CreateObligation(ctx context.Context, o domain.Obligation, adjustments []domain.StockAdjustment, actor string) (*domain.Obligation, error) {
	if o.Kind == domain.ObligationKindPayroll {
		return nil, errors.New("obligation insert failed")
	}
	return r.Repository.CreateObligation(ctx, o, adjustments, actor)
}

func TestRunPayrollKeepsAdvanceBalanceWhenInsertFails(t *testing.T) {
	svc := New(payrollInsertFailRepo{memory.NewSeeded()}, cache.NoopSummaryCache{}, time.Second)
	ctx := adminCtx()

	if _, err := svc.CreateAdvance(ctx, domain.AdvanceCreateRequest{
		EmployeeID: "emp-ani",
		Amount:     40000,
		Reason:     "darurat keluarga",
	}); err != nil {
		t.Fatalf("create advance failed: %v", err)
	}

	if _, err := svc.RunPayroll(ctx, domain.PayrollRunRequest{
		Period: "2026-12",
		Adjustments: []domain.PayrollAdjustment{
			{EmployeeID: "emp-ani", AdvanceDeduction: 40000},
		},
	}); err == nil {
		t.Fatalf("expected payroll insert failure to surface")
	}

	advances, err := svc.ListAdvances(ctx, "emp-ani")
	if err != nil {
		t.Fatalf("list advances failed: %v", err)
	}
	if advances.Outstanding != 40000 {
		t.Fatalf("failed payroll run must not drain advances, got outstanding %d", advances.Outstanding)
	}
}

func TestDashboardSummaryAggregatesLedger(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	if _, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		CustomerName: "Ibu Sari",
		PaymentType:  domain.PaymentTypeFull,
		Items: []domain.SaleItemInput{
			{ProductID: "prd-mie-01", Qty: 2},
		},
	}); err != nil {
		t.Fatalf("record sale failed: %v", err)
	}

	summary, err := svc.DashboardSummary(ctx)
	if err != nil {
		t.Fatalf("dashboard summary failed: %v", err)
	}
	if summary.Sales.Count != 1 {
		t.Fatalf("expected one sale in summary, got %d", summary.Sales.Count)
	}
	if summary.Sales.Total != 7000 {
		t.Fatalf("expected sales total 7000, got %d", summary.Sales.Total)
	}
}

func TestDailyReportCountsTodaySales(t *testing.T) {
	svc := newTestService()
	ctx := staffCtx()

	for _, qty := range []int{1, 2} {
		if _, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
			CustomerName: "Pak Dedi",
			PaymentType:  domain.PaymentTypeFull,
			Items: []domain.SaleItemInput{
				{ProductID: "prd-air-01", Qty: qty},
			},
		}); err != nil {
			t.Fatalf("record sale failed: %v", err)
		}
	}

	report, err := svc.DailyReport(ctx, "")
	if err != nil {
		t.Fatalf("daily report failed: %v", err)
	}
	if report.Transactions != 2 {
		t.Fatalf("expected 2 transactions, got %d", report.Transactions)
	}
	if report.ItemsSold != 3 {
		t.Fatalf("expected 3 items sold, got %d", report.ItemsSold)
	}
}

func TestAuditLogsRecordedAndAdminOnly(t *testing.T) {
	svc := newTestService()
	ctx := adminCtx()

	if _, err := svc.RecordSale(ctx, domain.SaleCreateRequest{
		CustomerName: "Ibu Sari",
		PaymentType:  domain.PaymentTypeFull,
		Items: []domain.SaleItemInput{
			{ProductID: "prd-gula-01", Qty: 1},
		},
	}); err != nil {
		t.Fatalf("record sale failed: %v", err)
	}

	logs, err := svc.ListAuditLogs(ctx, "", 50)
	if err != nil {
		t.Fatalf("list audit logs failed: %v", err)
	}
	found := false
	for _, entry := range logs {
		if entry.Action == "sale.record" {
			found = true
			break
		}
	}
	if !found {
		t.Fatalf("expected sale.record audit entry")
	}

	if _, err := svc.ListAuditLogs(staffCtx(), "", 50); err == nil {
		t.Fatalf("expected staff audit log access to be rejected")
	}
}

package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"tokoadmin/backend/internal/cache"
	"tokoadmin/backend/internal/domain"
	"tokoadmin/backend/internal/ledger"
	"tokoadmin/backend/internal/money"
	"tokoadmin/backend/internal/store"
	"tokoadmin/backend/internal/xid"
)

const summaryCacheKey = "dashboard:summary"

type actorContextKey struct{}

// WithActor attaches the authenticated actor to the request context.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo       store.Repository
	summaries  cache.SummaryCache
	summaryTTL time.Duration
}

func New(repo store.Repository, summaries cache.SummaryCache, summaryTTL time.Duration) *Service {
	if summaries == nil {
		summaries = cache.NoopSummaryCache{}
	}
	if summaryTTL <= 0 {
		summaryTTL = 30 * time.Second
	}
	return &Service{repo: repo, summaries: summaries, summaryTTL: summaryTTL}
}

func requireActor(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Actor{}, fmt.Errorf("authentication required")
	}
	return actor, nil
}

func requireAdmin(ctx context.Context) (domain.Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Actor{}, fmt.Errorf("admin role required")
	}
	return actor, nil
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entityType, entityID, err)
	}
}

// parseDueDate accepts "2006-01-02" and pins the deadline to the end of that
// day in UTC so an obligation recorded on its own due date is not instantly
// overdue.
func parseDueDate(raw string) (*time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: due_date must be formatted as YYYY-MM-DD", store.ErrValidation)
	}
	due := parsed.UTC().Add(24*time.Hour - time.Second)
	return &due, nil
}

func fillStatus(o *domain.Obligation, now time.Time) {
	if o == nil {
		return
	}
	o.Status = ledger.Status(*o, now)
}

func fillStatuses(items []domain.Obligation, now time.Time) {
	for i := range items {
		fillStatus(&items[i], now)
	}
}

// --- Products and stock ---

func (s *Service) ListProducts(ctx context.Context) ([]domain.ProductView, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]domain.ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, domain.ProductView{
			Product:     p,
			StockStatus: ledger.StockStatus(p.StockLevel, p.MinStock),
		})
	}
	return views, nil
}

func (s *Service) ListLowStock(ctx context.Context) ([]domain.ProductView, error) {
	views, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	flagged := make([]domain.ProductView, 0, len(views))
	for _, v := range views {
		if v.StockStatus != domain.StockStatusIn {
			flagged = append(flagged, v)
		}
	}
	return flagged, nil
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.ProductView, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.ProductView{}, err
	}
	return domain.ProductView{
		Product:     *product,
		StockStatus: ledger.StockStatus(product.StockLevel, product.MinStock),
	}, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.ProductView, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.ProductView{}, err
	}

	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	if req.SKU == "" || req.Name == "" {
		return domain.ProductView{}, fmt.Errorf("%w: sku and name are required", store.ErrValidation)
	}
	if req.InitialStock < 0 || req.MinStock < 0 {
		return domain.ProductView{}, fmt.Errorf("%w: stock levels cannot be negative", store.ErrValidation)
	}
	if req.PurchasePrice.IsNegative() || req.SalePrice.IsNegative() {
		return domain.ProductView{}, fmt.Errorf("%w: prices cannot be negative", store.ErrValidation)
	}

	product := domain.Product{
		ID:            xid.New("prd"),
		SKU:           req.SKU,
		Name:          req.Name,
		Category:      req.Category,
		StockLevel:    req.InitialStock,
		MinStock:      req.MinStock,
		PurchasePrice: req.PurchasePrice,
		SalePrice:     req.SalePrice,
		Active:        true,
		CreatedAt:     time.Now().UTC(),
	}
	saved, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.ProductView{}, err
	}

	s.logAudit(ctx, "product.create", "product", saved.ID, fmt.Sprintf("sku=%s", saved.SKU))
	return domain.ProductView{
		Product:     *saved,
		StockStatus: ledger.StockStatus(saved.StockLevel, saved.MinStock),
	}, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.ProductView, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.ProductView{}, err
	}

	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.ProductView{}, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.ProductView{}, fmt.Errorf("%w: name cannot be empty", store.ErrValidation)
		}
		product.Name = name
	}
	if req.Category != nil {
		product.Category = strings.ToLower(strings.TrimSpace(*req.Category))
	}
	if req.MinStock != nil {
		if *req.MinStock < 0 {
			return domain.ProductView{}, fmt.Errorf("%w: min_stock cannot be negative", store.ErrValidation)
		}
		product.MinStock = *req.MinStock
	}
	if req.PurchasePrice != nil {
		if req.PurchasePrice.IsNegative() {
			return domain.ProductView{}, fmt.Errorf("%w: purchase price cannot be negative", store.ErrValidation)
		}
		product.PurchasePrice = *req.PurchasePrice
	}
	if req.SalePrice != nil {
		if req.SalePrice.IsNegative() {
			return domain.ProductView{}, fmt.Errorf("%w: sale price cannot be negative", store.ErrValidation)
		}
		product.SalePrice = *req.SalePrice
	}
	if req.Active != nil {
		product.Active = *req.Active
	}

	saved, err := s.repo.UpdateProduct(ctx, *product)
	if err != nil {
		return domain.ProductView{}, err
	}

	s.logAudit(ctx, "product.update", "product", saved.ID, fmt.Sprintf("sku=%s", saved.SKU))
	return domain.ProductView{
		Product:     *saved,
		StockStatus: ledger.StockStatus(saved.StockLevel, saved.MinStock),
	}, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "product.delete", "product", id, "")
	return nil
}

func (s *Service) AdjustStock(ctx context.Context, productID string, req domain.StockAdjustRequest) (domain.ProductView, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.ProductView{}, err
	}

	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		return domain.ProductView{}, fmt.Errorf("%w: adjustment reason is required", store.ErrValidation)
	}

	adjustment := domain.StockAdjustment{
		ProductID: productID,
		Type:      strings.ToLower(strings.TrimSpace(req.Type)),
		Qty:       req.Qty,
		Reason:    req.Reason,
	}
	product, _, err := s.repo.AdjustStock(ctx, adjustment, actor.Username)
	if err != nil {
		return domain.ProductView{}, err
	}

	s.logAudit(ctx, "stock.adjust", "product", productID,
		fmt.Sprintf("%s %d -> level %d (%s)", adjustment.Type, adjustment.Qty, product.StockLevel, req.Reason))
	return domain.ProductView{
		Product:     *product,
		StockStatus: ledger.StockStatus(product.StockLevel, product.MinStock),
	}, nil
}

func (s *Service) ListStockMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	if limit < 1 {
		limit = 50
	}
	return s.repo.ListStockMovements(ctx, productID, limit)
}

// --- Sales ---

func (s *Service) RecordSale(ctx context.Context, req domain.SaleCreateRequest) (domain.Obligation, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.Obligation{}, err
	}

	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.PaymentType = strings.ToLower(strings.TrimSpace(req.PaymentType))
	if req.CustomerName == "" {
		return domain.Obligation{}, fmt.Errorf("%w: customer name is required", store.ErrValidation)
	}
	if req.PaymentType != domain.PaymentTypeFull && req.PaymentType != domain.PaymentTypeInstallment {
		return domain.Obligation{}, fmt.Errorf("%w: payment_type must be full or installment", store.ErrValidation)
	}
	if len(req.Items) == 0 {
		return domain.Obligation{}, fmt.Errorf("%w: a sale needs at least one item", store.ErrValidation)
	}

	lines := make([]domain.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Qty < 1 {
			return domain.Obligation{}, fmt.Errorf("%w: item quantity must be at least 1", store.ErrValidation)
		}
		product, err := s.repo.GetProductByID(ctx, item.ProductID)
		if err != nil {
			return domain.Obligation{}, err
		}
		if !product.Active {
			return domain.Obligation{}, fmt.Errorf("%w: product %s is inactive", store.ErrValidation, product.SKU)
		}
		lines = append(lines, domain.LineItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Qty:         item.Qty,
			UnitPrice:   product.SalePrice,
			Total:       product.SalePrice.MulQty(item.Qty),
		})
	}
	lines = ledger.MergeLineItems(lines)
	total := ledger.SumLineItems(lines)

	var paid money.Money
	var dueDate *time.Time
	switch req.PaymentType {
	case domain.PaymentTypeFull:
		if !req.AmountPaid.IsZero() && req.AmountPaid.Cmp(total) != 0 {
			return domain.Obligation{}, fmt.Errorf("%w: full payment must match the sale total", store.ErrValidation)
		}
		paid = total
	case domain.PaymentTypeInstallment:
		dueDate, err = parseDueDate(req.DueDate)
		if err != nil {
			return domain.Obligation{}, err
		}
		if dueDate == nil {
			return domain.Obligation{}, fmt.Errorf("%w: installment sales need a due date", store.ErrValidation)
		}
		if req.AmountPaid.IsNegative() || req.AmountPaid.Cmp(total) > 0 {
			return domain.Obligation{}, fmt.Errorf("%w: amount paid must be between 0 and the sale total", store.ErrValidation)
		}
		paid = req.AmountPaid
	}

	obligation, err := ledger.NewObligation(domain.ObligationKindSale, req.CustomerName, total, paid, dueDate)
	if err != nil {
		return domain.Obligation{}, err
	}
	obligation.ID = xid.New("sale")
	obligation.RecordedBy = actor.Username
	obligation.Items = lines

	adjustments := make([]domain.StockAdjustment, 0, len(lines))
	for _, line := range lines {
		adjustments = append(adjustments, domain.StockAdjustment{
			ProductID: line.ProductID,
			Type:      domain.StockAdjustSubtract,
			Qty:       line.Qty,
			Reason:    "sale " + obligation.ID,
		})
	}

	saved, err := s.repo.CreateObligation(ctx, obligation, adjustments, actor.Username)
	if err != nil {
		return domain.Obligation{}, err
	}
	fillStatus(saved, time.Now().UTC())

	s.logAudit(ctx, "sale.record", "obligation", saved.ID,
		fmt.Sprintf("customer=%s total=%s payment=%s", saved.CounterpartyName, saved.TotalAmount, req.PaymentType))
	return *saved, nil
}

func (s *Service) ListSales(ctx context.Context, limit int) ([]domain.Obligation, error) {
	return s.listObligationsByKind(ctx, domain.ObligationKindSale, limit)
}

// --- Purchases ---

func (s *Service) RecordPurchase(ctx context.Context, req domain.PurchaseCreateRequest) (domain.Obligation, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.Obligation{}, err
	}

	req.SupplierName = strings.TrimSpace(req.SupplierName)
	if req.SupplierName == "" {
		return domain.Obligation{}, fmt.Errorf("%w: supplier name is required", store.ErrValidation)
	}
	if req.Qty < 1 {
		return domain.Obligation{}, fmt.Errorf("%w: purchase quantity must be at least 1", store.ErrValidation)
	}

	product, err := s.repo.GetProductByID(ctx, req.ProductID)
	if err != nil {
		return domain.Obligation{}, err
	}

	total := product.PurchasePrice.MulQty(req.Qty)
	if req.AmountPaid.IsNegative() || req.AmountPaid.Cmp(total) > 0 {
		return domain.Obligation{}, fmt.Errorf("%w: amount paid must be between 0 and the purchase total", store.ErrValidation)
	}

	var dueDate *time.Time
	if req.AmountPaid.Cmp(total) < 0 {
		dueDate, err = parseDueDate(req.DueDate)
		if err != nil {
			return domain.Obligation{}, err
		}
	}

	obligation, err := ledger.NewObligation(domain.ObligationKindPurchase, req.SupplierName, total, req.AmountPaid, dueDate)
	if err != nil {
		return domain.Obligation{}, err
	}
	obligation.ID = xid.New("pur")
	obligation.RecordedBy = actor.Username
	obligation.Items = []domain.LineItem{{
		ProductID:   product.ID,
		ProductName: product.Name,
		Qty:         req.Qty,
		UnitPrice:   product.PurchasePrice,
		Total:       total,
	}}

	// Receiving a purchase restocks the product in the same write.
	adjustments := []domain.StockAdjustment{{
		ProductID: product.ID,
		Type:      domain.StockAdjustAdd,
		Qty:       req.Qty,
		Reason:    "purchase " + obligation.ID,
	}}

	saved, err := s.repo.CreateObligation(ctx, obligation, adjustments, actor.Username)
	if err != nil {
		return domain.Obligation{}, err
	}
	fillStatus(saved, time.Now().UTC())

	s.logAudit(ctx, "purchase.record", "obligation", saved.ID,
		fmt.Sprintf("supplier=%s product=%s qty=%d total=%s", saved.CounterpartyName, product.SKU, req.Qty, saved.TotalAmount))
	return *saved, nil
}

func (s *Service) ListPurchases(ctx context.Context, limit int) ([]domain.Obligation, error) {
	return s.listObligationsByKind(ctx, domain.ObligationKindPurchase, limit)
}

// --- Debts ---

func (s *Service) CreateDebt(ctx context.Context, req domain.DebtCreateRequest) (domain.Obligation, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.Obligation{}, err
	}

	req.Kind = strings.ToLower(strings.TrimSpace(req.Kind))
	req.CounterpartyName = strings.TrimSpace(req.CounterpartyName)
	if req.Kind != domain.ObligationKindCustomerDebt && req.Kind != domain.ObligationKindSupplierDebt {
		return domain.Obligation{}, fmt.Errorf("%w: kind must be customer_debt or supplier_debt", store.ErrValidation)
	}
	if req.CounterpartyName == "" {
		return domain.Obligation{}, fmt.Errorf("%w: counterparty name is required", store.ErrValidation)
	}
	if req.Total.Cmp(0) <= 0 {
		return domain.Obligation{}, fmt.Errorf("%w: debt total must be positive", store.ErrValidation)
	}
	if req.AmountPaid.IsNegative() || req.AmountPaid.Cmp(req.Total) > 0 {
		return domain.Obligation{}, fmt.Errorf("%w: amount paid must be between 0 and the debt total", store.ErrValidation)
	}

	dueDate, err := parseDueDate(req.DueDate)
	if err != nil {
		return domain.Obligation{}, err
	}

	obligation, err := ledger.NewObligation(req.Kind, req.CounterpartyName, req.Total, req.AmountPaid, dueDate)
	if err != nil {
		return domain.Obligation{}, err
	}
	obligation.ID = xid.New("debt")
	obligation.RecordedBy = actor.Username

	saved, err := s.repo.CreateObligation(ctx, obligation, nil, actor.Username)
	if err != nil {
		return domain.Obligation{}, err
	}
	fillStatus(saved, time.Now().UTC())

	s.logAudit(ctx, "debt.create", "obligation", saved.ID,
		fmt.Sprintf("kind=%s counterparty=%s total=%s", saved.Kind, saved.CounterpartyName, saved.TotalAmount))
	return *saved, nil
}

func (s *Service) ListDebts(ctx context.Context, kind string, limit int) ([]domain.Obligation, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	switch kind {
	case domain.ObligationKindCustomerDebt, domain.ObligationKindSupplierDebt:
		return s.listObligationsByKind(ctx, kind, limit)
	case "":
		customer, err := s.listObligationsByKind(ctx, domain.ObligationKindCustomerDebt, limit)
		if err != nil {
			return nil, err
		}
		supplier, err := s.listObligationsByKind(ctx, domain.ObligationKindSupplierDebt, limit)
		if err != nil {
			return nil, err
		}
		return append(customer, supplier...), nil
	default:
		return nil, fmt.Errorf("%w: kind must be customer_debt or supplier_debt", store.ErrValidation)
	}
}

func (s *Service) listObligationsByKind(ctx context.Context, kind string, limit int) ([]domain.Obligation, error) {
	if limit < 1 {
		limit = 100
	}
	items, err := s.repo.ListObligations(ctx, kind, limit)
	if err != nil {
		return nil, err
	}
	fillStatuses(items, time.Now().UTC())
	return items, nil
}

func (s *Service) GetObligation(ctx context.Context, id string) (domain.Obligation, error) {
	obligation, err := s.repo.GetObligationByID(ctx, id)
	if err != nil {
		return domain.Obligation{}, err
	}
	fillStatus(obligation, time.Now().UTC())
	return *obligation, nil
}

// --- Payments ---

func (s *Service) ApplyPayment(ctx context.Context, obligationID string, req domain.PaymentRequest) (domain.Obligation, error) {
	if _, err := requireActor(ctx); err != nil {
		return domain.Obligation{}, err
	}

	updated, err := s.repo.ApplyObligationPayment(ctx, obligationID, req.Amount)
	if err != nil {
		return domain.Obligation{}, err
	}
	fillStatus(updated, time.Now().UTC())

	s.logAudit(ctx, "payment.apply", "obligation", obligationID,
		fmt.Sprintf("amount=%s pending=%s", req.Amount, updated.PendingAmount))
	return *updated, nil
}

// --- Returns ---

func (s *Service) CreateReturn(ctx context.Context, req domain.ReturnCreateRequest) (domain.ReturnRequest, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return domain.ReturnRequest{}, err
	}

	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		return domain.ReturnRequest{}, fmt.Errorf("%w: return reason is required", store.ErrValidation)
	}

	original, err := s.repo.GetObligationByID(ctx, req.OriginalObligationID)
	if err != nil {
		return domain.ReturnRequest{}, err
	}
	if original.Kind != domain.ObligationKindSale && original.Kind != domain.ObligationKindPurchase {
		return domain.ReturnRequest{}, fmt.Errorf("%w: returns only cover sales and purchases", store.ErrValidation)
	}

	ret := domain.ReturnRequest{
		ID:                   xid.New("ret"),
		Kind:                 original.Kind,
		OriginalObligationID: original.ID,
		CounterpartyName:     original.CounterpartyName,
		Amount:               original.TotalAmount,
		Reason:               req.Reason,
		Status:               domain.ReturnStatusPending,
		Items:                original.Items,
		CreatedAt:            time.Now().UTC(),
	}

	saved, err := s.repo.CreateReturnRequest(ctx, ret)
	if err != nil {
		return domain.ReturnRequest{}, err
	}

	s.logAudit(ctx, "return.create", "return_request", saved.ID,
		fmt.Sprintf("original=%s amount=%s by=%s", original.ID, saved.Amount, actor.Username))
	return *saved, nil
}

func (s *Service) ListReturns(ctx context.Context, status string, limit int) ([]domain.ReturnRequest, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case "", domain.ReturnStatusPending, domain.ReturnStatusApproved, domain.ReturnStatusRejected:
	default:
		return nil, fmt.Errorf("%w: unknown return status %q", store.ErrValidation, status)
	}
	if limit < 1 {
		limit = 100
	}
	return s.repo.ListReturnRequests(ctx, status, limit)
}

func (s *Service) ApproveReturn(ctx context.Context, returnID string) (domain.ReturnRequest, error) {
	return s.decideReturn(ctx, returnID, domain.ReturnStatusApproved)
}

func (s *Service) RejectReturn(ctx context.Context, returnID string) (domain.ReturnRequest, error) {
	return s.decideReturn(ctx, returnID, domain.ReturnStatusRejected)
}

func (s *Service) decideReturn(ctx context.Context, returnID string, status string) (domain.ReturnRequest, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.ReturnRequest{}, err
	}

	ret, err := s.repo.GetReturnRequestByID(ctx, returnID)
	if err != nil {
		return domain.ReturnRequest{}, err
	}

	var adjustments []domain.StockAdjustment
	if status == domain.ReturnStatusApproved {
		// Approved sale returns bring goods back; approved purchase
		// returns send them out.
		adjType := domain.StockAdjustAdd
		if ret.Kind == domain.ObligationKindPurchase {
			adjType = domain.StockAdjustSubtract
		}
		for _, line := range ret.Items {
			adjustments = append(adjustments, domain.StockAdjustment{
				ProductID: line.ProductID,
				Type:      adjType,
				Qty:       line.Qty,
				Reason:    "return " + returnID + " " + status,
			})
		}
	}

	decided, err := s.repo.DecideReturnRequest(ctx, returnID, status, actor.Username, time.Now().UTC(), adjustments)
	if err != nil {
		return domain.ReturnRequest{}, err
	}

	s.logAudit(ctx, "return."+status, "return_request", returnID,
		fmt.Sprintf("original=%s amount=%s", decided.OriginalObligationID, decided.Amount))
	return *decided, nil
}

// --- Employees ---

func (s *Service) CreateEmployee(ctx context.Context, req domain.EmployeeCreateRequest) (domain.Employee, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.Employee{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Position = strings.TrimSpace(req.Position)
	if req.Name == "" {
		return domain.Employee{}, fmt.Errorf("%w: employee name is required", store.ErrValidation)
	}
	if req.MonthlySalary.IsNegative() {
		return domain.Employee{}, fmt.Errorf("%w: salary cannot be negative", store.ErrValidation)
	}

	employee := domain.Employee{
		ID:            xid.New("emp"),
		Name:          req.Name,
		Position:      req.Position,
		MonthlySalary: req.MonthlySalary,
		Active:        true,
		JoinedAt:      time.Now().UTC(),
	}
	saved, err := s.repo.CreateEmployee(ctx, employee)
	if err != nil {
		return domain.Employee{}, err
	}

	s.logAudit(ctx, "employee.create", "employee", saved.ID, fmt.Sprintf("name=%s", saved.Name))
	return *saved, nil
}

func (s *Service) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	return s.repo.ListEmployees(ctx, false)
}

func (s *Service) DeactivateEmployee(ctx context.Context, id string) error {
	if _, err := requireAdmin(ctx); err != nil {
		return err
	}
	if _, err := s.repo.SetEmployeeActive(ctx, id, false); err != nil {
		return err
	}
	s.logAudit(ctx, "employee.deactivate", "employee", id, "")
	return nil
}

// --- Advance payments ---

func (s *Service) CreateAdvance(ctx context.Context, req domain.AdvanceCreateRequest) (domain.AdvancePayment, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.AdvancePayment{}, err
	}

	req.Reason = strings.TrimSpace(req.Reason)
	if req.Amount.Cmp(0) <= 0 {
		return domain.AdvancePayment{}, fmt.Errorf("%w: advance amount must be positive", store.ErrValidation)
	}
	if req.Reason == "" {
		return domain.AdvancePayment{}, fmt.Errorf("%w: advance reason is required", store.ErrValidation)
	}
	if _, err := s.repo.GetEmployeeByID(ctx, req.EmployeeID); err != nil {
		return domain.AdvancePayment{}, err
	}

	advance := domain.AdvancePayment{
		ID:               xid.New("adv"),
		EmployeeID:       req.EmployeeID,
		Amount:           req.Amount,
		RemainingBalance: req.Amount,
		Reason:           req.Reason,
		Date:             time.Now().UTC(),
	}
	saved, err := s.repo.CreateAdvance(ctx, advance)
	if err != nil {
		return domain.AdvancePayment{}, err
	}

	s.logAudit(ctx, "advance.create", "advance_payment", saved.ID,
		fmt.Sprintf("employee=%s amount=%s", saved.EmployeeID, saved.Amount))
	return *saved, nil
}

func (s *Service) ListAdvances(ctx context.Context, employeeID string) (domain.AdvanceListResponse, error) {
	if _, err := s.repo.GetEmployeeByID(ctx, employeeID); err != nil {
		return domain.AdvanceListResponse{}, err
	}
	advances, err := s.repo.ListAdvancesByEmployee(ctx, employeeID)
	if err != nil {
		return domain.AdvanceListResponse{}, err
	}
	return domain.AdvanceListResponse{
		EmployeeID:  employeeID,
		Advances:    advances,
		Outstanding: ledger.OutstandingAdvance(advances),
	}, nil
}

func (s *Service) DeductFromAdvance(ctx context.Context, employeeID string, req domain.AdvanceDeductRequest) (domain.AdvanceDeductResponse, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return domain.AdvanceDeductResponse{}, err
	}
	if _, err := s.repo.GetEmployeeByID(ctx, employeeID); err != nil {
		return domain.AdvanceDeductResponse{}, err
	}

	advances, err := s.repo.ListAdvancesByEmployee(ctx, employeeID)
	if err != nil {
		return domain.AdvanceDeductResponse{}, err
	}

	updated, err := ledger.AllocateAdvances(advances, req.Amount)
	if err != nil {
		return domain.AdvanceDeductResponse{}, err
	}
	if err := s.repo.UpdateAdvanceBalances(ctx, updated); err != nil {
		return domain.AdvanceDeductResponse{}, err
	}

	s.logAudit(ctx, "advance.deduct", "employee", employeeID, fmt.Sprintf("amount=%s", req.Amount))
	return domain.AdvanceDeductResponse{
		EmployeeID:     employeeID,
		DeductedAmount: req.Amount,
		Outstanding:    ledger.OutstandingAdvance(updated),
		Advances:       updated,
	}, nil
}

// --- Payroll ---

func (s *Service) RunPayroll(ctx context.Context, req domain.PayrollRunRequest) (domain.PayrollRunResponse, error) {
	actor, err := requireAdmin(ctx)
	if err != nil {
		return domain.PayrollRunResponse{}, err
	}

	req.Period = strings.TrimSpace(req.Period)
	if _, err := time.Parse("2006-01", req.Period); err != nil {
		return domain.PayrollRunResponse{}, fmt.Errorf("%w: period must be formatted as YYYY-MM", store.ErrValidation)
	}

	adjustmentsByEmployee := make(map[string]domain.PayrollAdjustment, len(req.Adjustments))
	for _, adj := range req.Adjustments {
		adjustmentsByEmployee[adj.EmployeeID] = adj
	}

	existing, err := s.repo.ListObligations(ctx, domain.ObligationKindPayroll, 0)
	if err != nil {
		return domain.PayrollRunResponse{}, err
	}
	alreadyRun := make(map[string]bool, len(existing))
	for _, o := range existing {
		if o.Period == req.Period {
			alreadyRun[o.EmployeeID] = true
		}
	}

	employees, err := s.repo.ListEmployees(ctx, true)
	if err != nil {
		return domain.PayrollRunResponse{}, err
	}

	resp := domain.PayrollRunResponse{Period: req.Period}
	for _, employee := range employees {
		if !employee.Active || alreadyRun[employee.ID] {
			continue
		}
		adj := adjustmentsByEmployee[employee.ID]

		var advanceDeduction money.Money
		var allocated []domain.AdvancePayment
		if adj.AdvanceDeduction.Cmp(0) > 0 {
			advances, err := s.repo.ListAdvancesByEmployee(ctx, employee.ID)
			if err != nil {
				return domain.PayrollRunResponse{}, err
			}
			allocated, err = ledger.AllocateAdvances(advances, adj.AdvanceDeduction)
			if err != nil {
				return domain.PayrollRunResponse{}, fmt.Errorf("employee %s: %w", employee.ID, err)
			}
			advanceDeduction = adj.AdvanceDeduction
		}

		net := employee.MonthlySalary.Add(adj.Bonus).Sub(adj.Deduction).Sub(advanceDeduction)
		if net.IsNegative() {
			net = 0
		}

		obligation, err := ledger.NewObligation(domain.ObligationKindPayroll, employee.Name, net, 0, nil)
		if err != nil {
			return domain.PayrollRunResponse{}, err
		}
		obligation.ID = xid.New("pay")
		obligation.EmployeeID = employee.ID
		obligation.Period = req.Period
		obligation.RecordedBy = actor.Username

		saved, err := s.repo.CreateObligation(ctx, obligation, nil, actor.Username)
		if err != nil {
			return domain.PayrollRunResponse{}, err
		}
		// Drain advance balances only after the payroll record exists, so a
		// failed insert never leaves a deduction with no obligation behind it.
		if allocated != nil {
			if err := s.repo.UpdateAdvanceBalances(ctx, allocated); err != nil {
				return domain.PayrollRunResponse{}, err
			}
		}
		fillStatus(saved, time.Now().UTC())

		resp.Obligations = append(resp.Obligations, *saved)
		resp.TotalNet = resp.TotalNet.Add(net)
	}

	s.logAudit(ctx, "payroll.run", "payroll", req.Period,
		fmt.Sprintf("employees=%d total_net=%s", len(resp.Obligations), resp.TotalNet))
	return resp, nil
}

func (s *Service) ListPayroll(ctx context.Context, limit int) ([]domain.Obligation, error) {
	return s.listObligationsByKind(ctx, domain.ObligationKindPayroll, limit)
}

// --- Reports ---

func (s *Service) DashboardSummary(ctx context.Context) (domain.DashboardSummary, error) {
	if cached, ok, err := s.summaries.Get(ctx, summaryCacheKey); err != nil {
		log.Printf("[cache] WARN: summary cache read failed: %v", err)
	} else if ok {
		return *cached, nil
	}

	obligations, err := s.repo.ListObligations(ctx, "", 0)
	if err != nil {
		return domain.DashboardSummary{}, err
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.DashboardSummary{}, err
	}

	summary := ledger.Summarize(obligations, products, time.Now().UTC())
	if err := s.summaries.Set(ctx, summaryCacheKey, &summary, s.summaryTTL); err != nil {
		log.Printf("[cache] WARN: summary cache write failed: %v", err)
	}
	return summary, nil
}

func (s *Service) DailyReport(ctx context.Context, date string) (domain.DailySalesReport, error) {
	var day time.Time
	if strings.TrimSpace(date) == "" {
		now := time.Now().UTC()
		day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return domain.DailySalesReport{}, fmt.Errorf("%w: date must be formatted as YYYY-MM-DD", store.ErrValidation)
		}
		day = parsed.UTC()
	}

	sales, err := s.repo.ListObligations(ctx, domain.ObligationKindSale, 0)
	if err != nil {
		return domain.DailySalesReport{}, err
	}
	return ledger.DailySales(sales, day), nil
}

func (s *Service) ListAuditLogs(ctx context.Context, date string, limit int) ([]domain.AuditLog, error) {
	if _, err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}

	var from time.Time
	if strings.TrimSpace(date) == "" {
		from = time.Now().UTC().Add(-24 * time.Hour)
	} else {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			return nil, fmt.Errorf("%w: date must be formatted as YYYY-MM-DD", store.ErrValidation)
		}
		from = parsed.UTC()
	}
	to := from.Add(24 * time.Hour)
	if to.After(time.Now().UTC()) {
		to = time.Now().UTC().Add(time.Minute)
	}

	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tokoadmin/backend/internal/domain"
	"tokoadmin/backend/internal/ledger"
	"tokoadmin/backend/internal/money"
	"tokoadmin/backend/internal/store"
	"tokoadmin/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	movements       map[string][]domain.StockMovement
	obligations     map[string]domain.Obligation
	returnsByID     map[string]domain.ReturnRequest
	employees       map[string]domain.Employee
	advancesByID    map[string]domain.AdvancePayment
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD; if
// unset, hardcoded dev defaults are used with a warning. These credentials
// are never used in production (the backend uses PostgreSQL when
// DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_STAFF_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"staff", staffPwd, "staff"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	now := time.Now().UTC()
	products := []domain.Product{
		{ID: "prd-mie-01", SKU: "SKU-MIE-01", Name: "Mie Goreng Instan", Category: "grocery", StockLevel: 120, MinStock: 30, PurchasePrice: 2700, SalePrice: 3500, Active: true},
		{ID: "prd-telur-01", SKU: "SKU-TELUR-01", Name: "Telur 10 Butir", Category: "grocery", StockLevel: 80, MinStock: 20, PurchasePrice: 23000, SalePrice: 26500, Active: true},
		{ID: "prd-susu-01", SKU: "SKU-SUSU-01", Name: "Susu UHT 1L", Category: "dairy", StockLevel: 60, MinStock: 15, PurchasePrice: 13600, SalePrice: 18900, Active: true},
		{ID: "prd-roti-01", SKU: "SKU-ROTI-01", Name: "Roti Tawar", Category: "bakery", StockLevel: 40, MinStock: 10, PurchasePrice: 12400, SalePrice: 17800, Active: true},
		{ID: "prd-kopi-01", SKU: "SKU-KOPI-01", Name: "Kopi Sachet", Category: "beverage", StockLevel: 200, MinStock: 50, PurchasePrice: 1700, SalePrice: 2600, Active: true},
		{ID: "prd-gula-01", SKU: "SKU-GULA-01", Name: "Gula 1kg", Category: "grocery", StockLevel: 90, MinStock: 25, PurchasePrice: 15300, SalePrice: 17400, Active: true},
		{ID: "prd-teh-01", SKU: "SKU-TEH-01", Name: "Teh Celup", Category: "beverage", StockLevel: 70, MinStock: 20, PurchasePrice: 7200, SalePrice: 9800, Active: true},
		{ID: "prd-air-01", SKU: "SKU-AIR-01", Name: "Air Mineral 600ml", Category: "beverage", StockLevel: 150, MinStock: 40, PurchasePrice: 3200, SalePrice: 3900, Active: true},
		{ID: "prd-sabun-01", SKU: "SKU-SABUN-01", Name: "Sabun Mandi", Category: "household", StockLevel: 55, MinStock: 15, PurchasePrice: 5000, SalePrice: 7400, Active: true},
		{ID: "prd-coklat-01", SKU: "SKU-COKLAT-01", Name: "Coklat Batang", Category: "snack", StockLevel: 45, MinStock: 12, PurchasePrice: 5600, SalePrice: 8600, Active: true},
	}

	employees := []domain.Employee{
		{ID: "emp-ani", Name: "Ani Rahma", Position: "kasir", MonthlySalary: 320000000 / 100, Active: true, JoinedAt: now.AddDate(-1, -2, 0)},
		{ID: "emp-budi", Name: "Budi Santoso", Position: "gudang", MonthlySalary: 300000000 / 100, Active: true, JoinedAt: now.AddDate(0, -8, 0)},
	}

	productMap := make(map[string]domain.Product, len(products))
	for _, p := range products {
		p.CreatedAt = now
		productMap[p.ID] = p
	}
	employeeMap := make(map[string]domain.Employee, len(employees))
	for _, e := range employees {
		employeeMap[e.ID] = e
	}

	return &Store{
		products:        productMap,
		movements:       make(map[string][]domain.StockMovement),
		obligations:     make(map[string]domain.Obligation),
		returnsByID:     make(map[string]domain.ReturnRequest),
		employees:       employeeMap,
		advancesByID:    make(map[string]domain.AdvancePayment),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: seedUsers(),
	}
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		products = append(products, cloneProduct(p))
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})

	return products, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := cloneProduct(product)
	return &copied, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.SKU == "" || product.Name == "" || product.Category == "" {
		return nil, store.ErrValidation
	}
	if product.StockLevel < 0 || product.MinStock < 0 || product.PurchasePrice.IsNegative() || product.SalePrice.IsNegative() {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.ID]; exists {
		return nil, store.ErrValidation
	}
	for _, existing := range s.products {
		if existing.SKU == product.SKU {
			return nil, store.ErrValidation
		}
	}

	product.Active = true
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	s.products[product.ID] = product
	created := cloneProduct(product)
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Category == "" {
		return nil, store.ErrValidation
	}
	if product.MinStock < 0 || product.PurchasePrice.IsNegative() || product.SalePrice.IsNegative() {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.products[product.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	// Stock level changes only flow through AdjustStock.
	product.StockLevel = existing.StockLevel
	product.LastRestocked = existing.LastRestocked
	product.CreatedAt = existing.CreatedAt
	s.products[product.ID] = product
	updated := cloneProduct(product)
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.products, id)
	delete(s.movements, id)
	return nil
}

func (s *Store) AdjustStock(_ context.Context, adjustment domain.StockAdjustment, actor string) (*domain.Product, *domain.StockMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	product, movement, err := s.applyAdjustmentLocked(adjustment, actor, time.Now().UTC())
	if err != nil {
		return nil, nil, err
	}
	copied := cloneProduct(*product)
	return &copied, movement, nil
}

// applyAdjustmentLocked mutates a product's stock level and appends the
// movement row. Caller must hold the write lock.
func (s *Store) applyAdjustmentLocked(adj domain.StockAdjustment, actor string, at time.Time) (*domain.Product, *domain.StockMovement, error) {
	if strings.TrimSpace(adj.Reason) == "" {
		return nil, nil, store.ErrValidation
	}
	product, exists := s.products[adj.ProductID]
	if !exists {
		return nil, nil, store.ErrNotFound
	}

	next, restocked, err := ledger.NextStockLevel(product.StockLevel, adj.Type, adj.Qty)
	if err != nil {
		return nil, nil, err
	}

	product.StockLevel = next
	if restocked {
		restockedAt := at
		product.LastRestocked = &restockedAt
	}
	s.products[adj.ProductID] = product

	movement := domain.StockMovement{
		ID:             xid.New("mov"),
		ProductID:      adj.ProductID,
		Type:           adj.Type,
		Qty:            adj.Qty,
		ResultingLevel: next,
		Reason:         adj.Reason,
		ActorUsername:  actor,
		CreatedAt:      at,
	}
	s.movements[adj.ProductID] = append(s.movements[adj.ProductID], movement)
	return &product, &movement, nil
}

func (s *Store) ListStockMovements(_ context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 100
	}
	history := s.movements[productID]
	result := make([]domain.StockMovement, len(history))
	copy(result, history)
	slices.SortFunc(result, func(a, b domain.StockMovement) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateObligation(_ context.Context, obligation domain.Obligation, adjustments []domain.StockAdjustment, actor string) (*domain.Obligation, error) {
	if obligation.ID == "" || obligation.Kind == "" || obligation.CounterpartyName == "" {
		return nil, store.ErrValidation
	}
	if err := ledger.CheckBalance(obligation); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.obligations[obligation.ID]; exists {
		return nil, store.ErrValidation
	}

	// Validate every adjustment before touching state so a bad line leaves
	// stock untouched.
	for _, adj := range adjustments {
		if strings.TrimSpace(adj.Reason) == "" {
			return nil, store.ErrValidation
		}
		product, exists := s.products[adj.ProductID]
		if !exists {
			return nil, store.ErrNotFound
		}
		if _, _, err := ledger.NextStockLevel(product.StockLevel, adj.Type, adj.Qty); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	for _, adj := range adjustments {
		if _, _, err := s.applyAdjustmentLocked(adj, actor, now); err != nil {
			return nil, err
		}
	}

	if obligation.CreatedAt.IsZero() {
		obligation.CreatedAt = now
	}
	obligation.Status = ""
	s.obligations[obligation.ID] = obligation
	created := cloneObligation(obligation)
	return &created, nil
}

func (s *Store) GetObligationByID(_ context.Context, id string) (*domain.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obligation, exists := s.obligations[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := cloneObligation(obligation)
	return &copied, nil
}

func (s *Store) ListObligations(_ context.Context, kind string, limit int) ([]domain.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 200
	}
	result := make([]domain.Obligation, 0, limit)
	for _, o := range s.obligations {
		if kind != "" && o.Kind != kind {
			continue
		}
		result = append(result, cloneObligation(o))
	}
	slices.SortFunc(result, func(a, b domain.Obligation) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) ApplyObligationPayment(_ context.Context, id string, amount money.Money) (*domain.Obligation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	obligation, exists := s.obligations[id]
	if !exists {
		return nil, store.ErrNotFound
	}

	updated, err := ledger.ApplyPayment(obligation, amount)
	if err != nil {
		return nil, err
	}
	s.obligations[id] = updated
	copied := cloneObligation(updated)
	return &copied, nil
}

func (s *Store) CreateReturnRequest(_ context.Context, ret domain.ReturnRequest) (*domain.ReturnRequest, error) {
	if ret.ID == "" || ret.OriginalObligationID == "" {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.returnsByID[ret.ID]; exists {
		return nil, store.ErrValidation
	}
	if _, exists := s.obligations[ret.OriginalObligationID]; !exists {
		return nil, store.ErrNotFound
	}

	ret.Status = domain.ReturnStatusPending
	if ret.CreatedAt.IsZero() {
		ret.CreatedAt = time.Now().UTC()
	}
	s.returnsByID[ret.ID] = ret
	created := cloneReturn(ret)
	return &created, nil
}

func (s *Store) GetReturnRequestByID(_ context.Context, id string) (*domain.ReturnRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ret, exists := s.returnsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := cloneReturn(ret)
	return &copied, nil
}

func (s *Store) ListReturnRequests(_ context.Context, status string, limit int) ([]domain.ReturnRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 200
	}
	result := make([]domain.ReturnRequest, 0, limit)
	for _, ret := range s.returnsByID {
		if status != "" && ret.Status != status {
			continue
		}
		result = append(result, cloneReturn(ret))
	}
	slices.SortFunc(result, func(a, b domain.ReturnRequest) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) DecideReturnRequest(_ context.Context, id string, status string, processedBy string, at time.Time, adjustments []domain.StockAdjustment) (*domain.ReturnRequest, error) {
	if status != domain.ReturnStatusApproved && status != domain.ReturnStatusRejected {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ret, exists := s.returnsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	if ret.Status != domain.ReturnStatusPending {
		return nil, store.ErrInvalidState
	}

	for _, adj := range adjustments {
		if strings.TrimSpace(adj.Reason) == "" {
			return nil, store.ErrValidation
		}
		product, ok := s.products[adj.ProductID]
		if !ok {
			return nil, store.ErrNotFound
		}
		if _, _, err := ledger.NextStockLevel(product.StockLevel, adj.Type, adj.Qty); err != nil {
			return nil, err
		}
	}
	for _, adj := range adjustments {
		if _, _, err := s.applyAdjustmentLocked(adj, processedBy, at); err != nil {
			return nil, err
		}
	}

	ret.Status = status
	ret.ProcessedBy = processedBy
	processedAt := at
	ret.ProcessedAt = &processedAt
	s.returnsByID[id] = ret
	decided := cloneReturn(ret)
	return &decided, nil
}

func (s *Store) CreateEmployee(_ context.Context, employee domain.Employee) (*domain.Employee, error) {
	if employee.ID == "" || employee.Name == "" || employee.MonthlySalary.IsNegative() {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.employees[employee.ID]; exists {
		return nil, store.ErrValidation
	}
	if employee.JoinedAt.IsZero() {
		employee.JoinedAt = time.Now().UTC()
	}
	employee.Active = true
	s.employees[employee.ID] = employee
	created := employee
	return &created, nil
}

func (s *Store) GetEmployeeByID(_ context.Context, id string) (*domain.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	employee, exists := s.employees[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := employee
	return &copied, nil
}

func (s *Store) ListEmployees(_ context.Context, activeOnly bool) ([]domain.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Employee, 0, len(s.employees))
	for _, e := range s.employees {
		if activeOnly && !e.Active {
			continue
		}
		result = append(result, e)
	}
	slices.SortFunc(result, func(a, b domain.Employee) int {
		return cmpString(a.Name, b.Name)
	})
	return result, nil
}

func (s *Store) SetEmployeeActive(_ context.Context, id string, active bool) (*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	employee, exists := s.employees[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	employee.Active = active
	s.employees[id] = employee
	updated := employee
	return &updated, nil
}

func (s *Store) CreateAdvance(_ context.Context, advance domain.AdvancePayment) (*domain.AdvancePayment, error) {
	if advance.ID == "" || advance.EmployeeID == "" {
		return nil, store.ErrValidation
	}
	if advance.Amount.Cmp(0) <= 0 {
		return nil, store.ErrValidation
	}
	if advance.RemainingBalance.IsNegative() || advance.RemainingBalance.Cmp(advance.Amount) > 0 {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.employees[advance.EmployeeID]; !exists {
		return nil, store.ErrNotFound
	}
	if _, exists := s.advancesByID[advance.ID]; exists {
		return nil, store.ErrValidation
	}
	if advance.Date.IsZero() {
		advance.Date = time.Now().UTC()
	}
	s.advancesByID[advance.ID] = advance
	created := advance
	return &created, nil
}

func (s *Store) ListAdvancesByEmployee(_ context.Context, employeeID string) ([]domain.AdvancePayment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AdvancePayment, 0, 8)
	for _, adv := range s.advancesByID {
		if adv.EmployeeID != employeeID {
			continue
		}
		result = append(result, adv)
	}
	slices.SortFunc(result, func(a, b domain.AdvancePayment) int {
		if a.Date.Equal(b.Date) {
			return cmpString(a.ID, b.ID)
		}
		if a.Date.Before(b.Date) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) UpdateAdvanceBalances(_ context.Context, advances []domain.AdvancePayment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, adv := range advances {
		existing, exists := s.advancesByID[adv.ID]
		if !exists {
			return store.ErrNotFound
		}
		if adv.RemainingBalance.IsNegative() || adv.RemainingBalance.Cmp(existing.Amount) > 0 {
			return store.ErrValidation
		}
	}
	for _, adv := range advances {
		existing := s.advancesByID[adv.ID]
		existing.RemainingBalance = adv.RemainingBalance
		s.advancesByID[adv.ID] = existing
	}
	return nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 {
		limit = 100
	}
	result := make([]domain.AuditLog, 0, limit)
	for _, entry := range s.auditLogs {
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
	}
	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || user.Password == "" {
		return store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrValidation
	}
	user.Username = username
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		result = append(result, user)
	}
	slices.SortFunc(result, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return result, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))

	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cloneProduct(p domain.Product) domain.Product {
	if p.LastRestocked != nil {
		restocked := *p.LastRestocked
		p.LastRestocked = &restocked
	}
	return p
}

func cloneObligation(o domain.Obligation) domain.Obligation {
	if o.DueDate != nil {
		due := *o.DueDate
		o.DueDate = &due
	}
	if len(o.Items) > 0 {
		items := make([]domain.LineItem, len(o.Items))
		copy(items, o.Items)
		o.Items = items
	}
	return o
}

func cloneReturn(r domain.ReturnRequest) domain.ReturnRequest {
	if r.ProcessedAt != nil {
		processed := *r.ProcessedAt
		r.ProcessedAt = &processed
	}
	if len(r.Items) > 0 {
		items := make([]domain.LineItem, len(r.Items))
		copy(items, r.Items)
		r.Items = items
	}
	return r
}

func cmpString(a string, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

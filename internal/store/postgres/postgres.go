package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"tokoadmin/backend/internal/domain"
	"tokoadmin/backend/internal/ledger"
	"tokoadmin/backend/internal/money"
	"tokoadmin/backend/internal/store"
	"tokoadmin/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sku, name, category, stock_level, min_stock,
			purchase_price_cents, sale_price_cents, active, last_restocked, created_at
		FROM products
		WHERE active = true
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, sku, name, category, stock_level, min_stock,
			purchase_price_cents, sale_price_cents, active, last_restocked, created_at
		FROM products
		WHERE id = $1
	`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.SKU == "" || product.Name == "" || product.Category == "" {
		return nil, store.ErrValidation
	}
	if product.StockLevel < 0 || product.MinStock < 0 || product.PurchasePrice.IsNegative() || product.SalePrice.IsNegative() {
		return nil, store.ErrValidation
	}

	product.Active = true
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (
			id, sku, name, category, stock_level, min_stock,
			purchase_price_cents, sale_price_cents, active, last_restocked, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now())
	`, product.ID, product.SKU, product.Name, product.Category, product.StockLevel, product.MinStock,
		product.PurchasePrice, product.SalePrice, product.Active, nullTime(product.LastRestocked), product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.ID == "" || product.Name == "" || product.Category == "" {
		return nil, store.ErrValidation
	}
	if product.MinStock < 0 || product.PurchasePrice.IsNegative() || product.SalePrice.IsNegative() {
		return nil, store.ErrValidation
	}

	// Stock level changes only flow through AdjustStock.
	row := s.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, category = $3, min_stock = $4,
			purchase_price_cents = $5, sale_price_cents = $6, active = $7, updated_at = now()
		WHERE id = $1
		RETURNING id, sku, name, category, stock_level, min_stock,
			purchase_price_cents, sale_price_cents, active, last_restocked, created_at
	`, product.ID, product.Name, product.Category, product.MinStock,
		product.PurchasePrice, product.SalePrice, product.Active)
	updated, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AdjustStock(ctx context.Context, adjustment domain.StockAdjustment, actor string) (*domain.Product, *domain.StockMovement, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	product, movement, err := applyAdjustmentTx(ctx, pgTx, adjustment, actor, time.Now().UTC())
	if err != nil {
		return nil, nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, nil, err
	}
	return product, movement, nil
}

// applyAdjustmentTx locks the product row, computes the next level, and
// records the movement inside the caller's transaction.
func applyAdjustmentTx(ctx context.Context, pgTx *sql.Tx, adj domain.StockAdjustment, actor string, at time.Time) (*domain.Product, *domain.StockMovement, error) {
	if strings.TrimSpace(adj.Reason) == "" {
		return nil, nil, store.ErrValidation
	}

	row := pgTx.QueryRowContext(ctx, `
		SELECT id, sku, name, category, stock_level, min_stock,
			purchase_price_cents, sale_price_cents, active, last_restocked, created_at
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, adj.ProductID)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, store.ErrNotFound
		}
		return nil, nil, err
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

	_, err = pgTx.ExecContext(ctx, `
		UPDATE products
		SET stock_level = $2, last_restocked = $3, updated_at = now()
		WHERE id = $1
	`, product.ID, product.StockLevel, nullTime(product.LastRestocked))
	if err != nil {
		return nil, nil, err
	}

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
	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO stock_movements (id, product_id, type, qty, resulting_level, reason, actor_username, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, movement.ID, movement.ProductID, movement.Type, movement.Qty, movement.ResultingLevel, movement.Reason, movement.ActorUsername, movement.CreatedAt)
	if err != nil {
		return nil, nil, err
	}

	return product, &movement, nil
}

func (s *Store) ListStockMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, type, qty, resulting_level, reason, actor_username, created_at
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := make([]domain.StockMovement, 0, limit)
	for rows.Next() {
		var m domain.StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Type, &m.Qty, &m.ResultingLevel, &m.Reason, &m.ActorUsername, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return movements, nil
}

func (s *Store) CreateObligation(ctx context.Context, obligation domain.Obligation, adjustments []domain.StockAdjustment, actor string) (*domain.Obligation, error) {
	if obligation.ID == "" || obligation.Kind == "" || obligation.CounterpartyName == "" {
		return nil, store.ErrValidation
	}
	if err := ledger.CheckBalance(obligation); err != nil {
		return nil, err
	}
	if obligation.CreatedAt.IsZero() {
		obligation.CreatedAt = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	for _, adj := range adjustments {
		if _, _, err := applyAdjustmentTx(ctx, pgTx, adj, actor, obligation.CreatedAt); err != nil {
			return nil, err
		}
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO obligations (
			id, kind, counterparty_name, total_cents, paid_cents, pending_cents,
			due_date, employee_id, period, recorded_by, created_at, updated_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now())
	`, obligation.ID, obligation.Kind, obligation.CounterpartyName,
		obligation.TotalAmount, obligation.PaidAmount, obligation.PendingAmount,
		nullTime(obligation.DueDate), nullIfEmpty(obligation.EmployeeID),
		nullIfEmpty(obligation.Period), nullIfEmpty(obligation.RecordedBy), obligation.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}

	for _, item := range obligation.Items {
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO obligation_items (obligation_id, product_id, product_name, qty, unit_price_cents, total_cents)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, obligation.ID, item.ProductID, item.ProductName, item.Qty, item.UnitPrice, item.Total)
		if err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	obligation.Status = ""
	created := obligation
	return &created, nil
}

func (s *Store) GetObligationByID(ctx context.Context, id string) (*domain.Obligation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, counterparty_name, total_cents, paid_cents, pending_cents,
			due_date, COALESCE(employee_id,''), COALESCE(period,''), COALESCE(recorded_by,''), created_at
		FROM obligations
		WHERE id = $1
	`, id)
	obligation, err := scanObligation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	items, err := s.loadObligationItems(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	obligation.Items = items[id]
	return obligation, nil
}

func (s *Store) ListObligations(ctx context.Context, kind string, limit int) ([]domain.Obligation, error) {
	if limit < 1 {
		limit = 200
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, counterparty_name, total_cents, paid_cents, pending_cents,
			due_date, COALESCE(employee_id,''), COALESCE(period,''), COALESCE(recorded_by,''), created_at
		FROM obligations
		WHERE ($1 = '' OR kind = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, kind, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	obligations := make([]domain.Obligation, 0, limit)
	ids := make([]string, 0, limit)
	for rows.Next() {
		obligation, err := scanObligation(rows)
		if err != nil {
			return nil, err
		}
		obligations = append(obligations, *obligation)
		ids = append(ids, obligation.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items, err := s.loadObligationItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range obligations {
		obligations[i].Items = items[obligations[i].ID]
	}
	return obligations, nil
}

func (s *Store) loadObligationItems(ctx context.Context, obligationIDs []string) (map[string][]domain.LineItem, error) {
	result := make(map[string][]domain.LineItem, len(obligationIDs))
	if len(obligationIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT obligation_id, product_id, product_name, qty, unit_price_cents, total_cents
		FROM obligation_items
		WHERE obligation_id = ANY($1)
		ORDER BY id ASC
	`, obligationIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var obligationID string
		var item domain.LineItem
		if err := rows.Scan(&obligationID, &item.ProductID, &item.ProductName, &item.Qty, &item.UnitPrice, &item.Total); err != nil {
			return nil, err
		}
		result[obligationID] = append(result[obligationID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) ApplyObligationPayment(ctx context.Context, id string, amount money.Money) (*domain.Obligation, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	row := pgTx.QueryRowContext(ctx, `
		SELECT id, kind, counterparty_name, total_cents, paid_cents, pending_cents,
			due_date, COALESCE(employee_id,''), COALESCE(period,''), COALESCE(recorded_by,''), created_at
		FROM obligations
		WHERE id = $1
		FOR UPDATE
	`, id)
	obligation, err := scanObligation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	updated, err := ledger.ApplyPayment(*obligation, amount)
	if err != nil {
		return nil, err
	}

	_, err = pgTx.ExecContext(ctx, `
		UPDATE obligations
		SET paid_cents = $2, pending_cents = $3, updated_at = now()
		WHERE id = $1
	`, id, updated.PaidAmount, updated.PendingAmount)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	items, err := s.loadObligationItems(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	updated.Items = items[id]
	return &updated, nil
}

func (s *Store) CreateReturnRequest(ctx context.Context, ret domain.ReturnRequest) (*domain.ReturnRequest, error) {
	if ret.ID == "" || ret.OriginalObligationID == "" {
		return nil, store.ErrValidation
	}
	ret.Status = domain.ReturnStatusPending
	if ret.CreatedAt.IsZero() {
		ret.CreatedAt = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var exists bool
	err = pgTx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM obligations WHERE id = $1)
	`, ret.OriginalObligationID).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNotFound
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO return_requests (
			id, kind, original_obligation_id, counterparty_name, amount_cents,
			reason, status, processed_by, created_at, processed_at
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NULL,$8,NULL)
	`, ret.ID, ret.Kind, ret.OriginalObligationID, ret.CounterpartyName, ret.Amount,
		ret.Reason, ret.Status, ret.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}

	for _, item := range ret.Items {
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO return_items (return_id, product_id, product_name, qty, unit_price_cents, total_cents)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, ret.ID, item.ProductID, item.ProductName, item.Qty, item.UnitPrice, item.Total)
		if err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	created := ret
	return &created, nil
}

func (s *Store) GetReturnRequestByID(ctx context.Context, id string) (*domain.ReturnRequest, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, original_obligation_id, counterparty_name, amount_cents,
			reason, status, COALESCE(processed_by,''), created_at, processed_at
		FROM return_requests
		WHERE id = $1
	`, id)
	ret, err := scanReturn(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}

	items, err := s.loadReturnItems(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	ret.Items = items[id]
	return ret, nil
}

func (s *Store) ListReturnRequests(ctx context.Context, status string, limit int) ([]domain.ReturnRequest, error) {
	if limit < 1 {
		limit = 200
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, original_obligation_id, counterparty_name, amount_cents,
			reason, status, COALESCE(processed_by,''), created_at, processed_at
		FROM return_requests
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	returns := make([]domain.ReturnRequest, 0, limit)
	ids := make([]string, 0, limit)
	for rows.Next() {
		ret, err := scanReturn(rows)
		if err != nil {
			return nil, err
		}
		returns = append(returns, *ret)
		ids = append(ids, ret.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items, err := s.loadReturnItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range returns {
		returns[i].Items = items[returns[i].ID]
	}
	return returns, nil
}

func (s *Store) loadReturnItems(ctx context.Context, returnIDs []string) (map[string][]domain.LineItem, error) {
	result := make(map[string][]domain.LineItem, len(returnIDs))
	if len(returnIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT return_id, product_id, product_name, qty, unit_price_cents, total_cents
		FROM return_items
		WHERE return_id = ANY($1)
		ORDER BY id ASC
	`, returnIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var returnID string
		var item domain.LineItem
		if err := rows.Scan(&returnID, &item.ProductID, &item.ProductName, &item.Qty, &item.UnitPrice, &item.Total); err != nil {
			return nil, err
		}
		result[returnID] = append(result[returnID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) DecideReturnRequest(ctx context.Context, id string, status string, processedBy string, at time.Time, adjustments []domain.StockAdjustment) (*domain.ReturnRequest, error) {
	if status != domain.ReturnStatusApproved && status != domain.ReturnStatusRejected {
		return nil, store.ErrValidation
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	row := pgTx.QueryRowContext(ctx, `
		SELECT id, kind, original_obligation_id, counterparty_name, amount_cents,
			reason, status, COALESCE(processed_by,''), created_at, processed_at
		FROM return_requests
		WHERE id = $1
		FOR UPDATE
	`, id)
	ret, err := scanReturn(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if ret.Status != domain.ReturnStatusPending {
		return nil, store.ErrInvalidState
	}

	for _, adj := range adjustments {
		if _, _, err := applyAdjustmentTx(ctx, pgTx, adj, processedBy, at); err != nil {
			return nil, err
		}
	}

	_, err = pgTx.ExecContext(ctx, `
		UPDATE return_requests
		SET status = $2, processed_by = $3, processed_at = $4
		WHERE id = $1
	`, id, status, processedBy, at)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	ret.Status = status
	ret.ProcessedBy = processedBy
	processedAt := at
	ret.ProcessedAt = &processedAt

	items, err := s.loadReturnItems(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	ret.Items = items[id]
	return ret, nil
}

func (s *Store) CreateEmployee(ctx context.Context, employee domain.Employee) (*domain.Employee, error) {
	if employee.ID == "" || employee.Name == "" || employee.MonthlySalary.IsNegative() {
		return nil, store.ErrValidation
	}
	if employee.JoinedAt.IsZero() {
		employee.JoinedAt = time.Now().UTC()
	}
	employee.Active = true

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, position, monthly_salary_cents, active, joined_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,now())
	`, employee.ID, employee.Name, employee.Position, employee.MonthlySalary, employee.Active, employee.JoinedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		return nil, err
	}
	created := employee
	return &created, nil
}

func (s *Store) GetEmployeeByID(ctx context.Context, id string) (*domain.Employee, error) {
	var employee domain.Employee
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, position, monthly_salary_cents, active, joined_at
		FROM employees
		WHERE id = $1
	`, id).Scan(&employee.ID, &employee.Name, &employee.Position, &employee.MonthlySalary, &employee.Active, &employee.JoinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	employee.JoinedAt = employee.JoinedAt.UTC()
	return &employee, nil
}

func (s *Store) ListEmployees(ctx context.Context, activeOnly bool) ([]domain.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, position, monthly_salary_cents, active, joined_at
		FROM employees
		WHERE ($1 = false OR active = true)
		ORDER BY name ASC
	`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := make([]domain.Employee, 0, 16)
	for rows.Next() {
		var e domain.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Position, &e.MonthlySalary, &e.Active, &e.JoinedAt); err != nil {
			return nil, err
		}
		e.JoinedAt = e.JoinedAt.UTC()
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return employees, nil
}

func (s *Store) SetEmployeeActive(ctx context.Context, id string, active bool) (*domain.Employee, error) {
	var employee domain.Employee
	err := s.db.QueryRowContext(ctx, `
		UPDATE employees
		SET active = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, name, position, monthly_salary_cents, active, joined_at
	`, id, active).Scan(&employee.ID, &employee.Name, &employee.Position, &employee.MonthlySalary, &employee.Active, &employee.JoinedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	employee.JoinedAt = employee.JoinedAt.UTC()
	return &employee, nil
}

func (s *Store) CreateAdvance(ctx context.Context, advance domain.AdvancePayment) (*domain.AdvancePayment, error) {
	if advance.ID == "" || advance.EmployeeID == "" {
		return nil, store.ErrValidation
	}
	if advance.Amount.Cmp(0) <= 0 {
		return nil, store.ErrValidation
	}
	if advance.RemainingBalance.IsNegative() || advance.RemainingBalance.Cmp(advance.Amount) > 0 {
		return nil, store.ErrValidation
	}
	if advance.Date.IsZero() {
		advance.Date = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO advance_payments (id, employee_id, amount_cents, remaining_balance_cents, reason, date)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, advance.ID, advance.EmployeeID, advance.Amount, advance.RemainingBalance, advance.Reason, advance.Date)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrValidation
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	created := advance
	return &created, nil
}

func (s *Store) ListAdvancesByEmployee(ctx context.Context, employeeID string) ([]domain.AdvancePayment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, amount_cents, remaining_balance_cents, reason, date
		FROM advance_payments
		WHERE employee_id = $1
		ORDER BY date ASC, id ASC
	`, employeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	advances := make([]domain.AdvancePayment, 0, 8)
	for rows.Next() {
		var adv domain.AdvancePayment
		if err := rows.Scan(&adv.ID, &adv.EmployeeID, &adv.Amount, &adv.RemainingBalance, &adv.Reason, &adv.Date); err != nil {
			return nil, err
		}
		adv.Date = adv.Date.UTC()
		advances = append(advances, adv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return advances, nil
}

func (s *Store) UpdateAdvanceBalances(ctx context.Context, advances []domain.AdvancePayment) error {
	if len(advances) == 0 {
		return nil
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = pgTx.Rollback() }()

	for _, adv := range advances {
		if adv.RemainingBalance.IsNegative() {
			return store.ErrValidation
		}
		res, err := pgTx.ExecContext(ctx, `
			UPDATE advance_payments
			SET remaining_balance_cents = $2
			WHERE id = $1 AND amount_cents >= $2
		`, adv.ID, adv.RemainingBalance)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return store.ErrNotFound
		}
	}

	return pgTx.Commit()
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		WHERE created_at >= $1
			AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrValidation
	}
	if user.Role == "" {
		user.Role = "staff"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrValidation
		}
		return err
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrValidation
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE app_users
		SET password = $2, updated_at = now()
		WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var p domain.Product
	var lastRestocked sql.NullTime
	if err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.Category, &p.StockLevel, &p.MinStock,
		&p.PurchasePrice, &p.SalePrice, &p.Active, &lastRestocked, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	if lastRestocked.Valid {
		at := lastRestocked.Time.UTC()
		p.LastRestocked = &at
	}
	return &p, nil
}

func scanObligation(row rowScanner) (*domain.Obligation, error) {
	var o domain.Obligation
	var due sql.NullTime
	if err := row.Scan(&o.ID, &o.Kind, &o.CounterpartyName, &o.TotalAmount, &o.PaidAmount, &o.PendingAmount,
		&due, &o.EmployeeID, &o.Period, &o.RecordedBy, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.CreatedAt = o.CreatedAt.UTC()
	if due.Valid {
		at := due.Time.UTC()
		o.DueDate = &at
	}
	return &o, nil
}

func scanReturn(row rowScanner) (*domain.ReturnRequest, error) {
	var r domain.ReturnRequest
	var processedAt sql.NullTime
	if err := row.Scan(&r.ID, &r.Kind, &r.OriginalObligationID, &r.CounterpartyName, &r.Amount,
		&r.Reason, &r.Status, &r.ProcessedBy, &r.CreatedAt, &processedAt); err != nil {
		return nil, err
	}
	r.CreatedAt = r.CreatedAt.UTC()
	if processedAt.Valid {
		at := processedAt.Time.UTC()
		r.ProcessedAt = &at
	}
	return &r, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}

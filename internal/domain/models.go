package domain

import (
	"time"

	"tokoadmin/backend/internal/money"
)

type Product struct {
	ID            string      `json:"id"`
	SKU           string      `json:"sku"`
	Name          string      `json:"name"`
	Category      string      `json:"category"`
	StockLevel    int         `json:"stock_level"`
	MinStock      int         `json:"min_stock"`
	PurchasePrice money.Money `json:"purchase_price_cents"`
	SalePrice     money.Money `json:"sale_price_cents"`
	Active        bool        `json:"active"`
	LastRestocked *time.Time  `json:"last_restocked,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
}

type ProductCreateRequest struct {
	SKU           string      `json:"sku"`
	Name          string      `json:"name"`
	Category      string      `json:"category"`
	InitialStock  int         `json:"initial_stock"`
	MinStock      int         `json:"min_stock"`
	PurchasePrice money.Money `json:"purchase_price_cents"`
	SalePrice     money.Money `json:"sale_price_cents"`
}

type ProductUpdateRequest struct {
	Name          *string      `json:"name,omitempty"`
	Category      *string      `json:"category,omitempty"`
	MinStock      *int         `json:"min_stock,omitempty"`
	PurchasePrice *money.Money `json:"purchase_price_cents,omitempty"`
	SalePrice     *money.Money `json:"sale_price_cents,omitempty"`
	Active        *bool        `json:"active,omitempty"`
}

type ProductView struct {
	Product
	StockStatus string `json:"stock_status"`
}

// StockAdjustment is the unit of atomic stock change applied by the
// repository, either standalone or alongside an obligation write.
type StockAdjustment struct {
	ProductID string `json:"product_id"`
	Type      string `json:"type"`
	Qty       int    `json:"qty"`
	Reason    string `json:"reason"`
}

type StockAdjustRequest struct {
	Type   string `json:"type"`
	Qty    int    `json:"qty"`
	Reason string `json:"reason"`
}

type StockMovement struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"product_id"`
	Type           string    `json:"type"`
	Qty            int       `json:"qty"`
	ResultingLevel int       `json:"resulting_level"`
	Reason         string    `json:"reason"`
	ActorUsername  string    `json:"actor_username"`
	CreatedAt      time.Time `json:"created_at"`
}

type LineItem struct {
	ProductID   string      `json:"product_id"`
	ProductName string      `json:"product_name"`
	Qty         int         `json:"qty"`
	UnitPrice   money.Money `json:"unit_price_cents"`
	Total       money.Money `json:"total_cents"`
}

// Obligation is the generic total/paid/pending record shared by sales,
// purchases, customer/supplier debts, and payroll entries. Status is derived
// from the amounts and due date, never persisted; repositories leave it empty
// and the service fills it before responding.
type Obligation struct {
	ID               string      `json:"id"`
	Kind             string      `json:"kind"`
	CounterpartyName string      `json:"counterparty_name"`
	TotalAmount      money.Money `json:"total_cents"`
	PaidAmount       money.Money `json:"paid_cents"`
	PendingAmount    money.Money `json:"pending_cents"`
	DueDate          *time.Time  `json:"due_date,omitempty"`
	EmployeeID       string      `json:"employee_id,omitempty"`
	Period           string      `json:"period,omitempty"`
	RecordedBy       string      `json:"recorded_by,omitempty"`
	Items            []LineItem  `json:"items,omitempty"`
	Status           string      `json:"status,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

type SaleItemInput struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type SaleCreateRequest struct {
	CustomerName string          `json:"customer_name"`
	PaymentType  string          `json:"payment_type"`
	AmountPaid   money.Money     `json:"amount_paid_cents"`
	DueDate      string          `json:"due_date,omitempty"`
	Items        []SaleItemInput `json:"items"`
}

type PurchaseCreateRequest struct {
	ProductID    string      `json:"product_id"`
	Qty          int         `json:"qty"`
	SupplierName string      `json:"supplier_name"`
	AmountPaid   money.Money `json:"amount_paid_cents"`
	DueDate      string      `json:"due_date,omitempty"`
}

type DebtCreateRequest struct {
	Kind             string      `json:"kind"`
	CounterpartyName string      `json:"counterparty_name"`
	Total            money.Money `json:"total_cents"`
	AmountPaid       money.Money `json:"amount_paid_cents"`
	DueDate          string      `json:"due_date,omitempty"`
}

type PaymentRequest struct {
	Amount money.Money `json:"amount_cents"`
}

type ObligationResponse struct {
	Obligation Obligation `json:"obligation"`
}

type ObligationListResponse struct {
	Obligations []Obligation `json:"obligations"`
}

type ReturnRequest struct {
	ID                   string      `json:"id"`
	Kind                 string      `json:"kind"`
	OriginalObligationID string      `json:"original_obligation_id"`
	CounterpartyName     string      `json:"counterparty_name"`
	Amount               money.Money `json:"amount_cents"`
	Reason               string      `json:"reason"`
	Status               string      `json:"status"`
	ProcessedBy          string      `json:"processed_by,omitempty"`
	Items                []LineItem  `json:"items,omitempty"`
	CreatedAt            time.Time   `json:"created_at"`
	ProcessedAt          *time.Time  `json:"processed_at,omitempty"`
}

type ReturnCreateRequest struct {
	OriginalObligationID string `json:"original_obligation_id"`
	Reason               string `json:"reason"`
}

type ReturnDecisionRequest struct {
	ManagerPIN string `json:"manager_pin"`
}

type ReturnResponse struct {
	Return ReturnRequest `json:"return"`
}

type ReturnListResponse struct {
	Returns []ReturnRequest `json:"returns"`
}

type Employee struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Position      string      `json:"position"`
	MonthlySalary money.Money `json:"monthly_salary_cents"`
	Active        bool        `json:"active"`
	JoinedAt      time.Time   `json:"joined_at"`
}

type EmployeeCreateRequest struct {
	Name          string      `json:"name"`
	Position      string      `json:"position"`
	MonthlySalary money.Money `json:"monthly_salary_cents"`
}

type AdvancePayment struct {
	ID               string      `json:"id"`
	EmployeeID       string      `json:"employee_id"`
	Amount           money.Money `json:"amount_cents"`
	RemainingBalance money.Money `json:"remaining_balance_cents"`
	Reason           string      `json:"reason"`
	Date             time.Time   `json:"date"`
}

type AdvanceCreateRequest struct {
	EmployeeID string      `json:"employee_id"`
	Amount     money.Money `json:"amount_cents"`
	Reason     string      `json:"reason"`
}

type AdvanceDeductRequest struct {
	EmployeeID string      `json:"employee_id"`
	Amount     money.Money `json:"amount_cents"`
}

type AdvanceDeductResponse struct {
	EmployeeID     string           `json:"employee_id"`
	DeductedAmount money.Money      `json:"deducted_cents"`
	Outstanding    money.Money      `json:"outstanding_cents"`
	Advances       []AdvancePayment `json:"advances"`
}

type AdvanceListResponse struct {
	EmployeeID  string           `json:"employee_id"`
	Outstanding money.Money      `json:"outstanding_cents"`
	Advances    []AdvancePayment `json:"advances"`
}

type PayrollAdjustment struct {
	EmployeeID       string      `json:"employee_id"`
	Bonus            money.Money `json:"bonus_cents"`
	Deduction        money.Money `json:"deduction_cents"`
	AdvanceDeduction money.Money `json:"advance_deduction_cents"`
}

type PayrollRunRequest struct {
	Period      string              `json:"period"`
	Adjustments []PayrollAdjustment `json:"adjustments,omitempty"`
}

type PayrollRunResponse struct {
	Period      string       `json:"period"`
	TotalNet    money.Money  `json:"total_net_cents"`
	Obligations []Obligation `json:"obligations"`
}

type KindTotals struct {
	Count   int         `json:"count"`
	Total   money.Money `json:"total_cents"`
	Paid    money.Money `json:"paid_cents"`
	Pending money.Money `json:"pending_cents"`
}

type DashboardSummary struct {
	GeneratedAt     string      `json:"generated_at"`
	Sales           KindTotals  `json:"sales"`
	Purchases       KindTotals  `json:"purchases"`
	CustomerDebts   KindTotals  `json:"customer_debts"`
	SupplierDebts   KindTotals  `json:"supplier_debts"`
	Payroll         KindTotals  `json:"payroll"`
	OverdueCount    int         `json:"overdue_count"`
	OverdueAmount   money.Money `json:"overdue_cents"`
	DueSoonCount    int         `json:"due_soon_count"`
	LowStockCount   int         `json:"low_stock_count"`
	OutOfStockCount int         `json:"out_of_stock_count"`
	InventoryValue  money.Money `json:"inventory_value_cents"`
}

type DailySalesReport struct {
	Date         string      `json:"date"`
	Transactions int         `json:"transactions"`
	ItemsSold    int         `json:"items_sold"`
	GrossSales   money.Money `json:"gross_sales_cents"`
	Collected    money.Money `json:"collected_cents"`
	Outstanding  money.Money `json:"outstanding_cents"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type StaffCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type StaffUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	ObligationKindSale         = "sale"
	ObligationKindPurchase     = "purchase"
	ObligationKindCustomerDebt = "customer_debt"
	ObligationKindSupplierDebt = "supplier_debt"
	ObligationKindPayroll      = "payroll"
)

const (
	ObligationStatusPaid    = "paid"
	ObligationStatusUnpaid  = "unpaid"
	ObligationStatusPartial = "partial"
	ObligationStatusOverdue = "overdue"
	ObligationStatusDueSoon = "due_soon"
)

const (
	StockAdjustAdd      = "add"
	StockAdjustSubtract = "subtract"
	StockAdjustSet      = "set"
)

const (
	StockStatusOut = "out_of_stock"
	StockStatusLow = "low_stock"
	StockStatusIn  = "in_stock"
)

const (
	PaymentTypeFull        = "full"
	PaymentTypeInstallment = "installment"
)

const (
	ReturnStatusPending  = "pending"
	ReturnStatusApproved = "approved"
	ReturnStatusRejected = "rejected"
)

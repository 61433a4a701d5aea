package store

import (
	"context"
	"errors"
	"time"

	"tokoadmin/backend/internal/domain"
	"tokoadmin/backend/internal/money"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrInvalidState = errors.New("invalid state")
)

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	AdjustStock(ctx context.Context, adjustment domain.StockAdjustment, actor string) (*domain.Product, *domain.StockMovement, error)
	ListStockMovements(ctx context.Context, productID string, limit int) ([]domain.StockMovement, error)

	CreateObligation(ctx context.Context, obligation domain.Obligation, adjustments []domain.StockAdjustment, actor string) (*domain.Obligation, error)
	GetObligationByID(ctx context.Context, id string) (*domain.Obligation, error)
	ListObligations(ctx context.Context, kind string, limit int) ([]domain.Obligation, error)
	ApplyObligationPayment(ctx context.Context, id string, amount money.Money) (*domain.Obligation, error)

	CreateReturnRequest(ctx context.Context, ret domain.ReturnRequest) (*domain.ReturnRequest, error)
	GetReturnRequestByID(ctx context.Context, id string) (*domain.ReturnRequest, error)
	ListReturnRequests(ctx context.Context, status string, limit int) ([]domain.ReturnRequest, error)
	DecideReturnRequest(ctx context.Context, id string, status string, processedBy string, at time.Time, adjustments []domain.StockAdjustment) (*domain.ReturnRequest, error)

	CreateEmployee(ctx context.Context, employee domain.Employee) (*domain.Employee, error)
	GetEmployeeByID(ctx context.Context, id string) (*domain.Employee, error)
	ListEmployees(ctx context.Context, activeOnly bool) ([]domain.Employee, error)
	SetEmployeeActive(ctx context.Context, id string, active bool) (*domain.Employee, error)

	CreateAdvance(ctx context.Context, advance domain.AdvancePayment) (*domain.AdvancePayment, error)
	ListAdvancesByEmployee(ctx context.Context, employeeID string) ([]domain.AdvancePayment, error)
	UpdateAdvanceBalances(ctx context.Context, advances []domain.AdvancePayment) error

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}

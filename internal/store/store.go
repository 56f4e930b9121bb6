package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cafepos/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidOrder      = errors.New("invalid order")
	ErrInvalidInput      = errors.New("invalid input")
)

// InsufficientStockError carries enough detail for the API to tell the
// cashier which product ran out and how much is left. errors.Is matches it
// against ErrInsufficientStock.
type InsufficientStockError struct {
	ProductName string
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: %d available", e.ProductName, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	ListIngredients(ctx context.Context) ([]domain.Ingredient, error)
	GetIngredientByID(ctx context.Context, id string) (*domain.Ingredient, error)
	CreateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error)
	UpdateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error)
	DeleteIngredient(ctx context.Context, id string) error

	CreateUser(ctx context.Context, user domain.UserAccount) error
	GetUserByID(ctx context.Context, id string) (*domain.UserAccount, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error)
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)

	// PlaceOrder reconciles stock and records the order atomically: every
	// line is validated against current stock before any decrement happens,
	// so a failing line leaves all stock untouched.
	PlaceOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
	UpdateOrder(ctx context.Context, order domain.Order) (*domain.Order, error)
	DeleteOrder(ctx context.Context, id string) error

	DailySales(ctx context.Context, from time.Time, to time.Time) (float64, int, []domain.ProductSold, error)
	ProductSales(ctx context.Context) ([]domain.ProductSalesEntry, error)
	EmployeeSales(ctx context.Context) ([]domain.EmployeeSalesEntry, error)
}

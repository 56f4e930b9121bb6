package domain

import "time"

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleCashier = "cashier"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// UnknownProductID labels order lines whose product reference was lost,
// so report rows never silently merge with real products.
const UnknownProductID = "unknown"

type Ingredient struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Stock     float64   `json:"stock"`
	Unit      string    `json:"unit"`
	CreatedAt time.Time `json:"createdAt"`
}

type IngredientRequest struct {
	Name  string  `json:"name"`
	Stock float64 `json:"stock"`
	Unit  string  `json:"unit"`
}

// ProductIngredient links a product to an ingredient it consumes per unit sold.
type ProductIngredient struct {
	IngredientID string  `json:"ingredientId"`
	QuantityUsed float64 `json:"quantityUsed"`
	Unit         string  `json:"unit"`
}

type Product struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Price       float64             `json:"price"`
	Category    string              `json:"category"`
	Description string              `json:"description,omitempty"`
	Image       string              `json:"image,omitempty"`
	Stock       int                 `json:"stock"`
	Ingredients []ProductIngredient `json:"ingredients,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
}

type ProductRequest struct {
	Name        string              `json:"name"`
	Price       float64             `json:"price"`
	Category    string              `json:"category"`
	Description string              `json:"description"`
	Image       string              `json:"image"`
	Stock       int                 `json:"stock"`
	Ingredients []ProductIngredient `json:"ingredients"`
}

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	ID        string
	Username  string
	Password  string
	Role      string
	CreatedAt time.Time
}

type Actor struct {
	ID       string
	Username string
	Role     string
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type AuthResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   string `json:"expires_at"`
	User        User   `json:"user"`
}

// OrderItem is a denormalized order line. Name and Price are snapshots taken
// at placement time so later product edits never rewrite history.
type OrderItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

type OrderUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type Order struct {
	ID          string      `json:"id"`
	Items       []OrderItem `json:"items"`
	TotalAmount float64     `json:"totalAmount"`
	Status      string      `json:"status"`
	OrderDate   time.Time   `json:"orderDate"`
	OrderedByID string      `json:"-"`
	OrderedBy   *OrderUser  `json:"orderedBy,omitempty"`
}

type OrderItemRequest struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

type OrderCreateRequest struct {
	Items       []OrderItemRequest `json:"items"`
	TotalAmount float64            `json:"totalAmount"`
}

type OrderUpdateRequest struct {
	Status *string  `json:"status,omitempty"`
	Total  *float64 `json:"totalAmount,omitempty"`
}

// OrderFilter narrows ledger queries. Zero values mean "no constraint".
type OrderFilter struct {
	Date        string
	Month       string
	Status      string
	OrderedByID string
	Search      string
}

type ProductSold struct {
	ProductID  string  `json:"productId"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	TotalPrice float64 `json:"totalPrice"`
}

type DailySalesReport struct {
	Date         string        `json:"date"`
	TotalSales   float64       `json:"totalSales"`
	TotalOrders  int           `json:"totalOrders"`
	ProductsSold []ProductSold `json:"productsSold"`
}

type ProductSalesEntry struct {
	ProductID         string  `json:"productId"`
	ProductName       string  `json:"productName"`
	TotalSales        float64 `json:"totalSales"`
	TotalQuantitySold int     `json:"totalQuantitySold"`
}

type EmployeeSalesEntry struct {
	EmployeeID     string  `json:"employeeId"`
	EmployeeName   string  `json:"employeeName"`
	EmployeeRole   string  `json:"employeeRole"`
	TotalSales     float64 `json:"totalSales"`
	NumberOfOrders int     `json:"numberOfOrders"`
}

// ValidRole reports whether role is one of the three recognized staff roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleCashier:
		return true
	}
	return false
}

// ValidOrderStatus reports whether status belongs to the closed status set.
func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

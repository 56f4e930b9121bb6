package memory

import (
	"context"
	"log"
	"math"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"cafepos/backend/internal/domain"
	"cafepos/backend/internal/store"
	"cafepos/backend/internal/xid"
)

type Store struct {
	mu           sync.RWMutex
	productsByID map[string]domain.Product
	ingredients  map[string]domain.Ingredient
	ordersByID   map[string]domain.Order
	usersByID    map[string]domain.UserAccount
	idByUsername map[string]string
}

// seedUsers builds the initial in-memory accounts for dev/demo mode.
// Credentials come from SEED_ADMIN_PASSWORD, SEED_MANAGER_PASSWORD and
// SEED_CASHIER_PASSWORD. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() (map[string]domain.UserAccount, map[string]string) {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	managerPwd := envOr("SEED_MANAGER_PASSWORD", "manager123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD, SEED_MANAGER_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	byID := map[string]domain.UserAccount{}
	byUsername := map[string]string{}
	for _, u := range []struct {
		id       string
		username string
		password string
		role     string
	}{
		{"usr-seed-admin", "admin", adminPwd, domain.RoleAdmin},
		{"usr-seed-manager", "manager", managerPwd, domain.RoleManager},
		{"usr-seed-cashier", "cashier", cashierPwd, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		byID[u.id] = domain.UserAccount{
			ID:        u.id,
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			CreatedAt: now,
		}
		byUsername[u.username] = u.id
	}
	return byID, byUsername
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	now := time.Now().UTC()

	ingredients := []domain.Ingredient{
		{ID: "ing-coffee-beans", Name: "Coffee Beans", Stock: 5000, Unit: "g", CreatedAt: now},
		{ID: "ing-milk", Name: "Fresh Milk", Stock: 20000, Unit: "ml", CreatedAt: now},
		{ID: "ing-sugar", Name: "Sugar", Stock: 8000, Unit: "g", CreatedAt: now},
		{ID: "ing-flour", Name: "Flour", Stock: 10000, Unit: "g", CreatedAt: now},
		{ID: "ing-butter", Name: "Butter", Stock: 3000, Unit: "g", CreatedAt: now},
		{ID: "ing-tea-leaves", Name: "Tea Leaves", Stock: 1500, Unit: "g", CreatedAt: now},
	}

	products := []domain.Product{
		{ID: "prod-espresso", Name: "Espresso", Price: 2.50, Category: "coffee", Stock: 100, CreatedAt: now,
			Ingredients: []domain.ProductIngredient{{IngredientID: "ing-coffee-beans", QuantityUsed: 18, Unit: "g"}}},
		{ID: "prod-cappuccino", Name: "Cappuccino", Price: 3.50, Category: "coffee", Stock: 100, CreatedAt: now,
			Ingredients: []domain.ProductIngredient{
				{IngredientID: "ing-coffee-beans", QuantityUsed: 18, Unit: "g"},
				{IngredientID: "ing-milk", QuantityUsed: 120, Unit: "ml"},
			}},
		{ID: "prod-latte", Name: "Caffe Latte", Price: 3.80, Category: "coffee", Stock: 100, CreatedAt: now,
			Ingredients: []domain.ProductIngredient{
				{IngredientID: "ing-coffee-beans", QuantityUsed: 18, Unit: "g"},
				{IngredientID: "ing-milk", QuantityUsed: 180, Unit: "ml"},
			}},
		{ID: "prod-iced-tea", Name: "Iced Tea", Price: 2.80, Category: "beverage", Stock: 80, CreatedAt: now,
			Ingredients: []domain.ProductIngredient{{IngredientID: "ing-tea-leaves", QuantityUsed: 5, Unit: "g"}}},
		{ID: "prod-croissant", Name: "Butter Croissant", Price: 3.20, Category: "pastry", Stock: 40, CreatedAt: now,
			Ingredients: []domain.ProductIngredient{
				{IngredientID: "ing-flour", QuantityUsed: 60, Unit: "g"},
				{IngredientID: "ing-butter", QuantityUsed: 25, Unit: "g"},
			}},
		{ID: "prod-cheesecake", Name: "Cheesecake Slice", Price: 4.50, Category: "pastry", Stock: 24, CreatedAt: now},
	}

	productMap := make(map[string]domain.Product, len(products))
	for _, p := range products {
		productMap[p.ID] = p
	}
	ingredientMap := make(map[string]domain.Ingredient, len(ingredients))
	for _, ing := range ingredients {
		ingredientMap[ing.ID] = ing
	}

	usersByID, idByUsername := seedUsers()

	return &Store{
		productsByID: productMap,
		ingredients:  ingredientMap,
		ordersByID:   make(map[string]domain.Order),
		usersByID:    usersByID,
		idByUsername: idByUsername,
	}
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.productsByID))
	for _, p := range s.productsByID {
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

	product, exists := s.productsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := cloneProduct(product)
	return &copyProduct, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Name == "" || product.Price <= 0 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}
	for _, existing := range s.productsByID {
		if strings.EqualFold(existing.Name, product.Name) {
			return nil, store.ErrAlreadyExists
		}
	}
	for _, ref := range product.Ingredients {
		if _, ok := s.ingredients[ref.IngredientID]; !ok {
			return nil, store.ErrNotFound
		}
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	s.productsByID[product.ID] = cloneProduct(product)
	created := cloneProduct(product)
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Name == "" || product.Price <= 0 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}
	existing, exists := s.productsByID[product.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	for _, ref := range product.Ingredients {
		if _, ok := s.ingredients[ref.IngredientID]; !ok {
			return nil, store.ErrNotFound
		}
	}
	product.CreatedAt = existing.CreatedAt
	s.productsByID[product.ID] = cloneProduct(product)
	updated := cloneProduct(product)
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.productsByID[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.productsByID, id)
	return nil
}

func (s *Store) ListIngredients(_ context.Context) ([]domain.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ingredients := make([]domain.Ingredient, 0, len(s.ingredients))
	for _, ing := range s.ingredients {
		ingredients = append(ingredients, ing)
	}
	slices.SortFunc(ingredients, func(a, b domain.Ingredient) int {
		return cmpString(a.Name, b.Name)
	})
	return ingredients, nil
}

func (s *Store) GetIngredientByID(_ context.Context, id string) (*domain.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ingredient, exists := s.ingredients[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyIngredient := ingredient
	return &copyIngredient, nil
}

func (s *Store) CreateIngredient(_ context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ingredient.Name == "" || ingredient.Stock < 0 {
		return nil, store.ErrInvalidInput
	}
	for _, existing := range s.ingredients {
		if strings.EqualFold(existing.Name, ingredient.Name) {
			return nil, store.ErrAlreadyExists
		}
	}
	if ingredient.ID == "" {
		ingredient.ID = xid.New("ing")
	}
	if ingredient.CreatedAt.IsZero() {
		ingredient.CreatedAt = time.Now().UTC()
	}
	s.ingredients[ingredient.ID] = ingredient
	created := ingredient
	return &created, nil
}

func (s *Store) UpdateIngredient(_ context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ingredient.Name == "" || ingredient.Stock < 0 {
		return nil, store.ErrInvalidInput
	}
	existing, exists := s.ingredients[ingredient.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	ingredient.CreatedAt = existing.CreatedAt
	s.ingredients[ingredient.ID] = ingredient
	updated := ingredient
	return &updated, nil
}

func (s *Store) DeleteIngredient(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ingredients[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.ingredients, id)
	return nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.idByUsername[username]; exists {
		return store.ErrAlreadyExists
	}
	user.Username = username
	if user.ID == "" {
		user.ID = xid.New("usr")
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByID[user.ID] = user
	s.idByUsername[user.Username] = user.ID
	return nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyUser := user
	return &copyUser, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.idByUsername[strings.ToLower(strings.TrimSpace(username))]
	if !exists {
		return nil, store.ErrNotFound
	}
	user := s.usersByID[id]
	copyUser := user
	return &copyUser, nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByID))
	for _, user := range s.usersByID {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

// PlaceOrder validates every line against current stock before touching any
// of it. The single write lock makes the validate-then-decrement sequence
// atomic, so concurrent orders can never drive stock below zero.
func (s *Store) PlaceOrder(_ context.Context, order domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(order.Items) == 0 {
		return nil, store.ErrInvalidOrder
	}

	computed := 0.0
	requested := make(map[string]int, len(order.Items))
	lines := make([]domain.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		if item.Quantity < 1 {
			return nil, store.ErrInvalidOrder
		}
		product, exists := s.productsByID[item.ProductID]
		if !exists {
			return nil, store.ErrNotFound
		}
		// Duplicate lines for one product draw from the same stock, so the
		// check runs against the running total, not the single line.
		requested[item.ProductID] += item.Quantity
		if product.Stock < requested[item.ProductID] {
			return nil, &store.InsufficientStockError{ProductName: product.Name, Available: product.Stock}
		}
		lines = append(lines, domain.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  item.Quantity,
		})
		computed += product.Price * float64(item.Quantity)
	}

	if order.TotalAmount > 0 && math.Abs(order.TotalAmount-computed) > 0.01 {
		return nil, store.ErrInvalidOrder
	}

	for _, line := range lines {
		product := s.productsByID[line.ProductID]
		product.Stock -= line.Quantity
		s.productsByID[line.ProductID] = product
	}

	if order.ID == "" {
		order.ID = xid.New("ord")
	}
	if order.OrderDate.IsZero() {
		order.OrderDate = time.Now().UTC()
	}
	if order.Status == "" {
		order.Status = domain.OrderStatusCompleted
	}
	order.Items = lines
	order.TotalAmount = computed

	s.ordersByID[order.ID] = cloneOrder(order)
	placed := s.resolveOrderedBy(cloneOrder(order))
	return &placed, nil
}

func (s *Store) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, exists := s.ordersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	resolved := s.resolveOrderedBy(cloneOrder(order))
	return &resolved, nil
}

func (s *Store) ListOrders(_ context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Order, 0, len(s.ordersByID))
	for _, order := range s.ordersByID {
		if !matchesFilter(order, filter) {
			continue
		}
		resolved := s.resolveOrderedBy(cloneOrder(order))
		if !matchesSearch(resolved, filter.Search) {
			continue
		}
		result = append(result, resolved)
	}
	slices.SortFunc(result, func(a, b domain.Order) int {
		if a.OrderDate.Equal(b.OrderDate) {
			return cmpString(b.ID, a.ID)
		}
		if a.OrderDate.After(b.OrderDate) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) UpdateOrder(_ context.Context, order domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ordersByID[order.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.ordersByID[order.ID] = cloneOrder(order)
	updated := s.resolveOrderedBy(cloneOrder(order))
	return &updated, nil
}

// DeleteOrder removes the ledger entry. Stock consumed by the order is not
// restored; corrections go through inventory adjustments.
func (s *Store) DeleteOrder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ordersByID[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.ordersByID, id)
	return nil
}

func (s *Store) DailySales(_ context.Context, from time.Time, to time.Time) (float64, int, []domain.ProductSold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totalSales := 0.0
	totalOrders := 0
	byProduct := map[string]*domain.ProductSold{}

	for _, order := range s.ordersByID {
		if order.OrderDate.Before(from) || !order.OrderDate.Before(to) {
			continue
		}
		totalOrders++
		totalSales += order.TotalAmount
		for _, item := range order.Items {
			key := item.ProductID
			if key == "" {
				key = domain.UnknownProductID
			}
			entry := byProduct[key]
			if entry == nil {
				entry = &domain.ProductSold{ProductID: key, Name: item.Name}
				byProduct[key] = entry
			}
			entry.Quantity += item.Quantity
			entry.TotalPrice += item.Price * float64(item.Quantity)
		}
	}

	sold := make([]domain.ProductSold, 0, len(byProduct))
	for _, entry := range byProduct {
		sold = append(sold, *entry)
	}
	slices.SortFunc(sold, func(a, b domain.ProductSold) int {
		if a.TotalPrice == b.TotalPrice {
			return cmpString(a.ProductID, b.ProductID)
		}
		if a.TotalPrice > b.TotalPrice {
			return -1
		}
		return 1
	})
	return totalSales, totalOrders, sold, nil
}

func (s *Store) ProductSales(_ context.Context) ([]domain.ProductSalesEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byProduct := map[string]*domain.ProductSalesEntry{}
	for _, order := range s.ordersByID {
		for _, item := range order.Items {
			key := item.ProductID
			if key == "" {
				key = domain.UnknownProductID
			}
			entry := byProduct[key]
			if entry == nil {
				entry = &domain.ProductSalesEntry{ProductID: key, ProductName: item.Name}
				byProduct[key] = entry
			}
			entry.TotalSales += item.Price * float64(item.Quantity)
			entry.TotalQuantitySold += item.Quantity
		}
	}

	result := make([]domain.ProductSalesEntry, 0, len(byProduct))
	for _, entry := range byProduct {
		result = append(result, *entry)
	}
	slices.SortFunc(result, func(a, b domain.ProductSalesEntry) int {
		if a.TotalSales == b.TotalSales {
			return cmpString(a.ProductID, b.ProductID)
		}
		if a.TotalSales > b.TotalSales {
			return -1
		}
		return 1
	})
	return result, nil
}

// EmployeeSales groups by the ordering user. Orders whose user account no
// longer exists are skipped rather than reported under a placeholder.
func (s *Store) EmployeeSales(_ context.Context) ([]domain.EmployeeSalesEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byUser := map[string]*domain.EmployeeSalesEntry{}
	for _, order := range s.ordersByID {
		user, exists := s.usersByID[order.OrderedByID]
		if !exists {
			continue
		}
		entry := byUser[user.ID]
		if entry == nil {
			entry = &domain.EmployeeSalesEntry{
				EmployeeID:   user.ID,
				EmployeeName: user.Username,
				EmployeeRole: user.Role,
			}
			byUser[user.ID] = entry
		}
		entry.TotalSales += order.TotalAmount
		entry.NumberOfOrders++
	}

	result := make([]domain.EmployeeSalesEntry, 0, len(byUser))
	for _, entry := range byUser {
		result = append(result, *entry)
	}
	slices.SortFunc(result, func(a, b domain.EmployeeSalesEntry) int {
		if a.TotalSales == b.TotalSales {
			return cmpString(a.EmployeeID, b.EmployeeID)
		}
		if a.TotalSales > b.TotalSales {
			return -1
		}
		return 1
	})
	return result, nil
}

// resolveOrderedBy attaches the ordering user when the account still exists.
// Callers must hold at least a read lock.
func (s *Store) resolveOrderedBy(order domain.Order) domain.Order {
	if user, exists := s.usersByID[order.OrderedByID]; exists {
		order.OrderedBy = &domain.OrderUser{ID: user.ID, Username: user.Username, Role: user.Role}
	}
	return order
}

func matchesFilter(order domain.Order, filter domain.OrderFilter) bool {
	if filter.Status != "" && order.Status != filter.Status {
		return false
	}
	if filter.OrderedByID != "" && order.OrderedByID != filter.OrderedByID {
		return false
	}
	if filter.Date != "" {
		day, err := time.ParseInLocation("2006-01-02", filter.Date, time.UTC)
		if err != nil {
			return false
		}
		if order.OrderDate.Before(day) || !order.OrderDate.Before(day.AddDate(0, 0, 1)) {
			return false
		}
	}
	if filter.Month != "" {
		month, err := time.ParseInLocation("2006-01", filter.Month, time.UTC)
		if err != nil {
			return false
		}
		if order.OrderDate.Before(month) || !order.OrderDate.Before(month.AddDate(0, 1, 0)) {
			return false
		}
	}
	return true
}

// matchesSearch matches either the exact order id or a case-insensitive
// fragment of the cashier username on the resolved order.
func matchesSearch(order domain.Order, search string) bool {
	if search == "" {
		return true
	}
	if order.ID == search {
		return true
	}
	if order.OrderedBy == nil {
		return false
	}
	return strings.Contains(strings.ToLower(order.OrderedBy.Username), strings.ToLower(search))
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneProduct(src domain.Product) domain.Product {
	dup := src
	refs := make([]domain.ProductIngredient, len(src.Ingredients))
	copy(refs, src.Ingredients)
	dup.Ingredients = refs
	return dup
}

func cloneOrder(src domain.Order) domain.Order {
	dup := src
	items := make([]domain.OrderItem, len(src.Items))
	copy(items, src.Items)
	dup.Items = items
	dup.OrderedBy = nil
	return dup
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"cafepos/backend/internal/domain"
	"cafepos/backend/internal/store"
	"cafepos/backend/internal/xid"
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
		SELECT id, name, price, category, description, image, stock, ingredients, created_at
		FROM products
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
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
		SELECT id, name, price, category, description, image, stock, ingredients, created_at
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
	if product.Name == "" || product.Price <= 0 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = xid.New("prod")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	ingredients, err := json.Marshal(product.Ingredients)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO products (id, name, price, category, description, image, stock, ingredients, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now())
	`, product.ID, product.Name, product.Price, product.Category, nullIfEmpty(product.Description),
		nullIfEmpty(product.Image), product.Stock, ingredients, product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrAlreadyExists
		}
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Name == "" || product.Price <= 0 || product.Stock < 0 {
		return nil, store.ErrInvalidInput
	}
	ingredients, err := json.Marshal(product.Ingredients)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, price = $3, category = $4, description = $5, image = $6, stock = $7, ingredients = $8, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.Price, product.Category, nullIfEmpty(product.Description),
		nullIfEmpty(product.Image), product.Stock, ingredients)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	return s.GetProductByID(ctx, product.ID)
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

func (s *Store) ListIngredients(ctx context.Context) ([]domain.Ingredient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, stock, unit, created_at
		FROM ingredients
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ingredients := make([]domain.Ingredient, 0, 32)
	for rows.Next() {
		var ing domain.Ingredient
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.Stock, &ing.Unit, &ing.CreatedAt); err != nil {
			return nil, err
		}
		ing.CreatedAt = ing.CreatedAt.UTC()
		ingredients = append(ingredients, ing)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ingredients, nil
}

func (s *Store) GetIngredientByID(ctx context.Context, id string) (*domain.Ingredient, error) {
	var ing domain.Ingredient
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, stock, unit, created_at
		FROM ingredients
		WHERE id = $1
	`, id).Scan(&ing.ID, &ing.Name, &ing.Stock, &ing.Unit, &ing.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	ing.CreatedAt = ing.CreatedAt.UTC()
	return &ing, nil
}

func (s *Store) CreateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	if ingredient.Name == "" || ingredient.Stock < 0 {
		return nil, store.ErrInvalidInput
	}
	if ingredient.ID == "" {
		ingredient.ID = xid.New("ing")
	}
	if ingredient.CreatedAt.IsZero() {
		ingredient.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingredients (id, name, stock, unit, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, ingredient.ID, ingredient.Name, ingredient.Stock, ingredient.Unit, ingredient.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrAlreadyExists
		}
		return nil, err
	}

	created := ingredient
	return &created, nil
}

func (s *Store) UpdateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	if ingredient.Name == "" || ingredient.Stock < 0 {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE ingredients
		SET name = $2, stock = $3, unit = $4, updated_at = now()
		WHERE id = $1
	`, ingredient.ID, ingredient.Name, ingredient.Stock, ingredient.Unit)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	return s.GetIngredientByID(ctx, ingredient.ID)
}

func (s *Store) DeleteIngredient(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ingredients WHERE id = $1`, id)
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

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if user.ID == "" {
		user.ID = xid.New("usr")
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password, role, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.ID, username, user.Password, user.Role, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password, role, created_at
		FROM users
		WHERE id = $1
	`, id).Scan(&user.ID, &user.Username, &user.Password, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.UserAccount, error) {
	var user domain.UserAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password, role, created_at
		FROM users
		WHERE username = $1
	`, strings.ToLower(strings.TrimSpace(username))).Scan(&user.ID, &user.Username, &user.Password, &user.Role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password, role, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.ID, &user.Username, &user.Password, &user.Role, &user.CreatedAt); err != nil {
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

// PlaceOrder runs the whole stock reconciliation in one serializable
// transaction. Product rows are locked up front, every line is validated
// before any decrement, and the insert only happens once all lines pass.
// A failing line rolls back with stock untouched.
func (s *Store) PlaceOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	if len(order.Items) == 0 {
		return nil, store.ErrInvalidOrder
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	ids := uniqueProductIDs(order.Items)
	productRows, err := pgTx.QueryContext(ctx, `
		SELECT id, name, price, stock
		FROM products
		WHERE id = ANY($1)
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, err
	}
	type productState struct {
		name  string
		price float64
		stock int
	}
	productMap := make(map[string]productState, len(ids))
	for productRows.Next() {
		var id string
		var state productState
		if err := productRows.Scan(&id, &state.name, &state.price, &state.stock); err != nil {
			_ = productRows.Close()
			return nil, err
		}
		productMap[id] = state
	}
	if err := productRows.Err(); err != nil {
		_ = productRows.Close()
		return nil, err
	}
	_ = productRows.Close()

	computed := 0.0
	requested := make(map[string]int, len(ids))
	lines := make([]domain.OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		if item.Quantity < 1 {
			return nil, store.ErrInvalidOrder
		}
		product, exists := productMap[item.ProductID]
		if !exists {
			return nil, store.ErrNotFound
		}
		requested[item.ProductID] += item.Quantity
		if requested[item.ProductID] > product.stock {
			return nil, &store.InsufficientStockError{ProductName: product.name, Available: product.stock}
		}
		lines = append(lines, domain.OrderItem{
			ProductID: item.ProductID,
			Name:      product.name,
			Price:     product.price,
			Quantity:  item.Quantity,
		})
		computed += product.price * float64(item.Quantity)
	}

	if order.TotalAmount > 0 && math.Abs(order.TotalAmount-computed) > 0.01 {
		return nil, store.ErrInvalidOrder
	}

	for id, qty := range requested {
		_, err = pgTx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $1, updated_at = now()
			WHERE id = $2
		`, qty, id)
		if err != nil {
			return nil, err
		}
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

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO orders (id, total_amount, status, order_date, ordered_by)
		VALUES ($1,$2,$3,$4,$5)
	`, order.ID, order.TotalAmount, order.Status, order.OrderDate, order.OrderedByID)
	if err != nil {
		return nil, err
	}

	for _, line := range lines {
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, name, price, quantity)
			VALUES ($1,$2,$3,$4,$5)
		`, order.ID, line.ProductID, line.Name, line.Price, line.Quantity)
		if err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	return s.GetOrderByID(ctx, order.ID)
}

func (s *Store) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	var userID, username, role sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT o.id, o.total_amount, o.status, o.order_date, o.ordered_by,
			u.id, u.username, u.role
		FROM orders o
		LEFT JOIN users u ON u.id = o.ordered_by
		WHERE o.id = $1
	`, id).Scan(&order.ID, &order.TotalAmount, &order.Status, &order.OrderDate, &order.OrderedByID,
		&userID, &username, &role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	order.OrderDate = order.OrderDate.UTC()
	if userID.Valid {
		order.OrderedBy = &domain.OrderUser{ID: userID.String, Username: username.String, Role: role.String}
	}

	items, err := s.loadOrderItems(ctx, []string{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = items[order.ID]
	if order.Items == nil {
		order.Items = []domain.OrderItem{}
	}
	return &order, nil
}

func (s *Store) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	where := make([]string, 0, 4)
	args := make([]any, 0, 6)

	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, "o.status = $"+strconv.Itoa(len(args)))
	}
	if filter.OrderedByID != "" {
		args = append(args, filter.OrderedByID)
		where = append(where, "o.ordered_by = $"+strconv.Itoa(len(args)))
	}
	if filter.Date != "" {
		day, err := time.ParseInLocation("2006-01-02", filter.Date, time.UTC)
		if err != nil {
			return nil, store.ErrInvalidInput
		}
		args = append(args, day)
		where = append(where, "o.order_date >= $"+strconv.Itoa(len(args)))
		args = append(args, day.AddDate(0, 0, 1))
		where = append(where, "o.order_date < $"+strconv.Itoa(len(args)))
	}
	if filter.Month != "" {
		month, err := time.ParseInLocation("2006-01", filter.Month, time.UTC)
		if err != nil {
			return nil, store.ErrInvalidInput
		}
		args = append(args, month)
		where = append(where, "o.order_date >= $"+strconv.Itoa(len(args)))
		args = append(args, month.AddDate(0, 1, 0))
		where = append(where, "o.order_date < $"+strconv.Itoa(len(args)))
	}
	if filter.Search != "" {
		args = append(args, filter.Search)
		exact := strconv.Itoa(len(args))
		args = append(args, "%"+filter.Search+"%")
		where = append(where, "(o.id = $"+exact+" OR u.username ILIKE $"+strconv.Itoa(len(args))+")")
	}

	query := `
		SELECT o.id, o.total_amount, o.status, o.order_date, o.ordered_by,
			u.id, u.username, u.role
		FROM orders o
		LEFT JOIN users u ON u.id = o.ordered_by
	`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY o.order_date DESC, o.id DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, 64)
	orderIDs := make([]string, 0, 64)
	for rows.Next() {
		var order domain.Order
		var userID, username, role sql.NullString
		if err := rows.Scan(&order.ID, &order.TotalAmount, &order.Status, &order.OrderDate, &order.OrderedByID,
			&userID, &username, &role); err != nil {
			return nil, err
		}
		order.OrderDate = order.OrderDate.UTC()
		if userID.Valid {
			order.OrderedBy = &domain.OrderUser{ID: userID.String, Username: username.String, Role: role.String}
		}
		orders = append(orders, order)
		orderIDs = append(orderIDs, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	itemsByOrder, err := s.loadOrderItems(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = itemsByOrder[orders[i].ID]
		if orders[i].Items == nil {
			orders[i].Items = []domain.OrderItem{}
		}
	}
	return orders, nil
}

func (s *Store) UpdateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET total_amount = $2, status = $3
		WHERE id = $1
	`, order.ID, order.TotalAmount, order.Status)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetOrderByID(ctx, order.ID)
}

// DeleteOrder removes the ledger entry and its lines. Stock consumed by the
// order is not restored; corrections go through inventory adjustments.
func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	pgTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = pgTx.Rollback() }()

	if _, err := pgTx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		return err
	}
	res, err := pgTx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
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
	return pgTx.Commit()
}

func (s *Store) DailySales(ctx context.Context, from time.Time, to time.Time) (float64, int, []domain.ProductSold, error) {
	var totalSales float64
	var totalOrders int
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_amount),0), COUNT(*)::int
		FROM orders
		WHERE order_date >= $1 AND order_date < $2
	`, from, to).Scan(&totalSales, &totalOrders)
	if err != nil {
		return 0, 0, nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(NULLIF(oi.product_id, ''), 'unknown'),
			MIN(oi.name),
			COALESCE(SUM(oi.quantity),0)::int,
			COALESCE(SUM(oi.price * oi.quantity),0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.order_date >= $1 AND o.order_date < $2
		GROUP BY COALESCE(NULLIF(oi.product_id, ''), 'unknown')
		ORDER BY 4 DESC, 1
	`, from, to)
	if err != nil {
		return 0, 0, nil, err
	}
	defer rows.Close()

	sold := make([]domain.ProductSold, 0, 32)
	for rows.Next() {
		var entry domain.ProductSold
		if err := rows.Scan(&entry.ProductID, &entry.Name, &entry.Quantity, &entry.TotalPrice); err != nil {
			return 0, 0, nil, err
		}
		sold = append(sold, entry)
	}
	if err := rows.Err(); err != nil {
		return 0, 0, nil, err
	}
	return totalSales, totalOrders, sold, nil
}

func (s *Store) ProductSales(ctx context.Context) ([]domain.ProductSalesEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(NULLIF(product_id, ''), 'unknown'),
			MIN(name),
			COALESCE(SUM(price * quantity),0),
			COALESCE(SUM(quantity),0)::int
		FROM order_items
		GROUP BY COALESCE(NULLIF(product_id, ''), 'unknown')
		ORDER BY 3 DESC, 1
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.ProductSalesEntry, 0, 32)
	for rows.Next() {
		var entry domain.ProductSalesEntry
		if err := rows.Scan(&entry.ProductID, &entry.ProductName, &entry.TotalSales, &entry.TotalQuantitySold); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// EmployeeSales inner-joins on users, so orders whose account was removed
// drop out of the report instead of showing under a placeholder.
func (s *Store) EmployeeSales(ctx context.Context) ([]domain.EmployeeSalesEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.role,
			COALESCE(SUM(o.total_amount),0),
			COUNT(*)::int
		FROM orders o
		JOIN users u ON u.id = o.ordered_by
		GROUP BY u.id, u.username, u.role
		ORDER BY 4 DESC, 1
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.EmployeeSalesEntry, 0, 16)
	for rows.Next() {
		var entry domain.EmployeeSalesEntry
		if err := rows.Scan(&entry.EmployeeID, &entry.EmployeeName, &entry.EmployeeRole, &entry.TotalSales, &entry.NumberOfOrders); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) loadOrderItems(ctx context.Context, orderIDs []string) (map[string][]domain.OrderItem, error) {
	result := make(map[string][]domain.OrderItem, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, product_id, name, price, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, product_id
	`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.Name, &item.Price, &item.Quantity); err != nil {
			return nil, err
		}
		result[orderID] = append(result[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var product domain.Product
	var description, image sql.NullString
	var ingredients []byte
	if err := row.Scan(&product.ID, &product.Name, &product.Price, &product.Category,
		&description, &image, &product.Stock, &ingredients, &product.CreatedAt); err != nil {
		return nil, err
	}
	product.Description = description.String
	product.Image = image.String
	product.CreatedAt = product.CreatedAt.UTC()
	if len(ingredients) > 0 {
		if err := json.Unmarshal(ingredients, &product.Ingredients); err != nil {
			return nil, err
		}
	}
	return &product, nil
}

func uniqueProductIDs(items []domain.OrderItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
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

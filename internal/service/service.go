package service

import (
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"time"

	"cafepos/backend/internal/cache"
	"cafepos/backend/internal/domain"
	"cafepos/backend/internal/events"
	"cafepos/backend/internal/store"
)

// ErrForbidden marks operations the authenticated actor is not allowed to
// perform on a particular resource.
var ErrForbidden = errors.New("forbidden")

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo        store.Repository
	reportCache cache.ReportCache
	publisher   events.Publisher
	reportTTL   time.Duration
}

func New(repo store.Repository, reportCache cache.ReportCache, publisher events.Publisher, reportTTL time.Duration) *Service {
	if reportCache == nil {
		reportCache = cache.NoopReportCache{}
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if reportTTL <= 0 {
		reportTTL = 60 * time.Second
	}

	return &Service{
		repo:        repo,
		reportCache: reportCache,
		publisher:   publisher,
		reportTTL:   reportTTL,
	}
}

// PlaceOrder validates the request shape, then delegates the stock
// reconciliation to the repository so validation and decrement happen under
// one lock. The claimed total is checked against the recomputed one inside
// that same critical section.
func (s *Service) PlaceOrder(ctx context.Context, req domain.OrderCreateRequest) (domain.Order, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Order{}, ErrForbidden
	}
	if len(req.Items) == 0 {
		return domain.Order{}, store.ErrInvalidOrder
	}
	if req.TotalAmount < 0 {
		return domain.Order{}, store.ErrInvalidOrder
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		if strings.TrimSpace(item.ProductID) == "" || item.Quantity < 1 {
			return domain.Order{}, store.ErrInvalidOrder
		}
		items = append(items, domain.OrderItem{
			ProductID: strings.TrimSpace(item.ProductID),
			Quantity:  item.Quantity,
		})
	}

	order := domain.Order{
		Items:       items,
		TotalAmount: req.TotalAmount,
		Status:      domain.OrderStatusCompleted,
		OrderDate:   time.Now().UTC(),
		OrderedByID: actor.ID,
	}

	placed, err := s.repo.PlaceOrder(ctx, order)
	if err != nil {
		return domain.Order{}, err
	}
	placed.TotalAmount = round2(placed.TotalAmount)

	if err := s.publisher.PublishOrderPlaced(ctx, events.OrderPlaced{
		OrderID:     placed.ID,
		Items:       placed.Items,
		TotalAmount: placed.TotalAmount,
		Status:      placed.Status,
		OrderedBy:   actor.ID,
		OrderDate:   placed.OrderDate,
	}); err != nil {
		log.Printf("[service] WARN: failed to publish order event id=%s: %v", placed.ID, err)
	}

	log.Printf("[audit] order_place actor=%s order=%s total=%.2f items=%d", actor.Username, placed.ID, placed.TotalAmount, len(placed.Items))
	return *placed, nil
}

// GetOrder returns a single ledger entry. Cashiers may only read their own
// orders; admins and managers may read any.
func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Order{}, store.ErrInvalidOrder
	}

	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.Order{}, ErrForbidden
	}
	if actor.Role == domain.RoleCashier && order.OrderedByID != actor.ID {
		return domain.Order{}, ErrForbidden
	}

	order.TotalAmount = round2(order.TotalAmount)
	return *order, nil
}

type OrderListQuery struct {
	Date    string
	Month   string
	Status  string
	Cashier string
	Search  string
}

// ListOrders applies the ledger filters. An unknown cashier username yields
// an empty list rather than an error, so the UI can search freely.
func (s *Service) ListOrders(ctx context.Context, query OrderListQuery) ([]domain.Order, error) {
	filter := domain.OrderFilter{
		Date:   strings.TrimSpace(query.Date),
		Month:  strings.TrimSpace(query.Month),
		Status: strings.TrimSpace(query.Status),
		Search: strings.TrimSpace(query.Search),
	}
	if filter.Status != "" && !domain.ValidOrderStatus(filter.Status) {
		return []domain.Order{}, nil
	}

	if cashier := strings.TrimSpace(query.Cashier); cashier != "" {
		user, err := s.repo.GetUserByUsername(ctx, cashier)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return []domain.Order{}, nil
			}
			return nil, err
		}
		filter.OrderedByID = user.ID
	}

	orders, err := s.repo.ListOrders(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].TotalAmount = round2(orders[i].TotalAmount)
	}
	return orders, nil
}

func (s *Service) UpdateOrder(ctx context.Context, id string, req domain.OrderUpdateRequest) (domain.Order, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Order{}, store.ErrInvalidOrder
	}

	existing, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}

	updated := *existing
	if req.Status != nil {
		status := strings.TrimSpace(*req.Status)
		if !domain.ValidOrderStatus(status) {
			return domain.Order{}, store.ErrInvalidOrder
		}
		updated.Status = status
	}
	if req.Total != nil {
		if *req.Total < 0 {
			return domain.Order{}, store.ErrInvalidOrder
		}
		updated.TotalAmount = *req.Total
	}

	saved, err := s.repo.UpdateOrder(ctx, updated)
	if err != nil {
		return domain.Order{}, err
	}

	actor, _ := ActorFromContext(ctx)
	log.Printf("[audit] order_update actor=%s order=%s status=%s", actor.Username, saved.ID, saved.Status)
	saved.TotalAmount = round2(saved.TotalAmount)
	return *saved, nil
}

// DeleteOrder removes a ledger entry without restoring stock; physical goods
// already left the counter. Inventory corrections go through product edits.
func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return store.ErrInvalidOrder
	}
	if err := s.repo.DeleteOrder(ctx, id); err != nil {
		return err
	}

	actor, _ := ActorFromContext(ctx)
	log.Printf("[audit] order_delete actor=%s order=%s", actor.Username, id)
	return nil
}

// DailySales aggregates one UTC day, inclusive of both midnight boundaries
// of the requested date. Results are cached briefly since report queries
// hit the whole ledger.
func (s *Service) DailySales(ctx context.Context, date string) (domain.DailySalesReport, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return domain.DailySalesReport{}, store.ErrInvalidInput
	}
	day, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return domain.DailySalesReport{}, store.ErrInvalidInput
	}

	cacheKey := "report:daily:" + date
	if cached, hit, err := s.reportCache.Get(ctx, cacheKey); err != nil {
		log.Printf("[service] WARN: report cache get failed key=%s: %v", cacheKey, err)
	} else if hit {
		return *cached, nil
	}

	from := day
	to := day.AddDate(0, 0, 1)
	totalSales, totalOrders, sold, err := s.repo.DailySales(ctx, from, to)
	if err != nil {
		return domain.DailySalesReport{}, err
	}

	for i := range sold {
		sold[i].TotalPrice = round2(sold[i].TotalPrice)
	}
	report := domain.DailySalesReport{
		Date:         date,
		TotalSales:   round2(totalSales),
		TotalOrders:  totalOrders,
		ProductsSold: sold,
	}

	if err := s.reportCache.Set(ctx, cacheKey, &report, s.reportTTL); err != nil {
		log.Printf("[service] WARN: report cache set failed key=%s: %v", cacheKey, err)
	}
	return report, nil
}

func (s *Service) ProductSales(ctx context.Context) ([]domain.ProductSalesEntry, error) {
	entries, err := s.repo.ProductSales(ctx)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].TotalSales = round2(entries[i].TotalSales)
	}
	return entries, nil
}

func (s *Service) EmployeeSales(ctx context.Context) ([]domain.EmployeeSalesEntry, error) {
	entries, err := s.repo.EmployeeSales(ctx)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].TotalSales = round2(entries[i].TotalSales)
	}
	return entries, nil
}

// OrdersOfDay lists the raw ledger entries of one UTC day, for drill-down
// from the daily report.
func (s *Service) OrdersOfDay(ctx context.Context, date string) ([]domain.Order, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return nil, store.ErrInvalidInput
	}
	if _, err := time.ParseInLocation("2006-01-02", date, time.UTC); err != nil {
		return nil, store.ErrInvalidInput
	}
	return s.ListOrders(ctx, OrderListQuery{Date: date})
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductRequest) (domain.Product, error) {
	if err := s.requireManagement(ctx); err != nil {
		return domain.Product{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" || req.Price <= 0 || req.Stock < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}
	if err := s.checkIngredientRefs(ctx, req.Ingredients); err != nil {
		return domain.Product{}, err
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		Name:        req.Name,
		Price:       req.Price,
		Category:    req.Category,
		Description: strings.TrimSpace(req.Description),
		Image:       strings.TrimSpace(req.Image),
		Stock:       req.Stock,
		Ingredients: req.Ingredients,
	})
	if err != nil {
		return domain.Product{}, err
	}

	actor, _ := ActorFromContext(ctx)
	log.Printf("[audit] product_create actor=%s product=%s price=%.2f stock=%d", actor.Username, created.ID, created.Price, created.Stock)
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductRequest) (domain.Product, error) {
	if err := s.requireManagement(ctx); err != nil {
		return domain.Product{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Price <= 0 || req.Stock < 0 {
		return domain.Product{}, store.ErrInvalidInput
	}
	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	if err := s.checkIngredientRefs(ctx, req.Ingredients); err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	updated.Name = req.Name
	updated.Price = req.Price
	updated.Category = strings.TrimSpace(req.Category)
	updated.Description = strings.TrimSpace(req.Description)
	updated.Image = strings.TrimSpace(req.Image)
	updated.Stock = req.Stock
	updated.Ingredients = req.Ingredients

	saved, err := s.repo.UpdateProduct(ctx, updated)
	if err != nil {
		return domain.Product{}, err
	}

	actor, _ := ActorFromContext(ctx)
	log.Printf("[audit] product_update actor=%s product=%s price=%.2f stock=%d", actor.Username, saved.ID, saved.Price, saved.Stock)
	return *saved, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.requireManagement(ctx); err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	actor, _ := ActorFromContext(ctx)
	log.Printf("[audit] product_delete actor=%s product=%s", actor.Username, id)
	return nil
}

func (s *Service) ListIngredients(ctx context.Context) ([]domain.Ingredient, error) {
	return s.repo.ListIngredients(ctx)
}

func (s *Service) CreateIngredient(ctx context.Context, req domain.IngredientRequest) (domain.Ingredient, error) {
	if err := s.requireManagement(ctx); err != nil {
		return domain.Ingredient{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Unit = strings.TrimSpace(req.Unit)
	if req.Name == "" || req.Stock < 0 {
		return domain.Ingredient{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateIngredient(ctx, domain.Ingredient{
		Name:  req.Name,
		Stock: req.Stock,
		Unit:  req.Unit,
	})
	if err != nil {
		return domain.Ingredient{}, err
	}

	actor, _ := ActorFromContext(ctx)
	log.Printf("[audit] ingredient_create actor=%s ingredient=%s stock=%.1f%s", actor.Username, created.ID, created.Stock, created.Unit)
	return *created, nil
}

func (s *Service) UpdateIngredient(ctx context.Context, id string, req domain.IngredientRequest) (domain.Ingredient, error) {
	if err := s.requireManagement(ctx); err != nil {
		return domain.Ingredient{}, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Stock < 0 {
		return domain.Ingredient{}, store.ErrInvalidInput
	}
	existing, err := s.repo.GetIngredientByID(ctx, id)
	if err != nil {
		return domain.Ingredient{}, err
	}

	updated := *existing
	updated.Name = req.Name
	updated.Stock = req.Stock
	updated.Unit = strings.TrimSpace(req.Unit)

	saved, err := s.repo.UpdateIngredient(ctx, updated)
	if err != nil {
		return domain.Ingredient{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteIngredient(ctx context.Context, id string) error {
	if err := s.requireManagement(ctx); err != nil {
		return err
	}
	if err := s.repo.DeleteIngredient(ctx, id); err != nil {
		return err
	}

	actor, _ := ActorFromContext(ctx)
	log.Printf("[audit] ingredient_delete actor=%s ingredient=%s", actor.Username, id)
	return nil
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}

	accounts, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(accounts))
	for _, account := range accounts {
		users = append(users, domain.User{
			ID:        account.ID,
			Username:  account.Username,
			Role:      account.Role,
			CreatedAt: account.CreatedAt,
		})
	}
	return users, nil
}

func (s *Service) requireManagement(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return ErrForbidden
	}
	if actor.Role != domain.RoleAdmin && actor.Role != domain.RoleManager {
		return ErrForbidden
	}
	return nil
}

func (s *Service) checkIngredientRefs(ctx context.Context, refs []domain.ProductIngredient) error {
	for _, ref := range refs {
		if strings.TrimSpace(ref.IngredientID) == "" || ref.QuantityUsed <= 0 {
			return store.ErrInvalidInput
		}
		if _, err := s.repo.GetIngredientByID(ctx, ref.IngredientID); err != nil {
			return err
		}
	}
	return nil
}

// round2 keeps money presentable. Aggregation happens on raw float64 sums;
// rounding is applied only at the response boundary.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cafepos/backend/internal/service"
	"cafepos/backend/internal/store/memory"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	svc := service.New(repo, nil, nil, time.Minute)
	auth := NewAuthManager("test-secret-key-test-secret-key!", time.Hour, repo)

	return New(svc, auth, "*")
}

func doJSON(t *testing.T, handler http.Handler, method string, path string, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, handler http.Handler, username string, password string) string {
	t.Helper()

	rec := doJSON(t, handler, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login as %s failed: %d %s", username, rec.Code, rec.Body.String())
	}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatalf("expected access token")
	}
	return resp.AccessToken
}

func TestHandleHealth(t *testing.T) {
	handler := newTestAPI(t).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestOrdersRequireAuth(t *testing.T) {
	handler := newTestAPI(t).Handler()

	rec := doJSON(t, handler, http.MethodGet, "/api/orders", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestPlaceOrderAndReadBack(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodPost, "/api/orders", token, map[string]any{
		"items": []map[string]any{
			{"productId": "prod-espresso", "name": "Espresso", "price": 2.50, "quantity": 2},
			{"productId": "prod-croissant", "quantity": 1},
		},
		"totalAmount": 8.20,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var created struct {
		Order struct {
			ID          string  `json:"id"`
			TotalAmount float64 `json:"totalAmount"`
			Status      string  `json:"status"`
		} `json:"order"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode order: %v", err)
	}
	if created.Order.ID == "" || created.Order.TotalAmount != 8.20 || created.Order.Status != "completed" {
		t.Fatalf("unexpected order: %+v", created.Order)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/orders/"+created.Order.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 reading own order, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestPlaceOrderInsufficientStockRejected(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodPost, "/api/orders", token, map[string]any{
		"items": []map[string]any{
			{"productId": "prod-cheesecake", "quantity": 500},
		},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	msg, _ := body["error"].(string)
	if msg == "" || msg == "internal server error" {
		t.Fatalf("expected a descriptive stock message, got %q", msg)
	}
}

func TestCashierCannotReadOthersOrder(t *testing.T) {
	handler := newTestAPI(t).Handler()
	adminToken := login(t, handler, "admin", "admin123")
	cashierToken := login(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodPost, "/api/orders", adminToken, map[string]any{
		"items": []map[string]any{{"productId": "prod-latte", "quantity": 1}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin order failed: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Order struct {
			ID string `json:"id"`
		} `json:"order"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode order: %v", err)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/orders/"+created.Order.ID, cashierToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for another cashier's order, got %d", rec.Code)
	}
}

func TestCashierCannotListOrdersOrReports(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "cashier", "cashier123")

	if rec := doJSON(t, handler, http.MethodGet, "/api/orders", token, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 listing orders, got %d", rec.Code)
	}
	if rec := doJSON(t, handler, http.MethodGet, "/api/reports/daily-sales?date=2026-03-10", token, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for reports, got %d", rec.Code)
	}
	if rec := doJSON(t, handler, http.MethodGet, "/api/users", token, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for user list, got %d", rec.Code)
	}
}

func TestOrderLifecycleWithManager(t *testing.T) {
	handler := newTestAPI(t).Handler()
	adminToken := login(t, handler, "admin", "admin123")
	managerToken := login(t, handler, "manager", "manager123")

	rec := doJSON(t, handler, http.MethodPost, "/api/orders", managerToken, map[string]any{
		"items": []map[string]any{{"productId": "prod-iced-tea", "quantity": 2}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("manager order failed: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Order struct {
			ID string `json:"id"`
		} `json:"order"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode order: %v", err)
	}

	rec = doJSON(t, handler, http.MethodPut, "/api/orders/"+created.Order.ID, managerToken, map[string]any{
		"status": "cancelled",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update failed: %d %s", rec.Code, rec.Body.String())
	}

	cashierToken := login(t, handler, "cashier", "cashier123")
	rec = doJSON(t, handler, http.MethodDelete, "/api/orders/"+created.Order.ID, cashierToken, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier delete, got %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodDelete, "/api/orders/"+created.Order.ID, managerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("manager delete failed: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/orders/"+created.Order.ID, adminToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestDailySalesReportFlow(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "manager", "manager123")

	rec := doJSON(t, handler, http.MethodPost, "/api/orders", token, map[string]any{
		"items": []map[string]any{{"productId": "prod-espresso", "quantity": 4}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("order failed: %d %s", rec.Code, rec.Body.String())
	}

	today := time.Now().UTC().Format("2006-01-02")
	rec = doJSON(t, handler, http.MethodGet, "/api/reports/daily-sales?date="+today, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("daily sales failed: %d %s", rec.Code, rec.Body.String())
	}

	var report struct {
		Date        string  `json:"date"`
		TotalSales  float64 `json:"totalSales"`
		TotalOrders int     `json:"totalOrders"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Date != today || report.TotalOrders != 1 || report.TotalSales != 10.00 {
		t.Fatalf("unexpected report: %+v", report)
	}

	// Missing date is a client error.
	rec = doJSON(t, handler, http.MethodGet, "/api/reports/daily-sales", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without date, got %d", rec.Code)
	}
}

func TestProductAndEmployeeSalesEndpoints(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodPost, "/api/orders", token, map[string]any{
		"items": []map[string]any{{"productId": "prod-cappuccino", "quantity": 2}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("order failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/reports/product-sales", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("product sales failed: %d %s", rec.Code, rec.Body.String())
	}
	var productBody struct {
		ProductSales []struct {
			ProductID         string  `json:"productId"`
			TotalSales        float64 `json:"totalSales"`
			TotalQuantitySold int     `json:"totalQuantitySold"`
		} `json:"productSales"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&productBody); err != nil {
		t.Fatalf("decode product sales: %v", err)
	}
	if len(productBody.ProductSales) != 1 || productBody.ProductSales[0].TotalSales != 7.00 {
		t.Fatalf("unexpected product sales: %+v", productBody.ProductSales)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/reports/employee-sales", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("employee sales failed: %d %s", rec.Code, rec.Body.String())
	}
	var employeeBody struct {
		EmployeeSales []struct {
			EmployeeName string  `json:"employeeName"`
			TotalSales   float64 `json:"totalSales"`
		} `json:"employeeSales"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&employeeBody); err != nil {
		t.Fatalf("decode employee sales: %v", err)
	}
	if len(employeeBody.EmployeeSales) != 1 || employeeBody.EmployeeSales[0].EmployeeName != "admin" {
		t.Fatalf("unexpected employee sales: %+v", employeeBody.EmployeeSales)
	}
}

func TestRegisterRequiresAdmin(t *testing.T) {
	handler := newTestAPI(t).Handler()
	adminToken := login(t, handler, "admin", "admin123")
	cashierToken := login(t, handler, "cashier", "cashier123")

	payload := map[string]string{
		"username": "barista2",
		"password": "secret123",
		"role":     "cashier",
	}
	if rec := doJSON(t, handler, http.MethodPost, "/api/auth/register", cashierToken, payload); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier register, got %d", rec.Code)
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/auth/register", adminToken, payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("admin register failed: %d %s", rec.Code, rec.Body.String())
	}

	if login(t, handler, "barista2", "secret123") == "" {
		t.Fatalf("expected new account to log in")
	}
}

func TestRegisterValidationErrorsList(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodPost, "/api/auth/register", token, map[string]string{
		"username": "x",
		"password": "y",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var body struct {
		Errors []string `json:"errors"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Errors) < 2 {
		t.Fatalf("expected multiple validation messages, got %v", body.Errors)
	}
}

func TestCurrentUserEndpoint(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "manager", "manager123")

	rec := doJSON(t, handler, http.MethodGet, "/api/auth/user", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("current user failed: %d %s", rec.Code, rec.Body.String())
	}

	var body struct {
		User struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.User.Username != "manager" || body.User.Role != "manager" {
		t.Fatalf("unexpected user: %+v", body.User)
	}
}

func TestProductCRUDOverHTTP(t *testing.T) {
	handler := newTestAPI(t).Handler()
	managerToken := login(t, handler, "manager", "manager123")
	cashierToken := login(t, handler, "cashier", "cashier123")

	// Cashiers can browse the menu.
	if rec := doJSON(t, handler, http.MethodGet, "/api/products", cashierToken, nil); rec.Code != http.StatusOK {
		t.Fatalf("cashier product list failed: %d", rec.Code)
	}

	payload := map[string]any{
		"name":     "Flat White",
		"price":    3.60,
		"category": "coffee",
		"stock":    50,
		"ingredients": []map[string]any{
			{"ingredientId": "ing-coffee-beans", "quantityUsed": 18, "unit": "g"},
			{"ingredientId": "ing-milk", "quantityUsed": 140, "unit": "ml"},
		},
	}
	if rec := doJSON(t, handler, http.MethodPost, "/api/products", cashierToken, payload); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier create, got %d", rec.Code)
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/products", managerToken, payload)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create product failed: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Product struct {
			ID string `json:"id"`
		} `json:"product"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode product: %v", err)
	}

	payload["price"] = 3.90
	rec = doJSON(t, handler, http.MethodPut, "/api/products/"+created.Product.ID, managerToken, payload)
	if rec.Code != http.StatusOK {
		t.Fatalf("update product failed: %d %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/products/"+created.Product.ID, managerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete product failed: %d %s", rec.Code, rec.Body.String())
	}
	rec = doJSON(t, handler, http.MethodGet, "/api/products/"+created.Product.ID, managerToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestIngredientEndpointsManagerOnly(t *testing.T) {
	handler := newTestAPI(t).Handler()
	managerToken := login(t, handler, "manager", "manager123")
	cashierToken := login(t, handler, "cashier", "cashier123")

	if rec := doJSON(t, handler, http.MethodGet, "/api/ingredients", cashierToken, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cashier, got %d", rec.Code)
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/ingredients", managerToken, map[string]any{
		"name":  "Vanilla Syrup",
		"stock": 900,
		"unit":  "ml",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create ingredient failed: %d %s", rec.Code, rec.Body.String())
	}
	var created struct {
		Ingredient struct {
			ID string `json:"id"`
		} `json:"ingredient"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode ingredient: %v", err)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/ingredients/"+created.Ingredient.ID, managerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete ingredient failed: %d %s", rec.Code, rec.Body.String())
	}
}

func TestUnknownJSONFieldRejected(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodPost, "/api/orders", token, map[string]any{
		"items":    []map[string]any{{"productId": "prod-espresso", "quantity": 1}},
		"surprise": true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}

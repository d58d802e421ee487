package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/ecommerce_backend/internal/handlers"
	"github.com/Skotchmaster/ecommerce_backend/internal/hash"
	"github.com/Skotchmaster/ecommerce_backend/internal/models"
	"github.com/Skotchmaster/ecommerce_backend/internal/mykafka"
	"github.com/Skotchmaster/ecommerce_backend/internal/service/order"
	"github.com/Skotchmaster/ecommerce_backend/internal/service/stats"
	"github.com/Skotchmaster/ecommerce_backend/internal/service/token"
)

type testEnv struct {
	T  *testing.T
	E  *echo.Echo
	DB *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}

	// the in-memory database lives and dies with its connection
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.Category{}, &models.Product{}, &models.User{},
		&models.Customer{}, &models.Order{}, &models.OrderItem{},
		&models.RefreshToken{},
	); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}

	jwtSecret := []byte("test-jwt-secret")
	refreshSecret := []byte("test-refresh-secret")
	producer := &mykafka.Producer{}

	deps := Deps{
		AuthHandler:       &handlers.AuthHandler{DB: db, JWTSecret: jwtSecret, RefreshSecret: refreshSecret, Producer: producer},
		CategoryHandler:   &handlers.CategoryHandler{DB: db, Producer: producer},
		ProductHandler:    &handlers.ProductHandler{DB: db, Producer: producer},
		OrderHandler:      &handlers.OrderHandler{Svc: &order.Service{DB: db}, Producer: producer},
		StatisticsHandler: &handlers.StatisticsHandler{Svc: &stats.Service{DB: db}},
		TokenService:      &token.TokenService{DB: db, JWTSecret: jwtSecret, RefreshSecret: refreshSecret},
	}

	e := echo.New()
	Register(e, &deps)

	return &testEnv{T: t, E: e, DB: db}
}

func (env *testEnv) seedUser(username, role string) models.User {
	env.T.Helper()
	passwordHash, err := hash.HashPassword("password")
	require.NoError(env.T, err)

	user := models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: passwordHash,
		Role:         role,
	}
	require.NoError(env.T, env.DB.Create(&user).Error)

	if role == models.RoleCustomer {
		require.NoError(env.T, env.DB.Create(&models.Customer{UserID: user.ID}).Error)
	}
	return user
}

func (env *testEnv) login(username string) []*http.Cookie {
	env.T.Helper()
	rec := env.do(http.MethodPost, "/api/v1/login", map[string]string{
		"username": username,
		"password": "password",
	}, nil)
	require.Equal(env.T, http.StatusOK, rec.Code)
	return rec.Result().Cookies()
}

func (env *testEnv) do(method, path string, body any, cookies []*http.Cookie) *httptest.ResponseRecorder {
	env.T.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) seedCatalog() models.Product {
	env.T.Helper()
	category := models.Category{Name: "Electronics", IsActive: true}
	require.NoError(env.T, env.DB.Create(&category).Error)
	product := models.Product{
		Name:          "Phone",
		Price:         500,
		CategoryID:    category.ID,
		StockQuantity: 10,
		IsAvailable:   true,
	}
	require.NoError(env.T, env.DB.Create(&product).Error)
	return product
}

func TestCategoryManagementRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser("admin", models.RoleAdmin)
	env.seedUser("buyer", models.RoleCustomer)

	// unauthenticated
	rec := env.do(http.MethodPost, "/api/v1/categories", map[string]string{"name": "Books"}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// customer
	rec = env.do(http.MethodPost, "/api/v1/categories", map[string]string{"name": "Books"}, env.login("buyer"))
	require.Equal(t, http.StatusForbidden, rec.Code)

	// admin
	adminCookies := env.login("admin")
	rec = env.do(http.MethodPost, "/api/v1/categories", map[string]string{"name": "Books"}, adminCookies)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/categories", map[string]string{"name": "  "}, adminCookies)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// category appears in the public list
	rec = env.do(http.MethodGet, "/api/v1/categories", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var categories []models.Category
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &categories))
	require.Len(t, categories, 1)
	require.Equal(t, "Books", categories[0].Name)
}

func TestProductManagementRoles(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser("admin", models.RoleAdmin)
	env.seedUser("seller", models.RoleSeller)
	env.seedUser("buyer", models.RoleCustomer)

	category := models.Category{Name: "Electronics", IsActive: true}
	require.NoError(t, env.DB.Create(&category).Error)

	body := map[string]any{
		"name":           "Phone",
		"price":          500.0,
		"category_id":    category.ID,
		"stock_quantity": 10,
	}

	rec := env.do(http.MethodPost, "/api/v1/products", body, env.login("buyer"))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/products", body, env.login("seller"))
	require.Equal(t, http.StatusCreated, rec.Code)

	// admins hold seller-equivalent product rights
	body["name"] = "Tablet"
	rec = env.do(http.MethodPost, "/api/v1/products", body, env.login("admin"))
	require.Equal(t, http.StatusCreated, rec.Code)

	body["price"] = 0.0
	rec = env.do(http.MethodPost, "/api/v1/products", body, env.login("seller"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// reads stay public
	rec = env.do(http.MethodGet, "/api/v1/products", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestProductDeleteGuardsOrderHistory(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser("seller", models.RoleSeller)
	env.seedUser("buyer", models.RoleCustomer)
	product := env.seedCatalog()

	rec := env.do(http.MethodPost, "/api/v1/orders", map[string]any{
		"items": []map[string]any{{"product_id": product.ID, "quantity": 1}},
	}, env.login("buyer"))
	require.Equal(t, http.StatusCreated, rec.Code)

	sellerCookies := env.login("seller")
	rec = env.do(http.MethodDelete, fmt.Sprintf("/api/v1/products/%d", product.ID), nil, sellerCookies)
	require.Equal(t, http.StatusConflict, rec.Code)

	// product and its order item both survive
	var got models.Product
	require.NoError(t, env.DB.First(&got, product.ID).Error)
	var items int64
	require.NoError(t, env.DB.Model(&models.OrderItem{}).
		Where("product_id = ?", product.ID).Count(&items).Error)
	require.EqualValues(t, 1, items)

	// a product no order references still deletes
	spare := models.Product{Name: "Spare", Price: 5, CategoryID: got.CategoryID, StockQuantity: 1, IsAvailable: true}
	require.NoError(t, env.DB.Create(&spare).Error)
	rec = env.do(http.MethodDelete, fmt.Sprintf("/api/v1/products/%d", spare.ID), nil, sellerCookies)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestOrderCreationRestrictedToCustomers(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser("seller", models.RoleSeller)
	env.seedUser("buyer", models.RoleCustomer)
	product := env.seedCatalog()

	body := map[string]any{
		"items": []map[string]any{{"product_id": product.ID, "quantity": 2}},
		"notes": "ring twice",
	}

	rec := env.do(http.MethodPost, "/api/v1/orders", body, env.login("seller"))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/orders", body, env.login("buyer"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var placed models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &placed))
	require.InDelta(t, 1000.0, placed.TotalAmount, 1e-9)
	require.Len(t, placed.Items, 1)
}

func TestOrderListScopedByRole(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser("seller", models.RoleSeller)
	env.seedUser("alice", models.RoleCustomer)
	env.seedUser("bob", models.RoleCustomer)
	product := env.seedCatalog()

	aliceCookies := env.login("alice")
	bobCookies := env.login("bob")

	body := map[string]any{
		"items": []map[string]any{{"product_id": product.ID, "quantity": 1}},
	}
	rec := env.do(http.MethodPost, "/api/v1/orders", body, aliceCookies)
	require.Equal(t, http.StatusCreated, rec.Code)
	var aliceOrder models.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &aliceOrder))

	rec = env.do(http.MethodPost, "/api/v1/orders", body, bobCookies)
	require.Equal(t, http.StatusCreated, rec.Code)

	var listResp struct {
		Data []models.Order `json:"data"`
	}

	rec = env.do(http.MethodGet, "/api/v1/orders", nil, aliceCookies)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	require.Len(t, listResp.Data, 1)
	require.Equal(t, aliceOrder.ID, listResp.Data[0].ID)

	rec = env.do(http.MethodGet, "/api/v1/orders", nil, env.login("seller"))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	require.Len(t, listResp.Data, 2)

	// bob cannot fetch alice's order by id
	rec = env.do(http.MethodGet, "/api/v1/orders/1", nil, bobCookies)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOrderStatusUpdateRoles(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser("seller", models.RoleSeller)
	env.seedUser("buyer", models.RoleCustomer)
	product := env.seedCatalog()

	buyerCookies := env.login("buyer")
	rec := env.do(http.MethodPost, "/api/v1/orders", map[string]any{
		"items": []map[string]any{{"product_id": product.ID, "quantity": 1}},
	}, buyerCookies)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(http.MethodPut, "/api/v1/orders/1/status", map[string]string{"status": "Processing"}, buyerCookies)
	require.Equal(t, http.StatusForbidden, rec.Code)

	sellerCookies := env.login("seller")
	rec = env.do(http.MethodPut, "/api/v1/orders/1/status", map[string]string{"status": "Processing"}, sellerCookies)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodPut, "/api/v1/orders/1/status", map[string]string{"status": "Cancelled"}, sellerCookies)
	require.Equal(t, http.StatusOK, rec.Code)

	// terminal state
	rec = env.do(http.MethodPut, "/api/v1/orders/1/status", map[string]string{"status": "Completed"}, sellerCookies)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatisticsAdminOnly(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser("admin", models.RoleAdmin)
	env.seedUser("seller", models.RoleSeller)
	env.seedUser("buyer", models.RoleCustomer)
	env.seedCatalog()

	rec := env.do(http.MethodGet, "/api/v1/statistics", nil, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/statistics", nil, env.login("buyer"))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/statistics", nil, env.login("seller"))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/statistics", nil, env.login("admin"))
	require.Equal(t, http.StatusOK, rec.Code)

	var result stats.Statistics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.EqualValues(t, 1, result.TotalCustomers)
	require.EqualValues(t, 1, result.TotalProducts)
}

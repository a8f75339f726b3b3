package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/danghaonhien/the-boring-coffee-sub000/internal/config"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/domain/model"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/handler"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/infra/cache"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/infra/cartstore"
	infradb "github.com/danghaonhien/the-boring-coffee-sub000/internal/infra/db"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/infra/notify"
	infraRepo "github.com/danghaonhien/the-boring-coffee-sub000/internal/infra/repository"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/infra/static"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/infra/system"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/logger"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/middleware"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/server"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/usecase"
	"github.com/danghaonhien/the-boring-coffee-sub000/internal/validator"
)

const testSecret = "test-secret"

// =====================
// helper
// =====================

type testApp struct {
	e     *echo.Echo
	users *infraRepo.UserGormRepository
}

func setupApp(t *testing.T) *testApp {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, infradb.Migrate(gormDB))
	t.Cleanup(func() { _ = sqlDB.Close() })

	cfg := config.Config{
		GoEnv:           "dev",
		AuthJWTSecret:   testSecret,
		AuthPagePath:    "/auth",
		FEURL:           "http://localhost:3000",
		CatalogCacheTTL: time.Minute,
		CartLoginPolicy: config.CartLoginReplace,
	}
	log := logger.Discard()

	productRepo := infraRepo.NewProductGormRepository(gormDB)
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	auditRepo := infraRepo.NewAuditLogGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)
	memCache := cache.NewMemoryCache(cfg.CatalogCacheTTL)
	codes, err := system.NewCodeGenerator(system.DefaultCodeLength)
	require.NoError(t, err)
	fallback := static.Products()

	catalogUC := usecase.NewCatalogUsecase(productRepo, memCache, fallback, log)
	cartUC := usecase.NewCartUsecase(infraRepo.NewCartGormRepository(gormDB), catalogUC, cartstore.NewMemoryStore(),
		system.UUIDGenerator{}, system.RealClock{}, usecase.CartOptions{
			LoginPolicy: cfg.CartLoginPolicy,
			DedupWindow: cfg.CartDedupWindow,
		}, log)
	userUC := usecase.NewUserUsecase(userRepo)

	rep := catalogUC.Initialize(context.Background())
	require.Empty(t, rep.Error)
	require.Equal(t, len(fallback), rep.Seeded)

	e := server.New(cfg, log)
	server.RegisterRoutes(e, cfg, userRepo, server.Handlers{
		Product: handler.NewProductHandler(catalogUC),
		Cart:    handler.NewCartHandler(cartUC, userUC),
		Order: handler.NewOrderHandler(
			usecase.NewOrderUsecase(txm, validator.New(), notify.Noop{}, log), cartUC),
		Newsletter: handler.NewNewsletterHandler(
			usecase.NewNewsletterUsecase(infraRepo.NewSubscriberGormRepository(gormDB), validator.New(), notify.Noop{}, "WELCOME10", log)),
		DiscountCode: handler.NewDiscountCodeHandler(
			usecase.NewDiscountCodeUsecase(infraRepo.NewDiscountCodeGormRepository(gormDB), auditRepo, codes, system.RealClock{})),
		AdminProduct: handler.NewAdminProductHandler(
			usecase.NewAdminProductUsecase(productRepo, txm, catalogUC, infradb.NewPinger(gormDB), memCache, fallback, log), catalogUC),
		AdminOrder: handler.NewAdminOrderHandler(usecase.NewAdminOrderUsecase(txm)),
		AdminUser:  handler.NewAdminUserHandler(userUC),
		AdminAudit: handler.NewAdminAuditHandler(usecase.NewAuditLogUsecase(auditRepo)),
	})

	return &testApp{e: e, users: userRepo}
}

type client struct {
	t      *testing.T
	app    *testApp
	bearer string
	cookie *http.Cookie
}

func (a *testApp) client(t *testing.T) *client {
	return &client{t: t, app: a}
}

func (c *client) do(method string, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if c.bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+c.bearer)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}

	rec := httptest.NewRecorder()
	c.app.e.ServeHTTP(rec, req)

	// セッションcookieを引き継ぐ
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.SessionCookieName {
			c.cookie = ck
		}
	}
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func token(t *testing.T, sub string, email string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func shippingForm() usecase.ShippingInfo {
	return usecase.ShippingInfo{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Address:   "1 Analytical Way",
		City:      "London",
		State:     "LDN",
		ZipCode:   "12345",
	}
}

// =====================
// Catalog
// =====================

func TestProducts_ServedFromRemoteAfterSeeding(t *testing.T) {
	c := setupApp(t).client(t)

	rec := c.do(http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usecase.SourceRemote, rec.Header().Get(handler.CatalogSourceHeader))
	assert.Len(t, decode[[]model.Product](t, rec), len(static.Products()))

	rec = c.do(http.MethodGet, "/products?category=coffee", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, p := range decode[[]model.Product](t, rec) {
		assert.Equal(t, "coffee", p.Category)
	}

	rec = c.do(http.MethodGet, "/products/2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Darkmode", decode[model.Product](t, rec).Name)

	rec = c.do(http.MethodGet, "/products/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.do(http.MethodGet, "/products/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodGet, "/products/1/recommended", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	recs := decode[[]model.Product](t, rec)
	assert.Len(t, recs, usecase.DefaultRecommendedLimit)
	for _, p := range recs {
		assert.NotEqual(t, int64(1), p.ID)
	}
}

// =====================
// Guest cart → checkout
// =====================

func TestGuestCheckout_ClearsCart(t *testing.T) {
	c := setupApp(t).client(t)

	rec := c.do(http.MethodPost, "/cart/items", handler.AddCartRequest{ProductID: 1, Quantity: 2})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, c.cookie)
	cart := decode[usecase.CartResult](t, rec)
	assert.Equal(t, usecase.SyncGuest, cart.Sync.State)
	assert.Equal(t, int64(2), cart.TotalItems)
	assert.Equal(t, int64(2998), cart.Subtotal)

	// 入力エラーは項目ごと
	bad := shippingForm()
	bad.Email = ""
	rec = c.do(http.MethodPost, "/checkout", bad)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decode[handler.ErrorResponse](t, rec)
	assert.Contains(t, errBody.Fields, "email")

	rec = c.do(http.MethodPost, "/checkout", shippingForm())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[usecase.SubmitOrderResult](t, rec)
	assert.True(t, res.Success)
	assert.NotZero(t, res.OrderID)
	assert.Equal(t, int64(2998), res.Totals.Subtotal)
	assert.Equal(t, int64(300), res.Totals.Tax)
	assert.Equal(t, int64(500), res.Totals.Shipping)
	assert.Equal(t, int64(3798), res.Totals.Total)

	rec = c.do(http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[usecase.CartResult](t, rec).Items)

	// 空のカートでは注文できない
	rec = c.do(http.MethodPost, "/checkout", shippingForm())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGuestCart_UpdateAndRemove(t *testing.T) {
	c := setupApp(t).client(t)

	rec := c.do(http.MethodPost, "/cart/items", handler.AddCartRequest{ProductID: 2, Quantity: 1})
	require.Equal(t, http.StatusOK, rec.Code)
	itemID := decode[usecase.CartResult](t, rec).Items[0].ID

	rec = c.do(http.MethodPatch, "/cart/items/"+itemID, handler.UpdateCartItemRequest{Quantity: 3})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(3), decode[usecase.CartResult](t, rec).TotalItems)

	// 0以下は削除
	rec = c.do(http.MethodPatch, "/cart/items/"+itemID, handler.UpdateCartItemRequest{Quantity: 0})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[usecase.CartResult](t, rec).Items)
}

func TestGuestCart_RapidAddsAccumulate(t *testing.T) {
	c := setupApp(t).client(t)

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/cart/items", handler.AddCartRequest{ProductID: 1, Quantity: 2}).Code)
	rec := c.do(http.MethodPost, "/cart/items", handler.AddCartRequest{ProductID: 1, Quantity: 3})
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decode[usecase.CartResult](t, rec)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(5), cart.TotalItems)
	assert.Equal(t, int64(1499*5), cart.Subtotal)
}

func TestGuestCheckout_MixedCartTotals(t *testing.T) {
	c := setupApp(t).client(t)

	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/cart/items", handler.AddCartRequest{ProductID: 1, Quantity: 1}).Code)
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/cart/items", handler.AddCartRequest{ProductID: 2, Quantity: 2}).Code)

	rec := c.do(http.MethodPost, "/checkout", shippingForm())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[usecase.SubmitOrderResult](t, rec)
	assert.Equal(t, int64(4697), res.Totals.Subtotal)
	assert.Equal(t, int64(470), res.Totals.Tax)
	assert.Equal(t, int64(500), res.Totals.Shipping)
	assert.Equal(t, int64(5667), res.Totals.Total)
}

// =====================
// Authenticated cart / orders
// =====================

func TestAuthenticatedCart_SyncedAndOrdersListed(t *testing.T) {
	c := setupApp(t).client(t)
	c.bearer = token(t, "u1", "ada@example.com")

	rec := c.do(http.MethodPost, "/cart/session/login", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, usecase.SyncSynced, decode[usecase.CartResult](t, rec).Sync.State)

	rec = c.do(http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usecase.UserDTO{ID: "u1", Email: "ada@example.com", Role: "USER"}, decode[usecase.UserDTO](t, rec))

	rec = c.do(http.MethodPost, "/cart/items", handler.AddCartRequest{ProductID: 7, Quantity: 2})
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decode[usecase.CartResult](t, rec)
	assert.Equal(t, usecase.SyncSynced, cart.Sync.State)
	require.Len(t, cart.Items, 1)
	require.NotNil(t, cart.Items[0].UserID)
	assert.Equal(t, "u1", *cart.Items[0].UserID)

	rec = c.do(http.MethodPost, "/checkout", shippingForm())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	orderID := decode[usecase.SubmitOrderResult](t, rec).OrderID

	rec = c.do(http.MethodGet, "/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	orders := decode[[]usecase.OrderOutput](t, rec)
	require.Len(t, orders, 1)
	assert.Equal(t, orderID, orders[0].ID)
	assert.Equal(t, int64(2), orders[0].Items[0].Quantity)

	// 他人からは見えない
	other := c.app.client(t)
	other.bearer = token(t, "u2", "")
	rec = other.do(http.MethodGet, "/orders/"+jsonInt(orderID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.do(http.MethodPost, "/cart/session/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usecase.SyncGuest, decode[usecase.CartResult](t, rec).Sync.State)
}

func TestOrders_RequireToken(t *testing.T) {
	c := setupApp(t).client(t)
	rec := c.do(http.MethodGet, "/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// =====================
// Admin
// =====================

func TestAdmin_GuardAndProductWrites(t *testing.T) {
	app := setupApp(t)
	c := app.client(t)

	rec := c.do(http.MethodGet, "/admin/products", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth?error=unauthorized", rec.Header().Get("Location"))

	c.bearer = token(t, "boss", "boss@example.com")
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/cart/session/login", nil).Code)

	rec = c.do(http.MethodGet, "/admin/products", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth?error=forbidden", rec.Header().Get("Location"))

	require.NoError(t, app.users.SetRole(context.Background(), "boss", model.RoleAdmin))

	rec = c.do(http.MethodPost, "/admin/products", usecase.AdminProductInput{ID: 20, Name: "Cold Brew", Price: 1899, Stock: 5})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// キャッシュは捨てられている
	rec = c.do(http.MethodGet, "/products/20", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, usecase.DefaultProductCategory, decode[model.Product](t, rec).Category)

	rec = c.do(http.MethodPatch, "/admin/products/20/stock", handler.StockUpdateRequest{Stock: 2, Reason: "recount"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = c.do(http.MethodPost, "/admin/products/import", handler.ImportRequest{})
	require.Equal(t, http.StatusOK, rec.Code)
	imp := decode[usecase.ImportReport](t, rec)
	assert.Equal(t, len(static.Products()), imp.Updated)

	rec = c.do(http.MethodDelete, "/admin/products/20", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = c.do(http.MethodGet, "/products/20", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = c.do(http.MethodGet, "/admin/debug/connection", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	dbg := decode[usecase.DebugReport](t, rec)
	assert.True(t, dbg.Database.OK)
	assert.True(t, dbg.ProductsTable.OK)
	// SQLiteには関数が無い
	assert.False(t, dbg.Procedure.OK)
	assert.True(t, dbg.Catalog.Attempted)

	rec = c.do(http.MethodPost, "/admin/catalog/invalidate", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// 作成・在庫・取込・削除が残る
	rec = c.do(http.MethodGet, "/admin/audit-logs?resource_type=product&resource_id=20", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	logs := decode[[]model.AuditLog](t, rec)
	require.Len(t, logs, 3)
	assert.Equal(t, model.AuditActionDeleteProduct, logs[0].Action)
	for _, l := range logs {
		assert.Equal(t, "boss", l.ActorUserID)
	}

	rec = c.do(http.MethodGet, "/admin/audit-logs?action=IMPORT_PRODUCTS", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.AuditLog](t, rec), 1)

	rec = c.do(http.MethodGet, "/admin/audit-logs?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_DiscountCodesAndPublicLookup(t *testing.T) {
	app := setupApp(t)
	c := app.client(t)
	c.bearer = token(t, "boss", "")
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/cart/session/login", nil).Code)
	require.NoError(t, app.users.SetRole(context.Background(), "boss", model.RoleAdmin))

	rec := c.do(http.MethodPost, "/admin/discount-codes", usecase.DiscountCodeInput{Code: "spring10", Percentage: 10})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[model.DiscountCode](t, rec)
	assert.Equal(t, "SPRING10", created.Code)

	rec = c.do(http.MethodPost, "/admin/discount-codes", usecase.DiscountCodeInput{Code: "SPRING10", Percentage: 20})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// コード省略時は採番
	rec = c.do(http.MethodPost, "/admin/discount-codes", usecase.DiscountCodeInput{Percentage: 5, Scope: "single", ItemIDs: []int64{1}})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, decode[model.DiscountCode](t, rec).Code, system.DefaultCodeLength)

	public := app.client(t)
	rec = public.do(http.MethodGet, "/discount-codes/spring10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[usecase.DiscountLookup](t, rec).Valid)

	rec = c.do(http.MethodPatch, "/admin/discount-codes/"+jsonInt(created.ID)+"/active", handler.DiscountActiveRequest{IsActive: false})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = public.do(http.MethodGet, "/discount-codes/SPRING10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	lookup := decode[usecase.DiscountLookup](t, rec)
	assert.False(t, lookup.Valid)
	assert.Equal(t, "inactive", lookup.Reason)

	rec = public.do(http.MethodGet, "/discount-codes/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =====================
// Newsletter
// =====================

func TestNewsletterSubscribe(t *testing.T) {
	c := setupApp(t).client(t)

	rec := c.do(http.MethodPost, "/newsletter/subscribe", handler.SubscribeRequest{Email: "Ada@Example.com"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "WELCOME10", decode[usecase.SubscribeResult](t, rec).DiscountCode)

	rec = c.do(http.MethodPost, "/newsletter/subscribe", handler.SubscribeRequest{Email: "ada@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[usecase.SubscribeResult](t, rec).AlreadySubscribed)

	rec = c.do(http.MethodPost, "/newsletter/subscribe", handler.SubscribeRequest{Email: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	c := setupApp(t).client(t)
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/healthz", nil).Code)
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

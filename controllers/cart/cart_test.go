package cartControllers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kimthedrew/legit-collections/cartstore"
	"github.com/kimthedrew/legit-collections/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.SizeStock{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func newRouter(db *gorm.DB, carts cartstore.Store, userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("user_id", userID)
	})
	r.POST("/cart/add/:product_id", AddToCart(db, carts))
	r.DELETE("/cart/:index", RemoveFromCart(db, carts, zerolog.Nop()))
	r.GET("/cart", GetCart(db, carts))
	r.POST("/cart/migrate", MigrateCart(carts))
	return r
}

func seedProduct(t *testing.T, db *gorm.DB, qty int) models.Product {
	t.Helper()
	product := models.Product{
		Name:  "Air Max",
		Price: 4500,
		Sizes: []models.SizeStock{{Size: "9", Quantity: qty}},
	}
	require.NoError(t, db.Create(&product).Error)
	return product
}

func stockOf(t *testing.T, db *gorm.DB, productID uint, size string) int {
	t.Helper()
	var stock models.SizeStock
	require.NoError(t, db.Where("product_id = ? AND size = ?", productID, size).First(&stock).Error)
	return stock.Quantity
}

func TestAddToCartOutOfStockSize(t *testing.T) {
	db := newTestDB(t)
	product := seedProduct(t, db, 0)
	r := newRouter(db, cartstore.NewMemory(), 1)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/cart/add/%d", product.ID),
		bytes.NewBufferString(`{"size":"9"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRemoveFromCartRestoresStock(t *testing.T) {
	db := newTestDB(t)
	product := seedProduct(t, db, 3)
	carts := cartstore.NewMemory()
	r := newRouter(db, carts, 1)

	require.NoError(t, carts.Replace(context.Background(), 1, []models.CartItem{
		{ProductID: product.ID, Size: "9"},
	}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/cart/0", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	items, err := carts.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, 4, stockOf(t, db, product.ID, "9"), "removal compensates with one restored unit")
}

func TestRemoveFromCartOutOfRangeIsNoOp(t *testing.T) {
	db := newTestDB(t)
	product := seedProduct(t, db, 3)
	carts := cartstore.NewMemory()
	r := newRouter(db, carts, 1)

	require.NoError(t, carts.Replace(context.Background(), 1, []models.CartItem{
		{ProductID: product.ID, Size: "9"},
	}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/cart/5", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	items, err := carts.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, items, 1, "cart unchanged")
	assert.Equal(t, 3, stockOf(t, db, product.ID, "9"), "stock unchanged")
}

func TestGetCartSkipsDeletedProducts(t *testing.T) {
	db := newTestDB(t)
	product := seedProduct(t, db, 3)
	carts := cartstore.NewMemory()
	r := newRouter(db, carts, 1)

	require.NoError(t, carts.Replace(context.Background(), 1, []models.CartItem{
		{ProductID: product.ID, Size: "9"},
		{ProductID: 9999, Size: "10"},
	}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":4500`)
}

func TestMigrateCartLegacyPayload(t *testing.T) {
	db := newTestDB(t)
	carts := cartstore.NewMemory()
	r := newRouter(db, carts, 1)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/cart/migrate",
		bytes.NewBufferString(`[42, {"product_id": 7, "size": "9.5"}]`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	items, err := carts.Get(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, models.CartItem{ProductID: 42, Size: "N/A"}, items[0])
	assert.Equal(t, models.CartItem{ProductID: 7, Size: "9.5"}, items[1])
}

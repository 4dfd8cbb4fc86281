package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kimthedrew/legit-collections/cartstore"
	"github.com/kimthedrew/legit-collections/config"
	"github.com/kimthedrew/legit-collections/models"
	"github.com/kimthedrew/legit-collections/payments/mpesa"
	"github.com/kimthedrew/legit-collections/payments/pesapal"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.SizeStock{},
		&models.Order{},
		&models.Wishlist{},
	))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{BaseURL: "http://localhost:8080"},
		Pesapal: config.PesapalConfig{IPNID: "ipn-test"},
	}
}

type fakeSTK struct {
	resp *mpesa.STKPushResponse
	err  error
}

func (f *fakeSTK) InitiateSTKPush(ctx context.Context, in mpesa.STKPushRequest) (*mpesa.STKPushResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeRedirect struct {
	submitResp *pesapal.OrderResponse
	status     *pesapal.TransactionStatus
	statusErr  error
}

func (f *fakeRedirect) RegisterIPN(ctx context.Context, ipnURL string) (string, error) {
	return "ipn-registered", nil
}

func (f *fakeRedirect) SubmitOrder(ctx context.Context, in pesapal.OrderRequest) (*pesapal.OrderResponse, error) {
	return f.submitResp, nil
}

func (f *fakeRedirect) GetTransactionStatus(ctx context.Context, orderTrackingID string) (*pesapal.TransactionStatus, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.status, nil
}

func seedUser(t *testing.T, db *gorm.DB) models.User {
	t.Helper()
	user := models.User{Email: "buyer@example.com", Name: "Buyer"}
	require.NoError(t, user.SetPassword("secret12"))
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedProduct(t *testing.T, db *gorm.DB, name string, price float64, sizes map[string]int) models.Product {
	t.Helper()
	product := models.Product{Name: name, Price: price, Category: "Shoes"}
	for size, qty := range sizes {
		product.Sizes = append(product.Sizes, models.SizeStock{Size: size, Quantity: qty})
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

func newOrchestrator(db *gorm.DB, carts cartstore.Store, stk STKGateway, redir RedirectGateway) *Orchestrator {
	return NewOrchestrator(db, carts, stk, redir, nil, nil, testConfig(), zerolog.Nop())
}

func TestCheckoutRejectsOutOfStockItem(t *testing.T) {
	db := newTestDB(t)
	carts := cartstore.NewMemory()
	user := seedUser(t, db)
	inStock := seedProduct(t, db, "Air Max", 4500, map[string]int{"9": 3})
	soldOut := seedProduct(t, db, "Jordan 1", 8000, map[string]int{"10": 0})

	ctx := context.Background()
	require.NoError(t, carts.Replace(ctx, user.ID, []models.CartItem{
		{ProductID: inStock.ID, Size: "9"},
		{ProductID: soldOut.ID, Size: "10"},
	}))

	orch := newOrchestrator(db, carts, nil, nil)
	_, err := orch.Checkout(ctx, user, Request{Method: models.PaymentMethodCash})

	var unavailable *ItemUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "Jordan 1", unavailable.ProductName)

	var count int64
	db.Model(&models.Order{}).Count(&count)
	assert.Zero(t, count, "no orders should be created when any item is out of stock")
}

func TestCheckoutEmptyCart(t *testing.T) {
	db := newTestDB(t)
	carts := cartstore.NewMemory()
	user := seedUser(t, db)

	orch := newOrchestrator(db, carts, nil, nil)
	_, err := orch.Checkout(context.Background(), user, Request{Method: models.PaymentMethodCash})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutCashOnDelivery(t *testing.T) {
	db := newTestDB(t)
	carts := cartstore.NewMemory()
	user := seedUser(t, db)
	product := seedProduct(t, db, "Air Max", 4500, map[string]int{"9": 1})

	ctx := context.Background()
	require.NoError(t, carts.Replace(ctx, user.ID, []models.CartItem{{ProductID: product.ID, Size: "9"}}))

	orch := newOrchestrator(db, carts, nil, nil)
	result, err := orch.Checkout(ctx, user, Request{Method: models.PaymentMethodCash, PhoneNumber: "0712345678"})
	require.NoError(t, err)
	require.Len(t, result.OrderIDs, 1)

	var order models.Order
	require.NoError(t, db.First(&order, result.OrderIDs[0]).Error)
	assert.Equal(t, models.PaymentStatusCashOnDelivery, order.PaymentStatus)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, 4500.0, order.Amount)

	// Cash defers the stock deduction to manual fulfillment.
	assert.Equal(t, 1, stockOf(t, db, product.ID, "9"))

	items, err := carts.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, items, "cart should be cleared after a cash checkout")
}

func TestCheckoutManualCodeStaysPending(t *testing.T) {
	db := newTestDB(t)
	carts := cartstore.NewMemory()
	user := seedUser(t, db)
	product := seedProduct(t, db, "Air Max", 4500, map[string]int{"9": 2})

	ctx := context.Background()
	require.NoError(t, carts.Replace(ctx, user.ID, []models.CartItem{{ProductID: product.ID, Size: "9"}}))

	orch := newOrchestrator(db, carts, nil, nil)
	result, err := orch.Checkout(ctx, user, Request{
		Method:      models.PaymentMethodManualMpesa,
		PaymentCode: "QWE123XYZ",
	})
	require.NoError(t, err)

	var order models.Order
	require.NoError(t, db.First(&order, result.OrderIDs[0]).Error)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, "QWE123XYZ", order.PaymentCode)
	assert.Equal(t, 2, stockOf(t, db, product.ID, "9"))
}

func TestCheckoutManualCodeRequired(t *testing.T) {
	db := newTestDB(t)
	carts := cartstore.NewMemory()
	user := seedUser(t, db)
	product := seedProduct(t, db, "Air Max", 4500, map[string]int{"9": 2})

	ctx := context.Background()
	require.NoError(t, carts.Replace(ctx, user.ID, []models.CartItem{{ProductID: product.ID, Size: "9"}}))

	orch := newOrchestrator(db, carts, nil, nil)
	_, err := orch.Checkout(ctx, user, Request{Method: models.PaymentMethodManualMpesa})
	assert.ErrorIs(t, err, ErrPaymentInit)
}

func TestCheckoutSTKFailureKeepsOrdersPending(t *testing.T) {
	db := newTestDB(t)
	carts := cartstore.NewMemory()
	user := seedUser(t, db)
	product := seedProduct(t, db, "Air Max", 4500, map[string]int{"9": 2})

	ctx := context.Background()
	require.NoError(t, carts.Replace(ctx, user.ID, []models.CartItem{{ProductID: product.ID, Size: "9"}}))

	cfg := testConfig()
	cfg.Mpesa = config.MpesaConfig{
		ConsumerKey: "k", ConsumerSecret: "s", Shortcode: "174379", Passkey: "p",
	}
	gateway := &fakeSTK{err: errors.New("daraja unreachable")}
	orch := NewOrchestrator(db, carts, gateway, nil, nil, nil, cfg, zerolog.Nop())

	_, err := orch.Checkout(ctx, user, Request{
		Method:     models.PaymentMethodMpesaSTK,
		MpesaPhone: "0712345678",
	})
	require.ErrorIs(t, err, ErrPaymentInit)

	// The orders survive the failed initiation for a later retry.
	var orders []models.Order
	require.NoError(t, db.Find(&orders).Error)
	require.Len(t, orders, 1)
	assert.Equal(t, models.PaymentStatusPending, orders[0].PaymentStatus)

	items, _ := carts.Get(ctx, user.ID)
	assert.Len(t, items, 1, "cart must survive a failed payment initiation")
}

func TestCheckoutSTKStoresCorrelationID(t *testing.T) {
	db := newTestDB(t)
	carts := cartstore.NewMemory()
	user := seedUser(t, db)
	product := seedProduct(t, db, "Air Max", 4500, map[string]int{"9": 2})

	ctx := context.Background()
	require.NoError(t, carts.Replace(ctx, user.ID, []models.CartItem{{ProductID: product.ID, Size: "9"}}))

	cfg := testConfig()
	cfg.Mpesa = config.MpesaConfig{
		ConsumerKey: "k", ConsumerSecret: "s", Shortcode: "174379", Passkey: "p",
	}
	gateway := &fakeSTK{resp: &mpesa.STKPushResponse{
		CheckoutRequestID: "ws_CO_191220191020363925",
		MerchantRequestID: "29115-34620561-1",
		ResponseCode:      "0",
	}}
	orch := NewOrchestrator(db, carts, gateway, nil, nil, nil, cfg, zerolog.Nop())

	result, err := orch.Checkout(ctx, user, Request{
		Method:     models.PaymentMethodMpesaSTK,
		MpesaPhone: "0712345678",
	})
	require.NoError(t, err)
	assert.Equal(t, result.OrderIDs[0], result.PollOrderID)

	var order models.Order
	require.NoError(t, db.First(&order, result.OrderIDs[0]).Error)
	assert.Equal(t, "ws_CO_191220191020363925", order.PaymentTransactionID)
	assert.Equal(t, "254712345678", order.PhoneNumber)
}

func TestFinalizeIdempotentOnDuplicateCallback(t *testing.T) {
	db := newTestDB(t)
	carts := cartstore.NewMemory()
	user := seedUser(t, db)
	product := seedProduct(t, db, "Air Max", 4500, map[string]int{"9": 3})

	productID := product.ID
	order := models.Order{
		UserID:               user.ID,
		ProductID:            &productID,
		Size:                 "9",
		Amount:               4500,
		PaymentMethod:        models.PaymentMethodMpesaSTK,
		PaymentStatus:        models.PaymentStatusPending,
		Status:               models.OrderStatusPending,
		PaymentTransactionID: "ws_CO_test",
	}
	require.NoError(t, db.Create(&order).Error)

	orch := newOrchestrator(db, carts, nil, nil)
	outcome := Outcome{Success: true, Receipt: "NLJ7RT61SV", Amount: 4500}

	ctx := context.Background()
	affected, err := orch.Finalize(ctx, "ws_CO_test", outcome)
	require.NoError(t, err)
	assert.Equal(t, 1, affected)

	// Second delivery of the same callback is a no-op.
	affected, err = orch.Finalize(ctx, "ws_CO_test", outcome)
	require.NoError(t, err)
	assert.Zero(t, affected)

	var got models.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	assert.Equal(t, models.PaymentStatusCompleted, got.PaymentStatus)
	assert.Equal(t, models.OrderStatusProcessing, got.Status)
	assert.Equal(t, "NLJ7RT61SV", got.PaymentReference)

	assert.Equal(t, 2, stockOf(t, db, product.ID, "9"), "stock decremented exactly once")
}

func TestFinalizeFailureCancelsPendingOrders(t *testing.T) {
	db := newTestDB(t)
	carts := cartstore.NewMemory()
	user := seedUser(t, db)
	product := seedProduct(t, db, "Air Max", 4500, map[string]int{"9": 3})

	ctx := context.Background()
	require.NoError(t, carts.Replace(ctx, user.ID, []models.CartItem{{ProductID: product.ID, Size: "9"}}))

	productID := product.ID
	order := models.Order{
		UserID:               user.ID,
		ProductID:            &productID,
		Size:                 "9",
		PaymentMethod:        models.PaymentMethodPesapal,
		PaymentStatus:        models.PaymentStatusPending,
		Status:               models.OrderStatusPending,
		PaymentTransactionID: "track-123",
	}
	require.NoError(t, db.Create(&order).Error)

	orch := newOrchestrator(db, carts, nil, nil)
	_, err := orch.Finalize(ctx, "track-123", Outcome{Success: false})
	require.NoError(t, err)

	var got models.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	assert.Equal(t, models.PaymentStatusFailed, got.PaymentStatus)
	assert.Equal(t, models.OrderStatusCancelled, got.Status)

	assert.Equal(t, 3, stockOf(t, db, product.ID, "9"))
	items, _ := carts.Get(ctx, user.ID)
	assert.Len(t, items, 1, "a failed payment must not clear the cart")
}

func TestFinalizeFailureNeverUncompletesOrder(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	product := seedProduct(t, db, "Air Max", 4500, map[string]int{"9": 3})

	productID := product.ID
	order := models.Order{
		UserID:               user.ID,
		ProductID:            &productID,
		Size:                 "9",
		PaymentMethod:        models.PaymentMethodMpesaSTK,
		PaymentStatus:        models.PaymentStatusCompleted,
		Status:               models.OrderStatusProcessing,
		PaymentTransactionID: "ws_CO_done",
	}
	require.NoError(t, db.Create(&order).Error)

	orch := newOrchestrator(db, cartstore.NewMemory(), nil, nil)
	affected, err := orch.Finalize(context.Background(), "ws_CO_done", Outcome{Success: false})
	require.NoError(t, err)
	assert.Zero(t, affected)

	var got models.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	assert.Equal(t, models.PaymentStatusCompleted, got.PaymentStatus)
}

func TestFinalizeUnknownTransaction(t *testing.T) {
	db := newTestDB(t)
	orch := newOrchestrator(db, cartstore.NewMemory(), nil, nil)
	_, err := orch.Finalize(context.Background(), "nope", Outcome{Success: true})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestReconcileRedirectFailedIPN(t *testing.T) {
	db := newTestDB(t)
	carts := cartstore.NewMemory()
	user := seedUser(t, db)
	product := seedProduct(t, db, "Air Max", 4500, map[string]int{"9": 2})

	ctx := context.Background()
	require.NoError(t, carts.Replace(ctx, user.ID, []models.CartItem{{ProductID: product.ID, Size: "9"}}))

	productID := product.ID
	order := models.Order{
		UserID:               user.ID,
		ProductID:            &productID,
		Size:                 "9",
		PaymentMethod:        models.PaymentMethodPesapal,
		PaymentStatus:        models.PaymentStatusPending,
		Status:               models.OrderStatusPending,
		PaymentTransactionID: "track-failed",
	}
	require.NoError(t, db.Create(&order).Error)

	redir := &fakeRedirect{status: &pesapal.TransactionStatus{
		StatusCode:               pesapal.StatusCodeFailed,
		PaymentStatusDescription: "Failed",
	}}
	orch := newOrchestrator(db, carts, nil, redir)

	success, err := orch.ReconcileRedirect(ctx, "track-failed", false)
	require.NoError(t, err)
	assert.False(t, success)

	var got models.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	assert.Equal(t, models.PaymentStatusFailed, got.PaymentStatus)
	assert.Equal(t, 2, stockOf(t, db, product.ID, "9"))
	items, _ := carts.Get(ctx, user.ID)
	assert.Len(t, items, 1)
}

func TestReconcileRedirectCompletedClearsCartWhenInline(t *testing.T) {
	db := newTestDB(t)
	carts := cartstore.NewMemory()
	user := seedUser(t, db)
	product := seedProduct(t, db, "Air Max", 4500, map[string]int{"9": 2})

	ctx := context.Background()
	require.NoError(t, carts.Replace(ctx, user.ID, []models.CartItem{{ProductID: product.ID, Size: "9"}}))

	productID := product.ID
	order := models.Order{
		UserID:               user.ID,
		ProductID:            &productID,
		Size:                 "9",
		PaymentMethod:        models.PaymentMethodPesapal,
		PaymentStatus:        models.PaymentStatusPending,
		Status:               models.OrderStatusPending,
		PaymentTransactionID: "track-ok",
	}
	require.NoError(t, db.Create(&order).Error)

	redir := &fakeRedirect{status: &pesapal.TransactionStatus{
		StatusCode:       pesapal.StatusCodeCompleted,
		ConfirmationCode: "CONF-9",
	}}
	orch := newOrchestrator(db, carts, nil, redir)

	success, err := orch.ReconcileRedirect(ctx, "track-ok", true)
	require.NoError(t, err)
	assert.True(t, success)

	var got models.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	assert.Equal(t, models.PaymentStatusCompleted, got.PaymentStatus)
	assert.Equal(t, 1, stockOf(t, db, product.ID, "9"))

	items, _ := carts.Get(ctx, user.ID)
	assert.Empty(t, items)
}

func TestVerifyManualPayment(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db)
	product := seedProduct(t, db, "Air Max", 4500, map[string]int{"9": 2})

	productID := product.ID
	order := models.Order{
		UserID:        user.ID,
		ProductID:     &productID,
		Size:          "9",
		PaymentMethod: models.PaymentMethodManualMpesa,
		PaymentStatus: models.PaymentStatusPending,
		Status:        models.OrderStatusPending,
		PaymentCode:   "QWE123XYZ",
	}
	require.NoError(t, db.Create(&order).Error)

	orch := newOrchestrator(db, cartstore.NewMemory(), nil, nil)
	ctx := context.Background()

	// Wrong code mutates nothing.
	err := orch.VerifyManualPayment(ctx, order.ID, "WRONG")
	require.ErrorIs(t, err, ErrCodeMismatch)
	var got models.Order
	require.NoError(t, db.First(&got, order.ID).Error)
	assert.Equal(t, models.PaymentStatusPending, got.PaymentStatus)
	assert.Equal(t, 2, stockOf(t, db, product.ID, "9"))

	// Matching code completes the order and takes one unit off.
	require.NoError(t, orch.VerifyManualPayment(ctx, order.ID, "QWE123XYZ"))
	require.NoError(t, db.First(&got, order.ID).Error)
	assert.Equal(t, models.PaymentStatusCompleted, got.PaymentStatus)
	assert.Equal(t, models.OrderStatusVerified, got.Status)
	assert.Equal(t, 1, stockOf(t, db, product.ID, "9"))

	// Verifying again is a no-op.
	require.NoError(t, orch.VerifyManualPayment(ctx, order.ID, "QWE123XYZ"))
	assert.Equal(t, 1, stockOf(t, db, product.ID, "9"))
}

func TestValidateCartSkipsDeletedProducts(t *testing.T) {
	db := newTestDB(t)
	product := seedProduct(t, db, "Air Max", 4500, map[string]int{"9": 2})

	orch := newOrchestrator(db, cartstore.NewMemory(), nil, nil)
	lines, total, err := orch.ValidateCart(context.Background(), []models.CartItem{
		{ProductID: product.ID, Size: "9"},
		{ProductID: 9999, Size: "10"},
	})
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 4500.0, total)
}

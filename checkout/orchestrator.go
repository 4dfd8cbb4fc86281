// Package checkout turns a validated session cart into orders, dispatches
// to a payment gateway, and finalizes order state and stock once a payment
// outcome is known.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/kimthedrew/legit-collections/cartstore"
	"github.com/kimthedrew/legit-collections/config"
	"github.com/kimthedrew/legit-collections/models"
	"github.com/kimthedrew/legit-collections/payments/mpesa"
	"github.com/kimthedrew/legit-collections/payments/pesapal"
)

// STKGateway is the push-payment side of the orchestrator.
type STKGateway interface {
	InitiateSTKPush(ctx context.Context, in mpesa.STKPushRequest) (*mpesa.STKPushResponse, error)
}

// RedirectGateway is the hosted-page side of the orchestrator.
type RedirectGateway interface {
	RegisterIPN(ctx context.Context, ipnURL string) (string, error)
	SubmitOrder(ctx context.Context, in pesapal.OrderRequest) (*pesapal.OrderResponse, error)
	GetTransactionStatus(ctx context.Context, orderTrackingID string) (*pesapal.TransactionStatus, error)
}

// Mailer sends best-effort customer notifications. Failures are logged,
// never propagated.
type Mailer interface {
	SendOrderConfirmation(to, name string, orders []models.Order) error
}

// Broadcaster pushes newly created orders to the admin live feed.
type Broadcaster interface {
	BroadcastOrder(order models.Order)
}

type Orchestrator struct {
	db     *gorm.DB
	carts  cartstore.Store
	stk    STKGateway
	redir  RedirectGateway
	mailer Mailer
	feed   Broadcaster
	cfg    *config.Config
	logger zerolog.Logger

	mu    sync.Mutex
	ipnID string
}

func NewOrchestrator(db *gorm.DB, carts cartstore.Store, stk STKGateway, redir RedirectGateway, mailer Mailer, feed Broadcaster, cfg *config.Config, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		db:     db,
		carts:  carts,
		stk:    stk,
		redir:  redir,
		mailer: mailer,
		feed:   feed,
		cfg:    cfg,
		logger: logger.With().Str("component", "checkout").Logger(),
		ipnID:  cfg.Pesapal.IPNID,
	}
}

// Line is a validated cart line ready to become an order.
type Line struct {
	Product models.Product
	Size    string
	Price   float64
}

// ValidateCart checks every cart line against current inventory: the
// product must still exist and the size must have at least one unit. Any
// failure rejects the whole attempt. Read-only; nothing is reserved.
// Lines whose product has been deleted since selection are skipped.
func (o *Orchestrator) ValidateCart(ctx context.Context, items []models.CartItem) ([]Line, float64, error) {
	var (
		lines []Line
		total float64
	)
	for _, item := range items {
		var product models.Product
		err := o.db.WithContext(ctx).Preload("Sizes").First(&product, "id = ?", item.ProductID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, 0, err
		}

		size := product.SizeFor(item.Size)
		if size == nil || size.Quantity < 1 {
			return nil, 0, &ItemUnavailableError{ProductName: product.Name, Size: item.Size}
		}

		lines = append(lines, Line{Product: product, Size: item.Size, Price: product.Price})
		total += product.Price
	}
	if len(lines) == 0 {
		return nil, 0, ErrEmptyCart
	}
	return lines, total, nil
}

// Request carries the chosen payment method and its parameters.
type Request struct {
	Method      models.PaymentMethod
	PhoneNumber string
	// MpesaPhone is the number the STK PIN prompt goes to.
	MpesaPhone string
	// PaymentCode is the customer-entered code on the manual path.
	PaymentCode string
}

// Result is what the handler relays back to the client.
type Result struct {
	OrderIDs []uint `json:"order_ids"`
	// RedirectURL is set on the hosted-page path.
	RedirectURL string `json:"redirect_url,omitempty"`
	// PollOrderID is set on the push path; the client polls its status.
	PollOrderID uint   `json:"poll_order_id,omitempty"`
	Message     string `json:"message"`
}

// Checkout validates the cart, creates one Pending order per line, then
// dispatches to the chosen payment path. Orders are created before any
// external call so a fast callback can already find them; they are never
// deleted afterwards, whatever the gateway does.
func (o *Orchestrator) Checkout(ctx context.Context, user models.User, req Request) (*Result, error) {
	items, err := o.carts.Get(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	lines, total, err := o.ValidateCart(ctx, items)
	if err != nil {
		return nil, err
	}

	orders := make([]models.Order, 0, len(lines))
	err = o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, line := range lines {
			productID := line.Product.ID
			order := models.Order{
				UserID:        user.ID,
				ProductID:     &productID,
				Size:          line.Size,
				Amount:        line.Price,
				PhoneNumber:   req.PhoneNumber,
				PaymentMethod: req.Method,
				PaymentStatus: models.PaymentStatusPending,
				Status:        models.OrderStatusPending,
			}
			if err := tx.Create(&order).Error; err != nil {
				return err
			}
			orders = append(orders, order)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	orderIDs := make([]uint, len(orders))
	for i, ord := range orders {
		orderIDs[i] = ord.ID
	}

	var result *Result
	switch req.Method {
	case models.PaymentMethodCash:
		result, err = o.settleCash(ctx, user, orderIDs)
	case models.PaymentMethodManualMpesa:
		result, err = o.settleManualCode(ctx, user, orderIDs, req.PaymentCode)
	case models.PaymentMethodMpesaSTK:
		result, err = o.initiateSTK(ctx, user, orderIDs, total, req.MpesaPhone)
	case models.PaymentMethodPesapal:
		result, err = o.initiatePesapal(ctx, user, orderIDs, total, req.PhoneNumber)
	default:
		return nil, fmt.Errorf("unsupported payment method %q", req.Method)
	}
	if err != nil {
		return nil, err
	}
	result.OrderIDs = orderIDs

	for _, ord := range orders {
		o.broadcast(ord)
	}
	return result, nil
}

// settleCash moves orders straight to pay-on-delivery. Stock is not
// touched: cash orders deduct inventory during manual fulfillment.
func (o *Orchestrator) settleCash(ctx context.Context, user models.User, orderIDs []uint) (*Result, error) {
	err := o.db.WithContext(ctx).Model(&models.Order{}).
		Where("id IN ?", orderIDs).
		Update("payment_status", models.PaymentStatusCashOnDelivery).Error
	if err != nil {
		return nil, err
	}
	if err := o.carts.Clear(ctx, user.ID); err != nil {
		o.logger.Warn().Err(err).Uint("user_id", user.ID).Msg("failed to clear cart")
	}
	o.sendConfirmation(user, orderIDs)
	return &Result{Message: "Order placed. Pay when you receive your items."}, nil
}

// settleManualCode stores the customer's transaction code; payment stays
// Pending until an operator verifies the code, which is also when stock
// comes off.
func (o *Orchestrator) settleManualCode(ctx context.Context, user models.User, orderIDs []uint, code string) (*Result, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: payment code is required", ErrPaymentInit)
	}
	err := o.db.WithContext(ctx).Model(&models.Order{}).
		Where("id IN ?", orderIDs).
		Update("payment_code", code).Error
	if err != nil {
		return nil, err
	}
	if err := o.carts.Clear(ctx, user.ID); err != nil {
		o.logger.Warn().Err(err).Uint("user_id", user.ID).Msg("failed to clear cart")
	}
	return &Result{Message: "Payment submitted. We will verify and process your order shortly."}, nil
}

func (o *Orchestrator) initiateSTK(ctx context.Context, user models.User, orderIDs []uint, total float64, phone string) (*Result, error) {
	if o.stk == nil {
		return nil, fmt.Errorf("%w: M-Pesa is not configured, please use another payment method", ErrPaymentInit)
	}
	if ok, reason := o.cfg.Mpesa.Configured(); !ok {
		return nil, fmt.Errorf("%w: %s, please use another payment method", ErrPaymentInit, reason)
	}

	primary := orderIDs[0]
	resp, err := o.stk.InitiateSTKPush(ctx, mpesa.STKPushRequest{
		PhoneNumber:      phone,
		Amount:           total,
		AccountReference: fmt.Sprintf("ORDER-%d", primary),
		Description:      fmt.Sprintf("LegitCollections Order #%d", primary),
		CallbackURL:      o.cfg.Server.BaseURL + "/mpesa/callback",
	})
	if err != nil {
		o.logger.Error().Err(err).Msg("STK push failed")
		return nil, fmt.Errorf("%w: %v", ErrPaymentInit, err)
	}

	formatted := mpesa.FormatPhone(phone)
	err = o.db.WithContext(ctx).Model(&models.Order{}).
		Where("id IN ?", orderIDs).
		Updates(map[string]interface{}{
			"payment_transaction_id": resp.CheckoutRequestID,
			"payment_reference":      resp.MerchantRequestID,
			"phone_number":           formatted,
		}).Error
	if err != nil {
		return nil, err
	}

	return &Result{
		PollOrderID: primary,
		Message:     "Payment request sent. Check your phone and enter your M-Pesa PIN.",
	}, nil
}

func (o *Orchestrator) initiatePesapal(ctx context.Context, user models.User, orderIDs []uint, total float64, phone string) (*Result, error) {
	if o.redir == nil {
		return nil, fmt.Errorf("%w: card payments are not configured, please use another payment method", ErrPaymentInit)
	}

	notificationID, err := o.notificationID(ctx)
	if err != nil {
		o.logger.Error().Err(err).Msg("IPN registration failed")
		return nil, fmt.Errorf("%w: %v", ErrPaymentInit, err)
	}

	primary := orderIDs[0]
	resp, err := o.redir.SubmitOrder(ctx, pesapal.OrderRequest{
		MerchantReference: fmt.Sprintf("ORDER-%d-%s", primary, uuid.NewString()),
		Amount:            total,
		Description:       fmt.Sprintf("Order #%d - LegitCollections", primary),
		CallbackURL:       o.cfg.Server.BaseURL + "/pesapal/callback",
		NotificationID:    notificationID,
		CustomerEmail:     user.Email,
		CustomerPhone:     phone,
	})
	if err != nil {
		o.logger.Error().Err(err).Msg("pesapal order submission failed")
		return nil, fmt.Errorf("%w: %v", ErrPaymentInit, err)
	}

	err = o.db.WithContext(ctx).Model(&models.Order{}).
		Where("id IN ?", orderIDs).
		Updates(map[string]interface{}{
			"payment_transaction_id": resp.OrderTrackingID,
			"payment_reference":      resp.MerchantReference,
		}).Error
	if err != nil {
		return nil, err
	}

	return &Result{
		RedirectURL: resp.RedirectURL,
		Message:     "Redirecting to payment page.",
	}, nil
}

// notificationID returns the registered IPN id, registering the endpoint
// once if configuration does not already carry one.
func (o *Orchestrator) notificationID(ctx context.Context) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ipnID != "" {
		return o.ipnID, nil
	}
	id, err := o.redir.RegisterIPN(ctx, o.cfg.Server.BaseURL+"/pesapal/ipn")
	if err != nil {
		return "", err
	}
	o.ipnID = id
	return id, nil
}

func (o *Orchestrator) broadcast(order models.Order) {
	if o.feed != nil {
		o.feed.BroadcastOrder(order)
	}
}

func (o *Orchestrator) sendConfirmation(user models.User, orderIDs []uint) {
	if o.mailer == nil {
		return
	}
	var orders []models.Order
	if err := o.db.Preload("Product").Where("id IN ?", orderIDs).Find(&orders).Error; err != nil {
		o.logger.Warn().Err(err).Msg("failed to load orders for confirmation mail")
		return
	}
	if err := o.mailer.SendOrderConfirmation(user.Email, user.Name, orders); err != nil {
		o.logger.Warn().Err(err).Str("email", user.Email).Msg("failed to send confirmation mail")
	}
}

// Outcome is a reconciled external payment event.
type Outcome struct {
	Success bool
	// Receipt is the provider receipt / confirmation code.
	Receipt string
	Amount  float64
	Phone   string
	// ClearCart clears the payer's cart; set on inline (user-present)
	// successes only.
	ClearCart bool
}

// Finalize applies a payment outcome to every order carrying the external
// transaction id. Confirmation channels deliver at least once, so this is
// idempotent: orders already Completed are untouched and stock comes off
// at most once per order, through an atomic conditional decrement.
// Returns the number of orders transitioned.
func (o *Orchestrator) Finalize(ctx context.Context, transactionID string, outcome Outcome) (int, error) {
	if transactionID == "" {
		return 0, errors.New("missing transaction id")
	}

	var (
		affected int
		payer    *models.Order
	)
	err := o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var orders []models.Order
		if err := tx.Where("payment_transaction_id = ?", transactionID).
			Find(&orders).Error; err != nil {
			return err
		}
		if len(orders) == 0 {
			return gorm.ErrRecordNotFound
		}

		for i := range orders {
			order := &orders[i]
			if outcome.Success {
				if order.PaymentStatus == models.PaymentStatusCompleted {
					continue
				}
				order.PaymentStatus = models.PaymentStatusCompleted
				order.Status = models.OrderStatusProcessing
				if outcome.Receipt != "" {
					order.PaymentReference = outcome.Receipt
				}
				if outcome.Amount > 0 {
					order.Amount = outcome.Amount
				}
				if outcome.Phone != "" {
					order.PhoneNumber = outcome.Phone
				}
				if err := tx.Save(order).Error; err != nil {
					return err
				}
				if err := o.decrementStock(tx, order); err != nil {
					return err
				}
				affected++
				payer = order
			} else {
				if order.PaymentStatus == models.PaymentStatusCompleted {
					// A decline can never undo a completed payment.
					continue
				}
				order.PaymentStatus = models.PaymentStatusFailed
				if order.Status == models.OrderStatusPending {
					order.Status = models.OrderStatusCancelled
				}
				if err := tx.Save(order).Error; err != nil {
					return err
				}
				affected++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if outcome.Success && payer != nil {
		if outcome.ClearCart {
			if err := o.carts.Clear(ctx, payer.UserID); err != nil {
				o.logger.Warn().Err(err).Uint("user_id", payer.UserID).Msg("failed to clear cart")
			}
		}
		var user models.User
		if err := o.db.First(&user, payer.UserID).Error; err == nil {
			var ids []uint
			o.db.Model(&models.Order{}).Where("payment_transaction_id = ?", transactionID).Pluck("id", &ids)
			o.sendConfirmation(user, ids)
		}
	}
	return affected, nil
}

// decrementStock takes one unit off the order's (product, size) row with a
// single conditional update, so concurrent confirmations cannot oversell.
// An already-empty row is logged and tolerated.
func (o *Orchestrator) decrementStock(tx *gorm.DB, order *models.Order) error {
	if order.ProductID == nil || order.Size == "" || order.Size == "N/A" {
		return nil
	}
	res := tx.Model(&models.SizeStock{}).
		Where("product_id = ? AND size = ? AND quantity > 0", *order.ProductID, order.Size).
		UpdateColumn("quantity", gorm.Expr("quantity - 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		o.logger.Warn().
			Uint("order_id", order.ID).
			Uint("product_id", *order.ProductID).
			Str("size", order.Size).
			Msg("stock already at zero during finalize")
	}
	return nil
}

// ReconcileRedirect resolves a hosted-page payment by querying transaction
// status for a tracking id. Both the browser return and the IPN land here,
// so duplicate delivery is handled by Finalize's idempotence.
func (o *Orchestrator) ReconcileRedirect(ctx context.Context, orderTrackingID string, clearCart bool) (bool, error) {
	if o.redir == nil {
		return false, errors.New("redirect gateway not configured")
	}
	status, err := o.redir.GetTransactionStatus(ctx, orderTrackingID)
	if err != nil {
		return false, err
	}

	success := pesapal.IsPaymentSuccessful(status.StatusCode)
	outcome := Outcome{
		Success:   success,
		Receipt:   status.ConfirmationCode,
		ClearCart: clearCart && success,
	}
	if _, err := o.Finalize(ctx, orderTrackingID, outcome); err != nil {
		return success, err
	}
	return success, nil
}

// VerifyManualPayment is the operator-triggered reconcile for the manual
// code path: an exact string comparison, no external call. On match the
// order completes, moves to Verified and its stock unit comes off (once).
func (o *Orchestrator) VerifyManualPayment(ctx context.Context, orderID uint, adminCode string) error {
	return o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			return err
		}
		if order.PaymentCode == "" || order.PaymentCode != adminCode {
			return ErrCodeMismatch
		}
		if order.PaymentStatus == models.PaymentStatusCompleted {
			return nil
		}
		order.PaymentStatus = models.PaymentStatusCompleted
		order.Status = models.OrderStatusVerified
		if err := tx.Save(&order).Error; err != nil {
			return err
		}
		return o.decrementStock(tx, &order)
	})
}

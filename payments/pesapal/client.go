// Package pesapal is a client for the Pesapal v3 API: the merchant submits
// an order and redirects the customer to a hosted payment page; the outcome
// arrives via the browser's return to a callback URL and via an IPN, both
// of which are resolved by querying transaction status.
package pesapal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kimthedrew/legit-collections/config"
)

// Transaction status codes returned by GetTransactionStatus.
const (
	StatusCodeInvalid   = 0
	StatusCodeCompleted = 1
	StatusCodeFailed    = 2
	StatusCodeReversed  = 3
)

// IsPaymentSuccessful reports whether a status code means the payment
// completed. Every other code is treated as failure.
func IsPaymentSuccessful(statusCode int) bool {
	return statusCode == StatusCodeCompleted
}

const (
	sandboxBaseURL = "https://cybqa.pesapal.com/pesapalv3"
	liveBaseURL    = "https://pay.pesapal.com/v3"

	// Tokens are valid for five minutes; reuse them for four.
	tokenReuseWindow = 4 * time.Minute
)

type Client struct {
	cfg     config.PesapalConfig
	http    *http.Client
	logger  zerolog.Logger
	baseURL string
	now     func() time.Time

	mu             sync.Mutex
	token          string
	tokenExpiresAt time.Time
}

func NewClient(cfg config.PesapalConfig, logger zerolog.Logger) *Client {
	baseURL := sandboxBaseURL
	if cfg.Environment == "live" {
		baseURL = liveBaseURL
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger.With().Str("component", "pesapal").Logger(),
		baseURL: baseURL,
		now:     time.Now,
	}
}

// AccessToken returns a bearer token, reusing the cached one while it is
// still inside its validity window.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiresAt) {
		return c.token, nil
	}

	payload := map[string]string{
		"consumer_key":    c.cfg.ConsumerKey,
		"consumer_secret": c.cfg.ConsumerSecret,
	}
	body, err := c.post(ctx, "/api/Auth/RequestToken", "", payload)
	if err != nil {
		return "", err
	}

	var data struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("failed to parse Pesapal auth response: %w", err)
	}
	if data.Token == "" {
		return "", fmt.Errorf("pesapal returned empty token")
	}

	c.token = data.Token
	c.tokenExpiresAt = c.now().Add(tokenReuseWindow)
	return c.token, nil
}

// RegisterIPN registers the notification endpoint and returns its id.
// Call once; the id is normally carried in configuration afterwards.
func (c *Client) RegisterIPN(ctx context.Context, ipnURL string) (string, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return "", err
	}

	payload := map[string]string{
		"url":                   ipnURL,
		"ipn_notification_type": "GET",
	}
	body, err := c.post(ctx, "/api/URLSetup/RegisterIPN", token, payload)
	if err != nil {
		return "", err
	}

	var data struct {
		IPNID string `json:"ipn_id"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("failed to parse IPN registration response: %w", err)
	}
	if data.IPNID == "" {
		return "", fmt.Errorf("pesapal returned empty ipn_id")
	}

	c.logger.Info().Str("ipn_id", data.IPNID).Msg("IPN URL registered")
	return data.IPNID, nil
}

type OrderRequest struct {
	MerchantReference string
	Amount            float64
	Description       string
	CallbackURL       string
	NotificationID    string
	CustomerEmail     string
	CustomerPhone     string
}

type OrderResponse struct {
	OrderTrackingID   string `json:"order_tracking_id"`
	MerchantReference string `json:"merchant_reference"`
	RedirectURL       string `json:"redirect_url"`
	Status            string `json:"status"`
	Error             *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// SubmitOrder registers the payment and returns the hosted-page URL plus
// the tracking id used by both reconcile paths.
func (c *Client) SubmitOrder(ctx context.Context, in OrderRequest) (*OrderResponse, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"id":              in.MerchantReference,
		"currency":        "KES",
		"amount":          in.Amount,
		"description":     in.Description,
		"callback_url":    in.CallbackURL,
		"notification_id": in.NotificationID,
		"billing_address": map[string]string{
			"email_address": in.CustomerEmail,
			"phone_number":  in.CustomerPhone,
			"country_code":  "KE",
		},
	}

	body, err := c.post(ctx, "/api/Transactions/SubmitOrderRequest", token, payload)
	if err != nil {
		return nil, err
	}

	var out OrderResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse Pesapal order response: %w", err)
	}
	if out.Error != nil && out.Error.Message != "" {
		return nil, fmt.Errorf("pesapal error: %s", out.Error.Message)
	}
	if out.RedirectURL == "" {
		return nil, fmt.Errorf("pesapal returned empty redirect URL")
	}
	return &out, nil
}

type TransactionStatus struct {
	PaymentStatusDescription string  `json:"payment_status_description"`
	StatusCode               int     `json:"status_code"`
	Amount                   float64 `json:"amount"`
	Currency                 string  `json:"currency"`
	PaymentMethod            string  `json:"payment_method"`
	ConfirmationCode         string  `json:"confirmation_code"`
	PaymentAccount           string  `json:"payment_account"`
	MerchantReference        string  `json:"merchant_reference"`
}

// GetTransactionStatus queries the state of a transaction by tracking id.
func (c *Client) GetTransactionStatus(ctx context.Context, orderTrackingID string) (*TransactionStatus, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/api/Transactions/GetTransactionStatus?orderTrackingId=%s", c.baseURL, orderTrackingID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach Pesapal: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pesapal API error (%d): %s", resp.StatusCode, string(body))
	}

	var out TransactionStatus
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse transaction status: %w", err)
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path, token string, payload interface{}) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach Pesapal: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pesapal API error (%d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// Package mpesa is a client for the Safaricom Daraja STK push API: the
// merchant initiates a charge and the provider pushes a PIN prompt to the
// customer's phone, reporting the outcome on an asynchronous callback.
package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kimthedrew/legit-collections/config"
)

// ResultCodeSuccess is the callback/query result code for a completed payment.
const ResultCodeSuccess = 0

const (
	sandboxBaseURL    = "https://sandbox.safaricom.co.ke"
	productionBaseURL = "https://api.safaricom.co.ke"
)

type Client struct {
	cfg     config.MpesaConfig
	http    *http.Client
	logger  zerolog.Logger
	baseURL string
	// now is swappable for tests of the password derivation.
	now func() time.Time
}

func NewClient(cfg config.MpesaConfig, logger zerolog.Logger) *Client {
	baseURL := sandboxBaseURL
	if cfg.Environment == "production" {
		baseURL = productionBaseURL
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger.With().Str("component", "mpesa").Logger(),
		baseURL: baseURL,
		now:     time.Now,
	}
}

// AccessToken obtains a short-lived OAuth bearer token.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	url := c.baseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	credentials := c.cfg.ConsumerKey + ":" + c.cfg.ConsumerSecret
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(credentials)))

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach M-Pesa: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("m-pesa auth error (%d): %s", resp.StatusCode, string(body))
	}

	var data struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return "", fmt.Errorf("failed to parse M-Pesa auth response: %w", err)
	}
	if data.AccessToken == "" {
		return "", fmt.Errorf("m-pesa returned empty access token")
	}
	return data.AccessToken, nil
}

// Password derives the STK push password: base64(shortcode+passkey+timestamp).
func (c *Client) Password() (password, timestamp string) {
	timestamp = c.now().Format("20060102150405")
	raw := c.cfg.Shortcode + c.cfg.Passkey + timestamp
	return base64.StdEncoding.EncodeToString([]byte(raw)), timestamp
}

type STKPushRequest struct {
	PhoneNumber      string
	Amount           float64
	AccountReference string
	Description      string
	CallbackURL      string
}

type STKPushResponse struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResponseCode      string `json:"ResponseCode"`
	ResponseDesc      string `json:"ResponseDescription"`
	CustomerMessage   string `json:"CustomerMessage"`
}

// InitiateSTKPush submits a charge request. The returned CheckoutRequestID
// is the correlation id the asynchronous callback carries.
func (c *Client) InitiateSTKPush(ctx context.Context, in STKPushRequest) (*STKPushResponse, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	password, timestamp := c.Password()
	phone := FormatPhone(in.PhoneNumber)

	payload := map[string]interface{}{
		"BusinessShortCode": c.cfg.Shortcode,
		"Password":          password,
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            int(in.Amount), // whole shillings only
		"PartyA":            phone,
		"PartyB":            c.cfg.Shortcode,
		"PhoneNumber":       phone,
		"CallBackURL":       in.CallbackURL,
		"AccountReference":  in.AccountReference,
		"TransactionDesc":   in.Description,
	}

	c.logger.Info().Str("phone", phone).Float64("amount", in.Amount).Msg("initiating STK push")

	body, err := c.post(ctx, "/mpesa/stkpush/v1/processrequest", token, payload)
	if err != nil {
		return nil, err
	}

	var out STKPushResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse STK push response: %w", err)
	}
	if out.ResponseCode != "0" {
		return nil, fmt.Errorf("stk push rejected: %s", out.ResponseDesc)
	}
	return &out, nil
}

type QueryResponse struct {
	ResponseCode string `json:"ResponseCode"`
	ResultCode   string `json:"ResultCode"`
	ResultDesc   string `json:"ResultDesc"`
}

// QueryStatus checks the state of a previously initiated STK transaction.
func (c *Client) QueryStatus(ctx context.Context, checkoutRequestID string) (*QueryResponse, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	password, timestamp := c.Password()
	payload := map[string]interface{}{
		"BusinessShortCode": c.cfg.Shortcode,
		"Password":          password,
		"Timestamp":         timestamp,
		"CheckoutRequestID": checkoutRequestID,
	}

	body, err := c.post(ctx, "/mpesa/stkpushquery/v1/query", token, payload)
	if err != nil {
		return nil, err
	}

	var out QueryResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse STK query response: %w", err)
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
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach M-Pesa: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("m-pesa API error (%d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// FormatPhone normalizes a phone number to the 254XXXXXXXXX form the API
// requires. Unrecognized shapes are returned digits-only, unchanged.
func FormatPhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	p := digits.String()
	switch {
	case strings.HasPrefix(p, "254"):
		return p
	case strings.HasPrefix(p, "0"):
		return "254" + p[1:]
	case strings.HasPrefix(p, "7"), strings.HasPrefix(p, "1"):
		return "254" + p
	}
	return p
}

package pesapal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimthedrew/legit-collections/config"
)

func newTestClient(serverURL string) *Client {
	c := NewClient(config.PesapalConfig{
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
	}, zerolog.Nop())
	c.baseURL = serverURL
	return c
}

func TestAccessTokenCaching(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/Auth/RequestToken", r.URL.Path)
		calls++
		fmt.Fprintf(w, `{"token": "token-%d"}`, calls)
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }

	ctx := context.Background()
	token, err := c.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)

	// Inside the reuse window the cached token is returned.
	current = current.Add(3 * time.Minute)
	token, err = c.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-1", token)
	assert.Equal(t, 1, calls)

	// Past the window a fresh token is fetched.
	current = current.Add(2 * time.Minute)
	token, err = c.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-2", token)
	assert.Equal(t, 2, calls)
}

func TestSubmitOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/Auth/RequestToken":
			fmt.Fprint(w, `{"token": "tok"}`)
		case "/api/Transactions/SubmitOrderRequest":
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			fmt.Fprint(w, `{
				"order_tracking_id": "b945e4af-80a5-4ec1-8706-e03f8332fb04",
				"merchant_reference": "ORDER-1-x",
				"redirect_url": "https://cybqa.pesapal.com/pesapaliframe/PesapalIframe3/Index?OrderTrackingId=b945e4af",
				"status": "200"
			}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	resp, err := c.SubmitOrder(context.Background(), OrderRequest{
		MerchantReference: "ORDER-1-x",
		Amount:            4500,
		CallbackURL:       "http://localhost/pesapal/callback",
		NotificationID:    "ipn-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "b945e4af-80a5-4ec1-8706-e03f8332fb04", resp.OrderTrackingID)
	assert.NotEmpty(t, resp.RedirectURL)
}

func TestGetTransactionStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/Auth/RequestToken":
			fmt.Fprint(w, `{"token": "tok"}`)
		case "/api/Transactions/GetTransactionStatus":
			assert.Equal(t, "b945e4af", r.URL.Query().Get("orderTrackingId"))
			fmt.Fprint(w, `{
				"payment_status_description": "Completed",
				"status_code": 1,
				"amount": 4500,
				"confirmation_code": "CONF-99"
			}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	status, err := c.GetTransactionStatus(context.Background(), "b945e4af")
	require.NoError(t, err)
	assert.Equal(t, StatusCodeCompleted, status.StatusCode)
	assert.Equal(t, "CONF-99", status.ConfirmationCode)
	assert.True(t, IsPaymentSuccessful(status.StatusCode))
}

func TestIsPaymentSuccessful(t *testing.T) {
	assert.True(t, IsPaymentSuccessful(StatusCodeCompleted))
	assert.False(t, IsPaymentSuccessful(StatusCodeInvalid))
	assert.False(t, IsPaymentSuccessful(StatusCodeFailed))
	assert.False(t, IsPaymentSuccessful(StatusCodeReversed))
}

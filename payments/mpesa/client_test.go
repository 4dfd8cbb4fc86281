package mpesa

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kimthedrew/legit-collections/config"
)

func TestFormatPhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0712345678", "254712345678"},
		{"+254712345678", "254712345678"},
		{"254712345678", "254712345678"},
		{"712345678", "254712345678"},
		{"0110123456", "254110123456"},
		{"110123456", "254110123456"},
		{"07 1234 5678", "254712345678"},
		{"0712-345-678", "254712345678"},
		{"44123456789", "44123456789"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPhone(tt.in))
		})
	}
}

func TestPassword(t *testing.T) {
	c := NewClient(config.MpesaConfig{
		Shortcode: "174379",
		Passkey:   "bfb279f9aa9bdbcf158e97dd71a467cd2e0c893059b10f78e6b72ada1ed2c919",
	}, zerolog.Nop())
	c.now = func() time.Time {
		return time.Date(2019, 12, 19, 10, 20, 36, 0, time.UTC)
	}

	password, timestamp := c.Password()
	assert.Equal(t, "20191219102036", timestamp)

	decoded, err := base64.StdEncoding.DecodeString(password)
	require.NoError(t, err)
	assert.Equal(t, "174379bfb279f9aa9bdbcf158e97dd71a467cd2e0c893059b10f78e6b72ada1ed2c91920191219102036", string(decoded))
}

func TestCallbackReceiptExtraction(t *testing.T) {
	payload := `{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": "ws_CO_191220191020363925",
				"ResultCode": 0,
				"ResultDesc": "The service request is processed successfully.",
				"CallbackMetadata": {
					"Item": [
						{"Name": "Amount", "Value": 4500.00},
						{"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
						{"Name": "TransactionDate", "Value": 20191219102115},
						{"Name": "PhoneNumber", "Value": 254712345678}
					]
				}
			}
		}
	}`

	var envelope CallbackEnvelope
	require.NoError(t, json.Unmarshal([]byte(payload), &envelope))

	cb := envelope.Body.STKCallback
	assert.True(t, cb.Succeeded())
	assert.Equal(t, "ws_CO_191220191020363925", cb.CheckoutRequestID)

	receipt, amount, phone := cb.Receipt()
	assert.Equal(t, "NLJ7RT61SV", receipt)
	assert.Equal(t, 4500.0, amount)
	assert.Equal(t, "254712345678", phone)
}

func TestCallbackFailureHasNoMetadata(t *testing.T) {
	payload := `{
		"Body": {
			"stkCallback": {
				"MerchantRequestID": "29115-34620561-1",
				"CheckoutRequestID": "ws_CO_191220191020363925",
				"ResultCode": 1032,
				"ResultDesc": "Request cancelled by user."
			}
		}
	}`

	var envelope CallbackEnvelope
	require.NoError(t, json.Unmarshal([]byte(payload), &envelope))

	cb := envelope.Body.STKCallback
	assert.False(t, cb.Succeeded())

	receipt, amount, phone := cb.Receipt()
	assert.Empty(t, receipt)
	assert.Zero(t, amount)
	assert.Empty(t, phone)
}

func TestAck(t *testing.T) {
	data, err := json.Marshal(Ack())
	require.NoError(t, err)
	assert.JSONEq(t, `{"ResultCode": 0, "ResultDesc": "Accepted"}`, string(data))
}

package mpesa

import "strconv"

// CallbackEnvelope is the body the Daraja API posts to the merchant
// callback URL after the customer responds to the PIN prompt.
type CallbackEnvelope struct {
	Body struct {
		STKCallback STKCallback `json:"stkCallback"`
	} `json:"Body"`
}

type STKCallback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        int    `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CallbackMetadata  struct {
		Item []MetadataItem `json:"Item"`
	} `json:"CallbackMetadata"`
}

type MetadataItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

// Succeeded reports whether the callback describes a completed payment.
func (cb *STKCallback) Succeeded() bool {
	return cb.ResultCode == ResultCodeSuccess
}

// Receipt extracts the receipt number, confirmed amount and payer phone
// from the callback metadata. Fields absent on failure callbacks are
// returned zero-valued.
func (cb *STKCallback) Receipt() (receipt string, amount float64, phone string) {
	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "MpesaReceiptNumber":
			receipt, _ = item.Value.(string)
		case "Amount":
			amount, _ = item.Value.(float64)
		case "PhoneNumber":
			switch v := item.Value.(type) {
			case string:
				phone = v
			case float64:
				phone = strconv.FormatInt(int64(v), 10)
			}
		}
	}
	return receipt, amount, phone
}

// AckResponse is what the callback handler must always return: a success
// envelope regardless of internal outcome, so the provider stops retrying.
type AckResponse struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

func Ack() AckResponse {
	return AckResponse{ResultCode: 0, ResultDesc: "Accepted"}
}

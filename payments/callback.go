package payments

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

type CallbackItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value"`
}

type STKCallbackPayload struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
			CallbackMetadata  struct {
				Item []CallbackItem `json:"Item"`
			} `json:"CallbackMetadata"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// CallbackResult is the flattened view of an STK callback.
type CallbackResult struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Amount            decimal.Decimal
	PhoneNumber       string
	ReceiptNumber     string
}

func (r *CallbackResult) Success() bool {
	return r.ResultCode == 0
}

// ParseSTKCallback decodes a provider notification. On a successful result the
// Amount and PhoneNumber items are required.
func ParseSTKCallback(payload []byte) (*CallbackResult, error) {
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()

	var cb STKCallbackPayload
	if err := dec.Decode(&cb); err != nil {
		return nil, fmt.Errorf("failed to parse callback: %w", err)
	}

	stk := cb.Body.StkCallback
	result := &CallbackResult{
		MerchantRequestID: stk.MerchantRequestID,
		CheckoutRequestID: stk.CheckoutRequestID,
		ResultCode:        stk.ResultCode,
		ResultDesc:        stk.ResultDesc,
	}
	if !result.Success() {
		return result, nil
	}

	for _, item := range stk.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			amount, err := decimalValue(item.Value)
			if err != nil {
				return nil, fmt.Errorf("invalid Amount item: %w", err)
			}
			result.Amount = amount
		case "PhoneNumber":
			result.PhoneNumber = stringValue(item.Value)
		case "MpesaReceiptNumber":
			result.ReceiptNumber = stringValue(item.Value)
		}
	}

	if !result.Amount.IsPositive() {
		return nil, fmt.Errorf("callback metadata missing Amount")
	}
	if result.PhoneNumber == "" {
		return nil, fmt.Errorf("callback metadata missing PhoneNumber")
	}
	return result, nil
}

func decimalValue(v interface{}) (decimal.Decimal, error) {
	switch val := v.(type) {
	case json.Number:
		return decimal.NewFromString(val.String())
	case string:
		return decimal.NewFromString(val)
	case float64:
		return decimal.NewFromFloat(val), nil
	default:
		return decimal.Zero, fmt.Errorf("unexpected type %T", v)
	}
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case json.Number:
		return val.String()
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', 0, 64)
	default:
		return ""
	}
}

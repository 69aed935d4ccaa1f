package vakifkatilim

import (
	"testing"
	"time"

	"github.com/mstgnz/gopos/mapper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMapper(t *testing.T) *Mapper {
	t.Helper()
	m, err := NewMapper(mapper.Config{})
	require.NoError(t, err)
	return m.(*Mapper)
}

func TestMapCurrencyPadding(t *testing.T) {
	m := newTestMapper(t)

	assert.Equal(t, mapper.CurrencyTRY, m.mapCurrency("949"))
	assert.Equal(t, mapper.CurrencyTRY, m.mapCurrency("0949"))
	assert.Equal(t, mapper.CurrencyUSD, m.mapCurrency(840))
	assert.Nil(t, m.mapCurrency(nil))
	assert.Equal(t, "12", m.mapCurrency("12"), "unknown codes are not padded")
	assert.Equal(t, "0012", m.mapCurrency("0012"))
}

func TestMapPaymentResponse(t *testing.T) {
	m := newTestMapper(t)
	order := mapper.Order{ID: "VK-1", Amount: 10.01, Currency: mapper.CurrencyTRY}

	raw := map[string]any{
		"VPosMessage": map[string]any{
			"OrderId":          "4480",
			"MerchantOrderId":  "VK-1",
			"Amount":           "1001",
			"CurrencyCode":     "949",
			"InstallmentCount": "0",
		},
		"IsEnrolled":      "true",
		"ProvisionNumber": "896626",
		"RRN":             "904115005554",
		"Stan":            "005554",
		"ResponseCode":    "00",
		"ResponseMessage": "OTORİZASYON VERİLDİ",
		"OrderId":         "4480",
		"TransactionTime": "2019-02-10T12:00:37.0000000",
		"MerchantOrderId": "VK-1",
	}

	res, err := m.MapPaymentResponse(raw, mapper.TxTypePayAuth, order)
	require.NoError(t, err)
	assert.Equal(t, mapper.TxApproved, res["status"])
	assert.Equal(t, "VK-1", res["order_id"])
	assert.Equal(t, "4480", res["remote_order_id"])
	assert.Equal(t, "896626", res["auth_code"])
	assert.Equal(t, "005554", res["transaction_id"])
	assert.Equal(t, 10.01, res["amount"])
	assert.Equal(t, mapper.CurrencyTRY, res["currency"])
	assert.Equal(t, time.Date(2019, 2, 10, 12, 0, 37, 0, mapper.Location), res["transaction_time"])

	raw["ResponseCode"] = "51"
	raw["ResponseMessage"] = "Yetersiz bakiye"
	res, err = m.MapPaymentResponse(raw, mapper.TxTypePayAuth, order)
	require.NoError(t, err)
	assert.Equal(t, mapper.TxDeclined, res["status"])
	assert.Equal(t, "51", res["error_code"])
	assert.Equal(t, "insufficient_balance", res["status_detail"])
	assert.Nil(t, res["auth_code"])
}

func TestMap3DPaymentData(t *testing.T) {
	m := newTestMapper(t)
	order := mapper.Order{ID: "VK-3D", Amount: 10.01, Currency: mapper.CurrencyTRY}

	raw3D := map[string]any{
		"VPosMessage": map[string]any{
			"MerchantOrderId": "VK-3D",
			"Amount":          "1001",
			"CurrencyCode":    "0949",
		},
		"ResponseCode":    "00",
		"ResponseMessage": "Kart doğrulandı.",
		"MerchantOrderId": "VK-3D",
		"OrderId":         "4481",
		"MD":              "67YtBfBRTZ0XBKnAHi8c/A==",
	}

	res, err := m.Map3DPaymentData(raw3D, map[string]any{
		"ResponseCode":    "00",
		"ProvisionNumber": "896627",
		"RRN":             "904115005555",
		"Stan":            "005555",
		"OrderId":         "4481",
		"MerchantOrderId": "VK-3D",
	}, mapper.TxTypePayAuth, order)
	require.NoError(t, err)
	assert.Equal(t, mapper.TxApproved, res["status"])
	assert.Equal(t, "00", res["md_status"])
	assert.Equal(t, "896627", res["auth_code"])
	assert.Equal(t, mapper.Model3DSecure, res["payment_model"])
	assert.Nil(t, res["transaction_security"])

	raw3D["ResponseCode"] = "HashDataError"
	raw3D["ResponseMessage"] = "Şifrelenen veriler (Hashdata) uyuşmamaktadır."
	res, err = m.Map3DPaymentData(raw3D, nil, mapper.TxTypePayAuth, order)
	require.NoError(t, err)
	assert.Equal(t, mapper.TxDeclined, res["status"])
	assert.Equal(t, "HashDataError", res["error_code"])
	assert.Equal(t, "invalid_transaction", res["status_detail"])
}

func TestMap3DHostResponseData(t *testing.T) {
	m := newTestMapper(t)
	order := mapper.Order{ID: "VK-H", Amount: 5, Currency: mapper.CurrencyTRY}

	res, err := m.Map3DHostResponseData(map[string]any{
		"ResponseCode":    "00",
		"MerchantOrderId": "VK-H",
		"OrderId":         "4490",
		"ProvisionNumber": "111111",
	}, mapper.TxTypePayAuth, order)
	require.NoError(t, err)
	assert.Equal(t, mapper.TxApproved, res["status"])
	assert.Equal(t, mapper.Model3DHost, res["payment_model"])
	assert.Equal(t, 5.0, res["amount"])
	assert.Equal(t, "111111", res["auth_code"])

	_, err = m.Map3DPayResponseData(nil, mapper.TxTypePayAuth, order)
	assert.True(t, mapper.IsUnsupported(err))
}

func TestMapRefundResponse(t *testing.T) {
	m := newTestMapper(t)

	res, err := m.MapCancelResponse(map[string]any{
		"ResponseCode":    "00",
		"MerchantOrderId": "VK-1",
		"OrderId":         "4480",
		"RRN":             "904115005554",
	})
	require.NoError(t, err)
	assert.Equal(t, mapper.TxApproved, res["status"])
	assert.Equal(t, "4480", res["remote_order_id"])

	res, err = m.MapRefundResponse(map[string]any{
		"ResponseCode":    "ReversalNotAvailable",
		"ResponseMessage": "İade edilemez",
	})
	require.NoError(t, err)
	assert.Equal(t, mapper.TxDeclined, res["status"])
	assert.Equal(t, "ReversalNotAvailable", res["error_code"])
}

func contract(merchantOrderID, lastStatus, txType string) map[string]any {
	return map[string]any{
		"MerchantOrderId":  merchantOrderID,
		"OrderId":          "4480",
		"ProvNumber":       "896626",
		"RRN":              "904115005554",
		"Stan":             "005554",
		"CardNumber":       "5188 96** **** 7725",
		"FEC":              "949",
		"InstallmentCount": "0",
		"OrderDate":        "2019-02-10T12:00:37.0000000",
		"FirstAmount":      "10.01",
		"TranAmount":       "10.01",
		"LastOrderStatus":  lastStatus,
		"TransactionType":  txType,
		"ResponseCode":     "00",
	}
}

func TestMapStatusResponse(t *testing.T) {
	m := newTestMapper(t)

	tests := []struct {
		name        string
		lastStatus  string
		wantStatus  any
		wantCapture any
	}{
		{"completed", "1", mapper.OrderStatusCompleted, true},
		{"canceled", "6", mapper.OrderStatusCanceled, nil},
		{"unknown", "9", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := m.MapStatusResponse(map[string]any{
				"ResponseCode": "00",
				"VPosOrderData": map[string]any{
					"OrderContract": contract("VK-1", tt.lastStatus, "Sale"),
				},
			})
			require.NoError(t, err)
			assert.Equal(t, mapper.TxApproved, res["status"])
			assert.Equal(t, tt.wantStatus, res["order_status"])
			assert.Equal(t, tt.wantCapture, res["capture"])
			assert.Equal(t, 10.01, res["first_amount"])
			assert.Equal(t, mapper.CurrencyTRY, res["currency"])
			assert.Equal(t, mapper.TxTypePayAuth, res["transaction_type"])
		})
	}

	res, err := m.MapStatusResponse(map[string]any{
		"ResponseCode":    "OrderNotFound",
		"ResponseMessage": "Sipariş bulunamadı",
	})
	require.NoError(t, err)
	assert.Equal(t, mapper.TxDeclined, res["status"])
	assert.Equal(t, "payment_not_found", res["status_detail"])
}

func TestMapHistoryResponse(t *testing.T) {
	m := newTestMapper(t)

	declined := contract("VK-2", "", "Sale")
	declined["ResponseCode"] = "51"
	declined["ResponseExplain"] = "Yetersiz bakiye"

	res, err := m.MapHistoryResponse(map[string]any{
		"ResponseCode": "00",
		"VPosOrderData": map[string]any{
			"OrderContract": []any{
				contract("VK-1", "1", "Sale"),
				declined,
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, mapper.TxApproved, res["status"])
	assert.Equal(t, 2, res["trans_count"])
	txs := res.Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, mapper.TxApproved, txs[0]["status"])
	assert.Equal(t, true, txs[0]["capture"])
	assert.Equal(t, mapper.TxDeclined, txs[1]["status"])
	assert.Equal(t, "Yetersiz bakiye", txs[1]["error_message"])

	res, err = m.MapOrderHistoryResponse(map[string]any{
		"ResponseCode": "00",
		"VPosOrderData": map[string]any{
			"OrderContract": contract("VK-1", "4", "Sale"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "VK-1", res["order_id"])
	assert.Equal(t, 1, res["trans_count"])
	assert.Equal(t, mapper.OrderStatusFullyRefunded, res.Transactions()[0]["order_status"])
}

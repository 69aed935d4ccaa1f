package kuveyt

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

func TestSupports(t *testing.T) {
	assert.True(t, Supports("kuveyt"))
	assert.True(t, Supports("kuveytpos"))
	assert.True(t, mapper.Supports("kuveyt-turk"))
	assert.False(t, Supports("vakifkatilim"))
}

func TestMapPaymentResponse_Approved(t *testing.T) {
	m := newTestMapper(t)

	raw := map[string]any{
		"ResponseCode":    "00",
		"ProvisionNumber": "123456",
		"MerchantOrderId": "ORD1",
		"OrderId":         "99",
		"RRN":             "rrn1",
		"Stan":            "stan1",
		"VPosMessage": map[string]any{
			"Amount":           "10000",
			"CurrencyCode":     "0949",
			"InstallmentCount": "0",
			"CardNumber":       "4355...4358",
		},
	}

	res, err := m.MapPaymentResponse(raw, mapper.TxTypePayAuth, mapper.Order{ID: "ORD1", Amount: 100, Currency: mapper.CurrencyTRY})
	require.NoError(t, err)

	expected := map[string]any{
		"status":            mapper.TxApproved,
		"order_id":          "ORD1",
		"remote_order_id":   "99",
		"auth_code":         "123456",
		"ref_ret_num":       "rrn1",
		"transaction_id":    "stan1",
		"amount":            100.00,
		"currency":          mapper.CurrencyTRY,
		"installment_count": 0,
		"masked_number":     "4355...4358",
		"error_code":        nil,
		"error_message":     nil,
	}
	for key, value := range expected {
		assert.Equal(t, value, res[key], key)
	}
	assert.Equal(t, raw, res["all"])
}

func TestMapPaymentResponse_Declined(t *testing.T) {
	m := newTestMapper(t)

	raw := map[string]any{
		"ResponseCode":    "51",
		"ResponseMessage": "Yetersiz bakiye",
		"MerchantOrderId": "ORD2",
		"OrderId":         "0",
		"VPosMessage": map[string]any{
			"Amount":       "150",
			"CurrencyCode": "0840",
		},
	}

	res, err := m.MapPaymentResponse(raw, mapper.TxTypePayAuth, mapper.Order{})
	require.NoError(t, err)

	assert.Equal(t, mapper.TxDeclined, res["status"])
	assert.Equal(t, "51", res["error_code"])
	assert.Equal(t, "Yetersiz bakiye", res["error_message"])
	assert.Equal(t, "insufficient_balance", res["status_detail"])
	assert.Equal(t, 1.5, res["amount"])
	assert.Equal(t, mapper.CurrencyUSD, res["currency"])
	assert.Nil(t, res["auth_code"])
}

func TestMap3DPaymentData(t *testing.T) {
	m := newTestMapper(t)

	raw3D := map[string]any{
		"ResponseCode":    "00",
		"ResponseMessage": "Kart doğrulandı.",
		"MerchantOrderId": "ORD3",
		"OrderId":         "0",
		"MD":              "67YtBfBRTZ0XBKnAHi8c/A==",
		"VPosMessage": map[string]any{
			"Amount":           "1001",
			"CurrencyCode":     "0949",
			"InstallmentCount": "0",
			"CardNumber":       "5188...8882",
		},
	}

	t.Run("authenticated", func(t *testing.T) {
		rawPayment := map[string]any{
			"ResponseCode":    "00",
			"ResponseMessage": "OTORİZASYON VERİLDİ",
			"ProvisionNumber": "896626",
			"MerchantOrderId": "ORD3",
			"OrderId":         "4480",
			"RRN":             "904115005554",
			"Stan":            "005554",
			"TransactionTime": "2019-02-10T15:00:04.123",
			"VPosMessage": map[string]any{
				"Amount":       "1001",
				"CurrencyCode": "0949",
			},
		}

		assert.Equal(t, "00", m.ExtractMdStatus(raw3D))
		res, err := m.Map3DPaymentData(raw3D, rawPayment, mapper.TxTypePayAuth, mapper.Order{ID: "ORD3"})
		require.NoError(t, err)

		assert.Equal(t, mapper.TxApproved, res["status"])
		assert.Equal(t, "4480", res["remote_order_id"])
		assert.Equal(t, "896626", res["auth_code"])
		assert.Equal(t, 10.01, res["amount"])
		assert.Equal(t, "5188...8882", res["masked_number"])
		assert.Equal(t, time.Date(2019, 2, 10, 15, 0, 4, 123000000, mapper.Location), res["transaction_time"])
		assert.Equal(t, rawPayment, res["all"])
		assert.Equal(t, raw3D, res["3d_all"])
		assert.Nil(t, res["error_message"])
	})

	t.Run("authentication failed", func(t *testing.T) {
		failed := map[string]any{
			"ResponseCode":    "HashDataError",
			"ResponseMessage": "Şifrelenen veriler (Hashdata) uyuşmamaktadır.",
			"MerchantOrderId": "ORD3",
		}
		res, err := m.Map3DPaymentData(failed, nil, mapper.TxTypePayAuth, mapper.Order{})
		require.NoError(t, err)

		assert.Equal(t, mapper.TxDeclined, res["status"])
		assert.Equal(t, "HashDataError", res["error_code"])
		assert.Equal(t, "invalid_transaction", res["status_detail"])
		assert.Equal(t, res["error_message"], res["md_error_message"])
	})
}

func TestUnsupportedOperations(t *testing.T) {
	m := newTestMapper(t)

	_, err := m.Map3DPayResponseData(nil, mapper.TxTypePayAuth, mapper.Order{})
	assert.True(t, mapper.IsUnsupported(err))
	_, err = m.Map3DHostResponseData(nil, mapper.TxTypePayAuth, mapper.Order{})
	assert.True(t, mapper.IsUnsupported(err))
	_, err = m.MapHistoryResponse(nil)
	assert.True(t, mapper.IsUnsupported(err))
	_, err = m.MapOrderHistoryResponse(nil)
	assert.True(t, mapper.IsUnsupported(err))
}

func TestMapRefundResponse(t *testing.T) {
	m := newTestMapper(t)

	tests := []struct {
		name       string
		raw        map[string]any
		wantStatus string
		wantCode   any
	}{
		{
			name: "partial drawback approved",
			raw: map[string]any{
				"PartialDrawbackResponse": map[string]any{
					"PartialDrawbackResult": map[string]any{
						"Results": map[string]any{},
						"Success": "true",
						"Value": map[string]any{
							"MerchantOrderId": "ORD1",
							"OrderId":         "114293600",
							"ProvisionNumber": "241839",
							"RRN":             "300311113407",
							"ResponseCode":    "00",
							"Stan":            "113407",
						},
					},
				},
			},
			wantStatus: mapper.TxApproved,
			wantCode:   nil,
		},
		{
			name: "drawback with result error",
			raw: map[string]any{
				"DrawBackResponse": map[string]any{
					"DrawBackResult": map[string]any{
						"Results": map[string]any{
							"Result": map[string]any{
								"ErrorCode":    "MerchantOrderIdRequired",
								"ErrorMessage": "Üye işyeri sipariş numarası zorunludur.",
							},
						},
						"Success": "false",
					},
				},
			},
			wantStatus: mapper.TxDeclined,
			wantCode:   "MerchantOrderIdRequired",
		},
		{
			name: "reversal declined by bank",
			raw: map[string]any{
				"SaleReversalResponse": map[string]any{
					"SaleReversalResult": map[string]any{
						"Results": map[string]any{"Result": []any{}},
						"Success": "true",
						"Value": map[string]any{
							"ResponseCode":    "ReversalNotAvailable",
							"ResponseMessage": "İptal edilemez",
						},
					},
				},
			},
			wantStatus: mapper.TxDeclined,
			wantCode:   "ReversalNotAvailable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := m.MapRefundResponse(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res["status"])
			assert.Equal(t, tt.wantCode, res["error_code"])
			if tt.wantStatus == mapper.TxDeclined {
				assert.NotNil(t, res["error_message"])
			}
		})
	}
}

func TestMapStatusResponse(t *testing.T) {
	m := newTestMapper(t)

	raw := map[string]any{
		"GetMerchantOrderDetailResponse": map[string]any{
			"GetMerchantOrderDetailResult": map[string]any{
				"Results": map[string]any{},
				"Success": "true",
				"Value": map[string]any{
					"OrderContract": map[string]any{
						"OrderId":          "114293600",
						"MerchantOrderId":  "ORD1",
						"CardNumber":       "5188 96** **** 7197",
						"OrderDate":        "2023-01-20T15:37:49.45",
						"LastOrderStatus":  "1",
						"FirstAmount":      "1.01",
						"DrawbackAmount":   "0.00",
						"FEC":              "0949",
						"InstallmentCount": "0",
						"ResponseCode":     "00",
						"ProvNumber":       "241839",
						"RRN":              "300311113407",
						"Stan":             "113407",
					},
				},
			},
		},
	}

	res, err := m.MapStatusResponse(raw)
	require.NoError(t, err)

	assert.Equal(t, mapper.TxApproved, res["status"])
	assert.Equal(t, mapper.OrderStatusCompleted, res["order_status"])
	assert.Equal(t, "114293600", res["remote_order_id"])
	assert.Equal(t, 1.01, res["first_amount"])
	assert.Equal(t, 1.01, res["capture_amount"])
	assert.Equal(t, true, res["capture"])
	assert.Nil(t, res["refund_amount"])
	assert.Equal(t, mapper.CurrencyTRY, res["currency"])
	assert.Equal(t, time.Date(2023, 1, 20, 15, 37, 49, 450000000, mapper.Location), res["transaction_time"])
}

func TestMapEmptyResponses(t *testing.T) {
	m := newTestMapper(t)

	res, err := m.MapPaymentResponse(map[string]any{}, mapper.TxTypePayAuth, mapper.Order{})
	require.NoError(t, err)
	assert.Equal(t, mapper.TxDeclined, res["status"])

	res, err = m.MapCancelResponse(map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, mapper.TxDeclined, res["status"])

	res, err = m.MapStatusResponse(nil)
	require.NoError(t, err)
	assert.Equal(t, mapper.TxDeclined, res["status"])
}

package tosla

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

func TestMapPaymentResponse(t *testing.T) {
	m := newTestMapper(t)
	order := mapper.Order{ID: "TSL-1", Amount: 1000.01, Currency: mapper.CurrencyTRY}

	tests := []struct {
		name        string
		raw         map[string]any
		wantStatus  string
		wantCode    any
		wantMessage any
	}{
		{
			name: "approved",
			raw: map[string]any{
				"OrderId":             "TSL-1",
				"BankResponseCode":    "00",
				"BankResponseMessage": "",
				"AuthCode":            "S90370",
				"HostReferenceNumber": "RRN",
				"TransactionId":       "TRID",
				"Code":                float64(0),
				"Message":             "Başarılı",
			},
			wantStatus: mapper.TxApproved,
		},
		{
			name: "declined by bank",
			raw: map[string]any{
				"OrderId":             "TSL-1",
				"BankResponseCode":    "51",
				"BankResponseMessage": "Yetersiz bakiye",
				"Code":                float64(0),
				"Message":             "Başarılı",
			},
			wantStatus:  mapper.TxDeclined,
			wantCode:    "51",
			wantMessage: "Yetersiz bakiye",
		},
		{
			name: "api error",
			raw: map[string]any{
				"Code":    float64(999),
				"Message": "Genel Hata",
			},
			wantStatus:  mapper.TxDeclined,
			wantCode:    "999",
			wantMessage: "Genel Hata",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := m.MapPaymentResponse(tt.raw, mapper.TxTypePayAuth, order)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res["status"])
			assert.Equal(t, tt.wantCode, res["error_code"])
			assert.Equal(t, tt.wantMessage, res["error_message"])
			assert.Equal(t, "TSL-1", res["order_id"])
		})
	}
}

func TestMap3DPayResponseData(t *testing.T) {
	m := newTestMapper(t)
	order := mapper.Order{ID: "TSL-3D", Amount: 1000.01, Currency: mapper.CurrencyTRY}

	callback := map[string]any{
		"OrderId":             "TSL-3D",
		"MdStatus":            "1",
		"ThreeDSessionId":     "P6D383818909442128AB6DF8BD0E4A5A2E7D6DE2E3D5E4",
		"BankResponseCode":    "00",
		"BankResponseMessage": "",
		"RequestStatus":       "1",
		"HashParameters":      "ClientId,ApiUser,OrderId,MdStatus,BankResponseCode,BankResponseMessage,RequestStatus",
		"Hash":                "Ww0kVtVUmZlO7o+aVWzq4Oqv0D8=",
		"Amount":              "100001",
		"Currency":            "949",
	}

	res, err := m.Map3DPayResponseData(callback, mapper.TxTypePayAuth, order)
	require.NoError(t, err)
	assert.Equal(t, mapper.TxApproved, res["status"])
	assert.Equal(t, 1000.01, res["amount"])
	assert.Equal(t, mapper.CurrencyTRY, res["currency"])
	assert.Equal(t, mapper.SecurityFull3D, res["transaction_security"])

	callback["MdStatus"] = "0"
	callback["BankResponseCode"] = ""
	callback["BankResponseMessage"] = "Doğrulama başarısız"
	res, err = m.Map3DHostResponseData(callback, mapper.TxTypePayAuth, order)
	require.NoError(t, err)
	assert.Equal(t, mapper.TxDeclined, res["status"])
	assert.Equal(t, "0", res["error_code"])
	assert.Equal(t, "Doğrulama başarısız", res["md_error_message"])
	assert.Equal(t, mapper.Model3DHost, res["payment_model"])

	_, err = m.Map3DPaymentData(callback, nil, mapper.TxTypePayAuth, order)
	assert.ErrorIs(t, err, mapper.ErrUnsupportedOperation)
}

func TestMapStatusResponse(t *testing.T) {
	m := newTestMapper(t)

	tests := []struct {
		requestStatus string
		wantStatus    any
		wantCapture   any
		wantRefund    any
	}{
		{"1", mapper.OrderStatusCompleted, true, nil},
		{"2", mapper.OrderStatusCanceled, nil, nil},
		{"4", mapper.OrderStatusPartiallyRefunded, nil, 500.0},
		{"9", nil, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.requestStatus, func(t *testing.T) {
			res, err := m.MapStatusResponse(map[string]any{
				"Code":                float64(0),
				"OrderId":             "TSL-S",
				"TransactionId":       "TRID",
				"BankResponseCode":    "00",
				"Amount":              float64(100001),
				"RefundedAmount":      float64(50000),
				"Currency":            float64(949),
				"InstallmentCount":    float64(0),
				"TransactionType":     float64(1),
				"RequestStatus":       tt.requestStatus,
				"CreateDate":          "20231209154531",
				"MaskedCardNo":        "415956******7732",
				"HostReferenceNumber": "RRN",
			})
			require.NoError(t, err)
			assert.Equal(t, mapper.TxApproved, res["status"])
			assert.Equal(t, tt.wantStatus, res["order_status"])
			assert.Equal(t, tt.wantCapture, res["capture"])
			assert.Equal(t, tt.wantRefund, res["refund_amount"])
			assert.Equal(t, 1000.01, res["first_amount"])
			assert.Equal(t, mapper.CurrencyTRY, res["currency"])
			assert.Equal(t, mapper.TxTypePayAuth, res["transaction_type"])
			assert.Equal(t, time.Date(2023, 12, 9, 15, 45, 31, 0, mapper.Location), res["transaction_time"])
		})
	}
}

func TestMinorAmountRoundTrip(t *testing.T) {
	assert.Equal(t, 1000.01, mapper.FormatMinorAmount("100001"))
	assert.Equal(t, 1000.01, mapper.FormatMinorAmount(float64(100001)))
	assert.Equal(t, 0.01, mapper.FormatMinorAmount("1"))
}

func TestMapHistoryResponse(t *testing.T) {
	m := newTestMapper(t)

	raw := map[string]any{
		"Code":    float64(0),
		"Message": "",
		"Count":   float64(2),
		"Transactions": []any{
			map[string]any{
				"OrderId":          "TSL-H",
				"Amount":           float64(2500),
				"Currency":         float64(949),
				"TransactionType":  float64(1),
				"RequestStatus":    float64(1),
				"BankResponseCode": "00",
				"CreateDate":       "20231209154531",
			},
			map[string]any{
				"OrderId":             "TSL-H",
				"Amount":              float64(2500),
				"Currency":            float64(949),
				"TransactionType":     float64(1),
				"RequestStatus":       float64(0),
				"BankResponseCode":    "05",
				"BankResponseMessage": "Red",
				"CreateDate":          "20231209154000",
			},
		},
	}

	res, err := m.MapOrderHistoryResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, mapper.TxApproved, res["status"])
	assert.Equal(t, "TSL-H", res["order_id"])
	assert.Equal(t, 2, res["trans_count"])
	txs := res.Transactions()
	require.Len(t, txs, 2)
	assert.Equal(t, mapper.TxApproved, txs[0]["status"])
	assert.Equal(t, 25.0, txs[0]["first_amount"])
	assert.Equal(t, true, txs[0]["capture"])
	assert.Equal(t, mapper.TxDeclined, txs[1]["status"])
	assert.Equal(t, "05", txs[1]["error_code"])
	assert.Equal(t, mapper.OrderStatusError, txs[1]["order_status"])

	res, err = m.MapHistoryResponse(map[string]any{"Code": float64(999), "Message": "Genel Hata"})
	require.NoError(t, err)
	assert.Equal(t, mapper.TxDeclined, res["status"])
	assert.Equal(t, 0, res["trans_count"])
}

package posnetv1

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

func serviceData(code, description string) map[string]any {
	return map[string]any{
		"ResponseCode":        code,
		"ResponseDescription": description,
		"ApprovedCode":        "",
		"IsSuccessfull":       code == "0000",
	}
}

func TestMapPaymentResponse(t *testing.T) {
	m := newTestMapper(t)
	order := mapper.Order{ID: "ALB_TEST_1", Amount: 1.01, Currency: mapper.CurrencyTRY, Installment: 3}

	tests := []struct {
		name       string
		raw        map[string]any
		wantStatus string
		wantCode   any
		wantAuth   any
	}{
		{
			name: "approved",
			raw: map[string]any{
				"ServiceResponseData": serviceData("0000", "Başarılı"),
				"AuthCode":            "S39617",
				"ReferenceCode":       "159044932490000231",
				"OrderId":             "ALB_TEST_1",
				"TransactionDate":     "2023-06-12T11:17:05",
			},
			wantStatus: mapper.TxApproved,
			wantAuth:   "S39617",
		},
		{
			name: "declined",
			raw: map[string]any{
				"ServiceResponseData": serviceData("0057", "Kart sahibine izin verilmeyen islem"),
				"AuthCode":            "",
				"ReferenceCode":       "",
			},
			wantStatus: mapper.TxDeclined,
			wantCode:   "0057",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := m.MapPaymentResponse(tt.raw, mapper.TxTypePayAuth, order)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res["status"])
			assert.Equal(t, tt.wantCode, res["error_code"])
			assert.Equal(t, tt.wantAuth, res["auth_code"])
			assert.Equal(t, "ALB_TEST_1", res["order_id"])
			assert.Equal(t, 3, res["installment_count"])
		})
	}

	res, err := m.MapPaymentResponse(tests[0].raw, mapper.TxTypePayAuth, order)
	require.NoError(t, err)
	assert.Equal(t, "159044932490000231", res["transaction_id"])
	assert.Equal(t, "159044932490000231", res["ref_ret_num"])
	assert.Equal(t, time.Date(2023, 6, 12, 11, 17, 5, 0, mapper.Location), res["transaction_time"])
}

func TestMap3DPaymentData(t *testing.T) {
	m := newTestMapper(t)
	order := mapper.Order{ID: "ALB_3D_1", Amount: 1.01, Currency: mapper.CurrencyTRY}

	raw3D := map[string]any{
		"MdStatus":        "1",
		"MdErrorMessage":  "",
		"OrderId":         "ALB_3D_1",
		"Amount":          "101",
		"Currency":        "TL",
		"InstalmentCount": "0",
		"ECI":             "02",
		"CAVV":            "jCm0m+u/0hUfAREHBAMBcfN+pSo=",
	}
	assert.Equal(t, "1", m.ExtractMdStatus(raw3D))
	assert.False(t, m.Is3DAuthSuccess("2"))

	res, err := m.Map3DPaymentData(raw3D, map[string]any{
		"ServiceResponseData": serviceData("0000", ""),
		"AuthCode":            "S39617",
		"ReferenceCode":       "159044932490000231",
	}, mapper.TxTypePayAuth, order)
	require.NoError(t, err)
	assert.Equal(t, mapper.TxApproved, res["status"])
	assert.Equal(t, mapper.SecurityFull3D, res["transaction_security"])
	assert.Equal(t, 1.01, res["amount"])
	assert.Equal(t, mapper.CurrencyTRY, res["currency"])
	assert.Equal(t, "02", res["eci"])
	assert.Equal(t, "S39617", res["auth_code"])

	raw3D["MdStatus"] = "0"
	raw3D["MdErrorMessage"] = "Not authenticated"
	res, err = m.Map3DPaymentData(raw3D, nil, mapper.TxTypePayAuth, order)
	require.NoError(t, err)
	assert.Equal(t, mapper.TxDeclined, res["status"])
	assert.Equal(t, "0", res["error_code"])
	assert.Equal(t, "Not authenticated", res["md_error_message"])
	assert.Nil(t, res["eci"])
	assert.Nil(t, res["cavv"])
}

func TestMapRefundResponse(t *testing.T) {
	m := newTestMapper(t)

	res, err := m.MapRefundResponse(map[string]any{
		"ServiceResponseData": serviceData("0000", ""),
		"ReferenceCode":       "159044932490000232",
	})
	require.NoError(t, err)
	assert.Equal(t, mapper.TxApproved, res["status"])
	assert.Equal(t, "159044932490000232", res["transaction_id"])

	res, err = m.MapCancelResponse(map[string]any{
		"ServiceResponseData": serviceData("0123", "Islem bulunamadi"),
	})
	require.NoError(t, err)
	assert.Equal(t, mapper.TxDeclined, res["status"])
	assert.Equal(t, "transaction_not_found", res["status_detail"])
	assert.Equal(t, "Islem bulunamadi", res["error_message"])
}

func TestMapStatusResponse(t *testing.T) {
	m := newTestMapper(t)

	record := func(kind, amount, date string) map[string]any {
		return map[string]any{
			"OrderId":          "ALB_S_1",
			"TransactionType":  kind,
			"Amount":           amount,
			"CurrencyCode":     "TL",
			"AuthCode":         "S39617",
			"ReferenceCode":    "159044932490000231",
			"CardNo":           "540061******4581",
			"InstallmentCount": "0",
			"TransactionDate":  date,
		}
	}

	tests := []struct {
		name       string
		records    []any
		wantStatus mapper.OrderStatus
		wantRefund any
		wantCancel bool
	}{
		{
			name:       "sale",
			records:    []any{record("Sale", "101", "2023-06-12T11:17:05")},
			wantStatus: mapper.OrderStatusCompleted,
		},
		{
			name: "partially refunded",
			records: []any{
				record("Sale", "101", "2023-06-12T11:17:05"),
				record("Return", "50", "2023-06-13T09:00:00"),
			},
			wantStatus: mapper.OrderStatusPartiallyRefunded,
			wantRefund: 0.5,
		},
		{
			name: "reversed",
			records: []any{
				record("Sale", "101", "2023-06-12T11:17:05"),
				record("Reverse", "101", "2023-06-12T12:00:00"),
			},
			wantStatus: mapper.OrderStatusCanceled,
			wantCancel: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := m.MapStatusResponse(map[string]any{
				"ServiceResponseData": serviceData("0000", ""),
				"TransactionDataList": tt.records,
			})
			require.NoError(t, err)
			assert.Equal(t, mapper.TxApproved, res["status"])
			assert.Equal(t, tt.wantStatus, res["order_status"])
			assert.Equal(t, tt.wantRefund, res["refund_amount"])
			assert.Equal(t, 1.01, res["first_amount"])
			assert.Equal(t, true, res["capture"])
			assert.Equal(t, tt.wantCancel, res["cancel_time"] != nil)
		})
	}

	res, err := m.MapStatusResponse(map[string]any{"ServiceResponseData": serviceData("0123", "Islem bulunamadi")})
	require.NoError(t, err)
	assert.Equal(t, mapper.TxDeclined, res["status"])
	assert.Equal(t, "0123", res["error_code"])
}

func TestUnsupportedOperations(t *testing.T) {
	m := newTestMapper(t)

	_, err := m.MapHistoryResponse(nil)
	assert.True(t, mapper.IsUnsupported(err))
	_, err = m.MapOrderHistoryResponse(nil)
	assert.True(t, mapper.IsUnsupported(err))
	_, err = m.Map3DHostResponseData(nil, mapper.TxTypePayAuth, mapper.Order{})
	assert.True(t, mapper.IsUnsupported(err))
}

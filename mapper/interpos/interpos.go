package interpos

import (
	"fmt"
	"strings"

	"github.com/mstgnz/gopos/mapper"
)

const (
	gatewayName = "interpos"

	procedureSuccessCode = "00"
)

var timeLayouts = []string{
	"02.01.2006 15:04:05",
	"2006-01-02 15:04:05",
}

var statusCodes = map[string]string{
	"00": "approved",
	"01": "bank_call",
	"02": "bank_call",
	"05": "reject",
	"09": "try_again",
	"12": "invalid_transaction",
	"28": "reject",
	"51": "insufficient_balance",
	"54": "expired_card",
	"57": "does_not_allow_card_holder",
	"62": "restricted_card",
	"77": "request_rejected",
	"99": "general_error",
}

// TxnStatus values of order status queries
var txnStatuses = map[string]mapper.OrderStatus{
	"Approved":      mapper.OrderStatusCompleted,
	"PreAuth":       mapper.OrderStatusPreAuthCompleted,
	"Void":          mapper.OrderStatusCanceled,
	"Refund":        mapper.OrderStatusFullyRefunded,
	"PartialRefund": mapper.OrderStatusPartiallyRefunded,
	"Declined":      mapper.OrderStatusError,
}

// DefaultTables returns the InterVPOS codes
func DefaultTables() mapper.Tables {
	return mapper.Tables{
		Currencies: map[string]string{
			mapper.CurrencyTRY: "949",
			mapper.CurrencyUSD: "840",
			mapper.CurrencyEUR: "978",
			mapper.CurrencyGBP: "826",
			mapper.CurrencyJPY: "392",
			mapper.CurrencyRUB: "643",
		},
		TxTypes: map[mapper.TxType]mapper.TxTypeCodes{
			mapper.TxTypePayAuth:       mapper.Code("Auth"),
			mapper.TxTypePayPreAuth:    mapper.Code("PreAuth"),
			mapper.TxTypePayPostAuth:   mapper.Code("PostAuth"),
			mapper.TxTypeCancel:        mapper.Code("Void"),
			mapper.TxTypeRefund:        mapper.Code("Refund"),
			mapper.TxTypeRefundPartial: mapper.Code("Refund"),
			mapper.TxTypeStatus:        mapper.Code("StatusHistory"),
		},
		SecureTypes: map[mapper.PaymentModel]string{
			mapper.ModelNonSecure: "NonSecure",
			mapper.Model3DSecure:  "3DModel",
			mapper.Model3DPay:     "3DPay",
			mapper.Model3DHost:    "3DHost",
		},
	}
}

// Mapper maps Denizbank InterVPOS responses. Responses arrive as flat key/value pairs.
type Mapper struct {
	mapper.Base
}

// NewMapper creates an InterVPOS mapper
func NewMapper(cfg mapper.Config) (mapper.ResponseMapper, error) {
	tables := cfg.Tables.WithDefaults(DefaultTables())
	if err := mapper.ValidateTables(tables); err != nil {
		return nil, fmt.Errorf("%s: invalid tables: %w", gatewayName, err)
	}
	return &Mapper{Base: mapper.NewBase(gatewayName, tables, cfg.Logger)}, nil
}

func isApproved(data map[string]any) bool {
	return mapper.String(data["ProcReturnCode"]) == procedureSuccessCode
}

// MapPaymentResponse maps an Auth, PreAuth or PostAuth response
func (m *Mapper) MapPaymentResponse(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.mapPayment(raw, txType, mapper.ModelNonSecure, order), nil
}

func (m *Mapper) mapPayment(raw map[string]any, txType mapper.TxType, model mapper.PaymentModel, order mapper.Order) mapper.Result {
	res := mapper.DefaultPaymentResponse(txType, model)
	res["all"] = raw

	data := mapper.Normalize(raw)
	if len(data) == 0 {
		return res
	}

	procReturnCode := mapper.Nullable(data["ProcReturnCode"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)
	res["order_id"] = mapper.Coalesce(mapper.Nullable(data["OrderId"]), order.IDOrNil())
	res["currency"] = order.CurrencyOrNil()
	res["amount"] = order.AmountOrNil()
	res["installment_count"] = mapper.MapInstallment(order.Installment)

	if !isApproved(data) {
		res["error_code"] = mapper.Coalesce(mapper.Nullable(data["ErrorCode"]), procReturnCode)
		res["error_message"] = mapper.Nullable(data["ErrorMessage"])
		return res
	}

	res["status"] = mapper.TxApproved
	res["transaction_id"] = mapper.Nullable(data["TransId"])
	res["auth_code"] = mapper.Nullable(data["AuthCode"])
	res["ref_ret_num"] = mapper.Nullable(data["HostRefNum"])
	res["transaction_time"] = mapper.ParseTime(data["TxnDate"], timeLayouts...)

	m.Debug("mapped payment response", map[string]any{"status": res["status"], "tx_type": txType})
	return res
}

// ExtractMdStatus returns the mdStatus of a 3D callback
func (m *Mapper) ExtractMdStatus(raw map[string]any) string {
	return strings.TrimSpace(mapper.String(raw["mdStatus"]))
}

// Is3DAuthSuccess accepts md status 1 to 4
func (m *Mapper) Is3DAuthSuccess(mdStatus string) bool {
	return mapper.IsMdStatusSuccess(mdStatus)
}

func (m *Mapper) map3DCommon(data, raw map[string]any, txType mapper.TxType, model mapper.PaymentModel) mapper.Result {
	mdStatus := mapper.String(data["mdStatus"])

	res := mapper.Default3DResponse(txType, m.ResolvePaymentModel(data["SecureType"], model))
	res["all"] = raw
	res["3d_all"] = raw
	res["order_id"] = mapper.Nullable(data["OrderId"])
	res["md_status"] = mapper.Nullable(mdStatus)
	res["transaction_security"] = mapper.TransactionSecurity(mdStatus)
	res["masked_number"] = mapper.Nullable(data["Pan"])
	res["amount"] = mapper.AmountOrNil(data["PurchAmount"], mapper.FormatCommaAmount)
	res["currency"] = m.MapCurrency(data["Currency"])
	res["installment_count"] = mapper.MapInstallment(data["InstallmentCount"])
	res["tx_status"] = mapper.Nullable(data["TxnStat"])

	if m.Is3DAuthSuccess(mdStatus) {
		res["eci"] = mapper.Nullable(data["Eci"])
		res["cavv"] = mapper.Nullable(data["PayerAuthenticationCode"])
	} else {
		res["md_error_message"] = mapper.Nullable(data["mdErrorMessage"])
		res["error_code"] = mapper.Coalesce(mapper.Nullable(data["ErrorCode"]), mapper.Nullable(mdStatus))
		res["error_message"] = mapper.Coalesce(mapper.Nullable(data["ErrorMessage"]), mapper.Nullable(data["mdErrorMessage"]))
	}
	return res
}

// Map3DPaymentData maps the 3D model callback and the payment that followed it
func (m *Mapper) Map3DPaymentData(raw3D, rawPayment map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	data := mapper.Normalize(raw3D)
	threeD := m.map3DCommon(data, raw3D, txType, mapper.Model3DSecure)
	threeD["order_id"] = mapper.Coalesce(threeD["order_id"], order.IDOrNil())

	if !m.Is3DAuthSuccess(mapper.String(data["mdStatus"])) || rawPayment == nil {
		return threeD, nil
	}

	payment := m.mapPayment(rawPayment, txType, mapper.Model3DSecure, order)
	return mapper.MergePreferNonNull(threeD, payment), nil
}

// Map3DPayResponseData maps the 3D Pay callback, it carries the payment result
func (m *Mapper) Map3DPayResponseData(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.mapCallback(raw, txType, mapper.Model3DPay, order), nil
}

// Map3DHostResponseData maps the 3D Host callback
func (m *Mapper) Map3DHostResponseData(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.mapCallback(raw, txType, mapper.Model3DHost, order), nil
}

func (m *Mapper) mapCallback(raw map[string]any, txType mapper.TxType, model mapper.PaymentModel, order mapper.Order) mapper.Result {
	data := mapper.Normalize(raw)
	res := m.map3DCommon(data, raw, txType, model)
	res["order_id"] = mapper.Coalesce(res["order_id"], order.IDOrNil())
	res["amount"] = mapper.Coalesce(res["amount"], order.AmountOrNil())
	res["currency"] = mapper.Coalesce(res["currency"], order.CurrencyOrNil())

	procReturnCode := mapper.Nullable(data["ProcReturnCode"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)

	if !m.Is3DAuthSuccess(mapper.String(data["mdStatus"])) {
		return res
	}
	if !isApproved(data) {
		res["error_code"] = mapper.Coalesce(mapper.Nullable(data["ErrorCode"]), procReturnCode)
		res["error_message"] = mapper.Nullable(data["ErrorMessage"])
		return res
	}

	res["status"] = mapper.TxApproved
	res["transaction_id"] = mapper.Nullable(data["TransId"])
	res["auth_code"] = mapper.Nullable(data["AuthCode"])
	res["ref_ret_num"] = mapper.Nullable(data["HostRefNum"])
	res["transaction_time"] = mapper.ParseTime(data["TxnDate"], timeLayouts...)
	return res
}

// MapRefundResponse maps a Refund response
func (m *Mapper) MapRefundResponse(raw map[string]any) (mapper.Result, error) {
	return m.mapRefund(raw), nil
}

// MapCancelResponse maps a Void response
func (m *Mapper) MapCancelResponse(raw map[string]any) (mapper.Result, error) {
	return m.mapRefund(raw), nil
}

func (m *Mapper) mapRefund(raw map[string]any) mapper.Result {
	res := mapper.DefaultRefundResponse(raw)
	data := mapper.Normalize(raw)
	if len(data) == 0 {
		return res
	}

	procReturnCode := mapper.Nullable(data["ProcReturnCode"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)
	res["order_id"] = mapper.Nullable(data["OrderId"])
	res["transaction_id"] = mapper.Nullable(data["TransId"])
	res["auth_code"] = mapper.Nullable(data["AuthCode"])
	res["ref_ret_num"] = mapper.Nullable(data["HostRefNum"])

	if isApproved(data) {
		res["status"] = mapper.TxApproved
	} else {
		res["error_code"] = mapper.Coalesce(mapper.Nullable(data["ErrorCode"]), procReturnCode)
		res["error_message"] = mapper.Nullable(data["ErrorMessage"])
	}
	return res
}

// MapStatusResponse maps a StatusHistory response. Amounts use a decimal comma.
func (m *Mapper) MapStatusResponse(raw map[string]any) (mapper.Result, error) {
	res := mapper.DefaultStatusResponse(raw)
	data := mapper.Normalize(raw)
	if len(data) == 0 {
		return res, nil
	}

	procReturnCode := mapper.Nullable(data["ProcReturnCode"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)
	res["order_id"] = mapper.Nullable(data["OrderId"])

	if !isApproved(data) {
		res["error_code"] = mapper.Coalesce(mapper.Nullable(data["ErrorCode"]), procReturnCode)
		res["error_message"] = mapper.Nullable(data["ErrorMessage"])
		return res, nil
	}

	res["status"] = mapper.TxApproved
	res["transaction_id"] = mapper.Nullable(data["TransId"])
	res["auth_code"] = mapper.Nullable(data["AuthCode"])
	res["ref_ret_num"] = mapper.Nullable(data["HostRefNum"])
	res["masked_number"] = mapper.Nullable(data["Pan"])
	res["currency"] = m.MapCurrency(data["Currency"])
	res["installment_count"] = mapper.MapInstallment(data["InstallmentCount"])
	res["transaction_type"] = m.MapTxType(data["TxnType"])
	res["transaction_time"] = mapper.ParseTime(data["TxnDate"], timeLayouts...)
	res["first_amount"] = mapper.AmountOrNil(data["PurchAmount"], mapper.FormatCommaAmount)

	orderStatus, ok := txnStatuses[mapper.String(data["TxnStatus"])]
	if ok {
		res["order_status"] = orderStatus
	}
	switch orderStatus {
	case mapper.OrderStatusCompleted:
		res["capture_amount"] = res["first_amount"]
		res["capture_time"] = res["transaction_time"]
	case mapper.OrderStatusCanceled:
		res["cancel_time"] = mapper.ParseTime(data["VoidDate"], timeLayouts...)
	case mapper.OrderStatusFullyRefunded, mapper.OrderStatusPartiallyRefunded:
		res["refund_amount"] = mapper.AmountOrNil(data["RefundedAmount"], mapper.FormatCommaAmount)
		res["refund_time"] = mapper.ParseTime(data["RefundDate"], timeLayouts...)
	}
	mapper.SetCapture(res)

	return res, nil
}

// MapHistoryResponse is not offered by InterVPOS
func (m *Mapper) MapHistoryResponse(raw map[string]any) (mapper.Result, error) {
	return m.NotSupported("history")
}

// MapOrderHistoryResponse is not offered by InterVPOS
func (m *Mapper) MapOrderHistoryResponse(raw map[string]any) (mapper.Result, error) {
	return m.NotSupported("order_history")
}

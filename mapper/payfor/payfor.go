package payfor

import (
	"fmt"
	"strings"

	"github.com/mstgnz/gopos/mapper"
)

const (
	gatewayName = "payfor"

	procedureSuccessCode = "00"

	// 3DStatus of an authenticated card holder
	authenticated = "1"
)

var timeLayouts = []string{
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"20060102150405",
}

var statusCodes = map[string]string{
	"00":   "approved",
	"01":   "bank_call",
	"02":   "bank_call",
	"05":   "reject",
	"09":   "try_again",
	"12":   "invalid_transaction",
	"28":   "reject",
	"51":   "insufficient_balance",
	"54":   "expired_card",
	"57":   "does_not_allow_card_holder",
	"62":   "restricted_card",
	"77":   "request_rejected",
	"99":   "general_error",
	"V013": "reject",
	"V014": "request_rejected",
	"M041": "reject",
}

// DefaultTables returns the PayFor codes
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
			mapper.TxTypeStatus:        mapper.Code("OrderInquiry"),
			mapper.TxTypeHistory:       mapper.Code("TxnHistory"),
			mapper.TxTypeOrderHistory:  mapper.Code("OrderHistory"),
		},
		SecureTypes: map[mapper.PaymentModel]string{
			mapper.ModelNonSecure: "NonSecure",
			mapper.Model3DSecure:  "3DModel",
			mapper.Model3DPay:     "3DPay",
			mapper.Model3DHost:    "3DHost",
		},
	}
}

// Mapper maps QNB Finansbank PayFor responses
type Mapper struct {
	mapper.Base
}

// NewMapper creates a PayFor mapper
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
		res["error_code"] = procReturnCode
		res["error_message"] = mapper.Nullable(data["ErrMsg"])
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

// ExtractMdStatus returns the 3DStatus of a callback
func (m *Mapper) ExtractMdStatus(raw map[string]any) string {
	return strings.TrimSpace(mapper.String(raw["3DStatus"]))
}

// Is3DAuthSuccess only accepts an authenticated card holder
func (m *Mapper) Is3DAuthSuccess(mdStatus string) bool {
	return mdStatus == authenticated
}

func (m *Mapper) map3DCommon(data, raw map[string]any, txType mapper.TxType, model mapper.PaymentModel, order mapper.Order) mapper.Result {
	mdStatus := mapper.String(data["3DStatus"])

	res := mapper.Default3DResponse(txType, m.ResolvePaymentModel(data["SecureType"], model))
	res["all"] = raw
	res["3d_all"] = raw
	res["order_id"] = mapper.Coalesce(mapper.Nullable(data["OrderId"]), order.IDOrNil())
	res["md_status"] = mapper.Nullable(mdStatus)
	res["transaction_security"] = mapper.TransactionSecurity(mdStatus)
	res["masked_number"] = mapper.Nullable(data["CardMask"])
	res["amount"] = mapper.Coalesce(mapper.AmountOrNil(data["PurchAmount"], mapper.FormatAmount), order.AmountOrNil())
	res["currency"] = mapper.Coalesce(m.MapCurrency(data["Currency"]), order.CurrencyOrNil())
	res["installment_count"] = mapper.MapInstallment(data["InstallmentCount"])

	if m.Is3DAuthSuccess(mdStatus) {
		res["eci"] = mapper.Nullable(data["Eci"])
		res["cavv"] = mapper.Nullable(data["PayerAuthenticationCode"])
	} else {
		res["md_error_message"] = mapper.Nullable(data["ErrMsg"])
		res["proc_return_code"] = mapper.Nullable(data["ProcReturnCode"])
		res["error_code"] = mapper.Coalesce(mapper.Nullable(data["ProcReturnCode"]), mapper.Nullable(mdStatus))
		res["error_message"] = mapper.Nullable(data["ErrMsg"])
	}
	return res
}

// Map3DPaymentData maps the 3D model callback and the provision that followed it
func (m *Mapper) Map3DPaymentData(raw3D, rawPayment map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	data := mapper.Normalize(raw3D)
	threeD := m.map3DCommon(data, raw3D, txType, mapper.Model3DSecure, order)

	if !m.Is3DAuthSuccess(mapper.String(data["3DStatus"])) || rawPayment == nil {
		return threeD, nil
	}

	payment := m.mapPayment(rawPayment, txType, mapper.Model3DSecure, order)
	return mapper.MergePreferNonNull(threeD, payment), nil
}

// Map3DPayResponseData maps the 3D Pay callback
func (m *Mapper) Map3DPayResponseData(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.mapCallback(raw, txType, mapper.Model3DPay, order), nil
}

// Map3DHostResponseData maps the 3D Host callback
func (m *Mapper) Map3DHostResponseData(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.mapCallback(raw, txType, mapper.Model3DHost, order), nil
}

func (m *Mapper) mapCallback(raw map[string]any, txType mapper.TxType, model mapper.PaymentModel, order mapper.Order) mapper.Result {
	data := mapper.Normalize(raw)
	res := m.map3DCommon(data, raw, txType, model, order)
	if !m.Is3DAuthSuccess(mapper.String(data["3DStatus"])) {
		return res
	}

	procReturnCode := mapper.Nullable(data["ProcReturnCode"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)

	if !isApproved(data) {
		res["error_code"] = procReturnCode
		res["error_message"] = mapper.Nullable(data["ErrMsg"])
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
		res["error_code"] = procReturnCode
		res["error_message"] = mapper.Nullable(data["ErrMsg"])
	}
	return res
}

// applyTxnType derives the order state of a record from its TxnType and amounts
func (m *Mapper) applyTxnType(res mapper.Result, record map[string]any) {
	txType := m.MapTxType(record["TxnType"])
	res["transaction_type"] = txType
	res["transaction_time"] = mapper.ParseTime(record["InsertDatetime"], timeLayouts...)
	res["first_amount"] = mapper.AmountOrNil(record["PurchAmount"], mapper.FormatAmount)

	switch txType {
	case mapper.TxTypePayAuth, mapper.TxTypePayPostAuth:
		res["order_status"] = mapper.OrderStatusCompleted
		res["capture_amount"] = res["first_amount"]
		res["capture_time"] = res["transaction_time"]
	case mapper.TxTypePayPreAuth:
		res["order_status"] = mapper.OrderStatusPreAuthCompleted
	case mapper.TxTypeCancel:
		res["order_status"] = mapper.OrderStatusCanceled
	case mapper.TxTypeRefund:
		res["order_status"] = mapper.OrderStatusFullyRefunded
	}

	if mapper.String(record["VoidDate"]) != "" {
		res["order_status"] = mapper.OrderStatusCanceled
	}
	mapper.SetCapture(res)
}

// MapStatusResponse maps an OrderInquiry response
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
		res["error_code"] = procReturnCode
		res["error_message"] = mapper.Nullable(data["ErrMsg"])
		return res, nil
	}

	res["status"] = mapper.TxApproved
	res["transaction_id"] = mapper.Nullable(data["TransId"])
	res["auth_code"] = mapper.Nullable(data["AuthCode"])
	res["ref_ret_num"] = mapper.Nullable(data["HostRefNum"])
	res["masked_number"] = mapper.Nullable(data["CardMask"])
	res["currency"] = m.MapCurrency(data["Currency"])
	res["installment_count"] = mapper.MapInstallment(data["InstallmentCount"])
	m.applyTxnType(res, data)

	if refund := mapper.FormatAmount(data["RefundedAmount"]); refund > 0 {
		res["refund_amount"] = refund
		if first, ok := res["first_amount"].(float64); ok && refund < first {
			res["order_status"] = mapper.OrderStatusPartiallyRefunded
		} else {
			res["order_status"] = mapper.OrderStatusFullyRefunded
		}
	}
	res["cancel_time"] = mapper.ParseTime(data["VoidDate"], timeLayouts...)

	return res, nil
}

// records returns the history records of a response. A single record
// arrives as the response itself, several as a Transactions list.
func records(data map[string]any) []map[string]any {
	if _, single := data["TxnType"]; single {
		return []map[string]any{data}
	}
	list := mapper.List(data["Transactions"])
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if record := mapper.Map(item); record != nil {
			out = append(out, record)
		}
	}
	return out
}

func (m *Mapper) mapHistoryTransaction(record map[string]any) mapper.Result {
	tx := mapper.DefaultHistoryTransaction()
	procReturnCode := mapper.Nullable(record["ProcReturnCode"])
	tx["proc_return_code"] = procReturnCode
	tx["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)
	tx["order_id"] = mapper.Nullable(record["OrderId"])
	tx["transaction_id"] = mapper.Nullable(record["TransId"])
	tx["auth_code"] = mapper.Nullable(record["AuthCode"])
	tx["ref_ret_num"] = mapper.Nullable(record["HostRefNum"])
	tx["masked_number"] = mapper.Nullable(record["CardMask"])
	tx["currency"] = m.MapCurrency(record["Currency"])
	tx["installment_count"] = mapper.MapInstallment(record["InstallmentCount"])

	if !isApproved(record) {
		tx["error_code"] = procReturnCode
		tx["error_message"] = mapper.Nullable(record["ErrMsg"])
		tx["transaction_type"] = m.MapTxType(record["TxnType"])
		tx["transaction_time"] = mapper.ParseTime(record["InsertDatetime"], timeLayouts...)
		return tx
	}

	tx["status"] = mapper.TxApproved
	m.applyTxnType(tx, record)
	return tx
}

func (m *Mapper) mapHistory(res mapper.Result, data map[string]any) {
	recs := records(data)
	transactions := make([]mapper.Result, 0, len(recs))
	for _, record := range recs {
		transactions = append(transactions, m.mapHistoryTransaction(record))
	}
	res["transactions"] = transactions
	res["trans_count"] = len(transactions)

	// a single failed record is the error of the whole query
	if len(recs) == 1 && !isApproved(recs[0]) {
		res["proc_return_code"] = mapper.Nullable(recs[0]["ProcReturnCode"])
		res["error_code"] = mapper.Nullable(recs[0]["ProcReturnCode"])
		res["error_message"] = mapper.Nullable(recs[0]["ErrMsg"])
		return
	}
	if len(recs) == 0 {
		res["proc_return_code"] = mapper.Nullable(data["ProcReturnCode"])
		res["error_code"] = mapper.Nullable(data["ProcReturnCode"])
		res["error_message"] = mapper.Nullable(data["ErrMsg"])
		return
	}
	res["proc_return_code"] = procedureSuccessCode
	res["status"] = mapper.TxApproved
}

// MapHistoryResponse maps a TxnHistory response
func (m *Mapper) MapHistoryResponse(raw map[string]any) (mapper.Result, error) {
	res := mapper.DefaultHistoryResponse(raw)
	data := mapper.Normalize(raw)
	if len(data) == 0 {
		return res, nil
	}
	m.mapHistory(res, data)
	m.Debug("mapped history response", map[string]any{"status": res["status"], "count": res["trans_count"]})
	return res, nil
}

// MapOrderHistoryResponse maps an OrderHistory response
func (m *Mapper) MapOrderHistoryResponse(raw map[string]any) (mapper.Result, error) {
	res := mapper.DefaultOrderHistoryResponse(raw)
	data := mapper.Normalize(raw)
	if len(data) == 0 {
		return res, nil
	}
	m.mapHistory(res, data)
	if txs := res.Transactions(); len(txs) > 0 {
		res["order_id"] = txs[0]["order_id"]
	}
	return res, nil
}

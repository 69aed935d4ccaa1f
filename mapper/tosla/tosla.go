package tosla

import (
	"fmt"
	"strings"

	"github.com/mstgnz/gopos/mapper"
)

const (
	gatewayName = "tosla"

	procedureSuccessCode = "0"
	bankSuccessCode      = "00"
)

var timeLayouts = []string{
	"20060102150405",
	"2006-01-02T15:04:05",
}

var statusCodes = map[string]string{
	"0":   "approved",
	"00":  "approved",
	"05":  "reject",
	"51":  "insufficient_balance",
	"54":  "expired_card",
	"57":  "does_not_allow_card_holder",
	"62":  "restricted_card",
	"999": "general_error",
}

// RequestStatus values of status and history records
var requestStatuses = map[string]mapper.OrderStatus{
	"0": mapper.OrderStatusError,
	"1": mapper.OrderStatusCompleted,
	"2": mapper.OrderStatusCanceled,
	"3": mapper.OrderStatusFullyRefunded,
	"4": mapper.OrderStatusPartiallyRefunded,
	"5": mapper.OrderStatusPreAuthCompleted,
}

// DefaultTables returns the Tosla codes
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
			mapper.TxTypePayAuth:       mapper.Code("1"),
			mapper.TxTypePayPreAuth:    mapper.Code("2"),
			mapper.TxTypePayPostAuth:   mapper.Code("3"),
			mapper.TxTypeCancel:        mapper.Code("4"),
			mapper.TxTypeRefund:        mapper.Code("5"),
			mapper.TxTypeRefundPartial: mapper.Code("5"),
		},
	}
}

// Mapper maps Tosla (formerly AkÖde) responses. Amounts are in minor units.
type Mapper struct {
	mapper.Base
}

// NewMapper creates a Tosla mapper
func NewMapper(cfg mapper.Config) (mapper.ResponseMapper, error) {
	tables := cfg.Tables.WithDefaults(DefaultTables())
	if err := mapper.ValidateTables(tables); err != nil {
		return nil, fmt.Errorf("%s: invalid tables: %w", gatewayName, err)
	}
	return &Mapper{Base: mapper.NewBase(gatewayName, tables, cfg.Logger)}, nil
}

func isSuccess(data map[string]any) bool {
	return mapper.String(data["Code"]) == procedureSuccessCode
}

// errorFields prefers the bank answer over the API answer
func errorFields(data map[string]any) (code, message any) {
	if code := mapper.Nullable(data["BankResponseCode"]); code != nil && mapper.String(code) != bankSuccessCode {
		return code, mapper.Nullable(data["BankResponseMessage"])
	}
	return mapper.Nullable(data["Code"]), mapper.Nullable(data["Message"])
}

// MapPaymentResponse maps a Payment, PreAuth or PostAuth response
func (m *Mapper) MapPaymentResponse(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	res := mapper.DefaultPaymentResponse(txType, mapper.ModelNonSecure)
	res["all"] = raw

	data := mapper.Normalize(raw)
	if len(data) == 0 {
		return res, nil
	}

	procReturnCode := mapper.Nullable(data["Code"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)
	res["order_id"] = mapper.Coalesce(mapper.Nullable(data["OrderId"]), order.IDOrNil())
	res["currency"] = order.CurrencyOrNil()
	res["amount"] = order.AmountOrNil()
	res["installment_count"] = mapper.MapInstallment(order.Installment)

	if !isSuccess(data) || mapper.String(mapper.Coalesce(data["BankResponseCode"], bankSuccessCode)) != bankSuccessCode {
		res["error_code"], res["error_message"] = errorFields(data)
		return res, nil
	}

	res["status"] = mapper.TxApproved
	res["transaction_id"] = mapper.Nullable(data["TransactionId"])
	res["auth_code"] = mapper.Nullable(data["AuthCode"])
	res["ref_ret_num"] = mapper.Nullable(data["HostReferenceNumber"])

	m.Debug("mapped payment response", map[string]any{"status": res["status"], "tx_type": txType})
	return res, nil
}

// ExtractMdStatus returns the MdStatus of a callback
func (m *Mapper) ExtractMdStatus(raw map[string]any) string {
	return strings.TrimSpace(mapper.String(raw["MdStatus"]))
}

// Is3DAuthSuccess accepts md status 1 to 4
func (m *Mapper) Is3DAuthSuccess(mdStatus string) bool {
	return mapper.IsMdStatusSuccess(mdStatus)
}

// Map3DPaymentData is not offered, Tosla authenticates and pays in one step
func (m *Mapper) Map3DPaymentData(raw3D, rawPayment map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.NotSupported("3d_payment")
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
	res := mapper.Default3DResponse(txType, model)
	res["all"] = raw
	res["3d_all"] = raw

	data := mapper.Normalize(raw)
	if len(data) == 0 {
		return res
	}

	mdStatus := mapper.String(data["MdStatus"])
	bankCode := mapper.Nullable(data["BankResponseCode"])
	res["md_status"] = mapper.Nullable(mdStatus)
	res["transaction_security"] = mapper.TransactionSecurity(mdStatus)
	res["proc_return_code"] = bankCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, bankCode)
	res["order_id"] = mapper.Coalesce(mapper.Nullable(data["OrderId"]), order.IDOrNil())
	res["transaction_id"] = mapper.Nullable(data["TransactionId"])
	res["amount"] = mapper.Coalesce(mapper.AmountOrNil(data["Amount"], mapper.FormatMinorAmount), order.AmountOrNil())
	res["currency"] = mapper.Coalesce(m.MapCurrency(data["Currency"]), order.CurrencyOrNil())
	res["installment_count"] = mapper.MapInstallment(mapper.Coalesce(data["InstallmentCount"], order.Installment))
	res["masked_number"] = mapper.Nullable(data["MaskedCardNo"])

	if !m.Is3DAuthSuccess(mdStatus) {
		res["md_error_message"] = mapper.Nullable(data["BankResponseMessage"])
		res["error_code"] = mapper.Coalesce(bankCode, mapper.Nullable(mdStatus))
		res["error_message"] = mapper.Nullable(data["BankResponseMessage"])
		return res
	}
	if mapper.String(bankCode) != bankSuccessCode || mapper.String(data["RequestStatus"]) != "1" {
		res["error_code"] = bankCode
		res["error_message"] = mapper.Nullable(data["BankResponseMessage"])
		return res
	}

	res["status"] = mapper.TxApproved
	res["auth_code"] = mapper.Nullable(data["AuthCode"])
	res["ref_ret_num"] = mapper.Nullable(data["HostReferenceNumber"])
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

	procReturnCode := mapper.Nullable(data["Code"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)
	res["order_id"] = mapper.Nullable(data["OrderId"])
	res["transaction_id"] = mapper.Nullable(data["TransactionId"])
	res["auth_code"] = mapper.Nullable(data["AuthCode"])
	res["ref_ret_num"] = mapper.Nullable(data["HostReferenceNumber"])

	if isSuccess(data) {
		res["status"] = mapper.TxApproved
	} else {
		res["error_code"], res["error_message"] = errorFields(data)
	}
	return res
}

// mapRecord fills the order fields of a status or history record into res
func (m *Mapper) mapRecord(res mapper.Result, record map[string]any) {
	res["order_id"] = mapper.Nullable(record["OrderId"])
	res["transaction_id"] = mapper.Nullable(record["TransactionId"])
	res["auth_code"] = mapper.Nullable(record["AuthCode"])
	res["ref_ret_num"] = mapper.Nullable(record["HostReferenceNumber"])
	res["masked_number"] = mapper.Nullable(record["MaskedCardNo"])
	res["currency"] = m.MapCurrency(record["Currency"])
	res["installment_count"] = mapper.MapInstallment(record["InstallmentCount"])
	res["transaction_type"] = m.MapTxType(record["TransactionType"])
	res["transaction_time"] = mapper.ParseTime(record["CreateDate"], timeLayouts...)
	res["first_amount"] = mapper.AmountOrNil(record["Amount"], mapper.FormatMinorAmount)

	orderStatus, ok := requestStatuses[mapper.String(record["RequestStatus"])]
	if !ok {
		return
	}
	res["order_status"] = orderStatus
	switch orderStatus {
	case mapper.OrderStatusCompleted:
		res["capture_amount"] = res["first_amount"]
		res["capture_time"] = res["transaction_time"]
	case mapper.OrderStatusFullyRefunded, mapper.OrderStatusPartiallyRefunded:
		if refund := mapper.FormatMinorAmount(record["RefundedAmount"]); refund > 0 {
			res["refund_amount"] = refund
		}
	}
	mapper.SetCapture(res)
}

// MapStatusResponse maps a Status response
func (m *Mapper) MapStatusResponse(raw map[string]any) (mapper.Result, error) {
	res := mapper.DefaultStatusResponse(raw)
	data := mapper.Normalize(raw)
	if len(data) == 0 {
		return res, nil
	}

	procReturnCode := mapper.Nullable(data["Code"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)

	if !isSuccess(data) {
		res["order_id"] = mapper.Nullable(data["OrderId"])
		res["error_code"], res["error_message"] = errorFields(data)
		return res, nil
	}

	res["status"] = mapper.TxApproved
	m.mapRecord(res, data)
	return res, nil
}

func (m *Mapper) mapHistory(res mapper.Result, data map[string]any) {
	procReturnCode := mapper.Nullable(data["Code"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)

	if !isSuccess(data) {
		res["error_code"], res["error_message"] = errorFields(data)
		return
	}

	list := mapper.List(data["Transactions"])
	transactions := make([]mapper.Result, 0, len(list))
	for _, item := range list {
		record := mapper.Map(item)
		if record == nil {
			continue
		}
		tx := mapper.DefaultHistoryTransaction()
		bankCode := mapper.Nullable(record["BankResponseCode"])
		tx["proc_return_code"] = bankCode
		tx["status_detail"] = mapper.StatusDetail(statusCodes, bankCode)
		m.mapRecord(tx, record)
		if tx["order_status"] == mapper.OrderStatusError {
			tx["error_code"] = bankCode
			tx["error_message"] = mapper.Nullable(record["BankResponseMessage"])
		} else {
			tx["status"] = mapper.TxApproved
		}
		transactions = append(transactions, tx)
	}

	res["status"] = mapper.TxApproved
	res["transactions"] = transactions
	res["trans_count"] = len(transactions)
}

// MapHistoryResponse maps a History response
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

// MapOrderHistoryResponse maps a History response filtered by order id
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

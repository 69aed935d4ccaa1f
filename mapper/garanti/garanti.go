package garanti

import (
	"fmt"
	"strings"

	"github.com/mstgnz/gopos/mapper"
)

const (
	gatewayName = "garanti"

	procedureSuccessCode = "00"
)

var timeLayouts = []string{
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"20060102 15:04:05",
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
	"92": "invalid_transaction",
	"99": "general_error",
}

// OrderInqResult.Status values
var orderStatuses = map[string]mapper.OrderStatus{
	"APPROVED":           mapper.OrderStatusCompleted,
	"WAITINGPOSTAUTH":    mapper.OrderStatusPreAuthCompleted,
	"PARTIALLY REFUNDED": mapper.OrderStatusPartiallyRefunded,
	"REFUNDED":           mapper.OrderStatusFullyRefunded,
	"VOIDED":             mapper.OrderStatusCanceled,
	"CANCELED":           mapper.OrderStatusCanceled,
	"DECLINED":           mapper.OrderStatusError,
}

// DefaultTables returns the Garanti GVPS codes
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
			mapper.TxTypePayAuth:       mapper.Code("sales"),
			mapper.TxTypePayPreAuth:    mapper.Code("preauth"),
			mapper.TxTypePayPostAuth:   mapper.Code("postauth"),
			mapper.TxTypeCancel:        mapper.Code("void"),
			mapper.TxTypeRefund:        mapper.Code("refund"),
			mapper.TxTypeRefundPartial: mapper.Code("refund"),
			mapper.TxTypeStatus:        mapper.Code("orderinq"),
			mapper.TxTypeHistory:       mapper.Code("orderlistinq"),
			mapper.TxTypeOrderHistory:  mapper.Code("orderhistoryinq"),
		},
		SecureTypes: map[mapper.PaymentModel]string{
			mapper.Model3DSecure:     "3D",
			mapper.Model3DPay:        "3D_PAY",
			mapper.Model3DHost:       "3D_OOS_PAY",
			mapper.ModelNonSecure:    "S",
			mapper.Model3DPayHosting: "3D_OOS_FULL",
		},
	}
}

// Mapper maps Garanti GVPS responses
type Mapper struct {
	mapper.Base
}

// NewMapper creates a Garanti mapper
func NewMapper(cfg mapper.Config) (mapper.ResponseMapper, error) {
	tables := cfg.Tables.WithDefaults(DefaultTables())
	if err := mapper.ValidateTables(tables); err != nil {
		return nil, fmt.Errorf("%s: invalid tables: %w", gatewayName, err)
	}
	return &Mapper{Base: mapper.NewBase(gatewayName, tables, cfg.Logger)}, nil
}

// unwrap drops the GVPSResponse root when the decoder kept it
func unwrap(data map[string]any) map[string]any {
	if root := mapper.Map(data["GVPSResponse"]); root != nil {
		return root
	}
	return data
}

// transactionResponse returns Transaction.Response
func transactionResponse(data map[string]any) map[string]any {
	return mapper.Map(mapper.Map(data["Transaction"])["Response"])
}

// MapPaymentResponse maps a GVPS payment response
func (m *Mapper) MapPaymentResponse(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.mapPayment(raw, txType, mapper.ModelNonSecure, order), nil
}

func (m *Mapper) mapPayment(raw map[string]any, txType mapper.TxType, model mapper.PaymentModel, order mapper.Order) mapper.Result {
	res := mapper.DefaultPaymentResponse(txType, model)
	res["all"] = raw

	data := unwrap(mapper.Normalize(raw))
	if len(data) == 0 {
		return res
	}
	transaction := mapper.Map(data["Transaction"])
	response := transactionResponse(data)
	reasonCode := mapper.Nullable(response["ReasonCode"])

	res["order_id"] = mapper.Coalesce(mapper.Nullable(mapper.Map(data["Order"])["OrderID"]), order.IDOrNil())
	res["group_id"] = mapper.Nullable(mapper.Map(data["Order"])["GroupID"])
	res["proc_return_code"] = reasonCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, reasonCode)
	res["currency"] = order.CurrencyOrNil()
	res["amount"] = order.AmountOrNil()
	res["installment_count"] = mapper.MapInstallment(order.Installment)

	if mapper.String(reasonCode) != procedureSuccessCode {
		res["error_code"] = reasonCode
		res["error_message"] = mapper.Coalesce(mapper.Nullable(response["ErrorMsg"]), mapper.Nullable(response["SysErrMsg"]))
		return res
	}

	res["status"] = mapper.TxApproved
	res["transaction_id"] = mapper.Nullable(transaction["SequenceNum"])
	res["auth_code"] = mapper.Nullable(transaction["AuthCode"])
	res["ref_ret_num"] = mapper.Nullable(transaction["RetrefNum"])
	res["batch_num"] = mapper.Nullable(transaction["BatchNum"])
	res["transaction_time"] = mapper.ParseTime(transaction["ProvDate"], timeLayouts...)

	m.Debug("mapped payment response", map[string]any{"status": res["status"], "tx_type": txType})
	return res
}

// ExtractMdStatus returns the mdstatus of a 3D callback
func (m *Mapper) ExtractMdStatus(raw map[string]any) string {
	return strings.TrimSpace(mapper.String(raw["mdstatus"]))
}

// Is3DAuthSuccess accepts md status 1 to 4
func (m *Mapper) Is3DAuthSuccess(mdStatus string) bool {
	return mapper.IsMdStatusSuccess(mdStatus)
}

func (m *Mapper) map3DCommon(raw, data map[string]any, txType mapper.TxType, model mapper.PaymentModel) mapper.Result {
	mdStatus := mapper.String(data["mdstatus"])

	res := mapper.Default3DResponse(txType, m.ResolvePaymentModel(data["secure3dsecuritylevel"], model))
	res["all"] = raw
	res["3d_all"] = raw
	res["order_id"] = mapper.Nullable(data["orderid"])
	res["md_status"] = mapper.Nullable(mdStatus)
	res["transaction_security"] = mapper.TransactionSecurity(mdStatus)
	res["amount"] = mapper.AmountOrNil(data["txnamount"], mapper.FormatMinorAmount)
	res["currency"] = m.MapCurrency(data["txncurrencycode"])
	res["installment_count"] = mapper.MapInstallment(data["txninstallmentcount"])
	res["masked_number"] = mapper.Nullable(data["MaskedPan"])
	if m.Is3DAuthSuccess(mdStatus) {
		res["eci"] = mapper.Nullable(data["eci"])
		res["cavv"] = mapper.Nullable(data["cavv"])
	} else {
		res["md_error_message"] = mapper.Nullable(data["mderrormessage"])
	}
	return res
}

// Map3DPaymentData maps the 3D callback and the provision call that followed it
func (m *Mapper) Map3DPaymentData(raw3D, rawPayment map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	data := mapper.Normalize(raw3D)
	threeD := m.map3DCommon(raw3D, data, txType, mapper.Model3DSecure)

	if !m.Is3DAuthSuccess(mapper.String(data["mdstatus"])) || rawPayment == nil {
		threeD["proc_return_code"] = mapper.Nullable(data["procreturncode"])
		threeD["error_code"] = mapper.Coalesce(mapper.Nullable(data["procreturncode"]), mapper.Nullable(data["mdstatus"]))
		threeD["error_message"] = mapper.Coalesce(mapper.Nullable(data["mderrormessage"]), mapper.Nullable(data["errmsg"]))
		return threeD, nil
	}

	payment := m.mapPayment(rawPayment, txType, mapper.Model3DSecure, order)
	return mapper.MergePreferNonNull(threeD, payment), nil
}

// Map3DPayResponseData maps the combined 3D Pay callback
func (m *Mapper) Map3DPayResponseData(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.mapCallback(raw, txType, mapper.Model3DPay), nil
}

// Map3DHostResponseData maps the 3D OOS callback
func (m *Mapper) Map3DHostResponseData(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.mapCallback(raw, txType, mapper.Model3DHost), nil
}

func (m *Mapper) mapCallback(raw map[string]any, txType mapper.TxType, model mapper.PaymentModel) mapper.Result {
	data := mapper.Normalize(raw)
	res := m.map3DCommon(raw, data, txType, model)
	if len(data) == 0 {
		return res
	}

	procReturnCode := mapper.Nullable(data["procreturncode"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)

	if m.Is3DAuthSuccess(mapper.String(data["mdstatus"])) && mapper.String(procReturnCode) == procedureSuccessCode {
		res["status"] = mapper.TxApproved
		res["auth_code"] = mapper.Nullable(data["authcode"])
		res["ref_ret_num"] = mapper.Nullable(data["hostrefnum"])
		res["transaction_id"] = mapper.Nullable(data["transid"])
		return res
	}

	res["error_code"] = mapper.Coalesce(procReturnCode, mapper.Nullable(data["mdstatus"]))
	res["error_message"] = mapper.Coalesce(mapper.Nullable(data["errmsg"]), mapper.Nullable(data["mderrormessage"]))
	return res
}

// MapRefundResponse maps a refund response
func (m *Mapper) MapRefundResponse(raw map[string]any) (mapper.Result, error) {
	return m.mapRefund(raw), nil
}

// MapCancelResponse maps a void response
func (m *Mapper) MapCancelResponse(raw map[string]any) (mapper.Result, error) {
	return m.mapRefund(raw), nil
}

func (m *Mapper) mapRefund(raw map[string]any) mapper.Result {
	res := mapper.DefaultRefundResponse(raw)
	data := unwrap(mapper.Normalize(raw))
	if len(data) == 0 {
		return res
	}
	transaction := mapper.Map(data["Transaction"])
	response := transactionResponse(data)
	reasonCode := mapper.Nullable(response["ReasonCode"])

	res["order_id"] = mapper.Nullable(mapper.Map(data["Order"])["OrderID"])
	res["group_id"] = mapper.Nullable(mapper.Map(data["Order"])["GroupID"])
	res["auth_code"] = mapper.Nullable(transaction["AuthCode"])
	res["ref_ret_num"] = mapper.Nullable(transaction["RetrefNum"])
	res["transaction_id"] = mapper.Nullable(transaction["SequenceNum"])
	res["proc_return_code"] = reasonCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, reasonCode)

	if mapper.String(reasonCode) == procedureSuccessCode {
		res["status"] = mapper.TxApproved
	} else {
		res["error_code"] = reasonCode
		res["error_message"] = mapper.Coalesce(mapper.Nullable(response["ErrorMsg"]), mapper.Nullable(response["SysErrMsg"]))
	}
	return res
}

// MapStatusResponse maps an orderinq response (Order.OrderInqResult)
func (m *Mapper) MapStatusResponse(raw map[string]any) (mapper.Result, error) {
	res := mapper.DefaultStatusResponse(raw)
	data := unwrap(mapper.Normalize(raw))
	if len(data) == 0 {
		return res, nil
	}
	orderData := mapper.Map(data["Order"])
	inq := mapper.Map(orderData["OrderInqResult"])
	response := transactionResponse(data)
	reasonCode := mapper.Nullable(response["ReasonCode"])

	res["order_id"] = mapper.Nullable(orderData["OrderID"])
	res["proc_return_code"] = reasonCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, reasonCode)

	if mapper.String(reasonCode) != procedureSuccessCode {
		res["error_code"] = reasonCode
		res["error_message"] = mapper.Coalesce(mapper.Nullable(response["ErrorMsg"]), mapper.Nullable(response["SysErrMsg"]))
		return res, nil
	}

	res["status"] = mapper.TxApproved
	res["auth_code"] = mapper.Nullable(inq["AuthCode"])
	res["ref_ret_num"] = mapper.Nullable(inq["RetrefNum"])
	res["transaction_id"] = mapper.Nullable(mapper.Map(data["Transaction"])["SequenceNum"])
	res["masked_number"] = mapper.Nullable(inq["CardNumberMasked"])
	res["installment_count"] = mapper.MapInstallment(inq["InstallmentCnt"])
	res["currency"] = m.MapCurrency(inq["CurrencyCode"])
	res["transaction_type"] = m.MapTxType(strings.ToLower(mapper.String(inq["ChargeType"])))

	orderStatus, known := orderStatuses[strings.ToUpper(mapper.String(inq["Status"]))]
	if known {
		res["order_status"] = orderStatus
	}

	if orderStatus == mapper.OrderStatusPreAuthCompleted {
		res["first_amount"] = mapper.AmountOrNil(inq["PreAuthAmount"], mapper.FormatMinorAmount)
		res["transaction_time"] = mapper.ParseTime(inq["PreAuthDate"], timeLayouts...)
	} else {
		res["first_amount"] = mapper.AmountOrNil(inq["AuthAmount"], mapper.FormatMinorAmount)
		res["capture_amount"] = res["first_amount"]
		res["transaction_time"] = mapper.ParseTime(inq["AuthDate"], timeLayouts...)
		res["capture_time"] = res["transaction_time"]
	}
	if orderStatus == mapper.OrderStatusCanceled {
		res["cancel_time"] = mapper.ParseTime(inq["VoidDate"], timeLayouts...)
	}
	if refund := mapper.FormatMinorAmount(inq["RefundAmount"]); refund > 0 {
		res["refund_amount"] = refund
		res["refund_time"] = mapper.ParseTime(inq["RefundDate"], timeLayouts...)
	}
	mapper.SetCapture(res)

	return res, nil
}

// MapHistoryResponse maps an orderlistinq response (Order.OrderListInqResult)
func (m *Mapper) MapHistoryResponse(raw map[string]any) (mapper.Result, error) {
	res := mapper.DefaultHistoryResponse(raw)
	data := unwrap(mapper.Normalize(raw))
	if len(data) == 0 {
		return res, nil
	}
	m.mapTxnList(data, "OrderListInqResult", res)
	return res, nil
}

// MapOrderHistoryResponse maps an orderhistoryinq response (Order.OrderHistInqResult)
func (m *Mapper) MapOrderHistoryResponse(raw map[string]any) (mapper.Result, error) {
	res := mapper.DefaultOrderHistoryResponse(raw)
	data := unwrap(mapper.Normalize(raw))
	if len(data) == 0 {
		return res, nil
	}
	res["order_id"] = mapper.Nullable(mapper.Map(data["Order"])["OrderID"])
	m.mapTxnList(data, "OrderHistInqResult", res)
	return res, nil
}

func (m *Mapper) mapTxnList(data map[string]any, resultKey string, res mapper.Result) {
	response := transactionResponse(data)
	reasonCode := mapper.Nullable(response["ReasonCode"])
	res["proc_return_code"] = reasonCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, reasonCode)

	if mapper.String(reasonCode) != procedureSuccessCode {
		res["error_code"] = reasonCode
		res["error_message"] = mapper.Coalesce(mapper.Nullable(response["ErrorMsg"]), mapper.Nullable(response["SysErrMsg"]))
		return
	}
	res["status"] = mapper.TxApproved

	inq := mapper.Map(mapper.Map(data["Order"])[resultKey])
	records := txnRecords(mapper.Map(inq["OrderTxnList"])["OrderTxn"])

	txs := make([]mapper.Result, 0, len(records))
	for _, record := range records {
		txs = append(txs, m.mapHistoryTransaction(record))
	}
	res["transactions"] = txs
	res["trans_count"] = len(txs)
}

// txnRecords returns OrderTxn as a list. A single transaction is decoded as a
// map, recognised by its Type key, several as a list of maps.
func txnRecords(v any) []map[string]any {
	if single := mapper.Map(v); single != nil {
		if _, ok := single["Type"]; ok {
			return []map[string]any{single}
		}
		return nil
	}
	list := mapper.List(v)
	records := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if record := mapper.Map(item); record != nil {
			records = append(records, record)
		}
	}
	return records
}

func (m *Mapper) mapHistoryTransaction(record map[string]any) mapper.Result {
	returnCode := mapper.Nullable(record["ReturnCode"])

	tx := mapper.DefaultHistoryTransaction()
	tx["order_id"] = mapper.Nullable(record["OrderID"])
	tx["transaction_type"] = m.MapTxType(strings.ToLower(mapper.String(record["Type"])))
	tx["proc_return_code"] = returnCode
	tx["status_detail"] = mapper.StatusDetail(statusCodes, returnCode)
	tx["auth_code"] = mapper.Nullable(record["AuthCode"])
	tx["ref_ret_num"] = mapper.Nullable(record["RetrefNum"])
	tx["batch_num"] = mapper.Nullable(record["BatchNum"])
	tx["masked_number"] = mapper.Nullable(record["CardNumberMasked"])
	tx["currency"] = m.MapCurrency(record["CurrencyCode"])
	tx["installment_count"] = mapper.MapInstallment(record["InstallmentCnt"])

	if mapper.String(returnCode) != procedureSuccessCode {
		tx["error_code"] = returnCode
		tx["error_message"] = mapper.Nullable(record["ErrorMsg"])
		tx["transaction_time"] = mapper.ParseTime(mapper.Coalesce(record["AuthDate"], record["PreAuthDate"]), timeLayouts...)
		return tx
	}
	tx["status"] = mapper.TxApproved

	if tx["transaction_type"] == mapper.TxTypePayPreAuth {
		tx["first_amount"] = mapper.AmountOrNil(record["PreAuthAmount"], mapper.FormatMinorAmount)
		tx["transaction_time"] = mapper.ParseTime(record["PreAuthDate"], timeLayouts...)
		tx["order_status"] = mapper.OrderStatusPreAuthCompleted
	} else {
		tx["first_amount"] = mapper.AmountOrNil(record["AuthAmount"], mapper.FormatMinorAmount)
		tx["transaction_time"] = mapper.ParseTime(record["AuthDate"], timeLayouts...)
		if tx["transaction_type"] == mapper.TxTypePayAuth || tx["transaction_type"] == mapper.TxTypePayPostAuth {
			tx["capture_amount"] = tx["first_amount"]
			tx["capture_time"] = tx["transaction_time"]
			tx["order_status"] = mapper.OrderStatusCompleted
		}
	}
	if voidDate := mapper.ParseTime(record["VoidDate"], timeLayouts...); voidDate != nil {
		tx["order_status"] = mapper.OrderStatusCanceled
		tx["cancel_time"] = voidDate
	}
	mapper.SetCapture(tx)

	return tx
}

package estpos

import (
	"fmt"
	"strings"

	"github.com/mstgnz/gopos/mapper"
)

const (
	gatewayName = "estpos"

	procedureSuccessCode = "00"
	responseApproved     = "Approved"
)

// Time layouts seen in EST v3 responses
var timeLayouts = []string{
	"20060102 15:04:05",
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05.0",
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

// Order status codes of ORDERSTATUS / TRANS_STAT
var orderStatuses = map[string]mapper.OrderStatus{
	"D":    mapper.OrderStatusError,
	"ERR":  mapper.OrderStatusError,
	"A":    mapper.OrderStatusPending,
	"C":    mapper.OrderStatusCompleted,
	"S":    mapper.OrderStatusCompleted,
	"PN":   mapper.OrderStatusPending,
	"CNCL": mapper.OrderStatusCanceled,
	"V":    mapper.OrderStatusCanceled,
}

// CHARGE_TYPE_CD codes of status and history records
var chargeTypes = map[string]mapper.TxType{
	"S":  mapper.TxTypePayAuth,
	"C":  mapper.TxTypeRefund,
	"PA": mapper.TxTypePayPreAuth,
	"PS": mapper.TxTypePayPostAuth,
}

// DefaultTables returns the EST v3 codes
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
			mapper.TxTypeRefund:        mapper.Code("Credit"),
			mapper.TxTypeRefundPartial: mapper.Code("Credit"),
		},
		SecureTypes: map[mapper.PaymentModel]string{
			mapper.ModelNonSecure:    "regular",
			mapper.Model3DSecure:     "3d",
			mapper.Model3DPay:        "3d_pay",
			mapper.Model3DPayHosting: "3d_pay_hosting",
			mapper.Model3DHost:       "3d_host",
		},
	}
}

// Mapper maps EST v3 (Payten / Asseco) responses
type Mapper struct {
	mapper.Base
}

// NewMapper creates an EST v3 mapper
func NewMapper(cfg mapper.Config) (mapper.ResponseMapper, error) {
	tables := cfg.Tables.WithDefaults(DefaultTables())
	if err := mapper.ValidateTables(tables); err != nil {
		return nil, fmt.Errorf("%s: invalid tables: %w", gatewayName, err)
	}
	return &Mapper{Base: mapper.NewBase(gatewayName, tables, cfg.Logger)}, nil
}

func isApproved(data map[string]any) bool {
	return mapper.String(data["ProcReturnCode"]) == procedureSuccessCode &&
		mapper.String(data["Response"]) == responseApproved
}

// MapPaymentResponse maps the CC5 payment response
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
	extra := mapper.Map(data["Extra"])

	procReturnCode := mapper.Nullable(data["ProcReturnCode"])
	res["order_id"] = mapper.Coalesce(mapper.Nullable(data["OrderId"]), order.IDOrNil())
	res["transaction_id"] = mapper.Nullable(data["TransId"])
	res["auth_code"] = mapper.Nullable(data["AuthCode"])
	res["ref_ret_num"] = mapper.Nullable(data["HostRefNum"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)
	res["currency"] = order.CurrencyOrNil()
	res["amount"] = order.AmountOrNil()
	res["installment_count"] = mapper.MapInstallment(order.Installment)

	if isApproved(data) {
		res["status"] = mapper.TxApproved
		res["transaction_time"] = mapper.ParseTime(extra["TRXDATE"], timeLayouts...)
		res["batch_num"] = mapper.Nullable(extra["SETTLEID"])
	} else {
		res["error_code"] = mapper.Coalesce(mapper.Nullable(extra["ERRORCODE"]), procReturnCode)
		res["error_message"] = mapper.Nullable(data["ErrMsg"])
	}

	m.Debug("mapped payment response", map[string]any{"status": res["status"], "tx_type": txType})
	return res
}

// ExtractMdStatus returns the mdStatus field of a 3D callback
func (m *Mapper) ExtractMdStatus(raw map[string]any) string {
	return strings.TrimSpace(mapper.String(raw["mdStatus"]))
}

// Is3DAuthSuccess accepts md status 1 to 4
func (m *Mapper) Is3DAuthSuccess(mdStatus string) bool {
	return mapper.IsMdStatusSuccess(mdStatus)
}

func (m *Mapper) map3DCommon(raw3D, data map[string]any, txType mapper.TxType, model mapper.PaymentModel) mapper.Result {
	mdStatus := mapper.String(data["mdStatus"])

	res := mapper.Default3DResponse(txType, m.ResolvePaymentModel(data["storetype"], model))
	res["order_id"] = mapper.Nullable(data["oid"])
	res["md_status"] = mapper.Nullable(mdStatus)
	res["transaction_security"] = mapper.TransactionSecurity(mdStatus)
	res["masked_number"] = mapper.Nullable(data["maskedCreditCard"])
	res["amount"] = mapper.AmountOrNil(data["amount"], mapper.FormatAmount)
	res["currency"] = m.MapCurrency(data["currency"])
	res["installment_count"] = mapper.MapInstallment(data["taksit"])
	res["3d_all"] = raw3D
	if m.Is3DAuthSuccess(mdStatus) {
		res["eci"] = mapper.Nullable(data["eci"])
		res["cavv"] = mapper.Nullable(data["cavv"])
	} else {
		res["md_error_message"] = mapper.Nullable(data["mdErrorMsg"])
	}
	return res
}

// Map3DPaymentData maps the 3D callback and the payment that followed a successful authentication
func (m *Mapper) Map3DPaymentData(raw3D, rawPayment map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	data := mapper.Normalize(raw3D)
	threeD := m.map3DCommon(raw3D, data, txType, mapper.Model3DSecure)

	if !m.Is3DAuthSuccess(mapper.String(data["mdStatus"])) || rawPayment == nil {
		threeD["all"] = raw3D
		threeD["proc_return_code"] = mapper.Nullable(data["ProcReturnCode"])
		threeD["error_code"] = mapper.Coalesce(mapper.Nullable(data["ErrCode"]), mapper.Nullable(data["ProcReturnCode"]), mapper.Nullable(data["mdStatus"]))
		threeD["error_message"] = mapper.Coalesce(mapper.Nullable(data["mdErrorMsg"]), mapper.Nullable(data["ErrMsg"]))
		return threeD, nil
	}

	payment := m.mapPayment(rawPayment, txType, mapper.Model3DSecure, order)
	return mapper.MergePreferNonNull(threeD, payment), nil
}

// Map3DPayResponseData maps the combined 3D Pay callback
func (m *Mapper) Map3DPayResponseData(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.mapCallback(raw, txType, mapper.Model3DPay), nil
}

// Map3DHostResponseData maps the 3D Host callback, which has the same shape as 3D Pay
func (m *Mapper) Map3DHostResponseData(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.mapCallback(raw, txType, mapper.Model3DHost), nil
}

func (m *Mapper) mapCallback(raw map[string]any, txType mapper.TxType, model mapper.PaymentModel) mapper.Result {
	data := mapper.Normalize(raw)
	res := m.map3DCommon(raw, data, txType, model)
	res["all"] = raw
	if len(data) == 0 {
		return res
	}

	procReturnCode := mapper.Nullable(data["ProcReturnCode"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)
	res["transaction_id"] = mapper.Nullable(data["TransId"])
	res["auth_code"] = mapper.Nullable(data["AuthCode"])
	res["ref_ret_num"] = mapper.Nullable(data["HostRefNum"])

	authSuccess := m.Is3DAuthSuccess(mapper.String(data["mdStatus"]))
	if authSuccess && isApproved(data) {
		res["status"] = mapper.TxApproved
		res["transaction_time"] = mapper.ParseTime(data["EXTRA.TRXDATE"], timeLayouts...)
	} else {
		res["error_code"] = mapper.Coalesce(mapper.Nullable(data["ErrCode"]), procReturnCode, mapper.Nullable(data["mdStatus"]))
		res["error_message"] = mapper.Coalesce(mapper.Nullable(data["ErrMsg"]), mapper.Nullable(data["mdErrorMsg"]))
	}

	m.Debug("mapped 3d callback", map[string]any{"status": res["status"], "payment_model": model})
	return res
}

// MapRefundResponse maps a Credit response
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
	extra := mapper.Map(data["Extra"])

	procReturnCode := mapper.Nullable(data["ProcReturnCode"])
	res["order_id"] = mapper.Nullable(data["OrderId"])
	res["group_id"] = mapper.Nullable(data["GroupId"])
	res["auth_code"] = mapper.Nullable(data["AuthCode"])
	res["ref_ret_num"] = mapper.Nullable(data["HostRefNum"])
	res["transaction_id"] = mapper.Nullable(data["TransId"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)

	if isApproved(data) {
		res["status"] = mapper.TxApproved
	} else {
		res["error_code"] = mapper.Coalesce(mapper.Nullable(extra["ERRORCODE"]), procReturnCode)
		res["error_message"] = mapper.Nullable(data["ErrMsg"])
	}
	return res
}

// MapStatusResponse maps an ORDERSTATUS query, expanding recurring orders when present
func (m *Mapper) MapStatusResponse(raw map[string]any) (mapper.Result, error) {
	res := mapper.DefaultStatusResponse(raw)
	data := mapper.Normalize(raw)
	if len(data) == 0 {
		return res, nil
	}
	extra := mapper.Map(data["Extra"])

	procReturnCode := mapper.Nullable(data["ProcReturnCode"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)
	res["order_id"] = mapper.Coalesce(mapper.Nullable(extra["ORD_ID"]), mapper.Nullable(data["OrderId"]))

	if mapper.String(procReturnCode) != procedureSuccessCode {
		res["error_code"] = mapper.Coalesce(mapper.Nullable(extra["ERRORCODE"]), procReturnCode)
		res["error_message"] = mapper.Nullable(data["ErrMsg"])
		return res, nil
	}
	res["status"] = mapper.TxApproved

	if recurringID := mapper.Nullable(extra["RECURRINGID"]); recurringID != nil {
		res["recurring_id"] = recurringID
		res["recurring_installment_count"] = mapper.Int(extra["RECURRINGCOUNT"])
		res["recurring_orders"] = m.mapRecurringOrders(extra)
		return res, nil
	}

	res["auth_code"] = mapper.Nullable(extra["AUTH_CODE"])
	res["ref_ret_num"] = mapper.Nullable(extra["HOST_REF_NUM"])
	res["transaction_id"] = mapper.Nullable(extra["TRANS_ID"])
	res["order_status"] = orderStatus(extra["TRANS_STAT"])
	res["transaction_type"] = chargeType(extra["CHARGE_TYPE_CD"])
	res["masked_number"] = mapper.Nullable(extra["PAN"])
	res["first_amount"] = mapper.AmountOrNil(extra["ORIG_TRANS_AMT"], mapper.FormatMinorAmount)
	res["capture_amount"] = mapper.AmountOrNil(extra["CAPTURE_AMT"], mapper.FormatMinorAmount)
	res["transaction_time"] = mapper.ParseTime(extra["AUTH_DTTM"], timeLayouts...)
	res["capture_time"] = mapper.ParseTime(extra["CAPTURE_DTTM"], timeLayouts...)
	res["cancel_time"] = mapper.ParseTime(extra["VOID_DTTM"], timeLayouts...)
	res["currency"] = m.MapCurrency(extra["CURRENCY"])
	res["installment_count"] = mapper.MapInstallment(extra["TAKSIT"])
	mapper.SetCapture(res)

	m.Debug("mapped status response", map[string]any{"order_status": res["order_status"]})
	return res, nil
}

// mapRecurringOrders reads ORD_ID_1, ORD_ID_2, ... until the first missing index
func (m *Mapper) mapRecurringOrders(extra map[string]any) []mapper.Result {
	orders := []mapper.Result{}
	for i := 1; ; i++ {
		key := func(name string) any { return extra[fmt.Sprintf("%s_%d", name, i)] }
		orderID := mapper.Nullable(key("ORD_ID"))
		if orderID == nil {
			break
		}

		procReturnCode := mapper.Nullable(key("PROC_RET_CD"))
		rec := mapper.DefaultHistoryTransaction()
		rec["order_id"] = orderID
		rec["auth_code"] = mapper.Nullable(key("AUTH_CODE"))
		rec["ref_ret_num"] = mapper.Nullable(key("HOST_REF_NUM"))
		rec["transaction_id"] = mapper.Nullable(key("TRANS_ID"))
		rec["proc_return_code"] = procReturnCode
		rec["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)
		rec["order_status"] = orderStatus(key("TRANS_STAT"))
		rec["transaction_type"] = chargeType(key("CHARGE_TYPE_CD"))
		rec["masked_number"] = mapper.Nullable(key("PAN"))
		rec["first_amount"] = mapper.AmountOrNil(key("ORIG_TRANS_AMT"), mapper.FormatMinorAmount)
		rec["capture_amount"] = mapper.AmountOrNil(key("CAPTURE_AMT"), mapper.FormatMinorAmount)
		rec["transaction_time"] = mapper.ParseTime(key("AUTH_DTTM"), timeLayouts...)
		rec["capture_time"] = mapper.ParseTime(key("CAPTURE_DTTM"), timeLayouts...)
		mapper.SetCapture(rec)

		if mapper.String(procReturnCode) == procedureSuccessCode {
			rec["status"] = mapper.TxApproved
		} else if procReturnCode != nil {
			rec["error_code"] = procReturnCode
			rec["error_message"] = mapper.Nullable(key("ERR_MSG"))
		}
		orders = append(orders, rec)
	}
	return orders
}

// MapHistoryResponse is not available on EST v3
func (m *Mapper) MapHistoryResponse(raw map[string]any) (mapper.Result, error) {
	return m.NotSupported("history")
}

// MapOrderHistoryResponse maps an ORDERHISTORY query. Records come as tab separated TRX1..TRXn values.
func (m *Mapper) MapOrderHistoryResponse(raw map[string]any) (mapper.Result, error) {
	res := mapper.DefaultOrderHistoryResponse(raw)
	data := mapper.Normalize(raw)
	if len(data) == 0 {
		return res, nil
	}
	extra := mapper.Map(data["Extra"])

	procReturnCode := mapper.Nullable(data["ProcReturnCode"])
	res["order_id"] = mapper.Nullable(data["OrderId"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)

	if mapper.String(procReturnCode) != procedureSuccessCode {
		res["error_code"] = mapper.Coalesce(mapper.Nullable(extra["ERRORCODE"]), procReturnCode)
		res["error_message"] = mapper.Nullable(data["ErrMsg"])
		return res, nil
	}
	res["status"] = mapper.TxApproved

	txs := []mapper.Result{}
	for i := 1; ; i++ {
		record := mapper.Nullable(extra[fmt.Sprintf("TRX%d", i)])
		if record == nil {
			break
		}
		txs = append(txs, m.mapOrderHistoryTransaction(mapper.String(record)))
	}
	res["transactions"] = txs
	res["trans_count"] = len(txs)
	return res, nil
}

// TRX record fields
const (
	trxChargeType = iota
	trxStatus
	trxFirstAmount
	trxCaptureAmount
	trxAuthTime
	trxCaptureTime
	trxSettleID
	trxHostRefNum
	trxAuthCode
	trxProcReturnCode
	trxTransID
)

func (m *Mapper) mapOrderHistoryTransaction(record string) mapper.Result {
	fields := strings.Split(record, "\t")

	procReturnCode := mapper.Field(fields, trxProcReturnCode)
	tx := mapper.DefaultHistoryTransaction()
	tx["transaction_type"] = chargeType(mapper.Field(fields, trxChargeType))
	tx["order_status"] = orderStatus(mapper.Field(fields, trxStatus))
	tx["first_amount"] = mapper.AmountOrNil(mapper.Field(fields, trxFirstAmount), mapper.FormatMinorAmount)
	tx["capture_amount"] = mapper.AmountOrNil(mapper.Field(fields, trxCaptureAmount), mapper.FormatMinorAmount)
	tx["transaction_time"] = mapper.ParseTime(mapper.Field(fields, trxAuthTime), timeLayouts...)
	tx["capture_time"] = mapper.ParseTime(mapper.Field(fields, trxCaptureTime), timeLayouts...)
	tx["batch_num"] = mapper.Field(fields, trxSettleID)
	tx["ref_ret_num"] = mapper.Field(fields, trxHostRefNum)
	tx["auth_code"] = mapper.Field(fields, trxAuthCode)
	tx["proc_return_code"] = procReturnCode
	tx["transaction_id"] = mapper.Field(fields, trxTransID)
	tx["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)
	mapper.SetCapture(tx)

	if mapper.String(procReturnCode) == procedureSuccessCode {
		tx["status"] = mapper.TxApproved
	} else {
		tx["error_code"] = procReturnCode
	}
	return tx
}

func orderStatus(code any) any {
	if status, ok := orderStatuses[mapper.String(code)]; ok {
		return status
	}
	return nil
}

func chargeType(code any) any {
	if txType, ok := chargeTypes[mapper.String(code)]; ok {
		return txType
	}
	return nil
}

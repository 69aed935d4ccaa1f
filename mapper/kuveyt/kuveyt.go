package kuveyt

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mstgnz/gopos/mapper"
)

const (
	gatewayName = "kuveyt"

	procedureSuccessCode = "00"
)

var timeLayouts = []string{
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
}

var statusCodes = map[string]string{
	"00":                   "approved",
	"05":                   "reject",
	"51":                   "insufficient_balance",
	"54":                   "expired_card",
	"57":                   "does_not_allow_card_holder",
	"62":                   "restricted_card",
	"MetaDataNotFound":     "payment_not_found",
	"EmptyMDException":     "invalid_transaction",
	"HashDataError":        "invalid_transaction",
	"CardNotEnrolled":      "invalid_transaction",
	"InvalidAmount":        "invalid_transaction",
	"OrderNotFound":        "payment_not_found",
	"ReversalNotAvailable": "invalid_transaction",
}

// LastOrderStatus codes
var orderStatuses = map[string]mapper.OrderStatus{
	"1": mapper.OrderStatusCompleted,
	"4": mapper.OrderStatusFullyRefunded,
	"5": mapper.OrderStatusPartiallyRefunded,
	"6": mapper.OrderStatusCanceled,
}

// DefaultTables returns the KuveytTürk codes
func DefaultTables() mapper.Tables {
	return mapper.Tables{
		Currencies: map[string]string{
			mapper.CurrencyTRY: "0949",
			mapper.CurrencyUSD: "0840",
			mapper.CurrencyEUR: "0978",
			mapper.CurrencyGBP: "0826",
			mapper.CurrencyJPY: "0392",
			mapper.CurrencyRUB: "0643",
		},
		TxTypes: map[mapper.TxType]mapper.TxTypeCodes{
			mapper.TxTypePayAuth:       mapper.Code("Sale"),
			mapper.TxTypeCancel:        mapper.Code("SaleReversal"),
			mapper.TxTypeRefund:        mapper.Code("Drawback"),
			mapper.TxTypeRefundPartial: mapper.Code("PartialDrawback"),
			mapper.TxTypeStatus:        mapper.Code("GetMerchantOrderDetail"),
		},
	}
}

// Mapper maps KuveytTürk virtual POS responses
type Mapper struct {
	mapper.Base
}

// NewMapper creates a KuveytTürk mapper
func NewMapper(cfg mapper.Config) (mapper.ResponseMapper, error) {
	tables := cfg.Tables.WithDefaults(DefaultTables())
	if err := mapper.ValidateTables(tables); err != nil {
		return nil, fmt.Errorf("%s: invalid tables: %w", gatewayName, err)
	}
	return &Mapper{Base: mapper.NewBase(gatewayName, tables, cfg.Logger)}, nil
}

// MapPaymentResponse maps a provision response (VPosTransactionResponseContract)
func (m *Mapper) MapPaymentResponse(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.mapPayment(raw, txType, mapper.ModelNonSecure, order), nil
}

func (m *Mapper) mapPayment(raw map[string]any, txType mapper.TxType, model mapper.PaymentModel, order mapper.Order) mapper.Result {
	res := mapper.DefaultPaymentResponse(txType, model)
	res["all"] = raw
	res["remote_order_id"] = nil
	res["masked_number"] = nil

	data := mapper.Normalize(raw)
	if len(data) == 0 {
		return res
	}
	vposMessage := mapper.Map(data["VPosMessage"])

	procReturnCode := mapper.Nullable(data["ResponseCode"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)
	res["order_id"] = mapper.Coalesce(mapper.Nullable(data["MerchantOrderId"]), order.IDOrNil())
	res["remote_order_id"] = mapper.Nullable(data["OrderId"])
	res["currency"] = mapper.Coalesce(m.MapCurrency(vposMessage["CurrencyCode"]), order.CurrencyOrNil())
	res["amount"] = mapper.Coalesce(mapper.AmountOrNil(vposMessage["Amount"], mapper.FormatMinorAmount), order.AmountOrNil())
	res["installment_count"] = mapper.MapInstallment(vposMessage["InstallmentCount"])
	res["masked_number"] = mapper.Nullable(vposMessage["CardNumber"])

	if mapper.String(procReturnCode) != procedureSuccessCode {
		res["error_code"] = procReturnCode
		res["error_message"] = mapper.Nullable(data["ResponseMessage"])
		return res
	}

	res["status"] = mapper.TxApproved
	res["auth_code"] = mapper.Nullable(data["ProvisionNumber"])
	res["ref_ret_num"] = mapper.Nullable(data["RRN"])
	res["transaction_id"] = mapper.Nullable(data["Stan"])
	res["transaction_time"] = mapper.ParseTime(data["TransactionTime"], timeLayouts...)
	res["batch_num"] = mapper.Nullable(vposMessage["BatchID"])

	m.Debug("mapped payment response", map[string]any{"status": res["status"], "tx_type": txType})
	return res
}

// ExtractMdStatus returns the response code of the authentication callback
func (m *Mapper) ExtractMdStatus(raw map[string]any) string {
	return strings.TrimSpace(mapper.String(raw["ResponseCode"]))
}

// Is3DAuthSuccess only accepts the procedure success code
func (m *Mapper) Is3DAuthSuccess(mdStatus string) bool {
	return mdStatus == procedureSuccessCode
}

// Map3DPaymentData maps the authentication callback and the provision call that followed it
func (m *Mapper) Map3DPaymentData(raw3D, rawPayment map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	data := mapper.Normalize(raw3D)
	mdStatus := mapper.String(data["ResponseCode"])
	vposMessage := mapper.Map(data["VPosMessage"])

	threeD := mapper.Default3DResponse(txType, mapper.Model3DSecure)
	threeD["all"] = raw3D
	threeD["3d_all"] = raw3D
	threeD["order_id"] = mapper.Nullable(data["MerchantOrderId"])
	threeD["remote_order_id"] = mapper.Nullable(data["OrderId"])
	threeD["md_status"] = mapper.Nullable(mdStatus)
	threeD["masked_number"] = mapper.Nullable(vposMessage["CardNumber"])
	threeD["amount"] = mapper.AmountOrNil(vposMessage["Amount"], mapper.FormatMinorAmount)
	threeD["currency"] = m.MapCurrency(vposMessage["CurrencyCode"])
	threeD["installment_count"] = mapper.MapInstallment(vposMessage["InstallmentCount"])

	if !m.Is3DAuthSuccess(mdStatus) || rawPayment == nil {
		threeD["proc_return_code"] = mapper.Nullable(mdStatus)
		threeD["status_detail"] = mapper.StatusDetail(statusCodes, mdStatus)
		threeD["md_error_message"] = mapper.Nullable(data["ResponseMessage"])
		threeD["error_code"] = mapper.Nullable(mdStatus)
		threeD["error_message"] = mapper.Nullable(data["ResponseMessage"])
		return threeD, nil
	}

	payment := m.mapPayment(rawPayment, txType, mapper.Model3DSecure, order)
	return mapper.MergePreferNonNull(threeD, payment), nil
}

// Map3DPayResponseData is not offered by KuveytTürk
func (m *Mapper) Map3DPayResponseData(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.NotSupported("3d_pay")
}

// Map3DHostResponseData is not offered by KuveytTürk
func (m *Mapper) Map3DHostResponseData(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.NotSupported("3d_host")
}

// soapResult unwraps {Method}Response.{Method}Result
func soapResult(data map[string]any) map[string]any {
	keys := make([]string, 0, len(data))
	for key := range data {
		if strings.HasSuffix(key, "Response") {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		response := mapper.Map(data[key])
		for inner, value := range response {
			if strings.HasSuffix(inner, "Result") {
				return mapper.Map(value)
			}
		}
	}
	return nil
}

// resultError reads Results.Result.{ErrorCode,ErrorMessage}, Result may be a list
func resultError(result map[string]any) (code, message any) {
	results := mapper.Map(result["Results"])
	entry := mapper.Map(results["Result"])
	if entry == nil {
		if list := mapper.List(results["Result"]); len(list) > 0 {
			entry = mapper.Map(list[0])
		}
	}
	return mapper.Nullable(entry["ErrorCode"]), mapper.Nullable(entry["ErrorMessage"])
}

// MapRefundResponse maps Drawback and PartialDrawback responses
func (m *Mapper) MapRefundResponse(raw map[string]any) (mapper.Result, error) {
	return m.mapSoapTransaction(raw), nil
}

// MapCancelResponse maps a SaleReversal response
func (m *Mapper) MapCancelResponse(raw map[string]any) (mapper.Result, error) {
	return m.mapSoapTransaction(raw), nil
}

func (m *Mapper) mapSoapTransaction(raw map[string]any) mapper.Result {
	res := mapper.DefaultRefundResponse(raw)
	res["remote_order_id"] = nil

	data := mapper.Normalize(raw)
	result := soapResult(data)
	if result == nil {
		return res
	}

	if code, message := resultError(result); message != nil {
		res["error_code"] = code
		res["error_message"] = message
		return res
	}

	value := mapper.Map(result["Value"])
	procReturnCode := mapper.Nullable(value["ResponseCode"])
	res["order_id"] = mapper.Nullable(value["MerchantOrderId"])
	res["remote_order_id"] = mapper.Nullable(value["OrderId"])
	res["auth_code"] = mapper.Nullable(value["ProvisionNumber"])
	res["ref_ret_num"] = mapper.Nullable(value["RRN"])
	res["transaction_id"] = mapper.Nullable(value["Stan"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)

	if mapper.Bool(result["Success"]) && mapper.String(procReturnCode) == procedureSuccessCode {
		res["status"] = mapper.TxApproved
	} else {
		res["error_code"] = procReturnCode
		res["error_message"] = mapper.Nullable(value["ResponseMessage"])
	}
	return res
}

// MapStatusResponse maps GetMerchantOrderDetail
func (m *Mapper) MapStatusResponse(raw map[string]any) (mapper.Result, error) {
	res := mapper.DefaultStatusResponse(raw)
	data := mapper.Normalize(raw)
	result := soapResult(data)
	if result == nil {
		return res, nil
	}

	if code, message := resultError(result); message != nil {
		res["error_code"] = code
		res["error_message"] = message
		return res, nil
	}

	value := mapper.Map(result["Value"])
	contract := mapper.Map(value["OrderContract"])
	if contract == nil {
		if list := mapper.List(value["OrderContract"]); len(list) > 0 {
			contract = mapper.Map(list[0])
		}
	}
	if contract == nil {
		res["error_message"] = mapper.Nullable(value["ResponseMessage"])
		return res, nil
	}

	procReturnCode := mapper.Nullable(contract["ResponseCode"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)
	res["order_id"] = mapper.Nullable(contract["MerchantOrderId"])
	res["remote_order_id"] = mapper.Nullable(contract["OrderId"])
	res["auth_code"] = mapper.Nullable(contract["ProvNumber"])
	res["ref_ret_num"] = mapper.Nullable(contract["RRN"])
	res["transaction_id"] = mapper.Nullable(contract["Stan"])
	res["masked_number"] = mapper.Nullable(contract["CardNumber"])
	res["currency"] = m.MapCurrency(contract["FEC"])
	res["installment_count"] = mapper.MapInstallment(contract["InstallmentCount"])

	if mapper.String(procReturnCode) != procedureSuccessCode {
		res["error_code"] = procReturnCode
		res["error_message"] = mapper.Nullable(contract["ResponseExplain"])
		return res, nil
	}

	res["status"] = mapper.TxApproved
	orderStatus := orderStatuses[mapper.String(contract["LastOrderStatus"])]
	if orderStatus != "" {
		res["order_status"] = orderStatus
	}
	res["transaction_type"] = mapper.TxTypePayAuth
	res["transaction_time"] = mapper.ParseTime(contract["OrderDate"], timeLayouts...)
	res["first_amount"] = mapper.AmountOrNil(contract["FirstAmount"], mapper.FormatAmount)
	if orderStatus == mapper.OrderStatusCompleted {
		res["capture_amount"] = res["first_amount"]
		res["capture_time"] = res["transaction_time"]
	}
	if refund := mapper.FormatAmount(contract["DrawbackAmount"]); refund > 0 {
		res["refund_amount"] = refund
	}
	if orderStatus == mapper.OrderStatusCanceled {
		res["cancel_time"] = mapper.ParseTime(contract["UpdateSystemDate"], timeLayouts...)
	}
	mapper.SetCapture(res)

	return res, nil
}

// MapHistoryResponse is not offered by KuveytTürk
func (m *Mapper) MapHistoryResponse(raw map[string]any) (mapper.Result, error) {
	return m.NotSupported("history")
}

// MapOrderHistoryResponse is not offered by KuveytTürk
func (m *Mapper) MapOrderHistoryResponse(raw map[string]any) (mapper.Result, error) {
	return m.NotSupported("order_history")
}

package vakifkatilim

import (
	"fmt"
	"strings"

	"github.com/mstgnz/gopos/mapper"
)

const (
	gatewayName = "vakifkatilim"

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
	"InvalidAmount":        "invalid_transaction",
	"OrderNotFound":        "payment_not_found",
	"ReversalNotAvailable": "invalid_transaction",
}

// LastOrderStatus codes
var orderStatuses = map[string]mapper.OrderStatus{
	"1": mapper.OrderStatusCompleted,
	"2": mapper.OrderStatusPending,
	"4": mapper.OrderStatusFullyRefunded,
	"5": mapper.OrderStatusPartiallyRefunded,
	"6": mapper.OrderStatusCanceled,
}

// DefaultTables returns the Vakıf Katılım codes
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
			mapper.TxTypePayPreAuth:    mapper.Code("PreAuthorization"),
			mapper.TxTypePayPostAuth:   mapper.Code("PreAuthorizationClose"),
			mapper.TxTypeCancel:        mapper.Code("SaleReversal"),
			mapper.TxTypeRefund:        mapper.Code("DrawBack"),
			mapper.TxTypeRefundPartial: mapper.Code("PartialDrawback"),
			mapper.TxTypeStatus:        mapper.Code("SelectOrderByMerchantOrderId"),
			mapper.TxTypeHistory:       mapper.Code("SelectOrder"),
			mapper.TxTypeOrderHistory:  mapper.Code("SelectOrderByMerchantOrderId"),
		},
	}
}

// Mapper maps Vakıf Katılım virtual POS responses
type Mapper struct {
	mapper.Base
}

// NewMapper creates a Vakıf Katılım mapper
func NewMapper(cfg mapper.Config) (mapper.ResponseMapper, error) {
	tables := cfg.Tables.WithDefaults(DefaultTables())
	if err := mapper.ValidateTables(tables); err != nil {
		return nil, fmt.Errorf("%s: invalid tables: %w", gatewayName, err)
	}
	return &Mapper{Base: mapper.NewBase(gatewayName, tables, cfg.Logger)}, nil
}

// mapCurrency pads three digit ISO codes, the bank mixes "949" and "0949".
// Unknown codes come back as sent.
func (m *Mapper) mapCurrency(raw any) any {
	code := mapper.String(raw)
	if code == "" {
		return nil
	}
	padded := code
	if len(padded) < 4 {
		padded = strings.Repeat("0", 4-len(padded)) + padded
	}
	if currency := m.MapCurrency(padded); currency != padded {
		return currency
	}
	return code
}

// MapPaymentResponse maps a provision response
func (m *Mapper) MapPaymentResponse(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.mapPayment(raw, txType, mapper.ModelNonSecure, order), nil
}

func (m *Mapper) mapPayment(raw map[string]any, txType mapper.TxType, model mapper.PaymentModel, order mapper.Order) mapper.Result {
	res := mapper.DefaultPaymentResponse(txType, model)
	res["all"] = raw
	res["remote_order_id"] = nil

	data := mapper.Normalize(raw)
	if len(data) == 0 {
		return res
	}
	vposMessage := mapper.Map(data["VPosMessage"])

	procReturnCode := mapper.Nullable(data["ResponseCode"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)
	res["order_id"] = mapper.Coalesce(mapper.Nullable(data["MerchantOrderId"]), mapper.Nullable(vposMessage["MerchantOrderId"]), order.IDOrNil())
	res["remote_order_id"] = mapper.Nullable(data["OrderId"])
	res["currency"] = mapper.Coalesce(m.mapCurrency(vposMessage["CurrencyCode"]), order.CurrencyOrNil())
	res["amount"] = mapper.Coalesce(mapper.AmountOrNil(vposMessage["Amount"], mapper.FormatMinorAmount), order.AmountOrNil())
	res["installment_count"] = mapper.MapInstallment(vposMessage["InstallmentCount"])

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

func (m *Mapper) map3DCommon(data map[string]any, raw map[string]any, txType mapper.TxType, model mapper.PaymentModel) mapper.Result {
	mdStatus := mapper.String(data["ResponseCode"])
	vposMessage := mapper.Map(data["VPosMessage"])

	res := mapper.Default3DResponse(txType, model)
	res["all"] = raw
	res["3d_all"] = raw
	res["remote_order_id"] = mapper.Nullable(data["OrderId"])
	res["order_id"] = mapper.Coalesce(mapper.Nullable(data["MerchantOrderId"]), mapper.Nullable(vposMessage["MerchantOrderId"]))
	res["md_status"] = mapper.Nullable(mdStatus)
	res["amount"] = mapper.AmountOrNil(vposMessage["Amount"], mapper.FormatMinorAmount)
	res["currency"] = m.mapCurrency(vposMessage["CurrencyCode"])
	res["installment_count"] = mapper.MapInstallment(vposMessage["InstallmentCount"])
	res["proc_return_code"] = mapper.Nullable(mdStatus)
	res["status_detail"] = mapper.StatusDetail(statusCodes, mdStatus)
	if !m.Is3DAuthSuccess(mdStatus) {
		res["md_error_message"] = mapper.Nullable(data["ResponseMessage"])
		res["error_code"] = mapper.Nullable(mdStatus)
		res["error_message"] = mapper.Nullable(data["ResponseMessage"])
	}
	return res
}

// Map3DPaymentData maps the authentication callback and the provision call that followed it
func (m *Mapper) Map3DPaymentData(raw3D, rawPayment map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	data := mapper.Normalize(raw3D)
	threeD := m.map3DCommon(data, raw3D, txType, mapper.Model3DSecure)

	if !m.Is3DAuthSuccess(m.ExtractMdStatus(data)) || rawPayment == nil {
		return threeD, nil
	}

	payment := m.mapPayment(rawPayment, txType, mapper.Model3DSecure, order)
	return mapper.MergePreferNonNull(threeD, payment), nil
}

// Map3DPayResponseData is not offered by Vakıf Katılım
func (m *Mapper) Map3DPayResponseData(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.NotSupported("3d_pay")
}

// Map3DHostResponseData maps the common payment page callback, a successful
// authentication there is also the completed sale
func (m *Mapper) Map3DHostResponseData(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	data := mapper.Normalize(raw)
	res := m.map3DCommon(data, raw, txType, mapper.Model3DHost)
	res["order_id"] = mapper.Coalesce(res["order_id"], order.IDOrNil())
	res["amount"] = mapper.Coalesce(res["amount"], order.AmountOrNil())
	res["currency"] = mapper.Coalesce(res["currency"], order.CurrencyOrNil())

	if m.Is3DAuthSuccess(mapper.String(data["ResponseCode"])) {
		res["status"] = mapper.TxApproved
		res["auth_code"] = mapper.Nullable(data["ProvisionNumber"])
		res["ref_ret_num"] = mapper.Nullable(data["RRN"])
		res["transaction_id"] = mapper.Nullable(data["Stan"])
	}
	return res, nil
}

// MapRefundResponse maps DrawBack and PartialDrawback responses
func (m *Mapper) MapRefundResponse(raw map[string]any) (mapper.Result, error) {
	return m.mapRefund(raw), nil
}

// MapCancelResponse maps a SaleReversal response
func (m *Mapper) MapCancelResponse(raw map[string]any) (mapper.Result, error) {
	return m.mapRefund(raw), nil
}

func (m *Mapper) mapRefund(raw map[string]any) mapper.Result {
	res := mapper.DefaultRefundResponse(raw)
	res["remote_order_id"] = nil

	data := mapper.Normalize(raw)
	if len(data) == 0 {
		return res
	}

	procReturnCode := mapper.Nullable(data["ResponseCode"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)
	res["order_id"] = mapper.Nullable(data["MerchantOrderId"])
	res["remote_order_id"] = mapper.Nullable(data["OrderId"])
	res["auth_code"] = mapper.Nullable(data["ProvisionNumber"])
	res["ref_ret_num"] = mapper.Nullable(data["RRN"])
	res["transaction_id"] = mapper.Nullable(data["Stan"])

	if mapper.String(procReturnCode) == procedureSuccessCode {
		res["status"] = mapper.TxApproved
	} else {
		res["error_code"] = procReturnCode
		res["error_message"] = mapper.Nullable(data["ResponseMessage"])
	}
	return res
}

// orderContracts returns VPosOrderData.OrderContract as a list, it is a map for a single order
func orderContracts(data map[string]any) []map[string]any {
	orderData := mapper.Map(data["VPosOrderData"])
	if single := mapper.Map(orderData["OrderContract"]); single != nil {
		return []map[string]any{single}
	}
	list := mapper.List(orderData["OrderContract"])
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if contract := mapper.Map(item); contract != nil {
			out = append(out, contract)
		}
	}
	return out
}

// mapContract fills the common fields of an order contract into res
func (m *Mapper) mapContract(res mapper.Result, contract map[string]any) {
	res["auth_code"] = mapper.Nullable(contract["ProvNumber"])
	res["ref_ret_num"] = mapper.Nullable(contract["RRN"])
	res["transaction_id"] = mapper.Nullable(contract["Stan"])
	res["masked_number"] = mapper.Nullable(contract["CardNumber"])
	res["currency"] = m.mapCurrency(contract["FEC"])
	res["installment_count"] = mapper.MapInstallment(contract["InstallmentCount"])
	res["transaction_type"] = m.MapTxType(contract["TransactionType"])
	res["transaction_time"] = mapper.ParseTime(contract["OrderDate"], timeLayouts...)
	res["first_amount"] = mapper.AmountOrNil(contract["FirstAmount"], mapper.FormatAmount)

	orderStatus := orderStatuses[mapper.String(contract["LastOrderStatus"])]
	if orderStatus == "" {
		return
	}
	res["order_status"] = orderStatus
	if orderStatus == mapper.OrderStatusCompleted {
		res["capture_amount"] = mapper.Coalesce(mapper.AmountOrNil(contract["TranAmount"], mapper.FormatAmount), res["first_amount"])
		res["capture_time"] = res["transaction_time"]
	}
	mapper.SetCapture(res)
}

// MapStatusResponse maps SelectOrderByMerchantOrderId
func (m *Mapper) MapStatusResponse(raw map[string]any) (mapper.Result, error) {
	res := mapper.DefaultStatusResponse(raw)
	data := mapper.Normalize(raw)
	if len(data) == 0 {
		return res, nil
	}

	procReturnCode := mapper.Nullable(data["ResponseCode"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)

	contracts := orderContracts(data)
	if mapper.String(procReturnCode) != procedureSuccessCode || len(contracts) == 0 {
		res["error_code"] = procReturnCode
		res["error_message"] = mapper.Nullable(data["ResponseMessage"])
		return res, nil
	}

	contract := contracts[0]
	res["status"] = mapper.TxApproved
	res["order_id"] = mapper.Nullable(contract["MerchantOrderId"])
	res["remote_order_id"] = mapper.Nullable(contract["OrderId"])
	m.mapContract(res, contract)

	if refund := mapper.FormatAmount(contract["RefundedAmount"]); refund > 0 {
		res["refund_amount"] = refund
	}
	if res["order_status"] == mapper.OrderStatusCanceled {
		res["cancel_time"] = mapper.ParseTime(contract["UpdateSystemDate"], timeLayouts...)
	}

	return res, nil
}

func (m *Mapper) mapHistoryTransaction(contract map[string]any) mapper.Result {
	tx := mapper.DefaultHistoryTransaction()
	procReturnCode := mapper.Nullable(contract["ResponseCode"])
	tx["proc_return_code"] = procReturnCode
	tx["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)
	tx["order_id"] = mapper.Nullable(contract["MerchantOrderId"])
	tx["remote_order_id"] = mapper.Nullable(contract["OrderId"])

	// contracts without a response code are orders that never reached the host
	if procReturnCode != nil && mapper.String(procReturnCode) != procedureSuccessCode {
		tx["error_code"] = procReturnCode
		tx["error_message"] = mapper.Nullable(contract["ResponseExplain"])
		return tx
	}

	tx["status"] = mapper.TxApproved
	m.mapContract(tx, contract)
	return tx
}

func (m *Mapper) mapHistory(res mapper.Result, data map[string]any) {
	procReturnCode := mapper.Nullable(data["ResponseCode"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)

	if mapper.String(procReturnCode) != procedureSuccessCode {
		res["error_code"] = procReturnCode
		res["error_message"] = mapper.Nullable(data["ResponseMessage"])
		return
	}

	contracts := orderContracts(data)
	transactions := make([]mapper.Result, 0, len(contracts))
	for _, contract := range contracts {
		transactions = append(transactions, m.mapHistoryTransaction(contract))
	}

	res["status"] = mapper.TxApproved
	res["transactions"] = transactions
	res["trans_count"] = len(transactions)
}

// MapHistoryResponse maps SelectOrder over a date range
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

// MapOrderHistoryResponse maps SelectOrderByMerchantOrderId as a transaction list
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

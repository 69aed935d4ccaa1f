package posnet

import (
	"fmt"
	"strings"

	"github.com/mstgnz/gopos/mapper"
)

const (
	gatewayName = "posnet"

	// approved flag of every XML response
	approvedFlag = "1"
)

var timeLayouts = []string{
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
}

var statusCodes = map[string]string{
	"0":    "approved",
	"1":    "approved",
	"2":    "approved",
	"0051": "insufficient_balance",
	"0057": "does_not_allow_card_holder",
	"0062": "restricted_card",
	"0123": "transaction_not_found",
	"0127": "invalid_transaction",
	"0148": "invalid_transaction",
	"0222": "invalid_transaction",
	"0225": "invalid_transaction",
	"0400": "reject",
}

// transaction states reported by agreement queries
var states = map[string]struct {
	txType mapper.TxType
	status mapper.OrderStatus
}{
	"Sale":          {mapper.TxTypePayAuth, mapper.OrderStatusCompleted},
	"Authorization": {mapper.TxTypePayPreAuth, mapper.OrderStatusPreAuthCompleted},
	"Capture":       {mapper.TxTypePayPostAuth, mapper.OrderStatusCompleted},
	"Return":        {mapper.TxTypeRefund, mapper.OrderStatusFullyRefunded},
	"Reverse":       {mapper.TxTypeCancel, mapper.OrderStatusCanceled},
}

// DefaultTables returns the PosNet XML codes
func DefaultTables() mapper.Tables {
	return mapper.Tables{
		Currencies: map[string]string{
			mapper.CurrencyTRY: "TL",
			mapper.CurrencyUSD: "US",
			mapper.CurrencyEUR: "EU",
			mapper.CurrencyGBP: "GB",
			mapper.CurrencyJPY: "JP",
			mapper.CurrencyRUB: "RU",
		},
		TxTypes: map[mapper.TxType]mapper.TxTypeCodes{
			mapper.TxTypePayAuth:       mapper.Code("Sale"),
			mapper.TxTypePayPreAuth:    mapper.Code("Auth"),
			mapper.TxTypePayPostAuth:   mapper.Code("Capt"),
			mapper.TxTypeCancel:        mapper.Code("reverse"),
			mapper.TxTypeRefund:        mapper.Code("return"),
			mapper.TxTypeRefundPartial: mapper.Code("return"),
			mapper.TxTypeStatus:        mapper.Code("agreement"),
		},
	}
}

// Mapper maps YapıKredi PosNet XML responses
type Mapper struct {
	mapper.Base
}

// NewMapper creates a PosNet mapper
func NewMapper(cfg mapper.Config) (mapper.ResponseMapper, error) {
	tables := cfg.Tables.WithDefaults(DefaultTables())
	if err := mapper.ValidateTables(tables); err != nil {
		return nil, fmt.Errorf("%s: invalid tables: %w", gatewayName, err)
	}
	return &Mapper{Base: mapper.NewBase(gatewayName, tables, cfg.Logger)}, nil
}

func unwrap(data map[string]any) map[string]any {
	if root := mapper.Map(data["posnetResponse"]); root != nil {
		return root
	}
	return data
}

func isApproved(data map[string]any) bool {
	return mapper.String(data["approved"]) == approvedFlag
}

// MapPaymentResponse maps a sale, auth or capt response
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

	res["order_id"] = order.IDOrNil()
	res["currency"] = order.CurrencyOrNil()
	res["amount"] = order.AmountOrNil()
	res["installment_count"] = mapper.MapInstallment(order.Installment)
	res["proc_return_code"] = mapper.Nullable(data["approved"])

	if !isApproved(data) {
		res["error_code"] = mapper.Nullable(data["respCode"])
		res["error_message"] = mapper.Nullable(data["respText"])
		res["status_detail"] = mapper.StatusDetail(statusCodes, data["respCode"])
		return res
	}

	res["status"] = mapper.TxApproved
	res["status_detail"] = mapper.StatusDetail(statusCodes, data["approved"])
	res["transaction_id"] = mapper.Nullable(data["hostlogkey"])
	res["ref_ret_num"] = mapper.Nullable(data["hostlogkey"])
	res["auth_code"] = mapper.Nullable(data["authCode"])
	if inst := mapper.Map(data["instInfo"]); inst != nil {
		res["installment_count"] = mapper.Coalesce(positiveInstallment(inst["inst1"]), res["installment_count"])
	}

	m.Debug("mapped payment response", map[string]any{"status": res["status"], "tx_type": txType})
	return res
}

func positiveInstallment(v any) any {
	if n := mapper.MapInstallment(v); n > 0 {
		return n
	}
	return nil
}

// resolved returns oosResolveMerchantDataResponse
func resolved(data map[string]any) map[string]any {
	return mapper.Map(unwrap(data)["oosResolveMerchantDataResponse"])
}

// ExtractMdStatus returns the mdStatus of a resolved merchant data response
func (m *Mapper) ExtractMdStatus(raw map[string]any) string {
	return strings.TrimSpace(mapper.String(resolved(raw)["mdStatus"]))
}

// Is3DAuthSuccess accepts md status 1 to 4
func (m *Mapper) Is3DAuthSuccess(mdStatus string) bool {
	return mapper.IsMdStatusSuccess(mdStatus)
}

// Map3DPaymentData maps oosResolveMerchantData and the oosTranData payment that followed it.
// Amounts of the resolved data are in minor units, dots as thousand separators.
func (m *Mapper) Map3DPaymentData(raw3D, rawPayment map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	data := unwrap(mapper.Normalize(raw3D))
	merchantData := resolved(data)
	mdStatus := mapper.String(merchantData["mdStatus"])

	threeD := mapper.Default3DResponse(txType, mapper.Model3DSecure)
	threeD["all"] = raw3D
	threeD["3d_all"] = raw3D
	threeD["order_id"] = order.IDOrNil()
	threeD["md_status"] = mapper.Nullable(mdStatus)
	threeD["transaction_security"] = mapper.TransactionSecurity(mdStatus)
	threeD["tx_status"] = mapper.Nullable(merchantData["txStatus"])
	threeD["amount"] = mapper.AmountOrNil(merchantData["amount"], mapper.FormatDottedMinorAmount)
	threeD["currency"] = m.MapCurrency(merchantData["currency"])
	threeD["installment_count"] = mapper.MapInstallment(merchantData["installment"])

	if !isApproved(data) || !m.Is3DAuthSuccess(mdStatus) || rawPayment == nil {
		threeD["md_error_message"] = mapper.Nullable(merchantData["mdErrorMessage"])
		threeD["proc_return_code"] = mapper.Nullable(data["approved"])
		threeD["error_code"] = mapper.Coalesce(mapper.Nullable(data["respCode"]), mapper.Nullable(mdStatus))
		threeD["error_message"] = mapper.Coalesce(mapper.Nullable(data["respText"]), mapper.Nullable(merchantData["mdErrorMessage"]))
		return threeD, nil
	}

	payment := m.mapPayment(rawPayment, txType, mapper.Model3DSecure, order)
	return mapper.MergePreferNonNull(threeD, payment), nil
}

// Map3DPayResponseData is not offered by PosNet
func (m *Mapper) Map3DPayResponseData(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.NotSupported("3d_pay")
}

// Map3DHostResponseData is not offered by PosNet
func (m *Mapper) Map3DHostResponseData(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.NotSupported("3d_host")
}

// MapRefundResponse maps a return response
func (m *Mapper) MapRefundResponse(raw map[string]any) (mapper.Result, error) {
	return m.mapRefund(raw), nil
}

// MapCancelResponse maps a reverse response
func (m *Mapper) MapCancelResponse(raw map[string]any) (mapper.Result, error) {
	return m.mapRefund(raw), nil
}

func (m *Mapper) mapRefund(raw map[string]any) mapper.Result {
	res := mapper.DefaultRefundResponse(raw)
	data := unwrap(mapper.Normalize(raw))
	if len(data) == 0 {
		return res
	}

	res["proc_return_code"] = mapper.Nullable(data["approved"])
	res["transaction_id"] = mapper.Nullable(data["hostlogkey"])
	res["ref_ret_num"] = mapper.Nullable(data["hostlogkey"])
	res["auth_code"] = mapper.Nullable(data["authCode"])

	if isApproved(data) {
		res["status"] = mapper.TxApproved
		res["status_detail"] = mapper.StatusDetail(statusCodes, data["approved"])
	} else {
		res["error_code"] = mapper.Nullable(data["respCode"])
		res["error_message"] = mapper.Nullable(data["respText"])
		res["status_detail"] = mapper.StatusDetail(statusCodes, data["respCode"])
	}
	return res
}

// MapStatusResponse maps an agreement query. transactions.transaction is a map for
// one record and a list for several; the first record describes the order.
func (m *Mapper) MapStatusResponse(raw map[string]any) (mapper.Result, error) {
	res := mapper.DefaultStatusResponse(raw)
	data := unwrap(mapper.Normalize(raw))
	if len(data) == 0 {
		return res, nil
	}
	res["proc_return_code"] = mapper.Nullable(data["approved"])

	if !isApproved(data) {
		res["error_code"] = mapper.Nullable(data["respCode"])
		res["error_message"] = mapper.Nullable(data["respText"])
		res["status_detail"] = mapper.StatusDetail(statusCodes, data["respCode"])
		return res, nil
	}

	transactions := mapper.Map(data["transactions"])
	var record map[string]any
	if single := mapper.Map(transactions["transaction"]); single != nil {
		record = single
	} else if list := mapper.List(transactions["transaction"]); len(list) > 0 {
		record = mapper.Map(list[0])
	}
	if record == nil {
		res["error_code"] = mapper.Nullable(data["respCode"])
		res["error_message"] = mapper.Coalesce(mapper.Nullable(data["respText"]), "transaction not found")
		return res, nil
	}

	res["status"] = mapper.TxApproved
	res["status_detail"] = mapper.StatusDetail(statusCodes, data["approved"])
	res["order_id"] = mapper.Nullable(record["orderID"])
	res["auth_code"] = mapper.Nullable(record["authCode"])
	res["ref_ret_num"] = mapper.Nullable(record["hostLogKey"])
	res["transaction_id"] = mapper.Nullable(record["hostLogKey"])
	res["masked_number"] = mapper.Nullable(record["ccno"])
	res["currency"] = m.MapCurrency(record["currencyCode"])
	res["transaction_time"] = mapper.ParseTime(record["tranDate"], timeLayouts...)
	res["first_amount"] = mapper.AmountOrNil(record["amount"], mapper.FormatCommaAmount)

	if state, ok := states[mapper.String(record["state"])]; ok {
		res["transaction_type"] = state.txType
		res["order_status"] = state.status
		switch state.status {
		case mapper.OrderStatusCompleted:
			res["capture_amount"] = res["first_amount"]
			res["capture_time"] = res["transaction_time"]
		case mapper.OrderStatusCanceled:
			res["cancel_time"] = res["transaction_time"]
		case mapper.OrderStatusFullyRefunded:
			res["refund_time"] = res["transaction_time"]
		}
	}
	mapper.SetCapture(res)

	return res, nil
}

// MapHistoryResponse is not offered by PosNet
func (m *Mapper) MapHistoryResponse(raw map[string]any) (mapper.Result, error) {
	return m.NotSupported("history")
}

// MapOrderHistoryResponse is not offered by PosNet
func (m *Mapper) MapOrderHistoryResponse(raw map[string]any) (mapper.Result, error) {
	return m.NotSupported("order_history")
}

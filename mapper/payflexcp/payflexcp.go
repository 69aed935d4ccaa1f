package payflexcp

import (
	"fmt"
	"strings"

	"github.com/mstgnz/gopos/mapper"
)

const (
	gatewayName = "payflexcp"

	procedureSuccessCode = "0000"
)

var timeLayouts = []string{
	"2006-01-02T15:04:05.999",
	"2006-01-02T15:04:05",
	"20060102150405",
}

var statusCodes = map[string]string{
	"0000": "approved",
	"0005": "reject",
	"0051": "insufficient_balance",
	"0054": "expired_card",
	"0057": "does_not_allow_card_holder",
	"0062": "restricted_card",
	"1059": "invalid_transaction",
	"5001": "invalid_transaction",
	"5007": "invalid_transaction",
	"9043": "payment_not_found",
}

// DefaultTables returns the PayFlex Common Payment codes
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
			mapper.TxTypePayAuth:       mapper.Code("Sale"),
			mapper.TxTypePayPreAuth:    mapper.Code("Auth"),
			mapper.TxTypeCancel:        mapper.Code("Cancel"),
			mapper.TxTypeRefund:        mapper.Code("Refund"),
			mapper.TxTypeRefundPartial: mapper.Code("Refund"),
			mapper.TxTypeStatus:        mapper.Code("SelectTransaction"),
		},
	}
}

// Mapper maps PayFlex Common Payment v4 responses. The common payment page
// performs authentication and provision in one step.
type Mapper struct {
	mapper.Base
}

// NewMapper creates a PayFlex Common Payment mapper
func NewMapper(cfg mapper.Config) (mapper.ResponseMapper, error) {
	tables := cfg.Tables.WithDefaults(DefaultTables())
	if err := mapper.ValidateTables(tables); err != nil {
		return nil, fmt.Errorf("%s: invalid tables: %w", gatewayName, err)
	}
	return &Mapper{Base: mapper.NewBase(gatewayName, tables, cfg.Logger)}, nil
}

// resultCode reads Rc, plain VPOS answers use ResultCode
func resultCode(data map[string]any) any {
	return mapper.Coalesce(mapper.Nullable(data["Rc"]), mapper.Nullable(data["ResultCode"]))
}

func resultMessage(data map[string]any) any {
	return mapper.Coalesce(mapper.Nullable(data["Message"]), mapper.Nullable(data["ResultDetail"]))
}

// MapPaymentResponse is not offered, payments go through the common payment page
func (m *Mapper) MapPaymentResponse(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.NotSupported("payment")
}

// ExtractMdStatus returns the Rc of a callback
func (m *Mapper) ExtractMdStatus(raw map[string]any) string {
	return strings.TrimSpace(mapper.String(raw["Rc"]))
}

// Is3DAuthSuccess accepts the procedure success code
func (m *Mapper) Is3DAuthSuccess(mdStatus string) bool {
	return mdStatus == procedureSuccessCode
}

// Map3DPaymentData is not offered, the 3D model needs a separate provision call
func (m *Mapper) Map3DPaymentData(raw3D, rawPayment map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.NotSupported("3d_payment")
}

// Map3DPayResponseData maps the common payment callback of the 3D Pay model
func (m *Mapper) Map3DPayResponseData(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.mapCallback(raw, txType, mapper.Model3DPay, order), nil
}

// Map3DHostResponseData maps the common payment callback of the 3D Host model
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

	rc := resultCode(data)
	res["md_status"] = rc
	res["proc_return_code"] = rc
	res["status_detail"] = mapper.StatusDetail(statusCodes, rc)
	res["order_id"] = mapper.Coalesce(mapper.Nullable(data["OrderId"]), order.IDOrNil())
	res["transaction_id"] = mapper.Nullable(data["TransactionId"])
	res["masked_number"] = mapper.Nullable(data["MaskedPan"])
	res["amount"] = mapper.Coalesce(mapper.AmountOrNil(data["Amount"], mapper.FormatAmount), order.AmountOrNil())
	res["currency"] = mapper.Coalesce(m.MapCurrency(data["CurrencyCode"]), order.CurrencyOrNil())
	res["installment_count"] = mapper.MapInstallment(mapper.Coalesce(data["InstallmentCount"], order.Installment))

	if !m.Is3DAuthSuccess(mapper.String(rc)) {
		res["error_code"] = rc
		res["error_message"] = resultMessage(data)
		return res
	}

	res["status"] = mapper.TxApproved
	res["transaction_security"] = mapper.SecurityFull3D
	res["eci"] = mapper.Nullable(data["ECI"])
	res["cavv"] = mapper.Nullable(data["CAVV"])
	res["auth_code"] = mapper.Nullable(data["AuthCode"])
	res["ref_ret_num"] = mapper.Nullable(data["Rrn"])
	res["transaction_time"] = mapper.ParseTime(data["TransactionDate"], timeLayouts...)

	m.Debug("mapped common payment callback", map[string]any{"status": res["status"], "model": model})
	return res
}

// MapRefundResponse maps a Refund response
func (m *Mapper) MapRefundResponse(raw map[string]any) (mapper.Result, error) {
	return m.mapRefund(raw), nil
}

// MapCancelResponse maps a Cancel response
func (m *Mapper) MapCancelResponse(raw map[string]any) (mapper.Result, error) {
	return m.mapRefund(raw), nil
}

func (m *Mapper) mapRefund(raw map[string]any) mapper.Result {
	res := mapper.DefaultRefundResponse(raw)
	data := mapper.Normalize(raw)
	if root := mapper.Map(data["VposResponse"]); root != nil {
		data = root
	}
	if len(data) == 0 {
		return res
	}

	rc := resultCode(data)
	res["proc_return_code"] = rc
	res["status_detail"] = mapper.StatusDetail(statusCodes, rc)
	res["order_id"] = mapper.Nullable(data["OrderId"])
	res["transaction_id"] = mapper.Nullable(data["TransactionId"])
	res["auth_code"] = mapper.Nullable(data["AuthCode"])
	res["ref_ret_num"] = mapper.Nullable(data["Rrn"])

	if mapper.String(rc) == procedureSuccessCode {
		res["status"] = mapper.TxApproved
	} else {
		res["error_code"] = rc
		res["error_message"] = resultMessage(data)
	}
	return res
}

// MapStatusResponse maps a SelectTransaction response
func (m *Mapper) MapStatusResponse(raw map[string]any) (mapper.Result, error) {
	res := mapper.DefaultStatusResponse(raw)
	data := mapper.Normalize(raw)
	if len(data) == 0 {
		return res, nil
	}

	rc := resultCode(data)
	res["proc_return_code"] = rc
	res["status_detail"] = mapper.StatusDetail(statusCodes, rc)
	res["order_id"] = mapper.Nullable(data["OrderId"])

	if mapper.String(rc) != procedureSuccessCode {
		res["error_code"] = rc
		res["error_message"] = resultMessage(data)
		return res, nil
	}

	res["status"] = mapper.TxApproved
	res["transaction_id"] = mapper.Nullable(data["TransactionId"])
	res["auth_code"] = mapper.Nullable(data["AuthCode"])
	res["ref_ret_num"] = mapper.Nullable(data["Rrn"])
	res["masked_number"] = mapper.Nullable(data["MaskedPan"])
	res["currency"] = m.MapCurrency(data["CurrencyCode"])
	res["installment_count"] = mapper.MapInstallment(data["InstallmentCount"])
	res["transaction_type"] = m.MapTxType(data["TransactionType"])
	res["transaction_time"] = mapper.ParseTime(data["TransactionDate"], timeLayouts...)
	res["first_amount"] = mapper.AmountOrNil(data["Amount"], mapper.FormatAmount)

	switch {
	case mapper.Bool(data["IsCanceled"]):
		res["order_status"] = mapper.OrderStatusCanceled
		res["cancel_time"] = mapper.ParseTime(data["CancelDate"], timeLayouts...)
	case mapper.FormatAmount(data["RefundedAmount"]) > 0:
		refund := mapper.FormatAmount(data["RefundedAmount"])
		res["refund_amount"] = refund
		if first, ok := res["first_amount"].(float64); ok && refund < first {
			res["order_status"] = mapper.OrderStatusPartiallyRefunded
		} else {
			res["order_status"] = mapper.OrderStatusFullyRefunded
		}
	case res["transaction_type"] == mapper.TxTypePayPreAuth:
		res["order_status"] = mapper.OrderStatusPreAuthCompleted
	default:
		res["order_status"] = mapper.OrderStatusCompleted
		res["capture_amount"] = res["first_amount"]
		res["capture_time"] = res["transaction_time"]
	}
	mapper.SetCapture(res)

	return res, nil
}

// MapHistoryResponse is not offered by the common payment API
func (m *Mapper) MapHistoryResponse(raw map[string]any) (mapper.Result, error) {
	return m.NotSupported("history")
}

// MapOrderHistoryResponse is not offered by the common payment API
func (m *Mapper) MapOrderHistoryResponse(raw map[string]any) (mapper.Result, error) {
	return m.NotSupported("order_history")
}

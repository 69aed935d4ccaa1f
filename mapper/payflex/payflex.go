package payflex

import (
	"fmt"
	"strings"

	"github.com/mstgnz/gopos/mapper"
)

const (
	gatewayName = "payflex"

	procedureSuccessCode = "0000"
)

var timeLayouts = []string{
	"20060102150405",
	"2006-01-02T15:04:05",
}

var statusCodes = map[string]string{
	"0000": "approved",
	"0001": "bank_call",
	"0005": "reject",
	"0007": "bank_call",
	"0012": "reject",
	"0014": "reject",
	"0051": "insufficient_balance",
	"0054": "expired_card",
	"0057": "does_not_allow_card_holder",
	"0062": "restricted_card",
	"0077": "request_rejected",
	"1001": "invalid_transaction",
	"1006": "invalid_transaction",
	"1059": "invalid_transaction",
	"9039": "invalid_transaction",
	"9043": "payment_not_found",
	"2011": "invalid_transaction",
	"2012": "invalid_transaction",
}

// MPI Status values of the enrollment callback
var mpiStatuses = map[string]string{
	"Y": mapper.SecurityFull3D,
	"A": mapper.SecurityHalf3D,
}

// DefaultTables returns the PayFlex MPI VPOS codes
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
			mapper.TxTypePayPostAuth:   mapper.Code("Capture"),
			mapper.TxTypeCancel:        mapper.Code("Cancel"),
			mapper.TxTypeRefund:        mapper.Code("Refund"),
			mapper.TxTypeRefundPartial: mapper.Code("Refund"),
		},
	}
}

// Mapper maps PayFlex MPI VPOS v4 responses (VakıfBank VPOS 7/24, Ziraat)
type Mapper struct {
	mapper.Base
}

// NewMapper creates a PayFlex MPI VPOS mapper
func NewMapper(cfg mapper.Config) (mapper.ResponseMapper, error) {
	tables := cfg.Tables.WithDefaults(DefaultTables())
	if err := mapper.ValidateTables(tables); err != nil {
		return nil, fmt.Errorf("%s: invalid tables: %w", gatewayName, err)
	}
	return &Mapper{Base: mapper.NewBase(gatewayName, tables, cfg.Logger)}, nil
}

// unwrap strips the VposResponse root element
func unwrap(data map[string]any) map[string]any {
	if root := mapper.Map(data["VposResponse"]); root != nil {
		return root
	}
	return data
}

// MapPaymentResponse maps a VposRequest answer
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

	procReturnCode := mapper.Nullable(data["ResultCode"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)
	res["order_id"] = mapper.Coalesce(mapper.Nullable(data["OrderId"]), order.IDOrNil())
	res["currency"] = mapper.Coalesce(m.MapCurrency(data["CurrencyCode"]), order.CurrencyOrNil())
	res["amount"] = mapper.Coalesce(mapper.AmountOrNil(data["CurrencyAmount"], mapper.FormatAmount), order.AmountOrNil())
	res["installment_count"] = mapper.MapInstallment(order.Installment)

	if mapper.String(procReturnCode) != procedureSuccessCode {
		res["error_code"] = procReturnCode
		res["error_message"] = mapper.Nullable(data["ResultDetail"])
		return res
	}

	res["status"] = mapper.TxApproved
	res["transaction_id"] = mapper.Nullable(data["TransactionId"])
	res["auth_code"] = mapper.Nullable(data["AuthCode"])
	res["ref_ret_num"] = mapper.Nullable(data["Rrn"])
	res["batch_num"] = mapper.Nullable(data["BatchNo"])
	res["transaction_time"] = mapper.ParseTime(data["HostDate"], timeLayouts...)

	m.Debug("mapped payment response", map[string]any{"status": res["status"], "tx_type": txType})
	return res
}

// ExtractMdStatus returns the MPI enrollment Status (Y, A, N, U, E)
func (m *Mapper) ExtractMdStatus(raw map[string]any) string {
	return strings.TrimSpace(mapper.String(raw["Status"]))
}

// Is3DAuthSuccess accepts full (Y) and attempted (A) authentication
func (m *Mapper) Is3DAuthSuccess(mdStatus string) bool {
	_, ok := mpiStatuses[mdStatus]
	return ok
}

// Map3DPaymentData maps the MPI callback and the VposRequest that followed it
func (m *Mapper) Map3DPaymentData(raw3D, rawPayment map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	data := mapper.Normalize(raw3D)
	mdStatus := mapper.String(data["Status"])

	threeD := mapper.Default3DResponse(txType, mapper.Model3DSecure)
	threeD["all"] = raw3D
	threeD["3d_all"] = raw3D
	threeD["order_id"] = mapper.Coalesce(mapper.Nullable(data["VerifyEnrollmentRequestId"]), order.IDOrNil())
	threeD["md_status"] = mapper.Nullable(mdStatus)
	threeD["masked_number"] = mapper.Nullable(data["Pan"])
	threeD["amount"] = mapper.AmountOrNil(data["PurchAmount"], mapper.FormatMinorAmount)
	threeD["currency"] = m.MapCurrency(data["PurchCurrency"])
	threeD["installment_count"] = mapper.MapInstallment(data["InstallmentCount"])
	if m.Is3DAuthSuccess(mdStatus) {
		threeD["eci"] = mapper.Nullable(data["Eci"])
		threeD["cavv"] = mapper.Nullable(data["Cavv"])
	}
	if security, ok := mpiStatuses[mdStatus]; ok {
		threeD["transaction_security"] = security
	} else {
		threeD["transaction_security"] = mapper.SecurityMPIFallback
	}

	if !m.Is3DAuthSuccess(mdStatus) || rawPayment == nil {
		threeD["md_error_message"] = mapper.Nullable(data["ErrorMessage"])
		threeD["error_code"] = mapper.Coalesce(mapper.Nullable(data["ErrorCode"]), mapper.Nullable(mdStatus))
		threeD["error_message"] = mapper.Nullable(data["ErrorMessage"])
		return threeD, nil
	}

	payment := m.mapPayment(rawPayment, txType, mapper.Model3DSecure, order)
	return mapper.MergePreferNonNull(threeD, payment), nil
}

// Map3DPayResponseData is not offered by the MPI VPOS, see payflexcp
func (m *Mapper) Map3DPayResponseData(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.NotSupported("3d_pay")
}

// Map3DHostResponseData is not offered by the MPI VPOS, see payflexcp
func (m *Mapper) Map3DHostResponseData(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.NotSupported("3d_host")
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
	data := unwrap(mapper.Normalize(raw))
	if len(data) == 0 {
		return res
	}

	procReturnCode := mapper.Nullable(data["ResultCode"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)
	res["order_id"] = mapper.Nullable(data["OrderId"])
	res["transaction_id"] = mapper.Nullable(data["TransactionId"])
	res["auth_code"] = mapper.Nullable(data["AuthCode"])
	res["ref_ret_num"] = mapper.Nullable(data["Rrn"])

	if mapper.String(procReturnCode) == procedureSuccessCode {
		res["status"] = mapper.TxApproved
	} else {
		res["error_code"] = procReturnCode
		res["error_message"] = mapper.Nullable(data["ResultDetail"])
	}
	return res
}

// MapStatusResponse is not offered by the MPI VPOS
func (m *Mapper) MapStatusResponse(raw map[string]any) (mapper.Result, error) {
	return m.NotSupported("status")
}

// MapHistoryResponse is not offered by the MPI VPOS
func (m *Mapper) MapHistoryResponse(raw map[string]any) (mapper.Result, error) {
	return m.NotSupported("history")
}

// MapOrderHistoryResponse is not offered by the MPI VPOS
func (m *Mapper) MapOrderHistoryResponse(raw map[string]any) (mapper.Result, error) {
	return m.NotSupported("order_history")
}

package posnetv1

import (
	"fmt"
	"strings"

	"github.com/mstgnz/gopos/mapper"
)

const (
	gatewayName = "posnetv1"

	procedureSuccessCode  = "0000"
	mdStatusAuthenticated = "1"
)

var timeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"20060102150405",
}

var statusCodes = map[string]string{
	"0000": "approved",
	"0005": "reject",
	"0051": "insufficient_balance",
	"0054": "expired_card",
	"0057": "does_not_allow_card_holder",
	"0062": "restricted_card",
	"0123": "transaction_not_found",
	"0127": "invalid_transaction",
	"0148": "invalid_transaction",
	"0225": "invalid_transaction",
	"0400": "reject",
	"0876": "invalid_transaction",
	"0877": "invalid_transaction",
}

// TransactionType values of TransactionDataList records
var transactionTypes = map[string]struct {
	txType mapper.TxType
	status mapper.OrderStatus
}{
	"Sale":    {mapper.TxTypePayAuth, mapper.OrderStatusCompleted},
	"Auth":    {mapper.TxTypePayPreAuth, mapper.OrderStatusPreAuthCompleted},
	"Capture": {mapper.TxTypePayPostAuth, mapper.OrderStatusCompleted},
	"Return":  {mapper.TxTypeRefund, mapper.OrderStatusFullyRefunded},
	"Reverse": {mapper.TxTypeCancel, mapper.OrderStatusCanceled},
}

// DefaultTables returns the PosNet JSON v1 codes
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
			mapper.TxTypePayPostAuth:   mapper.Code("Capture"),
			mapper.TxTypeCancel:        mapper.Code("Reverse"),
			mapper.TxTypeRefund:        mapper.Code("Return"),
			mapper.TxTypeRefundPartial: mapper.Code("Return"),
			mapper.TxTypeStatus:        mapper.Code("TransactionInquiry"),
		},
	}
}

// Mapper maps YapıKredi PosNet JSON v1 responses
type Mapper struct {
	mapper.Base
}

// NewMapper creates a PosNet v1 mapper
func NewMapper(cfg mapper.Config) (mapper.ResponseMapper, error) {
	tables := cfg.Tables.WithDefaults(DefaultTables())
	if err := mapper.ValidateTables(tables); err != nil {
		return nil, fmt.Errorf("%s: invalid tables: %w", gatewayName, err)
	}
	return &Mapper{Base: mapper.NewBase(gatewayName, tables, cfg.Logger)}, nil
}

func serviceResponse(data map[string]any) (code, description any) {
	service := mapper.Map(data["ServiceResponseData"])
	return mapper.Nullable(service["ResponseCode"]), mapper.Nullable(service["ResponseDescription"])
}

// MapPaymentResponse maps a Sale, Auth or Capture response
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

	code, description := serviceResponse(data)
	res["order_id"] = mapper.Coalesce(mapper.Nullable(data["OrderId"]), order.IDOrNil())
	res["currency"] = order.CurrencyOrNil()
	res["amount"] = order.AmountOrNil()
	res["installment_count"] = mapper.MapInstallment(order.Installment)
	res["proc_return_code"] = code
	res["status_detail"] = mapper.StatusDetail(statusCodes, code)

	if mapper.String(code) != procedureSuccessCode {
		res["error_code"] = code
		res["error_message"] = description
		return res
	}

	res["status"] = mapper.TxApproved
	res["auth_code"] = mapper.Nullable(data["AuthCode"])
	res["ref_ret_num"] = mapper.Nullable(data["ReferenceCode"])
	res["transaction_id"] = mapper.Nullable(data["ReferenceCode"])
	res["transaction_time"] = mapper.ParseTime(data["TransactionDate"], timeLayouts...)

	m.Debug("mapped payment response", map[string]any{"status": res["status"], "tx_type": txType})
	return res
}

// ExtractMdStatus returns the MdStatus of the 3D callback
func (m *Mapper) ExtractMdStatus(raw map[string]any) string {
	return strings.TrimSpace(mapper.String(raw["MdStatus"]))
}

// Is3DAuthSuccess only accepts full authentication
func (m *Mapper) Is3DAuthSuccess(mdStatus string) bool {
	return mdStatus == mdStatusAuthenticated
}

// Map3DPaymentData maps the 3D callback and the payment that followed it
func (m *Mapper) Map3DPaymentData(raw3D, rawPayment map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	data := mapper.Normalize(raw3D)
	mdStatus := mapper.String(data["MdStatus"])

	threeD := mapper.Default3DResponse(txType, mapper.Model3DSecure)
	threeD["all"] = raw3D
	threeD["3d_all"] = raw3D
	threeD["order_id"] = mapper.Coalesce(mapper.Nullable(data["OrderId"]), order.IDOrNil())
	threeD["md_status"] = mapper.Nullable(mdStatus)
	threeD["transaction_security"] = mapper.TransactionSecurity(mdStatus)
	threeD["amount"] = mapper.AmountOrNil(data["Amount"], mapper.FormatMinorAmount)
	threeD["currency"] = m.MapCurrency(data["Currency"])
	threeD["installment_count"] = mapper.MapInstallment(data["InstalmentCount"])
	if m.Is3DAuthSuccess(mdStatus) {
		threeD["eci"] = mapper.Nullable(data["ECI"])
		threeD["cavv"] = mapper.Nullable(data["CAVV"])
	}

	if !m.Is3DAuthSuccess(mdStatus) || rawPayment == nil {
		threeD["md_error_message"] = mapper.Nullable(data["MdErrorMessage"])
		threeD["error_code"] = mapper.Nullable(mdStatus)
		threeD["error_message"] = mapper.Nullable(data["MdErrorMessage"])
		return threeD, nil
	}

	payment := m.mapPayment(rawPayment, txType, mapper.Model3DSecure, order)
	return mapper.MergePreferNonNull(threeD, payment), nil
}

// Map3DPayResponseData is not offered by PosNet v1
func (m *Mapper) Map3DPayResponseData(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.NotSupported("3d_pay")
}

// Map3DHostResponseData is not offered by PosNet v1
func (m *Mapper) Map3DHostResponseData(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.NotSupported("3d_host")
}

// MapRefundResponse maps a Return response
func (m *Mapper) MapRefundResponse(raw map[string]any) (mapper.Result, error) {
	return m.mapRefund(raw), nil
}

// MapCancelResponse maps a Reverse response
func (m *Mapper) MapCancelResponse(raw map[string]any) (mapper.Result, error) {
	return m.mapRefund(raw), nil
}

func (m *Mapper) mapRefund(raw map[string]any) mapper.Result {
	res := mapper.DefaultRefundResponse(raw)
	data := mapper.Normalize(raw)
	if len(data) == 0 {
		return res
	}

	code, description := serviceResponse(data)
	res["proc_return_code"] = code
	res["status_detail"] = mapper.StatusDetail(statusCodes, code)
	res["auth_code"] = mapper.Nullable(data["AuthCode"])
	res["ref_ret_num"] = mapper.Nullable(data["ReferenceCode"])
	res["transaction_id"] = mapper.Nullable(data["ReferenceCode"])

	if mapper.String(code) == procedureSuccessCode {
		res["status"] = mapper.TxApproved
	} else {
		res["error_code"] = code
		res["error_message"] = description
	}
	return res
}

// MapStatusResponse maps a TransactionInquiry response. The first TransactionDataList
// record is the original transaction, later records are refunds and cancels.
func (m *Mapper) MapStatusResponse(raw map[string]any) (mapper.Result, error) {
	res := mapper.DefaultStatusResponse(raw)
	data := mapper.Normalize(raw)
	if len(data) == 0 {
		return res, nil
	}

	code, description := serviceResponse(data)
	res["proc_return_code"] = code
	res["status_detail"] = mapper.StatusDetail(statusCodes, code)

	records := mapper.List(data["TransactionDataList"])
	if mapper.String(code) != procedureSuccessCode || len(records) == 0 {
		res["error_code"] = code
		res["error_message"] = description
		return res, nil
	}

	record := mapper.Map(records[0])
	res["status"] = mapper.TxApproved
	res["order_id"] = mapper.Nullable(record["OrderId"])
	res["auth_code"] = mapper.Nullable(record["AuthCode"])
	res["ref_ret_num"] = mapper.Nullable(record["ReferenceCode"])
	res["transaction_id"] = mapper.Nullable(record["ReferenceCode"])
	res["masked_number"] = mapper.Nullable(record["CardNo"])
	res["currency"] = m.MapCurrency(record["CurrencyCode"])
	res["installment_count"] = mapper.MapInstallment(record["InstallmentCount"])
	res["transaction_time"] = mapper.ParseTime(record["TransactionDate"], timeLayouts...)
	res["first_amount"] = mapper.AmountOrNil(record["Amount"], mapper.FormatMinorAmount)

	if kind, ok := transactionTypes[mapper.String(record["TransactionType"])]; ok {
		res["transaction_type"] = kind.txType
		res["order_status"] = kind.status
		if kind.status == mapper.OrderStatusCompleted {
			res["capture_amount"] = res["first_amount"]
			res["capture_time"] = res["transaction_time"]
		}
	}

	// later records change the order status
	for _, item := range records[1:] {
		later := mapper.Map(item)
		kind, ok := transactionTypes[mapper.String(later["TransactionType"])]
		if !ok {
			continue
		}
		switch kind.txType {
		case mapper.TxTypeCancel:
			res["order_status"] = mapper.OrderStatusCanceled
			res["cancel_time"] = mapper.ParseTime(later["TransactionDate"], timeLayouts...)
		case mapper.TxTypeRefund:
			refund := mapper.FormatMinorAmount(later["Amount"])
			if first, isFloat := res["first_amount"].(float64); isFloat && refund < first {
				res["order_status"] = mapper.OrderStatusPartiallyRefunded
			} else {
				res["order_status"] = mapper.OrderStatusFullyRefunded
			}
			res["refund_amount"] = refund
			res["refund_time"] = mapper.ParseTime(later["TransactionDate"], timeLayouts...)
		case mapper.TxTypePayPostAuth:
			res["order_status"] = mapper.OrderStatusCompleted
			res["capture_amount"] = mapper.AmountOrNil(later["Amount"], mapper.FormatMinorAmount)
			res["capture_time"] = mapper.ParseTime(later["TransactionDate"], timeLayouts...)
		}
	}
	mapper.SetCapture(res)

	return res, nil
}

// MapHistoryResponse is not offered by PosNet v1
func (m *Mapper) MapHistoryResponse(raw map[string]any) (mapper.Result, error) {
	return m.NotSupported("history")
}

// MapOrderHistoryResponse is not offered by PosNet v1
func (m *Mapper) MapOrderHistoryResponse(raw map[string]any) (mapper.Result, error) {
	return m.NotSupported("order_history")
}

package akbank

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mstgnz/gopos/mapper"
)

const (
	gatewayName = "akbank"

	procedureSuccessCode = "VPS-0000"
	hostSuccessCode      = "00"
)

var timeLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
}

var statusCodes = map[string]string{
	"00": "approved",
	"01": "bank_call",
	"02": "bank_call",
	"05": "reject",
	"09": "try_again",
	"12": "invalid_transaction",
	"14": "invalid_card",
	"51": "insufficient_balance",
	"54": "expired_card",
	"57": "does_not_allow_card_holder",
	"62": "restricted_card",
	"91": "bank_unavailable",
	"96": "general_error",
}

// txnStatus codes of history records
var orderStatuses = map[string]mapper.OrderStatus{
	"N": mapper.OrderStatusCompleted,
	"S": mapper.OrderStatusCompleted,
	"V": mapper.OrderStatusCanceled,
	"R": mapper.OrderStatusFullyRefunded,
}

// preAuthStatus codes: O open, C closed
const (
	preAuthOpen   = "O"
	preAuthClosed = "C"
)

// DefaultTables returns the Akbank codes
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
			mapper.TxTypePayAuth: {
				mapper.AnyModel:      "1000",
				mapper.Model3DSecure: "3000",
			},
			mapper.TxTypePayPreAuth: {
				mapper.AnyModel:      "1004",
				mapper.Model3DSecure: "3004",
			},
			mapper.TxTypePayPostAuth:   mapper.Code("1005"),
			mapper.TxTypeCancel:        mapper.Code("1003"),
			mapper.TxTypeRefund:        mapper.Code("1002"),
			mapper.TxTypeRefundPartial: mapper.Code("1002"),
			mapper.TxTypeHistory:       mapper.Code("1010"),
			mapper.TxTypeOrderHistory:  mapper.Code("1010"),
		},
		SecureTypes: map[mapper.PaymentModel]string{
			mapper.Model3DSecure:     "3D",
			mapper.Model3DPay:        "3D_PAY",
			mapper.Model3DPayHosting: "3D_PAY_HOSTING",
			mapper.Model3DHost:       "3D_HOST",
		},
	}
}

// Mapper maps Akbank JSON virtual POS responses
type Mapper struct {
	mapper.Base
}

// NewMapper creates an Akbank mapper
func NewMapper(cfg mapper.Config) (mapper.ResponseMapper, error) {
	tables := cfg.Tables.WithDefaults(DefaultTables())
	if err := mapper.ValidateTables(tables); err != nil {
		return nil, fmt.Errorf("%s: invalid tables: %w", gatewayName, err)
	}
	return &Mapper{Base: mapper.NewBase(gatewayName, tables, cfg.Logger)}, nil
}

func isApproved(data map[string]any) bool {
	return mapper.String(data["responseCode"]) == procedureSuccessCode &&
		mapper.String(data["hostResponseCode"]) == hostSuccessCode
}

// errorFields prefers the host (issuer) code and message over the gateway ones
func errorFields(data map[string]any) (code, message any) {
	code = mapper.Coalesce(mapper.Nullable(data["hostResponseCode"]), mapper.Nullable(data["responseCode"]))
	message = mapper.Coalesce(mapper.Nullable(data["hostMessage"]), mapper.Nullable(data["responseMessage"]))
	return code, message
}

// MapPaymentResponse maps a sale, pre-auth or post-auth response
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
	orderData := mapper.Map(data["order"])
	transaction := mapper.Map(data["transaction"])

	res["order_id"] = mapper.Coalesce(mapper.Nullable(orderData["orderId"]), order.IDOrNil())
	res["proc_return_code"] = mapper.Nullable(data["hostResponseCode"])
	res["status_detail"] = mapper.StatusDetail(statusCodes, data["hostResponseCode"])
	res["currency"] = mapper.Coalesce(m.MapCurrency(transaction["currencyCode"]), order.CurrencyOrNil())
	res["amount"] = mapper.Coalesce(mapper.AmountOrNil(transaction["amount"], mapper.FormatAmount), order.AmountOrNil())
	res["installment_count"] = mapper.MapInstallment(mapper.Coalesce(transaction["installCount"], order.Installment))

	if !isApproved(data) {
		res["error_code"], res["error_message"] = errorFields(data)
		return res
	}

	res["status"] = mapper.TxApproved
	res["transaction_id"] = mapper.Nullable(transaction["stan"])
	res["auth_code"] = mapper.Nullable(transaction["authCode"])
	res["ref_ret_num"] = mapper.Nullable(transaction["rrn"])
	res["batch_num"] = mapper.Nullable(transaction["batchNumber"])
	res["transaction_time"] = mapper.ParseTime(data["txnDateTime"], timeLayouts...)

	m.Debug("mapped payment response", map[string]any{"status": res["status"], "tx_type": txType})
	return res
}

// ExtractMdStatus returns the mdStatus of a 3D callback
func (m *Mapper) ExtractMdStatus(raw map[string]any) string {
	return strings.TrimSpace(mapper.String(raw["mdStatus"]))
}

// Is3DAuthSuccess accepts md status 1 to 4
func (m *Mapper) Is3DAuthSuccess(mdStatus string) bool {
	return mapper.IsMdStatusSuccess(mdStatus)
}

func (m *Mapper) map3DCommon(raw map[string]any, data map[string]any, txType mapper.TxType, model mapper.PaymentModel) mapper.Result {
	mdStatus := mapper.String(data["mdStatus"])

	res := mapper.Default3DResponse(txType, m.ResolvePaymentModel(data["paymentModel"], model))
	res["all"] = raw
	res["3d_all"] = raw
	res["order_id"] = mapper.Nullable(data["orderId"])
	res["md_status"] = mapper.Nullable(mdStatus)
	res["transaction_security"] = mapper.TransactionSecurity(mdStatus)
	res["amount"] = mapper.AmountOrNil(data["amount"], mapper.FormatAmount)
	res["currency"] = m.MapCurrency(data["currencyCode"])
	res["installment_count"] = mapper.MapInstallment(data["installCount"])
	res["masked_number"] = mapper.Nullable(data["maskedCardNumber"])
	if m.Is3DAuthSuccess(mdStatus) {
		res["eci"] = mapper.Nullable(data["secureEcomInd"])
		res["cavv"] = mapper.Nullable(data["secureData"])
	} else {
		res["md_error_message"] = mapper.Nullable(data["mdErrorMessage"])
	}
	return res
}

// Map3DPaymentData maps the 3D callback and the payment that followed a successful authentication
func (m *Mapper) Map3DPaymentData(raw3D, rawPayment map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	data := mapper.Normalize(raw3D)
	threeD := m.map3DCommon(raw3D, data, txType, mapper.Model3DSecure)

	if !m.Is3DAuthSuccess(mapper.String(data["mdStatus"])) || rawPayment == nil {
		threeD["proc_return_code"] = mapper.Nullable(data["responseCode"])
		threeD["error_code"] = mapper.Coalesce(mapper.Nullable(data["mdStatus"]), mapper.Nullable(data["responseCode"]))
		threeD["error_message"] = mapper.Coalesce(mapper.Nullable(data["mdErrorMessage"]), mapper.Nullable(data["responseMessage"]))
		return threeD, nil
	}

	payment := m.mapPayment(rawPayment, txType, mapper.Model3DSecure, order)
	return mapper.MergePreferNonNull(threeD, payment), nil
}

// Map3DPayResponseData maps the combined 3D Pay callback
func (m *Mapper) Map3DPayResponseData(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.mapCallback(raw, txType, mapper.Model3DPay, order), nil
}

// Map3DHostResponseData maps the hosted page callback, same fields as 3D Pay
func (m *Mapper) Map3DHostResponseData(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.mapCallback(raw, txType, mapper.Model3DHost, order), nil
}

func (m *Mapper) mapCallback(raw map[string]any, txType mapper.TxType, model mapper.PaymentModel, order mapper.Order) mapper.Result {
	data := mapper.Normalize(raw)
	res := m.map3DCommon(raw, data, txType, model)
	if len(data) == 0 {
		return res
	}
	if res["order_id"] == nil {
		res["order_id"] = order.IDOrNil()
	}

	res["proc_return_code"] = mapper.Nullable(data["hostResponseCode"])
	res["status_detail"] = mapper.StatusDetail(statusCodes, data["hostResponseCode"])

	if !m.Is3DAuthSuccess(mapper.String(data["mdStatus"])) {
		res["error_code"] = mapper.Coalesce(mapper.Nullable(data["mdStatus"]), mapper.Nullable(data["responseCode"]))
		res["error_message"] = mapper.Coalesce(mapper.Nullable(data["mdErrorMessage"]), mapper.Nullable(data["responseMessage"]))
		return res
	}
	if !isApproved(data) {
		res["error_code"], res["error_message"] = errorFields(data)
		return res
	}

	res["status"] = mapper.TxApproved
	res["transaction_id"] = mapper.Nullable(data["stan"])
	res["auth_code"] = mapper.Nullable(data["authCode"])
	res["ref_ret_num"] = mapper.Nullable(data["rrn"])
	res["batch_num"] = mapper.Nullable(data["batchNumber"])
	res["transaction_time"] = mapper.ParseTime(data["txnDateTime"], timeLayouts...)
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
	data := mapper.Normalize(raw)
	if len(data) == 0 {
		return res
	}
	orderData := mapper.Map(data["order"])
	transaction := mapper.Map(data["transaction"])

	res["order_id"] = mapper.Nullable(orderData["orderId"])
	res["proc_return_code"] = mapper.Nullable(data["hostResponseCode"])
	res["status_detail"] = mapper.StatusDetail(statusCodes, data["hostResponseCode"])
	res["transaction_id"] = mapper.Nullable(transaction["stan"])
	res["auth_code"] = mapper.Nullable(transaction["authCode"])
	res["ref_ret_num"] = mapper.Nullable(transaction["rrn"])

	if isApproved(data) {
		res["status"] = mapper.TxApproved
	} else {
		res["error_code"], res["error_message"] = errorFields(data)
	}
	return res
}

// MapStatusResponse is not offered by Akbank, order history replaces it
func (m *Mapper) MapStatusResponse(raw map[string]any) (mapper.Result, error) {
	return m.NotSupported("status")
}

// MapHistoryResponse maps a date range query, records keep the bank order
func (m *Mapper) MapHistoryResponse(raw map[string]any) (mapper.Result, error) {
	res := mapper.DefaultHistoryResponse(raw)
	data := mapper.Normalize(raw)
	if len(data) == 0 {
		return res, nil
	}

	txs, ok := m.mapTransactionList(data, res)
	if !ok {
		return res, nil
	}
	res["transactions"] = txs
	res["trans_count"] = len(txs)
	return res, nil
}

// MapOrderHistoryResponse maps the transactions of one order.
// Recurring orders keep the bank order, other orders are sorted by transaction time, unknown times first.
func (m *Mapper) MapOrderHistoryResponse(raw map[string]any) (mapper.Result, error) {
	res := mapper.DefaultOrderHistoryResponse(raw)
	data := mapper.Normalize(raw)
	if len(data) == 0 {
		return res, nil
	}

	txs, ok := m.mapTransactionList(data, res)
	if !ok {
		return res, nil
	}

	records := mapper.List(data["txnDetailList"])
	first := mapper.Map(records[0])
	res["order_id"] = mapper.Nullable(first["orderId"])
	if recurringID := mapper.Nullable(first["recurringId"]); recurringID != nil {
		res["recurring_id"] = recurringID
	} else {
		sortByTransactionTime(txs)
	}

	res["transactions"] = txs
	res["trans_count"] = len(txs)
	return res, nil
}

// mapTransactionList fills the status fields of res and maps txnDetailList.
// It returns false when the query failed or found nothing.
func (m *Mapper) mapTransactionList(data map[string]any, res mapper.Result) ([]mapper.Result, bool) {
	procReturnCode := mapper.Nullable(data["responseCode"])
	res["proc_return_code"] = procReturnCode

	records := mapper.List(data["txnDetailList"])
	if mapper.String(procReturnCode) != procedureSuccessCode || len(records) == 0 {
		res["error_code"] = procReturnCode
		res["error_message"] = mapper.Nullable(data["responseMessage"])
		return nil, false
	}
	res["status"] = mapper.TxApproved

	txs := make([]mapper.Result, 0, len(records))
	for _, record := range records {
		txs = append(txs, m.mapHistoryTransaction(mapper.Map(record)))
	}
	return txs, true
}

func (m *Mapper) mapHistoryTransaction(record map[string]any) mapper.Result {
	tx := mapper.DefaultHistoryTransaction()
	tx["order_id"] = mapper.Nullable(record["orderId"])
	tx["transaction_type"] = m.MapTxType(record["txnCode"])
	tx["proc_return_code"] = mapper.Nullable(record["hostResponseCode"])
	tx["status_detail"] = mapper.StatusDetail(statusCodes, record["hostResponseCode"])
	tx["currency"] = m.MapCurrency(record["currencyCode"])
	tx["installment_count"] = mapper.MapInstallment(record["installCount"])
	tx["masked_number"] = mapper.Nullable(record["maskedCardNumber"])
	tx["transaction_time"] = mapper.ParseTime(record["txnDateTime"], timeLayouts...)
	tx["recurring_order"] = mapper.Nullable(record["recurringOrder"])

	if !isApproved(record) {
		tx["error_code"], tx["error_message"] = errorFields(record)
		return tx
	}

	tx["status"] = mapper.TxApproved
	tx["transaction_id"] = mapper.Nullable(record["stan"])
	tx["auth_code"] = mapper.Nullable(record["authCode"])
	tx["ref_ret_num"] = mapper.Nullable(record["rrn"])
	tx["batch_num"] = mapper.Nullable(record["batchNumber"])
	tx["first_amount"] = mapper.AmountOrNil(record["amount"], mapper.FormatAmount)

	orderStatus, known := orderStatuses[mapper.String(record["txnStatus"])]
	if orderStatus == mapper.OrderStatusCompleted {
		// preAuthStatus only refines a live pre-auth, a voided or refunded one keeps its txnStatus
		preAuthStatus := ""
		if tx["transaction_type"] == mapper.TxTypePayPreAuth {
			preAuthStatus = mapper.String(record["preAuthStatus"])
		}
		switch preAuthStatus {
		case preAuthOpen:
			// reserved, nothing captured yet
			orderStatus = mapper.OrderStatusPreAuthCompleted
		case preAuthClosed:
			tx["capture_amount"] = mapper.AmountOrNil(record["preAuthCloseAmount"], mapper.FormatAmount)
			tx["capture_time"] = mapper.ParseTime(record["preAuthCloseDate"], timeLayouts...)
		default:
			tx["capture_amount"] = tx["first_amount"]
			tx["capture_time"] = tx["transaction_time"]
		}
	}
	if known {
		tx["order_status"] = orderStatus
	}
	mapper.SetCapture(tx)

	return tx
}

// sortByTransactionTime sorts ascending by transaction_time, nil times first.
// Records with equal keys keep their relative order.
func sortByTransactionTime(txs []mapper.Result) {
	sort.SliceStable(txs, func(i, j int) bool {
		ti, iok := txs[i]["transaction_time"].(time.Time)
		tj, jok := txs[j]["transaction_time"].(time.Time)
		switch {
		case !iok && !jok:
			return false
		case !iok:
			return true
		case !jok:
			return false
		}
		return ti.Before(tj)
	})
}

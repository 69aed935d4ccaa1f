package mapper

import (
	"sort"

	"github.com/go-playground/validator/v10"
)

// AnyModel is the TxTypeCodes key of a raw code shared by every payment model
const AnyModel PaymentModel = ""

// TxTypeCodes holds the raw bank codes of one canonical transaction type, per payment model
type TxTypeCodes map[PaymentModel]string

// Code builds TxTypeCodes for a raw code that does not depend on the payment model
func Code(raw string) TxTypeCodes {
	return TxTypeCodes{AnyModel: raw}
}

// Tables are the canonical to raw lookup tables of a gateway
type Tables struct {
	Currencies  map[string]string       `validate:"required,min=1"`
	TxTypes     map[TxType]TxTypeCodes  `validate:"required,min=1"`
	SecureTypes map[PaymentModel]string `validate:"omitempty"`
}

// WithDefaults returns t with every empty table taken from defaults
func (t Tables) WithDefaults(defaults Tables) Tables {
	if len(t.Currencies) == 0 {
		t.Currencies = defaults.Currencies
	}
	if len(t.TxTypes) == 0 {
		t.TxTypes = defaults.TxTypes
	}
	if len(t.SecureTypes) == 0 {
		t.SecureTypes = defaults.SecureTypes
	}
	return t
}

// Config is passed to gateway mapper factories
type Config struct {
	Tables Tables
	Logger Logger
}

var configValidator = validator.New()

// ValidateTables checks that the lookup tables needed for mapping are present
func ValidateTables(t Tables) error {
	return configValidator.Struct(t)
}

// Base carries the inverted lookup tables and helpers shared by every gateway mapper.
// It is read-only after construction and safe for concurrent use.
type Base struct {
	gateway     string
	currencies  map[string]string
	txTypes     map[string]TxType
	secureTypes map[string]PaymentModel
	logger      Logger
}

// NewBase inverts the canonical to raw tables once
func NewBase(gateway string, tables Tables, logger Logger) Base {
	if logger == nil {
		logger = NopLogger()
	}

	b := Base{
		gateway:     gateway,
		currencies:  make(map[string]string, len(tables.Currencies)),
		txTypes:     make(map[string]TxType),
		secureTypes: make(map[string]PaymentModel, len(tables.SecureTypes)),
		logger:      logger,
	}

	for canonical, raw := range tables.Currencies {
		b.currencies[raw] = canonical
	}

	// sorted so that a raw code shared by two types resolves the same way every time
	txTypes := make([]string, 0, len(tables.TxTypes))
	for txType := range tables.TxTypes {
		txTypes = append(txTypes, string(txType))
	}
	sort.Strings(txTypes)
	for _, txType := range txTypes {
		for _, raw := range tables.TxTypes[TxType(txType)] {
			if _, exists := b.txTypes[raw]; !exists {
				b.txTypes[raw] = TxType(txType)
			}
		}
	}

	for model, raw := range tables.SecureTypes {
		b.secureTypes[raw] = model
	}

	return b
}

// Gateway returns the gateway identifier
func (b Base) Gateway() string {
	return b.gateway
}

// MapCurrency returns the canonical currency of a raw code.
// Unknown codes are returned unchanged, a missing code is nil.
func (b Base) MapCurrency(raw any) any {
	code := String(raw)
	if code == "" {
		return nil
	}
	if canonical, ok := b.currencies[code]; ok {
		return canonical
	}
	return code
}

// MapTxType returns the canonical transaction type of a raw code, or nil.
// "0" is the banks' "no transaction" sentinel.
func (b Base) MapTxType(raw any) any {
	code := String(raw)
	if code == "" || code == "0" {
		return nil
	}
	if txType, ok := b.txTypes[code]; ok {
		return txType
	}
	return nil
}

// MapSecureType returns the canonical payment model of a raw security code, or nil
func (b Base) MapSecureType(raw any) any {
	if model, ok := b.secureTypes[String(raw)]; ok {
		return model
	}
	return nil
}

// ResolvePaymentModel returns the payment model a callback reports in its
// security type field, or fallback when the field is missing or unknown
func (b Base) ResolvePaymentModel(raw any, fallback PaymentModel) PaymentModel {
	if model, ok := b.MapSecureType(raw).(PaymentModel); ok {
		return model
	}
	return fallback
}

// Debug forwards a debug line to the configured logger
func (b Base) Debug(message string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["gateway"] = b.gateway
	b.logger.Debug(message, fields)
}

// NotSupported returns the unsupported operation signal for this gateway
func (b Base) NotSupported(operation string) (Result, error) {
	return nil, NotSupported(b.gateway, operation)
}

// DefaultPaymentResponse returns a declined payment result with every key present
func DefaultPaymentResponse(txType TxType, model PaymentModel) Result {
	return Result{
		"order_id":          nil,
		"transaction_id":    nil,
		"transaction_time":  nil,
		"transaction_type":  txType,
		"installment_count": nil,
		"currency":          nil,
		"amount":            nil,
		"payment_model":     model,
		"auth_code":         nil,
		"ref_ret_num":       nil,
		"batch_num":         nil,
		"proc_return_code":  nil,
		"status":            TxDeclined,
		"status_detail":     nil,
		"error_code":        nil,
		"error_message":     nil,
		"all":               nil,
	}
}

// Default3DResponse returns a declined 3D Secure result with every key present
func Default3DResponse(txType TxType, model PaymentModel) Result {
	res := DefaultPaymentResponse(txType, model)
	res["md_status"] = nil
	res["md_error_message"] = nil
	res["transaction_security"] = nil
	res["masked_number"] = nil
	res["eci"] = nil
	res["cavv"] = nil
	res["tx_status"] = nil
	res["3d_all"] = nil
	return res
}

// DefaultStatusResponse returns a declined status result with every key present
func DefaultStatusResponse(raw map[string]any) Result {
	return Result{
		"order_id":          nil,
		"remote_order_id":   nil,
		"auth_code":         nil,
		"proc_return_code":  nil,
		"transaction_id":    nil,
		"transaction_type":  nil,
		"transaction_time":  nil,
		"capture_time":      nil,
		"cancel_time":       nil,
		"refund_time":       nil,
		"error_code":        nil,
		"error_message":     nil,
		"ref_ret_num":       nil,
		"order_status":      nil,
		"masked_number":     nil,
		"refund_amount":     nil,
		"capture_amount":    nil,
		"first_amount":      nil,
		"capture":           nil,
		"currency":          nil,
		"installment_count": nil,
		"status":            TxDeclined,
		"status_detail":     nil,
		"all":               raw,
	}
}

// DefaultRefundResponse returns a declined refund or cancel result with every key present
func DefaultRefundResponse(raw map[string]any) Result {
	return Result{
		"order_id":         nil,
		"auth_code":        nil,
		"ref_ret_num":      nil,
		"proc_return_code": nil,
		"transaction_id":   nil,
		"error_code":       nil,
		"error_message":    nil,
		"status":           TxDeclined,
		"status_detail":    nil,
		"all":              raw,
	}
}

// DefaultHistoryResponse returns an empty declined history result
func DefaultHistoryResponse(raw map[string]any) Result {
	return Result{
		"proc_return_code": nil,
		"error_code":       nil,
		"error_message":    nil,
		"status":           TxDeclined,
		"status_detail":    nil,
		"trans_count":      0,
		"transactions":     []Result{},
		"all":              raw,
	}
}

// DefaultOrderHistoryResponse returns an empty declined order history result
func DefaultOrderHistoryResponse(raw map[string]any) Result {
	res := DefaultHistoryResponse(raw)
	res["order_id"] = nil
	return res
}

// DefaultHistoryTransaction returns a declined transaction record with every key present
func DefaultHistoryTransaction() Result {
	return Result{
		"auth_code":         nil,
		"proc_return_code":  nil,
		"transaction_id":    nil,
		"transaction_time":  nil,
		"capture_time":      nil,
		"error_code":        nil,
		"error_message":     nil,
		"ref_ret_num":       nil,
		"order_status":      nil,
		"transaction_type":  nil,
		"first_amount":      nil,
		"capture_amount":    nil,
		"capture":           nil,
		"currency":          nil,
		"installment_count": nil,
		"masked_number":     nil,
		"status":            TxDeclined,
		"status_detail":     nil,
	}
}

// MergePreferNonNull merges two partial views of one transaction.
// Keys found on one side only are kept. For shared keys b wins unless its
// value is falsy, then a is kept. Neither input is modified.
func MergePreferNonNull(a, b Result) Result {
	out := make(Result, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if existing, ok := a[k]; ok && IsFalsy(v) {
			out[k] = existing
			continue
		}
		out[k] = v
	}
	return out
}

// StatusDetail looks a raw code up in a gateway status table, nil on miss
func StatusDetail(table map[string]string, code any) any {
	if detail, ok := table[String(code)]; ok {
		return detail
	}
	return nil
}

// SetCapture fills "capture" when both amounts are known. Amounts are compared exactly.
func SetCapture(res Result) {
	first, okFirst := res["first_amount"].(float64)
	captured, okCaptured := res["capture_amount"].(float64)
	if okFirst && okCaptured {
		res["capture"] = first == captured
	}
}

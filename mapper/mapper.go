package mapper

import "time"

// Transaction outcome
const (
	TxApproved = "approved"
	TxDeclined = "declined"
)

// TxType is the canonical transaction type token
type TxType string

const (
	TxTypePayAuth       TxType = "pay"
	TxTypePayPreAuth    TxType = "pre"
	TxTypePayPostAuth   TxType = "post"
	TxTypeCancel        TxType = "cancel"
	TxTypeRefund        TxType = "refund"
	TxTypeRefundPartial TxType = "refund_partial"
	TxTypeStatus        TxType = "status"
	TxTypeHistory       TxType = "history"
	TxTypeOrderHistory  TxType = "order_history"
)

// PaymentModel is the canonical security model of a payment
type PaymentModel string

const (
	ModelNonSecure    PaymentModel = "regular"
	Model3DSecure     PaymentModel = "3d_secure"
	Model3DPay        PaymentModel = "3d_pay"
	Model3DPayHosting PaymentModel = "3d_pay_hosting"
	Model3DHost       PaymentModel = "3d_host"
)

// OrderStatus is the business status of an order as reported by status and history queries
type OrderStatus string

const (
	OrderStatusCompleted         OrderStatus = "PAYMENT_COMPLETED"
	OrderStatusPending           OrderStatus = "PAYMENT_PENDING"
	OrderStatusCanceled          OrderStatus = "CANCELED"
	OrderStatusFullyRefunded     OrderStatus = "FULLY_REFUNDED"
	OrderStatusPartiallyRefunded OrderStatus = "PARTIALLY_REFUNDED"
	OrderStatusPreAuthCompleted  OrderStatus = "PRE_AUTH_COMPLETED"
	OrderStatusError             OrderStatus = "ERROR"
)

// Canonical currency tokens
const (
	CurrencyTRY = "TRY"
	CurrencyUSD = "USD"
	CurrencyEUR = "EUR"
	CurrencyGBP = "GBP"
	CurrencyJPY = "JPY"
	CurrencyRUB = "RUB"
)

// 3D Secure transaction security levels
const (
	SecurityFull3D      = "Full 3D Secure"
	SecurityHalf3D      = "Half 3D Secure"
	SecurityMPIFallback = "MPI fallback"
)

// Location is the time zone bank timestamps are interpreted in.
// Turkish banks report local time without an offset.
var Location = time.FixedZone("Europe/Istanbul", 3*60*60)

// Result is the canonical transaction result. A missing value is nil.
type Result map[string]any

// Status returns the approved/declined outcome of the result
func (r Result) Status() string {
	s, _ := r["status"].(string)
	return s
}

// Approved reports whether the result status is approved
func (r Result) Approved() bool {
	return r.Status() == TxApproved
}

// Transactions returns the transaction records of a history result
func (r Result) Transactions() []Result {
	txs, _ := r["transactions"].([]Result)
	return txs
}

// Order carries the merchant side context that banks do not always echo back
type Order struct {
	ID           string  `json:"id"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
	Installment  int     `json:"installment"`
	RefundAmount float64 `json:"refund_amount,omitempty"`
}

// PaymentResponseMapper maps the results of payment operations
type PaymentResponseMapper interface {
	// MapPaymentResponse maps a non-secure (or post-auth) payment response
	MapPaymentResponse(raw map[string]any, txType TxType, order Order) (Result, error)

	// Map3DPaymentData maps a 3D Secure authentication result and, when the
	// authentication succeeded, the payment response that followed it.
	// rawPayment is nil when no payment call was made.
	Map3DPaymentData(raw3D, rawPayment map[string]any, txType TxType, order Order) (Result, error)

	// Map3DPayResponseData maps the single callback of the 3D Pay model
	Map3DPayResponseData(raw map[string]any, txType TxType, order Order) (Result, error)

	// Map3DHostResponseData maps the callback of the hosted 3D model
	Map3DHostResponseData(raw map[string]any, txType TxType, order Order) (Result, error)

	// ExtractMdStatus returns the raw md status of a 3D callback, "" when absent
	ExtractMdStatus(raw map[string]any) string

	// Is3DAuthSuccess reports whether the md status means a successful authentication
	Is3DAuthSuccess(mdStatus string) bool
}

// NonPaymentResponseMapper maps the results of operations that do not move money in
type NonPaymentResponseMapper interface {
	MapRefundResponse(raw map[string]any) (Result, error)
	MapCancelResponse(raw map[string]any) (Result, error)
	MapStatusResponse(raw map[string]any) (Result, error)
	MapHistoryResponse(raw map[string]any) (Result, error)
	MapOrderHistoryResponse(raw map[string]any) (Result, error)
}

// ResponseMapper is implemented by every gateway mapper
type ResponseMapper interface {
	PaymentResponseMapper
	NonPaymentResponseMapper

	// Gateway returns the canonical gateway identifier
	Gateway() string
}

// CurrencyOrNil returns the order currency, nil when unset
func (o Order) CurrencyOrNil() any {
	if o.Currency == "" {
		return nil
	}
	return o.Currency
}

// AmountOrNil returns the order amount, nil when unset
func (o Order) AmountOrNil() any {
	if o.Amount == 0 {
		return nil
	}
	return o.Amount
}

// IDOrNil returns the order id, nil when unset
func (o Order) IDOrNil() any {
	if o.ID == "" {
		return nil
	}
	return o.ID
}

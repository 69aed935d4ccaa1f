package validate

import (
	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/gopos/infra/config"
	"github.com/mstgnz/gopos/mapper"
)

var txTypes = map[mapper.TxType]struct{}{
	mapper.TxTypePayAuth:       {},
	mapper.TxTypePayPreAuth:    {},
	mapper.TxTypePayPostAuth:   {},
	mapper.TxTypeCancel:        {},
	mapper.TxTypeRefund:        {},
	mapper.TxTypeRefundPartial: {},
	mapper.TxTypeStatus:        {},
	mapper.TxTypeHistory:       {},
	mapper.TxTypeOrderHistory:  {},
}

// CustomValidate registers the custom rules on the shared validator
func CustomValidate() {
	Register(config.App().Validator)
}

// New returns a validator with the custom rules registered
func New() *validator.Validate {
	v := validator.New()
	Register(v)
	return v
}

// Register adds the tx_type tag and the order rules to v
func Register(v *validator.Validate) {
	_ = v.RegisterValidation("tx_type", validateTxType)
	v.RegisterStructValidation(validateOrder, mapper.Order{})
}

func validateTxType(fl validator.FieldLevel) bool {
	_, ok := txTypes[mapper.TxType(fl.Field().String())]
	return ok
}

// validateOrder rejects negative figures and currencies that are not a three letter code
func validateOrder(sl validator.StructLevel) {
	order := sl.Current().Interface().(mapper.Order)

	if order.Amount < 0 {
		sl.ReportError(order.Amount, "Amount", "amount", "gte", "0")
	}
	if order.RefundAmount < 0 {
		sl.ReportError(order.RefundAmount, "RefundAmount", "refund_amount", "gte", "0")
	}
	if order.Installment < 0 {
		sl.ReportError(order.Installment, "Installment", "installment", "gte", "0")
	}
	if order.Currency != "" && !isCurrencyCode(order.Currency) {
		sl.ReportError(order.Currency, "Currency", "currency", "iso4217", "")
	}
}

func isCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, c := range code {
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}

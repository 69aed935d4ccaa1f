package param

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mstgnz/gopos/mapper"
)

const (
	gatewayName = "param"

	// 3D callback field prefix of the hosted payment page
	retvalPrefix = "TURKPOS_RETVAL_"
)

var timeLayouts = []string{
	"2006-01-02T15:04:05.999",
	"2006-01-02T15:04:05",
	"02.01.2006 15:04:05",
	"2006-01-02 15:04:05",
}

var statusCodes = map[string]string{
	"0":   "approved",
	"00":  "approved",
	"05":  "reject",
	"12":  "invalid_transaction",
	"51":  "insufficient_balance",
	"54":  "expired_card",
	"57":  "does_not_allow_card_holder",
	"62":  "restricted_card",
	"-1":  "general_error",
	"-2":  "invalid_transaction",
	"-3":  "reject",
	"-4":  "invalid_transaction",
	"-99": "general_error",
}

// Durum values of TP_Islem_Sorgulama4
var orderStatuses = map[string]mapper.OrderStatus{
	"SUCCESS":        mapper.OrderStatusCompleted,
	"FAIL":           mapper.OrderStatusError,
	"PARTIAL_REFUND": mapper.OrderStatusPartiallyRefunded,
	"REFUND":         mapper.OrderStatusFullyRefunded,
	"CANCEL":         mapper.OrderStatusCanceled,
}

// Islem_Tip values of status and history records
var recordTypes = map[string]mapper.TxType{
	"SATIS":        mapper.TxTypePayAuth,
	"Satış":        mapper.TxTypePayAuth,
	"ON_PROVIZYON": mapper.TxTypePayPreAuth,
	"Ön Provizyon": mapper.TxTypePayPreAuth,
	"IPTAL":        mapper.TxTypeCancel,
	"İptal":        mapper.TxTypeCancel,
	"IADE":         mapper.TxTypeRefund,
	"İade":         mapper.TxTypeRefund,
}

// DefaultTables returns the ParamPos codes
func DefaultTables() mapper.Tables {
	return mapper.Tables{
		Currencies: map[string]string{
			mapper.CurrencyTRY: "1000",
			mapper.CurrencyUSD: "1001",
			mapper.CurrencyEUR: "1002",
			mapper.CurrencyGBP: "1003",
		},
		TxTypes: map[mapper.TxType]mapper.TxTypeCodes{
			mapper.TxTypePayAuth:       mapper.Code("TP_WMD_UCD"),
			mapper.TxTypePayPreAuth:    mapper.Code("TP_Islem_Odeme_OnProv_WMD"),
			mapper.TxTypePayPostAuth:   mapper.Code("TP_Islem_Odeme_OnProv_Kapa"),
			mapper.TxTypeCancel:        mapper.Code("IPTAL"),
			mapper.TxTypeRefund:        mapper.Code("IADE"),
			mapper.TxTypeRefundPartial: mapper.Code("IADE"),
			mapper.TxTypeStatus:        mapper.Code("TP_Islem_Sorgulama4"),
			mapper.TxTypeHistory:       mapper.Code("TP_Islem_Izleme"),
		},
	}
}

// Mapper maps ParamPos (TurkPos) SOAP responses
type Mapper struct {
	mapper.Base
}

// NewMapper creates a ParamPos mapper
func NewMapper(cfg mapper.Config) (mapper.ResponseMapper, error) {
	tables := cfg.Tables.WithDefaults(DefaultTables())
	if err := mapper.ValidateTables(tables); err != nil {
		return nil, fmt.Errorf("%s: invalid tables: %w", gatewayName, err)
	}
	return &Mapper{Base: mapper.NewBase(gatewayName, tables, cfg.Logger)}, nil
}

// soapResult unwraps Envelope.Body.{Method}Response.{Method}Result. The envelope
// is optional, callers may pass the decoded body or the response element.
func soapResult(data map[string]any) map[string]any {
	for _, key := range []string{"Envelope", "soap:Envelope"} {
		if envelope := mapper.Map(data[key]); envelope != nil {
			data = envelope
			break
		}
	}
	for _, key := range []string{"Body", "soap:Body"} {
		if body := mapper.Map(data[key]); body != nil {
			data = body
			break
		}
	}

	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if !strings.HasSuffix(key, "Response") {
			continue
		}
		response := mapper.Map(data[key])
		for inner, value := range response {
			if strings.HasSuffix(inner, "Result") {
				return mapper.Map(value)
			}
		}
	}
	for _, key := range keys {
		if strings.HasSuffix(key, "Result") {
			return mapper.Map(data[key])
		}
	}
	return data
}

// success reports a positive Sonuc, negative values are errors
func success(result map[string]any) bool {
	return mapper.Int(result["Sonuc"]) > 0
}

// MapPaymentResponse maps TP_WMD_UCD (non secure) and TP_Islem_Odeme_OnProv_Kapa results
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
	result := soapResult(data)

	procReturnCode := mapper.Nullable(result["Sonuc"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, mapper.Coalesce(result["Bank_Sonuc_Kod"], procReturnCode))
	res["order_id"] = mapper.Coalesce(mapper.Nullable(result["Siparis_ID"]), order.IDOrNil())
	res["currency"] = order.CurrencyOrNil()
	res["amount"] = order.AmountOrNil()
	res["installment_count"] = mapper.MapInstallment(order.Installment)

	if !success(result) {
		res["error_code"] = mapper.Coalesce(mapper.Nullable(result["Bank_Sonuc_Kod"]), procReturnCode)
		res["error_message"] = mapper.Coalesce(mapper.Nullable(result["Sonuc_Str"]), mapper.Nullable(result["Sonuc_Ack"]))
		return res
	}

	res["status"] = mapper.TxApproved
	res["transaction_id"] = mapper.Coalesce(mapper.Nullable(result["Dekont_ID"]), mapper.Nullable(result["Islem_ID"]))
	res["auth_code"] = mapper.Nullable(result["Bank_AuthCode"])
	res["ref_ret_num"] = mapper.Nullable(result["Bank_HostRefNum"])

	m.Debug("mapped payment response", map[string]any{"status": res["status"], "tx_type": txType})
	return res
}

// ExtractMdStatus returns the mdStatus of a 3D model callback
func (m *Mapper) ExtractMdStatus(raw map[string]any) string {
	return strings.TrimSpace(mapper.String(raw["mdStatus"]))
}

// Is3DAuthSuccess accepts md status 1 to 4
func (m *Mapper) Is3DAuthSuccess(mdStatus string) bool {
	return mapper.IsMdStatusSuccess(mdStatus)
}

// Map3DPaymentData maps the 3D model callback and the TP_WMD_Pay result that followed it
func (m *Mapper) Map3DPaymentData(raw3D, rawPayment map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	data := mapper.Normalize(raw3D)
	mdStatus := mapper.String(data["mdStatus"])

	threeD := mapper.Default3DResponse(txType, mapper.Model3DSecure)
	threeD["all"] = raw3D
	threeD["3d_all"] = raw3D
	threeD["order_id"] = mapper.Coalesce(mapper.Nullable(data["orderId"]), order.IDOrNil())
	threeD["md_status"] = mapper.Nullable(mdStatus)
	threeD["transaction_security"] = mapper.TransactionSecurity(mdStatus)
	threeD["amount"] = mapper.Coalesce(mapper.AmountOrNil(data["transactionAmount"], mapper.FormatCommaAmount), order.AmountOrNil())
	threeD["currency"] = order.CurrencyOrNil()
	threeD["installment_count"] = mapper.MapInstallment(order.Installment)

	if !m.Is3DAuthSuccess(mdStatus) || rawPayment == nil {
		threeD["proc_return_code"] = mapper.Nullable(data["bankResult"])
		threeD["error_code"] = mapper.Coalesce(mapper.Nullable(data["bankResult"]), mapper.Nullable(mdStatus))
		threeD["error_message"] = mapper.Nullable(data["mdErrorMessage"])
		threeD["md_error_message"] = mapper.Nullable(data["mdErrorMessage"])
		return threeD, nil
	}

	payment := m.mapPayment(rawPayment, txType, mapper.Model3DSecure, order)
	return mapper.MergePreferNonNull(threeD, payment), nil
}

// Map3DPayResponseData maps the TURKPOS_RETVAL callback of the 3D Pay model
func (m *Mapper) Map3DPayResponseData(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.mapRetval(raw, txType, mapper.Model3DPay, order), nil
}

// Map3DHostResponseData maps the TURKPOS_RETVAL callback of the hosted payment page
func (m *Mapper) Map3DHostResponseData(raw map[string]any, txType mapper.TxType, order mapper.Order) (mapper.Result, error) {
	return m.mapRetval(raw, txType, mapper.Model3DHost, order), nil
}

func (m *Mapper) mapRetval(raw map[string]any, txType mapper.TxType, model mapper.PaymentModel, order mapper.Order) mapper.Result {
	res := mapper.Default3DResponse(txType, model)
	res["all"] = raw
	res["3d_all"] = raw

	data := mapper.Normalize(raw)
	if len(data) == 0 {
		return res
	}
	retval := func(name string) any {
		return data[retvalPrefix+name]
	}

	procReturnCode := mapper.Nullable(retval("Sonuc"))
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, mapper.Coalesce(retval("Banka_Sonuc_Kod"), procReturnCode))
	res["order_id"] = mapper.Coalesce(mapper.Nullable(retval("Siparis_ID")), order.IDOrNil())
	res["transaction_id"] = mapper.Nullable(retval("Dekont_ID"))
	res["amount"] = mapper.Coalesce(mapper.AmountOrNil(retval("Tahsilat_Tutari"), mapper.FormatCommaAmount), order.AmountOrNil())
	res["currency"] = order.CurrencyOrNil()
	res["installment_count"] = mapper.MapInstallment(mapper.Coalesce(retval("Taksit"), order.Installment))
	res["masked_number"] = mapper.Nullable(retval("KK_No"))
	res["transaction_time"] = mapper.ParseTime(retval("Islem_Tarih"), timeLayouts...)

	if mapper.Int(retval("Sonuc")) <= 0 {
		res["error_code"] = mapper.Coalesce(mapper.Nullable(retval("Banka_Sonuc_Kod")), procReturnCode)
		res["error_message"] = mapper.Nullable(retval("Sonuc_Str"))
		return res
	}

	res["status"] = mapper.TxApproved
	res["transaction_security"] = mapper.SecurityFull3D
	return res
}

// MapRefundResponse maps a TP_Islem_Iptal_Iade_Kismi2 IADE result
func (m *Mapper) MapRefundResponse(raw map[string]any) (mapper.Result, error) {
	return m.mapRefund(raw), nil
}

// MapCancelResponse maps a TP_Islem_Iptal_Iade_Kismi2 IPTAL result
func (m *Mapper) MapCancelResponse(raw map[string]any) (mapper.Result, error) {
	return m.mapRefund(raw), nil
}

func (m *Mapper) mapRefund(raw map[string]any) mapper.Result {
	res := mapper.DefaultRefundResponse(raw)
	data := mapper.Normalize(raw)
	if len(data) == 0 {
		return res
	}
	result := soapResult(data)

	procReturnCode := mapper.Nullable(result["Sonuc"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, mapper.Coalesce(result["Bank_Sonuc_Kod"], procReturnCode))
	res["transaction_id"] = mapper.Nullable(result["Dekont_ID"])
	res["auth_code"] = mapper.Nullable(result["Bank_AuthCode"])
	res["ref_ret_num"] = mapper.Nullable(result["Bank_HostRefNum"])

	if success(result) {
		res["status"] = mapper.TxApproved
	} else {
		res["error_code"] = mapper.Coalesce(mapper.Nullable(result["Bank_Sonuc_Kod"]), procReturnCode)
		res["error_message"] = mapper.Nullable(result["Sonuc_Str"])
	}
	return res
}

// MapStatusResponse maps TP_Islem_Sorgulama4
func (m *Mapper) MapStatusResponse(raw map[string]any) (mapper.Result, error) {
	res := mapper.DefaultStatusResponse(raw)
	data := mapper.Normalize(raw)
	if len(data) == 0 {
		return res, nil
	}
	result := soapResult(data)

	procReturnCode := mapper.Nullable(result["Sonuc"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)

	info := mapper.Map(result["DT_Bilgi"])
	if !success(result) || info == nil {
		res["error_code"] = procReturnCode
		res["error_message"] = mapper.Nullable(result["Sonuc_Str"])
		return res, nil
	}

	res["order_id"] = mapper.Nullable(info["Siparis_ID"])
	res["remote_order_id"] = mapper.Nullable(info["Islem_ID"])
	res["transaction_id"] = mapper.Nullable(info["Dekont_ID"])
	res["auth_code"] = mapper.Nullable(info["Bank_AuthCode"])
	res["ref_ret_num"] = mapper.Nullable(info["Bank_HostRefNum"])
	res["masked_number"] = mapper.Nullable(info["KK_No"])
	res["installment_count"] = mapper.MapInstallment(info["Taksit"])
	res["currency"] = mapper.CurrencyTRY
	res["transaction_time"] = mapper.ParseTime(info["Tarih"], timeLayouts...)
	res["first_amount"] = mapper.AmountOrNil(info["Toplam_Tutar"], mapper.FormatCommaAmount)
	if txType, ok := recordTypes[mapper.String(info["Islem_Tip"])]; ok {
		res["transaction_type"] = txType
	}

	orderStatus, known := orderStatuses[mapper.String(info["Durum"])]
	if known {
		res["order_status"] = orderStatus
	}
	if orderStatus == mapper.OrderStatusError {
		res["error_code"] = mapper.Nullable(info["Odeme_Sonuc"])
		res["error_message"] = mapper.Coalesce(mapper.Nullable(info["Banka_Sonuc_Aciklama"]), mapper.Nullable(info["Odeme_Sonuc_Aciklama"]))
		return res, nil
	}

	res["status"] = mapper.TxApproved
	switch orderStatus {
	case mapper.OrderStatusCompleted, mapper.OrderStatusPartiallyRefunded, mapper.OrderStatusFullyRefunded:
		res["capture_amount"] = res["first_amount"]
		res["capture_time"] = res["transaction_time"]
	}
	if refund := mapper.FormatCommaAmount(info["Toplam_Iade_Tutar"]); refund > 0 {
		res["refund_amount"] = refund
	}
	mapper.SetCapture(res)

	return res, nil
}

// historyRecords returns DT_Bilgi.Temp, a map for one record and a list for several
func historyRecords(result map[string]any) []map[string]any {
	info := mapper.Map(result["DT_Bilgi"])
	if single := mapper.Map(info["Temp"]); single != nil {
		return []map[string]any{single}
	}
	list := mapper.List(info["Temp"])
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		if record := mapper.Map(item); record != nil {
			out = append(out, record)
		}
	}
	return out
}

func (m *Mapper) mapHistoryTransaction(record map[string]any) mapper.Result {
	tx := mapper.DefaultHistoryTransaction()
	tx["order_id"] = mapper.Nullable(record["Siparis_ID"])
	tx["transaction_id"] = mapper.Nullable(record["Dekont_ID"])
	tx["masked_number"] = mapper.Nullable(record["KK_No"])
	tx["installment_count"] = mapper.MapInstallment(record["Taksit"])
	tx["currency"] = mapper.CurrencyTRY
	tx["transaction_time"] = mapper.ParseTime(record["Tarih"], timeLayouts...)
	tx["first_amount"] = mapper.AmountOrNil(mapper.Coalesce(record["Toplam_Tutar"], record["Tutar"]), mapper.FormatCommaAmount)
	if txType, ok := recordTypes[mapper.String(record["Islem_Tip"])]; ok {
		tx["transaction_type"] = txType
	}

	if durum := mapper.String(record["Durum"]); durum != "Başarılı" && durum != "SUCCESS" {
		tx["error_code"] = mapper.Nullable(record["Banka_Sonuc_Kod"])
		tx["error_message"] = mapper.Nullable(record["Banka_Sonuc_Aciklama"])
		tx["order_status"] = mapper.OrderStatusError
		return tx
	}

	tx["status"] = mapper.TxApproved
	switch tx["transaction_type"] {
	case mapper.TxTypePayAuth:
		tx["order_status"] = mapper.OrderStatusCompleted
		tx["capture_amount"] = tx["first_amount"]
		tx["capture_time"] = tx["transaction_time"]
	case mapper.TxTypePayPreAuth:
		tx["order_status"] = mapper.OrderStatusPreAuthCompleted
	case mapper.TxTypeCancel:
		tx["order_status"] = mapper.OrderStatusCanceled
	case mapper.TxTypeRefund:
		tx["order_status"] = mapper.OrderStatusFullyRefunded
	}
	mapper.SetCapture(tx)
	return tx
}

// MapHistoryResponse maps TP_Islem_Izleme
func (m *Mapper) MapHistoryResponse(raw map[string]any) (mapper.Result, error) {
	res := mapper.DefaultHistoryResponse(raw)
	data := mapper.Normalize(raw)
	if len(data) == 0 {
		return res, nil
	}
	result := soapResult(data)

	procReturnCode := mapper.Nullable(result["Sonuc"])
	res["proc_return_code"] = procReturnCode
	res["status_detail"] = mapper.StatusDetail(statusCodes, procReturnCode)

	if !success(result) {
		res["error_code"] = procReturnCode
		res["error_message"] = mapper.Nullable(result["Sonuc_Str"])
		return res, nil
	}

	records := historyRecords(result)
	transactions := make([]mapper.Result, 0, len(records))
	for _, record := range records {
		transactions = append(transactions, m.mapHistoryTransaction(record))
	}

	res["status"] = mapper.TxApproved
	res["transactions"] = transactions
	res["trans_count"] = len(transactions)

	m.Debug("mapped history response", map[string]any{"status": res["status"], "count": res["trans_count"]})
	return res, nil
}

// MapOrderHistoryResponse is not offered by ParamPos
func (m *Mapper) MapOrderHistoryResponse(raw map[string]any) (mapper.Result, error) {
	return m.NotSupported("order_history")
}

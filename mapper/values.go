package mapper

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

var hundred = decimal.NewFromInt(100)

// EmptyStringsToNull walks decoded response data and replaces blank strings with nil.
// Strings are trimmed, numbers and booleans pass through unchanged, maps and
// slices are copied recursively. Any other type becomes nil.
func EmptyStringsToNull(data any) any {
	switch v := data.(type) {
	case nil:
		return nil
	case string:
		v = strings.TrimSpace(v)
		if v == "" {
			return nil
		}
		return v
	case bool, json.Number,
		float64, float32,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return v
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			out[key] = EmptyStringsToNull(value)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(v))
		for key, value := range v {
			out[key] = EmptyStringsToNull(value)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, value := range v {
			out[i] = EmptyStringsToNull(value)
		}
		return out
	case []map[string]any:
		out := make([]any, len(v))
		for i, value := range v {
			out[i] = EmptyStringsToNull(value)
		}
		return out
	case []string:
		out := make([]any, len(v))
		for i, value := range v {
			out[i] = EmptyStringsToNull(value)
		}
		return out
	default:
		return nil
	}
}

// Normalize applies EmptyStringsToNull to a whole raw response.
// A nil response yields an empty map so callers can index it freely.
func Normalize(raw map[string]any) map[string]any {
	if raw == nil {
		return map[string]any{}
	}
	return EmptyStringsToNull(raw).(map[string]any)
}

// FromStrings converts form-encoded callback data to a raw response
func FromStrings(data map[string]string) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

// Map returns v as a map, or nil when it is not one. Reading a nil map is safe.
func Map(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case Result:
		return m
	}
	return nil
}

// List returns v as a slice of values, or nil when it is not a list
func List(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case []map[string]any:
		out := make([]any, len(l))
		for i := range l {
			out[i] = l[i]
		}
		return out
	}
	return nil
}

// String converts a scalar leaf to a string. nil becomes "".
func String(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return cast.ToString(v)
}

// Nullable converts a scalar leaf to a string, keeping nil as nil
func Nullable(v any) any {
	if v == nil {
		return nil
	}
	s := String(v)
	if s == "" {
		return nil
	}
	return s
}

// Int converts a scalar leaf to an int. Unparsable values become 0.
// Leading zeros are decimal, "08" is 8.
func Int(v any) int {
	switch t := v.(type) {
	case nil:
		return 0
	case string:
		s := strings.TrimSpace(t)
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
		if d, err := decimal.NewFromString(s); err == nil {
			return int(d.IntPart())
		}
		return 0
	}
	return cast.ToInt(v)
}

// Bool converts "true"/"1"/true style leaves to a bool
func Bool(v any) bool {
	if s, ok := v.(string); ok {
		return strings.EqualFold(strings.TrimSpace(s), "true") || strings.TrimSpace(s) == "1"
	}
	return cast.ToBool(v)
}

// IsFalsy reports whether a value counts as empty when merging results:
// nil, false, zero numbers, "" and "0", and empty maps or slices.
func IsFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == "" || t == "0"
	case float64:
		return t == 0
	case float32:
		return t == 0
	case int:
		return t == 0
	case int64:
		return t == 0
	case int32:
		return t == 0
	case json.Number:
		return t.String() == "0"
	case map[string]any:
		return len(t) == 0
	case Result:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case []Result:
		return len(t) == 0
	}
	return false
}

func decimalOf(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, false
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		return d, err == nil
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(t), true
	case float32:
		return decimal.NewFromFloat32(t), true
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
		return decimal.NewFromInt(cast.ToInt64(t)), true
	}
	return decimal.Zero, false
}

// FormatAmount reads a decimal amount as is: "1000.01" is 1000.01
func FormatAmount(v any) float64 {
	d, _ := decimalOf(v)
	return d.InexactFloat64()
}

// FormatMinorAmount reads an amount given in minor units: "100001" is 1000.01
func FormatMinorAmount(v any) float64 {
	d, _ := decimalOf(v)
	return d.Div(hundred).InexactFloat64()
}

// FormatDottedMinorAmount strips thousands separator dots and reads the rest
// as minor units: "1.001" is 10.01
func FormatDottedMinorAmount(v any) float64 {
	if s, ok := v.(string); ok {
		v = strings.ReplaceAll(s, ".", "")
	}
	return FormatMinorAmount(v)
}

// FormatCommaAmount reads amounts written with a decimal comma: "1.000,01" is 1000.01
func FormatCommaAmount(v any) float64 {
	if s, ok := v.(string); ok && strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		v = strings.ReplaceAll(s, ",", ".")
	}
	return FormatAmount(v)
}

// AmountOrNil applies format to v, keeping a missing amount as nil
func AmountOrNil(v any, format func(any) float64) any {
	if v == nil {
		return nil
	}
	return format(v)
}

// MapInstallment returns 0 for absent or single installment markers, else the count
func MapInstallment(v any) int {
	n := Int(v)
	if n <= 1 {
		return 0
	}
	return n
}

// ParseTime parses a bank timestamp with the first matching layout.
// The result is a time.Time in Location, or nil.
func ParseTime(v any, layouts ...string) any {
	s := String(v)
	if s == "" {
		return nil
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, Location); err == nil {
			return t
		}
	}
	return nil
}

// TransactionSecurity derives the security level of the common md status scale
func TransactionSecurity(mdStatus string) string {
	switch mdStatus {
	case "1":
		return SecurityFull3D
	case "2", "3", "4":
		return SecurityHalf3D
	}
	return SecurityMPIFallback
}

// Coalesce returns the first non-nil value
func Coalesce(values ...any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// IsMdStatusSuccess reports a successful authentication on the common md status scale
func IsMdStatusSuccess(mdStatus string) bool {
	switch mdStatus {
	case "1", "2", "3", "4":
		return true
	}
	return false
}

// Field returns the i-th element of a split record, nil when absent or blank
func Field(fields []string, i int) any {
	if i < 0 || i >= len(fields) {
		return nil
	}
	return EmptyStringsToNull(fields[i])
}

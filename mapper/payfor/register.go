package payfor

import (
	"slices"

	"github.com/mstgnz/gopos/mapper"
)

var identifiers = []string{gatewayName, "finansbank", "qnbpay", "qnb-finansbank"}

func init() {
	for _, id := range identifiers {
		mapper.Register(id, NewMapper)
	}
}

// Supports reports whether gateway is a PayFor identifier
func Supports(gateway string) bool {
	return slices.Contains(identifiers, gateway)
}

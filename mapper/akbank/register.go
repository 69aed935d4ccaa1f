package akbank

import (
	"slices"

	"github.com/mstgnz/gopos/mapper"
)

var identifiers = []string{gatewayName, "akbankpos", "akbank-json"}

func init() {
	for _, id := range identifiers {
		mapper.Register(id, NewMapper)
	}
}

// Supports reports whether gateway is an Akbank identifier
func Supports(gateway string) bool {
	return slices.Contains(identifiers, gateway)
}

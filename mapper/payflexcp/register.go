package payflexcp

import (
	"slices"

	"github.com/mstgnz/gopos/mapper"
)

var identifiers = []string{gatewayName, "payflex-cp", "vakifbank-cp"}

func init() {
	for _, id := range identifiers {
		mapper.Register(id, NewMapper)
	}
}

// Supports reports whether gateway is a PayFlex Common Payment identifier
func Supports(gateway string) bool {
	return slices.Contains(identifiers, gateway)
}

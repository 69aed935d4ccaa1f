package interpos

import (
	"slices"

	"github.com/mstgnz/gopos/mapper"
)

var identifiers = []string{gatewayName, "denizbank", "intervpos"}

func init() {
	for _, id := range identifiers {
		mapper.Register(id, NewMapper)
	}
}

// Supports reports whether gateway is an InterVPOS identifier
func Supports(gateway string) bool {
	return slices.Contains(identifiers, gateway)
}

package posnet

import (
	"slices"

	"github.com/mstgnz/gopos/mapper"
)

var identifiers = []string{gatewayName, "yapikredi", "posnet-xml"}

func init() {
	for _, id := range identifiers {
		mapper.Register(id, NewMapper)
	}
}

// Supports reports whether gateway is a PosNet XML identifier
func Supports(gateway string) bool {
	return slices.Contains(identifiers, gateway)
}

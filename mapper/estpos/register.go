package estpos

import (
	"slices"

	"github.com/mstgnz/gopos/mapper"
)

// Identifiers served by this package
var identifiers = []string{gatewayName, "estv3", "payten", "asseco"}

func init() {
	for _, id := range identifiers {
		mapper.Register(id, NewMapper)
	}
}

// Supports reports whether gateway is an EST v3 identifier
func Supports(gateway string) bool {
	return slices.Contains(identifiers, gateway)
}

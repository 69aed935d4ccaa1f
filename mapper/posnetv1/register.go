package posnetv1

import (
	"slices"

	"github.com/mstgnz/gopos/mapper"
)

var identifiers = []string{gatewayName, "posnet-v1", "yapikredi-v1", "albaraka"}

func init() {
	for _, id := range identifiers {
		mapper.Register(id, NewMapper)
	}
}

// Supports reports whether gateway is a PosNet JSON v1 identifier
func Supports(gateway string) bool {
	return slices.Contains(identifiers, gateway)
}

package tosla

import (
	"slices"

	"github.com/mstgnz/gopos/mapper"
)

var identifiers = []string{gatewayName, "akode"}

func init() {
	for _, id := range identifiers {
		mapper.Register(id, NewMapper)
	}
}

// Supports reports whether gateway is a Tosla identifier
func Supports(gateway string) bool {
	return slices.Contains(identifiers, gateway)
}

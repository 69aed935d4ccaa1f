package param

import (
	"slices"

	"github.com/mstgnz/gopos/mapper"
)

var identifiers = []string{gatewayName, "parampos", "turkpos"}

func init() {
	for _, id := range identifiers {
		mapper.Register(id, NewMapper)
	}
}

// Supports reports whether gateway is a ParamPos identifier
func Supports(gateway string) bool {
	return slices.Contains(identifiers, gateway)
}

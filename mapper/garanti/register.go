package garanti

import (
	"slices"

	"github.com/mstgnz/gopos/mapper"
)

var identifiers = []string{gatewayName, "garantipos", "gvps"}

func init() {
	for _, id := range identifiers {
		mapper.Register(id, NewMapper)
	}
}

// Supports reports whether gateway is a Garanti identifier
func Supports(gateway string) bool {
	return slices.Contains(identifiers, gateway)
}

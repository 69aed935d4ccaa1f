package kuveyt

import (
	"slices"

	"github.com/mstgnz/gopos/mapper"
)

var identifiers = []string{gatewayName, "kuveytpos", "kuveyt-turk"}

func init() {
	for _, id := range identifiers {
		mapper.Register(id, NewMapper)
	}
}

// Supports reports whether gateway is a KuveytTürk identifier
func Supports(gateway string) bool {
	return slices.Contains(identifiers, gateway)
}

package vakifkatilim

import (
	"slices"

	"github.com/mstgnz/gopos/mapper"
)

var identifiers = []string{gatewayName, "vakif-katilim", "vakifkatilimpos"}

func init() {
	for _, id := range identifiers {
		mapper.Register(id, NewMapper)
	}
}

// Supports reports whether gateway is a Vakıf Katılım identifier
func Supports(gateway string) bool {
	return slices.Contains(identifiers, gateway)
}

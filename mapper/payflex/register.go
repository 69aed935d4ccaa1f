package payflex

import (
	"slices"

	"github.com/mstgnz/gopos/mapper"
)

var identifiers = []string{gatewayName, "payflex-mpi-vpos", "vakifbank", "ziraat-vpos"}

func init() {
	for _, id := range identifiers {
		mapper.Register(id, NewMapper)
	}
}

// Supports reports whether gateway is a PayFlex MPI VPOS identifier
func Supports(gateway string) bool {
	return slices.Contains(identifiers, gateway)
}

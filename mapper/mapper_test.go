package mapper_test

import (
	"context"
	"testing"

	"github.com/mstgnz/gopos/mapper"
	_ "github.com/mstgnz/gopos/mapper/akbank"
	_ "github.com/mstgnz/gopos/mapper/estpos"
	_ "github.com/mstgnz/gopos/mapper/garanti"
	_ "github.com/mstgnz/gopos/mapper/interpos"
	_ "github.com/mstgnz/gopos/mapper/kuveyt"
	_ "github.com/mstgnz/gopos/mapper/param"
	_ "github.com/mstgnz/gopos/mapper/payflex"
	_ "github.com/mstgnz/gopos/mapper/payflexcp"
	_ "github.com/mstgnz/gopos/mapper/payfor"
	_ "github.com/mstgnz/gopos/mapper/posnet"
	_ "github.com/mstgnz/gopos/mapper/posnetv1"
	_ "github.com/mstgnz/gopos/mapper/tosla"
	_ "github.com/mstgnz/gopos/mapper/vakifkatilim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gateways = []string{
	"akbank", "estpos", "garanti", "interpos", "kuveyt", "param", "payflex",
	"payflexcp", "payfor", "posnet", "posnetv1", "tosla", "vakifkatilim",
}

func TestRegisteredGateways(t *testing.T) {
	aliases := map[string]string{
		"payten":        "estpos",
		"gvps":          "garanti",
		"denizbank":     "interpos",
		"kuveyt-turk":   "kuveyt",
		"turkpos":       "param",
		"vakifbank":     "payflex",
		"payflex-cp":    "payflexcp",
		"qnbpay":        "payfor",
		"yapikredi":     "posnet",
		"albaraka":      "posnetv1",
		"akode":         "tosla",
		"vakif-katilim": "vakifkatilim",
		"akbankpos":     "akbank",
	}

	for _, gateway := range gateways {
		m, err := mapper.New(gateway, mapper.Config{})
		require.NoError(t, err, gateway)
		assert.Equal(t, gateway, m.Gateway())
	}
	for alias, gateway := range aliases {
		m, err := mapper.New(alias, mapper.Config{})
		require.NoError(t, err, alias)
		assert.Equal(t, gateway, m.Gateway(), alias)
	}

	assert.False(t, mapper.Supports("iyzico"))
	_, err := mapper.New("iyzico", mapper.Config{})
	assert.ErrorIs(t, err, mapper.ErrUnknownGateway)
}

// Every gateway must map an empty response to a declined result, or report the
// operation as unsupported, and must do so the same way every time.
func TestEmptyResponses(t *testing.T) {
	s := mapper.NewService()
	ctx := context.Background()
	order := mapper.Order{ID: "ORD-1", Amount: 10.01, Currency: mapper.CurrencyTRY}

	for _, gateway := range gateways {
		for _, operation := range mapper.Operations {
			for name, raw := range map[string]map[string]any{"nil": nil, "empty": {}} {
				t.Run(gateway+"/"+operation+"/"+name, func(t *testing.T) {
					req := mapper.Request{Operation: operation, Order: order, Raw: raw, Raw3D: raw}

					first, err := s.Map(ctx, gateway, req)
					if err != nil {
						assert.True(t, mapper.IsUnsupported(err), err.Error())
						assert.Nil(t, first)
						return
					}
					require.NotNil(t, first)
					assert.Equal(t, mapper.TxDeclined, first.Status())
					assert.Contains(t, first, "error_code")
					assert.Contains(t, first, "error_message")

					second, err := s.Map(ctx, gateway, req)
					require.NoError(t, err)
					assert.Equal(t, first, second)
				})
			}
		}
	}
}

func TestThreeDSecurityLevels(t *testing.T) {
	for _, gateway := range []string{"estpos", "garanti", "interpos"} {
		m, err := mapper.New(gateway, mapper.Config{})
		require.NoError(t, err)

		assert.True(t, m.Is3DAuthSuccess("1"), gateway)
		assert.True(t, m.Is3DAuthSuccess("4"), gateway)
		assert.False(t, m.Is3DAuthSuccess("0"), gateway)
		assert.False(t, m.Is3DAuthSuccess(""), gateway)
	}
}

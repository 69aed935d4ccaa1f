// Package mapper turns raw Turkish virtual POS responses into one canonical
// result shape.
//
// Banks answer the same operation with very different payloads: EST v3 sends
// flat keys with an Extra block, Garanti nests everything under
// Transaction.Response, KuveytTürk wraps non-payment answers in SOAP
// Result.Value envelopes, Tosla reports amounts in minor units. Each gateway
// package under mapper/ owns the paths of its bank and produces a Result with
// the same keys, tokens and null rules as every other gateway.
//
// # Core Concepts
//
//   - Result: map[string]any, a missing value is nil and never an empty string
//   - PaymentResponseMapper / NonPaymentResponseMapper: the two capability interfaces
//   - Base: inverted lookup tables and helpers embedded by every gateway mapper
//   - Registry: gateway identifier to factory, filled by the gateway packages in init
//   - Service: one cached mapper per gateway, operation dispatch, optional audit sinks
//
// # Outcomes
//
// A business decline is a result with status "declined" and error_code or
// error_message set. An operation the bank does not expose returns an
// *UnsupportedOperationError, which matches ErrUnsupportedOperation:
//
//	res, err := svc.Map(ctx, "garanti", mapper.Request{Operation: mapper.OpHistory, Raw: raw})
//	switch {
//	case mapper.IsUnsupported(err):
//	    // integration error, the gateway has no history endpoint
//	case err != nil:
//	    return err
//	case res.Approved():
//	    // ...
//	}
//
// # Basic Usage
//
//	import (
//	    "github.com/mstgnz/gopos/mapper"
//	    _ "github.com/mstgnz/gopos/mapper/estpos"
//	)
//
//	m, err := mapper.New("payten", mapper.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, _ := m.MapPaymentResponse(raw, mapper.TxTypePayAuth, mapper.Order{ID: "ORD-1", Amount: 10.01})
//
// Lookup tables are injected through Config.Tables. Tables left empty are taken
// from the gateway's DefaultTables.
package mapper

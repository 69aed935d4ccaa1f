// Package gopos normalizes the responses of Turkish bank virtual POS gateways
// behind a single, standardized result shape.
//
// # Overview
//
// Every bank answers payments, refunds, cancels, status and history queries
// in its own dialect: different keys, nesting, success codes, amount units
// and date formats. gopos does not talk to the banks. Your application keeps
// its bank integration and hands the decoded raw response to gopos, which
// returns the same canonical map for every gateway.
//
//	┌─────────────────┐    ┌─────────────────┐    ┌─────────────────┐
//	│                 │ raw│                 │    │                 │
//	│   Your App      │───►│     gopos       │───►│  Canonical      │
//	│  (bank client)  │    │   (mappers)     │    │  Result         │
//	│                 │    │                 │    │                 │
//	└─────────────────┘    └─────────────────┘    └─────────────────┘
//
// # Supported Gateways
//
//   - akbank: Akbank JSON POS
//   - estpos: EST v3 (Payten, Asseco)
//   - garanti: Garanti BBVA GVPS
//   - interpos: Denizbank InterVPOS
//   - kuveyt: KuveytTürk
//   - param: Param POS (TurkPos)
//   - payflex: PayFlex MPI VPOS (Vakıfbank, Ziraat)
//   - payflexcp: PayFlex common payment
//   - payfor: QNB Finansbank PayFor
//   - posnet: Yapı Kredi PosNet XML
//   - posnetv1: PosNet JSON (Albaraka)
//   - tosla: Tosla (AKÖde)
//   - vakifkatilim: Vakıf Katılım
//
// # Library Usage
//
//	import (
//	    "github.com/mstgnz/gopos/mapper"
//	    _ "github.com/mstgnz/gopos/mapper/estpos"
//	)
//
//	svc := mapper.NewService()
//	res, err := svc.Map(ctx, "payten", mapper.Request{
//	    Operation: mapper.OpPayment,
//	    Order:     mapper.Order{ID: "ORD-1", Amount: 10.01, Currency: "TRY"},
//	    Raw:       raw,
//	})
//	if err != nil {
//	    return err
//	}
//	if res.Status() == mapper.TxApproved {
//	    // ...
//	}
//
// # HTTP API
//
// cmd/ runs the same service over HTTP:
//
//	GET  /health
//	GET  /v1/gateways
//	POST /v1/gateways/{gateway}/{operation}
//	GET  /v1/gateways/{gateway}/logs
//
// # Configuration
//
// Environment variables, optionally loaded from .env:
//
//	APP_PORT=9999
//	ENVIRONMENT=development
//	LOGGING_LEVEL=info
//	API_KEY=your-api-key
//	IP_WHITELIST=127.0.0.1,10.0.0.5
//	RATE_LIMIT_PER_MINUTE=100
//	CORS_ALLOWED_ORIGINS=*
//	ENABLE_SQLITE_AUDIT=true
//	SQLITE_PATH=./data/gopos.db
//	LOG_RETENTION_DAYS=30
//	ENABLE_OPENSEARCH_LOGGING=false
//	OPENSEARCH_URL=http://localhost:9200
//	OPENSEARCH_USER=
//	OPENSEARCH_PASSWORD=
//
// Every mapping can be written to the SQLite audit store, OpenSearch, or
// both. Card data is redacted before a record reaches OpenSearch.
package gopos

// Package handler provides the HTTP handlers of the gopos API.
//
// The handlers bridge the HTTP layer with the mapping service in package
// mapper. They never talk to a bank: callers post the raw response they
// received from a virtual POS and get the normalized result back.
//
// # Mapping Handler
//
//	mappingHandler := handler.NewMappingHandler(service, auditReader, validator)
//
//	r.Get("/v1/gateways", mappingHandler.ListGateways)
//	r.Post("/v1/gateways/{gateway}/{operation}", mappingHandler.MapResponse)
//	r.Get("/v1/gateways/{gateway}/logs", mappingHandler.ListLogs)
//
// A mapping call carries the order and the decoded bank response:
//
//	POST /v1/gateways/garanti/payment
//	{
//	  "tx_type": "pay",
//	  "order": {"id": "ORD-1", "amount": 10.01, "currency": "TRY"},
//	  "raw": {"Transaction": {"Response": {"Code": "00", "ReasonCode": "00"}}}
//	}
//
// A declined transaction is a successful mapping: the result carries
// status "declined" and the call answers 200. Errors map to status codes:
//
//	400  malformed body, unknown tx_type or operation
//	404  gateway is not registered
//	501  gateway has no mapper for the operation
//	504  mapping exceeded its deadline
//	500  anything else
//
// ListLogs answers 503 when the server runs without an audit store.
//
// # Log Search and Stats
//
//	r.Get("/v1/gateways/{gateway}/logs/orders/{orderID}", logsHandler.GetOrderLogs)
//	r.Get("/v1/gateways/{gateway}/logs/declines", logsHandler.GetDeclineLogs)
//	r.Get("/v1/gateways/{gateway}/logs/stats", logsHandler.GetLogStats)
//	r.Get("/v1/stats", analyticsHandler.GetAuditStats)
//
// The search routes need OpenSearch and take an hours window (default 24,
// at most 168). The stats route reads the SQLite audit store.
//
// # Health Handler
//
//	healthHandler := handler.NewHealthHandler(service, map[string]handler.Pinger{
//		"sqlite_audit": store,
//	})
//	r.Get("/health", healthHandler.CheckHealth)
//
// The service is unhealthy (503) when no gateway is registered. A failing
// audit store, or memory or disk above 90 percent, only degrades it.
//
// All responses use the envelope of package response:
//
//	{"code": 200, "success": true, "message": "...", "data": {...}}
package handler

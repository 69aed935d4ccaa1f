package mapper

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Operation names accepted by Service.Map
const (
	OpPayment      = "payment"
	Op3DPayment    = "3d_payment"
	Op3DPay        = "3d_pay"
	Op3DHost       = "3d_host"
	OpRefund       = "refund"
	OpCancel       = "cancel"
	OpStatus       = "status"
	OpHistory      = "history"
	OpOrderHistory = "order_history"
)

// Operations lists every operation in interface order
var Operations = []string{
	OpPayment, Op3DPayment, Op3DPay, Op3DHost,
	OpRefund, OpCancel, OpStatus, OpHistory, OpOrderHistory,
}

// Request is a single mapping call.
// For 3d_payment Raw3D carries the callback and Raw the payment response, which
// may be nil when the bank was not called.
type Request struct {
	Operation string         `json:"operation" validate:"required,oneof=payment 3d_payment 3d_pay 3d_host refund cancel status history order_history"`
	TxType    TxType         `json:"tx_type,omitempty"`
	Order     Order          `json:"order"`
	Raw       map[string]any `json:"raw"`
	Raw3D     map[string]any `json:"raw_3d,omitempty"`
}

// AuditRecord is what the service hands to audit sinks after every mapping call
type AuditRecord struct {
	ID           string    `json:"id"`
	Gateway      string    `json:"gateway"`
	Operation    string    `json:"operation"`
	TxType       TxType    `json:"tx_type,omitempty"`
	OrderID      string    `json:"order_id,omitempty"`
	Status       string    `json:"status,omitempty"`
	ErrorCode    string    `json:"error_code,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	Error        string    `json:"error,omitempty"`
	Result       Result    `json:"result,omitempty"`
	DurationMs   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuditSink stores audit records. A failing sink never fails the mapping call.
type AuditSink interface {
	Record(ctx context.Context, record AuditRecord) error
}

// Service resolves gateway mappers from a registry, caches one instance per
// gateway and dispatches operations to them. It is safe for concurrent use.
type Service struct {
	registry *Registry
	tables   map[string]Tables
	logger   Logger
	sinks    []AuditSink
	mappers  map[string]ResponseMapper
	mu       sync.RWMutex
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithRegistry replaces the default registry
func WithRegistry(registry *Registry) ServiceOption {
	return func(s *Service) {
		s.registry = registry
	}
}

// WithTables overrides the lookup tables of one gateway
func WithTables(gateway string, tables Tables) ServiceOption {
	return func(s *Service) {
		s.tables[gateway] = tables
	}
}

// WithLogger sets the logger passed to every mapper
func WithLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditSink adds an audit sink, nil sinks are ignored
func WithAuditSink(sink AuditSink) ServiceOption {
	return func(s *Service) {
		if sink != nil {
			s.sinks = append(s.sinks, sink)
		}
	}
}

// NewService creates a mapping service
func NewService(opts ...ServiceOption) *Service {
	s := &Service{
		registry: DefaultRegistry,
		tables:   make(map[string]Tables),
		logger:   NopLogger(),
		mappers:  make(map[string]ResponseMapper),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Gateways lists the gateways the service can map
func (s *Service) Gateways() []string {
	return s.registry.Gateways()
}

// Mapper returns the cached mapper of a gateway, building it on first use
func (s *Service) Mapper(gateway string) (ResponseMapper, error) {
	s.mu.RLock()
	m, ok := s.mappers[gateway]
	s.mu.RUnlock()
	if ok {
		return m, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.mappers[gateway]; ok {
		return m, nil
	}

	m, err := s.registry.New(gateway, Config{Tables: s.tables[gateway], Logger: s.logger})
	if err != nil {
		return nil, err
	}
	s.mappers[gateway] = m

	return m, nil
}

// Map maps one raw bank response of a gateway to the canonical result.
// Declined transactions are results, errors are reserved for unknown gateways,
// unknown operations and operations the gateway does not support.
func (s *Service) Map(ctx context.Context, gateway string, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m, err := s.Mapper(gateway)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	res, err := dispatch(m, req)
	s.audit(ctx, gateway, req, res, err, time.Since(start))

	return res, err
}

func dispatch(m ResponseMapper, req Request) (Result, error) {
	txType := req.TxType
	if txType == "" {
		txType = TxTypePayAuth
	}

	switch req.Operation {
	case OpPayment:
		return m.MapPaymentResponse(req.Raw, txType, req.Order)
	case Op3DPayment:
		return m.Map3DPaymentData(req.Raw3D, req.Raw, txType, req.Order)
	case Op3DPay:
		return m.Map3DPayResponseData(req.Raw, txType, req.Order)
	case Op3DHost:
		return m.Map3DHostResponseData(req.Raw, txType, req.Order)
	case OpRefund:
		return m.MapRefundResponse(req.Raw)
	case OpCancel:
		return m.MapCancelResponse(req.Raw)
	case OpStatus:
		return m.MapStatusResponse(req.Raw)
	case OpHistory:
		return m.MapHistoryResponse(req.Raw)
	case OpOrderHistory:
		return m.MapOrderHistoryResponse(req.Raw)
	}

	return nil, fmt.Errorf("%w: '%s'", ErrUnknownOperation, req.Operation)
}

func (s *Service) audit(ctx context.Context, gateway string, req Request, res Result, mapErr error, elapsed time.Duration) {
	if len(s.sinks) == 0 {
		return
	}

	record := AuditRecord{
		ID:         uuid.New().String(),
		Gateway:    gateway,
		Operation:  req.Operation,
		TxType:     req.TxType,
		OrderID:    req.Order.ID,
		Result:     res,
		DurationMs: elapsed.Milliseconds(),
		CreatedAt:  time.Now().UTC(),
	}
	if res != nil {
		record.Status = res.Status()
		record.ErrorCode = String(res["error_code"])
		record.ErrorMessage = String(res["error_message"])
		if record.OrderID == "" {
			record.OrderID = String(res["order_id"])
		}
	}
	if mapErr != nil {
		record.Error = mapErr.Error()
	}

	for _, sink := range s.sinks {
		if err := sink.Record(ctx, record); err != nil {
			s.logger.Debug("audit sink failed", map[string]any{
				"gateway":   gateway,
				"operation": req.Operation,
				"record_id": record.ID,
				"error":     err.Error(),
			})
		}
	}
}

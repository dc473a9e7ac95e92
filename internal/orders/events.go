package orders

import (
	"encoding/json"
	"time"
)

const (
	EventPaymentCheckRequested = "PaymentCheckRequested"
	EventOrderStatusChanged    = "OrderStatusChanged"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "mixpay-gateway"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // biasanya order_id
	Payload       json.RawMessage `json:"payload"`
}

type PaymentCheckRequestedPayload struct {
	OrderID string `json:"order_id"`
	DueAt   int64  `json:"due_at"` // unix seconds
}

type OrderStatusChangedPayload struct {
	OrderID        string `json:"order_id"`
	From           Status `json:"from"`
	To             Status `json:"to"`
	ProviderStatus string `json:"provider_status"`
	Outcome        string `json:"outcome"` // ACK | SUCCESS | FAIL
}

package mixpay

const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// StatusReport is the provider's view of one payment, normalized from payments_result.
type StatusReport struct {
	OrderID       string `json:"orderId"`
	PayeeID       string `json:"payeeId"`
	Status        string `json:"status"`
	FailureReason string `json:"failureReason,omitempty"`
}

type Asset struct {
	AssetID string `json:"assetId"`
	Symbol  string `json:"symbol"`
	Network string `json:"network"`
}

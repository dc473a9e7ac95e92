package mixpay

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// DebugSink mirrors internal reconciliation payloads to the provider's diagnostics endpoint.
// Posting is fire-and-forget; failures are dropped.
type DebugSink struct {
	URL     string
	Enabled bool
	HTTP    *http.Client
}

func NewDebugSink(url string, enabled bool, timeout time.Duration) *DebugSink {
	return &DebugSink{URL: url, Enabled: enabled, HTTP: &http.Client{Timeout: timeout}}
}

func (d *DebugSink) Post(key string, data any) {
	if d == nil || !d.Enabled || d.URL == "" {
		return
	}
	body, err := json.Marshal(map[string]any{key: data})
	if err != nil {
		return
	}
	go func() {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, d.URL, bytes.NewReader(body))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := d.HTTP.Do(req)
		if err != nil {
			return
		}
		_ = resp.Body.Close()
	}()
}

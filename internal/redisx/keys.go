package redisx

import "time"

const (
	// Asset catalog cache: mixpay:quote_assets -> {"data": [...], "expire_at": unix}
	KeyQuoteAssets      = "mixpay:quote_assets"
	KeySettlementAssets = "mixpay:settlement_assets"

	// Poll schedule: zset member = order_id, score = next due unix time
	KeyPaymentChecks = "mixpay:checks"

	// Dedup event processing: dedup:{service}:{id} (id = event_id)
	KeyDedup = "dedup:%s:%s"
)

var (
	// Entry asset disimpan lebih lama dari expire_at supaya ada nilai lama saat provider down.
	TTLAssetsRetention = 7 * 24 * time.Hour
	TTLDedup           = 48 * time.Hour
)

package redisx

import "time"

const (
	// Cached order lookup: order:{order_id} -> serialized order
	KeyOrder = "order:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Low stock flag: stock_low:{product_id} -> remaining quantity
	KeyLowStock = "stock_low:%s"
)

var (
	TTLOrderCache = 5 * time.Minute
	TTLDedup      = 48 * time.Hour
	TTLLowStock   = 24 * time.Hour
)

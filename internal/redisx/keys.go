package redisx

import "time"

const (
	// Resolved cart view cache: cart:view:{user_id} -> CartView JSON
	KeyCartView = "cart:view:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Set of product ids currently at or below the low-stock threshold,
	// maintained by the stockwatch consumer.
	KeyLowStock = "stock:low"
)

var (
	TTLCartView = 5 * time.Minute
	TTLDedup    = 48 * time.Hour
)

// Package constants holds tuning values shared across the client.
package constants

import "time"

const (
	// DefaultMaxConcurrent is the default cap on simultaneous upload
	// transfers. Tasks are still registered immediately; the cap only
	// limits how many move bytes at once.
	DefaultMaxConcurrent = 5

	// RefreshSettleDelay is how long to wait after a successful upload
	// before refreshing the listing, so backend-side caches have
	// invalidated and the new file row is visible.
	RefreshSettleDelay = 500 * time.Millisecond

	// EvictionDelay is how long a completed upload task stays visible
	// at 100% before it is removed from the active set.
	EvictionDelay = 3 * time.Second

	// EventBusDefaultBuffer is the default per-subscriber channel depth.
	EventBusDefaultBuffer = 256

	// EventBusMaxBuffer caps per-subscriber channel depth.
	EventBusMaxBuffer = 4096
)

// HTTP transport tuning for API calls and presigned transfers.
const (
	HTTPIdleConnTimeout       = 90 * time.Second
	HTTPTLSHandshakeTimeout   = 30 * time.Second
	HTTPExpectContinueTimeout = 5 * time.Second
	HTTPMaxIdleConns          = 64
	HTTPMaxIdleConnsPerHost   = 16
)

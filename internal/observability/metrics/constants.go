// Package metrics provides constants used across metric definitions.
package metrics

// Status label values
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusNotFound = "not_found"
	StatusHit      = "hit"
	StatusMiss     = "miss"
	StatusAllowed  = "allowed"
	StatusRejected = "rejected"
)

// Store operation label values
const (
	OpLoad = "load"
	OpSave = "save"
)

// Histogram bucket parameters
const (
	BucketStart100us = 0.0001
	BucketStart1ms   = 0.001
	BucketStart10ms  = 0.01
	BucketFactor2    = 2
	BucketCount12    = 12
	BucketCount15    = 15
)

package config

import "time"

const (
	// RequestTimeout bounds each call to the payments endpoint. Timeouts are
	// surfaced upstream as an error trigger; the core never retries.
	RequestTimeout = 30 * time.Second

	// AvailabilityTimeout bounds a single payment-method availability probe.
	AvailabilityTimeout = 5 * time.Second

	// TriggerQueueSize is the buffer of the per-session trigger queue.
	// Triggers are applied one at a time; the buffer only absorbs bursts.
	TriggerQueueSize = 16

	// MaxDetailBytes caps payment-detail payloads in both directions: the
	// request body accepted by the details endpoint and the response body
	// read from the payments endpoint.
	MaxDetailBytes = 64 * 1024

	// ServerAddr is the default demo server listen address.
	ServerAddr = ":8080"
)

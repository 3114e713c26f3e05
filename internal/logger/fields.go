package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields, propagated through the call chain via context.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldItemID is the run-of-show queue item ID
	FieldItemID = "item_id"

	// FieldQuery is the media search topic
	FieldQuery = "query"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldUpstreamHost is the remote host a proxied fetch targets
	FieldUpstreamHost = "upstream_host"
)

// Standard metric fields, attached per log line via the Entry API.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"

	// FieldCacheTier reports which cache tier served a proxy hit
	FieldCacheTier = "cache_tier"
)

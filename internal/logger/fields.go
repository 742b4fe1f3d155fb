package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields, propagated through the call chain via context.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldSyncID identifies one catalog sync run
	FieldSyncID = "sync_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldSource is the wallpaper provider identifier
	FieldSource = "source"

	// FieldItemID is the wallpaper ID
	FieldItemID = "item_id"

	// FieldCategory is the normalized category key
	FieldCategory = "category"
)

// Standard metric fields, attached at the log entry level.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldStatus is the operation status
	FieldStatus = "status"

	// FieldSize is a payload size in bytes
	FieldSize = "size"
)

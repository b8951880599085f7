package logger

// Standard field names for consistent structured logging across quarry.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldDatasetID   = "dataset_id"
	FieldExecutionID = "execution_id"
	FieldSourceID    = "source_id"
	FieldTemplateID  = "template_id"
	FieldOwnerID     = "owner_id"

	// Operations
	FieldOperation = "operation"
	FieldQuery     = "query"
	FieldStrategy  = "strategy"
	FieldCursor    = "cursor"

	// Timing
	FieldDurationMS = "duration_ms"
	FieldStartTime  = "start_time"
	FieldEndTime    = "end_time"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldCount     = "count"
	FieldRowCount  = "row_count"
	FieldAPICalls  = "api_calls"
	FieldPageCount = "page_count"
	FieldAttempt   = "attempt"

	// Status
	FieldStatus = "status"
	FieldPhase  = "phase"
)

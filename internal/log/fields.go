package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRunID     = "run_id"
	FieldRunName   = "run_name"
	FieldRequestID = "request_id"
	FieldVersion   = "table_version"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Machine fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldHead     = "head"
	FieldStep     = "step"
	FieldSteps    = "steps"
	FieldStatus   = "status"
	FieldStates   = "states"
	FieldTapeLen  = "tape_len"

	// Path fields
	FieldPath = "path"
)

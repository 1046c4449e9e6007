package logger

// Field keys shared across components, so log lines stay greppable.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldOperation  = "operation"
	FieldStatus     = "status"
	FieldError      = "error"
	FieldDuration   = "duration_ms"
	FieldSpeaker    = "speaker"
	FieldSource     = "source"
	FieldGeneration = "generation"
	FieldProvider   = "provider"
	FieldClientID   = "client_id"
)

// Fields builds a field map from alternating key-value pairs. Keys
// that are not strings are skipped, as is a trailing key without a
// value.
//
//	logger.Info("window sent", logger.Fields(logger.FieldSpeaker, "You"))
func Fields(kvs ...interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		key, ok := kvs[i].(string)
		if !ok {
			continue
		}
		fields[key] = kvs[i+1]
	}
	return fields
}

// ErrorFields tags a failed operation with its error.
func ErrorFields(op string, err error) map[string]interface{} {
	return Fields(FieldOperation, op, FieldError, err.Error())
}

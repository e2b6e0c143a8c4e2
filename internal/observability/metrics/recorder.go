// Package metrics provides custom Prometheus metrics for the ResistorLens application.
package metrics

// Status labels shared by the operation counters.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Recorder defines a minimal interface for recording metrics.
// Components depend on it so tests can pass nil or a fake instead of a registry.
type Recorder interface {
	// RecordOperation records a generic operation with its status.
	// The operation parameter describes what was performed (e.g., "get", "set").
	// The status parameter indicates the outcome (e.g., "success", "error").
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error occurrence with its type.
	// The errorType parameter is usually an error category such as "validation" or "database".
	RecordError(operation, errorType string)
}

// StatusOf maps an error to a status label.
func StatusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

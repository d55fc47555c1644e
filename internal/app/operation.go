package app

import "time"

// Operation tracks one CLI command. Its ID tags every log line the
// command writes.
type Operation struct {
	ID         string
	Operation  string
	Parameters string
	Status     string // "success" or "error"
	Started    time.Time
}

// NewOperation creates an operation that started at now.
func NewOperation(operation, parameters string, now time.Time) *Operation {
	return &Operation{
		ID:         now.UTC().Format("20060102T150405Z"),
		Operation:  operation,
		Parameters: parameters,
		Status:     "success",
		Started:    now,
	}
}

// Fail marks the operation as failed when err is non-nil and returns err.
func (op *Operation) Fail(err error) error {
	if err != nil {
		op.Status = "error"
	}
	return err
}

// Failed reports whether any step of the operation failed.
func (op *Operation) Failed() bool {
	return op.Status == "error"
}

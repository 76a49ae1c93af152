package process

import "errors"

// Sentinel errors for Process lifecycle violations.
var (
	ErrAlreadyExecuted = errors.New("process: already executed (single-shot)")
	ErrNotExecuted     = errors.New("process: no control operation before execute")
	ErrNoRoot          = errors.New("process: no local root set and no manager/process type given")
)

// ProcessingError wraps an error raised by a processing hook. Execute
// records it against the process and returns it with FAILURE, without
// building a Session.
type ProcessingError struct {
	Err error
}

func (e *ProcessingError) Error() string { return "process: processing hook failed: " + e.Err.Error() }
func (e *ProcessingError) Unwrap() error { return e.Err }

// DataTypeError is returned by the GetData helper when a stored value
// exists under key but does not hold the requested type.
type DataTypeError struct {
	Key string
}

func (e *DataTypeError) Error() string { return "process: data key " + e.Key + " has unexpected type" }

// DataMissingError is returned by the GetData helper when no value is
// stored under key.
type DataMissingError struct {
	Key string
}

func (e *DataMissingError) Error() string { return "process: no data under key " + e.Key }

package model

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection is returned when a node is unreachable or times out
	ErrConnection = errors.New("connection error")

	// ErrProtocol is returned on a non-200 status or an unparseable body
	ErrProtocol = errors.New("protocol error")

	// ErrShortWrite is returned when the status command was not fully sent
	ErrShortWrite = errors.New("short write")

	// ErrNoResponse is returned when the status socket closed without data
	ErrNoResponse = errors.New("no response")

	// ErrTopology is returned when no candidate reports itself active
	ErrTopology = errors.New("no active leader")

	// ErrPersistence is returned when a batch insert or commit fails
	ErrPersistence = errors.New("persistence error")

	// ErrDatabaseConnect is returned when the database stays unreachable after retries
	ErrDatabaseConnect = errors.New("database connect error")

	// ErrUnknownService is returned for a service with no registered harvester
	ErrUnknownService = errors.New("unknown service")

	// ErrDuplicate is returned when an application record already exists
	ErrDuplicate = errors.New("duplicate record")
)

// HarvestError carries the failure kind plus the endpoint it happened on
type HarvestError struct {
	Kind       error
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *HarvestError) Error() string {
	msg := e.Kind.Error()
	if e.Endpoint != "" {
		msg = fmt.Sprintf("%s: %s", e.Endpoint, msg)
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is/As
func (e *HarvestError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewError wraps err with a failure kind
func NewError(kind error, endpoint string, err error) *HarvestError {
	return &HarvestError{Kind: kind, Endpoint: endpoint, Err: err}
}

// Severity tells how a failure is accounted in the run counters
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Classify maps a failure to its severity. Unrecognised errors count as errors.
func Classify(err error) Severity {
	switch {
	case errors.Is(err, ErrConnection),
		errors.Is(err, ErrShortWrite),
		errors.Is(err, ErrNoResponse),
		errors.Is(err, ErrDuplicate):
		return SeverityWarning
	default:
		return SeverityError
	}
}

package models

import "fmt"

// CollectorErrorKind classifies collector failures.
type CollectorErrorKind string

const (
	ErrKindTransport CollectorErrorKind = "transport"
	ErrKindAuth      CollectorErrorKind = "auth"
	ErrKindRateLimit CollectorErrorKind = "rate_limit"
)

// CollectorError is a typed failure of a single collector. The registry
// treats it as partial: logged, recorded on the collector's metrics, and
// excluded from aggregation, never fatal to the batch.
type CollectorError struct {
	Source SourceType
	Kind   CollectorErrorKind
	Err    error
}

func (e *CollectorError) Error() string {
	return fmt.Sprintf("collector %s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *CollectorError) Unwrap() error { return e.Err }

// NewCollectorError wraps err as a typed collector failure.
func NewCollectorError(source SourceType, kind CollectorErrorKind, err error) *CollectorError {
	return &CollectorError{Source: source, Kind: kind, Err: err}
}

package schema

import (
	"errors"
	"fmt"
	"strings"
)

// CollectorErrorKind classifies a collector failure.
type CollectorErrorKind int

// All collector failure kinds.
const (
	ExecutionFailed CollectorErrorKind = iota
	DataParsingFailed
	ToolNotFound
	UnsupportedProject
	Timeout
)

// Sentinels for errors.Is checks against collector failures.
var (
	ErrExecutionFailed    = errors.New("execution failed")
	ErrDataParsingFailed  = errors.New("data parsing failed")
	ErrToolNotFound       = errors.New("tool not found")
	ErrUnsupportedProject = errors.New("unsupported project")
	ErrTimeout            = errors.New("timeout")
)

var collectorSentinels = map[CollectorErrorKind]error{
	ExecutionFailed:    ErrExecutionFailed,
	DataParsingFailed:  ErrDataParsingFailed,
	ToolNotFound:       ErrToolNotFound,
	UnsupportedProject: ErrUnsupportedProject,
	Timeout:            ErrTimeout,
}

// String returns the kind name.
func (k CollectorErrorKind) String() string {
	if err, ok := collectorSentinels[k]; ok {
		return err.Error()
	}
	return fmt.Sprintf("collector error kind %d", int(k))
}

// CollectorError is the only error type a collector returns.
// Detail holds the failing operation, tool, reason, or message depending on Kind.
type CollectorError struct {
	Kind      CollectorErrorKind
	Collector string
	Detail    string
	Err       error
}

// Error implements the error interface.
func (e *CollectorError) Error() string {
	var b strings.Builder
	if e.Collector != "" {
		b.WriteString(e.Collector)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes the kind sentinel and the underlying cause.
func (e *CollectorError) Unwrap() []error {
	errs := []error{collectorSentinels[e.Kind]}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// WithCollector returns a copy tagged with the collector ID.
func (e *CollectorError) WithCollector(id string) *CollectorError {
	c := *e
	c.Collector = id
	return &c
}

// NewExecutionFailed reports a tool that ran but did not succeed.
func NewExecutionFailed(detail string, err error) *CollectorError {
	return &CollectorError{Kind: ExecutionFailed, Detail: detail, Err: err}
}

// NewDataParsingFailed reports tool output that could not be understood.
func NewDataParsingFailed(detail string, err error) *CollectorError {
	return &CollectorError{Kind: DataParsingFailed, Detail: detail, Err: err}
}

// NewToolNotFound reports a missing external tool.
func NewToolNotFound(tool string) *CollectorError {
	return &CollectorError{Kind: ToolNotFound, Detail: tool}
}

// NewUnsupportedProject reports a project the collector cannot measure.
func NewUnsupportedProject(reason string) *CollectorError {
	return &CollectorError{Kind: UnsupportedProject, Detail: reason}
}

// NewTimeout reports an operation that exceeded its time budget.
func NewTimeout(operation string) *CollectorError {
	return &CollectorError{Kind: Timeout, Detail: operation}
}

// AggregatorErrorKind classifies an aggregation round failure.
type AggregatorErrorKind int

// All aggregator failure kinds.
const (
	CollectionFailed AggregatorErrorKind = iota
	StorageFailed
	InvalidProjectPath
	ConfigurationError
)

// Sentinels for errors.Is checks against aggregator failures.
var (
	ErrCollectionFailed   = errors.New("collection failed")
	ErrStorageFailed      = errors.New("storage error")
	ErrInvalidProjectPath = errors.New("invalid project path")
	ErrConfiguration      = errors.New("configuration error")
)

var aggregatorSentinels = map[AggregatorErrorKind]error{
	CollectionFailed:   ErrCollectionFailed,
	StorageFailed:      ErrStorageFailed,
	InvalidProjectPath: ErrInvalidProjectPath,
	ConfigurationError: ErrConfiguration,
}

// String returns the kind name.
func (k AggregatorErrorKind) String() string {
	if err, ok := aggregatorSentinels[k]; ok {
		return err.Error()
	}
	return fmt.Sprintf("aggregator error kind %d", int(k))
}

// AggregatorError is returned by an aggregation round.
// Errors is populated for CollectionFailed; Err for StorageFailed.
type AggregatorError struct {
	Kind   AggregatorErrorKind
	Errors []error
	Err    error
	Detail string
}

// Error implements the error interface.
func (e *AggregatorError) Error() string {
	switch e.Kind {
	case CollectionFailed:
		msgs := make([]string, 0, len(e.Errors))
		for _, err := range e.Errors {
			msgs = append(msgs, err.Error())
		}
		return fmt.Sprintf("%s: all %d collectors failed: %s", e.Kind, len(e.Errors), strings.Join(msgs, "; "))
	case StorageFailed:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
}

// Unwrap exposes the kind sentinel plus every wrapped error.
func (e *AggregatorError) Unwrap() []error {
	errs := []error{aggregatorSentinels[e.Kind]}
	errs = append(errs, e.Errors...)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewCollectionFailed reports that every collector in a round failed.
func NewCollectionFailed(errs []error) *AggregatorError {
	return &AggregatorError{Kind: CollectionFailed, Errors: errs}
}

// NewAggregatorStorageError reports a persistence failure after a successful collection.
func NewAggregatorStorageError(inner error) *AggregatorError {
	return &AggregatorError{Kind: StorageFailed, Err: inner}
}

// NewInvalidProjectPath reports a project path that cannot be measured.
func NewInvalidProjectPath(detail string) *AggregatorError {
	return &AggregatorError{Kind: InvalidProjectPath, Detail: detail}
}

// NewConfigurationError reports an unusable configuration.
func NewConfigurationError(detail string) *AggregatorError {
	return &AggregatorError{Kind: ConfigurationError, Detail: detail}
}

// StorageErrorKind classifies a storage failure.
type StorageErrorKind int

// All storage failure kinds.
const (
	StorageFailure StorageErrorKind = iota
	DataNotFound
	InvalidData
	ConnectionFailed
)

// Sentinels for errors.Is checks against storage failures.
var (
	ErrStorageFailure   = errors.New("storage failure")
	ErrDataNotFound     = errors.New("data not found")
	ErrInvalidData      = errors.New("invalid data")
	ErrConnectionFailed = errors.New("connection failed")
)

var storageSentinels = map[StorageErrorKind]error{
	StorageFailure:   ErrStorageFailure,
	DataNotFound:     ErrDataNotFound,
	InvalidData:      ErrInvalidData,
	ConnectionFailed: ErrConnectionFailed,
}

// String returns the kind name.
func (k StorageErrorKind) String() string {
	if err, ok := storageSentinels[k]; ok {
		return err.Error()
	}
	return fmt.Sprintf("storage error kind %d", int(k))
}

// StorageError is returned by every MetricStore implementation.
type StorageError struct {
	Kind   StorageErrorKind
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	msg := e.Kind.String()
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the kind sentinel and the underlying cause.
func (e *StorageError) Unwrap() []error {
	errs := []error{storageSentinels[e.Kind]}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewStorageFailure reports a backend operation that failed.
func NewStorageFailure(reason string, err error) *StorageError {
	return &StorageError{Kind: StorageFailure, Reason: reason, Err: err}
}

// NewDataNotFound reports a lookup with no result.
func NewDataNotFound(reason string) *StorageError {
	return &StorageError{Kind: DataNotFound, Reason: reason}
}

// NewInvalidData reports a record that cannot be stored.
func NewInvalidData(reason string) *StorageError {
	return &StorageError{Kind: InvalidData, Reason: reason}
}

// NewConnectionFailed reports a backend that could not be reached.
func NewConnectionFailed(reason string, err error) *StorageError {
	return &StorageError{Kind: ConnectionFailed, Reason: reason, Err: err}
}

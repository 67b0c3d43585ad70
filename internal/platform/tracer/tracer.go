// Package tracer provides a lightweight tracing abstraction for the issuance
// path. It keeps the gateway decoupled from OpenTelemetry APIs while still
// emitting spans around DWN round trips.
//
// Implementations:
//   - NoopTracer: for tests (zero overhead)
//   - OTelTracer: OpenTelemetry adapter for production
package tracer

import (
	"context"
	"time"
)

// Span represents an active trace span.
type Span interface {
	// End completes the span, recording any error that occurred.
	// End must be called exactly once, typically via defer.
	End(err error)

	// SetAttributes adds key-value pairs to the span.
	SetAttributes(attrs ...Attribute)

	// AddEvent records a timestamped event within the span.
	AddEvent(name string, attrs ...Attribute)
}

// Tracer creates spans. Implementations must be safe for concurrent use.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span)
}

// Attribute represents a key-value pair attached to spans.
type Attribute struct {
	Key   string
	Value any
}

// String creates a string attribute.
func String(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// Bool creates a boolean attribute.
func Bool(key string, value bool) Attribute {
	return Attribute{Key: key, Value: value}
}

// Int64 creates an int64 attribute.
func Int64(key string, value int64) Attribute {
	return Attribute{Key: key, Value: value}
}

// Duration creates a duration attribute in milliseconds.
func Duration(key string, value time.Duration) Attribute {
	return Attribute{Key: key, Value: value.Milliseconds()}
}

// Span names used by the issuance module.
const (
	SpanIssue           = "issuance.issue"
	SpanConnect         = "issuance.connect"
	SpanInstallProtocol = "issuance.install_protocol"
	SpanGrantRole       = "issuance.grant_role"
	SpanAuthorizeWrite  = "issuance.authorize_write"
	SpanQueryRecords    = "issuance.query_records"
)

// Attribute keys used by the issuance module.
const (
	AttrSubjectDID = "subject_did"
	AttrRecordID   = "record_id"
	AttrRole       = "role"
	AttrStatusCode = "dwn.status_code"
)

package gateway

import (
	"encoding/json"
	"fmt"
)

// ErrorKind classifies why a remote call failed. Every gateway operation
// returns a tagged result; raw exceptions from the app never escape.
type ErrorKind string

const (
	// KindNotFound: an expected internal path (controller, service, model)
	// was absent from the app's object graph.
	KindNotFound ErrorKind = "not_found"
	// KindMethodUnavailable: the entry point does not exist in this version
	// of the app. Recoverable through a fallback chain.
	KindMethodUnavailable ErrorKind = "method_unavailable"
	// KindRemoteThrew: the expression executed but the app's own code raised.
	KindRemoteThrew ErrorKind = "remote_threw"
	// KindConnection: the channel itself failed. Fatal for the invocation.
	KindConnection ErrorKind = "connection_error"
)

// CallResult is the normalized outcome of one remote call. On success Value
// holds plain serialized data; no references into the app's heap survive the
// call.
type CallResult struct {
	OK     bool            `json:"ok"`
	Value  json.RawMessage `json:"value,omitempty"`
	Kind   ErrorKind       `json:"error,omitempty"`
	Detail string          `json:"detail,omitempty"`
}

// Success wraps a marshaled value.
func Success(value json.RawMessage) CallResult {
	return CallResult{OK: true, Value: value}
}

// Failure wraps a classified error.
func Failure(kind ErrorKind, detail string) CallResult {
	return CallResult{Kind: kind, Detail: detail}
}

// Failuref wraps a classified error with a formatted detail string.
func Failuref(kind ErrorKind, format string, args ...interface{}) CallResult {
	return CallResult{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Decode unmarshals the value into v. Fails when the call itself failed.
func (r CallResult) Decode(v interface{}) error {
	if !r.OK {
		return r.Err()
	}
	if len(r.Value) == 0 {
		return fmt.Errorf("empty result value")
	}
	if err := json.Unmarshal(r.Value, v); err != nil {
		return fmt.Errorf("decode result value: %w", err)
	}
	return nil
}

// Err converts a failed result into an error. Returns nil for successes.
func (r CallResult) Err() error {
	if r.OK {
		return nil
	}
	return fmt.Errorf("%s: %s", r.Kind, r.Detail)
}

// IsMissingEntry reports whether the failure means "try the next candidate":
// either the path or the method was absent in this app version.
func (r CallResult) IsMissingEntry() bool {
	return r.Kind == KindNotFound || r.Kind == KindMethodUnavailable
}

// JSString returns s as a JS string literal, safe to splice into an
// expression. JSON string encoding is valid JS.
func JSString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}

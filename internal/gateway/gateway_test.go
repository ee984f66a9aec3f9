package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"mailpilot-mcp-server/internal/mailapp"
)

// fakeEvaluator scripts remote behavior per expression and records every
// expression it saw, so tests can assert what did (or did not) run remotely.
type fakeEvaluator struct {
	calls   []string
	respond func(expr string) (json.RawMessage, error)
}

func (f *fakeEvaluator) Eval(_ context.Context, expr string, _ bool) (json.RawMessage, error) {
	f.calls = append(f.calls, expr)
	if f.respond == nil {
		return json.RawMessage(`null`), nil
	}
	return f.respond(expr)
}

func TestCallSuccess(t *testing.T) {
	fake := &fakeEvaluator{respond: func(string) (json.RawMessage, error) {
		return json.RawMessage(`{"n":42}`), nil
	}}
	g := New(fake)

	res := g.Call(context.Background(), `() => 42`, false)
	if !res.OK {
		t.Fatalf("expected success, got %s: %s", res.Kind, res.Detail)
	}

	var out struct {
		N int `json:"n"`
	}
	if err := res.Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.N != 42 {
		t.Errorf("expected 42, got %d", out.N)
	}
}

func TestClassifyEvalError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"session closed", mailapp.ErrSessionClosed, KindConnection},
		{"wrapped session closed", fmt.Errorf("eval: %w", mailapp.ErrSessionClosed), KindConnection},
		{"context canceled", context.Canceled, KindConnection},
		{"deadline", context.DeadlineExceeded, KindConnection},
		{"websocket drop", errors.New("websocket: close 1006"), KindConnection},
		{"missing method", errors.New("eval js error: TypeError: svc.archive is not a function"), KindMethodUnavailable},
		{"missing global", errors.New("eval js error: ReferenceError: MailApp is not defined"), KindNotFound},
		{"missing path", errors.New("TypeError: Cannot read properties of undefined (reading 'lookup')"), KindNotFound},
		{"app raised", errors.New("eval js error: Error: thread is still syncing"), KindRemoteThrew},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kind, detail := classifyEvalError(tc.err)
			if kind != tc.want {
				t.Errorf("got kind %s (%s), want %s", kind, detail, tc.want)
			}
			if detail == "" {
				t.Error("expected non-empty detail")
			}
		})
	}
}

func TestCallNeverPropagatesRawErrors(t *testing.T) {
	fake := &fakeEvaluator{respond: func(string) (json.RawMessage, error) {
		return nil, errors.New("eval js error: Error: compose controller rejected")
	}}
	g := New(fake)

	res := g.Call(context.Background(), `() => boom()`, false)
	if res.OK {
		t.Fatal("expected failure")
	}
	if res.Kind != KindRemoteThrew {
		t.Errorf("expected RemoteThrew, got %s", res.Kind)
	}
	if res.Detail == "" {
		t.Error("the app's own message must surface, never be swallowed")
	}
}

func TestDecodeFailureOnFailedResult(t *testing.T) {
	res := Failure(KindNotFound, "no compose controller")
	var v interface{}
	if err := res.Decode(&v); err == nil {
		t.Error("expected decode of failed result to error")
	}
	if res.Err() == nil {
		t.Error("expected Err() to be non-nil for failure")
	}
	if Success(json.RawMessage(`1`)).Err() != nil {
		t.Error("expected Err() nil for success")
	}
}

func TestJSString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"thread-123", `"thread-123"`},
		{`say "hi"`, `"say \"hi\""`},
		{"a\nb", `"a\nb"`},
		{`back\slash`, `"back\\slash"`},
	}
	for _, tc := range tests {
		if got := JSString(tc.in); got != tc.want {
			t.Errorf("JSString(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestIsMissingEntry(t *testing.T) {
	if !Failure(KindNotFound, "x").IsMissingEntry() {
		t.Error("NotFound should be a missing entry")
	}
	if !Failure(KindMethodUnavailable, "x").IsMissingEntry() {
		t.Error("MethodUnavailable should be a missing entry")
	}
	if Failure(KindRemoteThrew, "x").IsMissingEntry() {
		t.Error("RemoteThrew is not a missing entry")
	}
	if Failure(KindConnection, "x").IsMissingEntry() {
		t.Error("ConnectionError is not a missing entry")
	}
}

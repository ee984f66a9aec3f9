package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func chainOf(names ...string) Chain {
	c := Chain{Op: "test_op"}
	for _, n := range names {
		c.Candidates = append(c.Candidates, Candidate{Name: n, Expr: "() => " + n + "()"})
	}
	return c
}

func TestRunChainFirstHitWins(t *testing.T) {
	fake := &fakeEvaluator{respond: func(string) (json.RawMessage, error) {
		return json.RawMessage(`true`), nil
	}}
	g := New(fake)

	res := g.RunChain(context.Background(), chainOf("primary", "secondary"))
	if !res.OK {
		t.Fatalf("expected success, got %s", res.Detail)
	}
	if res.Used != "primary" {
		t.Errorf("expected primary to serve, got %q", res.Used)
	}
	if len(fake.calls) != 1 {
		t.Errorf("expected exactly one remote call, got %d", len(fake.calls))
	}
}

func TestRunChainFallsBackOnMissingEntry(t *testing.T) {
	fake := &fakeEvaluator{respond: func(expr string) (json.RawMessage, error) {
		if strings.Contains(expr, "primary") {
			return nil, errors.New("TypeError: x.primary is not a function")
		}
		return json.RawMessage(`"ok"`), nil
	}}
	g := New(fake)

	res := g.RunChain(context.Background(), chainOf("primary", "secondary"))
	if !res.OK {
		t.Fatalf("expected fallback success, got %s: %s", res.Kind, res.Detail)
	}
	if res.Used != "secondary" {
		t.Errorf("expected secondary to serve, got %q", res.Used)
	}
	if len(res.Tried) != 1 || res.Tried[0] != "primary" {
		t.Errorf("expected tried=[primary], got %v", res.Tried)
	}
}

func TestRunChainStopsOnRemoteThrow(t *testing.T) {
	fake := &fakeEvaluator{respond: func(expr string) (json.RawMessage, error) {
		if strings.Contains(expr, "primary") {
			return nil, errors.New("eval js error: Error: operation rejected by app")
		}
		return json.RawMessage(`"should never run"`), nil
	}}
	g := New(fake)

	res := g.RunChain(context.Background(), chainOf("primary", "secondary"))
	if res.OK {
		t.Fatal("expected failure")
	}
	if res.Kind != KindRemoteThrew {
		t.Errorf("expected RemoteThrew, got %s", res.Kind)
	}
	if len(fake.calls) != 1 {
		t.Errorf("a genuine app failure must stop the walk; got %d calls", len(fake.calls))
	}
}

func TestRunChainStopsOnConnectionError(t *testing.T) {
	fake := &fakeEvaluator{respond: func(string) (json.RawMessage, error) {
		return nil, errors.New("websocket: broken pipe")
	}}
	g := New(fake)

	res := g.RunChain(context.Background(), chainOf("primary", "secondary", "tertiary"))
	if res.Kind != KindConnection {
		t.Fatalf("expected ConnectionError, got %s", res.Kind)
	}
	if len(fake.calls) != 1 {
		t.Errorf("connection failure must stop everything; got %d calls", len(fake.calls))
	}
}

func TestRunChainExhausted(t *testing.T) {
	fake := &fakeEvaluator{respond: func(string) (json.RawMessage, error) {
		return nil, errors.New("ReferenceError: nothing is not defined")
	}}
	g := New(fake)

	res := g.RunChain(context.Background(), chainOf("a", "b", "c"))
	if res.OK {
		t.Fatal("expected failure")
	}
	if res.Kind != KindMethodUnavailable {
		t.Errorf("expected MethodUnavailable after exhaustion, got %s", res.Kind)
	}
	for _, name := range []string{"a", "b", "c"} {
		if !strings.Contains(res.Detail, name) {
			t.Errorf("exhaustion detail should name tried candidate %q: %s", name, res.Detail)
		}
	}
	if len(res.Tried) != 3 {
		t.Errorf("expected 3 tried candidates, got %v", res.Tried)
	}
}

func TestRunChainEmpty(t *testing.T) {
	g := New(&fakeEvaluator{})
	res := g.RunChain(context.Background(), Chain{Op: "empty"})
	if res.OK {
		t.Fatal("empty chain cannot succeed")
	}
	if res.Kind != KindMethodUnavailable {
		t.Errorf("expected MethodUnavailable, got %s", res.Kind)
	}
}

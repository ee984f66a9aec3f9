package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"

	"mailpilot-mcp-server/internal/mailapp"
	"mailpilot-mcp-server/internal/trace"
)

// Evaluator is the raw evaluation channel the gateway drives. Satisfied by
// *mailapp.Session; tests substitute fakes.
type Evaluator interface {
	Eval(ctx context.Context, expr string, await bool) (json.RawMessage, error)
}

// Gateway is the single choke point for all interaction with the mail
// client's internal object graph. Expressions go out, plain data comes back,
// failures come back classified.
type Gateway struct {
	eval      Evaluator
	rec       *trace.Recorder
	sessionID string
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithRecorder wires the flight recorder; every call and the fallback
// candidate that served it are logged for diagnostics.
func WithRecorder(rec *trace.Recorder) Option {
	return func(g *Gateway) { g.rec = rec }
}

// WithSessionID tags recorded events with the owning session.
func WithSessionID(id string) Option {
	return func(g *Gateway) { g.sessionID = id }
}

// New builds a gateway over an evaluation channel.
func New(eval Evaluator, opts ...Option) *Gateway {
	g := &Gateway{eval: eval}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Call executes one JS function literal and normalizes the outcome. await
// resolves a returned promise remotely before marshaling.
func (g *Gateway) Call(ctx context.Context, expr string, await bool) CallResult {
	raw, err := g.eval.Eval(ctx, expr, await)
	if err != nil {
		kind, detail := classifyEvalError(err)
		return Failure(kind, detail)
	}
	return Success(raw)
}

// record logs a chain outcome to the flight recorder when one is attached.
func (g *Gateway) record(op, candidate string, res CallResult) {
	if g.rec == nil {
		return
	}
	g.rec.Log(trace.Event{
		SessionID: g.sessionID,
		Op:        op,
		Candidate: candidate,
		OK:        res.OK,
		Kind:      string(res.Kind),
		Detail:    res.Detail,
	})
	if !res.OK && res.Kind == KindRemoteThrew {
		log.Printf("[gateway:%s] %s via %s: app raised: %s", g.sessionID, op, candidate, res.Detail)
	}
}

// classifyEvalError maps a raw evaluation error onto the error taxonomy.
// The app's internal method names are not a stable contract, so "this path
// does not exist" conditions must be told apart from genuine app failures:
// the former advance a fallback chain, the latter surface to the caller.
func classifyEvalError(err error) (ErrorKind, string) {
	if errors.Is(err, mailapp.ErrSessionClosed) {
		return KindConnection, "session disconnected"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindConnection, "evaluation timed out or was canceled"
	}

	msg := err.Error()

	switch {
	case strings.Contains(msg, "context deadline exceeded"),
		strings.Contains(msg, "websocket"),
		strings.Contains(msg, "cdp connection"),
		strings.Contains(msg, "use of closed network connection"),
		strings.Contains(msg, "connection refused"):
		return KindConnection, trimDetail(msg)

	case strings.Contains(msg, "is not a function"):
		return KindMethodUnavailable, extractJSMessage(msg)

	case strings.Contains(msg, "is not defined"),
		strings.Contains(msg, "Cannot read propert"),
		strings.Contains(msg, "Cannot destructure"),
		strings.Contains(msg, "undefined is not an object"),
		strings.Contains(msg, "null is not an object"):
		return KindNotFound, extractJSMessage(msg)
	}

	return KindRemoteThrew, extractJSMessage(msg)
}

// extractJSMessage pulls the JS error out of rod's wrapper text, e.g.
// "eval js error: TypeError: x.markRead is not a function" -> the TypeError.
func extractJSMessage(msg string) string {
	for _, marker := range []string{"ReferenceError:", "TypeError:", "RangeError:", "SyntaxError:", "Error:"} {
		if idx := strings.Index(msg, marker); idx >= 0 {
			return trimDetail(strings.TrimSpace(msg[idx:]))
		}
	}
	return trimDetail(msg)
}

func trimDetail(msg string) string {
	msg = strings.TrimSpace(msg)
	if len(msg) > 300 {
		return msg[:297] + "..."
	}
	return msg
}

package gateway

import (
	"context"
	"strings"
)

// Candidate is one invocation descriptor in an ordered capability list. Name
// is a stable label used for diagnostics; Expr is a JS function literal.
type Candidate struct {
	Name  string
	Expr  string
	Await bool
}

// Chain is the ordered capability list for one operation. Because the app's
// method names shift between versions, every operation with more than one
// plausible entry point gets exactly one of these tables; call sites never
// do ad hoc existence checks.
type Chain struct {
	Op         string
	Candidates []Candidate
}

// ChainResult carries the normalized outcome plus which candidate served,
// so callers and the flight recorder can see which app version shape was hit.
type ChainResult struct {
	CallResult
	Used  string   `json:"used,omitempty"`
	Tried []string `json:"tried,omitempty"`
}

// RunChain walks the chain in priority order and succeeds on the first hit.
// Missing-entry failures (NotFound, MethodUnavailable) advance to the next
// candidate; a RemoteThrew means the entry point exists and the app rejected
// the operation, so the walk stops and the app's message surfaces; a
// connection failure stops everything.
func (g *Gateway) RunChain(ctx context.Context, chain Chain) ChainResult {
	tried := make([]string, 0, len(chain.Candidates))

	for _, cand := range chain.Candidates {
		res := g.Call(ctx, cand.Expr, cand.Await)
		g.record(chain.Op, cand.Name, res)

		if res.OK {
			return ChainResult{CallResult: res, Used: cand.Name, Tried: tried}
		}

		tried = append(tried, cand.Name)
		if res.IsMissingEntry() {
			continue
		}
		// RemoteThrew or ConnectionError: not recoverable by trying another name.
		return ChainResult{CallResult: res, Tried: tried}
	}

	res := Failuref(KindMethodUnavailable,
		"no entry point for %s in this app version (tried %s)",
		chain.Op, strings.Join(tried, ", "))
	g.record(chain.Op, "", res)
	return ChainResult{CallResult: res, Tried: tried}
}

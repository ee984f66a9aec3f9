package gateway

import (
	"context"
	"fmt"
	"strings"
)

// DraftThreadPrefix marks draft-shaped thread identifiers. Drafts live only
// in the compose controller, not as server-synced threads, so archive/label
// style operations are meaningless on them. Callers of the bulk orchestrator
// filter these out; the orchestrator itself does not.
const DraftThreadPrefix = "draft-"

// IsDraftThreadID reports whether id names a draft rather than a synced thread.
func IsDraftThreadID(id string) bool {
	return strings.HasPrefix(id, DraftThreadPrefix)
}

// threadServiceLookups are the known ways to reach the thread service across
// app versions, newest first. Spliced into every thread chain candidate.
const (
	lookupRegistry  = `window.MailApp.registry.lookup('service:threads')`
	lookupContainer = `window.App.container.lookup('service:threads')`
	lookupLegacy    = `window.App.threads`
)

// ArchiveThread moves a synced thread out of the inbox.
func (g *Gateway) ArchiveThread(ctx context.Context, id string) ChainResult {
	q := JSString(id)
	return g.RunChain(ctx, Chain{
		Op: "archive_thread",
		Candidates: []Candidate{
			{Name: "registry.archive", Expr: fmt.Sprintf(`() => %s.archive(%s)`, lookupRegistry, q), Await: true},
			{Name: "container.archive", Expr: fmt.Sprintf(`() => %s.archive(%s)`, lookupContainer, q), Await: true},
			{Name: "legacy.archiveThread", Expr: fmt.Sprintf(`() => %s.archiveThread(%s)`, lookupLegacy, q), Await: true},
		},
	})
}

// TrashThread moves a synced thread to the trash.
func (g *Gateway) TrashThread(ctx context.Context, id string) ChainResult {
	q := JSString(id)
	return g.RunChain(ctx, Chain{
		Op: "trash_thread",
		Candidates: []Candidate{
			{Name: "registry.trash", Expr: fmt.Sprintf(`() => %s.trash(%s)`, lookupRegistry, q), Await: true},
			{Name: "container.moveToTrash", Expr: fmt.Sprintf(`() => %s.moveToTrash(%s)`, lookupContainer, q), Await: true},
			{Name: "legacy.deleteThread", Expr: fmt.Sprintf(`() => %s.deleteThread(%s)`, lookupLegacy, q), Await: true},
		},
	})
}

// ApplyLabel adds a label to a synced thread.
func (g *Gateway) ApplyLabel(ctx context.Context, id, label string) ChainResult {
	q, ql := JSString(id), JSString(label)
	return g.RunChain(ctx, Chain{
		Op: "apply_label",
		Candidates: []Candidate{
			{Name: "registry.addLabel", Expr: fmt.Sprintf(`() => %s.addLabel(%s, %s)`, lookupRegistry, q, ql), Await: true},
			{Name: "container.applyLabel", Expr: fmt.Sprintf(`() => %s.applyLabel(%s, %s)`, lookupContainer, q, ql), Await: true},
			{Name: "legacy.label", Expr: fmt.Sprintf(`() => %s.label(%s, %s)`, lookupLegacy, q, ql), Await: true},
		},
	})
}

// RemoveLabel strips a label from a synced thread.
func (g *Gateway) RemoveLabel(ctx context.Context, id, label string) ChainResult {
	q, ql := JSString(id), JSString(label)
	return g.RunChain(ctx, Chain{
		Op: "remove_label",
		Candidates: []Candidate{
			{Name: "registry.removeLabel", Expr: fmt.Sprintf(`() => %s.removeLabel(%s, %s)`, lookupRegistry, q, ql), Await: true},
			{Name: "container.clearLabel", Expr: fmt.Sprintf(`() => %s.clearLabel(%s, %s)`, lookupContainer, q, ql), Await: true},
			{Name: "legacy.unlabel", Expr: fmt.Sprintf(`() => %s.unlabel(%s, %s)`, lookupLegacy, q, ql), Await: true},
		},
	})
}

// IsThreadRead probes the in-memory thread model for its read flag. The flag
// lives on the thread model regardless of backend kind, so the probe is
// account-agnostic even though the mutation is not.
func (g *Gateway) IsThreadRead(ctx context.Context, id string) (bool, ChainResult) {
	q := JSString(id)
	res := g.RunChain(ctx, Chain{
		Op: "is_thread_read",
		Candidates: []Candidate{
			{Name: "registry.get.unread", Expr: fmt.Sprintf(`() => !%s.get(%s).unread`, lookupRegistry, q)},
			{Name: "container.get.unread", Expr: fmt.Sprintf(`() => !%s.get(%s).unread`, lookupContainer, q)},
			{Name: "legacy.isUnread", Expr: fmt.Sprintf(`() => !%s.isUnread(%s)`, lookupLegacy, q)},
		},
	})
	if !res.OK {
		return false, res
	}

	var read bool
	if err := res.Decode(&read); err != nil {
		res.OK = false
		res.Kind = KindRemoteThrew
		res.Detail = err.Error()
		return false, res
	}
	return read, res
}

// ReadOutcome reports a read-status mutation, including whether the
// already-read short circuit fired (no remote mutation issued).
type ReadOutcome struct {
	Success     bool      `json:"success"`
	AlreadyRead bool      `json:"already_read,omitempty"`
	Used        string    `json:"used,omitempty"`
	Kind        ErrorKind `json:"error,omitempty"`
	Detail      string    `json:"detail,omitempty"`
}

// MarkThreadRead marks a thread read for the active account kind. Marking an
// already-read thread is a reported success with no mutation issued, so the
// operation is idempotent. A failed probe does not block the mutation; the
// probe is an optimization, not a gate.
func (g *Gateway) MarkThreadRead(ctx context.Context, kind AccountKind, id string) ReadOutcome {
	if read, probe := g.IsThreadRead(ctx, id); probe.OK && read {
		return ReadOutcome{Success: true, AlreadyRead: true, Used: probe.Used}
	} else if probe.Kind == KindConnection {
		return ReadOutcome{Kind: probe.Kind, Detail: probe.Detail}
	}

	res := OpsFor(kind).MarkRead(ctx, g, id)
	return ReadOutcome{Success: res.OK, Used: res.Used, Kind: res.Kind, Detail: res.Detail}
}

// MarkThreadUnread marks a thread unread for the active account kind.
func (g *Gateway) MarkThreadUnread(ctx context.Context, kind AccountKind, id string) ReadOutcome {
	res := OpsFor(kind).MarkUnread(ctx, g, id)
	return ReadOutcome{Success: res.OK, Used: res.Used, Kind: res.Kind, Detail: res.Detail}
}

package mcp

import (
	"context"
	"fmt"
	"log"

	"mailpilot-mcp-server/internal/bulk"
	"mailpilot-mcp-server/internal/gateway"
)

// bulkSchema is shared by every multi-thread tool: the target list plus the
// confirmation and dry-run policy flags.
func bulkSchema(extra map[string]interface{}) map[string]interface{} {
	props := map[string]interface{}{
		"thread_ids": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": "Thread identifiers to act on, in order",
		},
		"confirm": map[string]interface{}{
			"type":        "boolean",
			"description": "Required when acting on more than one thread",
		},
		"dry_run": map[string]interface{}{
			"type":        "boolean",
			"description": "Preview the run without mutating anything",
		},
	}
	for k, v := range extra {
		props[k] = v
	}
	required := []string{"thread_ids"}
	for k := range extra {
		required = append(required, k)
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func bulkArgs(args map[string]interface{}) ([]string, bulk.Policy, error) {
	ids, err := getStringSliceArg(args, "thread_ids")
	if err != nil {
		return nil, bulk.Policy{}, err
	}
	policy := bulk.Policy{
		Confirm: getBoolArg(args, "confirm", false),
		DryRun:  getBoolArg(args, "dry_run", false),
	}
	return ids, policy, nil
}

// runBulk wraps the orchestrator for thread-scoped actions. Draft-shaped ids
// name compose-side entities, not inbox threads; they are rejected per item
// so the rest of the batch still runs. The confirmation gate error is already
// reflected in the aggregate, so it is not surfaced as a tool failure.
func runBulk(ctx context.Context, ids []string, policy bulk.Policy, action bulk.Action) (interface{}, error) {
	guarded := func(ctx context.Context, id string) error {
		if gateway.IsDraftThreadID(id) {
			return fmt.Errorf("%s is a draft key, not a thread id", id)
		}
		return action(ctx, id)
	}

	res, err := bulk.Run(ctx, ids, guarded, policy)
	if err != nil && err != bulk.ErrConfirmationRequired {
		return nil, err
	}
	return res, nil
}

// activeKind resolves the current account's backend kind for operations whose
// method sets differ per backend. Resolution failure falls back to the
// Google-style set rather than blocking the batch.
func (s *Server) activeKind(ctx context.Context) gateway.AccountKind {
	sw, err := s.accountSwitcher()
	if err != nil {
		return gateway.AccountGoogle
	}
	kind, err := sw.ActiveKind(ctx)
	if err != nil {
		log.Printf("account kind detection failed, assuming google: %v", err)
		return gateway.AccountGoogle
	}
	return kind
}

type ArchiveThreadsTool struct {
	srv *Server
}

func (t *ArchiveThreadsTool) Name() string { return "archive-threads" }
func (t *ArchiveThreadsTool) Description() string {
	return `Archive threads through the app's thread service, sequentially and in the
given order.

POLICY: more than one thread requires confirm=true; dry_run=true previews
without mutating. One thread's failure never aborts the rest; the aggregate
reports per-thread outcomes.

Returns: {total, success_count, fail_count, results: [{target, success, error?}]}`
}
func (t *ArchiveThreadsTool) InputSchema() map[string]interface{} {
	return bulkSchema(nil)
}
func (t *ArchiveThreadsTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	ids, policy, err := bulkArgs(args)
	if err != nil {
		return nil, err
	}
	gw, err := t.srv.gateway()
	if err != nil {
		return nil, err
	}
	return runBulk(ctx, ids, policy, func(ctx context.Context, id string) error {
		return gw.ArchiveThread(ctx, id).Err()
	})
}

type TrashThreadsTool struct {
	srv *Server
}

func (t *TrashThreadsTool) Name() string { return "trash-threads" }
func (t *TrashThreadsTool) Description() string {
	return `Move threads to trash, sequentially and in the given order.

POLICY: more than one thread requires confirm=true; dry_run=true previews
without mutating. Trash is reversible in the app itself (threads can be
restored there), but this server offers no untrash.

Returns: {total, success_count, fail_count, results: [{target, success, error?}]}`
}
func (t *TrashThreadsTool) InputSchema() map[string]interface{} {
	return bulkSchema(nil)
}
func (t *TrashThreadsTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	ids, policy, err := bulkArgs(args)
	if err != nil {
		return nil, err
	}
	gw, err := t.srv.gateway()
	if err != nil {
		return nil, err
	}
	return runBulk(ctx, ids, policy, func(ctx context.Context, id string) error {
		return gw.TrashThread(ctx, id).Err()
	})
}

type MarkReadThreadsTool struct {
	srv *Server
}

func (t *MarkReadThreadsTool) Name() string { return "mark-read-threads" }
func (t *MarkReadThreadsTool) Description() string {
	return `Mark threads as read, sequentially and in the given order.

IDEMPOTENT: an already-read thread is a success with no mutation issued.
The method set differs per account backend (Google vs Microsoft); the
current account's kind is detected automatically.

POLICY: more than one thread requires confirm=true; dry_run=true previews.

Returns: {total, success_count, fail_count, results: [{target, success, error?}]}`
}
func (t *MarkReadThreadsTool) InputSchema() map[string]interface{} {
	return bulkSchema(nil)
}
func (t *MarkReadThreadsTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	ids, policy, err := bulkArgs(args)
	if err != nil {
		return nil, err
	}
	gw, err := t.srv.gateway()
	if err != nil {
		return nil, err
	}
	kind := t.srv.activeKind(ctx)
	return runBulk(ctx, ids, policy, func(ctx context.Context, id string) error {
		out := gw.MarkThreadRead(ctx, kind, id)
		if !out.Success {
			return fmt.Errorf("%s: %s", out.Kind, out.Detail)
		}
		return nil
	})
}

type MarkUnreadThreadsTool struct {
	srv *Server
}

func (t *MarkUnreadThreadsTool) Name() string { return "mark-unread-threads" }
func (t *MarkUnreadThreadsTool) Description() string {
	return `Mark threads as unread, sequentially and in the given order.

POLICY: more than one thread requires confirm=true; dry_run=true previews.

Returns: {total, success_count, fail_count, results: [{target, success, error?}]}`
}
func (t *MarkUnreadThreadsTool) InputSchema() map[string]interface{} {
	return bulkSchema(nil)
}
func (t *MarkUnreadThreadsTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	ids, policy, err := bulkArgs(args)
	if err != nil {
		return nil, err
	}
	gw, err := t.srv.gateway()
	if err != nil {
		return nil, err
	}
	kind := t.srv.activeKind(ctx)
	return runBulk(ctx, ids, policy, func(ctx context.Context, id string) error {
		out := gw.MarkThreadUnread(ctx, kind, id)
		if !out.Success {
			return fmt.Errorf("%s: %s", out.Kind, out.Detail)
		}
		return nil
	})
}

type LabelThreadsTool struct {
	srv *Server
}

func (t *LabelThreadsTool) Name() string { return "label-threads" }
func (t *LabelThreadsTool) Description() string {
	return `Apply or remove a label on threads, sequentially and in the given order.

Set remove=true to take the label off instead of adding it.

POLICY: more than one thread requires confirm=true; dry_run=true previews.

Returns: {total, success_count, fail_count, results: [{target, success, error?}]}`
}
func (t *LabelThreadsTool) InputSchema() map[string]interface{} {
	schema := bulkSchema(map[string]interface{}{
		"label": map[string]interface{}{
			"type":        "string",
			"description": "Label name to apply or remove",
		},
	})
	schema["properties"].(map[string]interface{})["remove"] = map[string]interface{}{
		"type":        "boolean",
		"description": "Remove the label instead of applying it",
	}
	return schema
}
func (t *LabelThreadsTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	label := getStringArg(args, "label")
	if label == "" {
		return nil, fmt.Errorf("label is required")
	}
	remove := getBoolArg(args, "remove", false)

	ids, policy, err := bulkArgs(args)
	if err != nil {
		return nil, err
	}
	gw, err := t.srv.gateway()
	if err != nil {
		return nil, err
	}
	return runBulk(ctx, ids, policy, func(ctx context.Context, id string) error {
		if remove {
			return gw.RemoveLabel(ctx, id, label).Err()
		}
		return gw.ApplyLabel(ctx, id, label).Err()
	})
}

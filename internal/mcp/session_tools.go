package mcp

import (
	"context"
	"fmt"

	"mailpilot-mcp-server/internal/mailapp"
)

type ConnectAppTool struct {
	srv *Server
}

func (t *ConnectAppTool) Name() string { return "connect-app" }
func (t *ConnectAppTool) Description() string {
	return `Attach to the running mail client's debugging endpoint and locate its primary UI context.

USE THIS FIRST. Every other tool needs an attached session.

WHEN TO USE:
- At the start of any automation run
- After the mail client restarted (the old session is dead)

The mail client must be running with remote debugging enabled. If the
connection is refused, use launch-app to start it, then retry.

Returns: {session: {id, target_id, url, title}} for the attached UI context.`
}
func (t *ConnectAppTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
func (t *ConnectAppTool) Execute(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	info, err := t.srv.connect(ctx)
	if err != nil {
		if mailapp.IsConnectionRefused(err) {
			return nil, fmt.Errorf("mail client is not reachable at %s (is it running with remote debugging?): %w",
				t.srv.cfg.App.DebugURL(), err)
		}
		return nil, err
	}
	return map[string]interface{}{"session": info}, nil
}

type DisconnectAppTool struct {
	srv *Server
}

func (t *DisconnectAppTool) Name() string { return "disconnect-app" }
func (t *DisconnectAppTool) Description() string {
	return `Detach from the mail client. The client itself keeps running; only the
debugging attachment is dropped. Any open draft machine is abandoned.

Returns: {disconnected: true}`
}
func (t *DisconnectAppTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
func (t *DisconnectAppTool) Execute(_ context.Context, _ map[string]interface{}) (interface{}, error) {
	if err := t.srv.disconnect(); err != nil {
		return nil, err
	}
	return map[string]interface{}{"disconnected": true}, nil
}

type AppStatusTool struct {
	srv *Server
}

func (t *AppStatusTool) Name() string { return "app-status" }
func (t *AppStatusTool) Description() string {
	return `Report whether a session is attached and to what.

Returns: {attached, session?: {id, target_id, url, title}, draft_state?, draft_key?}`
}
func (t *AppStatusTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
func (t *AppStatusTool) Execute(_ context.Context, _ map[string]interface{}) (interface{}, error) {
	out := map[string]interface{}{"attached": false}

	sess, err := t.srv.session()
	if err != nil {
		return out, nil
	}
	out["attached"] = true
	out["session"] = sess.Meta()

	if c, err := t.srv.currentComposer(); err == nil {
		out["draft_state"] = string(c.State())
		if key := c.Key(); key != "" {
			out["draft_key"] = key
		}
	}
	return out, nil
}

type LaunchAppTool struct {
	srv *Server
}

func (t *LaunchAppTool) Name() string { return "launch-app" }
func (t *LaunchAppTool) Description() string {
	return `Start the mail client with remote debugging enabled, using the launch
command from configuration, and wait for the debugging endpoint to accept
connections.

WHEN TO USE:
- connect-app failed with a refused connection and you want the client started

After this succeeds, call connect-app to attach.

Returns: {launched: true, debug_url}`
}
func (t *LaunchAppTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
func (t *LaunchAppTool) Execute(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	if err := mailapp.Launch(ctx, t.srv.cfg.App); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"launched":  true,
		"debug_url": t.srv.cfg.App.DebugURL(),
	}, nil
}

type PressKeyTool struct {
	srv *Server
}

func (t *PressKeyTool) Name() string { return "press-key" }
func (t *PressKeyTool) Description() string {
	return `Dispatch a keyboard chord to the mail client's UI context.

This is the fallback path for actions the object graph does not expose.
Prefer the dedicated tools (archive-threads, send-draft, ...) which act on
the app's internal services directly; key dispatch depends on what is
focused and gives no structured result.

Chord syntax: modifiers joined with '+', e.g. "ctrl+enter", "cmd+shift+a", "escape".

Returns: {pressed: "<chord>"}`
}
func (t *PressKeyTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"chord": map[string]interface{}{
				"type":        "string",
				"description": "Key chord to dispatch, e.g. ctrl+enter",
			},
		},
		"required": []string{"chord"},
	}
}
func (t *PressKeyTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	chord := getStringArg(args, "chord")
	if chord == "" {
		return nil, fmt.Errorf("chord is required")
	}

	sess, err := t.srv.session()
	if err != nil {
		return nil, err
	}
	if err := sess.PressKey(ctx, chord); err != nil {
		return nil, err
	}
	return map[string]interface{}{"pressed": chord}, nil
}

type EvaluateJSTool struct {
	srv *Server
}

func (t *EvaluateJSTool) Name() string { return "eval-js" }
func (t *EvaluateJSTool) Description() string {
	return `Evaluate a JavaScript expression against the mail client's live object
graph and return the JSON-serialized result.

ESCAPE HATCH for surfaces no dedicated tool covers yet. The expression must
be a function, e.g. "() => window.MailApp.registry.lookup('service:threads')".
Failures come back classified (not_found, method_unavailable, remote_threw,
connection_error) rather than as raw engine noise.

Returns: {ok, value?, error?, detail?}`
}
func (t *EvaluateJSTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"expression": map[string]interface{}{
				"type":        "string",
				"description": "Function expression to evaluate",
			},
			"await": map[string]interface{}{
				"type":        "boolean",
				"description": "Await a returned promise before serializing (default false)",
			},
		},
		"required": []string{"expression"},
	}
}
func (t *EvaluateJSTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	expr := getStringArg(args, "expression")
	if expr == "" {
		return nil, fmt.Errorf("expression is required")
	}

	gw, err := t.srv.gateway()
	if err != nil {
		return nil, err
	}
	return gw.Call(ctx, expr, getBoolArg(args, "await", false)), nil
}

package mcp

import (
	"context"
	"fmt"

	"mailpilot-mcp-server/internal/gateway"
)

type ListAccountsTool struct {
	srv *Server
}

func (t *ListAccountsTool) Name() string { return "list-accounts" }
func (t *ListAccountsTool) Description() string {
	return `List the accounts the mail client is signed into.

Exactly one account is current; all thread and draft operations are scoped
to it. The kind field (google | microsoft) determines which method set the
thread tools use.

Returns: {accounts: [{email, is_current, kind}]}`
}
func (t *ListAccountsTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
func (t *ListAccountsTool) Execute(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	sw, err := t.srv.accountSwitcher()
	if err != nil {
		return nil, err
	}
	list, err := sw.List(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"accounts": list}, nil
}

type SwitchAccountTool struct {
	srv *Server
}

func (t *SwitchAccountTool) Name() string { return "switch-account" }
func (t *SwitchAccountTool) Description() string {
	return `Make the given account current. The app propagates a switch
asynchronously; this tool waits out the configured propagation delay before
returning, so subsequent reads see the new account's data.

Switching to the already-current account is a success with nothing issued
to the app and no delay.

Returns: {email, switched}`
}
func (t *SwitchAccountTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"email": map[string]interface{}{
				"type":        "string",
				"description": "Address of a signed-in account",
			},
		},
		"required": []string{"email"},
	}
}
func (t *SwitchAccountTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	email := getStringArg(args, "email")
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	sw, err := t.srv.accountSwitcher()
	if err != nil {
		return nil, err
	}
	res, err := sw.Switch(ctx, email)
	if err != nil {
		return nil, err
	}
	return res, nil
}

type DownloadAttachmentTool struct {
	srv *Server
}

func (t *DownloadAttachmentTool) Name() string { return "download-attachment" }
func (t *DownloadAttachmentTool) Description() string {
	return `Fetch one attachment's content through the current account's message
service. The method set differs per backend; the account kind is detected
automatically.

Returns: {data, size} with data base64-encoded.`
}
func (t *DownloadAttachmentTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"message_id": map[string]interface{}{
				"type":        "string",
				"description": "Message the attachment belongs to",
			},
			"attachment_id": map[string]interface{}{
				"type":        "string",
				"description": "Attachment identifier within the message",
			},
		},
		"required": []string{"message_id", "attachment_id"},
	}
}
func (t *DownloadAttachmentTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	messageID := getStringArg(args, "message_id")
	attachmentID := getStringArg(args, "attachment_id")
	if messageID == "" || attachmentID == "" {
		return nil, fmt.Errorf("message_id and attachment_id are required")
	}

	gw, err := t.srv.gateway()
	if err != nil {
		return nil, err
	}

	kind := t.srv.activeKind(ctx)
	att, res := gateway.OpsFor(kind).DownloadAttachment(ctx, gw, messageID, attachmentID)
	if !res.OK {
		return nil, res.Err()
	}
	return att, nil
}

type RecentNetworkTool struct {
	srv *Server
}

func (t *RecentNetworkTool) Name() string { return "recent-network" }
func (t *RecentNetworkTool) Description() string {
	return `Show recent backend exchanges of the mail client, annotated with the
thread, draft and account identifiers found in their URLs.

DIAGNOSTIC: use to confirm which entities a UI action actually touched,
or to correlate a failing bulk item with its backend response status.
Optionally filter by one entity value (thread id, draft key, email).

Returns: {observations: [{at, url, status, keys: [{type, value}]}]} newest first.`
}
func (t *RecentNetworkTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum observations to return (default 50)",
			},
			"key": map[string]interface{}{
				"type":        "string",
				"description": "Only observations referencing this entity value",
			},
		},
	}
}
func (t *RecentNetworkTool) Execute(_ context.Context, args map[string]interface{}) (interface{}, error) {
	w, err := t.srv.networkWatcher()
	if err != nil {
		return nil, err
	}

	if key := getStringArg(args, "key"); key != "" {
		return map[string]interface{}{"observations": w.ForKey(key)}, nil
	}
	limit := getIntArg(args, "limit", 50)
	return map[string]interface{}{"observations": w.Recent(limit)}, nil
}

package mcp

import (
	"context"
	"fmt"

	"mailpilot-mcp-server/internal/compose"
)

type OpenComposeTool struct {
	srv *Server
}

func (t *OpenComposeTool) Name() string { return "open-compose" }
func (t *OpenComposeTool) Description() string {
	return `Open a compose surface in the mail client and discover the draft key the
app assigned to it.

The app assigns draft keys itself; this tool waits for the new key to appear
and binds the draft machine to it. Opening replaces any previously open
draft machine.

VARIANTS: "new" (default), "reply", "reply_all", "forward". The reply and
forward variants require thread_id and pre-populate threading metadata,
recipients and subject.

Returns: {draft_key, state}`
}
func (t *OpenComposeTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"variant": map[string]interface{}{
				"type":        "string",
				"description": "new | reply | reply_all | forward (default: new)",
			},
			"thread_id": map[string]interface{}{
				"type":        "string",
				"description": "Source thread for reply/reply_all/forward",
			},
		},
	}
}
func (t *OpenComposeTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	variant := compose.Variant(getStringArg(args, "variant"))
	if variant == "" {
		variant = compose.VariantNew
	}
	threadID := getStringArg(args, "thread_id")
	if variant != compose.VariantNew && threadID == "" {
		return nil, fmt.Errorf("thread_id is required for the %s variant", variant)
	}

	c, err := t.srv.openComposer()
	if err != nil {
		return nil, err
	}
	key, err := c.Open(ctx, variant, threadID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"draft_key": key,
		"state":     string(c.State()),
	}, nil
}

// populateResult is the common payload for the field-population tools.
func populateResult(c *compose.Composer) map[string]interface{} {
	return map[string]interface{}{
		"draft_key": c.Key(),
		"state":     string(c.State()),
	}
}

type SetSubjectTool struct {
	srv *Server
}

func (t *SetSubjectTool) Name() string { return "set-subject" }
func (t *SetSubjectTool) Description() string {
	return `Set the subject of the open draft.

Field updates mutate the app's in-memory draft model only; use save-draft
to persist. A failed field update leaves fields already set intact, the
draft stays usable.

Returns: {draft_key, state}`
}
func (t *SetSubjectTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"subject": map[string]interface{}{"type": "string"},
		},
		"required": []string{"subject"},
	}
}
func (t *SetSubjectTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	c, err := t.srv.currentComposer()
	if err != nil {
		return nil, err
	}
	if err := c.SetSubject(ctx, getStringArg(args, "subject")); err != nil {
		return nil, err
	}
	return populateResult(c), nil
}

type SetBodyTool struct {
	srv *Server
}

func (t *SetBodyTool) Name() string { return "set-body" }
func (t *SetBodyTool) Description() string {
	return `Replace the HTML body of the open draft.

Returns: {draft_key, state}`
}
func (t *SetBodyTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"html": map[string]interface{}{
				"type":        "string",
				"description": "Body content as HTML",
			},
		},
		"required": []string{"html"},
	}
}
func (t *SetBodyTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	c, err := t.srv.currentComposer()
	if err != nil {
		return nil, err
	}
	if err := c.SetBody(ctx, getStringArg(args, "html")); err != nil {
		return nil, err
	}
	return populateResult(c), nil
}

type AddRecipientTool struct {
	srv *Server
}

func (t *AddRecipientTool) Name() string { return "add-recipient" }
func (t *AddRecipientTool) Description() string {
	return `Add one recipient address to the open draft.

FIELDS: "to" (default), "cc", "bcc". Call repeatedly for multiple recipients.

Returns: {draft_key, state}`
}
func (t *AddRecipientTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"address": map[string]interface{}{"type": "string"},
			"field": map[string]interface{}{
				"type":        "string",
				"description": "to | cc | bcc (default: to)",
			},
		},
		"required": []string{"address"},
	}
}
func (t *AddRecipientTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	address := getStringArg(args, "address")
	if address == "" {
		return nil, fmt.Errorf("address is required")
	}
	field := compose.RecipientField(getStringArg(args, "field"))
	if field == "" {
		field = compose.FieldTo
	}

	c, err := t.srv.currentComposer()
	if err != nil {
		return nil, err
	}
	if err := c.AddRecipient(ctx, field, address); err != nil {
		return nil, err
	}
	return populateResult(c), nil
}

type SetSenderTool struct {
	srv *Server
}

func (t *SetSenderTool) Name() string { return "set-sender" }
func (t *SetSenderTool) Description() string {
	return `Select the sending identity of the open draft. The address must belong
to one of the signed-in accounts (see list-accounts).

Returns: {draft_key, state}`
}
func (t *SetSenderTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"address": map[string]interface{}{"type": "string"},
		},
		"required": []string{"address"},
	}
}
func (t *SetSenderTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	address := getStringArg(args, "address")
	if address == "" {
		return nil, fmt.Errorf("address is required")
	}

	c, err := t.srv.currentComposer()
	if err != nil {
		return nil, err
	}
	if err := c.SetSender(ctx, address); err != nil {
		return nil, err
	}
	return populateResult(c), nil
}

type ReadDraftTool struct {
	srv *Server
}

func (t *ReadDraftTool) Name() string { return "read-draft" }
func (t *ReadDraftTool) Description() string {
	return `Read the open draft's current field values back from the app's model.

USE TO VERIFY population before save-draft or send-draft. Reflects the
in-memory model, not what is persisted.

Returns: {draft: {key, subject, body, to, cc, bcc, sender, dirty}, state}`
}
func (t *ReadDraftTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
func (t *ReadDraftTool) Execute(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	c, err := t.srv.currentComposer()
	if err != nil {
		return nil, err
	}
	d, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"draft": d,
		"state": string(c.State()),
	}, nil
}

type SaveDraftTool struct {
	srv *Server
}

func (t *SaveDraftTool) Name() string { return "save-draft" }
func (t *SaveDraftTool) Description() string {
	return `Persist the open draft through the app's own save path and wait out the
persistence settle interval.

The draft must have at least one populated field. After a successful save
the draft machine is terminal; open-compose starts a new one.

Returns: {draft_key, state: "saved"}`
}
func (t *SaveDraftTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
func (t *SaveDraftTool) Execute(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	c, err := t.srv.currentComposer()
	if err != nil {
		return nil, err
	}
	if err := c.Save(ctx); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"draft_key": c.Key(),
		"state":     string(c.State()),
	}, nil
}

type SendDraftTool struct {
	srv *Server
}

func (t *SendDraftTool) Name() string { return "send-draft" }
func (t *SendDraftTool) Description() string {
	return `Send the open draft. The app tears the draft down on send; the draft
machine becomes terminal and its key must not be referenced again.

The draft must have at least one populated field. There is no unsend.

Returns: {draft_key, state: "sent"}`
}
func (t *SendDraftTool) InputSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}
func (t *SendDraftTool) Execute(ctx context.Context, _ map[string]interface{}) (interface{}, error) {
	c, err := t.srv.currentComposer()
	if err != nil {
		return nil, err
	}
	if err := c.Send(ctx); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"draft_key": c.Key(),
		"state":     string(c.State()),
	}, nil
}

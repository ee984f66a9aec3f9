package compose

import (
	"fmt"

	"mailpilot-mcp-server/internal/gateway"
)

// Known ways to reach the compose controller across app versions, newest
// first. Every chain in this file splices one of these.
const (
	composeRegistry = `window.MailApp.registry.lookup('controller:compose')`
	composeDirect   = `window.App.composeController`
	composeLegacy   = `window.App.controllers.compose`
)

// Chains is the ordered capability table for every compose operation. One
// table per operation, walked by the gateway; call sites never probe method
// existence themselves.
var Chains chainSet

type chainSet struct{}

// ListKeys enumerates the compose controller's draft keys.
func (chainSet) ListKeys() gateway.Chain {
	return gateway.Chain{
		Op: "list_draft_keys",
		Candidates: []gateway.Candidate{
			{Name: "registry.draftKeys", Expr: fmt.Sprintf(`() => Object.keys(%s.drafts)`, composeRegistry)},
			{Name: "direct.draftKeys", Expr: fmt.Sprintf(`() => Object.keys(%s.drafts)`, composeDirect)},
			{Name: "legacy.openDrafts", Expr: fmt.Sprintf(`() => %s.openDrafts()`, composeLegacy)},
		},
	}
}

// openChain selects the open entry points for a variant. Reply-style
// variants carry the source thread so the app can pre-populate threading
// metadata, recipients and subject.
func openChain(variant Variant, threadID string) gateway.Chain {
	q := gateway.JSString(threadID)

	switch variant {
	case VariantReply:
		return gateway.Chain{
			Op: "open_reply",
			Candidates: []gateway.Candidate{
				{Name: "registry.openReply", Expr: fmt.Sprintf(`() => %s.openReply(%s, { all: false })`, composeRegistry, q), Await: true},
				{Name: "direct.reply", Expr: fmt.Sprintf(`() => %s.reply(%s)`, composeDirect, q), Await: true},
				{Name: "legacy.replyToThread", Expr: fmt.Sprintf(`() => %s.replyToThread(%s)`, composeLegacy, q), Await: true},
			},
		}
	case VariantReplyAll:
		return gateway.Chain{
			Op: "open_reply_all",
			Candidates: []gateway.Candidate{
				{Name: "registry.openReply", Expr: fmt.Sprintf(`() => %s.openReply(%s, { all: true })`, composeRegistry, q), Await: true},
				{Name: "direct.replyAll", Expr: fmt.Sprintf(`() => %s.replyAll(%s)`, composeDirect, q), Await: true},
				{Name: "legacy.replyAllToThread", Expr: fmt.Sprintf(`() => %s.replyAllToThread(%s)`, composeLegacy, q), Await: true},
			},
		}
	case VariantForward:
		return gateway.Chain{
			Op: "open_forward",
			Candidates: []gateway.Candidate{
				{Name: "registry.openForward", Expr: fmt.Sprintf(`() => %s.openForward(%s)`, composeRegistry, q), Await: true},
				{Name: "direct.forward", Expr: fmt.Sprintf(`() => %s.forward(%s)`, composeDirect, q), Await: true},
				{Name: "legacy.forwardThread", Expr: fmt.Sprintf(`() => %s.forwardThread(%s)`, composeLegacy, q), Await: true},
			},
		}
	default:
		return gateway.Chain{
			Op: "open_new",
			Candidates: []gateway.Candidate{
				{Name: "registry.openNew", Expr: fmt.Sprintf(`() => %s.openNew()`, composeRegistry), Await: true},
				{Name: "direct.compose", Expr: fmt.Sprintf(`() => %s.compose()`, composeDirect), Await: true},
				{Name: "legacy.newDraft", Expr: fmt.Sprintf(`() => %s.newDraft()`, composeLegacy), Await: true},
			},
		}
	}
}

// SetSubject updates the draft subject in the app's in-memory model. The
// model mutation is independent of backend persistence; Save handles that.
func (chainSet) SetSubject(key, subject string) gateway.Chain {
	qk, qs := gateway.JSString(key), gateway.JSString(subject)
	return gateway.Chain{
		Op: "set_subject",
		Candidates: []gateway.Candidate{
			{Name: "registry.draft.setSubject", Expr: fmt.Sprintf(`() => %s.drafts[%s].setSubject(%s)`, composeRegistry, qk, qs)},
			{Name: "direct.updateDraft", Expr: fmt.Sprintf(`() => %s.updateDraft(%s, { subject: %s })`, composeDirect, qk, qs)},
			{Name: "legacy.setField", Expr: fmt.Sprintf(`() => %s.setField(%s, 'subject', %s)`, composeLegacy, qk, qs)},
		},
	}
}

// SetBody replaces the draft body HTML.
func (chainSet) SetBody(key, html string) gateway.Chain {
	qk, qb := gateway.JSString(key), gateway.JSString(html)
	return gateway.Chain{
		Op: "set_body",
		Candidates: []gateway.Candidate{
			{Name: "registry.draft.setBodyHTML", Expr: fmt.Sprintf(`() => %s.drafts[%s].setBodyHTML(%s)`, composeRegistry, qk, qb)},
			{Name: "direct.updateDraft", Expr: fmt.Sprintf(`() => %s.updateDraft(%s, { body: %s })`, composeDirect, qk, qb)},
			{Name: "legacy.setField", Expr: fmt.Sprintf(`() => %s.setField(%s, 'body', %s)`, composeLegacy, qk, qb)},
		},
	}
}

// AddRecipient appends an address to the named recipient list.
func (chainSet) AddRecipient(key string, field RecipientField, address string) gateway.Chain {
	qk, qf, qa := gateway.JSString(key), gateway.JSString(string(field)), gateway.JSString(address)
	return gateway.Chain{
		Op: "add_recipient",
		Candidates: []gateway.Candidate{
			{Name: "registry.draft.addRecipient", Expr: fmt.Sprintf(`() => %s.drafts[%s].addRecipient(%s, %s)`, composeRegistry, qk, qf, qa)},
			{Name: "direct.addAddress", Expr: fmt.Sprintf(`() => %s.addAddress(%s, %s, %s)`, composeDirect, qk, qf, qa)},
			{Name: "legacy.pushRecipient", Expr: fmt.Sprintf(`() => %s.pushRecipient(%s, %s, %s)`, composeLegacy, qk, qf, qa)},
		},
	}
}

// SetSender selects the sending identity.
func (chainSet) SetSender(key, address string) gateway.Chain {
	qk, qa := gateway.JSString(key), gateway.JSString(address)
	return gateway.Chain{
		Op: "set_sender",
		Candidates: []gateway.Candidate{
			{Name: "registry.draft.setSender", Expr: fmt.Sprintf(`() => %s.drafts[%s].setSender(%s)`, composeRegistry, qk, qa)},
			{Name: "direct.updateDraft", Expr: fmt.Sprintf(`() => %s.updateDraft(%s, { sender: %s })`, composeDirect, qk, qa)},
		},
	}
}

// Snapshot reads the draft model back as plain data.
func (chainSet) Snapshot(key string) gateway.Chain {
	qk := gateway.JSString(key)
	pick := `(d) => ({ key: d.key, subject: d.subject || '', body: d.bodyHTML || d.body || '', to: d.to || [], cc: d.cc || [], bcc: d.bcc || [], sender: d.sender || '', dirty: !!d.dirty })`
	return gateway.Chain{
		Op: "snapshot_draft",
		Candidates: []gateway.Candidate{
			{Name: "registry.draft.toJSON", Expr: fmt.Sprintf(`() => (%s)(%s.drafts[%s])`, pick, composeRegistry, qk)},
			{Name: "direct.draftState", Expr: fmt.Sprintf(`() => (%s)(%s.draftState(%s))`, pick, composeDirect, qk)},
		},
	}
}

// Save persists the draft through the app's own save entry point.
func (chainSet) Save(key string) gateway.Chain {
	qk := gateway.JSString(key)
	return gateway.Chain{
		Op: "save_draft",
		Candidates: []gateway.Candidate{
			{Name: "registry.draft.save", Expr: fmt.Sprintf(`() => %s.drafts[%s].save()`, composeRegistry, qk), Await: true},
			{Name: "direct.saveDraft", Expr: fmt.Sprintf(`() => %s.saveDraft(%s)`, composeDirect, qk), Await: true},
			{Name: "legacy.persist", Expr: fmt.Sprintf(`() => %s.persist(%s)`, composeLegacy, qk), Await: true},
		},
	}
}

// Send transmits the draft. After this the app tears the draft down.
func (chainSet) Send(key string) gateway.Chain {
	qk := gateway.JSString(key)
	return gateway.Chain{
		Op: "send_draft",
		Candidates: []gateway.Candidate{
			{Name: "registry.draft.send", Expr: fmt.Sprintf(`() => %s.drafts[%s].send()`, composeRegistry, qk), Await: true},
			{Name: "direct.sendDraft", Expr: fmt.Sprintf(`() => %s.sendDraft(%s)`, composeDirect, qk), Await: true},
			{Name: "legacy.transmit", Expr: fmt.Sprintf(`() => %s.transmit(%s)`, composeLegacy, qk), Await: true},
		},
	}
}

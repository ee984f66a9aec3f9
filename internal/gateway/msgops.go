package gateway

import (
	"context"
	"fmt"
)

// AccountKind distinguishes the two backend method sets the app ships. The
// two share the caller-facing result shapes and nothing else.
type AccountKind string

const (
	AccountGoogle    AccountKind = "google"
	AccountMicrosoft AccountKind = "microsoft"
)

// Attachment is the normalized download result: base64 payload plus size.
// Both backend kinds produce exactly this shape.
type Attachment struct {
	Data string `json:"data"`
	Size int    `json:"size"`
}

// MessageOps is the operation contract shared by the two backend strategies.
// Selection happens at runtime by account kind; there is no shared behavior
// to inherit, only a shared shape, hence two flat strategies.
type MessageOps interface {
	MarkRead(ctx context.Context, g *Gateway, threadID string) ChainResult
	MarkUnread(ctx context.Context, g *Gateway, threadID string) ChainResult
	DownloadAttachment(ctx context.Context, g *Gateway, messageID, attachmentID string) (Attachment, ChainResult)
}

// OpsFor selects the strategy for the active backend kind. Unknown kinds get
// the Google-style set, the app's original and most common backend.
func OpsFor(kind AccountKind) MessageOps {
	if kind == AccountMicrosoft {
		return microsoftOps{}
	}
	return googleOps{}
}

// googleOps drives the Google-style backend service. Label mutation is the
// canonical read-state mechanism there; dedicated helpers came later.
type googleOps struct{}

const googleService = `window.MailApp.registry.lookup('service:gmail')`

func (googleOps) MarkRead(ctx context.Context, g *Gateway, threadID string) ChainResult {
	q := JSString(threadID)
	return g.RunChain(ctx, Chain{
		Op: "google_mark_read",
		Candidates: []Candidate{
			{Name: "gmail.markThreadRead", Expr: fmt.Sprintf(`() => %s.markThreadRead(%s)`, googleService, q), Await: true},
			{Name: "gmail.modifyLabels", Expr: fmt.Sprintf(`() => %s.modifyLabels(%s, [], ['UNREAD'])`, googleService, q), Await: true},
			{Name: "gmail.legacySetRead", Expr: fmt.Sprintf(`() => window.App.gmail.setThreadRead(%s, true)`, q), Await: true},
		},
	})
}

func (googleOps) MarkUnread(ctx context.Context, g *Gateway, threadID string) ChainResult {
	q := JSString(threadID)
	return g.RunChain(ctx, Chain{
		Op: "google_mark_unread",
		Candidates: []Candidate{
			{Name: "gmail.markThreadUnread", Expr: fmt.Sprintf(`() => %s.markThreadUnread(%s)`, googleService, q), Await: true},
			{Name: "gmail.modifyLabels", Expr: fmt.Sprintf(`() => %s.modifyLabels(%s, ['UNREAD'], [])`, googleService, q), Await: true},
			{Name: "gmail.legacySetRead", Expr: fmt.Sprintf(`() => window.App.gmail.setThreadRead(%s, false)`, q), Await: true},
		},
	})
}

func (googleOps) DownloadAttachment(ctx context.Context, g *Gateway, messageID, attachmentID string) (Attachment, ChainResult) {
	qm, qa := JSString(messageID), JSString(attachmentID)
	res := g.RunChain(ctx, Chain{
		Op: "google_download_attachment",
		Candidates: []Candidate{
			{
				Name:  "gmail.fetchAttachment",
				Expr:  fmt.Sprintf(`async () => { const a = await %s.fetchAttachment(%s, %s); return { data: a.base64, size: a.byteLength }; }`, googleService, qm, qa),
				Await: true,
			},
			{
				Name:  "gmail.attachments.get",
				Expr:  fmt.Sprintf(`async () => { const a = await %s.attachments.get(%s, %s); return { data: a.data, size: a.size }; }`, googleService, qm, qa),
				Await: true,
			},
		},
	})
	return decodeAttachment(res)
}

// microsoftOps drives the Microsoft-style backend service. Exchange models
// carry an isRead flag per message, not thread labels.
type microsoftOps struct{}

const microsoftService = `window.MailApp.registry.lookup('service:outlook')`

func (microsoftOps) MarkRead(ctx context.Context, g *Gateway, threadID string) ChainResult {
	q := JSString(threadID)
	return g.RunChain(ctx, Chain{
		Op: "microsoft_mark_read",
		Candidates: []Candidate{
			{Name: "outlook.setIsRead", Expr: fmt.Sprintf(`() => %s.setIsRead(%s, true)`, microsoftService, q), Await: true},
			{Name: "outlook.updateReadFlag", Expr: fmt.Sprintf(`() => %s.updateReadFlag(%s, true)`, microsoftService, q), Await: true},
			{Name: "exchange.markConversationRead", Expr: fmt.Sprintf(`() => window.App.exchange.markConversationRead(%s)`, q), Await: true},
		},
	})
}

func (microsoftOps) MarkUnread(ctx context.Context, g *Gateway, threadID string) ChainResult {
	q := JSString(threadID)
	return g.RunChain(ctx, Chain{
		Op: "microsoft_mark_unread",
		Candidates: []Candidate{
			{Name: "outlook.setIsRead", Expr: fmt.Sprintf(`() => %s.setIsRead(%s, false)`, microsoftService, q), Await: true},
			{Name: "outlook.updateReadFlag", Expr: fmt.Sprintf(`() => %s.updateReadFlag(%s, false)`, microsoftService, q), Await: true},
			{Name: "exchange.markConversationUnread", Expr: fmt.Sprintf(`() => window.App.exchange.markConversationUnread(%s)`, q), Await: true},
		},
	})
}

func (microsoftOps) DownloadAttachment(ctx context.Context, g *Gateway, messageID, attachmentID string) (Attachment, ChainResult) {
	qm, qa := JSString(messageID), JSString(attachmentID)
	res := g.RunChain(ctx, Chain{
		Op: "microsoft_download_attachment",
		Candidates: []Candidate{
			{
				Name:  "outlook.getAttachmentContent",
				Expr:  fmt.Sprintf(`async () => { const a = await %s.getAttachmentContent(%s, %s); return { data: a.contentBytes, size: a.size }; }`, microsoftService, qm, qa),
				Await: true,
			},
			{
				Name:  "exchange.downloadAttachment",
				Expr:  fmt.Sprintf(`async () => { const a = await window.App.exchange.downloadAttachment(%s, %s); return { data: a.base64, size: a.length }; }`, qm, qa),
				Await: true,
			},
		},
	})
	return decodeAttachment(res)
}

func decodeAttachment(res ChainResult) (Attachment, ChainResult) {
	if !res.OK {
		return Attachment{}, res
	}
	var att Attachment
	if err := res.Decode(&att); err != nil {
		res.OK = false
		res.Kind = KindRemoteThrew
		res.Detail = fmt.Sprintf("attachment payload had unexpected shape: %v", err)
		return Attachment{}, res
	}
	return att, res
}

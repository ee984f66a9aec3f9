package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestIsDraftThreadID(t *testing.T) {
	if !IsDraftThreadID("draft-42") {
		t.Error("expected draft prefix to be recognized")
	}
	if IsDraftThreadID("thread-f:1780000000") {
		t.Error("ordinary thread id must not read as draft")
	}
	if IsDraftThreadID("") {
		t.Error("empty id must not read as draft")
	}
}

func TestMarkThreadReadShortCircuitsWhenAlreadyRead(t *testing.T) {
	fake := &fakeEvaluator{respond: func(expr string) (json.RawMessage, error) {
		if strings.Contains(expr, ".unread") {
			// Probe: !unread == true, the thread is already read.
			return json.RawMessage(`true`), nil
		}
		t.Errorf("unexpected remote mutation: %s", expr)
		return nil, errors.New("should not run")
	}}
	g := New(fake)

	out := g.MarkThreadRead(context.Background(), AccountGoogle, "thread-1")
	if !out.Success {
		t.Fatalf("expected success, got %s: %s", out.Kind, out.Detail)
	}
	if !out.AlreadyRead {
		t.Error("expected the already-read short circuit to fire")
	}
	if len(fake.calls) != 1 {
		t.Errorf("expected only the probe call, got %d calls", len(fake.calls))
	}

	// Second invocation behaves identically: idempotent, no mutation.
	out = g.MarkThreadRead(context.Background(), AccountGoogle, "thread-1")
	if !out.Success || !out.AlreadyRead {
		t.Error("second mark-read of a read thread must also be a no-op success")
	}
}

func TestMarkThreadReadMutatesWhenUnread(t *testing.T) {
	var mutated bool
	fake := &fakeEvaluator{respond: func(expr string) (json.RawMessage, error) {
		if strings.Contains(expr, ".unread") {
			return json.RawMessage(`false`), nil // thread is unread
		}
		if strings.Contains(expr, "markThreadRead") {
			mutated = true
			return json.RawMessage(`null`), nil
		}
		return nil, errors.New("ReferenceError: other is not defined")
	}}
	g := New(fake)

	out := g.MarkThreadRead(context.Background(), AccountGoogle, "thread-2")
	if !out.Success {
		t.Fatalf("expected success, got %s: %s", out.Kind, out.Detail)
	}
	if out.AlreadyRead {
		t.Error("short circuit must not fire for an unread thread")
	}
	if !mutated {
		t.Error("expected the mutation chain to run")
	}
	if out.Used != "gmail.markThreadRead" {
		t.Errorf("expected primary entry point to serve, got %q", out.Used)
	}
}

func TestMarkThreadReadProceedsWhenProbeUnavailable(t *testing.T) {
	fake := &fakeEvaluator{respond: func(expr string) (json.RawMessage, error) {
		if strings.Contains(expr, ".unread") || strings.Contains(expr, "isUnread") {
			return nil, errors.New("ReferenceError: MailApp is not defined")
		}
		return json.RawMessage(`null`), nil
	}}
	g := New(fake)

	out := g.MarkThreadRead(context.Background(), AccountMicrosoft, "thread-3")
	if !out.Success {
		t.Fatalf("probe failure must not block the mutation: %s: %s", out.Kind, out.Detail)
	}
}

func TestMarkThreadReadFallbackEntryPoint(t *testing.T) {
	fake := &fakeEvaluator{respond: func(expr string) (json.RawMessage, error) {
		switch {
		case strings.Contains(expr, ".unread"), strings.Contains(expr, "isUnread"):
			return json.RawMessage(`false`), nil
		case strings.Contains(expr, "markThreadRead"):
			return nil, errors.New("TypeError: svc.markThreadRead is not a function")
		case strings.Contains(expr, "modifyLabels"):
			return json.RawMessage(`null`), nil
		}
		return nil, errors.New("ReferenceError: unexpected")
	}}
	g := New(fake)

	out := g.MarkThreadRead(context.Background(), AccountGoogle, "thread-4")
	if !out.Success {
		t.Fatalf("expected fallback success, got %s: %s", out.Kind, out.Detail)
	}
	if out.Used != "gmail.modifyLabels" {
		t.Errorf("expected secondary entry point recorded, got %q", out.Used)
	}
}

func TestAccountBranchingDisjointMethodSets(t *testing.T) {
	payload := json.RawMessage(`{"data":"QUJD","size":3}`)

	run := func(kind AccountKind) (Attachment, []string) {
		fake := &fakeEvaluator{respond: func(expr string) (json.RawMessage, error) {
			return payload, nil
		}}
		g := New(fake)
		att, res := OpsFor(kind).DownloadAttachment(context.Background(), g, "msg-1", "att-1")
		if !res.OK {
			t.Fatalf("%s download failed: %s", kind, res.Detail)
		}
		return att, fake.calls
	}

	googleAtt, googleCalls := run(AccountGoogle)
	msAtt, msCalls := run(AccountMicrosoft)

	// Identical caller-facing shape.
	if googleAtt != msAtt {
		t.Errorf("expected identical results, got %+v vs %+v", googleAtt, msAtt)
	}
	if googleAtt.Data != "QUJD" || googleAtt.Size != 3 {
		t.Errorf("unexpected attachment: %+v", googleAtt)
	}

	// Wholly disjoint method sets underneath.
	for _, gc := range googleCalls {
		for _, mc := range msCalls {
			if gc == mc {
				t.Errorf("google and microsoft strategies share expression: %s", gc)
			}
		}
	}
	if !strings.Contains(googleCalls[0], "gmail") {
		t.Errorf("google strategy should hit the gmail service: %s", googleCalls[0])
	}
	if !strings.Contains(msCalls[0], "outlook") {
		t.Errorf("microsoft strategy should hit the outlook service: %s", msCalls[0])
	}
}

func TestDownloadAttachmentBadShape(t *testing.T) {
	fake := &fakeEvaluator{respond: func(string) (json.RawMessage, error) {
		return json.RawMessage(`"just a string"`), nil
	}}
	g := New(fake)

	_, res := OpsFor(AccountGoogle).DownloadAttachment(context.Background(), g, "m", "a")
	if res.OK {
		t.Fatal("expected shape mismatch to fail")
	}
	if res.Kind != KindRemoteThrew {
		t.Errorf("expected RemoteThrew for malformed payload, got %s", res.Kind)
	}
}

func TestOpsForDefaultsToGoogle(t *testing.T) {
	if _, ok := OpsFor("").(googleOps); !ok {
		t.Error("unknown kind should select the google strategy")
	}
	if _, ok := OpsFor(AccountMicrosoft).(microsoftOps); !ok {
		t.Error("microsoft kind should select the microsoft strategy")
	}
}

func TestArchiveThreadSurfacesAppRejection(t *testing.T) {
	fake := &fakeEvaluator{respond: func(string) (json.RawMessage, error) {
		return nil, errors.New("eval js error: Error: thread is locked by sync")
	}}
	g := New(fake)

	res := g.ArchiveThread(context.Background(), "thread-9")
	if res.OK {
		t.Fatal("expected failure")
	}
	if res.Kind != KindRemoteThrew {
		t.Errorf("expected RemoteThrew, got %s", res.Kind)
	}
	if !strings.Contains(res.Detail, "locked by sync") {
		t.Errorf("app message must surface: %s", res.Detail)
	}
}

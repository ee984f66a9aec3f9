package compose

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"mailpilot-mcp-server/internal/gateway"
)

// scriptedEval routes expressions to handlers by substring, closest thing to
// the real compose controller without a live app.
type scriptedEval struct {
	calls   []string
	handler func(expr string) (json.RawMessage, error)
}

func (s *scriptedEval) Eval(_ context.Context, expr string, _ bool) (json.RawMessage, error) {
	s.calls = append(s.calls, expr)
	return s.handler(expr)
}

func fastTiming() Timing {
	return Timing{OpenSettle: 100 * time.Millisecond, OpenPoll: 2 * time.Millisecond, SaveSettle: time.Millisecond}
}

func keysJSON(keys ...string) json.RawMessage {
	b, _ := json.Marshal(keys)
	return b
}

// openedComposer builds a composer whose Open has already succeeded against
// a scripted app that assigned the given key.
func openedComposer(t *testing.T, assigned string, handler func(expr string) (json.RawMessage, error)) (*Composer, *scriptedEval) {
	t.Helper()

	opened := false
	fake := &scriptedEval{}
	fake.handler = func(expr string) (json.RawMessage, error) {
		switch {
		case strings.Contains(expr, "Object.keys"):
			if opened {
				return keysJSON("draft-1", assigned), nil
			}
			return keysJSON("draft-1"), nil
		case strings.Contains(expr, "openNew"):
			opened = true
			return json.RawMessage(`null`), nil
		default:
			if handler != nil {
				return handler(expr)
			}
			return json.RawMessage(`null`), nil
		}
	}

	c := NewComposer(gateway.New(fake), fastTiming())
	key, err := c.Open(context.Background(), VariantNew, "")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if key != assigned {
		t.Fatalf("expected discovered key %q, got %q", assigned, key)
	}
	return c, fake
}

func TestOpenDiscoversAssignedKey(t *testing.T) {
	c, _ := openedComposer(t, "draft-2", nil)
	if c.State() != StateOpen {
		t.Errorf("expected Open state, got %s", c.State())
	}
	if c.Key() != "draft-2" {
		t.Errorf("expected key draft-2, got %q", c.Key())
	}
}

func TestOpenFailsWhenNoKeyAppears(t *testing.T) {
	fake := &scriptedEval{handler: func(expr string) (json.RawMessage, error) {
		if strings.Contains(expr, "Object.keys") {
			return keysJSON("draft-1"), nil // nothing new ever appears
		}
		return json.RawMessage(`null`), nil
	}}

	c := NewComposer(gateway.New(fake), Timing{OpenSettle: 20 * time.Millisecond, OpenPoll: 2 * time.Millisecond})
	_, err := c.Open(context.Background(), VariantNew, "")
	if !errors.Is(err, ErrComposeOpenFailed) {
		t.Fatalf("expected ErrComposeOpenFailed, got %v", err)
	}
	if c.State() != StateFailed {
		t.Errorf("expected Failed state, got %s", c.State())
	}
}

func TestOpenIsSingleUse(t *testing.T) {
	c, _ := openedComposer(t, "draft-2", nil)
	if _, err := c.Open(context.Background(), VariantNew, ""); !errors.Is(err, ErrBadTransition) {
		t.Errorf("expected ErrBadTransition on second open, got %v", err)
	}
}

func TestReplyVariantCarriesThread(t *testing.T) {
	opened := false
	fake := &scriptedEval{}
	fake.handler = func(expr string) (json.RawMessage, error) {
		switch {
		case strings.Contains(expr, "Object.keys"):
			if opened {
				return keysJSON("draft-7"), nil
			}
			return keysJSON(), nil
		case strings.Contains(expr, "openReply"):
			if !strings.Contains(expr, `"thread-f:123"`) {
				t.Errorf("reply open must carry the source thread: %s", expr)
			}
			opened = true
			return json.RawMessage(`null`), nil
		}
		return nil, errors.New("ReferenceError: unexpected")
	}

	c := NewComposer(gateway.New(fake), fastTiming())
	key, err := c.Open(context.Background(), VariantReply, "thread-f:123")
	if err != nil {
		t.Fatalf("open reply: %v", err)
	}
	if key != "draft-7" {
		t.Errorf("expected draft-7, got %q", key)
	}
}

func TestNewestKeyTieBreak(t *testing.T) {
	tests := []struct {
		name string
		keys []string
		want string
	}{
		{"empty", nil, ""},
		{"single", []string{"draft-3"}, "draft-3"},
		{"numeric ordering beats lexical", []string{"draft-3", "draft-12"}, "draft-12"},
		{"ignores foreign keys", []string{"draft-2", "template-9"}, "draft-2"},
		{"numeric beats non-numeric", []string{"draft-zz", "draft-4"}, "draft-4"},
		{"all non-numeric falls back to lexical", []string{"draft-aa", "draft-zz"}, "draft-zz"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := newestKey(tc.keys); got != tc.want {
				t.Errorf("newestKey(%v) = %q, want %q", tc.keys, got, tc.want)
			}
		})
	}
}

func TestPopulateBeforeOpenRejected(t *testing.T) {
	c := NewComposer(gateway.New(&scriptedEval{handler: func(string) (json.RawMessage, error) {
		return json.RawMessage(`null`), nil
	}}), fastTiming())

	if err := c.SetSubject(context.Background(), "hello"); !errors.Is(err, ErrBadTransition) {
		t.Errorf("expected ErrBadTransition, got %v", err)
	}
}

func TestPartialPopulationIsPreserved(t *testing.T) {
	c, _ := openedComposer(t, "draft-2", func(expr string) (json.RawMessage, error) {
		if strings.Contains(expr, "body") || strings.Contains(expr, "Body") {
			return nil, errors.New("eval js error: Error: editor not ready")
		}
		return json.RawMessage(`null`), nil
	})

	if err := c.SetSubject(context.Background(), "Quarterly report"); err != nil {
		t.Fatalf("set subject: %v", err)
	}
	if c.State() != StatePopulated {
		t.Fatalf("expected Populated after subject, got %s", c.State())
	}

	// Body fails; the subject stays set and the machine stays usable. The
	// caller decides whether to proceed. No rollback.
	err := c.SetBody(context.Background(), "<p>hi</p>")
	if err == nil {
		t.Fatal("expected body failure")
	}
	if c.State() != StatePopulated {
		t.Errorf("field failure must not abort the draft, state: %s", c.State())
	}
	if err := c.SetSender(context.Background(), "me@example.com"); err != nil {
		t.Errorf("machine must remain usable after a field failure: %v", err)
	}
}

func TestAddRecipientValidatesField(t *testing.T) {
	c, _ := openedComposer(t, "draft-2", nil)
	if err := c.AddRecipient(context.Background(), "reply-to", "x@example.com"); err == nil {
		t.Error("expected unknown recipient field to be rejected")
	}
	if err := c.AddRecipient(context.Background(), FieldBCC, "x@example.com"); err != nil {
		t.Errorf("bcc should be accepted: %v", err)
	}
}

func TestRoundTripSnapshotReflectsPopulation(t *testing.T) {
	const subject = "Quarterly report"
	const body = "<p>Numbers attached.</p>"

	var gotSubject, gotBody bool
	c, _ := openedComposer(t, "draft-2", func(expr string) (json.RawMessage, error) {
		switch {
		case strings.Contains(expr, "setSubject"):
			gotSubject = strings.Contains(expr, subject)
			return json.RawMessage(`null`), nil
		case strings.Contains(expr, "setBodyHTML"):
			gotBody = strings.Contains(expr, "Numbers attached")
			return json.RawMessage(`null`), nil
		case strings.Contains(expr, "key: d.key"):
			snap, _ := json.Marshal(Draft{Key: "draft-2", Subject: subject, Body: body, To: []string{"a@example.com"}, Dirty: true})
			return snap, nil
		}
		return json.RawMessage(`null`), nil
	})

	if err := c.SetSubject(context.Background(), subject); err != nil {
		t.Fatal(err)
	}
	if err := c.SetBody(context.Background(), body); err != nil {
		t.Fatal(err)
	}
	if err := c.AddRecipient(context.Background(), FieldTo, "a@example.com"); err != nil {
		t.Fatal(err)
	}
	if !gotSubject || !gotBody {
		t.Error("population expressions must carry the field values")
	}

	// Re-read before save: the in-memory model reflects S and B exactly.
	d, err := c.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if d.Subject != subject || d.Body != body {
		t.Errorf("round trip mismatch: %+v", d)
	}
	if !d.Dirty {
		t.Error("unsaved populated draft should be dirty")
	}
}

func TestSaveRequiresPopulated(t *testing.T) {
	c, _ := openedComposer(t, "draft-2", nil)
	if err := c.Save(context.Background()); !errors.Is(err, ErrBadTransition) {
		t.Errorf("expected ErrBadTransition for save from Open, got %v", err)
	}
}

func TestSaveSettlesThenTerminal(t *testing.T) {
	c, _ := openedComposer(t, "draft-2", nil)
	if err := c.SetSubject(context.Background(), "s"); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if err := c.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if elapsed := time.Since(start); elapsed < time.Millisecond {
		t.Error("save must wait the settle interval before reporting durable")
	}
	if c.State() != StateSaved {
		t.Errorf("expected Saved, got %s", c.State())
	}

	// Saved is terminal for mutation.
	if err := c.SetSubject(context.Background(), "again"); !errors.Is(err, ErrBadTransition) {
		t.Errorf("expected ErrBadTransition after save, got %v", err)
	}
}

func TestSendIsTerminal(t *testing.T) {
	c, fake := openedComposer(t, "draft-2", nil)
	if err := c.SetSubject(context.Background(), "s"); err != nil {
		t.Fatal(err)
	}
	if err := c.Send(context.Background()); err != nil {
		t.Fatalf("send: %v", err)
	}
	if c.State() != StateSent {
		t.Errorf("expected Sent, got %s", c.State())
	}

	before := len(fake.calls)
	if err := c.SetBody(context.Background(), "x"); !errors.Is(err, ErrBadTransition) {
		t.Errorf("expected ErrBadTransition after send, got %v", err)
	}
	if _, err := c.Snapshot(context.Background()); !errors.Is(err, ErrBadTransition) {
		t.Errorf("expected ErrBadTransition for snapshot after send, got %v", err)
	}
	if len(fake.calls) != before {
		t.Error("no remote call may target a torn-down draft key")
	}
}

func TestConnectionFailureEntersFailed(t *testing.T) {
	c, fake := openedComposer(t, "draft-2", nil)
	fake.handler = func(string) (json.RawMessage, error) {
		return nil, errors.New("websocket: close 1006 (abnormal closure)")
	}

	if err := c.SetSubject(context.Background(), "s"); err == nil {
		t.Fatal("expected failure")
	}
	if c.State() != StateFailed {
		t.Errorf("connection failure must be terminal, got %s", c.State())
	}
	if err := c.SetBody(context.Background(), "x"); !errors.Is(err, ErrBadTransition) {
		t.Errorf("expected ErrBadTransition from Failed, got %v", err)
	}
}

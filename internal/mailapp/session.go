package mailapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"mailpilot-mcp-server/internal/config"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
)

var (
	// ErrSessionClosed is returned by every Session method after Disconnect.
	// A closed session must fail loudly, never no-op.
	ErrSessionClosed = errors.New("session disconnected")
	// ErrTargetNotFound is returned when the debugging endpoint exposes no
	// page target matching the app origin.
	ErrTargetNotFound = errors.New("no matching app target")
)

// Info describes the public metadata for an attached session.
type Info struct {
	ID         string    `json:"id"`
	TargetID   string    `json:"target_id"`
	URL        string    `json:"url"`
	Title      string    `json:"title,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
}

// NetworkEvent is one observed backend exchange of the mail client.
type NetworkEvent struct {
	RequestID string    `json:"request_id"`
	URL       string    `json:"url"`
	Status    int       `json:"status"`
	MIMEType  string    `json:"mime_type,omitempty"`
	At        time.Time `json:"at"`
}

// Session is an open channel to the mail client's primary UI context.
// It owns three capabilities: expression evaluation, keyboard input dispatch
// (fallback path only), and network-event observation. All use is sequential;
// the app's internal state (current draft, current account) is one shared
// frame of reference.
type Session struct {
	ID string

	cfg    config.AppConfig
	mu     sync.Mutex
	closed bool

	browser *rod.Browser
	page    *rod.Page
	cancel  context.CancelFunc

	meta Info
}

// Connect attaches to the mail client's debugging endpoint and binds to its
// primary UI context. Discovery only: when the endpoint is unreachable the
// caller decides whether to Launch the app and retry.
func Connect(ctx context.Context, cfg config.AppConfig) (*Session, error) {
	controlURL, err := launcher.ResolveURL(cfg.DebugURL())
	if err != nil {
		return nil, fmt.Errorf("resolve debugger endpoint %s: %w", cfg.DebugURL(), err)
	}

	sessCtx, cancel := context.WithCancel(ctx)
	browser := rod.New().ControlURL(controlURL).Context(sessCtx)
	if err := browser.Connect(); err != nil {
		cancel()
		return nil, fmt.Errorf("connect to app debugger: %w", err)
	}

	target, err := locateTarget(browser, cfg.Origin)
	if err != nil {
		cancel()
		return nil, err
	}

	page, err := browser.PageFromTarget(target.TargetID)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("attach to target %s: %w", target.TargetID, err)
	}

	now := time.Now()
	s := &Session{
		ID:      uuid.NewString(),
		cfg:     cfg,
		browser: browser,
		page:    page,
		cancel:  cancel,
		meta: Info{
			TargetID:   string(target.TargetID),
			URL:        target.URL,
			Title:      target.Title,
			CreatedAt:  now,
			LastActive: now,
		},
	}
	s.meta.ID = s.ID

	log.Printf("[session:%s] attached to %s (%s)", s.ID, target.URL, target.TargetID)
	return s, nil
}

// locateTarget selects the first page target whose URL starts with the app
// origin. Background pages, workers and service workers are excluded even
// when their URL carries the same origin: matching one of those would point
// every later evaluation at the wrong heap.
func locateTarget(browser *rod.Browser, origin string) (*proto.TargetTargetInfo, error) {
	res, err := proto.TargetGetTargets{}.Call(browser)
	if err != nil {
		return nil, fmt.Errorf("enumerate targets: %w", err)
	}

	for _, info := range res.TargetInfos {
		if info.Type != "page" {
			continue
		}
		if !strings.HasPrefix(info.URL, origin) {
			continue
		}
		return info, nil
	}

	return nil, fmt.Errorf("%w: no page target with origin %s among %d targets",
		ErrTargetNotFound, origin, len(res.TargetInfos))
}

// Eval executes a JS function literal against the UI context and returns the
// marshaled result. await controls whether a returned promise is resolved
// remotely before marshaling. This is the session's raw evaluation channel;
// callers go through the gateway, which classifies failures.
func (s *Session) Eval(ctx context.Context, expr string, await bool) (json.RawMessage, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSessionClosed
	}
	page := s.page
	s.meta.LastActive = time.Now()
	s.mu.Unlock()

	res, err := page.Context(ctx).Timeout(s.cfg.GetEvalTimeout()).Evaluate(&rod.EvalOptions{
		JS:           expr,
		ByValue:      true,
		AwaitPromise: await,
	})
	if err != nil {
		return nil, err
	}
	if res == nil || res.Value.Nil() {
		return json.RawMessage("null"), nil
	}

	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal eval result: %w", err)
	}
	return raw, nil
}

// PressKey dispatches a keyboard chord to the app window. Fallback mechanism
// for the few actions with no usable internal entry point; never the primary
// path.
func (s *Session) PressKey(ctx context.Context, chord string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	page := s.page
	s.meta.LastActive = time.Now()
	s.mu.Unlock()

	keys, err := parseChord(chord)
	if err != nil {
		return err
	}

	actions := page.Context(ctx).KeyActions()
	for _, k := range keys[:len(keys)-1] {
		actions = actions.Press(k)
	}
	actions = actions.Type(keys[len(keys)-1])
	return actions.Do()
}

// parseChord maps chords like "enter", "escape" or "ctrl+enter" to rod keys.
func parseChord(chord string) ([]input.Key, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(chord)), "+")
	keys := make([]input.Key, 0, len(parts))
	for _, p := range parts {
		switch p {
		case "ctrl", "control":
			keys = append(keys, input.ControlLeft)
		case "cmd", "meta":
			keys = append(keys, input.MetaLeft)
		case "shift":
			keys = append(keys, input.ShiftLeft)
		case "alt":
			keys = append(keys, input.AltLeft)
		case "enter", "return":
			keys = append(keys, input.Enter)
		case "escape", "esc":
			keys = append(keys, input.Escape)
		case "tab":
			keys = append(keys, input.Tab)
		case "backspace":
			keys = append(keys, input.Backspace)
		default:
			if len(p) == 1 {
				keys = append(keys, input.Key(p[0]))
				continue
			}
			return nil, fmt.Errorf("unsupported key %q in chord %q", p, chord)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("empty key chord")
	}
	return keys, nil
}

// ObserveNetwork streams backend exchanges of the UI context to fn until ctx
// is cancelled or the session disconnects. Runs on its own goroutine.
func (s *Session) ObserveNetwork(ctx context.Context, fn func(NetworkEvent)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	page := s.page
	s.mu.Unlock()

	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		return fmt.Errorf("enable network events: %w", err)
	}

	wait := page.Context(ctx).EachEvent(func(ev *proto.NetworkResponseReceived) {
		if ev.Response == nil {
			return
		}
		fn(NetworkEvent{
			RequestID: string(ev.RequestID),
			URL:       ev.Response.URL,
			Status:    ev.Response.Status,
			MIMEType:  ev.Response.MIMEType,
			At:        time.Now(),
		})
	})
	go wait()
	return nil
}

// Meta returns a copy of the session metadata.
func (s *Session) Meta() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

// Closed reports whether Disconnect has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Disconnect releases the debugging channel. The mail client itself keeps
// running; only our client connection is dropped. A second Disconnect fails
// with ErrSessionClosed like every other post-disconnect call.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
	}
	log.Printf("[session:%s] disconnected", s.ID)
	return nil
}

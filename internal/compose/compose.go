package compose

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"mailpilot-mcp-server/internal/gateway"
)

// State of the draft lifecycle. Saved, Sent and Failed are terminal; a new
// draft always means a new Composer with a freshly discovered key.
type State string

const (
	StateClosed    State = "closed"
	StateOpening   State = "opening"
	StateOpen      State = "open"
	StatePopulated State = "populated"
	StateSaved     State = "saved"
	StateSent      State = "sent"
	StateFailed    State = "failed"
)

// Variant selects how the compose surface opens. The app pre-populates
// threading metadata, recipients and subject differently per variant.
type Variant string

const (
	VariantNew      Variant = "new"
	VariantReply    Variant = "reply"
	VariantReplyAll Variant = "reply_all"
	VariantForward  Variant = "forward"
)

// RecipientField names a recipient list on the draft.
type RecipientField string

const (
	FieldTo  RecipientField = "to"
	FieldCC  RecipientField = "cc"
	FieldBCC RecipientField = "bcc"
)

// DraftKeyPrefix is the prefix the app gives keys under its compose
// controller. The app assigns keys; we only ever discover them.
const DraftKeyPrefix = "draft-"

var (
	// ErrComposeOpenFailed: no new draft key appeared within the settle window.
	ErrComposeOpenFailed = errors.New("compose open failed: no draft key appeared in settle window")
	// ErrBadTransition: the requested operation is not legal in the current state.
	ErrBadTransition = errors.New("illegal draft state transition")
)

// Draft is the readable snapshot of the in-app draft object.
type Draft struct {
	Key     string   `json:"key"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	To      []string `json:"to,omitempty"`
	CC      []string `json:"cc,omitempty"`
	BCC     []string `json:"bcc,omitempty"`
	Sender  string   `json:"sender,omitempty"`
	Dirty   bool     `json:"dirty"`
}

// Timing bundles the settle-window contract for compose operations. The app
// emits no completion signals, so fixed waits are part of the design, not an
// accident.
type Timing struct {
	// OpenSettle bounds how long we poll for the new draft key.
	OpenSettle time.Duration
	// OpenPoll is the scan interval within the settle window.
	OpenPoll time.Duration
	// SaveSettle is the fixed wait after save before reporting durability.
	SaveSettle time.Duration
}

// DefaultTiming matches the app's observed behavior on ordinary hardware.
func DefaultTiming() Timing {
	return Timing{
		OpenSettle: 5 * time.Second,
		OpenPoll:   200 * time.Millisecond,
		SaveSettle: 1500 * time.Millisecond,
	}
}

// Composer drives one draft's open -> populate -> persist/transmit lifecycle
// against the compose controller. One live draft per composer; the app may
// hold several, we always operate on the one we discovered at open time.
type Composer struct {
	gw     *gateway.Gateway
	timing Timing
	state  State
	key    string
}

// NewComposer starts a machine in the Closed state.
func NewComposer(gw *gateway.Gateway, timing Timing) *Composer {
	if timing.OpenPoll <= 0 {
		timing.OpenPoll = DefaultTiming().OpenPoll
	}
	return &Composer{gw: gw, timing: timing, state: StateClosed}
}

// State returns the current lifecycle state.
func (c *Composer) State() State { return c.state }

// Key returns the discovered draft key, empty before Open completes.
func (c *Composer) Key() string { return c.key }

// fail moves the machine to the terminal Failed state.
func (c *Composer) fail(res gateway.CallResult) error {
	c.state = StateFailed
	return fmt.Errorf("draft lifecycle aborted: %s", res.Detail)
}

// Open triggers the compose surface, then discovers the key the app assigned
// to the new draft by scanning controller keys for the prefix within the
// settle window. Closed -> Opening -> Open.
func (c *Composer) Open(ctx context.Context, variant Variant, threadID string) (string, error) {
	if c.state != StateClosed {
		return "", fmt.Errorf("%w: open from %s", ErrBadTransition, c.state)
	}
	c.state = StateOpening

	before, res := c.listDraftKeys(ctx)
	if !res.OK && res.Kind == gateway.KindConnection {
		return "", c.fail(res.CallResult)
	}

	openRes := c.gw.RunChain(ctx, openChain(variant, threadID))
	if !openRes.OK {
		if openRes.Kind == gateway.KindConnection {
			return "", c.fail(openRes.CallResult)
		}
		c.state = StateFailed
		return "", fmt.Errorf("open compose (%s): %s", variant, openRes.Detail)
	}

	key, err := c.discoverKey(ctx, before)
	if err != nil {
		c.state = StateFailed
		return "", err
	}

	c.key = key
	c.state = StateOpen
	log.Printf("[compose] opened %s draft %s via %s", variant, key, openRes.Used)
	return key, nil
}

// discoverKey polls for a key that carries the draft prefix and was not
// present before the open action. Most recent match wins; taking the first
// match would risk racing a stale compose instance.
func (c *Composer) discoverKey(ctx context.Context, before map[string]bool) (string, error) {
	deadline := time.Now().Add(c.timing.OpenSettle)

	for {
		keys, res := c.listDraftKeys(ctx)
		if !res.OK && res.Kind == gateway.KindConnection {
			return "", res.Err()
		}

		fresh := make([]string, 0, len(keys))
		for k := range keys {
			if !before[k] {
				fresh = append(fresh, k)
			}
		}
		if key := newestKey(fresh); key != "" {
			return key, nil
		}

		if time.Now().After(deadline) {
			return "", ErrComposeOpenFailed
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.timing.OpenPoll):
		}
	}
}

// newestKey picks the most recent draft key. The app embeds a creation
// ordinal in the key suffix; higher means newer. Non-numeric suffixes sort
// lexically as a last resort.
func newestKey(keys []string) string {
	matched := keys[:0]
	for _, k := range keys {
		if strings.HasPrefix(k, DraftKeyPrefix) {
			matched = append(matched, k)
		}
	}
	if len(matched) == 0 {
		return ""
	}

	sort.Slice(matched, func(i, j int) bool {
		oi, iok := keyOrdinal(matched[i])
		oj, jok := keyOrdinal(matched[j])
		if iok && jok {
			return oi < oj
		}
		if iok != jok {
			return jok // numeric ordinals beat lexical stragglers
		}
		return matched[i] < matched[j]
	})
	return matched[len(matched)-1]
}

func keyOrdinal(key string) (int64, bool) {
	suffix := strings.TrimPrefix(key, DraftKeyPrefix)
	n, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// listDraftKeys enumerates the compose controller's current keys.
func (c *Composer) listDraftKeys(ctx context.Context) (map[string]bool, gateway.ChainResult) {
	res := c.gw.RunChain(ctx, Chains.ListKeys())
	keys := make(map[string]bool)
	if !res.OK {
		return keys, res
	}

	var list []string
	if err := res.Decode(&list); err != nil {
		res.OK = false
		res.Kind = gateway.KindRemoteThrew
		res.Detail = err.Error()
		return keys, res
	}
	for _, k := range list {
		keys[k] = true
	}
	return keys, res
}

// populate guards a field-set operation and applies the state transition.
// Field sets are independently fallible: one failure leaves prior fields in
// place and the caller decides whether to proceed. No rollback.
func (c *Composer) populate(ctx context.Context, chain gateway.Chain) error {
	if c.state != StateOpen && c.state != StatePopulated {
		return fmt.Errorf("%w: %s from %s", ErrBadTransition, chain.Op, c.state)
	}

	res := c.gw.RunChain(ctx, chain)
	if !res.OK {
		if res.Kind == gateway.KindConnection {
			return c.fail(res.CallResult)
		}
		return res.Err()
	}

	c.state = StatePopulated
	return nil
}

// SetSubject sets the draft subject.
func (c *Composer) SetSubject(ctx context.Context, subject string) error {
	return c.populate(ctx, Chains.SetSubject(c.key, subject))
}

// SetBody sets the draft body HTML.
func (c *Composer) SetBody(ctx context.Context, html string) error {
	return c.populate(ctx, Chains.SetBody(c.key, html))
}

// AddRecipient appends an address to one of the recipient lists.
func (c *Composer) AddRecipient(ctx context.Context, field RecipientField, address string) error {
	switch field {
	case FieldTo, FieldCC, FieldBCC:
	default:
		return fmt.Errorf("unknown recipient field %q", field)
	}
	return c.populate(ctx, Chains.AddRecipient(c.key, field, address))
}

// SetSender selects the sending identity for the draft.
func (c *Composer) SetSender(ctx context.Context, address string) error {
	return c.populate(ctx, Chains.SetSender(c.key, address))
}

// Snapshot reads the draft's current in-memory state back out of the app.
// Usable from Open onward, before or after save.
func (c *Composer) Snapshot(ctx context.Context) (Draft, error) {
	if c.state != StateOpen && c.state != StatePopulated && c.state != StateSaved {
		return Draft{}, fmt.Errorf("%w: snapshot from %s", ErrBadTransition, c.state)
	}

	res := c.gw.RunChain(ctx, Chains.Snapshot(c.key))
	if !res.OK {
		return Draft{}, res.Err()
	}

	var d Draft
	if err := res.Decode(&d); err != nil {
		return Draft{}, err
	}
	if d.Key == "" {
		d.Key = c.key
	}
	return d, nil
}

// Save persists the draft. The app signals nothing on completion, so we wait
// the fixed settle interval before reporting the save durable. Populated -> Saved.
func (c *Composer) Save(ctx context.Context) error {
	if c.state != StatePopulated {
		return fmt.Errorf("%w: save from %s", ErrBadTransition, c.state)
	}

	res := c.gw.RunChain(ctx, Chains.Save(c.key))
	if !res.OK {
		if res.Kind == gateway.KindConnection {
			return c.fail(res.CallResult)
		}
		return res.Err()
	}

	if err := settle(ctx, c.timing.SaveSettle); err != nil {
		return err
	}
	c.state = StateSaved
	log.Printf("[compose] draft %s saved via %s", c.key, res.Used)
	return nil
}

// Send transmits the draft through the app's own send entry point. The app
// tears the draft object down afterward; the key is dead from here on.
// Populated -> Sent.
func (c *Composer) Send(ctx context.Context) error {
	if c.state != StatePopulated {
		return fmt.Errorf("%w: send from %s", ErrBadTransition, c.state)
	}

	res := c.gw.RunChain(ctx, Chains.Send(c.key))
	if !res.OK {
		if res.Kind == gateway.KindConnection {
			return c.fail(res.CallResult)
		}
		return res.Err()
	}

	c.state = StateSent
	log.Printf("[compose] draft %s sent via %s", c.key, res.Used)
	return nil
}

// settle waits a fixed interval, honoring cancellation.
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

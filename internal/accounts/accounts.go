package accounts

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"mailpilot-mcp-server/internal/gateway"
)

// Context describes one account the app is signed into. Exactly one is
// current at any time; every thread, draft and service call is scoped to it.
type Context struct {
	Email     string              `json:"email"`
	IsCurrent bool                `json:"is_current"`
	Kind      gateway.AccountKind `json:"kind,omitempty"`
}

// SwitchResult reports an account switch. Switched is false for the no-op
// case where the requested account was already current.
type SwitchResult struct {
	Email    string `json:"email"`
	Switched bool   `json:"switched"`
}

// Known ways to reach the account service across app versions.
const (
	accountRegistry = `window.MailApp.registry.lookup('service:accounts')`
	accountDirect   = `window.App.accountSwitcher`
)

// Switcher enumerates and changes the app's current account. Switching is
// eventually consistent on the app side: after a real switch the configured
// propagation delay is applied before returning, because reads issued
// earlier may still see the previous account's data. That delay is part of
// the contract, not an incidental sleep.
type Switcher struct {
	gw     *gateway.Gateway
	settle time.Duration
}

// NewSwitcher builds a switcher with the given propagation delay.
func NewSwitcher(gw *gateway.Gateway, settle time.Duration) *Switcher {
	return &Switcher{gw: gw, settle: settle}
}

// List enumerates the signed-in accounts.
func (s *Switcher) List(ctx context.Context) ([]Context, error) {
	pick := `(list) => list.map(a => ({ email: a.email, is_current: !!a.isCurrent, kind: a.backendKind || '' }))`
	res := s.gw.RunChain(ctx, gateway.Chain{
		Op: "list_accounts",
		Candidates: []gateway.Candidate{
			{Name: "registry.all", Expr: fmt.Sprintf(`() => (%s)(%s.all())`, pick, accountRegistry)},
			{Name: "direct.accounts", Expr: fmt.Sprintf(`() => (%s)(%s.accounts())`, pick, accountDirect)},
		},
	})
	if !res.OK {
		return nil, res.Err()
	}

	var list []Context
	if err := res.Decode(&list); err != nil {
		return nil, err
	}
	for i := range list {
		list[i].Kind = normalizeKind(string(list[i].Kind))
	}
	return list, nil
}

// Current returns the account the app is scoped to right now.
func (s *Switcher) Current(ctx context.Context) (Context, error) {
	list, err := s.List(ctx)
	if err != nil {
		return Context{}, err
	}
	for _, acct := range list {
		if acct.IsCurrent {
			return acct, nil
		}
	}
	return Context{}, fmt.Errorf("no current account among %d accounts", len(list))
}

// ActiveKind reports the backend kind of the current account, defaulting to
// the Google-style set when the app does not expose a kind.
func (s *Switcher) ActiveKind(ctx context.Context) (gateway.AccountKind, error) {
	acct, err := s.Current(ctx)
	if err != nil {
		return "", err
	}
	if acct.Kind != "" {
		return acct.Kind, nil
	}
	return gateway.AccountGoogle, nil
}

// Switch makes email the current account. Switching to the already-current
// account is a reported success with nothing issued to the app.
func (s *Switcher) Switch(ctx context.Context, email string) (SwitchResult, error) {
	list, err := s.List(ctx)
	if err != nil {
		return SwitchResult{}, err
	}

	found := false
	for _, acct := range list {
		if !strings.EqualFold(acct.Email, email) {
			continue
		}
		found = true
		if acct.IsCurrent {
			return SwitchResult{Email: acct.Email, Switched: false}, nil
		}
	}
	if !found {
		return SwitchResult{}, fmt.Errorf("account %s is not signed in", email)
	}

	q := gateway.JSString(email)
	res := s.gw.RunChain(ctx, gateway.Chain{
		Op: "switch_account",
		Candidates: []gateway.Candidate{
			{Name: "registry.activate", Expr: fmt.Sprintf(`() => %s.activate(%s)`, accountRegistry, q), Await: true},
			{Name: "direct.switchTo", Expr: fmt.Sprintf(`() => %s.switchTo(%s)`, accountDirect, q), Await: true},
		},
	})
	if !res.OK {
		return SwitchResult{}, res.Err()
	}

	log.Printf("[accounts] switched to %s via %s, settling %s", email, res.Used, s.settle)
	if err := propagate(ctx, s.settle); err != nil {
		return SwitchResult{}, err
	}
	return SwitchResult{Email: email, Switched: true}, nil
}

// propagate waits out the eventual-consistency window after a real switch.
func propagate(ctx context.Context, d time.Duration) error {
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

func normalizeKind(raw string) gateway.AccountKind {
	switch strings.ToLower(raw) {
	case "microsoft", "outlook", "exchange", "o365":
		return gateway.AccountMicrosoft
	case "google", "gmail":
		return gateway.AccountGoogle
	case "":
		return ""
	default:
		return gateway.AccountKind(strings.ToLower(raw))
	}
}

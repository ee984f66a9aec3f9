package mailapp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"mailpilot-mcp-server/internal/config"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
)

// Launch starts the mail client with remote debugging enabled, using the
// configured launch command. The locator never calls this itself; the caller
// invokes it after Connect fails with a refused connection, then retries.
func Launch(ctx context.Context, cfg config.AppConfig) error {
	if len(cfg.Launch) == 0 {
		return errors.New("app.launch command not configured")
	}

	bin := cfg.Launch[0]
	launch := launcher.New().Bin(bin).Headless(false).Leakless(false)
	launch = launch.Set(flags.RemoteDebuggingPort, fmt.Sprintf("%d", cfg.DebugPort))
	for _, rawFlag := range cfg.Launch[1:] {
		flagStr := strings.TrimLeft(rawFlag, "-")
		name, val, hasVal := strings.Cut(flagStr, "=")
		if hasVal {
			launch = launch.Set(flags.Flag(name), val)
		} else {
			launch = launch.Set(flags.Flag(name))
		}
	}

	if _, err := launch.Launch(); err != nil {
		return fmt.Errorf("launch mail client: %w", err)
	}

	log.Printf("launched %s, waiting for debugger on port %d", bin, cfg.DebugPort)
	return waitForDebugger(ctx, cfg)
}

// waitForDebugger polls the debug port until it accepts connections or the
// attach timeout expires. The app needs a moment between process start and
// the DevTools socket opening.
func waitForDebugger(ctx context.Context, cfg config.AppConfig) error {
	deadline := time.Now().Add(cfg.GetAttachTimeout())
	addr := fmt.Sprintf("%s:%d", hostOrDefault(cfg.DebugHost), cfg.DebugPort)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		time.Sleep(250 * time.Millisecond)
	}
	return fmt.Errorf("debugger on %s did not come up within %s", addr, cfg.GetAttachTimeout())
}

func hostOrDefault(host string) string {
	if host == "" {
		return "127.0.0.1"
	}
	return host
}

// IsConnectionRefused reports whether err looks like an unreachable debug
// endpoint, the one condition where the caller may auto-launch the app.
func IsConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connect: cannot") ||
		strings.Contains(msg, "no such host")
}

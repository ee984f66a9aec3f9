package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"mailpilot-mcp-server/internal/accounts"
	"mailpilot-mcp-server/internal/compose"
	"mailpilot-mcp-server/internal/config"
	"mailpilot-mcp-server/internal/gateway"
	"mailpilot-mcp-server/internal/mailapp"
	"mailpilot-mcp-server/internal/netwatch"
	"mailpilot-mcp-server/internal/trace"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Server wires the MCP runtime to one live mail-client session. The app has
// a single UI frame of reference (current draft, current account), so the
// server holds at most one session and one active composer at a time.
type Server struct {
	cfg       config.Config
	tools     map[string]Tool
	mcpServer *mcpserver.MCPServer
	rec       *trace.Recorder

	mu          sync.Mutex
	sess        *mailapp.Session
	gw          *gateway.Gateway
	switcher    *accounts.Switcher
	composer    *compose.Composer
	watcher     *netwatch.Watcher
	watchCancel context.CancelFunc
}

// Tool describes the contract for MCP tool implementations.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]interface{}
	Execute(ctx context.Context, args map[string]interface{}) (interface{}, error)
}

// NewServer constructs the mailpilot MCP server and registers all tools.
func NewServer(cfg config.Config) (*Server, error) {
	mcpSrv := mcpserver.NewMCPServer(
		cfg.Server.Name,
		cfg.Server.Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithLogging(),
		mcpserver.WithPromptCapabilities(false),
		mcpserver.WithRecovery(),
	)

	var rec *trace.Recorder
	if cfg.Trace.Enable {
		r, err := trace.NewRecorder(cfg.Trace.Dir)
		if err != nil {
			return nil, fmt.Errorf("init trace recorder: %w", err)
		}
		rec = r
	}

	server := &Server{
		cfg:       cfg,
		tools:     make(map[string]Tool),
		mcpServer: mcpSrv,
		rec:       rec,
	}

	server.registerAllTools()
	return server, nil
}

// Start launches the stdio server (Claude/Gemini CLI default).
func (s *Server) Start(ctx context.Context) error {
	stdio := mcpserver.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// StartSSE hosts the server over HTTP using SSE endpoints with graceful shutdown.
func (s *Server) StartSSE(ctx context.Context, port int) error {
	sseServer := mcpserver.NewSSEServer(s.mcpServer, mcpserver.WithBaseURL("http://localhost:"+strconv.Itoa(port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:    ":" + strconv.Itoa(port),
		Handler: mux,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Printf("SSE server shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// ExecuteTool executes a tool directly (used by the CLI and tests).
func (s *Server) ExecuteTool(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	tool, exists := s.tools[name]
	if !exists {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return tool.Execute(ctx, args)
}

// Close tears down the live session and the trace recorder.
func (s *Server) Close() error {
	_ = s.disconnect()
	if s.rec != nil {
		return s.rec.Close()
	}
	return nil
}

// connect attaches to the running mail client and builds the per-session
// object graph: gateway, account switcher, network watcher.
func (s *Server) connect(ctx context.Context) (mailapp.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sess != nil && !s.sess.Closed() {
		return s.sess.Meta(), nil
	}

	sess, err := mailapp.Connect(ctx, s.cfg.App)
	if err != nil {
		return mailapp.Info{}, err
	}

	sessionID := uuid.NewString()
	opts := []gateway.Option{gateway.WithSessionID(sessionID)}
	if s.rec != nil {
		if err := s.rec.Start(sessionID); err != nil {
			log.Printf("trace recorder start failed: %v", err)
		} else {
			opts = append(opts, gateway.WithRecorder(s.rec))
		}
	}

	s.sess = sess
	s.gw = gateway.New(sess, opts...)
	s.switcher = accounts.NewSwitcher(s.gw, s.cfg.App.GetSwitchSettle())
	s.composer = nil

	s.watcher = netwatch.NewWatcher(0)
	watchCtx, cancel := context.WithCancel(context.Background())
	s.watchCancel = cancel
	if err := s.watcher.Attach(watchCtx, sess); err != nil {
		log.Printf("network watcher unavailable: %v", err)
		s.watcher = nil
		cancel()
		s.watchCancel = nil
	}

	return sess.Meta(), nil
}

// disconnect releases the session. The mail client itself keeps running; we
// only drop our debugging attachment.
func (s *Server) disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watchCancel != nil {
		s.watchCancel()
		s.watchCancel = nil
	}
	s.watcher = nil
	s.gw = nil
	s.switcher = nil
	s.composer = nil

	if s.sess == nil {
		return nil
	}
	err := s.sess.Disconnect()
	s.sess = nil
	return err
}

func (s *Server) session() (*mailapp.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil || s.sess.Closed() {
		return nil, fmt.Errorf("not attached to the mail client, run connect-app first")
	}
	return s.sess, nil
}

func (s *Server) gateway() (*gateway.Gateway, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gw == nil {
		return nil, fmt.Errorf("not attached to the mail client, run connect-app first")
	}
	return s.gw, nil
}

func (s *Server) accountSwitcher() (*accounts.Switcher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.switcher == nil {
		return nil, fmt.Errorf("not attached to the mail client, run connect-app first")
	}
	return s.switcher, nil
}

// openComposer starts a fresh draft machine and makes it the current one.
// Draft machines are single-use; opening replaces any prior composer.
func (s *Server) openComposer() (*compose.Composer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gw == nil {
		return nil, fmt.Errorf("not attached to the mail client, run connect-app first")
	}

	timing := compose.Timing{
		OpenSettle: s.cfg.App.GetComposeSettle(),
		OpenPoll:   s.cfg.App.GetComposePoll(),
		SaveSettle: s.cfg.App.GetSaveSettle(),
	}
	s.composer = compose.NewComposer(s.gw, timing)
	return s.composer, nil
}

func (s *Server) currentComposer() (*compose.Composer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.composer == nil {
		return nil, fmt.Errorf("no draft is open, run open-compose first")
	}
	return s.composer, nil
}

func (s *Server) networkWatcher() (*netwatch.Watcher, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher == nil {
		return nil, fmt.Errorf("network watcher is not running")
	}
	return s.watcher, nil
}

func (s *Server) registerAllTools() {
	// Session lifecycle
	s.registerTool(&ConnectAppTool{srv: s})
	s.registerTool(&DisconnectAppTool{srv: s})
	s.registerTool(&AppStatusTool{srv: s})
	s.registerTool(&LaunchAppTool{srv: s})
	s.registerTool(&PressKeyTool{srv: s})
	s.registerTool(&EvaluateJSTool{srv: s})

	// Draft composition
	s.registerTool(&OpenComposeTool{srv: s})
	s.registerTool(&SetSubjectTool{srv: s})
	s.registerTool(&SetBodyTool{srv: s})
	s.registerTool(&AddRecipientTool{srv: s})
	s.registerTool(&SetSenderTool{srv: s})
	s.registerTool(&ReadDraftTool{srv: s})
	s.registerTool(&SaveDraftTool{srv: s})
	s.registerTool(&SendDraftTool{srv: s})

	// Bulk thread actions
	s.registerTool(&ArchiveThreadsTool{srv: s})
	s.registerTool(&TrashThreadsTool{srv: s})
	s.registerTool(&MarkReadThreadsTool{srv: s})
	s.registerTool(&MarkUnreadThreadsTool{srv: s})
	s.registerTool(&LabelThreadsTool{srv: s})

	// Accounts and diagnostics
	s.registerTool(&ListAccountsTool{srv: s})
	s.registerTool(&SwitchAccountTool{srv: s})
	s.registerTool(&DownloadAttachmentTool{srv: s})
	s.registerTool(&RecentNetworkTool{srv: s})
}

func (s *Server) registerTool(tool Tool) {
	s.tools[tool.Name()] = tool

	schema, err := json.Marshal(tool.InputSchema())
	if err != nil {
		schema = json.RawMessage(`{"type":"object"}`)
	}

	mcpTool := mcp.NewToolWithRawSchema(tool.Name(), tool.Description(), schema)
	s.mcpServer.AddTool(mcpTool, s.wrapTool(tool))
}

func (s *Server) wrapTool(tool Tool) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if args == nil {
			args = map[string]interface{}{}
		}

		result, err := tool.Execute(ctx, args)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{mcp.NewTextContent(fmt.Sprintf("tool %s failed: %v", tool.Name(), err))},
				IsError: true,
			}, nil
		}

		payload := marshalToolPayload(tool.Name(), result)
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(string(payload))},
			IsError: false,
		}, nil
	}
}

func marshalToolPayload(toolName string, result interface{}) []byte {
	payload, marshalErr := json.Marshal(result)
	if marshalErr == nil {
		return payload
	}

	fallback := map[string]interface{}{
		"success": false,
		"error":   fmt.Sprintf("tool %s returned non-serializable payload: %v", toolName, marshalErr),
	}
	payload, fallbackErr := json.Marshal(fallback)
	if fallbackErr == nil {
		return payload
	}

	return []byte(fmt.Sprintf(`{"success":false,"error":"tool %s failed to encode payload"}`, toolName))
}

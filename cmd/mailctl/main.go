package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"mailpilot-mcp-server/internal/config"
	mcpserver "mailpilot-mcp-server/internal/mcp"

	"github.com/spf13/cobra"
)

// Version is set via ldflags at build time.
var Version = "dev"

var (
	cfgPath    string
	jsonOutput bool
	quietFlag  bool
	srv        *mcpserver.Server
)

var rootCmd = &cobra.Command{
	Use:   "mailctl",
	Short: "mailctl - drive the mail client from the terminal",
	Long: `Mailctl attaches to the desktop mail client's debugging endpoint and runs
the same operations the MCP server exposes: compose drafts, bulk thread
actions, account switching.

Exit status is 0 only when everything succeeded; any failed item in a bulk
run exits non-zero.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "help", "version":
			return nil
		}

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		// Tool internals log freely; keep the terminal clean.
		log.SetOutput(io.Discard)

		srv, err = mcpserver.NewServer(cfg)
		if err != nil {
			return err
		}

		if cmd.Name() == "launch" {
			return nil
		}
		if _, err := srv.ExecuteTool(cmd.Context(), "connect-app", nil); err != nil {
			return fmt.Errorf("attach to mail client: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if srv != nil {
			srv.Close()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("mailctl version %s\n", Version)
	},
}

var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Start the mail client with remote debugging enabled",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := srv.ExecuteTool(cmd.Context(), "launch-app", nil)
		if err != nil {
			return err
		}
		return printResult(out, func() {
			fmt.Println("mail client launched, debugging endpoint is up")
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the attached session and any open draft",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := srv.ExecuteTool(cmd.Context(), "app-status", nil)
		if err != nil {
			return err
		}
		return printResult(out, func() {
			m, _ := out.(map[string]interface{})
			if attached, _ := m["attached"].(bool); attached {
				fmt.Println("attached")
			} else {
				fmt.Println("detached")
			}
			if state, ok := m["draft_state"]; ok {
				fmt.Printf("draft: %v (%v)\n", state, m["draft_key"])
			}
		})
	},
}

// printResult emits JSON when --json is set, otherwise runs the human renderer.
func printResult(out interface{}, human func()) error {
	if jsonOutput {
		payload, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(payload))
		return nil
	}
	if !quietFlag {
		human()
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "Path to the mailpilot config file")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(launchCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

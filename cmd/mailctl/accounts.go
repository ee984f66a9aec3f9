package main

import (
	"fmt"

	"mailpilot-mcp-server/internal/accounts"
	"mailpilot-mcp-server/internal/display"

	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List signed-in accounts, marking the current one",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := srv.ExecuteTool(cmd.Context(), "list-accounts", nil)
		if err != nil {
			return err
		}
		return printResult(out, func() {
			m, _ := out.(map[string]interface{})
			list, _ := m["accounts"].([]accounts.Context)
			for _, acct := range list {
				fmt.Println(display.AccountLine(acct.Email, string(acct.Kind), acct.IsCurrent))
			}
		})
	},
}

var switchCmd = &cobra.Command{
	Use:   "switch <email>",
	Short: "Make an account current (waits out the propagation delay)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := srv.ExecuteTool(cmd.Context(), "switch-account", map[string]interface{}{
			"email": args[0],
		})
		if err != nil {
			return err
		}
		return printResult(out, func() {
			res, _ := out.(accounts.SwitchResult)
			if res.Switched {
				fmt.Printf("switched to %s\n", res.Email)
			} else {
				fmt.Printf("%s was already current\n", res.Email)
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(switchCmd)
}

package main

import (
	"fmt"

	"mailpilot-mcp-server/internal/display"

	"github.com/spf13/cobra"
)

var (
	composeVariant string
	composeThread  string
	composeSubject string
	composeBody    string
	composeTo      []string
	composeCC      []string
	composeBCC     []string
	composeFrom    string
	composeSend    bool
)

var composeCmd = &cobra.Command{
	Use:   "compose",
	Short: "Open, populate and save (or send) a draft",
	Long: `Compose opens a draft through the app's own compose surface, populates the
given fields, reads them back for verification, and saves. Pass --send to
send instead of saving. Reply and forward variants need --thread.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		openArgs := map[string]interface{}{"variant": composeVariant}
		if composeThread != "" {
			openArgs["thread_id"] = composeThread
		}
		out, err := srv.ExecuteTool(ctx, "open-compose", openArgs)
		if err != nil {
			return err
		}
		opened, _ := out.(map[string]interface{})
		if !quietFlag && !jsonOutput {
			fmt.Printf("draft %v open\n", opened["draft_key"])
		}

		if composeSubject != "" {
			if _, err := srv.ExecuteTool(ctx, "set-subject", map[string]interface{}{"subject": composeSubject}); err != nil {
				return fmt.Errorf("set subject: %w", err)
			}
		}
		if composeBody != "" {
			if _, err := srv.ExecuteTool(ctx, "set-body", map[string]interface{}{"html": composeBody}); err != nil {
				return fmt.Errorf("set body: %w", err)
			}
		}
		for field, list := range map[string][]string{"to": composeTo, "cc": composeCC, "bcc": composeBCC} {
			for _, addr := range list {
				if _, err := srv.ExecuteTool(ctx, "add-recipient", map[string]interface{}{
					"address": addr,
					"field":   field,
				}); err != nil {
					return fmt.Errorf("add %s recipient %s: %w", field, addr, err)
				}
			}
		}
		if composeFrom != "" {
			if _, err := srv.ExecuteTool(ctx, "set-sender", map[string]interface{}{"address": composeFrom}); err != nil {
				return fmt.Errorf("set sender: %w", err)
			}
		}

		tool := "save-draft"
		if composeSend {
			tool = "send-draft"
		}
		out, err = srv.ExecuteTool(ctx, tool, nil)
		if err != nil {
			return err
		}
		return printResult(out, func() {
			res, _ := out.(map[string]interface{})
			fmt.Println(display.Success.Render(fmt.Sprintf("draft %v %v", res["draft_key"], res["state"])))
		})
	},
}

func init() {
	composeCmd.Flags().StringVar(&composeVariant, "variant", "new", "new | reply | reply_all | forward")
	composeCmd.Flags().StringVar(&composeThread, "thread", "", "Source thread for reply/forward variants")
	composeCmd.Flags().StringVar(&composeSubject, "subject", "", "Draft subject")
	composeCmd.Flags().StringVar(&composeBody, "body", "", "Draft body HTML")
	composeCmd.Flags().StringSliceVar(&composeTo, "to", nil, "To recipient (repeatable)")
	composeCmd.Flags().StringSliceVar(&composeCC, "cc", nil, "Cc recipient (repeatable)")
	composeCmd.Flags().StringSliceVar(&composeBCC, "bcc", nil, "Bcc recipient (repeatable)")
	composeCmd.Flags().StringVar(&composeFrom, "from", "", "Sending identity (must be a signed-in account)")
	composeCmd.Flags().BoolVar(&composeSend, "send", false, "Send instead of saving")
	rootCmd.AddCommand(composeCmd)
}

package main

import (
	"fmt"

	"mailpilot-mcp-server/internal/bulk"
	"mailpilot-mcp-server/internal/display"

	"github.com/spf13/cobra"
)

var (
	confirmFlag bool
	dryRunFlag  bool
	removeFlag  bool
)

// runThreadTool executes one bulk thread tool and renders the aggregate.
// Any failed item makes the command exit non-zero.
func runThreadTool(cmd *cobra.Command, tool string, ids []string, extra map[string]interface{}) error {
	args := map[string]interface{}{
		"thread_ids": toInterfaceSlice(ids),
		"confirm":    confirmFlag,
		"dry_run":    dryRunFlag,
	}
	for k, v := range extra {
		args[k] = v
	}

	out, err := srv.ExecuteTool(cmd.Context(), tool, args)
	if err != nil {
		return err
	}
	res, ok := out.(bulk.Result)
	if !ok {
		return fmt.Errorf("unexpected payload from %s: %T", tool, out)
	}

	if err := printResult(res, func() {
		for _, item := range res.Results {
			fmt.Println(display.ItemLine(item.Target, item.Success, item.DryRun, item.Error))
		}
		fmt.Println(display.Summary(res.Total, res.SuccessCount, res.FailCount))
	}); err != nil {
		return err
	}

	if res.Failed() {
		return fmt.Errorf("%d of %d items failed", res.FailCount, res.Total)
	}
	return nil
}

func toInterfaceSlice(ids []string) []interface{} {
	out := make([]interface{}, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

var archiveCmd = &cobra.Command{
	Use:   "archive <thread-id>...",
	Short: "Archive threads (sequential, in argument order)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runThreadTool(cmd, "archive-threads", args, nil)
	},
}

var trashCmd = &cobra.Command{
	Use:   "trash <thread-id>...",
	Short: "Move threads to trash",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runThreadTool(cmd, "trash-threads", args, nil)
	},
}

var readCmd = &cobra.Command{
	Use:   "read <thread-id>...",
	Short: "Mark threads read (idempotent, already-read threads are skipped)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runThreadTool(cmd, "mark-read-threads", args, nil)
	},
}

var unreadCmd = &cobra.Command{
	Use:   "unread <thread-id>...",
	Short: "Mark threads unread",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runThreadTool(cmd, "mark-unread-threads", args, nil)
	},
}

var labelCmd = &cobra.Command{
	Use:   "label <label> <thread-id>...",
	Short: "Apply a label to threads (--remove to take it off)",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runThreadTool(cmd, "label-threads", args[1:], map[string]interface{}{
			"label":  args[0],
			"remove": removeFlag,
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{archiveCmd, trashCmd, readCmd, unreadCmd, labelCmd} {
		c.Flags().BoolVar(&confirmFlag, "confirm", false, "Acknowledge acting on multiple threads")
		c.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Preview without mutating")
		rootCmd.AddCommand(c)
	}
	labelCmd.Flags().BoolVar(&removeFlag, "remove", false, "Remove the label instead of applying it")
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"snapvault/internal/ipc"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test push notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					return err
				}
				if !resp.Sent {
					return fmt.Errorf("test notification failed: %s", resp.Message)
				}
				fmt.Fprintln(stdout, "Test notification sent")
				return nil
			})
		},
	}
}

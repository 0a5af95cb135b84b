package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"snapvault/internal/ipc"
)

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	var collection string

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture one frame from the active session",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Capture(collection)
				if err != nil {
					return err
				}
				if resp.Staged {
					fmt.Fprintln(stdout, "Capture staged; confirm or reject it")
					return nil
				}
				fmt.Fprintf(stdout, "Saved %s (%s)\n", resp.Item.Name, displayKey(resp.Item.Collection))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&collection, "collection", "", "Capture into this collection instead of the current one")
	return cmd
}

func newConfirmCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "confirm",
		Short: "Save the capture awaiting review",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ConfirmPending()
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Saved %s (%s)\n", resp.Item.Name, displayKey(resp.Item.Collection))
				return nil
			})
		},
	}
}

func newRejectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reject",
		Short: "Discard the capture awaiting review",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.RejectPending(); err != nil {
					return err
				}
				fmt.Fprintln(stdout, "Pending capture discarded")
				return nil
			})
		},
	}
}

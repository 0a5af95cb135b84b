package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"snapvault/internal/ipc"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Control the capture session",
	}

	sessionCmd.AddCommand(&cobra.Command{
		Use:   "start",
		Short: "Start producing frames from the capture source",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SessionStart()
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Session active (collection: %s)\n",
					displayKey(resp.Session.CollectionKey))
				return nil
			})
		},
	})

	sessionCmd.AddCommand(&cobra.Command{
		Use:   "stop",
		Short: "Stop the capture source",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.SessionStop(); err != nil {
					return err
				}
				fmt.Fprintln(stdout, "Session stopped")
				return nil
			})
		},
	})

	return sessionCmd
}

func newSelectCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "select <collection>",
		Short: "Choose the collection new captures go into",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SelectCollection(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Capturing into %s\n", displayKey(resp.Key))
				return nil
			})
		},
	}
}

func newConfirmationCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "confirmation <on|off>",
		Short: "Require a confirmation step before captures are saved",
		Long: "With confirmation on, each capture stages for review and must be " +
			"confirmed or rejected. Turning confirmation off discards any capture " +
			"still awaiting review.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var enabled bool
			switch args[0] {
			case "on":
				enabled = true
			case "off":
				enabled = false
			default:
				return fmt.Errorf("expected on or off, got %q", args[0])
			}
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SetConfirmation(enabled)
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Require confirmation: %s\n",
					yesNo(resp.Session.RequireConfirmation))
				return nil
			})
		},
	}
}

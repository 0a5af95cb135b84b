package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"snapvault/internal/ipc"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the snapvault daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()

			client, err := ctx.dialClient()
			if err != nil {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
				client, err = launchDaemon(ctx, 10*time.Second)
				if err != nil {
					return err
				}
			}
			defer client.Close()

			resp, err := client.Start()
			if err != nil {
				return err
			}
			if resp.Started {
				fmt.Fprintln(stdout, "Daemon started")
			} else {
				fmt.Fprintln(stdout, resp.Message)
			}
			return nil
		},
	}

	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the snapvault daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Stop(); err != nil {
					return err
				}
				fmt.Fprintln(stdout, "Daemon stopped")
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and session status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}

				rows := [][]string{
					{"Daemon running", yesNo(status.Running)},
					{"PID", fmt.Sprintf("%d", status.PID)},
					{"Session active", yesNo(status.Session.Active)},
					{"Current collection", displayKey(status.Session.CollectionKey)},
					{"Require confirmation", yesNo(status.Session.RequireConfirmation)},
					{"Pending capture", yesNo(status.HasPending)},
					{"Capture directory", status.CaptureDir},
					{"Export directory", status.ExportDir},
				}
				if status.HasPending {
					rows = append(rows, []string{"Pending collection", displayKey(status.PendingCollection)})
				}
				fmt.Fprintln(stdout, renderTable([]string{"Field", "Value"}, rows,
					[]columnAlignment{alignLeft, alignLeft}))

				if status.Export != nil {
					fmt.Fprintln(stdout)
					printExportInfo(stdout, status.Export)
				}
				return nil
			})
		},
	}

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

// launchDaemon spawns snapvaultd in its own session and waits for its
// socket to accept connections.
func launchDaemon(ctx *commandContext, timeout time.Duration) (*ipc.Client, error) {
	exe, err := daemonExecutable()
	if err != nil {
		return nil, err
	}

	daemonCmd := exec.Command(exe)
	daemonCmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := daemonCmd.Start(); err != nil {
		return nil, fmt.Errorf("launch %s: %w", exe, err)
	}
	if err := daemonCmd.Process.Release(); err != nil {
		return nil, fmt.Errorf("detach daemon process: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		client, err := ipc.Dial(ctx.socketPath())
		if err == nil {
			return client, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("daemon did not come up within %s: %w", timeout, err)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// daemonExecutable locates snapvaultd next to the CLI binary, falling back
// to PATH lookup.
func daemonExecutable() (string, error) {
	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), "snapvaultd")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	path, err := exec.LookPath("snapvaultd")
	if err != nil {
		return "", fmt.Errorf("snapvaultd binary not found: %w", err)
	}
	return path, nil
}

func displayKey(key string) string {
	if key == "" {
		return "default"
	}
	return key
}

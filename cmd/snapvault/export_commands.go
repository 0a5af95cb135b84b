package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"snapvault/internal/ipc"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var noWait bool

	cmd := &cobra.Command{
		Use:   "export [username]",
		Short: "Bundle every non-empty collection into zip archives",
		Long: "Streams the stored captures of each collection into one zip archive " +
			"per collection. Without a username the one remembered from the " +
			"previous export is used.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				username := ""
				if len(args) > 0 {
					username = args[0]
				}
				if username == "" {
					last, err := client.LastExportName()
					if err != nil {
						return err
					}
					username = last.Username
				}
				if username == "" {
					return fmt.Errorf("no username given and none remembered; run `snapvault export <username>`")
				}

				start, err := client.ExportStart(username)
				if err != nil {
					return err
				}
				if noWait {
					fmt.Fprintf(stdout, "Export started (job %s)\n", start.JobID)
					return nil
				}

				return waitForExport(stdout, client, start.JobID)
			})
		},
	}
	cmd.Flags().BoolVar(&noWait, "no-wait", false, "Start the export and return immediately")
	return cmd
}

func waitForExport(stdout io.Writer, client *ipc.Client, jobID string) error {
	lastProgress := ""
	for {
		resp, err := client.ExportStatus()
		if err != nil {
			return err
		}
		if !resp.Found || resp.Export.ID != jobID {
			return fmt.Errorf("export job %s no longer tracked", jobID)
		}

		if resp.Export.Running {
			if resp.Export.CurrentLabel != "" {
				progress := fmt.Sprintf("[%d/%d] %s",
					resp.Export.Current, resp.Export.Total, resp.Export.CurrentLabel)
				if progress != lastProgress {
					fmt.Fprintln(stdout, progress)
					lastProgress = progress
				}
			}
			time.Sleep(200 * time.Millisecond)
			continue
		}

		printExportInfo(stdout, &resp.Export)
		return nil
	}
}

func printExportInfo(w io.Writer, info *ipc.ExportInfo) {
	if info.ErrorMessage != "" {
		fmt.Fprintf(w, "Export aborted: %s\n", info.ErrorMessage)
		return
	}
	if len(info.Results) == 0 {
		fmt.Fprintln(w, "Nothing to export: every collection is empty")
		return
	}

	rows := make([][]string, 0, len(info.Results))
	succeeded, failed := 0, 0
	for _, res := range info.Results {
		outcome := "ok"
		detail := res.ArchivePath
		if res.Success {
			succeeded++
		} else {
			failed++
			outcome = "failed"
			detail = res.ErrorMessage
		}
		rows = append(rows, []string{
			res.Label,
			strconv.Itoa(res.FileCount),
			outcome,
			detail,
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Collection", "Files", "Result", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft}))

	switch {
	case failed == 0:
		fmt.Fprintf(w, "Exported %d collection(s)\n", succeeded)
	case succeeded == 0:
		fmt.Fprintf(w, "All %d collection(s) failed\n", failed)
	default:
		fmt.Fprintf(w, "Exported %d collection(s), %d failed\n", succeeded, failed)
	}
}

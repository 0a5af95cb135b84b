package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"snapvault/internal/ipc"
)

func newCollectionCommand(ctx *commandContext) *cobra.Command {
	collectionCmd := &cobra.Command{
		Use:     "collection",
		Aliases: []string{"collections"},
		Short:   "Manage capture collections",
	}

	collectionCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List collections with their stored item counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.CollectionList()
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(resp.Collections))
				for _, col := range resp.Collections {
					rows = append(rows, []string{
						displayKey(col.Key),
						col.Label,
						strconv.Itoa(col.Count),
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"Key", "Label", "Items"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight}))
				return nil
			})
		},
	})

	collectionCmd.AddCommand(&cobra.Command{
		Use:   "add <label>",
		Short: "Create a custom collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.CollectionAdd(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Added %q (%d custom collections)\n", args[0], len(resp.Collections))
				return nil
			})
		},
	})

	return collectionCmd
}

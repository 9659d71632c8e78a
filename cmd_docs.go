package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List the documents the specialists can read",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadDocs(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		docs := store.List()
		if len(docs) == 0 {
			fmt.Fprintln(out, color.YellowString("no documents loaded"))
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "DOMAIN\tFILENAME\tTYPE\tCHARS\tSOURCE")
		for _, d := range docs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", d.Domain, d.Filename, d.MIME, d.Size(), d.Source)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(out, color.GreenString("%d documents loaded", len(docs)))
		return nil
	},
}

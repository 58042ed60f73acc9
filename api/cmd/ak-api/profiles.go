package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newProfilesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List profiles and their key counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			summaries, err := a.vault(nil).ListProfiles(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PROFILE\tKEYS\tDEFAULT")
			for _, p := range summaries {
				def := ""
				if p.IsDefault {
					def = "yes"
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\n", p.Name, p.KeyCount, def)
			}
			return tw.Flush()
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <profile>",
		Short: "Print a profile as shell export statements",
		Long:  `Prints one export line per listed key, suitable for eval "$(ak-api export work)".`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.vault(nil).Export(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("export %s: %w", args[0], err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/typhoon/internal/status"
)

func newCitiesCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "cities",
		Short: "List the cities and counties the page announces for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := parseFormat(format)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			switch f {
			case FormatJSON:
				return writeJSON(w, status.DefaultCities)
			case FormatMarkdown:
				for _, city := range status.DefaultCities {
					fmt.Fprintf(w, "- %s\n", city)
				}
			default:
				for _, city := range status.DefaultCities {
					fmt.Fprintln(w, city)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json or markdown")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "typhoon %s\n", Version)
		},
	}
}

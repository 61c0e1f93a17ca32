package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"prdbuilder/internal/service/completion"
)

// NewSectionsCommand creates the sections command.
func NewSectionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sections",
		Short: "List the PRD sections in canonical order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			defs := completion.DefaultCatalog().Definitions()

			return f.Success(defs, func(w io.Writer) {
				for _, def := range defs {
					required := "optional"
					if def.Required {
						required = fmt.Sprintf("required, min %d chars", def.MinContentLength)
					}
					fmt.Fprintf(w, "%-18s %s (%s)\n", def.Key, def.Title, required)
					if rootOpts.Verbose {
						for _, q := range def.GuideQuestions {
							fmt.Fprintf(w, "%-18s - %s\n", "", q)
						}
					}
				}
			})
		},
	}
}

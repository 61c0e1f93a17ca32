package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"prdbuilder/internal/domain/models/prd"
	"prdbuilder/internal/service/completion"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	Strict bool
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{}

	cmd := &cobra.Command{
		Use:   "validate <content.json>",
		Short: "Check a PRD's content for completion",
		Long: `Check PRD content against the section catalog and print the completion report.

The file holds the document content as stored: an object keyed by section with
"content" and "status" fields. Use "-" to read from stdin.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "exit with an error when the PRD is not ready")

	return cmd
}

func runValidate(rootOpts *RootOptions, opts *ValidateOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(rootOpts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	content, err := readContent(path, cmd.InOrStdin())
	if err != nil {
		return err
	}
	f.VerboseLog("Loaded %d section(s) from %s", len(content), path)

	report := completion.NewValidator(nil).ValidateAllSections(content)
	text := func(w io.Writer) { printReport(w, report) }

	if opts.Strict && !report.IsReady {
		notReady := NewExitError(ExitFailure,
			fmt.Sprintf("PRD is not ready: %d of %d required sections complete", report.CompletedCount, report.TotalRequired))
		return f.Failure(report, notReady, text)
	}
	return f.Success(report, text)
}

func readContent(path string, stdin io.Reader) (prd.DocumentContent, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "read content", err)
	}

	var content prd.DocumentContent
	if err := json.Unmarshal(data, &content); err != nil {
		return nil, WrapExitError(ExitCommandError, "parse content", err)
	}
	if err := content.Validate(); err != nil {
		return nil, NewExitError(ExitCommandError, err.Error())
	}
	if content == nil {
		content = prd.DocumentContent{}
	}
	return content, nil
}

func printReport(w io.Writer, report prd.CompletionValidation) {
	ready := "no"
	if report.IsReady {
		ready = "yes"
	}
	fmt.Fprintf(w, "Ready: %s (%d/%d required sections complete)\n", ready, report.CompletedCount, report.TotalRequired)

	for _, r := range report.SectionResults {
		if r.IsValid {
			fmt.Fprintf(w, "  ✓ %s\n", r.Key)
			continue
		}
		fmt.Fprintf(w, "  ✗ %s: %s\n", r.Key, strings.Join(r.Issues, "; "))
	}
}

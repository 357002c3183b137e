package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"docflow/internal/docflow/domain"
	"docflow/internal/docflow/validation"
)

func newCheckCmd() *cobra.Command {
	var pdfOnly bool

	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a document without uploading it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			candidate, err := domain.CandidateFromPath(args[0])
			if err != nil {
				return err
			}

			v := validation.New(validation.WithPDFOnly(cfg.Client.PDFOnly || pdfOnly))
			file, err := v.Validate(candidate)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "OK %s (%d bytes", file.Name, file.SizeBytes)
			if file.ContentType != "" {
				fmt.Fprintf(cmd.OutOrStdout(), ", %s", file.ContentType)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ")")
			return nil
		},
	}

	cmd.Flags().BoolVar(&pdfOnly, "pdf-only", false, "Reject files whose content is not PDF")
	return cmd
}

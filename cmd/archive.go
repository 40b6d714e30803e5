package cmd

import (
	"github.com/spf13/cobra"

	invoicing "invoice-desk/internal/invoicing/domain"
)

func newArchiveCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Invoice archive",
	}

	var (
		status string
		query  string
	)
	export := &cobra.Command{
		Use:   "export <out.xlsx>",
		Short: "Write the invoice list with totals per status as XLSX",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := invoicing.SearchFilter{Query: query, Status: invoicing.Status(status)}
			n, err := st.desk.ExportArchive(cmd.Context(), filter, args[0])
			if err != nil {
				return err
			}
			st.printf("%d Rechnungen nach %s exportiert\n", n, args[0])
			return nil
		},
	}
	export.Flags().StringVar(&status, "status", "", "filter by status (draft, sent, paid)")
	export.Flags().StringVarP(&query, "query", "q", "", "search number, subject and property")

	cmd.AddCommand(export)
	return cmd
}

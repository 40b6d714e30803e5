package cmd

import (
	"github.com/spf13/cobra"
)

func newBackupCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "JSON backups of the record store",
	}

	var out string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write a backup file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := st.desk.Backups.Export(cmd.Context(), out)
			if err != nil {
				return err
			}
			st.printf("%s\n", path)
			return nil
		},
	}
	export.Flags().StringVarP(&out, "out", "o", "", "target file (default <backups_dir>/backup_YYYYMMDD_HHMMSS.json)")

	restore := &cobra.Command{
		Use:   "import <file>",
		Short: "Restore a backup file; records are upserted by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := st.desk.Backups.Import(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			st.printf("Lieferanten %d, Kunden %d, Artikel %d, Nummernkreise %d, Rechnungen %d, Positionen %d\n",
				stats.Suppliers, stats.Customers, stats.Articles, stats.InvoiceNumbers, stats.Invoices, stats.InvoiceLines)
			return nil
		},
	}

	auto := &cobra.Command{
		Use:   "auto",
		Short: "Write today's automatic backup and prune old ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, removed, err := st.desk.Backups.Auto(cmd.Context())
			if err != nil {
				return err
			}
			st.printf("%s\n", path)
			for _, r := range removed {
				st.printf("entfernt: %s\n", r)
			}
			return nil
		},
	}

	cmd.AddCommand(export, restore, auto)
	return cmd
}

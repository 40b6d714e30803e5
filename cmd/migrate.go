package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"invoice-desk/internal/storage"
)

func newMigrateCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if st.desk.DB == nil {
				return errors.New("migrate needs a database, not --memory")
			}
			applied, err := storage.Migrate(cmd.Context(), st.desk.DB)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				st.printf("Schema ist aktuell\n")
				return nil
			}
			for _, v := range applied {
				st.printf("angewendet: %s\n", v)
			}
			return nil
		},
	}
}

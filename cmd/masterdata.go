package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"invoice-desk/internal/backup"
	"invoice-desk/internal/invoicing/interfaces/pdf"
)

const (
	kindSupplier = "supplier"
	kindCustomer = "customer"
	kindArticle  = "article"
)

func newMasterdataCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "masterdata",
		Aliases: []string{"md"},
		Short:   "Suppliers, customers and articles",
	}

	save := &cobra.Command{
		Use:       "save <supplier|customer|article> <file.json|->",
		Short:     "Validate and save a record; id 0 inserts",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{kindSupplier, kindCustomer, kindArticle},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			md := st.desk.Masterdata
			switch args[0] {
			case kindSupplier:
				var rec backup.SupplierRecord
				if err := readJSON(args[1], &rec); err != nil {
					return err
				}
				s := backup.SupplierFromRecord(rec)
				if err := md.SaveSupplier(ctx, &s); err != nil {
					return err
				}
				st.printf("Lieferant %d gespeichert\n", s.ID)
			case kindCustomer:
				var rec backup.CustomerRecord
				if err := readJSON(args[1], &rec); err != nil {
					return err
				}
				c := backup.CustomerFromRecord(rec)
				if err := md.SaveCustomer(ctx, &c); err != nil {
					return err
				}
				st.printf("Kunde %s gespeichert\n", c.Number())
			case kindArticle:
				var rec backup.ArticleRecord
				if err := readJSON(args[1], &rec); err != nil {
					return err
				}
				a := backup.ArticleFromRecord(rec)
				if err := md.SaveArticle(ctx, &a); err != nil {
					return err
				}
				st.printf("Artikel %d gespeichert\n", a.ID)
			default:
				return fmt.Errorf("unknown kind %q", args[0])
			}
			return nil
		},
	}

	var query string
	list := &cobra.Command{
		Use:       "list <supplier|customer|article>",
		Short:     "List records",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{kindSupplier, kindCustomer, kindArticle},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			md := st.desk.Masterdata
			w := tabwriter.NewWriter(st.out, 0, 4, 2, ' ', 0)
			switch args[0] {
			case kindSupplier:
				suppliers, err := md.Suppliers(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "ID\tFirma\tOrt\tIBAN")
				for _, s := range suppliers {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", s.ID, s.Company, s.CityLine(), s.IBAN)
				}
			case kindCustomer:
				customers, err := md.Customers(ctx, query)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "Nr.\tName\tOrt\tE-Mail")
				for _, c := range customers {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Number(), c.DisplayName(), c.CityLine(), c.Email)
				}
			case kindArticle:
				articles, err := md.Articles(ctx, query)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "ID\tBezeichnung\tPreis\tMwSt\t§35a")
				for _, a := range articles {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n", a.ID, a.Name, pdf.FormatEUR(a.Price), pdf.FormatRate(a.TaxRate), a.Eligible)
				}
			default:
				return fmt.Errorf("unknown kind %q", args[0])
			}
			return w.Flush()
		},
	}
	list.Flags().StringVarP(&query, "query", "q", "", "search text (customers and articles)")

	cmd.AddCommand(save, list)
	return cmd
}

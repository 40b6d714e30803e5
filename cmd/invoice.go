package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"invoice-desk/internal/backup"
	invoicing "invoice-desk/internal/invoicing/domain"
	"invoice-desk/internal/invoicing/interfaces/pdf"
)

const inputDateLayout = "2006-01-02"

// invoiceInput is the JSON accepted by "invoice save".
type invoiceInput struct {
	ID              int64          `json:"id"`
	SupplierID      int64          `json:"supplier_id"`
	CustomerID      int64          `json:"customer_id"`
	Number          string         `json:"number"`
	Date            string         `json:"date"`
	Subject         string         `json:"subject"`
	Property        string         `json:"property"`
	ServiceDate     string         `json:"service_date"`
	ServicePeriod   string         `json:"service_period"`
	PaymentTermDays int            `json:"payment_term_days"`
	Discount        *discountInput `json:"discount"`
	ThankYouNote    string         `json:"thank_you_note"`
	Notes           string         `json:"notes"`
	Status          string         `json:"status"`
	Lines           []lineInput    `json:"lines"`
}

type discountInput struct {
	Kind  string          `json:"kind"`
	Value decimal.Decimal `json:"value"`
}

// lineInput copies name, price, rate and eligibility from article_id for fields left empty.
type lineInput struct {
	ArticleID   int64            `json:"article_id"`
	Description string           `json:"description"`
	Quantity    *decimal.Decimal `json:"quantity"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	TaxRate     *decimal.Decimal `json:"tax_rate"`
	Eligible    *bool            `json:"eligible"`
}

type invoiceView struct {
	Invoice backup.InvoiceRecord       `json:"invoice"`
	Lines   []backup.InvoiceLineRecord `json:"lines"`
	DueDate string                     `json:"due_date"`
}

func newInvoiceCommand(st *state) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Create, export and track invoices",
	}

	save := &cobra.Command{
		Use:   "save <file.json|->",
		Short: "Save an invoice; an empty number is allocated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in invoiceInput
			if err := readJSON(args[0], &in); err != nil {
				return err
			}
			inv, err := st.invoiceFromInput(cmd, in)
			if err != nil {
				return err
			}
			if err := st.desk.Invoices.Save(cmd.Context(), inv); err != nil {
				return err
			}
			st.printf("%s gespeichert (id %d, brutto %s)\n", inv.Number, inv.ID, pdf.FormatEUR(inv.Gross))
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print an invoice as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			inv, err := st.desk.Invoices.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			view := invoiceView{Invoice: backup.InvoiceToRecord(*inv), DueDate: inv.DueDate().Format(inputDateLayout)}
			for _, line := range inv.Lines {
				view.Lines = append(view.Lines, backup.LineToRecord(line))
			}
			return st.printJSON(view)
		},
	}

	var (
		query  string
		status string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List invoices newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			invoices, err := st.desk.Invoices.List(cmd.Context(), invoicing.SearchFilter{Query: query, Status: invoicing.Status(status)})
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(st.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNummer\tDatum\tBetreff\tStatus\tBrutto")
			for _, inv := range invoices {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
					inv.ID, inv.Number, pdf.FormatDate(inv.Date), inv.Subject, inv.Status.Label(), pdf.FormatEUR(inv.Gross))
			}
			return w.Flush()
		},
	}
	list.Flags().StringVarP(&query, "query", "q", "", "search number, subject and property")
	list.Flags().StringVar(&status, "status", "", "filter by status (draft, sent, paid)")

	totals := &cobra.Command{
		Use:   "totals <id>",
		Short: "Print the totals breakdown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			t, err := st.desk.Invoices.Totals(cmd.Context(), id)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(st.out, 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintf(w, "Netto\t%s\t\n", pdf.FormatEUR(t.Net))
			if t.Discount.IsPositive() {
				fmt.Fprintf(w, "Rabatt\t-%s\t\n", pdf.FormatEUR(t.Discount))
				fmt.Fprintf(w, "Netto nach Rabatt\t%s\t\n", pdf.FormatEUR(t.NetAfterDiscount))
			}
			for _, tax := range t.Taxes {
				fmt.Fprintf(w, "MwSt %s auf %s\t%s\t\n", pdf.FormatRate(tax.Rate), pdf.FormatEUR(tax.Base), pdf.FormatEUR(tax.Amount))
			}
			fmt.Fprintf(w, "Brutto\t%s\t\n", pdf.FormatEUR(t.Gross))
			if t.EligibleSubtotal.IsPositive() {
				fmt.Fprintf(w, "§35a EStG\t%s\t\n", pdf.FormatEUR(t.EligibleSubtotal))
			}
			return w.Flush()
		},
	}

	var embed bool
	export := &cobra.Command{
		Use:   "export <id>",
		Short: "Render the PDF and mark a draft as sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("einvoice") {
				embed = st.cfg.EInvoice.EmbedByDefault
			}
			res, err := st.desk.Invoices.Export(cmd.Context(), id, embed)
			if err != nil {
				return err
			}
			st.printf("%s\n", res.Path)
			if res.EmbedErr != nil {
				st.printf("Warnung: E-Rechnung nicht eingebettet: %v\n", res.EmbedErr)
			}
			return nil
		},
	}
	export.Flags().BoolVar(&embed, "einvoice", true, "embed Factur-X XML")

	advance := &cobra.Command{
		Use:   "advance <id>",
		Short: "Move to the next status; paid stays paid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			status, err := st.desk.Invoices.Advance(cmd.Context(), id)
			if err != nil {
				return err
			}
			st.printf("%s\n", status.Label())
			return nil
		},
	}

	setStatus := &cobra.Command{
		Use:       "status <id> <draft|sent|paid>",
		Short:     "Set the status; moving backwards is rejected",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(invoicing.StatusDraft), string(invoicing.StatusSent), string(invoicing.StatusPaid)},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			status, err := invoicing.ParseStatus(args[1])
			if err != nil {
				return err
			}
			return st.desk.Invoices.SetStatus(cmd.Context(), id, status)
		},
	}

	duplicate := &cobra.Command{
		Use:   "duplicate <id>",
		Short: "Copy an invoice as a new draft with a fresh number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			inv, err := st.desk.Invoices.Duplicate(cmd.Context(), id)
			if err != nil {
				return err
			}
			st.printf("%s angelegt (id %d)\n", inv.Number, inv.ID)
			return nil
		},
	}

	remove := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an invoice; its number stays consumed",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return st.desk.Invoices.Delete(cmd.Context(), id)
		},
	}

	cmd.AddCommand(save, show, list, totals, export, advance, setStatus, duplicate, remove)
	return cmd
}

func (st *state) invoiceFromInput(cmd *cobra.Command, in invoiceInput) (*invoicing.Invoice, error) {
	inv := &invoicing.Invoice{
		ID:              in.ID,
		SupplierID:      in.SupplierID,
		CustomerID:      in.CustomerID,
		Number:          strings.TrimSpace(in.Number),
		Subject:         in.Subject,
		Property:        in.Property,
		ServicePeriod:   in.ServicePeriod,
		PaymentTermDays: in.PaymentTermDays,
		ThankYouNote:    in.ThankYouNote,
		Notes:           in.Notes,
		Status:          invoicing.Status(in.Status),
	}
	var err error
	if inv.Date, err = parseDate(in.Date); err != nil {
		return nil, fmt.Errorf("date: %w", err)
	}
	if inv.ServiceDate, err = parseDate(in.ServiceDate); err != nil {
		return nil, fmt.Errorf("service_date: %w", err)
	}
	if in.Discount != nil {
		inv.Discount = &invoicing.Discount{Kind: invoicing.DiscountKind(in.Discount.Kind), Value: in.Discount.Value}
	}
	for i, l := range in.Lines {
		line := invoicing.InvoiceLine{
			ArticleID:   l.ArticleID,
			Description: l.Description,
			Quantity:    decimal.NewFromInt(1),
			TaxRate:     decimal.NewFromInt(19),
		}
		if l.ArticleID != 0 {
			article, err := st.desk.Masterdata.Article(cmd.Context(), l.ArticleID)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
			if line.Description == "" {
				line.Description = article.Name
			}
			line.UnitPrice = article.Price
			line.TaxRate = article.TaxRate
			line.Eligible = article.Eligible
		}
		if l.Quantity != nil {
			line.Quantity = *l.Quantity
		}
		if l.UnitPrice != nil {
			line.UnitPrice = *l.UnitPrice
		}
		if l.TaxRate != nil {
			line.TaxRate = *l.TaxRate
		}
		if l.Eligible != nil {
			line.Eligible = *l.Eligible
		}
		inv.Lines = append(inv.Lines, line)
	}
	return inv, nil
}

func parseDate(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	return time.Parse(inputDateLayout, strings.TrimSpace(value))
}

func parseID(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", value)
	}
	return id, nil
}

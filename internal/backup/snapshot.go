// Package backup exports and restores the complete record store as one JSON document.
package backup

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	invoicing "invoice-desk/internal/invoicing/domain"
	masterdata "invoice-desk/internal/masterdata/domain"
)

// FormatVersion is written to every snapshot.
const FormatVersion = "1.0"

const dateLayout = "2006-01-02"

var (
	// ErrInvalidSnapshot indicates an unreadable or inconsistent backup file.
	ErrInvalidSnapshot = errors.New("backup: invalid snapshot")
	// ErrUnsupportedVersion indicates a snapshot written by an incompatible format.
	ErrUnsupportedVersion = errors.New("backup: unsupported snapshot version")
)

// Snapshot is the on-disk backup document.
type Snapshot struct {
	Meta           Meta                  `json:"meta"`
	Suppliers      []SupplierRecord      `json:"suppliers"`
	Customers      []CustomerRecord      `json:"customers"`
	Articles       []ArticleRecord       `json:"articles"`
	Invoices       []InvoiceRecord       `json:"invoices"`
	InvoiceLines   []InvoiceLineRecord   `json:"invoice_lines"`
	InvoiceNumbers []InvoiceNumberRecord `json:"invoice_numbers"`
}

// Meta identifies the format and export time.
type Meta struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
}

// SupplierRecord mirrors the suppliers table.
type SupplierRecord struct {
	ID           int64     `json:"id"`
	Company      string    `json:"company"`
	Owner        string    `json:"owner"`
	Street       string    `json:"street"`
	PostalCode   string    `json:"postal_code"`
	City         string    `json:"city"`
	POBox        string    `json:"po_box"`
	Phone        string    `json:"phone"`
	Phone2       string    `json:"phone2"`
	Mobile       string    `json:"mobile"`
	Fax          string    `json:"fax"`
	Email        string    `json:"email"`
	Web          string    `json:"web"`
	TaxNumber    string    `json:"tax_number"`
	VATID        string    `json:"vat_id"`
	Bank         string    `json:"bank"`
	IBAN         string    `json:"iban"`
	BIC          string    `json:"bic"`
	LogoPath     string    `json:"logo_path"`
	ThankYouNote string    `json:"thank_you_note"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CustomerRecord mirrors the customers table.
type CustomerRecord struct {
	ID         int64     `json:"id"`
	Salutation string    `json:"salutation"`
	Title      string    `json:"title"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Company    string    `json:"company"`
	Street     string    `json:"street"`
	PostalCode string    `json:"postal_code"`
	City       string    `json:"city"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ArticleRecord mirrors the articles table.
type ArticleRecord struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Eligible    bool            `json:"eligible"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// InvoiceRecord mirrors the invoices table.
type InvoiceRecord struct {
	ID               int64           `json:"id"`
	SupplierID       int64           `json:"supplier_id"`
	CustomerID       int64           `json:"customer_id"`
	Number           string          `json:"number"`
	InvoiceDate      string          `json:"invoice_date"`
	Subject          string          `json:"subject"`
	Property         string          `json:"property"`
	ServiceDate      *string         `json:"service_date"`
	ServicePeriod    string          `json:"service_period"`
	PaymentTermDays  int             `json:"payment_term_days"`
	DiscountKind     *string         `json:"discount_kind"`
	DiscountValue    decimal.Decimal `json:"discount_value"`
	ThankYouNote     string          `json:"thank_you_note"`
	Notes            string          `json:"notes"`
	Status           string          `json:"status"`
	Net              decimal.Decimal `json:"net"`
	TaxTotal         decimal.Decimal `json:"tax_total"`
	Gross            decimal.Decimal `json:"gross"`
	EligibleSubtotal decimal.Decimal `json:"eligible_subtotal"`
	PDFPath          string          `json:"pdf_path"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// InvoiceLineRecord mirrors the invoice_lines table.
type InvoiceLineRecord struct {
	ID          int64           `json:"id"`
	InvoiceID   int64           `json:"invoice_id"`
	Position    int             `json:"position"`
	ArticleID   *int64          `json:"article_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxRate     decimal.Decimal `json:"tax_rate"`
	Eligible    bool            `json:"eligible"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// InvoiceNumberRecord mirrors the invoice_numbers table.
type InvoiceNumberRecord struct {
	Year         int `json:"year"`
	LastSequence int `json:"last_sequence"`
}

// Data is the store content in domain form.
type Data struct {
	Suppliers []masterdata.Supplier
	Customers []masterdata.Customer
	Articles  []masterdata.Article
	Counters  []invoicing.YearCounter
	Invoices  []invoicing.Invoice
}

// NewSnapshot maps store content to a snapshot.
func NewSnapshot(data *Data, exportedAt time.Time) *Snapshot {
	snap := &Snapshot{
		Meta:           Meta{Version: FormatVersion, ExportedAt: exportedAt},
		Suppliers:      make([]SupplierRecord, 0, len(data.Suppliers)),
		Customers:      make([]CustomerRecord, 0, len(data.Customers)),
		Articles:       make([]ArticleRecord, 0, len(data.Articles)),
		Invoices:       make([]InvoiceRecord, 0, len(data.Invoices)),
		InvoiceLines:   []InvoiceLineRecord{},
		InvoiceNumbers: make([]InvoiceNumberRecord, 0, len(data.Counters)),
	}
	for _, s := range data.Suppliers {
		snap.Suppliers = append(snap.Suppliers, SupplierToRecord(s))
	}
	for _, c := range data.Customers {
		snap.Customers = append(snap.Customers, CustomerToRecord(c))
	}
	for _, a := range data.Articles {
		snap.Articles = append(snap.Articles, ArticleToRecord(a))
	}
	for _, inv := range data.Invoices {
		snap.Invoices = append(snap.Invoices, InvoiceToRecord(inv))
		for _, line := range inv.Lines {
			snap.InvoiceLines = append(snap.InvoiceLines, LineToRecord(line))
		}
	}
	for _, c := range data.Counters {
		snap.InvoiceNumbers = append(snap.InvoiceNumbers, InvoiceNumberRecord{Year: c.Year, LastSequence: c.LastSequence})
	}
	return snap
}

// CheckVersion accepts snapshots of the current major format.
func (s *Snapshot) CheckVersion() error {
	major, _, _ := strings.Cut(s.Meta.Version, ".")
	current, _, _ := strings.Cut(FormatVersion, ".")
	if s.Meta.Version == "" || major != current {
		return fmt.Errorf("%w: %q", ErrUnsupportedVersion, s.Meta.Version)
	}
	return nil
}

// SupplierToRecord maps a supplier to its record.
func SupplierToRecord(s masterdata.Supplier) SupplierRecord {
	return SupplierRecord{
		ID: s.ID, Company: s.Company, Owner: s.Owner, Street: s.Street, PostalCode: s.PostalCode,
		City: s.City, POBox: s.POBox, Phone: s.Phone, Phone2: s.Phone2, Mobile: s.Mobile, Fax: s.Fax,
		Email: s.Email, Web: s.Web, TaxNumber: s.TaxNumber, VATID: s.VATID, Bank: s.Bank, IBAN: s.IBAN,
		BIC: s.BIC, LogoPath: s.LogoPath, ThankYouNote: s.ThankYouNote, CreatedAt: s.CreatedAt, UpdatedAt: s.UpdatedAt,
	}
}

// SupplierFromRecord maps a record to a supplier.
func SupplierFromRecord(r SupplierRecord) masterdata.Supplier {
	return masterdata.Supplier{
		ID: r.ID, Company: r.Company, Owner: r.Owner, Street: r.Street, PostalCode: r.PostalCode,
		City: r.City, POBox: r.POBox, Phone: r.Phone, Phone2: r.Phone2, Mobile: r.Mobile, Fax: r.Fax,
		Email: r.Email, Web: r.Web, TaxNumber: r.TaxNumber, VATID: r.VATID, Bank: r.Bank, IBAN: r.IBAN,
		BIC: r.BIC, LogoPath: r.LogoPath, ThankYouNote: r.ThankYouNote, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

// CustomerToRecord maps a customer to its record.
func CustomerToRecord(c masterdata.Customer) CustomerRecord {
	return CustomerRecord{
		ID: c.ID, Salutation: c.Salutation, Title: c.Title, FirstName: c.FirstName, LastName: c.LastName,
		Company: c.Company, Street: c.Street, PostalCode: c.PostalCode, City: c.City, Email: c.Email,
		Phone: c.Phone, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt,
	}
}

// CustomerFromRecord maps a record to a customer.
func CustomerFromRecord(r CustomerRecord) masterdata.Customer {
	return masterdata.Customer{
		ID: r.ID, Salutation: r.Salutation, Title: r.Title, FirstName: r.FirstName, LastName: r.LastName,
		Company: r.Company, Street: r.Street, PostalCode: r.PostalCode, City: r.City, Email: r.Email,
		Phone: r.Phone, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

// ArticleToRecord maps an article to its record.
func ArticleToRecord(a masterdata.Article) ArticleRecord {
	return ArticleRecord{
		ID: a.ID, Name: a.Name, Description: a.Description, Price: a.Price, TaxRate: a.TaxRate,
		Eligible: a.Eligible, CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt,
	}
}

// ArticleFromRecord maps a record to an article.
func ArticleFromRecord(r ArticleRecord) masterdata.Article {
	return masterdata.Article{
		ID: r.ID, Name: r.Name, Description: r.Description, Price: r.Price, TaxRate: r.TaxRate,
		Eligible: r.Eligible, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

// InvoiceToRecord maps an invoice header to its record; lines are mapped separately.
func InvoiceToRecord(inv invoicing.Invoice) InvoiceRecord {
	r := InvoiceRecord{
		ID:               inv.ID,
		SupplierID:       inv.SupplierID,
		CustomerID:       inv.CustomerID,
		Number:           inv.Number,
		InvoiceDate:      inv.Date.Format(dateLayout),
		Subject:          inv.Subject,
		Property:         inv.Property,
		ServicePeriod:    inv.ServicePeriod,
		PaymentTermDays:  inv.PaymentTermDays,
		DiscountValue:    decimal.Zero,
		ThankYouNote:     inv.ThankYouNote,
		Notes:            inv.Notes,
		Status:           string(inv.Status),
		Net:              inv.Net,
		TaxTotal:         inv.TaxTotal,
		Gross:            inv.Gross,
		EligibleSubtotal: inv.EligibleSubtotal,
		PDFPath:          inv.PDFPath,
		CreatedAt:        inv.CreatedAt,
		UpdatedAt:        inv.UpdatedAt,
	}
	if !inv.ServiceDate.IsZero() {
		d := inv.ServiceDate.Format(dateLayout)
		r.ServiceDate = &d
	}
	if inv.Discount != nil {
		kind := string(inv.Discount.Kind)
		r.DiscountKind = &kind
		r.DiscountValue = inv.Discount.Value
	}
	return r
}

// InvoiceFromRecord maps a record to an invoice header.
func InvoiceFromRecord(r InvoiceRecord) (invoicing.Invoice, error) {
	date, err := time.Parse(dateLayout, r.InvoiceDate)
	if err != nil {
		return invoicing.Invoice{}, fmt.Errorf("%w: invoice %d date %q", ErrInvalidSnapshot, r.ID, r.InvoiceDate)
	}
	status, err := invoicing.ParseStatus(r.Status)
	if err != nil {
		return invoicing.Invoice{}, fmt.Errorf("%w: invoice %d: %v", ErrInvalidSnapshot, r.ID, err)
	}
	inv := invoicing.Invoice{
		ID:               r.ID,
		SupplierID:       r.SupplierID,
		CustomerID:       r.CustomerID,
		Number:           r.Number,
		Date:             date,
		Subject:          r.Subject,
		Property:         r.Property,
		ServicePeriod:    r.ServicePeriod,
		PaymentTermDays:  r.PaymentTermDays,
		ThankYouNote:     r.ThankYouNote,
		Notes:            r.Notes,
		Status:           status,
		Net:              r.Net,
		TaxTotal:         r.TaxTotal,
		Gross:            r.Gross,
		EligibleSubtotal: r.EligibleSubtotal,
		PDFPath:          r.PDFPath,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if r.ServiceDate != nil && *r.ServiceDate != "" {
		serviceDate, err := time.Parse(dateLayout, *r.ServiceDate)
		if err != nil {
			return invoicing.Invoice{}, fmt.Errorf("%w: invoice %d service date %q", ErrInvalidSnapshot, r.ID, *r.ServiceDate)
		}
		inv.ServiceDate = serviceDate
	}
	if r.DiscountKind != nil && *r.DiscountKind != "" {
		kind := invoicing.DiscountKind(*r.DiscountKind)
		if !kind.Valid() {
			return invoicing.Invoice{}, fmt.Errorf("%w: invoice %d discount kind %q", ErrInvalidSnapshot, r.ID, kind)
		}
		inv.Discount = &invoicing.Discount{Kind: kind, Value: r.DiscountValue}
	}
	return inv, nil
}

// LineToRecord maps an invoice line to its record.
func LineToRecord(l invoicing.InvoiceLine) InvoiceLineRecord {
	r := InvoiceLineRecord{
		ID:          l.ID,
		InvoiceID:   l.InvoiceID,
		Position:    l.Position,
		Description: l.Description,
		Quantity:    l.Quantity,
		UnitPrice:   l.UnitPrice,
		TaxRate:     l.TaxRate,
		Eligible:    l.Eligible,
		LineTotal:   l.Total(),
	}
	if l.ArticleID != 0 {
		id := l.ArticleID
		r.ArticleID = &id
	}
	return r
}

// LineFromRecord maps a record to an invoice line. The stored line total is derived and ignored.
func LineFromRecord(r InvoiceLineRecord) invoicing.InvoiceLine {
	l := invoicing.InvoiceLine{
		ID:          r.ID,
		InvoiceID:   r.InvoiceID,
		Position:    r.Position,
		Description: r.Description,
		Quantity:    r.Quantity,
		UnitPrice:   r.UnitPrice,
		TaxRate:     r.TaxRate,
		Eligible:    r.Eligible,
	}
	if r.ArticleID != nil {
		l.ArticleID = *r.ArticleID
	}
	return l
}

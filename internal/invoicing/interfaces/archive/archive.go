package archive

import (
	"bytes"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	invoicing "invoice-desk/internal/invoicing/domain"
)

const (
	invoicesSheet = "Rechnungen"
	totalsSheet   = "Summen"
	moneyFormat   = `#,##0.00 "€"`
	dateFormat    = "dd.mm.yyyy"
)

// Row is one archived invoice.
type Row struct {
	Number   string
	Date     time.Time
	Customer string
	Subject  string
	Status   invoicing.Status
	Net      decimal.Decimal
	Tax      decimal.Decimal
	Gross    decimal.Decimal
	Eligible decimal.Decimal
	PDFPath  string
}

// CustomerNames resolves a customer id to its printed name.
type CustomerNames func(id int64) string

// RowsFrom maps stored invoices to archive rows.
func RowsFrom(invoices []invoicing.Invoice, names CustomerNames) []Row {
	rows := make([]Row, 0, len(invoices))
	for _, inv := range invoices {
		customer := ""
		if names != nil {
			customer = names(inv.CustomerID)
		}
		rows = append(rows, Row{
			Number:   inv.Number,
			Date:     inv.Date,
			Customer: customer,
			Subject:  inv.Subject,
			Status:   inv.Status,
			Net:      inv.Net,
			Tax:      inv.TaxTotal,
			Gross:    inv.Gross,
			Eligible: inv.EligibleSubtotal,
			PDFPath:  inv.PDFPath,
		})
	}
	return rows
}

// BuildArchiveXLSX renders the archive list and per-status sums.
func BuildArchiveXLSX(rows []Row) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", invoicesSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(totalsSheet); err != nil {
		return nil, err
	}
	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(moneyFormat)})
	if err != nil {
		return nil, err
	}
	date, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr(dateFormat)})
	if err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	header := []any{"Rechnungsnr.", "Datum", "Kunde", "Betreff", "Status", "Netto", "MwSt", "Brutto", "§35a", "PDF"}
	if err := f.SetSheetRow(invoicesSheet, "A1", &header); err != nil {
		return nil, err
	}
	_ = f.SetCellStyle(invoicesSheet, "A1", "J1", bold)

	for i, r := range rows {
		n := i + 2
		values := []any{
			r.Number,
			r.Date,
			r.Customer,
			r.Subject,
			r.Status.Label(),
			r.Net.InexactFloat64(),
			r.Tax.InexactFloat64(),
			r.Gross.InexactFloat64(),
			r.Eligible.InexactFloat64(),
			r.PDFPath,
		}
		if err := f.SetSheetRow(invoicesSheet, fmt.Sprintf("A%d", n), &values); err != nil {
			return nil, err
		}
	}
	if len(rows) > 0 {
		last := len(rows) + 1
		_ = f.SetCellStyle(invoicesSheet, "B2", fmt.Sprintf("B%d", last), date)
		_ = f.SetCellStyle(invoicesSheet, "F2", fmt.Sprintf("I%d", last), money)
	}
	_ = f.SetColWidth(invoicesSheet, "A", "A", 16)
	_ = f.SetColWidth(invoicesSheet, "B", "B", 12)
	_ = f.SetColWidth(invoicesSheet, "C", "D", 30)
	_ = f.SetColWidth(invoicesSheet, "F", "I", 14)
	_ = f.SetColWidth(invoicesSheet, "J", "J", 50)

	if err := writeTotals(f, rows, money, bold); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// StatusSum aggregates invoices in one status.
type StatusSum struct {
	Status invoicing.Status
	Count  int
	Gross  decimal.Decimal
}

// SumByStatus returns one entry per lifecycle status in lifecycle order.
func SumByStatus(rows []Row) []StatusSum {
	sums := []StatusSum{
		{Status: invoicing.StatusDraft, Gross: decimal.Zero},
		{Status: invoicing.StatusSent, Gross: decimal.Zero},
		{Status: invoicing.StatusPaid, Gross: decimal.Zero},
	}
	for _, r := range rows {
		for i := range sums {
			if sums[i].Status == r.Status {
				sums[i].Count++
				sums[i].Gross = sums[i].Gross.Add(r.Gross)
			}
		}
	}
	return sums
}

func writeTotals(f *excelize.File, rows []Row, money, bold int) error {
	header := []any{"Status", "Anzahl", "Brutto"}
	if err := f.SetSheetRow(totalsSheet, "A1", &header); err != nil {
		return err
	}
	_ = f.SetCellStyle(totalsSheet, "A1", "C1", bold)

	count := 0
	gross := decimal.Zero
	n := 2
	for _, sum := range SumByStatus(rows) {
		values := []any{sum.Status.Label(), sum.Count, sum.Gross.InexactFloat64()}
		if err := f.SetSheetRow(totalsSheet, fmt.Sprintf("A%d", n), &values); err != nil {
			return err
		}
		count += sum.Count
		gross = gross.Add(sum.Gross)
		n++
	}
	total := []any{"Gesamt", count, gross.InexactFloat64()}
	if err := f.SetSheetRow(totalsSheet, fmt.Sprintf("A%d", n), &total); err != nil {
		return err
	}
	_ = f.SetCellStyle(totalsSheet, fmt.Sprintf("A%d", n), fmt.Sprintf("C%d", n), bold)
	_ = f.SetCellStyle(totalsSheet, "C2", fmt.Sprintf("C%d", n-1), money)
	_ = f.SetColWidth(totalsSheet, "A", "A", 14)
	_ = f.SetColWidth(totalsSheet, "C", "C", 14)
	return nil
}

func strPtr(s string) *string { return &s }

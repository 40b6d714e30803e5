package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/rs/zerolog"

	"invoice-desk/internal/invoicing/application"
	invoicing "invoice-desk/internal/invoicing/domain"
)

const (
	pageW        = 210.0
	pageH        = 297.0
	marginL      = 20.0
	marginR      = 20.0
	marginT      = 15.0
	footerTop    = pageH - 32.0
	breakMargin  = pageH - footerTop + 3.0
	usableW      = pageW - marginL - marginR
	logoMaxW     = 50.0
	logoMaxH     = 25.0
	lineH        = 4.2
	smallLineH   = 3.4
	tableLineH   = 4.0
	tablePadding = 1.2
)

type rgb struct{ r, g, b int }

var (
	colorText     = rgb{17, 24, 39}
	colorGray     = rgb{107, 114, 128}
	colorLine     = rgb{209, 213, 219}
	colorRowLine  = rgb{229, 231, 235}
	colorHeaderBG = rgb{243, 244, 246}
	colorAccent   = rgb{30, 64, 175}
	color35aBG    = rgb{240, 253, 244}
	color35aLine  = rgb{187, 247, 208}
	colorWarn     = rgb{217, 119, 6}
	colorNote     = rgb{55, 65, 81}
)

// position table column widths: Pos., Beschreibung, Menge, Einzelpreis, MwSt, Gesamt.
var columns = [6]float64{10, 75, 20, 25, 15, 25}

// Renderer writes invoice PDFs into month folders below a documents directory.
type Renderer struct {
	documentsDir string
	logger       zerolog.Logger
}

// Option configures the renderer.
type Option func(*Renderer)

// WithLogger sets the renderer logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Renderer) { r.logger = logger }
}

// NewRenderer constructs a renderer rooted at documentsDir.
func NewRenderer(documentsDir string, opts ...Option) (*Renderer, error) {
	if strings.TrimSpace(documentsDir) == "" {
		return nil, errors.New("pdf renderer: empty documents dir")
	}
	r := &Renderer{documentsDir: documentsDir, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// PathFor returns where the document for inv is written.
func (r *Renderer) PathFor(inv *invoicing.Invoice) string {
	return DocumentPath(r.documentsDir, inv.Number, inv.Date)
}

// Render builds the document and writes it to PathFor.
func (r *Renderer) Render(ctx context.Context, doc application.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if doc.Invoice == nil {
		return "", invoicing.ErrNilInvoice
	}
	data, err := Build(doc)
	if err != nil {
		return "", err
	}
	path := r.PathFor(doc.Invoice)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create month folder: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write pdf: %w", err)
	}
	r.logger.Debug().Str("path", path).Int("bytes", len(data)).Msg("pdf written")
	return path, nil
}

// Build renders the invoice to PDF bytes, embedding any attachments.
func Build(doc application.Document, attachments ...gofpdf.Attachment) ([]byte, error) {
	if doc.Invoice == nil {
		return nil, invoicing.ErrNilInvoice
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	l := &layout{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), doc: doc}

	pdf.SetMargins(marginL, marginT, marginR)
	pdf.SetAutoPageBreak(true, breakMargin)
	pdf.AliasNbPages("{nb}")
	pdf.SetTitle(doc.Invoice.Number, true)
	pdf.SetAuthor(doc.Supplier.Company, true)
	pdf.SetCreator("invoice-desk", true)
	pdf.SetFooterFunc(l.footer)
	if len(attachments) > 0 {
		pdf.SetAttachments(attachments)
	}
	pdf.AddPage()

	l.header()
	l.addresses()
	l.intro()
	l.positions()
	l.totals()
	l.eligibleBox()
	l.closing()

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

type layout struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
	doc application.Document
}

func (l *layout) font(style string, size float64, c rgb) {
	l.pdf.SetFont("Helvetica", style, size)
	l.pdf.SetTextColor(c.r, c.g, c.b)
}

func (l *layout) text(x, y, w, h float64, s, align string) {
	l.pdf.SetXY(x, y)
	l.pdf.CellFormat(w, h, l.tr(s), "", 0, align, false, 0, "")
}

func (l *layout) hline(y, width float64, c rgb) {
	l.pdf.SetDrawColor(c.r, c.g, c.b)
	l.pdf.SetLineWidth(width)
	l.pdf.Line(marginL, y, pageW-marginR, y)
}

func (l *layout) wrapped(s string, w float64) int {
	return len(l.pdf.SplitLines([]byte(l.tr(s)), w))
}

// ensure starts a new page unless h millimetres fit above the footer.
func (l *layout) ensure(h float64) bool {
	if l.pdf.GetY()+h <= footerTop-3 {
		return false
	}
	l.pdf.AddPage()
	return true
}

func (l *layout) header() {
	s := l.doc.Supplier
	top := marginT
	logoBottom := top

	if info, ok := loadLogo(l.pdf, s.LogoPath); ok {
		w, h := info.Width(), info.Height()
		scale := math.Min(logoMaxW/w, logoMaxH/h)
		l.pdf.ImageOptions(s.LogoPath, marginL, top, w*scale, h*scale, false, gofpdf.ImageOptions{ReadDpi: true}, 0, "")
		logoBottom = top + h*scale
	}

	x := marginL + 55
	w := usableW - 55
	y := top
	l.font("B", 14, colorText)
	l.text(x, y, w, 6, s.Company, "R")
	y += 6.5
	l.font("", 9, colorGray)
	for _, line := range []string{s.Owner, s.Street, s.CityLine()} {
		if line == "" {
			continue
		}
		l.text(x, y, w, lineH, line, "R")
		y += lineH
	}
	l.font("", 7, colorGray)
	if s.Phone != "" {
		l.text(x, y, w, smallLineH, "Tel: "+s.Phone, "R")
		y += smallLineH
	}
	if s.Email != "" {
		l.text(x, y, w, smallLineH, s.Email, "R")
		y += smallLineH
	}

	y = math.Max(y, logoBottom) + 3
	l.hline(y, 0.2, colorLine)
	y += 2

	sender := []string{s.Company}
	if s.Street != "" {
		sender = append(sender, s.Street)
	}
	if city := s.CityLine(); city != "" {
		sender = append(sender, city)
	}
	l.font("", 7, colorGray)
	l.text(marginL, y, usableW, smallLineH, strings.Join(sender, " · "), "L")
	l.pdf.SetY(y + smallLineH + 3)
}

func (l *layout) addresses() {
	c := l.doc.Customer
	inv := l.doc.Invoice
	top := l.pdf.GetY()

	l.font("", 10, colorText)
	y := top
	recipient := []string{c.Company}
	if name := strings.TrimSpace(strings.Join([]string{c.Salutation, c.Title, c.FirstName, c.LastName}, " ")); name != "" && name != c.Company {
		recipient = append(recipient, strings.Join(strings.Fields(name), " "))
	}
	recipient = append(recipient, c.Street, c.CityLine())
	for _, line := range recipient {
		if line == "" {
			continue
		}
		l.text(marginL, y, usableW-75, lineH+0.4, line, "L")
		y += lineH + 0.4
	}

	rows := [][2]string{
		{"Rechnungsnr.", inv.Number},
		{"Rechnungsdatum", FormatDate(inv.Date)},
		{"Kunden-Nr.", c.Number()},
	}
	if due := inv.DueDate(); !due.IsZero() {
		rows = append(rows, [2]string{"Zahlbar bis", FormatDate(due)})
	}
	infoX := pageW - marginR - 70
	infoY := top
	for i, row := range rows {
		l.font("", 9, colorGray)
		l.text(infoX, infoY, 30, lineH+0.6, row[0], "L")
		if i == 0 {
			l.font("B", 10, colorText)
		} else {
			l.font("", 10, colorText)
		}
		l.text(infoX+30, infoY, 40, lineH+0.6, row[1], "R")
		infoY += lineH + 0.6
	}

	l.pdf.SetY(math.Max(y, infoY) + 8)
}

func (l *layout) intro() {
	inv := l.doc.Invoice
	paragraph := func(style string, size float64, s string) {
		l.font(style, size, colorText)
		l.pdf.SetX(marginL)
		l.pdf.MultiCell(usableW, size*0.5, l.tr(s), "", "L", false)
		l.pdf.Ln(3)
	}
	if inv.Subject != "" {
		paragraph("B", 12, inv.Subject)
	}
	if inv.Property != "" {
		paragraph("", 10, "Objekt: "+inv.Property)
	}
	switch {
	case !inv.ServiceDate.IsZero():
		paragraph("", 10, "Leistungsdatum: "+FormatDate(inv.ServiceDate))
	case inv.ServicePeriod != "":
		paragraph("", 10, "Leistungszeitraum: "+inv.ServicePeriod)
	}
}

func (l *layout) tableHeader() {
	y := l.pdf.GetY()
	h := tableLineH + 2*tablePadding
	l.pdf.SetFillColor(colorHeaderBG.r, colorHeaderBG.g, colorHeaderBG.b)
	l.pdf.Rect(marginL, y, usableW, h, "F")
	l.hline(y, 0.26, colorLine)
	l.hline(y+h, 0.26, colorLine)

	l.font("B", 9, colorText)
	titles := [6]string{"Pos.", "Beschreibung", "Menge", "Einzelpreis", "MwSt", "Gesamt"}
	aligns := [6]string{"R", "L", "R", "R", "R", "R"}
	x := marginL
	for i, title := range titles {
		l.text(x, y, columns[i], h, title, aligns[i])
		x += columns[i]
	}
	l.pdf.SetY(y + h)
}

func (l *layout) positions() {
	lines := l.doc.Invoice.Lines
	l.tableHeader()
	l.font("", 9, colorText)

	for i, line := range lines {
		descW := columns[1] - 2
		rowH := float64(l.wrapped(line.Description, descW))*tableLineH + 2*tablePadding
		if l.ensure(rowH) {
			l.tableHeader()
			l.font("", 9, colorText)
		}
		y := l.pdf.GetY()
		x := marginL

		cells := [6]string{
			fmt.Sprintf("%d", line.Position),
			"",
			FormatQuantity(line.Quantity),
			FormatEUR(line.UnitPrice),
			FormatRate(line.TaxRate),
			FormatEUR(line.Total()),
		}
		aligns := [6]string{"R", "L", "R", "R", "R", "R"}
		for c, cell := range cells {
			if c == 1 {
				l.pdf.SetXY(x+1, y+tablePadding)
				l.pdf.MultiCell(descW, tableLineH, l.tr(line.Description), "", "L", false)
			} else {
				l.text(x, y+tablePadding, columns[c], tableLineH, cell, aligns[c])
			}
			x += columns[c]
		}

		if i == len(lines)-1 {
			l.hline(y+rowH, 0.35, colorText)
		} else {
			l.hline(y+rowH, 0.18, colorRowLine)
		}
		l.pdf.SetY(y + rowH)
	}
	l.pdf.Ln(6)
}

func (l *layout) totals() {
	t := l.doc.Totals
	inv := l.doc.Invoice

	type row struct {
		label, value string
		style        string
		color        rgb
	}
	rows := []row{{"Nettobetrag", FormatEUR(t.Net), "", colorText}}
	if t.Discount.IsPositive() {
		label := "Rabatt"
		if inv.Discount != nil && inv.Discount.Kind == invoicing.DiscountPercentage {
			label = fmt.Sprintf("Rabatt (%s)", FormatRate(inv.Discount.Value))
		}
		rows = append(rows,
			row{label, "-" + FormatEUR(t.Discount), "", colorWarn},
			row{"Netto nach Rabatt", FormatEUR(t.NetAfterDiscount), "B", colorText},
		)
	}
	for _, tax := range t.Taxes {
		rows = append(rows, row{fmt.Sprintf("zzgl. %s MwSt", FormatRate(tax.Rate)), FormatEUR(tax.Amount), "", colorText})
	}

	rowH := lineH + 1.4
	l.ensure(float64(len(rows)+1)*rowH + 4)
	x := pageW - marginR - 75
	y := l.pdf.GetY()
	for _, r := range rows {
		l.font(r.style, 10, r.color)
		l.text(x, y, 45, rowH, r.label, "L")
		l.text(x+45, y, 30, rowH, r.value, "R")
		y += rowH
	}

	l.pdf.SetDrawColor(colorAccent.r, colorAccent.g, colorAccent.b)
	l.pdf.SetLineWidth(0.53)
	l.pdf.Line(x, y+0.5, pageW-marginR, y+0.5)
	y += 1.5
	l.font("B", 12, colorText)
	l.text(x, y, 45, rowH+1, "Bruttobetrag", "L")
	l.text(x+45, y, 30, rowH+1, FormatEUR(t.Gross), "R")
	l.pdf.SetY(y + rowH + 1 + 8)
}

func (l *layout) eligibleBox() {
	t := l.doc.Totals
	if !t.EligibleSubtotal.IsPositive() {
		return
	}
	const pad = 3.0
	innerW := usableW - 4 - 2*pad
	intro := fmt.Sprintf("In dem Rechnungsbetrag von %s sind folgende begünstigte Anteile enthalten:", FormatEUR(t.Gross))
	l.font("", 9, colorText)
	introLines := l.wrapped(intro, innerW)
	h := 2*pad + smallLineH + 2 + float64(introLines)*smallLineH + 2 + smallLineH + 1

	l.ensure(h)
	x := marginL
	y := l.pdf.GetY()
	l.pdf.SetFillColor(color35aBG.r, color35aBG.g, color35aBG.b)
	l.pdf.SetDrawColor(color35aLine.r, color35aLine.g, color35aLine.b)
	l.pdf.SetLineWidth(0.18)
	l.pdf.Rect(x, y, usableW-4, h, "FD")

	cy := y + pad
	l.font("B", 9, colorText)
	l.text(x+pad, cy, innerW, smallLineH, "Begünstigte Anteile nach §35a EStG", "L")
	cy += smallLineH + 2

	l.font("", 9, colorText)
	l.pdf.SetXY(x+pad, cy)
	l.pdf.MultiCell(innerW, smallLineH, l.tr(intro), "", "L", false)
	cy += float64(introLines)*smallLineH + 2

	l.font("B", 9, colorText)
	l.text(x+pad, cy, 50, smallLineH+1, "Lohn- & Geräteanteil §35a:", "L")
	l.text(x+pad+50, cy, 30, smallLineH+1, FormatEUR(t.EligibleSubtotal), "R")
	l.pdf.SetY(y + h + 8)
}

func (l *layout) closing() {
	inv := l.doc.Invoice
	if note := l.doc.ThankYouNote(); note != "" {
		l.font("", 10, colorNote)
		l.pdf.SetX(marginL)
		l.pdf.MultiCell(usableW, lineH+0.8, l.tr(note), "", "L", false)
		l.pdf.Ln(4)
	}
	if inv.Notes != "" {
		l.font("I", 9, colorGray)
		l.pdf.SetX(marginL)
		l.pdf.MultiCell(usableW, smallLineH+0.4, l.tr(inv.Notes), "", "L", false)
	}
}

func (l *layout) footer() {
	s := l.doc.Supplier
	l.hline(footerTop, 0.26, colorLine)

	col := usableW / 3
	blocks := []struct {
		title string
		lines []string
	}{
		{"Bankverbindung", nonEmpty(s.Bank, prefixed("IBAN: ", s.IBAN), prefixed("BIC: ", s.BIC))},
		{"Steuerdaten", nonEmpty(prefixed("St.-Nr.: ", s.TaxNumber), prefixed("USt-IdNr.: ", s.VATID))},
		{"Kontakt", nonEmpty(prefixed("Tel: ", s.Phone), prefixed("Fax: ", s.Fax), s.Email, s.Web)},
	}
	for i, block := range blocks {
		x := marginL + float64(i)*col
		y := footerTop + 2
		l.font("B", 7, colorGray)
		l.text(x, y, col, smallLineH, block.title, "L")
		l.font("", 7, colorGray)
		for _, line := range block.lines {
			y += smallLineH
			l.text(x, y, col, smallLineH, line, "L")
		}
	}

	l.font("", 7, colorGray)
	l.text(marginL, pageH-10, usableW, smallLineH, fmt.Sprintf("Seite %d/{nb}", l.pdf.PageNo()), "C")
}

// loadLogo registers the logo when it exists and decodes; otherwise the header has no logo.
func loadLogo(pdf *gofpdf.Fpdf, path string) (*gofpdf.ImageInfoType, bool) {
	if path == "" {
		return nil, false
	}
	if _, err := os.Stat(path); err != nil {
		return nil, false
	}
	probe := gofpdf.New("P", "mm", "A4", "")
	if probe.RegisterImageOptions(path, gofpdf.ImageOptions{ReadDpi: true}); !probe.Ok() {
		return nil, false
	}
	info := pdf.RegisterImageOptions(path, gofpdf.ImageOptions{ReadDpi: true})
	if info == nil || !pdf.Ok() || info.Width() <= 0 || info.Height() <= 0 {
		return nil, false
	}
	return info, true
}

func prefixed(prefix, value string) string {
	if value == "" {
		return ""
	}
	return prefix + value
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

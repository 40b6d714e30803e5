package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"invoice-desk/internal/audit"
	invoicing "invoice-desk/internal/invoicing/domain"
	masterdata "invoice-desk/internal/masterdata/domain"
	"invoice-desk/internal/observability/metrics"
	"invoice-desk/internal/validation"
)

// InvoiceService handles invoice use cases.
type InvoiceService struct {
	invoices  invoicing.InvoiceRepository
	numbers   *Allocator
	suppliers SupplierSource
	customers CustomerSource
	renderer  DocumentRenderer
	embedder  EInvoiceEmbedder
	clock     Clock
	audit     audit.Logger
	logger    zerolog.Logger
}

// InvoiceOption configures the service.
type InvoiceOption func(*InvoiceService)

// WithRenderer sets the document renderer used by Export.
func WithRenderer(renderer DocumentRenderer) InvoiceOption {
	return func(s *InvoiceService) { s.renderer = renderer }
}

// WithEmbedder sets the e-invoice embedder used by Export.
func WithEmbedder(embedder EInvoiceEmbedder) InvoiceOption {
	return func(s *InvoiceService) { s.embedder = embedder }
}

// WithClock overrides the clock used for default dates.
func WithClock(clock Clock) InvoiceOption {
	return func(s *InvoiceService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithAudit records invoice changes.
func WithAudit(logger audit.Logger) InvoiceOption {
	return func(s *InvoiceService) {
		if logger != nil {
			s.audit = logger
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) InvoiceOption {
	return func(s *InvoiceService) { s.logger = logger }
}

// NewInvoiceService constructs the service.
func NewInvoiceService(
	invoices invoicing.InvoiceRepository,
	numbers *Allocator,
	suppliers SupplierSource,
	customers CustomerSource,
	opts ...InvoiceOption,
) (*InvoiceService, error) {
	if invoices == nil {
		return nil, errors.New("invoice service: nil invoice repository")
	}
	if numbers == nil {
		return nil, errors.New("invoice service: nil allocator")
	}
	if suppliers == nil {
		return nil, errors.New("invoice service: nil supplier source")
	}
	if customers == nil {
		return nil, errors.New("invoice service: nil customer source")
	}
	s := &InvoiceService{
		invoices:  invoices,
		numbers:   numbers,
		suppliers: suppliers,
		customers: customers,
		clock:     SystemClock{},
		audit:     audit.Nop{},
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Save validates, numbers and totals an invoice, then creates or updates it.
// An empty number is allocated from the invoice date's year.
func (s *InvoiceService) Save(ctx context.Context, inv *invoicing.Invoice) error {
	if inv == nil {
		return invoicing.ErrNilInvoice
	}
	if inv.SupplierID == 0 || inv.CustomerID == 0 {
		return invoicing.ErrMissingParty
	}
	if len(inv.Lines) == 0 {
		return invoicing.ErrNoLines
	}
	if inv.Discount != nil && !inv.Discount.Kind.Valid() {
		return fmt.Errorf("%w: %q", invoicing.ErrInvalidDiscount, inv.Discount.Kind)
	}
	if err := amountProblems(inv).Err(); err != nil {
		return err
	}
	if inv.Status != "" && !inv.Status.Valid() {
		return fmt.Errorf("%w: %q", invoicing.ErrInvalidStatus, inv.Status)
	}
	if inv.ID == 0 {
		if inv.Status == "" {
			inv.Status = invoicing.StatusDraft
		}
	} else if err := s.carryStored(ctx, inv); err != nil {
		return err
	}
	if _, _, err := s.parties(ctx, inv); err != nil {
		return err
	}
	if inv.Date.IsZero() {
		inv.Date = s.today()
	}
	if inv.PaymentTermDays <= 0 {
		inv.PaymentTermDays = invoicing.DefaultPaymentTermDays
	}

	if inv.Number == "" {
		number, err := s.numbers.Allocate(ctx, inv.Date.Year())
		if err != nil {
			return err
		}
		inv.Number = number
	} else {
		owner, err := s.invoices.NumberOwner(ctx, inv.Number)
		if err != nil {
			return err
		}
		if owner != 0 && owner != inv.ID {
			return fmt.Errorf("%w: %s", invoicing.ErrDuplicateNumber, inv.Number)
		}
	}

	inv.RenumberLines()
	inv.ApplyTotals(inv.ComputeTotals())

	action := audit.ActionInvoiceUpdated
	if inv.ID == 0 {
		action = audit.ActionInvoiceCreated
		if err := s.invoices.Create(ctx, inv); err != nil {
			return err
		}
	} else if err := s.invoices.Update(ctx, inv); err != nil {
		return err
	}

	s.logger.Info().Int64("invoice_id", inv.ID).Str("number", inv.Number).Str("gross", inv.Gross.StringFixed(2)).Msg("invoice saved")
	s.record(ctx, action, inv, map[string]string{"number": inv.Number, "gross": inv.Gross.StringFixed(2)})
	return nil
}

// carryStored fills the fields an edit leaves empty from the stored invoice.
// Number, status and PDF path survive an edit; the status only moves forward.
func (s *InvoiceService) carryStored(ctx context.Context, inv *invoicing.Invoice) error {
	stored, err := s.Get(ctx, inv.ID)
	if err != nil {
		return err
	}
	if inv.Number == "" {
		inv.Number = stored.Number
	}
	if inv.Status == "" {
		inv.Status = stored.Status
	} else if !stored.Status.CanTransitionTo(inv.Status) {
		return fmt.Errorf("%w: %s -> %s", invoicing.ErrInvalidStatusTransition, stored.Status, inv.Status)
	}
	if inv.PDFPath == "" {
		inv.PDFPath = stored.PDFPath
	}
	inv.CreatedAt = stored.CreatedAt
	return nil
}

func amountProblems(inv *invoicing.Invoice) validation.Problems {
	var results []string
	for i, line := range inv.Lines {
		results = append(results,
			validation.NonNegative(line.Quantity, fmt.Sprintf("Menge (Position %d)", i+1)),
			validation.NonNegative(line.UnitPrice, fmt.Sprintf("Einzelpreis (Position %d)", i+1)),
			validation.NonNegative(line.TaxRate, fmt.Sprintf("Steuersatz (Position %d)", i+1)),
		)
	}
	if d := inv.Discount; d != nil {
		if d.Kind == invoicing.DiscountPercentage {
			results = append(results, validation.Percentage(d.Value, "Rabatt"))
		} else {
			results = append(results, validation.NonNegative(d.Value, "Rabatt"))
		}
	}
	return validation.Collect(results...)
}

// Get loads an invoice or returns ErrInvoiceNotFound.
func (s *InvoiceService) Get(ctx context.Context, id int64) (*invoicing.Invoice, error) {
	inv, err := s.invoices.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, invoicing.ErrInvoiceNotFound
	}
	return inv, nil
}

// List returns invoices matching filter, newest first.
func (s *InvoiceService) List(ctx context.Context, filter invoicing.SearchFilter) ([]invoicing.Invoice, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", invoicing.ErrInvalidStatus, filter.Status)
	}
	return s.invoices.List(ctx, filter)
}

// Totals computes the breakdown of a stored invoice.
func (s *InvoiceService) Totals(ctx context.Context, id int64) (invoicing.Totals, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return invoicing.Totals{}, err
	}
	return inv.ComputeTotals(), nil
}

// Advance moves an invoice one step forward; paid stays paid.
func (s *InvoiceService) Advance(ctx context.Context, id int64) (invoicing.Status, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	next := inv.Status.Next()
	if next == inv.Status {
		return next, nil
	}
	if err := s.changeStatus(ctx, inv, next); err != nil {
		return "", err
	}
	return next, nil
}

// SetStatus moves an invoice to status; moving backwards is rejected.
func (s *InvoiceService) SetStatus(ctx context.Context, id int64, status invoicing.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", invoicing.ErrInvalidStatus, status)
	}
	inv, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !inv.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s", invoicing.ErrInvalidStatusTransition, inv.Status, status)
	}
	if inv.Status == status {
		return nil
	}
	return s.changeStatus(ctx, inv, status)
}

// Duplicate copies an invoice as a new draft dated today with a fresh number.
func (s *InvoiceService) Duplicate(ctx context.Context, id int64) (*invoicing.Invoice, error) {
	src, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	cp := src.Clone()
	cp.ID = 0
	cp.Number = ""
	cp.Date = s.today()
	cp.ServiceDate = time.Time{}
	cp.ServicePeriod = ""
	cp.Status = invoicing.StatusDraft
	cp.PDFPath = ""
	cp.CreatedAt = time.Time{}
	cp.UpdatedAt = time.Time{}
	for i := range cp.Lines {
		cp.Lines[i].ID = 0
		cp.Lines[i].InvoiceID = 0
	}
	if err := s.Save(ctx, cp); err != nil {
		return nil, err
	}
	s.logger.Info().Str("source", src.Number).Str("number", cp.Number).Msg("invoice duplicated")
	return cp, nil
}

// Delete removes an invoice and its lines.
func (s *InvoiceService) Delete(ctx context.Context, id int64) error {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.invoices.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("invoice_id", id).Str("number", inv.Number).Msg("invoice deleted")
	s.record(ctx, audit.ActionInvoiceDeleted, inv, map[string]string{"number": inv.Number})
	return nil
}

// ExportResult describes a rendered invoice.
type ExportResult struct {
	Path     string
	Embedded bool
	// EmbedErr is set when the e-invoice data could not be added; the document at Path is still valid.
	EmbedErr error
	Status   invoicing.Status
}

// Export renders the invoice, optionally embeds e-invoice data, stores the path and marks drafts as sent.
func (s *InvoiceService) Export(ctx context.Context, id int64, embed bool) (*ExportResult, error) {
	if s.renderer == nil {
		return nil, errors.New("invoice service: no renderer configured")
	}
	doc, err := s.Document(ctx, id)
	if err != nil {
		return nil, err
	}
	inv := doc.Invoice

	path, err := s.render(ctx, doc)
	if err != nil {
		return nil, err
	}
	result := &ExportResult{Path: path, Status: inv.Status}

	if embed && s.embedder != nil {
		if err := s.embed(ctx, path, doc); err != nil {
			result.EmbedErr = err
			s.logger.Warn().Err(err).Str("number", inv.Number).Msg("e-invoice embedding failed, document kept without XML")
		} else {
			result.Embedded = true
		}
	}

	if err := s.invoices.UpdatePDFPath(ctx, inv.ID, path); err != nil {
		return nil, err
	}
	if inv.Status == invoicing.StatusDraft {
		if err := s.changeStatus(ctx, inv, invoicing.StatusSent); err != nil {
			return nil, err
		}
		result.Status = invoicing.StatusSent
	}
	s.record(ctx, audit.ActionInvoiceExported, inv, map[string]any{"path": path, "embedded": result.Embedded})
	return result, nil
}

// Document assembles the render input for an invoice.
func (s *InvoiceService) Document(ctx context.Context, id int64) (Document, error) {
	inv, err := s.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	supplier, customer, err := s.parties(ctx, inv)
	if err != nil {
		return Document{}, err
	}
	return Document{
		Invoice:  inv,
		Totals:   inv.ComputeTotals(),
		Supplier: *supplier,
		Customer: *customer,
	}, nil
}

func (s *InvoiceService) render(ctx context.Context, doc Document) (path string, err error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		if err != nil {
			result = metrics.ResultError
		}
		metrics.ObserveDocumentRender(metrics.KindPDF, result, time.Since(start))
	}()
	path, err = s.renderer.Render(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", doc.Invoice.Number, err)
	}
	s.logger.Info().Str("number", doc.Invoice.Number).Str("path", path).Msg("invoice rendered")
	return path, nil
}

func (s *InvoiceService) embed(ctx context.Context, path string, doc Document) (err error) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		if err != nil {
			result = metrics.ResultError
		}
		metrics.ObserveDocumentRender(metrics.KindEInvoice, result, time.Since(start))
	}()
	return s.embedder.Embed(ctx, path, doc)
}

func (s *InvoiceService) changeStatus(ctx context.Context, inv *invoicing.Invoice, status invoicing.Status) error {
	if err := s.invoices.UpdateStatus(ctx, inv.ID, status); err != nil {
		return err
	}
	from := inv.Status
	inv.Status = status
	metrics.IncInvoiceStatus(string(status))
	s.logger.Info().Str("number", inv.Number).Str("from", string(from)).Str("to", string(status)).Msg("invoice status changed")
	s.record(ctx, audit.ActionInvoiceStatus, inv, map[string]string{"from": string(from), "to": string(status)})
	return nil
}

func (s *InvoiceService) parties(ctx context.Context, inv *invoicing.Invoice) (*masterdata.Supplier, *masterdata.Customer, error) {
	supplier, err := s.suppliers.Get(ctx, inv.SupplierID)
	if err != nil {
		return nil, nil, err
	}
	if supplier == nil {
		return nil, nil, fmt.Errorf("supplier %d: %w", inv.SupplierID, masterdata.ErrNotFound)
	}
	customer, err := s.customers.Get(ctx, inv.CustomerID)
	if err != nil {
		return nil, nil, err
	}
	if customer == nil {
		return nil, nil, fmt.Errorf("customer %d: %w", inv.CustomerID, masterdata.ErrNotFound)
	}
	return supplier, customer, nil
}

func (s *InvoiceService) record(ctx context.Context, action string, inv *invoicing.Invoice, metadata any) {
	err := s.audit.Log(ctx, audit.Entry{
		Action:       action,
		ResourceType: audit.ResourceInvoice,
		ResourceID:   fmt.Sprintf("%d", inv.ID),
		Metadata:     audit.Metadata(metadata),
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("audit log failed")
	}
}

func (s *InvoiceService) today() time.Time {
	now := s.clock.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

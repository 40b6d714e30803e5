package einvoice

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"
	"github.com/rs/zerolog"

	"invoice-desk/internal/invoicing/application"
	"invoice-desk/internal/invoicing/interfaces/pdf"
)

// AttachmentName is the file name Factur-X readers look for.
const AttachmentName = "factur-x.xml"

// Embedder re-renders an invoice PDF with the CII XML attached.
type Embedder struct {
	logger zerolog.Logger
}

// Option configures the embedder.
type Option func(*Embedder)

// WithLogger sets the embedder logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Embedder) { e.logger = logger }
}

// NewEmbedder constructs an embedder.
func NewEmbedder(opts ...Option) *Embedder {
	e := &Embedder{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Embed replaces the document at path with one carrying factur-x.xml.
// The replacement is written next to path and renamed over it, so a failure leaves path unchanged.
func (e *Embedder) Embed(ctx context.Context, path string, doc application.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("einvoice: source document: %w", err)
	}
	xmlData, err := BuildCII(doc)
	if err != nil {
		return err
	}
	data, err := pdf.Build(doc, gofpdf.Attachment{
		Content:     xmlData,
		Filename:    AttachmentName,
		Description: "Factur-X EN16931",
	})
	if err != nil {
		return fmt.Errorf("einvoice: %w", err)
	}
	if err := replaceFile(path, data); err != nil {
		return fmt.Errorf("einvoice: %w", err)
	}
	e.logger.Debug().Str("path", path).Int("xml_bytes", len(xmlData)).Msg("e-invoice embedded")
	return nil
}

func replaceFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

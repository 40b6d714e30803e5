package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"invoice-desk/internal/audit"
	invoicing "invoice-desk/internal/invoicing/domain"
	"invoice-desk/internal/observability/metrics"
)

// DefaultKeep is the number of automatic backups retained.
const DefaultKeep = 10

const (
	autoPrefix   = "auto_"
	manualPrefix = "backup_"
	fileSuffix   = ".json"
)

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Stats counts restored records per table.
type Stats struct {
	Suppliers      int
	Customers      int
	Articles       int
	InvoiceNumbers int
	Invoices       int
	InvoiceLines   int
}

// Service writes and restores backup files.
type Service struct {
	store  Store
	dir    string
	keep   int
	clock  Clock
	audit  audit.Logger
	logger zerolog.Logger
}

// Option configures the service.
type Option func(*Service)

// WithKeep sets how many automatic backups are retained.
func WithKeep(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.keep = n
		}
	}
}

// WithClock overrides the clock used for file names and metadata.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithAudit records imports.
func WithAudit(logger audit.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.audit = logger
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService constructs a backup service writing into dir.
func NewService(store Store, dir string, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("backup service: nil store")
	}
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("backup service: empty backups dir")
	}
	s := &Service{
		store:  store,
		dir:    dir,
		keep:   DefaultKeep,
		clock:  systemClock{},
		audit:  audit.Nop{},
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DefaultPath returns <dir>/backup_YYYYMMDD_HHMMSS.json for now.
func (s *Service) DefaultPath() string {
	return filepath.Join(s.dir, manualPrefix+s.clock.Now().Format("20060102_150405")+fileSuffix)
}

// Export writes a snapshot to path, or to DefaultPath when path is empty.
func (s *Service) Export(ctx context.Context, path string) (written string, err error) {
	start := time.Now()
	defer func() { observe(metrics.BackupExport, err, start) }()

	if path == "" {
		path = s.DefaultPath()
	}
	data, err := s.store.Dump(ctx)
	if err != nil {
		return "", fmt.Errorf("backup: dump: %w", err)
	}
	snap := NewSnapshot(data, s.clock.Now())
	body, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("backup: encode: %w", err)
	}
	if err := writeFile(path, body); err != nil {
		return "", fmt.Errorf("backup: write: %w", err)
	}
	s.logger.Info().
		Str("path", path).
		Int("invoices", len(snap.Invoices)).
		Int("customers", len(snap.Customers)).
		Msg("backup exported")
	return path, nil
}

// Read decodes and version checks a backup file.
func Read(path string) (*Snapshot, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("backup: read: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if err := snap.CheckVersion(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Import restores a backup file. Records are upserted by id in dependency order
// (suppliers, customers, articles, invoice numbers, invoices, invoice lines) inside one transaction.
func (s *Service) Import(ctx context.Context, path string) (stats Stats, err error) {
	start := time.Now()
	defer func() { observe(metrics.BackupImport, err, start) }()

	snap, err := Read(path)
	if err != nil {
		return Stats{}, err
	}
	return s.Restore(ctx, snap)
}

// Restore applies a decoded snapshot.
func (s *Service) Restore(ctx context.Context, snap *Snapshot) (Stats, error) {
	invoices := make([]invoicing.Invoice, 0, len(snap.Invoices))
	for _, r := range snap.Invoices {
		inv, err := InvoiceFromRecord(r)
		if err != nil {
			return Stats{}, err
		}
		invoices = append(invoices, inv)
	}

	var stats Stats
	err := s.store.Restore(ctx, func(r Restorer) error {
		stats = Stats{}
		for _, rec := range snap.Suppliers {
			if err := r.PutSupplier(ctx, SupplierFromRecord(rec)); err != nil {
				return fmt.Errorf("supplier %d: %w", rec.ID, err)
			}
			stats.Suppliers++
		}
		for _, rec := range snap.Customers {
			if err := r.PutCustomer(ctx, CustomerFromRecord(rec)); err != nil {
				return fmt.Errorf("customer %d: %w", rec.ID, err)
			}
			stats.Customers++
		}
		for _, rec := range snap.Articles {
			if err := r.PutArticle(ctx, ArticleFromRecord(rec)); err != nil {
				return fmt.Errorf("article %d: %w", rec.ID, err)
			}
			stats.Articles++
		}
		for _, rec := range snap.InvoiceNumbers {
			if err := r.PutCounter(ctx, invoicing.YearCounter{Year: rec.Year, LastSequence: rec.LastSequence}); err != nil {
				return fmt.Errorf("invoice number %d: %w", rec.Year, err)
			}
			stats.InvoiceNumbers++
		}
		for _, inv := range invoices {
			if err := r.PutInvoice(ctx, inv); err != nil {
				return fmt.Errorf("invoice %s: %w", inv.Number, err)
			}
			stats.Invoices++
		}
		for _, rec := range snap.InvoiceLines {
			if err := r.PutLine(ctx, LineFromRecord(rec)); err != nil {
				return fmt.Errorf("invoice line %d: %w", rec.ID, err)
			}
			stats.InvoiceLines++
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("backup: restore: %w", err)
	}

	s.logger.Info().
		Int("suppliers", stats.Suppliers).
		Int("customers", stats.Customers).
		Int("invoices", stats.Invoices).
		Int("invoice_lines", stats.InvoiceLines).
		Msg("backup restored")
	if err := s.audit.Log(ctx, audit.Entry{
		Action:       audit.ActionBackupImported,
		ResourceType: audit.ResourceBackup,
		ResourceID:   snap.Meta.ExportedAt.Format(time.RFC3339),
		Metadata:     audit.Metadata(stats),
	}); err != nil {
		s.logger.Warn().Err(err).Msg("audit log failed")
	}
	return stats, nil
}

// Auto writes auto_YYYYMMDD.json, overwriting today's file, and prunes old automatic backups.
func (s *Service) Auto(ctx context.Context) (string, []string, error) {
	path := filepath.Join(s.dir, autoPrefix+s.clock.Now().Format("20060102")+fileSuffix)
	written, err := s.Export(ctx, path)
	if err != nil {
		return "", nil, err
	}
	removed, err := s.Prune()
	if err != nil {
		return written, removed, err
	}
	return written, removed, nil
}

// Prune removes the oldest automatic backups beyond the retention count.
func (s *Service) Prune() (removed []string, err error) {
	start := time.Now()
	defer func() { observe(metrics.BackupPrune, err, start) }()

	matches, err := filepath.Glob(filepath.Join(s.dir, autoPrefix+"*"+fileSuffix))
	if err != nil {
		return nil, err
	}
	type entry struct {
		path    string
		modTime time.Time
	}
	entries := make([]entry, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		entries = append(entries, entry{path: m, modTime: info.ModTime()})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].modTime.Equal(entries[j].modTime) {
			return entries[i].path < entries[j].path
		}
		return entries[i].modTime.Before(entries[j].modTime)
	})
	for len(entries) > s.keep {
		if err := os.Remove(entries[0].path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return removed, err
		}
		removed = append(removed, entries[0].path)
		entries = entries[1:]
	}
	if len(removed) > 0 {
		s.logger.Info().Strs("removed", removed).Int("keep", s.keep).Msg("automatic backups pruned")
	}
	return removed, nil
}

func writeFile(path string, body []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

func observe(op string, err error, start time.Time) {
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveBackup(op, result, time.Since(start))
}

// Package cmd is the command line front end over the invoicing services.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"invoice-desk/internal/app"
	"invoice-desk/internal/config"
	"invoice-desk/internal/logger"
	"invoice-desk/internal/observability/metrics"
)

var version = "1.0.0"

// state is shared by the command tree of one invocation.
type state struct {
	cfg        *config.Config
	configPath string
	memory     bool
	migrate    bool
	desk       *app.App
	out        io.Writer
	log        zerolog.Logger
}

// NewRootCommand builds the command tree. cfg is the configuration loaded at startup;
// --config replaces it.
func NewRootCommand(cfg *config.Config, out io.Writer) *cobra.Command {
	st := &state{cfg: cfg, out: out, log: logger.WithComponent("cmd")}

	root := &cobra.Command{
		Use:   "invoice-desk",
		Short: "Rechnungen schreiben, nummerieren und archivieren",
		Long: `invoice-desk keeps suppliers, customers, articles and invoices in a Postgres
record store, allocates gapless invoice numbers (RE-YYYY-NNNN), renders PDF invoices
with embedded Factur-X data and writes JSON backups and XLSX archives.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return st.open(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return st.close(cmd.Context())
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&st.configPath, "config", "", "YAML configuration file (default $"+config.EnvConfigPath+")")
	root.PersistentFlags().BoolVar(&st.memory, "memory", false, "use an in-memory record store")
	root.PersistentFlags().BoolVar(&st.migrate, "migrate", true, "apply pending schema migrations on start")

	root.AddCommand(
		newMigrateCommand(st),
		newNumberCommand(st),
		newMasterdataCommand(st),
		newInvoiceCommand(st),
		newBackupCommand(st),
		newArchiveCommand(st),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, cfg *config.Config) int {
	log := logger.WithComponent("cmd")
	root := NewRootCommand(cfg, os.Stdout)
	if err := root.ExecuteContext(ctx); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Fehler: %v\n", err)
		return 1
	}
	return 0
}

func (st *state) open(ctx context.Context) error {
	if st.configPath != "" {
		cfg, err := config.Load(st.configPath)
		if err != nil {
			return err
		}
		st.cfg = cfg
	}
	if st.cfg == nil {
		cfg, err := config.Load("")
		if err != nil {
			return err
		}
		st.cfg = cfg
	}

	var (
		desk *app.App
		err  error
	)
	if st.memory {
		desk, err = app.NewMemory(st.cfg, st.log)
	} else {
		desk, err = app.Open(ctx, st.cfg, st.migrate, st.log)
	}
	if err != nil {
		return err
	}
	st.desk = desk
	metrics.Init(desk.DB, st.log)
	return nil
}

func (st *state) close(ctx context.Context) error {
	if st.desk == nil {
		return nil
	}
	err := st.desk.Close(ctx)
	st.desk = nil
	if path := st.cfg.Metrics.Textfile; path != "" {
		if werr := metrics.WriteTextfile(path); werr != nil {
			st.log.Warn().Err(werr).Str("path", path).Msg("metrics textfile not written")
		}
	}
	return err
}

func (st *state) printf(format string, args ...any) {
	fmt.Fprintf(st.out, format, args...)
}

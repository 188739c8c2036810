// Package cli implements the satchel command-line interface: schema
// inspection, form validation, entity storage, and JSONL snapshots over
// the configured backend.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/satchel/internal/schemafile"
	"github.com/mesh-intelligence/satchel/pkg/codec"
	"github.com/mesh-intelligence/satchel/pkg/store"
	"github.com/mesh-intelligence/satchel/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	verbose   bool
}

var flags rootFlags

// NewRootCmd creates the top-level "satchel" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "satchel",
		Short: "Schema-validated entity storage with cycle-safe serialization",
		Long: "Satchel manages typed entities in per-kind containers, validates them\n" +
			"against declared schemas, and serializes object graphs safely, cycles\n" +
			"included, to any of its storage backends.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: .satchel)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (overrides config)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug-level logging")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd())
	root.AddCommand(newSchemaCmd())
	root.AddCommand(newValidateCmd())
	root.AddCommand(newPutCmd())
	root.AddCommand(newGetCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newDeleteCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newImportCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// sysError marks a failure of the environment (backend unreachable,
// storage broken) rather than of the request.
type sysError struct {
	err error
}

func (e *sysError) Error() string { return e.err.Error() }
func (e *sysError) Unwrap() error { return e.err }

// exitCode maps an error to the process exit code: 0 on success, 2 for
// system failures, 1 for everything the user can correct.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var sys *sysError
	if errors.As(err, &sys) {
		return exitSysError
	}
	return exitUserError
}

// resolveConfigDir returns the config directory from flag, env, or default.
func resolveConfigDir() string {
	if flags.configDir != "" {
		return flags.configDir
	}
	if v := os.Getenv("SATCHEL_CONFIG_DIR"); v != "" {
		return v
	}
	return ".satchel"
}

// app bundles everything a store-backed command needs.
type app struct {
	logger *log.Logger
	cfg    types.Config
	reg    *types.Registry
	enc    *codec.Encoder
	dec    *codec.Decoder
	store  types.Store
}

// openApp loads configuration and schemas; when withStore is set it also
// opens and attaches the configured backend.
func openApp(withStore bool) (*app, error) {
	logger := newLogger(os.Stderr, logLevel())

	cfg, err := loadConfig(resolveConfigDir())
	if err != nil {
		return nil, err
	}
	if flags.dataDir != "" {
		cfg.DataDir = flags.dataDir
	}

	reg := types.NewRegistry()
	if err := schemafile.LoadDir(cfg.SchemaDir, reg); err != nil {
		return nil, err
	}
	logger.Debug("schemas loaded", "dir", cfg.SchemaDir, "kinds", len(reg.Kinds()))

	opts := codec.FromConfig(cfg)
	a := &app{
		logger: logger,
		cfg:    cfg,
		reg:    reg,
		enc:    codec.NewEncoder(opts),
		dec:    codec.NewDecoder(reg, opts),
	}
	if withStore {
		st, err := store.Open(reg, cfg)
		if err != nil {
			return nil, &sysError{fmt.Errorf("attaching %s backend: %w", cfg.Backend, err)}
		}
		logger.Debug("store attached", "backend", cfg.Backend)
		a.store = st
	}
	return a, nil
}

// close detaches the store when one was opened.
func (a *app) close() {
	if a.store != nil {
		if err := a.store.Detach(); err != nil {
			a.logger.Warn("detach failed", "err", err)
		}
	}
}

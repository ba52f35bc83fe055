// Package cli wires the stepjourney commands: the desktop editor, the HTTP
// server, the standalone MCP server and one-shot journey tools.
package cli

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"stepjourney/internal/config"
	"stepjourney/internal/logger"
)

type App struct {
	DataDir string
	Actor   string
	LogMode string
	Pretty  bool

	assets fs.FS
}

// NewRootCmd builds the command tree. assets is the built frontend served
// by the desktop window.
func NewRootCmd(assets fs.FS) *cobra.Command {
	app := &App{assets: assets}

	cmd := &cobra.Command{
		Use:          "stepjourney",
		Short:        "Block editor and guided journey viewer",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Open the desktop editor
  stepjourney

  # Serve the HTTP API for the browser build
  stepjourney serve

  # Run as an MCP server over stdio
  stepjourney mcp

  # Print a journey's navigation order
  stepjourney flatten <journey-id>
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runDesktop(cmd, app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&app.DataDir, "data-dir", "", "Data directory (overrides STEPJOURNEY_DATA_DIR)")
	cmd.PersistentFlags().StringVar(&app.Actor, "actor", "", "Actor id recorded on created blocks")
	cmd.PersistentFlags().StringVar(&app.LogMode, "log-mode", "", "Log mode (dev|prod)")
	cmd.PersistentFlags().BoolVar(&app.Pretty, "pretty", false, "Pretty-print JSON output")

	cmd.AddCommand(newDesktopCmd(app))
	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newMCPCmd(app))
	cmd.AddCommand(newFlattenCmd(app))
	cmd.AddCommand(newImportCmd(app))

	return cmd
}

// loadConfig reads the layered configuration and applies flag overrides.
func loadConfig(app *App) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	if app.DataDir != "" {
		if cfg.FixturesDir == filepath.Join(cfg.DataDir, "fixtures") {
			cfg.FixturesDir = filepath.Join(app.DataDir, "fixtures")
		}
		cfg.DataDir = app.DataDir
	}
	if app.Actor != "" {
		cfg.Actor = app.Actor
	}
	if app.LogMode != "" {
		cfg.LogMode = app.LogMode
	}
	if cfg.DBDriver == "sqlite" {
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return cfg, fmt.Errorf("create data dir: %w", err)
		}
	}
	return cfg, nil
}

func setup(app *App) (config.Config, *logger.Logger, error) {
	cfg, err := loadConfig(app)
	if err != nil {
		return cfg, nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if app.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}

package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	desktop "stepjourney/internal/app"
)

func newMCPCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run a standalone MCP server over stdio",
		Long: `Run a standalone MCP server over stdio.

Destructive tools wait for a running desktop editor sharing the same
database to approve them, unless --yes is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			if err := desktop.ServeMCP(ctx, cfg, log, yes); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Approve destructive tools without asking")
	return cmd
}

package cli

import (
	"context"

	"github.com/spf13/cobra"

	desktop "stepjourney/internal/app"
	"stepjourney/internal/domain"
	"stepjourney/internal/service"
)

type flattenedStepOut struct {
	GlobalIndex   int    `json:"globalIndex"`
	ID            string `json:"id"`
	Title         string `json:"title"`
	GroupID       string `json:"groupId"`
	StepIDInGroup int    `json:"stepIdInGroup"`
}

func newFlattenCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "flatten <journey-id>",
		Short: "Print a journey's steps in navigation order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer log.Sync()

			core, err := desktop.OpenCore(cfg, log, service.NopEmitter{})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer core.Close(context.Background())

			root, steps, err := core.Flatten(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			out := make([]flattenedStepOut, len(steps))
			for i, st := range steps {
				out[i] = flattenedStepOut{
					GlobalIndex:   st.GlobalIndex,
					ID:            st.Block.ID,
					Title:         domain.BlockTitle(st.Block, ""),
					GroupID:       st.GroupID,
					StepIDInGroup: st.StepIDInGroup,
				}
			}
			return writeOut(cmd, app, map[string]any{
				"journeyId": root.ID,
				"title":     domain.BlockTitle(root, ""),
				"steps":     out,
			})
		},
	}
}

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Persist the blocks of a fixture file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer log.Sync()

			core, err := desktop.OpenCore(cfg, log, service.NopEmitter{})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer core.Close(context.Background())

			n, err := core.Import(args[0])
			result := map[string]any{"file": args[0], "blocks": n}
			if err != nil {
				result["error"] = err.Error()
			}
			if werr := writeOut(cmd, app, result); werr != nil {
				return werr
			}
			if n == 0 && err != nil {
				return err
			}
			return nil
		},
	}
}

package app

import (
	"fmt"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"stepjourney/internal/domain"
)

// ============================================================
// Journeys
// ============================================================

func (a *App) ListJourneys() ([]domain.Journey, error) {
	return a.core.Journeys.ListJourneys(a.ctx)
}

// LoadJourney loads a journey by catalog id or root block id and resets
// the position to its first step.
func (a *App) LoadJourney(id string) (JourneyView, error) {
	if err := a.core.Journeys.Load(a.ctx, id); err != nil {
		return JourneyView{}, err
	}
	return a.CurrentJourney()
}

// CurrentJourney returns the loaded journey as the viewer renders it.
func (a *App) CurrentJourney() (JourneyView, error) {
	j := a.core.Journeys
	root, ok := j.Journey()
	if !ok {
		return JourneyView{}, fmt.Errorf("current journey: %w", domain.ErrJourneyNotFound)
	}
	return JourneyView{
		Journey:  root,
		Title:    domain.BlockTitle(root, ""),
		Steps:    j.Steps(),
		Current:  j.CurrentIndex(),
		Expanded: j.ExpandedGroups(),
	}, nil
}

// PreviewJourney flattens a journey without changing the loaded one.
func (a *App) PreviewJourney(id string) ([]domain.FlattenedStep, error) {
	_, steps, err := a.core.Journeys.Preview(a.ctx, id)
	return steps, err
}

func (a *App) SetStep(i int) int {
	return a.core.Journeys.SetStep(a.ctx, i)
}

func (a *App) NextStep() int {
	return a.core.Journeys.NextStep(a.ctx)
}

func (a *App) PrevStep() int {
	return a.core.Journeys.PrevStep(a.ctx)
}

// GoToStep moves to the step with the given block id.
func (a *App) GoToStep(stepID string) (int, error) {
	i, ok := a.core.Journeys.GoToStep(a.ctx, stepID)
	if !ok {
		return i, fmt.Errorf("step %s is not in the loaded journey", stepID)
	}
	return i, nil
}

func (a *App) ToggleGroup(groupID string) bool {
	return a.core.Journeys.ToggleGroup(groupID)
}

// ImportFixtures asks for a fixture file and persists its blocks. Returns
// the number of blocks written; zero when the dialog is cancelled.
func (a *App) ImportFixtures() (int, error) {
	path, err := wailsRuntime.OpenFileDialog(a.ctx, wailsRuntime.OpenDialogOptions{
		Title: "Import Journey",
		Filters: []wailsRuntime.FileFilter{
			{DisplayName: "Journey JSON", Pattern: "*.json"},
		},
	})
	if err != nil || path == "" {
		return 0, err
	}
	return a.importFile(path)
}

func (a *App) importFile(path string) (int, error) {
	n, err := a.core.Import(path)
	if n > 0 {
		a.reloadJourney(a.ctx)
		a.refreshDocument(a.ctx)
		a.emit.Emit(a.ctx, "journeys:imported", map[string]any{"path": path, "blocks": n})
	}
	return n, err
}

package app

import (
	"stepjourney/internal/domain"
	"stepjourney/internal/editor"
	"stepjourney/internal/tree"
)

// RowView is one visible row of the open document.
type RowView struct {
	Block     domain.Block `json:"block"`
	Depth     int          `json:"depth"`
	Title     string       `json:"title"`
	Collapsed bool         `json:"collapsed"`
}

// EditorState is the selection snapshot the frontend renders from.
type EditorState struct {
	RootID    string           `json:"rootId"`
	Selected  []string         `json:"selected"`
	Focused   string           `json:"focused"`
	State     string           `json:"state"`
	Clipboard int              `json:"clipboard"`
	UndoDepth int              `json:"undoDepth"`
	Drag      editor.DragState `json:"drag"`
}

// KeyResult reports what a key event did.
type KeyResult struct {
	Action         string `json:"action"`
	PreventDefault bool   `json:"preventDefault"`
}

// JourneyView is the loaded journey as the viewer renders it.
type JourneyView struct {
	Journey  domain.Block           `json:"journey"`
	Title    string                 `json:"title"`
	Steps    []domain.FlattenedStep `json:"steps"`
	Current  int                    `json:"current"`
	Expanded []string               `json:"expanded"`
}

func rowViews(rows []tree.Row, collapsed func(string) bool) []RowView {
	out := make([]RowView, len(rows))
	for i, r := range rows {
		out[i] = RowView{
			Block:     r.Block,
			Depth:     r.Depth,
			Title:     domain.BlockTitle(r.Block, ""),
			Collapsed: collapsed(r.Block.ID),
		}
	}
	return out
}

package app

import (
	"encoding/json"
	"fmt"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"stepjourney/internal/domain"
)

// ============================================================
// Blocks
// ============================================================

func (a *App) GetBlock(id string) (*domain.Block, error) {
	return a.core.Blocks.GetBlock(a.ctx, id)
}

func (a *App) ListChildren(id string) ([]domain.Block, error) {
	return a.core.Blocks.ListChildren(a.ctx, id)
}

// CreateBlock creates a block under parentID at index (-1 appends).
// propsJSON may be empty for the type's empty record. The new block is
// focused when it belongs to the open document.
func (a *App) CreateBlock(parentID, blockType, propsJSON string, index int) (*domain.Block, error) {
	t := domain.BlockType(blockType)
	props, err := decodeProps(t, propsJSON)
	if err != nil {
		return nil, err
	}
	b, err := a.core.Blocks.CreateBlock(a.ctx, parentID, t, props, index)
	if err != nil {
		return nil, err
	}
	a.refreshDocument(a.ctx)
	if s, err := a.current(); err == nil {
		s.FocusBlock(b.ID)
	}
	return b, nil
}

// UpdateBlockProperties queues a property edit for autosave. Rapid edits
// to the same block are coalesced into one write.
func (a *App) UpdateBlockProperties(id, propsJSON string) error {
	b, err := a.core.Blocks.GetBlock(a.ctx, id)
	if err != nil {
		return err
	}
	props, err := decodeProps(b.Type, propsJSON)
	if err != nil {
		return err
	}
	a.core.Autosave.Schedule(a.ctx, id, props)
	return nil
}

func (a *App) UpdateBlockTitle(id, title string) (*domain.Block, error) {
	b, err := a.core.Blocks.UpdateTitle(a.ctx, id, title)
	if err != nil {
		return nil, err
	}
	a.refreshDocument(a.ctx)
	return b, nil
}

func (a *App) MoveBlock(id, newParentID string, index int) error {
	if err := a.core.Blocks.MoveBlock(a.ctx, id, newParentID, index); err != nil {
		return err
	}
	a.refreshDocument(a.ctx)
	return nil
}

// DeleteBlock soft-deletes a block and its subtree. Image files are kept
// so a restore can still point at them.
func (a *App) DeleteBlock(id string) error {
	if err := a.core.Blocks.DeleteBlock(a.ctx, id); err != nil {
		return err
	}
	a.refreshDocument(a.ctx)
	return nil
}

func decodeProps(t domain.BlockType, propsJSON string) (domain.Properties, error) {
	if !t.Valid() {
		return nil, &domain.UnknownBlockTypeError{Type: string(t)}
	}
	props, err := domain.DecodeProperties(t, json.RawMessage(propsJSON))
	if err != nil {
		return nil, fmt.Errorf("properties: %w", err)
	}
	return props, nil
}

// ============================================================
// Image I/O
// ============================================================

// GetImageData returns a locally stored image as a base64 data URL, or ""
// for remote images.
func (a *App) GetImageData(blockID string) (string, error) {
	return a.core.Blocks.GetImageData(a.ctx, blockID)
}

// SaveImageFile saves a base64 data URL under the data directory and
// points the image block at it.
func (a *App) SaveImageFile(blockID, dataURL string) (string, error) {
	path, err := a.core.Blocks.SaveImageFile(a.ctx, blockID, dataURL)
	if err != nil {
		return "", err
	}
	a.refreshDocument(a.ctx)
	return path, nil
}

// PickImageFile opens a native file picker for an image.
func (a *App) PickImageFile() (string, error) {
	return wailsRuntime.OpenFileDialog(a.ctx, wailsRuntime.OpenDialogOptions{
		Title: "Select Image",
		Filters: []wailsRuntime.FileFilter{
			{DisplayName: "Images", Pattern: "*.png;*.jpg;*.jpeg;*.gif;*.webp"},
		},
	})
}
